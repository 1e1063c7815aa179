package telemetry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"hostmon/internal/models"
)

// DefaultRefreshTimeout bounds a single provider refresh.
const DefaultRefreshTimeout = 2 * time.Second

// Store owns the host snapshot and serializes every refresh-then-read on it.
//
// The lock is held across the provider call and the read so another request
// can never interleave its own refresh between them. The provider works on a
// private copy that is committed back under the lock, so a call abandoned at
// the deadline cannot write into the shared snapshot afterwards.
//
// At most one provider call per family is outstanding. While an abandoned
// call is still running, reads of that family are served from the snapshot
// as it stands without starting another one.
type Store struct {
	mu       sync.Mutex
	snap     models.HostSnapshot
	provider Provider
	timeout  time.Duration
	logger   *log.Logger

	// stalled[f] is closed when the abandoned refresh of f returns.
	stalled [familyCount]chan struct{}
}

// NewStore builds a store around provider. A non-positive timeout selects
// DefaultRefreshTimeout.
func NewStore(provider Provider, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &Store{
		provider: provider,
		timeout:  timeout,
		logger:   log.Default(),
	}
}

// SetLogger replaces the logger used for refresh failures.
func (s *Store) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.Default()
	}
	s.mu.Lock()
	s.logger = l
	s.mu.Unlock()
}

// With refreshes family and then calls fn with the snapshot, all while holding
// the store lock. fn must not retain the pointer after returning.
func (s *Store) With(ctx context.Context, family Family, fn func(*models.HostSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(ctx, family)
	fn(&s.snap)
}

// Read is With for functions that produce a value.
func Read[T any](ctx context.Context, s *Store, family Family, fn func(*models.HostSnapshot) T) T {
	var out T
	s.With(ctx, family, func(snap *models.HostSnapshot) {
		out = fn(snap)
	})
	return out
}

// Prime refreshes every family once so delta-based readings (CPU usage,
// network throughput) have a baseline before the first request.
func (s *Store) Prime(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range Families() {
		s.refreshLocked(ctx, f)
	}
}

type refreshResult struct {
	snap     models.HostSnapshot
	err      error
	panicked bool
}

// refreshLocked runs one provider refresh of family and commits its fields.
// Only the refresh timeout abandons a call, never the caller's cancellation.
// An abandoned or panicking call leaves the family as it was.
func (s *Store) refreshLocked(ctx context.Context, family Family) {
	if s.provider == nil || !family.Valid() {
		return
	}
	if ch := s.stalled[family]; ch != nil {
		select {
		case <-ch:
			s.stalled[family] = nil
		default:
			s.logger.Printf("refresh %s: previous refresh still running, serving last values", family)
			return
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	scratch := s.snap
	done := make(chan refreshResult, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		var res refreshResult
		defer func() {
			if r := recover(); r != nil {
				res = refreshResult{err: fmt.Errorf("provider panic: %v", r), panicked: true}
			}
			done <- res
		}()
		res.err = s.provider.Refresh(rctx, family, &scratch)
		res.snap = scratch
	}()

	select {
	case res := <-done:
		if res.err != nil {
			s.logger.Printf("refresh %s: %v", family, res.err)
		}
		if !res.panicked {
			copyFamily(&s.snap, &res.snap, family)
		}
	case <-rctx.Done():
		s.logger.Printf("refresh %s: %v", family, rctx.Err())
		s.stalled[family] = finished
	}
}

// copyFamily moves the fields owned by family from src into dst.
func copyFamily(dst, src *models.HostSnapshot, family Family) {
	switch family {
	case CPU:
		dst.CPUs = src.CPUs
	case Disks:
		dst.Disks = src.Disks
	case Memory:
		dst.Memory = src.Memory
	case Networks:
		dst.Networks = src.Networks
	case Temperatures:
		dst.Components = src.Components
	case Users:
		dst.Users = src.Users
	case LoadAverage:
		dst.LoadAverage = src.LoadAverage
	case BootTime:
		dst.BootTime = src.BootTime
	case OSInfo:
		dst.OS = src.OS
	}
}
