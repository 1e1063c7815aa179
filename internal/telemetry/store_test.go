package telemetry

import (
	"context"
	"errors"
	"io"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"hostmon/internal/models"
)

type recordingProvider struct {
	mu    sync.Mutex
	calls []Family
	fill  func(Family, *models.HostSnapshot) error
}

func (p *recordingProvider) Refresh(_ context.Context, family Family, snap *models.HostSnapshot) error {
	p.mu.Lock()
	p.calls = append(p.calls, family)
	p.mu.Unlock()
	if p.fill != nil {
		return p.fill(family, snap)
	}
	return nil
}

func (p *recordingProvider) Calls() []Family {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Family(nil), p.calls...)
}

func quietStore(p Provider, timeout time.Duration) *Store {
	s := NewStore(p, timeout)
	s.SetLogger(log.New(io.Discard, "", 0))
	return s
}

func TestWithRefreshesOnlyRequestedFamily(t *testing.T) {
	p := &recordingProvider{fill: func(f Family, snap *models.HostSnapshot) error {
		switch f {
		case Memory:
			snap.Memory.Total = 1024
		case BootTime:
			snap.BootTime = 99
		}
		return nil
	}}
	s := quietStore(p, time.Second)

	got := Read(context.Background(), s, Memory, func(snap *models.HostSnapshot) uint64 {
		return snap.Memory.Total
	})
	if got != 1024 {
		t.Fatalf("expected refreshed memory total 1024, got %d", got)
	}
	calls := p.Calls()
	if len(calls) != 1 || calls[0] != Memory {
		t.Fatalf("expected a single memory refresh, got %v", calls)
	}

	// BootTime was never refreshed so it must still be zero.
	bt := Read(context.Background(), s, Memory, func(snap *models.HostSnapshot) uint64 { return snap.BootTime })
	if bt != 0 {
		t.Fatalf("boot time leaked from an unrelated refresh: %d", bt)
	}
}

func TestProviderWritesOutsideFamilyAreDiscarded(t *testing.T) {
	p := &recordingProvider{fill: func(f Family, snap *models.HostSnapshot) error {
		snap.Memory.Total = 1
		snap.BootTime = 12345
		return nil
	}}
	s := quietStore(p, time.Second)

	bt := Read(context.Background(), s, Memory, func(snap *models.HostSnapshot) uint64 { return snap.BootTime })
	if bt != 0 {
		t.Fatalf("expected boot time untouched by a memory refresh, got %d", bt)
	}
}

func TestWithReleasesLockAfterPanic(t *testing.T) {
	s := quietStore(&recordingProvider{}, time.Second)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		s.With(context.Background(), CPU, func(*models.HostSnapshot) { panic("boom") })
	}()

	done := make(chan struct{})
	go func() {
		s.With(context.Background(), CPU, func(*models.HostSnapshot) {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("store lock was not released after panic")
	}
}

func TestProviderErrorIsAbsorbed(t *testing.T) {
	p := &recordingProvider{fill: func(f Family, snap *models.HostSnapshot) error {
		snap.Users = []models.User{}
		return errors.New("permission denied")
	}}
	s := quietStore(p, time.Second)

	called := false
	s.With(context.Background(), Users, func(snap *models.HostSnapshot) {
		called = true
		if len(snap.Users) != 0 {
			t.Fatalf("expected no users, got %v", snap.Users)
		}
	})
	if !called {
		t.Fatalf("read function was not invoked after a provider error")
	}
}

func TestProviderPanicIsAbsorbed(t *testing.T) {
	var calls atomic.Int32
	p := ProviderFunc(func(_ context.Context, _ Family, snap *models.HostSnapshot) error {
		if calls.Add(1) == 1 {
			snap.Components = []models.Component{{Label: "cpu0", Temperature: 40}}
			return nil
		}
		snap.Components = nil
		panic("sensor driver exploded")
	})
	s := quietStore(p, time.Second)
	s.With(context.Background(), Temperatures, func(*models.HostSnapshot) {})

	called := false
	s.With(context.Background(), Temperatures, func(snap *models.HostSnapshot) {
		called = true
		if len(snap.Components) != 1 {
			t.Fatalf("expected the previous reading to survive a provider panic, got %v", snap.Components)
		}
	})
	if !called {
		t.Fatalf("read function was not invoked after a provider panic")
	}
}

func TestRefreshIsBoundedByDeadline(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	p := ProviderFunc(func(_ context.Context, f Family, snap *models.HostSnapshot) error {
		if calls.Add(1) == 1 {
			<-release // ignores ctx on purpose
			snap.Memory.Total = 42
			return nil
		}
		snap.Memory.Total = 7
		return nil
	})
	s := quietStore(p, 50*time.Millisecond)
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})

	start := time.Now()
	total := Read(context.Background(), s, Memory, func(snap *models.HostSnapshot) uint64 { return snap.Memory.Total })
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("refresh was not abandoned at the deadline, took %v", elapsed)
	}
	if total != 0 {
		t.Fatalf("expected the never-filled memory total after a timed-out refresh, got %d", total)
	}

	// The abandoned call is still blocked; no second call may start.
	Read(context.Background(), s, Memory, func(snap *models.HostSnapshot) uint64 { return snap.Memory.Total })
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected no new provider call while one is stalled, got %d calls", got)
	}

	// Once the abandoned call returns, refreshes resume and its write is dropped.
	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for {
		total = Read(context.Background(), s, Memory, func(snap *models.HostSnapshot) uint64 { return snap.Memory.Total })
		if total == 42 {
			t.Fatalf("abandoned refresh leaked into the store")
		}
		if total == 7 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("refreshes did not resume after the stalled call returned, total %d", total)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStalledFamilyStartsNoFurtherCalls(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	var diskCalls, memoryCalls atomic.Int32
	p := ProviderFunc(func(_ context.Context, f Family, snap *models.HostSnapshot) error {
		switch f {
		case Disks:
			diskCalls.Add(1)
			<-release
		case Memory:
			memoryCalls.Add(1)
		}
		return nil
	})
	s := quietStore(p, 5*time.Millisecond)

	before := runtime.NumGoroutine()
	for i := 0; i < 200; i++ {
		s.With(context.Background(), Disks, func(*models.HostSnapshot) {})
	}
	if got := diskCalls.Load(); got != 1 {
		t.Fatalf("expected a single outstanding disk refresh, got %d", got)
	}
	if grown := runtime.NumGoroutine() - before; grown > 5 {
		t.Fatalf("goroutines grew by %d while one refresh was stalled", grown)
	}

	// Other families are unaffected by the stalled one.
	s.With(context.Background(), Memory, func(*models.HostSnapshot) {})
	if got := memoryCalls.Load(); got != 1 {
		t.Fatalf("expected memory to refresh while disks are stalled, got %d calls", got)
	}
}

// counterProvider reports a cumulative receive counter that grows by step on
// every refresh and derives the per-refresh delta from the previous snapshot.
type counterProvider struct {
	total atomic.Uint64
	step  uint64
	block chan struct{}
}

func (p *counterProvider) Refresh(ctx context.Context, family Family, snap *models.HostSnapshot) error {
	if family != Networks {
		return nil
	}
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	total := p.total.Add(p.step)
	var received uint64
	if prev, ok := snap.NetworkByName("eth0"); ok {
		received = total - prev.TotalReceived
	}
	snap.Networks = []models.NetworkInterface{{Name: "eth0", Received: received, TotalReceived: total}}
	return nil
}

func TestCancelledCallerKeepsBaseline(t *testing.T) {
	p := &counterProvider{step: 1000}
	s := quietStore(p, time.Second)
	s.Prime(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.With(ctx, Networks, func(*models.HostSnapshot) {})

	got := Read(context.Background(), s, Networks, func(snap *models.HostSnapshot) models.NetworkInterface {
		n, _ := snap.NetworkByName("eth0")
		return n
	})
	if got.Received != 1000 || got.TotalReceived != 3000 {
		t.Fatalf("expected delta 1000 over total 3000, got %+v", got)
	}
}

func TestTimedOutRefreshKeepsBaseline(t *testing.T) {
	p := &counterProvider{step: 1000}
	s := quietStore(p, 20*time.Millisecond)
	s.Prime(context.Background())

	p.block = make(chan struct{})
	got := Read(context.Background(), s, Networks, func(snap *models.HostSnapshot) models.NetworkInterface {
		n, _ := snap.NetworkByName("eth0")
		return n
	})
	if got.TotalReceived != 1000 {
		t.Fatalf("expected the primed counter to survive a timed-out refresh, got %+v", got)
	}
}

func TestPrimeRefreshesEveryFamily(t *testing.T) {
	p := &recordingProvider{}
	s := quietStore(p, time.Second)
	s.Prime(context.Background())

	calls := p.Calls()
	if len(calls) != Count {
		t.Fatalf("expected %d refreshes, got %d (%v)", Count, len(calls), calls)
	}
	seen := make(map[Family]bool)
	for _, f := range calls {
		seen[f] = true
	}
	for _, f := range Families() {
		if !seen[f] {
			t.Fatalf("family %s was not primed", f)
		}
	}
}

// Each refresh writes a memory reading whose fields are derived from one
// counter; a read that mixes two refresh cycles breaks the relation.
func TestConcurrentReadsAreNeverTorn(t *testing.T) {
	var cycle atomic.Uint64
	p := ProviderFunc(func(_ context.Context, f Family, snap *models.HostSnapshot) error {
		n := cycle.Add(1)
		snap.Memory.Total = 3 * n
		runtime.Gosched()
		snap.Memory.Used = n
		runtime.Gosched()
		snap.Memory.Free = 2 * n
		return nil
	})
	s := quietStore(p, time.Second)

	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < 32; w++ {
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				m := Read(ctx, s, Memory, func(snap *models.HostSnapshot) models.Memory { return snap.Memory })
				if m.Used*3 != m.Total || m.Free != 2*m.Used {
					return errors.New("torn memory reading")
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := cycle.Load(); got != 32*50 {
		t.Fatalf("expected one refresh per read (%d), got %d", 32*50, got)
	}
}

func TestFamilyNames(t *testing.T) {
	if CPU.String() != "cpu" || OSInfo.String() != "os_info" {
		t.Fatalf("unexpected family names: %s %s", CPU, OSInfo)
	}
	if Family(-1).Valid() || Family(Count).Valid() {
		t.Fatalf("out-of-range families reported valid")
	}
	if Family(Count).String() != "unknown" {
		t.Fatalf("expected unknown for out-of-range family")
	}
}
