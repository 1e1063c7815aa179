package telemetry

import (
	"context"

	"hostmon/internal/models"
)

// Provider refreshes one metric family of a snapshot in place.
//
// Implementations must only touch the fields belonging to family and should
// leave them empty rather than stale when collection fails. Slices in snap may
// share backing arrays with the live snapshot: assign new slices, never write
// through the old ones. The returned error is informational; callers log it
// and serve whatever the snapshot holds.
type Provider interface {
	Refresh(ctx context.Context, family Family, snap *models.HostSnapshot) error
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, family Family, snap *models.HostSnapshot) error

func (f ProviderFunc) Refresh(ctx context.Context, family Family, snap *models.HostSnapshot) error {
	return f(ctx, family, snap)
}
