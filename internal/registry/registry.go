// Package registry adapts the external share registry service. The ledger
// only ever reads from it: one consistent snapshot of holder balances per
// finalization.
package registry

import (
	"context"

	"github.com/brickyield/brickyield-backend/internal/allocation"
)

// SnapshotResult is one consistent read of the share register.
type SnapshotResult struct {
	Holders     []allocation.HolderShare
	TotalShares int64
}

// ShareRegistry exposes the read-only share register surface the ledger
// consumes at finalization.
type ShareRegistry interface {
	// Snapshot returns every holder's balance and the total shares
	// outstanding for the property, as of a single point in time.
	Snapshot(ctx context.Context, propertyExternalID int64) (SnapshotResult, error)
}
