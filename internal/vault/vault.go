// Package vault adapts the external stable asset custody service. The ledger
// never mints or burns the settlement currency; it only moves custody through
// this interface.
package vault

import (
	"context"

	"github.com/brickyield/brickyield-backend/pkg/types"
)

// StableVault moves settlement currency in and out of ledger custody. Both
// operations either fully settle or fail with no partial effect.
type StableVault interface {
	TransferIn(ctx context.Context, from types.Address, amountUnits int64) error
	TransferOut(ctx context.Context, to types.Address, amountUnits int64) error
}
