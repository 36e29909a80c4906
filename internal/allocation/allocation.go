package allocation

import (
	"errors"
	"fmt"

	"github.com/brickyield/brickyield-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// ErrZeroTotalShares is returned when an allocation is attempted against an
// empty share registry snapshot.
var ErrZeroTotalShares = errors.New("total shares is zero")

// HolderShare is one holder's balance inside a snapshot.
type HolderShare struct {
	Holder  types.Address
	Balance int64
}

// Result is the outcome of allocating one round's pool across a snapshot.
type Result struct {
	// Entitlements maps each holder to floor(deposited * balance / totalShares).
	Entitlements map[types.Address]int64
	// RemainderUnits is deposited minus the sum of all entitlements.
	RemainderUnits int64
}

// Entitlement computes one holder's share of a deposited pool using exact
// integer arithmetic. decimal.QuoRem with zero precision is floor division for
// non-negative operands and cannot overflow on the intermediate product.
func Entitlement(depositedUnits, shareBalance, totalShares int64) (int64, error) {
	if totalShares == 0 {
		return 0, ErrZeroTotalShares
	}
	if depositedUnits < 0 || shareBalance < 0 || totalShares < 0 {
		return 0, fmt.Errorf("negative input: deposited=%d balance=%d total=%d",
			depositedUnits, shareBalance, totalShares)
	}

	numerator := decimal.NewFromInt(depositedUnits).Mul(decimal.NewFromInt(shareBalance))
	quotient, _ := numerator.QuoRem(decimal.NewFromInt(totalShares), 0)
	return quotient.IntPart(), nil
}

// Table allocates depositedUnits across the snapshot. The sum of all
// entitlements plus the remainder always equals depositedUnits; iteration
// order never affects any individual amount.
func Table(depositedUnits int64, snapshot []HolderShare, totalShares int64) (Result, error) {
	if totalShares == 0 {
		return Result{}, ErrZeroTotalShares
	}

	var balanceSum int64
	for _, share := range snapshot {
		balanceSum += share.Balance
	}
	if balanceSum != totalShares {
		return Result{}, fmt.Errorf("snapshot balances sum to %d, registry reports %d total shares",
			balanceSum, totalShares)
	}

	entitlements := make(map[types.Address]int64, len(snapshot))
	var allocated int64
	for _, share := range snapshot {
		amount, err := Entitlement(depositedUnits, share.Balance, totalShares)
		if err != nil {
			return Result{}, err
		}
		if _, dup := entitlements[share.Holder]; dup {
			return Result{}, fmt.Errorf("duplicate holder %s in snapshot", share.Holder)
		}
		entitlements[share.Holder] = amount
		allocated += amount
	}

	return Result{
		Entitlements:   entitlements,
		RemainderUnits: depositedUnits - allocated,
	}, nil
}
