package registry

import (
	"context"
	"sync"

	"github.com/brickyield/brickyield-backend/internal/allocation"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

// Fake is an in-memory share registry for tests.
type Fake struct {
	mu       sync.Mutex
	balances map[int64]map[types.Address]int64
	err      error
}

// NewFake builds an empty fake registry.
func NewFake() *Fake {
	return &Fake{balances: make(map[int64]map[types.Address]int64)}
}

// SetBalance records a holder balance for a property.
func (f *Fake) SetBalance(propertyExternalID int64, holder types.Address, balance int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[propertyExternalID] == nil {
		f.balances[propertyExternalID] = make(map[types.Address]int64)
	}
	f.balances[propertyExternalID][holder] = balance
}

// FailWith makes every subsequent Snapshot call return err.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Snapshot implements ShareRegistry.
func (f *Fake) Snapshot(ctx context.Context, propertyExternalID int64) (SnapshotResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return SnapshotResult{}, f.err
	}
	result := SnapshotResult{}
	for holder, balance := range f.balances[propertyExternalID] {
		result.Holders = append(result.Holders, allocation.HolderShare{Holder: holder, Balance: balance})
		result.TotalShares += balance
	}
	return result, nil
}

var _ ShareRegistry = (*Fake)(nil)
