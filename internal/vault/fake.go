package vault

import (
	"context"
	"sync"

	"github.com/brickyield/brickyield-backend/pkg/types"
)

// Transfer records one movement through the fake vault.
type Transfer struct {
	Direction   string // "in" or "out"
	Address     types.Address
	AmountUnits int64
}

// Fake is an in-memory vault for tests. It records every transfer and can be
// told to fail transfer-outs to exercise rollback paths.
type Fake struct {
	mu           sync.Mutex
	transfers    []Transfer
	transferErr  error
	failOutAfter int
	outCalls     int
}

// NewFake builds an empty fake vault.
func NewFake() *Fake {
	return &Fake{failOutAfter: -1}
}

// FailWith makes every subsequent transfer return err.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transferErr = err
}

// FailOutAfter makes TransferOut fail once n calls have succeeded.
func (f *Fake) FailOutAfter(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOutAfter = n
	f.transferErr = err
}

// Transfers returns a copy of every recorded transfer.
func (f *Fake) Transfers() []Transfer {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make([]Transfer, len(f.transfers))
	copy(copied, f.transfers)
	return copied
}

// TransferIn implements StableVault.
func (f *Fake) TransferIn(ctx context.Context, from types.Address, amountUnits int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferErr != nil && f.failOutAfter < 0 {
		return f.transferErr
	}
	f.transfers = append(f.transfers, Transfer{Direction: "in", Address: from, AmountUnits: amountUnits})
	return nil
}

// TransferOut implements StableVault.
func (f *Fake) TransferOut(ctx context.Context, to types.Address, amountUnits int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferErr != nil {
		if f.failOutAfter < 0 || f.outCalls >= f.failOutAfter {
			return f.transferErr
		}
	}
	f.outCalls++
	f.transfers = append(f.transfers, Transfer{Direction: "out", Address: to, AmountUnits: amountUnits})
	return nil
}

var _ StableVault = (*Fake)(nil)
