package allocation

import (
	"errors"
	"math"
	"testing"

	"github.com/brickyield/brickyield-backend/pkg/types"
)

const (
	holderA = types.Address("0xaaaa000000000000000000000000000000000001")
	holderB = types.Address("0xbbbb000000000000000000000000000000000002")
	holderC = types.Address("0xcccc000000000000000000000000000000000003")
)

func TestEntitlementTwoHolders(t *testing.T) {
	a, err := Entitlement(1000, 600, 1000)
	if err != nil {
		t.Fatalf("entitlement A: %v", err)
	}
	b, err := Entitlement(1000, 400, 1000)
	if err != nil {
		t.Fatalf("entitlement B: %v", err)
	}
	if a != 600 || b != 400 {
		t.Fatalf("expected 600/400, got %d/%d", a, b)
	}
}

func TestEntitlementZeroTotalShares(t *testing.T) {
	if _, err := Entitlement(1000, 10, 0); !errors.Is(err, ErrZeroTotalShares) {
		t.Fatalf("expected ErrZeroTotalShares, got %v", err)
	}
}

func TestEntitlementNegativeInput(t *testing.T) {
	if _, err := Entitlement(-1, 10, 100); err == nil {
		t.Fatal("expected error for negative deposit")
	}
}

func TestEntitlementNoOverflow(t *testing.T) {
	// deposited * balance overflows int64; decimal arithmetic must not.
	deposited := int64(math.MaxInt64 / 2)
	got, err := Entitlement(deposited, 2, 2)
	if err != nil {
		t.Fatalf("entitlement: %v", err)
	}
	if got != deposited {
		t.Fatalf("expected %d, got %d", deposited, got)
	}
}

func TestTableExactSplit(t *testing.T) {
	result, err := Table(1000, []HolderShare{
		{Holder: holderA, Balance: 600},
		{Holder: holderB, Balance: 400},
	}, 1000)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if result.Entitlements[holderA] != 600 || result.Entitlements[holderB] != 400 {
		t.Fatalf("unexpected entitlements: %v", result.Entitlements)
	}
	if result.RemainderUnits != 0 {
		t.Fatalf("expected zero remainder, got %d", result.RemainderUnits)
	}
}

func TestTableThreeHolders(t *testing.T) {
	result, err := Table(1000, []HolderShare{
		{Holder: holderA, Balance: 333},
		{Holder: holderB, Balance: 333},
		{Holder: holderC, Balance: 334},
	}, 1000)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if result.Entitlements[holderA] != 333 || result.Entitlements[holderB] != 333 || result.Entitlements[holderC] != 334 {
		t.Fatalf("unexpected entitlements: %v", result.Entitlements)
	}
	if result.RemainderUnits != 0 {
		t.Fatalf("expected zero remainder, got %d", result.RemainderUnits)
	}
}

func TestTableRemainder(t *testing.T) {
	result, err := Table(100, []HolderShare{
		{Holder: holderA, Balance: 1},
		{Holder: holderB, Balance: 1},
		{Holder: holderC, Balance: 1},
	}, 3)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	for holder, amount := range result.Entitlements {
		if amount != 33 {
			t.Fatalf("holder %s expected 33, got %d", holder, amount)
		}
	}
	if result.RemainderUnits != 1 {
		t.Fatalf("expected remainder 1, got %d", result.RemainderUnits)
	}
}

func TestTableReconciliation(t *testing.T) {
	cases := []struct {
		deposited int64
		balances  []int64
	}{
		{999, []int64{1, 2, 3, 4, 5}},
		{1, []int64{7, 11, 13}},
		{123456789, []int64{100, 200, 300, 400}},
		{0, []int64{5, 5}},
	}
	holders := []types.Address{holderA, holderB, holderC,
		types.Address("0xdddd000000000000000000000000000000000004"),
		types.Address("0xeeee000000000000000000000000000000000005"),
	}
	for _, tc := range cases {
		var snapshot []HolderShare
		var total int64
		for i, balance := range tc.balances {
			snapshot = append(snapshot, HolderShare{Holder: holders[i], Balance: balance})
			total += balance
		}
		result, err := Table(tc.deposited, snapshot, total)
		if err != nil {
			t.Fatalf("table(%d): %v", tc.deposited, err)
		}
		var sum int64
		for _, amount := range result.Entitlements {
			sum += amount
		}
		if sum+result.RemainderUnits != tc.deposited {
			t.Fatalf("reconciliation broken: %d + %d != %d", sum, result.RemainderUnits, tc.deposited)
		}
		if result.RemainderUnits < 0 {
			t.Fatalf("negative remainder %d", result.RemainderUnits)
		}
	}
}

func TestTableZeroTotalShares(t *testing.T) {
	if _, err := Table(1000, nil, 0); !errors.Is(err, ErrZeroTotalShares) {
		t.Fatalf("expected ErrZeroTotalShares, got %v", err)
	}
}

func TestTableInconsistentSnapshot(t *testing.T) {
	_, err := Table(1000, []HolderShare{{Holder: holderA, Balance: 600}}, 1000)
	if err == nil {
		t.Fatal("expected error when balances do not sum to total shares")
	}
}

func TestTableDuplicateHolder(t *testing.T) {
	_, err := Table(1000, []HolderShare{
		{Holder: holderA, Balance: 500},
		{Holder: holderA, Balance: 500},
	}, 1000)
	if err == nil {
		t.Fatal("expected error for duplicate holder")
	}
}
