package payloads

import (
	"time"

	"github.com/brickyield/brickyield-backend/pkg/types"
)

// PropertyRegisteredEvent announces a newly registered property and its
// initial role assignments.
type PropertyRegisteredEvent struct {
	PropertyExternalID int64         `json:"propertyExternalId"`
	Owner              types.Address `json:"owner"`
	Treasury           types.Address `json:"treasury"`
	Operator           types.Address `json:"operator"`
	RegisteredAt       time.Time     `json:"registeredAt"`
}

// DepositedEvent records a rental income deposit into the open round.
type DepositedEvent struct {
	PropertyExternalID  int64         `json:"propertyExternalId"`
	Sequence            int64         `json:"sequence"`
	Depositor           types.Address `json:"depositor"`
	AmountUnits         int64         `json:"amountUnits"`
	RoundDepositedUnits int64         `json:"roundDepositedUnits"`
}

// RoundFinalizedEvent records that a round locked its snapshot and opened the
// next round.
type RoundFinalizedEvent struct {
	PropertyExternalID int64 `json:"propertyExternalId"`
	Sequence           int64 `json:"sequence"`
	DepositedUnits     int64 `json:"depositedUnits"`
	TotalShares        int64 `json:"totalShares"`
	RemainderUnits     int64 `json:"remainderUnits"`
	HolderCount        int   `json:"holderCount"`
}

// ClaimedEvent records a holder's payout from a finalized round.
type ClaimedEvent struct {
	PropertyExternalID int64         `json:"propertyExternalId"`
	Sequence           int64         `json:"sequence"`
	Holder             types.Address `json:"holder"`
	AmountUnits        int64         `json:"amountUnits"`
}

// RoundClosedEvent records the sweep of unclaimed funds back to treasury.
type RoundClosedEvent struct {
	PropertyExternalID int64         `json:"propertyExternalId"`
	Sequence           int64         `json:"sequence"`
	SweptUnits         int64         `json:"sweptUnits"`
	Treasury           types.Address `json:"treasury"`
}

// RoleChangedEvent records a custody role reassignment on a property.
type RoleChangedEvent struct {
	PropertyExternalID int64         `json:"propertyExternalId"`
	Role               string        `json:"role"`
	Previous           types.Address `json:"previous"`
	Current            types.Address `json:"current"`
	ChangedBy          types.Address `json:"changedBy"`
}
