package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brickyield/brickyield-backend/pkg/types"
)

// Property is one distribution ledger instance scoped to a tokenized
// real-estate property. The three role addresses gate every privileged
// operation; the cumulative counters never decrease.
type Property struct {
	ID                    uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	ExternalID            int64          `gorm:"column:external_id;not null;uniqueIndex:ux_properties_external_id"`
	OwnerAddress          types.Address  `gorm:"column:owner_address;type:text;not null"`
	TreasuryAddress       types.Address  `gorm:"column:treasury_address;type:text;not null"`
	OperatorAddress       types.Address  `gorm:"column:operator_address;type:text;not null"`
	PendingOwnerAddress   *types.Address `gorm:"column:pending_owner_address;type:text"`
	CarriedRemainderUnits int64          `gorm:"column:carried_remainder_units;not null;default:0"`
	TotalDepositedUnits   int64          `gorm:"column:total_deposited_units;not null;default:0"`
	TotalPaidOutUnits     int64          `gorm:"column:total_paid_out_units;not null;default:0"`
	CurrentSequence       int64          `gorm:"column:current_sequence;not null;default:0"`
	CreatedAt             time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
