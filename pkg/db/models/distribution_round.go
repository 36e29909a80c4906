package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brickyield/brickyield-backend/pkg/enums"
)

// DistributionRound is one funding-and-distribution cycle. TotalShares and
// RemainderUnits are written once at finalization and never change afterwards.
type DistributionRound struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	PropertyID     uuid.UUID        `gorm:"column:property_id;type:uuid;not null;uniqueIndex:ux_rounds_property_sequence"`
	Sequence       int64            `gorm:"column:sequence;not null;uniqueIndex:ux_rounds_property_sequence"`
	State          enums.RoundState `gorm:"column:state;type:round_state_enum;not null"`
	DepositedUnits int64            `gorm:"column:deposited_units;not null;default:0"`
	TotalShares    int64            `gorm:"column:total_shares;not null;default:0"`
	RemainderUnits int64            `gorm:"column:remainder_units;not null;default:0"`
	FinalizedAt    *time.Time       `gorm:"column:finalized_at"`
	ClosedAt       *time.Time       `gorm:"column:closed_at"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
