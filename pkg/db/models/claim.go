package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brickyield/brickyield-backend/pkg/types"
)

// Claim marks a holder's payout from one finalized round. Row existence is the
// claimed flag; rows are never updated or deleted.
type Claim struct {
	ID            uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	RoundID       uuid.UUID     `gorm:"column:round_id;type:uuid;not null;uniqueIndex:ux_claims_round_holder"`
	HolderAddress types.Address `gorm:"column:holder_address;type:text;not null;uniqueIndex:ux_claims_round_holder"`
	AmountUnits   int64         `gorm:"column:amount_units;not null"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime"`
}
