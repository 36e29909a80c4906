package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brickyield/brickyield-backend/pkg/types"
)

// ShareSnapshot is one holder's share balance captured at round finalization.
// Rows are append-only; entitlements are recomputed from them, never stored.
type ShareSnapshot struct {
	ID            uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	RoundID       uuid.UUID     `gorm:"column:round_id;type:uuid;not null;uniqueIndex:ux_snapshots_round_holder"`
	HolderAddress types.Address `gorm:"column:holder_address;type:text;not null;uniqueIndex:ux_snapshots_round_holder"`
	ShareBalance  int64         `gorm:"column:share_balance;not null"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime"`
}
