package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brickyield/brickyield-backend/pkg/enums"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

// RoleChange is the audit trail for role reassignments on a property ledger.
type RoleChange struct {
	ID         uuid.UUID     `gorm:"column:id;type:uuid;primaryKey"`
	PropertyID uuid.UUID     `gorm:"column:property_id;type:uuid;not null;index:ix_role_changes_property"`
	Role       enums.Role    `gorm:"column:role;type:role_enum;not null"`
	OldAddress types.Address `gorm:"column:old_address;type:text;not null"`
	NewAddress types.Address `gorm:"column:new_address;type:text;not null"`
	CreatedAt  time.Time     `gorm:"column:created_at;autoCreateTime"`
}
