package roles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brickyield/brickyield-backend/pkg/db/models"
)

// Repository manages the role change audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	RecordChange(ctx context.Context, change *models.RoleChange) error
	ListChanges(ctx context.Context, propertyID uuid.UUID) ([]models.RoleChange, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a role change repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) RecordChange(ctx context.Context, change *models.RoleChange) error {
	if change.ID == uuid.Nil {
		change.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(change).Error
}

func (r *repository) ListChanges(ctx context.Context, propertyID uuid.UUID) ([]models.RoleChange, error) {
	var changes []models.RoleChange
	if err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("created_at ASC").
		Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}
