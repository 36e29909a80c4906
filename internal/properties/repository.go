// Package properties persists the per-property ledger records that every
// distribution operation is scoped to.
package properties

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brickyield/brickyield-backend/pkg/db/models"
)

// Repository manages persistence for property ledgers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, property *models.Property) error
	FindByExternalID(ctx context.Context, externalID int64) (*models.Property, error)
	FindByExternalIDForUpdate(ctx context.Context, externalID int64) (*models.Property, error)
	Save(ctx context.Context, property *models.Property) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a property repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, property *models.Property) error {
	if property.ID == uuid.Nil {
		property.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(property).Error
}

func (r *repository) FindByExternalID(ctx context.Context, externalID int64) (*models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&property).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

// FindByExternalIDForUpdate loads the property with a row lock so concurrent
// mutations on the same ledger serialize on it. SQLite has no row locks; its
// single writer already serializes there, so the clause is postgres only.
func (r *repository) FindByExternalIDForUpdate(ctx context.Context, externalID int64) (*models.Property, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var property models.Property
	if err := q.
		Where("external_id = ?", externalID).
		First(&property).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *repository) Save(ctx context.Context, property *models.Property) error {
	return r.db.WithContext(ctx).Save(property).Error
}
