package distribution

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brickyield/brickyield-backend/pkg/db/models"
	"github.com/brickyield/brickyield-backend/pkg/pagination"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

// Repository manages persistence for rounds, snapshots, and claims.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRound(ctx context.Context, round *models.DistributionRound) error
	CreateRoundTx(ctx context.Context, tx *gorm.DB, round *models.DistributionRound) error
	FindRound(ctx context.Context, propertyID uuid.UUID, sequence int64) (*models.DistributionRound, error)
	SaveRound(ctx context.Context, round *models.DistributionRound) error
	ListRounds(ctx context.Context, propertyID uuid.UUID, limit int) ([]models.DistributionRound, error)
	CreateSnapshots(ctx context.Context, snapshots []models.ShareSnapshot) error
	ListSnapshots(ctx context.Context, roundID uuid.UUID) ([]models.ShareSnapshot, error)
	CreateClaim(ctx context.Context, claim *models.Claim) error
	FindClaim(ctx context.Context, roundID uuid.UUID, holder types.Address) (*models.Claim, error)
	ListClaims(ctx context.Context, roundID uuid.UUID) ([]models.Claim, error)
	ListClaimsPage(ctx context.Context, roundID uuid.UUID, params pagination.Params) ([]models.Claim, string, error)
	SumClaimedUnits(ctx context.Context, roundID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a distribution repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRound(ctx context.Context, round *models.DistributionRound) error {
	if round.ID == uuid.Nil {
		round.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(round).Error
}

func (r *repository) CreateRoundTx(ctx context.Context, tx *gorm.DB, round *models.DistributionRound) error {
	return r.WithTx(tx).CreateRound(ctx, round)
}

func (r *repository) FindRound(ctx context.Context, propertyID uuid.UUID, sequence int64) (*models.DistributionRound, error) {
	var round models.DistributionRound
	if err := r.db.WithContext(ctx).
		Where("property_id = ? AND sequence = ?", propertyID, sequence).
		First(&round).Error; err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *repository) SaveRound(ctx context.Context, round *models.DistributionRound) error {
	return r.db.WithContext(ctx).Save(round).Error
}

func (r *repository) ListRounds(ctx context.Context, propertyID uuid.UUID, limit int) ([]models.DistributionRound, error) {
	if limit <= 0 {
		limit = 50
	}
	var rounds []models.DistributionRound
	if err := r.db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("sequence DESC").
		Limit(limit).
		Find(&rounds).Error; err != nil {
		return nil, err
	}
	return rounds, nil
}

func (r *repository) CreateSnapshots(ctx context.Context, snapshots []models.ShareSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	for i := range snapshots {
		if snapshots[i].ID == uuid.Nil {
			snapshots[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&snapshots).Error
}

func (r *repository) ListSnapshots(ctx context.Context, roundID uuid.UUID) ([]models.ShareSnapshot, error) {
	var snapshots []models.ShareSnapshot
	if err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("holder_address ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *repository) CreateClaim(ctx context.Context, claim *models.Claim) error {
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(claim).Error
}

func (r *repository) FindClaim(ctx context.Context, roundID uuid.UUID, holder types.Address) (*models.Claim, error) {
	var claim models.Claim
	if err := r.db.WithContext(ctx).
		Where("round_id = ? AND holder_address = ?", roundID, holder).
		First(&claim).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *repository) ListClaims(ctx context.Context, roundID uuid.UUID) ([]models.Claim, error) {
	var claims []models.Claim
	if err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("created_at ASC").
		Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

// ListClaimsPage returns one cursor page of claims ordered by claim time.
func (r *repository) ListClaimsPage(ctx context.Context, roundID uuid.UUID, params pagination.Params) ([]models.Claim, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("created_at ASC, id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var claims []models.Claim
	if err := query.Find(&claims).Error; err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(claims) > limit {
		claims = claims[:limit]
		last := claims[len(claims)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return claims, next, nil
}

func (r *repository) SumClaimedUnits(ctx context.Context, roundID uuid.UUID) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("round_id = ?", roundID).
		Select("COALESCE(SUM(amount_units), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
