package roles

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brickyield/brickyield-backend/internal/properties"
	dbpkg "github.com/brickyield/brickyield-backend/pkg/db"
	"github.com/brickyield/brickyield-backend/pkg/db/models"
	"github.com/brickyield/brickyield-backend/pkg/enums"
	pkgerrors "github.com/brickyield/brickyield-backend/pkg/errors"
	"github.com/brickyield/brickyield-backend/pkg/logger"
	"github.com/brickyield/brickyield-backend/pkg/outbox"
	"github.com/brickyield/brickyield-backend/pkg/outbox/payloads"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// roundSeeder opens the first distribution round when a property registers.
type roundSeeder interface {
	CreateRoundTx(ctx context.Context, tx *gorm.DB, round *models.DistributionRound) error
}

// Service manages property registration and role custody.
type Service interface {
	RegisterProperty(ctx context.Context, input RegisterPropertyInput) (*models.Property, error)
	SetTreasury(ctx context.Context, externalID int64, caller, next types.Address) (*models.Property, error)
	SetOperator(ctx context.Context, externalID int64, caller, next types.Address) (*models.Property, error)
	ProposeOwner(ctx context.Context, externalID int64, caller, next types.Address) (*models.Property, error)
	AcceptOwnership(ctx context.Context, externalID int64, caller types.Address) (*models.Property, error)
	GetProperty(ctx context.Context, externalID int64) (*models.Property, error)
	ListRoleChanges(ctx context.Context, externalID int64) ([]models.RoleChange, error)
}

type service struct {
	props  properties.Repository
	repo   Repository
	rounds roundSeeder
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// RegisterPropertyInput carries the initial role assignments for a new ledger.
type RegisterPropertyInput struct {
	ExternalID int64
	Owner      types.Address
	Treasury   types.Address
	Operator   types.Address
}

// NewService wires a role service with its persistence and outbox dependencies.
func NewService(props properties.Repository, repo Repository, rounds roundSeeder, tx txRunner, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if props == nil {
		return nil, fmt.Errorf("properties repository required")
	}
	if repo == nil {
		return nil, fmt.Errorf("role change repository required")
	}
	if rounds == nil {
		return nil, fmt.Errorf("round seeder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		props:  props,
		repo:   repo,
		rounds: rounds,
		tx:     tx,
		outbox: publisher,
		logg:   logg,
	}, nil
}

func (s *service) RegisterProperty(ctx context.Context, input RegisterPropertyInput) (*models.Property, error) {
	if input.ExternalID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external id must be positive")
	}
	for name, addr := range map[string]types.Address{
		"owner":    input.Owner,
		"treasury": input.Treasury,
		"operator": input.Operator,
	} {
		if !addr.IsValid() {
			return nil, pkgerrors.NewReason(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAddress,
				fmt.Sprintf("invalid %s address %q", name, addr))
		}
	}

	property := &models.Property{
		ExternalID:      input.ExternalID,
		OwnerAddress:    input.Owner,
		TreasuryAddress: input.Treasury,
		OperatorAddress: input.Operator,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.props.WithTx(tx).Create(ctx, property); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_properties_external_id") {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("property %d is already registered", input.ExternalID))
			}
			return err
		}

		round := &models.DistributionRound{
			ID:         uuid.New(),
			PropertyID: property.ID,
			Sequence:   0,
			State:      enums.RoundStateEmpty,
		}
		if err := s.rounds.CreateRoundTx(ctx, tx, round); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPropertyRegistered,
			AggregateType: enums.AggregateProperty,
			AggregateID:   property.ID,
			Actor:         &outbox.ActorRef{Caller: input.Owner, Role: enums.RoleOwner.String()},
			Data: payloads.PropertyRegisteredEvent{
				PropertyExternalID: property.ExternalID,
				Owner:              property.OwnerAddress,
				Treasury:           property.TreasuryAddress,
				Operator:           property.OperatorAddress,
				RegisteredAt:       time.Now().UTC(),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithProperty(ctx, property.ExternalID)
		s.logg.Info(logCtx, "property registered")
	}
	return property, nil
}

func (s *service) SetTreasury(ctx context.Context, externalID int64, caller, next types.Address) (*models.Property, error) {
	return s.reassign(ctx, externalID, caller, next, enums.RoleTreasury)
}

func (s *service) SetOperator(ctx context.Context, externalID int64, caller, next types.Address) (*models.Property, error) {
	return s.reassign(ctx, externalID, caller, next, enums.RoleOperator)
}

// reassign swaps the treasury or operator address in a single step. Owner
// changes go through the two phase propose/accept flow instead.
func (s *service) reassign(ctx context.Context, externalID int64, caller, next types.Address, role enums.Role) (*models.Property, error) {
	if !next.IsValid() {
		return nil, pkgerrors.NewReason(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAddress,
			fmt.Sprintf("invalid %s address %q", role, next))
	}

	var property *models.Property
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		props := s.props.WithTx(tx)
		found, err := findPropertyForUpdate(ctx, props, externalID)
		if err != nil {
			return err
		}
		if err := Authorize(found, caller, enums.RoleOwner); err != nil {
			return err
		}

		previous := HolderOf(found, role)
		switch role {
		case enums.RoleTreasury:
			found.TreasuryAddress = next
		case enums.RoleOperator:
			found.OperatorAddress = next
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("role %q cannot be reassigned directly", role))
		}
		if err := props.Save(ctx, found); err != nil {
			return err
		}

		if err := s.recordChange(ctx, tx, found, role, previous, next, caller); err != nil {
			return err
		}
		property = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return property, nil
}

func (s *service) ProposeOwner(ctx context.Context, externalID int64, caller, next types.Address) (*models.Property, error) {
	if !next.IsValid() {
		return nil, pkgerrors.NewReason(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAddress,
			fmt.Sprintf("invalid owner address %q", next))
	}

	var property *models.Property
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		props := s.props.WithTx(tx)
		found, err := findPropertyForUpdate(ctx, props, externalID)
		if err != nil {
			return err
		}
		if err := Authorize(found, caller, enums.RoleOwner); err != nil {
			return err
		}
		found.PendingOwnerAddress = &next
		if err := props.Save(ctx, found); err != nil {
			return err
		}
		property = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return property, nil
}

func (s *service) AcceptOwnership(ctx context.Context, externalID int64, caller types.Address) (*models.Property, error) {
	var property *models.Property
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		props := s.props.WithTx(tx)
		found, err := findPropertyForUpdate(ctx, props, externalID)
		if err != nil {
			return err
		}
		if found.PendingOwnerAddress == nil || *found.PendingOwnerAddress != caller {
			return pkgerrors.NewReason(pkgerrors.CodeForbidden, pkgerrors.ReasonUnauthorizedRole,
				"caller is not the pending owner")
		}

		previous := found.OwnerAddress
		found.OwnerAddress = caller
		found.PendingOwnerAddress = nil
		if err := props.Save(ctx, found); err != nil {
			return err
		}

		if err := s.recordChange(ctx, tx, found, enums.RoleOwner, previous, caller, caller); err != nil {
			return err
		}
		property = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return property, nil
}

func (s *service) GetProperty(ctx context.Context, externalID int64) (*models.Property, error) {
	return findProperty(ctx, s.props, externalID)
}

func (s *service) ListRoleChanges(ctx context.Context, externalID int64) ([]models.RoleChange, error) {
	property, err := findProperty(ctx, s.props, externalID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListChanges(ctx, property.ID)
}

func (s *service) recordChange(ctx context.Context, tx *gorm.DB, property *models.Property, role enums.Role, previous, next, caller types.Address) error {
	change := &models.RoleChange{
		PropertyID: property.ID,
		Role:       role,
		OldAddress: previous,
		NewAddress: next,
	}
	if err := s.repo.WithTx(tx).RecordChange(ctx, change); err != nil {
		return err
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventRoleChanged,
		AggregateType: enums.AggregateProperty,
		AggregateID:   property.ID,
		Actor:         &outbox.ActorRef{Caller: caller},
		Data: payloads.RoleChangedEvent{
			PropertyExternalID: property.ExternalID,
			Role:               role.String(),
			Previous:           previous,
			Current:            next,
			ChangedBy:          caller,
		},
		Version: 1,
	})
}

func findProperty(ctx context.Context, props properties.Repository, externalID int64) (*models.Property, error) {
	property, err := props.FindByExternalID(ctx, externalID)
	return mapLookup(property, err, externalID)
}

// findPropertyForUpdate locks the property row so concurrent role changes on
// the same ledger serialize instead of overwriting each other.
func findPropertyForUpdate(ctx context.Context, props properties.Repository, externalID int64) (*models.Property, error) {
	property, err := props.FindByExternalIDForUpdate(ctx, externalID)
	return mapLookup(property, err, externalID)
}

func mapLookup(property *models.Property, err error, externalID int64) (*models.Property, error) {
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.NewReason(pkgerrors.CodeNotFound, pkgerrors.ReasonPropertyNotFound,
				fmt.Sprintf("property %d not found", externalID))
		}
		return nil, err
	}
	return property, nil
}
