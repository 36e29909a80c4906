// Package distribution implements the round lifecycle: deposits accumulate in
// the open round, finalization locks a snapshot and opens the next round, and
// holders claim their pro rata share until the round is closed.
package distribution

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brickyield/brickyield-backend/internal/allocation"
	"github.com/brickyield/brickyield-backend/internal/properties"
	"github.com/brickyield/brickyield-backend/internal/registry"
	"github.com/brickyield/brickyield-backend/internal/roles"
	"github.com/brickyield/brickyield-backend/internal/vault"
	"github.com/brickyield/brickyield-backend/pkg/config"
	dbpkg "github.com/brickyield/brickyield-backend/pkg/db"
	"github.com/brickyield/brickyield-backend/pkg/db/models"
	"github.com/brickyield/brickyield-backend/pkg/enums"
	pkgerrors "github.com/brickyield/brickyield-backend/pkg/errors"
	"github.com/brickyield/brickyield-backend/pkg/logger"
	"github.com/brickyield/brickyield-backend/pkg/metrics"
	"github.com/brickyield/brickyield-backend/pkg/outbox"
	"github.com/brickyield/brickyield-backend/pkg/outbox/payloads"
	"github.com/brickyield/brickyield-backend/pkg/pagination"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the distribution round operations.
type Service interface {
	Deposit(ctx context.Context, input DepositInput) (*models.DistributionRound, error)
	FinalizeRound(ctx context.Context, externalID int64, caller types.Address) (*models.DistributionRound, error)
	Claim(ctx context.Context, input ClaimInput) (*models.Claim, error)
	CloseRound(ctx context.Context, externalID int64, sequence int64, caller types.Address) (*models.DistributionRound, error)
	GetRound(ctx context.Context, externalID int64, sequence int64) (*RoundView, error)
	GetEntitlement(ctx context.Context, externalID int64, sequence int64, holder types.Address) (*EntitlementView, error)
	ListRounds(ctx context.Context, externalID int64, limit int) ([]models.DistributionRound, error)
	ListClaims(ctx context.Context, externalID int64, sequence int64, params pagination.Params) ([]models.Claim, string, error)
}

// DepositInput carries one rental income deposit into the open round.
type DepositInput struct {
	ExternalID  int64
	Caller      types.Address
	AmountUnits int64
}

// ClaimInput identifies the holder and the finalized round being claimed.
type ClaimInput struct {
	ExternalID int64
	Sequence   int64
	Caller     types.Address
}

// RoundView is a round enriched with claim progress for read endpoints.
type RoundView struct {
	Round        models.DistributionRound
	ClaimedUnits int64
	HolderCount  int
}

// EntitlementView reports what a holder can claim from a finalized round.
type EntitlementView struct {
	Holder           types.Address
	Sequence         int64
	ShareBalance     int64
	EntitlementUnits int64
	Claimed          bool
}

type service struct {
	props    properties.Repository
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	vault    vault.StableVault
	registry registry.ShareRegistry
	metrics  *metrics.DistributionMetrics
	cfg      config.DistributionConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the distribution service with its dependencies.
func NewService(
	props properties.Repository,
	repo Repository,
	tx txRunner,
	publisher outboxPublisher,
	stableVault vault.StableVault,
	shareRegistry registry.ShareRegistry,
	dist *metrics.DistributionMetrics,
	cfg config.DistributionConfig,
	logg *logger.Logger,
) (Service, error) {
	if props == nil {
		return nil, fmt.Errorf("properties repository required")
	}
	if repo == nil {
		return nil, fmt.Errorf("distribution repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if stableVault == nil {
		return nil, fmt.Errorf("stable vault required")
	}
	if shareRegistry == nil {
		return nil, fmt.Errorf("share registry required")
	}
	return &service{
		props:    props,
		repo:     repo,
		tx:       tx,
		outbox:   publisher,
		vault:    stableVault,
		registry: shareRegistry,
		metrics:  dist,
		cfg:      cfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Deposit(ctx context.Context, input DepositInput) (*models.DistributionRound, error) {
	if input.AmountUnits <= 0 {
		return nil, pkgerrors.NewReason(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAmount,
			fmt.Sprintf("deposit amount must be positive, got %d", input.AmountUnits))
	}

	var round *models.DistributionRound
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		props := s.props.WithTx(tx)
		repo := s.repo.WithTx(tx)

		property, err := s.findPropertyForUpdate(ctx, props, input.ExternalID)
		if err != nil {
			return err
		}
		if err := roles.Authorize(property, input.Caller, enums.RoleTreasury, enums.RoleOperator); err != nil {
			return err
		}

		current, err := repo.FindRound(ctx, property.ID, property.CurrentSequence)
		if err != nil {
			return err
		}
		if !current.State.IsOpen() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("round %d is %s and cannot accept deposits", current.Sequence, current.State))
		}

		// The transfer runs inside the transaction so a custody failure
		// rolls back the ledger update.
		if err := s.vault.TransferIn(ctx, input.Caller, input.AmountUnits); err != nil {
			return err
		}

		if current.State == enums.RoundStateEmpty &&
			property.CarriedRemainderUnits > 0 &&
			s.cfg.Policy() == enums.DustPolicyCarryForward {
			current.DepositedUnits += property.CarriedRemainderUnits
			property.CarriedRemainderUnits = 0
		}

		current.DepositedUnits += input.AmountUnits
		current.State = enums.RoundStateFunded
		property.TotalDepositedUnits += input.AmountUnits

		if err := repo.SaveRound(ctx, current); err != nil {
			return err
		}
		if err := props.Save(ctx, property); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDeposited,
			AggregateType: enums.AggregateRound,
			AggregateID:   current.ID,
			Actor:         &outbox.ActorRef{Caller: input.Caller},
			Data: payloads.DepositedEvent{
				PropertyExternalID:  property.ExternalID,
				Sequence:            current.Sequence,
				Depositor:           input.Caller,
				AmountUnits:         input.AmountUnits,
				RoundDepositedUnits: current.DepositedUnits,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		round = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveDeposit(propertyLabel(input.ExternalID), input.AmountUnits)
	if s.logg != nil {
		logCtx := s.logg.WithRound(s.logg.WithProperty(ctx, input.ExternalID), round.Sequence)
		s.logg.Info(logCtx, "deposit accepted")
	}
	return round, nil
}

func (s *service) FinalizeRound(ctx context.Context, externalID int64, caller types.Address) (*models.DistributionRound, error) {
	var finalized *models.DistributionRound
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		props := s.props.WithTx(tx)
		repo := s.repo.WithTx(tx)

		property, err := s.findPropertyForUpdate(ctx, props, externalID)
		if err != nil {
			return err
		}
		if err := roles.Authorize(property, caller, enums.RoleOperator); err != nil {
			return err
		}

		current, err := repo.FindRound(ctx, property.ID, property.CurrentSequence)
		if err != nil {
			return err
		}
		if current.State != enums.RoundStateFunded {
			return pkgerrors.NewReason(pkgerrors.CodeStateConflict, pkgerrors.ReasonRoundNotFunded,
				fmt.Sprintf("round %d is %s, only funded rounds can be finalized", current.Sequence, current.State))
		}

		snapshot, err := s.registry.Snapshot(ctx, externalID)
		if err != nil {
			return err
		}

		result, err := allocation.Table(current.DepositedUnits, snapshot.Holders, snapshot.TotalShares)
		if err != nil {
			if err == allocation.ErrZeroTotalShares {
				// The round stays funded; finalization can be retried once
				// shares exist.
				return pkgerrors.NewReason(pkgerrors.CodeStateConflict, pkgerrors.ReasonDivisionByZero,
					"share registry reports zero total shares")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "share registry snapshot is inconsistent")
		}

		rows := make([]models.ShareSnapshot, 0, len(snapshot.Holders))
		for _, holder := range snapshot.Holders {
			if holder.Balance <= 0 {
				continue
			}
			rows = append(rows, models.ShareSnapshot{
				RoundID:       current.ID,
				HolderAddress: holder.Holder,
				ShareBalance:  holder.Balance,
			})
		}
		if err := repo.CreateSnapshots(ctx, rows); err != nil {
			return err
		}

		finalizedAt := s.now().UTC()
		current.State = enums.RoundStateFinalized
		current.TotalShares = snapshot.TotalShares
		current.RemainderUnits = result.RemainderUnits
		current.FinalizedAt = &finalizedAt
		if err := repo.SaveRound(ctx, current); err != nil {
			return err
		}

		if s.cfg.Policy() == enums.DustPolicyCarryForward {
			property.CarriedRemainderUnits += result.RemainderUnits
		}
		property.CurrentSequence = current.Sequence + 1
		if err := props.Save(ctx, property); err != nil {
			return err
		}

		next := &models.DistributionRound{
			PropertyID: property.ID,
			Sequence:   property.CurrentSequence,
			State:      enums.RoundStateEmpty,
		}
		if err := repo.CreateRound(ctx, next); err != nil {
			return err
		}

		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRoundFinalized,
			AggregateType: enums.AggregateRound,
			AggregateID:   current.ID,
			Actor:         &outbox.ActorRef{Caller: caller, Role: enums.RoleOperator.String()},
			Data: payloads.RoundFinalizedEvent{
				PropertyExternalID: property.ExternalID,
				Sequence:           current.Sequence,
				DepositedUnits:     current.DepositedUnits,
				TotalShares:        current.TotalShares,
				RemainderUnits:     current.RemainderUnits,
				HolderCount:        len(rows),
			},
			Version: 1,
		}); err != nil {
			return err
		}

		finalized = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRoundFinalized(propertyLabel(externalID))
	if s.logg != nil {
		logCtx := s.logg.WithRound(s.logg.WithProperty(ctx, externalID), finalized.Sequence)
		s.logg.Info(logCtx, "round finalized")
	}
	return finalized, nil
}

func (s *service) Claim(ctx context.Context, input ClaimInput) (*models.Claim, error) {
	if !input.Caller.IsValid() {
		return nil, pkgerrors.NewReason(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAddress,
			fmt.Sprintf("invalid holder address %q", input.Caller))
	}

	started := s.now()
	var claim *models.Claim
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		props := s.props.WithTx(tx)
		repo := s.repo.WithTx(tx)

		property, err := s.findPropertyForUpdate(ctx, props, input.ExternalID)
		if err != nil {
			return err
		}
		round, err := s.findRound(ctx, repo, property.ID, input.Sequence)
		if err != nil {
			return err
		}
		if round.State != enums.RoundStateFinalized {
			return pkgerrors.NewReason(pkgerrors.CodeStateConflict, pkgerrors.ReasonRoundNotFinalized,
				fmt.Sprintf("round %d is %s, claims require a finalized round", round.Sequence, round.State))
		}

		amount, err := s.entitlementFor(ctx, repo, round, input.Caller)
		if err != nil {
			return err
		}
		if amount == 0 {
			return pkgerrors.NewReason(pkgerrors.CodeNotFound, pkgerrors.ReasonNoEntitlement,
				"holder has no entitlement in this round")
		}

		row := &models.Claim{
			RoundID:       round.ID,
			HolderAddress: input.Caller,
			AmountUnits:   amount,
		}
		// The claim row is inserted before the transfer. The unique index
		// rejects double claims and a transfer failure rolls the row back.
		if err := repo.CreateClaim(ctx, row); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_claims_round_holder") {
				return pkgerrors.NewReason(pkgerrors.CodeConflict, pkgerrors.ReasonAlreadyClaimed,
					"holder already claimed this round")
			}
			return err
		}

		if err := s.vault.TransferOut(ctx, input.Caller, amount); err != nil {
			return err
		}

		property.TotalPaidOutUnits += amount
		if err := props.Save(ctx, property); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventClaimed,
			AggregateType: enums.AggregateRound,
			AggregateID:   round.ID,
			Actor:         &outbox.ActorRef{Caller: input.Caller, Role: "holder"},
			Data: payloads.ClaimedEvent{
				PropertyExternalID: property.ExternalID,
				Sequence:           round.Sequence,
				Holder:             input.Caller,
				AmountUnits:        amount,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		claim = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveClaim(propertyLabel(input.ExternalID), claim.AmountUnits, s.now().Sub(started))
	if s.logg != nil {
		logCtx := s.logg.WithRound(s.logg.WithProperty(ctx, input.ExternalID), input.Sequence)
		s.logg.Info(logCtx, "claim paid")
	}
	return claim, nil
}

func (s *service) CloseRound(ctx context.Context, externalID int64, sequence int64, caller types.Address) (*models.DistributionRound, error) {
	var closed *models.DistributionRound
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		props := s.props.WithTx(tx)
		repo := s.repo.WithTx(tx)

		property, err := s.findPropertyForUpdate(ctx, props, externalID)
		if err != nil {
			return err
		}
		if err := roles.Authorize(property, caller, enums.RoleOwner); err != nil {
			return err
		}
		round, err := s.findRound(ctx, repo, property.ID, sequence)
		if err != nil {
			return err
		}
		if round.State != enums.RoundStateFinalized {
			return pkgerrors.NewReason(pkgerrors.CodeStateConflict, pkgerrors.ReasonRoundNotFinalized,
				fmt.Sprintf("round %d is %s, only finalized rounds can be closed", round.Sequence, round.State))
		}

		claimed, err := repo.SumClaimedUnits(ctx, round.ID)
		if err != nil {
			return err
		}
		distributable := round.DepositedUnits
		if s.cfg.Policy() == enums.DustPolicyCarryForward {
			// The remainder already moved to the property at finalization.
			distributable -= round.RemainderUnits
		}
		unclaimed := distributable - claimed

		// A fully claimed round closes early with nothing to sweep. Otherwise
		// claims stay open until the grace period lapses, after which the
		// leftover goes to the treasury and counts as paid out.
		if unclaimed > 0 {
			deadline := round.FinalizedAt.Add(s.cfg.ClaimGracePeriod)
			if s.now().Before(deadline) {
				return pkgerrors.NewReason(pkgerrors.CodeStateConflict, pkgerrors.ReasonGracePeriodActive,
					fmt.Sprintf("claims remain open until %s", deadline.UTC().Format(time.RFC3339)))
			}
			if err := s.vault.TransferOut(ctx, property.TreasuryAddress, unclaimed); err != nil {
				return err
			}
			property.TotalPaidOutUnits += unclaimed
			if err := props.Save(ctx, property); err != nil {
				return err
			}
		}

		closedAt := s.now().UTC()
		round.State = enums.RoundStateClosed
		round.ClosedAt = &closedAt
		if err := repo.SaveRound(ctx, round); err != nil {
			return err
		}

		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRoundClosed,
			AggregateType: enums.AggregateRound,
			AggregateID:   round.ID,
			Actor:         &outbox.ActorRef{Caller: caller, Role: enums.RoleOwner.String()},
			Data: payloads.RoundClosedEvent{
				PropertyExternalID: property.ExternalID,
				Sequence:           round.Sequence,
				SweptUnits:         unclaimed,
				Treasury:           property.TreasuryAddress,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		closed = round
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRoundClosed(propertyLabel(externalID))
	if s.logg != nil {
		logCtx := s.logg.WithRound(s.logg.WithProperty(ctx, externalID), sequence)
		s.logg.Info(logCtx, "round closed")
	}
	return closed, nil
}

func (s *service) GetRound(ctx context.Context, externalID int64, sequence int64) (*RoundView, error) {
	property, err := s.findProperty(ctx, s.props, externalID)
	if err != nil {
		return nil, err
	}
	round, err := s.findRound(ctx, s.repo, property.ID, sequence)
	if err != nil {
		return nil, err
	}
	claimed, err := s.repo.SumClaimedUnits(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.repo.ListSnapshots(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	return &RoundView{
		Round:        *round,
		ClaimedUnits: claimed,
		HolderCount:  len(snapshots),
	}, nil
}

func (s *service) GetEntitlement(ctx context.Context, externalID int64, sequence int64, holder types.Address) (*EntitlementView, error) {
	if !holder.IsValid() {
		return nil, pkgerrors.NewReason(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidAddress,
			fmt.Sprintf("invalid holder address %q", holder))
	}
	property, err := s.findProperty(ctx, s.props, externalID)
	if err != nil {
		return nil, err
	}
	round, err := s.findRound(ctx, s.repo, property.ID, sequence)
	if err != nil {
		return nil, err
	}
	if round.State != enums.RoundStateFinalized && round.State != enums.RoundStateClosed {
		return nil, pkgerrors.NewReason(pkgerrors.CodeStateConflict, pkgerrors.ReasonRoundNotFinalized,
			fmt.Sprintf("round %d is %s, entitlements exist after finalization", round.Sequence, round.State))
	}

	view := &EntitlementView{Holder: holder, Sequence: round.Sequence}
	snapshots, err := s.repo.ListSnapshots(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	for i := range snapshots {
		if snapshots[i].HolderAddress == holder {
			view.ShareBalance = snapshots[i].ShareBalance
			break
		}
	}
	if view.ShareBalance > 0 {
		amount, err := allocation.Entitlement(round.DepositedUnits, view.ShareBalance, round.TotalShares)
		if err != nil {
			return nil, err
		}
		view.EntitlementUnits = amount
	}

	if _, err := s.repo.FindClaim(ctx, round.ID, holder); err == nil {
		view.Claimed = true
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return view, nil
}

func (s *service) ListRounds(ctx context.Context, externalID int64, limit int) ([]models.DistributionRound, error) {
	property, err := s.findProperty(ctx, s.props, externalID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRounds(ctx, property.ID, limit)
}

func (s *service) ListClaims(ctx context.Context, externalID int64, sequence int64, params pagination.Params) ([]models.Claim, string, error) {
	property, err := s.findProperty(ctx, s.props, externalID)
	if err != nil {
		return nil, "", err
	}
	round, err := s.findRound(ctx, s.repo, property.ID, sequence)
	if err != nil {
		return nil, "", err
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid claims cursor")
	}
	return s.repo.ListClaimsPage(ctx, round.ID, params)
}

func (s *service) entitlementFor(ctx context.Context, repo Repository, round *models.DistributionRound, holder types.Address) (int64, error) {
	snapshots, err := repo.ListSnapshots(ctx, round.ID)
	if err != nil {
		return 0, err
	}
	for i := range snapshots {
		if snapshots[i].HolderAddress == holder {
			return allocation.Entitlement(round.DepositedUnits, snapshots[i].ShareBalance, round.TotalShares)
		}
	}
	return 0, nil
}

func (s *service) findProperty(ctx context.Context, props properties.Repository, externalID int64) (*models.Property, error) {
	property, err := props.FindByExternalID(ctx, externalID)
	return mapPropertyLookup(property, err, externalID)
}

// findPropertyForUpdate is the mutating-path variant: the row lock serializes
// concurrent deposits, claims and closes on the same property.
func (s *service) findPropertyForUpdate(ctx context.Context, props properties.Repository, externalID int64) (*models.Property, error) {
	property, err := props.FindByExternalIDForUpdate(ctx, externalID)
	return mapPropertyLookup(property, err, externalID)
}

func mapPropertyLookup(property *models.Property, err error, externalID int64) (*models.Property, error) {
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.NewReason(pkgerrors.CodeNotFound, pkgerrors.ReasonPropertyNotFound,
				fmt.Sprintf("property %d not found", externalID))
		}
		return nil, err
	}
	return property, nil
}

func (s *service) findRound(ctx context.Context, repo Repository, propertyID uuid.UUID, sequence int64) (*models.DistributionRound, error) {
	round, err := repo.FindRound(ctx, propertyID, sequence)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.NewReason(pkgerrors.CodeNotFound, pkgerrors.ReasonRoundNotFound,
				fmt.Sprintf("round %d not found", sequence))
		}
		return nil, err
	}
	return round, nil
}

func propertyLabel(externalID int64) string {
	return strconv.FormatInt(externalID, 10)
}
