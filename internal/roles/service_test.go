package roles

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brickyield/brickyield-backend/internal/properties"
	dbpkg "github.com/brickyield/brickyield-backend/pkg/db"
	"github.com/brickyield/brickyield-backend/pkg/db/models"
	"github.com/brickyield/brickyield-backend/pkg/enums"
	pkgerrors "github.com/brickyield/brickyield-backend/pkg/errors"
	"github.com/brickyield/brickyield-backend/pkg/outbox"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

const (
	ownerAddr    = types.Address("0x1111000000000000000000000000000000000001")
	treasuryAddr = types.Address("0x2222000000000000000000000000000000000002")
	operatorAddr = types.Address("0x3333000000000000000000000000000000000003")
	newAddr      = types.Address("0x4444000000000000000000000000000000000004")
	strangerAddr = types.Address("0x5555000000000000000000000000000000000005")
)

type fakeSeeder struct {
	rounds []models.DistributionRound
}

func (f *fakeSeeder) CreateRoundTx(ctx context.Context, tx *gorm.DB, round *models.DistributionRound) error {
	if round.ID == uuid.Nil {
		round.ID = uuid.New()
	}
	if err := tx.WithContext(ctx).Create(round).Error; err != nil {
		return err
	}
	f.rounds = append(f.rounds, *round)
	return nil
}

func newTestService(t *testing.T) (Service, *gorm.DB, *fakeSeeder) {
	t.Helper()
	dsn := "file:roles_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Property{},
		&models.DistributionRound{},
		&models.RoleChange{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	seeder := &fakeSeeder{}
	svc, err := NewService(
		properties.NewRepository(conn),
		NewRepository(conn),
		seeder,
		dbpkg.NewWithConn(conn),
		outbox.NewService(outbox.NewRepository(conn), nil),
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn, seeder
}

func register(t *testing.T, svc Service) *models.Property {
	t.Helper()
	property, err := svc.RegisterProperty(context.Background(), RegisterPropertyInput{
		ExternalID: 42,
		Owner:      ownerAddr,
		Treasury:   treasuryAddr,
		Operator:   operatorAddr,
	})
	if err != nil {
		t.Fatalf("register property: %v", err)
	}
	return property
}

func TestRegisterPropertyOpensRoundZero(t *testing.T) {
	svc, conn, seeder := newTestService(t)
	property := register(t, svc)

	if property.OwnerAddress != ownerAddr || property.CurrentSequence != 0 {
		t.Fatalf("unexpected property %+v", property)
	}
	if len(seeder.rounds) != 1 {
		t.Fatalf("expected one seeded round, got %d", len(seeder.rounds))
	}
	if seeder.rounds[0].Sequence != 0 || seeder.rounds[0].State != enums.RoundStateEmpty {
		t.Fatalf("round zero must open empty, got %+v", seeder.rounds[0])
	}

	var events int64
	if err := conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventPropertyRegistered).
		Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected registration event, got %d", events)
	}
}

func TestRegisterPropertyRejectsZeroAddress(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RegisterProperty(context.Background(), RegisterPropertyInput{
		ExternalID: 42,
		Owner:      ownerAddr,
		Treasury:   types.ZeroAddress,
		Operator:   operatorAddr,
	})
	if !pkgerrors.HasReason(err, pkgerrors.ReasonInvalidAddress) {
		t.Fatalf("expected invalid_address, got %v", err)
	}
}

func TestRegisterPropertyRejectsDuplicate(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc)

	_, err := svc.RegisterProperty(context.Background(), RegisterPropertyInput{
		ExternalID: 42,
		Owner:      ownerAddr,
		Treasury:   treasuryAddr,
		Operator:   operatorAddr,
	})
	if err == nil {
		t.Fatalf("expected conflict for duplicate external id")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}
}

func TestSetTreasuryRequiresOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc)

	_, err := svc.SetTreasury(context.Background(), 42, operatorAddr, newAddr)
	if !pkgerrors.HasReason(err, pkgerrors.ReasonUnauthorizedRole) {
		t.Fatalf("expected unauthorized_role, got %v", err)
	}
}

func TestSetTreasuryRecordsAudit(t *testing.T) {
	svc, conn, _ := newTestService(t)
	register(t, svc)

	property, err := svc.SetTreasury(context.Background(), 42, ownerAddr, newAddr)
	if err != nil {
		t.Fatalf("set treasury: %v", err)
	}
	if property.TreasuryAddress != newAddr {
		t.Fatalf("treasury not updated: %s", property.TreasuryAddress)
	}

	changes, err := svc.ListRoleChanges(context.Background(), 42)
	if err != nil {
		t.Fatalf("list changes: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	change := changes[0]
	if change.Role != enums.RoleTreasury || change.OldAddress != treasuryAddr || change.NewAddress != newAddr {
		t.Fatalf("unexpected change %+v", change)
	}

	var events int64
	if err := conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventRoleChanged).
		Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if events != 1 {
		t.Fatalf("expected role change event, got %d", events)
	}
}

func TestSetOperatorRejectsZeroAddress(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc)

	_, err := svc.SetOperator(context.Background(), 42, ownerAddr, types.ZeroAddress)
	if !pkgerrors.HasReason(err, pkgerrors.ReasonInvalidAddress) {
		t.Fatalf("expected invalid_address, got %v", err)
	}
}

func TestOwnershipTransferIsTwoPhase(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc)

	property, err := svc.ProposeOwner(context.Background(), 42, ownerAddr, newAddr)
	if err != nil {
		t.Fatalf("propose owner: %v", err)
	}
	if property.PendingOwnerAddress == nil || *property.PendingOwnerAddress != newAddr {
		t.Fatalf("pending owner not set: %+v", property.PendingOwnerAddress)
	}
	if property.OwnerAddress != ownerAddr {
		t.Fatalf("owner must not change before acceptance")
	}

	if _, err := svc.AcceptOwnership(context.Background(), 42, strangerAddr); !pkgerrors.HasReason(err, pkgerrors.ReasonUnauthorizedRole) {
		t.Fatalf("expected unauthorized_role for stranger, got %v", err)
	}

	property, err = svc.AcceptOwnership(context.Background(), 42, newAddr)
	if err != nil {
		t.Fatalf("accept ownership: %v", err)
	}
	if property.OwnerAddress != newAddr {
		t.Fatalf("owner not transferred: %s", property.OwnerAddress)
	}
	if property.PendingOwnerAddress != nil {
		t.Fatalf("pending owner must clear after acceptance")
	}

	changes, err := svc.ListRoleChanges(context.Background(), 42)
	if err != nil {
		t.Fatalf("list changes: %v", err)
	}
	if len(changes) != 1 || changes[0].Role != enums.RoleOwner {
		t.Fatalf("expected owner change audit, got %+v", changes)
	}
}

func TestProposeOwnerRequiresOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	register(t, svc)

	_, err := svc.ProposeOwner(context.Background(), 42, treasuryAddr, newAddr)
	if !pkgerrors.HasReason(err, pkgerrors.ReasonUnauthorizedRole) {
		t.Fatalf("expected unauthorized_role, got %v", err)
	}
}

func TestAuthorizeRejectsZeroCaller(t *testing.T) {
	property := &models.Property{
		OwnerAddress:    ownerAddr,
		TreasuryAddress: treasuryAddr,
		OperatorAddress: operatorAddr,
	}
	if err := Authorize(property, types.ZeroAddress, enums.RoleOwner); !pkgerrors.HasReason(err, pkgerrors.ReasonInvalidAddress) {
		t.Fatalf("expected invalid_address, got %v", err)
	}
	if err := Authorize(property, strangerAddr, enums.RoleOwner, enums.RoleOperator); !pkgerrors.HasReason(err, pkgerrors.ReasonUnauthorizedRole) {
		t.Fatalf("expected unauthorized_role, got %v", err)
	}
	if err := Authorize(property, operatorAddr, enums.RoleOwner, enums.RoleOperator); err != nil {
		t.Fatalf("operator must authorize: %v", err)
	}
}
