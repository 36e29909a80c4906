package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brickyield/brickyield-backend/internal/distribution"
	"github.com/brickyield/brickyield-backend/internal/properties"
	"github.com/brickyield/brickyield-backend/internal/registry"
	"github.com/brickyield/brickyield-backend/internal/roles"
	"github.com/brickyield/brickyield-backend/internal/vault"
	"github.com/brickyield/brickyield-backend/pkg/config"
	dbpkg "github.com/brickyield/brickyield-backend/pkg/db"
	"github.com/brickyield/brickyield-backend/pkg/db/models"
	"github.com/brickyield/brickyield-backend/pkg/outbox"
	"github.com/brickyield/brickyield-backend/pkg/types"
)

const (
	routerOwner    = types.Address("0x1111000000000000000000000000000000000001")
	routerTreasury = types.Address("0x2222000000000000000000000000000000000002")
	routerOperator = types.Address("0x3333000000000000000000000000000000000003")
	routerHolder   = types.Address("0xaaaa00000000000000000000000000000000000a")
)

type routerEnv struct {
	handler  http.Handler
	registry *registry.Fake
	vault    *vault.Fake
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()

	dsn := "file:router_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Property{},
		&models.DistributionRound{},
		&models.ShareSnapshot{},
		&models.Claim{},
		&models.RoleChange{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	client := dbpkg.NewWithConn(conn)
	publisher := outbox.NewService(outbox.NewRepository(conn), nil)

	fakeRegistry := registry.NewFake()
	fakeVault := vault.NewFake()

	distRepo := distribution.NewRepository(conn)
	propsRepo := properties.NewRepository(conn)

	roleService, err := roles.NewService(propsRepo, roles.NewRepository(conn), distRepo, client, publisher, nil)
	if err != nil {
		t.Fatalf("role service: %v", err)
	}

	distCfg := config.DistributionConfig{ClaimGracePeriod: time.Hour, DustPolicy: "carry_forward"}
	distService, err := distribution.NewService(propsRepo, distRepo, client, publisher, fakeVault, fakeRegistry, nil, distCfg, nil)
	if err != nil {
		t.Fatalf("distribution service: %v", err)
	}

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Distribution = distCfg

	handler := NewRouter(cfg, nil, client, nil, nil, roleService, distService)
	return &routerEnv{handler: handler, registry: fakeRegistry, vault: fakeVault}
}

func (e *routerEnv) do(t *testing.T, method, path string, caller types.Address, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != "" {
		req.Header.Set("X-Caller-Address", string(caller))
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func registerProperty(t *testing.T, env *routerEnv) {
	t.Helper()
	body := `{"external_id":42,"owner":"` + string(routerOwner) + `","treasury":"` + string(routerTreasury) + `","operator":"` + string(routerOperator) + `"}`
	rec := env.do(t, http.MethodPost, "/api/v1/properties", routerOwner, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register property: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthLive(t *testing.T) {
	env := newRouterEnv(t)
	rec := env.do(t, http.MethodGet, "/health/live", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestAPIRequiresCallerHeader(t *testing.T) {
	env := newRouterEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/properties/42", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestFullRoundLifecycleOverHTTP(t *testing.T) {
	env := newRouterEnv(t)
	registerProperty(t, env)

	env.registry.SetBalance(42, routerHolder, 600)
	env.registry.SetBalance(42, routerTreasury, 400)

	rec := env.do(t, http.MethodPost, "/api/v1/properties/42/deposits", routerTreasury, `{"amount_units":1000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("deposit: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/properties/42/finalize", routerOperator, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/properties/42/rounds/0/entitlement", routerHolder, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("entitlement: %d %s", rec.Code, rec.Body.String())
	}
	var entitlement struct {
		Data struct {
			EntitlementUnits int64 `json:"entitlement_units"`
			Claimed          bool  `json:"claimed"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &entitlement); err != nil {
		t.Fatalf("decode entitlement: %v", err)
	}
	if entitlement.Data.EntitlementUnits != 600 || entitlement.Data.Claimed {
		t.Fatalf("unexpected entitlement %+v", entitlement.Data)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/properties/42/rounds/0/claims", routerHolder, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("claim: %d %s", rec.Code, rec.Body.String())
	}
	var claim struct {
		Data struct {
			AmountUnits int64 `json:"amount_units"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &claim); err != nil {
		t.Fatalf("decode claim: %v", err)
	}
	if claim.Data.AmountUnits != 600 {
		t.Fatalf("expected payout 600 got %d", claim.Data.AmountUnits)
	}

	// second claim by the same holder must conflict
	rec = env.do(t, http.MethodPost, "/api/v1/properties/42/rounds/0/claims", routerHolder, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("double claim: expected 409 got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/properties/42/rounds/0", routerHolder, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get round: %d %s", rec.Code, rec.Body.String())
	}
	var round struct {
		Data struct {
			State        string `json:"state"`
			ClaimedUnits *int64 `json:"claimed_units"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &round); err != nil {
		t.Fatalf("decode round: %v", err)
	}
	if round.Data.State != "finalized" {
		t.Fatalf("expected finalized round got %s", round.Data.State)
	}
	if round.Data.ClaimedUnits == nil || *round.Data.ClaimedUnits != 600 {
		t.Fatalf("expected claimed units 600 got %+v", round.Data.ClaimedUnits)
	}
}

func TestDepositRejectedForStranger(t *testing.T) {
	env := newRouterEnv(t)
	registerProperty(t, env)

	rec := env.do(t, http.MethodPost, "/api/v1/properties/42/deposits", routerHolder, `{"amount_units":1000}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d: %s", rec.Code, rec.Body.String())
	}
}
