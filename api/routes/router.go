package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brickyield/brickyield-backend/api/controllers"
	"github.com/brickyield/brickyield-backend/api/middleware"
	"github.com/brickyield/brickyield-backend/internal/distribution"
	"github.com/brickyield/brickyield-backend/internal/roles"
	"github.com/brickyield/brickyield-backend/pkg/config"
	"github.com/brickyield/brickyield-backend/pkg/db"
	"github.com/brickyield/brickyield-backend/pkg/logger"
	"github.com/brickyield/brickyield-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	roleService roles.Service,
	distributionService distribution.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// A nil *redis.Client must stay nil as an interface value.
	var redisPinger redis.Pinger
	var idemStore redis.IdempotencyStore
	if redisClient != nil {
		redisPinger = redisClient
		idemStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Caller(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.CallerPing())

		r.Post("/properties", controllers.RegisterProperty(roleService, logg))

		r.Route("/properties/{externalID}", func(r chi.Router) {
			r.Get("/", controllers.GetProperty(roleService, logg))
			r.Post("/treasury", controllers.SetTreasury(roleService, logg))
			r.Post("/operator", controllers.SetOperator(roleService, logg))
			r.Post("/owner/propose", controllers.ProposeOwner(roleService, logg))
			r.Post("/owner/accept", controllers.AcceptOwnership(roleService, logg))
			r.Get("/role-changes", controllers.ListRoleChanges(roleService, logg))

			r.Post("/deposits", controllers.Deposit(distributionService, logg))
			r.Post("/finalize", controllers.FinalizeRound(distributionService, logg))

			r.Route("/rounds", func(r chi.Router) {
				r.Get("/", controllers.ListRounds(distributionService, logg))
				r.Route("/{sequence}", func(r chi.Router) {
					r.Get("/", controllers.GetRound(distributionService, logg))
					r.Post("/claims", controllers.Claim(distributionService, logg))
					r.Get("/claims", controllers.ListClaims(distributionService, logg))
					r.Post("/close", controllers.CloseRound(distributionService, logg))
					r.Get("/entitlement", controllers.GetEntitlement(distributionService, logg))
				})
			})
		})
	})

	return r
}
