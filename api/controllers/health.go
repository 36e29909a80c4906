package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/brickyield/brickyield-backend/api/responses"
	"github.com/brickyield/brickyield-backend/pkg/config"
	"github.com/brickyield/brickyield-backend/pkg/db"
	pkgerrors "github.com/brickyield/brickyield-backend/pkg/errors"
	"github.com/brickyield/brickyield-backend/pkg/logger"
	"github.com/brickyield/brickyield-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BrickYield-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the dependencies the API cannot serve without. A nil
// pinger is treated as not configured and skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BrickYield-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if dbP != nil {
			checks["database"] = pingStatus(dbP.Ping(ctx), &healthy)
		}
		if redisP != nil {
			checks["redis"] = pingStatus(redisP.Ping(ctx), &healthy)
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").
					WithDetails(checks))
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

func pingStatus(err error, healthy *bool) string {
	if err != nil {
		*healthy = false
		return "down"
	}
	return "up"
}
