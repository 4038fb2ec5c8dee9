package controllers

import (
	"context"
	"net/http"

	"github.com/emarket-np/storefront/api/responses"
	"github.com/emarket-np/storefront/pkg/config"
	"github.com/emarket-np/storefront/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Healthz reports process liveness and dependency reachability.
func Healthz(cfg *config.Config, logg *logger.Logger, db, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"app": "ok"}
		healthy := true

		if db != nil {
			checks["db"] = "ok"
			if err := db.Ping(r.Context()); err != nil {
				checks["db"] = err.Error()
				healthy = false
			}
		}
		if cache != nil {
			checks["redis"] = "ok"
			if err := cache.Ping(r.Context()); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccessStatus(w, status, checks)
	}
}
