package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/ldraney/pal-e-billing/api/responses"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
	"github.com/ldraney/pal-e-billing/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

const readinessTimeout = 2 * time.Second

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteOK(w, map[string]string{"status": "ok"})
	}
}

// HealthReady pings the database and, when configured, Redis. A nil redis pinger is skipped.
func HealthReady(logg *logger.Logger, db pinger, redis pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if db == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "database not configured"))
			return
		}
		if err := db.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable").
				WithDetails(map[string]any{"dependency": "database"}))
			return
		}
		if redis != nil {
			if err := redis.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable").
					WithDetails(map[string]any{"dependency": "redis"}))
				return
			}
		}
		responses.WriteOK(w, map[string]string{"status": "ready"})
	}
}
