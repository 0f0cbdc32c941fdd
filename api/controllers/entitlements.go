package controllers

import (
	"net/http"

	"github.com/ldraney/pal-e-billing/api/responses"
	"github.com/ldraney/pal-e-billing/api/validators"
	"github.com/ldraney/pal-e-billing/internal/entitlements"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
	"github.com/ldraney/pal-e-billing/pkg/logger"
)

// SubscriberStatus returns the entitlement view for a user, including users never seen.
func SubscriberStatus(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlement service unavailable"))
			return
		}

		userID, err := validators.UserIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ent, err := svc.Status(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteOK(w, ent)
	}
}

func ActivateAncillary(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entitlement service unavailable"))
			return
		}

		userID, err := validators.UserIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithUserID(ctx, userID)
		}

		result, err := svc.ActivateAncillary(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(ctx, "ancillary feature activated")
		}
		responses.WriteOK(w, result)
	}
}
