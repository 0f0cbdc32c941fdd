package controllers

import (
	"context"
	"net/http"

	"github.com/ldraney/pal-e-billing/api/responses"
	"github.com/ldraney/pal-e-billing/api/validators"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
	"github.com/ldraney/pal-e-billing/pkg/logger"
)

type portalService interface {
	SessionURL(ctx context.Context, userID string) (string, error)
}

// BillingPortal redirects the caller to a provider-hosted billing portal for the user.
func BillingPortal(svc portalService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "portal service unavailable"))
			return
		}

		userID, err := validators.UserIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		url, err := svc.SessionURL(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
	}
}
