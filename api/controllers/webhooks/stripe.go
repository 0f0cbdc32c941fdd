package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ldraney/pal-e-billing/api/responses"
	stripewebhook "github.com/ldraney/pal-e-billing/internal/webhooks/stripe"
	pkgerrors "github.com/ldraney/pal-e-billing/pkg/errors"
	"github.com/ldraney/pal-e-billing/pkg/logger"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// MaxBodyBytes bounds the webhook payload read from the provider.
const MaxBodyBytes = 1 << 20

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) (stripewebhook.Result, error)
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

type webhookRecorder interface {
	Observe(eventType, outcome string, elapsed time.Duration)
}

type webhookResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// StripeWebhook verifies and applies billing-provider events. guard and recorder are optional.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard, recorder webhookRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payload too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			observe(recorder, "", "invalid_signature", start)
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInvalidSignature, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEventWithOptions(payload, sigHeader, client.SigningSecret(), webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			observe(recorder, "", "invalid_signature", start)
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidSignature, err, "invalid signature"))
			return
		}

		eventType := string(event.Type)
		if logg != nil {
			ctx = logg.WithEvent(ctx, event.ID, eventType)
			logg.Info(ctx, "stripe event received")
		}

		// De-duplication is best effort: a Redis failure processes the event unguarded.
		marked := false
		if guard != nil {
			alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
			switch {
			case err != nil:
				if logg != nil {
					logg.Error(ctx, "idempotency check failed, processing without de-duplication", err)
				}
			case alreadyProcessed:
				if logg != nil {
					logg.Info(ctx, "stripe event already processed")
				}
				observe(recorder, eventType, "duplicate", start)
				responses.WriteOK(w, webhookResponse{Status: "ok"})
				return
			default:
				marked = true
			}
		}

		result, err := svc.HandleEvent(ctx, &event)
		if err != nil {
			if marked {
				if relErr := guard.Release(ctx, event.ID); relErr != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", relErr)
				}
			}
			observe(recorder, eventType, "error", start)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		observe(recorder, eventType, string(result.Outcome), start)
		if result.Outcome == stripewebhook.OutcomeSkipped {
			responses.WriteOK(w, webhookResponse{Status: "skipped", Reason: result.Reason})
			return
		}
		responses.WriteOK(w, webhookResponse{Status: "ok"})
	}
}

func observe(recorder webhookRecorder, eventType, outcome string, start time.Time) {
	if recorder == nil {
		return
	}
	recorder.Observe(eventType, outcome, time.Since(start))
}
