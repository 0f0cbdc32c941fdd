package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ldraney/pal-e-billing/api/controllers"
	webhookcontrollers "github.com/ldraney/pal-e-billing/api/controllers/webhooks"
	"github.com/ldraney/pal-e-billing/api/middleware"
	"github.com/ldraney/pal-e-billing/internal/entitlements"
	"github.com/ldraney/pal-e-billing/internal/portal"
	stripewebhook "github.com/ldraney/pal-e-billing/internal/webhooks/stripe"
	"github.com/ldraney/pal-e-billing/pkg/config"
	"github.com/ldraney/pal-e-billing/pkg/db"
	"github.com/ldraney/pal-e-billing/pkg/logger"
	"github.com/ldraney/pal-e-billing/pkg/metrics"
	"github.com/ldraney/pal-e-billing/pkg/redis"
	"github.com/ldraney/pal-e-billing/pkg/stripe"
)

// NewRouter wires every HTTP route. redisP and stripeWebhookGuard may be nil when Redis is not
// configured.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	gatherer prometheus.Gatherer,
	entitlementService entitlements.Service,
	portalService *portal.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
	webhookMetrics *metrics.WebhookMetrics,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/health", controllers.HealthLive())
	r.Get("/health/ready", controllers.HealthReady(logg, dbP, redisP))
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/webhook/billing-provider", webhookcontrollers.StripeWebhook(
		stripeWebhookService,
		stripeClient,
		stripeWebhookGuard,
		webhookMetrics,
		logg,
	))

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.Auth.InternalAPIKey, logg))
		r.Get("/status/{user_id}", controllers.SubscriberStatus(entitlementService, logg))
		r.Put("/activate-ancillary/{user_id}", controllers.ActivateAncillary(entitlementService, logg))
		r.Get("/portal/{user_id}", controllers.BillingPortal(portalService, logg))
	})

	return r
}
