package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/paybridge/api/controllers"
	paymentcontrollers "github.com/angelmondragon/paybridge/api/controllers/payments"
	webhookcontrollers "github.com/angelmondragon/paybridge/api/controllers/webhooks"
	"github.com/angelmondragon/paybridge/api/middleware"
	"github.com/angelmondragon/paybridge/internal/intents"
	"github.com/angelmondragon/paybridge/internal/transactions"
	"github.com/angelmondragon/paybridge/pkg/config"
	"github.com/angelmondragon/paybridge/pkg/logger"
	"github.com/angelmondragon/paybridge/pkg/metrics"
	"github.com/angelmondragon/paybridge/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	paymentMetrics *metrics.PaymentMetrics,
	gatherer prometheus.Gatherer,
	store transactions.Store,
	intentService intents.Service,
	stripeClient *stripe.Client,
	stripeWebhookService webhookcontrollers.StripeWebhookService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(paymentMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, store))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.App.CORSAllowedOrigins))
		r.Options("/intents", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		r.Post("/intents", paymentcontrollers.CreateIntent(intentService, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, webhookcontrollers.StripeWebhookOptions{
			StoreFailureStatus: cfg.Webhook.StoreFailureStatus,
			Metrics:            paymentMetrics,
		}, logg))
	})

	return r
}
