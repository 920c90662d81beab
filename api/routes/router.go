package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/proffmusic/proffmusic-backend/api/controllers"
	webhookcontrollers "github.com/proffmusic/proffmusic-backend/api/controllers/webhooks"
	"github.com/proffmusic/proffmusic-backend/api/middleware"
	"github.com/proffmusic/proffmusic-backend/internal/catalog"
	"github.com/proffmusic/proffmusic-backend/internal/delivery"
	"github.com/proffmusic/proffmusic-backend/internal/orders"
	"github.com/proffmusic/proffmusic-backend/internal/payments"
	"github.com/proffmusic/proffmusic-backend/internal/tokens"
	yookassawebhook "github.com/proffmusic/proffmusic-backend/internal/webhooks/yookassa"
	"github.com/proffmusic/proffmusic-backend/pkg/config"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
	"github.com/proffmusic/proffmusic-backend/pkg/metrics"
	"github.com/proffmusic/proffmusic-backend/pkg/storage/local"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DBPinger    controllers.Pinger
	RedisPinger controllers.Pinger

	CatalogService  catalog.Service
	OrdersService   orders.Service
	PaymentsService payments.Service
	TokensService   tokens.Service
	DeliveryService delivery.Service
	WebhookService  yookassawebhook.Service

	PublicStore *local.Store

	Metrics         *metrics.PipelineMetrics
	MetricsGatherer prometheus.Gatherer
}

// NewRouter assembles the HTTP surface: storefront API, provider webhook,
// and the download endpoint.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": d.DBPinger,
			"redis":    d.RedisPinger,
		}))
	})

	if d.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/yookassa", webhookcontrollers.YooKassa(d.WebhookService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))

		r.Post("/checkout", controllers.Checkout(d.PaymentsService, logg))
		r.Get("/tracks/{slug}/preview", controllers.TrackPreview(d.CatalogService, d.PublicStore, logg))
		r.Get("/library/access", controllers.LibraryAccess(d.OrdersService, logg))
	})

	r.Get("/download/{token}", controllers.Download(
		d.TokensService, d.OrdersService, d.DeliveryService, logg, d.Metrics,
	))

	return r
}
