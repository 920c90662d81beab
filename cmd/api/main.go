package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/proffmusic/proffmusic-backend/api/routes"
	"github.com/proffmusic/proffmusic-backend/internal/catalog"
	"github.com/proffmusic/proffmusic-backend/internal/delivery"
	"github.com/proffmusic/proffmusic-backend/internal/notifications"
	"github.com/proffmusic/proffmusic-backend/internal/orders"
	"github.com/proffmusic/proffmusic-backend/internal/payments"
	"github.com/proffmusic/proffmusic-backend/internal/tokens"
	yookassawebhook "github.com/proffmusic/proffmusic-backend/internal/webhooks/yookassa"
	"github.com/proffmusic/proffmusic-backend/pkg/config"
	"github.com/proffmusic/proffmusic-backend/pkg/db"
	"github.com/proffmusic/proffmusic-backend/pkg/logger"
	"github.com/proffmusic/proffmusic-backend/pkg/metrics"
	"github.com/proffmusic/proffmusic-backend/pkg/migrate"
	"github.com/proffmusic/proffmusic-backend/pkg/redis"
	"github.com/proffmusic/proffmusic-backend/pkg/storage/local"
	"github.com/proffmusic/proffmusic-backend/pkg/yookassa"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	protectedStore, err := local.NewStore(cfg.Storage.ProtectedRoot)
	if err != nil {
		logg.Error(context.Background(), "failed to open protected media root", err)
		os.Exit(1)
	}
	publicStore, err := local.NewStore(cfg.Storage.PublicRoot)
	if err != nil {
		logg.Error(context.Background(), "failed to open public media root", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(
		orders.NewRepository(dbClient.DB()), dbClient, catalogService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	gateway := buildGateway(cfg, logg)

	paymentsService, err := payments.NewService(ordersService, catalogService, gateway, logg, pipelineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	tokensService, err := tokens.NewService(tokens.NewRepository(dbClient.DB()), cfg.Download, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tokens service", err)
		os.Exit(1)
	}

	deliveryService, err := delivery.NewService(catalogService, protectedStore, cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery service", err)
		os.Exit(1)
	}

	mailer := buildMailer(cfg, logg)
	notificationsService, err := notifications.NewService(mailer, cfg.App.SiteURL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	guard, err := yookassawebhook.NewIdempotencyGuard(
		redisClient, cfg.YooKassa.EventDedupTTL, yookassawebhook.GuardScope)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	webhookService, err := yookassawebhook.NewService(
		ordersService, tokensService, notificationsService, guard, logg, pipelineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DBPinger:        dbClient,
			RedisPinger:     redisClient,
			CatalogService:  catalogService,
			OrdersService:   ordersService,
			PaymentsService: paymentsService,
			TokensService:   tokensService,
			DeliveryService: deliveryService,
			WebhookService:  webhookService,
			PublicStore:     publicStore,
			Metrics:         pipelineMetrics,
			MetricsGatherer: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildGateway picks the real provider client when credentials are set and
// the mock-redirect flag is off.
func buildGateway(cfg *config.Config, logg *logger.Logger) payments.Gateway {
	if cfg.YooKassa.Configured() && !cfg.FeatureFlags.ForceMockPayments {
		client, err := yookassa.NewClient(context.Background(), cfg.YooKassa, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create yookassa client", err)
			os.Exit(1)
		}
		gateway, err := payments.NewYooKassaGateway(client, cfg.YooKassa)
		if err != nil {
			logg.Error(context.Background(), "failed to create payment gateway", err)
			os.Exit(1)
		}
		return gateway
	}
	logg.Warn(context.Background(), "payment provider not configured, using mock redirects")
	return payments.NewMockGateway(cfg.YooKassa.ReturnURL)
}

func buildMailer(cfg *config.Config, logg *logger.Logger) notifications.Mailer {
	if cfg.SMTP.Host == "" {
		logg.Warn(context.Background(), "smtp not configured, fulfillment emails disabled")
		return notifications.NoopMailer{}
	}
	mailer, err := notifications.NewSMTPMailer(cfg.SMTP)
	if err != nil {
		logg.Error(context.Background(), "failed to create smtp mailer", err)
		os.Exit(1)
	}
	return mailer
}
