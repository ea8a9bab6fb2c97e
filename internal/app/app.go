package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JoseMS22/JyA-Innersport-sub000/internal/config"
	"github.com/JoseMS22/JyA-Innersport-sub000/internal/event"
	handler "github.com/JoseMS22/JyA-Innersport-sub000/internal/handler/http"
	redisrepo "github.com/JoseMS22/JyA-Innersport-sub000/internal/repository/redis"
	"github.com/JoseMS22/JyA-Innersport-sub000/internal/service"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/database"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/health"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/httpclient"
	pkgkafka "github.com/JoseMS22/JyA-Innersport-sub000/pkg/kafka"
	"github.com/JoseMS22/JyA-Innersport-sub000/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	orchestrator   *service.CheckoutOrchestrator
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize Redis for carts and favorites.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	repo := redisrepo.NewCollectionRepository(redisClient, time.Duration(cfg.CartTTLHours)*time.Hour)
	eventProducer := event.NewProducer(producer, logger)

	// The read path retries and trips a circuit breaker; the commit path
	// (orders, points) never retries on its own.
	readClient := httpclient.New(httpclient.DefaultConfig())
	commitClient := httpclient.New(httpclient.CommitConfig())

	cbCfg := httpclient.CircuitBreakerConfig{
		Name:         "commerce-platform",
		MaxRequests:  cfg.CBMaxRequests,
		Interval:     time.Duration(cfg.CBInterval) * time.Second,
		Timeout:      time.Duration(cfg.CBTimeout) * time.Second,
		FailureRatio: cfg.CBFailureRatio,
		MinRequests:  cfg.CBMinRequests,
	}
	cbClient := httpclient.NewCircuitBreakerClient(readClient, cbCfg, logger).
		WithFallback(service.CircuitOpenFallback)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Uint64("max_requests", uint64(cbCfg.MaxRequests)),
		slog.Int("timeout_seconds", cfg.CBTimeout),
	)

	cartService := service.NewCartService(service.NewCartCollection(repo), eventProducer, logger)
	favoritesService := service.NewFavoritesService(service.NewFavoritesCollection(repo), logger)
	addressService := service.NewAddressService(cbClient, cfg.CommerceAPIURL, logger)
	shippingResolver := service.NewShippingQuoteResolver(cbClient, cfg.CommerceAPIURL, logger)
	loyaltyCalculator := service.NewLoyaltyLimitCalculator(cbClient, cfg.CommerceAPIURL, logger)

	orchestrator := service.NewCheckoutOrchestrator(
		cartService,
		addressService,
		shippingResolver,
		loyaltyCalculator,
		eventProducer,
		logger,
		commitClient,
		cfg.CommerceAPIURL,
		service.CommitTimeouts{
			OrderTimeout:  time.Duration(cfg.OrderTimeout) * time.Second,
			PointsTimeout: time.Duration(cfg.PointsTimeout) * time.Second,
		},
	)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(cartService, favoritesService, addressService, orchestrator, healthHandler, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		redis:          redisClient,
		producer:       producer,
		orchestrator:   orchestrator,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	a.orchestrator.StartSweeper(ctx)

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client.
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
