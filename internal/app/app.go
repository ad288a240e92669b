package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/azha0089/HealthyLife/internal/auth"
	"github.com/azha0089/HealthyLife/internal/config"
	"github.com/azha0089/HealthyLife/internal/event"
	handler "github.com/azha0089/HealthyLife/internal/handler/http"
	"github.com/azha0089/HealthyLife/internal/notify"
	"github.com/azha0089/HealthyLife/internal/repository"
	"github.com/azha0089/HealthyLife/internal/repository/postgres"
	rediscache "github.com/azha0089/HealthyLife/internal/repository/redis"
	"github.com/azha0089/HealthyLife/internal/service"
	"github.com/azha0089/HealthyLife/migrations"
	"github.com/azha0089/HealthyLife/pkg/database"
	"github.com/azha0089/HealthyLife/pkg/health"
	"github.com/azha0089/HealthyLife/pkg/httpclient"
	pkgkafka "github.com/azha0089/HealthyLife/pkg/kafka"
	"github.com/azha0089/HealthyLife/pkg/middleware"
	"github.com/azha0089/HealthyLife/pkg/tracing"
)

const serviceVersion = "0.1.0"

// App wires together all dependencies and runs the HealthyLife API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	dlq            *pkgkafka.DLQProducer
	rateLimiter    *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEndpoint != "",
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, cfg.ServiceName); err != nil {
		pool.Close()
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	// Redis backs the caches and consumer idempotency. The API still serves
	// without it, straight from PostgreSQL.
	var (
		refCache     repository.RecipeRefCache
		popularCache repository.PopularRecipeCache
	)
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, running without caches", slog.String("error", err.Error()))
	} else {
		a.redis = redisClient
		refCache = rediscache.NewRefCache(redisClient, cfg.RefCacheTTL)
		popularCache = rediscache.NewPopularCache(redisClient, cfg.PopularTTL)
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
	}

	// Kafka. A nil publisher makes the event producer a no-op.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

		if redisClient != nil {
			a.dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
			invalidator := event.NewCacheInvalidator(popularCache, refCache, logger)
			idempotency := pkgkafka.NewRedisIdempotencyStore(redisClient, "healthylife:consumed:", cfg.IdempotentTTL)
			a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
				Brokers:     cfg.KafkaBrokers,
				GroupID:     cfg.KafkaConsumerGroup,
				Topics:      event.CacheTopics,
				MinBytes:    1,
				MaxBytes:    10e6,
				MaxAttempts: 3,
				RetryWait:   500 * time.Millisecond,
			}, pkgkafka.IdempotentHandler(idempotency, cfg.KafkaConsumerGroup, invalidator.Handle, logger), a.dlq, logger)
		}
	} else {
		logger.Warn("kafka disabled, domain events will not be published")
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Booking confirmations go through the mail webhook behind a breaker.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.MailTimeout
	mailClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("mail-webhook"),
		logger,
	)
	mailer := notify.NewWebhookMailer(cfg.MailWebhookURL, mailClient, logger)

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessExpiry)
	recipeRepo := postgres.NewRecipeRepository(pool)
	ratingRepo := postgres.NewRatingRepository(pool, cfg.RatingTxPolicy())
	favoriteRepo := postgres.NewFavoriteRepository(pool)
	eventRepo := postgres.NewEventRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	resolver := service.NewRecipeResolver(recipeRepo, refCache, logger)
	services := handler.Services{
		Recipes:   service.NewRecipeService(recipeRepo, resolver, popularCache, eventProducer, logger),
		Ratings:   service.NewRatingService(ratingRepo, resolver, eventProducer, logger),
		Favorites: service.NewFavoriteService(favoriteRepo, recipeRepo, resolver, eventProducer, logger),
		Events:    service.NewEventService(eventRepo, userRepo, mailer, eventProducer, logger),
		Users:     service.NewUserService(userRepo, jwtManager, eventProducer, logger),
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
		if redisClient == nil {
			return errors.New("redis not connected")
		}
		return redisClient.Ping(ctx).Err()
	})
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(services, healthHandler, handler.RouterConfig{
		ServiceName:    cfg.ServiceName,
		CORS:           cors,
		TokenValidator: jwtManager.Validator(),
		RateLimiter:    a.rateLimiter,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and the cache consumer and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.rateLimiter.Run(runCtx)
	}()

	if a.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.consumer.Start(runCtx); err != nil {
				a.logger.Error("cache consumer stopped", slog.String("error", err.Error()))
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	stop()
	wg.Wait()
	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush spans from drained requests)
// 3. Kafka producers
// 4. Redis and PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.dlq != nil {
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
