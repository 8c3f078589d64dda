package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/addressbook/internal/addressfmt"
	"github.com/utafrali/addressbook/internal/auth"
	"github.com/utafrali/addressbook/internal/config"
	"github.com/utafrali/addressbook/internal/event"
	handler "github.com/utafrali/addressbook/internal/handler/http"
	"github.com/utafrali/addressbook/internal/memberclient"
	"github.com/utafrali/addressbook/internal/repository"
	"github.com/utafrali/addressbook/internal/repository/postgres"
	rediscache "github.com/utafrali/addressbook/internal/repository/redis"
	"github.com/utafrali/addressbook/internal/service"
	"github.com/utafrali/addressbook/internal/simpletoken"
	"github.com/utafrali/addressbook/internal/store"
	"github.com/utafrali/addressbook/internal/subdivision"
	"github.com/utafrali/addressbook/migrations"
	"github.com/utafrali/addressbook/pkg/database"
	"github.com/utafrali/addressbook/pkg/health"
	"github.com/utafrali/addressbook/pkg/httpclient"
	pkgkafka "github.com/utafrali/addressbook/pkg/kafka"
	"github.com/utafrali/addressbook/pkg/middleware"
	"github.com/utafrali/addressbook/pkg/tracing"
)

// App wires together all dependencies and runs the address service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	shutdownTracer tracing.Shutdown
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var closers closeStack
	defer func() {
		if err != nil {
			closers.closeAll(logger)
		}
	}()

	jwtValidator, err := auth.NewValidator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTLeeway)
	if err != nil {
		return nil, fmt.Errorf("create token validator: %w", err)
	}

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing(handler.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	closers.push("tracer", func() error { return shutdownTracer(context.Background()) })

	stores, err := loadStores(cfg)
	if err != nil {
		return nil, err
	}
	formats, err := loadFormats(cfg)
	if err != nil {
		return nil, err
	}

	// PostgreSQL
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	closers.push("postgres", func() error { pool.Close(); return nil })
	logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, handler.ServiceName); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	if cfg.RunMigrations {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, err
		}
	}

	// Redis render cache
	var (
		redisClient *redis.Client
		renderCache repository.RenderCache
	)
	if cfg.RenderCacheEnabled() {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		closers.push("redis", redisClient.Close)
		renderCache = rediscache.NewRenderCache(redisClient, cfg.RenderCacheTTL)
		logger.Info("render cache enabled",
			slog.String("addr", cfg.Redis().Addr()),
			slog.Duration("ttl", cfg.RenderCacheTTL),
		)
	}

	// Kafka
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	closers.push("kafka producer", producer.Close)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	members, err := newMemberRepository(cfg, pool, logger)
	if err != nil {
		return nil, err
	}

	// Build the dependency graph.
	formatter := addressfmt.NewFormatter(formats, addressfmt.NewSchemaFormatter(), subdivision.Default(), simpletoken.New())
	addressService := service.NewAddressService(
		postgres.NewAddressRepository(pool),
		members,
		renderCache,
		formatter,
		stores,
		event.NewProducer(producer, logger),
		logger,
	)

	// Member events
	var (
		dlq      *pkgkafka.DLQProducer
		consumer *pkgkafka.Consumer
	)
	if cfg.ConsumeMemberEvents {
		var processed pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(cfg.ProcessedEventTTL)
		if redisClient != nil {
			processed = rediscache.NewProcessedEvents(redisClient, cfg.ProcessedEventTTL)
		}
		memberEvents := event.NewMemberConsumer(addressService, logger)
		dlq = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
		consumer = pkgkafka.NewConsumer(
			pkgkafka.DefaultConsumerConfig(cfg.KafkaBrokers, event.ConsumerGroup, event.TopicMemberDeleted),
			pkgkafka.IdempotentHandler(processed, memberEvents.Handle, logger),
			dlq,
			logger,
		)
		logger.Info("member event consumer initialized", slog.String("topic", event.TopicMemberDeleted))
	}

	// Health checks. Redis and Kafka outages degrade the service but do not
	// take it out of rotation.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthHandler.RegisterNonCritical("kafka", producer.Ping)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(addressService, stores, jwtValidator.TokenValidator(), healthHandler, logger, handler.RouterConfig{
		CORS:            corsCfg,
		PprofCIDRs:      cfg.PprofCIDRs,
		FormattedMaxAge: cfg.FormattedMaxAge,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		dlq:            dlq,
		consumer:       consumer,
		httpServer:     httpServer,
		shutdownTracer: shutdownTracer,
	}, nil
}

// loadStores reads the store registry, from cfg.StoreFile when set.
func loadStores(cfg *config.Config) (*store.Registry, error) {
	var (
		stores *store.Registry
		err    error
	)
	if cfg.StoreFile != "" {
		stores, err = store.LoadFile(cfg.StoreFile)
	} else {
		stores, err = store.DefaultRegistry()
	}
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	if cfg.DefaultStoreID != 0 {
		if stores, err = stores.WithDefault(cfg.DefaultStoreID); err != nil {
			return nil, fmt.Errorf("load stores: %w", err)
		}
	}
	return stores, nil
}

// loadFormats reads the address formats, from cfg.FormatsFile when set.
func loadFormats(cfg *config.Config) (*addressfmt.Formats, error) {
	var (
		formats *addressfmt.Formats
		err     error
	)
	if cfg.FormatsFile != "" {
		formats, err = addressfmt.LoadFormatsFile(cfg.FormatsFile)
	} else {
		formats, err = addressfmt.DefaultFormats()
	}
	if err != nil {
		return nil, fmt.Errorf("load address formats: %w", err)
	}
	return formats, nil
}

// newMemberRepository reads members from the member service when
// MemberServiceURL is set, and from tl_member otherwise.
func newMemberRepository(cfg *config.Config, db database.DBTX, logger *slog.Logger) (repository.MemberRepository, error) {
	if cfg.MemberServiceURL == "" {
		return postgres.NewMemberRepository(db), nil
	}

	doer := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("member-service"),
		logger,
	)
	client, err := memberclient.New(cfg.MemberServiceURL, doer)
	if err != nil {
		return nil, fmt.Errorf("create member client: %w", err)
	}
	logger.Info("resolving members over HTTP", slog.String("url", cfg.MemberServiceURL))
	return client, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				a.logger.Error("member event consumer stopped", slog.String("error", err.Error()))
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
		}
		if err := a.dlq.Close(); err != nil {
			a.logger.Error("kafka dlq producer close error", slog.String("error", err.Error()))
		}
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	a.pool.Close()
	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
