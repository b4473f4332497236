package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/heliseats/api"
	"github.com/Domenick1991/heliseats/config"
	"github.com/Domenick1991/heliseats/internal/audit"
	"github.com/Domenick1991/heliseats/internal/auth"
	"github.com/Domenick1991/heliseats/internal/bootstrap"
	"github.com/Domenick1991/heliseats/internal/cache"
	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/kafka"
	"github.com/Domenick1991/heliseats/internal/logging"
	"github.com/Domenick1991/heliseats/internal/metrics"
	"github.com/Domenick1991/heliseats/internal/notify"
	"github.com/Domenick1991/heliseats/internal/repository"
	"github.com/Domenick1991/heliseats/internal/repository/memstore"
	"github.com/Domenick1991/heliseats/internal/service/ledger"
	"github.com/Domenick1991/heliseats/internal/service/quotas"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("server error", "error", err)
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	checks := make(map[string]bootstrap.HealthCheck)

	store, err := openStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer store.Close()

	quotaCache := openCache(cfg, checks)
	if c, ok := quotaCache.(*cache.RedisCache); ok {
		defer c.Close()
	}

	auditSink := audit.NewSink(store.Audit(), cfg.Audit.Buffer, logger, m)
	defer auditSink.Close()

	renderer, err := notify.NewRenderer(cfg.Worker.TicketsDir)
	if err != nil {
		return err
	}

	var publisher notify.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		checks["kafka"] = producer.CheckConnection
		publisher = notify.NewKafkaPublisher(producer, cfg.Kafka.BookingEventsTopic, cfg.Kafka.NotificationsTopic, cfg.Kafka.PublishRetries)
	} else {
		logger.Warnw("no kafka brokers configured, delivering notifications in-process")
		sender := notify.NewSender(
			notify.NewLogChannel(domain.ContactEmail, logger),
			notify.NewLogChannel(domain.ContactPhone, logger),
		)
		handler := notify.NewHandler(renderer, sender, logger, m)
		publisher = notify.NewInlinePublisher(handler, cfg.Worker.DeliveryAttempts, cfg.Worker.RetryBackoff())
	}
	dispatcher := notify.NewDispatcher(publisher, cfg.Booking.NotifyBuffer, logger, m)
	dispatcher.Start()
	defer dispatcher.Close()

	seatLedger := ledger.New(store,
		ledger.WithNotifier(dispatcher),
		ledger.WithAuditor(auditSink),
		ledger.WithCache(quotaCache),
		ledger.WithTicketAttempts(cfg.Booking.TicketAttempts),
		ledger.WithLogger(logger),
		ledger.WithMetrics(m),
	)
	quotaService := quotas.NewQuotaService(store.Quotas(), store.Bookings(), quotaCache, logger, m)
	policy := auth.NewPolicy(cfg.Auth.AdminSecret, cfg.Auth.PassengerSecret)

	router := api.NewRouter(api.RouterDeps{
		Log:      logger,
		Metrics:  m,
		Verifier: policy,
		Auditor:  auditSink,
		Bookings: seatLedger,
		Quotas:   seatLedger,
		Reports:  quotaService,
		Tickets:  renderer,
		Limiter:  api.NewRateLimiter(cfg.Booking.RateLimitPerMinute, cfg.Booking.RateLimitBurst),
	})
	bootstrap.Mount(router, cfg, reg, checks)

	return bootstrap.Run(ctx, cfg, router, logger)
}

func openStore(ctx context.Context, cfg *config.Config, checks map[string]bootstrap.HealthCheck) (repository.Store, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		return memstore.New(), nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := repository.NewPGStore(pool)
	if cfg.Storage.Migrate {
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	checks["postgres"] = pool.Ping
	return store, nil
}

func openCache(cfg *config.Config, checks map[string]bootstrap.HealthCheck) cache.QuotaCache {
	ttl := cfg.Booking.QuotaCacheTTL()
	if cfg.Redis.Addr == "" {
		return cache.NewLocalCache(ttl)
	}
	rc := cache.NewRedisCache(cfg.Redis, ttl)
	checks["redis"] = rc.Ping
	return rc
}
