package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/srgjo27/ticket_admission/internal/adapter/cache"
	"github.com/srgjo27/ticket_admission/internal/adapter/handler"
	"github.com/srgjo27/ticket_admission/internal/adapter/notifier"
	"github.com/srgjo27/ticket_admission/internal/adapter/ratelimit"
	"github.com/srgjo27/ticket_admission/internal/adapter/repository/memory"
	"github.com/srgjo27/ticket_admission/internal/adapter/repository/postgres"
	"github.com/srgjo27/ticket_admission/internal/core/ports"
	"github.com/srgjo27/ticket_admission/internal/core/services"
	"github.com/srgjo27/ticket_admission/internal/platform/clock"
	"github.com/srgjo27/ticket_admission/internal/platform/config"
	"github.com/srgjo27/ticket_admission/internal/platform/database"
	"github.com/srgjo27/ticket_admission/internal/platform/logger"
	"github.com/srgjo27/ticket_admission/internal/platform/metrics"
)

func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server exiting")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	clk := clock.System{}

	var (
		repos   services.Repositories
		limiter ports.RateLimiter
		opts    []services.Option
	)

	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; state is lost on restart")
		store := memory.NewStore()
		repos = services.Repositories{Tx: store, Events: store, Entries: store, Tickets: store}
		limiter = ratelimit.NewMemoryLimiter(clk, cfg.RateLimitCount, cfg.RateLimitWindow)

	default:
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:         cfg.DBHost,
			Port:         cfg.DBPort,
			User:         cfg.DBUser,
			Password:     cfg.DBPassword,
			DBName:       cfg.DBName,
			MaxOpenConns: cfg.DBMaxOpenConns,
		}, log)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := postgres.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		repos = services.Repositories{
			Tx:      postgres.NewTxManager(db),
			Events:  postgres.NewEventRepository(db),
			Entries: postgres.NewWaitingListRepository(db),
			Tickets: postgres.NewTicketRepository(db),
		}

		log.Info("connecting to redis", "addr", cfg.RedisAddr)
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}

		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitCount, cfg.RateLimitWindow)
		opts = append(opts, services.WithAvailabilityCache(cache.NewAvailabilityCache(redisClient, cfg.AvailabilityCacheTTL)))
	}

	sinks := []notifier.Sink{{Name: "log", Notifier: notifier.NewLogNotifier(log)}}
	var kafkaNotifier *notifier.KafkaNotifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier = notifier.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		sinks = append(sinks, notifier.Sink{Name: "kafka", Notifier: kafkaNotifier})
	}
	if cfg.PubNubEnabled() {
		pn := notifier.NewPubNubClient(cfg.PubNubPublishKey, cfg.PubNubSubscribeKey, cfg.PubNubSecretKey, "ticket-admission")
		sinks = append(sinks, notifier.Sink{Name: "pubnub", Notifier: notifier.NewPubNubNotifier(pn)})
	}

	events := notifier.NewAsync(notifier.NewFanout(sinks...), notifier.NewBreaker(5, 30*time.Second), 1024, 4, 5*time.Second, log)

	scheduler := services.NewExpiryScheduler(clk, 256)

	opts = append(opts,
		services.WithClock(clk),
		services.WithLogger(log),
		services.WithNotifier(events),
		services.WithScheduler(scheduler),
		services.WithOfferTTL(cfg.OfferTTL),
		services.WithRateLimitPerEvent(cfg.RateLimitPerEvent),
		services.WithRetry(cfg.SweepMaxRetries, cfg.SweepRetryBackoff),
	)

	ledger := services.NewInventoryLedger(repos, opts...)
	promoter := services.NewPromotionService(repos, ledger, opts...)
	admission := services.NewAdmissionService(repos, ledger, limiter, promoter, opts...)
	purchase := services.NewPurchaseService(repos, promoter, opts...)
	sweeper := services.NewExpirationSweeper(repos, promoter, opts...)

	runner := services.NewSweepRunner(repos, sweeper, promoter, ledger, scheduler, cfg.SweepInterval, cfg.ReconcileInterval, log)
	if err := runner.Recover(ctx); err != nil {
		log.Error("offer recovery incomplete; periodic sweep will catch up", "error", err)
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		runner.Run(workerCtx)
	}()

	e := handler.NewRouter(
		handler.NewAdmissionHandler(admission, purchase, ledger, promoter, log),
		handler.NewPaystackHandler(cfg.PaystackSecretKey, purchase, log),
		[]byte(cfg.JWTSecret),
		log,
	)
	e.Server.ReadTimeout = 5 * time.Second
	e.Server.WriteTimeout = 10 * time.Second
	e.Server.IdleTimeout = 120 * time.Second

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 2)
	go func() {
		log.Info("server starting", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("metrics server starting", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case runErr = <-serverErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server forced to shutdown", "error", err)
	}

	cancelWorkers()
	<-workersDone

	events.Close()
	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			log.Error("close kafka writer", "error", err)
		}
	}

	return runErr
}
