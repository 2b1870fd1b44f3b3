package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tms/internal/api"
	"tms/internal/config"
	"tms/internal/database"
	"tms/internal/domain"
	"tms/internal/events"
	"tms/internal/export"
	"tms/internal/fixtures"
	"tms/internal/google"
	"tms/internal/logging"
	"tms/internal/metrics"
	"tms/internal/notify"
	"tms/internal/repository"
	"tms/internal/service"
	"tms/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	store, ready, cleanup, err := initStore(ctx, cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	seed, err := loadSeed(cfg, logger)
	if err != nil {
		return err
	}

	startMetrics(ctx, cfg, logger)

	bus := events.NewEventBus()
	bus.Subscribe(metrics.Subscriber, events.LedgerEvents...)

	ledger, err := service.NewLedgerService(ctx, store, bus, service.LedgerOptions{Seed: seed}, logging.Component(logger, "ledger"))
	if err != nil {
		logger.Error().Err(err).Msg("init ledger")
		return err
	}

	users := cfg.Auth.Users
	if len(users) == 0 {
		users = service.DefaultUsers()
	}
	authService := service.NewAuthService(
		service.NewStaticCredentials(users, cfg.Auth.SharedPassword),
		store,
		logging.Component(logger, "auth"),
	)

	initSheetsSync(ctx, cfg, ledger, bus, redisClient, logger)
	initTelegram(cfg, bus, logger)

	exporter := export.NewExporter(ledger, cfg.Exports.Path, logging.Component(logger, "export"))

	if !cfg.API.HTTP.Enabled {
		logger.Warn().Msg("HTTP API is disabled in config, running background services only")
		<-ctx.Done()
		return nil
	}

	httpServer := api.NewHTTPServer(cfg.API, api.Deps{
		Ledger:   ledger,
		Auth:     authService,
		Exporter: exporter,
		Ready:    ready,
	}, logging.Component(logger, "http"))

	return serve(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "main"), closer, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return client
}

// initStore builds the snapshot store for the configured backend together
// with its readiness probe and a cleanup func.
func initStore(
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) (domain.SnapshotStore, func(context.Context) error, func(), error) {
	storeLogger := logging.Component(logger, "store")
	noop := func() {}

	switch cfg.Storage.Backend {
	case config.StorageRedis:
		primary := repository.NewRedisSnapshotStore(redisClient, cfg.Redis.KeyPrefix, 0)
		ping := func(ctx context.Context) error { return repository.Ping(ctx, redisClient) }
		if cfg.Storage.Failover {
			store := repository.NewFailoverSnapshotStore(primary, repository.NewMemorySnapshotStore(), storeLogger)
			return store, nil, noop, nil
		}
		if err := ping(ctx); err != nil {
			return nil, nil, noop, fmt.Errorf("redis storage unavailable: %w", err)
		}
		return primary, ping, noop, nil

	case config.StorageSQLite:
		db, err := database.NewDB(cfg.Database.Path, storeLogger)
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, nil, noop, err
		}
		cleanup := func() { _ = db.Close() }

		if cfg.Backup.Enabled {
			backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
			go backups.Start(ctx)
		}

		if cfg.Storage.Failover {
			store := repository.NewFailoverSnapshotStore(db, repository.NewMemorySnapshotStore(), storeLogger)
			return store, nil, cleanup, nil
		}
		return db, db.PingContext, cleanup, nil

	default:
		logger.Warn().Msg("memory storage selected, ledger is lost on restart")
		return repository.NewMemorySnapshotStore(), nil, noop, nil
	}
}

func loadSeed(cfg *config.Config, logger *zerolog.Logger) (*fixtures.Dataset, error) {
	if cfg.Ledger.SeedFile == "" {
		return nil, nil
	}

	seed, err := fixtures.LoadFile(cfg.Ledger.SeedFile, time.Now())
	if err != nil {
		logger.Error().Err(err).Str("seed_file", cfg.Ledger.SeedFile).Msg("load seed dataset")
		return nil, err
	}
	return seed, nil
}

func initSheetsSync(
	ctx context.Context,
	cfg *config.Config,
	ledger domain.LedgerReader,
	bus *events.EventBus,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) {
	if !cfg.Google.Enabled() {
		return
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.LedgerSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		email, _ := google.ServiceAccountEmail(cfg.Google.GoogleCredentialsFile)
		logger.Warn().Err(err).Str("service_account", email).Msg("google sheets not reachable, check sharing settings")
	} else {
		logger.Info().Msg("google sheets connected")
	}

	sheetsWorker := worker.NewSheetsWorker(ledger, sheetsService, redisClient,
		worker.DefaultRetryPolicy(), logging.Component(logger, "sheets-worker"))

	go sheetsWorker.Start(ctx)
	bus.Subscribe(sheetsWorker.Subscriber, events.LedgerEvents...)

	if err := sheetsWorker.EnqueueSync(ctx, "startup"); err != nil {
		logger.Warn().Err(err).Msg("initial sheets sync not queued")
	}
}

func initTelegram(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if !cfg.Telegram.Enabled() {
		return
	}

	botAPI, err := notify.NewBotAPI(cfg.Telegram.BotToken, cfg.Telegram.Debug)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}

	tgLogger := logging.Component(logger, "telegram")
	notifier := notify.NewTelegramNotifier(botAPI, cfg.Telegram.NotifyChats, tgLogger)

	// Sends are paced and hit the network; keep them off the request path.
	bus.Subscribe(func(event *events.Event) error {
		go func() {
			if err := notifier.Subscriber(event); err != nil {
				tgLogger.Warn().Err(err).Str("event", event.Type).Msg("order notification failed")
			}
		}()
		return nil
	}, events.EventOrderCreated, events.EventOrderCompleted)
	logger.Info().Int("chats", len(cfg.Telegram.NotifyChats)).Msg("telegram notifications enabled")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server stopped")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
