package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/tajerapp/tajer/internal/auth"
	"github.com/tajerapp/tajer/internal/cache"
	"github.com/tajerapp/tajer/internal/carrier"
	"github.com/tajerapp/tajer/internal/config"
	"github.com/tajerapp/tajer/internal/crypto"
	"github.com/tajerapp/tajer/internal/db"
	"github.com/tajerapp/tajer/internal/events"
	"github.com/tajerapp/tajer/internal/fulfillment"
	"github.com/tajerapp/tajer/internal/handlers"
	"github.com/tajerapp/tajer/internal/logging"
	"github.com/tajerapp/tajer/internal/notify"
	"github.com/tajerapp/tajer/internal/observability"
	"github.com/tajerapp/tajer/internal/sheets"
)

const carrierRequestTimeout = 15 * time.Second

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Events        events.Publisher
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
		}); err != nil {
			return nil, fmt.Errorf("failed to initialize sentry: %w", err)
		}
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	settingsStore, err := db.NewSettingsStore(database, encryptor)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize settings store: %w", err)
	}
	if cfg.SettingsSeedFile != "" {
		if err := seedSettings(startupCtx, settingsStore, cfg.SettingsSeedFile); err != nil {
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, fmt.Errorf("failed to seed settings: %w", err)
		}
	}

	orderStore := db.NewOrderStore(database)
	labelStore := db.NewShippingLabelStore(database)
	syncLogStore := db.NewSyncLogStore(database)
	productStore := db.NewProductStore(database)
	adCostStore := db.NewAdCostStore(database)

	resolver := carrier.NewResolver(settingsStore, observability.NewHTTPClient(carrierRequestTimeout))
	dispatcher := fulfillment.NewDispatcher(resolver, labelStore, syncLogStore, logger.With("component", "dispatcher"))

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger.With("component", "events"))
	}

	engine := fulfillment.NewEngine(
		orderStore,
		labelStore,
		syncLogStore,
		dispatcher,
		resolver,
		publisher,
		logger.With("component", "sync_engine"),
	)

	notifyProvider, err := notify.NewProvider(notify.Config{
		Channel:      cfg.NotifyChannel,
		GatewayURL:   cfg.NotifyGatewayURL,
		APIKey:       cfg.NotifyAPIKey,
		Sender:       cfg.NotifySender,
		ResendAPIKey: cfg.ResendAPIKey,
		FromEmail:    cfg.NotifyFromEmail,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize notifications: %w", err)
	}
	notifier := notify.NewService(notifyProvider, cfg.StoreName, syncLogStore, logger.With("component", "notify"))

	var sheetsSyncer *sheets.Syncer
	if cfg.SheetsEnabled() {
		sheetsClient, err := sheets.NewClient(startupCtx, sheets.Config{
			SpreadsheetID:   cfg.SheetsSpreadsheetID,
			SheetRange:      cfg.SheetsRange,
			CredentialsJSON: cfg.SheetsCredentialsJSON,
		})
		if err != nil {
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
		}
		sheetsSyncer = sheets.NewSyncer(sheetsClient, orderStore, syncLogStore, logger.With("component", "sheets"))
	}

	authManager, err := auth.NewManager(cfg.AdminJWTSecret, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize admin auth: %w", err)
	}

	h, err := handlers.New(handlers.Dependencies{
		Config:        cfg,
		DB:            database,
		OrderStore:    orderStore,
		LabelStore:    labelStore,
		SyncLogStore:  syncLogStore,
		SettingsStore: settingsStore,
		ProductStore:  productStore,
		AdCostStore:   adCostStore,
		CacheProvider: cacheProvider,
		Resolver:      resolver,
		Dispatcher:    dispatcher,
		Engine:        engine,
		SheetsSyncer:  sheetsSyncer,
		Notifier:      notifier,
		Events:        publisher,
		AuthManager:   authManager,
		Logger:        logger,
	})
	if err != nil {
		closePublisher(logger, publisher)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Events:        publisher,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Events != nil {
		closePublisher(a.Logger, a.Events)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	sentry.Flush(2 * time.Second)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level: cfg.LogLevel,
		})
	}

	if cfg.SentryDSN != "" {
		sentryHandler := sentryslog.Option{
			EventLevel: []slog.Level{slog.LevelError},
			LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelInfo},
		}.NewSentryHandler(context.Background())
		handler = logging.MultiHandler(handler, sentryHandler)
	}

	return slog.New(handler)
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}

func closePublisher(logger *slog.Logger, publisher events.Publisher) {
	if publisher == nil {
		return
	}
	if err := publisher.Close(); err != nil && logger != nil {
		logger.Warn("failed to close event publisher", "error", err)
	}
}
