package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tajerapp/tajer/internal/auth"
	"github.com/tajerapp/tajer/internal/cache"
	"github.com/tajerapp/tajer/internal/carrier"
	"github.com/tajerapp/tajer/internal/config"
	"github.com/tajerapp/tajer/internal/db"
	"github.com/tajerapp/tajer/internal/events"
	"github.com/tajerapp/tajer/internal/fulfillment"
	"github.com/tajerapp/tajer/internal/logging"
	"github.com/tajerapp/tajer/internal/notify"
	"github.com/tajerapp/tajer/internal/sheets"
)

const maxBodyBytes = 1 << 20 // 1 MB

// Handlers provides the HTTP handlers for the storefront and the admin API.
type Handlers struct {
	config        *config.Config
	db            *pgxpool.Pool
	orderStore    *db.OrderStore
	labelStore    *db.ShippingLabelStore
	syncLogStore  *db.SyncLogStore
	settingsStore *db.SettingsStore
	productStore  *db.ProductStore
	adCostStore   *db.AdCostStore
	cacheProvider cache.Provider
	resolver      *carrier.Resolver
	dispatcher    *fulfillment.Dispatcher
	engine        *fulfillment.Engine
	sheetsSyncer  *sheets.Syncer
	notifier      *notify.Service
	events        events.Publisher
	authManager   *auth.Manager
	logger        *slog.Logger
}

type Dependencies struct {
	Config        *config.Config
	DB            *pgxpool.Pool
	OrderStore    *db.OrderStore
	LabelStore    *db.ShippingLabelStore
	SyncLogStore  *db.SyncLogStore
	SettingsStore *db.SettingsStore
	ProductStore  *db.ProductStore
	AdCostStore   *db.AdCostStore
	CacheProvider cache.Provider
	Resolver      *carrier.Resolver
	Dispatcher    *fulfillment.Dispatcher
	Engine        *fulfillment.Engine
	SheetsSyncer  *sheets.Syncer // nil when sheets export is not configured
	Notifier      *notify.Service
	Events        events.Publisher
	AuthManager   *auth.Manager
	Logger        *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.OrderStore == nil {
		return nil, fmt.Errorf("handlers dependencies: orderStore is required")
	}
	if deps.LabelStore == nil {
		return nil, fmt.Errorf("handlers dependencies: labelStore is required")
	}
	if deps.SyncLogStore == nil {
		return nil, fmt.Errorf("handlers dependencies: syncLogStore is required")
	}
	if deps.SettingsStore == nil {
		return nil, fmt.Errorf("handlers dependencies: settingsStore is required")
	}
	if deps.ProductStore == nil {
		return nil, fmt.Errorf("handlers dependencies: productStore is required")
	}
	if deps.AdCostStore == nil {
		return nil, fmt.Errorf("handlers dependencies: adCostStore is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("handlers dependencies: resolver is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("handlers dependencies: dispatcher is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("handlers dependencies: engine is required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("handlers dependencies: notifier is required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("handlers dependencies: events is required")
	}
	if deps.AuthManager == nil {
		return nil, fmt.Errorf("handlers dependencies: authManager is required")
	}

	return &Handlers{
		config:        deps.Config,
		db:            deps.DB,
		orderStore:    deps.OrderStore,
		labelStore:    deps.LabelStore,
		syncLogStore:  deps.SyncLogStore,
		settingsStore: deps.SettingsStore,
		productStore:  deps.ProductStore,
		adCostStore:   deps.AdCostStore,
		cacheProvider: deps.CacheProvider,
		resolver:      deps.Resolver,
		dispatcher:    deps.Dispatcher,
		engine:        deps.Engine,
		sheetsSyncer:  deps.SheetsSyncer,
		notifier:      deps.Notifier,
		events:        deps.Events,
		authManager:   deps.AuthManager,
		logger:        logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "healthy"})
}

// RequireAdmin guards the admin API with bearer token auth.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return h.authManager.Middleware(next)
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.loggerFromContext(ctx).Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	h.writeJSON(ctx, w, status, map[string]string{"error": message})
}

func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
