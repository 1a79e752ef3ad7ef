package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tajerapp/tajer/internal/config"
	"github.com/tajerapp/tajer/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)

	// Public storefront
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")
	r.HandleFunc("/products", h.Products).Methods("GET").Name("products")
	r.HandleFunc("/products/{id:[0-9]+}", h.Product).Methods("GET").Name("products.get")
	r.HandleFunc("/checkout", h.Checkout).Methods("POST").Name("checkout")

	// Carrier push updates
	r.HandleFunc("/webhooks/carrier/{carrier}", h.CarrierWebhook).Methods("POST").Name("webhooks.carrier")

	// Admin auth
	r.HandleFunc("/admin/login", h.AdminLogin).Methods("POST").Name("admin.login")

	// Protected admin API
	adminRouter := r.PathPrefix("/admin").Subrouter()
	adminRouter.Use(h.RequireAdmin)
	adminRouter.HandleFunc("/orders", h.AdminListOrders).Methods("GET").Name("admin.orders")
	adminRouter.HandleFunc("/orders/{id:[0-9]+}", h.AdminGetOrder).Methods("GET").Name("admin.orders.get")
	adminRouter.HandleFunc("/orders/{id:[0-9]+}/confirm", h.AdminConfirmOrder).Methods("POST").Name("admin.orders.confirm")
	adminRouter.HandleFunc("/orders/{id:[0-9]+}/cancel", h.AdminCancelOrder).Methods("POST").Name("admin.orders.cancel")
	adminRouter.HandleFunc("/orders/{id:[0-9]+}/mark-unreachable", h.AdminMarkUnreachable).Methods("POST").Name("admin.orders.unreachable")
	adminRouter.HandleFunc("/orders/{id:[0-9]+}/mark-delivered", h.AdminMarkDelivered).Methods("POST").Name("admin.orders.delivered")
	adminRouter.HandleFunc("/orders/{id:[0-9]+}/send-to-carrier", h.AdminSendToCarrier).Methods("POST").Name("admin.orders.send")
	adminRouter.HandleFunc("/orders/{id:[0-9]+}/sync-logs", h.AdminOrderSyncLogs).Methods("GET").Name("admin.orders.synclogs")
	adminRouter.HandleFunc("/orders/sync-sheets", h.AdminSyncSheets).Methods("POST").Name("admin.orders.sheets")

	adminRouter.HandleFunc("/carrier/sync-confirmed", h.AdminSyncConfirmed).Methods("POST").Name("admin.carrier.send")
	adminRouter.HandleFunc("/carrier/sync-statuses", h.AdminSyncStatuses).Methods("POST").Name("admin.carrier.statuses")
	adminRouter.HandleFunc("/carrier/quote", h.AdminCarrierQuote).Methods("POST").Name("admin.carrier.quote")

	adminRouter.HandleFunc("/shipping-labels/{id:[0-9]+}/download", h.AdminDownloadLabel).Methods("GET").Name("admin.labels.download")

	adminRouter.HandleFunc("/settings", h.AdminGetSettings).Methods("GET").Name("admin.settings")
	adminRouter.HandleFunc("/settings", h.AdminUpdateSettings).Methods("PUT").Name("admin.settings.update")
	adminRouter.HandleFunc("/sync-logs", h.AdminListSyncLogs).Methods("GET").Name("admin.synclogs")

	adminRouter.HandleFunc("/analytics/summary", h.AdminAnalyticsSummary).Methods("GET").Name("admin.analytics")
	adminRouter.HandleFunc("/ad-costs", h.AdminListAdCosts).Methods("GET").Name("admin.adcosts")
	adminRouter.HandleFunc("/ad-costs", h.AdminCreateAdCost).Methods("POST").Name("admin.adcosts.create")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})

	return r
}
