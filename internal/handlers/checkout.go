package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/tajerapp/tajer/internal/db"
	"github.com/tajerapp/tajer/internal/models"
	"github.com/tajerapp/tajer/internal/observability"
)

var validate = validator.New()

// Products lists the active catalog for the storefront.
func (h *Handlers) Products(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	products, err := h.productStore.ListActive(ctx)
	if err != nil {
		logger.Error("failed to list products", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to load products")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, map[string]any{"products": products})
}

// Product returns one catalog entry. Inactive products are not exposed on
// the storefront.
func (h *Handlers) Product(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.productStore.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(ctx, w, http.StatusNotFound, "product not found")
			return
		}
		h.loggerFromContext(ctx).Error("failed to load product", "error", err, "product_id", productID)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to load product")
		return
	}
	if !product.Active {
		h.writeError(ctx, w, http.StatusNotFound, "product not found")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, product)
}

type checkoutItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0,lte=100"`
}

type checkoutRequest struct {
	CustomerName  string         `json:"customer_name" validate:"required,min=2,max=100"`
	CustomerPhone string         `json:"customer_phone" validate:"required,min=9,max=20"`
	CustomerEmail string         `json:"customer_email" validate:"omitempty,email"`
	Address       string         `json:"address" validate:"required,max=500"`
	City          string         `json:"city" validate:"required,max=100"`
	Notes         string         `json:"notes" validate:"max=1000"`
	Items         []checkoutItem `json:"items" validate:"required,min=1,max=50,dive"`
}

// Checkout creates a cash-on-delivery order. Prices and costs are frozen
// into the order items at creation so later catalog edits do not rewrite
// history.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	var req checkoutRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid order: "+err.Error())
		return
	}

	order := &models.Order{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		Address:       strings.TrimSpace(req.Address),
		City:          strings.TrimSpace(req.City),
		Notes:         strings.TrimSpace(req.Notes),
		Status:        models.StatusNouvelle,
	}

	for _, item := range req.Items {
		product, err := h.productStore.GetByID(ctx, item.ProductID)
		if err != nil {
			h.writeError(ctx, w, http.StatusBadRequest, "unknown product")
			return
		}
		if !product.Active {
			h.writeError(ctx, w, http.StatusBadRequest, "product is no longer available")
			return
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID:      product.ID,
			Name:           product.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
			UnitCostCents:  product.CostCents,
		})
		order.TotalCents += product.PriceCents * item.Quantity
	}

	order.DeliveryCents = h.deliveryCostCents(ctx)

	if err := h.orderStore.Create(ctx, order); err != nil {
		logger.Error("failed to create order", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to create order")
		return
	}

	meter.Count("orders.created", 1, sentry.WithAttributes(
		attribute.String("city", order.City),
	))
	logger.Info("order created", "order_id", order.ID, "total_cents", order.TotalCents, "city", order.City)

	h.writeJSON(ctx, w, http.StatusCreated, order)
}

// deliveryCostCents reads the flat delivery fee from settings. The setting
// is stored in dirhams.
func (h *Handlers) deliveryCostCents(ctx context.Context) int {
	raw, err := h.settingsStore.Get(ctx, "delivery_cost")
	if err != nil || raw == "" {
		return 0
	}
	dirhams, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		h.loggerFromContext(ctx).Warn("invalid delivery_cost setting", "value", raw)
		return 0
	}
	return int(dirhams * 100)
}
