package handlers

import (
	"net/http"
	"time"

	"github.com/tajerapp/tajer/internal/models"
)

type analyticsSummary struct {
	From             time.Time `json:"from"`
	To               time.Time `json:"to"`
	Orders           int       `json:"orders"`
	Delivered        int       `json:"delivered"`
	RevenueCents     int       `json:"revenue_cents"`
	ProductCostCents int       `json:"product_cost_cents"`
	DeliveryCents    int       `json:"delivery_cents"`
	AdSpendCents     int       `json:"ad_spend_cents"`
	ProfitCents      int       `json:"profit_cents"`
}

// AdminAnalyticsSummary computes delivered revenue minus product costs,
// delivery fees and ad spend for a date range. Only delivered orders count
// as revenue, cash on delivery means nothing is earned before handover.
func (h *Handlers) AdminAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	from, to, err := dateRangeFromQuery(r)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	sales, err := h.orderStore.SalesSummary(ctx, from, to)
	if err != nil {
		logger.Error("failed to compute sales summary", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to compute summary")
		return
	}
	adSpend, err := h.adCostStore.TotalBetween(ctx, from, to)
	if err != nil {
		logger.Error("failed to compute ad spend", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	summary := analyticsSummary{
		From:             from,
		To:               to,
		Orders:           sales.Orders,
		Delivered:        sales.Delivered,
		RevenueCents:     sales.RevenueCents,
		ProductCostCents: sales.ProductCostCents,
		DeliveryCents:    sales.DeliveryCents,
		AdSpendCents:     adSpend,
	}
	summary.ProfitCents = summary.RevenueCents - summary.ProductCostCents - summary.DeliveryCents - summary.AdSpendCents

	h.writeJSON(ctx, w, http.StatusOK, summary)
}

type adCostRequest struct {
	AmountDirhams float64 `json:"amount_dh" validate:"required,gt=0"`
	Description   string  `json:"description" validate:"required,max=500"`
	SpentOn       string  `json:"spent_on" validate:"required"`
}

func (h *Handlers) AdminCreateAdCost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req adCostRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid ad cost: "+err.Error())
		return
	}
	spentOn, err := time.Parse("2006-01-02", req.SpentOn)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "spent_on must be YYYY-MM-DD")
		return
	}

	cost := &models.AdCost{
		AmountCents: int(req.AmountDirhams * 100),
		Description: req.Description,
		SpentOn:     spentOn,
	}
	if err := h.adCostStore.Create(ctx, cost); err != nil {
		h.loggerFromContext(ctx).Error("failed to create ad cost", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to record ad cost")
		return
	}
	h.writeJSON(ctx, w, http.StatusCreated, cost)
}

func (h *Handlers) AdminListAdCosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	costs, err := h.adCostStore.List(ctx, 500)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to list ad costs", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to load ad costs")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, map[string]any{"ad_costs": costs})
}

func dateRangeFromQuery(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidDate("from")
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidDate("to")
		}
		// Inclusive end date.
		to = parsed.AddDate(0, 0, 1)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errInvalidDate("to")
	}
	return from, to, nil
}

type errInvalidDate string

func (e errInvalidDate) Error() string {
	return string(e) + " must be YYYY-MM-DD"
}
