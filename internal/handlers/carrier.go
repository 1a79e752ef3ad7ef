package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/gorilla/mux"

	"github.com/tajerapp/tajer/internal/cache"
	"github.com/tajerapp/tajer/internal/carrier"
	"github.com/tajerapp/tajer/internal/db"
	"github.com/tajerapp/tajer/internal/models"
	"github.com/tajerapp/tajer/internal/observability"
)

// AdminSyncConfirmed pushes every confirmed order without a label to the
// active carrier.
func (h *Handlers) AdminSyncConfirmed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.engine.SendConfirmed(ctx)
	if err != nil {
		h.loggerFromContext(ctx).Error("bulk send failed", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "bulk send failed")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, result)
}

// AdminSyncStatuses polls the carriers for every open shipment.
func (h *Handlers) AdminSyncStatuses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.engine.SyncStatuses(ctx)
	if err != nil {
		h.loggerFromContext(ctx).Error("status sync failed", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "status sync failed")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, result)
}

const quoteCacheTTL = 10 * time.Minute

type quoteRequest struct {
	Carrier  string  `json:"carrier"`
	City     string  `json:"city" validate:"required,max=100"`
	WeightKg float64 `json:"weight_kg" validate:"gte=0,lte=1000"`
}

// AdminCarrierQuote asks a carrier for a delivery price. Results are cached
// briefly since merchants tend to quote the same city repeatedly while
// negotiating with a customer.
func (h *Handlers) AdminCarrierQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var req quoteRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid quote request: "+err.Error())
		return
	}

	var (
		adapter carrier.ShipmentCarrier
		err     error
	)
	if req.Carrier != "" {
		name := carrier.NameFromString(req.Carrier)
		if name == "" {
			h.writeError(ctx, w, http.StatusBadRequest, "unknown carrier")
			return
		}
		adapter, err = h.resolver.ForName(ctx, name)
	} else {
		adapter, err = h.resolver.Active(ctx)
	}
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := cache.QuoteKey(string(adapter.Name()), req.City, int(req.WeightKg*1000))
	if cached, err := h.cacheProvider.Get(ctx, cacheKey); err == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cached))
		return
	}

	quote, err := adapter.GetQuote(ctx, req.City, req.WeightKg)
	if err != nil {
		logger.Warn("quote request failed", "carrier", adapter.Name(), "city", req.City, "error", err)
		h.writeError(ctx, w, http.StatusBadGateway, err.Error())
		return
	}

	payload := fmt.Sprintf(`{"carrier":%q,"price_cents":%d,"estimated_days":%d}`,
		adapter.Name(), quote.PriceCents, quote.EstimatedDays)
	if err := h.cacheProvider.Set(ctx, cacheKey, payload, quoteCacheTTL); err != nil {
		logger.Warn("failed to cache quote", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(payload))
}

const webhookDedupeTTL = 24 * time.Hour

// carrierWebhookPayload reads every known spelling a carrier may post.
// Field naming varies per carrier just like on the outbound side, and
// identifiers sometimes arrive as JSON numbers.
type carrierWebhookPayload struct {
	EventID             webhookString `json:"event_id"`
	TrackingNumber      webhookString `json:"tracking_number"`
	TrackingNumberCamel webhookString `json:"trackingNumber"`
	TrackingID          webhookString `json:"tracking_id"`
	Status              string        `json:"status"`
	ShipmentStatus      string        `json:"shipment_status"`
	OrderID             webhookString `json:"order_id"`
	OrderIDCamel        webhookString `json:"orderId"`
	Reference           webhookString `json:"reference"`
	Detail              string        `json:"detail"`
}

func (p carrierWebhookPayload) tracking() string {
	return firstNonEmptyString(string(p.TrackingNumber), string(p.TrackingNumberCamel), string(p.TrackingID))
}

func (p carrierWebhookPayload) status() string {
	return firstNonEmptyString(p.Status, p.ShipmentStatus)
}

func (p carrierWebhookPayload) orderRef() string {
	return firstNonEmptyString(string(p.OrderID), string(p.OrderIDCamel), string(p.Reference))
}

// decodeWebhookPayload decodes a carrier delivery. Carrier payloads are not
// under our control, so unknown extra fields are tolerated instead of being
// rejected the way admin request bodies are.
func decodeWebhookPayload(w http.ResponseWriter, r *http.Request) (carrierWebhookPayload, error) {
	var payload carrierWebhookPayload
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return payload, fmt.Errorf("invalid request body: %w", err)
	}
	return payload, nil
}

// webhookString tolerates carriers posting identifiers as JSON numbers.
type webhookString string

func (s *webhookString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = webhookString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = webhookString(n.String())
		return nil
	}
	return fmt.Errorf("value %s is neither string nor number", trimmed)
}

// webhookRefMatches accepts both the bare order id and the CMD-prefixed
// reference used on outbound shipment payloads.
func webhookRefMatches(ref string, orderID int64) bool {
	id := strconv.FormatInt(orderID, 10)
	return ref == id || strings.EqualFold(ref, "CMD-"+id)
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// CarrierWebhook receives push status updates from a carrier. Deliveries
// are deduplicated on event id, so carrier retries are harmless.
func (h *Handlers) CarrierWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	carrierName := mux.Vars(r)["carrier"]
	if carrier.NameFromString(carrierName) == "" {
		h.writeError(ctx, w, http.StatusNotFound, "unknown carrier")
		return
	}

	payload, err := decodeWebhookPayload(w, r)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	trackingNumber := payload.tracking()
	rawStatus := payload.status()
	if trackingNumber == "" || rawStatus == "" {
		h.writeError(ctx, w, http.StatusBadRequest, "tracking number and status are required")
		return
	}

	if payload.EventID != "" {
		key := cache.WebhookKey(carrierName, string(payload.EventID))
		if _, err := h.cacheProvider.Get(ctx, key); err == nil {
			logger.Info("duplicate webhook delivery ignored", "carrier", carrierName, "event_id", string(payload.EventID))
			h.writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
		if err := h.cacheProvider.Set(ctx, key, "1", webhookDedupeTTL); err != nil {
			logger.Warn("failed to record webhook event id", "error", err)
		}
	}

	meter.Count("carrier.webhook.received", 1, sentry.WithAttributes(
		attribute.String("carrier", carrierName),
	))

	label, err := h.labelStore.GetByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(ctx, w, http.StatusNotFound, "unknown tracking number")
			return
		}
		logger.Error("failed to look up label", "tracking_number", trackingNumber, "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to process webhook")
		return
	}

	order, err := h.orderStore.GetByID(ctx, label.OrderID)
	if err != nil {
		h.writeNotFoundOrError(ctx, w, label.OrderID, err)
		return
	}
	if ref := payload.orderRef(); ref != "" && !webhookRefMatches(ref, order.ID) {
		logger.Warn("webhook order reference does not match tracked order",
			"order_id", order.ID, "reference", ref)
	}

	normalized := carrier.NormalizeStatus(rawStatus)
	mapped, known := carrier.MapStatus(rawStatus)
	if !known {
		logger.Info("webhook carried unmapped status", "carrier", carrierName, "status", normalized, "order_id", order.ID)
		if err := h.orderStore.SetCarrierStatus(ctx, order.ID, normalized); err != nil {
			logger.Warn("failed to store carrier status", "order_id", order.ID, "error", err)
		}
		h.writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if mapped == order.Status {
		h.writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "unchanged"})
		return
	}
	if !models.CanTransition(order.Status, mapped) {
		logger.Warn("webhook rejected as status regression",
			"order_id", order.ID, "current", order.Status, "reported", mapped)
		h.writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "rejected"})
		return
	}

	if err := h.orderStore.UpdateFromCarrier(ctx, order.ID, order.Status, mapped, normalized); err != nil {
		logger.Error("failed to apply webhook status", "order_id", order.ID, "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to process webhook")
		return
	}
	detail := fmt.Sprintf("%s webhook reported %s, order moved %s -> %s", carrierName, normalized, order.Status, mapped)
	if err := h.syncLogStore.Record(ctx, &order.ID, models.ActionCarrierWebhook, models.SyncSuccess, detail); err != nil {
		logger.Warn("failed to record webhook sync log", "order_id", order.ID, "error", err)
	}
	h.events.PublishStatusChange(ctx, order, order.Status, mapped)

	h.writeJSON(ctx, w, http.StatusOK, map[string]any{"status": "updated", "order_status": mapped})
}

// AdminDownloadLabel streams a stored shipping label PDF, falling back to a
// redirect when only the carrier-hosted URL is known.
func (h *Handlers) AdminDownloadLabel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	labelID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid label id")
		return
	}
	label, err := h.labelStore.GetByID(ctx, labelID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(ctx, w, http.StatusNotFound, "label not found")
			return
		}
		h.loggerFromContext(ctx).Error("failed to load label", "label_id", labelID, "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to load label")
		return
	}

	if len(label.PDFContent) > 0 {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("label-%s.pdf", label.TrackingNumber)))
		_, _ = w.Write(label.PDFContent)
		return
	}
	if label.LabelURL != "" {
		http.Redirect(w, r, label.LabelURL, http.StatusFound)
		return
	}
	h.writeError(ctx, w, http.StatusNotFound, "label has no content")
}
