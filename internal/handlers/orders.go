package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tajerapp/tajer/internal/db"
	"github.com/tajerapp/tajer/internal/models"
)

func orderIDFromRequest(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// AdminListOrders lists orders, optionally filtered by status.
func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	var (
		orders []*models.Order
		err    error
	)
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := models.OrderStatus(statusParam)
		if !models.IsValidStatus(status) {
			h.writeError(ctx, w, http.StatusBadRequest, "unknown status")
			return
		}
		orders, err = h.orderStore.ListByStatus(ctx, status)
	} else {
		orders, err = h.orderStore.List(ctx, 500)
	}
	if err != nil {
		logger.Error("failed to list orders", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to load orders")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handlers) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := orderIDFromRequest(r)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.orderStore.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.writeError(ctx, w, http.StatusNotFound, "order not found")
			return
		}
		h.loggerFromContext(ctx).Error("failed to load order", "order_id", orderID, "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to load order")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, order)
}

// AdminConfirmOrder confirms an order and then tries to ship it right away.
// The confirmation itself never fails because of the carrier: dispatch
// problems are logged and the order stays CONFIRMEE for a later bulk send.
func (h *Handlers) AdminConfirmOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	orderID, err := orderIDFromRequest(r)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.orderStore.GetByID(ctx, orderID)
	if err != nil {
		h.writeNotFoundOrError(ctx, w, orderID, err)
		return
	}

	if err := h.orderStore.Transition(ctx, orderID, models.StatusConfirmee); err != nil {
		h.writeTransitionError(ctx, w, err)
		return
	}
	h.events.PublishStatusChange(ctx, order, order.Status, models.StatusConfirmee)
	h.notifier.OrderConfirmed(ctx, order)

	response := map[string]any{"status": models.StatusConfirmee}

	dispatched := h.dispatcher.Dispatch(ctx, order)
	if dispatched.Success {
		if err := h.orderStore.MarkSent(ctx, orderID, dispatched.Carrier, dispatched.TrackingNumber); err != nil {
			logger.Error("dispatched on confirm but failed to update status", "order_id", orderID, "error", err)
		} else {
			h.events.PublishStatusChange(ctx, order, models.StatusConfirmee, models.StatusEnvoyee)
			h.notifier.OrderShipped(ctx, order, dispatched.TrackingNumber)
			response["status"] = models.StatusEnvoyee
			response["tracking_number"] = dispatched.TrackingNumber
			response["carrier"] = dispatched.Carrier
		}
	} else {
		logger.Warn("dispatch on confirm failed, order stays confirmed", "order_id", orderID, "error", dispatched.Error)
	}

	h.writeJSON(ctx, w, http.StatusOK, response)
}

// AdminSendToCarrier dispatches a confirmed order on demand. Unlike the
// confirm flow, a carrier failure here is the caller's problem: the order
// is only advanced when the carrier accepted the shipment.
func (h *Handlers) AdminSendToCarrier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	orderID, err := orderIDFromRequest(r)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.orderStore.GetByID(ctx, orderID)
	if err != nil {
		h.writeNotFoundOrError(ctx, w, orderID, err)
		return
	}
	if order.Status != models.StatusConfirmee {
		h.writeError(ctx, w, http.StatusConflict, "order must be confirmed before sending to carrier")
		return
	}

	dispatched := h.dispatcher.Dispatch(ctx, order)
	if !dispatched.Success {
		h.writeJSON(ctx, w, http.StatusBadGateway, dispatched)
		return
	}

	if err := h.orderStore.MarkSent(ctx, orderID, dispatched.Carrier, dispatched.TrackingNumber); err != nil {
		logger.Error("dispatched but failed to update status", "order_id", orderID, "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "shipment created but order update failed")
		return
	}
	h.events.PublishStatusChange(ctx, order, models.StatusConfirmee, models.StatusEnvoyee)
	h.notifier.OrderShipped(ctx, order, dispatched.TrackingNumber)

	h.writeJSON(ctx, w, http.StatusOK, dispatched)
}

func (h *Handlers) AdminCancelOrder(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, models.StatusAnnulee)
}

func (h *Handlers) AdminMarkUnreachable(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, models.StatusInjoignable)
}

func (h *Handlers) AdminMarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, models.StatusLivree)
}

func (h *Handlers) adminTransition(w http.ResponseWriter, r *http.Request, to models.OrderStatus) {
	ctx := r.Context()

	orderID, err := orderIDFromRequest(r)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := h.orderStore.GetByID(ctx, orderID)
	if err != nil {
		h.writeNotFoundOrError(ctx, w, orderID, err)
		return
	}

	if err := h.orderStore.Transition(ctx, orderID, to); err != nil {
		h.writeTransitionError(ctx, w, err)
		return
	}
	h.events.PublishStatusChange(ctx, order, order.Status, to)
	h.loggerFromContext(ctx).Info("order status changed", "order_id", orderID, "from", order.Status, "to", to)

	h.writeJSON(ctx, w, http.StatusOK, map[string]any{"status": to})
}

// AdminOrderSyncLogs returns the audit trail for one order.
func (h *Handlers) AdminOrderSyncLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := orderIDFromRequest(r)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid order id")
		return
	}
	logs, err := h.syncLogStore.ListByOrder(ctx, orderID)
	if err != nil {
		h.loggerFromContext(ctx).Error("failed to list sync logs", "order_id", orderID, "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "failed to load sync logs")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *Handlers) writeNotFoundOrError(ctx context.Context, w http.ResponseWriter, orderID int64, err error) {
	if errors.Is(err, db.ErrNotFound) {
		h.writeError(ctx, w, http.StatusNotFound, "order not found")
		return
	}
	h.loggerFromContext(ctx).Error("failed to load order", "order_id", orderID, "error", err)
	h.writeError(ctx, w, http.StatusInternalServerError, "failed to load order")
}

func (h *Handlers) writeTransitionError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrInvalidStatusTransition) {
		h.writeError(ctx, w, http.StatusConflict, "status transition not allowed")
		return
	}
	if errors.Is(err, db.ErrNotFound) {
		h.writeError(ctx, w, http.StatusNotFound, "order not found")
		return
	}
	h.loggerFromContext(ctx).Error("failed to update order status", "error", err)
	h.writeError(ctx, w, http.StatusInternalServerError, "failed to update order")
}
