// ABOUTME: HTTP handler for the placement agent callback
// ABOUTME: Bearer check first, then the capture/release state machine

package settlement

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/2389/maitred/internal/payment"
	"github.com/2389/maitred/internal/store"
)

// Callback is the body the agent posts after a placement attempt. Data
// carries whatever the agent scraped (confirmation number, ETA); it is
// recorded opaquely.
type Callback struct {
	OrderID string          `json:"orderId"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

// SettlementStore is what the handler needs from persistence.
type SettlementStore interface {
	GetOrder(ctx context.Context, id string) (*store.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, next store.OrderStatus) error
	GetPaymentByOrderID(ctx context.Context, orderID string) (*store.Payment, error)
	UpdatePaymentStatus(ctx context.Context, intentID string, status store.PaymentStatus) error
	AppendOrderEvent(ctx context.Context, orderID string, typ store.EventType, payload any) (*store.OrderEvent, error)
}

// Escalator receives the reconciliation failures a human has to resolve.
type Escalator interface {
	Escalate(ctx context.Context, orderID, reason, stage, message string)
}

// Handler settles one placement attempt per callback. It is safe against
// agent retries: a terminal order acknowledges without touching money.
type Handler struct {
	store     SettlementStore
	processor payment.Processor
	escalator Escalator
	secret    string
	logger    *slog.Logger
}

func NewHandler(s SettlementStore, p payment.Processor, e Escalator, secret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:     s,
		processor: p,
		escalator: e,
		secret:    secret,
		logger:    logger.With("component", "settlement"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	// Secret check happens before the body is read or any row is loaded.
	if !h.authorized(r.Header.Get("Authorization")) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var cb Callback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil || cb.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid callback body"})
		return
	}

	status, resp := h.settle(r.Context(), cb)
	writeJSON(w, status, resp)
}

func (h *Handler) authorized(header string) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

func (h *Handler) settle(ctx context.Context, cb Callback) (int, map[string]string) {
	order, err := h.store.GetOrder(ctx, cb.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return http.StatusNotFound, map[string]string{"error": "order not found"}
		}
		h.logger.Error("loading order", "order", cb.OrderID, "error", err)
		return http.StatusInternalServerError, map[string]string{"error": "order lookup failed"}
	}

	// Redelivered callback for an order already settled either way.
	if order.Status.Terminal() {
		h.logger.Info("callback for settled order ignored", "order", order.ID, "status", order.Status)
		return http.StatusOK, map[string]string{"status": string(order.Status)}
	}
	if order.Status != store.OrderDispatched {
		h.logger.Warn("callback before dispatch ignored", "order", order.ID, "status", order.Status)
		return http.StatusOK, map[string]string{"status": string(order.Status)}
	}

	if cb.Success {
		return h.settleSuccess(ctx, order, cb)
	}
	return h.settleFailure(ctx, order, cb)
}

// settleSuccess captures the hold. A capture failure is the worst state in
// the system: the restaurant has the order but the money is still only
// reserved, so nothing is retried and a human is paged.
func (h *Handler) settleSuccess(ctx context.Context, order *store.Order, cb Callback) (int, map[string]string) {
	pay, err := h.store.GetPaymentByOrderID(ctx, order.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return http.StatusNotFound, map[string]string{"error": "payment not found"}
		}
		h.logger.Error("loading payment", "order", order.ID, "error", err)
		return http.StatusInternalServerError, map[string]string{"error": "payment lookup failed"}
	}

	// A redelivered callback can arrive after the capture landed but before
	// the order status write did. The hold must not be captured twice.
	if pay.Status != store.PaymentSucceeded {
		if err := h.processor.Capture(ctx, pay.ProviderIntentID); err != nil {
			h.recordFailure(ctx, order.ID, "capture", err)
			if sErr := h.store.UpdateOrderStatus(ctx, order.ID, store.OrderPlacedButUncaptured); sErr != nil {
				h.logger.Error("marking order uncaptured", "order", order.ID, "error", sErr)
			}
			h.escalate(ctx, order.ID, "capture failed", "capture", err.Error())
			return http.StatusInternalServerError, map[string]string{"error": "capture failed"}
		}

		if err := h.store.UpdatePaymentStatus(ctx, pay.ProviderIntentID, store.PaymentSucceeded); err != nil {
			h.logger.Error("marking payment succeeded", "order", order.ID, "error", err)
		}
		if _, err := h.store.AppendOrderEvent(ctx, order.ID, store.EventCapture, map[string]any{
			"intentId": pay.ProviderIntentID,
			"amount":   pay.Amount,
			"data":     cb.Data,
		}); err != nil {
			h.logger.Error("recording capture", "order", order.ID, "error", err)
		}
	}
	if err := h.store.UpdateOrderStatus(ctx, order.ID, store.OrderConfirmedAndPaid); err != nil {
		h.logger.Error("marking order paid", "order", order.ID, "error", err)
		return http.StatusInternalServerError, map[string]string{"error": "status update failed"}
	}

	h.logger.Info("order captured", "order", order.ID, "intent", pay.ProviderIntentID)
	return http.StatusOK, map[string]string{"status": string(store.OrderConfirmedAndPaid)}
}

// settleFailure releases the hold. No escalation on the clean path: the
// guest simply gets their reservation back.
func (h *Handler) settleFailure(ctx context.Context, order *store.Order, cb Callback) (int, map[string]string) {
	reason := cb.Reason
	if reason == "" {
		reason = cb.Error
	}

	pay, err := h.store.GetPaymentByOrderID(ctx, order.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("loading payment", "order", order.ID, "error", err)
		return http.StatusInternalServerError, map[string]string{"error": "payment lookup failed"}
	}

	// Agent failed and no money is held: plain bot failure, nothing to
	// release, but still a human-visible outcome.
	if pay == nil || pay.Status != store.PaymentAuthorized {
		if sErr := h.store.UpdateOrderStatus(ctx, order.ID, store.OrderBotFailed); sErr != nil {
			h.logger.Error("marking order bot_failed", "order", order.ID, "error", sErr)
		}
		h.recordFailure(ctx, order.ID, "placement", fmt.Errorf("agent reported failure: %s", reason))
		h.escalate(ctx, order.ID, "placement failed", "placement", reason)
		return http.StatusOK, map[string]string{"status": string(store.OrderBotFailed)}
	}

	if err := h.processor.Cancel(ctx, pay.ProviderIntentID); err != nil {
		h.recordFailure(ctx, order.ID, "cancel", err)
		if sErr := h.store.UpdateOrderStatus(ctx, order.ID, store.OrderCancelFailed); sErr != nil {
			h.logger.Error("marking order cancel_failed", "order", order.ID, "error", sErr)
		}
		h.escalate(ctx, order.ID, "hold release failed", "cancel", err.Error())
		return http.StatusInternalServerError, map[string]string{"error": "cancel failed"}
	}

	if err := h.store.UpdatePaymentStatus(ctx, pay.ProviderIntentID, store.PaymentCancelled); err != nil {
		h.logger.Error("marking payment cancelled", "order", order.ID, "error", err)
	}
	if _, err := h.store.AppendOrderEvent(ctx, order.ID, store.EventCancel, map[string]any{
		"intentId": pay.ProviderIntentID,
		"reason":   reason,
	}); err != nil {
		h.logger.Error("recording cancel", "order", order.ID, "error", err)
	}
	if err := h.store.UpdateOrderStatus(ctx, order.ID, store.OrderCancelled); err != nil {
		h.logger.Error("marking order cancelled", "order", order.ID, "error", err)
		return http.StatusInternalServerError, map[string]string{"error": "status update failed"}
	}

	h.logger.Info("order cancelled, hold released", "order", order.ID, "reason", reason)
	return http.StatusOK, map[string]string{"status": string(store.OrderCancelled)}
}

func (h *Handler) recordFailure(ctx context.Context, orderID, stage string, err error) {
	if _, evErr := h.store.AppendOrderEvent(ctx, orderID, store.EventFailure, map[string]string{
		"stage":   stage,
		"message": err.Error(),
	}); evErr != nil {
		h.logger.Error("recording settlement failure", "order", orderID, "error", evErr)
	}
}

func (h *Handler) escalate(ctx context.Context, orderID, reason, stage, message string) {
	if h.escalator == nil {
		return
	}
	h.escalator.Escalate(ctx, orderID, reason, stage, message)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
