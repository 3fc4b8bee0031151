// ABOUTME: HTTP handler for provider authorization webhooks
// ABOUTME: Verifies the signature, idempotently upserts the payment, triggers dispatch

package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/2389/maitred/internal/dedupe"
	"github.com/2389/maitred/internal/store"
)

// PaymentStore is what the webhook handler needs from persistence.
type PaymentStore interface {
	GetPaymentByIntentID(ctx context.Context, intentID string) (*store.Payment, error)
	UpsertPayment(ctx context.Context, p *store.Payment) error
	GetOrder(ctx context.Context, id string) (*store.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, next store.OrderStatus) error
	AppendOrderEvent(ctx context.Context, orderID string, typ store.EventType, payload any) (*store.OrderEvent, error)
}

// Dispatcher hands a confirmed order to the fulfillment stage.
type Dispatcher interface {
	Dispatch(ctx context.Context, orderID string) error
}

// WebhookHandler processes signed provider events. Handlers always return
// success once the event is durably recorded or known to be a duplicate, so
// the provider does not retry forever.
type WebhookHandler struct {
	store      PaymentStore
	dispatcher Dispatcher
	secret     []byte
	seen       *dedupe.Cache
	now        func() time.Time
	logger     *slog.Logger
}

// NewWebhookHandler creates the handler. seen may be nil, in which case a
// default retry-storm cache is created.
func NewWebhookHandler(ps PaymentStore, d Dispatcher, secret []byte, seen *dedupe.Cache, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if seen == nil {
		seen = dedupe.New(10*time.Minute, 4096)
	}
	return &WebhookHandler{
		store:      ps,
		dispatcher: d,
		secret:     secret,
		seen:       seen,
		now:        time.Now,
		logger:     logger.With("component", "payment-webhook"),
	}
}

// ServeHTTP implements the POST /webhooks/payments endpoint.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	// Signature check precedes everything else, including parsing.
	if err := VerifySignature(body, r.Header.Get(SignatureHeader), h.secret, h.now(), DefaultTolerance); err != nil {
		h.logger.Warn("rejected webhook", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	event, err := ParseEvent(body)
	if err != nil {
		http.Error(w, "malformed event", http.StatusBadRequest)
		return
	}

	if h.seen.CheckAndMark("payment:" + event.ID) {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.handleEvent(r.Context(), event, body); err != nil {
		h.logger.Error("webhook processing failed", "event", event.ID, "error", err)
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleEvent(ctx context.Context, event *Event, raw []byte) error {
	var status store.PaymentStatus
	switch event.Type {
	case EventAuthorizationSucceeded:
		status = store.PaymentAuthorized
	case EventAuthorizationFailed:
		status = store.PaymentFailed
	case EventAuthorizationCancelled:
		status = store.PaymentCancelled
	default:
		h.logger.Debug("ignoring event type", "type", event.Type)
		return nil
	}

	orderID := event.OrderID()
	paymentID := uuid.NewString()
	if existing, err := h.store.GetPaymentByIntentID(ctx, event.Data.Intent.ID); err == nil {
		paymentID = existing.ID
		if orderID == "" {
			orderID = existing.OrderID
		}
		// Re-delivery of an outcome we already recorded: nothing to redo.
		if existing.Status == status || !existing.Status.Upgradable(status) {
			return nil
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if err := h.store.UpsertPayment(ctx, &store.Payment{
		ID:               paymentID,
		OrderID:          orderID,
		ProviderIntentID: event.Data.Intent.ID,
		Amount:           event.Data.Intent.Amount,
		Currency:         event.Data.Intent.Currency,
		Status:           status,
		ProviderMetadata: string(raw),
	}); err != nil {
		return err
	}

	if orderID == "" {
		h.logger.Warn("authorization event without order id", "intent", event.Data.Intent.ID)
		return nil
	}

	if _, err := h.store.AppendOrderEvent(ctx, orderID, store.EventAuthorization, map[string]any{
		"intentId": event.Data.Intent.ID,
		"type":     event.Type,
		"amount":   event.Data.Intent.Amount,
	}); err != nil {
		return err
	}

	switch status {
	case store.PaymentAuthorized:
		// Dispatch only moves a pending order; a retried webhook against an
		// already-confirmed order is a no-op inside Dispatch.
		if err := h.dispatcher.Dispatch(ctx, orderID); err != nil {
			h.logger.Error("dispatch after authorization failed", "order", orderID, "error", err)
		}
	case store.PaymentFailed, store.PaymentCancelled:
		if err := h.cancelPendingOrder(ctx, orderID, event.Type); err != nil {
			h.logger.Error("cancelling unauthorized order failed", "order", orderID, "error", err)
		}
	}
	return nil
}

// cancelPendingOrder abandons an order whose authorization never landed.
func (h *WebhookHandler) cancelPendingOrder(ctx context.Context, orderID, reason string) error {
	order, err := h.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != store.OrderPending {
		return nil
	}
	if _, err := h.store.AppendOrderEvent(ctx, orderID, store.EventFailure, map[string]string{
		"stage":  "authorization",
		"reason": reason,
	}); err != nil {
		return err
	}
	return h.store.UpdateOrderStatus(ctx, orderID, store.OrderCancelled)
}
