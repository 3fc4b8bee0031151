// ABOUTME: Carrier webhook handler and order correlation for status texts
// ABOUTME: Always acknowledges the carrier; internal outcomes never leak upstream

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/maitred/internal/dedupe"
	"github.com/2389/maitred/internal/store"
)

// statusCacheTTL bounds how long a restaurant's last reported label is
// served without a fresh inbound message.
const statusCacheTTL = 15 * time.Minute

// RelayStore is what the relay needs from persistence.
type RelayStore interface {
	FindOrderByConfirmation(ctx context.Context, confirmation string) (*store.Order, error)
	ListActiveOrders(ctx context.Context) ([]*store.Order, error)
	GetRestaurant(ctx context.Context, id string) (*store.Restaurant, error)
	AppendOrderEvent(ctx context.Context, orderID string, typ store.EventType, payload any) (*store.OrderEvent, error)
	CachePut(ctx context.Context, key, value string, ttl time.Duration) error
	CacheGet(ctx context.Context, key string) (string, error)
}

// OrderCorrelator picks the order a status message is about. The default
// implementation falls back to the most recently created active order when
// no confirmation number matches, which can misattribute under concurrent
// orders; callers swap in a stricter correlator when one exists.
type OrderCorrelator interface {
	Correlate(ctx context.Context, confirmation string) (*store.Order, error)
}

// StoreCorrelator implements OrderCorrelator on the order store.
type StoreCorrelator struct {
	Store RelayStore
}

func (c *StoreCorrelator) Correlate(ctx context.Context, confirmation string) (*store.Order, error) {
	if confirmation != "" {
		order, err := c.Store.FindOrderByConfirmation(ctx, confirmation)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	active, err := c.Store.ListActiveOrders(ctx)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, store.ErrNotFound
	}
	return active[0], nil
}

// Messenger sends an outbound guest message. Delivery failures are logged
// and never surfaced to the carrier.
type Messenger interface {
	Send(ctx context.Context, to, body string) error
}

// Handler receives the carrier's form-encoded webhook.
type Handler struct {
	store      RelayStore
	parser     Parser
	correlator OrderCorrelator
	messenger  Messenger
	seen       *dedupe.Cache
	logger     *slog.Logger
}

func NewHandler(s RelayStore, parser Parser, correlator OrderCorrelator, messenger Messenger, seen *dedupe.Cache, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if parser == nil {
		parser = KeywordParser{}
	}
	if correlator == nil {
		correlator = &StoreCorrelator{Store: s}
	}
	return &Handler{
		store:      s,
		parser:     parser,
		correlator: correlator,
		messenger:  messenger,
		seen:       seen,
		logger:     logger.With("component", "relay"),
	}
}

// ServeHTTP always returns 200 with an empty response body so the carrier
// never retries, whatever happened inside.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer acknowledge(w)

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("unparseable carrier webhook", "error", err)
		return
	}
	body := r.PostFormValue("Body")
	from := r.PostFormValue("From")
	sid := r.PostFormValue("MessageSid")

	if sid != "" && h.seen != nil && h.seen.CheckAndMark("carrier:"+sid) {
		h.logger.Debug("duplicate carrier message", "sid", sid)
		return
	}

	update, ok := h.parser.Parse(body)
	if !ok {
		h.logger.Debug("unrecognized carrier message dropped", "from", from)
		return
	}

	ctx := r.Context()
	order, err := h.correlator.Correlate(ctx, update.Confirmation)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.logger.Info("status update with no active order", "label", update.Label, "from", from)
		} else {
			h.logger.Error("correlating status update", "error", err)
		}
		return
	}

	if _, err := h.store.AppendOrderEvent(ctx, order.ID, store.EventRelay, map[string]string{
		"label":        update.Label,
		"confirmation": update.Confirmation,
		"from":         from,
		"messageSid":   sid,
		"body":         update.Raw,
	}); err != nil {
		h.logger.Error("recording relay event", "order", order.ID, "error", err)
		return
	}

	if err := h.store.CachePut(ctx, statusCacheKey(order.RestaurantID), update.Label, statusCacheTTL); err != nil {
		h.logger.Error("caching restaurant status", "restaurant", order.RestaurantID, "error", err)
	}

	h.notifyGuest(ctx, order, update)
	h.logger.Info("status update relayed", "order", order.ID, "label", update.Label)
}

// notifyGuest forwards a translated status message when a guest phone is
// on file.
func (h *Handler) notifyGuest(ctx context.Context, order *store.Order, update *Update) {
	if h.messenger == nil || order.GuestPhone == "" {
		return
	}
	restaurantName := "the restaurant"
	if restaurant, err := h.store.GetRestaurant(ctx, order.RestaurantID); err == nil {
		restaurantName = restaurant.Name
	}
	if err := h.messenger.Send(ctx, order.GuestPhone, GuestMessage(update.Label, restaurantName)); err != nil {
		h.logger.Error("sending guest status message", "order", order.ID, "error", err)
	}
}

// GuestMessage translates a fulfillment label into guest-facing text.
func GuestMessage(label, restaurantName string) string {
	switch label {
	case LabelConfirmed:
		return fmt.Sprintf("%s has confirmed your order.", restaurantName)
	case LabelPreparing:
		return fmt.Sprintf("%s is preparing your order.", restaurantName)
	case LabelReady:
		return fmt.Sprintf("Your order from %s is ready.", restaurantName)
	case LabelOutForDelivery:
		return fmt.Sprintf("Your order from %s is out for delivery.", restaurantName)
	case LabelDelivered:
		return fmt.Sprintf("Your order from %s has been delivered. Enjoy!", restaurantName)
	case LabelDelayed:
		return fmt.Sprintf("Your order from %s is running a little late.", restaurantName)
	case LabelCancelled:
		return fmt.Sprintf("%s was unable to fulfill your order. Our team is on it.", restaurantName)
	default:
		return fmt.Sprintf("Update from %s: %s", restaurantName, label)
	}
}

// LastReported returns the restaurant's most recent cached status label,
// or ErrNotFound once the cache entry expires.
func (h *Handler) LastReported(ctx context.Context, restaurantID string) (string, error) {
	return h.store.CacheGet(ctx, statusCacheKey(restaurantID))
}

func statusCacheKey(restaurantID string) string {
	return "relay:status:" + restaurantID
}

func acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<Response></Response>"))
}
