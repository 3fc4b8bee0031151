// ABOUTME: Escalation service: loads recorded facts, builds the payload, delivers it
// ABOUTME: Satisfies the Escalator dependency of dispatch and settlement

package escalate

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/2389/maitred/internal/store"
)

// EscalateStore is what the service reads and appends. Everything here is
// already-recorded data; no live catalog or processor calls.
type EscalateStore interface {
	GetOrder(ctx context.Context, id string) (*store.Order, error)
	GetGuest(ctx context.Context, id string) (*store.Guest, error)
	GetHotel(ctx context.Context, id string) (*store.Hotel, error)
	GetRestaurant(ctx context.Context, id string) (*store.Restaurant, error)
	LatestOrderEvent(ctx context.Context, orderID string, typ store.EventType) (*store.OrderEvent, error)
	AppendOrderEvent(ctx context.Context, orderID string, typ store.EventType, payload any) (*store.OrderEvent, error)
}

// Service assembles and delivers escalations. A nil links signer leaves
// AdminURL empty; a nil notifier falls back to logging.
type Service struct {
	store    EscalateStore
	notifier Notifier
	links    *LinkSigner
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(s EscalateStore, notifier Notifier, links *LinkSigner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = &LogNotifier{Logger: logger}
	}
	return &Service{
		store:    s,
		notifier: notifier,
		links:    links,
		now:      time.Now,
		logger:   logger.With("component", "escalate"),
	}
}

// artifactLine is the shared item shape of the placement and checkout
// artifacts; only name and quantity survive into the page.
type artifactLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Escalate builds, records and delivers a page for the order. It never
// returns an error: by the time settlement escalates, the order is already
// in a critical state and the webhook caller must not see delivery faults.
func (s *Service) Escalate(ctx context.Context, orderID, reason, stage, message string) {
	payload := s.build(ctx, orderID, reason, stage, message)

	if _, err := s.store.AppendOrderEvent(ctx, orderID, store.EventEscalation, payload); err != nil {
		s.logger.Error("recording escalation", "order", orderID, "error", err)
	}
	if err := s.notifier.Notify(ctx, payload); err != nil {
		s.logger.Error("delivering escalation", "order", orderID, "reason", reason, "error", err)
		return
	}
	s.logger.Info("escalation delivered", "order", orderID, "reason", reason)
}

// build gathers whatever facts are loadable. Lookups that fail leave their
// fields empty rather than blocking the page.
func (s *Service) build(ctx context.Context, orderID, reason, stage, message string) Payload {
	in := BuildInput{
		OrderID:  orderID,
		Reason:   reason,
		Stage:    stage,
		Message:  message,
		IssuedAt: s.now().UTC(),
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		s.logger.Error("loading order for escalation", "order", orderID, "error", err)
		return Build(in)
	}
	in.GuestName = order.GuestName
	in.GuestPhone = order.GuestPhone
	in.Total = order.Total
	in.Currency = order.Currency
	in.Items = s.loadItems(ctx, orderID)

	if guest, err := s.store.GetGuest(ctx, order.GuestID); err == nil {
		in.GuestRoom = guest.Room
		if in.GuestName == "" {
			in.GuestName = guest.Name
		}
	}
	if hotel, err := s.store.GetHotel(ctx, order.HotelID); err == nil {
		in.HotelName = hotel.Name
	}
	if restaurant, err := s.store.GetRestaurant(ctx, order.RestaurantID); err == nil {
		in.RestaurantName = restaurant.Name
	}
	if s.links != nil {
		if link, err := s.links.Sign(orderID); err == nil {
			in.AdminURL = link
		} else {
			s.logger.Error("signing admin link", "order", orderID, "error", err)
		}
	}
	return Build(in)
}

// loadItems prefers the frozen placement artifact and falls back to the
// checkout artifact when the failure happened before dispatch.
func (s *Service) loadItems(ctx context.Context, orderID string) []Line {
	for _, typ := range []store.EventType{store.EventPlacement, store.EventCheckout} {
		event, err := s.store.LatestOrderEvent(ctx, orderID, typ)
		if err != nil {
			continue
		}
		var artifact struct {
			Items []artifactLine `json:"items"`
		}
		if err := json.Unmarshal(event.Payload, &artifact); err != nil || len(artifact.Items) == 0 {
			continue
		}
		lines := make([]Line, 0, len(artifact.Items))
		for _, item := range artifact.Items {
			lines = append(lines, Line{Name: item.Name, Quantity: item.Quantity})
		}
		return lines
	}
	return nil
}
