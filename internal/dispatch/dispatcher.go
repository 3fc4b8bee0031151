// ABOUTME: Fulfillment dispatcher: confirmed order → frozen artifact → queued placement job
// ABOUTME: Fire-and-forget; all later progress arrives through the agent callback

package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/2389/maitred/internal/checkout"
	"github.com/2389/maitred/internal/compile"
	"github.com/2389/maitred/internal/queue"
	"github.com/2389/maitred/internal/store"
)

// DispatchStore is what the dispatcher needs from persistence.
type DispatchStore interface {
	GetOrder(ctx context.Context, id string) (*store.Order, error)
	GetRestaurant(ctx context.Context, id string) (*store.Restaurant, error)
	UpdateOrderStatus(ctx context.Context, id string, next store.OrderStatus) error
	LatestOrderEvent(ctx context.Context, orderID string, typ store.EventType) (*store.OrderEvent, error)
	AppendOrderEvent(ctx context.Context, orderID string, typ store.EventType, payload any) (*store.OrderEvent, error)
}

// Escalator receives terminal failures the dispatcher cannot resolve.
type Escalator interface {
	Escalate(ctx context.Context, orderID, reason, stage, message string)
}

// Dispatcher builds placement jobs from frozen checkout artifacts and
// publishes them with per-order ordering.
type Dispatcher struct {
	store       DispatchStore
	publisher   queue.Publisher
	escalator   Escalator
	callbackURL string
	secret      string
	now         func() time.Time
	logger      *slog.Logger
}

// New creates a dispatcher. callbackURL is the settlement endpoint the agent
// calls back; secret authenticates that callback.
func New(s DispatchStore, p queue.Publisher, e Escalator, callbackURL, secret string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:       s,
		publisher:   p,
		escalator:   e,
		callbackURL: callbackURL,
		secret:      secret,
		now:         time.Now,
		logger:      logger.With("component", "dispatch"),
	}
}

// checkoutEvent mirrors the payload written by checkout.
type checkoutEvent struct {
	Items  []compile.Item  `json:"items"`
	Totals checkout.Totals `json:"totals"`
}

// placementEvent is the frozen guest-visible artifact recorded at dispatch
// time. Escalation and status display read this, never the live catalog.
type placementEvent struct {
	Items    []JobItem `json:"items"`
	DedupKey string    `json:"dedupKey"`
	QueuedAt time.Time `json:"queuedAt"`
}

// Dispatch moves a pending order to confirmed, freezes the artifact, queues
// the placement job and marks the order dispatched. Called when the
// processor confirms the authorization. A non-pending order is a no-op so
// webhook retries cannot double-dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, orderID string) error {
	order, err := d.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("loading order: %w", err)
	}
	if order.Status != store.OrderPending {
		d.logger.Debug("dispatch skipped", "order", orderID, "status", order.Status)
		return nil
	}

	if err := d.store.UpdateOrderStatus(ctx, orderID, store.OrderConfirmed); err != nil {
		return fmt.Errorf("confirming order: %w", err)
	}

	restaurant, err := d.store.GetRestaurant(ctx, order.RestaurantID)
	if err != nil {
		return d.fail(ctx, orderID, "loading restaurant", err)
	}

	frozen, err := d.store.LatestOrderEvent(ctx, orderID, store.EventCheckout)
	if err != nil {
		return d.fail(ctx, orderID, "loading checkout artifact", err)
	}
	var artifact checkoutEvent
	if err := json.Unmarshal(frozen.Payload, &artifact); err != nil {
		return d.fail(ctx, orderID, "decoding checkout artifact", err)
	}

	items := make([]JobItem, 0, len(artifact.Items))
	for _, item := range artifact.Items {
		modifiers := make([]string, 0, len(item.Modifiers))
		for _, m := range item.Modifiers {
			modifiers = append(modifiers, m.OptionName)
		}
		items = append(items, JobItem{
			Name:                item.Name,
			Quantity:            item.Quantity,
			Modifiers:           modifiers,
			SpecialInstructions: item.SpecialInstructions,
		})
	}

	job := PlacementJob{
		Cmd:     "place-order",
		OrderID: order.ID,
		URL:     restaurant.URL,
		Items:   items,
		Guest: JobGuest{
			Name:  order.GuestName,
			Email: order.GuestEmail,
			Phone: order.GuestPhone,
		},
		DeliveryAddress: order.DeliveryAddress,
		Apartment:       order.Apartment,
		CallbackURL:     d.callbackURL,
		CallbackSecret:  d.secret,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return d.fail(ctx, orderID, "encoding placement job", err)
	}

	// Time-varying attempt key: a deliberate resubmission after a failure is
	// a new attempt, while a double-enqueue inside this one collapses.
	dedupKey := fmt.Sprintf("%s-%d-%s", order.ID, d.now().UnixNano(), uuid.NewString()[:8])

	if _, err := d.store.AppendOrderEvent(ctx, orderID, store.EventPlacement, placementEvent{
		Items:    items,
		DedupKey: dedupKey,
		QueuedAt: d.now().UTC(),
	}); err != nil {
		return d.fail(ctx, orderID, "recording placement artifact", err)
	}

	if err := d.publisher.Publish(ctx, queue.Message{
		Partition: PartitionKey(order.ID),
		DedupKey:  dedupKey,
		Body:      body,
	}); err != nil {
		return d.fail(ctx, orderID, "queueing placement job", err)
	}

	if err := d.store.UpdateOrderStatus(ctx, orderID, store.OrderDispatched); err != nil {
		return fmt.Errorf("marking order dispatched: %w", err)
	}

	d.logger.Info("placement job dispatched", "order", orderID, "restaurant", restaurant.ID)
	return nil
}

// fail records an external-dependency failure and escalates; the error is
// also returned so the caller can log it.
func (d *Dispatcher) fail(ctx context.Context, orderID, stage string, err error) error {
	if _, evErr := d.store.AppendOrderEvent(ctx, orderID, store.EventFailure, map[string]string{
		"stage":   stage,
		"message": err.Error(),
	}); evErr != nil {
		d.logger.Error("recording dispatch failure", "order", orderID, "error", evErr)
	}
	if d.escalator != nil {
		d.escalator.Escalate(ctx, orderID, "dispatch failed", stage, err.Error())
	}
	return fmt.Errorf("%s: %w", stage, err)
}
