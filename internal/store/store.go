// ABOUTME: Core data types and errors for maitred persistence
// ABOUTME: Defines Order, Payment, OrderEvent and the status enums they carry

package store

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when an order status change is not
// permitted from the order's current status
var ErrInvalidTransition = errors.New("invalid status transition")

// OrderStatus is the single canonical lifecycle enum for an order.
// The carrier-facing status vocabulary used by the relay is a
// presentation concern and never lands here.
type OrderStatus string

const (
	// OrderPending: order row created, authorization requested but not yet
	// confirmed by the payment processor.
	OrderPending OrderStatus = "pending"
	// OrderConfirmed: authorization confirmed, dispatch in progress.
	OrderConfirmed OrderStatus = "confirmed"
	// OrderDispatched: placement job enqueued, waiting on the agent callback.
	OrderDispatched OrderStatus = "dispatched_to_agent"
	// OrderConfirmedAndPaid: agent placed the order and the hold was captured.
	OrderConfirmedAndPaid OrderStatus = "confirmed_and_paid"
	// OrderDelivered: restaurant reported delivery. Terminal.
	OrderDelivered OrderStatus = "delivered"
	// OrderCancelled: hold released, order abandoned. Terminal.
	OrderCancelled OrderStatus = "cancelled"
	// OrderBotFailed: agent reported failure with no held funds to release.
	OrderBotFailed OrderStatus = "bot_failed"
	// OrderPlacedButUncaptured: agent placed the order but capturing the hold
	// failed. Money and the external order disagree; requires a human.
	OrderPlacedButUncaptured OrderStatus = "placed_but_uncaptured"
	// OrderCancelFailed: agent reported failure and releasing the hold also
	// failed. Requires a human.
	OrderCancelFailed OrderStatus = "cancel_failed"
)

// Terminal reports whether the status accepts no further transitions.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderDelivered, OrderCancelled, OrderBotFailed,
		OrderPlacedButUncaptured, OrderCancelFailed:
		return true
	}
	return false
}

// Active reports whether the order is still in flight from the guest's point
// of view. Used by the relay when correlating inbound restaurant messages.
func (s OrderStatus) Active() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderDispatched, OrderConfirmedAndPaid:
		return true
	}
	return false
}

// Critical reports whether the status is one of the reconciliation states
// where the payment and the external order may disagree.
func (s OrderStatus) Critical() bool {
	return s == OrderPlacedButUncaptured || s == OrderCancelFailed
}

// validTransitions maps each status to the set of statuses it may move to.
// Terminal statuses have no entries.
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderConfirmed, OrderCancelled, OrderBotFailed},
	OrderConfirmed:  {OrderDispatched, OrderCancelled, OrderBotFailed},
	OrderDispatched: {OrderConfirmedAndPaid, OrderCancelled, OrderBotFailed, OrderPlacedButUncaptured, OrderCancelFailed},
	OrderConfirmedAndPaid: {OrderDelivered},
}

// CanTransition reports whether moving from s to next is allowed.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus tracks the provider-side state of the one authoritative
// payment attached to an order.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentSucceeded  PaymentStatus = "succeeded"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
)

// paymentRank orders payment statuses by how settled they are. Webhook
// re-deliveries may only move a payment forward.
var paymentRank = map[PaymentStatus]int{
	PaymentPending:    0,
	PaymentAuthorized: 1,
	PaymentFailed:     2,
	PaymentCancelled:  2,
	PaymentSucceeded:  2,
}

// Upgradable reports whether moving to next adds information. A settled
// payment (succeeded, cancelled, failed) never regresses to authorized.
func (s PaymentStatus) Upgradable(next PaymentStatus) bool {
	return paymentRank[next] > paymentRank[s]
}

// Order is the durable record of one guest order.
// Lifecycle facts (payment breakdown, frozen item artifact, bot status,
// relay breadcrumbs) live in the append-only order_events table, never here.
type Order struct {
	ID              string
	RestaurantID    string
	HotelID         string
	GuestID         string
	GuestName       string
	GuestPhone      string
	GuestEmail      string
	DeliveryAddress string
	Apartment       string
	Subtotal        float64
	ServiceFee      float64
	DeliveryFee     float64
	Tip             float64
	Total           float64
	ChargeAmount    int64 // minor units actually held at the processor
	Currency        string
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Payment is the one authoritative payment row for an order, keyed by the
// processor's idempotent intent id so webhook retries deduplicate.
type Payment struct {
	ID               string
	OrderID          string
	ProviderIntentID string
	Amount           int64 // minor units
	Currency         string
	Status           PaymentStatus
	ProviderMetadata string // raw provider JSON, opaque to this system
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EventType tags an order event with the kind of lifecycle fact it records.
type EventType string

const (
	EventCheckout      EventType = "checkout"      // fee breakdown + compiled items at checkout time
	EventAuthorization EventType = "authorization" // processor authorization outcome
	EventPlacement     EventType = "placement"     // frozen guest-visible artifact + job info
	EventCapture       EventType = "capture"       // hold captured
	EventCancel        EventType = "cancel"        // hold released
	EventRelay         EventType = "relay"         // inbound restaurant status breadcrumb
	EventEscalation    EventType = "escalation"    // escalation issued
	EventFailure       EventType = "failure"       // external-dependency failure detail
)

// OrderEvent is one entry in an order's append-only event log. There is no
// update or delete path for events.
type OrderEvent struct {
	ID        string
	OrderID   string
	Type      EventType
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Restaurant holds the per-restaurant facts the pipeline needs: where the
// agent should place orders and how fees are computed.
type Restaurant struct {
	ID                string
	HotelID           string
	Name              string
	URL               string
	Phone             string
	DeliveryFee       float64
	ServiceFeePercent float64
	Approved          bool
}

// Hotel is a minimal collaborator row; hotel CRUD is owned elsewhere.
type Hotel struct {
	ID    string
	Name  string
	Phone string
}

// Guest is a minimal collaborator row; guest CRUD is owned elsewhere.
type Guest struct {
	ID      string
	HotelID string
	Name    string
	Phone   string
	Email   string
	Room    string
}

// MenuItem is one catalog row as produced by the menu ingestion pipeline.
// Price is kept as the ingested text; an unparseable price compiles as zero.
type MenuItem struct {
	ID           string
	RestaurantID string
	Name         string
	Description  string
	Price        string
	Approved     bool
	Available    bool
}

// ModifierGroup is a group of options attached to one menu item.
// MinSelections/MaxSelections of nil mean "not constrained"; a required
// group with nil MinSelections implies a minimum of one.
type ModifierGroup struct {
	ID            string
	MenuItemID    string
	Name          string
	Required      bool
	SingleSelect  bool
	MinSelections *int
	MaxSelections *int
	Approved      bool
	Available     bool
}

// ModifierOption is one selectable option within a modifier group.
type ModifierOption struct {
	ID        string
	GroupID   string
	Name      string
	Price     string
	Approved  bool
	Available bool
}

// OutboxMessage is one queued placement job. Messages within a partition are
// delivered in insert order; an undelivered duplicate dedup key is dropped
// at publish time.
type OutboxMessage struct {
	ID          string
	Partition   string
	DedupKey    string
	Body        []byte
	CreatedAt   time.Time
	DeliveredAt *time.Time
}
