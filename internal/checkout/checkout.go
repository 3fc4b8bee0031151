// ABOUTME: Checkout/hold manager: fee math, order creation, manual-capture authorization
// ABOUTME: Opens the hold and nothing else; capture and release belong to settlement

package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/2389/maitred/internal/compile"
	"github.com/2389/maitred/internal/payment"
	"github.com/2389/maitred/internal/store"
)

// DefaultMinimumCharge is the floor, in minor units, below which the
// processor rejects a charge.
const DefaultMinimumCharge = 50

// ErrNotReady is returned when the compiled order is not ready_to_execute.
var ErrNotReady = errors.New("compiled order is not ready to execute")

// CheckoutStore is what checkout needs from persistence.
type CheckoutStore interface {
	GetRestaurant(ctx context.Context, id string) (*store.Restaurant, error)
	GetGuest(ctx context.Context, id string) (*store.Guest, error)
	CreateOrder(ctx context.Context, order *store.Order) error
	UpsertPayment(ctx context.Context, p *store.Payment) error
	AppendOrderEvent(ctx context.Context, orderID string, typ store.EventType, payload any) (*store.OrderEvent, error)
}

// Manager creates orders and opens payment holds.
type Manager struct {
	store         CheckoutStore
	processor     payment.Processor
	minimumCharge int64
	logger        *slog.Logger
}

// NewManager creates a checkout manager. minimumCharge of zero means the
// default floor.
func NewManager(s CheckoutStore, p payment.Processor, minimumCharge int64, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if minimumCharge <= 0 {
		minimumCharge = DefaultMinimumCharge
	}
	return &Manager{
		store:         s,
		processor:     p,
		minimumCharge: minimumCharge,
		logger:        logger.With("component", "checkout"),
	}
}

// Request is one checkout attempt.
type Request struct {
	Compiled        *compile.Result
	RestaurantID    string
	GuestID         string
	DeliveryAddress string
	Apartment       string
	Tip             float64
	Currency        string
}

// Totals is the fee breakdown recorded on the order and in its event log.
type Totals struct {
	Subtotal     float64 `json:"subtotal"`
	ServiceFee   float64 `json:"serviceFee"`
	DeliveryFee  float64 `json:"deliveryFee"`
	Tip          float64 `json:"tip"`
	Total        float64 `json:"total"`
	ChargeAmount int64   `json:"chargeAmount"`
}

// ComputeTotals derives fees from the compiled subtotal and the restaurant's
// fee configuration. The charge amount is integer minor units floored to the
// processor minimum.
func ComputeTotals(subtotal float64, r *store.Restaurant, tip float64, minimumCharge int64) Totals {
	serviceFee := compile.Round2(subtotal * r.ServiceFeePercent / 100)
	total := compile.Round2(subtotal + serviceFee + r.DeliveryFee + tip)
	charge := compile.MinorUnits(total)
	if charge < minimumCharge {
		charge = minimumCharge
	}
	return Totals{
		Subtotal:     subtotal,
		ServiceFee:   serviceFee,
		DeliveryFee:  r.DeliveryFee,
		Tip:          tip,
		Total:        total,
		ChargeAmount: charge,
	}
}

// Checkout creates the order row (status pending) and opens a
// manual-capture authorization tagged with the order id. Funds are reserved
// here, never moved; this manager never captures or cancels.
func (m *Manager) Checkout(ctx context.Context, req Request) (*store.Order, error) {
	if req.Compiled == nil || req.Compiled.Status != compile.StatusReady {
		return nil, ErrNotReady
	}

	restaurant, err := m.store.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("loading restaurant: %w", err)
	}
	guest, err := m.store.GetGuest(ctx, req.GuestID)
	if err != nil {
		return nil, fmt.Errorf("loading guest: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}
	totals := ComputeTotals(req.Compiled.Subtotal, restaurant, req.Tip, m.minimumCharge)

	order := &store.Order{
		ID:              uuid.NewString(),
		RestaurantID:    restaurant.ID,
		HotelID:         restaurant.HotelID,
		GuestID:         guest.ID,
		GuestName:       guest.Name,
		GuestPhone:      guest.Phone,
		GuestEmail:      guest.Email,
		DeliveryAddress: req.DeliveryAddress,
		Apartment:       req.Apartment,
		Subtotal:        totals.Subtotal,
		ServiceFee:      totals.ServiceFee,
		DeliveryFee:     totals.DeliveryFee,
		Tip:             totals.Tip,
		Total:           totals.Total,
		ChargeAmount:    totals.ChargeAmount,
		Currency:        currency,
		Status:          store.OrderPending,
	}
	if err := m.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	// The compiled result is frozen into the event log now so every later
	// stage (dispatch, escalation) reads durable data, never the live catalog.
	if _, err := m.store.AppendOrderEvent(ctx, order.ID, store.EventCheckout, map[string]any{
		"items":  req.Compiled.Items,
		"totals": totals,
	}); err != nil {
		return nil, fmt.Errorf("recording checkout event: %w", err)
	}

	intent, err := m.processor.Authorize(ctx, payment.AuthorizeParams{
		OrderID:    order.ID,
		Amount:     totals.ChargeAmount,
		Currency:   currency,
		GuestEmail: guest.Email,
	})
	if err != nil {
		if _, evErr := m.store.AppendOrderEvent(ctx, order.ID, store.EventFailure, map[string]string{
			"stage":   "authorization_request",
			"message": err.Error(),
		}); evErr != nil {
			m.logger.Error("recording authorization failure", "order", order.ID, "error", evErr)
		}
		return nil, fmt.Errorf("opening authorization: %w", err)
	}

	if err := m.store.UpsertPayment(ctx, &store.Payment{
		ID:               uuid.NewString(),
		OrderID:          order.ID,
		ProviderIntentID: intent.ID,
		Amount:           intent.Amount,
		Currency:         intent.Currency,
		Status:           store.PaymentPending,
		ProviderMetadata: intent.Raw,
	}); err != nil {
		return nil, fmt.Errorf("recording payment: %w", err)
	}

	m.logger.Info("hold opened",
		"order", order.ID, "intent", intent.ID, "amount", totals.ChargeAmount)
	return order, nil
}
