// ABOUTME: Tests for order, payment and event persistence
// ABOUTME: Covers status transition guards, idempotent payment upserts and the event log

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testOrder(id string) *Order {
	return &Order{
		ID:           id,
		RestaurantID: "rest-1",
		HotelID:      "hotel-1",
		GuestID:      "guest-1",
		GuestName:    "Avery Jones",
		GuestPhone:   "+15550100",
		Subtotal:     24.50,
		ServiceFee:   2.45,
		DeliveryFee:  4.99,
		Total:        31.94,
		ChargeAmount: 3194,
		Currency:     "usd",
		Status:       OrderPending,
	}
}

func TestOrderRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	order := testOrder("order-1")
	require.NoError(t, s.CreateOrder(ctx, order))

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "Avery Jones", got.GuestName)
	assert.Equal(t, OrderPending, got.Status)
	assert.Equal(t, int64(3194), got.ChargeAmount)
	assert.InDelta(t, 31.94, got.Total, 0.001)
}

func TestGetOrder_NotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOrderStatus_ValidPath(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1")))

	for _, next := range []OrderStatus{OrderConfirmed, OrderDispatched, OrderConfirmedAndPaid, OrderDelivered} {
		require.NoError(t, s.UpdateOrderStatus(ctx, "order-1", next))
	}

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, OrderDelivered, got.Status)
}

func TestUpdateOrderStatus_TerminalRejectsTransition(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1")))
	require.NoError(t, s.UpdateOrderStatus(ctx, "order-1", OrderCancelled))

	err := s.UpdateOrderStatus(ctx, "order-1", OrderConfirmed)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := s.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, OrderCancelled, got.Status)
}

func TestUpdateOrderStatus_SkipsNotAllowed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1")))

	// pending cannot jump straight to dispatched
	err := s.UpdateOrderStatus(ctx, "order-1", OrderDispatched)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderStatus_Predicates(t *testing.T) {
	assert.True(t, OrderCancelled.Terminal())
	assert.True(t, OrderPlacedButUncaptured.Terminal())
	assert.True(t, OrderPlacedButUncaptured.Critical())
	assert.False(t, OrderDispatched.Terminal())
	assert.True(t, OrderDispatched.Active())
	assert.False(t, OrderCancelFailed.Active())
}

func TestUpsertPayment_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1")))

	p := &Payment{
		ID:               uuid.NewString(),
		OrderID:          "order-1",
		ProviderIntentID: "pi_123",
		Amount:           3194,
		Currency:         "usd",
		Status:           PaymentPending,
	}
	require.NoError(t, s.UpsertPayment(ctx, p))

	// Webhook retry with the same intent id updates in place
	retry := *p
	retry.ID = uuid.NewString()
	retry.Status = PaymentAuthorized
	require.NoError(t, s.UpsertPayment(ctx, &retry))

	got, err := s.GetPaymentByIntentID(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, PaymentAuthorized, got.Status)
	assert.Equal(t, p.ID, got.ID, "original row survives the retry")

	byOrder, err := s.GetPaymentByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, "pi_123", byOrder.ProviderIntentID)
}

func TestUpdatePaymentStatus(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1")))
	require.NoError(t, s.UpsertPayment(ctx, &Payment{
		ID: uuid.NewString(), OrderID: "order-1",
		ProviderIntentID: "pi_123", Amount: 3194, Currency: "usd",
		Status: PaymentAuthorized,
	}))

	require.NoError(t, s.UpdatePaymentStatus(ctx, "pi_123", PaymentSucceeded))
	got, err := s.GetPaymentByIntentID(ctx, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, PaymentSucceeded, got.Status)

	assert.ErrorIs(t, s.UpdatePaymentStatus(ctx, "pi_missing", PaymentFailed), ErrNotFound)
}

func TestOrderEvents_AppendAndRead(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1")))

	_, err := s.AppendOrderEvent(ctx, "order-1", EventAuthorization, map[string]string{"intent": "pi_1"})
	require.NoError(t, err)
	_, err = s.AppendOrderEvent(ctx, "order-1", EventRelay, map[string]string{"status": "preparing"})
	require.NoError(t, err)
	_, err = s.AppendOrderEvent(ctx, "order-1", EventRelay, map[string]string{"status": "out_for_delivery"})
	require.NoError(t, err)

	events, err := s.GetOrderEvents(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, EventAuthorization, events[0].Type)

	latest, err := s.LatestOrderEvent(ctx, "order-1", EventRelay)
	require.NoError(t, err)
	assert.Contains(t, string(latest.Payload), "out_for_delivery")

	_, err = s.LatestOrderEvent(ctx, "order-1", EventCapture)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindOrderByConfirmation(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1")))
	require.NoError(t, s.CreateOrder(ctx, testOrder("order-2")))

	_, err := s.AppendOrderEvent(ctx, "order-1", EventRelay,
		map[string]string{"status": "confirmed", "confirmation": "AB123"})
	require.NoError(t, err)

	got, err := s.FindOrderByConfirmation(ctx, "AB123")
	require.NoError(t, err)
	assert.Equal(t, "order-1", got.ID)

	_, err = s.FindOrderByConfirmation(ctx, "ZZ999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindOrderByConfirmation(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindOrderByConfirmation_IgnoresTerminalOrders(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, testOrder("order-1")))
	_, err := s.AppendOrderEvent(ctx, "order-1", EventRelay,
		map[string]string{"confirmation": "AB123"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateOrderStatus(ctx, "order-1", OrderCancelled))

	_, err = s.FindOrderByConfirmation(ctx, "AB123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOutbox_FIFOPerPartition(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.EnqueueOutbox(ctx, "order-a", "a1", []byte("first"))
	require.NoError(t, err)
	_, err = s.EnqueueOutbox(ctx, "order-a", "a2", []byte("second"))
	require.NoError(t, err)
	_, err = s.EnqueueOutbox(ctx, "order-b", "b1", []byte("other"))
	require.NoError(t, err)

	heads, err := s.NextOutbox(ctx)
	require.NoError(t, err)
	require.Len(t, heads, 2, "one head per partition")

	byPartition := map[string]string{}
	for _, m := range heads {
		byPartition[m.Partition] = string(m.Body)
	}
	assert.Equal(t, "first", byPartition["order-a"])
	assert.Equal(t, "other", byPartition["order-b"])

	// Delivering the head exposes the next message in that partition
	for _, m := range heads {
		if m.Partition == "order-a" {
			require.NoError(t, s.MarkOutboxDelivered(ctx, m.ID))
		}
	}
	heads, err = s.NextOutbox(ctx)
	require.NoError(t, err)
	byPartition = map[string]string{}
	for _, m := range heads {
		byPartition[m.Partition] = string(m.Body)
	}
	assert.Equal(t, "second", byPartition["order-a"])
}

func TestOutbox_DedupKeyDropsDoublePublish(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.EnqueueOutbox(ctx, "order-a", "attempt-1", []byte("job"))
	require.NoError(t, err)
	require.NotNil(t, first)

	dup, err := s.EnqueueOutbox(ctx, "order-a", "attempt-1", []byte("job"))
	require.NoError(t, err)
	assert.Nil(t, dup, "duplicate attempt key is dropped")

	// After delivery the same key may be reused for a fresh attempt
	require.NoError(t, s.MarkOutboxDelivered(ctx, first.ID))
	again, err := s.EnqueueOutbox(ctx, "order-a", "attempt-1", []byte("job"))
	require.NoError(t, err)
	assert.NotNil(t, again)
}

func TestCache_TTL(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CachePut(ctx, "status:rest-1", "open", time.Minute))
	got, err := s.CacheGet(ctx, "status:rest-1")
	require.NoError(t, err)
	assert.Equal(t, "open", got)

	require.NoError(t, s.CachePut(ctx, "status:rest-2", "closed", -time.Second))
	_, err = s.CacheGet(ctx, "status:rest-2")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.CacheGet(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
