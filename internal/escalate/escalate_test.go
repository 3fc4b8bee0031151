// ABOUTME: Tests for escalation building, rendering, links and delivery
// ABOUTME: Renderings are asserted as golden output; they must be deterministic

package escalate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/maitred/internal/store"
)

func samplePayload() Payload {
	return Build(BuildInput{
		OrderID:        "order-1",
		Reason:         "capture failed",
		Stage:          "capture",
		Message:        "card declined",
		GuestName:      "Avery Jones",
		GuestPhone:     "+15550100",
		GuestRoom:      "412",
		HotelName:      "The Grandview",
		RestaurantName: "Bistro Nord",
		Items: []Line{
			{Name: "Classic Burger", Quantity: 2},
			{Name: "Caesar Salad", Quantity: 1},
		},
		Total:    31.94,
		Currency: "usd",
		AdminURL: "https://admin.example.com/orders/order-1?token=T",
		IssuedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})
}

func TestRenderChat_Golden(t *testing.T) {
	msg := RenderChat(samplePayload())

	want := `## Order order-1 needs attention

**Reason:** capture failed

**Detail:** card declined

**Guest:** Avery Jones, room 412 (+15550100)

**Hotel:** The Grandview

**Restaurant:** Bistro Nord

**Items:**

- 2x Classic Burger
- 1x Caesar Salad

**Total:** $31.94

[Open in admin](https://admin.example.com/orders/order-1?token=T)
`
	assert.Equal(t, want, msg.Markdown)
	assert.Contains(t, msg.HTML, "<h2>Order order-1 needs attention</h2>")
	assert.Contains(t, msg.HTML, "<li>2x Classic Burger</li>")
}

func TestRenderSMS_Golden(t *testing.T) {
	got := RenderSMS(samplePayload())
	want := "Order order-1 needs attention: capture failed. " +
		"2x Classic Burger, 1x Caesar Salad. Total $31.94. " +
		"https://admin.example.com/orders/order-1?token=T"
	assert.Equal(t, want, got)
}

func TestRenderSMS_CapsItems(t *testing.T) {
	p := samplePayload()
	p.Items = []Line{
		{Name: "Burger", Quantity: 1},
		{Name: "Salad", Quantity: 1},
		{Name: "Pizza", Quantity: 1},
		{Name: "Soup", Quantity: 2},
		{Name: "Fries", Quantity: 3},
	}
	got := RenderSMS(p)
	assert.Contains(t, got, "1x Burger, 1x Salad, 1x Pizza, +2 more.")
	assert.NotContains(t, got, "Soup")
}

func TestLinkSigner_RoundTrip(t *testing.T) {
	signer := NewLinkSigner([]byte("link-secret"), "https://admin.example.com/", time.Hour)

	link, err := signer.Sign("order-1")
	require.NoError(t, err)
	assert.Contains(t, link, "https://admin.example.com/orders/order-1?token=")

	token := link[len("https://admin.example.com/orders/order-1?token="):]
	orderID, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "order-1", orderID)
}

func TestLinkSigner_Expiry(t *testing.T) {
	signer := NewLinkSigner([]byte("link-secret"), "https://admin.example.com", time.Hour)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return base }

	link, err := signer.Sign("order-1")
	require.NoError(t, err)
	token := link[len("https://admin.example.com/orders/order-1?token="):]

	signer.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredLink)
}

func TestLinkSigner_WrongSecret(t *testing.T) {
	signer := NewLinkSigner([]byte("link-secret"), "https://admin.example.com", time.Hour)
	other := NewLinkSigner([]byte("different"), "https://admin.example.com", time.Hour)

	link, err := signer.Sign("order-1")
	require.NoError(t, err)
	token := link[len("https://admin.example.com/orders/order-1?token="):]

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidLink)
}

type capturedNotifier struct {
	payloads []Payload
	err      error
}

func (n *capturedNotifier) Notify(_ context.Context, payload Payload) error {
	n.payloads = append(n.payloads, payload)
	return n.err
}

func setupEscalateStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	require.NoError(t, s.PutHotel(ctx, &store.Hotel{ID: "hotel-1", Name: "The Grandview"}))
	require.NoError(t, s.PutGuest(ctx, &store.Guest{ID: "guest-1", HotelID: "hotel-1", Name: "Avery Jones", Room: "412"}))
	require.NoError(t, s.PutRestaurant(ctx, &store.Restaurant{ID: "rest-1", HotelID: "hotel-1", Name: "Bistro Nord", Approved: true}))
	require.NoError(t, s.CreateOrder(ctx, &store.Order{
		ID: "order-1", RestaurantID: "rest-1", HotelID: "hotel-1", GuestID: "guest-1",
		GuestName: "Avery Jones", GuestPhone: "+15550100",
		Total: 31.94, Currency: "usd", Status: store.OrderPending,
	}))
	_, err = s.AppendOrderEvent(ctx, "order-1", store.EventCheckout, map[string]any{
		"items": []map[string]any{
			{"name": "Classic Burger", "quantity": 2},
			{"name": "Caesar Salad", "quantity": 1},
		},
	})
	require.NoError(t, err)
	return s
}

func TestService_EscalateBuildsFromRecordedFacts(t *testing.T) {
	s := setupEscalateStore(t)
	notifier := &capturedNotifier{}
	links := NewLinkSigner([]byte("link-secret"), "https://admin.example.com", time.Hour)
	svc := NewService(s, notifier, links, nil)
	ctx := context.Background()

	svc.Escalate(ctx, "order-1", "capture failed", "capture", "card declined")

	require.Len(t, notifier.payloads, 1)
	p := notifier.payloads[0]
	assert.Equal(t, "capture failed", p.Reason)
	assert.Equal(t, "Avery Jones", p.GuestName)
	assert.Equal(t, "412", p.GuestRoom)
	assert.Equal(t, "The Grandview", p.HotelName)
	assert.Equal(t, "Bistro Nord", p.RestaurantName)
	assert.Equal(t, []Line{{Name: "Classic Burger", Quantity: 2}, {Name: "Caesar Salad", Quantity: 1}}, p.Items)
	assert.Contains(t, p.AdminURL, "https://admin.example.com/orders/order-1?token=")

	event, err := s.LatestOrderEvent(ctx, "order-1", store.EventEscalation)
	require.NoError(t, err)
	assert.Contains(t, string(event.Payload), "capture failed")
}

func TestService_PrefersPlacementArtifact(t *testing.T) {
	s := setupEscalateStore(t)
	ctx := context.Background()
	_, err := s.AppendOrderEvent(ctx, "order-1", store.EventPlacement, map[string]any{
		"items": []map[string]any{{"name": "Classic Burger", "quantity": 2}},
	})
	require.NoError(t, err)

	notifier := &capturedNotifier{}
	svc := NewService(s, notifier, nil, nil)
	svc.Escalate(ctx, "order-1", "hold release failed", "cancel", "provider timeout")

	require.Len(t, notifier.payloads, 1)
	assert.Equal(t, []Line{{Name: "Classic Burger", Quantity: 2}}, notifier.payloads[0].Items)
}

func TestService_DeliveryFailureDoesNotPanicOrPropagate(t *testing.T) {
	s := setupEscalateStore(t)
	notifier := &capturedNotifier{err: assert.AnError}
	svc := NewService(s, notifier, nil, nil)

	// Returns nothing; the only observable contract is that it does not panic
	// and the escalation event is still recorded.
	svc.Escalate(context.Background(), "order-1", "placement failed", "placement", "page crashed")

	event, err := s.LatestOrderEvent(context.Background(), "order-1", store.EventEscalation)
	require.NoError(t, err)
	assert.Contains(t, string(event.Payload), "placement failed")
}
