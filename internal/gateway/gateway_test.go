// ABOUTME: End-to-end pipeline test through the assembled gateway
// ABOUTME: Match, compile, checkout, webhook, dispatch and settlement over HTTP

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/maitred/internal/compile"
	"github.com/2389/maitred/internal/config"
	"github.com/2389/maitred/internal/dispatch"
	"github.com/2389/maitred/internal/payment"
	"github.com/2389/maitred/internal/store"
)

type testMessenger struct {
	sent []string
}

func (m *testMessenger) Send(_ context.Context, to, body string) error {
	m.sent = append(m.sent, to+": "+body)
	return nil
}

type gatewayFixture struct {
	gw        *Gateway
	processor *payment.FakeProcessor
	messenger *testMessenger
	jobs      []dispatch.PlacementJob
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "127.0.0.1:0", BaseURL: "https://maitred.example.com"},
		Database: config.DatabaseConfig{Path: ":memory:"},
		Payments: config.PaymentsConfig{WebhookSecret: "whsec-test", MinimumChargeCents: 50},
		Dispatch: config.DispatchConfig{CallbackSecret: "cb-test"},
	}
}

func setupGateway(t *testing.T) *gatewayFixture {
	t.Helper()
	f := &gatewayFixture{
		processor: payment.NewFakeProcessor(),
		messenger: &testMessenger{},
	}
	gw, err := New(testConfig(), Options{
		Processor: f.processor,
		Messenger: f.messenger,
		Deliver: func(_ context.Context, msg *store.OutboxMessage) error {
			var job dispatch.PlacementJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				return err
			}
			f.jobs = append(f.jobs, job)
			return nil
		},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(gw.close)
	f.gw = gw

	seedCatalog(t, gw.store)
	return f
}

func seedCatalog(t *testing.T, s *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.PutHotel(ctx, &store.Hotel{ID: "hotel-1", Name: "The Grandview"}))
	require.NoError(t, s.PutGuest(ctx, &store.Guest{
		ID: "guest-1", HotelID: "hotel-1", Name: "Avery Jones",
		Phone: "+15550100", Email: "avery@example.com", Room: "412",
	}))
	require.NoError(t, s.PutRestaurant(ctx, &store.Restaurant{
		ID: "rest-1", HotelID: "hotel-1", Name: "Bistro Nord",
		URL: "https://example.com/bistro", DeliveryFee: 4.99, ServiceFeePercent: 10,
		Approved: true,
	}))
	require.NoError(t, s.PutMenuItem(ctx, &store.MenuItem{
		ID: "item-burger", RestaurantID: "rest-1", Name: "Classic Burger",
		Description: "beef patty with lettuce and tomato", Price: "$11.50",
		Approved: true, Available: true,
	}))
	require.NoError(t, s.PutMenuItem(ctx, &store.MenuItem{
		ID: "item-caesar", RestaurantID: "rest-1", Name: "Caesar Salad",
		Description: "romaine, parmesan, croutons", Price: "$9.00",
		Approved: true, Available: true,
	}))
}

func (f *gatewayFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.gw.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func (f *gatewayFixture) postPaymentWebhook(t *testing.T, eventID, eventType, intentID, orderID string) *httptest.ResponseRecorder {
	t.Helper()
	payload := []byte(fmt.Sprintf(
		`{"id":%q,"type":%q,"data":{"intent":{"id":%q,"amount":3194,"currency":"usd","metadata":{"orderId":%q}}}}`,
		eventID, eventType, intentID, orderID))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set(payment.SignatureHeader, payment.SignPayload(payload, []byte("whsec-test"), time.Now()))
	rec := httptest.NewRecorder()
	f.gw.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestGateway_FullPipeline(t *testing.T) {
	f := setupGateway(t)
	ctx := context.Background()

	// 1. Match the guest's free text.
	rec := f.do(t, http.MethodPost, "/api/orders/match", MatchRequest{
		HotelID: "hotel-1", Text: "2 classic burgers and a caesar salad",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var matched MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matched))
	assert.Equal(t, "rest-1", matched.RestaurantID)
	require.Len(t, matched.Lines, 2)
	assert.Equal(t, 2, matched.Lines[0].Quantity)
	assert.Equal(t, "item-burger", matched.Lines[0].Candidates[0].ItemID)
	assert.Equal(t, "item-caesar", matched.Lines[1].Candidates[0].ItemID)

	// 2. Checkout compiles and opens the hold.
	rec = f.do(t, http.MethodPost, "/api/orders/checkout", CheckoutRequest{
		RestaurantID: "rest-1", GuestID: "guest-1",
		Selections: []compile.Selection{
			{ItemRef: matched.Lines[0].Candidates[0].ItemID, Quantity: matched.Lines[0].Quantity},
			{ItemRef: matched.Lines[1].Candidates[0].ItemID, Quantity: matched.Lines[1].Quantity},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, string(store.OrderPending), created.Status)
	// 2x 11.50 + 9.00 = 32.00; +10% fee 3.20 + 4.99 delivery = 40.19
	assert.InDelta(t, 32.00, created.Totals.Subtotal, 0.001)
	assert.InDelta(t, 40.19, created.Totals.Total, 0.001)
	require.Len(t, f.processor.Authorized, 1)

	// 3. The processor confirms the authorization; dispatch queues the job.
	intentID := "pi_fake_1"
	rec = f.postPaymentWebhook(t, "evt-1", payment.EventAuthorizationSucceeded, intentID, created.OrderID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NoError(t, f.gw.consumer.RunOnce(ctx))
	require.Len(t, f.jobs, 1)
	job := f.jobs[0]
	assert.Equal(t, "place-order", job.Cmd)
	assert.Equal(t, created.OrderID, job.OrderID)
	assert.Equal(t, "https://example.com/bistro", job.URL)
	assert.Equal(t, "https://maitred.example.com/callbacks/placement", job.CallbackURL)
	assert.Equal(t, "cb-test", job.CallbackSecret)

	// 4. The agent reports success; the hold is captured.
	req := httptest.NewRequest(http.MethodPost, "/callbacks/placement",
		bytes.NewReader([]byte(fmt.Sprintf(`{"orderId":%q,"success":true}`, created.OrderID))))
	req.Header.Set("Authorization", "Bearer cb-test")
	cbRec := httptest.NewRecorder()
	f.gw.httpServer.Handler.ServeHTTP(cbRec, req)
	require.Equal(t, http.StatusOK, cbRec.Code, cbRec.Body.String())
	assert.Equal(t, []string{intentID}, f.processor.Captured)

	// 5. The order API shows the settled order and its event trail.
	rec = f.do(t, http.MethodGet, "/api/orders/"+created.OrderID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var order OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, string(store.OrderConfirmedAndPaid), order.Status)
	types := make([]string, 0, len(order.Events))
	for _, e := range order.Events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, "checkout")
	assert.Contains(t, types, "authorization")
	assert.Contains(t, types, "placement")
	assert.Contains(t, types, "capture")
}

func TestGateway_CheckoutWithIssuesReturns422(t *testing.T) {
	f := setupGateway(t)

	rec := f.do(t, http.MethodPost, "/api/orders/checkout", CheckoutRequest{
		RestaurantID: "rest-1", GuestID: "guest-1",
		Selections: []compile.Selection{{ItemRef: "item-nope", Quantity: 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "menu_item_not_found")
	assert.Empty(t, f.processor.Authorized, "no hold for an uncompilable order")
}

func TestGateway_MatchUnknownHotel404(t *testing.T) {
	f := setupGateway(t)
	rec := f.do(t, http.MethodPost, "/api/orders/match", MatchRequest{
		HotelID: "hotel-nope", Text: "a burger",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_GetOrderUnknown404(t *testing.T) {
	f := setupGateway(t)
	rec := f.do(t, http.MethodGet, "/api/orders/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_Health(t *testing.T) {
	f := setupGateway(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/healthz/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
