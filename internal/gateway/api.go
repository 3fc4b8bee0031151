// ABOUTME: HTTP API handlers for the order pipeline.
// ABOUTME: Match, compile, checkout and order lookup for hotel-facing clients.

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/2389/maitred/internal/checkout"
	"github.com/2389/maitred/internal/compile"
	"github.com/2389/maitred/internal/match"
	"github.com/2389/maitred/internal/store"
)

// MatchRequest is the JSON request body for POST /api/orders/match.
type MatchRequest struct {
	HotelID      string `json:"hotel_id"`
	RestaurantID string `json:"restaurant_id,omitempty"`
	Text         string `json:"text"`
}

// MatchLineResponse is one parsed request line.
type MatchLineResponse struct {
	Text       string              `json:"text"`
	Quantity   int                 `json:"quantity"`
	Candidates []CandidateResponse `json:"candidates"`
}

// CandidateResponse is one scored menu-item candidate.
type CandidateResponse struct {
	RestaurantID string `json:"restaurant_id"`
	ItemID       string `json:"item_id"`
	ItemName     string `json:"item_name"`
	Score        int    `json:"score"`
	Reason       string `json:"reason"`
}

// MatchResponse is the JSON response for POST /api/orders/match.
type MatchResponse struct {
	RestaurantID string              `json:"restaurant_id"`
	Lines        []MatchLineResponse `json:"lines"`
}

// CompileRequest is the JSON request body for POST /api/orders/compile.
type CompileRequest struct {
	RestaurantID string              `json:"restaurant_id"`
	Selections   []compile.Selection `json:"selections"`
}

// CheckoutRequest is the JSON request body for POST /api/orders/checkout.
type CheckoutRequest struct {
	RestaurantID    string              `json:"restaurant_id"`
	GuestID         string              `json:"guest_id"`
	Selections      []compile.Selection `json:"selections"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	Apartment       string              `json:"apartment,omitempty"`
	Tip             float64             `json:"tip,omitempty"`
	Currency        string              `json:"currency,omitempty"`
}

// CheckoutResponse is the JSON response for POST /api/orders/checkout.
type CheckoutResponse struct {
	OrderID  string          `json:"order_id"`
	Status   string          `json:"status"`
	Totals   checkout.Totals `json:"totals"`
	Compiled *compile.Result `json:"compiled"`
}

// OrderEventResponse is one event-log entry.
type OrderEventResponse struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

// OrderResponse is the JSON response for GET /api/orders/{id}.
type OrderResponse struct {
	OrderID         string               `json:"order_id"`
	Status          string               `json:"status"`
	RestaurantID    string               `json:"restaurant_id"`
	GuestID         string               `json:"guest_id"`
	DeliveryAddress string               `json:"delivery_address,omitempty"`
	Apartment       string               `json:"apartment,omitempty"`
	Subtotal        float64              `json:"subtotal"`
	Total           float64              `json:"total"`
	Currency        string               `json:"currency"`
	CreatedAt       string               `json:"created_at"`
	Events          []OrderEventResponse `json:"events"`
}

// handleMatch handles POST /api/orders/match requests.
func (g *Gateway) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		sendJSONError(w, http.StatusBadRequest, "text is required")
		return
	}

	ctx := r.Context()
	var items []*store.MenuItem
	var err error
	if req.RestaurantID != "" {
		items, err = g.store.ListMenuItems(ctx, req.RestaurantID)
	} else if req.HotelID != "" {
		items, err = g.store.ListMenuItemsByHotel(ctx, req.HotelID)
	} else {
		sendJSONError(w, http.StatusBadRequest, "hotel_id or restaurant_id is required")
		return
	}
	if err != nil {
		g.logger.Error("loading menu items", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "catalog lookup failed")
		return
	}

	result, err := match.Match(req.Text, items, match.Options{RestaurantID: req.RestaurantID})
	if err != nil {
		if errors.Is(err, match.ErrNoCandidates) {
			sendJSONError(w, http.StatusNotFound, "no menu items match the request")
			return
		}
		g.logger.Error("matching request", "error", err)
		sendJSONError(w, http.StatusInternalServerError, "match failed")
		return
	}

	resp := MatchResponse{RestaurantID: result.RestaurantID}
	for i, line := range result.Lines {
		lineResp := MatchLineResponse{
			Text:       line.Raw,
			Quantity:   line.Quantity,
			Candidates: []CandidateResponse{},
		}
		for _, c := range result.Candidates[i] {
			lineResp.Candidates = append(lineResp.Candidates, CandidateResponse{
				RestaurantID: c.RestaurantID,
				ItemID:       c.ItemID,
				ItemName:     c.ItemName,
				Score:        c.Score,
				Reason:       c.Reason,
			})
		}
		resp.Lines = append(resp.Lines, lineResp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCompile handles POST /api/orders/compile requests. Compile issues
// come back in the payload; they are data, not HTTP errors.
func (g *Gateway) handleCompile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RestaurantID == "" {
		sendJSONError(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}

	snap, err := g.loader.Load(r.Context(), req.RestaurantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendJSONError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		g.logger.Error("loading catalog", "restaurant", req.RestaurantID, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "catalog load failed")
		return
	}
	writeJSON(w, http.StatusOK, compile.Compile(req.Selections, snap))
}

// handleCheckout handles POST /api/orders/checkout requests. It compiles
// against the live catalog, then opens the payment hold and persists the
// order; the compiled artifact in the response is exactly what was frozen
// onto the order.
func (g *Gateway) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RestaurantID == "" || req.GuestID == "" {
		sendJSONError(w, http.StatusBadRequest, "restaurant_id and guest_id are required")
		return
	}

	ctx := r.Context()
	snap, err := g.loader.Load(ctx, req.RestaurantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendJSONError(w, http.StatusNotFound, "restaurant not found")
			return
		}
		g.logger.Error("loading catalog", "restaurant", req.RestaurantID, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "catalog load failed")
		return
	}

	compiled := compile.Compile(req.Selections, snap)
	if compiled.Status != compile.StatusReady {
		// The caller has to resolve the issues and try again.
		writeJSON(w, http.StatusUnprocessableEntity, compiled)
		return
	}

	order, err := g.checkout.Checkout(ctx, checkout.Request{
		Compiled:        compiled,
		RestaurantID:    req.RestaurantID,
		GuestID:         req.GuestID,
		DeliveryAddress: req.DeliveryAddress,
		Apartment:       req.Apartment,
		Tip:             req.Tip,
		Currency:        req.Currency,
	})
	if err != nil {
		g.logger.Error("checkout failed", "restaurant", req.RestaurantID, "guest", req.GuestID, "error", err)
		sendJSONError(w, http.StatusBadGateway, "payment authorization failed")
		return
	}

	writeJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID: order.ID,
		Status:  string(order.Status),
		Totals: checkout.Totals{
			Subtotal:     order.Subtotal,
			ServiceFee:   order.ServiceFee,
			DeliveryFee:  order.DeliveryFee,
			Tip:          order.Tip,
			Total:        order.Total,
			ChargeAmount: order.ChargeAmount,
		},
		Compiled: compiled,
	})
}

// handleGetOrder handles GET /api/orders/{id} requests.
func (g *Gateway) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	orderID := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	if orderID == "" || strings.Contains(orderID, "/") {
		sendJSONError(w, http.StatusNotFound, "order not found")
		return
	}

	ctx := r.Context()
	order, err := g.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendJSONError(w, http.StatusNotFound, "order not found")
			return
		}
		g.logger.Error("loading order", "order", orderID, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "order lookup failed")
		return
	}
	events, err := g.store.GetOrderEvents(ctx, orderID)
	if err != nil {
		g.logger.Error("loading order events", "order", orderID, "error", err)
		sendJSONError(w, http.StatusInternalServerError, "order lookup failed")
		return
	}

	resp := OrderResponse{
		OrderID:         order.ID,
		Status:          string(order.Status),
		RestaurantID:    order.RestaurantID,
		GuestID:         order.GuestID,
		DeliveryAddress: order.DeliveryAddress,
		Apartment:       order.Apartment,
		Subtotal:        order.Subtotal,
		Total:           order.Total,
		Currency:        order.Currency,
		CreatedAt:       order.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Events:          []OrderEventResponse{},
	}
	for _, e := range events {
		resp.Events = append(resp.Events, OrderEventResponse{
			Type:      string(e.Type),
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// sendJSONError writes a JSON error response.
func sendJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
