// ABOUTME: EscalationPayload and the pure Build function
// ABOUTME: Inputs are frozen artifacts and identifiers, never live systems

package escalate

import "time"

// Line is one guest-visible item on the escalated order.
type Line struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Payload is everything a human needs to act on a failed order. It is
// built deterministically from its inputs so renderings can be tested as
// golden output.
type Payload struct {
	OrderID        string    `json:"orderId"`
	Reason         string    `json:"reason"`
	Stage          string    `json:"stage,omitempty"`
	Message        string    `json:"message,omitempty"`
	GuestName      string    `json:"guestName,omitempty"`
	GuestPhone     string    `json:"guestPhone,omitempty"`
	GuestRoom      string    `json:"guestRoom,omitempty"`
	HotelName      string    `json:"hotelName,omitempty"`
	RestaurantName string    `json:"restaurantName,omitempty"`
	Items          []Line    `json:"items,omitempty"`
	Total          float64   `json:"total"`
	Currency       string    `json:"currency,omitempty"`
	AdminURL       string    `json:"adminUrl,omitempty"`
	IssuedAt       time.Time `json:"issuedAt"`
}

// BuildInput carries the already-recorded facts Build summarizes. Items
// should come from the frozen placement artifact when one exists, or the
// checkout artifact as fallback; Build does not care which.
type BuildInput struct {
	OrderID        string
	Reason         string
	Stage          string
	Message        string
	GuestName      string
	GuestPhone     string
	GuestRoom      string
	HotelName      string
	RestaurantName string
	Items          []Line
	Total          float64
	Currency       string
	AdminURL       string
	IssuedAt       time.Time
}

// Build produces the payload. Pure: no I/O, no clocks (IssuedAt comes from
// the caller), so the same input always yields the same payload.
func Build(in BuildInput) Payload {
	return Payload{
		OrderID:        in.OrderID,
		Reason:         in.Reason,
		Stage:          in.Stage,
		Message:        in.Message,
		GuestName:      in.GuestName,
		GuestPhone:     in.GuestPhone,
		GuestRoom:      in.GuestRoom,
		HotelName:      in.HotelName,
		RestaurantName: in.RestaurantName,
		Items:          in.Items,
		Total:          in.Total,
		Currency:       in.Currency,
		AdminURL:       in.AdminURL,
		IssuedAt:       in.IssuedAt,
	}
}
