// ABOUTME: PlacementJob wire format sent to the external placement agent
// ABOUTME: JSON queue message; the agent's internals are a separate system

package dispatch

// JobItem is one guest-visible line of a placement job, built from the
// frozen checkout artifact so no live catalog read is needed.
type JobItem struct {
	Name                string   `json:"name"`
	Quantity            int      `json:"quantity"`
	Modifiers           []string `json:"modifiers,omitempty"`
	SpecialInstructions string   `json:"specialInstructions,omitempty"`
}

// JobGuest is the contact block the agent types into the checkout form.
type JobGuest struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// PlacementJob is the queue message contract with the placement agent.
type PlacementJob struct {
	Cmd             string    `json:"cmd"` // always "place-order"
	OrderID         string    `json:"orderId"`
	URL             string    `json:"url"`
	Items           []JobItem `json:"items"`
	Guest           JobGuest  `json:"guest"`
	DeliveryAddress string    `json:"deliveryAddress,omitempty"`
	Apartment       string    `json:"apartment,omitempty"`
	CallbackURL     string    `json:"callbackUrl"`
	CallbackSecret  string    `json:"callbackSecret"`
	Debug           bool      `json:"debug,omitempty"`
}

// PartitionKey returns the queue partition for an order. All jobs for one
// order share it, so the agent never processes two attempts concurrently or
// out of submission order.
func PartitionKey(orderID string) string {
	return "order-" + orderID
}
