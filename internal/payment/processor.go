// ABOUTME: Payment processor interface: manual-capture holds, capture, release
// ABOUTME: The concrete provider lives outside this core; handlers depend on this surface

package payment

import "context"

// AuthorizeParams describes the hold to open. Amount is in minor units and
// already floored to the processor minimum by checkout.
type AuthorizeParams struct {
	OrderID  string
	Amount   int64
	Currency string
	// GuestEmail rides along for the provider's receipt machinery.
	GuestEmail string
}

// Intent is the provider's handle on one authorization. The id is the
// idempotency key for every later webhook about this money.
type Intent struct {
	ID       string
	Amount   int64
	Currency string
	Raw      string // provider response JSON, stored opaquely
}

// Processor reserves, captures and releases funds. Authorize opens a
// manual-capture hold: funds reserved, not moved. Capture and Cancel are
// invoked only by the settlement handler.
type Processor interface {
	Authorize(ctx context.Context, params AuthorizeParams) (*Intent, error)
	Capture(ctx context.Context, intentID string) error
	Cancel(ctx context.Context, intentID string) error
}
