// ABOUTME: In-memory Processor used by tests and local development
// ABOUTME: Records capture/cancel calls and can be armed to fail either one

package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// FakeProcessor implements Processor in memory. Settlement tests arm
// FailCapture/FailCancel to drive the reconciliation states.
type FakeProcessor struct {
	mu          sync.Mutex
	counter     int
	FailAuth    error
	FailCapture error
	FailCancel  error

	Authorized []AuthorizeParams
	Captured   []string
	Cancelled  []string
}

// NewFakeProcessor creates an empty fake.
func NewFakeProcessor() *FakeProcessor {
	return &FakeProcessor{}
}

// Authorize opens a fake manual-capture hold.
func (f *FakeProcessor) Authorize(_ context.Context, params AuthorizeParams) (*Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAuth != nil {
		return nil, f.FailAuth
	}
	f.counter++
	f.Authorized = append(f.Authorized, params)
	return &Intent{
		ID:       fmt.Sprintf("pi_fake_%d", f.counter),
		Amount:   params.Amount,
		Currency: params.Currency,
		Raw:      `{"provider":"fake"}`,
	}, nil
}

// Capture converts a fake hold into a fake charge.
func (f *FakeProcessor) Capture(_ context.Context, intentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCapture != nil {
		return f.FailCapture
	}
	f.Captured = append(f.Captured, intentID)
	return nil
}

// Cancel releases a fake hold.
func (f *FakeProcessor) Cancel(_ context.Context, intentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCancel != nil {
		return f.FailCancel
	}
	f.Cancelled = append(f.Cancelled, intentID)
	return nil
}

// ErrDeclined is a convenient provider-shaped failure for tests.
var ErrDeclined = errors.New("card declined")
