// ABOUTME: Payment persistence keyed by the processor's idempotent intent id
// ABOUTME: UpsertPayment makes webhook retries converge instead of duplicating rows

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const paymentColumns = `id, order_id, provider_intent_id, amount, currency,
	status, provider_metadata, created_at, updated_at`

// UpsertPayment inserts a payment or, when a row with the same provider
// intent id already exists, updates its status and metadata. Webhook
// retries for the same intent therefore converge on one row.
func (s *SQLiteStore) UpsertPayment(ctx context.Context, p *Payment) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider_intent_id) DO UPDATE SET
			status            = excluded.status,
			provider_metadata = excluded.provider_metadata,
			updated_at        = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.OrderID, p.ProviderIntentID, p.Amount, p.Currency,
		string(p.Status), p.ProviderMetadata,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting payment: %w", err)
	}
	return nil
}

// UpdatePaymentStatus sets the status of the payment with the given provider
// intent id.
func (s *SQLiteStore) UpdatePaymentStatus(ctx context.Context, intentID string, status PaymentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE provider_intent_id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339), intentID)
	if err != nil {
		return fmt.Errorf("updating payment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPaymentByIntentID retrieves a payment by the processor's intent id.
func (s *SQLiteStore) GetPaymentByIntentID(ctx context.Context, intentID string) (*Payment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider_intent_id = ?`, intentID)
	return scanPayment(row)
}

// GetPaymentByOrderID retrieves the one authoritative payment for an order.
func (s *SQLiteStore) GetPaymentByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE order_id = ? ORDER BY created_at DESC LIMIT 1`, orderID)
	return scanPayment(row)
}

func scanPayment(row *sql.Row) (*Payment, error) {
	var p Payment
	var status, createdAt, updatedAt string
	err := row.Scan(
		&p.ID, &p.OrderID, &p.ProviderIntentID, &p.Amount, &p.Currency,
		&status, &p.ProviderMetadata, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning payment: %w", err)
	}
	p.Status = PaymentStatus(status)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}
