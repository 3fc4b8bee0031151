// ABOUTME: Append-only order event log replacing ad-hoc metadata blobs
// ABOUTME: Lifecycle facts are tagged events; there is no update or delete path

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendOrderEvent appends a tagged event to an order's log. The payload is
// any JSON-marshalable value. Events are never updated or removed.
func (s *SQLiteStore) AppendOrderEvent(ctx context.Context, orderID string, typ EventType, payload any) (*OrderEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling event payload: %w", err)
	}

	event := &OrderEvent{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Type:      typ,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO order_events (id, order_id, type, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.OrderID, string(event.Type), string(event.Payload),
		event.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("inserting order event: %w", err)
	}
	return event, nil
}

// GetOrderEvents returns all events for an order in append order.
func (s *SQLiteStore) GetOrderEvents(ctx context.Context, orderID string) ([]*OrderEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, type, payload, created_at
		 FROM order_events WHERE order_id = ?
		 ORDER BY created_at ASC, rowid ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order events: %w", err)
	}
	defer rows.Close()

	var events []*OrderEvent
	for rows.Next() {
		e, err := scanOrderEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// LatestOrderEvent returns the most recent event of the given type for an
// order, or ErrNotFound if none has been appended.
func (s *SQLiteStore) LatestOrderEvent(ctx context.Context, orderID string, typ EventType) (*OrderEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, type, payload, created_at
		 FROM order_events WHERE order_id = ? AND type = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, orderID, string(typ))
	if err != nil {
		return nil, fmt.Errorf("querying latest order event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanOrderEvent(rows)
}

// FindOrderByConfirmation searches relay events of active orders for a
// previously recorded restaurant confirmation number.
func (s *SQLiteStore) FindOrderByConfirmation(ctx context.Context, confirmation string) (*Order, error) {
	if confirmation == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.order_id, e.payload FROM order_events e
		 JOIN orders o ON o.id = e.order_id
		 WHERE e.type = ? AND o.status IN (?, ?, ?, ?)
		 ORDER BY e.created_at DESC`,
		string(EventRelay),
		string(OrderPending), string(OrderConfirmed),
		string(OrderDispatched), string(OrderConfirmedAndPaid))
	if err != nil {
		return nil, fmt.Errorf("querying relay events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID, payload string
		if err := rows.Scan(&orderID, &payload); err != nil {
			return nil, fmt.Errorf("scanning relay event: %w", err)
		}
		var fields struct {
			Confirmation string `json:"confirmation"`
		}
		if err := json.Unmarshal([]byte(payload), &fields); err != nil {
			continue
		}
		if fields.Confirmation == confirmation {
			return s.GetOrder(ctx, orderID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNotFound
}

func scanOrderEvent(rows *sql.Rows) (*OrderEvent, error) {
	var e OrderEvent
	var typ, payload, createdAt string
	if err := rows.Scan(&e.ID, &e.OrderID, &typ, &payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning order event: %w", err)
	}
	e.Type = EventType(typ)
	e.Payload = json.RawMessage(payload)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &e, nil
}
