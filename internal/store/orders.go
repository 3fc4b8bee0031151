// ABOUTME: Order CRUD and guarded status transitions
// ABOUTME: Status changes are validated here so no handler can skip the state machine

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const orderColumns = `id, restaurant_id, hotel_id, guest_id, guest_name, guest_phone,
	guest_email, delivery_address, apartment, subtotal, service_fee, delivery_fee,
	tip, total, charge_amount, currency, status, created_at, updated_at`

// CreateOrder inserts a new order row. CreatedAt/UpdatedAt are set here.
func (s *SQLiteStore) CreateOrder(ctx context.Context, order *Order) error {
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		order.ID, order.RestaurantID, order.HotelID, order.GuestID,
		order.GuestName, order.GuestPhone, order.GuestEmail,
		order.DeliveryAddress, order.Apartment,
		order.Subtotal, order.ServiceFee, order.DeliveryFee, order.Tip,
		order.Total, order.ChargeAmount, order.Currency,
		string(order.Status),
		order.CreatedAt.Format(time.RFC3339), order.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}
	return nil
}

// GetOrder retrieves an order by id.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

// ListOrders returns the most recently created orders, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ListActiveOrders returns non-terminal orders, newest first. The relay's
// most-recent-active fallback depends on this ordering.
func (s *SQLiteStore) ListActiveOrders(ctx context.Context) ([]*Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE status IN (?, ?, ?, ?)
		 ORDER BY created_at DESC, id DESC`,
		string(OrderPending), string(OrderConfirmed),
		string(OrderDispatched), string(OrderConfirmedAndPaid))
	if err != nil {
		return nil, fmt.Errorf("querying active orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ListOrdersDispatchedBefore returns orders still waiting on an agent
// callback whose dispatch happened before the cutoff. There is no automatic
// timeout for these; this exists so operators can find them.
func (s *SQLiteStore) ListOrdersDispatchedBefore(ctx context.Context, cutoff time.Time) ([]*Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE status = ? AND updated_at < ?
		 ORDER BY updated_at ASC`,
		string(OrderDispatched), cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("querying dispatched orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// UpdateOrderStatus transitions an order to the next status. The transition
// is validated against the state machine; moving a terminal order returns
// ErrInvalidTransition.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id string, next OrderStatus) error {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if !order.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(next), time.Now().UTC().Format(time.RFC3339), id, string(order.Status))
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	// A concurrent handler moved the order first; re-check rather than clobber.
	if n == 0 {
		return fmt.Errorf("%w: order %s changed concurrently", ErrInvalidTransition, id)
	}
	return nil
}

func scanOrder(row *sql.Row) (*Order, error) {
	var o Order
	var status, createdAt, updatedAt string
	err := row.Scan(
		&o.ID, &o.RestaurantID, &o.HotelID, &o.GuestID,
		&o.GuestName, &o.GuestPhone, &o.GuestEmail,
		&o.DeliveryAddress, &o.Apartment,
		&o.Subtotal, &o.ServiceFee, &o.DeliveryFee, &o.Tip,
		&o.Total, &o.ChargeAmount, &o.Currency,
		&status, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning order: %w", err)
	}
	o.Status = OrderStatus(status)
	o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	o.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &o, nil
}

func scanOrders(rows *sql.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		var o Order
		var status, createdAt, updatedAt string
		err := rows.Scan(
			&o.ID, &o.RestaurantID, &o.HotelID, &o.GuestID,
			&o.GuestName, &o.GuestPhone, &o.GuestEmail,
			&o.DeliveryAddress, &o.Apartment,
			&o.Subtotal, &o.ServiceFee, &o.DeliveryFee, &o.Tip,
			&o.Total, &o.ChargeAmount, &o.Currency,
			&status, &createdAt, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		o.Status = OrderStatus(status)
		o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		o.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}
