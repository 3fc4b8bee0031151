// ABOUTME: Minimal hotel, guest and restaurant rows used by the pipeline
// ABOUTME: Full CRUD for these entities is owned by the platform, not this service

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PutHotel inserts or replaces a hotel row.
func (s *SQLiteStore) PutHotel(ctx context.Context, h *Hotel) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO hotels (id, name, phone) VALUES (?, ?, ?)`,
		h.ID, h.Name, h.Phone)
	if err != nil {
		return fmt.Errorf("upserting hotel: %w", err)
	}
	return nil
}

// GetHotel retrieves a hotel by id.
func (s *SQLiteStore) GetHotel(ctx context.Context, id string) (*Hotel, error) {
	var h Hotel
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, phone FROM hotels WHERE id = ?`, id).
		Scan(&h.ID, &h.Name, &h.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning hotel: %w", err)
	}
	return &h, nil
}

// PutGuest inserts or replaces a guest row.
func (s *SQLiteStore) PutGuest(ctx context.Context, g *Guest) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO guests (id, hotel_id, name, phone, email, room)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.HotelID, g.Name, g.Phone, g.Email, g.Room)
	if err != nil {
		return fmt.Errorf("upserting guest: %w", err)
	}
	return nil
}

// GetGuest retrieves a guest by id.
func (s *SQLiteStore) GetGuest(ctx context.Context, id string) (*Guest, error) {
	var g Guest
	err := s.db.QueryRowContext(ctx,
		`SELECT id, hotel_id, name, phone, email, room FROM guests WHERE id = ?`, id).
		Scan(&g.ID, &g.HotelID, &g.Name, &g.Phone, &g.Email, &g.Room)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning guest: %w", err)
	}
	return &g, nil
}

// PutRestaurant inserts or replaces a restaurant row.
func (s *SQLiteStore) PutRestaurant(ctx context.Context, r *Restaurant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO restaurants
		 (id, hotel_id, name, url, phone, delivery_fee, service_fee_percent, approved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.HotelID, r.Name, r.URL, r.Phone,
		r.DeliveryFee, r.ServiceFeePercent, boolToInt(r.Approved))
	if err != nil {
		return fmt.Errorf("upserting restaurant: %w", err)
	}
	return nil
}

// GetRestaurant retrieves a restaurant by id.
func (s *SQLiteStore) GetRestaurant(ctx context.Context, id string) (*Restaurant, error) {
	var r Restaurant
	var approved int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, hotel_id, name, url, phone, delivery_fee, service_fee_percent, approved
		 FROM restaurants WHERE id = ?`, id).
		Scan(&r.ID, &r.HotelID, &r.Name, &r.URL, &r.Phone,
			&r.DeliveryFee, &r.ServiceFeePercent, &approved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning restaurant: %w", err)
	}
	r.Approved = approved != 0
	return &r, nil
}

// ListRestaurantsByHotel returns approved restaurants for one hotel,
// ordered by id for deterministic matching.
func (s *SQLiteStore) ListRestaurantsByHotel(ctx context.Context, hotelID string) ([]*Restaurant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hotel_id, name, url, phone, delivery_fee, service_fee_percent, approved
		 FROM restaurants WHERE hotel_id = ? AND approved = 1 ORDER BY id`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("querying restaurants: %w", err)
	}
	defer rows.Close()

	var restaurants []*Restaurant
	for rows.Next() {
		var r Restaurant
		var approved int
		if err := rows.Scan(&r.ID, &r.HotelID, &r.Name, &r.URL, &r.Phone,
			&r.DeliveryFee, &r.ServiceFeePercent, &approved); err != nil {
			return nil, fmt.Errorf("scanning restaurant row: %w", err)
		}
		r.Approved = approved != 0
		restaurants = append(restaurants, &r)
	}
	return restaurants, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
