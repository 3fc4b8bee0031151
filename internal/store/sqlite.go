// ABOUTME: SQLite implementation of maitred persistence using modernc.org/sqlite
// ABOUTME: Opens the database, applies pragmas and creates the schema on startup

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the concrete store backing every component. Consumers
// declare their own narrow interfaces over it.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
// Parent directories are created if needed. Use ":memory:" in tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL for concurrent webhook handlers, foreign keys for the event log
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS hotels (
			id    TEXT PRIMARY KEY,
			name  TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS guests (
			id       TEXT PRIMARY KEY,
			hotel_id TEXT NOT NULL,
			name     TEXT NOT NULL,
			phone    TEXT NOT NULL DEFAULT '',
			email    TEXT NOT NULL DEFAULT '',
			room     TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (hotel_id) REFERENCES hotels(id)
		);

		CREATE TABLE IF NOT EXISTS restaurants (
			id                  TEXT PRIMARY KEY,
			hotel_id            TEXT NOT NULL,
			name                TEXT NOT NULL,
			url                 TEXT NOT NULL DEFAULT '',
			phone               TEXT NOT NULL DEFAULT '',
			delivery_fee        REAL NOT NULL DEFAULT 0,
			service_fee_percent REAL NOT NULL DEFAULT 0,
			approved            INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (hotel_id) REFERENCES hotels(id)
		);

		CREATE TABLE IF NOT EXISTS menu_items (
			id            TEXT PRIMARY KEY,
			restaurant_id TEXT NOT NULL,
			name          TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			price         TEXT NOT NULL DEFAULT '',
			approved      INTEGER NOT NULL DEFAULT 0,
			available     INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY (restaurant_id) REFERENCES restaurants(id)
		);

		CREATE INDEX IF NOT EXISTS idx_menu_items_restaurant
			ON menu_items(restaurant_id);

		CREATE TABLE IF NOT EXISTS modifier_groups (
			id             TEXT PRIMARY KEY,
			menu_item_id   TEXT NOT NULL,
			name           TEXT NOT NULL,
			required       INTEGER NOT NULL DEFAULT 0,
			single_select  INTEGER NOT NULL DEFAULT 0,
			min_selections INTEGER,
			max_selections INTEGER,
			approved       INTEGER NOT NULL DEFAULT 0,
			available      INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY (menu_item_id) REFERENCES menu_items(id)
		);

		CREATE INDEX IF NOT EXISTS idx_modifier_groups_item
			ON modifier_groups(menu_item_id);

		CREATE TABLE IF NOT EXISTS modifier_options (
			id        TEXT PRIMARY KEY,
			group_id  TEXT NOT NULL,
			name      TEXT NOT NULL,
			price     TEXT NOT NULL DEFAULT '',
			approved  INTEGER NOT NULL DEFAULT 0,
			available INTEGER NOT NULL DEFAULT 1,
			FOREIGN KEY (group_id) REFERENCES modifier_groups(id)
		);

		CREATE INDEX IF NOT EXISTS idx_modifier_options_group
			ON modifier_options(group_id);

		CREATE TABLE IF NOT EXISTS orders (
			id               TEXT PRIMARY KEY,
			restaurant_id    TEXT NOT NULL,
			hotel_id         TEXT NOT NULL,
			guest_id         TEXT NOT NULL,
			guest_name       TEXT NOT NULL DEFAULT '',
			guest_phone      TEXT NOT NULL DEFAULT '',
			guest_email      TEXT NOT NULL DEFAULT '',
			delivery_address TEXT NOT NULL DEFAULT '',
			apartment        TEXT NOT NULL DEFAULT '',
			subtotal         REAL NOT NULL,
			service_fee      REAL NOT NULL,
			delivery_fee     REAL NOT NULL,
			tip              REAL NOT NULL DEFAULT 0,
			total            REAL NOT NULL,
			charge_amount    INTEGER NOT NULL,
			currency         TEXT NOT NULL DEFAULT 'usd',
			status           TEXT NOT NULL,
			created_at       DATETIME NOT NULL,
			updated_at       DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
		CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at);

		CREATE TABLE IF NOT EXISTS payments (
			id                 TEXT PRIMARY KEY,
			order_id           TEXT NOT NULL,
			provider_intent_id TEXT NOT NULL UNIQUE,
			amount             INTEGER NOT NULL,
			currency           TEXT NOT NULL DEFAULT 'usd',
			status             TEXT NOT NULL,
			provider_metadata  TEXT NOT NULL DEFAULT '',
			created_at         DATETIME NOT NULL,
			updated_at         DATETIME NOT NULL,
			FOREIGN KEY (order_id) REFERENCES orders(id)
		);

		CREATE INDEX IF NOT EXISTS idx_payments_order ON payments(order_id);

		CREATE TABLE IF NOT EXISTS order_events (
			id         TEXT PRIMARY KEY,
			order_id   TEXT NOT NULL,
			type       TEXT NOT NULL,
			payload    TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL,
			FOREIGN KEY (order_id) REFERENCES orders(id)
		);

		CREATE INDEX IF NOT EXISTS idx_order_events_order
			ON order_events(order_id, created_at);

		CREATE TABLE IF NOT EXISTS outbox (
			id           TEXT PRIMARY KEY,
			partition_key TEXT NOT NULL,
			dedup_key    TEXT NOT NULL,
			body         TEXT NOT NULL,
			created_at   DATETIME NOT NULL,
			delivered_at DATETIME
		);

		CREATE INDEX IF NOT EXISTS idx_outbox_partition
			ON outbox(partition_key, created_at);

		CREATE TABLE IF NOT EXISTS kv_cache (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			expires_at DATETIME NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}
