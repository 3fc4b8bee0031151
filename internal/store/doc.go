// Package store provides persistent storage for maitred using SQLite.
//
// # Architecture
//
// SQLiteStore is the single concrete implementation; each consumer package
// declares the narrow interface it needs (OrderStore, PaymentStore, ...) and
// SQLiteStore satisfies all of them.
//
// # Data Models
//
// Pipeline models:
//
//   - Order: one guest order with a single canonical status enum
//   - Payment: the one authoritative payment row, keyed by the processor's
//     idempotent intent id
//   - OrderEvent: append-only tagged lifecycle log (authorization, placement,
//     capture, cancel, relay, escalation, failure). This replaces mutable
//     metadata blobs: events are only ever appended, never merged or
//     overwritten.
//   - OutboxMessage: queued placement job with FIFO-per-partition delivery
//
// Catalog models (read-only inputs produced by menu ingestion):
//
//   - MenuItem, ModifierGroup, ModifierOption, each flagged approved/available
//
// Collaborator rows (CRUD owned by the platform): Hotel, Guest, Restaurant.
//
// # Status Machine
//
// Order status transitions are validated in UpdateOrderStatus against a
// single transition table. Terminal statuses (delivered, cancelled,
// bot_failed, placed_but_uncaptured, cancel_failed) accept no transitions;
// handlers treat a terminal order as a no-op rather than an error so webhook
// retries cannot double-capture or double-cancel.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Use NewSQLiteStore(":memory:") in tests.
package store
