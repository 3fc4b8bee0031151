// ABOUTME: Durable outbox for placement jobs with FIFO-per-partition semantics
// ABOUTME: Publish deduplicates by attempt key; delivery order follows insert order

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnqueueOutbox appends a message to the outbox. If an undelivered message
// with the same dedup key already exists the publish is a silent no-op, so
// an accidental double-enqueue within one logical attempt collapses while a
// deliberate later resubmission (new dedup key) goes through.
func (s *SQLiteStore) EnqueueOutbox(ctx context.Context, partition, dedupKey string, body []byte) (*OutboxMessage, error) {
	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM outbox WHERE dedup_key = ? AND delivered_at IS NULL`,
		dedupKey).Scan(&existing)
	if err == nil {
		return nil, nil // duplicate attempt, already queued
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checking outbox dedup: %w", err)
	}

	msg := &OutboxMessage{
		ID:        uuid.NewString(),
		Partition: partition,
		DedupKey:  dedupKey,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outbox (id, partition_key, dedup_key, body, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.Partition, msg.DedupKey, string(msg.Body),
		msg.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("inserting outbox message: %w", err)
	}
	return msg, nil
}

// NextOutbox returns, per partition, the oldest undelivered message. A
// partition whose head message is still undelivered never exposes a later
// message, which is what gives per-order ordering.
func (s *SQLiteStore) NextOutbox(ctx context.Context) ([]*OutboxMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, partition_key, dedup_key, body, created_at
		 FROM outbox o
		 WHERE delivered_at IS NULL
		   AND rowid = (
			SELECT MIN(rowid) FROM outbox
			WHERE partition_key = o.partition_key AND delivered_at IS NULL
		   )
		 ORDER BY partition_key`)
	if err != nil {
		return nil, fmt.Errorf("querying outbox heads: %w", err)
	}
	defer rows.Close()

	var msgs []*OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var body, createdAt string
		if err := rows.Scan(&m.ID, &m.Partition, &m.DedupKey, &body, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning outbox message: %w", err)
		}
		m.Body = []byte(body)
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

// MarkOutboxDelivered records that a message left the outbox.
func (s *SQLiteStore) MarkOutboxDelivered(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE outbox SET delivered_at = ? WHERE id = ? AND delivered_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("marking outbox delivered: %w", err)
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
