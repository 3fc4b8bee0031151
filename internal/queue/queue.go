// ABOUTME: Placement job queue: durable outbox publisher and ordered consumer
// ABOUTME: FIFO per partition key, deduplicated by a per-attempt key

package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/maitred/internal/store"
)

// Message is one queue publish.
type Message struct {
	// Partition orders delivery: messages sharing a partition are delivered
	// strictly in publish order, never interleaved.
	Partition string
	// DedupKey collapses accidental double publishes of the same logical
	// attempt while the first copy is still queued.
	DedupKey string
	Body     []byte
}

// Publisher is what the dispatcher depends on. The outbox implements it; a
// hosted FIFO queue can replace it without touching the dispatcher.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// OutboxQueue implements Publisher over the store's outbox table.
type OutboxQueue struct {
	store  OutboxStore
	logger *slog.Logger
}

// OutboxStore is what the queue needs from persistence.
type OutboxStore interface {
	EnqueueOutbox(ctx context.Context, partition, dedupKey string, body []byte) (*store.OutboxMessage, error)
	NextOutbox(ctx context.Context) ([]*store.OutboxMessage, error)
	MarkOutboxDelivered(ctx context.Context, id string) error
}

// NewOutboxQueue creates a queue over the given store.
func NewOutboxQueue(s OutboxStore, logger *slog.Logger) *OutboxQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxQueue{store: s, logger: logger.With("component", "queue")}
}

// Publish appends the message to the outbox. A duplicate attempt key is a
// silent no-op.
func (q *OutboxQueue) Publish(ctx context.Context, msg Message) error {
	queued, err := q.store.EnqueueOutbox(ctx, msg.Partition, msg.DedupKey, msg.Body)
	if err != nil {
		return fmt.Errorf("publishing to outbox: %w", err)
	}
	if queued == nil {
		q.logger.Debug("duplicate publish dropped", "partition", msg.Partition, "dedup_key", msg.DedupKey)
		return nil
	}
	q.logger.Info("job queued", "partition", msg.Partition, "message", queued.ID)
	return nil
}

// DeliverFunc hands one message body to the downstream transport (the
// placement agent's intake). Returning an error leaves the message queued
// and blocks its partition, preserving order.
type DeliverFunc func(ctx context.Context, msg *store.OutboxMessage) error

// Consumer drains the outbox, one in-flight message per partition.
type Consumer struct {
	store    OutboxStore
	deliver  DeliverFunc
	interval time.Duration
	logger   *slog.Logger
}

// NewConsumer creates a consumer polling at the given interval.
func NewConsumer(s OutboxStore, deliver DeliverFunc, interval time.Duration, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Consumer{
		store:    s,
		deliver:  deliver,
		interval: interval,
		logger:   logger.With("component", "queue-consumer"),
	}
}

// Run polls until the context is cancelled. Each pass takes the head of
// every partition and delivers sequentially; a failed delivery leaves its
// partition blocked for the next pass.
func (c *Consumer) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.RunOnce(ctx); err != nil {
				c.logger.Error("outbox pass failed", "error", err)
			}
		}
	}
}

// RunOnce performs one delivery pass over all partition heads.
func (c *Consumer) RunOnce(ctx context.Context) error {
	heads, err := c.store.NextOutbox(ctx)
	if err != nil {
		return err
	}
	for _, msg := range heads {
		if err := c.deliver(ctx, msg); err != nil {
			c.logger.Warn("delivery failed, partition blocked",
				"partition", msg.Partition, "message", msg.ID, "error", err)
			continue
		}
		if err := c.store.MarkOutboxDelivered(ctx, msg.ID); err != nil {
			return fmt.Errorf("marking delivered: %w", err)
		}
	}
	return nil
}
