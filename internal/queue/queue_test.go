// ABOUTME: Tests for the outbox queue and ordered consumer
// ABOUTME: Per-partition ordering survives delivery failures; dedup keys collapse

package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/maitred/internal/store"
)

func setupQueueTest(t *testing.T) (*store.SQLiteStore, *OutboxQueue) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, NewOutboxQueue(s, nil)
}

func TestConsumer_DeliversInPartitionOrder(t *testing.T) {
	s, q := setupQueueTest(t)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, Message{Partition: "order-1", DedupKey: "k1", Body: []byte("one")}))
	require.NoError(t, q.Publish(ctx, Message{Partition: "order-1", DedupKey: "k2", Body: []byte("two")}))
	require.NoError(t, q.Publish(ctx, Message{Partition: "order-1", DedupKey: "k3", Body: []byte("three")}))

	var delivered []string
	consumer := NewConsumer(s, func(_ context.Context, m *store.OutboxMessage) error {
		delivered = append(delivered, string(m.Body))
		return nil
	}, 0, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, consumer.RunOnce(ctx))
	}
	assert.Equal(t, []string{"one", "two", "three"}, delivered)
}

func TestConsumer_FailedDeliveryBlocksPartitionOnly(t *testing.T) {
	s, q := setupQueueTest(t)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, Message{Partition: "order-1", DedupKey: "k1", Body: []byte("stuck")}))
	require.NoError(t, q.Publish(ctx, Message{Partition: "order-1", DedupKey: "k2", Body: []byte("behind")}))
	require.NoError(t, q.Publish(ctx, Message{Partition: "order-2", DedupKey: "k3", Body: []byte("free")}))

	var delivered []string
	fail := true
	consumer := NewConsumer(s, func(_ context.Context, m *store.OutboxMessage) error {
		if fail && string(m.Body) == "stuck" {
			return errors.New("agent unreachable")
		}
		delivered = append(delivered, string(m.Body))
		return nil
	}, 0, nil)

	require.NoError(t, consumer.RunOnce(ctx))
	assert.Equal(t, []string{"free"}, delivered, "unrelated partition flows while order-1 is blocked")

	// Recovery: the stuck head goes first, order preserved
	fail = false
	require.NoError(t, consumer.RunOnce(ctx))
	require.NoError(t, consumer.RunOnce(ctx))
	assert.Equal(t, []string{"free", "stuck", "behind"}, delivered)
}

func TestPublish_DuplicateAttemptCollapses(t *testing.T) {
	s, q := setupQueueTest(t)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, Message{Partition: "order-1", DedupKey: "attempt-1", Body: []byte("job")}))
	require.NoError(t, q.Publish(ctx, Message{Partition: "order-1", DedupKey: "attempt-1", Body: []byte("job")}))

	heads, err := s.NextOutbox(ctx)
	require.NoError(t, err)
	require.Len(t, heads, 1)
	require.NoError(t, s.MarkOutboxDelivered(ctx, heads[0].ID))

	heads, err = s.NextOutbox(ctx)
	require.NoError(t, err)
	assert.Empty(t, heads, "second publish was collapsed, not queued behind")
}
