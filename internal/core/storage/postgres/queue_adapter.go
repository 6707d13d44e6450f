package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/storefront-lab/orders/internal/api/v1"
	"github.com/storefront-lab/orders/internal/core/storage"
)

// QueueAdapter implements storage.OrderQueue on intake_queue.
// Dequeue deletes the head row inside the worker transaction: a rollback puts
// the order back at the head of its partition.
type QueueAdapter struct {
	conn  *Adapter
	nowFn func() time.Time
}

// NewQueueAdapter creates an intake queue sharing the adapter's pool.
func NewQueueAdapter(conn *Adapter) *QueueAdapter {
	return &QueueAdapter{
		conn: conn,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Enqueue appends the order to its partition. It is visible to the worker once this call returns.
func (a *QueueAdapter) Enqueue(ctx context.Context, partition int, order *v1.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	var seq int64
	if err := a.conn.DB().QueryRowContext(ctx, queryEnqueue,
		partition,
		order.ID,
		payload,
		a.nowFn(),
	).Scan(&seq); err != nil {
		return fmt.Errorf("enqueue order: %w", classify(err))
	}

	slog.Debug("[Postgres] Enqueued order", "order_id", order.ID, "partition", partition, "seq", seq)
	return nil
}

// Dequeue takes the head of the partition within tx.
func (a *QueueAdapter) Dequeue(ctx context.Context, tx *storage.Tx, partition int) (*v1.Order, error) {
	var (
		seq     int64
		payload []byte
	)

	err := tx.SQL().QueryRowContext(ctx, queryDequeue, partition).Scan(&seq, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue order: %w", classify(err))
	}

	var order v1.Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return nil, fmt.Errorf("%w: seq %d: %w", storage.ErrMalformedOrder, seq, err)
	}

	return &order, nil
}

// CountStranded returns how many queued orders sit on partitions outside
// [0, partitions). No worker consumes them; they appear after the partition
// count is lowered with orders still queued.
func (a *QueueAdapter) CountStranded(ctx context.Context, partitions int) (int64, error) {
	var n int64
	if err := a.conn.DB().QueryRowContext(ctx, queryCountStranded, partitions).Scan(&n); err != nil {
		return 0, fmt.Errorf("count stranded orders: %w", classify(err))
	}
	return n, nil
}
