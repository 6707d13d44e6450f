package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/storefront-lab/orders/internal/core/storage"
)

const (
	defaultPollInterval        = time.Second
	defaultProcessTimeout      = 30 * time.Second
	defaultCacheRepairAttempts = 3
)

// State is the phase a worker is in.
type State int32

const (
	StateIdle State = iota
	StateDequeuing
	StateProcessing
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDequeuing:
		return "dequeuing"
	case StateProcessing:
		return "processing"
	case StateCommitting:
		return "committing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// WorkerOptions controls polling and transaction bounds.
type WorkerOptions struct {
	// PollInterval is the wait after an empty poll or a failed attempt.
	PollInterval time.Duration
	// ProcessTimeout bounds one transaction. It is not shortened by shutdown.
	ProcessTimeout time.Duration
	// CacheRepairAttempts bounds the republish of a snapshot whose after-commit
	// cache write failed. Attempts back off from PollInterval, doubling each time.
	CacheRepairAttempts int
}

// DefaultWorkerOptions returns the production polling defaults.
func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		PollInterval:        defaultPollInterval,
		ProcessTimeout:      defaultProcessTimeout,
		CacheRepairAttempts: defaultCacheRepairAttempts,
	}
}

func (o WorkerOptions) normalized() WorkerOptions {
	n := o
	if n.PollInterval <= 0 {
		n.PollInterval = defaultPollInterval
	}
	if n.ProcessTimeout <= 0 {
		n.ProcessTimeout = defaultProcessTimeout
	}
	if n.CacheRepairAttempts <= 0 {
		n.CacheRepairAttempts = defaultCacheRepairAttempts
	}
	return n
}

// Worker is the single consumer of one intake partition.
// It processes one order per transaction: dequeue, record, refresh the cache, commit.
// Any failure before commit rolls back and leaves the order queued.
type Worker struct {
	partition int
	opts      WorkerOptions
	beginner  storage.TxBeginner
	queue     storage.OrderQueue
	recorder  OrderRecorder
	cache     storage.StatisticsCache

	state atomic.Int32
}

// NewWorker creates the worker for partition.
func NewWorker(
	partition int,
	opts WorkerOptions,
	beginner storage.TxBeginner,
	queue storage.OrderQueue,
	recorder OrderRecorder,
	cache storage.StatisticsCache,
) *Worker {
	if beginner == nil || queue == nil || recorder == nil || cache == nil {
		panic("aggregation.NewWorker: dependencies must not be nil")
	}
	return &Worker{
		partition: partition,
		opts:      opts.normalized(),
		beginner:  beginner,
		queue:     queue,
		recorder:  recorder,
		cache:     cache,
	}
}

// State reports the current phase.
func (w *Worker) State() State {
	return State(w.state.Load())
}

func (w *Worker) setState(s State) {
	prev := State(w.state.Swap(int32(s)))
	if prev != s {
		slog.Debug("[Worker] State transition", "partition", w.partition, "from", prev, "to", s)
	}
}

// Start processes orders until ctx is cancelled.
// Cancellation is observed between orders; a transaction in flight finishes first.
func (w *Worker) Start(ctx context.Context) error {
	slog.Info("[Worker] Starting",
		"partition", w.partition,
		"poll_interval", w.opts.PollInterval,
		"process_timeout", w.opts.ProcessTimeout,
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("[Worker] Stopping (context cancelled)", "partition", w.partition)
			return nil
		default:
		}

		processed, err := w.processNext(ctx)
		if err != nil {
			slog.Error("[Worker] Transaction aborted, order stays queued",
				"partition", w.partition,
				"transient", storage.Transient(err),
				"error", err,
			)
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
		case <-time.After(w.opts.PollInterval):
		}
	}
}

// processNext runs one transaction. It reports whether an order was consumed.
func (w *Worker) processNext(ctx context.Context) (bool, error) {
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.opts.ProcessTimeout)
	defer cancel()
	defer w.setState(StateIdle)

	w.setState(StateDequeuing)

	tx, err := w.beginner.BeginTx(txCtx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback(txCtx)

	order, err := w.queue.Dequeue(txCtx, tx, w.partition)
	switch {
	case errors.Is(err, storage.ErrMalformedOrder):
		slog.Error("[Worker] Dropping malformed order", "partition", w.partition, "error", err)
		processed, err := w.commit(txCtx, tx, "")
		if errors.Is(err, storage.ErrAfterCommit) {
			return processed, nil
		}
		return processed, err
	case err != nil:
		return false, fmt.Errorf("dequeue: %w", err)
	case order == nil:
		slog.Debug("[Worker] Queue empty", "partition", w.partition)
		return false, nil
	}

	w.setState(StateProcessing)

	entries, err := w.recorder.RecordOrder(txCtx, tx, order)
	if err != nil {
		return false, fmt.Errorf("record order %s: %w", order.ID, err)
	}

	date := order.Date()
	if len(entries) > 0 {
		if err := w.cache.Put(txCtx, tx, date, entries); err != nil {
			return false, fmt.Errorf("refresh cache %s: %w", date, err)
		}
	}

	processed, err := w.commit(txCtx, tx, order.ID.String())
	if errors.Is(err, storage.ErrAfterCommit) {
		// The stores committed but the cache may not hold the new snapshot.
		w.repairCache(ctx, date)
		err = nil
	}
	if err != nil {
		return false, err
	}

	slog.Info("[Worker] Processed order",
		"partition", w.partition,
		"order_id", order.ID,
		"date", date,
		"lines", len(order.Products),
		"entries", len(entries),
	)
	return processed, nil
}

// commit reports processed=true together with an ErrAfterCommit error when only
// an external side effect failed.
func (w *Worker) commit(ctx context.Context, tx *storage.Tx, orderID string) (bool, error) {
	w.setState(StateCommitting)

	err := tx.Commit(ctx)
	if errors.Is(err, storage.ErrAfterCommit) {
		slog.Warn("[Worker] After-commit hook failed",
			"partition", w.partition,
			"order_id", orderID,
			"error", err,
		)
		return true, err
	}
	if err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// repairCache republishes the snapshot of date from the Statistics Store until the
// cache accepts it or the attempts run out. Whatever is left is healed by the Reconciler.
func (w *Worker) repairCache(ctx context.Context, date string) {
	backoff := w.opts.PollInterval
	for attempt := 1; attempt <= w.opts.CacheRepairAttempts; attempt++ {
		select {
		case <-ctx.Done():
			slog.Warn("[Worker] Cache repair interrupted by shutdown", "partition", w.partition, "date", date)
			return
		case <-time.After(backoff):
		}
		backoff *= 2

		txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.opts.ProcessTimeout)
		err := publishSnapshot(txCtx, w.beginner, w.recorder, w.cache, date)
		cancel()
		if err == nil {
			slog.Info("[Worker] Cache repaired", "partition", w.partition, "date", date, "attempt", attempt)
			return
		}
		slog.Warn("[Worker] Cache repair failed",
			"partition", w.partition,
			"date", date,
			"attempt", attempt,
			"error", err,
		)
	}

	slog.Error("[Worker] Giving up cache repair, left to reconcile", "partition", w.partition, "date", date)
}
