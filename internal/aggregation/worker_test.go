package aggregation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	v1 "github.com/storefront-lab/orders/internal/api/v1"
	"github.com/storefront-lab/orders/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workerFixture struct {
	db       *memDB
	queue    *memQueue
	cache    *memCache
	beginner *mockBeginner
	worker   *Worker
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	db := newMemDB()
	f := &workerFixture{
		db:       db,
		queue:    newMemQueue(),
		cache:    newMemCache(),
		beginner: newMockBeginner(t, db),
	}
	f.worker = NewWorker(0,
		WorkerOptions{PollInterval: 5 * time.Millisecond, ProcessTimeout: time.Second},
		f.beginner, f.queue, NewRepository(db, db), f.cache,
	)
	return f
}

func (f *workerFixture) enqueue(t *testing.T, orders ...*v1.Order) {
	t.Helper()
	for _, o := range orders {
		require.NoError(t, f.queue.Enqueue(context.Background(), 0, o))
	}
}

func TestWorker_ProcessesOrdersIntoCache(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	a := orderOn(jan1, line(productWidget, "Widget", "10.00"))
	b := orderOn(jan1, line(productWidget, "Widget", "10.00"), line(productGadget, "Gadget", "5.00"))
	f.enqueue(t, a)

	_, err := f.cache.Get(ctx, "20240101")
	require.ErrorIs(t, err, storage.ErrNotFound)

	processed, err := f.worker.processNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	snapshot, err := f.cache.Get(ctx, "20240101")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, productWidget.String(), snapshot[0].ID.Product)

	f.enqueue(t, b)
	processed, err = f.worker.processNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	snapshot, err = f.cache.Get(ctx, "20240101")
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, int64(2), snapshot[0].OrdersCount)
	assert.True(t, decimal.RequireFromString("20.00").Equal(snapshot[0].OrdersValue))
	assert.Equal(t, productGadget.String(), snapshot[1].ID.Product)
	assert.Equal(t, int64(1), snapshot[1].OrdersCount)
	assert.True(t, decimal.RequireFromString("5.00").Equal(snapshot[1].OrdersValue))

	_, commits, _ := f.beginner.counts()
	assert.Equal(t, 2, commits)
}

func TestWorker_SnapshotMatchesStore(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	f.enqueue(t,
		orderOn(jan1, line(productWidget, "Widget", "1.50")),
		orderOn(jan1.AddDate(0, 0, 1), line(productGadget, "Gadget", "2.00")),
		orderOn(jan1, line(productGadget, "Gadget", "3.00"), line(productWidget, "Widget", "1.50")),
	)
	for i := 0; i < 3; i++ {
		_, err := f.worker.processNext(ctx)
		require.NoError(t, err)
	}

	for _, date := range []string{"20240101", "20240102"} {
		tx, err := f.beginner.BeginTx(ctx)
		require.NoError(t, err)
		stored, err := f.db.StatisticsForDate(ctx, tx.SQL(), date)
		require.NoError(t, err)
		require.NoError(t, tx.Rollback(ctx))

		cached, err := f.cache.Get(ctx, date)
		require.NoError(t, err)
		require.Equal(t, stored, cached, "cache for %s must equal the store", date)
	}
}

func TestWorker_EmptyQueueNeverCommits(t *testing.T) {
	f := newWorkerFixture(t)

	for i := 0; i < 3; i++ {
		processed, err := f.worker.processNext(context.Background())
		require.NoError(t, err)
		require.False(t, processed)
	}

	begins, commits, rollbacks := f.beginner.counts()
	assert.Equal(t, 3, begins)
	assert.Equal(t, 0, commits)
	assert.Equal(t, 3, rollbacks)
	assert.Empty(t, f.db.orders)
	assert.Zero(t, f.cache.puts)
	assert.Equal(t, StateIdle, f.worker.State())
}

func TestWorker_AbortBeforeCommitIsRedeliveredWithoutDoubleCount(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	o := orderOn(jan1, line(productWidget, "Widget", "10.00"), line(productGadget, "Gadget", "5.00"))
	f.enqueue(t, o)

	// Increments are applied, then the cache refresh fails before commit.
	f.cache.putErr = fmt.Errorf("cache: %w", storage.ErrStoreUnavailable)
	processed, err := f.worker.processNext(ctx)
	require.ErrorIs(t, err, storage.ErrStoreUnavailable)
	require.False(t, processed)
	require.Equal(t, 1, f.queue.len(0), "aborted order stays queued")

	f.cache.putErr = nil
	processed, err = f.worker.processNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	require.Zero(t, f.queue.len(0))

	e, ok := f.db.entry("20240101", productWidget)
	require.True(t, ok)
	assert.Equal(t, int64(1), e.OrdersCount)
	e, ok = f.db.entry("20240101", productGadget)
	require.True(t, ok)
	assert.Equal(t, int64(1), e.OrdersCount)
}

func TestWorker_PartialApplicationRolledBack(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()

	o := orderOn(jan1, line(productWidget, "Widget", "10.00"), line(productGadget, "Gadget", "5.00"))
	f.enqueue(t, o)

	// First line applies, second fails.
	calls := 0
	f.worker.recorder = recorderFunc(func(ctx context.Context, tx *storage.Tx, order *v1.Order) ([]v1.StatisticsEntry, error) {
		calls++
		if calls == 1 {
			if _, err := f.db.IncrementStatistics(ctx, tx.SQL(), order.ID, 0, order.Date(), order.Products[0]); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("line 1: %w", storage.ErrWriteConflict)
		}
		return NewRepository(f.db, f.db).RecordOrder(ctx, tx, order)
	})

	_, err := f.worker.processNext(ctx)
	require.ErrorIs(t, err, storage.ErrWriteConflict)
	_, ok := f.db.entry("20240101", productWidget)
	require.False(t, ok, "rollback undoes the applied line")

	_, err = f.worker.processNext(ctx)
	require.NoError(t, err)

	e, ok := f.db.entry("20240101", productWidget)
	require.True(t, ok)
	assert.Equal(t, int64(1), e.OrdersCount)
}

type recorderFunc func(ctx context.Context, tx *storage.Tx, order *v1.Order) ([]v1.StatisticsEntry, error)

func (f recorderFunc) RecordOrder(ctx context.Context, tx *storage.Tx, order *v1.Order) ([]v1.StatisticsEntry, error) {
	return f(ctx, tx, order)
}

func (f recorderFunc) Snapshot(ctx context.Context, tx *storage.Tx, date string) ([]v1.StatisticsEntry, error) {
	return nil, errors.New("not used")
}

func TestWorker_CommitFailureKeepsOrderQueued(t *testing.T) {
	f := newWorkerFixture(t)
	f.beginner.commitErr = errors.New("connection reset")
	f.enqueue(t, orderOn(jan1, line(productWidget, "Widget", "10.00")))

	processed, err := f.worker.processNext(context.Background())
	require.Error(t, err)
	require.False(t, processed)
	require.Equal(t, 1, f.queue.len(0))

	_, ok := f.db.entry("20240101", productWidget)
	require.False(t, ok)
	_, err = f.cache.Get(context.Background(), "20240101")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWorker_AfterCommitFailureCountsAsProcessed(t *testing.T) {
	f := newWorkerFixture(t)
	f.cache.hookErr = errors.New("redis down")
	f.enqueue(t, orderOn(jan1, line(productWidget, "Widget", "10.00")))

	processed, err := f.worker.processNext(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Zero(t, f.queue.len(0))

	e, ok := f.db.entry("20240101", productWidget)
	require.True(t, ok)
	assert.Equal(t, int64(1), e.OrdersCount)

	// One transaction for the order, then every repair attempt.
	begins, _, _ := f.beginner.counts()
	assert.Equal(t, 1+defaultCacheRepairAttempts, begins)
	assert.Equal(t, StateIdle, f.worker.State())
}

func TestWorker_FailedCacheWriteIsRepairedWithoutFurtherOrders(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	f.cache.hookFailures = 1
	f.enqueue(t, orderOn(jan1, line(productWidget, "Widget", "10.00"), line(productGadget, "Gadget", "5.00")))

	processed, err := f.worker.processNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)
	require.Zero(t, f.queue.len(0))

	tx, err := f.beginner.BeginTx(ctx)
	require.NoError(t, err)
	stored, err := f.db.StatisticsForDate(ctx, tx.SQL(), "20240101")
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	cached, err := f.cache.Get(ctx, "20240101")
	require.NoError(t, err, "snapshot must reach the cache with no later order for the date")
	require.Equal(t, stored, cached)
	assert.Equal(t, 1, f.cache.puts)
}

func TestWorker_CacheRepairStopsOnShutdown(t *testing.T) {
	f := newWorkerFixture(t)
	f.worker.opts.PollInterval = time.Hour
	f.cache.hookErr = errors.New("redis down")
	f.enqueue(t, orderOn(jan1, line(productWidget, "Widget", "10.00")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		processed, err := f.worker.processNext(ctx)
		assert.NoError(t, err)
		assert.True(t, processed)
	}()

	require.Eventually(t, func() bool {
		_, commits, _ := f.beginner.counts()
		return commits == 1
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cache repair did not observe shutdown")
	}
	begins, _, _ := f.beginner.counts()
	assert.Equal(t, 1, begins)
}

func TestWorker_MalformedOrderIsDropped(t *testing.T) {
	f := newWorkerFixture(t)
	f.queue.malformed[0] = 1
	f.enqueue(t, orderOn(jan1, line(productWidget, "Widget", "10.00")))

	processed, err := f.worker.processNext(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Zero(t, f.queue.malformed[0])

	processed, err = f.worker.processNext(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	_, commits, _ := f.beginner.counts()
	assert.Equal(t, 2, commits)
}

func TestWorker_BeginAndDequeueErrors(t *testing.T) {
	f := newWorkerFixture(t)

	f.beginner.beginErr = storage.ErrStoreUnavailable
	_, err := f.worker.processNext(context.Background())
	require.ErrorIs(t, err, storage.ErrStoreUnavailable)

	f.beginner.beginErr = nil
	f.queue.dequeueErr = fmt.Errorf("get: %w", storage.ErrStoreUnavailable)
	_, err = f.worker.processNext(context.Background())
	require.ErrorIs(t, err, storage.ErrStoreUnavailable)

	_, commits, _ := f.beginner.counts()
	assert.Zero(t, commits)
}

func TestWorker_StartDrainsQueueAndStopsOnCancel(t *testing.T) {
	f := newWorkerFixture(t)
	for i := 0; i < 5; i++ {
		f.enqueue(t, orderOn(jan1, line(productWidget, "Widget", "1.00")))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Start(ctx) }()

	require.Eventually(t, func() bool {
		e, ok := f.db.entry("20240101", productWidget)
		return ok && e.OrdersCount == 5
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
	assert.Equal(t, StateIdle, f.worker.State())
}

func TestWorker_CancelledBeforeStartDoesNotDequeue(t *testing.T) {
	f := newWorkerFixture(t)
	f.enqueue(t, orderOn(jan1, line(productWidget, "Widget", "1.00")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.worker.Start(ctx))

	begins, _, _ := f.beginner.counts()
	assert.Zero(t, begins)
	assert.Equal(t, 1, f.queue.len(0))
}

func TestWorker_InFlightTransactionSurvivesCancellation(t *testing.T) {
	f := newWorkerFixture(t)
	f.enqueue(t, orderOn(jan1, line(productWidget, "Widget", "1.00")))

	ctx, cancel := context.WithCancel(context.Background())
	repo := NewRepository(f.db, f.db)
	f.worker.recorder = recorderFunc(func(txCtx context.Context, tx *storage.Tx, order *v1.Order) ([]v1.StatisticsEntry, error) {
		cancel()
		require.NoError(t, txCtx.Err(), "transaction context must not follow shutdown")
		return repo.RecordOrder(txCtx, tx, order)
	})

	processed, err := f.worker.processNext(ctx)
	require.NoError(t, err)
	require.True(t, processed)

	e, ok := f.db.entry("20240101", productWidget)
	require.True(t, ok)
	assert.Equal(t, int64(1), e.OrdersCount)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "dequeuing", StateDequeuing.String())
	assert.Equal(t, "processing", StateProcessing.String())
	assert.Equal(t, "committing", StateCommitting.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestNewWorker_Defaults(t *testing.T) {
	db := newMemDB()
	w := NewWorker(2, WorkerOptions{}, newMockBeginner(t, db), newMemQueue(), NewRepository(db, db), newMemCache())
	assert.Equal(t, DefaultWorkerOptions(), w.opts)

	require.Panics(t, func() {
		NewWorker(0, WorkerOptions{}, nil, newMemQueue(), NewRepository(db, db), newMemCache())
	})
}
