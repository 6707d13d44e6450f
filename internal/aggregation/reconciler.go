package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/storefront-lab/orders/internal/api/v1"
	"github.com/storefront-lab/orders/internal/core/storage"
)

// StatisticsSource lists and reads the authoritative statistics.
type StatisticsSource interface {
	SnapshotReader
	Dates(ctx context.Context, tx *storage.Tx) ([]string, error)
}

// Reconciler republishes every date whose cached snapshot differs from the
// Statistics Store. It heals cache writes the worker could not repair, such as an
// after-commit failure on the last order of a date.
type Reconciler struct {
	beginner storage.TxBeginner
	source   StatisticsSource
	cache    storage.StatisticsCache
	interval time.Duration
	timeout  time.Duration
}

// NewReconciler creates a reconciler. An interval <= 0 runs a single pass on Start.
func NewReconciler(beginner storage.TxBeginner, source StatisticsSource, cache storage.StatisticsCache, interval time.Duration) *Reconciler {
	if beginner == nil || source == nil || cache == nil {
		panic("aggregation.NewReconciler: dependencies must not be nil")
	}
	return &Reconciler{
		beginner: beginner,
		source:   source,
		cache:    cache,
		interval: interval,
		timeout:  defaultProcessTimeout,
	}
}

// Start runs one pass immediately, then one per interval until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) error {
	slog.Info("[Reconciler] Starting", "interval", r.interval)
	r.runPass(ctx)

	if r.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("[Reconciler] Stopping (context cancelled)")
			return nil
		case <-ticker.C:
			r.runPass(ctx)
		}
	}
}

func (r *Reconciler) runPass(ctx context.Context) {
	repaired, err := r.Reconcile(ctx)
	if err != nil {
		slog.Error("[Reconciler] Pass failed", "repaired", repaired, "error", err)
		return
	}
	if repaired > 0 {
		slog.Warn("[Reconciler] Republished stale snapshots", "dates", repaired)
	}
}

// Reconcile compares every date and republishes the stale ones.
// It returns how many dates were republished.
func (r *Reconciler) Reconcile(ctx context.Context) (int, error) {
	dates, err := r.dates(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	var errs []error
	for _, date := range dates {
		if ctx.Err() != nil {
			break
		}
		stale, err := r.reconcileDate(ctx, date)
		if err != nil {
			errs = append(errs, fmt.Errorf("date %s: %w", date, err))
			continue
		}
		if stale {
			repaired++
		}
	}
	return repaired, errors.Join(errs...)
}

func (r *Reconciler) dates(ctx context.Context) ([]string, error) {
	txCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.beginner.BeginTx(txCtx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(txCtx)

	return r.source.Dates(txCtx, tx)
}

func (r *Reconciler) reconcileDate(ctx context.Context, date string) (bool, error) {
	txCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.beginner.BeginTx(txCtx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(txCtx)

	stored, err := r.source.Snapshot(txCtx, tx, date)
	if err != nil {
		return false, err
	}

	cached, err := r.cache.Get(txCtx, date)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("read cache: %w", err)
	}
	if err == nil && sameSnapshot(stored, cached) {
		return false, nil
	}

	if err := r.cache.Put(txCtx, tx, date, stored); err != nil {
		return false, fmt.Errorf("refresh cache: %w", err)
	}
	if err := tx.Commit(txCtx); err != nil {
		return false, err
	}
	return true, nil
}

// publishSnapshot re-reads date from the Statistics Store and writes it to the
// cache in its own transaction. An after-commit cache failure is returned.
func publishSnapshot(
	ctx context.Context,
	beginner storage.TxBeginner,
	source SnapshotReader,
	cache storage.StatisticsCache,
	date string,
) error {
	tx, err := beginner.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	entries, err := source.Snapshot(ctx, tx, date)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	if err := cache.Put(ctx, tx, date, entries); err != nil {
		return fmt.Errorf("refresh cache %s: %w", date, err)
	}
	return tx.Commit(ctx)
}

func sameSnapshot(a, b []v1.StatisticsEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID ||
			a[i].Name != b[i].Name ||
			a[i].OrdersCount != b[i].OrdersCount ||
			!a[i].OrdersValue.Equal(b[i].OrdersValue) {
			return false
		}
	}
	return true
}
