package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	v1 "github.com/storefront-lab/orders/internal/api/v1"
	"github.com/storefront-lab/orders/internal/core/storage"
)

// SnapshotReader reads the authoritative statistics of one date within tx.
type SnapshotReader interface {
	Snapshot(ctx context.Context, tx *storage.Tx, date string) ([]v1.StatisticsEntry, error)
}

// OrderRecorder applies one order to the authoritative stores within tx and
// returns the refreshed statistics of the order's date.
type OrderRecorder interface {
	RecordOrder(ctx context.Context, tx *storage.Tx, order *v1.Order) ([]v1.StatisticsEntry, error)
	SnapshotReader
}

// Repository is the aggregation repository: it records orders and folds their
// line items into the per-(date, product) counters.
//
// Contract: every write happens on tx, so the order row, the counter increments
// and their applied-line guards commit or roll back together. A redelivered order
// is detected by the Order Store and its lines are skipped by the guard, so a
// replay never double-counts, even after a partial application.
type Repository struct {
	orders storage.OrderStore
	stats  storage.StatisticsStore
}

// NewRepository creates an aggregation repository.
func NewRepository(orders storage.OrderStore, stats storage.StatisticsStore) *Repository {
	if orders == nil {
		panic("aggregation.NewRepository: orders store must not be nil")
	}
	if stats == nil {
		panic("aggregation.NewRepository: statistics store must not be nil")
	}
	return &Repository{orders: orders, stats: stats}
}

// RecordOrder stores the order, increments one entry per line item and returns
// every entry of the order's date ordered by arrival.
func (r *Repository) RecordOrder(ctx context.Context, tx *storage.Tx, order *v1.Order) ([]v1.StatisticsEntry, error) {
	q := tx.SQL()

	err := r.orders.InsertOrder(ctx, q, order)
	redelivered := errors.Is(err, storage.ErrDuplicate)
	if err != nil && !redelivered {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	date := order.Date()
	skipped := 0
	for n, item := range order.Products {
		applied, err := r.stats.IncrementStatistics(ctx, q, order.ID, n, date, item)
		if err != nil {
			return nil, fmt.Errorf("apply line %d: %w", n, err)
		}
		if !applied {
			skipped++
		}
	}

	if redelivered || skipped > 0 {
		slog.Warn("[Aggregation] Redelivered order",
			"order_id", order.ID,
			"date", date,
			"lines", len(order.Products),
			"lines_already_applied", skipped,
		)
	}

	entries, err := r.stats.StatisticsForDate(ctx, q, date)
	if err != nil {
		return nil, fmt.Errorf("read statistics for %s: %w", date, err)
	}
	return entries, nil
}

// Snapshot returns every entry of date ordered by arrival.
func (r *Repository) Snapshot(ctx context.Context, tx *storage.Tx, date string) ([]v1.StatisticsEntry, error) {
	entries, err := r.stats.StatisticsForDate(ctx, tx.SQL(), date)
	if err != nil {
		return nil, fmt.Errorf("read statistics for %s: %w", date, err)
	}
	return entries, nil
}

// Dates returns every date that has statistics, most recent first.
func (r *Repository) Dates(ctx context.Context, tx *storage.Tx) ([]string, error) {
	dates, err := r.stats.StatisticsDates(ctx, tx.SQL())
	if err != nil {
		return nil, fmt.Errorf("list statistics dates: %w", err)
	}
	return dates, nil
}
