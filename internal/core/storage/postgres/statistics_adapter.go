package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	v1 "github.com/storefront-lab/orders/internal/api/v1"
	"github.com/storefront-lab/orders/internal/core/storage"
)

// StatisticsAdapter implements storage.StatisticsStore on order_statistics.
// Increments are a single INSERT ... ON CONFLICT DO UPDATE so concurrent
// partitions writing the same (date, product) never read-modify-write.
type StatisticsAdapter struct {
	nowFn func() time.Time
}

// NewStatisticsAdapter creates a statistics store. Every call runs on the caller's DBTX.
func NewStatisticsAdapter() *StatisticsAdapter {
	return &StatisticsAdapter{
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// IncrementStatistics applies the line item unless (orderID, lineNo) was applied before.
func (a *StatisticsAdapter) IncrementStatistics(
	ctx context.Context,
	q storage.DBTX,
	orderID uuid.UUID,
	lineNo int,
	date string,
	item v1.LineItem,
) (bool, error) {
	var count int64
	err := q.QueryRowContext(ctx, queryIncrementStatistics,
		orderID,
		lineNo,
		date,
		item.ID.String(),
		item.Name,
		item.Price,
		a.nowFn(),
	).Scan(&count)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("increment statistics (%s, %s): %w", date, item.ID, classify(err))
	}
	return true, nil
}

// StatisticsForDate returns every entry of date ordered by arrival.
func (a *StatisticsAdapter) StatisticsForDate(ctx context.Context, q storage.DBTX, date string) ([]v1.StatisticsEntry, error) {
	rows, err := q.QueryContext(ctx, queryStatisticsForDate, date)
	if err != nil {
		return nil, fmt.Errorf("query statistics: %w", classify(err))
	}
	defer rows.Close()

	entries := []v1.StatisticsEntry{}
	for rows.Next() {
		entry, err := scanStatisticsRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statistics: %w", classify(err))
	}

	return entries, nil
}

// StatisticsDates returns every date that has at least one entry, most recent first.
func (a *StatisticsAdapter) StatisticsDates(ctx context.Context, q storage.DBTX) ([]string, error) {
	rows, err := q.QueryContext(ctx, queryStatisticsDates)
	if err != nil {
		return nil, fmt.Errorf("query statistics dates: %w", classify(err))
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("failed to scan statistics date: %w", err)
		}
		dates = append(dates, date)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statistics dates: %w", classify(err))
	}
	return dates, nil
}
