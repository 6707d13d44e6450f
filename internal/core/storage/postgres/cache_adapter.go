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

// CacheAdapter implements storage.StatisticsCache on statistics_cache.
// Put runs inside the worker transaction, so the snapshot commits together with the
// order and counter writes it was read from.
type CacheAdapter struct {
	conn  *Adapter
	nowFn func() time.Time
}

// NewCacheAdapter creates a statistics cache sharing the adapter's pool.
func NewCacheAdapter(conn *Adapter) *CacheAdapter {
	return &CacheAdapter{
		conn: conn,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Put replaces the snapshot for date.
func (a *CacheAdapter) Put(ctx context.Context, tx *storage.Tx, date string, snapshot []v1.StatisticsEntry) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if _, err := tx.SQL().ExecContext(ctx, queryPutCache, date, snapshotJSON, a.nowFn()); err != nil {
		return fmt.Errorf("put statistics cache %s: %w", date, classify(err))
	}

	slog.Debug("[Postgres] Refreshed statistics cache", "date", date, "entries", len(snapshot))
	return nil
}

// Get returns the snapshot for date or storage.ErrNotFound.
func (a *CacheAdapter) Get(ctx context.Context, date string) ([]v1.StatisticsEntry, error) {
	var raw []byte
	err := a.conn.DB().QueryRowContext(ctx, queryGetCache, date).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get statistics cache %s: %w", date, classify(err))
	}

	return decodeSnapshot(raw)
}

// GetAll flattens every snapshot, most recent date first.
func (a *CacheAdapter) GetAll(ctx context.Context) ([]v1.StatisticsEntry, error) {
	rows, err := a.conn.DB().QueryContext(ctx, queryGetAllCache)
	if err != nil {
		return nil, fmt.Errorf("query statistics cache: %w", classify(err))
	}
	defer rows.Close()

	entries := []v1.StatisticsEntry{}
	for rows.Next() {
		var (
			date string
			raw  []byte
		)
		if err := rows.Scan(&date, &raw); err != nil {
			return nil, fmt.Errorf("scan statistics cache row: %w", err)
		}

		snapshot, err := decodeSnapshot(raw)
		if err != nil {
			return nil, fmt.Errorf("statistics cache %s: %w", date, err)
		}
		entries = append(entries, snapshot...)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statistics cache: %w", classify(err))
	}

	return entries, nil
}
