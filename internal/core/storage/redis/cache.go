package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"
	v1 "github.com/storefront-lab/orders/internal/api/v1"
	"github.com/storefront-lab/orders/internal/core/storage"
)

const (
	defaultKey         = "orders:statistics"
	connectPingTimeout = 5 * time.Second
)

// Options holds the connection settings for the Redis statistics cache.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Key is the hash holding one field per date.
	Key string
}

// client is the subset of goredis.UniversalClient the cache uses.
type client interface {
	HSet(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	HGet(ctx context.Context, key, field string) *goredis.StringCmd
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
	Ping(ctx context.Context) *goredis.StatusCmd
	Close() error
}

// Cache implements storage.StatisticsCache on a Redis hash: field = date, value = JSON snapshot.
//
// Redis is not part of the SQL transaction, so Put defers the write to an after-commit
// hook: a snapshot is published only once the counters it was read from are durable.
// A failed publish leaves the previous snapshot until the next order for that date.
type Cache struct {
	client client
	key    string
}

// NewCache connects to Redis and verifies the connection.
func NewCache(opts Options) (*Cache, error) {
	c := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), connectPingTimeout)
	defer cancel()

	if err := c.Ping(pingCtx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to ping redis: %w: %w", storage.ErrStoreUnavailable, err)
	}

	slog.Info("[RedisCache] Connected", "addr", opts.Addr, "db", opts.DB)
	return newCache(c, opts.Key), nil
}

func newCache(c client, key string) *Cache {
	if key == "" {
		key = defaultKey
	}
	return &Cache{client: c, key: key}
}

// Put schedules the snapshot for date to replace the cached one when tx commits.
func (c *Cache) Put(ctx context.Context, tx *storage.Tx, date string, snapshot []v1.StatisticsEntry) error {
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tx.OnCommit(func(ctx context.Context) error {
		if err := c.client.HSet(ctx, c.key, date, encoded).Err(); err != nil {
			return fmt.Errorf("redis put %s: %w: %w", date, storage.ErrStoreUnavailable, err)
		}
		slog.Debug("[RedisCache] Refreshed statistics cache", "date", date, "entries", len(snapshot))
		return nil
	})
	return nil
}

// Get returns the snapshot for date or storage.ErrNotFound.
func (c *Cache) Get(ctx context.Context, date string) ([]v1.StatisticsEntry, error) {
	raw, err := c.client.HGet(ctx, c.key, date).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w: %w", date, storage.ErrStoreUnavailable, err)
	}

	var snapshot []v1.StatisticsEntry
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", date, err)
	}
	return snapshot, nil
}

// GetAll flattens every snapshot, most recent date first.
func (c *Cache) GetAll(ctx context.Context) ([]v1.StatisticsEntry, error) {
	fields, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get all: %w: %w", storage.ErrStoreUnavailable, err)
	}

	dates := make([]string, 0, len(fields))
	for date := range fields {
		dates = append(dates, date)
	}
	// YYYYMMDD sorts lexically in date order.
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	entries := []v1.StatisticsEntry{}
	for _, date := range dates {
		var snapshot []v1.StatisticsEntry
		if err := json.Unmarshal([]byte(fields[date]), &snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", date, err)
		}
		entries = append(entries, snapshot...)
	}
	return entries, nil
}

// Ping verifies Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
