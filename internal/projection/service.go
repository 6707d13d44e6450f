package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/storefront-lab/orders/internal/api/v1"
	"github.com/storefront-lab/orders/internal/core/storage"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid statistics query")

const (
	allStatisticsKey = "all"

	// sharedReadTimeout bounds a collapsed cache read, which outlives any single caller.
	sharedReadTimeout = 5 * time.Second
)

// Service implements the statistics query layer.
// It reads only the Statistics Cache; it never touches the authoritative stores.
type Service struct {
	cache storage.StatisticsCache
	// reads collapses concurrent identical cache reads.
	reads singleflight.Group
}

// NewService creates a new projection service.
func NewService(cache storage.StatisticsCache) *Service {
	if cache == nil {
		panic("projection: statistics cache must not be nil")
	}
	return &Service{cache: cache}
}

// AllStatistics returns every cached entry, most recent date first.
func (s *Service) AllStatistics(ctx context.Context) ([]v1.StatisticsEntry, error) {
	v, err := s.sharedRead(ctx, allStatisticsKey, func(readCtx context.Context) ([]v1.StatisticsEntry, error) {
		return s.cache.GetAll(readCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("read statistics: %w", err)
	}

	if v == nil {
		v = []v1.StatisticsEntry{}
	}
	return v, nil
}

// StatisticsForDate returns the cached snapshot for date.
// Returns storage.ErrNotFound if no order was processed for date yet.
func (s *Service) StatisticsForDate(ctx context.Context, date string) ([]v1.StatisticsEntry, error) {
	if !v1.ValidDate(date) {
		return nil, invalidQueryf("date must be YYYYMMDD, got %q", date)
	}

	v, err := s.sharedRead(ctx, "date:"+date, func(readCtx context.Context) ([]v1.StatisticsEntry, error) {
		return s.cache.Get(readCtx, date)
	})
	if err != nil {
		return nil, fmt.Errorf("read statistics %s: %w", date, err)
	}
	return v, nil
}

// sharedRead joins the in-flight read for key or starts one.
// The read runs detached from every caller; each caller stops waiting on its own ctx.
func (s *Service) sharedRead(
	ctx context.Context,
	key string,
	read func(ctx context.Context) ([]v1.StatisticsEntry, error),
) ([]v1.StatisticsEntry, error) {
	ch := s.reads.DoChan(key, func() (interface{}, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
		defer cancel()
		return read(readCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			slog.Debug("[Projection] Shared statistics read", "key", key)
		}
		entries, _ := res.Val.([]v1.StatisticsEntry)
		return entries, nil
	}
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
