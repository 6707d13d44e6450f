package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	v1 "github.com/storefront-lab/orders/internal/api/v1"
)

var (
	// ErrDuplicate is returned when an order with the same id is already in the Order Store.
	ErrDuplicate = errors.New("order already exists")

	// ErrNotFound is returned when a lookup by key finds nothing.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable marks transient failures to reach a backing store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrWriteConflict marks transient failures caused by concurrent writers.
	ErrWriteConflict = errors.New("write conflict")

	// ErrMalformedOrder is returned by a queue when a payload cannot be decoded.
	// The message is consumed when the surrounding transaction commits.
	ErrMalformedOrder = errors.New("malformed queued order")
)

// Transient reports whether err is worth retrying by redelivery.
func Transient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrWriteConflict)
}

// DBTX is the subset of *sql.DB and *sql.Tx the store adapters need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// OrderStore is the durable collection of finalized orders, keyed by order id.
type OrderStore interface {
	// InsertOrder stores the order if absent. Returns ErrDuplicate if the id is already stored.
	InsertOrder(ctx context.Context, q DBTX, order *v1.Order) error

	// GetOrder returns ErrNotFound if the order was never recorded.
	GetOrder(ctx context.Context, id uuid.UUID) (*v1.Order, error)
}

// StatisticsStore is the authoritative collection of (date, product) counters.
type StatisticsStore interface {
	// IncrementStatistics applies one line item to its (date, product) entry with an atomic upsert.
	// The increment is guarded by (orderID, lineNo): a replay of the same line returns applied=false
	// and leaves the entry untouched.
	IncrementStatistics(
		ctx context.Context,
		q DBTX,
		orderID uuid.UUID,
		lineNo int,
		date string,
		item v1.LineItem,
	) (applied bool, err error)

	// StatisticsForDate returns every entry of the date ordered by arrival.
	StatisticsForDate(ctx context.Context, q DBTX, date string) ([]v1.StatisticsEntry, error)

	// StatisticsDates returns every date with at least one entry, most recent first.
	StatisticsDates(ctx context.Context, q DBTX) ([]string, error)
}

// StatisticsCache is the read-optimised copy of per-date statistics served by the query API.
// Put replaces the whole snapshot of a date; it never merges.
type StatisticsCache interface {
	Put(ctx context.Context, tx *Tx, date string, snapshot []v1.StatisticsEntry) error

	// Get returns ErrNotFound if no snapshot exists for date.
	Get(ctx context.Context, date string) ([]v1.StatisticsEntry, error)

	// GetAll returns every cached entry, most recent date first.
	GetAll(ctx context.Context) ([]v1.StatisticsEntry, error)
}

// OrderQueue is the durable FIFO-per-partition intake queue.
// Delivery is at-least-once: a dequeued order is consumed only when tx commits.
type OrderQueue interface {
	Enqueue(ctx context.Context, partition int, order *v1.Order) error

	// Dequeue returns (nil, nil) when the partition is empty.
	Dequeue(ctx context.Context, tx *Tx, partition int) (*v1.Order, error)
}

// TxBeginner opens the unit of work a worker processes one order in.
type TxBeginner interface {
	BeginTx(ctx context.Context) (*Tx, error)
}
