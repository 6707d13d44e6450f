package aggregation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	v1 "github.com/storefront-lab/orders/internal/api/v1"
	"github.com/storefront-lab/orders/internal/core/storage"
	"github.com/stretchr/testify/require"
)

// memDB is an in-memory Order Store and Statistics Store with transactional
// semantics: writes made on a tx are undone if the tx rolls back.
type memDB struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]*v1.Order
	entries map[v1.StatisticsID]*v1.StatisticsEntry
	arrival []v1.StatisticsID
	applied map[appliedLine]bool
	undo    map[storage.DBTX][]func()

	// failIncrement, when set, is returned by the next increment.
	failIncrement error
}

type appliedLine struct {
	order uuid.UUID
	line  int
}

func newMemDB() *memDB {
	return &memDB{
		orders:  make(map[uuid.UUID]*v1.Order),
		entries: make(map[v1.StatisticsID]*v1.StatisticsEntry),
		applied: make(map[appliedLine]bool),
		undo:    make(map[storage.DBTX][]func()),
	}
}

// attach binds tx completion to the undo log.
func (m *memDB) attach(tx *storage.Tx) {
	q := storage.DBTX(tx.SQL())
	tx.OnCommit(func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.undo, q)
		return nil
	})
	tx.OnRollback(func(context.Context) {
		m.mu.Lock()
		defer m.mu.Unlock()
		ops := m.undo[q]
		for i := len(ops) - 1; i >= 0; i-- {
			ops[i]()
		}
		delete(m.undo, q)
	})
}

func (m *memDB) InsertOrder(ctx context.Context, q storage.DBTX, order *v1.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; ok {
		return storage.ErrDuplicate
	}
	m.orders[order.ID] = order
	m.undo[q] = append(m.undo[q], func() { delete(m.orders, order.ID) })
	return nil
}

func (m *memDB) GetOrder(ctx context.Context, id uuid.UUID) (*v1.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return o, nil
}

func (m *memDB) IncrementStatistics(
	ctx context.Context,
	q storage.DBTX,
	orderID uuid.UUID,
	lineNo int,
	date string,
	item v1.LineItem,
) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failIncrement; err != nil {
		m.failIncrement = nil
		return false, err
	}

	guard := appliedLine{order: orderID, line: lineNo}
	if m.applied[guard] {
		return false, nil
	}
	m.applied[guard] = true

	id := v1.StatisticsID{Date: date, Product: item.ID.String()}
	entry, existed := m.entries[id]
	prevName := ""
	if !existed {
		entry = &v1.StatisticsEntry{ID: id}
		m.entries[id] = entry
		m.arrival = append(m.arrival, id)
	} else {
		prevName = entry.Name
	}
	entry.Name = item.Name
	entry.OrdersCount++
	entry.OrdersValue = entry.OrdersValue.Add(item.Price)

	m.undo[q] = append(m.undo[q], func() {
		delete(m.applied, guard)
		if !existed {
			delete(m.entries, id)
			for i, a := range m.arrival {
				if a == id {
					m.arrival = append(m.arrival[:i], m.arrival[i+1:]...)
					break
				}
			}
			return
		}
		entry.Name = prevName
		entry.OrdersCount--
		entry.OrdersValue = entry.OrdersValue.Sub(item.Price)
	})
	return true, nil
}

func (m *memDB) StatisticsForDate(ctx context.Context, q storage.DBTX, date string) ([]v1.StatisticsEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []v1.StatisticsEntry{}
	for _, id := range m.arrival {
		if id.Date == date {
			out = append(out, *m.entries[id])
		}
	}
	return out, nil
}

func (m *memDB) StatisticsDates(ctx context.Context, q storage.DBTX) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	out := []string{}
	for _, id := range m.arrival {
		if !seen[id.Date] {
			seen[id.Date] = true
			out = append(out, id.Date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

func (m *memDB) entry(date string, product uuid.UUID) (v1.StatisticsEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[v1.StatisticsID{Date: date, Product: product.String()}]
	if !ok {
		return v1.StatisticsEntry{}, false
	}
	return *e, true
}

// memQueue is a FIFO per partition. A dequeued order returns to the head on rollback.
type memQueue struct {
	mu         sync.Mutex
	partitions map[int][]*v1.Order
	malformed  map[int]int
	dequeueErr error
}

func newMemQueue() *memQueue {
	return &memQueue{
		partitions: make(map[int][]*v1.Order),
		malformed:  make(map[int]int),
	}
}

func (q *memQueue) Enqueue(ctx context.Context, partition int, order *v1.Order) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.partitions[partition] = append(q.partitions[partition], order)
	return nil
}

func (q *memQueue) Dequeue(ctx context.Context, tx *storage.Tx, partition int) (*v1.Order, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.dequeueErr; err != nil {
		return nil, err
	}
	if q.malformed[partition] > 0 {
		q.malformed[partition]--
		tx.OnRollback(func(context.Context) {
			q.mu.Lock()
			defer q.mu.Unlock()
			q.malformed[partition]++
		})
		return nil, storage.ErrMalformedOrder
	}

	pending := q.partitions[partition]
	if len(pending) == 0 {
		return nil, nil
	}
	order := pending[0]
	q.partitions[partition] = pending[1:]
	tx.OnRollback(func(context.Context) {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.partitions[partition] = append([]*v1.Order{order}, q.partitions[partition]...)
	})
	return order, nil
}

func (q *memQueue) len(partition int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.partitions[partition])
}

// memCache publishes snapshots on commit.
type memCache struct {
	mu        sync.Mutex
	snapshots map[string][]v1.StatisticsEntry
	puts      int
	putErr    error
	hookErr   error
	// hookFailures fails that many after-commit writes before they succeed.
	hookFailures int
}

func newMemCache() *memCache {
	return &memCache{snapshots: make(map[string][]v1.StatisticsEntry)}
}

func (c *memCache) Put(ctx context.Context, tx *storage.Tx, date string, snapshot []v1.StatisticsEntry) error {
	if c.putErr != nil {
		return c.putErr
	}
	tx.OnCommit(func(context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.hookErr != nil {
			return c.hookErr
		}
		if c.hookFailures > 0 {
			c.hookFailures--
			return errors.New("cache write failed")
		}
		c.snapshots[date] = snapshot
		c.puts++
		return nil
	})
	return nil
}

func (c *memCache) Get(ctx context.Context, date string) ([]v1.StatisticsEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snapshots[date]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s, nil
}

func (c *memCache) GetAll(ctx context.Context) ([]v1.StatisticsEntry, error) {
	return nil, errors.New("not used")
}

// mockBeginner opens sqlmock-backed transactions and counts their outcomes.
type mockBeginner struct {
	t         *testing.T
	db        *memDB
	commitErr error
	beginErr  error

	mu        sync.Mutex
	begins    int
	commits   int
	rollbacks int
}

func newMockBeginner(t *testing.T, db *memDB) *mockBeginner {
	return &mockBeginner{t: t, db: db}
}

func (b *mockBeginner) BeginTx(ctx context.Context) (*storage.Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}

	conn, mock, err := sqlmock.New()
	require.NoError(b.t, err)
	b.t.Cleanup(func() { conn.Close() })

	mock.MatchExpectationsInOrder(false)
	mock.ExpectBegin()
	if b.commitErr != nil {
		mock.ExpectCommit().WillReturnError(b.commitErr)
	} else {
		mock.ExpectCommit()
	}
	mock.ExpectRollback()

	sqlTx, err := conn.Begin()
	require.NoError(b.t, err)

	tx := storage.NewTx(sqlTx)
	b.db.attach(tx)
	tx.OnCommit(func(context.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.commits++
		return nil
	})
	tx.OnRollback(func(context.Context) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.rollbacks++
	})

	b.mu.Lock()
	b.begins++
	b.mu.Unlock()
	return tx, nil
}

func (b *mockBeginner) counts() (begins, commits, rollbacks int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.begins, b.commits, b.rollbacks
}
