package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	v1 "github.com/storefront-lab/orders/internal/api/v1"
	"github.com/storefront-lab/orders/internal/core/storage"
)

// OrdersAdapter implements storage.OrderStore.
type OrdersAdapter struct {
	conn  *Adapter
	nowFn func() time.Time
}

// NewOrdersAdapter creates an order store sharing the adapter's pool.
func NewOrdersAdapter(conn *Adapter) *OrdersAdapter {
	return &OrdersAdapter{
		conn: conn,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// InsertOrder stores the order if its id is new.
// Returns storage.ErrDuplicate if the order was already recorded.
func (a *OrdersAdapter) InsertOrder(ctx context.Context, q storage.DBTX, order *v1.Order) error {
	productsJSON, err := json.Marshal(order.Products)
	if err != nil {
		return fmt.Errorf("failed to marshal products: %w", err)
	}

	_, offset := order.OrderDateTime.Zone()

	var id uuid.UUID
	err = q.QueryRowContext(ctx, queryInsertOrder,
		order.ID,
		order.Date(),
		order.OrderDateTime,
		offset,
		productsJSON,
		a.nowFn(),
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", classify(err))
	}

	slog.Debug("[Postgres] Inserted order", "order_id", id, "date", order.Date())
	return nil
}

// GetOrder reads an order back with the offset it was submitted in.
func (a *OrdersAdapter) GetOrder(ctx context.Context, id uuid.UUID) (*v1.Order, error) {
	var (
		order        v1.Order
		orderTime    time.Time
		offset       int
		productsJSON []byte
	)

	err := a.conn.DB().QueryRowContext(ctx, queryGetOrder, id).Scan(
		&order.ID,
		&orderTime,
		&offset,
		&productsJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", classify(err))
	}

	order.OrderDateTime = orderTime.In(time.FixedZone("", offset))
	if err := json.Unmarshal(productsJSON, &order.Products); err != nil {
		return nil, fmt.Errorf("failed to unmarshal products: %w", err)
	}

	return &order, nil
}
