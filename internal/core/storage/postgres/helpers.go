package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	v1 "github.com/storefront-lab/orders/internal/api/v1"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanStatisticsRow scans one order_statistics row.
// orders_value is NUMERIC and is read as text to keep exact precision.
func scanStatisticsRow(row scanner) (v1.StatisticsEntry, error) {
	var entry v1.StatisticsEntry
	var valueStr string

	if err := row.Scan(
		&entry.ID.Date,
		&entry.ID.Product,
		&entry.Name,
		&entry.OrdersCount,
		&valueStr,
	); err != nil {
		return v1.StatisticsEntry{}, fmt.Errorf("failed to scan statistics row: %w", err)
	}

	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return v1.StatisticsEntry{}, fmt.Errorf("parse orders_value %q: %w", valueStr, err)
	}
	entry.OrdersValue = value

	return entry, nil
}

// decodeSnapshot decodes a cached snapshot. A NULL or empty column decodes to an empty snapshot.
func decodeSnapshot(raw []byte) ([]v1.StatisticsEntry, error) {
	if len(raw) == 0 {
		return []v1.StatisticsEntry{}, nil
	}

	var snapshot []v1.StatisticsEntry
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snapshot, nil
}
