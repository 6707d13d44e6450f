package v1

import "github.com/shopspring/decimal"

// StatisticsID is the compound (date, product) key of a statistics entry.
type StatisticsID struct {
	Date    string `json:"date"`
	Product string `json:"product"`
}

// StatisticsEntry is the running count and value of one product on one day.
// Entries are created on the first order for the key and only ever incremented.
type StatisticsEntry struct {
	ID          StatisticsID    `json:"id"`
	Name        string          `json:"name"`
	OrdersCount int64           `json:"ordersCount"`
	OrdersValue decimal.Decimal `json:"ordersValue"`
}
