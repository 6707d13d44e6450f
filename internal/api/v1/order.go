package v1

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the YYYYMMDD key used to bucket orders into days.
const DateLayout = "20060102"

// ErrInvalidOrder marks an order rejected at the API boundary. Invalid orders are never enqueued.
var ErrInvalidOrder = errors.New("invalid order")

// Order is a finalized customer order as submitted to the ingestion API.
// It is immutable once enqueued; identity is ID.
type Order struct {
	// ID is the client-assigned order identifier. Order Store documents are keyed by it.
	ID uuid.UUID `json:"id"`

	// OrderDateTime keeps the offset the client submitted.
	// The statistics date is derived in that offset, not in UTC.
	OrderDateTime time.Time `json:"orderDateTime"`

	// Products are the line items in submission order.
	Products []LineItem `json:"products"`
}

// LineItem is a single product line of an order.
type LineItem struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Date returns the YYYYMMDD statistics key for the order.
func (o *Order) Date() string {
	return o.OrderDateTime.Format(DateLayout)
}

// Validate ensures the order has the shape the pipeline relies on.
func (o *Order) Validate() error {
	if o.ID == uuid.Nil {
		return fmt.Errorf("%w: id is required", ErrInvalidOrder)
	}

	if o.OrderDateTime.IsZero() {
		return fmt.Errorf("%w: orderDateTime is required", ErrInvalidOrder)
	}

	if len(o.Products) == 0 {
		return fmt.Errorf("%w: at least one product is required", ErrInvalidOrder)
	}

	for i, p := range o.Products {
		if p.ID == uuid.Nil {
			return fmt.Errorf("%w: products[%d].id is required", ErrInvalidOrder, i)
		}
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: products[%d].name is required", ErrInvalidOrder, i)
		}
		if p.Price.IsNegative() {
			return fmt.Errorf("%w: products[%d].price must be >= 0", ErrInvalidOrder, i)
		}
	}

	return nil
}

// ValidDate reports whether s is a YYYYMMDD calendar date.
func ValidDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
