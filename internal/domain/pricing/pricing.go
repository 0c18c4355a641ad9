// Package pricing holds the discount and tax records an order may reference.
// Both are shared between orders and never mutated through them.
package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrDiscountNotFound is returned when a referenced discount does not exist.
	ErrDiscountNotFound = errors.New("discount not found")
	// ErrTaxNotFound is returned when a referenced tax does not exist.
	ErrTaxNotFound = errors.New("tax not found")
)

var hundred = decimal.NewFromInt(100)

// Discount is a flat amount taken off an order, in the order's currency.
type Discount struct {
	ID     int64
	Name   string
	Amount decimal.Decimal
}

// Tax is a percentage charged on top of the discounted order amount, e.g. 10.00
// for 10%.
type Tax struct {
	ID         int64
	Name       string
	Percentage decimal.Decimal
}

// Rate returns the tax as a fraction (10.00% -> 0.1).
func (t Tax) Rate() decimal.Decimal {
	return t.Percentage.Div(hundred)
}

// Repository provides lookups of discounts and taxes.
type Repository interface {
	GetDiscount(ctx context.Context, id int64) (*Discount, error)
	GetTax(ctx context.Context, id int64) (*Tax, error)
}
