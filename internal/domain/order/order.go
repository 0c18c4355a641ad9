package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

// Order is a cart of distinct items with an optional discount and tax.
type Order struct {
	ID        int64
	Items     []catalog.Item
	Discount  *pricing.Discount
	Tax       *pricing.Tax
	CreatedAt time.Time
}

// IsEmpty reports whether the order has no items.
func (o *Order) IsEmpty() bool {
	return len(o.Items) == 0
}

// Subtotal is the sum of item prices.
func (o *Order) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, it := range o.Items {
		subtotal = subtotal.Add(it.Price)
	}
	return subtotal
}

// DiscountAmount returns the flat discount, or zero without one.
func (o *Order) DiscountAmount() decimal.Decimal {
	if o.Discount == nil {
		return decimal.Zero
	}
	return o.Discount.Amount
}

// TaxAmount returns the tax charged on the discounted subtotal. It is
// negative when the discount exceeds the subtotal; Total clamps the result.
func (o *Order) TaxAmount() decimal.Decimal {
	if o.Tax == nil {
		return decimal.Zero
	}
	return o.Subtotal().Sub(o.DiscountAmount()).Mul(o.Tax.Rate())
}

// Total = max(subtotal - discount + (subtotal - discount) * tax%, 0).
func (o *Order) Total() decimal.Decimal {
	total := o.Subtotal().Sub(o.DiscountAmount()).Add(o.TaxAmount())
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Repository defines persistence operations for orders. Every mutation runs
// in a single transaction holding a row lock on the order, so concurrent
// mutations of the same order are applied one after another.
type Repository interface {
	Get(ctx context.Context, id int64) (*Order, error)

	// AddItem adds the item to the order, creating a new order when orderID
	// is zero, and returns the order id. Adding a member again is a no-op.
	AddItem(ctx context.Context, orderID, itemID int64) (int64, error)

	// RemoveItem deletes the item from the order. It returns
	// ErrItemNotInOrder when the item is not a member.
	RemoveItem(ctx context.Context, orderID, itemID int64) error

	// SetAdjustments replaces the order's discount and tax references. A nil
	// id clears the reference.
	SetAdjustments(ctx context.Context, orderID int64, discountID, taxID *int64) error
}
