package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

// Sentinel errors for order mutations.
var (
	ErrNotFound       = errors.New("order not found")
	ErrItemNotInOrder = errors.New("item not in order")
	ErrMissingIDs     = errors.New("order_id and item_id are required")
)

// InvalidIDError indicates a malformed or non-positive identifier in a request.
type InvalidIDError struct {
	Field string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid %s", e.Field)
}

// AddItemRequest holds the input for adding an item to an order. A zero
// OrderID asks for a new order.
type AddItemRequest struct {
	OrderID int64
	ItemID  int64
}

// AdjustmentsRequest attaches or clears the discount and tax of an order.
type AdjustmentsRequest struct {
	OrderID    int64
	DiscountID *int64
	TaxID      *int64
}

// Service encapsulates order mutation business logic.
type Service struct {
	orders Repository
	prices pricing.Repository
}

// NewService creates an order Service backed by the given repositories.
func NewService(orders Repository, prices pricing.Repository) *Service {
	return &Service{orders: orders, prices: prices}
}

// Get returns the order with its items and adjustments.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	if id <= 0 {
		return nil, &InvalidIDError{Field: "order_id"}
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// AddItem adds an item to an existing order, or to a fresh order when no
// order id is given, and returns the order id.
func (s *Service) AddItem(ctx context.Context, req AddItemRequest) (int64, error) {
	if req.ItemID <= 0 {
		return 0, &InvalidIDError{Field: "item_id"}
	}
	if req.OrderID < 0 {
		return 0, &InvalidIDError{Field: "order_id"}
	}

	id, err := s.orders.AddItem(ctx, req.OrderID, req.ItemID)
	if err != nil {
		return 0, errors.Wrap(err, "add item")
	}

	zctx.From(ctx).Debug("Item added to order",
		zap.Int64("order_id", id),
		zap.Int64("item_id", req.ItemID),
		zap.Bool("created", req.OrderID == 0),
	)
	return id, nil
}

// RemoveItem removes an item from an order. Both ids are required.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID int64) error {
	if orderID == 0 || itemID == 0 {
		return ErrMissingIDs
	}
	if orderID < 0 {
		return &InvalidIDError{Field: "order_id"}
	}
	if itemID < 0 {
		return &InvalidIDError{Field: "item_id"}
	}

	if err := s.orders.RemoveItem(ctx, orderID, itemID); err != nil {
		return errors.Wrap(err, "remove item")
	}

	zctx.From(ctx).Debug("Item removed from order",
		zap.Int64("order_id", orderID),
		zap.Int64("item_id", itemID),
	)
	return nil
}

// SetAdjustments attaches the given discount and tax to the order and returns
// the updated order. Referenced adjustments must exist; a nil id clears one.
func (s *Service) SetAdjustments(ctx context.Context, req AdjustmentsRequest) (*Order, error) {
	if req.OrderID <= 0 {
		return nil, &InvalidIDError{Field: "order_id"}
	}
	if req.DiscountID != nil && *req.DiscountID <= 0 {
		return nil, &InvalidIDError{Field: "discount_id"}
	}
	if req.TaxID != nil && *req.TaxID <= 0 {
		return nil, &InvalidIDError{Field: "tax_id"}
	}

	if req.DiscountID != nil {
		if _, err := s.prices.GetDiscount(ctx, *req.DiscountID); err != nil {
			return nil, errors.Wrap(err, "get discount")
		}
	}
	if req.TaxID != nil {
		if _, err := s.prices.GetTax(ctx, *req.TaxID); err != nil {
			return nil, errors.Wrap(err, "get tax")
		}
	}

	if err := s.orders.SetAdjustments(ctx, req.OrderID, req.DiscountID, req.TaxID); err != nil {
		return nil, errors.Wrap(err, "set adjustments")
	}
	return s.Get(ctx, req.OrderID)
}
