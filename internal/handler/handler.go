// Package handler exposes the catalog, order and checkout services over HTTP.
package handler

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
	"github.com/xenking/kart-checkout/internal/domain/order"
)

// OrderService is the order mutation API used by the handlers.
type OrderService interface {
	Get(ctx context.Context, id int64) (*order.Order, error)
	AddItem(ctx context.Context, req order.AddItemRequest) (int64, error)
	RemoveItem(ctx context.Context, orderID, itemID int64) error
	SetAdjustments(ctx context.Context, req order.AdjustmentsRequest) (*order.Order, error)
}

// CheckoutService opens payment sessions.
type CheckoutService interface {
	CheckoutItem(ctx context.Context, itemID int64) (*checkout.Session, error)
	CheckoutOrder(ctx context.Context, orderID int64) (*checkout.Session, error)
	PublicKey(cur catalog.Currency) string
}

var (
	_ OrderService    = (*order.Service)(nil)
	_ CheckoutService = (*checkout.Service)(nil)
)

// Handler serves the JSON API and the HTML pages.
type Handler struct {
	items    catalog.Repository
	orders   OrderService
	checkout CheckoutService
	pages    *pages
}

// New constructs a Handler.
func New(items catalog.Repository, orders OrderService, checkout CheckoutService) (*Handler, error) {
	p, err := parsePages()
	if err != nil {
		return nil, errors.Wrap(err, "parse pages")
	}
	return &Handler{
		items:    items,
		orders:   orders,
		checkout: checkout,
		pages:    p,
	}, nil
}
