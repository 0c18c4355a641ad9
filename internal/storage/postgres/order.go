package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

const (
	getOrderSQL = `SELECT o.id, o.created_at,
		d.id, d.name, d.amount,
		t.id, t.name, t.percentage
		FROM orders o
		LEFT JOIN discounts d ON d.id = o.discount_id
		LEFT JOIN taxes t ON t.id = o.tax_id
		WHERE o.id = $1`

	listOrderItemsSQL = `SELECT i.id, i.name, i.description, i.price, i.currency
		FROM order_items oi
		JOIN items i ON i.id = oi.item_id
		WHERE oi.order_id = $1
		ORDER BY i.id`

	createOrderSQL = `INSERT INTO orders DEFAULT VALUES RETURNING id`

	lockOrderSQL = `SELECT id FROM orders WHERE id = $1 FOR UPDATE`

	itemExistsSQL = `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`

	addOrderItemSQL = `INSERT INTO order_items (order_id, item_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	removeOrderItemSQL = `DELETE FROM order_items WHERE order_id = $1 AND item_id = $2`

	setAdjustmentsSQL = `UPDATE orders SET discount_id = $2, tax_id = $3 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository returns an OrderRepository that uses the given connection.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Get loads the order with its discount, tax and items ordered by id.
func (r *OrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	var (
		o          order.Order
		discountID *int64
		discName   *string
		discAmount decimal.NullDecimal
		taxID      *int64
		taxName    *string
		taxPercent decimal.NullDecimal
	)
	err := r.db.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.CreatedAt,
		&discountID, &discName, &discAmount,
		&taxID, &taxName, &taxPercent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	if discountID != nil {
		o.Discount = &pricing.Discount{ID: *discountID, Name: deref(discName), Amount: discAmount.Decimal}
	}
	if taxID != nil {
		o.Tax = &pricing.Tax{ID: *taxID, Name: deref(taxName), Percentage: taxPercent.Decimal}
	}

	rows, err := r.db.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "list items of order %d", id)
	}
	o.Items, err = pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, errors.Wrapf(err, "list items of order %d", id)
	}
	return &o, nil
}

// AddItem adds the item to the order under a row lock. A zero orderID creates
// the order in the same transaction.
func (r *OrderRepository) AddItem(ctx context.Context, orderID, itemID int64) (int64, error) {
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := requireExists(ctx, tx, itemExistsSQL, itemID, catalog.ErrNotFound); err != nil {
			return err
		}
		if orderID == 0 {
			if err := tx.QueryRow(ctx, createOrderSQL).Scan(&orderID); err != nil {
				return errors.Wrap(err, "create order")
			}
		} else if err := lockOrder(ctx, tx, orderID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, addOrderItemSQL, orderID, itemID); err != nil {
			return errors.Wrap(err, "insert order item")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// RemoveItem deletes the item from the order under a row lock.
func (r *OrderRepository) RemoveItem(ctx context.Context, orderID, itemID int64) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockOrder(ctx, tx, orderID); err != nil {
			return err
		}
		if err := requireExists(ctx, tx, itemExistsSQL, itemID, catalog.ErrNotFound); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, removeOrderItemSQL, orderID, itemID)
		if err != nil {
			return errors.Wrap(err, "delete order item")
		}
		if tag.RowsAffected() == 0 {
			return order.ErrItemNotInOrder
		}
		return nil
	})
}

// SetAdjustments replaces the discount and tax references under a row lock.
// Callers resolve the referenced records first; the foreign keys reject
// anything removed in between.
func (r *OrderRepository) SetAdjustments(ctx context.Context, orderID int64, discountID, taxID *int64) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockOrder(ctx, tx, orderID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, setAdjustmentsSQL, orderID, discountID, taxID); err != nil {
			return errors.Wrap(err, "update order")
		}
		return nil
	})
}

func lockOrder(ctx context.Context, tx pgx.Tx, id int64) error {
	var locked int64
	if err := tx.QueryRow(ctx, lockOrderSQL, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrNotFound
		}
		return errors.Wrapf(err, "lock order %d", id)
	}
	return nil
}

// requireExists runs an EXISTS query and returns notFound when it is false.
func requireExists(ctx context.Context, tx pgx.Tx, query string, id int64, notFound error) error {
	var ok bool
	if err := tx.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return errors.Wrapf(err, "check %d exists", id)
	}
	if !ok {
		return notFound
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
