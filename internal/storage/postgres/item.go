package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
)

const (
	listItemsSQL = `SELECT id, name, description, price, currency
		FROM items ORDER BY id`

	getItemByIDSQL = `SELECT id, name, description, price, currency
		FROM items WHERE id = $1`

	upsertItemSQL = `INSERT INTO items (name, description, price, currency)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description, price = EXCLUDED.price, currency = EXCLUDED.currency
		RETURNING id`
)

var _ catalog.Repository = (*ItemRepository)(nil)

// ItemRepository implements catalog.Repository backed by PostgreSQL.
type ItemRepository struct {
	db DBTX
}

// NewItemRepository returns an ItemRepository that uses the given connection.
func NewItemRepository(db DBTX) *ItemRepository {
	return &ItemRepository{db: db}
}

// List returns all items ordered by id.
func (r *ItemRepository) List(ctx context.Context) ([]catalog.Item, error) {
	rows, err := r.db.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list items")
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, errors.Wrap(err, "list items")
	}
	return items, nil
}

// GetByID returns the item or catalog.ErrNotFound.
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*catalog.Item, error) {
	rows, err := r.db.Query(ctx, getItemByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get item %d", id)
	}
	it, err := pgx.CollectExactlyOneRow(rows, scanItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get item %d", id)
	}
	return &it, nil
}

// Upsert inserts the item or updates the one with the same name, and returns
// its id.
func (r *ItemRepository) Upsert(ctx context.Context, it catalog.Item) (int64, error) {
	cur := it.Currency
	if cur == "" {
		cur = catalog.DefaultCurrency
	}
	var id int64
	err := r.db.QueryRow(ctx, upsertItemSQL, it.Name, it.Description, it.Price, cur.String()).Scan(&id)
	if err != nil {
		return 0, errors.Wrapf(err, "upsert item %q", it.Name)
	}
	return id, nil
}

func scanItem(row pgx.CollectableRow) (catalog.Item, error) {
	var (
		it    catalog.Item
		price decimal.Decimal
		cur   string
	)
	err := row.Scan(&it.ID, &it.Name, &it.Description, &price, &cur)
	it.Price = price
	it.Currency = catalog.Currency(cur)
	return it, err
}
