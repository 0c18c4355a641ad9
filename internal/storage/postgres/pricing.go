package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

const (
	getDiscountSQL = `SELECT id, name, amount FROM discounts WHERE id = $1`
	getTaxSQL      = `SELECT id, name, percentage FROM taxes WHERE id = $1`

	upsertDiscountSQL = `INSERT INTO discounts (name, amount) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET amount = EXCLUDED.amount
		RETURNING id`

	upsertTaxSQL = `INSERT INTO taxes (name, percentage) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET percentage = EXCLUDED.percentage
		RETURNING id`
)

var _ pricing.Repository = (*PricingRepository)(nil)

// PricingRepository implements pricing.Repository backed by PostgreSQL.
type PricingRepository struct {
	db DBTX
}

// NewPricingRepository returns a PricingRepository that uses the given connection.
func NewPricingRepository(db DBTX) *PricingRepository {
	return &PricingRepository{db: db}
}

// GetDiscount returns the discount or pricing.ErrDiscountNotFound.
func (r *PricingRepository) GetDiscount(ctx context.Context, id int64) (*pricing.Discount, error) {
	var d pricing.Discount
	err := r.db.QueryRow(ctx, getDiscountSQL, id).Scan(&d.ID, &d.Name, &d.Amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pricing.ErrDiscountNotFound
		}
		return nil, errors.Wrapf(err, "get discount %d", id)
	}
	return &d, nil
}

// GetTax returns the tax or pricing.ErrTaxNotFound.
func (r *PricingRepository) GetTax(ctx context.Context, id int64) (*pricing.Tax, error) {
	var t pricing.Tax
	err := r.db.QueryRow(ctx, getTaxSQL, id).Scan(&t.ID, &t.Name, &t.Percentage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pricing.ErrTaxNotFound
		}
		return nil, errors.Wrapf(err, "get tax %d", id)
	}
	return &t, nil
}

// UpsertDiscount inserts or updates a discount by name.
func (r *PricingRepository) UpsertDiscount(ctx context.Context, d pricing.Discount) (int64, error) {
	var id int64
	if err := r.db.QueryRow(ctx, upsertDiscountSQL, d.Name, d.Amount).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "upsert discount %q", d.Name)
	}
	return id, nil
}

// UpsertTax inserts or updates a tax by name.
func (r *PricingRepository) UpsertTax(ctx context.Context, t pricing.Tax) (int64, error) {
	var id int64
	if err := r.db.QueryRow(ctx, upsertTaxSQL, t.Name, t.Percentage).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "upsert tax %q", t.Name)
	}
	return id, nil
}
