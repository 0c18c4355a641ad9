package catalog

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = errors.New("item not found")

// Currency is an ISO 4217 code in the lower-case form the payment provider
// expects.
type Currency string

const (
	USD Currency = "usd"
	EUR Currency = "eur"
)

// DefaultCurrency is assigned to items created without an explicit currency.
const DefaultCurrency = USD

// Currencies lists every supported currency.
func Currencies() []Currency {
	return []Currency{USD, EUR}
}

// ParseCurrency parses a currency code case-insensitively. An empty string
// yields DefaultCurrency.
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return DefaultCurrency, nil
	case USD, EUR:
		return c, nil
	default:
		return "", errors.Errorf("unsupported currency %q", s)
	}
}

func (c Currency) String() string { return string(c) }

// Item is a purchasable catalog entry.
type Item struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Currency    Currency
}

// Repository defines read operations for the catalog.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
}
