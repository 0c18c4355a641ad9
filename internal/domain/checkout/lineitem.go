package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
)

// ErrNoItems is returned when a checkout is requested for no items.
var ErrNoItems = errors.New("items list is empty")

// CurrencyMismatchError indicates items with different currencies in one
// checkout. The first item's currency is authoritative.
type CurrencyMismatchError struct {
	Want   catalog.Currency
	Got    catalog.Currency
	ItemID int64
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("all items must have the same currency: item %d is %s, expected %s", e.ItemID, e.Got, e.Want)
}

// LineItem is the provider-facing representation of one purchasable unit.
type LineItem struct {
	Name       string
	Currency   catalog.Currency
	UnitAmount int64 // minor units
	Quantity   int64
	TaxRates   []string
}

var minorUnits = decimal.NewFromInt(100)

// ToMinorUnits converts a two-digit decimal amount to provider minor units,
// truncating any fraction of a cent.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnits).Truncate(0).IntPart()
}

// BuildLineItems maps items to line items, one per item in input order. All
// items must share the first item's currency; otherwise nothing is returned.
func BuildLineItems(items []catalog.Item) ([]LineItem, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	currency := items[0].Currency
	for _, it := range items[1:] {
		if it.Currency != currency {
			return nil, &CurrencyMismatchError{Want: currency, Got: it.Currency, ItemID: it.ID}
		}
	}

	out := make([]LineItem, len(items))
	for i, it := range items {
		out[i] = LineItem{
			Name:       it.Name,
			Currency:   it.Currency,
			UnitAmount: ToMinorUnits(it.Price),
			Quantity:   1,
		}
	}
	return out, nil
}
