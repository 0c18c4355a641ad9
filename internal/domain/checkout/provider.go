package checkout

import (
	"context"
	"fmt"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
)

// Keys is the credential pair for one currency's payment account.
type Keys struct {
	Secret string
	Public string
}

// Credentials maps a currency to the keys used to charge in it.
type Credentials map[catalog.Currency]Keys

// SecretKey returns the secret key for the currency.
func (c Credentials) SecretKey(cur catalog.Currency) (string, bool) {
	k, ok := c[cur]
	if !ok || k.Secret == "" {
		return "", false
	}
	return k.Secret, true
}

// PublicKey returns the publishable key for the currency, or "" when none is
// configured.
func (c Credentials) PublicKey(cur catalog.Currency) string {
	return c[cur].Public
}

// CredentialsError indicates no secret key is configured for a currency.
type CredentialsError struct {
	Currency catalog.Currency
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("payment provider is not configured for currency %s", e.Currency)
}

// ProviderError is a failure reported by the payment provider.
type ProviderError struct {
	Op      string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// CouponParams describes a one-time flat discount.
type CouponParams struct {
	Name      string
	AmountOff int64 // minor units
	Currency  catalog.Currency
}

// TaxRateParams describes a percentage tax added on top of item prices.
type TaxRateParams struct {
	DisplayName string
	Percentage  float64
}

// SessionParams describes a hosted one-time payment session.
type SessionParams struct {
	LineItems  []LineItem
	CouponIDs  []string
	SuccessURL string
	CancelURL  string
}

// Provider is the external payment provider. Every call authenticates with
// the secret key passed in.
type Provider interface {
	CreateCoupon(ctx context.Context, secretKey string, p CouponParams) (string, error)
	CreateTaxRate(ctx context.Context, secretKey string, p TaxRateParams) (string, error)
	CreateSession(ctx context.Context, secretKey string, p SessionParams) (string, error)
}
