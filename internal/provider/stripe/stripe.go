// Package stripe implements the checkout payment provider on top of the
// Stripe API.
package stripe

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/stripe/stripe-go/v83"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

var _ checkout.Provider = (*Provider)(nil)

// Config configures the Stripe client backends.
type Config struct {
	// APIURL overrides the Stripe API base URL, e.g. for stripe-mock.
	// Empty means the public API.
	APIURL string
}

// Provider creates coupons, tax rates and checkout sessions. One API client
// is kept per secret key.
type Provider struct {
	backends *stripe.Backends

	mu      sync.Mutex
	clients map[string]*stripe.Client
}

// New returns a Provider. Network retries are disabled: a failed call is
// reported to the caller immediately.
func New(cfg Config, lg *zap.Logger) *Provider {
	bc := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     lg.Named("stripe").Sugar(),
	}
	if cfg.APIURL != "" {
		bc.URL = stripe.String(cfg.APIURL)
	}
	return &Provider{
		backends: stripe.NewBackendsWithConfig(bc),
		clients:  make(map[string]*stripe.Client),
	}
}

func (p *Provider) client(key string) *stripe.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.clients[key]
	if !ok {
		c = stripe.NewClient(key, stripe.WithBackends(p.backends))
		p.clients[key] = c
	}
	return c
}

// CreateCoupon registers a one-time flat discount.
func (p *Provider) CreateCoupon(ctx context.Context, key string, cp checkout.CouponParams) (string, error) {
	c, err := p.client(key).V1Coupons.Create(ctx, &stripe.CouponCreateParams{
		Name:      stripe.String(cp.Name),
		AmountOff: stripe.Int64(cp.AmountOff),
		Currency:  stripe.String(cp.Currency.String()),
		Duration:  stripe.String(string(stripe.CouponDurationOnce)),
	})
	if err != nil {
		return "", wrapError("create coupon", err)
	}
	return c.ID, nil
}

// CreateTaxRate registers a tax rate added on top of item prices.
func (p *Provider) CreateTaxRate(ctx context.Context, key string, tp checkout.TaxRateParams) (string, error) {
	r, err := p.client(key).V1TaxRates.Create(ctx, &stripe.TaxRateCreateParams{
		DisplayName: stripe.String(tp.DisplayName),
		Percentage:  stripe.Float64(tp.Percentage),
		Inclusive:   stripe.Bool(false),
	})
	if err != nil {
		return "", wrapError("create tax rate", err)
	}
	return r.ID, nil
}

// CreateSession opens a hosted card payment session.
func (p *Provider) CreateSession(ctx context.Context, key string, sp checkout.SessionParams) (string, error) {
	params := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(sp.SuccessURL),
		CancelURL:          stripe.String(sp.CancelURL),
	}
	for _, li := range sp.LineItems {
		item := &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(li.Currency.String()),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(li.Name),
				},
				UnitAmount: stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		}
		if len(li.TaxRates) > 0 {
			item.TaxRates = stripe.StringSlice(li.TaxRates)
		}
		params.LineItems = append(params.LineItems, item)
	}
	for _, id := range sp.CouponIDs {
		params.Discounts = append(params.Discounts, &stripe.CheckoutSessionCreateDiscountParams{
			Coupon: stripe.String(id),
		})
	}

	s, err := p.client(key).V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return "", wrapError("create checkout session", err)
	}
	return s.ID, nil
}

// wrapError converts a Stripe failure into a checkout.ProviderError carrying
// Stripe's human-readable message.
func wrapError(op string, err error) error {
	msg := err.Error()
	var se *stripe.Error
	if errors.As(err, &se) && se.Msg != "" {
		msg = se.Msg
	}
	return &checkout.ProviderError{Op: op, Message: msg, Err: err}
}
