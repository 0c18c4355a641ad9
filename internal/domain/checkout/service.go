package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

// ErrEmptyOrder is returned when checking out an order without items.
var ErrEmptyOrder = errors.New("order is empty")

// Session is a created hosted checkout session.
type Session struct {
	ID string
}

// Config holds non-dependency configuration for the Service.
type Config struct {
	Credentials Credentials
	SuccessURL  string
	CancelURL   string
}

// OrderReader loads orders for checkout.
type OrderReader interface {
	Get(ctx context.Context, id int64) (*order.Order, error)
}

// Service builds line items and opens checkout sessions with the provider.
type Service struct {
	items    catalog.Repository
	orders   OrderReader
	provider Provider
	cfg      Config

	tracer   trace.Tracer
	sessions metric.Int64Counter
}

// NewService creates a checkout Service.
func NewService(
	cfg Config,
	items catalog.Repository,
	orders OrderReader,
	provider Provider,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	sessions, err := mp.Meter("checkout").Int64Counter("checkout.sessions",
		metric.WithDescription("Checkout session attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create sessions counter")
	}
	return &Service{
		items:    items,
		orders:   orders,
		provider: provider,
		cfg:      cfg,
		tracer:   tp.Tracer("checkout"),
		sessions: sessions,
	}, nil
}

// PublicKey returns the publishable key for clients paying in the currency.
func (s *Service) PublicKey(cur catalog.Currency) string {
	return s.cfg.Credentials.PublicKey(cur)
}

// CheckoutItem opens a session for a single item.
func (s *Service) CheckoutItem(ctx context.Context, itemID int64) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Item", trace.WithAttributes(attribute.Int64("item.id", itemID)))
	defer span.End()

	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, s.fail(ctx, span, errors.Wrap(err, "get item"))
	}

	lineItems, err := BuildLineItems([]catalog.Item{*it})
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}

	sess, err := s.createSession(ctx, lineItems, nil, nil)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	s.succeed(ctx, span, sess)
	return sess, nil
}

// CheckoutOrder opens a session for every item of the order, forwarding the
// order's discount and tax to the provider.
func (s *Service) CheckoutOrder(ctx context.Context, orderID int64) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Order", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, s.fail(ctx, span, errors.Wrap(err, "get order"))
	}
	if o.IsEmpty() {
		return nil, s.fail(ctx, span, ErrEmptyOrder)
	}

	lineItems, err := BuildLineItems(o.Items)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}

	sess, err := s.createSession(ctx, lineItems, o.Discount, o.Tax)
	if err != nil {
		return nil, s.fail(ctx, span, err)
	}
	s.succeed(ctx, span, sess)
	return sess, nil
}

// createSession registers the optional coupon and tax rate, then opens the
// session. lineItems must be non-empty and share one currency.
func (s *Service) createSession(
	ctx context.Context,
	lineItems []LineItem,
	discount *pricing.Discount,
	tax *pricing.Tax,
) (*Session, error) {
	currency := lineItems[0].Currency
	key, ok := s.cfg.Credentials.SecretKey(currency)
	if !ok {
		return nil, &CredentialsError{Currency: currency}
	}

	var (
		couponID  string
		taxRateID string
	)
	g, gctx := errgroup.WithContext(ctx)
	// A zero coupon is rejected by the provider and changes nothing.
	if amountOff := discountMinorUnits(discount); amountOff > 0 {
		g.Go(func() error {
			id, err := s.provider.CreateCoupon(gctx, key, CouponParams{
				Name:      discount.Name,
				AmountOff: amountOff,
				Currency:  currency,
			})
			if err != nil {
				return providerError("create coupon", err)
			}
			couponID = id
			return nil
		})
	}
	if tax != nil {
		g.Go(func() error {
			id, err := s.provider.CreateTaxRate(gctx, key, TaxRateParams{
				DisplayName: tax.Name,
				Percentage:  tax.Percentage.InexactFloat64(),
			})
			if err != nil {
				return providerError("create tax rate", err)
			}
			taxRateID = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	params := SessionParams{
		LineItems:  lineItems,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	}
	if taxRateID != "" {
		for i := range params.LineItems {
			params.LineItems[i].TaxRates = []string{taxRateID}
		}
	}
	if couponID != "" {
		params.CouponIDs = []string{couponID}
	}

	id, err := s.provider.CreateSession(ctx, key, params)
	if err != nil {
		return nil, providerError("create session", err)
	}
	return &Session{ID: id}, nil
}

func discountMinorUnits(d *pricing.Discount) int64 {
	if d == nil {
		return 0
	}
	return ToMinorUnits(d.Amount)
}

func providerError(op string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Op: op, Message: err.Error(), Err: err}
}

func (s *Service) succeed(ctx context.Context, span trace.Span, sess *Session) {
	span.SetAttributes(attribute.String("session.id", sess.ID))
	s.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "created")))
	zctx.From(ctx).Info("Checkout session created", zap.String("session_id", sess.ID))
}

func (s *Service) fail(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))

	var pe *ProviderError
	if errors.As(err, &pe) {
		zctx.From(ctx).Error("Payment provider error", zap.String("op", pe.Op), zap.Error(err))
	}
	return err
}

func outcome(err error) string {
	var (
		pe *ProviderError
		ce *CredentialsError
		me *CurrencyMismatchError
	)
	switch {
	case errors.As(err, &pe):
		return "provider_error"
	case errors.As(err, &ce):
		return "not_configured"
	case errors.As(err, &me), errors.Is(err, ErrNoItems), errors.Is(err, ErrEmptyOrder):
		return "rejected"
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, order.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
