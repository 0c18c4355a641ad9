package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
)

const genericErrorMessage = "something went wrong"

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

func writeMessage(w http.ResponseWriter, status int, field, value string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field(field, func(e *jx.Encoder) { e.Str(value) })
		})
	})
}

func writeID(w http.ResponseWriter, status int, field string, id int64) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field(field, func(e *jx.Encoder) { e.Int64(id) })
		})
	})
}

// fail maps err to a status and an error body. Errors the client cannot act
// on are logged and answered with a generic message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	lg := zctx.From(r.Context())
	if status == 0 {
		lg.Error("Request failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, genericErrorMessage)
		return
	}
	lg.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	writeError(w, status, msg)
}

// classify returns the status and client message for a known error, or a
// zero status for an unexpected one.
func classify(err error) (int, string) {
	for _, sentinel := range []error{
		catalog.ErrNotFound,
		order.ErrNotFound,
		pricing.ErrDiscountNotFound,
		pricing.ErrTaxNotFound,
	} {
		if errors.Is(err, sentinel) {
			return http.StatusNotFound, sentinel.Error()
		}
	}
	for _, sentinel := range []error{
		order.ErrMissingIDs,
		order.ErrItemNotInOrder,
		checkout.ErrEmptyOrder,
		checkout.ErrNoItems,
	} {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, sentinel.Error()
		}
	}

	var (
		idErr       *order.InvalidIDError
		validErr    *ValidationError
		bodyErr     *MalformedBodyError
		mismatchErr *checkout.CurrencyMismatchError
		credsErr    *checkout.CredentialsError
		providerErr *checkout.ProviderError
	)
	switch {
	case errors.As(err, &idErr):
		return http.StatusBadRequest, idErr.Error()
	case errors.As(err, &validErr):
		return http.StatusBadRequest, validErr.Error()
	case errors.As(err, &bodyErr):
		return http.StatusBadRequest, bodyErr.Error()
	case errors.As(err, &mismatchErr):
		return http.StatusBadRequest, mismatchErr.Error()
	case errors.As(err, &credsErr):
		return http.StatusBadRequest, credsErr.Error()
	case errors.As(err, &providerErr):
		return http.StatusBadRequest, providerErr.Error()
	}
	return 0, ""
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					encodeItem(e, it)
				}
			})
		})
		e.Field("discount", func(e *jx.Encoder) {
			if o.Discount == nil {
				e.Null()
				return
			}
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Int64(o.Discount.ID) })
				e.Field("name", func(e *jx.Encoder) { e.Str(o.Discount.Name) })
				e.Field("amount", func(e *jx.Encoder) { e.Str(o.Discount.Amount.StringFixed(2)) })
			})
		})
		e.Field("tax", func(e *jx.Encoder) {
			if o.Tax == nil {
				e.Null()
				return
			}
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Int64(o.Tax.ID) })
				e.Field("name", func(e *jx.Encoder) { e.Str(o.Tax.Name) })
				e.Field("percentage", func(e *jx.Encoder) { e.Str(o.Tax.Percentage.StringFixed(2)) })
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { e.Str(o.Subtotal().StringFixed(2)) })
		e.Field("total", func(e *jx.Encoder) { e.Str(o.Total().StringFixed(2)) })
		if !o.CreatedAt.IsZero() {
			e.Field("created_at", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
		}
	})
}

func encodeItem(e *jx.Encoder, it catalog.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(it.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(it.Description) })
		e.Field("price", func(e *jx.Encoder) { e.Str(it.Price.StringFixed(2)) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(it.Currency.String()) })
	})
}
