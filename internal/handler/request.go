package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-playground/validator/v10"

	"github.com/xenking/kart-checkout/internal/domain/order"
)

const maxBodySize = 64 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Errors validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Field()+" "+msgForTag(fe))
	}
	return strings.Join(msgs, "; ")
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return &ValidationError{Errors: ve}
		}
		return err
	}
	return nil
}

// MalformedBodyError is returned for request bodies that are not a JSON object.
type MalformedBodyError struct {
	Err error
}

func (e *MalformedBodyError) Error() string { return "malformed request body" }

func (e *MalformedBodyError) Unwrap() error { return e.Err }

// ids holds identifier fields read from a request body.
type ids map[string]int64

func (m ids) ptr(field string) *int64 {
	v, ok := m[field]
	if !ok {
		return nil
	}
	return &v
}

// decodeIDs reads the named identifier fields from a JSON object body. Values
// may be JSON numbers or numeric strings; null and "" mean absent. Other
// fields are ignored and an empty body is an empty object. Anything after the
// object is rejected.
func decodeIDs(r *http.Request, fields ...string) (ids, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, &MalformedBodyError{Err: err}
	}
	out := make(ids, len(fields))
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}

	d := jx.DecodeBytes(body)
	err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		field := string(key)
		if !wanted(fields, field) {
			return d.Skip()
		}
		id, ok, err := readID(d)
		if err != nil {
			return &order.InvalidIDError{Field: field}
		}
		if ok {
			out[field] = id
		}
		return nil
	})
	if err != nil {
		var idErr *order.InvalidIDError
		if errors.As(err, &idErr) {
			return nil, idErr
		}
		return nil, &MalformedBodyError{Err: err}
	}
	if d.Next() != jx.Invalid {
		return nil, &MalformedBodyError{Err: errors.New("unexpected data after object")}
	}
	return out, nil
}

func wanted(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

func readID(d *jx.Decoder) (id int64, ok bool, err error) {
	switch d.Next() {
	case jx.Null:
		return 0, false, d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return 0, false, err
		}
		// Integers only: 1.0 and 1e3 are rejected.
		id, err = strconv.ParseInt(n.String(), 10, 64)
		return id, err == nil, err
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, false, err
		}
		if s = strings.TrimSpace(s); s == "" {
			return 0, false, nil
		}
		id, err = strconv.ParseInt(s, 10, 64)
		return id, err == nil, err
	default:
		return 0, false, errors.New("id must be a number or a numeric string")
	}
}

// pathID parses a numeric URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
