package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	item    *template.Template
	success *template.Template
	cancel  *template.Template
}

func parsePages() (*pages, error) {
	// The page file goes first so the returned template is named after it.
	parse := func(name string) (*template.Template, error) {
		return template.ParseFS(templateFS, "templates/"+name, "templates/layout.html")
	}
	var (
		p   pages
		err error
	)
	if p.item, err = parse("item.html"); err != nil {
		return nil, err
	}
	if p.success, err = parse("success.html"); err != nil {
		return nil, err
	}
	if p.cancel, err = parse("cancel.html"); err != nil {
		return nil, err
	}
	return &p, nil
}

type itemPage struct {
	Item      catalog.Item
	Price     string
	Currency  string
	PublicKey string
	BuyURL    string
}

// ItemPage handles GET /item/{id}.
func (h *Handler) ItemPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	it, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		zctx.From(r.Context()).Error("Load item", zap.Int64("item_id", id), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	render(w, r, h.pages.item, itemPage{
		Item:      *it,
		Price:     it.Price.StringFixed(2),
		Currency:  it.Currency.String(),
		PublicKey: h.checkout.PublicKey(it.Currency),
		BuyURL:    "/buy/" + strconv.FormatInt(it.ID, 10),
	})
}

// SuccessPage handles GET /success.
func (h *Handler) SuccessPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, h.pages.success, nil)
}

// CancelPage handles GET /cancel.
func (h *Handler) CancelPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, h.pages.cancel, nil)
}

func render(w http.ResponseWriter, r *http.Request, t *template.Template, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, t.Name(), data); err != nil {
		zctx.From(r.Context()).Error("Render page", zap.String("template", t.Name()), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
