package handler

import (
	"net/http"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/order"
)

type buyOrderRequest struct {
	OrderID *int64 `json:"order_id" validate:"required,gt=0"`
}

// BuyItem handles /buy/{item_id}, answering with status on success.
func (h *Handler) BuyItem(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "item_id")
		if !ok {
			writeError(w, http.StatusNotFound, catalog.ErrNotFound.Error())
			return
		}
		sess, err := h.checkout.CheckoutItem(r.Context(), id)
		if err != nil {
			fail(w, r, err)
			return
		}
		writeMessage(w, status, "session_id", sess.ID)
	}
}

// BuyOrder handles /order/{order_id}/buy.
func (h *Handler) BuyOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "order_id")
	if !ok {
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	h.buyOrder(w, r, id)
}

// BuyOrderFromBody handles POST /order/buy with {"order_id": ...}.
func (h *Handler) BuyOrderFromBody(w http.ResponseWriter, r *http.Request) {
	body, err := decodeIDs(r, "order_id")
	if err != nil {
		fail(w, r, err)
		return
	}
	req := buyOrderRequest{OrderID: body.ptr("order_id")}
	if err := validateRequest(req); err != nil {
		fail(w, r, err)
		return
	}
	h.buyOrder(w, r, *req.OrderID)
}

func (h *Handler) buyOrder(w http.ResponseWriter, r *http.Request, id int64) {
	sess, err := h.checkout.CheckoutOrder(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "session_id", sess.ID)
}
