package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/order"
)

type addItemRequest struct {
	ItemID  *int64 `json:"item_id" validate:"required,gt=0"`
	OrderID *int64 `json:"order_id" validate:"omitempty,gt=0"`
}

type adjustmentsRequest struct {
	DiscountID *int64 `json:"discount_id" validate:"omitempty,gt=0"`
	TaxID      *int64 `json:"tax_id" validate:"omitempty,gt=0"`
}

// AddItem handles POST /order/add. Without order_id a new order is created.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	body, err := decodeIDs(r, "item_id", "order_id")
	if err != nil {
		fail(w, r, err)
		return
	}
	req := addItemRequest{ItemID: body.ptr("item_id"), OrderID: body.ptr("order_id")}
	if err := validateRequest(req); err != nil {
		fail(w, r, err)
		return
	}

	in := order.AddItemRequest{ItemID: *req.ItemID}
	if req.OrderID != nil {
		in.OrderID = *req.OrderID
	}
	id, err := h.orders.AddItem(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeID(w, http.StatusOK, "order_id", id)
}

// RemoveItem handles POST /order/remove.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	body, err := decodeIDs(r, "order_id", "item_id")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.orders.RemoveItem(r.Context(), body["order_id"], body["item_id"]); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "message", "Item removed from order")
}

// GetOrder handles GET /order/{order_id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "order_id")
	if !ok {
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// SetAdjustments handles POST /order/{order_id}/adjustments. Absent ids
// clear the corresponding adjustment.
func (h *Handler) SetAdjustments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "order_id")
	if !ok {
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}
	body, err := decodeIDs(r, "discount_id", "tax_id")
	if err != nil {
		fail(w, r, err)
		return
	}
	req := adjustmentsRequest{DiscountID: body.ptr("discount_id"), TaxID: body.ptr("tax_id")}
	if err := validateRequest(req); err != nil {
		fail(w, r, err)
		return
	}

	o, err := h.orders.SetAdjustments(r.Context(), order.AdjustmentsRequest{
		OrderID:    id,
		DiscountID: req.DiscountID,
		TaxID:      req.TaxID,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}
