package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/voltkart/voltkart/internal/domain/cart"
	"github.com/voltkart/voltkart/internal/domain/order"
)

type submitRequest struct {
	CustomerID    string      `json:"customer_id"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	PaymentMethod string      `json:"payment_method"`
	Notes         string      `json:"notes"`
	CartNamespace string      `json:"cart_namespace"`
	Items         []cart.Line `json:"items"`
}

type submitResponse struct {
	InvoiceNumber    string `json:"invoice_number,omitempty"`
	AmbiguousSuccess bool   `json:"ambiguous_success,omitempty"`
	Message          string `json:"message,omitempty"`
}

// SubmitOrder sends a cart upstream as a new order. The saved cart session is
// marked submitted on any successful outcome, ambiguous ones included, so a
// reload never resubmits an order that was already created.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.submitter.Submit(r.Context(), order.SubmitInput{
		CustomerID:    req.CustomerID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
		Lines:         req.Items,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if req.CartNamespace != "" {
		if err := h.sessions.MarkSubmitted(r.Context(), req.CartNamespace); err != nil {
			zctx.From(r.Context()).Warn("mark cart session submitted failed",
				zap.String("namespace", req.CartNamespace),
				zap.Error(err),
			)
		}
	}

	if res.AmbiguousSuccess {
		writeJSON(w, http.StatusAccepted, submitResponse{
			AmbiguousSuccess: true,
			Message:          "order was created but the invoice number could not be determined",
		})
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{InvoiceNumber: res.InvoiceNumber})
}

type orderResponse struct {
	ID            string              `json:"id"`
	InvoiceNumber string              `json:"invoice_number"`
	CreatedAt     string              `json:"created_at"`
	State         order.State         `json:"state"`
	PaymentMethod order.PaymentMethod `json:"payment_method"`
	PaymentStatus order.PaymentStatus `json:"payment_status"`
	Items         []order.LineDisplay `json:"items"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]order.LineDisplay, len(o.Items))
	for i, l := range o.Items {
		items[i] = l.Display()
	}
	return orderResponse{
		ID:            o.ID,
		InvoiceNumber: o.InvoiceNumber,
		CreatedAt:     o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		State:         order.StateOf(o),
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Items:         items,
	}
}

// ListOrders refreshes and returns the customer's orders with derived state.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customer query parameter is required")
		return
	}

	orders, err := h.tracker.Refresh(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.tracker.Watch(customerID)

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

// GetOrder returns a single order by upstream ID or invoice number, scoped
// to the calling customer.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customer query parameter is required")
		return
	}

	o, err := h.tracker.Get(r.Context(), customerID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// CancelOrder cancels a pending order. Confirmed orders are rejected before
// any upstream call is made.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customer query parameter is required")
		return
	}

	err := h.tracker.Cancel(r.Context(), customerID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
