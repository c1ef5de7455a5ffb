// Package handler exposes the storefront API over net/http, delegating
// business logic to the domain packages and mapping domain errors to HTTP
// responses.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/voltkart/voltkart/internal/domain/cart"
	"github.com/voltkart/voltkart/internal/domain/order"
	"github.com/voltkart/voltkart/internal/domain/pricing"
	"github.com/voltkart/voltkart/internal/domain/warranty"
	"github.com/voltkart/voltkart/internal/upstream"
)

// Handler wires the storefront API endpoints.
type Handler struct {
	products  pricing.Repository
	submitter *order.Submitter
	tracker   *order.Tracker
	warranty  *warranty.Checker
	history   warranty.Repository
	sessions  cart.Store
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products pricing.Repository,
	submitter *order.Submitter,
	tracker *order.Tracker,
	checker *warranty.Checker,
	history warranty.Repository,
	sessions cart.Store,
) *Handler {
	return &Handler{
		products:  products,
		submitter: submitter,
		tracker:   tracker,
		warranty:  checker,
		history:   history,
		sessions:  sessions,
	}
}

// Register attaches all API routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("POST /api/orders", h.SubmitOrder)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.CancelOrder)
	mux.HandleFunc("GET /api/warranty/{serial}", h.WarrantyStatus)
	mux.HandleFunc("GET /api/replacements", h.ListReplacements)
	mux.HandleFunc("GET /api/cart/{namespace}", h.LoadCart)
	mux.HandleFunc("PUT /api/cart/{namespace}", h.SaveCart)
	mux.HandleFunc("DELETE /api/cart/{namespace}", h.ClearCart)
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Code: code, Message: message})
}

// writeDomainError maps the error taxonomy to HTTP responses. Every branch
// is a recoverable, user-presentable outcome; only unclassified errors are
// logged and masked as 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: verr.Error(),
			Field:   verr.Field,
		})
		return
	}

	var derr *order.DomainError
	if errors.As(err, &derr) {
		writeError(w, http.StatusConflict, derr.Error())
		return
	}

	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrSuperseded):
		// A newer request took over; this one's outcome is not shown.
		writeError(w, http.StatusConflict, "superseded by a newer request")
	case errors.Is(err, warranty.ErrSerialNotFound):
		writeError(w, http.StatusNotFound, "serial number not found")
	case errors.Is(err, warranty.ErrNotOwned):
		// Distinct from not-found: the serial exists but is not yours.
		writeError(w, http.StatusForbidden, "this serial number is registered to a different customer")
	case errors.Is(err, pricing.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, cart.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "cart session not found")
	default:
		var uerr *upstream.Error
		if errors.As(err, &uerr) {
			// Service failures surface their message verbatim, under the
			// status the service reported.
			code := uerr.Status
			if code < http.StatusBadRequest {
				code = http.StatusBadGateway
			}
			writeError(w, code, uerr.Message)
			return
		}
		zctx.From(r.Context()).Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
