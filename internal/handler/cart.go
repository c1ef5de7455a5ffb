package handler

import (
	"encoding/json"
	"net/http"

	"github.com/voltkart/voltkart/internal/domain/cart"
)

type cartResponse struct {
	Lines   []cart.Line `json:"lines"`
	Total   string      `json:"total"`
	Savings string      `json:"savings"`
}

func toCartResponse(lines []cart.Line) cartResponse {
	c := cart.Restore(lines)
	return cartResponse{
		Lines:   c.Lines(),
		Total:   c.Total().StringFixed(2),
		Savings: c.Savings().StringFixed(2),
	}
}

// LoadCart returns the saved cart for a session namespace. Submitted sessions
// read as absent.
func (h *Handler) LoadCart(w http.ResponseWriter, r *http.Request) {
	lines, err := h.sessions.Load(r.Context(), r.PathValue("namespace"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(lines))
}

// SaveCart replaces the saved cart for a session namespace.
func (h *Handler) SaveCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lines []cart.Line `json:"lines"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.sessions.Save(r.Context(), r.PathValue("namespace"), req.Lines); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(req.Lines))
}

// ClearCart deletes the saved cart for a session namespace.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context(), r.PathValue("namespace")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
