package handler

import (
	"net/http"

	"github.com/voltkart/voltkart/internal/domain/pricing"
)

type productResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	MRP             string `json:"mrp"`
	SellingPrice    string `json:"selling_price"`
	DiscountAmount  string `json:"discount_amount"`
	DiscountPercent int64  `json:"discount_percent"`
	GuaranteeMonths int    `json:"guarantee_months"`
	WarrantyMonths  int    `json:"warranty_months"`
}

// ListProducts returns the catalog priced at the requested tier. The tier
// defaults to b2c; b2b pricing additionally requires the b2b key scope,
// enforced by the auth middleware.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	tier, ok := tierFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "tier must be b2c or b2b")
		return
	}

	products, err := h.products.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		q := pricing.ForTier(p, tier)
		out[i] = productResponse{
			ID:              p.ID,
			Name:            p.Name,
			Category:        p.Category,
			MRP:             q.MRP.StringFixed(2),
			SellingPrice:    q.SellingPrice.StringFixed(2),
			DiscountAmount:  q.DiscountAmount.StringFixed(2),
			DiscountPercent: q.DiscountPercent,
			GuaranteeMonths: p.GuaranteeMonths,
			WarrantyMonths:  p.WarrantyMonths,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func tierFromRequest(r *http.Request) (pricing.Tier, bool) {
	switch r.URL.Query().Get("tier") {
	case "", string(pricing.TierB2C):
		return pricing.TierB2C, true
	case string(pricing.TierB2B):
		return pricing.TierB2B, true
	}
	return "", false
}
