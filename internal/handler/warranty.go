package handler

import (
	"net/http"

	"github.com/voltkart/voltkart/internal/domain/warranty"
)

type slabResponse struct {
	Name            string `json:"name"`
	DiscountPercent string `json:"discount_percent"`
}

type replacementResponse struct {
	Date             string `json:"date"`
	NewSerialNumber  string `json:"new_serial_number"`
	Type             string `json:"type"`
	NewInvoiceNumber string `json:"new_invoice_number,omitempty"`
}

type warrantyResponse struct {
	SerialNumber         string               `json:"serial_number"`
	PurchaseDate         string               `json:"purchase_date"`
	Eligible             bool                 `json:"eligible"`
	UnderGuarantee       bool                 `json:"under_guarantee"`
	GuaranteeMonths      int                  `json:"guarantee_months"`
	WarrantyMonths       int                  `json:"warranty_months"`
	MonthsAfterGuarantee int                  `json:"months_after_guarantee"`
	Slab                 *slabResponse        `json:"slab,omitempty"`
	Replaced             bool                 `json:"replaced"`
	LatestReplacement    *replacementResponse `json:"latest_replacement,omitempty"`
}

const dateLayout = "2006-01-02"

func toReplacementResponse(r warranty.Replacement) replacementResponse {
	return replacementResponse{
		Date:             r.Date.Format(dateLayout),
		NewSerialNumber:  r.NewSerialNumber,
		Type:             r.Type,
		NewInvoiceNumber: r.NewInvoiceNumber,
	}
}

// WarrantyStatus resolves a serial number to its eligibility status for the
// calling customer.
func (h *Handler) WarrantyStatus(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customer query parameter is required")
		return
	}

	status, err := h.warranty.Check(r.Context(), r.PathValue("serial"), customerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := warrantyResponse{
		SerialNumber:         status.SerialNumber,
		PurchaseDate:         status.PurchaseDate.Format(dateLayout),
		Eligible:             status.Eligible(),
		UnderGuarantee:       status.UnderGuarantee,
		GuaranteeMonths:      status.GuaranteeMonths,
		WarrantyMonths:       status.WarrantyMonths,
		MonthsAfterGuarantee: status.MonthsAfterGuarantee,
		Replaced:             status.Replaced,
	}
	if status.Slab != nil {
		resp.Slab = &slabResponse{
			Name:            status.Slab.Name,
			DiscountPercent: status.Slab.DiscountPercent.String() + "%",
		}
	}
	if status.LatestReplacement != nil {
		lr := toReplacementResponse(*status.LatestReplacement)
		resp.LatestReplacement = &lr
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListReplacements returns every replacement recorded for the customer.
func (h *Handler) ListReplacements(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "customer query parameter is required")
		return
	}

	history, err := h.history.ReplacementsByCustomer(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]replacementResponse, len(history))
	for i, rep := range history {
		out[i] = toReplacementResponse(rep)
	}
	writeJSON(w, http.StatusOK, map[string]any{"replacements": out})
}
