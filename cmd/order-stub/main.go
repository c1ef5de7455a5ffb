// Command order-stub is an in-memory stand-in for the upstream order
// service, used by local development and the integration suite. It accepts
// order submissions, assigns invoice numbers, and supports listing,
// fetching, and cancelling orders. State is lost on restart.
//
// The --quirk flag reproduces response shapes seen from real deployments:
//
//	nested   {"sale": {"invoice_number": ...}}  (default)
//	camel    {"sale": {"invoiceNumber": ...}}
//	bare     {"invoice_number": ...}
//	opaque   {"success": true}
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

type item struct {
	ProductID    string          `json:"product_id"`
	Category     string          `json:"category"`
	Quantity     int             `json:"quantity"`
	UnitPrice    json.RawMessage `json:"unit_price"`
	SerialNumber string          `json:"serial_number,omitempty"`
}

type submission struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Items         []item `json:"items"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status"`
}

type lineRecord struct {
	SerialNumber string          `json:"serial_number"`
	Category     string          `json:"category"`
	Quantity     int             `json:"quantity"`
	MRP          json.RawMessage `json:"mrp"`
	FinalAmount  json.RawMessage `json:"final_amount"`
}

type orderRecord struct {
	ID            string       `json:"id"`
	InvoiceNumber string       `json:"invoice_number"`
	CustomerID    string       `json:"customer_id"`
	CreatedAt     time.Time    `json:"created_at"`
	PaymentMethod string       `json:"payment_method"`
	PaymentStatus string       `json:"payment_status"`
	Items         []lineRecord `json:"items"`
}

type server struct {
	quirk string

	mu     sync.Mutex
	seq    int
	orders map[string]*orderRecord
}

func main() {
	var (
		addr  string
		quirk string
	)
	flag.StringVar(&addr, "addr", "0.0.0.0:9090", "listen address")
	flag.StringVar(&quirk, "quirk", "nested", "create-response shape: nested, camel, bare, opaque")
	flag.Parse()

	s := &server{quirk: quirk, orders: make(map[string]*orderRecord)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", s.create)
	mux.HandleFunc("GET /orders", s.list)
	mux.HandleFunc("GET /orders/{ref}", s.get)
	mux.HandleFunc("DELETE /orders/{ref}", s.cancel)
	mux.HandleFunc("GET /", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	slog.Info("order stub listening", slog.String("addr", addr), slog.String("quirk", quirk))
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func (s *server) create(w http.ResponseWriter, r *http.Request) {
	var sub submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	s.seq++
	o := &orderRecord{
		ID:            fmt.Sprintf("ord-%04d", s.seq),
		InvoiceNumber: fmt.Sprintf("INV-%04d", s.seq),
		CustomerID:    sub.CustomerID,
		CreatedAt:     time.Now().UTC(),
		PaymentMethod: sub.PaymentMethod,
		PaymentStatus: sub.PaymentStatus,
	}
	for _, it := range sub.Items {
		o.Items = append(o.Items, lineRecord{
			SerialNumber: it.SerialNumber,
			Category:     it.Category,
			Quantity:     it.Quantity,
			MRP:          it.UnitPrice,
			FinalAmount:  it.UnitPrice,
		})
	}
	s.orders[o.ID] = o
	s.mu.Unlock()

	switch s.quirk {
	case "camel":
		writeJSON(w, http.StatusCreated, map[string]any{
			"sale": map[string]any{"invoiceNumber": o.InvoiceNumber, "id": o.ID},
		})
	case "bare":
		writeJSON(w, http.StatusCreated, map[string]any{"invoice_number": o.InvoiceNumber, "id": o.ID})
	case "opaque":
		writeJSON(w, http.StatusCreated, map[string]any{"success": true})
	default:
		writeJSON(w, http.StatusCreated, map[string]any{
			"sale": map[string]any{"invoice_number": o.InvoiceNumber, "id": o.ID},
		})
	}
}

func (s *server) list(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")

	s.mu.Lock()
	out := make([]*orderRecord, 0)
	for _, o := range s.orders {
		if customerID == "" || o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *server) get(w http.ResponseWriter, r *http.Request) {
	o := s.find(r.PathValue("ref"))
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *server) cancel(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.orders {
		if o.ID == ref || strings.EqualFold(o.InvoiceNumber, ref) {
			delete(s.orders, id)
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "order not found"})
}

func (s *server) find(ref string) *orderRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == ref || strings.EqualFold(o.InvoiceNumber, ref) {
			return o
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
