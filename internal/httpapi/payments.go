package httpapi

import (
	"net/http"
	"time"

	"github.com/jrivasm/contably/internal/ledger"
)

func (s *Server) postPayment(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	p, err := s.paySvc.Register(r.Context(), req.toInput())
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	list, err := s.store.PaymentsByCompany(r.Context(), cid)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]paymentResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPaymentResponse(p))
	}
	toJSON(w, http.StatusOK, out)
}

// aging buckets open document balances by days overdue. The type query
// param selects receivable (invoice) or payable (bill) aging.
func (s *Server) aging(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	docType := ledger.DocumentType(r.URL.Query().Get("type"))
	if docType == "" {
		docType = ledger.DocumentInvoice
	}
	if docType != ledger.DocumentInvoice && docType != ledger.DocumentBill {
		badRequest(w, "type must be invoice or bill")
		return
	}
	asOf := time.Now().UTC()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(w, "invalid as_of: "+err.Error())
			return
		}
		asOf = t
	}
	rows, err := s.paySvc.Aging(r.Context(), cid, docType, asOf)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAgingResponse(rows))
}
