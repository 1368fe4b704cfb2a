package httpapi

import (
	"net/http"

	"github.com/jrivasm/contably/internal/service/sales"
)

func (s *Server) postInvoice(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	inv, err := s.salesSvc.CreateDraft(r.Context(), sales.DraftInput{
		CompanyID:  req.CompanyID,
		CustomerID: req.CustomerID,
		Date:       req.Date,
		DueDays:    req.DueDays,
		Currency:   req.Currency,
		Notes:      req.Notes,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	invoices, err := s.salesSvc.List(r.Context(), cid)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid invoice id")
		return
	}
	inv, err := s.salesSvc.Get(r.Context(), cid, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (s *Server) postInvoiceLine(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid invoice id")
		return
	}
	var req documentLineRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	inv, err := s.salesSvc.AddLine(r.Context(), req.CompanyID, id, sales.LineInput{
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		TaxRate:     req.TaxRate,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

// issueInvoice allocates fiscal numbers and posts the receivable entry.
func (s *Server) issueInvoice(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid invoice id")
		return
	}
	inv, err := s.salesSvc.Issue(r.Context(), cid, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (s *Server) postCreditNote(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid invoice id")
		return
	}
	var req creditNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	note, err := s.salesSvc.CreateCreditNote(r.Context(), req.CompanyID, id, req.Reason)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toCreditNoteResponse(note))
}

func (s *Server) listCreditNotes(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	notes, err := s.store.CreditNotesByCompany(r.Context(), cid)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]creditNoteResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, toCreditNoteResponse(n))
	}
	toJSON(w, http.StatusOK, out)
}
