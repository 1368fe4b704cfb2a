package httpapi

import (
	"net/http"

	"github.com/jrivasm/contably/internal/service/purchases"
)

func (s *Server) postBill(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postBillRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	b, err := s.purchSvc.CreateDraft(r.Context(), purchases.DraftInput{
		CompanyID:      req.CompanyID,
		SupplierID:     req.SupplierID,
		SupplierNumber: req.SupplierNumber,
		Date:           req.Date,
		DueDays:        req.DueDays,
		Currency:       req.Currency,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toBillResponse(b))
}

func (s *Server) listBills(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	bills, err := s.purchSvc.List(r.Context(), cid)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]billResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, toBillResponse(b))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getBill(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid bill id")
		return
	}
	b, err := s.purchSvc.Get(r.Context(), cid, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toBillResponse(b))
}

func (s *Server) postBillLine(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid bill id")
		return
	}
	var req documentLineRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	b, err := s.purchSvc.AddLine(r.Context(), req.CompanyID, id, purchases.LineInput{
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		TaxRate:     req.TaxRate,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toBillResponse(b))
}

// finalizeBill moves the draft to pending and posts the payable entry.
func (s *Server) finalizeBill(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid bill id")
		return
	}
	b, err := s.purchSvc.Finalize(r.Context(), cid, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toBillResponse(b))
}
