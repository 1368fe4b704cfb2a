package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jrivasm/contably/internal/ledger"
	"github.com/jrivasm/contably/internal/service/coa"
)

func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	a := ledger.Account{
		ID:        uuid.New(),
		CompanyID: req.CompanyID,
		ParentID:  req.ParentID,
		Code:      req.Code,
		Name:      req.Name,
		Type:      req.Type,
		IsGroup:   req.IsGroup,
		Metadata:  req.Metadata,
		Active:    true,
	}
	created, err := s.coaSvc.Create(r.Context(), a)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	accounts, err := s.coaSvc.List(r.Context(), cid)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid account id")
		return
	}
	a, err := s.coaSvc.Get(r.Context(), cid, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(a))
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid account id")
		return
	}
	var req patchAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	a, err := s.coaSvc.Get(r.Context(), req.CompanyID, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	if req.Code != nil {
		a.Code = *req.Code
	}
	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.IsGroup != nil {
		a.IsGroup = *req.IsGroup
	}
	if req.Metadata != nil {
		a.Metadata = *req.Metadata
	}
	if req.Active != nil {
		a.Active = *req.Active
	}
	updated, err := s.coaSvc.Update(r.Context(), a)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(updated))
}

// deleteAccount hard-deletes an account that was never posted to. Use
// PATCH with active=false for the soft path.
func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid account id")
		return
	}
	if err := s.coaSvc.Delete(r.Context(), cid, id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// importAccounts seeds the standard chart template, all-or-nothing.
func (s *Server) importAccounts(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req importAccountsRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if req.CompanyID == uuid.Nil {
		badRequest(w, "company_id is required")
		return
	}
	created, err := s.coaSvc.BulkImport(r.Context(), req.CompanyID, coa.StandardChart)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]accountResponse, 0, len(created))
	for _, a := range created {
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusCreated, out)
}
