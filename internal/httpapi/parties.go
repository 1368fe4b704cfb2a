package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jrivasm/contably/internal/ledger"
)

func (s *Server) postCustomer(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req partyRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	c := ledger.Customer{
		ID: uuid.New(), CompanyID: req.CompanyID, Name: req.Name,
		TaxID: req.TaxID, Email: req.Email, Phone: req.Phone, Address: req.Address,
	}
	created, err := s.partySvc.CreateCustomer(r.Context(), c)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toCustomerResponse(created))
}

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	customers, err := s.partySvc.ListCustomers(r.Context(), cid)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]partyResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, toCustomerResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid customer id")
		return
	}
	c, err := s.partySvc.GetCustomer(r.Context(), cid, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toCustomerResponse(c))
}

func (s *Server) updateCustomer(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid customer id")
		return
	}
	var req partyRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	cur, err := s.partySvc.GetCustomer(r.Context(), req.CompanyID, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	cur.Name = req.Name
	cur.TaxID = req.TaxID
	cur.Email = req.Email
	cur.Phone = req.Phone
	cur.Address = req.Address
	updated, err := s.partySvc.UpdateCustomer(r.Context(), cur)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toCustomerResponse(updated))
}

func (s *Server) postSupplier(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req partyRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	sup := ledger.Supplier{
		ID: uuid.New(), CompanyID: req.CompanyID, Name: req.Name,
		TaxID: req.TaxID, Email: req.Email, Phone: req.Phone, Address: req.Address,
	}
	created, err := s.partySvc.CreateSupplier(r.Context(), sup)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toSupplierResponse(created))
}

func (s *Server) listSuppliers(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	suppliers, err := s.partySvc.ListSuppliers(r.Context(), cid)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]partyResponse, 0, len(suppliers))
	for _, sup := range suppliers {
		out = append(out, toSupplierResponse(sup))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getSupplier(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid supplier id")
		return
	}
	sup, err := s.partySvc.GetSupplier(r.Context(), cid, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toSupplierResponse(sup))
}

func (s *Server) updateSupplier(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid supplier id")
		return
	}
	var req partyRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	cur, err := s.partySvc.GetSupplier(r.Context(), req.CompanyID, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	cur.Name = req.Name
	cur.TaxID = req.TaxID
	cur.Email = req.Email
	cur.Phone = req.Phone
	cur.Address = req.Address
	updated, err := s.partySvc.UpdateSupplier(r.Context(), cur)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toSupplierResponse(updated))
}

func toCustomerResponse(c ledger.Customer) partyResponse {
	return partyResponse{ID: c.ID, Name: c.Name, TaxID: c.TaxID, Email: c.Email, Phone: c.Phone, Address: c.Address, Active: c.Active}
}

func toSupplierResponse(sup ledger.Supplier) partyResponse {
	return partyResponse{ID: sup.ID, Name: sup.Name, TaxID: sup.TaxID, Email: sup.Email, Phone: sup.Phone, Address: sup.Address, Active: sup.Active}
}
