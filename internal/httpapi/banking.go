package httpapi

import (
	"net/http"

	"github.com/jrivasm/contably/internal/service/banking"
)

func (s *Server) postBankAccount(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req bankAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	a, err := s.bankSvc.CreateAccount(r.Context(), banking.AccountInput{
		CompanyID:      req.CompanyID,
		Code:           req.Code,
		Name:           req.Name,
		Currency:       req.Currency,
		ChartAccountID: req.ChartAccountID,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toBankAccountResponse(a))
}

func (s *Server) listBankAccounts(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	accounts, err := s.bankSvc.ListAccounts(r.Context(), cid)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]bankAccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toBankAccountResponse(a))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) updateBankAccount(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid bank account id")
		return
	}
	var req bankAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	a, err := s.bankSvc.UpdateAccount(r.Context(), req.CompanyID, id, banking.AccountInput{
		CompanyID:      req.CompanyID,
		Code:           req.Code,
		Name:           req.Name,
		Currency:       req.Currency,
		ChartAccountID: req.ChartAccountID,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toBankAccountResponse(a))
}

func (s *Server) deleteBankAccount(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid bank account id")
		return
	}
	if err := s.bankSvc.DeleteAccount(r.Context(), cid, id); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listBankTransactions(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid bank account id")
		return
	}
	txs, err := s.bankSvc.ListTransactions(r.Context(), cid, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]bankTxResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toBankTxResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postBankTransaction(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req bankTxRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	t, err := s.bankSvc.RegisterTransaction(r.Context(), banking.TxInput{
		CompanyID:            req.CompanyID,
		BankAccountID:        req.BankAccountID,
		Type:                 req.Type,
		Amount:               req.Amount,
		Date:                 req.Date,
		Description:          req.Description,
		DestinationID:        req.DestinationID,
		CounterpartAccountID: req.CounterpartAccountID,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toBankTxResponse(t))
}

func (s *Server) postReconciliation(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req reconcileRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	rec, err := s.bankSvc.Reconcile(r.Context(), banking.ReconcileInput{
		CompanyID:      req.CompanyID,
		BankAccountID:  req.BankAccountID,
		PeriodStart:    req.PeriodStart,
		PeriodEnd:      req.PeriodEnd,
		BalancePerBank: req.BalancePerBank,
		TransactionIDs: req.TransactionIDs,
		Notes:          req.Notes,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toReconciliationResponse(rec))
}

func (s *Server) listReconciliations(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	recs, err := s.bankSvc.ListReconciliations(r.Context(), cid)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]reconciliationResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toReconciliationResponse(rec))
	}
	toJSON(w, http.StatusOK, out)
}
