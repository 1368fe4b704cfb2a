package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/govalues/money"

	"github.com/jrivasm/contably/internal/ledger"
)

func (s *Server) postEntry(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	// Idempotent re-posting: a repeated key returns the original entry.
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" {
		if existing, ok, err := s.store.GetEntryByIdempotencyKey(r.Context(), req.CompanyID, idemKey); err == nil && ok {
			toJSON(w, http.StatusOK, toEntryResponse(existing))
			return
		}
	}
	entry := ledger.JournalEntry{
		CompanyID:   req.CompanyID,
		Date:        req.Date,
		Description: req.Description,
		Reference:   req.Reference,
		Metadata:    req.Metadata,
	}
	for _, ln := range req.Lines {
		amt, err := money.NewAmountFromMinorUnits(req.Currency, ln.AmountMinor)
		if err != nil {
			badRequest(w, "invalid amount: "+err.Error())
			return
		}
		entry.Lines = append(entry.Lines, ledger.JournalLine{
			AccountID: ln.AccountID,
			Side:      ln.Side,
			Amount:    amt,
		})
	}
	posted, err := s.jnlSvc.Post(r.Context(), entry)
	if err != nil {
		respondErr(w, err)
		return
	}
	if idemKey != "" {
		_ = s.store.SaveIdempotencyKey(r.Context(), req.CompanyID, idemKey, posted.ID)
	}
	toJSON(w, http.StatusCreated, toEntryResponse(posted))
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	entries, err := s.jnlSvc.List(r.Context(), cid)
	if err != nil {
		respondErr(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	id, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid entry id")
		return
	}
	e, err := s.jnlSvc.Get(r.Context(), cid, id)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toEntryResponse(e))
}

func (s *Server) reverseEntry(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req reverseEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	rev, err := s.jnlSvc.Reverse(r.Context(), req.CompanyID, req.EntryID, date)
	if err != nil {
		respondErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toEntryResponse(rev))
}

// trialBalance reports per-account totals as of the optional as_of
// query param (RFC 3339). Grand debit and credit totals always tie.
func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
	cid, err := companyID(r)
	if err != nil {
		badRequest(w, "company_id is required")
		return
	}
	var asOf *time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(w, "invalid as_of: "+err.Error())
			return
		}
		asOf = &t
	}
	balances, err := s.jnlSvc.Balances(r.Context(), cid, asOf)
	if err != nil {
		respondErr(w, err)
		return
	}
	resp := trialBalanceResponse{Rows: make([]trialBalanceRow, 0, len(balances))}
	for _, b := range balances {
		resp.Rows = append(resp.Rows, trialBalanceRow{
			AccountID:    b.Account.ID,
			Code:         b.Account.Code,
			Name:         b.Account.Name,
			Type:         b.Account.Type,
			DebitMinor:   b.DebitMinor,
			CreditMinor:  b.CreditMinor,
			BalanceMinor: b.BalanceMinor,
		})
		resp.TotalDebitMinor += b.DebitMinor
		resp.TotalCreditMinor += b.CreditMinor
	}
	toJSON(w, http.StatusOK, resp)
}
