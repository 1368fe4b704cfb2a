package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
)

func (s *Store) BankAccountByID(_ context.Context, companyID, accountID uuid.UUID) (ledger.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.bankAccounts[accountID]
	if !ok || a.CompanyID != companyID {
		return ledger.BankAccount{}, errs.ErrNotFound
	}
	return *a, nil
}

func (s *Store) BankAccountsByCompany(_ context.Context, companyID uuid.UUID) ([]ledger.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.BankAccount, 0)
	for _, a := range s.bankAccounts {
		if a.CompanyID == companyID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) BankTransactionsByAccount(_ context.Context, companyID, accountID uuid.UUID) ([]ledger.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.BankTransaction, 0)
	for _, tx := range s.bankTxs {
		if tx.CompanyID == companyID && tx.BankAccountID == accountID {
			out = append(out, *tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) ReconciliationsByCompany(_ context.Context, companyID uuid.UUID) ([]ledger.BankReconciliation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.BankReconciliation, 0)
	for _, rec := range s.reconciliations {
		if rec.CompanyID == companyID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateBankAccount(_ context.Context, a ledger.BankAccount) (ledger.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.bankAccounts {
		if other.CompanyID == a.CompanyID && other.Code == a.Code {
			return ledger.BankAccount{}, errs.ErrCodeExists
		}
	}
	c := a
	s.bankAccounts[c.ID] = &c
	return c, nil
}

func (s *Store) UpdateBankAccount(_ context.Context, a ledger.BankAccount) (ledger.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bankAccounts[a.ID]
	if !ok || cur.CompanyID != a.CompanyID {
		return ledger.BankAccount{}, errs.ErrNotFound
	}
	// Balance fields are owned by the transaction path.
	a.CurrentBalance = cur.CurrentBalance
	a.InitialBalance = cur.InitialBalance
	c := a
	s.bankAccounts[c.ID] = &c
	return c, nil
}

func (s *Store) DeleteBankAccount(_ context.Context, companyID, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.bankAccounts[accountID]
	if !ok || a.CompanyID != companyID {
		return errs.ErrNotFound
	}
	for _, tx := range s.bankTxs {
		if tx.BankAccountID == accountID {
			return errs.ErrConflict
		}
	}
	delete(s.bankAccounts, accountID)
	return nil
}

// CreateBankTransaction writes the transaction, its transfer pair, and
// the optional journal entry as one unit, applying the signed effect of
// each half to its account's running balance.
func (s *Store) CreateBankTransaction(_ context.Context, tx ledger.BankTransaction, pair *ledger.BankTransaction, entry *ledger.JournalEntry) (ledger.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.bankAccounts[tx.BankAccountID]
	if !ok || src.CompanyID != tx.CompanyID {
		return ledger.BankTransaction{}, errs.ErrNotFound
	}
	var dst *ledger.BankAccount
	if pair != nil {
		dst, ok = s.bankAccounts[pair.BankAccountID]
		if !ok || dst.CompanyID != pair.CompanyID {
			return ledger.BankTransaction{}, errs.ErrNotFound
		}
	}

	if entry != nil {
		posted := s.createEntryLocked(*entry)
		tx.JournalEntryID = &posted.ID
	}

	c := tx
	s.bankTxs[c.ID] = &c
	src.CurrentBalance = src.CurrentBalance.Add(c.Effect())

	if pair != nil {
		p := *pair
		p.JournalEntryID = tx.JournalEntryID
		s.bankTxs[p.ID] = &p
		dst.CurrentBalance = dst.CurrentBalance.Add(p.Effect())
	}
	return c, nil
}

// SaveReconciliation stores the completed reconciliation and marks the
// listed transactions reconciled together.
func (s *Store) SaveReconciliation(_ context.Context, rec ledger.BankReconciliation) (ledger.BankReconciliation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range rec.TransactionIDs {
		tx, ok := s.bankTxs[id]
		if !ok || tx.CompanyID != rec.CompanyID {
			return ledger.BankReconciliation{}, errs.ErrNotFound
		}
		if tx.Status == ledger.BankTxReconciled {
			return ledger.BankReconciliation{}, errs.ErrReconciled
		}
	}
	for _, id := range rec.TransactionIDs {
		s.bankTxs[id].Status = ledger.BankTxReconciled
	}
	s.reconciliations[rec.ID] = rec
	return rec, nil
}
