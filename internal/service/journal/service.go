// Package journal implements the double-entry engine: balanced posting,
// reversal, and balance reporting with the normal-balance convention.
package journal

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	AccountsByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
	ListAccounts(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error)
	EntriesByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.JournalEntry, error)
	EntryByID(ctx context.Context, companyID, entryID uuid.UUID) (ledger.JournalEntry, error)
}

// Writer defines write operations needed by the service. The store
// assigns the per-company entry sequence number and persists the header
// and all lines in one atomic unit.
type Writer interface {
	CreateJournalEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error)
}

// AccountBalance is the per-account aggregation returned by Balances.
// Amounts are minor units in the entry currency. Balance follows the
// normal-balance convention: debit minus credit for asset/expense
// accounts, credit minus debit otherwise.
type AccountBalance struct {
	Account      ledger.Account
	DebitMinor   int64
	CreditMinor  int64
	BalanceMinor int64
}

// Service exposes validation, posting, reversal and balance reporting.
type Service interface {
	Validate(ctx context.Context, e ledger.JournalEntry) error
	Post(ctx context.Context, e ledger.JournalEntry) (ledger.JournalEntry, error)
	List(ctx context.Context, companyID uuid.UUID) ([]ledger.JournalEntry, error)
	Get(ctx context.Context, companyID, entryID uuid.UUID) (ledger.JournalEntry, error)
	Reverse(ctx context.Context, companyID, entryID uuid.UUID, date time.Time) (ledger.JournalEntry, error)
	Balances(ctx context.Context, companyID uuid.UUID, asOf *time.Time) ([]AccountBalance, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) Validate(ctx context.Context, entry ledger.JournalEntry) error {
	if entry.CompanyID == uuid.Nil {
		return errs.ErrInvalid
	}
	if len(entry.Lines) < 2 {
		return errs.ErrInsufficientLines
	}

	ids := make([]uuid.UUID, 0, len(entry.Lines))
	var sumDebits, sumCredits int64
	currency := ""
	nonZero := 0
	for i := range entry.Lines {
		line := entry.Lines[i]
		if line.AccountID == uuid.Nil {
			return errors.New("line account_id required")
		}
		units, _ := line.Amount.MinorUnits()
		if units < 0 {
			return errors.New("line amount must be >= 0")
		}
		if units > 0 {
			nonZero++
		}
		curr := line.Amount.Curr().Code()
		if currency == "" {
			currency = curr
		} else if currency != curr {
			return errors.New("all lines must share one currency")
		}
		switch line.Side {
		case ledger.SideDebit:
			sumDebits += units
		case ledger.SideCredit:
			sumCredits += units
		default:
			return errors.New("line side must be debit or credit")
		}
		ids = append(ids, line.AccountID)
	}
	if nonZero < 2 {
		return errs.ErrInsufficientLines
	}
	if sumDebits != sumCredits {
		return errs.ErrUnbalanced
	}

	accMap, err := s.repo.AccountsByIDs(ctx, entry.CompanyID, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		acc, ok := accMap[id]
		if !ok {
			return errs.ErrInvalidAccount
		}
		if acc.CompanyID != entry.CompanyID || acc.IsGroup || !acc.Active {
			return errs.ErrInvalidAccount
		}
	}
	return nil
}

// Post validates and persists the entry. The store assigns the
// per-company sequence number; header and lines are atomic.
func (s *service) Post(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	if err := s.Validate(ctx, entry); err != nil {
		return ledger.JournalEntry{}, err
	}
	entry.ID = uuid.New()
	entry.Status = ledger.EntryStatusPosted
	for i := range entry.Lines {
		entry.Lines[i].ID = uuid.New()
		entry.Lines[i].EntryID = entry.ID
	}
	return s.writer.CreateJournalEntry(ctx, entry)
}

func (s *service) List(ctx context.Context, companyID uuid.UUID) ([]ledger.JournalEntry, error) {
	if companyID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.EntriesByCompany(ctx, companyID)
}

func (s *service) Get(ctx context.Context, companyID, entryID uuid.UUID) (ledger.JournalEntry, error) {
	if companyID == uuid.Nil || entryID == uuid.Nil {
		return ledger.JournalEntry{}, errs.ErrInvalid
	}
	return s.repo.EntryByID(ctx, companyID, entryID)
}

// Reverse posts a new entry with every line's side swapped. Posted
// entries are never edited in place.
func (s *service) Reverse(ctx context.Context, companyID, entryID uuid.UUID, date time.Time) (ledger.JournalEntry, error) {
	if companyID == uuid.Nil || entryID == uuid.Nil {
		return ledger.JournalEntry{}, errs.ErrInvalid
	}
	orig, err := s.repo.EntryByID(ctx, companyID, entryID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	rev := ledger.JournalEntry{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Date:        date,
		Description: "reversal of entry " + orig.ID.String() + ": " + orig.Description,
		Reference:   orig.Reference,
		Status:      ledger.EntryStatusPosted,
		ReversalOf:  &orig.ID,
	}
	rev.Lines = make([]ledger.JournalLine, 0, len(orig.Lines))
	for _, ln := range orig.Lines {
		side := ledger.SideDebit
		if ln.Side == ledger.SideDebit {
			side = ledger.SideCredit
		}
		rev.Lines = append(rev.Lines, ledger.JournalLine{
			ID:        uuid.New(),
			EntryID:   rev.ID,
			AccountID: ln.AccountID,
			Side:      side,
			Amount:    ln.Amount,
		})
	}
	return s.writer.CreateJournalEntry(ctx, rev)
}

// Balances aggregates posted lines per account on or before asOf.
// It is a pure function of posted history: no balance is cached, so the
// grand totals of the result always tie out.
func (s *service) Balances(ctx context.Context, companyID uuid.UUID, asOf *time.Time) ([]AccountBalance, error) {
	if companyID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	entries, err := s.repo.EntriesByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.repo.ListAccounts(ctx, companyID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]ledger.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	type agg struct{ debit, credit int64 }
	sums := make(map[uuid.UUID]*agg)
	for _, e := range entries {
		if e.Status != ledger.EntryStatusPosted {
			continue
		}
		if asOf != nil && e.Date.After(*asOf) {
			continue
		}
		for _, ln := range e.Lines {
			units, _ := ln.Amount.MinorUnits()
			if units == 0 {
				continue
			}
			a, ok := sums[ln.AccountID]
			if !ok {
				a = &agg{}
				sums[ln.AccountID] = a
			}
			if ln.Side == ledger.SideDebit {
				a.debit += units
			} else {
				a.credit += units
			}
		}
	}

	out := make([]AccountBalance, 0, len(sums))
	for id, a := range sums {
		acc := byID[id]
		bal := a.debit - a.credit
		if acc.Type.NormalSide() == ledger.SideCredit {
			bal = a.credit - a.debit
		}
		out = append(out, AccountBalance{
			Account:      acc,
			DebitMinor:   a.debit,
			CreditMinor:  a.credit,
			BalanceMinor: bal,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account.Code < out[j].Account.Code })
	return out, nil
}
