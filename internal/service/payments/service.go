// Package payments records cash events, allocates them across open
// documents under the storage lock, and reports receivable/payable aging.
package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
	"github.com/jrivasm/contably/internal/service/journal"
)

// Repo defines read operations needed by the service.
type Repo interface {
	InvoicesByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Invoice, error)
	BillsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Bill, error)
	CustomersByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Customer, error)
	SuppliersByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Supplier, error)
	PostingProfile(ctx context.Context, companyID uuid.UUID) (ledger.PostingProfile, error)
}

// Writer persists a payment. The store must re-read every target
// document's balance inside the same atomic unit that writes the
// allocations, rejecting the whole payment with ErrOverApplied if any
// allocation exceeds a remaining balance.
type Writer interface {
	SavePayment(ctx context.Context, p ledger.Payment, entry *ledger.JournalEntry) (ledger.Payment, error)
}

// AllocationInput applies part of the payment to one document.
type AllocationInput struct {
	DocumentType ledger.DocumentType
	DocumentID   uuid.UUID
	Amount       decimal.Decimal
}

// RegisterInput carries one payment with its allocations.
type RegisterInput struct {
	CompanyID uuid.UUID
	Type      ledger.PaymentType
	Date      time.Time
	Method    string
	Currency  string
	Amount    decimal.Decimal
	Reference string
	// CashAccountID optionally names the cash or bank chart account; when
	// set, the payment posts a journal entry against the matching control
	// account from the company's posting profile.
	CashAccountID *uuid.UUID
	Allocations   []AllocationInput
}

// AgingRow buckets one counterparty's outstanding balances by days
// overdue. The bucket sum always equals Total.
type AgingRow struct {
	CounterpartyID uuid.UUID
	Name           string
	Current        decimal.Decimal
	Days1to30      decimal.Decimal
	Days31to60     decimal.Decimal
	Days61to90     decimal.Decimal
	Over90         decimal.Decimal
	Total          decimal.Decimal
}

// Service exposes payment registration and aging reports.
type Service interface {
	Register(ctx context.Context, in RegisterInput) (ledger.Payment, error)
	Aging(ctx context.Context, companyID uuid.UUID, docType ledger.DocumentType, asOf time.Time) ([]AgingRow, error)
}

type service struct {
	repo   Repo
	writer Writer
	jnl    journal.Service
}

func New(repo Repo, writer Writer, jnl journal.Service) Service {
	return &service{repo: repo, writer: writer, jnl: jnl}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (ledger.Payment, error) {
	if in.CompanyID == uuid.Nil {
		return ledger.Payment{}, errs.ErrInvalid
	}
	if in.Type != ledger.PaymentTypeIncome && in.Type != ledger.PaymentTypeExpense {
		return ledger.Payment{}, errors.New("type must be income or expense")
	}
	if !in.Amount.IsPositive() {
		return ledger.Payment{}, errors.New("amount must be > 0")
	}
	if in.Currency == "" {
		return ledger.Payment{}, errors.New("currency is required")
	}
	if len(in.Allocations) == 0 {
		return ledger.Payment{}, errors.New("at least one allocation is required")
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}

	p := ledger.Payment{
		ID:        uuid.New(),
		CompanyID: in.CompanyID,
		Type:      in.Type,
		Date:      in.Date,
		Method:    in.Method,
		Currency:  in.Currency,
		Amount:    in.Amount.Round(ledger.MoneyScale),
		Reference: in.Reference,
	}
	sum := decimal.Zero
	for _, a := range in.Allocations {
		if a.DocumentID == uuid.Nil {
			return ledger.Payment{}, errors.New("allocation document_id required")
		}
		if !a.Amount.IsPositive() {
			return ledger.Payment{}, errors.New("allocation amount must be > 0")
		}
		switch {
		case a.DocumentType == ledger.DocumentInvoice && in.Type == ledger.PaymentTypeIncome:
		case a.DocumentType == ledger.DocumentBill && in.Type == ledger.PaymentTypeExpense:
		default:
			return ledger.Payment{}, errors.New("allocation document type does not match payment type")
		}
		amt := a.Amount.Round(ledger.MoneyScale)
		sum = sum.Add(amt)
		p.Allocations = append(p.Allocations, ledger.PaymentAllocation{
			ID:           uuid.New(),
			PaymentID:    p.ID,
			DocumentType: a.DocumentType,
			DocumentID:   a.DocumentID,
			Amount:       amt,
		})
	}
	if !sum.Equal(p.Amount) {
		return ledger.Payment{}, errs.ErrAmountMismatch
	}

	var entry *ledger.JournalEntry
	if in.CashAccountID != nil {
		e, err := s.cashEntry(ctx, p, *in.CashAccountID)
		if err != nil {
			return ledger.Payment{}, err
		}
		if err := s.jnl.Validate(ctx, e); err != nil {
			return ledger.Payment{}, err
		}
		entry = &e
		p.JournalEntryID = &e.ID
	}

	return s.writer.SavePayment(ctx, p, entry)
}

// cashEntry posts the cash movement: an income payment debits cash and
// credits the receivable control; an expense payment debits the payable
// control and credits cash.
func (s *service) cashEntry(ctx context.Context, p ledger.Payment, cashAccountID uuid.UUID) (ledger.JournalEntry, error) {
	profile, err := s.repo.PostingProfile(ctx, p.CompanyID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	amt, err := ledger.AmountFromDecimal(p.Currency, p.Amount)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	entry := ledger.JournalEntry{
		ID:          uuid.New(),
		CompanyID:   p.CompanyID,
		Date:        p.Date,
		Description: "payment " + p.Reference,
		Reference:   p.Reference,
		Status:      ledger.EntryStatusPosted,
	}
	if p.Type == ledger.PaymentTypeIncome {
		entry.Lines = append(entry.Lines,
			ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: cashAccountID, Side: ledger.SideDebit, Amount: amt},
			ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: profile.ReceivableAccountID, Side: ledger.SideCredit, Amount: amt},
		)
	} else {
		entry.Lines = append(entry.Lines,
			ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: profile.PayableAccountID, Side: ledger.SideDebit, Amount: amt},
			ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: cashAccountID, Side: ledger.SideCredit, Amount: amt},
		)
	}
	return entry, nil
}

// Aging buckets outstanding balances per counterparty by days overdue
// relative to asOf: current (not yet due), 1-30, 31-60, 61-90, >90.
func (s *service) Aging(ctx context.Context, companyID uuid.UUID, docType ledger.DocumentType, asOf time.Time) ([]AgingRow, error) {
	if companyID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	rows := make(map[uuid.UUID]*AgingRow)
	names := make(map[uuid.UUID]string)

	switch docType {
	case ledger.DocumentInvoice:
		customers, err := s.repo.CustomersByCompany(ctx, companyID)
		if err != nil {
			return nil, err
		}
		for _, c := range customers {
			names[c.ID] = c.Name
		}
		invoices, err := s.repo.InvoicesByCompany(ctx, companyID)
		if err != nil {
			return nil, err
		}
		for _, inv := range invoices {
			if inv.Status != ledger.InvoiceStatusIssued {
				continue
			}
			bucket(rows, names, inv.CustomerID, inv.Balance(), daysOverdue(asOf, inv.DueDate))
		}
	case ledger.DocumentBill:
		suppliers, err := s.repo.SuppliersByCompany(ctx, companyID)
		if err != nil {
			return nil, err
		}
		for _, sup := range suppliers {
			names[sup.ID] = sup.Name
		}
		bills, err := s.repo.BillsByCompany(ctx, companyID)
		if err != nil {
			return nil, err
		}
		for _, b := range bills {
			if b.Status != ledger.BillStatusPending && b.Status != ledger.BillStatusPartial {
				continue
			}
			bucket(rows, names, b.SupplierID, b.Balance(), daysOverdue(asOf, b.DueDate))
		}
	default:
		return nil, errors.New("document type must be invoice or bill")
	}

	out := make([]AgingRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out, nil
}

func daysOverdue(asOf, due time.Time) int {
	return int(asOf.Sub(due).Hours() / 24)
}

func bucket(rows map[uuid.UUID]*AgingRow, names map[uuid.UUID]string, partyID uuid.UUID, balance decimal.Decimal, days int) {
	if !balance.IsPositive() {
		return
	}
	r, ok := rows[partyID]
	if !ok {
		r = &AgingRow{
			CounterpartyID: partyID,
			Name:           names[partyID],
			Current:        decimal.Zero,
			Days1to30:      decimal.Zero,
			Days31to60:     decimal.Zero,
			Days61to90:     decimal.Zero,
			Over90:         decimal.Zero,
			Total:          decimal.Zero,
		}
		rows[partyID] = r
	}
	switch {
	case days <= 0:
		r.Current = r.Current.Add(balance)
	case days <= 30:
		r.Days1to30 = r.Days1to30.Add(balance)
	case days <= 60:
		r.Days31to60 = r.Days31to60.Add(balance)
	case days <= 90:
		r.Days61to90 = r.Days61to90.Add(balance)
	default:
		r.Over90 = r.Over90.Add(balance)
	}
	r.Total = r.Total.Add(balance)
}
