// Package sales manages the invoice lifecycle: draft assembly, fiscal
// issuance with its receivable posting, and full-reversal credit notes.
package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
	"github.com/jrivasm/contably/internal/service/journal"
	"github.com/jrivasm/contably/internal/service/sequence"
)

// Repo defines read operations needed by the service.
type Repo interface {
	InvoiceByID(ctx context.Context, companyID, invoiceID uuid.UUID) (ledger.Invoice, error)
	InvoicesByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Invoice, error)
	CustomerByID(ctx context.Context, companyID, customerID uuid.UUID) (ledger.Customer, error)
	PostingProfile(ctx context.Context, companyID uuid.UUID) (ledger.PostingProfile, error)
}

// Writer defines write operations needed by the service. IssueInvoice
// and CreateCreditNote persist the document mutation and its journal
// entry in one atomic unit.
type Writer interface {
	CreateInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error)
	UpdateDraftInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error)
	IssueInvoice(ctx context.Context, inv ledger.Invoice, entry ledger.JournalEntry) (ledger.Invoice, error)
	CreateCreditNote(ctx context.Context, note ledger.CreditNote, inv ledger.Invoice, entry ledger.JournalEntry) (ledger.CreditNote, error)
}

// DraftInput carries the fields needed to open a draft invoice.
type DraftInput struct {
	CompanyID  uuid.UUID
	CustomerID uuid.UUID
	Date       time.Time
	// DueDays is the payment term in days after the invoice date.
	DueDays  int
	Currency string
	Notes    string
}

// LineInput carries one priced row to append to a draft.
type LineInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
}

// Service exposes the sales document operations.
type Service interface {
	CreateDraft(ctx context.Context, in DraftInput) (ledger.Invoice, error)
	AddLine(ctx context.Context, companyID, invoiceID uuid.UUID, in LineInput) (ledger.Invoice, error)
	Issue(ctx context.Context, companyID, invoiceID uuid.UUID) (ledger.Invoice, error)
	CreateCreditNote(ctx context.Context, companyID, invoiceID uuid.UUID, reason string) (ledger.CreditNote, error)
	Get(ctx context.Context, companyID, invoiceID uuid.UUID) (ledger.Invoice, error)
	List(ctx context.Context, companyID uuid.UUID) ([]ledger.Invoice, error)
}

type service struct {
	repo   Repo
	writer Writer
	seq    sequence.Service
	jnl    journal.Service
}

func New(repo Repo, writer Writer, seq sequence.Service, jnl journal.Service) Service {
	return &service{repo: repo, writer: writer, seq: seq, jnl: jnl}
}

func (s *service) CreateDraft(ctx context.Context, in DraftInput) (ledger.Invoice, error) {
	if in.CompanyID == uuid.Nil || in.CustomerID == uuid.Nil {
		return ledger.Invoice{}, errs.ErrInvalid
	}
	if in.Currency == "" {
		return ledger.Invoice{}, errors.New("currency is required")
	}
	customer, err := s.repo.CustomerByID(ctx, in.CompanyID, in.CustomerID)
	if err != nil {
		return ledger.Invoice{}, err
	}
	if !customer.Active {
		return ledger.Invoice{}, errors.New("customer is inactive")
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}
	if in.DueDays < 0 {
		return ledger.Invoice{}, errors.New("due_days must be >= 0")
	}
	inv := ledger.Invoice{
		ID:         uuid.New(),
		CompanyID:  in.CompanyID,
		CustomerID: in.CustomerID,
		Status:     ledger.InvoiceStatusDraft,
		Date:       in.Date,
		DueDate:    in.Date.AddDate(0, 0, in.DueDays),
		Currency:   in.Currency,
		Subtotal:   decimal.Zero,
		TaxAmount:  decimal.Zero,
		Total:      decimal.Zero,
		AmountPaid: decimal.Zero,
		Notes:      in.Notes,
	}
	return s.writer.CreateInvoice(ctx, inv)
}

// computeLine derives the monetary fields of a priced row.
func computeLine(in LineInput) (sub, tax, total decimal.Decimal, err error) {
	if !in.Quantity.IsPositive() {
		return sub, tax, total, errors.New("quantity must be > 0")
	}
	if in.UnitPrice.IsNegative() {
		return sub, tax, total, errors.New("unit_price must be >= 0")
	}
	if in.TaxRate.IsNegative() {
		return sub, tax, total, errors.New("tax_rate must be >= 0")
	}
	sub = in.Quantity.Mul(in.UnitPrice).Round(ledger.MoneyScale)
	tax = sub.Mul(in.TaxRate).Div(decimal.NewFromInt(100)).Round(ledger.MoneyScale)
	total = sub.Add(tax)
	return sub, tax, total, nil
}

func (s *service) AddLine(ctx context.Context, companyID, invoiceID uuid.UUID, in LineInput) (ledger.Invoice, error) {
	inv, err := s.repo.InvoiceByID(ctx, companyID, invoiceID)
	if err != nil {
		return ledger.Invoice{}, err
	}
	if inv.Status != ledger.InvoiceStatusDraft {
		return ledger.Invoice{}, errs.ErrNotDraft
	}
	sub, tax, total, err := computeLine(in)
	if err != nil {
		return ledger.Invoice{}, err
	}
	inv.Lines = append(inv.Lines, ledger.InvoiceLine{
		ID:          uuid.New(),
		InvoiceID:   inv.ID,
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		TaxRate:     in.TaxRate,
		Subtotal:    sub,
		TaxAmount:   tax,
		Total:       total,
	})
	inv.Subtotal, inv.TaxAmount, inv.Total = sumInvoiceLines(inv.Lines)
	return s.writer.UpdateDraftInvoice(ctx, inv)
}

func sumInvoiceLines(lines []ledger.InvoiceLine) (sub, tax, total decimal.Decimal) {
	sub, tax, total = decimal.Zero, decimal.Zero, decimal.Zero
	for _, ln := range lines {
		sub = sub.Add(ln.Subtotal)
		tax = tax.Add(ln.TaxAmount)
		total = total.Add(ln.Total)
	}
	return sub, tax, total
}

// Issue assigns fiscal numbers and posts the receivable entry: debit the
// receivable control for the total, credit income for the subtotal and
// the tax liability for the tax. The fiscal number is allocated before
// the atomic write, so a failure past allocation burns it.
func (s *service) Issue(ctx context.Context, companyID, invoiceID uuid.UUID) (ledger.Invoice, error) {
	inv, err := s.repo.InvoiceByID(ctx, companyID, invoiceID)
	if err != nil {
		return ledger.Invoice{}, err
	}
	if inv.Status != ledger.InvoiceStatusDraft {
		return ledger.Invoice{}, errs.ErrNotDraft
	}
	if len(inv.Lines) == 0 {
		return ledger.Invoice{}, errs.ErrNoLines
	}
	profile, err := s.repo.PostingProfile(ctx, companyID)
	if err != nil {
		return ledger.Invoice{}, err
	}

	num, err := s.seq.Next(ctx, companyID, ledger.SequenceInvoice)
	if err != nil {
		return ledger.Invoice{}, err
	}

	entry, err := s.issuanceEntry(inv, profile, num.Number, false)
	if err != nil {
		return ledger.Invoice{}, err
	}
	if err := s.jnl.Validate(ctx, entry); err != nil {
		return ledger.Invoice{}, err
	}

	now := time.Now().UTC()
	inv.Status = ledger.InvoiceStatusIssued
	inv.InvoiceNumber = num.Number
	inv.ControlNumber = num.ControlNumber
	inv.IssuedAt = &now
	inv.JournalEntryID = &entry.ID
	return s.writer.IssueInvoice(ctx, inv, entry)
}

// issuanceEntry builds the journal entry for an issuance, or its mirror
// image when reversed is true (credit note).
func (s *service) issuanceEntry(inv ledger.Invoice, profile ledger.PostingProfile, number string, reversed bool) (ledger.JournalEntry, error) {
	debit, credit := ledger.SideDebit, ledger.SideCredit
	desc := "invoice " + number
	if reversed {
		debit, credit = credit, debit
		desc = "credit note " + number + " for invoice " + inv.InvoiceNumber
	}
	totalAmt, err := ledger.AmountFromDecimal(inv.Currency, inv.Total)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	subAmt, err := ledger.AmountFromDecimal(inv.Currency, inv.Subtotal)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	entry := ledger.JournalEntry{
		ID:          uuid.New(),
		CompanyID:   inv.CompanyID,
		Date:        time.Now().UTC(),
		Description: desc,
		Reference:   number,
		Status:      ledger.EntryStatusPosted,
	}
	entry.Lines = append(entry.Lines,
		ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: profile.ReceivableAccountID, Side: debit, Amount: totalAmt},
		ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: profile.SalesAccountID, Side: credit, Amount: subAmt},
	)
	if inv.TaxAmount.IsPositive() {
		taxAmt, err := ledger.AmountFromDecimal(inv.Currency, inv.TaxAmount)
		if err != nil {
			return ledger.JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines,
			ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: profile.SalesTaxAccountID, Side: credit, Amount: taxAmt})
	}
	return entry, nil
}

// CreateCreditNote reverses a full issued or paid invoice: it draws its
// own fiscal number, posts the mirror of the issuance entry and marks
// the invoice cancelled. Partial credit notes are not supported.
func (s *service) CreateCreditNote(ctx context.Context, companyID, invoiceID uuid.UUID, reason string) (ledger.CreditNote, error) {
	inv, err := s.repo.InvoiceByID(ctx, companyID, invoiceID)
	if err != nil {
		return ledger.CreditNote{}, err
	}
	if inv.Status != ledger.InvoiceStatusIssued && inv.Status != ledger.InvoiceStatusPaid {
		return ledger.CreditNote{}, errs.ErrStateConflict
	}
	if reason == "" {
		return ledger.CreditNote{}, errors.New("reason is required")
	}
	profile, err := s.repo.PostingProfile(ctx, companyID)
	if err != nil {
		return ledger.CreditNote{}, err
	}

	num, err := s.seq.Next(ctx, companyID, ledger.SequenceCreditNote)
	if err != nil {
		return ledger.CreditNote{}, err
	}

	entry, err := s.issuanceEntry(inv, profile, num.Number, true)
	if err != nil {
		return ledger.CreditNote{}, err
	}
	if err := s.jnl.Validate(ctx, entry); err != nil {
		return ledger.CreditNote{}, err
	}

	note := ledger.CreditNote{
		ID:            uuid.New(),
		CompanyID:     companyID,
		InvoiceID:     inv.ID,
		NoteNumber:    num.Number,
		ControlNumber: num.ControlNumber,
		Date:          time.Now().UTC(),
		Reason:        reason,
		Subtotal:      inv.Subtotal,
		TaxAmount:     inv.TaxAmount,
		Total:         inv.Total,
		JournalEntryID: &entry.ID,
	}
	inv.Status = ledger.InvoiceStatusCancelled
	return s.writer.CreateCreditNote(ctx, note, inv, entry)
}

func (s *service) Get(ctx context.Context, companyID, invoiceID uuid.UUID) (ledger.Invoice, error) {
	if companyID == uuid.Nil || invoiceID == uuid.Nil {
		return ledger.Invoice{}, errs.ErrInvalid
	}
	return s.repo.InvoiceByID(ctx, companyID, invoiceID)
}

func (s *service) List(ctx context.Context, companyID uuid.UUID) ([]ledger.Invoice, error) {
	if companyID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.InvoicesByCompany(ctx, companyID)
}
