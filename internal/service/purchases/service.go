// Package purchases manages supplier bills: the purchase-side mirror of
// the sales engine. Bill numbers originate from the supplier, so no
// fiscal sequencing applies here.
package purchases

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
	BillByID(ctx context.Context, companyID, billID uuid.UUID) (ledger.Bill, error)
	BillsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Bill, error)
	SupplierByID(ctx context.Context, companyID, supplierID uuid.UUID) (ledger.Supplier, error)
	PostingProfile(ctx context.Context, companyID uuid.UUID) (ledger.PostingProfile, error)
}

// Writer defines write operations needed by the service. FinalizeBill
// persists the status change and the payable journal entry atomically.
type Writer interface {
	CreateBill(ctx context.Context, b ledger.Bill) (ledger.Bill, error)
	UpdateDraftBill(ctx context.Context, b ledger.Bill) (ledger.Bill, error)
	FinalizeBill(ctx context.Context, b ledger.Bill, entry ledger.JournalEntry) (ledger.Bill, error)
}

// DraftInput carries the fields needed to open a draft bill.
type DraftInput struct {
	CompanyID  uuid.UUID
	SupplierID uuid.UUID
	// SupplierNumber is the number printed on the supplier's document.
	SupplierNumber string
	Date           time.Time
	DueDays        int
	Currency       string
}

// LineInput carries one priced row to append to a draft bill.
type LineInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
}

// Service exposes the purchase document operations.
type Service interface {
	CreateDraft(ctx context.Context, in DraftInput) (ledger.Bill, error)
	AddLine(ctx context.Context, companyID, billID uuid.UUID, in LineInput) (ledger.Bill, error)
	Finalize(ctx context.Context, companyID, billID uuid.UUID) (ledger.Bill, error)
	Get(ctx context.Context, companyID, billID uuid.UUID) (ledger.Bill, error)
	List(ctx context.Context, companyID uuid.UUID) ([]ledger.Bill, error)
}

type service struct {
	repo   Repo
	writer Writer
	jnl    journal.Service
}

func New(repo Repo, writer Writer, jnl journal.Service) Service {
	return &service{repo: repo, writer: writer, jnl: jnl}
}

func (s *service) CreateDraft(ctx context.Context, in DraftInput) (ledger.Bill, error) {
	if in.CompanyID == uuid.Nil || in.SupplierID == uuid.Nil {
		return ledger.Bill{}, errs.ErrInvalid
	}
	if in.Currency == "" {
		return ledger.Bill{}, errors.New("currency is required")
	}
	if in.SupplierNumber == "" {
		return ledger.Bill{}, errors.New("supplier_number is required")
	}
	supplier, err := s.repo.SupplierByID(ctx, in.CompanyID, in.SupplierID)
	if err != nil {
		return ledger.Bill{}, err
	}
	if !supplier.Active {
		return ledger.Bill{}, errors.New("supplier is inactive")
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}
	if in.DueDays < 0 {
		return ledger.Bill{}, errors.New("due_days must be >= 0")
	}
	bill := ledger.Bill{
		ID:             uuid.New(),
		CompanyID:      in.CompanyID,
		SupplierID:     in.SupplierID,
		SupplierNumber: in.SupplierNumber,
		Status:         ledger.BillStatusDraft,
		Date:           in.Date,
		DueDate:        in.Date.AddDate(0, 0, in.DueDays),
		Currency:       in.Currency,
		Subtotal:       decimal.Zero,
		TaxAmount:      decimal.Zero,
		Total:          decimal.Zero,
		AmountPaid:     decimal.Zero,
	}
	return s.writer.CreateBill(ctx, bill)
}

func (s *service) AddLine(ctx context.Context, companyID, billID uuid.UUID, in LineInput) (ledger.Bill, error) {
	bill, err := s.repo.BillByID(ctx, companyID, billID)
	if err != nil {
		return ledger.Bill{}, err
	}
	if bill.Status != ledger.BillStatusDraft {
		return ledger.Bill{}, errs.ErrNotDraft
	}
	if !in.Quantity.IsPositive() {
		return ledger.Bill{}, errors.New("quantity must be > 0")
	}
	if in.UnitPrice.IsNegative() {
		return ledger.Bill{}, errors.New("unit_price must be >= 0")
	}
	if in.TaxRate.IsNegative() {
		return ledger.Bill{}, errors.New("tax_rate must be >= 0")
	}
	sub := in.Quantity.Mul(in.UnitPrice).Round(ledger.MoneyScale)
	tax := sub.Mul(in.TaxRate).Div(decimal.NewFromInt(100)).Round(ledger.MoneyScale)
	bill.Lines = append(bill.Lines, ledger.BillLine{
		ID:          uuid.New(),
		BillID:      bill.ID,
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		TaxRate:     in.TaxRate,
		Subtotal:    sub,
		TaxAmount:   tax,
		Total:       sub.Add(tax),
	})
	bill.Subtotal, bill.TaxAmount, bill.Total = decimal.Zero, decimal.Zero, decimal.Zero
	for _, ln := range bill.Lines {
		bill.Subtotal = bill.Subtotal.Add(ln.Subtotal)
		bill.TaxAmount = bill.TaxAmount.Add(ln.TaxAmount)
		bill.Total = bill.Total.Add(ln.Total)
	}
	return s.writer.UpdateDraftBill(ctx, bill)
}

// Finalize locks the bill's totals and posts the payable entry: debit
// purchases for the subtotal and the tax credit for the tax, credit the
// payable control for the total. The bill moves to pending.
func (s *service) Finalize(ctx context.Context, companyID, billID uuid.UUID) (ledger.Bill, error) {
	bill, err := s.repo.BillByID(ctx, companyID, billID)
	if err != nil {
		return ledger.Bill{}, err
	}
	if bill.Status != ledger.BillStatusDraft {
		return ledger.Bill{}, errs.ErrNotDraft
	}
	if len(bill.Lines) == 0 {
		return ledger.Bill{}, errs.ErrNoLines
	}
	profile, err := s.repo.PostingProfile(ctx, companyID)
	if err != nil {
		return ledger.Bill{}, err
	}

	totalAmt, err := ledger.AmountFromDecimal(bill.Currency, bill.Total)
	if err != nil {
		return ledger.Bill{}, err
	}
	subAmt, err := ledger.AmountFromDecimal(bill.Currency, bill.Subtotal)
	if err != nil {
		return ledger.Bill{}, err
	}
	entry := ledger.JournalEntry{
		ID:          uuid.New(),
		CompanyID:   companyID,
		Date:        time.Now().UTC(),
		Description: "bill " + bill.SupplierNumber,
		Reference:   bill.SupplierNumber,
		Status:      ledger.EntryStatusPosted,
	}
	entry.Lines = append(entry.Lines,
		ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: profile.PurchasesAccountID, Side: ledger.SideDebit, Amount: subAmt},
		ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: profile.PayableAccountID, Side: ledger.SideCredit, Amount: totalAmt},
	)
	if bill.TaxAmount.IsPositive() {
		taxAmt, err := ledger.AmountFromDecimal(bill.Currency, bill.TaxAmount)
		if err != nil {
			return ledger.Bill{}, err
		}
		entry.Lines = append(entry.Lines,
			ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: profile.PurchaseTaxAccountID, Side: ledger.SideDebit, Amount: taxAmt})
	}
	if err := s.jnl.Validate(ctx, entry); err != nil {
		return ledger.Bill{}, err
	}

	bill.Status = ledger.BillStatusPending
	bill.JournalEntryID = &entry.ID
	return s.writer.FinalizeBill(ctx, bill, entry)
}

func (s *service) Get(ctx context.Context, companyID, billID uuid.UUID) (ledger.Bill, error) {
	if companyID == uuid.Nil || billID == uuid.Nil {
		return ledger.Bill{}, errs.ErrInvalid
	}
	return s.repo.BillByID(ctx, companyID, billID)
}

func (s *service) List(ctx context.Context, companyID uuid.UUID) ([]ledger.Bill, error) {
	if companyID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.BillsByCompany(ctx, companyID)
}
