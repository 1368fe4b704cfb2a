package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/shopspring/decimal"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func applyInitSQL(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open for init: %v", err)
	}
	defer s.Close()
	// Resolve the schema path relative to this file so CWD doesn't matter.
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Clean(filepath.Join(filepath.Dir(thisFile), "../../../"))
	path := filepath.Join(repoRoot, "db", "migrations", "001_init.sql")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read init sql: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		t.Fatalf("apply init sql: %v", err)
	}
}

func truncateAll(t *testing.T, dsn string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open for truncate: %v", err)
	}
	defer s.Close()
	_, _ = s.pool.Exec(ctx, `truncate table
		bank_reconciliations, bank_transactions, bank_accounts,
		payment_allocations, payments,
		bill_lines, bills, credit_notes, invoice_lines, invoices,
		customers, suppliers, posting_profiles, fiscal_sequences,
		entry_idempotency, entry_lines, entries, entry_counters,
		accounts, companies cascade`)
}

func seedCompany(t *testing.T, s *Store, ctx context.Context) ledger.Company {
	t.Helper()
	c := ledger.Company{ID: uuid.New(), Name: "Demo Trading C.A.", TaxID: "J-12345678-9", Currency: "USD", Active: true}
	_, err := s.pool.Exec(ctx,
		`insert into companies (id, name, tax_id, currency, active) values ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.TaxID, c.Currency, c.Active)
	if err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return c
}

func seedAccount(t *testing.T, s *Store, ctx context.Context, companyID uuid.UUID, code, name string, typ ledger.AccountType) ledger.Account {
	t.Helper()
	a, err := s.CreateAccount(ctx, ledger.Account{
		ID: uuid.New(), CompanyID: companyID, Code: code, Name: name, Type: typ, Active: true,
	})
	if err != nil {
		t.Fatalf("seed account %s: %v", code, err)
	}
	return a
}

func TestStore_AccountsAndEntries(t *testing.T) {
	dsn := getTestDSN(t)
	applyInitSQL(t, dsn)
	truncateAll(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}

	c := seedCompany(t, s, ctx)
	cash := seedAccount(t, s, ctx, c.ID, "1", "Cash", ledger.AccountTypeAsset)
	sales := seedAccount(t, s, ctx, c.ID, "4", "Sales", ledger.AccountTypeIncome)

	// Duplicate code collides.
	if _, err := s.CreateAccount(ctx, ledger.Account{
		ID: uuid.New(), CompanyID: c.ID, Code: "1", Name: "Dup", Type: ledger.AccountTypeAsset, Active: true,
	}); err != errs.ErrCodeExists {
		t.Fatalf("expected ErrCodeExists, got %v", err)
	}

	list, err := s.ListAccounts(ctx, c.ID)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(list))
	}

	amt, _ := money.NewAmountFromMinorUnits("USD", 2500)
	entry := ledger.JournalEntry{
		ID:        uuid.New(),
		CompanyID: c.ID,
		Date:      time.Now().UTC(),
		Status:    ledger.EntryStatusPosted,
		Lines: []ledger.JournalLine{
			{ID: uuid.New(), AccountID: cash.ID, Side: ledger.SideDebit, Amount: amt},
			{ID: uuid.New(), AccountID: sales.ID, Side: ledger.SideCredit, Amount: amt},
		},
	}
	posted, err := s.CreateJournalEntry(ctx, entry)
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if posted.Seq != 1 {
		t.Fatalf("seq %d, want 1", posted.Seq)
	}

	second := entry
	second.ID = uuid.New()
	second.Lines = []ledger.JournalLine{
		{ID: uuid.New(), AccountID: cash.ID, Side: ledger.SideCredit, Amount: amt},
		{ID: uuid.New(), AccountID: sales.ID, Side: ledger.SideDebit, Amount: amt},
	}
	posted2, err := s.CreateJournalEntry(ctx, second)
	if err != nil {
		t.Fatalf("create second entry: %v", err)
	}
	if posted2.Seq != 2 {
		t.Fatalf("seq %d, want 2", posted2.Seq)
	}

	got, err := s.EntryByID(ctx, c.ID, posted.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if len(got.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got.Lines))
	}
	minor, _ := got.Lines[0].Amount.MinorUnits()
	if minor != 2500 {
		t.Fatalf("line amount %d, want 2500", minor)
	}

	entries, err := s.EntriesByCompany(ctx, c.ID)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Seq != 1 || entries[1].Seq != 2 {
		t.Fatalf("entries not ordered by seq: %+v", entries)
	}

	// A posted account cannot be deleted.
	if err := s.DeleteAccount(ctx, c.ID, cash.ID); err == nil {
		t.Fatal("expected delete of posted account to fail")
	}

	// Idempotency keys round-trip.
	if err := s.SaveIdempotencyKey(ctx, c.ID, "k-1", posted.ID); err != nil {
		t.Fatalf("save key: %v", err)
	}
	existing, ok, err := s.GetEntryByIdempotencyKey(ctx, c.ID, "k-1")
	if err != nil || !ok || existing.ID != posted.ID {
		t.Fatalf("idempotency lookup: ok=%v err=%v id=%s", ok, err, existing.ID)
	}
	if _, ok, _ := s.GetEntryByIdempotencyKey(ctx, c.ID, "missing"); ok {
		t.Fatal("unexpected hit for unknown key")
	}
}

func TestStore_Sequences(t *testing.T) {
	dsn := getTestDSN(t)
	applyInitSQL(t, dsn)
	truncateAll(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	c := seedCompany(t, s, ctx)
	defaults := ledger.FiscalSequence{
		CompanyID: c.ID, Type: ledger.SequenceInvoice, Prefix: "INV-", ControlPrefix: "00-",
	}
	first, err := s.IncrementSequence(ctx, c.ID, ledger.SequenceInvoice, defaults)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if first.Current != 1 || first.ControlCurrent != 1 {
		t.Fatalf("first allocation %+v, want 1/1", first)
	}
	second, err := s.IncrementSequence(ctx, c.ID, ledger.SequenceInvoice, defaults)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if second.Current != 2 {
		t.Fatalf("second allocation %d, want 2", second.Current)
	}
}

func TestStore_InvoiceLifecycleAndPayment(t *testing.T) {
	dsn := getTestDSN(t)
	applyInitSQL(t, dsn)
	truncateAll(t, dsn)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s := mustOpen(t, dsn)
	defer s.Close()

	c := seedCompany(t, s, ctx)
	receivable := seedAccount(t, s, ctx, c.ID, "1", "Accounts Receivable", ledger.AccountTypeAsset)
	sales := seedAccount(t, s, ctx, c.ID, "4", "Sales", ledger.AccountTypeIncome)

	customer, err := s.CreateCustomer(ctx, ledger.Customer{
		ID: uuid.New(), CompanyID: c.ID, Name: "Acme Retail", Active: true,
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	inv := ledger.Invoice{
		ID: uuid.New(), CompanyID: c.ID, CustomerID: customer.ID,
		Status: ledger.InvoiceStatusDraft, Date: time.Now().UTC(),
		DueDate: time.Now().UTC().AddDate(0, 0, 30), Currency: "USD",
		Subtotal: decimal.Zero, TaxAmount: decimal.Zero, Total: decimal.Zero, AmountPaid: decimal.Zero,
	}
	if _, err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	inv.Lines = []ledger.InvoiceLine{{
		ID: uuid.New(), InvoiceID: inv.ID, Description: "Widgets",
		Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50),
		TaxRate: decimal.Zero, Subtotal: decimal.NewFromInt(100),
		TaxAmount: decimal.Zero, Total: decimal.NewFromInt(100),
	}}
	inv.Subtotal = decimal.NewFromInt(100)
	inv.Total = decimal.NewFromInt(100)
	if _, err := s.UpdateDraftInvoice(ctx, inv); err != nil {
		t.Fatalf("update draft: %v", err)
	}

	amt, _ := money.NewAmountFromMinorUnits("USD", 10000)
	entry := ledger.JournalEntry{
		ID: uuid.New(), CompanyID: c.ID, Date: time.Now().UTC(), Status: ledger.EntryStatusPosted,
		Lines: []ledger.JournalLine{
			{ID: uuid.New(), AccountID: receivable.ID, Side: ledger.SideDebit, Amount: amt},
			{ID: uuid.New(), AccountID: sales.ID, Side: ledger.SideCredit, Amount: amt},
		},
	}
	now := time.Now().UTC()
	inv.Status = ledger.InvoiceStatusIssued
	inv.InvoiceNumber = "INV-00000001"
	inv.ControlNumber = "00-00000001"
	inv.IssuedAt = &now
	inv.JournalEntryID = &entry.ID
	issued, err := s.IssueInvoice(ctx, inv, entry)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.Status != ledger.InvoiceStatusIssued {
		t.Fatalf("status %q, want issued", issued.Status)
	}

	// Issuing twice hits the status guard.
	if _, err := s.IssueInvoice(ctx, inv, entry); err != errs.ErrNotDraft {
		t.Fatalf("expected ErrNotDraft, got %v", err)
	}

	// Over-application is rejected wholesale under the row lock.
	over := ledger.Payment{
		ID: uuid.New(), CompanyID: c.ID, Type: ledger.PaymentTypeIncome,
		Date: time.Now().UTC(), Currency: "USD", Amount: decimal.NewFromInt(150),
		Allocations: []ledger.PaymentAllocation{{
			ID: uuid.New(), DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID,
			Amount: decimal.NewFromInt(150),
		}},
	}
	over.Allocations[0].PaymentID = over.ID
	if _, err := s.SavePayment(ctx, over, nil); err != errs.ErrOverApplied {
		t.Fatalf("expected ErrOverApplied, got %v", err)
	}

	p := ledger.Payment{
		ID: uuid.New(), CompanyID: c.ID, Type: ledger.PaymentTypeIncome,
		Date: time.Now().UTC(), Currency: "USD", Amount: decimal.NewFromInt(100),
		Allocations: []ledger.PaymentAllocation{{
			ID: uuid.New(), DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID,
			Amount: decimal.NewFromInt(100),
		}},
	}
	p.Allocations[0].PaymentID = p.ID
	if _, err := s.SavePayment(ctx, p, nil); err != nil {
		t.Fatalf("save payment: %v", err)
	}

	settled, err := s.InvoiceByID(ctx, c.ID, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if settled.Status != ledger.InvoiceStatusPaid {
		t.Fatalf("status %q, want paid", settled.Status)
	}
	if !settled.AmountPaid.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("amount paid %s, want 100", settled.AmountPaid)
	}
}
