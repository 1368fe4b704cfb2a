package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
	"github.com/jrivasm/contably/internal/service/journal"
	"github.com/jrivasm/contably/internal/service/purchases"
	"github.com/jrivasm/contably/internal/service/sales"
	"github.com/jrivasm/contably/internal/service/sequence"
	"github.com/jrivasm/contably/internal/storage/memory"
)

type fixture struct {
	store    *memory.Store
	svc      Service
	sales    sales.Service
	purch    purchases.Service
	jnl      journal.Service
	company  uuid.UUID
	customer ledger.Customer
	supplier ledger.Supplier
	cash     ledger.Account
	profile  ledger.PostingProfile
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	company := ledger.Company{ID: uuid.New(), Name: "Demo", Currency: "USD", Active: true}
	store.SeedCompany(company)

	seed := func(code, name string, typ ledger.AccountType) ledger.Account {
		a := ledger.Account{ID: uuid.New(), CompanyID: company.ID, Code: code, Name: name, Type: typ, Active: true}
		store.SeedAccount(a)
		return a
	}
	cash := seed("1.1.01", "Cash", ledger.AccountTypeAsset)
	profile := ledger.PostingProfile{
		CompanyID:            company.ID,
		ReceivableAccountID:  seed("1.2.01", "Accounts Receivable", ledger.AccountTypeAsset).ID,
		SalesAccountID:       seed("4.1", "Sales", ledger.AccountTypeIncome).ID,
		SalesTaxAccountID:    seed("2.3", "Tax Payable", ledger.AccountTypeLiability).ID,
		PayableAccountID:     seed("2.1", "Accounts Payable", ledger.AccountTypeLiability).ID,
		PurchasesAccountID:   seed("5.1", "Purchases", ledger.AccountTypeExpense).ID,
		PurchaseTaxAccountID: seed("1.2.02", "Tax Credits", ledger.AccountTypeAsset).ID,
	}
	store.SetPostingProfile(profile)

	customer := ledger.Customer{ID: uuid.New(), CompanyID: company.ID, Name: "Acme Retail", Active: true}
	supplier := ledger.Supplier{ID: uuid.New(), CompanyID: company.ID, Name: "Global Supplies", Active: true}
	store.SeedCustomer(customer)
	store.SeedSupplier(supplier)

	jnl := journal.New(store, store)
	return fixture{
		store:    store,
		svc:      New(store, store, jnl),
		sales:    sales.New(store, store, sequence.New(store), jnl),
		purch:    purchases.New(store, store, jnl),
		jnl:      jnl,
		company:  company.ID,
		customer: customer,
		supplier: supplier,
		cash:     cash,
		profile:  profile,
	}
}

// issuedInvoice creates and issues an invoice for total amount with the
// given due date.
func issuedInvoice(t *testing.T, f fixture, total int64, dueDays int) ledger.Invoice {
	t.Helper()
	inv, err := f.sales.CreateDraft(context.Background(), sales.DraftInput{
		CompanyID: f.company, CustomerID: f.customer.ID, DueDays: dueDays, Currency: "USD",
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := f.sales.AddLine(context.Background(), f.company, inv.ID, sales.LineInput{
		Description: "Goods", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(total),
	}); err != nil {
		t.Fatalf("add line: %v", err)
	}
	issued, err := f.sales.Issue(context.Background(), f.company, inv.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return issued
}

func pendingBill(t *testing.T, f fixture, total int64, dueDays int) ledger.Bill {
	t.Helper()
	bill, err := f.purch.CreateDraft(context.Background(), purchases.DraftInput{
		CompanyID: f.company, SupplierID: f.supplier.ID, SupplierNumber: "FAC-" + uuid.New().String()[:8], DueDays: dueDays, Currency: "USD",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if _, err := f.purch.AddLine(context.Background(), f.company, bill.ID, purchases.LineInput{
		Description: "Stock", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(total),
	}); err != nil {
		t.Fatalf("add bill line: %v", err)
	}
	final, err := f.purch.Finalize(context.Background(), f.company, bill.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return final
}

func TestRegister_PartialThenFull(t *testing.T) {
	f := setup(t)
	inv := issuedInvoice(t, f, 200, 30)

	p, err := f.svc.Register(context.Background(), RegisterInput{
		CompanyID: f.company,
		Type:      ledger.PaymentTypeIncome,
		Currency:  "USD",
		Amount:    decimal.NewFromInt(80),
		Method:    "transfer",
		Reference: "PAY-1",
		Allocations: []AllocationInput{
			{DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID, Amount: decimal.NewFromInt(80)},
		},
	})
	if err != nil {
		t.Fatalf("register partial: %v", err)
	}
	if len(p.Allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(p.Allocations))
	}

	got, err := f.sales.Get(context.Background(), f.company, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if got.Status != ledger.InvoiceStatusIssued {
		t.Fatalf("status %q after partial payment, want issued", got.Status)
	}
	if !got.AmountPaid.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("amount paid %s, want 80", got.AmountPaid)
	}
	if !got.Balance().Equal(decimal.NewFromInt(120)) {
		t.Fatalf("balance %s, want 120", got.Balance())
	}

	if _, err := f.svc.Register(context.Background(), RegisterInput{
		CompanyID: f.company,
		Type:      ledger.PaymentTypeIncome,
		Currency:  "USD",
		Amount:    decimal.NewFromInt(120),
		Reference: "PAY-2",
		Allocations: []AllocationInput{
			{DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID, Amount: decimal.NewFromInt(120)},
		},
	}); err != nil {
		t.Fatalf("register rest: %v", err)
	}

	got, err = f.sales.Get(context.Background(), f.company, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if got.Status != ledger.InvoiceStatusPaid {
		t.Fatalf("status %q after full payment, want paid", got.Status)
	}
	if !got.Balance().IsZero() {
		t.Fatalf("balance %s, want 0", got.Balance())
	}
}

func TestRegister_OverAppliedRejectsWholePayment(t *testing.T) {
	f := setup(t)
	inv := issuedInvoice(t, f, 100, 30)
	other := issuedInvoice(t, f, 100, 30)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		CompanyID: f.company,
		Type:      ledger.PaymentTypeIncome,
		Currency:  "USD",
		Amount:    decimal.NewFromInt(250),
		Allocations: []AllocationInput{
			{DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID, Amount: decimal.NewFromInt(100)},
			{DocumentType: ledger.DocumentInvoice, DocumentID: other.ID, Amount: decimal.NewFromInt(150)},
		},
	})
	if !errors.Is(err, errs.ErrOverApplied) {
		t.Fatalf("expected ErrOverApplied, got %v", err)
	}

	// The valid first allocation must not have been applied.
	got, err := f.sales.Get(context.Background(), f.company, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if !got.AmountPaid.IsZero() {
		t.Fatalf("amount paid %s after rejected payment, want 0", got.AmountPaid)
	}
}

func TestRegister_SplitAllocationsSameDocument(t *testing.T) {
	f := setup(t)
	inv := issuedInvoice(t, f, 100, 30)

	// Two allocations against the same invoice count together: 60+60
	// exceeds the 100 owed even though each fits on its own.
	_, err := f.svc.Register(context.Background(), RegisterInput{
		CompanyID: f.company,
		Type:      ledger.PaymentTypeIncome,
		Currency:  "USD",
		Amount:    decimal.NewFromInt(120),
		Allocations: []AllocationInput{
			{DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID, Amount: decimal.NewFromInt(60)},
			{DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID, Amount: decimal.NewFromInt(60)},
		},
	})
	if !errors.Is(err, errs.ErrOverApplied) {
		t.Fatalf("expected ErrOverApplied, got %v", err)
	}
	got, err := f.sales.Get(context.Background(), f.company, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if !got.AmountPaid.IsZero() {
		t.Fatalf("amount paid %s after rejected payment, want 0", got.AmountPaid)
	}

	// A split that sums exactly to the balance settles the invoice.
	if _, err := f.svc.Register(context.Background(), RegisterInput{
		CompanyID: f.company,
		Type:      ledger.PaymentTypeIncome,
		Currency:  "USD",
		Amount:    decimal.NewFromInt(100),
		Allocations: []AllocationInput{
			{DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID, Amount: decimal.NewFromInt(60)},
			{DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID, Amount: decimal.NewFromInt(40)},
		},
	}); err != nil {
		t.Fatalf("register split payment: %v", err)
	}
	got, err = f.sales.Get(context.Background(), f.company, inv.ID)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if got.Status != ledger.InvoiceStatusPaid {
		t.Fatalf("status %q after split settlement, want paid", got.Status)
	}
}

func TestRegister_AmountMismatch(t *testing.T) {
	f := setup(t)
	inv := issuedInvoice(t, f, 100, 30)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		CompanyID: f.company,
		Type:      ledger.PaymentTypeIncome,
		Currency:  "USD",
		Amount:    decimal.NewFromInt(90),
		Allocations: []AllocationInput{
			{DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID, Amount: decimal.NewFromInt(80)},
		},
	})
	if !errors.Is(err, errs.ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}
}

func TestRegister_TypeDocumentPairing(t *testing.T) {
	f := setup(t)
	inv := issuedInvoice(t, f, 100, 30)

	_, err := f.svc.Register(context.Background(), RegisterInput{
		CompanyID: f.company,
		Type:      ledger.PaymentTypeExpense,
		Currency:  "USD",
		Amount:    decimal.NewFromInt(100),
		Allocations: []AllocationInput{
			{DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID, Amount: decimal.NewFromInt(100)},
		},
	})
	if err == nil {
		t.Fatal("expected error pairing an expense payment with an invoice")
	}
}

func TestRegister_BillLifecycle(t *testing.T) {
	f := setup(t)
	bill := pendingBill(t, f, 300, 15)

	if _, err := f.svc.Register(context.Background(), RegisterInput{
		CompanyID: f.company,
		Type:      ledger.PaymentTypeExpense,
		Currency:  "USD",
		Amount:    decimal.NewFromInt(100),
		Allocations: []AllocationInput{
			{DocumentType: ledger.DocumentBill, DocumentID: bill.ID, Amount: decimal.NewFromInt(100)},
		},
	}); err != nil {
		t.Fatalf("register partial: %v", err)
	}
	got, err := f.purch.Get(context.Background(), f.company, bill.ID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if got.Status != ledger.BillStatusPartial {
		t.Fatalf("status %q, want partial", got.Status)
	}

	if _, err := f.svc.Register(context.Background(), RegisterInput{
		CompanyID: f.company,
		Type:      ledger.PaymentTypeExpense,
		Currency:  "USD",
		Amount:    decimal.NewFromInt(200),
		Allocations: []AllocationInput{
			{DocumentType: ledger.DocumentBill, DocumentID: bill.ID, Amount: decimal.NewFromInt(200)},
		},
	}); err != nil {
		t.Fatalf("register rest: %v", err)
	}
	got, err = f.purch.Get(context.Background(), f.company, bill.ID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if got.Status != ledger.BillStatusPaid {
		t.Fatalf("status %q, want paid", got.Status)
	}
}

func TestRegister_CashEntry(t *testing.T) {
	f := setup(t)
	inv := issuedInvoice(t, f, 100, 30)

	p, err := f.svc.Register(context.Background(), RegisterInput{
		CompanyID:     f.company,
		Type:          ledger.PaymentTypeIncome,
		Currency:      "USD",
		Amount:        decimal.NewFromInt(100),
		Reference:     "PAY-9",
		CashAccountID: &f.cash.ID,
		Allocations: []AllocationInput{
			{DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID, Amount: decimal.NewFromInt(100)},
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if p.JournalEntryID == nil {
		t.Fatal("cash entry not linked")
	}
	entry, err := f.jnl.Get(context.Background(), f.company, *p.JournalEntryID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	for _, ln := range entry.Lines {
		units, _ := ln.Amount.MinorUnits()
		if units != 10000 {
			t.Fatalf("line amount %d, want 10000", units)
		}
		switch ln.AccountID {
		case f.cash.ID:
			if ln.Side != ledger.SideDebit {
				t.Fatalf("cash side %s, want debit", ln.Side)
			}
		case f.profile.ReceivableAccountID:
			if ln.Side != ledger.SideCredit {
				t.Fatalf("receivable side %s, want credit", ln.Side)
			}
		default:
			t.Fatalf("unexpected account %s in cash entry", ln.AccountID)
		}
	}
}

func TestAging_Buckets(t *testing.T) {
	f := setup(t)

	// Report as of a future date so the due dates straddle the bucket
	// edges without backdating any document.
	asOf := time.Now().UTC().AddDate(0, 0, 130)
	issuedInvoice(t, f, 100, 140) // not yet due -> current
	issuedInvoice(t, f, 200, 115) // 15 days overdue -> 1-30
	issuedInvoice(t, f, 300, 85)  // 45 days -> 31-60
	issuedInvoice(t, f, 400, 55)  // 75 days -> 61-90
	issuedInvoice(t, f, 500, 10)  // 120 days -> >90

	rows, err := f.svc.Aging(context.Background(), f.company, ledger.DocumentInvoice, asOf)
	if err != nil {
		t.Fatalf("aging: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 counterparty row, got %d", len(rows))
	}
	row := rows[0]
	if row.CounterpartyID != f.customer.ID || row.Name != f.customer.Name {
		t.Fatalf("row identifies %s/%s", row.CounterpartyID, row.Name)
	}
	check := func(name string, got decimal.Decimal, want int64) {
		t.Helper()
		if !got.Equal(decimal.NewFromInt(want)) {
			t.Fatalf("%s bucket %s, want %d", name, got, want)
		}
	}
	check("current", row.Current, 100)
	check("1-30", row.Days1to30, 200)
	check("31-60", row.Days31to60, 300)
	check("61-90", row.Days61to90, 400)
	check(">90", row.Over90, 500)
	check("total", row.Total, 1500)

	sum := row.Current.Add(row.Days1to30).Add(row.Days31to60).Add(row.Days61to90).Add(row.Over90)
	if !sum.Equal(row.Total) {
		t.Fatalf("buckets %s do not sum to total %s", sum, row.Total)
	}
}

func TestAging_ExcludesSettledDocuments(t *testing.T) {
	f := setup(t)
	inv := issuedInvoice(t, f, 100, 0)

	if _, err := f.svc.Register(context.Background(), RegisterInput{
		CompanyID: f.company,
		Type:      ledger.PaymentTypeIncome,
		Currency:  "USD",
		Amount:    decimal.NewFromInt(100),
		Allocations: []AllocationInput{
			{DocumentType: ledger.DocumentInvoice, DocumentID: inv.ID, Amount: decimal.NewFromInt(100)},
		},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	rows, err := f.svc.Aging(context.Background(), f.company, ledger.DocumentInvoice, time.Now().UTC())
	if err != nil {
		t.Fatalf("aging: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows for settled book, got %d", len(rows))
	}
}
