package purchases

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
	"github.com/jrivasm/contably/internal/service/journal"
	"github.com/jrivasm/contably/internal/storage/memory"
)

type fixture struct {
	store    *memory.Store
	svc      Service
	jnl      journal.Service
	company  uuid.UUID
	supplier ledger.Supplier
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

	supplier := ledger.Supplier{ID: uuid.New(), CompanyID: company.ID, TaxID: "J-98765432-1", Name: "Global Supplies", Active: true}
	store.SeedSupplier(supplier)

	jnl := journal.New(store, store)
	return fixture{store: store, svc: New(store, store, jnl), jnl: jnl, company: company.ID, supplier: supplier, profile: profile}
}

func draftWithLine(t *testing.T, f fixture) ledger.Bill {
	t.Helper()
	bill, err := f.svc.CreateDraft(context.Background(), DraftInput{
		CompanyID:      f.company,
		SupplierID:     f.supplier.ID,
		SupplierNumber: "FAC-0042",
		DueDays:        15,
		Currency:       "USD",
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	bill, err = f.svc.AddLine(context.Background(), f.company, bill.ID, LineInput{
		Description: "Raw material",
		Quantity:    decimal.NewFromInt(4),
		UnitPrice:   decimal.NewFromInt(25),
		TaxRate:     decimal.NewFromInt(16),
	})
	if err != nil {
		t.Fatalf("add line: %v", err)
	}
	return bill
}

func TestCreateDraft_Validation(t *testing.T) {
	f := setup(t)

	if _, err := f.svc.CreateDraft(context.Background(), DraftInput{
		CompanyID: f.company, SupplierID: f.supplier.ID, Currency: "USD",
	}); err == nil {
		t.Fatal("expected error for missing supplier number")
	}
	if _, err := f.svc.CreateDraft(context.Background(), DraftInput{
		CompanyID: f.company, SupplierID: uuid.New(), SupplierNumber: "FAC-1", Currency: "USD",
	}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown supplier, got %v", err)
	}
}

func TestAddLine_Totals(t *testing.T) {
	f := setup(t)
	bill := draftWithLine(t, f)

	if !bill.Subtotal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("subtotal %s, want 100", bill.Subtotal)
	}
	if !bill.TaxAmount.Equal(decimal.NewFromInt(16)) {
		t.Fatalf("tax %s, want 16", bill.TaxAmount)
	}
	if !bill.Total.Equal(decimal.NewFromInt(116)) {
		t.Fatalf("total %s, want 116", bill.Total)
	}
}

func TestFinalize(t *testing.T) {
	f := setup(t)
	bill := draftWithLine(t, f)

	final, err := f.svc.Finalize(context.Background(), f.company, bill.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.Status != ledger.BillStatusPending {
		t.Fatalf("status %q, want pending", final.Status)
	}
	if final.JournalEntryID == nil {
		t.Fatal("payable entry not linked")
	}

	entry, err := f.jnl.Get(context.Background(), f.company, *final.JournalEntryID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	sums := make(map[uuid.UUID]int64)
	sides := make(map[uuid.UUID]ledger.Side)
	for _, ln := range entry.Lines {
		units, _ := ln.Amount.MinorUnits()
		sums[ln.AccountID] = units
		sides[ln.AccountID] = ln.Side
	}
	if sums[f.profile.PurchasesAccountID] != 10000 || sides[f.profile.PurchasesAccountID] != ledger.SideDebit {
		t.Fatalf("purchases line wrong: %d %s", sums[f.profile.PurchasesAccountID], sides[f.profile.PurchasesAccountID])
	}
	if sums[f.profile.PurchaseTaxAccountID] != 1600 || sides[f.profile.PurchaseTaxAccountID] != ledger.SideDebit {
		t.Fatalf("tax credit line wrong: %d %s", sums[f.profile.PurchaseTaxAccountID], sides[f.profile.PurchaseTaxAccountID])
	}
	if sums[f.profile.PayableAccountID] != 11600 || sides[f.profile.PayableAccountID] != ledger.SideCredit {
		t.Fatalf("payable line wrong: %d %s", sums[f.profile.PayableAccountID], sides[f.profile.PayableAccountID])
	}

	// Finalized bills are frozen.
	if _, err := f.svc.AddLine(context.Background(), f.company, bill.ID, LineInput{
		Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5),
	}); !errors.Is(err, errs.ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft, got %v", err)
	}
	if _, err := f.svc.Finalize(context.Background(), f.company, bill.ID); !errors.Is(err, errs.ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft on re-finalize, got %v", err)
	}
}

func TestFinalize_EmptyBill(t *testing.T) {
	f := setup(t)
	bill, err := f.svc.CreateDraft(context.Background(), DraftInput{
		CompanyID: f.company, SupplierID: f.supplier.ID, SupplierNumber: "FAC-0001", Currency: "USD",
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := f.svc.Finalize(context.Background(), f.company, bill.ID); !errors.Is(err, errs.ErrNoLines) {
		t.Fatalf("expected ErrNoLines, got %v", err)
	}
}
