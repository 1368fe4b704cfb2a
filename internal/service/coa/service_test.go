package coa

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
	"github.com/jrivasm/contably/internal/storage/memory"
)

func setup(t *testing.T) (*memory.Store, Service, uuid.UUID) {
	t.Helper()
	store := memory.New()
	company := ledger.Company{ID: uuid.New(), Name: "Demo", Currency: "USD", Active: true}
	store.SeedCompany(company)
	return store, New(store, store), company.ID
}

func TestCreate_DerivesParentFromCode(t *testing.T) {
	_, svc, companyID := setup(t)

	assets, err := svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, Code: "1", Name: "Assets", Type: ledger.AccountTypeAsset, IsGroup: true,
	})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	if assets.ParentID != nil {
		t.Fatalf("top-level account should have no parent")
	}

	current, err := svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, Code: "1.1", Name: "Current Assets", Type: ledger.AccountTypeAsset, IsGroup: true,
	})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	if current.ParentID == nil || *current.ParentID != assets.ID {
		t.Fatalf("parent not derived from code prefix: %+v", current.ParentID)
	}

	// Missing ancestor blocks creation.
	_, err = svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, Code: "2.1", Name: "Payables", Type: ledger.AccountTypeLiability,
	})
	if err == nil {
		t.Fatal("expected error for missing ancestor")
	}
}

func TestCreate_ExplicitParent(t *testing.T) {
	_, svc, companyID := setup(t)

	assets, err := svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, Code: "1", Name: "Assets", Type: ledger.AccountTypeAsset, IsGroup: true,
	})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	leaf, err := svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, ParentID: &assets.ID, Code: "1.1", Name: "Cash", Type: ledger.AccountTypeAsset,
	})
	if err != nil {
		t.Fatalf("create leaf: %v", err)
	}
	if leaf.ParentID == nil || *leaf.ParentID != assets.ID {
		t.Fatalf("explicit parent not kept")
	}

	// Parent that is not a group is rejected.
	_, err = svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, ParentID: &leaf.ID, Code: "1.1.01", Name: "Petty Cash", Type: ledger.AccountTypeAsset,
	})
	if err == nil {
		t.Fatal("expected error for non-group parent")
	}

	// Code must extend the parent's code.
	_, err = svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, ParentID: &assets.ID, Code: "2.1", Name: "Stray", Type: ledger.AccountTypeLiability,
	})
	if err == nil {
		t.Fatal("expected error for code outside parent prefix")
	}
}

func TestCreate_DuplicateCode(t *testing.T) {
	_, svc, companyID := setup(t)

	if _, err := svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, Code: "1", Name: "Assets", Type: ledger.AccountTypeAsset, IsGroup: true,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, Code: "1", Name: "Assets Again", Type: ledger.AccountTypeAsset,
	})
	if !errors.Is(err, errs.ErrCodeExists) {
		t.Fatalf("expected ErrCodeExists, got %v", err)
	}
}

// postLine runs one balanced entry through the store so an account
// acquires posting history.
func postLine(t *testing.T, store *memory.Store, companyID uuid.UUID, debitID, creditID uuid.UUID) {
	t.Helper()
	amt, err := money.NewAmountFromMinorUnits("USD", 1000)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	_, err = store.CreateJournalEntry(context.Background(), ledger.JournalEntry{
		ID:        uuid.New(),
		CompanyID: companyID,
		Date:      time.Now().UTC(),
		Status:    ledger.EntryStatusPosted,
		Lines: []ledger.JournalLine{
			{ID: uuid.New(), AccountID: debitID, Side: ledger.SideDebit, Amount: amt},
			{ID: uuid.New(), AccountID: creditID, Side: ledger.SideCredit, Amount: amt},
		},
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
}

func TestUpdate_Immutability(t *testing.T) {
	store, svc, companyID := setup(t)

	cash, err := svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, Code: "1", Name: "Cash", Type: ledger.AccountTypeAsset,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sales, err := svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, Code: "4", Name: "Sales", Type: ledger.AccountTypeIncome,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Type never changes.
	changed := cash
	changed.Type = ledger.AccountTypeExpense
	if _, err := svc.Update(context.Background(), changed); !errors.Is(err, errs.ErrImmutable) {
		t.Fatalf("expected ErrImmutable for type change, got %v", err)
	}

	// Code changes are allowed while the account has no postings.
	renamed := cash
	renamed.Code = "1.9"
	t.Run("before postings", func(t *testing.T) {
		// 1.9 has no existing ancestor but Update does not re-derive parents.
		if _, err := svc.Update(context.Background(), renamed); err != nil {
			t.Fatalf("update code pre-posting: %v", err)
		}
		restored := renamed
		restored.Code = "1"
		if _, err := svc.Update(context.Background(), restored); err != nil {
			t.Fatalf("restore code: %v", err)
		}
	})

	postLine(t, store, companyID, cash.ID, sales.ID)

	t.Run("after postings", func(t *testing.T) {
		if _, err := svc.Update(context.Background(), renamed); !errors.Is(err, errs.ErrImmutable) {
			t.Fatalf("expected ErrImmutable for code change, got %v", err)
		}
		grouped := cash
		grouped.IsGroup = true
		if _, err := svc.Update(context.Background(), grouped); !errors.Is(err, errs.ErrImmutable) {
			t.Fatalf("expected ErrImmutable for group change, got %v", err)
		}
		// Name stays editable.
		named := cash
		named.Name = "Cash on Hand"
		if _, err := svc.Update(context.Background(), named); err != nil {
			t.Fatalf("rename: %v", err)
		}
	})
}

func TestDeactivateAndDelete(t *testing.T) {
	store, svc, companyID := setup(t)

	cash, err := svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, Code: "1", Name: "Cash", Type: ledger.AccountTypeAsset,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sales, err := svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, Code: "4", Name: "Sales", Type: ledger.AccountTypeIncome,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	spare, err := svc.Create(context.Background(), ledger.Account{
		CompanyID: companyID, Code: "5", Name: "Spare", Type: ledger.AccountTypeExpense,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	postLine(t, store, companyID, cash.ID, sales.ID)

	if err := svc.Delete(context.Background(), companyID, cash.ID); !errors.Is(err, errs.ErrAccountInUse) {
		t.Fatalf("expected ErrAccountInUse, got %v", err)
	}
	if err := svc.Delete(context.Background(), companyID, spare.ID); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
	if _, err := svc.Get(context.Background(), companyID, spare.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if err := svc.Deactivate(context.Background(), companyID, cash.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := svc.Get(context.Background(), companyID, cash.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active {
		t.Fatal("expected account inactive after deactivation")
	}
}

func TestBulkImport(t *testing.T) {
	_, svc, companyID := setup(t)

	accounts, err := svc.BulkImport(context.Background(), companyID, nil)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(accounts) != len(StandardChart) {
		t.Fatalf("imported %d accounts, want %d", len(accounts), len(StandardChart))
	}
	byCode := make(map[string]ledger.Account, len(accounts))
	for _, a := range accounts {
		byCode[a.Code] = a
	}
	ar := byCode["1.2.01"]
	if ar.ParentID == nil || *ar.ParentID != byCode["1.2"].ID {
		t.Fatalf("hierarchy not resolved for 1.2.01")
	}

	// Re-importing collides and imports nothing new.
	before, err := svc.List(context.Background(), companyID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := svc.BulkImport(context.Background(), companyID, nil); !errors.Is(err, errs.ErrCodeExists) {
		t.Fatalf("expected ErrCodeExists, got %v", err)
	}
	after, err := svc.List(context.Background(), companyID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("failed import changed the chart: %d -> %d accounts", len(before), len(after))
	}
}
