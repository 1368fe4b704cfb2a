package journal

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

func setup(t *testing.T) (*memory.Store, Service, uuid.UUID, ledger.Account, ledger.Account) {
	t.Helper()
	store := memory.New()
	company := ledger.Company{ID: uuid.New(), Name: "Demo", Currency: "USD", Active: true}
	store.SeedCompany(company)
	cash := ledger.Account{ID: uuid.New(), CompanyID: company.ID, Code: "1.1.01", Name: "Cash", Type: ledger.AccountTypeAsset, Active: true}
	sales := ledger.Account{ID: uuid.New(), CompanyID: company.ID, Code: "4.1", Name: "Sales", Type: ledger.AccountTypeIncome, Active: true}
	store.SeedAccount(cash)
	store.SeedAccount(sales)
	return store, New(store, store), company.ID, cash, sales
}

func mustAmount(t *testing.T, currency string, minor int64) money.Amount {
	t.Helper()
	amt, err := money.NewAmountFromMinorUnits(currency, minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return amt
}

func entryWith(companyID uuid.UUID, lines ...ledger.JournalLine) ledger.JournalEntry {
	return ledger.JournalEntry{
		CompanyID:   companyID,
		Date:        time.Now().UTC(),
		Description: "test entry",
		Lines:       lines,
	}
}

func TestPost_BalancedEntry(t *testing.T) {
	_, svc, companyID, cash, sales := setup(t)

	amt := mustAmount(t, "USD", 11600)
	e, err := svc.Post(context.Background(), entryWith(companyID,
		ledger.JournalLine{AccountID: cash.ID, Side: ledger.SideDebit, Amount: amt},
		ledger.JournalLine{AccountID: sales.ID, Side: ledger.SideCredit, Amount: amt},
	))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if e.Status != ledger.EntryStatusPosted {
		t.Fatalf("expected posted status, got %q", e.Status)
	}
	if e.Seq != 1 {
		t.Fatalf("expected seq 1, got %d", e.Seq)
	}
	for _, ln := range e.Lines {
		if ln.ID == uuid.Nil || ln.EntryID != e.ID {
			t.Fatalf("line not wired to entry: %+v", ln)
		}
	}

	second, err := svc.Post(context.Background(), entryWith(companyID,
		ledger.JournalLine{AccountID: cash.ID, Side: ledger.SideCredit, Amount: amt},
		ledger.JournalLine{AccountID: sales.ID, Side: ledger.SideDebit, Amount: amt},
	))
	if err != nil {
		t.Fatalf("post second: %v", err)
	}
	if second.Seq != 2 {
		t.Fatalf("expected seq 2, got %d", second.Seq)
	}
}

func TestPost_Unbalanced(t *testing.T) {
	_, svc, companyID, cash, sales := setup(t)

	_, err := svc.Post(context.Background(), entryWith(companyID,
		ledger.JournalLine{AccountID: cash.ID, Side: ledger.SideDebit, Amount: mustAmount(t, "USD", 1500)},
		ledger.JournalLine{AccountID: sales.ID, Side: ledger.SideCredit, Amount: mustAmount(t, "USD", 1400)},
	))
	if !errors.Is(err, errs.ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
}

func TestPost_InsufficientLines(t *testing.T) {
	_, svc, companyID, cash, sales := setup(t)

	_, err := svc.Post(context.Background(), entryWith(companyID,
		ledger.JournalLine{AccountID: cash.ID, Side: ledger.SideDebit, Amount: mustAmount(t, "USD", 1500)},
	))
	if !errors.Is(err, errs.ErrInsufficientLines) {
		t.Fatalf("expected ErrInsufficientLines for one line, got %v", err)
	}

	// Two lines but only one carries an amount.
	_, err = svc.Post(context.Background(), entryWith(companyID,
		ledger.JournalLine{AccountID: cash.ID, Side: ledger.SideDebit, Amount: mustAmount(t, "USD", 0)},
		ledger.JournalLine{AccountID: sales.ID, Side: ledger.SideCredit, Amount: mustAmount(t, "USD", 0)},
	))
	if !errors.Is(err, errs.ErrInsufficientLines) {
		t.Fatalf("expected ErrInsufficientLines for zero lines, got %v", err)
	}
}

func TestPost_InvalidAccount(t *testing.T) {
	store, svc, companyID, cash, _ := setup(t)

	group := ledger.Account{ID: uuid.New(), CompanyID: companyID, Code: "1", Name: "Assets", Type: ledger.AccountTypeAsset, IsGroup: true, Active: true}
	inactive := ledger.Account{ID: uuid.New(), CompanyID: companyID, Code: "5.9", Name: "Closed", Type: ledger.AccountTypeExpense, Active: false}
	store.SeedAccount(group)
	store.SeedAccount(inactive)

	amt := mustAmount(t, "USD", 100)
	cases := map[string]uuid.UUID{
		"unknown account":  uuid.New(),
		"group account":    group.ID,
		"inactive account": inactive.ID,
	}
	for name, id := range cases {
		_, err := svc.Post(context.Background(), entryWith(companyID,
			ledger.JournalLine{AccountID: cash.ID, Side: ledger.SideDebit, Amount: amt},
			ledger.JournalLine{AccountID: id, Side: ledger.SideCredit, Amount: amt},
		))
		if !errors.Is(err, errs.ErrInvalidAccount) {
			t.Fatalf("%s: expected ErrInvalidAccount, got %v", name, err)
		}
	}
}

func TestReverse(t *testing.T) {
	_, svc, companyID, cash, sales := setup(t)

	amt := mustAmount(t, "USD", 5000)
	orig, err := svc.Post(context.Background(), entryWith(companyID,
		ledger.JournalLine{AccountID: cash.ID, Side: ledger.SideDebit, Amount: amt},
		ledger.JournalLine{AccountID: sales.ID, Side: ledger.SideCredit, Amount: amt},
	))
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	rev, err := svc.Reverse(context.Background(), companyID, orig.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if rev.ReversalOf == nil || *rev.ReversalOf != orig.ID {
		t.Fatalf("reversal link missing: %+v", rev.ReversalOf)
	}
	if len(rev.Lines) != len(orig.Lines) {
		t.Fatalf("expected %d lines, got %d", len(orig.Lines), len(rev.Lines))
	}
	for i, ln := range rev.Lines {
		if ln.Side == orig.Lines[i].Side {
			t.Fatalf("line %d side not swapped", i)
		}
	}

	// Reversed history nets out to zero per account.
	balances, err := svc.Balances(context.Background(), companyID, nil)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	for _, b := range balances {
		if b.BalanceMinor != 0 {
			t.Fatalf("account %s balance %d after reversal, want 0", b.Account.Code, b.BalanceMinor)
		}
	}
}

func TestBalances_TrialBalanceTiesOut(t *testing.T) {
	store, svc, companyID, cash, sales := setup(t)

	expense := ledger.Account{ID: uuid.New(), CompanyID: companyID, Code: "5.3", Name: "Rent", Type: ledger.AccountTypeExpense, Active: true}
	store.SeedAccount(expense)

	post := func(debitID, creditID uuid.UUID, minor int64) {
		t.Helper()
		amt := mustAmount(t, "USD", minor)
		if _, err := svc.Post(context.Background(), entryWith(companyID,
			ledger.JournalLine{AccountID: debitID, Side: ledger.SideDebit, Amount: amt},
			ledger.JournalLine{AccountID: creditID, Side: ledger.SideCredit, Amount: amt},
		)); err != nil {
			t.Fatalf("post: %v", err)
		}
	}
	post(cash.ID, sales.ID, 20000)
	post(expense.ID, cash.ID, 7500)

	balances, err := svc.Balances(context.Background(), companyID, nil)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	var debits, credits int64
	byCode := make(map[string]AccountBalance)
	for _, b := range balances {
		debits += b.DebitMinor
		credits += b.CreditMinor
		byCode[b.Account.Code] = b
	}
	if debits != credits {
		t.Fatalf("trial balance out of balance: debits %d credits %d", debits, credits)
	}
	if got := byCode["1.1.01"].BalanceMinor; got != 12500 {
		t.Fatalf("cash balance %d, want 12500", got)
	}
	if got := byCode["4.1"].BalanceMinor; got != 20000 {
		t.Fatalf("sales balance %d, want 20000", got)
	}
	if got := byCode["5.3"].BalanceMinor; got != 7500 {
		t.Fatalf("rent balance %d, want 7500", got)
	}

	// Reading balances must not change them.
	again, err := svc.Balances(context.Background(), companyID, nil)
	if err != nil {
		t.Fatalf("balances again: %v", err)
	}
	for i := range again {
		if again[i].BalanceMinor != balances[i].BalanceMinor {
			t.Fatalf("balance changed on re-read: %+v vs %+v", again[i], balances[i])
		}
	}
}

func TestBalances_AsOf(t *testing.T) {
	_, svc, companyID, cash, sales := setup(t)

	old := time.Now().UTC().AddDate(0, 0, -10)
	recent := time.Now().UTC()
	amt := mustAmount(t, "USD", 1000)
	for _, d := range []time.Time{old, recent} {
		e := entryWith(companyID,
			ledger.JournalLine{AccountID: cash.ID, Side: ledger.SideDebit, Amount: amt},
			ledger.JournalLine{AccountID: sales.ID, Side: ledger.SideCredit, Amount: amt},
		)
		e.Date = d
		if _, err := svc.Post(context.Background(), e); err != nil {
			t.Fatalf("post: %v", err)
		}
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -5)
	balances, err := svc.Balances(context.Background(), companyID, &cutoff)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	for _, b := range balances {
		if b.Account.Code == "1.1.01" && b.BalanceMinor != 1000 {
			t.Fatalf("as-of cash balance %d, want 1000", b.BalanceMinor)
		}
	}
}
