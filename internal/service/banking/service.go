// Package banking records bank account movements, keeps the running
// balance projection honest against the transaction history, and
// reconciles statement periods against book transactions.
package banking

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
	BankAccountByID(ctx context.Context, companyID, accountID uuid.UUID) (ledger.BankAccount, error)
	BankAccountsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.BankAccount, error)
	BankTransactionsByAccount(ctx context.Context, companyID, accountID uuid.UUID) ([]ledger.BankTransaction, error)
	ReconciliationsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.BankReconciliation, error)
}

// Writer defines write operations needed by the service.
// CreateBankTransaction updates the affected balances atomically with
// the rows it writes; for a transfer both halves land or neither does.
type Writer interface {
	CreateBankAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error)
	UpdateBankAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error)
	DeleteBankAccount(ctx context.Context, companyID, accountID uuid.UUID) error
	CreateBankTransaction(ctx context.Context, tx ledger.BankTransaction, pair *ledger.BankTransaction, entry *ledger.JournalEntry) (ledger.BankTransaction, error)
	// SaveReconciliation persists the completed reconciliation and marks
	// its transactions reconciled in one atomic unit.
	SaveReconciliation(ctx context.Context, rec ledger.BankReconciliation) (ledger.BankReconciliation, error)
}

// AccountInput creates or updates a bank account.
type AccountInput struct {
	CompanyID      uuid.UUID
	Code           string
	Name           string
	Currency       string
	ChartAccountID *uuid.UUID
	InitialBalance decimal.Decimal
}

// TxInput registers one bank movement.
type TxInput struct {
	CompanyID     uuid.UUID
	BankAccountID uuid.UUID
	Type          ledger.BankTxType
	Amount        decimal.Decimal
	Date          time.Time
	Description   string
	// DestinationID is required for transfers.
	DestinationID *uuid.UUID
	// CounterpartAccountID optionally posts a deposit/withdrawal to the
	// journal against this chart account.
	CounterpartAccountID *uuid.UUID
}

// ReconcileInput matches one statement period.
type ReconcileInput struct {
	CompanyID      uuid.UUID
	BankAccountID  uuid.UUID
	PeriodStart    time.Time
	PeriodEnd      time.Time
	BalancePerBank decimal.Decimal
	TransactionIDs []uuid.UUID
	Notes          string
}

// Service exposes the bank ledger operations.
type Service interface {
	CreateAccount(ctx context.Context, in AccountInput) (ledger.BankAccount, error)
	UpdateAccount(ctx context.Context, companyID, accountID uuid.UUID, in AccountInput) (ledger.BankAccount, error)
	DeleteAccount(ctx context.Context, companyID, accountID uuid.UUID) error
	ListAccounts(ctx context.Context, companyID uuid.UUID) ([]ledger.BankAccount, error)
	RegisterTransaction(ctx context.Context, in TxInput) (ledger.BankTransaction, error)
	ListTransactions(ctx context.Context, companyID, accountID uuid.UUID) ([]ledger.BankTransaction, error)
	Reconcile(ctx context.Context, in ReconcileInput) (ledger.BankReconciliation, error)
	ListReconciliations(ctx context.Context, companyID uuid.UUID) ([]ledger.BankReconciliation, error)
}

type service struct {
	repo   Repo
	writer Writer
	jnl    journal.Service
}

func New(repo Repo, writer Writer, jnl journal.Service) Service {
	return &service{repo: repo, writer: writer, jnl: jnl}
}

func (s *service) CreateAccount(ctx context.Context, in AccountInput) (ledger.BankAccount, error) {
	if in.CompanyID == uuid.Nil {
		return ledger.BankAccount{}, errs.ErrInvalid
	}
	if in.Code == "" || in.Name == "" {
		return ledger.BankAccount{}, errors.New("code and name are required")
	}
	if in.Currency == "" {
		return ledger.BankAccount{}, errors.New("currency is required")
	}
	existing, err := s.repo.BankAccountsByCompany(ctx, in.CompanyID)
	if err != nil {
		return ledger.BankAccount{}, err
	}
	for _, other := range existing {
		if other.Code == in.Code {
			return ledger.BankAccount{}, errs.ErrCodeExists
		}
	}
	a := ledger.BankAccount{
		ID:             uuid.New(),
		CompanyID:      in.CompanyID,
		Code:           in.Code,
		Name:           in.Name,
		Currency:       in.Currency,
		ChartAccountID: in.ChartAccountID,
		InitialBalance: in.InitialBalance.Round(ledger.MoneyScale),
		CurrentBalance: in.InitialBalance.Round(ledger.MoneyScale),
		Active:         true,
	}
	return s.writer.CreateBankAccount(ctx, a)
}

func (s *service) UpdateAccount(ctx context.Context, companyID, accountID uuid.UUID, in AccountInput) (ledger.BankAccount, error) {
	a, err := s.repo.BankAccountByID(ctx, companyID, accountID)
	if err != nil {
		return ledger.BankAccount{}, err
	}
	// Currency and opening balance are fixed once the account exists.
	if in.Currency != "" && in.Currency != a.Currency {
		return ledger.BankAccount{}, errs.ErrImmutable
	}
	if in.Name != "" {
		a.Name = in.Name
	}
	if in.Code != "" && in.Code != a.Code {
		existing, err := s.repo.BankAccountsByCompany(ctx, companyID)
		if err != nil {
			return ledger.BankAccount{}, err
		}
		for _, other := range existing {
			if other.ID != a.ID && other.Code == in.Code {
				return ledger.BankAccount{}, errs.ErrCodeExists
			}
		}
		a.Code = in.Code
	}
	if in.ChartAccountID != nil {
		a.ChartAccountID = in.ChartAccountID
	}
	return s.writer.UpdateBankAccount(ctx, a)
}

// DeleteAccount removes a bank account that has no transaction history.
func (s *service) DeleteAccount(ctx context.Context, companyID, accountID uuid.UUID) error {
	if _, err := s.repo.BankAccountByID(ctx, companyID, accountID); err != nil {
		return err
	}
	txs, err := s.repo.BankTransactionsByAccount(ctx, companyID, accountID)
	if err != nil {
		return err
	}
	if len(txs) > 0 {
		return errs.ErrConflict
	}
	return s.writer.DeleteBankAccount(ctx, companyID, accountID)
}

func (s *service) ListAccounts(ctx context.Context, companyID uuid.UUID) ([]ledger.BankAccount, error) {
	if companyID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.BankAccountsByCompany(ctx, companyID)
}

func (s *service) RegisterTransaction(ctx context.Context, in TxInput) (ledger.BankTransaction, error) {
	if in.CompanyID == uuid.Nil || in.BankAccountID == uuid.Nil {
		return ledger.BankTransaction{}, errs.ErrInvalid
	}
	if !in.Amount.IsPositive() {
		return ledger.BankTransaction{}, errors.New("amount must be > 0")
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}
	src, err := s.repo.BankAccountByID(ctx, in.CompanyID, in.BankAccountID)
	if err != nil {
		return ledger.BankTransaction{}, err
	}

	tx := ledger.BankTransaction{
		ID:            uuid.New(),
		CompanyID:     in.CompanyID,
		BankAccountID: in.BankAccountID,
		Type:          in.Type,
		Amount:        in.Amount.Round(ledger.MoneyScale),
		Date:          in.Date,
		Description:   in.Description,
		Status:        ledger.BankTxPending,
	}

	switch in.Type {
	case ledger.BankTxDeposit, ledger.BankTxWithdrawal:
		var entry *ledger.JournalEntry
		if in.CounterpartAccountID != nil {
			if src.ChartAccountID == nil {
				return ledger.BankTransaction{}, errors.New("bank account has no linked chart account")
			}
			e, err := s.movementEntry(src, tx, *in.CounterpartAccountID)
			if err != nil {
				return ledger.BankTransaction{}, err
			}
			if err := s.jnl.Validate(ctx, e); err != nil {
				return ledger.BankTransaction{}, err
			}
			entry = &e
			tx.JournalEntryID = &e.ID
			tx.CounterpartAccountID = in.CounterpartAccountID
		}
		return s.writer.CreateBankTransaction(ctx, tx, nil, entry)

	case ledger.BankTxTransfer:
		if in.DestinationID == nil {
			return ledger.BankTransaction{}, errors.New("destination bank account is required for transfers")
		}
		if *in.DestinationID == in.BankAccountID {
			return ledger.BankTransaction{}, errors.New("cannot transfer to the same account")
		}
		dst, err := s.repo.BankAccountByID(ctx, in.CompanyID, *in.DestinationID)
		if err != nil {
			return ledger.BankTransaction{}, err
		}
		if dst.Currency != src.Currency {
			return ledger.BankTransaction{}, errors.New("transfer accounts must share a currency")
		}
		tx.DestinationID = in.DestinationID
		pair := ledger.BankTransaction{
			ID:            uuid.New(),
			CompanyID:     in.CompanyID,
			BankAccountID: dst.ID,
			Type:          ledger.BankTxDeposit,
			Amount:        tx.Amount,
			Date:          tx.Date,
			Description:   "transfer from " + src.Code + ": " + in.Description,
			Status:        ledger.BankTxPending,
			PairID:        &tx.ID,
		}
		tx.PairID = &pair.ID
		var entry *ledger.JournalEntry
		if src.ChartAccountID != nil && dst.ChartAccountID != nil {
			e, err := s.transferEntry(src, dst, tx)
			if err != nil {
				return ledger.BankTransaction{}, err
			}
			if err := s.jnl.Validate(ctx, e); err != nil {
				return ledger.BankTransaction{}, err
			}
			entry = &e
			tx.JournalEntryID = &e.ID
		}
		return s.writer.CreateBankTransaction(ctx, tx, &pair, entry)

	default:
		return ledger.BankTransaction{}, errors.New("type must be deposit, withdrawal or transfer")
	}
}

func (s *service) movementEntry(acct ledger.BankAccount, tx ledger.BankTransaction, counterpartID uuid.UUID) (ledger.JournalEntry, error) {
	amt, err := ledger.AmountFromDecimal(acct.Currency, tx.Amount)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	entry := ledger.JournalEntry{
		ID:          uuid.New(),
		CompanyID:   tx.CompanyID,
		Date:        tx.Date,
		Description: string(tx.Type) + " on " + acct.Code,
		Status:      ledger.EntryStatusPosted,
	}
	bankSide, counterSide := ledger.SideDebit, ledger.SideCredit
	if tx.Type == ledger.BankTxWithdrawal {
		bankSide, counterSide = counterSide, bankSide
	}
	entry.Lines = append(entry.Lines,
		ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: *acct.ChartAccountID, Side: bankSide, Amount: amt},
		ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: counterpartID, Side: counterSide, Amount: amt},
	)
	return entry, nil
}

func (s *service) transferEntry(src, dst ledger.BankAccount, tx ledger.BankTransaction) (ledger.JournalEntry, error) {
	amt, err := ledger.AmountFromDecimal(src.Currency, tx.Amount)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	entry := ledger.JournalEntry{
		ID:          uuid.New(),
		CompanyID:   tx.CompanyID,
		Date:        tx.Date,
		Description: "transfer " + src.Code + " -> " + dst.Code,
		Status:      ledger.EntryStatusPosted,
	}
	entry.Lines = append(entry.Lines,
		ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: *dst.ChartAccountID, Side: ledger.SideDebit, Amount: amt},
		ledger.JournalLine{ID: uuid.New(), EntryID: entry.ID, AccountID: *src.ChartAccountID, Side: ledger.SideCredit, Amount: amt},
	)
	return entry, nil
}

func (s *service) ListTransactions(ctx context.Context, companyID, accountID uuid.UUID) ([]ledger.BankTransaction, error) {
	if companyID == uuid.Nil || accountID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.BankTransactionsByAccount(ctx, companyID, accountID)
}

// Reconcile computes the book balance as of the period end, reports the
// difference against the statement, and marks the listed pending
// transactions reconciled. A non-zero difference is not an error.
func (s *service) Reconcile(ctx context.Context, in ReconcileInput) (ledger.BankReconciliation, error) {
	if in.CompanyID == uuid.Nil || in.BankAccountID == uuid.Nil {
		return ledger.BankReconciliation{}, errs.ErrInvalid
	}
	if in.PeriodEnd.Before(in.PeriodStart) {
		return ledger.BankReconciliation{}, errors.New("period end precedes period start")
	}
	acct, err := s.repo.BankAccountByID(ctx, in.CompanyID, in.BankAccountID)
	if err != nil {
		return ledger.BankReconciliation{}, err
	}
	txs, err := s.repo.BankTransactionsByAccount(ctx, in.CompanyID, in.BankAccountID)
	if err != nil {
		return ledger.BankReconciliation{}, err
	}

	byID := make(map[uuid.UUID]ledger.BankTransaction, len(txs))
	books := acct.InitialBalance
	for _, tx := range txs {
		byID[tx.ID] = tx
		if !tx.Date.After(in.PeriodEnd) {
			books = books.Add(tx.Effect())
		}
	}
	for _, id := range in.TransactionIDs {
		tx, ok := byID[id]
		if !ok {
			return ledger.BankReconciliation{}, errs.ErrNotFound
		}
		if tx.Status != ledger.BankTxPending {
			return ledger.BankReconciliation{}, errs.ErrReconciled
		}
		if tx.Date.Before(in.PeriodStart) || tx.Date.After(in.PeriodEnd) {
			return ledger.BankReconciliation{}, errors.New("transaction outside reconciliation period")
		}
	}

	rec := ledger.BankReconciliation{
		ID:              uuid.New(),
		CompanyID:       in.CompanyID,
		BankAccountID:   in.BankAccountID,
		PeriodStart:     in.PeriodStart,
		PeriodEnd:       in.PeriodEnd,
		BalancePerBooks: books,
		BalancePerBank:  in.BalancePerBank.Round(ledger.MoneyScale),
		Difference:      in.BalancePerBank.Round(ledger.MoneyScale).Sub(books),
		TransactionIDs:  in.TransactionIDs,
		Notes:           in.Notes,
		Status:          ledger.ReconciliationCompleted,
		CreatedAt:       time.Now().UTC(),
	}
	return s.writer.SaveReconciliation(ctx, rec)
}

func (s *service) ListReconciliations(ctx context.Context, companyID uuid.UUID) ([]ledger.BankReconciliation, error) {
	if companyID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ReconciliationsByCompany(ctx, companyID)
}
