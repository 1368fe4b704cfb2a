package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
)

const bankAccountCols = `id, company_id, code, name, currency, chart_account_id, initial_balance, current_balance, active`

func scanBankAccount(row pgx.Row) (ledger.BankAccount, error) {
	var a ledger.BankAccount
	err := row.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &a.Currency, &a.ChartAccountID, &a.InitialBalance, &a.CurrentBalance, &a.Active)
	return a, err
}

func (s *Store) BankAccountByID(ctx context.Context, companyID, accountID uuid.UUID) (ledger.BankAccount, error) {
	a, err := scanBankAccount(s.pool.QueryRow(ctx, `
		select `+bankAccountCols+`
		from bank_accounts
		where id = $1 and company_id = $2
	`, accountID, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.BankAccount{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.BankAccount{}, err
	}
	return a, nil
}

func (s *Store) BankAccountsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.BankAccount, error) {
	rows, err := s.pool.Query(ctx, `
		select `+bankAccountCols+`
		from bank_accounts
		where company_id = $1
		order by code asc
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.BankAccount, 0)
	for rows.Next() {
		a, err := scanBankAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const bankTxCols = `id, company_id, bank_account_id, type, amount, date, description, status,
	destination_id, pair_id, counterpart_account_id, journal_entry_id`

func scanBankTx(row pgx.Row) (ledger.BankTransaction, error) {
	var t ledger.BankTransaction
	err := row.Scan(&t.ID, &t.CompanyID, &t.BankAccountID, &t.Type, &t.Amount, &t.Date, &t.Description, &t.Status,
		&t.DestinationID, &t.PairID, &t.CounterpartAccountID, &t.JournalEntryID)
	return t, err
}

func (s *Store) BankTransactionsByAccount(ctx context.Context, companyID, accountID uuid.UUID) ([]ledger.BankTransaction, error) {
	rows, err := s.pool.Query(ctx, `
		select `+bankTxCols+`
		from bank_transactions
		where company_id = $1 and bank_account_id = $2
		order by date asc, id asc
	`, companyID, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.BankTransaction, 0)
	for rows.Next() {
		t, err := scanBankTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ReconciliationsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.BankReconciliation, error) {
	rows, err := s.pool.Query(ctx, `
		select id, company_id, bank_account_id, period_start, period_end,
		       balance_per_books, balance_per_bank, difference, transaction_ids, notes, status, created_at
		from bank_reconciliations
		where company_id = $1
		order by created_at asc
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.BankReconciliation, 0)
	for rows.Next() {
		var rec ledger.BankReconciliation
		if err := rows.Scan(&rec.ID, &rec.CompanyID, &rec.BankAccountID, &rec.PeriodStart, &rec.PeriodEnd,
			&rec.BalancePerBooks, &rec.BalancePerBank, &rec.Difference, &rec.TransactionIDs, &rec.Notes, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) CreateBankAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error) {
	_, err := s.pool.Exec(ctx, `
		insert into bank_accounts (`+bankAccountCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, a.ID, a.CompanyID, a.Code, a.Name, a.Currency, a.ChartAccountID, a.InitialBalance, a.CurrentBalance, a.Active)
	if isUniqueViolation(err) {
		return ledger.BankAccount{}, errs.ErrCodeExists
	}
	if err != nil {
		return ledger.BankAccount{}, err
	}
	return a, nil
}

// UpdateBankAccount updates descriptive fields. Balances are owned by
// the transaction path and never written here.
func (s *Store) UpdateBankAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error) {
	ct, err := s.pool.Exec(ctx, `
		update bank_accounts
		set code=$1, name=$2, chart_account_id=$3, active=$4
		where id=$5 and company_id=$6
	`, a.Code, a.Name, a.ChartAccountID, a.Active, a.ID, a.CompanyID)
	if isUniqueViolation(err) {
		return ledger.BankAccount{}, errs.ErrCodeExists
	}
	if err != nil {
		return ledger.BankAccount{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.BankAccount{}, errs.ErrNotFound
	}
	return s.BankAccountByID(ctx, a.CompanyID, a.ID)
}

func (s *Store) DeleteBankAccount(ctx context.Context, companyID, accountID uuid.UUID) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `
		select exists(select 1 from bank_transactions where bank_account_id = $1)
	`, accountID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return errs.ErrConflict
	}
	ct, err := s.pool.Exec(ctx, `
		delete from bank_accounts where id=$1 and company_id=$2
	`, accountID, companyID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CreateBankTransaction writes the transaction, its transfer pair, and
// the optional journal entry in one transaction, applying the signed
// effect of each half to its account's running balance under row locks.
func (s *Store) CreateBankTransaction(ctx context.Context, txn ledger.BankTransaction, pair *ledger.BankTransaction, entry *ledger.JournalEntry) (ledger.BankTransaction, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.BankTransaction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockBankAccount(ctx, tx, txn.CompanyID, txn.BankAccountID); err != nil {
		return ledger.BankTransaction{}, err
	}
	if pair != nil {
		if err := lockBankAccount(ctx, tx, pair.CompanyID, pair.BankAccountID); err != nil {
			return ledger.BankTransaction{}, err
		}
	}
	if entry != nil {
		posted, err := createEntry(ctx, tx, *entry)
		if err != nil {
			return ledger.BankTransaction{}, err
		}
		txn.JournalEntryID = &posted.ID
	}
	if err := insertBankTx(ctx, tx, txn); err != nil {
		return ledger.BankTransaction{}, err
	}
	if pair != nil {
		p := *pair
		p.JournalEntryID = txn.JournalEntryID
		if err := insertBankTx(ctx, tx, p); err != nil {
			return ledger.BankTransaction{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.BankTransaction{}, err
	}
	return txn, nil
}

func lockBankAccount(ctx context.Context, tx pgx.Tx, companyID, accountID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `
		select id from bank_accounts where id=$1 and company_id=$2 for update
	`, accountID, companyID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	return err
}

func insertBankTx(ctx context.Context, tx pgx.Tx, t ledger.BankTransaction) error {
	if _, err := tx.Exec(ctx, `
		insert into bank_transactions (`+bankTxCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, t.ID, t.CompanyID, t.BankAccountID, t.Type, t.Amount, t.Date, t.Description, t.Status,
		t.DestinationID, t.PairID, t.CounterpartAccountID, t.JournalEntryID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		update bank_accounts set current_balance = current_balance + $1 where id = $2
	`, t.Effect(), t.BankAccountID)
	return err
}

// SaveReconciliation stores the completed reconciliation and marks the
// listed transactions reconciled in one transaction.
func (s *Store) SaveReconciliation(ctx context.Context, rec ledger.BankReconciliation) (ledger.BankReconciliation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.BankReconciliation{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, id := range rec.TransactionIDs {
		var status ledger.BankTxStatus
		err := tx.QueryRow(ctx, `
			select status from bank_transactions
			where id=$1 and company_id=$2 for update
		`, id, rec.CompanyID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.BankReconciliation{}, errs.ErrNotFound
		}
		if err != nil {
			return ledger.BankReconciliation{}, err
		}
		if status == ledger.BankTxReconciled {
			return ledger.BankReconciliation{}, errs.ErrReconciled
		}
	}
	if _, err := tx.Exec(ctx, `
		update bank_transactions set status=$1 where id = any($2)
	`, ledger.BankTxReconciled, rec.TransactionIDs); err != nil {
		return ledger.BankReconciliation{}, err
	}
	if _, err := tx.Exec(ctx, `
		insert into bank_reconciliations (id, company_id, bank_account_id, period_start, period_end,
		                                  balance_per_books, balance_per_bank, difference, transaction_ids, notes, status, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, rec.ID, rec.CompanyID, rec.BankAccountID, rec.PeriodStart, rec.PeriodEnd,
		rec.BalancePerBooks, rec.BalancePerBank, rec.Difference, rec.TransactionIDs, rec.Notes, rec.Status, rec.CreatedAt); err != nil {
		return ledger.BankReconciliation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.BankReconciliation{}, err
	}
	return rec, nil
}
