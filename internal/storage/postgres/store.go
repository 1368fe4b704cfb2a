// Package postgres provides a pgx-backed storage implementation that
// satisfies the repository and writer interfaces used by the HTTP layer
// and services.
//
// It is intentionally small and explicit. Migrations that create the
// expected schema live under db/migrations. This package focuses on
// mapping between domain entities and SQL rows and running the
// necessary statements and transactions.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
	"github.com/jrivasm/contably/internal/meta"
)

// Store holds a pgx connection pool and implements the read/write
// interfaces used across the service layer. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// --- Posting profiles ---

// PostingProfile returns the company's control account configuration.
func (s *Store) PostingProfile(ctx context.Context, companyID uuid.UUID) (ledger.PostingProfile, error) {
	var p ledger.PostingProfile
	err := s.pool.QueryRow(ctx, `
		select company_id, receivable_account_id, sales_account_id, sales_tax_account_id,
		       payable_account_id, purchases_account_id, purchase_tax_account_id
		from posting_profiles
		where company_id = $1
	`, companyID).Scan(&p.CompanyID, &p.ReceivableAccountID, &p.SalesAccountID, &p.SalesTaxAccountID,
		&p.PayableAccountID, &p.PurchasesAccountID, &p.PurchaseTaxAccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.PostingProfile{}, errs.ErrPostingProfile
	}
	if err != nil {
		return ledger.PostingProfile{}, err
	}
	return p, nil
}

// SetPostingProfile upserts the company's control account configuration.
func (s *Store) SetPostingProfile(ctx context.Context, p ledger.PostingProfile) error {
	_, err := s.pool.Exec(ctx, `
		insert into posting_profiles (company_id, receivable_account_id, sales_account_id, sales_tax_account_id,
		                              payable_account_id, purchases_account_id, purchase_tax_account_id)
		values ($1,$2,$3,$4,$5,$6,$7)
		on conflict (company_id) do update set
			receivable_account_id = excluded.receivable_account_id,
			sales_account_id = excluded.sales_account_id,
			sales_tax_account_id = excluded.sales_tax_account_id,
			payable_account_id = excluded.payable_account_id,
			purchases_account_id = excluded.purchases_account_id,
			purchase_tax_account_id = excluded.purchase_tax_account_id
	`, p.CompanyID, p.ReceivableAccountID, p.SalesAccountID, p.SalesTaxAccountID,
		p.PayableAccountID, p.PurchasesAccountID, p.PurchaseTaxAccountID)
	return err
}

// --- Account reads ---

const accountCols = `id, company_id, parent_id, code, name, type, is_group, metadata, active`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	var mdBytes []byte
	if err := row.Scan(&a.ID, &a.CompanyID, &a.ParentID, &a.Code, &a.Name, &a.Type, &a.IsGroup, &mdBytes, &a.Active); err != nil {
		return ledger.Account{}, err
	}
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			a.Metadata = m
		}
	}
	return a, nil
}

// ListAccounts returns all accounts for a company ordered by code.
func (s *Store) ListAccounts(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error) {
	rows, err := s.pool.Query(ctx, `
		select `+accountCols+`
		from accounts
		where company_id = $1
		order by code asc
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAccount fetches a single account by id for a company.
func (s *Store) GetAccount(ctx context.Context, companyID, accountID uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `
		select `+accountCols+`
		from accounts
		where id = $1 and company_id = $2
	`, accountID, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

// AccountsByIDs returns accounts for a company filtered by IDs.
func (s *Store) AccountsByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]ledger.Account{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		select `+accountCols+`
		from accounts
		where company_id = $1 and id = any($2)
	`, companyID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]ledger.Account)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// AccountHasLines reports whether any journal line references the account.
func (s *Store) AccountHasLines(ctx context.Context, companyID, accountID uuid.UUID) (bool, error) {
	if _, err := s.GetAccount(ctx, companyID, accountID); err != nil {
		return false, err
	}
	var exists bool
	err := s.pool.QueryRow(ctx, `
		select exists(select 1 from entry_lines where account_id = $1)
	`, accountID).Scan(&exists)
	return exists, err
}

// --- Account writes ---

// CreateAccount inserts an account row.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if err := a.Metadata.Validate(); err != nil {
		return ledger.Account{}, err
	}
	md, _ := a.Metadata.MarshalStableJSON()
	_, err := s.pool.Exec(ctx, `
		insert into accounts (id, company_id, parent_id, code, name, type, is_group, metadata, active)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, a.ID, a.CompanyID, a.ParentID, a.Code, a.Name, a.Type, a.IsGroup, md, a.Active)
	if isUniqueViolation(err) {
		return ledger.Account{}, errs.ErrCodeExists
	}
	if err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

// UpdateAccount updates mutable fields (code, name, is_group, metadata, active).
func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if err := a.Metadata.Validate(); err != nil {
		return ledger.Account{}, err
	}
	md, _ := a.Metadata.MarshalStableJSON()
	ct, err := s.pool.Exec(ctx, `
		update accounts
		set parent_id=$1, code=$2, name=$3, is_group=$4, metadata=$5, active=$6
		where id=$7 and company_id=$8
	`, a.ParentID, a.Code, a.Name, a.IsGroup, md, a.Active, a.ID, a.CompanyID)
	if isUniqueViolation(err) {
		return ledger.Account{}, errs.ErrCodeExists
	}
	if err != nil {
		return ledger.Account{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// DeleteAccount removes an account that has never been posted to.
func (s *Store) DeleteAccount(ctx context.Context, companyID, accountID uuid.UUID) error {
	inUse, err := s.AccountHasLines(ctx, companyID, accountID)
	if err != nil {
		return err
	}
	if inUse {
		return errs.ErrAccountInUse
	}
	ct, err := s.pool.Exec(ctx, `
		delete from accounts where id=$1 and company_id=$2
	`, accountID, companyID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CreateAccountsBatch inserts all accounts in one transaction, or none.
func (s *Store) CreateAccountsBatch(ctx context.Context, accounts []ledger.Account) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, a := range accounts {
		md, _ := a.Metadata.MarshalStableJSON()
		if _, err := tx.Exec(ctx, `
			insert into accounts (id, company_id, parent_id, code, name, type, is_group, metadata, active)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, a.ID, a.CompanyID, a.ParentID, a.Code, a.Name, a.Type, a.IsGroup, md, a.Active); err != nil {
			if isUniqueViolation(err) {
				return errs.ErrCodeExists
			}
			return err
		}
	}
	return tx.Commit(ctx)
}

// --- Entry reads ---

// EntriesByCompany returns entries for a company with lines populated,
// ordered by date then sequence.
func (s *Store) EntriesByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.JournalEntry, error) {
	rows, err := s.pool.Query(ctx, `
		select id, company_id, seq, date, description, reference, status, metadata, reversal_of
		from entries
		where company_id = $1
		order by date asc, seq asc
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]ledger.JournalEntry, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var e ledger.JournalEntry
		var mdBytes []byte
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Seq, &e.Date, &e.Description, &e.Reference, &e.Status, &mdBytes, &e.ReversalOf); err != nil {
			return nil, err
		}
		if len(mdBytes) > 0 {
			var m meta.Metadata
			if err := m.UnmarshalJSON(mdBytes); err == nil {
				e.Metadata = m
			}
		}
		entries = append(entries, e)
		ids = append(ids, e.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}
	lineRows, err := s.pool.Query(ctx, `
		select id, entry_id, account_id, side, currency, amount_minor
		from entry_lines
		where entry_id = any($1)
		order by id asc
	`, ids)
	if err != nil {
		return nil, err
	}
	defer lineRows.Close()
	idx := make(map[uuid.UUID]*ledger.JournalEntry, len(entries))
	for i := range entries {
		idx[entries[i].ID] = &entries[i]
	}
	for lineRows.Next() {
		ln, entryID, err := scanLine(lineRows)
		if err != nil {
			return nil, err
		}
		if e := idx[entryID]; e != nil {
			e.Lines = append(e.Lines, ln)
		}
	}
	return entries, lineRows.Err()
}

// EntryByID returns an entry by id for a company with lines populated.
func (s *Store) EntryByID(ctx context.Context, companyID, entryID uuid.UUID) (ledger.JournalEntry, error) {
	var e ledger.JournalEntry
	var mdBytes []byte
	err := s.pool.QueryRow(ctx, `
		select id, company_id, seq, date, description, reference, status, metadata, reversal_of
		from entries
		where id = $1 and company_id = $2
	`, entryID, companyID).Scan(&e.ID, &e.CompanyID, &e.Seq, &e.Date, &e.Description, &e.Reference, &e.Status, &mdBytes, &e.ReversalOf)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			e.Metadata = m
		}
	}
	rows, err := s.pool.Query(ctx, `
		select id, entry_id, account_id, side, currency, amount_minor
		from entry_lines
		where entry_id = $1
		order by id asc
	`, entryID)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		ln, _, err := scanLine(rows)
		if err != nil {
			return ledger.JournalEntry{}, err
		}
		e.Lines = append(e.Lines, ln)
	}
	return e, rows.Err()
}

func scanLine(rows pgx.Rows) (ledger.JournalLine, uuid.UUID, error) {
	var id, entryID, accountID uuid.UUID
	var side, currency string
	var minor int64
	if err := rows.Scan(&id, &entryID, &accountID, &side, &currency, &minor); err != nil {
		return ledger.JournalLine{}, uuid.Nil, err
	}
	amt, err := money.NewAmountFromMinorUnits(currency, minor)
	if err != nil {
		return ledger.JournalLine{}, uuid.Nil, err
	}
	return ledger.JournalLine{ID: id, EntryID: entryID, AccountID: accountID, Side: ledger.Side(side), Amount: amt}, entryID, nil
}

// --- Entry writes ---

// CreateJournalEntry inserts an entry with its lines in a transaction,
// assigning the next per-company sequence number.
func (s *Store) CreateJournalEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	out, err := createEntry(ctx, tx, entry)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.JournalEntry{}, err
	}
	return out, nil
}

// createEntry inserts the entry header and its lines within the provided
// transaction. The per-company seq comes from an atomic upsert on
// entry_counters so concurrent posts never collide.
func createEntry(ctx context.Context, tx pgx.Tx, e ledger.JournalEntry) (ledger.JournalEntry, error) {
	if err := tx.QueryRow(ctx, `
		insert into entry_counters (company_id, last_seq)
		values ($1, 1)
		on conflict (company_id) do update set last_seq = entry_counters.last_seq + 1
		returning last_seq
	`, e.CompanyID).Scan(&e.Seq); err != nil {
		return ledger.JournalEntry{}, err
	}
	md, _ := e.Metadata.MarshalStableJSON()
	if _, err := tx.Exec(ctx, `
		insert into entries (id, company_id, seq, date, description, reference, status, metadata, reversal_of)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, e.ID, e.CompanyID, e.Seq, e.Date, e.Description, e.Reference, e.Status, md, e.ReversalOf); err != nil {
		return ledger.JournalEntry{}, err
	}
	for _, ln := range e.Lines {
		minor, ok := ln.Amount.MinorUnits()
		if !ok {
			return ledger.JournalEntry{}, fmt.Errorf("line %s: amount out of range", ln.ID)
		}
		if _, err := tx.Exec(ctx, `
			insert into entry_lines (id, entry_id, account_id, side, currency, amount_minor)
			values ($1,$2,$3,$4,$5,$6)
		`, ln.ID, e.ID, ln.AccountID, ln.Side, ln.Amount.Curr().Code(), minor); err != nil {
			return ledger.JournalEntry{}, fmt.Errorf("insert line: %w", err)
		}
	}
	return e, nil
}

// --- Fiscal sequences ---

// IncrementSequence performs the single atomic increment for a
// (company, type) counter, creating the row with the provided defaults
// on first use.
func (s *Store) IncrementSequence(ctx context.Context, companyID uuid.UUID, seqType ledger.SequenceType, defaults ledger.FiscalSequence) (ledger.FiscalSequence, error) {
	seq := defaults
	seq.CompanyID = companyID
	seq.Type = seqType
	err := s.pool.QueryRow(ctx, `
		insert into fiscal_sequences (company_id, type, prefix, current, control_prefix, control_current)
		values ($1,$2,$3,$4+1,$5,$6+1)
		on conflict (company_id, type) do update set
			current = fiscal_sequences.current + 1,
			control_current = fiscal_sequences.control_current + 1
		returning prefix, current, control_prefix, control_current
	`, companyID, seqType, defaults.Prefix, defaults.Current, defaults.ControlPrefix, defaults.ControlCurrent).
		Scan(&seq.Prefix, &seq.Current, &seq.ControlPrefix, &seq.ControlCurrent)
	if err != nil {
		return ledger.FiscalSequence{}, err
	}
	return seq, nil
}

// --- Idempotency ---

// GetEntryByIdempotencyKey resolves an entry by idempotency key for the company.
func (s *Store) GetEntryByIdempotencyKey(ctx context.Context, companyID uuid.UUID, key string) (ledger.JournalEntry, bool, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		select entry_id from entry_idempotency where company_id=$1 and key=$2
	`, companyID, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.JournalEntry{}, false, nil
	}
	if err != nil {
		return ledger.JournalEntry{}, false, err
	}
	e, err := s.EntryByID(ctx, companyID, id)
	if err != nil {
		return ledger.JournalEntry{}, false, err
	}
	return e, true, nil
}

// SaveIdempotencyKey stores a mapping from (company, key) to entry id.
func (s *Store) SaveIdempotencyKey(ctx context.Context, companyID uuid.UUID, key string, entryID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		insert into entry_idempotency (company_id, key, entry_id)
		values ($1,$2,$3)
		on conflict (company_id, key) do nothing
	`, companyID, key, entryID)
	return err
}
