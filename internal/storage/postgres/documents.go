package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Customers / suppliers ---

func (s *Store) CustomerByID(ctx context.Context, companyID, customerID uuid.UUID) (ledger.Customer, error) {
	var c ledger.Customer
	err := s.pool.QueryRow(ctx, `
		select id, company_id, name, tax_id, email, phone, address, active
		from customers
		where id = $1 and company_id = $2
	`, customerID, companyID).Scan(&c.ID, &c.CompanyID, &c.Name, &c.TaxID, &c.Email, &c.Phone, &c.Address, &c.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Customer{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Customer{}, err
	}
	return c, nil
}

func (s *Store) CustomersByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		select id, company_id, name, tax_id, email, phone, address, active
		from customers
		where company_id = $1
		order by name asc
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Customer, 0)
	for rows.Next() {
		var c ledger.Customer
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.TaxID, &c.Email, &c.Phone, &c.Address, &c.Active); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCustomer(ctx context.Context, c ledger.Customer) (ledger.Customer, error) {
	_, err := s.pool.Exec(ctx, `
		insert into customers (id, company_id, name, tax_id, email, phone, address, active)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, c.ID, c.CompanyID, c.Name, c.TaxID, c.Email, c.Phone, c.Address, c.Active)
	if err != nil {
		return ledger.Customer{}, err
	}
	return c, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c ledger.Customer) (ledger.Customer, error) {
	ct, err := s.pool.Exec(ctx, `
		update customers
		set name=$1, tax_id=$2, email=$3, phone=$4, address=$5, active=$6
		where id=$7 and company_id=$8
	`, c.Name, c.TaxID, c.Email, c.Phone, c.Address, c.Active, c.ID, c.CompanyID)
	if err != nil {
		return ledger.Customer{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Customer{}, errs.ErrNotFound
	}
	return c, nil
}

func (s *Store) SupplierByID(ctx context.Context, companyID, supplierID uuid.UUID) (ledger.Supplier, error) {
	var sup ledger.Supplier
	err := s.pool.QueryRow(ctx, `
		select id, company_id, name, tax_id, email, phone, address, active
		from suppliers
		where id = $1 and company_id = $2
	`, supplierID, companyID).Scan(&sup.ID, &sup.CompanyID, &sup.Name, &sup.TaxID, &sup.Email, &sup.Phone, &sup.Address, &sup.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Supplier{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Supplier{}, err
	}
	return sup, nil
}

func (s *Store) SuppliersByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Supplier, error) {
	rows, err := s.pool.Query(ctx, `
		select id, company_id, name, tax_id, email, phone, address, active
		from suppliers
		where company_id = $1
		order by name asc
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Supplier, 0)
	for rows.Next() {
		var sup ledger.Supplier
		if err := rows.Scan(&sup.ID, &sup.CompanyID, &sup.Name, &sup.TaxID, &sup.Email, &sup.Phone, &sup.Address, &sup.Active); err != nil {
			return nil, err
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

func (s *Store) CreateSupplier(ctx context.Context, sup ledger.Supplier) (ledger.Supplier, error) {
	_, err := s.pool.Exec(ctx, `
		insert into suppliers (id, company_id, name, tax_id, email, phone, address, active)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, sup.ID, sup.CompanyID, sup.Name, sup.TaxID, sup.Email, sup.Phone, sup.Address, sup.Active)
	if err != nil {
		return ledger.Supplier{}, err
	}
	return sup, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, sup ledger.Supplier) (ledger.Supplier, error) {
	ct, err := s.pool.Exec(ctx, `
		update suppliers
		set name=$1, tax_id=$2, email=$3, phone=$4, address=$5, active=$6
		where id=$7 and company_id=$8
	`, sup.Name, sup.TaxID, sup.Email, sup.Phone, sup.Address, sup.Active, sup.ID, sup.CompanyID)
	if err != nil {
		return ledger.Supplier{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Supplier{}, errs.ErrNotFound
	}
	return sup, nil
}

// --- Invoices ---

const invoiceCols = `id, company_id, customer_id, status, invoice_number, control_number,
	date, due_date, currency, subtotal, tax_amount, total, amount_paid, notes, journal_entry_id, issued_at`

func scanInvoice(row pgx.Row) (ledger.Invoice, error) {
	var inv ledger.Invoice
	err := row.Scan(&inv.ID, &inv.CompanyID, &inv.CustomerID, &inv.Status, &inv.InvoiceNumber, &inv.ControlNumber,
		&inv.Date, &inv.DueDate, &inv.Currency, &inv.Subtotal, &inv.TaxAmount, &inv.Total, &inv.AmountPaid,
		&inv.Notes, &inv.JournalEntryID, &inv.IssuedAt)
	return inv, err
}

func (s *Store) loadInvoiceLines(ctx context.Context, inv *ledger.Invoice) error {
	rows, err := s.pool.Query(ctx, `
		select id, invoice_id, description, quantity, unit_price, tax_rate, subtotal, tax_amount, total
		from invoice_lines
		where invoice_id = $1
		order by id asc
	`, inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ln ledger.InvoiceLine
		if err := rows.Scan(&ln.ID, &ln.InvoiceID, &ln.Description, &ln.Quantity, &ln.UnitPrice, &ln.TaxRate, &ln.Subtotal, &ln.TaxAmount, &ln.Total); err != nil {
			return err
		}
		inv.Lines = append(inv.Lines, ln)
	}
	return rows.Err()
}

func (s *Store) InvoiceByID(ctx context.Context, companyID, invoiceID uuid.UUID) (ledger.Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx, `
		select `+invoiceCols+`
		from invoices
		where id = $1 and company_id = $2
	`, invoiceID, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Invoice{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Invoice{}, err
	}
	if err := s.loadInvoiceLines(ctx, &inv); err != nil {
		return ledger.Invoice{}, err
	}
	return inv, nil
}

func (s *Store) InvoicesByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Invoice, error) {
	rows, err := s.pool.Query(ctx, `
		select `+invoiceCols+`
		from invoices
		where company_id = $1
		order by date asc, invoice_number asc
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadInvoiceLines(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Invoice{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := insertInvoice(ctx, tx, inv); err != nil {
		return ledger.Invoice{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Invoice{}, err
	}
	return inv, nil
}

func insertInvoice(ctx context.Context, tx pgx.Tx, inv ledger.Invoice) error {
	if _, err := tx.Exec(ctx, `
		insert into invoices (`+invoiceCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, inv.ID, inv.CompanyID, inv.CustomerID, inv.Status, inv.InvoiceNumber, inv.ControlNumber,
		inv.Date, inv.DueDate, inv.Currency, inv.Subtotal, inv.TaxAmount, inv.Total, inv.AmountPaid,
		inv.Notes, inv.JournalEntryID, inv.IssuedAt); err != nil {
		return err
	}
	return insertInvoiceLines(ctx, tx, inv)
}

func insertInvoiceLines(ctx context.Context, tx pgx.Tx, inv ledger.Invoice) error {
	for _, ln := range inv.Lines {
		if _, err := tx.Exec(ctx, `
			insert into invoice_lines (id, invoice_id, description, quantity, unit_price, tax_rate, subtotal, tax_amount, total)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			on conflict (id) do nothing
		`, ln.ID, inv.ID, ln.Description, ln.Quantity, ln.UnitPrice, ln.TaxRate, ln.Subtotal, ln.TaxAmount, ln.Total); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDraftInvoice rewrites a draft's header and lines. The status
// guard in the where clause keeps issued documents immutable.
func (s *Store) UpdateDraftInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Invoice{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	ct, err := tx.Exec(ctx, `
		update invoices
		set due_date=$1, currency=$2, subtotal=$3, tax_amount=$4, total=$5, notes=$6
		where id=$7 and company_id=$8 and status=$9
	`, inv.DueDate, inv.Currency, inv.Subtotal, inv.TaxAmount, inv.Total, inv.Notes,
		inv.ID, inv.CompanyID, ledger.InvoiceStatusDraft)
	if err != nil {
		return ledger.Invoice{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Invoice{}, errs.ErrNotDraft
	}
	if err := insertInvoiceLines(ctx, tx, inv); err != nil {
		return ledger.Invoice{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Invoice{}, err
	}
	return inv, nil
}

// IssueInvoice writes the numbered invoice and its journal entry in one
// transaction. The draft row is locked first so a concurrent issue of
// the same invoice fails cleanly; its fiscal number stays consumed.
func (s *Store) IssueInvoice(ctx context.Context, inv ledger.Invoice, entry ledger.JournalEntry) (ledger.Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Invoice{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	var status ledger.InvoiceStatus
	err = tx.QueryRow(ctx, `
		select status from invoices where id=$1 and company_id=$2 for update
	`, inv.ID, inv.CompanyID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Invoice{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Invoice{}, err
	}
	if status != ledger.InvoiceStatusDraft {
		return ledger.Invoice{}, errs.ErrNotDraft
	}
	posted, err := createEntry(ctx, tx, entry)
	if err != nil {
		return ledger.Invoice{}, err
	}
	inv.JournalEntryID = &posted.ID
	if _, err := tx.Exec(ctx, `
		update invoices
		set status=$1, invoice_number=$2, control_number=$3, journal_entry_id=$4, issued_at=$5
		where id=$6
	`, inv.Status, inv.InvoiceNumber, inv.ControlNumber, inv.JournalEntryID, inv.IssuedAt, inv.ID); err != nil {
		return ledger.Invoice{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Invoice{}, err
	}
	return inv, nil
}

// CreateCreditNote writes the note, the reversing entry, and the
// cancelled invoice in one transaction.
func (s *Store) CreateCreditNote(ctx context.Context, note ledger.CreditNote, inv ledger.Invoice, entry ledger.JournalEntry) (ledger.CreditNote, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.CreditNote{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	var status ledger.InvoiceStatus
	err = tx.QueryRow(ctx, `
		select status from invoices where id=$1 and company_id=$2 for update
	`, inv.ID, inv.CompanyID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.CreditNote{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.CreditNote{}, err
	}
	if status != ledger.InvoiceStatusIssued && status != ledger.InvoiceStatusPaid {
		return ledger.CreditNote{}, errs.ErrStateConflict
	}
	posted, err := createEntry(ctx, tx, entry)
	if err != nil {
		return ledger.CreditNote{}, err
	}
	note.JournalEntryID = &posted.ID
	if _, err := tx.Exec(ctx, `
		insert into credit_notes (id, company_id, invoice_id, note_number, control_number, date, reason,
		                          subtotal, tax_amount, total, journal_entry_id)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, note.ID, note.CompanyID, note.InvoiceID, note.NoteNumber, note.ControlNumber, note.Date, note.Reason,
		note.Subtotal, note.TaxAmount, note.Total, note.JournalEntryID); err != nil {
		return ledger.CreditNote{}, err
	}
	if _, err := tx.Exec(ctx, `
		update invoices set status=$1 where id=$2
	`, ledger.InvoiceStatusCancelled, inv.ID); err != nil {
		return ledger.CreditNote{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.CreditNote{}, err
	}
	return note, nil
}

func (s *Store) CreditNoteByID(ctx context.Context, companyID, noteID uuid.UUID) (ledger.CreditNote, error) {
	var n ledger.CreditNote
	err := s.pool.QueryRow(ctx, `
		select id, company_id, invoice_id, note_number, control_number, date, reason,
		       subtotal, tax_amount, total, journal_entry_id
		from credit_notes
		where id = $1 and company_id = $2
	`, noteID, companyID).Scan(&n.ID, &n.CompanyID, &n.InvoiceID, &n.NoteNumber, &n.ControlNumber, &n.Date, &n.Reason,
		&n.Subtotal, &n.TaxAmount, &n.Total, &n.JournalEntryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.CreditNote{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.CreditNote{}, err
	}
	return n, nil
}

func (s *Store) CreditNotesByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.CreditNote, error) {
	rows, err := s.pool.Query(ctx, `
		select id, company_id, invoice_id, note_number, control_number, date, reason,
		       subtotal, tax_amount, total, journal_entry_id
		from credit_notes
		where company_id = $1
		order by note_number asc
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.CreditNote, 0)
	for rows.Next() {
		var n ledger.CreditNote
		if err := rows.Scan(&n.ID, &n.CompanyID, &n.InvoiceID, &n.NoteNumber, &n.ControlNumber, &n.Date, &n.Reason,
			&n.Subtotal, &n.TaxAmount, &n.Total, &n.JournalEntryID); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// --- Bills ---

const billCols = `id, company_id, supplier_id, supplier_number, status, date, due_date,
	currency, subtotal, tax_amount, total, amount_paid, journal_entry_id`

func scanBill(row pgx.Row) (ledger.Bill, error) {
	var b ledger.Bill
	err := row.Scan(&b.ID, &b.CompanyID, &b.SupplierID, &b.SupplierNumber, &b.Status, &b.Date, &b.DueDate,
		&b.Currency, &b.Subtotal, &b.TaxAmount, &b.Total, &b.AmountPaid, &b.JournalEntryID)
	return b, err
}

func (s *Store) loadBillLines(ctx context.Context, b *ledger.Bill) error {
	rows, err := s.pool.Query(ctx, `
		select id, bill_id, description, quantity, unit_price, tax_rate, subtotal, tax_amount, total
		from bill_lines
		where bill_id = $1
		order by id asc
	`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ln ledger.BillLine
		if err := rows.Scan(&ln.ID, &ln.BillID, &ln.Description, &ln.Quantity, &ln.UnitPrice, &ln.TaxRate, &ln.Subtotal, &ln.TaxAmount, &ln.Total); err != nil {
			return err
		}
		b.Lines = append(b.Lines, ln)
	}
	return rows.Err()
}

func (s *Store) BillByID(ctx context.Context, companyID, billID uuid.UUID) (ledger.Bill, error) {
	b, err := scanBill(s.pool.QueryRow(ctx, `
		select `+billCols+`
		from bills
		where id = $1 and company_id = $2
	`, billID, companyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Bill{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Bill{}, err
	}
	if err := s.loadBillLines(ctx, &b); err != nil {
		return ledger.Bill{}, err
	}
	return b, nil
}

func (s *Store) BillsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Bill, error) {
	rows, err := s.pool.Query(ctx, `
		select `+billCols+`
		from bills
		where company_id = $1
		order by date asc, supplier_number asc
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Bill, 0)
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadBillLines(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) CreateBill(ctx context.Context, b ledger.Bill) (ledger.Bill, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Bill{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `
		insert into bills (`+billCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, b.ID, b.CompanyID, b.SupplierID, b.SupplierNumber, b.Status, b.Date, b.DueDate,
		b.Currency, b.Subtotal, b.TaxAmount, b.Total, b.AmountPaid, b.JournalEntryID); err != nil {
		return ledger.Bill{}, err
	}
	if err := insertBillLines(ctx, tx, b); err != nil {
		return ledger.Bill{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Bill{}, err
	}
	return b, nil
}

func insertBillLines(ctx context.Context, tx pgx.Tx, b ledger.Bill) error {
	for _, ln := range b.Lines {
		if _, err := tx.Exec(ctx, `
			insert into bill_lines (id, bill_id, description, quantity, unit_price, tax_rate, subtotal, tax_amount, total)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			on conflict (id) do nothing
		`, ln.ID, b.ID, ln.Description, ln.Quantity, ln.UnitPrice, ln.TaxRate, ln.Subtotal, ln.TaxAmount, ln.Total); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpdateDraftBill(ctx context.Context, b ledger.Bill) (ledger.Bill, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Bill{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	ct, err := tx.Exec(ctx, `
		update bills
		set due_date=$1, currency=$2, subtotal=$3, tax_amount=$4, total=$5
		where id=$6 and company_id=$7 and status=$8
	`, b.DueDate, b.Currency, b.Subtotal, b.TaxAmount, b.Total, b.ID, b.CompanyID, ledger.BillStatusDraft)
	if err != nil {
		return ledger.Bill{}, err
	}
	if ct.RowsAffected() == 0 {
		return ledger.Bill{}, errs.ErrNotDraft
	}
	if err := insertBillLines(ctx, tx, b); err != nil {
		return ledger.Bill{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Bill{}, err
	}
	return b, nil
}

// FinalizeBill writes the pending bill and its payable entry in one
// transaction, guarding the draft status under a row lock.
func (s *Store) FinalizeBill(ctx context.Context, b ledger.Bill, entry ledger.JournalEntry) (ledger.Bill, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Bill{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	var status ledger.BillStatus
	err = tx.QueryRow(ctx, `
		select status from bills where id=$1 and company_id=$2 for update
	`, b.ID, b.CompanyID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Bill{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Bill{}, err
	}
	if status != ledger.BillStatusDraft {
		return ledger.Bill{}, errs.ErrNotDraft
	}
	posted, err := createEntry(ctx, tx, entry)
	if err != nil {
		return ledger.Bill{}, err
	}
	b.JournalEntryID = &posted.ID
	if _, err := tx.Exec(ctx, `
		update bills set status=$1, journal_entry_id=$2 where id=$3
	`, b.Status, b.JournalEntryID, b.ID); err != nil {
		return ledger.Bill{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Bill{}, err
	}
	return b, nil
}

// --- Payments ---

// SavePayment re-reads every allocated document's balance under a row
// lock, rejects the whole payment if any allocation exceeds what is
// still owed, then writes the payment, its allocations, the optional
// cash entry, and the updated document balances in one transaction.
func (s *Store) SavePayment(ctx context.Context, p ledger.Payment, entry *ledger.JournalEntry) (ledger.Payment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Payment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, alloc := range p.Allocations {
		switch alloc.DocumentType {
		case ledger.DocumentInvoice:
			var status ledger.InvoiceStatus
			var total, paid decimal.Decimal
			err := tx.QueryRow(ctx, `
				select status, total, amount_paid from invoices
				where id=$1 and company_id=$2 for update
			`, alloc.DocumentID, p.CompanyID).Scan(&status, &total, &paid)
			if errors.Is(err, pgx.ErrNoRows) {
				return ledger.Payment{}, errs.ErrNotFound
			}
			if err != nil {
				return ledger.Payment{}, err
			}
			if status != ledger.InvoiceStatusIssued {
				return ledger.Payment{}, errs.ErrStateConflict
			}
			newPaid := paid.Add(alloc.Amount)
			if newPaid.GreaterThan(total) {
				return ledger.Payment{}, errs.ErrOverApplied
			}
			newStatus := status
			if newPaid.Equal(total) {
				newStatus = ledger.InvoiceStatusPaid
			}
			if _, err := tx.Exec(ctx, `
				update invoices set amount_paid=$1, status=$2 where id=$3
			`, newPaid, newStatus, alloc.DocumentID); err != nil {
				return ledger.Payment{}, err
			}
		case ledger.DocumentBill:
			var status ledger.BillStatus
			var total, paid decimal.Decimal
			err := tx.QueryRow(ctx, `
				select status, total, amount_paid from bills
				where id=$1 and company_id=$2 for update
			`, alloc.DocumentID, p.CompanyID).Scan(&status, &total, &paid)
			if errors.Is(err, pgx.ErrNoRows) {
				return ledger.Payment{}, errs.ErrNotFound
			}
			if err != nil {
				return ledger.Payment{}, err
			}
			if status != ledger.BillStatusPending && status != ledger.BillStatusPartial {
				return ledger.Payment{}, errs.ErrStateConflict
			}
			newPaid := paid.Add(alloc.Amount)
			if newPaid.GreaterThan(total) {
				return ledger.Payment{}, errs.ErrOverApplied
			}
			newStatus := ledger.BillStatusPartial
			if newPaid.Equal(total) {
				newStatus = ledger.BillStatusPaid
			}
			if _, err := tx.Exec(ctx, `
				update bills set amount_paid=$1, status=$2 where id=$3
			`, newPaid, newStatus, alloc.DocumentID); err != nil {
				return ledger.Payment{}, err
			}
		default:
			return ledger.Payment{}, errs.ErrInvalid
		}
	}

	if entry != nil {
		posted, err := createEntry(ctx, tx, *entry)
		if err != nil {
			return ledger.Payment{}, err
		}
		p.JournalEntryID = &posted.ID
	}
	if _, err := tx.Exec(ctx, `
		insert into payments (id, company_id, type, date, method, currency, amount, reference, journal_entry_id)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, p.ID, p.CompanyID, p.Type, p.Date, p.Method, p.Currency, p.Amount, p.Reference, p.JournalEntryID); err != nil {
		return ledger.Payment{}, err
	}
	for _, alloc := range p.Allocations {
		if _, err := tx.Exec(ctx, `
			insert into payment_allocations (id, payment_id, document_type, document_id, amount)
			values ($1,$2,$3,$4,$5)
		`, alloc.ID, p.ID, alloc.DocumentType, alloc.DocumentID, alloc.Amount); err != nil {
			return ledger.Payment{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Payment{}, err
	}
	return p, nil
}

func (s *Store) PaymentByID(ctx context.Context, companyID, paymentID uuid.UUID) (ledger.Payment, error) {
	var p ledger.Payment
	err := s.pool.QueryRow(ctx, `
		select id, company_id, type, date, method, currency, amount, reference, journal_entry_id
		from payments
		where id = $1 and company_id = $2
	`, paymentID, companyID).Scan(&p.ID, &p.CompanyID, &p.Type, &p.Date, &p.Method, &p.Currency, &p.Amount, &p.Reference, &p.JournalEntryID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Payment{}, errs.ErrNotFound
	}
	if err != nil {
		return ledger.Payment{}, err
	}
	rows, err := s.pool.Query(ctx, `
		select id, payment_id, document_type, document_id, amount
		from payment_allocations
		where payment_id = $1
		order by id asc
	`, p.ID)
	if err != nil {
		return ledger.Payment{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var a ledger.PaymentAllocation
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.DocumentType, &a.DocumentID, &a.Amount); err != nil {
			return ledger.Payment{}, err
		}
		p.Allocations = append(p.Allocations, a)
	}
	return p, rows.Err()
}

func (s *Store) PaymentsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Payment, error) {
	rows, err := s.pool.Query(ctx, `
		select id, company_id, type, date, method, currency, amount, reference, journal_entry_id
		from payments
		where company_id = $1
		order by date asc
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Payment, 0)
	for rows.Next() {
		var p ledger.Payment
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Type, &p.Date, &p.Method, &p.Currency, &p.Amount, &p.Reference, &p.JournalEntryID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
