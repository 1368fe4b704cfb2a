package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
)

// --- Invoices ---

func (s *Store) InvoiceByID(_ context.Context, companyID, invoiceID uuid.UUID) (ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[invoiceID]
	if !ok || inv.CompanyID != companyID {
		return ledger.Invoice{}, errs.ErrNotFound
	}
	return copyInvoice(inv), nil
}

func (s *Store) InvoicesByCompany(_ context.Context, companyID uuid.UUID) ([]ledger.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.CompanyID == companyID {
			out = append(out, copyInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].InvoiceNumber < out[j].InvoiceNumber
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *Store) CreateInvoice(_ context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := copyInvoice(&inv)
	s.invoices[c.ID] = &c
	return copyInvoice(&c), nil
}

func (s *Store) UpdateDraftInvoice(_ context.Context, inv ledger.Invoice) (ledger.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.invoices[inv.ID]
	if !ok || cur.CompanyID != inv.CompanyID {
		return ledger.Invoice{}, errs.ErrNotFound
	}
	if cur.Status != ledger.InvoiceStatusDraft {
		return ledger.Invoice{}, errs.ErrNotDraft
	}
	c := copyInvoice(&inv)
	s.invoices[c.ID] = &c
	return copyInvoice(&c), nil
}

// IssueInvoice writes the numbered invoice and its journal entry as one
// unit. The status check under the write lock makes concurrent issuance
// of the same invoice lose cleanly; the fiscal number allocated by the
// loser stays consumed.
func (s *Store) IssueInvoice(_ context.Context, inv ledger.Invoice, entry ledger.JournalEntry) (ledger.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.invoices[inv.ID]
	if !ok || cur.CompanyID != inv.CompanyID {
		return ledger.Invoice{}, errs.ErrNotFound
	}
	if cur.Status != ledger.InvoiceStatusDraft {
		return ledger.Invoice{}, errs.ErrNotDraft
	}
	posted := s.createEntryLocked(entry)
	inv.JournalEntryID = &posted.ID
	c := copyInvoice(&inv)
	s.invoices[c.ID] = &c
	return copyInvoice(&c), nil
}

// CreateCreditNote writes the note, the reversing entry, and the
// cancelled invoice together.
func (s *Store) CreateCreditNote(_ context.Context, note ledger.CreditNote, inv ledger.Invoice, entry ledger.JournalEntry) (ledger.CreditNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.invoices[inv.ID]
	if !ok || cur.CompanyID != inv.CompanyID {
		return ledger.CreditNote{}, errs.ErrNotFound
	}
	if cur.Status != ledger.InvoiceStatusIssued && cur.Status != ledger.InvoiceStatusPaid {
		return ledger.CreditNote{}, errs.ErrStateConflict
	}
	posted := s.createEntryLocked(entry)
	note.JournalEntryID = &posted.ID
	s.creditNotes[note.ID] = note
	c := copyInvoice(&inv)
	s.invoices[c.ID] = &c
	return note, nil
}

func (s *Store) CreditNoteByID(_ context.Context, companyID, noteID uuid.UUID) (ledger.CreditNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.creditNotes[noteID]
	if !ok || n.CompanyID != companyID {
		return ledger.CreditNote{}, errs.ErrNotFound
	}
	return n, nil
}

func (s *Store) CreditNotesByCompany(_ context.Context, companyID uuid.UUID) ([]ledger.CreditNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.CreditNote, 0)
	for _, n := range s.creditNotes {
		if n.CompanyID == companyID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NoteNumber < out[j].NoteNumber })
	return out, nil
}

func copyInvoice(inv *ledger.Invoice) ledger.Invoice {
	out := *inv
	out.Lines = make([]ledger.InvoiceLine, len(inv.Lines))
	copy(out.Lines, inv.Lines)
	return out
}

// --- Bills ---

func (s *Store) BillByID(_ context.Context, companyID, billID uuid.UUID) (ledger.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bills[billID]
	if !ok || b.CompanyID != companyID {
		return ledger.Bill{}, errs.ErrNotFound
	}
	return copyBill(b), nil
}

func (s *Store) BillsByCompany(_ context.Context, companyID uuid.UUID) ([]ledger.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Bill, 0)
	for _, b := range s.bills {
		if b.CompanyID == companyID {
			out = append(out, copyBill(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].SupplierNumber < out[j].SupplierNumber
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *Store) CreateBill(_ context.Context, b ledger.Bill) (ledger.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := copyBill(&b)
	s.bills[c.ID] = &c
	return copyBill(&c), nil
}

func (s *Store) UpdateDraftBill(_ context.Context, b ledger.Bill) (ledger.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bills[b.ID]
	if !ok || cur.CompanyID != b.CompanyID {
		return ledger.Bill{}, errs.ErrNotFound
	}
	if cur.Status != ledger.BillStatusDraft {
		return ledger.Bill{}, errs.ErrNotDraft
	}
	c := copyBill(&b)
	s.bills[c.ID] = &c
	return copyBill(&c), nil
}

// FinalizeBill writes the pending bill and its payable entry as one unit.
func (s *Store) FinalizeBill(_ context.Context, b ledger.Bill, entry ledger.JournalEntry) (ledger.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.bills[b.ID]
	if !ok || cur.CompanyID != b.CompanyID {
		return ledger.Bill{}, errs.ErrNotFound
	}
	if cur.Status != ledger.BillStatusDraft {
		return ledger.Bill{}, errs.ErrNotDraft
	}
	posted := s.createEntryLocked(entry)
	b.JournalEntryID = &posted.ID
	c := copyBill(&b)
	s.bills[c.ID] = &c
	return copyBill(&c), nil
}

func copyBill(b *ledger.Bill) ledger.Bill {
	out := *b
	out.Lines = make([]ledger.BillLine, len(b.Lines))
	copy(out.Lines, b.Lines)
	return out
}

// --- Payments ---

// SavePayment re-reads every allocated document's balance under the
// write lock, rejects the whole payment if any allocation exceeds what
// is still owed, then applies all allocations, updates document
// statuses, and posts the optional cash entry. A payment may carry
// several allocations against the same document, so validation sums
// them per document before comparing against the balance.
func (s *Store) SavePayment(_ context.Context, p ledger.Payment, entry *ledger.JournalEntry) (ledger.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make(map[uuid.UUID]decimal.Decimal, len(p.Allocations))
	for _, alloc := range p.Allocations {
		applied := pending[alloc.DocumentID].Add(alloc.Amount)
		switch alloc.DocumentType {
		case ledger.DocumentInvoice:
			inv, ok := s.invoices[alloc.DocumentID]
			if !ok || inv.CompanyID != p.CompanyID {
				return ledger.Payment{}, errs.ErrNotFound
			}
			if inv.Status != ledger.InvoiceStatusIssued {
				return ledger.Payment{}, errs.ErrStateConflict
			}
			if applied.GreaterThan(inv.Balance()) {
				return ledger.Payment{}, errs.ErrOverApplied
			}
		case ledger.DocumentBill:
			b, ok := s.bills[alloc.DocumentID]
			if !ok || b.CompanyID != p.CompanyID {
				return ledger.Payment{}, errs.ErrNotFound
			}
			if b.Status != ledger.BillStatusPending && b.Status != ledger.BillStatusPartial {
				return ledger.Payment{}, errs.ErrStateConflict
			}
			if applied.GreaterThan(b.Balance()) {
				return ledger.Payment{}, errs.ErrOverApplied
			}
		default:
			return ledger.Payment{}, errs.ErrInvalid
		}
		pending[alloc.DocumentID] = applied
	}

	for _, alloc := range p.Allocations {
		switch alloc.DocumentType {
		case ledger.DocumentInvoice:
			inv := s.invoices[alloc.DocumentID]
			inv.AmountPaid = inv.AmountPaid.Add(alloc.Amount)
			if inv.Balance().IsZero() {
				inv.Status = ledger.InvoiceStatusPaid
			}
		case ledger.DocumentBill:
			b := s.bills[alloc.DocumentID]
			b.AmountPaid = b.AmountPaid.Add(alloc.Amount)
			if b.Balance().IsZero() {
				b.Status = ledger.BillStatusPaid
			} else {
				b.Status = ledger.BillStatusPartial
			}
		}
	}

	if entry != nil {
		posted := s.createEntryLocked(*entry)
		p.JournalEntryID = &posted.ID
	}
	s.payments[p.ID] = p
	return p, nil
}

func (s *Store) PaymentByID(_ context.Context, companyID, paymentID uuid.UUID) (ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok || p.CompanyID != companyID {
		return ledger.Payment{}, errs.ErrNotFound
	}
	return p, nil
}

func (s *Store) PaymentsByCompany(_ context.Context, companyID uuid.UUID) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Payment, 0)
	for _, p := range s.payments {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
