// Package memory provides an in-memory implementation used for
// development and tests. Every compound write holds the store's write
// lock, which gives the same all-or-nothing and serialization guarantees
// the postgres store gets from row locks and transactions.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
)

// entryKey orders entries per company asc by (Date, Seq).
type entryKey struct {
	Date time.Time
	Seq  int64
	ID   uuid.UUID
}

type seqKey struct {
	CompanyID uuid.UUID
	Type      ledger.SequenceType
}

// Store is an in-memory implementation of every repository and writer
// interface the services and HTTP layer use. Guarded by one RWMutex.
type Store struct {
	mu sync.RWMutex

	companies map[uuid.UUID]ledger.Company
	accounts  map[uuid.UUID]ledger.Account
	entries   map[uuid.UUID]*ledger.JournalEntry
	// Per-company sorted index of entries for ordered scans.
	entryKeysByCompany map[uuid.UUID][]entryKey
	// Per-company posting sequence for journal entries.
	entrySeq map[uuid.UUID]int64
	// Count of journal lines ever posted per account (includes cancelled
	// entries; deletion rules depend on "ever referenced").
	accountRefs map[uuid.UUID]int

	sequences map[seqKey]ledger.FiscalSequence
	profiles  map[uuid.UUID]ledger.PostingProfile

	customers map[uuid.UUID]ledger.Customer
	suppliers map[uuid.UUID]ledger.Supplier

	invoices    map[uuid.UUID]*ledger.Invoice
	creditNotes map[uuid.UUID]ledger.CreditNote
	bills       map[uuid.UUID]*ledger.Bill
	payments    map[uuid.UUID]ledger.Payment

	bankAccounts    map[uuid.UUID]*ledger.BankAccount
	bankTxs         map[uuid.UUID]*ledger.BankTransaction
	reconciliations map[uuid.UUID]ledger.BankReconciliation

	// Idempotency: companyID -> key -> entryID
	entryIdem map[uuid.UUID]map[string]uuid.UUID
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		companies:          make(map[uuid.UUID]ledger.Company),
		accounts:           make(map[uuid.UUID]ledger.Account),
		entries:            make(map[uuid.UUID]*ledger.JournalEntry),
		entryKeysByCompany: make(map[uuid.UUID][]entryKey),
		entrySeq:           make(map[uuid.UUID]int64),
		accountRefs:        make(map[uuid.UUID]int),
		sequences:          make(map[seqKey]ledger.FiscalSequence),
		profiles:           make(map[uuid.UUID]ledger.PostingProfile),
		customers:          make(map[uuid.UUID]ledger.Customer),
		suppliers:          make(map[uuid.UUID]ledger.Supplier),
		invoices:           make(map[uuid.UUID]*ledger.Invoice),
		creditNotes:        make(map[uuid.UUID]ledger.CreditNote),
		bills:              make(map[uuid.UUID]*ledger.Bill),
		payments:           make(map[uuid.UUID]ledger.Payment),
		bankAccounts:       make(map[uuid.UUID]*ledger.BankAccount),
		bankTxs:            make(map[uuid.UUID]*ledger.BankTransaction),
		reconciliations:    make(map[uuid.UUID]ledger.BankReconciliation),
		entryIdem:          make(map[uuid.UUID]map[string]uuid.UUID),
	}
}

// Seed helpers for local dev/tests.
func (s *Store) SeedCompany(c ledger.Company) {
	s.mu.Lock()
	s.companies[c.ID] = c
	s.mu.Unlock()
}

func (s *Store) SeedAccount(a ledger.Account) {
	s.mu.Lock()
	s.accounts[a.ID] = a
	s.mu.Unlock()
}

func (s *Store) SeedCustomer(c ledger.Customer) {
	s.mu.Lock()
	s.customers[c.ID] = c
	s.mu.Unlock()
}

func (s *Store) SeedSupplier(sup ledger.Supplier) {
	s.mu.Lock()
	s.suppliers[sup.ID] = sup
	s.mu.Unlock()
}

// SetPostingProfile configures the control accounts document engines
// post against for a company.
func (s *Store) SetPostingProfile(p ledger.PostingProfile) {
	s.mu.Lock()
	s.profiles[p.CompanyID] = p
	s.mu.Unlock()
}

// PostingProfile returns the company's control account configuration.
func (s *Store) PostingProfile(_ context.Context, companyID uuid.UUID) (ledger.PostingProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[companyID]
	if !ok {
		return ledger.PostingProfile{}, errs.ErrPostingProfile
	}
	return p, nil
}

// --- Chart of accounts ---

func (s *Store) ListAccounts(_ context.Context, companyID uuid.UUID) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0)
	for _, a := range s.accounts {
		if a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, companyID, accountID uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.CompanyID != companyID {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func (s *Store) AccountsByIDs(_ context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]ledger.Account, len(ids))
	for _, id := range ids {
		if a, ok := s.accounts[id]; ok && a.CompanyID == companyID {
			out[id] = a
		}
	}
	return out, nil
}

func (s *Store) AccountHasLines(_ context.Context, companyID, accountID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.CompanyID != companyID {
		return false, errs.ErrNotFound
	}
	return s.accountRefs[accountID] > 0, nil
}

func (s *Store) CreateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) DeleteAccount(_ context.Context, companyID, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok || a.CompanyID != companyID {
		return errs.ErrNotFound
	}
	if s.accountRefs[accountID] > 0 {
		return errs.ErrAccountInUse
	}
	delete(s.accounts, accountID)
	return nil
}

// CreateAccountsBatch inserts all accounts or none.
func (s *Store) CreateAccountsBatch(_ context.Context, accounts []ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		for _, other := range s.accounts {
			if other.CompanyID == a.CompanyID && other.Code == a.Code {
				return errs.ErrCodeExists
			}
		}
	}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return nil
}

// --- Journal ---

func (s *Store) EntriesByCompany(_ context.Context, companyID uuid.UUID) ([]ledger.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.entryKeysByCompany[companyID]
	out := make([]ledger.JournalEntry, 0, len(keys))
	for _, k := range keys {
		if e, ok := s.entries[k.ID]; ok && e.CompanyID == companyID {
			out = append(out, copyEntry(e))
		}
	}
	return out, nil
}

func (s *Store) EntryByID(_ context.Context, companyID, entryID uuid.UUID) (ledger.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID]
	if !ok || e.CompanyID != companyID {
		return ledger.JournalEntry{}, errs.ErrNotFound
	}
	return copyEntry(e), nil
}

// CreateJournalEntry assigns the next per-company sequence number and
// persists the header with all lines as one unit.
func (s *Store) CreateJournalEntry(_ context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createEntryLocked(entry), nil
}

// createEntryLocked is the shared insert path. Caller holds the write lock.
func (s *Store) createEntryLocked(entry ledger.JournalEntry) ledger.JournalEntry {
	s.entrySeq[entry.CompanyID]++
	entry.Seq = s.entrySeq[entry.CompanyID]
	e := copyEntry(&entry)
	s.entries[e.ID] = &e
	s.insertEntryIndexLocked(e.CompanyID, entryKey{Date: e.Date, Seq: e.Seq, ID: e.ID})
	for _, ln := range e.Lines {
		s.accountRefs[ln.AccountID]++
	}
	return copyEntry(&e)
}

func copyEntry(e *ledger.JournalEntry) ledger.JournalEntry {
	out := *e
	out.Lines = make([]ledger.JournalLine, len(e.Lines))
	copy(out.Lines, e.Lines)
	return out
}

// insertEntryIndexLocked inserts k keeping order asc by (Date, Seq).
// Caller must hold s.mu (write lock).
func (s *Store) insertEntryIndexLocked(companyID uuid.UUID, k entryKey) {
	keys := s.entryKeysByCompany[companyID]
	i := sort.Search(len(keys), func(i int) bool {
		if keys[i].Date.After(k.Date) {
			return true
		}
		if keys[i].Date.Equal(k.Date) {
			return keys[i].Seq > k.Seq
		}
		return false
	})
	if i == len(keys) {
		s.entryKeysByCompany[companyID] = append(keys, k)
		return
	}
	keys = append(keys, entryKey{})
	copy(keys[i+1:], keys[i:])
	keys[i] = k
	s.entryKeysByCompany[companyID] = keys
}

// --- Fiscal sequences ---

// IncrementSequence performs the single atomic increment for a
// (company, type) counter, creating the row on first use.
func (s *Store) IncrementSequence(_ context.Context, companyID uuid.UUID, seqType ledger.SequenceType, defaults ledger.FiscalSequence) (ledger.FiscalSequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := seqKey{CompanyID: companyID, Type: seqType}
	seq, ok := s.sequences[k]
	if !ok {
		seq = defaults
	}
	seq.Current++
	seq.ControlCurrent++
	s.sequences[k] = seq
	return seq, nil
}

// --- Parties ---

func (s *Store) CustomerByID(_ context.Context, companyID, customerID uuid.UUID) (ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok || c.CompanyID != companyID {
		return ledger.Customer{}, errs.ErrNotFound
	}
	return c, nil
}

func (s *Store) CustomersByCompany(_ context.Context, companyID uuid.UUID) ([]ledger.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Customer, 0)
	for _, c := range s.customers {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCustomer(_ context.Context, c ledger.Customer) (ledger.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCustomer(_ context.Context, c ledger.Customer) (ledger.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.customers[c.ID]; !ok {
		return ledger.Customer{}, errs.ErrNotFound
	}
	s.customers[c.ID] = c
	return c, nil
}

func (s *Store) SupplierByID(_ context.Context, companyID, supplierID uuid.UUID) (ledger.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.suppliers[supplierID]
	if !ok || sup.CompanyID != companyID {
		return ledger.Supplier{}, errs.ErrNotFound
	}
	return sup, nil
}

func (s *Store) SuppliersByCompany(_ context.Context, companyID uuid.UUID) ([]ledger.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Supplier, 0)
	for _, sup := range s.suppliers {
		if sup.CompanyID == companyID {
			out = append(out, sup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateSupplier(_ context.Context, sup ledger.Supplier) (ledger.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppliers[sup.ID] = sup
	return sup, nil
}

func (s *Store) UpdateSupplier(_ context.Context, sup ledger.Supplier) (ledger.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.suppliers[sup.ID]; !ok {
		return ledger.Supplier{}, errs.ErrNotFound
	}
	s.suppliers[sup.ID] = sup
	return sup, nil
}

// --- Idempotency ---

func (s *Store) GetEntryByIdempotencyKey(_ context.Context, companyID uuid.UUID, key string) (ledger.JournalEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.entryIdem[companyID]; ok {
		if eid, ok2 := m[key]; ok2 {
			if e, ok3 := s.entries[eid]; ok3 {
				return copyEntry(e), true, nil
			}
		}
	}
	return ledger.JournalEntry{}, false, nil
}

func (s *Store) SaveIdempotencyKey(_ context.Context, companyID uuid.UUID, key string, entryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.entryIdem[companyID]
	if !ok {
		m = make(map[string]uuid.UUID)
		s.entryIdem[companyID] = m
	}
	// Only set if absent to preserve idempotency.
	if _, exists := m[key]; !exists {
		m[key] = entryID
	}
	return nil
}
