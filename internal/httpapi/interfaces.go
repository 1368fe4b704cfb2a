package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/jrivasm/contably/internal/ledger"
)

// Store is the full persistence surface the HTTP layer wires into the
// services. Both the memory and postgres stores satisfy it.
type Store interface {
	// Chart of accounts
	ListAccounts(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error)
	GetAccount(ctx context.Context, companyID, accountID uuid.UUID) (ledger.Account, error)
	AccountsByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
	AccountHasLines(ctx context.Context, companyID, accountID uuid.UUID) (bool, error)
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	DeleteAccount(ctx context.Context, companyID, accountID uuid.UUID) error
	CreateAccountsBatch(ctx context.Context, accounts []ledger.Account) error

	// Journal
	EntriesByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.JournalEntry, error)
	EntryByID(ctx context.Context, companyID, entryID uuid.UUID) (ledger.JournalEntry, error)
	CreateJournalEntry(ctx context.Context, entry ledger.JournalEntry) (ledger.JournalEntry, error)
	GetEntryByIdempotencyKey(ctx context.Context, companyID uuid.UUID, key string) (ledger.JournalEntry, bool, error)
	SaveIdempotencyKey(ctx context.Context, companyID uuid.UUID, key string, entryID uuid.UUID) error

	// Fiscal sequences and posting profiles
	IncrementSequence(ctx context.Context, companyID uuid.UUID, seqType ledger.SequenceType, defaults ledger.FiscalSequence) (ledger.FiscalSequence, error)
	PostingProfile(ctx context.Context, companyID uuid.UUID) (ledger.PostingProfile, error)

	// Parties
	CustomerByID(ctx context.Context, companyID, customerID uuid.UUID) (ledger.Customer, error)
	CustomersByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Customer, error)
	CreateCustomer(ctx context.Context, c ledger.Customer) (ledger.Customer, error)
	UpdateCustomer(ctx context.Context, c ledger.Customer) (ledger.Customer, error)
	SupplierByID(ctx context.Context, companyID, supplierID uuid.UUID) (ledger.Supplier, error)
	SuppliersByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Supplier, error)
	CreateSupplier(ctx context.Context, s ledger.Supplier) (ledger.Supplier, error)
	UpdateSupplier(ctx context.Context, s ledger.Supplier) (ledger.Supplier, error)

	// Sales
	InvoiceByID(ctx context.Context, companyID, invoiceID uuid.UUID) (ledger.Invoice, error)
	InvoicesByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Invoice, error)
	CreateInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error)
	UpdateDraftInvoice(ctx context.Context, inv ledger.Invoice) (ledger.Invoice, error)
	IssueInvoice(ctx context.Context, inv ledger.Invoice, entry ledger.JournalEntry) (ledger.Invoice, error)
	CreateCreditNote(ctx context.Context, note ledger.CreditNote, inv ledger.Invoice, entry ledger.JournalEntry) (ledger.CreditNote, error)
	CreditNotesByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.CreditNote, error)

	// Purchases
	BillByID(ctx context.Context, companyID, billID uuid.UUID) (ledger.Bill, error)
	BillsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Bill, error)
	CreateBill(ctx context.Context, b ledger.Bill) (ledger.Bill, error)
	UpdateDraftBill(ctx context.Context, b ledger.Bill) (ledger.Bill, error)
	FinalizeBill(ctx context.Context, b ledger.Bill, entry ledger.JournalEntry) (ledger.Bill, error)

	// Payments
	SavePayment(ctx context.Context, p ledger.Payment, entry *ledger.JournalEntry) (ledger.Payment, error)
	PaymentsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Payment, error)

	// Banking
	BankAccountByID(ctx context.Context, companyID, accountID uuid.UUID) (ledger.BankAccount, error)
	BankAccountsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.BankAccount, error)
	BankTransactionsByAccount(ctx context.Context, companyID, accountID uuid.UUID) ([]ledger.BankTransaction, error)
	ReconciliationsByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.BankReconciliation, error)
	CreateBankAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error)
	UpdateBankAccount(ctx context.Context, a ledger.BankAccount) (ledger.BankAccount, error)
	DeleteBankAccount(ctx context.Context, companyID, accountID uuid.UUID) error
	CreateBankTransaction(ctx context.Context, tx ledger.BankTransaction, pair *ledger.BankTransaction, entry *ledger.JournalEntry) (ledger.BankTransaction, error)
	SaveReconciliation(ctx context.Context, rec ledger.BankReconciliation) (ledger.BankReconciliation, error)
}
