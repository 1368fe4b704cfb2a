package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/shopspring/decimal"

	"github.com/jrivasm/contably/internal/meta"
)

// Side represents the accounting position of a journal line.
type Side string

const (
	// SideDebit records a value on the debit side of an account.
	SideDebit Side = "debit"
	// SideCredit records a value on the credit side of an account.
	SideCredit Side = "credit"
)

// AccountType enumerates the broad classification of an account in the chart.
type AccountType string

const (
	// AccountTypeAsset increases on the debit side and holds resources owned by the company.
	AccountTypeAsset AccountType = "asset"
	// AccountTypeLiability increases on the credit side and tracks obligations.
	AccountTypeLiability AccountType = "liability"
	// AccountTypeEquity captures the owners' residual interest in the company.
	AccountTypeEquity AccountType = "equity"
	// AccountTypeIncome represents inflows that increase equity.
	AccountTypeIncome AccountType = "income"
	// AccountTypeExpense represents outflows that decrease equity.
	AccountTypeExpense AccountType = "expense"
)

// NormalSide returns the side on which accounts of type t carry their balance.
func (t AccountType) NormalSide() Side {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return SideDebit
	default:
		return SideCredit
	}
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// Company is the tenant boundary. Every entity below belongs to exactly one company.
type Company struct {
	ID       uuid.UUID
	Name     string
	TaxID    string
	Currency string
	Active   bool
}

// Account is a node in a company's chart of accounts. Codes are
// dot-hierarchical ("1.1.01") and unique per company. Group accounts
// aggregate children and never receive postings directly.
type Account struct {
	ID       uuid.UUID
	CompanyID uuid.UUID
	ParentID *uuid.UUID
	Code     string
	Name     string
	Type     AccountType
	IsGroup  bool
	// Metadata holds additional key-value attributes for the account.
	Metadata meta.Metadata `json:"metadata,omitempty"`
	// Active indicates whether the account may receive new postings (soft-delete when false).
	Active bool
}

// ParentCode returns the code of the immediate ancestor by dot prefix,
// or "" when the account is top-level.
func (a Account) ParentCode() string { return ParentCode(a.Code) }

// JournalEntry captures the header of a balanced set of journal lines.
// Entries are immutable once posted; corrections post a reversing entry.
type JournalEntry struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	// Seq is the per-company entry sequence number, assigned at posting time.
	Seq         int64
	Date        time.Time
	Description string
	Reference   string
	Status      EntryStatus
	// Metadata holds additional key-value attributes for the entry.
	Metadata meta.Metadata `json:"metadata,omitempty"`
	// ReversalOf links a reversing entry back to the entry it undoes.
	ReversalOf *uuid.UUID
	Lines      []JournalLine
}

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	EntryStatusPosted    EntryStatus = "posted"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// JournalLine links a journal entry to an account with an amount on a side.
type JournalLine struct {
	ID        uuid.UUID
	EntryID   uuid.UUID
	AccountID uuid.UUID
	Side      Side
	Amount    money.Amount
}

// SequenceType selects which fiscal counter a document draws from.
type SequenceType string

const (
	SequenceInvoice    SequenceType = "invoice"
	SequenceCreditNote SequenceType = "credit_note"
	SequenceDebitNote  SequenceType = "debit_note"
)

// Valid reports whether t is a known sequence type.
func (t SequenceType) Valid() bool {
	switch t {
	case SequenceInvoice, SequenceCreditNote, SequenceDebitNote:
		return true
	}
	return false
}

// FiscalSequence is the per-company, per-type gapless counter behind
// invoice and credit-note numbering. It only ever moves forward.
type FiscalSequence struct {
	CompanyID      uuid.UUID
	Type           SequenceType
	Prefix         string
	Current        int64
	ControlPrefix  string
	ControlCurrent int64
}

// SequenceNumber is one allocation from a fiscal sequence.
type SequenceNumber struct {
	Number        string
	ControlNumber string
	Value         int64
}

// Customer is a receivable-side counterparty master record.
type Customer struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	TaxID     string
	Name      string
	Email     string
	Phone     string
	Address   string
	Active    bool
}

// Supplier is a payable-side counterparty master record.
type Supplier struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	TaxID     string
	Name      string
	Email     string
	Phone     string
	Address   string
	Active    bool
}

// InvoiceStatus is the sales document lifecycle.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is a fiscally numbered sales document. Fiscal numbers, lines
// and totals are frozen the moment the invoice is issued.
type Invoice struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	CustomerID uuid.UUID
	Status     InvoiceStatus
	// InvoiceNumber and ControlNumber stay empty until issuance.
	InvoiceNumber string
	ControlNumber string
	Date          time.Time
	DueDate       time.Time
	Currency      string
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	Total         decimal.Decimal
	AmountPaid    decimal.Decimal
	Notes         string
	Lines         []InvoiceLine
	JournalEntryID *uuid.UUID
	IssuedAt       *time.Time
}

// Balance is the amount still owed on the invoice.
func (i Invoice) Balance() decimal.Decimal { return i.Total.Sub(i.AmountPaid) }

// InvoiceLine is one priced row on an invoice. Computed fields derive
// from quantity, unit price and tax rate at append time.
type InvoiceLine struct {
	ID          uuid.UUID
	InvoiceID   uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	// TaxRate is a percentage, e.g. 16 for 16%.
	TaxRate   decimal.Decimal
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// CreditNote reverses a full issued invoice. There is no partial form.
type CreditNote struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	InvoiceID     uuid.UUID
	NoteNumber    string
	ControlNumber string
	Date          time.Time
	Reason        string
	Subtotal      decimal.Decimal
	TaxAmount     decimal.Decimal
	Total         decimal.Decimal
	JournalEntryID *uuid.UUID
}

// BillStatus is the purchase document lifecycle.
type BillStatus string

const (
	BillStatusDraft     BillStatus = "draft"
	BillStatusPending   BillStatus = "pending"
	BillStatusPartial   BillStatus = "partial"
	BillStatusPaid      BillStatus = "paid"
	BillStatusCancelled BillStatus = "cancelled"
)

// Bill is the purchase-side mirror of Invoice. The supplier owns the
// document number, so bills never touch the fiscal sequencer.
type Bill struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	SupplierID uuid.UUID
	// SupplierNumber is the number printed on the supplier's document.
	SupplierNumber string
	Status         BillStatus
	Date           time.Time
	DueDate        time.Time
	Currency       string
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	AmountPaid     decimal.Decimal
	Lines          []BillLine
	JournalEntryID *uuid.UUID
}

// Balance is the amount still owed on the bill.
func (b Bill) Balance() decimal.Decimal { return b.Total.Sub(b.AmountPaid) }

// BillLine is one priced row on a bill.
type BillLine struct {
	ID          uuid.UUID
	BillID      uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	Total       decimal.Decimal
}

// PaymentType distinguishes money received from money paid out.
type PaymentType string

const (
	PaymentTypeIncome  PaymentType = "income"
	PaymentTypeExpense PaymentType = "expense"
)

// DocumentType identifies the target of a payment allocation.
type DocumentType string

const (
	DocumentInvoice DocumentType = "invoice"
	DocumentBill    DocumentType = "bill"
)

// Payment records one cash or bank event and its split across documents.
// The amount always equals the sum of its allocations.
type Payment struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Type        PaymentType
	Date        time.Time
	Method      string
	Currency    string
	Amount      decimal.Decimal
	Reference   string
	Allocations []PaymentAllocation
	JournalEntryID *uuid.UUID
}

// PaymentAllocation applies part of a payment against one document.
type PaymentAllocation struct {
	ID           uuid.UUID
	PaymentID    uuid.UUID
	DocumentType DocumentType
	DocumentID   uuid.UUID
	Amount       decimal.Decimal
}

// BankTxType enumerates the bank transaction kinds.
type BankTxType string

const (
	BankTxDeposit    BankTxType = "deposit"
	BankTxWithdrawal BankTxType = "withdrawal"
	BankTxTransfer   BankTxType = "transfer"
)

// BankTxStatus tracks reconciliation state of a bank transaction.
type BankTxStatus string

const (
	BankTxPending    BankTxStatus = "pending"
	BankTxReconciled BankTxStatus = "reconciled"
)

// BankAccount holds a company's position at a bank. CurrentBalance is a
// projection of the transaction history and must always recompute to
// InitialBalance + deposits - withdrawals - outbound transfers.
type BankAccount struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Code      string
	Name      string
	Currency  string
	// ChartAccountID optionally links the bank account to a chart account
	// so movements can post to the journal.
	ChartAccountID *uuid.UUID
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	Active         bool
}

// BankTransaction is one movement on a bank account. A transfer is the
// outbound half of a pair; the store creates the matching deposit on the
// destination account with PairID linking the two.
type BankTransaction struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	BankAccountID uuid.UUID
	Type          BankTxType
	Amount        decimal.Decimal
	Date          time.Time
	Description   string
	Status        BankTxStatus
	// DestinationID is the receiving bank account for transfers.
	DestinationID *uuid.UUID
	// PairID links the two halves of a transfer.
	PairID *uuid.UUID
	// CounterpartAccountID optionally names the chart account a
	// deposit/withdrawal posts against.
	CounterpartAccountID *uuid.UUID
	JournalEntryID       *uuid.UUID
}

// Effect returns the signed balance impact of the transaction on its own
// bank account: deposits add, withdrawals and outbound transfers subtract.
func (t BankTransaction) Effect() decimal.Decimal {
	if t.Type == BankTxDeposit {
		return t.Amount
	}
	return t.Amount.Neg()
}

// ReconciliationStatus is the lifecycle of a bank reconciliation.
type ReconciliationStatus string

const (
	ReconciliationInProgress ReconciliationStatus = "in_progress"
	ReconciliationCompleted  ReconciliationStatus = "completed"
)

// BankReconciliation matches a statement period against book
// transactions. Completed reconciliations are immutable.
type BankReconciliation struct {
	ID              uuid.UUID
	CompanyID       uuid.UUID
	BankAccountID   uuid.UUID
	PeriodStart     time.Time
	PeriodEnd       time.Time
	BalancePerBooks decimal.Decimal
	BalancePerBank  decimal.Decimal
	Difference      decimal.Decimal
	TransactionIDs  []uuid.UUID
	Notes           string
	Status          ReconciliationStatus
	CreatedAt       time.Time
}

// PostingProfile names the control accounts document engines post
// against. One profile per company; issuance fails without one.
type PostingProfile struct {
	CompanyID            uuid.UUID
	ReceivableAccountID  uuid.UUID
	SalesAccountID       uuid.UUID
	SalesTaxAccountID    uuid.UUID
	PayableAccountID     uuid.UUID
	PurchasesAccountID   uuid.UUID
	PurchaseTaxAccountID uuid.UUID
}

// MoneyScale is the fixed number of fractional digits for monetary values.
const MoneyScale = 2

// MinorUnits converts a decimal monetary value to integer minor units
// at MoneyScale. Values are rounded half-up first.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Round(MoneyScale).Shift(MoneyScale).IntPart()
}

// AmountFromDecimal bridges a decimal monetary value into a ledger
// money.Amount in the given currency.
func AmountFromDecimal(currency string, d decimal.Decimal) (money.Amount, error) {
	return money.NewAmountFromMinorUnits(currency, MinorUnits(d))
}

// DecimalFromMinor converts minor units back to a decimal at MoneyScale.
func DecimalFromMinor(units int64) decimal.Decimal {
	return decimal.New(units, -MoneyScale)
}
