package httpapi

import (
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jrivasm/contably/internal/ledger"
	"github.com/jrivasm/contably/internal/meta"
	"github.com/jrivasm/contably/internal/service/payments"
)

// companyID resolves the tenant scope from the company_id query param.
func companyID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.URL.Query().Get("company_id"))
}

// pathID parses the {id} route parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// Accounts

type postAccountRequest struct {
	CompanyID uuid.UUID          `json:"company_id"`
	ParentID  *uuid.UUID         `json:"parent_id,omitempty"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Type      ledger.AccountType `json:"type"`
	IsGroup   bool               `json:"is_group"`
	Metadata  meta.Metadata      `json:"metadata,omitempty"`
}

type patchAccountRequest struct {
	CompanyID uuid.UUID      `json:"company_id"`
	Code      *string        `json:"code,omitempty"`
	Name      *string        `json:"name,omitempty"`
	IsGroup   *bool          `json:"is_group,omitempty"`
	Metadata  *meta.Metadata `json:"metadata,omitempty"`
	Active    *bool          `json:"active,omitempty"`
}

type importAccountsRequest struct {
	CompanyID uuid.UUID `json:"company_id"`
}

type accountResponse struct {
	ID       uuid.UUID          `json:"id"`
	ParentID *uuid.UUID         `json:"parent_id,omitempty"`
	Code     string             `json:"code"`
	Name     string             `json:"name"`
	Type     ledger.AccountType `json:"type"`
	IsGroup  bool               `json:"is_group"`
	Metadata meta.Metadata      `json:"metadata,omitempty"`
	Active   bool               `json:"active"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID: a.ID, ParentID: a.ParentID, Code: a.Code, Name: a.Name,
		Type: a.Type, IsGroup: a.IsGroup, Metadata: a.Metadata, Active: a.Active,
	}
}

// Entries

type postEntryRequest struct {
	CompanyID   uuid.UUID       `json:"company_id"`
	Date        time.Time       `json:"date"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
	Metadata    meta.Metadata   `json:"metadata,omitempty"`
	Lines       []postEntryLine `json:"lines"`
}

type postEntryLine struct {
	AccountID   uuid.UUID   `json:"account_id"`
	Side        ledger.Side `json:"side"`
	AmountMinor int64       `json:"amount_minor"`
}

type reverseEntryRequest struct {
	CompanyID uuid.UUID `json:"company_id"`
	EntryID   uuid.UUID `json:"entry_id"`
	Date      time.Time `json:"date"`
}

type entryResponse struct {
	ID          uuid.UUID          `json:"id"`
	Seq         int64              `json:"seq"`
	Date        time.Time          `json:"date"`
	Description string             `json:"description"`
	Reference   string             `json:"reference"`
	Status      ledger.EntryStatus `json:"status"`
	ReversalOf  *uuid.UUID         `json:"reversal_of,omitempty"`
	Lines       []lineResponse     `json:"lines"`
}

type lineResponse struct {
	ID          uuid.UUID   `json:"id"`
	AccountID   uuid.UUID   `json:"account_id"`
	Side        ledger.Side `json:"side"`
	Currency    string      `json:"currency"`
	AmountMinor int64       `json:"amount_minor"`
}

func toEntryResponse(e ledger.JournalEntry) entryResponse {
	lines := make([]lineResponse, 0, len(e.Lines))
	for _, ln := range e.Lines {
		minor, _ := ln.Amount.MinorUnits()
		lines = append(lines, lineResponse{
			ID: ln.ID, AccountID: ln.AccountID, Side: ln.Side,
			Currency: ln.Amount.Curr().Code(), AmountMinor: minor,
		})
	}
	return entryResponse{
		ID: e.ID, Seq: e.Seq, Date: e.Date, Description: e.Description,
		Reference: e.Reference, Status: e.Status, ReversalOf: e.ReversalOf, Lines: lines,
	}
}

type trialBalanceRow struct {
	AccountID    uuid.UUID          `json:"account_id"`
	Code         string             `json:"code"`
	Name         string             `json:"name"`
	Type         ledger.AccountType `json:"type"`
	DebitMinor   int64              `json:"debit_minor"`
	CreditMinor  int64              `json:"credit_minor"`
	BalanceMinor int64              `json:"balance_minor"`
}

type trialBalanceResponse struct {
	Rows             []trialBalanceRow `json:"rows"`
	TotalDebitMinor  int64             `json:"total_debit_minor"`
	TotalCreditMinor int64             `json:"total_credit_minor"`
}

// Parties

type partyRequest struct {
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
}

type partyResponse struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	TaxID   string    `json:"tax_id"`
	Email   string    `json:"email"`
	Phone   string    `json:"phone"`
	Address string    `json:"address"`
	Active  bool      `json:"active"`
}

// Invoices / bills

type postInvoiceRequest struct {
	CompanyID  uuid.UUID `json:"company_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Date       time.Time `json:"date"`
	DueDays    int       `json:"due_days"`
	Currency   string    `json:"currency"`
	Notes      string    `json:"notes"`
}

type documentLineRequest struct {
	CompanyID   uuid.UUID       `json:"company_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

type creditNoteRequest struct {
	CompanyID uuid.UUID `json:"company_id"`
	Reason    string    `json:"reason"`
}

type invoiceResponse struct {
	ID            uuid.UUID            `json:"id"`
	CustomerID    uuid.UUID            `json:"customer_id"`
	Status        ledger.InvoiceStatus `json:"status"`
	InvoiceNumber string               `json:"invoice_number,omitempty"`
	ControlNumber string               `json:"control_number,omitempty"`
	Date          time.Time            `json:"date"`
	DueDate       time.Time            `json:"due_date"`
	Currency      string               `json:"currency"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	TaxAmount     decimal.Decimal      `json:"tax_amount"`
	Total         decimal.Decimal      `json:"total"`
	AmountPaid    decimal.Decimal      `json:"amount_paid"`
	Balance       decimal.Decimal      `json:"balance"`
	Notes         string               `json:"notes,omitempty"`
	Lines         []documentLineResponse `json:"lines"`
	JournalEntryID *uuid.UUID          `json:"journal_entry_id,omitempty"`
}

type documentLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
}

func toInvoiceResponse(inv ledger.Invoice) invoiceResponse {
	lines := make([]documentLineResponse, 0, len(inv.Lines))
	for _, ln := range inv.Lines {
		lines = append(lines, documentLineResponse{
			ID: ln.ID, Description: ln.Description, Quantity: ln.Quantity,
			UnitPrice: ln.UnitPrice, TaxRate: ln.TaxRate,
			Subtotal: ln.Subtotal, TaxAmount: ln.TaxAmount, Total: ln.Total,
		})
	}
	return invoiceResponse{
		ID: inv.ID, CustomerID: inv.CustomerID, Status: inv.Status,
		InvoiceNumber: inv.InvoiceNumber, ControlNumber: inv.ControlNumber,
		Date: inv.Date, DueDate: inv.DueDate, Currency: inv.Currency,
		Subtotal: inv.Subtotal, TaxAmount: inv.TaxAmount, Total: inv.Total,
		AmountPaid: inv.AmountPaid, Balance: inv.Balance(), Notes: inv.Notes,
		Lines: lines, JournalEntryID: inv.JournalEntryID,
	}
}

type creditNoteResponse struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	NoteNumber    string          `json:"note_number"`
	ControlNumber string          `json:"control_number"`
	Date          time.Time       `json:"date"`
	Reason        string          `json:"reason"`
	Total         decimal.Decimal `json:"total"`
	JournalEntryID *uuid.UUID     `json:"journal_entry_id,omitempty"`
}

func toCreditNoteResponse(n ledger.CreditNote) creditNoteResponse {
	return creditNoteResponse{
		ID: n.ID, InvoiceID: n.InvoiceID, NoteNumber: n.NoteNumber,
		ControlNumber: n.ControlNumber, Date: n.Date, Reason: n.Reason,
		Total: n.Total, JournalEntryID: n.JournalEntryID,
	}
}

type postBillRequest struct {
	CompanyID      uuid.UUID `json:"company_id"`
	SupplierID     uuid.UUID `json:"supplier_id"`
	SupplierNumber string    `json:"supplier_number"`
	Date           time.Time `json:"date"`
	DueDays        int       `json:"due_days"`
	Currency       string    `json:"currency"`
}

type billResponse struct {
	ID             uuid.UUID         `json:"id"`
	SupplierID     uuid.UUID         `json:"supplier_id"`
	SupplierNumber string            `json:"supplier_number"`
	Status         ledger.BillStatus `json:"status"`
	Date           time.Time         `json:"date"`
	DueDate        time.Time         `json:"due_date"`
	Currency       string            `json:"currency"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	Total          decimal.Decimal   `json:"total"`
	AmountPaid     decimal.Decimal   `json:"amount_paid"`
	Balance        decimal.Decimal   `json:"balance"`
	Lines          []documentLineResponse `json:"lines"`
	JournalEntryID *uuid.UUID        `json:"journal_entry_id,omitempty"`
}

func toBillResponse(b ledger.Bill) billResponse {
	lines := make([]documentLineResponse, 0, len(b.Lines))
	for _, ln := range b.Lines {
		lines = append(lines, documentLineResponse{
			ID: ln.ID, Description: ln.Description, Quantity: ln.Quantity,
			UnitPrice: ln.UnitPrice, TaxRate: ln.TaxRate,
			Subtotal: ln.Subtotal, TaxAmount: ln.TaxAmount, Total: ln.Total,
		})
	}
	return billResponse{
		ID: b.ID, SupplierID: b.SupplierID, SupplierNumber: b.SupplierNumber,
		Status: b.Status, Date: b.Date, DueDate: b.DueDate, Currency: b.Currency,
		Subtotal: b.Subtotal, TaxAmount: b.TaxAmount, Total: b.Total,
		AmountPaid: b.AmountPaid, Balance: b.Balance(), Lines: lines,
		JournalEntryID: b.JournalEntryID,
	}
}

// Payments

type postPaymentRequest struct {
	CompanyID     uuid.UUID          `json:"company_id"`
	Type          ledger.PaymentType `json:"type"`
	Date          time.Time          `json:"date"`
	Method        string             `json:"method"`
	Currency      string             `json:"currency"`
	Amount        decimal.Decimal    `json:"amount"`
	Reference     string             `json:"reference"`
	CashAccountID *uuid.UUID         `json:"cash_account_id,omitempty"`
	Allocations   []allocationRequest `json:"allocations"`
}

type allocationRequest struct {
	DocumentType ledger.DocumentType `json:"document_type"`
	DocumentID   uuid.UUID           `json:"document_id"`
	Amount       decimal.Decimal     `json:"amount"`
}

func (req postPaymentRequest) toInput() payments.RegisterInput {
	allocs := make([]payments.AllocationInput, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		allocs = append(allocs, payments.AllocationInput{
			DocumentType: a.DocumentType, DocumentID: a.DocumentID, Amount: a.Amount,
		})
	}
	return payments.RegisterInput{
		CompanyID: req.CompanyID, Type: req.Type, Date: req.Date,
		Method: req.Method, Currency: req.Currency, Amount: req.Amount,
		Reference: req.Reference, CashAccountID: req.CashAccountID, Allocations: allocs,
	}
}

type paymentResponse struct {
	ID          uuid.UUID            `json:"id"`
	Type        ledger.PaymentType   `json:"type"`
	Date        time.Time            `json:"date"`
	Method      string               `json:"method"`
	Currency    string               `json:"currency"`
	Amount      decimal.Decimal      `json:"amount"`
	Reference   string               `json:"reference,omitempty"`
	Allocations []allocationResponse `json:"allocations"`
	JournalEntryID *uuid.UUID        `json:"journal_entry_id,omitempty"`
}

type allocationResponse struct {
	DocumentType ledger.DocumentType `json:"document_type"`
	DocumentID   uuid.UUID           `json:"document_id"`
	Amount       decimal.Decimal     `json:"amount"`
}

func toPaymentResponse(p ledger.Payment) paymentResponse {
	allocs := make([]allocationResponse, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		allocs = append(allocs, allocationResponse{
			DocumentType: a.DocumentType, DocumentID: a.DocumentID, Amount: a.Amount,
		})
	}
	return paymentResponse{
		ID: p.ID, Type: p.Type, Date: p.Date, Method: p.Method,
		Currency: p.Currency, Amount: p.Amount, Reference: p.Reference,
		Allocations: allocs, JournalEntryID: p.JournalEntryID,
	}
}

// Banking

type bankAccountRequest struct {
	CompanyID      uuid.UUID       `json:"company_id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	ChartAccountID *uuid.UUID      `json:"chart_account_id,omitempty"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

type bankAccountResponse struct {
	ID             uuid.UUID       `json:"id"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Currency       string          `json:"currency"`
	ChartAccountID *uuid.UUID      `json:"chart_account_id,omitempty"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Active         bool            `json:"active"`
}

func toBankAccountResponse(a ledger.BankAccount) bankAccountResponse {
	return bankAccountResponse{
		ID: a.ID, Code: a.Code, Name: a.Name, Currency: a.Currency,
		ChartAccountID: a.ChartAccountID, InitialBalance: a.InitialBalance,
		CurrentBalance: a.CurrentBalance, Active: a.Active,
	}
}

type bankTxRequest struct {
	CompanyID            uuid.UUID         `json:"company_id"`
	BankAccountID        uuid.UUID         `json:"bank_account_id"`
	Type                 ledger.BankTxType `json:"type"`
	Amount               decimal.Decimal   `json:"amount"`
	Date                 time.Time         `json:"date"`
	Description          string            `json:"description"`
	DestinationID        *uuid.UUID        `json:"destination_id,omitempty"`
	CounterpartAccountID *uuid.UUID        `json:"counterpart_account_id,omitempty"`
}

type bankTxResponse struct {
	ID            uuid.UUID           `json:"id"`
	BankAccountID uuid.UUID           `json:"bank_account_id"`
	Type          ledger.BankTxType   `json:"type"`
	Amount        decimal.Decimal     `json:"amount"`
	Date          time.Time           `json:"date"`
	Description   string              `json:"description,omitempty"`
	Status        ledger.BankTxStatus `json:"status"`
	DestinationID *uuid.UUID          `json:"destination_id,omitempty"`
	PairID        *uuid.UUID          `json:"pair_id,omitempty"`
	JournalEntryID *uuid.UUID         `json:"journal_entry_id,omitempty"`
}

func toBankTxResponse(t ledger.BankTransaction) bankTxResponse {
	return bankTxResponse{
		ID: t.ID, BankAccountID: t.BankAccountID, Type: t.Type, Amount: t.Amount,
		Date: t.Date, Description: t.Description, Status: t.Status,
		DestinationID: t.DestinationID, PairID: t.PairID, JournalEntryID: t.JournalEntryID,
	}
}

type reconcileRequest struct {
	CompanyID      uuid.UUID       `json:"company_id"`
	BankAccountID  uuid.UUID       `json:"bank_account_id"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	BalancePerBank decimal.Decimal `json:"balance_per_bank"`
	TransactionIDs []uuid.UUID     `json:"transaction_ids"`
	Notes          string          `json:"notes"`
}

type reconciliationResponse struct {
	ID              uuid.UUID                   `json:"id"`
	BankAccountID   uuid.UUID                   `json:"bank_account_id"`
	PeriodStart     time.Time                   `json:"period_start"`
	PeriodEnd       time.Time                   `json:"period_end"`
	BalancePerBooks decimal.Decimal             `json:"balance_per_books"`
	BalancePerBank  decimal.Decimal             `json:"balance_per_bank"`
	Difference      decimal.Decimal             `json:"difference"`
	TransactionIDs  []uuid.UUID                 `json:"transaction_ids"`
	Notes           string                      `json:"notes,omitempty"`
	Status          ledger.ReconciliationStatus `json:"status"`
}

func toReconciliationResponse(rec ledger.BankReconciliation) reconciliationResponse {
	return reconciliationResponse{
		ID: rec.ID, BankAccountID: rec.BankAccountID,
		PeriodStart: rec.PeriodStart, PeriodEnd: rec.PeriodEnd,
		BalancePerBooks: rec.BalancePerBooks, BalancePerBank: rec.BalancePerBank,
		Difference: rec.Difference, TransactionIDs: rec.TransactionIDs,
		Notes: rec.Notes, Status: rec.Status,
	}
}

// Aging

type agingRowResponse struct {
	CounterpartyID uuid.UUID       `json:"counterparty_id"`
	Name           string          `json:"name"`
	Current        decimal.Decimal `json:"current"`
	Days1To30      decimal.Decimal `json:"days_1_30"`
	Days31To60     decimal.Decimal `json:"days_31_60"`
	Days61To90     decimal.Decimal `json:"days_61_90"`
	Over90         decimal.Decimal `json:"over_90"`
	Total          decimal.Decimal `json:"total"`
}

func toAgingResponse(rows []payments.AgingRow) []agingRowResponse {
	out := make([]agingRowResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, agingRowResponse{
			CounterpartyID: r.CounterpartyID, Name: r.Name, Current: r.Current,
			Days1To30: r.Days1to30, Days31To60: r.Days31to60,
			Days61To90: r.Days61to90, Over90: r.Over90, Total: r.Total,
		})
	}
	return out
}
