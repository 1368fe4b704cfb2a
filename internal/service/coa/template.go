package coa

import "github.com/jrivasm/contably/internal/ledger"

// TemplateAccount is one row of a chart template. Parents must precede
// their children so the import can resolve the hierarchy in one pass.
type TemplateAccount struct {
	Code    string
	Name    string
	Type    ledger.AccountType
	IsGroup bool
}

// StandardChart is the default chart of accounts installed for a new
// company when BulkImport receives no template.
var StandardChart = []TemplateAccount{
	{Code: "1", Name: "Assets", Type: ledger.AccountTypeAsset, IsGroup: true},
	{Code: "1.1", Name: "Current Assets", Type: ledger.AccountTypeAsset, IsGroup: true},
	{Code: "1.1.01", Name: "Cash", Type: ledger.AccountTypeAsset},
	{Code: "1.1.02", Name: "Banks", Type: ledger.AccountTypeAsset},
	{Code: "1.2", Name: "Receivables", Type: ledger.AccountTypeAsset, IsGroup: true},
	{Code: "1.2.01", Name: "Accounts Receivable", Type: ledger.AccountTypeAsset},
	{Code: "1.2.02", Name: "Tax Credits", Type: ledger.AccountTypeAsset},
	{Code: "1.3", Name: "Fixed Assets", Type: ledger.AccountTypeAsset, IsGroup: true},
	{Code: "1.3.01", Name: "Equipment", Type: ledger.AccountTypeAsset},
	{Code: "2", Name: "Liabilities", Type: ledger.AccountTypeLiability, IsGroup: true},
	{Code: "2.1", Name: "Accounts Payable", Type: ledger.AccountTypeLiability},
	{Code: "2.2", Name: "Loans Payable", Type: ledger.AccountTypeLiability},
	{Code: "2.3", Name: "Tax Payable", Type: ledger.AccountTypeLiability},
	{Code: "3", Name: "Equity", Type: ledger.AccountTypeEquity, IsGroup: true},
	{Code: "3.1", Name: "Capital", Type: ledger.AccountTypeEquity},
	{Code: "3.2", Name: "Retained Earnings", Type: ledger.AccountTypeEquity},
	{Code: "4", Name: "Income", Type: ledger.AccountTypeIncome, IsGroup: true},
	{Code: "4.1", Name: "Sales", Type: ledger.AccountTypeIncome},
	{Code: "4.2", Name: "Other Income", Type: ledger.AccountTypeIncome},
	{Code: "5", Name: "Expenses", Type: ledger.AccountTypeExpense, IsGroup: true},
	{Code: "5.1", Name: "Purchases", Type: ledger.AccountTypeExpense},
	{Code: "5.2", Name: "Salaries", Type: ledger.AccountTypeExpense},
	{Code: "5.3", Name: "Rent", Type: ledger.AccountTypeExpense},
	{Code: "5.4", Name: "Services", Type: ledger.AccountTypeExpense},
}
