// Package httpapi wires the HTTP surface of the accounting engine.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"context"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"log/slog"

	"github.com/jrivasm/contably/internal/service/banking"
	"github.com/jrivasm/contably/internal/service/coa"
	"github.com/jrivasm/contably/internal/service/journal"
	"github.com/jrivasm/contably/internal/service/party"
	"github.com/jrivasm/contably/internal/service/payments"
	"github.com/jrivasm/contably/internal/service/purchases"
	"github.com/jrivasm/contably/internal/service/sales"
	"github.com/jrivasm/contably/internal/service/sequence"
)

// Server wires handlers and middleware using Chi. It composes the
// service layer around a single Store implementation.
type Server struct {
	store     Store
	coaSvc    coa.Service
	jnlSvc    journal.Service
	partySvc  party.Service
	salesSvc  sales.Service
	purchSvc  purchases.Service
	paySvc    payments.Service
	bankSvc   banking.Service
	readiness func(context.Context) error
	log       *slog.Logger
	rt        *chi.Mux
}

// New constructs the HTTP server with routes and middleware. The logger
// is used by request/response logging and panic recovery.
func New(store Store, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	jnlSvc := journal.New(store, store)
	seqSvc := sequence.New(store)
	s := &Server{
		store:    store,
		coaSvc:   coa.New(store, store),
		jnlSvc:   jnlSvc,
		partySvc: party.New(store, store),
		salesSvc: sales.New(store, store, seqSvc, jnlSvc),
		purchSvc: purchases.New(store, store, jnlSvc),
		paySvc:   payments.New(store, store, jnlSvc),
		bankSvc:  banking.New(store, store, jnlSvc),
		log:      logger,
		rt:       r,
	}
	s.routes()
	return s
}

// SetReadiness installs a readiness probe, typically the postgres ping.
func (s *Server) SetReadiness(fn func(context.Context) error) { s.readiness = fn }

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints.
func (s *Server) routes() {
	// Chart of accounts
	s.rt.Post("/v1/accounts", s.postAccount)
	s.rt.Get("/v1/accounts", s.listAccounts)
	s.rt.Get("/v1/accounts/{id}", s.getAccount)
	s.rt.Patch("/v1/accounts/{id}", s.updateAccount)
	s.rt.Delete("/v1/accounts/{id}", s.deleteAccount)
	s.rt.Post("/v1/accounts/import", s.importAccounts)
	// Journal
	s.rt.Post("/v1/entries", s.postEntry)
	s.rt.Get("/v1/entries", s.listEntries)
	s.rt.Get("/v1/entries/{id}", s.getEntry)
	s.rt.Post("/v1/entries/reverse", s.reverseEntry)
	s.rt.Get("/v1/trial-balance", s.trialBalance)
	// Parties
	s.rt.Post("/v1/customers", s.postCustomer)
	s.rt.Get("/v1/customers", s.listCustomers)
	s.rt.Get("/v1/customers/{id}", s.getCustomer)
	s.rt.Patch("/v1/customers/{id}", s.updateCustomer)
	s.rt.Post("/v1/suppliers", s.postSupplier)
	s.rt.Get("/v1/suppliers", s.listSuppliers)
	s.rt.Get("/v1/suppliers/{id}", s.getSupplier)
	s.rt.Patch("/v1/suppliers/{id}", s.updateSupplier)
	// Sales
	s.rt.Post("/v1/invoices", s.postInvoice)
	s.rt.Get("/v1/invoices", s.listInvoices)
	s.rt.Get("/v1/invoices/{id}", s.getInvoice)
	s.rt.Post("/v1/invoices/{id}/lines", s.postInvoiceLine)
	s.rt.Post("/v1/invoices/{id}/issue", s.issueInvoice)
	s.rt.Post("/v1/invoices/{id}/credit-note", s.postCreditNote)
	s.rt.Get("/v1/credit-notes", s.listCreditNotes)
	// Purchases
	s.rt.Post("/v1/bills", s.postBill)
	s.rt.Get("/v1/bills", s.listBills)
	s.rt.Get("/v1/bills/{id}", s.getBill)
	s.rt.Post("/v1/bills/{id}/lines", s.postBillLine)
	s.rt.Post("/v1/bills/{id}/finalize", s.finalizeBill)
	// Payments
	s.rt.Post("/v1/payments", s.postPayment)
	s.rt.Get("/v1/payments", s.listPayments)
	s.rt.Get("/v1/aging", s.aging)
	// Banking
	s.rt.Post("/v1/bank-accounts", s.postBankAccount)
	s.rt.Get("/v1/bank-accounts", s.listBankAccounts)
	s.rt.Patch("/v1/bank-accounts/{id}", s.updateBankAccount)
	s.rt.Delete("/v1/bank-accounts/{id}", s.deleteBankAccount)
	s.rt.Get("/v1/bank-accounts/{id}/transactions", s.listBankTransactions)
	s.rt.Post("/v1/bank-transactions", s.postBankTransaction)
	s.rt.Post("/v1/reconciliations", s.postReconciliation)
	s.rt.Get("/v1/reconciliations", s.listReconciliations)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
