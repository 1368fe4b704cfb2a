package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"log/slog"

	"github.com/jrivasm/contably/internal/httpapi"
	"github.com/jrivasm/contably/internal/ledger"
	"github.com/jrivasm/contably/internal/service/coa"
	"github.com/jrivasm/contably/internal/storage/memory"
	pgstore "github.com/jrivasm/contably/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	var srv *httpapi.Server
	var closeFn func()

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = pg.Close
		srv = httpapi.New(pg, logger)
		srv.SetReadiness(pg.Ready)
		logger.Info("storage backend: postgres")
	} else {
		store := memory.New()
		if devSeedEnabled() {
			seedDev(store, logger)
		}
		srv = httpapi.New(store, logger)
		logger.Info("storage backend: memory")
	}

	addr := strings.TrimSpace(os.Getenv("ADDR"))
	if addr == "" {
		addr = ":8080"
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("accounting service listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

func devSeedEnabled() bool {
	dev := strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED")))
	return dev == "1" || dev == "true" || dev == "yes"
}

// seedDev loads a company with the standard chart, a posting profile,
// and one counterparty on each side for quick local testing.
func seedDev(store *memory.Store, l *slog.Logger) {
	company := ledger.Company{ID: uuid.New(), Name: "Demo Trading C.A.", TaxID: "J-12345678-9", Currency: "USD", Active: true}
	store.SeedCompany(company)

	byCode := make(map[string]uuid.UUID, len(coa.StandardChart))
	for _, spec := range coa.StandardChart {
		a := ledger.Account{
			ID:        uuid.New(),
			CompanyID: company.ID,
			Code:      spec.Code,
			Name:      spec.Name,
			Type:      spec.Type,
			IsGroup:   spec.IsGroup,
			Active:    true,
		}
		if parent := ledger.ParentCode(spec.Code); parent != "" {
			if pid, ok := byCode[parent]; ok {
				id := pid
				a.ParentID = &id
			}
		}
		byCode[spec.Code] = a.ID
		store.SeedAccount(a)
	}
	store.SetPostingProfile(ledger.PostingProfile{
		CompanyID:            company.ID,
		ReceivableAccountID:  byCode["1.2.01"],
		SalesAccountID:       byCode["4.1"],
		SalesTaxAccountID:    byCode["2.3"],
		PayableAccountID:     byCode["2.1"],
		PurchasesAccountID:   byCode["5.1"],
		PurchaseTaxAccountID: byCode["1.2.02"],
	})

	customer := ledger.Customer{ID: uuid.New(), CompanyID: company.ID, Name: "Acme Retail", TaxID: "J-98765432-1", Active: true}
	supplier := ledger.Supplier{ID: uuid.New(), CompanyID: company.ID, Name: "Global Supplies", TaxID: "J-11223344-5", Active: true}
	store.SeedCustomer(customer)
	store.SeedSupplier(supplier)

	l.Info("DEV seed (memory)",
		"company_id", company.ID.String(),
		"customer_id", customer.ID.String(),
		"supplier_id", supplier.ID.String(),
	)
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("company_id: %s\n", company.ID.String())
	fmt.Printf("customer_id: %s\n", customer.ID.String())
	fmt.Printf("supplier_id: %s\n", supplier.ID.String())
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
