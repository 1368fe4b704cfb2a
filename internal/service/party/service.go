// Package party maintains the customer and supplier master records
// documents reference by id.
package party

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jrivasm/contably/internal/errs"
	"github.com/jrivasm/contably/internal/ledger"
)

// Repo defines read operations needed by the service.
type Repo interface {
	CustomerByID(ctx context.Context, companyID, customerID uuid.UUID) (ledger.Customer, error)
	CustomersByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Customer, error)
	SupplierByID(ctx context.Context, companyID, supplierID uuid.UUID) (ledger.Supplier, error)
	SuppliersByCompany(ctx context.Context, companyID uuid.UUID) ([]ledger.Supplier, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateCustomer(ctx context.Context, c ledger.Customer) (ledger.Customer, error)
	UpdateCustomer(ctx context.Context, c ledger.Customer) (ledger.Customer, error)
	CreateSupplier(ctx context.Context, s ledger.Supplier) (ledger.Supplier, error)
	UpdateSupplier(ctx context.Context, s ledger.Supplier) (ledger.Supplier, error)
}

// Service exposes counterparty management.
type Service interface {
	CreateCustomer(ctx context.Context, c ledger.Customer) (ledger.Customer, error)
	UpdateCustomer(ctx context.Context, c ledger.Customer) (ledger.Customer, error)
	ListCustomers(ctx context.Context, companyID uuid.UUID) ([]ledger.Customer, error)
	GetCustomer(ctx context.Context, companyID, customerID uuid.UUID) (ledger.Customer, error)
	CreateSupplier(ctx context.Context, s ledger.Supplier) (ledger.Supplier, error)
	UpdateSupplier(ctx context.Context, s ledger.Supplier) (ledger.Supplier, error)
	ListSuppliers(ctx context.Context, companyID uuid.UUID) ([]ledger.Supplier, error)
	GetSupplier(ctx context.Context, companyID, supplierID uuid.UUID) (ledger.Supplier, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func validateParty(companyID uuid.UUID, taxID, name string) error {
	if companyID == uuid.Nil {
		return errs.ErrInvalid
	}
	if name == "" {
		return errors.New("name is required")
	}
	if !ledger.ValidTaxID(taxID) {
		return errors.New("invalid tax_id format")
	}
	return nil
}

func (s *service) CreateCustomer(ctx context.Context, c ledger.Customer) (ledger.Customer, error) {
	if err := validateParty(c.CompanyID, c.TaxID, c.Name); err != nil {
		return ledger.Customer{}, err
	}
	c.ID = uuid.New()
	c.TaxID = strings.ToUpper(strings.TrimSpace(c.TaxID))
	c.Active = true
	return s.writer.CreateCustomer(ctx, c)
}

func (s *service) UpdateCustomer(ctx context.Context, c ledger.Customer) (ledger.Customer, error) {
	if c.ID == uuid.Nil {
		return ledger.Customer{}, errs.ErrInvalid
	}
	if err := validateParty(c.CompanyID, c.TaxID, c.Name); err != nil {
		return ledger.Customer{}, err
	}
	if _, err := s.repo.CustomerByID(ctx, c.CompanyID, c.ID); err != nil {
		return ledger.Customer{}, err
	}
	c.TaxID = strings.ToUpper(strings.TrimSpace(c.TaxID))
	return s.writer.UpdateCustomer(ctx, c)
}

func (s *service) ListCustomers(ctx context.Context, companyID uuid.UUID) ([]ledger.Customer, error) {
	if companyID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.CustomersByCompany(ctx, companyID)
}

func (s *service) GetCustomer(ctx context.Context, companyID, customerID uuid.UUID) (ledger.Customer, error) {
	if companyID == uuid.Nil || customerID == uuid.Nil {
		return ledger.Customer{}, errs.ErrInvalid
	}
	return s.repo.CustomerByID(ctx, companyID, customerID)
}

func (s *service) CreateSupplier(ctx context.Context, sup ledger.Supplier) (ledger.Supplier, error) {
	if err := validateParty(sup.CompanyID, sup.TaxID, sup.Name); err != nil {
		return ledger.Supplier{}, err
	}
	sup.ID = uuid.New()
	sup.TaxID = strings.ToUpper(strings.TrimSpace(sup.TaxID))
	sup.Active = true
	return s.writer.CreateSupplier(ctx, sup)
}

func (s *service) UpdateSupplier(ctx context.Context, sup ledger.Supplier) (ledger.Supplier, error) {
	if sup.ID == uuid.Nil {
		return ledger.Supplier{}, errs.ErrInvalid
	}
	if err := validateParty(sup.CompanyID, sup.TaxID, sup.Name); err != nil {
		return ledger.Supplier{}, err
	}
	if _, err := s.repo.SupplierByID(ctx, sup.CompanyID, sup.ID); err != nil {
		return ledger.Supplier{}, err
	}
	sup.TaxID = strings.ToUpper(strings.TrimSpace(sup.TaxID))
	return s.writer.UpdateSupplier(ctx, sup)
}

func (s *service) ListSuppliers(ctx context.Context, companyID uuid.UUID) ([]ledger.Supplier, error) {
	if companyID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.SuppliersByCompany(ctx, companyID)
}

func (s *service) GetSupplier(ctx context.Context, companyID, supplierID uuid.UUID) (ledger.Supplier, error) {
	if companyID == uuid.Nil || supplierID == uuid.Nil {
		return ledger.Supplier{}, errs.ErrInvalid
	}
	return s.repo.SupplierByID(ctx, companyID, supplierID)
}
