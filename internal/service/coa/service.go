// Package coa implements the chart of accounts rules: dot-hierarchical
// codes unique per company, group accounts that aggregate but never
// receive postings, soft deactivation, and hard deletion only for
// accounts no journal line ever touched.
package coa

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
	ListAccounts(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error)
	GetAccount(ctx context.Context, companyID, accountID uuid.UUID) (ledger.Account, error)
	AccountHasLines(ctx context.Context, companyID, accountID uuid.UUID) (bool, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	DeleteAccount(ctx context.Context, companyID, accountID uuid.UUID) error
	// CreateAccountsBatch persists all accounts or none.
	CreateAccountsBatch(ctx context.Context, accounts []ledger.Account) error
}

// Service exposes chart of accounts management.
type Service interface {
	ValidateCreate(a ledger.Account) error
	Create(ctx context.Context, a ledger.Account) (ledger.Account, error)
	List(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error)
	Get(ctx context.Context, companyID, accountID uuid.UUID) (ledger.Account, error)
	Update(ctx context.Context, a ledger.Account) (ledger.Account, error)
	Deactivate(ctx context.Context, companyID, accountID uuid.UUID) error
	Delete(ctx context.Context, companyID, accountID uuid.UUID) error
	BulkImport(ctx context.Context, companyID uuid.UUID, specs []TemplateAccount) ([]ledger.Account, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) ValidateCreate(a ledger.Account) error {
	if a.CompanyID == uuid.Nil {
		return errs.ErrInvalid
	}
	if a.Name == "" {
		return errors.New("name is required")
	}
	if !ledger.ValidAccountCode(a.Code) {
		return errors.New("invalid account code")
	}
	if !a.Type.Valid() {
		return errors.New("invalid account type")
	}
	return nil
}

func (s *service) Create(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if err := s.ValidateCreate(a); err != nil {
		return ledger.Account{}, err
	}
	existing, err := s.repo.ListAccounts(ctx, a.CompanyID)
	if err != nil {
		return ledger.Account{}, err
	}
	byCode := make(map[string]ledger.Account, len(existing))
	for _, other := range existing {
		byCode[other.Code] = other
	}
	if _, ok := byCode[a.Code]; ok {
		return ledger.Account{}, errs.ErrCodeExists
	}
	if err := s.resolveParent(&a, byCode); err != nil {
		return ledger.Account{}, err
	}
	a.ID = uuid.New()
	a.Active = true
	return s.writer.CreateAccount(ctx, a)
}

// resolveParent validates the explicit parent reference, or derives one
// from the code's dot prefix. Ancestors of nested codes must exist and
// aggregate; top-level codes have no parent.
func (s *service) resolveParent(a *ledger.Account, byCode map[string]ledger.Account) error {
	if a.ParentID != nil {
		var parent *ledger.Account
		for _, other := range byCode {
			if other.ID == *a.ParentID {
				p := other
				parent = &p
				break
			}
		}
		if parent == nil {
			return errs.ErrNotFound
		}
		if !parent.IsGroup {
			return errors.New("parent must be a group account")
		}
		if !strings.HasPrefix(a.Code, parent.Code+".") {
			return errors.New("code must extend the parent code")
		}
		return nil
	}
	pc := a.ParentCode()
	if pc == "" {
		return nil
	}
	parent, ok := byCode[pc]
	if !ok {
		return errors.New("ancestor account " + pc + " does not exist")
	}
	if !parent.IsGroup {
		return errors.New("ancestor account " + pc + " is not a group")
	}
	id := parent.ID
	a.ParentID = &id
	return nil
}

func (s *service) List(ctx context.Context, companyID uuid.UUID) ([]ledger.Account, error) {
	if companyID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListAccounts(ctx, companyID)
}

func (s *service) Get(ctx context.Context, companyID, accountID uuid.UUID) (ledger.Account, error) {
	if companyID == uuid.Nil || accountID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	return s.repo.GetAccount(ctx, companyID, accountID)
}

// Update applies allowed changes. Code and group status are immutable
// once the account has postings; type is always immutable.
func (s *service) Update(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	if a.CompanyID == uuid.Nil || a.ID == uuid.Nil {
		return ledger.Account{}, errs.ErrInvalid
	}
	current, err := s.repo.GetAccount(ctx, a.CompanyID, a.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	if current.Type != a.Type {
		return ledger.Account{}, errs.ErrImmutable
	}
	if current.Code != a.Code || current.IsGroup != a.IsGroup {
		used, err := s.repo.AccountHasLines(ctx, a.CompanyID, a.ID)
		if err != nil {
			return ledger.Account{}, err
		}
		if used {
			return ledger.Account{}, errs.ErrImmutable
		}
	}
	if current.Code != a.Code {
		if !ledger.ValidAccountCode(a.Code) {
			return ledger.Account{}, errors.New("invalid account code")
		}
		existing, err := s.repo.ListAccounts(ctx, a.CompanyID)
		if err != nil {
			return ledger.Account{}, err
		}
		for _, other := range existing {
			if other.ID != a.ID && other.Code == a.Code {
				return ledger.Account{}, errs.ErrCodeExists
			}
		}
	}
	return s.writer.UpdateAccount(ctx, a)
}

// Deactivate sets Active=false (soft delete).
func (s *service) Deactivate(ctx context.Context, companyID, accountID uuid.UUID) error {
	if companyID == uuid.Nil || accountID == uuid.Nil {
		return errs.ErrInvalid
	}
	a, err := s.repo.GetAccount(ctx, companyID, accountID)
	if err != nil {
		return err
	}
	a.Active = false
	_, err = s.writer.UpdateAccount(ctx, a)
	return err
}

// Delete removes an account that never received a posting. Any journal
// line reference, including lines of cancelled entries, blocks deletion.
func (s *service) Delete(ctx context.Context, companyID, accountID uuid.UUID) error {
	if companyID == uuid.Nil || accountID == uuid.Nil {
		return errs.ErrInvalid
	}
	if _, err := s.repo.GetAccount(ctx, companyID, accountID); err != nil {
		return err
	}
	used, err := s.repo.AccountHasLines(ctx, companyID, accountID)
	if err != nil {
		return err
	}
	if used {
		return errs.ErrAccountInUse
	}
	return s.writer.DeleteAccount(ctx, companyID, accountID)
}

// BulkImport inserts a chart template atomically. Any code collision
// with existing accounts, or within the template, fails the whole import.
func (s *service) BulkImport(ctx context.Context, companyID uuid.UUID, specs []TemplateAccount) ([]ledger.Account, error) {
	if companyID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	if len(specs) == 0 {
		specs = StandardChart
	}
	existing, err := s.repo.ListAccounts(ctx, companyID)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]ledger.Account, len(existing)+len(specs))
	for _, a := range existing {
		byCode[a.Code] = a
	}
	accounts := make([]ledger.Account, 0, len(specs))
	for _, spec := range specs {
		a := ledger.Account{
			ID:        uuid.New(),
			CompanyID: companyID,
			Code:      spec.Code,
			Name:      spec.Name,
			Type:      spec.Type,
			IsGroup:   spec.IsGroup,
			Active:    true,
		}
		if err := s.ValidateCreate(a); err != nil {
			return nil, err
		}
		if _, ok := byCode[a.Code]; ok {
			return nil, errs.ErrCodeExists
		}
		if err := s.resolveParent(&a, byCode); err != nil {
			return nil, err
		}
		byCode[a.Code] = a
		accounts = append(accounts, a)
	}
	if err := s.writer.CreateAccountsBatch(ctx, accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}
