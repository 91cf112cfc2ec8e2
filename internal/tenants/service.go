package tenants

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/enums"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/types"
)

var subdomainRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

type productLister interface {
	ListByTenantWithTx(tx *gorm.DB, tenantID uuid.UUID) ([]models.Product, error)
}

type branchStockCreator interface {
	CreateRowWithTx(tx *gorm.DB, row *models.BranchStock) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes tenant hierarchy operations.
type Service interface {
	RegisterOrganization(ctx context.Context, input RegisterOrganizationInput) (*TenantDTO, error)
	CreateBranch(ctx context.Context, organizationID uuid.UUID, input CreateBranchInput) (*TenantDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*TenantDTO, error)
	ListBranches(ctx context.Context, organizationID uuid.UUID) ([]TenantDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateTenantInput) (*TenantDTO, error)
	Deactivate(ctx context.Context, organizationID, branchID uuid.UUID) error
	UpdateLogoKey(ctx context.Context, id uuid.UUID, key string) error
	ResolveLocation(ctx context.Context, organizationID uuid.UUID, loc types.Location) (*models.Tenant, error)
}

// ServiceParams groups dependencies for the tenant service.
type ServiceParams struct {
	Repo        *Repository
	Products    productLister
	BranchStock branchStockCreator
	TxRunner    txRunner
	TrialDays   int
	Now         func() time.Time
}

// RegisterOrganizationInput captures a new organization signup.
type RegisterOrganizationInput struct {
	Name      string
	Subdomain string
	Email     string
	Phone     *string
	Address   *string
}

// CreateBranchInput captures a new branch under an organization.
type CreateBranchInput struct {
	Name      string
	Subdomain string
	Email     *string
	Phone     *string
	Address   *string
}

// UpdateTenantInput captures the mutable tenant fields.
type UpdateTenantInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

type service struct {
	repo        *Repository
	products    productLister
	branchStock branchStockCreator
	txRunner    txRunner
	trialDays   int
	now         func() time.Time
}

// NewService builds a tenant service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("tenant repo required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repo required")
	}
	if params.BranchStock == nil {
		return nil, fmt.Errorf("branch stock repo required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.TrialDays <= 0 {
		return nil, fmt.Errorf("trial days must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		products:    params.Products,
		branchStock: params.BranchStock,
		txRunner:    params.TxRunner,
		trialDays:   params.TrialDays,
		now:         now,
	}, nil
}

// NewOrganization validates the input and builds a hierarchy root on
// a free trial, without persisting it. Callers that need to create the
// organization inside a wider transaction use this directly.
func NewOrganization(input RegisterOrganizationInput, now time.Time, trialDays int) (*models.Tenant, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization name is required")
	}
	subdomain, err := NormalizeSubdomain(input.Subdomain)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid email is required")
	}

	trialEnd := now.UTC().AddDate(0, 0, trialDays)
	return &models.Tenant{
		ID:                 uuid.New(),
		Name:               name,
		Subdomain:          subdomain,
		Email:              &email,
		Phone:              input.Phone,
		Address:            input.Address,
		BillingCycle:       enums.BillingCycleMonthly,
		SubscriptionStatus: enums.SubscriptionStatusTrial,
		TrialEndsAt:        &trialEnd,
		IsActive:           true,
	}, nil
}

// RegisterOrganization creates a hierarchy root on a free trial.
func (s *service) RegisterOrganization(ctx context.Context, input RegisterOrganizationInput) (*TenantDTO, error) {
	tenant, err := NewOrganization(input, s.now(), s.trialDays)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSubdomainFree(ctx, tenant.Subdomain); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tenant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create organization")
	}
	return FromModel(tenant), nil
}

// CreateBranch adds a branch under the organization and fans the whole
// catalog out to it at quantity zero, in one transaction.
func (s *service) CreateBranch(ctx context.Context, organizationID uuid.UUID, input CreateBranchInput) (*TenantDTO, error) {
	org, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch name is required")
	}
	subdomain, err := NormalizeSubdomain(input.Subdomain)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSubdomainFree(ctx, subdomain); err != nil {
		return nil, err
	}

	branch := &models.Tenant{
		ID:                 uuid.New(),
		ParentTenantID:     &org.ID,
		Name:               name,
		Subdomain:          subdomain,
		Email:              input.Email,
		Phone:              input.Phone,
		Address:            input.Address,
		BillingCycle:       org.BillingCycle,
		SubscriptionStatus: org.SubscriptionStatus,
		IsActive:           true,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateWithTx(tx, branch); err != nil {
			return err
		}
		products, err := s.products.ListByTenantWithTx(tx, org.ID)
		if err != nil {
			return err
		}
		for i := range products {
			row := &models.BranchStock{
				ID:        uuid.New(),
				TenantID:  branch.ID,
				ProductID: products[i].ID,
				Quantity:  0,
			}
			if err := s.branchStock.CreateRowWithTx(tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create branch")
	}
	return FromModel(branch), nil
}

// GetByID loads one tenant.
func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	return FromModel(tenant), nil
}

// ListBranches returns the organization's branches.
func (s *service) ListBranches(ctx context.Context, organizationID uuid.UUID) ([]TenantDTO, error) {
	if _, err := s.loadOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	branches, err := s.repo.ListBranches(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list branches")
	}
	return FromModels(branches), nil
}

// Update mutates contact fields on a tenant.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateTenantInput) (*TenantDTO, error) {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		tenant.Name = name
	}
	if input.Email != nil {
		tenant.Email = input.Email
	}
	if input.Phone != nil {
		tenant.Phone = input.Phone
	}
	if input.Address != nil {
		tenant.Address = input.Address
	}

	if err := s.repo.Update(ctx, tenant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tenant")
	}
	return FromModel(tenant), nil
}

// Deactivate soft-disables a branch. The organization root cannot be
// deactivated through this path.
func (s *service) Deactivate(ctx context.Context, organizationID, branchID uuid.UUID) error {
	org, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return err
	}
	branch, err := s.repo.FindByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load branch")
	}
	if branch.ParentTenantID == nil || *branch.ParentTenantID != org.ID {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant is not a branch of this organization")
	}
	if !branch.IsActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "branch is already deactivated")
	}

	now := s.now().UTC()
	branch.IsActive = false
	branch.DeactivatedAt = &now
	if err := s.repo.Update(ctx, branch); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate branch")
	}
	return nil
}

// UpdateLogoKey stores the object key of an uploaded logo.
func (s *service) UpdateLogoKey(ctx context.Context, id uuid.UUID, key string) error {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		tenant.LogoKey = nil
	} else {
		tenant.LogoKey = &key
	}
	if err := s.repo.Update(ctx, tenant); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tenant")
	}
	return nil
}

// ResolveLocation maps a location selector onto a concrete tenant:
// the organization itself for the main location, or a verified branch.
func (s *service) ResolveLocation(ctx context.Context, organizationID uuid.UUID, loc types.Location) (*models.Tenant, error) {
	if err := loc.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid location")
	}
	org, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if !loc.IsBranch() {
		return org, nil
	}

	branch, err := s.repo.FindByID(ctx, *loc.BranchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load branch")
	}
	if branch.ParentTenantID == nil || *branch.ParentTenantID != org.ID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch does not belong to this organization")
	}
	if !branch.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "branch is deactivated")
	}
	return branch, nil
}

func (s *service) loadOrganization(ctx context.Context, organizationID uuid.UUID) (*models.Tenant, error) {
	if organizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	org, err := s.repo.FindByID(ctx, organizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	if !org.IsOrganization() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant is not an organization root")
	}
	return org, nil
}

func (s *service) ensureSubdomainFree(ctx context.Context, subdomain string) error {
	_, err := s.repo.FindBySubdomain(ctx, subdomain)
	if err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("subdomain %q is taken", subdomain))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check subdomain")
	}
	return nil
}

// NormalizeSubdomain lowercases and validates a subdomain label.
func NormalizeSubdomain(raw string) (string, error) {
	subdomain := strings.ToLower(strings.TrimSpace(raw))
	if !subdomainRe.MatchString(subdomain) {
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			"subdomain must be 3-63 lowercase letters, digits, or hyphens")
	}
	return subdomain, nil
}
