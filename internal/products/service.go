package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/pagination"
)

type branchLister interface {
	ListBranchesWithTx(tx *gorm.DB, organizationID uuid.UUID) ([]models.Tenant, error)
}

type branchStockCreator interface {
	CreateRowWithTx(tx *gorm.DB, row *models.BranchStock) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog operations.
type Service interface {
	Create(ctx context.Context, organizationID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	GetByID(ctx context.Context, organizationID, productID uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, organizationID uuid.UUID, params pagination.Params) ([]ProductDTO, string, error)
	Update(ctx context.Context, organizationID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Deactivate(ctx context.Context, organizationID, productID uuid.UUID) error
	UpdateImageKey(ctx context.Context, organizationID, productID uuid.UUID, key string) error
}

// ServiceParams groups dependencies for the product service.
type ServiceParams struct {
	Repo        *Repository
	Branches    branchLister
	BranchStock branchStockCreator
	TxRunner    txRunner
}

// CreateProductInput captures a new catalog entry.
type CreateProductInput struct {
	Name             string
	SKU              string
	Category         *string
	Unit             *string
	CostPriceKobo    int64
	SellingPriceKobo int64
	Quantity         int
	ReorderLevel     int
}

// UpdateProductInput captures the mutable product fields.
type UpdateProductInput struct {
	Name             *string
	Category         *string
	Unit             *string
	CostPriceKobo    *int64
	SellingPriceKobo *int64
	ReorderLevel     *int
}

type service struct {
	repo        *Repository
	branches    branchLister
	branchStock branchStockCreator
	txRunner    txRunner
}

// NewService builds a product service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repo required")
	}
	if params.Branches == nil {
		return nil, fmt.Errorf("branch lister required")
	}
	if params.BranchStock == nil {
		return nil, fmt.Errorf("branch stock repo required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:        params.Repo,
		branches:    params.Branches,
		branchStock: params.BranchStock,
		txRunner:    params.TxRunner,
	}, nil
}

// Create adds a catalog entry and fans a zero-quantity stock row out to
// every active branch, in one transaction.
func (s *service) Create(ctx context.Context, organizationID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if organizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if input.SellingPriceKobo <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selling price must be positive")
	}
	if input.CostPriceKobo < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost price cannot be negative")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	if _, err := s.repo.FindBySKU(ctx, organizationID, sku); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %q already exists", sku))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check sku")
	}

	product := &models.Product{
		ID:               uuid.New(),
		TenantID:         organizationID,
		Name:             name,
		SKU:              sku,
		Category:         input.Category,
		Unit:             input.Unit,
		CostPriceKobo:    input.CostPriceKobo,
		SellingPriceKobo: input.SellingPriceKobo,
		Quantity:         input.Quantity,
		ReorderLevel:     input.ReorderLevel,
		IsActive:         true,
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateWithTx(tx, product); err != nil {
			return err
		}
		branches, err := s.branches.ListBranchesWithTx(tx, organizationID)
		if err != nil {
			return err
		}
		for i := range branches {
			if !branches[i].IsActive {
				continue
			}
			row := &models.BranchStock{
				ID:        uuid.New(),
				TenantID:  branches[i].ID,
				ProductID: product.ID,
				Quantity:  0,
			}
			if err := s.branchStock.CreateRowWithTx(tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return FromModel(product), nil
}

// GetByID loads one catalog entry scoped to the organization.
func (s *service) GetByID(ctx context.Context, organizationID, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadScoped(ctx, organizationID, productID)
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

// List returns one catalog page.
func (s *service) List(ctx context.Context, organizationID uuid.UUID, params pagination.Params) ([]ProductDTO, string, error) {
	if organizationID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	rows, next, err := s.repo.ListByTenant(ctx, organizationID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return FromModels(rows), next, nil
}

// Update mutates catalog fields. Stock quantities move through the
// stock service, never through here.
func (s *service) Update(ctx context.Context, organizationID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.loadScoped(ctx, organizationID, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Category != nil {
		product.Category = input.Category
	}
	if input.Unit != nil {
		product.Unit = input.Unit
	}
	if input.CostPriceKobo != nil {
		if *input.CostPriceKobo < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost price cannot be negative")
		}
		product.CostPriceKobo = *input.CostPriceKobo
	}
	if input.SellingPriceKobo != nil {
		if *input.SellingPriceKobo <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "selling price must be positive")
		}
		product.SellingPriceKobo = *input.SellingPriceKobo
	}
	if input.ReorderLevel != nil {
		if *input.ReorderLevel < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reorder level cannot be negative")
		}
		product.ReorderLevel = *input.ReorderLevel
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return FromModel(product), nil
}

// Deactivate soft-deletes a catalog entry.
func (s *service) Deactivate(ctx context.Context, organizationID, productID uuid.UUID) error {
	product, err := s.loadScoped(ctx, organizationID, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product is already deactivated")
	}
	product.IsActive = false
	if err := s.repo.Update(ctx, product); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	return nil
}

// UpdateImageKey stores the object key of an uploaded product image.
func (s *service) UpdateImageKey(ctx context.Context, organizationID, productID uuid.UUID, key string) error {
	product, err := s.loadScoped(ctx, organizationID, productID)
	if err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		product.ImageKey = nil
	} else {
		product.ImageKey = &key
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return nil
}

func (s *service) loadScoped(ctx context.Context, organizationID, productID uuid.UUID) (*models.Product, error) {
	if organizationID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id and product id are required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.TenantID != organizationID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}
