package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/enums"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/pagination"
	"github.com/statbricks/mbiz-backend/pkg/types"
)

type productRepository interface {
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Product, error)
	UpdateWithTx(tx *gorm.DB, product *models.Product) error
}

type stockRepository interface {
	FindRowWithTx(tx *gorm.DB, tenantID, productID uuid.UUID) (*models.BranchStock, error)
	UpdateRowWithTx(tx *gorm.DB, row *models.BranchStock) error
	CreateMovementWithTx(tx *gorm.DB, movement *models.StockMovement) error
}

type locationResolver interface {
	ResolveLocation(ctx context.Context, organizationID uuid.UUID, loc types.Location) (*models.Tenant, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service records and reads sales.
type Service interface {
	RecordSale(ctx context.Context, organizationID uuid.UUID, input RecordSaleInput) (*SaleDTO, error)
	GetByID(ctx context.Context, organizationID, saleID uuid.UUID) (*SaleDTO, error)
	List(ctx context.Context, organizationID uuid.UUID, params pagination.Params) ([]SaleDTO, string, error)
}

// ServiceParams groups dependencies for the sales service.
type ServiceParams struct {
	Repo     *Repository
	Products productRepository
	Stock    stockRepository
	Tenants  locationResolver
	TxRunner txRunner
}

// RecordSaleInput captures one checkout.
type RecordSaleInput struct {
	Location       types.Location
	Items          []SaleItemInput
	AmountPaidKobo int64
	CustomerName   *string
}

// SaleItemInput is one requested product line.
type SaleItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type service struct {
	repo     *Repository
	products productRepository
	stock    stockRepository
	tenants  locationResolver
	txRunner txRunner
}

// NewService builds a sales service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("sales repo required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repo required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock repo required")
	}
	if params.Tenants == nil {
		return nil, fmt.Errorf("location resolver required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		stock:    params.Stock,
		tenants:  params.Tenants,
		txRunner: params.TxRunner,
	}, nil
}

// RecordSale checks and decrements stock for every line, appends sale
// movements, and persists the sale, all in one transaction. Unit
// prices come from the catalog, with branch overrides applied. A line
// that would oversell the location fails the whole sale.
func (s *service) RecordSale(ctx context.Context, organizationID uuid.UUID, input RecordSaleInput) (*SaleDTO, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale requires at least one item")
	}
	if input.AmountPaidKobo < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount paid cannot be negative")
	}
	seen := make(map[uuid.UUID]bool, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id is required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if seen[item.ProductID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in sale")
		}
		seen[item.ProductID] = true
	}

	target, err := s.tenants.ResolveLocation(ctx, organizationID, input.Location)
	if err != nil {
		return nil, err
	}

	sale := &models.Sale{
		ID:             uuid.New(),
		TenantID:       organizationID,
		LocationKind:   input.Location.Kind,
		AmountPaidKobo: input.AmountPaidKobo,
		CustomerName:   input.CustomerName,
	}
	if input.Location.IsBranch() {
		sale.BranchID = &target.ID
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		var total int64
		for _, item := range input.Items {
			product, err := s.products.FindByIDWithTx(tx, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
				}
				return err
			}
			if product.TenantID != organizationID {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			if !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("product %s is no longer sold", product.SKU))
			}

			price := product.SellingPriceKobo
			if input.Location.IsBranch() {
				row, err := s.stock.FindRowWithTx(tx, target.ID, product.ID)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return pkgerrors.New(pkgerrors.CodeNotFound,
							fmt.Sprintf("product %s is not stocked at this branch", product.SKU))
					}
					return err
				}
				if row.Quantity < item.Quantity {
					return pkgerrors.New(pkgerrors.CodeStateConflict,
						fmt.Sprintf("insufficient stock for %s (%d on hand)", product.SKU, row.Quantity))
				}
				if row.OverrideSellingPriceKobo != nil {
					price = *row.OverrideSellingPriceKobo
				}
				row.Quantity -= item.Quantity
				if err := s.stock.UpdateRowWithTx(tx, row); err != nil {
					return err
				}
			} else {
				if product.Quantity < item.Quantity {
					return pkgerrors.New(pkgerrors.CodeStateConflict,
						fmt.Sprintf("insufficient stock for %s (%d on hand)", product.SKU, product.Quantity))
				}
				product.Quantity -= item.Quantity
				if err := s.products.UpdateWithTx(tx, product); err != nil {
					return err
				}
			}

			movement := &models.StockMovement{
				ID:           uuid.New(),
				TenantID:     organizationID,
				LocationKind: input.Location.Kind,
				BranchID:     sale.BranchID,
				ProductID:    product.ID,
				Type:         enums.StockMovementSale,
				Delta:        -item.Quantity,
			}
			if err := s.stock.CreateMovementWithTx(tx, movement); err != nil {
				return err
			}

			sale.Items = append(sale.Items, models.SaleItem{
				ID:            uuid.New(),
				SaleID:        sale.ID,
				ProductID:     product.ID,
				Quantity:      item.Quantity,
				UnitPriceKobo: price,
			})
			total += price * int64(item.Quantity)
		}

		if input.AmountPaidKobo > total {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount paid exceeds sale total")
		}
		sale.TotalKobo = total
		return s.repo.CreateWithTx(tx, sale)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale")
	}
	return FromModel(sale), nil
}

// GetByID loads one sale scoped to the organization.
func (s *service) GetByID(ctx context.Context, organizationID, saleID uuid.UUID) (*SaleDTO, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	sale, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	if sale.TenantID != organizationID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	return FromModel(sale), nil
}

// List returns one page of sales, newest first.
func (s *service) List(ctx context.Context, organizationID uuid.UUID, params pagination.Params) ([]SaleDTO, string, error) {
	rows, next, err := s.repo.ListByTenant(ctx, organizationID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	return FromModels(rows), next, nil
}
