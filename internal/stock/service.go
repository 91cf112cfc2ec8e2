package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/enums"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/types"
)

type productRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Product, error)
	UpdateWithTx(tx *gorm.DB, product *models.Product) error
	ListByTenantWithTx(tx *gorm.DB, tenantID uuid.UUID) ([]models.Product, error)
	ListActiveByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error)
}

type locationResolver interface {
	ResolveLocation(ctx context.Context, organizationID uuid.UUID, loc types.Location) (*models.Tenant, error)
}

type branchLister interface {
	ListBranchesWithTx(tx *gorm.DB, organizationID uuid.UUID) ([]models.Tenant, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes stock level and movement operations across the
// organization's locations.
type Service interface {
	Adjust(ctx context.Context, organizationID uuid.UUID, input AdjustInput) (*MovementDTO, error)
	Reconcile(ctx context.Context, organizationID uuid.UUID) (int, error)
	Levels(ctx context.Context, organizationID uuid.UUID, loc types.Location) ([]LevelDTO, error)
	SetPriceOverride(ctx context.Context, organizationID, branchID, productID uuid.UUID, overrideKobo *int64) error
	ListMovements(ctx context.Context, organizationID, productID uuid.UUID) ([]MovementDTO, error)
}

// ServiceParams groups dependencies for the stock service.
type ServiceParams struct {
	Repo     *Repository
	Products productRepository
	Tenants  locationResolver
	Branches branchLister
	TxRunner txRunner
}

// AdjustInput captures one manual stock mutation. Delta is always
// signed: a receipt adds stock, an adjustment may go either way.
type AdjustInput struct {
	Location  types.Location
	ProductID uuid.UUID
	Type      enums.StockMovementType
	Delta     int
	Note      *string
}

type service struct {
	repo     *Repository
	products productRepository
	tenants  locationResolver
	branches branchLister
	txRunner txRunner
}

// NewService builds a stock service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("stock repo required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repo required")
	}
	if params.Tenants == nil {
		return nil, fmt.Errorf("location resolver required")
	}
	if params.Branches == nil {
		return nil, fmt.Errorf("branch lister required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		products: params.Products,
		tenants:  params.Tenants,
		branches: params.Branches,
		txRunner: params.TxRunner,
	}, nil
}

// Adjust applies a signed delta to one product's quantity at one
// location and records the movement in the same transaction. A
// mutation that would drive the quantity negative is rejected.
func (s *service) Adjust(ctx context.Context, organizationID uuid.UUID, input AdjustInput) (*MovementDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	switch input.Type {
	case enums.StockMovementReceipt:
		if input.Delta <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt delta must be positive")
		}
	case enums.StockMovementAdjustment:
		if input.Delta == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta cannot be zero")
		}
	case enums.StockMovementSale:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale movements are recorded through the sales flow")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid movement type %q", input.Type))
	}

	target, err := s.tenants.ResolveLocation(ctx, organizationID, input.Location)
	if err != nil {
		return nil, err
	}

	movement := &models.StockMovement{
		ID:           uuid.New(),
		TenantID:     organizationID,
		LocationKind: input.Location.Kind,
		ProductID:    input.ProductID,
		Type:         input.Type,
		Delta:        input.Delta,
		Note:         input.Note,
	}
	if input.Location.IsBranch() {
		movement.BranchID = &target.ID
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.products.FindByIDWithTx(tx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return err
		}
		if product.TenantID != organizationID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		if input.Location.IsBranch() {
			row, err := s.repo.FindRowWithTx(tx, target.ID, product.ID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product is not stocked at this branch")
				}
				return err
			}
			next := row.Quantity + input.Delta
			if next < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("adjustment would drive stock negative (%d on hand)", row.Quantity))
			}
			row.Quantity = next
			if err := s.repo.UpdateRowWithTx(tx, row); err != nil {
				return err
			}
		} else {
			next := product.Quantity + input.Delta
			if next < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("adjustment would drive stock negative (%d on hand)", product.Quantity))
			}
			product.Quantity = next
			if err := s.products.UpdateWithTx(tx, product); err != nil {
				return err
			}
		}
		return s.repo.CreateMovementWithTx(tx, movement)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}

	dto := movementFromModel(movement)
	return &dto, nil
}

// Reconcile creates any missing (branch, product) stock rows at
// quantity zero. Existing rows are left untouched, so repeated runs
// are no-ops. Returns the number of rows created.
func (s *service) Reconcile(ctx context.Context, organizationID uuid.UUID) (int, error) {
	if _, err := s.tenants.ResolveLocation(ctx, organizationID, types.MainLocation()); err != nil {
		return 0, err
	}

	created := 0
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		branches, err := s.branches.ListBranchesWithTx(tx, organizationID)
		if err != nil {
			return err
		}
		products, err := s.products.ListByTenantWithTx(tx, organizationID)
		if err != nil {
			return err
		}
		for i := range branches {
			if !branches[i].IsActive {
				continue
			}
			for j := range products {
				_, err := s.repo.FindRowWithTx(tx, branches[i].ID, products[j].ID)
				if err == nil {
					continue
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				row := &models.BranchStock{
					ID:        uuid.New(),
					TenantID:  branches[i].ID,
					ProductID: products[j].ID,
					Quantity:  0,
				}
				if err := s.repo.CreateRowWithTx(tx, row); err != nil {
					return err
				}
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile branch stock")
	}
	return created, nil
}

// Levels returns the stock position of every active product at the
// given location, with branch price overrides applied.
func (s *service) Levels(ctx context.Context, organizationID uuid.UUID, loc types.Location) ([]LevelDTO, error) {
	target, err := s.tenants.ResolveLocation(ctx, organizationID, loc)
	if err != nil {
		return nil, err
	}
	products, err := s.products.ListActiveByTenant(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	if !loc.IsBranch() {
		levels := make([]LevelDTO, 0, len(products))
		for i := range products {
			levels = append(levels, levelFromProduct(&products[i], loc, products[i].Quantity, products[i].SellingPriceKobo))
		}
		return levels, nil
	}

	rows, err := s.repo.ListRowsByBranch(ctx, target.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list branch stock")
	}
	byProduct := make(map[uuid.UUID]*models.BranchStock, len(rows))
	for i := range rows {
		byProduct[rows[i].ProductID] = &rows[i]
	}

	levels := make([]LevelDTO, 0, len(products))
	for i := range products {
		row, ok := byProduct[products[i].ID]
		if !ok {
			continue
		}
		price := products[i].SellingPriceKobo
		if row.OverrideSellingPriceKobo != nil {
			price = *row.OverrideSellingPriceKobo
		}
		levels = append(levels, levelFromProduct(&products[i], loc, row.Quantity, price))
	}
	return levels, nil
}

// SetPriceOverride pins or clears a branch-local selling price for one
// product. A nil override reverts the branch to the catalog price.
func (s *service) SetPriceOverride(ctx context.Context, organizationID, branchID, productID uuid.UUID, overrideKobo *int64) error {
	if overrideKobo != nil && *overrideKobo <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "override price must be positive")
	}
	branch, err := s.tenants.ResolveLocation(ctx, organizationID, types.BranchLocation(branchID))
	if err != nil {
		return err
	}
	row, err := s.repo.FindRow(ctx, branch.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product is not stocked at this branch")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load branch stock")
	}

	row.OverrideSellingPriceKobo = overrideKobo
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.UpdateRowWithTx(tx, row)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update price override")
	}
	return nil
}

// ListMovements returns the movement history for one product, newest
// first, across all of the organization's locations.
func (s *service) ListMovements(ctx context.Context, organizationID, productID uuid.UUID) ([]MovementDTO, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.TenantID != organizationID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	rows, err := s.repo.ListMovements(ctx, organizationID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}
	movements := make([]MovementDTO, 0, len(rows))
	for i := range rows {
		movements = append(movements, movementFromModel(&rows[i]))
	}
	return movements, nil
}

func levelFromProduct(p *models.Product, loc types.Location, quantity int, priceKobo int64) LevelDTO {
	return LevelDTO{
		ProductID:        p.ID,
		Name:             p.Name,
		SKU:              p.SKU,
		Location:         loc,
		Quantity:         quantity,
		SellingPriceKobo: priceKobo,
		ReorderLevel:     p.ReorderLevel,
		LowStock:         quantity <= p.ReorderLevel,
	}
}
