package sales

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/internal/products"
	"github.com/statbricks/mbiz-backend/internal/stock"
	"github.com/statbricks/mbiz-backend/internal/tenants"
	"github.com/statbricks/mbiz-backend/pkg/db"
	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/enums"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/pagination"
	"github.com/statbricks/mbiz-backend/pkg/types"
)

type salesFixture struct {
	conn    *gorm.DB
	svc     Service
	org     *models.Tenant
	branch  *models.Tenant
	product *models.Product
}

func setupSalesFixture(t *testing.T) *salesFixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Tenant{},
		&models.Product{},
		&models.BranchStock{},
		&models.StockMovement{},
		&models.Sale{},
		&models.SaleItem{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	org := &models.Tenant{
		ID:                 uuid.New(),
		Name:               "Acme",
		Subdomain:          "acme",
		BillingCycle:       enums.BillingCycleMonthly,
		SubscriptionStatus: enums.SubscriptionStatusTrial,
		IsActive:           true,
	}
	branch := &models.Tenant{
		ID:                 uuid.New(),
		ParentTenantID:     &org.ID,
		Name:               "Branch",
		Subdomain:          "acme-branch",
		BillingCycle:       org.BillingCycle,
		SubscriptionStatus: org.SubscriptionStatus,
		IsActive:           true,
	}
	product := &models.Product{
		ID:               uuid.New(),
		TenantID:         org.ID,
		Name:             "Bag of Rice",
		SKU:              "RICE-50KG",
		SellingPriceKobo: 7_500_000,
		Quantity:         10,
		IsActive:         true,
	}
	for _, row := range []any{org, branch, product} {
		if err := conn.Create(row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	tenantSvc, err := tenants.NewService(tenants.ServiceParams{
		Repo:        tenants.NewRepository(conn),
		Products:    products.NewRepository(conn),
		BranchStock: stock.NewRepository(conn),
		TxRunner:    db.FromGorm(conn),
		TrialDays:   14,
		Now:         func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("build tenant service: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Products: products.NewRepository(conn),
		Stock:    stock.NewRepository(conn),
		Tenants:  tenantSvc,
		TxRunner: db.FromGorm(conn),
	})
	if err != nil {
		t.Fatalf("build sales service: %v", err)
	}
	return &salesFixture{conn: conn, svc: svc, org: org, branch: branch, product: product}
}

func TestRecordSaleAtMainLocation(t *testing.T) {
	f := setupSalesFixture(t)

	sale, err := f.svc.RecordSale(context.Background(), f.org.ID, RecordSaleInput{
		Location:       types.MainLocation(),
		Items:          []SaleItemInput{{ProductID: f.product.ID, Quantity: 3}},
		AmountPaidKobo: 22_500_000,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if sale.TotalKobo != 22_500_000 {
		t.Fatalf("total %d, want 22500000", sale.TotalKobo)
	}
	if len(sale.Items) != 1 || sale.Items[0].UnitPriceKobo != 7_500_000 {
		t.Fatalf("unexpected items %+v", sale.Items)
	}

	var product models.Product
	if err := f.conn.First(&product, "id = ?", f.product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if product.Quantity != 7 {
		t.Fatalf("quantity %d, want 7 after sale", product.Quantity)
	}

	var movement models.StockMovement
	if err := f.conn.First(&movement, "product_id = ?", f.product.ID).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if movement.Type != enums.StockMovementSale || movement.Delta != -3 {
		t.Fatalf("movement %+v, want sale delta -3", movement)
	}
}

func TestRecordSaleRejectsOversell(t *testing.T) {
	f := setupSalesFixture(t)

	_, err := f.svc.RecordSale(context.Background(), f.org.ID, RecordSaleInput{
		Location: types.MainLocation(),
		Items:    []SaleItemInput{{ProductID: f.product.ID, Quantity: 11}},
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	// The rejected sale leaves no trace.
	var sales, movements int64
	if err := f.conn.Model(&models.Sale{}).Count(&sales).Error; err != nil {
		t.Fatalf("count sales: %v", err)
	}
	if err := f.conn.Model(&models.StockMovement{}).Count(&movements).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if sales != 0 || movements != 0 {
		t.Fatalf("rejected sale persisted rows: sales=%d movements=%d", sales, movements)
	}
	var product models.Product
	if err := f.conn.First(&product, "id = ?", f.product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if product.Quantity != 10 {
		t.Fatalf("quantity mutated to %d on rejected sale", product.Quantity)
	}
}

func TestRecordSaleMultiLineRollsBackAtomically(t *testing.T) {
	f := setupSalesFixture(t)
	second := &models.Product{
		ID:               uuid.New(),
		TenantID:         f.org.ID,
		Name:             "Beans",
		SKU:              "BEANS-25KG",
		SellingPriceKobo: 3_000_000,
		Quantity:         1,
		IsActive:         true,
	}
	if err := f.conn.Create(second).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	// First line would succeed, second oversells: both must roll back.
	_, err := f.svc.RecordSale(context.Background(), f.org.ID, RecordSaleInput{
		Location: types.MainLocation(),
		Items: []SaleItemInput{
			{ProductID: f.product.ID, Quantity: 2},
			{ProductID: second.ID, Quantity: 5},
		},
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var product models.Product
	if err := f.conn.First(&product, "id = ?", f.product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if product.Quantity != 10 {
		t.Fatalf("first line leaked a decrement, quantity %d", product.Quantity)
	}
}

func TestRecordSaleAtBranchUsesOverridePrice(t *testing.T) {
	f := setupSalesFixture(t)
	override := int64(8_000_000)
	row := &models.BranchStock{
		ID:                       uuid.New(),
		TenantID:                 f.branch.ID,
		ProductID:                f.product.ID,
		Quantity:                 5,
		OverrideSellingPriceKobo: &override,
	}
	if err := f.conn.Create(row).Error; err != nil {
		t.Fatalf("seed branch stock: %v", err)
	}

	sale, err := f.svc.RecordSale(context.Background(), f.org.ID, RecordSaleInput{
		Location:       types.BranchLocation(f.branch.ID),
		Items:          []SaleItemInput{{ProductID: f.product.ID, Quantity: 2}},
		AmountPaidKobo: 16_000_000,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if sale.Items[0].UnitPriceKobo != override {
		t.Fatalf("unit price %d, want override %d", sale.Items[0].UnitPriceKobo, override)
	}
	if sale.TotalKobo != 16_000_000 {
		t.Fatalf("total %d, want 16000000", sale.TotalKobo)
	}

	var reloaded models.BranchStock
	if err := f.conn.First(&reloaded, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("reload branch stock: %v", err)
	}
	if reloaded.Quantity != 3 {
		t.Fatalf("branch quantity %d, want 3", reloaded.Quantity)
	}

	// The catalog quantity belongs to the main location and is untouched.
	var product models.Product
	if err := f.conn.First(&product, "id = ?", f.product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if product.Quantity != 10 {
		t.Fatalf("main quantity %d, want 10", product.Quantity)
	}
}

func TestRecordSaleValidation(t *testing.T) {
	f := setupSalesFixture(t)
	ctx := context.Background()

	cases := []RecordSaleInput{
		{Location: types.MainLocation()},
		{Location: types.MainLocation(), Items: []SaleItemInput{{ProductID: f.product.ID, Quantity: 0}}},
		{Location: types.MainLocation(), Items: []SaleItemInput{{ProductID: uuid.Nil, Quantity: 1}}},
		{Location: types.MainLocation(), AmountPaidKobo: -1, Items: []SaleItemInput{{ProductID: f.product.ID, Quantity: 1}}},
		{Location: types.MainLocation(), Items: []SaleItemInput{
			{ProductID: f.product.ID, Quantity: 1},
			{ProductID: f.product.ID, Quantity: 2},
		}},
		{Location: types.MainLocation(), AmountPaidKobo: 100_000_000, Items: []SaleItemInput{{ProductID: f.product.ID, Quantity: 1}}},
	}
	for i, input := range cases {
		_, err := f.svc.RecordSale(ctx, f.org.ID, input)
		domainErr := pkgerrors.As(err)
		if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestListSales(t *testing.T) {
	f := setupSalesFixture(t)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.RecordSale(context.Background(), f.org.ID, RecordSaleInput{
			Location: types.MainLocation(),
			Items:    []SaleItemInput{{ProductID: f.product.ID, Quantity: 1}},
		}); err != nil {
			t.Fatalf("record sale %d: %v", i, err)
		}
	}

	sales, next, err := f.svc.List(context.Background(), f.org.ID, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 3 {
		t.Fatalf("expected 3 sales, got %d", len(sales))
	}
	if next != "" {
		t.Fatalf("unexpected cursor %q", next)
	}
	for _, sale := range sales {
		if len(sale.Items) != 1 {
			t.Fatalf("sale %s items not preloaded: %+v", sale.ID, sale.Items)
		}
	}

	// Foreign organizations see nothing.
	other, _, err := f.svc.List(context.Background(), uuid.New(), pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list foreign: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("foreign org saw %d sales", len(other))
	}
}
