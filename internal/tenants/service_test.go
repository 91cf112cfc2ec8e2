package tenants

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/internal/products"
	"github.com/statbricks/mbiz-backend/internal/stock"
	"github.com/statbricks/mbiz-backend/pkg/db"
	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/enums"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/types"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTenantTestDB(t *testing.T) *gorm.DB {
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
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(conn),
		Products:    products.NewRepository(conn),
		BranchStock: stock.NewRepository(conn),
		TxRunner:    db.FromGorm(conn),
		TrialDays:   14,
		Now:         func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func mustRegisterOrg(t *testing.T, svc Service, subdomain string) *TenantDTO {
	t.Helper()
	org, err := svc.RegisterOrganization(context.Background(), RegisterOrganizationInput{
		Name:      "Acme Traders",
		Subdomain: subdomain,
		Email:     "owner@acme.test",
	})
	if err != nil {
		t.Fatalf("register organization: %v", err)
	}
	return org
}

func TestRegisterOrganizationStartsTrial(t *testing.T) {
	conn := setupTenantTestDB(t)
	svc := newTestService(t, conn)

	org := mustRegisterOrg(t, svc, "acme")

	if org.SubscriptionStatus != enums.SubscriptionStatusTrial {
		t.Fatalf("expected trial status, got %s", org.SubscriptionStatus)
	}
	if org.TrialEndsAt == nil {
		t.Fatal("expected trial end date")
	}
	wantEnd := testNow.AddDate(0, 0, 14)
	if !org.TrialEndsAt.Equal(wantEnd) {
		t.Fatalf("trial ends %v, want %v", org.TrialEndsAt, wantEnd)
	}
	if org.BillingCycle != enums.BillingCycleMonthly {
		t.Fatalf("expected monthly default cycle, got %s", org.BillingCycle)
	}
}

func TestRegisterOrganizationRejectsTakenSubdomain(t *testing.T) {
	conn := setupTenantTestDB(t)
	svc := newTestService(t, conn)

	mustRegisterOrg(t, svc, "acme")
	_, err := svc.RegisterOrganization(context.Background(), RegisterOrganizationInput{
		Name:      "Other Shop",
		Subdomain: "ACME",
		Email:     "other@shop.test",
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterOrganizationRejectsBadSubdomain(t *testing.T) {
	conn := setupTenantTestDB(t)
	svc := newTestService(t, conn)

	for _, bad := range []string{"", "ab", "has space", "-leading", "trailing-"} {
		_, err := svc.RegisterOrganization(context.Background(), RegisterOrganizationInput{
			Name:      "Acme",
			Subdomain: bad,
			Email:     "owner@acme.test",
		})
		domainErr := pkgerrors.As(err)
		if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
			t.Fatalf("subdomain %q: expected validation error, got %v", bad, err)
		}
	}
}

func TestCreateBranchFansOutCatalog(t *testing.T) {
	conn := setupTenantTestDB(t)
	svc := newTestService(t, conn)
	org := mustRegisterOrg(t, svc, "acme")

	for _, sku := range []string{"SKU-1", "SKU-2", "SKU-3"} {
		product := &models.Product{
			ID:               uuid.New(),
			TenantID:         org.ID,
			Name:             sku,
			SKU:              sku,
			SellingPriceKobo: 1000,
			Quantity:         5,
			IsActive:         true,
		}
		if err := conn.Create(product).Error; err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}

	branch, err := svc.CreateBranch(context.Background(), org.ID, CreateBranchInput{
		Name:      "Lagos Island",
		Subdomain: "acme-island",
	})
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}

	var rows []models.BranchStock
	if err := conn.Where("tenant_id = ?", branch.ID).Find(&rows).Error; err != nil {
		t.Fatalf("load branch stock: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 fanned-out rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Quantity != 0 {
			t.Fatalf("fanned-out row must start at zero, got %d", row.Quantity)
		}
	}
}

func TestDeactivateBranch(t *testing.T) {
	conn := setupTenantTestDB(t)
	svc := newTestService(t, conn)
	org := mustRegisterOrg(t, svc, "acme")
	branch, err := svc.CreateBranch(context.Background(), org.ID, CreateBranchInput{
		Name:      "Branch",
		Subdomain: "acme-branch",
	})
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}

	if err := svc.Deactivate(context.Background(), org.ID, branch.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	err = svc.Deactivate(context.Background(), org.ID, branch.ID)
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double deactivate, got %v", err)
	}

	// Deactivating the organization root through this path is rejected.
	err = svc.Deactivate(context.Background(), org.ID, org.ID)
	domainErr = pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for root, got %v", err)
	}
}

func TestResolveLocation(t *testing.T) {
	conn := setupTenantTestDB(t)
	svc := newTestService(t, conn)
	org := mustRegisterOrg(t, svc, "acme")
	branch, err := svc.CreateBranch(context.Background(), org.ID, CreateBranchInput{
		Name:      "Branch",
		Subdomain: "acme-branch",
	})
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}

	main, err := svc.ResolveLocation(context.Background(), org.ID, types.MainLocation())
	if err != nil {
		t.Fatalf("resolve main: %v", err)
	}
	if main.ID != org.ID {
		t.Fatalf("main location resolved to %s, want org %s", main.ID, org.ID)
	}

	resolved, err := svc.ResolveLocation(context.Background(), org.ID, types.BranchLocation(branch.ID))
	if err != nil {
		t.Fatalf("resolve branch: %v", err)
	}
	if resolved.ID != branch.ID {
		t.Fatalf("branch resolved to %s, want %s", resolved.ID, branch.ID)
	}

	otherOrg := mustRegisterOrg(t, svc, "other")
	_, err = svc.ResolveLocation(context.Background(), otherOrg.ID, types.BranchLocation(branch.ID))
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for foreign branch, got %v", err)
	}

	_, err = svc.ResolveLocation(context.Background(), org.ID, types.Location{Kind: enums.LocationKindBranch})
	domainErr = pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for branch without id, got %v", err)
	}
}
