package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
)

// Repository handles subscription persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to subscription operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateTransaction persists a new payment transaction row.
func (r *Repository) CreateTransaction(ctx context.Context, txn *models.SubscriptionTransaction) error {
	if txn == nil {
		return fmt.Errorf("transaction is required")
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindTransactionByReference loads a transaction by its gateway reference.
func (r *Repository) FindTransactionByReference(ctx context.Context, reference string) (*models.SubscriptionTransaction, error) {
	var txn models.SubscriptionTransaction
	if err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&txn).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateTransaction saves the provided transaction.
func (r *Repository) UpdateTransaction(ctx context.Context, txn *models.SubscriptionTransaction) error {
	if txn == nil {
		return fmt.Errorf("transaction is required")
	}
	return r.db.WithContext(ctx).Save(txn).Error
}

// ListTransactionsByTenant returns transactions for a tenant, newest first.
func (r *Repository) ListTransactionsByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.SubscriptionTransaction, error) {
	var txns []models.SubscriptionTransaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// FindActiveBranchSubscription loads the current-state row for one
// (organization, branch) pair.
func (r *Repository) FindActiveBranchSubscription(ctx context.Context, parentID, branchID uuid.UUID) (*models.ActiveBranchSubscription, error) {
	var row models.ActiveBranchSubscription
	if err := r.db.WithContext(ctx).
		Where("parent_tenant_id = ? AND branch_tenant_id = ?", parentID, branchID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListActiveBranchSubscriptions returns all current-state rows for an organization.
func (r *Repository) ListActiveBranchSubscriptions(ctx context.Context, parentID uuid.UUID) ([]models.ActiveBranchSubscription, error) {
	var rows []models.ActiveBranchSubscription
	if err := r.db.WithContext(ctx).
		Where("parent_tenant_id = ?", parentID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertActiveBranchSubscription creates or updates the single
// current-state row per pair.
func (r *Repository) UpsertActiveBranchSubscription(ctx context.Context, row *models.ActiveBranchSubscription) error {
	if row == nil {
		return fmt.Errorf("active branch subscription is required")
	}
	existing, err := r.FindActiveBranchSubscription(ctx, row.ParentTenantID, row.BranchTenantID)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		return r.db.WithContext(ctx).Create(row).Error
	}

	existing.IsActive = row.IsActive
	existing.SubscriptionEndDate = row.SubscriptionEndDate
	existing.IsCancelled = row.IsCancelled
	existing.CancelledAt = row.CancelledAt
	existing.LastTransactionID = row.LastTransactionID
	if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
		return err
	}
	*row = *existing
	return nil
}

// UpdateActiveBranchSubscription saves an existing current-state row.
func (r *Repository) UpdateActiveBranchSubscription(ctx context.Context, row *models.ActiveBranchSubscription) error {
	if row == nil {
		return fmt.Errorf("active branch subscription is required")
	}
	return r.db.WithContext(ctx).Save(row).Error
}

// ListExpiredActiveSubscriptions returns rows still flagged active
// whose period has lapsed.
func (r *Repository) ListExpiredActiveSubscriptions(ctx context.Context, now time.Time) ([]models.ActiveBranchSubscription, error) {
	var rows []models.ActiveBranchSubscription
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND subscription_end_date < ?", true, now).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateBranchSubscription appends one historical inclusion row. A row
// already recorded for the same (transaction, branch) pair is left
// alone, so replaying a settlement never duplicates history.
func (r *Repository) CreateBranchSubscription(ctx context.Context, row *models.BranchSubscription) error {
	if row == nil {
		return fmt.Errorf("branch subscription is required")
	}
	var existing models.BranchSubscription
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND tenant_id = ?", row.TransactionID, row.TenantID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

// ListBranchSubscriptionsByTransaction returns the historical rows for one payment.
func (r *Repository) ListBranchSubscriptionsByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.BranchSubscription, error) {
	var rows []models.BranchSubscription
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplaceRenewalSelections swaps the organization's renewal selection set.
func (r *Repository) ReplaceRenewalSelections(ctx context.Context, organizationID uuid.UUID, branchIDs []uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Delete(&models.RenewalSelection{}).Error; err != nil {
		return err
	}
	for _, branchID := range branchIDs {
		row := models.RenewalSelection{
			ID:             uuid.New(),
			OrganizationID: organizationID,
			BranchTenantID: branchID,
		}
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// AddRenewalSelection marks one branch for the next renewal. Adding an
// already-selected branch is a no-op.
func (r *Repository) AddRenewalSelection(ctx context.Context, organizationID, branchID uuid.UUID) error {
	var existing models.RenewalSelection
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND branch_tenant_id = ?", organizationID, branchID).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	row := models.RenewalSelection{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		BranchTenantID: branchID,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// RemoveRenewalSelection drops one branch from the next renewal.
func (r *Repository) RemoveRenewalSelection(ctx context.Context, organizationID, branchID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("organization_id = ? AND branch_tenant_id = ?", organizationID, branchID).
		Delete(&models.RenewalSelection{}).Error
}

// ListRenewalSelections returns the branches marked for the next renewal.
func (r *Repository) ListRenewalSelections(ctx context.Context, organizationID uuid.UUID) ([]models.RenewalSelection, error) {
	var rows []models.RenewalSelection
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
