package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/internal/billing"
	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/enums"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/logger"
	"github.com/statbricks/mbiz-backend/pkg/paystack"
	"github.com/statbricks/mbiz-backend/pkg/postmark"
)

type tenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Tenant, error)
	UpdateWithTx(tx *gorm.DB, tenant *models.Tenant) error
	ListBranches(ctx context.Context, organizationID uuid.UUID) ([]models.Tenant, error)
}

type expenseRecorder interface {
	CreateWithTx(tx *gorm.DB, expense *models.Expense) error
}

type paymentGateway interface {
	InitializeTransaction(ctx context.Context, params paystack.InitializeParams) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// Mailer sends transactional email. Delivery is best-effort and never
// blocks payment processing.
type Mailer interface {
	Send(ctx context.Context, msg postmark.Message) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the subscription lifecycle surface.
type Service interface {
	Initialize(ctx context.Context, organizationID uuid.UUID, input InitializeInput) (*CheckoutDTO, error)
	Verify(ctx context.Context, reference string) (*VerifyOutcome, error)
	AddBranch(ctx context.Context, organizationID, branchID uuid.UUID) (*CheckoutDTO, error)
	Upgrade(ctx context.Context, organizationID uuid.UUID, target enums.BillingCycle) (*CheckoutDTO, error)
	CancelBranch(ctx context.Context, organizationID, branchID uuid.UUID) error
	ReactivateBranch(ctx context.Context, organizationID, branchID uuid.UUID) error
	SelectForRenewal(ctx context.Context, organizationID, branchID uuid.UUID) error
	DeselectForRenewal(ctx context.Context, organizationID, branchID uuid.UUID) error
	GetStatus(ctx context.Context, organizationID uuid.UUID) (*StatusDTO, error)
	ListTransactions(ctx context.Context, tenantID uuid.UUID) ([]models.SubscriptionTransaction, error)
	CheckWriteAccess(ctx context.Context, tenantID uuid.UUID) error
	ExpireLapsed(ctx context.Context, now time.Time) (int, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo        *Repository
	TenantRepo  tenantRepository
	ExpenseRepo expenseRecorder
	Gateway     paymentGateway
	Calculator  *billing.Calculator
	Mailer      Mailer
	Logger      *logger.Logger
	TxRunner    txRunner
	Now         func() time.Time
}

// InitializeInput captures a fresh subscription or renewal checkout.
type InitializeInput struct {
	Cycle     enums.BillingCycle
	BranchIDs []uuid.UUID
}

// CheckoutDTO is the handoff to the payment gateway's hosted page.
// Settled marks a fully-credited checkout that activated without a
// payment step; its AuthorizationURL is empty.
type CheckoutDTO struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
	AmountKobo       int64  `json:"amount_kobo"`
	AmountDisplay    string `json:"amount_display"`
	Settled          bool   `json:"settled,omitempty"`
}

// VerifyOutcome reports the result of settling a payment reference.
type VerifyOutcome struct {
	Transaction      *models.SubscriptionTransaction `json:"transaction"`
	AlreadyProcessed bool                            `json:"already_processed"`
}

// StatusDTO summarizes the organization's subscription state.
type StatusDTO struct {
	SubscriptionStatus enums.SubscriptionStatus          `json:"subscription_status"`
	BillingCycle       enums.BillingCycle                `json:"billing_cycle"`
	TrialEndsAt        *time.Time                        `json:"trial_ends_at,omitempty"`
	NextBillingDate    *time.Time                        `json:"next_billing_date,omitempty"`
	Locations          []models.ActiveBranchSubscription `json:"locations"`
}

type service struct {
	repo       *Repository
	tenants    tenantRepository
	expenses   expenseRecorder
	gateway    paymentGateway
	calculator *billing.Calculator
	mailer     Mailer
	logger     *logger.Logger
	txRunner   txRunner
	now        func() time.Time
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repo required")
	}
	if params.TenantRepo == nil {
		return nil, fmt.Errorf("tenant repo required")
	}
	if params.ExpenseRepo == nil {
		return nil, fmt.Errorf("expense repo required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Calculator == nil {
		return nil, fmt.Errorf("calculator required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		tenants:    params.TenantRepo,
		expenses:   params.ExpenseRepo,
		gateway:    params.Gateway,
		calculator: params.Calculator,
		mailer:     params.Mailer,
		logger:     params.Logger,
		txRunner:   params.TxRunner,
		now:        now,
	}, nil
}

// Initialize creates a pending transaction covering the main location
// plus the selected branches and returns the hosted checkout handoff.
func (s *service) Initialize(ctx context.Context, organizationID uuid.UUID, input InitializeInput) (*CheckoutDTO, error) {
	org, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if !input.Cycle.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid billing cycle %q", input.Cycle))
	}

	// The selection names every covered location, the main one included.
	mainIncluded := false
	selected := make([]uuid.UUID, 0, len(input.BranchIDs))
	for _, id := range input.BranchIDs {
		if id == org.ID {
			mainIncluded = true
			continue
		}
		selected = append(selected, id)
	}
	if !mainIncluded {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "main location must be included")
	}

	branchIDs, err := s.validateBranchSelection(ctx, org, selected)
	if err != nil {
		return nil, err
	}

	quote, err := s.calculator.QuoteSelection(input.Cycle, len(branchIDs))
	if err != nil {
		return nil, err
	}

	txn := &models.SubscriptionTransaction{
		ID:           uuid.New(),
		TenantID:     org.ID,
		Reference:    newReference("sub"),
		Purpose:      models.TransactionPurposeSubscription,
		AmountKobo:   quote.TotalKobo,
		BillingCycle: input.Cycle,
		Status:       enums.TransactionStatusPending,
	}
	if err := txn.SetBranchIDs(branchIDs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "freeze branch selection")
	}

	return s.beginCheckout(ctx, org, txn)
}

// AddBranch charges the pro-rated branch price for the rest of the
// organization's current period.
func (s *service) AddBranch(ctx context.Context, organizationID, branchID uuid.UUID) (*CheckoutDTO, error) {
	org, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	branchIDs, err := s.validateBranchSelection(ctx, org, []uuid.UUID{branchID})
	if err != nil {
		return nil, err
	}
	if org.NextBillingDate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "organization has no active billing period")
	}

	now := s.now().UTC()
	daysRemaining := daysUntil(now, org.NextBillingDate.UTC())
	amount, err := s.calculator.ProrataBranchPrice(org.BillingCycle, daysRemaining)
	if err != nil {
		return nil, err
	}

	endDate := org.NextBillingDate.UTC()
	txn := &models.SubscriptionTransaction{
		ID:                    uuid.New(),
		TenantID:              org.ID,
		Reference:             newReference("branch"),
		Purpose:               models.TransactionPurposeBranchAddition,
		AmountKobo:            amount,
		BillingCycle:          org.BillingCycle,
		Status:                enums.TransactionStatusPending,
		SubscriptionStartDate: &now,
		SubscriptionEndDate:   &endDate,
	}
	if err := txn.SetBranchIDs(branchIDs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "freeze branch selection")
	}

	return s.beginCheckout(ctx, org, txn)
}

// Upgrade moves the whole selection to a longer cycle, crediting the
// unused value of the current one.
func (s *service) Upgrade(ctx context.Context, organizationID uuid.UUID, target enums.BillingCycle) (*CheckoutDTO, error) {
	org, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid billing cycle %q", target))
	}

	covered, err := s.coveredBranchIDs(ctx, org.ID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	daysRemaining := 0
	if org.NextBillingDate != nil && org.NextBillingDate.After(now) {
		daysRemaining = daysUntil(now, org.NextBillingDate.UTC())
	}

	amount, err := s.calculator.UpgradeCharge(org.BillingCycle, target, len(covered), daysRemaining)
	if err != nil {
		return nil, err
	}

	txn := &models.SubscriptionTransaction{
		ID:           uuid.New(),
		TenantID:     org.ID,
		Reference:    newReference("upgrade"),
		Purpose:      models.TransactionPurposeUpgrade,
		AmountKobo:   amount,
		BillingCycle: target,
		Status:       enums.TransactionStatusPending,
	}
	if err := txn.SetBranchIDs(covered); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "freeze branch selection")
	}

	if amount == 0 {
		// The credit covers the new cycle in full. There is nothing to
		// charge, so activate right away on an internal zero-amount
		// transaction instead of bouncing through the gateway.
		err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			if err := txRepo.CreateTransaction(ctx, txn); err != nil {
				return err
			}
			orgTx, err := s.tenants.FindByIDWithTx(tx, org.ID)
			if err != nil {
				return err
			}
			return s.settleWithinTx(ctx, tx, orgTx, txn, now, now)
		})
		if err != nil {
			if pkgerrors.As(err) != nil {
				return nil, err
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle upgrade")
		}
		return &CheckoutDTO{
			Reference:     txn.Reference,
			AmountKobo:    0,
			AmountDisplay: billing.MajorUnits(0),
			Settled:       true,
		}, nil
	}

	return s.beginCheckout(ctx, org, txn)
}

// Verify settles a payment reference. It is idempotent: a reference
// already marked successful returns the stored outcome without writing
// anything again.
func (s *service) Verify(ctx context.Context, reference string) (*VerifyOutcome, error) {
	txn, err := s.repo.FindTransactionByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup transaction")
	}
	if txn.Status == enums.TransactionStatusSuccess {
		return &VerifyOutcome{Transaction: txn, AlreadyProcessed: true}, nil
	}

	verified, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if verified.Failed() {
		txn.Status = enums.TransactionStatusFailed
		if err := s.repo.UpdateTransaction(ctx, txn); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark transaction failed")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment failed at the gateway")
	}
	if !verified.Succeeded() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment not settled yet")
	}
	if verified.AmountKobo != txn.AmountKobo {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("gateway amount %d does not match expected %d", verified.AmountKobo, txn.AmountKobo))
	}

	var (
		settled *models.SubscriptionTransaction
		replay  bool
	)
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		stored, err := txRepo.FindTransactionByReference(ctx, reference)
		if err != nil {
			return err
		}
		if stored.Status == enums.TransactionStatusSuccess {
			settled = stored
			replay = true
			return nil
		}

		org, err := s.tenants.FindByIDWithTx(tx, stored.TenantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
			}
			return err
		}

		now := s.now().UTC()
		paidAt := now
		if verified.PaidAt != nil {
			paidAt = verified.PaidAt.UTC()
		}
		if err := s.settleWithinTx(ctx, tx, org, stored, now, paidAt); err != nil {
			return err
		}

		settled = stored
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle transaction")
	}

	if !replay {
		s.sendReceipt(ctx, settled)
	}
	return &VerifyOutcome{Transaction: settled, AlreadyProcessed: replay}, nil
}

// CancelBranch excludes a branch from the next renewal. Access runs
// until the already-paid period ends.
func (s *service) CancelBranch(ctx context.Context, organizationID, branchID uuid.UUID) error {
	org, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return err
	}
	row, err := s.repo.FindActiveBranchSubscription(ctx, org.ID, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "branch subscription not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup branch subscription")
	}
	if row.IsCancelled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "branch subscription already cancelled")
	}

	now := s.now().UTC()
	row.IsCancelled = true
	row.CancelledAt = &now
	if err := s.repo.UpdateActiveBranchSubscription(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update branch subscription")
	}
	if err := s.repo.RemoveRenewalSelection(ctx, org.ID, branchID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove renewal selection")
	}
	return nil
}

// ReactivateBranch undoes a cancellation while the paid period is
// still running.
func (s *service) ReactivateBranch(ctx context.Context, organizationID, branchID uuid.UUID) error {
	org, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return err
	}
	row, err := s.repo.FindActiveBranchSubscription(ctx, org.ID, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "branch subscription not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup branch subscription")
	}
	if !row.IsCancelled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "branch subscription is not cancelled")
	}

	now := s.now().UTC()
	if !row.SubscriptionEndDate.After(now) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			"subscription period has ended, add the branch through a new payment")
	}

	row.IsCancelled = false
	row.CancelledAt = nil
	row.IsActive = true
	if err := s.repo.UpdateActiveBranchSubscription(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update branch subscription")
	}
	if branchID != org.ID {
		if err := s.repo.AddRenewalSelection(ctx, org.ID, branchID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore renewal selection")
		}
	}
	return nil
}

// SelectForRenewal marks a branch for inclusion in the next renewal payment.
func (s *service) SelectForRenewal(ctx context.Context, organizationID, branchID uuid.UUID) error {
	org, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return err
	}
	if _, err := s.validateBranchSelection(ctx, org, []uuid.UUID{branchID}); err != nil {
		return err
	}
	if err := s.repo.AddRenewalSelection(ctx, org.ID, branchID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add renewal selection")
	}
	return nil
}

// DeselectForRenewal drops a branch from the next renewal payment.
func (s *service) DeselectForRenewal(ctx context.Context, organizationID, branchID uuid.UUID) error {
	org, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return err
	}
	if err := s.repo.RemoveRenewalSelection(ctx, org.ID, branchID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove renewal selection")
	}
	return nil
}

// GetStatus summarizes subscription state across the hierarchy.
func (s *service) GetStatus(ctx context.Context, organizationID uuid.UUID) (*StatusDTO, error) {
	org, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListActiveBranchSubscriptions(ctx, org.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list branch subscriptions")
	}
	return &StatusDTO{
		SubscriptionStatus: org.SubscriptionStatus,
		BillingCycle:       org.BillingCycle,
		TrialEndsAt:        org.TrialEndsAt,
		NextBillingDate:    org.NextBillingDate,
		Locations:          rows,
	}, nil
}

// ListTransactions returns the tenant's payment history.
func (s *service) ListTransactions(ctx context.Context, tenantID uuid.UUID) ([]models.SubscriptionTransaction, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	txns, err := s.repo.ListTransactionsByTenant(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return txns, nil
}

// CheckWriteAccess decides whether a tenant may mutate data. A blocked
// organization is always denied; a trialing one is always allowed;
// otherwise the tenant needs an active, unexpired subscription row.
func (s *service) CheckWriteAccess(ctx context.Context, tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id is required")
	}
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}

	org := tenant
	if tenant.ParentTenantID != nil {
		org, err = s.tenants.FindByID(ctx, *tenant.ParentTenantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
		}
	}

	if org.ManuallyBlocked {
		return pkgerrors.New(pkgerrors.CodeForbidden, "account is blocked, contact support")
	}

	now := s.now().UTC()
	if org.OnTrial(now) {
		return nil
	}

	row, err := s.repo.FindActiveBranchSubscription(ctx, org.ID, tenant.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeReadOnly, "no active subscription for this location")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if !row.Covers(now) {
		return pkgerrors.New(pkgerrors.CodeReadOnly, "subscription inactive, account is read-only")
	}
	return nil
}

// ExpireLapsed deactivates rows whose paid period has ended and marks
// organizations expired when their own row lapses. Returns the number
// of rows flipped.
func (s *service) ExpireLapsed(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.repo.ListExpiredActiveSubscriptions(ctx, now.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired subscriptions")
	}

	var errs error
	expired := 0
	for i := range rows {
		row := rows[i]
		err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			row.IsActive = false
			if err := txRepo.UpdateActiveBranchSubscription(ctx, &row); err != nil {
				return err
			}
			if row.BranchTenantID == row.ParentTenantID {
				org, err := s.tenants.FindByIDWithTx(tx, row.ParentTenantID)
				if err != nil {
					return err
				}
				org.SubscriptionStatus = enums.SubscriptionStatusExpired
				if err := s.tenants.UpdateWithTx(tx, org); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			// One bad row must not abandon the rest of the sweep.
			rowCtx := s.logger.WithField(ctx, "branch_tenant_id", row.BranchTenantID.String())
			s.logger.Error(rowCtx, "failed to expire subscription row", err)
			errs = multierr.Append(errs, fmt.Errorf("expire %s: %w", row.BranchTenantID, err))
			continue
		}
		expired++
	}
	if errs != nil {
		return expired, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "expire subscriptions")
	}
	return expired, nil
}

func (s *service) beginCheckout(ctx context.Context, org *models.Tenant, txn *models.SubscriptionTransaction) (*CheckoutDTO, error) {
	if err := s.repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
	}

	email := ""
	if org.Email != nil {
		email = *org.Email
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization has no billing email")
	}

	result, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeParams{
		Email:      email,
		AmountKobo: txn.AmountKobo,
		Reference:  txn.Reference,
		Metadata: map[string]any{
			"tenant_id": org.ID.String(),
			"purpose":   txn.Purpose,
		},
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutDTO{
		Reference:        txn.Reference,
		AuthorizationURL: result.AuthorizationURL,
		AmountKobo:       txn.AmountKobo,
		AmountDisplay:    billing.MajorUnits(txn.AmountKobo),
	}, nil
}

func (s *service) loadOrganization(ctx context.Context, organizationID uuid.UUID) (*models.Tenant, error) {
	if organizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id is required")
	}
	org, err := s.tenants.FindByID(ctx, organizationID)
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

// validateBranchSelection checks that every id names an active branch
// of the organization and drops duplicates.
func (s *service) validateBranchSelection(ctx context.Context, org *models.Tenant, branchIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(branchIDs) == 0 {
		return nil, nil
	}
	branches, err := s.tenants.ListBranches(ctx, org.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list branches")
	}
	known := make(map[uuid.UUID]bool, len(branches))
	for _, branch := range branches {
		if branch.IsActive {
			known[branch.ID] = true
		}
	}

	seen := make(map[uuid.UUID]bool, len(branchIDs))
	out := make([]uuid.UUID, 0, len(branchIDs))
	for _, id := range branchIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !known[id] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("branch %s does not belong to this organization", id))
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *service) coveredBranchIDs(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.repo.ListActiveBranchSubscriptions(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list branch subscriptions")
	}
	now := s.now().UTC()
	var out []uuid.UUID
	for _, row := range rows {
		if row.BranchTenantID == organizationID {
			continue
		}
		if row.Covers(now) && !row.IsCancelled {
			out = append(out, row.BranchTenantID)
		}
	}
	return out, nil
}

func (s *service) addRenewalSelections(ctx context.Context, repo *Repository, organizationID uuid.UUID, branchIDs []uuid.UUID) error {
	for _, branchID := range branchIDs {
		if err := repo.AddRenewalSelection(ctx, organizationID, branchID); err != nil {
			return err
		}
	}
	return nil
}

// settleWithinTx applies every write of a successful payment: mark the
// transaction, extend coverage rows, append history, refresh the
// organization and its renewal selection, record the expense. The
// caller owns the surrounding transaction.
func (s *service) settleWithinTx(ctx context.Context, tx *gorm.DB, org *models.Tenant, stored *models.SubscriptionTransaction, now, paidAt time.Time) error {
	txRepo := s.repo.WithTx(tx)

	start, end := s.periodFor(org, stored, now)

	stored.Status = enums.TransactionStatusSuccess
	stored.PaidAt = &paidAt
	stored.SubscriptionStartDate = &start
	stored.SubscriptionEndDate = &end
	if err := txRepo.UpdateTransaction(ctx, stored); err != nil {
		return err
	}

	branchIDs, err := stored.BranchIDs()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode branch selection")
	}

	covered := branchIDs
	if stored.Purpose != models.TransactionPurposeBranchAddition {
		// A full subscription or upgrade always covers the main location.
		covered = append([]uuid.UUID{org.ID}, branchIDs...)
	}
	for _, tenantID := range covered {
		row := &models.ActiveBranchSubscription{
			ParentTenantID:      org.ID,
			BranchTenantID:      tenantID,
			IsActive:            true,
			SubscriptionEndDate: end,
			IsCancelled:         false,
			CancelledAt:         nil,
			LastTransactionID:   &stored.ID,
		}
		if err := txRepo.UpsertActiveBranchSubscription(ctx, row); err != nil {
			return err
		}
		if err := txRepo.CreateBranchSubscription(ctx, &models.BranchSubscription{
			TransactionID: stored.ID,
			TenantID:      tenantID,
		}); err != nil {
			return err
		}
	}

	switch stored.Purpose {
	case models.TransactionPurposeBranchAddition:
		if err := s.addRenewalSelections(ctx, txRepo, org.ID, branchIDs); err != nil {
			return err
		}
	default:
		org.SubscriptionStatus = enums.SubscriptionStatusActive
		org.BillingCycle = stored.BillingCycle
		org.NextBillingDate = &end
		if err := s.tenants.UpdateWithTx(tx, org); err != nil {
			return err
		}
		if err := txRepo.ReplaceRenewalSelections(ctx, org.ID, branchIDs); err != nil {
			return err
		}
	}

	expense := &models.Expense{
		ID:          uuid.New(),
		TenantID:    org.ID,
		Description: fmt.Sprintf("Subscription payment %s", stored.Reference),
		Category:    models.ExpenseCategorySubscription,
		AmountKobo:  stored.AmountKobo,
		IncurredAt:  paidAt,
	}
	return s.expenses.CreateWithTx(tx, expense)
}

// periodFor resolves the paid period. Branch additions carry their
// period frozen at initialization. A renewal starts at the later of
// payment time and the current period end, so paying early never
// forfeits days already bought. Upgrades restart at payment: the
// unused days were already credited against the charge.
func (s *service) periodFor(org *models.Tenant, txn *models.SubscriptionTransaction, now time.Time) (time.Time, time.Time) {
	if txn.Purpose == models.TransactionPurposeBranchAddition &&
		txn.SubscriptionStartDate != nil && txn.SubscriptionEndDate != nil {
		return txn.SubscriptionStartDate.UTC(), txn.SubscriptionEndDate.UTC()
	}
	start := now
	if txn.Purpose == models.TransactionPurposeSubscription &&
		org.NextBillingDate != nil && org.NextBillingDate.UTC().After(now) {
		start = org.NextBillingDate.UTC()
	}
	return start, start.AddDate(0, 0, txn.BillingCycle.Days())
}

func (s *service) sendReceipt(ctx context.Context, txn *models.SubscriptionTransaction) {
	if s.mailer == nil {
		return
	}
	org, err := s.tenants.FindByID(ctx, txn.TenantID)
	if err != nil || org.Email == nil || *org.Email == "" {
		return
	}

	msg := postmark.Message{
		To:      *org.Email,
		Subject: fmt.Sprintf("Payment received: %s", txn.Reference),
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nWe received your payment of %s for your %s subscription.\nReference: %s\n\nThank you.",
			org.Name, billing.MajorUnits(txn.AmountKobo), txn.BillingCycle, txn.Reference,
		),
		Tag: "subscription-receipt",
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		if err := s.mailer.Send(bg, msg); err != nil {
			s.logger.Warn(bg, fmt.Sprintf("receipt email failed for %s", txn.Reference))
		}
	}()
}

func newReference(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// daysUntil counts whole days from now to the deadline, rounding any
// partial day up so a same-day change still bills one day.
func daysUntil(now, deadline time.Time) int {
	if !deadline.After(now) {
		return 0
	}
	hours := deadline.Sub(now).Hours()
	days := int(hours / 24)
	if hours != float64(days*24) {
		days++
	}
	return days
}
