package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/logger"
)

type organizationLister interface {
	ListOrganizations(ctx context.Context) ([]models.Tenant, error)
}

type stockReconciler interface {
	Reconcile(ctx context.Context, organizationID uuid.UUID) (int, error)
}

// StockReconcileJobParams configures the branch stock backfill job.
type StockReconcileJobParams struct {
	Logger  *logger.Logger
	Tenants organizationLister
	Stock   stockReconciler
}

// NewStockReconcileJob builds the job that backfills missing branch
// stock rows across every organization. Branches created while a fan-out
// partially failed pick up their zero-quantity rows here.
func NewStockReconcileJob(params StockReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tenants == nil {
		return nil, fmt.Errorf("tenant repository required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock service required")
	}
	return &stockReconcileJob{
		logg:    params.Logger,
		tenants: params.Tenants,
		stock:   params.Stock,
	}, nil
}

type stockReconcileJob struct {
	logg    *logger.Logger
	tenants organizationLister
	stock   stockReconciler
}

func (j *stockReconcileJob) Name() string { return "stock-reconcile" }

func (j *stockReconcileJob) Run(ctx context.Context) error {
	orgs, err := j.tenants.ListOrganizations(ctx)
	if err != nil {
		return fmt.Errorf("list organizations: %w", err)
	}

	var errs error
	created := 0
	for _, org := range orgs {
		n, err := j.stock.Reconcile(ctx, org.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", org.ID, err))
			continue
		}
		created += n
	}

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"organizations": len(orgs),
		"rows_created":  created,
	})
	j.logg.Info(reportCtx, "stock reconcile sweep complete")
	return errs
}
