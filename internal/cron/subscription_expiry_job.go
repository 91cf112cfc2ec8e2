package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/statbricks/mbiz-backend/pkg/logger"
)

type subscriptionExpirer interface {
	ExpireLapsed(ctx context.Context, now time.Time) (int, error)
}

// SubscriptionExpiryJobParams configures the subscription expiry sweep.
type SubscriptionExpiryJobParams struct {
	Logger        *logger.Logger
	Subscriptions subscriptionExpirer
	Now           func() time.Time
}

// NewSubscriptionExpiryJob builds the job that deactivates lapsed
// subscription rows and flips their organizations to expired.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &subscriptionExpiryJob{
		logg:          params.Logger,
		subscriptions: params.Subscriptions,
		now:           now,
	}, nil
}

type subscriptionExpiryJob struct {
	logg          *logger.Logger
	subscriptions subscriptionExpirer
	now           func() time.Time
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	expired, err := j.subscriptions.ExpireLapsed(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire lapsed subscriptions: %w", err)
	}
	reportCtx := j.logg.WithField(ctx, "expired", expired)
	j.logg.Info(reportCtx, "subscription expiry sweep complete")
	return nil
}
