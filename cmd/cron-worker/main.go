package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/statbricks/mbiz-backend/internal/billing"
	"github.com/statbricks/mbiz-backend/internal/cron"
	"github.com/statbricks/mbiz-backend/internal/expenses"
	"github.com/statbricks/mbiz-backend/internal/products"
	"github.com/statbricks/mbiz-backend/internal/stock"
	"github.com/statbricks/mbiz-backend/internal/subscriptions"
	"github.com/statbricks/mbiz-backend/internal/tenants"
	"github.com/statbricks/mbiz-backend/pkg/config"
	"github.com/statbricks/mbiz-backend/pkg/db"
	"github.com/statbricks/mbiz-backend/pkg/instance"
	"github.com/statbricks/mbiz-backend/pkg/logger"
	"github.com/statbricks/mbiz-backend/pkg/metrics"
	"github.com/statbricks/mbiz-backend/pkg/migrate"
	"github.com/statbricks/mbiz-backend/pkg/paystack"
	"github.com/statbricks/mbiz-backend/pkg/postmark"
	"github.com/statbricks/mbiz-backend/pkg/redis"
)

const lockKeyFormat = "mbiz:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paystackClient, err := paystack.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	postmarkClient, err := postmark.NewClient(context.Background(), cfg.Postmark, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create postmark client", err)
		os.Exit(1)
	}

	calculator, err := billing.NewCalculator(cfg.Billing.PriceTable())
	if err != nil {
		logg.Error(context.Background(), "failed to create billing calculator", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	tenantRepo := tenants.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	stockRepo := stock.NewRepository(conn)
	expenseRepo := expenses.NewRepository(conn)
	subscriptionRepo := subscriptions.NewRepository(conn)

	tenantService, err := tenants.NewService(tenants.ServiceParams{
		Repo:        tenantRepo,
		Products:    productRepo,
		BranchStock: stockRepo,
		TxRunner:    dbClient,
		TrialDays:   cfg.Billing.TrialDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tenant service", err)
		os.Exit(1)
	}

	stockService, err := stock.NewService(stock.ServiceParams{
		Repo:     stockRepo,
		Products: productRepo,
		Tenants:  tenantService,
		Branches: tenantRepo,
		TxRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:        subscriptionRepo,
		TenantRepo:  tenantRepo,
		ExpenseRepo: expenseRepo,
		Gateway:     paystackClient,
		Calculator:  calculator,
		Mailer:      postmarkClient,
		Logger:      logg,
		TxRunner:    dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewSubscriptionExpiryJob(cron.SubscriptionExpiryJobParams{
		Logger:        logg,
		Subscriptions: subscriptionService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription expiry job", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewStockReconcileJob(cron.StockReconcileJobParams{
		Logger:  logg,
		Tenants: tenantRepo,
		Stock:   stockService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock reconcile job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(expiryJob, reconcileJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
