package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/statbricks/mbiz-backend/api/routes"
	"github.com/statbricks/mbiz-backend/internal/auth"
	"github.com/statbricks/mbiz-backend/internal/billing"
	"github.com/statbricks/mbiz-backend/internal/expenses"
	"github.com/statbricks/mbiz-backend/internal/products"
	"github.com/statbricks/mbiz-backend/internal/sales"
	"github.com/statbricks/mbiz-backend/internal/stock"
	"github.com/statbricks/mbiz-backend/internal/subscriptions"
	"github.com/statbricks/mbiz-backend/internal/tenants"
	"github.com/statbricks/mbiz-backend/internal/users"
	"github.com/statbricks/mbiz-backend/pkg/config"
	"github.com/statbricks/mbiz-backend/pkg/db"
	"github.com/statbricks/mbiz-backend/pkg/instance"
	"github.com/statbricks/mbiz-backend/pkg/logger"
	"github.com/statbricks/mbiz-backend/pkg/migrate"
	"github.com/statbricks/mbiz-backend/pkg/paystack"
	"github.com/statbricks/mbiz-backend/pkg/postmark"
	"github.com/statbricks/mbiz-backend/pkg/redis"
	"github.com/statbricks/mbiz-backend/pkg/storage/r2"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	r2Client, err := r2.NewClient(context.Background(), cfg.R2, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create r2 client", err)
		os.Exit(1)
	}

	calculator, err := billing.NewCalculator(cfg.Billing.PriceTable())
	if err != nil {
		logg.Error(context.Background(), "failed to create billing calculator", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	tenantRepo := tenants.NewRepository(conn)
	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	stockRepo := stock.NewRepository(conn)
	saleRepo := sales.NewRepository(conn)
	expenseRepo := expenses.NewRepository(conn)
	subscriptionRepo := subscriptions.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		TenantRepo:     tenantRepo,
		UserRepo:       userRepo,
		TxRunner:       dbClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		TrialDays:      cfg.Billing.TrialDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

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

	productService, err := products.NewService(products.ServiceParams{
		Repo:        productRepo,
		Branches:    tenantRepo,
		BranchStock: stockRepo,
		TxRunner:    dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
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

	saleService, err := sales.NewService(sales.ServiceParams{
		Repo:     saleRepo,
		Products: productRepo,
		Stock:    stockRepo,
		Tenants:  tenantService,
		TxRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	expenseService, err := expenses.NewService(expenses.ServiceParams{
		Repo: expenseRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create expense service", err)
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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Gateway:       paystackClient,
			Storage:       r2Client,
			Auth:          authService,
			Tenants:       tenantService,
			Users:         userRepo,
			Products:      productService,
			Stock:         stockService,
			Sales:         saleService,
			Expenses:      expenseService,
			Subscriptions: subscriptionService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
