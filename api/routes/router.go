package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/statbricks/mbiz-backend/api/controllers"
	webhookcontrollers "github.com/statbricks/mbiz-backend/api/controllers/webhooks"
	"github.com/statbricks/mbiz-backend/api/middleware"
	authsvc "github.com/statbricks/mbiz-backend/internal/auth"
	expensesvc "github.com/statbricks/mbiz-backend/internal/expenses"
	productsvc "github.com/statbricks/mbiz-backend/internal/products"
	salesvc "github.com/statbricks/mbiz-backend/internal/sales"
	stocksvc "github.com/statbricks/mbiz-backend/internal/stock"
	subsvc "github.com/statbricks/mbiz-backend/internal/subscriptions"
	tenantsvc "github.com/statbricks/mbiz-backend/internal/tenants"
	"github.com/statbricks/mbiz-backend/pkg/config"
	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/enums"
	"github.com/statbricks/mbiz-backend/pkg/logger"
	"github.com/statbricks/mbiz-backend/pkg/redis"

	"github.com/google/uuid"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type signatureVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
}

type userLister interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.User, error)
}

type objectStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	PublicURL(key string) string
}

// Deps carries every service the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            pinger
	Redis         *redis.Client
	Gateway       signatureVerifier
	Storage       objectStore
	Auth          authsvc.Service
	Tenants       tenantsvc.Service
	Users         userLister
	Products      productsvc.Service
	Stock         stocksvc.Service
	Sales         salesvc.Service
	Expenses      expensesvc.Service
	Subscriptions subsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(deps.Gateway, deps.Subscriptions, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.Idempotency(deps.Redis, logg),
		)

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/organization", func(r chi.Router) {
			r.Get("/", controllers.GetOrganization(deps.Tenants, logg))
			r.With(ownerOnly(logg)).Put("/", controllers.UpdateOrganization(deps.Tenants, logg))
			r.With(ownerOnly(logg)).Post("/logo", controllers.UploadOrganizationLogo(deps.Storage, deps.Tenants, logg))
		})

		r.Route("/v1/users", func(r chi.Router) {
			r.Use(managersOnly(logg))
			r.Get("/", controllers.ListUsers(deps.Users, logg))
		})

		r.Route("/v1/branches", func(r chi.Router) {
			r.Get("/", controllers.ListBranches(deps.Tenants, logg))
			r.Group(func(r chi.Router) {
				r.Use(ownerOnly(logg), middleware.SubscriptionGuard(deps.Subscriptions, logg))
				r.Post("/", controllers.CreateBranch(deps.Tenants, logg))
				r.Post("/{branchId}/deactivate", controllers.DeactivateBranch(deps.Tenants, logg))
			})
		})

		r.Route("/v1/products", func(r chi.Router) {
			r.Use(middleware.SubscriptionGuard(deps.Subscriptions, logg))
			r.Get("/", controllers.ListProducts(deps.Products, logg))
			r.Get("/{productId}", controllers.GetProduct(deps.Products, logg))
			r.Group(func(r chi.Router) {
				r.Use(managersOnly(logg))
				r.Post("/", controllers.CreateProduct(deps.Products, logg))
				r.Put("/{productId}", controllers.UpdateProduct(deps.Products, logg))
				r.Post("/{productId}/deactivate", controllers.DeactivateProduct(deps.Products, logg))
				r.Post("/{productId}/image", controllers.UploadProductImage(deps.Storage, deps.Products, logg))
			})
		})

		r.Route("/v1/stock", func(r chi.Router) {
			r.Use(middleware.SubscriptionGuard(deps.Subscriptions, logg))
			r.Get("/levels", controllers.StockLevels(deps.Stock, logg))
			r.Get("/movements/{productId}", controllers.StockMovements(deps.Stock, logg))
			r.Group(func(r chi.Router) {
				r.Use(managersOnly(logg))
				r.Post("/adjustments", controllers.AdjustStock(deps.Stock, logg))
				r.Post("/reconcile", controllers.ReconcileStock(deps.Stock, logg))
				r.Put("/prices/{productId}", controllers.SetBranchPrice(deps.Stock, logg))
			})
		})

		r.Route("/v1/sales", func(r chi.Router) {
			r.Use(middleware.SubscriptionGuard(deps.Subscriptions, logg))
			r.Post("/", controllers.RecordSale(deps.Sales, logg))
			r.Get("/", controllers.ListSales(deps.Sales, logg))
			r.Get("/{saleId}", controllers.GetSale(deps.Sales, logg))
		})

		r.Route("/v1/expenses", func(r chi.Router) {
			r.Use(middleware.SubscriptionGuard(deps.Subscriptions, logg))
			r.Get("/", controllers.ListExpenses(deps.Expenses, logg))
			r.Group(func(r chi.Router) {
				r.Use(managersOnly(logg))
				r.Post("/", controllers.RecordExpense(deps.Expenses, logg))
				r.Delete("/{expenseId}", controllers.DeleteExpense(deps.Expenses, logg))
			})
		})

		// Payment routes stay reachable when coverage has lapsed, so
		// the guard never wraps them.
		r.Route("/v1/subscriptions", func(r chi.Router) {
			r.Get("/status", controllers.SubscriptionStatus(deps.Subscriptions, logg))
			r.Get("/transactions", controllers.ListSubscriptionTransactions(deps.Subscriptions, logg))
			r.Group(func(r chi.Router) {
				r.Use(ownerOnly(logg))
				r.Post("/", controllers.InitializeSubscription(deps.Subscriptions, logg))
				r.Post("/verify", controllers.VerifySubscription(deps.Subscriptions, logg))
				r.Post("/branches", controllers.AddSubscriptionBranch(deps.Subscriptions, logg))
				r.Post("/upgrade", controllers.UpgradeSubscription(deps.Subscriptions, logg))
				r.Post("/branches/{branchId}/cancel", controllers.CancelBranchSubscription(deps.Subscriptions, logg))
				r.Post("/branches/{branchId}/reactivate", controllers.ReactivateBranchSubscription(deps.Subscriptions, logg))
				r.Post("/branches/{branchId}/renewal/select", controllers.SelectBranchForRenewal(deps.Subscriptions, logg))
				r.Post("/branches/{branchId}/renewal/deselect", controllers.DeselectBranchForRenewal(deps.Subscriptions, logg))
			})
		})
	})

	return r
}

func ownerOnly(logg *logger.Logger) func(http.Handler) http.Handler {
	return middleware.RequireRole(enums.MemberRoleOwner.String(), logg)
}

func managersOnly(logg *logger.Logger) func(http.Handler) http.Handler {
	return middleware.RequireAnyRole(logg, enums.MemberRoleOwner.String(), enums.MemberRoleAdmin.String())
}
