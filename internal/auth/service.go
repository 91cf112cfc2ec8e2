package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/internal/tenants"
	"github.com/statbricks/mbiz-backend/internal/users"
	pkgauth "github.com/statbricks/mbiz-backend/pkg/auth"
	"github.com/statbricks/mbiz-backend/pkg/config"
	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/enums"
	pkgerrors "github.com/statbricks/mbiz-backend/pkg/errors"
	"github.com/statbricks/mbiz-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

type tenantRepository interface {
	CreateWithTx(tx *gorm.DB, tenant *models.Tenant) error
	FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type userRepository interface {
	CreateWithTx(tx *gorm.DB, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service signs organizations up and operators in.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	TenantRepo     tenantRepository
	UserRepo       userRepository
	TxRunner       txRunner
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	TrialDays      int
	Now            func() time.Time
}

type service struct {
	tenants     tenantRepository
	users       userRepository
	txRunner    txRunner
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	trialDays   int
	now         func() time.Time
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.TenantRepo == nil {
		return nil, fmt.Errorf("tenant repository is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.TrialDays <= 0 {
		return nil, fmt.Errorf("trial days must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tenants:     params.TenantRepo,
		users:       params.UserRepo,
		txRunner:    params.TxRunner,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		trialDays:   params.TrialDays,
		now:         now,
	}, nil
}

// Register creates the organization root and its owner account in one
// transaction, then signs the owner in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	org, err := tenants.NewOrganization(tenants.RegisterOrganizationInput{
		Name:      req.OrganizationName,
		Subdomain: req.Subdomain,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
	}, s.now(), s.trialDays)
	if err != nil {
		return nil, err
	}
	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first name is required")
	}
	if len(req.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	if _, err := s.tenants.FindBySubdomain(ctx, org.Subdomain); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("subdomain %q is taken", org.Subdomain))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check subdomain")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	owner := &models.User{
		ID:           uuid.New(),
		TenantID:     org.ID,
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     strings.TrimSpace(req.LastName),
		Role:         enums.MemberRoleOwner,
		IsActive:     true,
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.tenants.CreateWithTx(tx, org); err != nil {
			return err
		}
		return s.users.CreateWithTx(tx, owner)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register organization")
	}

	token, err := s.mintToken(owner)
	if err != nil {
		return nil, err
	}
	return &RegisterResponse{
		AccessToken:  token,
		User:         users.FromModel(owner),
		Organization: tenants.FromModel(org),
	}, nil
}

// Login verifies credentials and returns a signed session.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	token, err := s.mintToken(user)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken: token,
		User:        users.FromModel(user),
	}, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	org, err := s.tenants.FindByID(ctx, user.TenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	if !org.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization is deactivated")
	}
	return user, nil
}

func (s *service) mintToken(user *models.User) (string, error) {
	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}
