package users

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
	"github.com/statbricks/mbiz-backend/pkg/enums"
)

func setupUserTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))
	return conn
}

func seedUser(t *testing.T, repo *Repository, tenantID uuid.UUID, email string, role enums.MemberRole) *models.User {
	t.Helper()
	user := &models.User{
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Ada",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestFindByEmail(t *testing.T) {
	repo := NewRepository(setupUserTestDB(t))
	tenantID := uuid.New()
	seeded := seedUser(t, repo, tenantID, "owner@acme.test", enums.MemberRoleOwner)

	found, err := repo.FindByEmail(context.Background(), "owner@acme.test")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.Equal(t, tenantID, found.TenantID)

	_, err = repo.FindByEmail(context.Background(), "nobody@acme.test")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateLastLogin(t *testing.T) {
	repo := NewRepository(setupUserTestDB(t))
	user := seedUser(t, repo, uuid.New(), "owner@acme.test", enums.MemberRoleOwner)
	require.Nil(t, user.LastLoginAt)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(context.Background(), user.ID, at))

	found, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.True(t, found.LastLoginAt.Equal(at))
}

func TestListByTenantScopesRows(t *testing.T) {
	repo := NewRepository(setupUserTestDB(t))
	tenantA := uuid.New()
	tenantB := uuid.New()
	seedUser(t, repo, tenantA, "owner@acme.test", enums.MemberRoleOwner)
	seedUser(t, repo, tenantA, "staff@acme.test", enums.MemberRoleStaff)
	seedUser(t, repo, tenantB, "owner@other.test", enums.MemberRoleOwner)

	rows, err := repo.ListByTenant(context.Background(), tenantA)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, tenantA, row.TenantID)
	}
}
