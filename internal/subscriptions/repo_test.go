package subscriptions

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/statbricks/mbiz-backend/pkg/db/models"
)

func setupSubsRepo(t *testing.T) *Repository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.SubscriptionTransaction{},
		&models.BranchSubscription{},
	))
	return NewRepository(conn)
}

func TestCreateBranchSubscriptionSkipsExistingPair(t *testing.T) {
	repo := setupSubsRepo(t)
	ctx := context.Background()

	transactionID := uuid.New()
	tenantID := uuid.New()

	first := &models.BranchSubscription{TransactionID: transactionID, TenantID: tenantID}
	require.NoError(t, repo.CreateBranchSubscription(ctx, first))

	// Writing the same pair again leaves the history unchanged.
	replay := &models.BranchSubscription{TransactionID: transactionID, TenantID: tenantID}
	require.NoError(t, repo.CreateBranchSubscription(ctx, replay))

	rows, err := repo.ListBranchSubscriptionsByTransaction(ctx, transactionID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first.ID, rows[0].ID)

	// A different branch under the same transaction still appends.
	other := &models.BranchSubscription{TransactionID: transactionID, TenantID: uuid.New()}
	require.NoError(t, repo.CreateBranchSubscription(ctx, other))

	rows, err = repo.ListBranchSubscriptionsByTransaction(ctx, transactionID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
