package repository

import (
	"context"
	"testing"

	"drawhouse/models"
	"drawhouse/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletTransactionRepository_AppendAndQuery(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	userRepo := NewUserRepository(testDB.DB)
	txRepo := NewWalletTransactionRepository(testDB.DB)

	user, err := userRepo.Create(ctx, "player-one", 10000)
	require.NoError(t, err)

	debit := &models.WalletTransaction{
		UserID:      user.ID,
		Amount:      -1000,
		Type:        models.TransactionTypeDebit,
		Reason:      models.ReasonTicketPurchase,
		ReferenceID: "ticket:1",
	}
	require.NoError(t, txRepo.Append(ctx, debit))
	assert.NotZero(t, debit.ID)
	assert.False(t, debit.CreatedAt.IsZero())

	credit := &models.WalletTransaction{
		UserID:      user.ID,
		Amount:      20000,
		Type:        models.TransactionTypeCredit,
		Reason:      models.ReasonDrawWin,
		ReferenceID: "run:1:ticket:1",
	}
	require.NoError(t, txRepo.Append(ctx, credit))

	rows, err := txRepo.GetByUser(ctx, user.ID, 50)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byRef, err := txRepo.GetByReference(ctx, "ticket:1")
	require.NoError(t, err)
	require.Len(t, byRef, 1)
	assert.Equal(t, int64(-1000), byRef[0].Amount)
}

func TestWalletTransactionRepository_SumCreditsByReferencePrefix(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	userRepo := NewUserRepository(testDB.DB)
	txRepo := NewWalletTransactionRepository(testDB.DB)

	user, err := userRepo.Create(ctx, "player-one", 0)
	require.NoError(t, err)

	for _, txn := range []*models.WalletTransaction{
		{UserID: user.ID, Amount: 20000, Type: models.TransactionTypeCredit, Reason: models.ReasonDrawWin, ReferenceID: "run:1:ticket:1"},
		{UserID: user.ID, Amount: 5000, Type: models.TransactionTypeCredit, Reason: models.ReasonDrawWin, ReferenceID: "run:1:ticket:2"},
		// A different run and a debit must both stay out of the sum.
		{UserID: user.ID, Amount: 9999, Type: models.TransactionTypeCredit, Reason: models.ReasonDrawWin, ReferenceID: "run:2:ticket:3"},
		{UserID: user.ID, Amount: -1000, Type: models.TransactionTypeDebit, Reason: models.ReasonTicketPurchase, ReferenceID: "run:1:ticket:4"},
	} {
		require.NoError(t, txRepo.Append(ctx, txn))
	}

	total, err := txRepo.SumCreditsByReferencePrefix(ctx, "run:1:")
	require.NoError(t, err)
	assert.Equal(t, int64(25000), total)
}

func TestUserRepository_UpdateBalances(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	userRepo := NewUserRepository(testDB.DB)

	user, err := userRepo.Create(ctx, "player-one", 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), user.WalletBalance)

	require.NoError(t, userRepo.UpdateBalances(ctx, user.ID, 8000, 3000, 500))

	got, err := userRepo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), got.WalletBalance)
	assert.Equal(t, int64(3000), got.LockedBalance)
	assert.Equal(t, int64(500), got.BonusBalance)
	assert.Equal(t, int64(5000), got.SpendableBalance())

	// The schema refuses a locked balance beyond the wallet.
	assert.Error(t, userRepo.UpdateBalances(ctx, user.ID, 1000, 2000, 0))

	missing, err := userRepo.GetByID(ctx, 99999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
