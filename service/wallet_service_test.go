package service

import (
	"context"
	"testing"

	"drawhouse/events"
	"drawhouse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newWalletServiceWithMocks() (*WalletService, *MockUserRepository, *MockWalletTransactionRepository, *MockWithdrawalRepository, *MockEventPublisher) {
	userRepo := new(MockUserRepository)
	txRepo := new(MockWalletTransactionRepository)
	withdrawalRepo := new(MockWithdrawalRepository)
	publisher := new(MockEventPublisher)
	svc := NewWalletService(userRepo, txRepo, withdrawalRepo, publisher)
	return svc, userRepo, txRepo, withdrawalRepo, publisher
}

func TestWalletService_Credit(t *testing.T) {
	ctx := context.Background()

	t.Run("credits balance and appends ledger row", func(t *testing.T) {
		svc, userRepo, txRepo, _, _ := newWalletServiceWithMocks()

		userRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(&models.User{
			ID: 7, WalletBalance: 1000,
		}, nil)
		userRepo.On("UpdateBalances", ctx, int64(7), int64(3500), int64(0), int64(0)).Return(nil)
		txRepo.On("Append", ctx, mock.MatchedBy(func(txn *models.WalletTransaction) bool {
			return txn.UserID == 7 &&
				txn.Amount == 2500 &&
				txn.Type == models.TransactionTypeCredit &&
				txn.ReferenceID == "run:1:ticket:9"
		})).Return(nil)

		txn, err := svc.Credit(ctx, 7, 2500, models.ReasonDrawWin, "run:1:ticket:9")
		require.NoError(t, err)
		assert.Equal(t, int64(2500), txn.Amount)

		userRepo.AssertExpectations(t)
		txRepo.AssertExpectations(t)
	})

	t.Run("rejects non positive amounts", func(t *testing.T) {
		svc, _, _, _, _ := newWalletServiceWithMocks()
		_, err := svc.Credit(ctx, 7, 0, models.ReasonDeposit, "topup:1")
		assert.True(t, IsValidationError(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, userRepo, _, _, _ := newWalletServiceWithMocks()
		userRepo.On("GetByIDForUpdate", ctx, int64(404)).Return(nil, nil)

		_, err := svc.Credit(ctx, 404, 100, models.ReasonDeposit, "topup:1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestWalletService_Debit(t *testing.T) {
	ctx := context.Background()

	t.Run("locked funds are not spendable", func(t *testing.T) {
		svc, userRepo, _, _, _ := newWalletServiceWithMocks()

		// 1000 in the wallet but 800 earmarked for withdrawal.
		userRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(&models.User{
			ID: 7, WalletBalance: 1000, LockedBalance: 800,
		}, nil)

		_, err := svc.Debit(ctx, 7, 500, models.ReasonTicketPurchase, "ticket:1")
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		userRepo.AssertNotCalled(t, "UpdateBalances", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("debit appends a negative row", func(t *testing.T) {
		svc, userRepo, txRepo, _, _ := newWalletServiceWithMocks()

		userRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(&models.User{
			ID: 7, WalletBalance: 1000,
		}, nil)
		userRepo.On("UpdateBalances", ctx, int64(7), int64(400), int64(0), int64(0)).Return(nil)
		txRepo.On("Append", ctx, mock.MatchedBy(func(txn *models.WalletTransaction) bool {
			return txn.Amount == -600 && txn.Type == models.TransactionTypeDebit
		})).Return(nil)

		_, err := svc.Debit(ctx, 7, 600, models.ReasonTicketPurchase, "ticket:1")
		require.NoError(t, err)
		txRepo.AssertExpectations(t)
	})
}

func TestWalletService_ApproveWithdrawal(t *testing.T) {
	ctx := context.Background()
	actor := Actor{ID: "op-1", Type: "operator"}

	t.Run("approval debits wallet and locked balance together", func(t *testing.T) {
		svc, userRepo, txRepo, withdrawalRepo, publisher := newWalletServiceWithMocks()

		withdrawalRepo.On("GetByIDForUpdate", ctx, int64(5)).Return(&models.Withdrawal{
			ID: 5, UserID: 7, Amount: 800, Reference: "wd-ref-5",
			Status: models.WithdrawalStatusPending,
		}, nil)
		withdrawalRepo.On("Decide", ctx, int64(5), models.WithdrawalStatusApproved, "op-1", mock.AnythingOfType("time.Time")).Return(true, nil)

		userRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(&models.User{
			ID: 7, WalletBalance: 1000, LockedBalance: 800,
		}, nil)
		userRepo.On("UpdateBalances", ctx, int64(7), int64(200), int64(0), int64(0)).Return(nil)

		txRepo.On("Append", ctx, mock.MatchedBy(func(txn *models.WalletTransaction) bool {
			return txn.UserID == 7 &&
				txn.Amount == -800 &&
				txn.Type == models.TransactionTypeDebit &&
				txn.Reason == models.ReasonWithdrawalApproved &&
				txn.ReferenceID == "wd-ref-5"
		})).Return(nil)

		publisher.On("Publish", mock.MatchedBy(func(e events.Event) bool {
			decided, ok := e.(events.WithdrawalDecidedEvent)
			return ok && decided.WithdrawalID == 5 && decided.Status == models.WithdrawalStatusApproved
		})).Return()

		withdrawal, err := svc.ApproveWithdrawal(ctx, 5, actor)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusApproved, withdrawal.Status)

		userRepo.AssertExpectations(t)
		txRepo.AssertExpectations(t)
		withdrawalRepo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("second approval is a no-op", func(t *testing.T) {
		svc, userRepo, txRepo, withdrawalRepo, _ := newWalletServiceWithMocks()

		withdrawalRepo.On("GetByIDForUpdate", ctx, int64(5)).Return(&models.Withdrawal{
			ID: 5, UserID: 7, Amount: 800,
			Status: models.WithdrawalStatusApproved,
		}, nil)

		withdrawal, err := svc.ApproveWithdrawal(ctx, 5, actor)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusApproved, withdrawal.Status)

		// No second debit, no second ledger row.
		userRepo.AssertNotCalled(t, "UpdateBalances", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		txRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		withdrawalRepo.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("approving a rejected withdrawal fails", func(t *testing.T) {
		svc, _, _, withdrawalRepo, _ := newWalletServiceWithMocks()

		withdrawalRepo.On("GetByIDForUpdate", ctx, int64(5)).Return(&models.Withdrawal{
			ID: 5, Status: models.WithdrawalStatusRejected,
		}, nil)

		_, err := svc.ApproveWithdrawal(ctx, 5, actor)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("locked balance below amount is ledger corruption", func(t *testing.T) {
		svc, userRepo, txRepo, withdrawalRepo, _ := newWalletServiceWithMocks()

		withdrawalRepo.On("GetByIDForUpdate", ctx, int64(5)).Return(&models.Withdrawal{
			ID: 5, UserID: 7, Amount: 800, Reference: "wd-ref-5",
			Status: models.WithdrawalStatusPending,
		}, nil)
		withdrawalRepo.On("Decide", ctx, int64(5), models.WithdrawalStatusApproved, "op-1", mock.AnythingOfType("time.Time")).Return(true, nil)

		userRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(&models.User{
			ID: 7, WalletBalance: 1000, LockedBalance: 100,
		}, nil)

		_, err := svc.ApproveWithdrawal(ctx, 5, actor)
		assert.ErrorIs(t, err, ErrLedgerCorrupted)
		txRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})
}

func TestWalletService_RejectWithdrawal(t *testing.T) {
	ctx := context.Background()
	actor := Actor{ID: "op-1", Type: "operator"}

	t.Run("rejection releases the earmark with an unlock row", func(t *testing.T) {
		svc, userRepo, txRepo, withdrawalRepo, publisher := newWalletServiceWithMocks()

		withdrawalRepo.On("GetByIDForUpdate", ctx, int64(5)).Return(&models.Withdrawal{
			ID: 5, UserID: 7, Amount: 800, Reference: "wd-ref-5",
			Status: models.WithdrawalStatusPending,
		}, nil)
		withdrawalRepo.On("Decide", ctx, int64(5), models.WithdrawalStatusRejected, "op-1", mock.AnythingOfType("time.Time")).Return(true, nil)

		userRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(&models.User{
			ID: 7, WalletBalance: 1000, LockedBalance: 800,
		}, nil)
		// Wallet total unchanged; only the earmark drops.
		userRepo.On("UpdateBalances", ctx, int64(7), int64(1000), int64(0), int64(0)).Return(nil)

		txRepo.On("Append", ctx, mock.MatchedBy(func(txn *models.WalletTransaction) bool {
			return txn.Amount == 800 && txn.Type == models.TransactionTypeUnlock
		})).Return(nil)

		publisher.On("Publish", mock.Anything).Return()

		withdrawal, err := svc.RejectWithdrawal(ctx, 5, actor)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusRejected, withdrawal.Status)
		txRepo.AssertExpectations(t)
	})
}

func TestWalletService_RequestWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("request earmarks funds without a ledger row", func(t *testing.T) {
		svc, userRepo, txRepo, withdrawalRepo, _ := newWalletServiceWithMocks()

		userRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(&models.User{
			ID: 7, WalletBalance: 1000,
		}, nil)
		userRepo.On("UpdateBalances", ctx, int64(7), int64(1000), int64(600), int64(0)).Return(nil)
		withdrawalRepo.On("Create", ctx, mock.MatchedBy(func(w *models.Withdrawal) bool {
			return w.UserID == 7 && w.Amount == 600 &&
				w.Status == models.WithdrawalStatusPending && w.Reference != ""
		})).Return(nil)

		withdrawal, err := svc.RequestWithdrawal(ctx, 7, 600)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawalStatusPending, withdrawal.Status)

		// The wallet total did not change, so no row is appended.
		txRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("request above spendable balance fails", func(t *testing.T) {
		svc, userRepo, _, _, _ := newWalletServiceWithMocks()

		userRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(&models.User{
			ID: 7, WalletBalance: 1000, LockedBalance: 900,
		}, nil)

		_, err := svc.RequestWithdrawal(ctx, 7, 200)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})
}
