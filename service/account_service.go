package service

import (
	"context"
	"fmt"

	"drawhouse/models"
)

// AccountService handles user creation, top-ups and ledger reads
type AccountService struct {
	uowFactory UnitOfWorkFactory
}

// NewAccountService creates an account service
func NewAccountService(uowFactory UnitOfWorkFactory) *AccountService {
	return &AccountService{uowFactory: uowFactory}
}

// CreateUser creates a user with the given starting balance
func (s *AccountService) CreateUser(ctx context.Context, username string, initialBalance int64) (*models.User, error) {
	if username == "" {
		return nil, NewValidationError("username is required")
	}
	if initialBalance < 0 {
		return nil, NewValidationError("initial balance cannot be negative")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().Create(ctx, username, initialBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return user, nil
}

// Deposit credits a top-up into the user's wallet
func (s *AccountService) Deposit(ctx context.Context, userID, amount int64, referenceID string) (*models.WalletTransaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txn, err := s.walletService(uow).Deposit(ctx, userID, amount, referenceID)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return txn, nil
}

// GrantBonus adds promotional balance to the user's account
func (s *AccountService) GrantBonus(ctx context.Context, userID, amount int64, referenceID string) (*models.WalletTransaction, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	txn, err := s.walletService(uow).GrantBonus(ctx, userID, amount, referenceID)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return txn, nil
}

// GetUser returns a user with their current balances
func (s *AccountService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return user, nil
}

// GetLedger returns the most recent ledger rows for a user
func (s *AccountService) GetLedger(ctx context.Context, userID int64, limit int) ([]*models.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.WalletTransactionRepository().GetByUser(ctx, userID, limit)
}

func (s *AccountService) walletService(uow UnitOfWork) *WalletService {
	return NewWalletService(
		uow.UserRepository(),
		uow.WalletTransactionRepository(),
		uow.WithdrawalRepository(),
		uow.EventBus(),
	)
}
