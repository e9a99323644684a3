package service

import (
	"context"
	"fmt"
	"time"

	"drawhouse/events"
	"drawhouse/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// WalletService owns every balance mutation. Each operation must run
// inside the caller's unit of work so the balance change, the appended
// ledger row and the triggering state change commit together.
type WalletService struct {
	userRepo       UserRepository
	txRepo         WalletTransactionRepository
	withdrawalRepo WithdrawalRepository
	eventPublisher EventPublisher
}

// NewWalletService creates a wallet service bound to one unit of work's
// repositories
func NewWalletService(
	userRepo UserRepository,
	txRepo WalletTransactionRepository,
	withdrawalRepo WithdrawalRepository,
	eventPublisher EventPublisher,
) *WalletService {
	return &WalletService{
		userRepo:       userRepo,
		txRepo:         txRepo,
		withdrawalRepo: withdrawalRepo,
		eventPublisher: eventPublisher,
	}
}

// Credit adds spendable funds to a user's wallet and appends the matching
// ledger row in the same transaction.
func (s *WalletService) Credit(ctx context.Context, userID, amount int64, reason, referenceID string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, NewValidationError("credit amount must be positive, got %d", amount)
	}

	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	newBalance := user.WalletBalance + amount
	if err := s.userRepo.UpdateBalances(ctx, userID, newBalance, user.LockedBalance, user.BonusBalance); err != nil {
		return nil, fmt.Errorf("failed to update balance for user %d: %w", userID, err)
	}

	return s.appendRow(ctx, &models.WalletTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        models.TransactionTypeCredit,
		Reason:      reason,
		ReferenceID: referenceID,
	})
}

// Debit removes spendable funds from a user's wallet. Funds earmarked for
// withdrawal are not spendable; exceeding the spendable balance is a
// precondition error with no partial write.
func (s *WalletService) Debit(ctx context.Context, userID, amount int64, reason, referenceID string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, NewValidationError("debit amount must be positive, got %d", amount)
	}

	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	if user.SpendableBalance() < amount {
		return nil, fmt.Errorf("user %d has %d spendable, needs %d: %w",
			userID, user.SpendableBalance(), amount, ErrInsufficientFunds)
	}

	newBalance := user.WalletBalance - amount
	if err := s.userRepo.UpdateBalances(ctx, userID, newBalance, user.LockedBalance, user.BonusBalance); err != nil {
		return nil, fmt.Errorf("failed to update balance for user %d: %w", userID, err)
	}

	return s.appendRow(ctx, &models.WalletTransaction{
		UserID:      userID,
		Amount:      -amount,
		Type:        models.TransactionTypeDebit,
		Reason:      reason,
		ReferenceID: referenceID,
	})
}

// Deposit credits a top-up into the wallet
func (s *WalletService) Deposit(ctx context.Context, userID, amount int64, referenceID string) (*models.WalletTransaction, error) {
	return s.Credit(ctx, userID, amount, models.ReasonDeposit, referenceID)
}

// GrantBonus adds promotional balance and appends a bonus ledger row
func (s *WalletService) GrantBonus(ctx context.Context, userID, amount int64, referenceID string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, NewValidationError("bonus amount must be positive, got %d", amount)
	}

	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	if err := s.userRepo.UpdateBalances(ctx, userID, user.WalletBalance, user.LockedBalance, user.BonusBalance+amount); err != nil {
		return nil, fmt.Errorf("failed to update balance for user %d: %w", userID, err)
	}

	return s.appendRow(ctx, &models.WalletTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        models.TransactionTypeBonus,
		Reason:      models.ReasonBonusGrant,
		ReferenceID: referenceID,
	})
}

// RequestWithdrawal earmarks spendable funds for a pending withdrawal.
// The wallet total does not change, so no ledger row is appended yet;
// the earmark is released or debited when the withdrawal is decided.
func (s *WalletService) RequestWithdrawal(ctx context.Context, userID, amount int64) (*models.Withdrawal, error) {
	if amount <= 0 {
		return nil, NewValidationError("withdrawal amount must be positive, got %d", amount)
	}

	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	if user.SpendableBalance() < amount {
		return nil, fmt.Errorf("user %d has %d spendable, needs %d: %w",
			userID, user.SpendableBalance(), amount, ErrInsufficientFunds)
	}

	if err := s.userRepo.UpdateBalances(ctx, userID, user.WalletBalance, user.LockedBalance+amount, user.BonusBalance); err != nil {
		return nil, fmt.Errorf("failed to lock funds for user %d: %w", userID, err)
	}

	withdrawal := &models.Withdrawal{
		UserID:    userID,
		Amount:    amount,
		Reference: uuid.NewString(),
		Status:    models.WithdrawalStatusPending,
	}
	if err := s.withdrawalRepo.Create(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return withdrawal, nil
}

// ApproveWithdrawal debits the wallet and the locked balance by the same
// amount in one transaction and appends one debit row referencing the
// withdrawal. Approving an already-approved withdrawal is a no-op.
func (s *WalletService) ApproveWithdrawal(ctx context.Context, withdrawalID int64, actor Actor) (*models.Withdrawal, error) {
	withdrawal, err := s.withdrawalRepo.GetByIDForUpdate(ctx, withdrawalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal %d: %w", withdrawalID, err)
	}
	if withdrawal == nil {
		return nil, fmt.Errorf("withdrawal %d: %w", withdrawalID, ErrNotFound)
	}

	if withdrawal.Status == models.WithdrawalStatusApproved {
		// Idempotent by observation: no further mutation.
		return withdrawal, nil
	}
	if withdrawal.Status != models.WithdrawalStatusPending {
		return nil, fmt.Errorf("withdrawal %d is %s: %w", withdrawalID, withdrawal.Status, ErrInvalidState)
	}

	now := time.Now()
	flipped, err := s.withdrawalRepo.Decide(ctx, withdrawalID, models.WithdrawalStatusApproved, actor.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to approve withdrawal %d: %w", withdrawalID, err)
	}
	if !flipped {
		return nil, fmt.Errorf("withdrawal %d was decided concurrently: %w", withdrawalID, ErrInvalidState)
	}

	if err := s.debitLocked(ctx, withdrawal.UserID, withdrawal.Amount, models.ReasonWithdrawalApproved, withdrawal.Reference); err != nil {
		return nil, err
	}

	withdrawal.Status = models.WithdrawalStatusApproved
	withdrawal.ActorID = &actor.ID
	withdrawal.DecidedAt = &now

	s.eventPublisher.Publish(events.WithdrawalDecidedEvent{
		WithdrawalID: withdrawal.ID,
		UserID:       withdrawal.UserID,
		Amount:       withdrawal.Amount,
		Status:       models.WithdrawalStatusApproved,
		ActorID:      actor.ID,
	})

	return withdrawal, nil
}

// RejectWithdrawal releases the earmarked funds back to the spendable
// balance and appends an unlock row documenting the release.
func (s *WalletService) RejectWithdrawal(ctx context.Context, withdrawalID int64, actor Actor) (*models.Withdrawal, error) {
	withdrawal, err := s.withdrawalRepo.GetByIDForUpdate(ctx, withdrawalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal %d: %w", withdrawalID, err)
	}
	if withdrawal == nil {
		return nil, fmt.Errorf("withdrawal %d: %w", withdrawalID, ErrNotFound)
	}

	if withdrawal.Status == models.WithdrawalStatusRejected {
		return withdrawal, nil
	}
	if withdrawal.Status != models.WithdrawalStatusPending {
		return nil, fmt.Errorf("withdrawal %d is %s: %w", withdrawalID, withdrawal.Status, ErrInvalidState)
	}

	now := time.Now()
	flipped, err := s.withdrawalRepo.Decide(ctx, withdrawalID, models.WithdrawalStatusRejected, actor.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to reject withdrawal %d: %w", withdrawalID, err)
	}
	if !flipped {
		return nil, fmt.Errorf("withdrawal %d was decided concurrently: %w", withdrawalID, ErrInvalidState)
	}

	user, err := s.userRepo.GetByIDForUpdate(ctx, withdrawal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", withdrawal.UserID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d: %w", withdrawal.UserID, ErrNotFound)
	}

	if user.LockedBalance < withdrawal.Amount {
		log.WithFields(log.Fields{
			"userID":        user.ID,
			"lockedBalance": user.LockedBalance,
			"amount":        withdrawal.Amount,
		}).Error("locked balance below withdrawal amount on release")
		return nil, fmt.Errorf("releasing %d for user %d with locked %d: %w",
			withdrawal.Amount, user.ID, user.LockedBalance, ErrLedgerCorrupted)
	}

	if err := s.userRepo.UpdateBalances(ctx, user.ID, user.WalletBalance, user.LockedBalance-withdrawal.Amount, user.BonusBalance); err != nil {
		return nil, fmt.Errorf("failed to unlock funds for user %d: %w", user.ID, err)
	}

	if _, err := s.appendRow(ctx, &models.WalletTransaction{
		UserID:      user.ID,
		Amount:      withdrawal.Amount,
		Type:        models.TransactionTypeUnlock,
		Reason:      models.ReasonWithdrawalRejected,
		ReferenceID: withdrawal.Reference,
	}); err != nil {
		return nil, err
	}

	withdrawal.Status = models.WithdrawalStatusRejected
	withdrawal.ActorID = &actor.ID
	withdrawal.DecidedAt = &now

	s.eventPublisher.Publish(events.WithdrawalDecidedEvent{
		WithdrawalID: withdrawal.ID,
		UserID:       withdrawal.UserID,
		Amount:       withdrawal.Amount,
		Status:       models.WithdrawalStatusRejected,
		ActorID:      actor.ID,
	})

	return withdrawal, nil
}

// debitLocked removes previously earmarked funds from both the wallet and
// the locked balance. A locked balance smaller than the amount means the
// ledger was corrupted upstream; the unit must abort.
func (s *WalletService) debitLocked(ctx context.Context, userID, amount int64, reason, referenceID string) error {
	user, err := s.userRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user == nil {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	if user.LockedBalance < amount {
		log.WithFields(log.Fields{
			"userID":        userID,
			"lockedBalance": user.LockedBalance,
			"amount":        amount,
		}).Error("locked balance below debit amount")
		return fmt.Errorf("debiting %d for user %d with locked %d: %w",
			amount, userID, user.LockedBalance, ErrLedgerCorrupted)
	}

	if err := s.userRepo.UpdateBalances(ctx, userID, user.WalletBalance-amount, user.LockedBalance-amount, user.BonusBalance); err != nil {
		return fmt.Errorf("failed to debit locked funds for user %d: %w", userID, err)
	}

	if _, err := s.appendRow(ctx, &models.WalletTransaction{
		UserID:      userID,
		Amount:      -amount,
		Type:        models.TransactionTypeDebit,
		Reason:      reason,
		ReferenceID: referenceID,
	}); err != nil {
		return err
	}

	return nil
}

func (s *WalletService) appendRow(ctx context.Context, txn *models.WalletTransaction) (*models.WalletTransaction, error) {
	if err := txn.Validate(); err != nil {
		return nil, NewValidationError("invalid ledger row: %v", err)
	}
	if err := s.txRepo.Append(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to append wallet transaction: %w", err)
	}
	return txn, nil
}
