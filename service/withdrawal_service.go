package service

import (
	"context"
	"fmt"
	"strconv"

	"drawhouse/models"

	log "github.com/sirupsen/logrus"
)

// WithdrawalService is the transactional boundary around withdrawal
// requests and operator decisions. The balance work itself lives in
// WalletService; this service owns the unit of work and the audit trail.
type WithdrawalService struct {
	uowFactory UnitOfWorkFactory
	authorizer Authorizer
}

// NewWithdrawalService creates a withdrawal service
func NewWithdrawalService(uowFactory UnitOfWorkFactory, authorizer Authorizer) *WithdrawalService {
	return &WithdrawalService{
		uowFactory: uowFactory,
		authorizer: authorizer,
	}
}

// Request earmarks spendable funds for a new pending withdrawal
func (s *WithdrawalService) Request(ctx context.Context, userID, amount int64) (*models.Withdrawal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	withdrawal, err := s.walletService(uow).RequestWithdrawal(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	log.WithFields(log.Fields{
		"withdrawalID": withdrawal.ID,
		"userID":       userID,
		"amount":       amount,
	}).Info("withdrawal requested")
	return withdrawal, nil
}

// Approve debits the earmarked funds and marks the withdrawal approved.
// Approving twice changes nothing and returns the decided withdrawal.
func (s *WithdrawalService) Approve(ctx context.Context, actor Actor, withdrawalID int64) (*models.Withdrawal, error) {
	if err := s.authorizer.Authorize(ctx, actor, ActionDecideWithdrawal); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	withdrawal, err := s.walletService(uow).ApproveWithdrawal(ctx, withdrawalID, actor)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	recordAudit(ctx, s.uowFactory, &models.AuditEntry{
		ActorID:   actor.ID,
		ActorType: actor.Type,
		Action:    models.AuditActionWithdrawalApproved,
		Entity:    "withdrawal",
		EntityID:  strconv.FormatInt(withdrawalID, 10),
		Metadata:  map[string]any{"user_id": withdrawal.UserID, "amount": withdrawal.Amount},
	})
	return withdrawal, nil
}

// Reject releases the earmarked funds back to the spendable balance
func (s *WithdrawalService) Reject(ctx context.Context, actor Actor, withdrawalID int64) (*models.Withdrawal, error) {
	if err := s.authorizer.Authorize(ctx, actor, ActionDecideWithdrawal); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	withdrawal, err := s.walletService(uow).RejectWithdrawal(ctx, withdrawalID, actor)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	recordAudit(ctx, s.uowFactory, &models.AuditEntry{
		ActorID:   actor.ID,
		ActorType: actor.Type,
		Action:    models.AuditActionWithdrawalRejected,
		Entity:    "withdrawal",
		EntityID:  strconv.FormatInt(withdrawalID, 10),
		Metadata:  map[string]any{"user_id": withdrawal.UserID, "amount": withdrawal.Amount},
	})
	return withdrawal, nil
}

func (s *WithdrawalService) walletService(uow UnitOfWork) *WalletService {
	return NewWalletService(
		uow.UserRepository(),
		uow.WalletTransactionRepository(),
		uow.WithdrawalRepository(),
		uow.EventBus(),
	)
}
