package service

import (
	"context"
	"time"

	"drawhouse/events"
	"drawhouse/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, username string, initialBalance int64) (*models.User, error) {
	args := m.Called(ctx, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateBalances(ctx context.Context, id, walletBalance, lockedBalance, bonusBalance int64) error {
	args := m.Called(ctx, id, walletBalance, lockedBalance, bonusBalance)
	return args.Error(0)
}

// MockWalletTransactionRepository is a mock implementation of WalletTransactionRepository
type MockWalletTransactionRepository struct {
	mock.Mock
}

func (m *MockWalletTransactionRepository) Append(ctx context.Context, txn *models.WalletTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockWalletTransactionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.WalletTransaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WalletTransaction), args.Error(1)
}

func (m *MockWalletTransactionRepository) GetByReference(ctx context.Context, referenceID string) ([]*models.WalletTransaction, error) {
	args := m.Called(ctx, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WalletTransaction), args.Error(1)
}

func (m *MockWalletTransactionRepository) SumCreditsByReferencePrefix(ctx context.Context, prefix string) (int64, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).(int64), args.Error(1)
}

// MockDrawDefinitionRepository is a mock implementation of DrawDefinitionRepository
type MockDrawDefinitionRepository struct {
	mock.Mock
}

func (m *MockDrawDefinitionRepository) Create(ctx context.Context, def *models.DrawDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *MockDrawDefinitionRepository) GetByID(ctx context.Context, id int64) (*models.DrawDefinition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DrawDefinition), args.Error(1)
}

func (m *MockDrawDefinitionRepository) Update(ctx context.Context, def *models.DrawDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *MockDrawDefinitionRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDrawDefinitionRepository) GetActive(ctx context.Context) ([]*models.DrawDefinition, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DrawDefinition), args.Error(1)
}

// MockDrawRunRepository is a mock implementation of DrawRunRepository
type MockDrawRunRepository struct {
	mock.Mock
}

func (m *MockDrawRunRepository) CreateIfAbsent(ctx context.Context, run *models.DrawRun) (*models.DrawRun, bool, error) {
	args := m.Called(ctx, run)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.DrawRun), args.Bool(1), args.Error(2)
}

func (m *MockDrawRunRepository) GetByID(ctx context.Context, id int64) (*models.DrawRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DrawRun), args.Error(1)
}

func (m *MockDrawRunRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.DrawRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DrawRun), args.Error(1)
}

func (m *MockDrawRunRepository) TransitionStatus(ctx context.Context, runID int64, expected, next models.RunStatus) (bool, error) {
	args := m.Called(ctx, runID, expected, next)
	return args.Bool(0), args.Error(1)
}

func (m *MockDrawRunRepository) SetResult(ctx context.Context, runID int64, result *models.DrawResult) (bool, error) {
	args := m.Called(ctx, runID, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockDrawRunRepository) IncrementSales(ctx context.Context, runID, amount int64) error {
	args := m.Called(ctx, runID, amount)
	return args.Error(0)
}

func (m *MockDrawRunRepository) FinalizeSettlement(ctx context.Context, runID, totalPayout int64, tierCounts map[models.PrizeTier]int64, settledAt time.Time) (bool, error) {
	args := m.Called(ctx, runID, totalPayout, tierCounts, settledAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockDrawRunRepository) CountNonTerminalByDefinition(ctx context.Context, definitionID int64) (int64, error) {
	args := m.Called(ctx, definitionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDrawRunRepository) SumSalesByDefinition(ctx context.Context, definitionID int64) (int64, error) {
	args := m.Called(ctx, definitionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDrawRunRepository) ListOpenClosingBefore(ctx context.Context, t time.Time) ([]*models.DrawRun, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DrawRun), args.Error(1)
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) LockAllOpenForRun(ctx context.Context, runID int64) (int64, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) ListPageForSettlement(ctx context.Context, runID, afterID int64, limit int) ([]*models.Ticket, error) {
	args := m.Called(ctx, runID, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) MarkWon(ctx context.Context, ticketID int64, tier models.PrizeTier, winAmount int64) (bool, error) {
	args := m.Called(ctx, ticketID, tier, winAmount)
	return args.Bool(0), args.Error(1)
}

func (m *MockTicketRepository) MarkLost(ctx context.Context, ticketID int64) (bool, error) {
	args := m.Called(ctx, ticketID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTicketRepository) SumWinAmountByRun(ctx context.Context, runID int64) (int64, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) CountByDefinition(ctx context.Context, definitionID int64) (int64, error) {
	args := m.Called(ctx, definitionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) GetByUserForRun(ctx context.Context, runID, userID int64) ([]*models.Ticket, error) {
	args := m.Called(ctx, runID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

// MockWinnerRepository is a mock implementation of WinnerRepository
type MockWinnerRepository struct {
	mock.Mock
}

func (m *MockWinnerRepository) Create(ctx context.Context, winner *models.Winner) error {
	args := m.Called(ctx, winner)
	return args.Error(0)
}

func (m *MockWinnerRepository) ListByRun(ctx context.Context, runID int64) ([]*models.Winner, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Winner), args.Error(1)
}

func (m *MockWinnerRepository) CountByTier(ctx context.Context, runID int64) (map[models.PrizeTier]int64, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.PrizeTier]int64), args.Error(1)
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository
type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, w *models.Withdrawal) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) Decide(ctx context.Context, id int64, status models.WithdrawalStatus, actorID string, decidedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, status, actorID, decidedAt)
	return args.Bool(0), args.Error(1)
}

// MockAuditLogRepository is a mock implementation of AuditLogRepository
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogRepository) ListByEntity(ctx context.Context, entity, entityID string, limit int) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, entity, entityID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditEntry), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock unit of work handing out the configured
// repository mocks
type MockUnitOfWork struct {
	mock.Mock
	userRepo       UserRepository
	walletTxRepo   WalletTransactionRepository
	definitionRepo DrawDefinitionRepository
	runRepo        DrawRunRepository
	ticketRepo     TicketRepository
	winnerRepo     WinnerRepository
	withdrawalRepo WithdrawalRepository
	auditRepo      AuditLogRepository
	eventBus       EventPublisher
}

// SetRepositories wires the repository mocks this unit of work hands out.
// Nil arguments are fine for repositories the test never touches.
func (m *MockUnitOfWork) SetRepositories(
	userRepo UserRepository,
	walletTxRepo WalletTransactionRepository,
	definitionRepo DrawDefinitionRepository,
	runRepo DrawRunRepository,
	ticketRepo TicketRepository,
	winnerRepo WinnerRepository,
	withdrawalRepo WithdrawalRepository,
	auditRepo AuditLogRepository,
	eventBus EventPublisher,
) {
	m.userRepo = userRepo
	m.walletTxRepo = walletTxRepo
	m.definitionRepo = definitionRepo
	m.runRepo = runRepo
	m.ticketRepo = ticketRepo
	m.winnerRepo = winnerRepo
	m.withdrawalRepo = withdrawalRepo
	m.auditRepo = auditRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository { return m.userRepo }

func (m *MockUnitOfWork) WalletTransactionRepository() WalletTransactionRepository {
	return m.walletTxRepo
}

func (m *MockUnitOfWork) DrawDefinitionRepository() DrawDefinitionRepository {
	return m.definitionRepo
}

func (m *MockUnitOfWork) DrawRunRepository() DrawRunRepository { return m.runRepo }

func (m *MockUnitOfWork) TicketRepository() TicketRepository { return m.ticketRepo }

func (m *MockUnitOfWork) WinnerRepository() WinnerRepository { return m.winnerRepo }

func (m *MockUnitOfWork) WithdrawalRepository() WithdrawalRepository { return m.withdrawalRepo }

func (m *MockUnitOfWork) AuditLogRepository() AuditLogRepository { return m.auditRepo }

func (m *MockUnitOfWork) EventBus() EventPublisher { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
