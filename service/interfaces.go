package service

import (
	"context"
	"time"

	"drawhouse/events"
	"drawhouse/models"
)

// UserRepository defines data access for users and their wallet fields
type UserRepository interface {
	// GetByID retrieves a user by id, nil if absent
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByIDForUpdate retrieves a user with a row lock held for the
	// remainder of the transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error)

	// Create creates a new user with the given starting balance
	Create(ctx context.Context, username string, initialBalance int64) (*models.User, error)

	// UpdateBalances writes all three balance fields atomically
	UpdateBalances(ctx context.Context, id, walletBalance, lockedBalance, bonusBalance int64) error
}

// WalletTransactionRepository appends and reads immutable ledger rows
type WalletTransactionRepository interface {
	// Append inserts a new ledger row; rows are never updated or deleted
	Append(ctx context.Context, txn *models.WalletTransaction) error

	// GetByUser returns the most recent ledger rows for a user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.WalletTransaction, error)

	// GetByReference returns all rows tied to an originating entity
	GetByReference(ctx context.Context, referenceID string) ([]*models.WalletTransaction, error)

	// SumCreditsByReferencePrefix sums credit amounts whose reference id
	// starts with the given prefix (used for run payout reconciliation)
	SumCreditsByReferencePrefix(ctx context.Context, prefix string) (int64, error)
}

// DrawDefinitionRepository defines data access for draw definitions
type DrawDefinitionRepository interface {
	Create(ctx context.Context, def *models.DrawDefinition) error
	GetByID(ctx context.Context, id int64) (*models.DrawDefinition, error)
	Update(ctx context.Context, def *models.DrawDefinition) error
	Delete(ctx context.Context, id int64) error

	// GetActive returns all definitions that should spawn runs
	GetActive(ctx context.Context) ([]*models.DrawDefinition, error)
}

// DrawRunRepository defines data access for draw runs. Status flips are
// conditional writes: they succeed only when the run is still in the
// expected state, which makes check-then-set indivisible.
type DrawRunRepository interface {
	// CreateIfAbsent inserts a run unless one already exists for the same
	// definition and date. Returns the run and whether it was created.
	CreateIfAbsent(ctx context.Context, run *models.DrawRun) (*models.DrawRun, bool, error)

	GetByID(ctx context.Context, id int64) (*models.DrawRun, error)

	// GetByIDForUpdate retrieves a run with a row lock for the transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*models.DrawRun, error)

	// TransitionStatus atomically flips status from expected to next.
	// Returns false when another writer moved the run first.
	TransitionStatus(ctx context.Context, runID int64, expected, next models.RunStatus) (bool, error)

	// SetResult persists the drawn result while flipping running to drawn
	SetResult(ctx context.Context, runID int64, result *models.DrawResult) (bool, error)

	// IncrementSales adds to the sales counter while the run is open
	IncrementSales(ctx context.Context, runID, amount int64) error

	// FinalizeSettlement writes the summary and flips settling to settled
	FinalizeSettlement(ctx context.Context, runID, totalPayout int64, tierCounts map[models.PrizeTier]int64, settledAt time.Time) (bool, error)

	// CountNonTerminalByDefinition counts runs of a definition that have
	// not reached the terminal state
	CountNonTerminalByDefinition(ctx context.Context, definitionID int64) (int64, error)

	// SumSalesByDefinition returns total sales across a definition's runs
	SumSalesByDefinition(ctx context.Context, definitionID int64) (int64, error)

	// ListOpenClosingBefore returns open runs whose close time is at or
	// before the given instant
	ListOpenClosingBefore(ctx context.Context, t time.Time) ([]*models.DrawRun, error)
}

// TicketRepository defines data access for tickets
type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id int64) (*models.Ticket, error)

	// LockAllOpenForRun flips every open ticket of the run to locked and
	// returns how many were flipped
	LockAllOpenForRun(ctx context.Context, runID int64) (int64, error)

	// ListPageForSettlement returns up to limit tickets of the run with
	// id greater than afterID, ordered by id
	ListPageForSettlement(ctx context.Context, runID, afterID int64, limit int) ([]*models.Ticket, error)

	// MarkWon flips a locked ticket to won with its payout. Returns false
	// if the ticket was not in the locked state (already processed).
	MarkWon(ctx context.Context, ticketID int64, tier models.PrizeTier, winAmount int64) (bool, error)

	// MarkLost flips a locked ticket to lost. Returns false if the ticket
	// was not in the locked state.
	MarkLost(ctx context.Context, ticketID int64) (bool, error)

	// SumWinAmountByRun totals win amounts across the run's tickets
	SumWinAmountByRun(ctx context.Context, runID int64) (int64, error)

	// CountByDefinition counts tickets sold against any run of a definition
	CountByDefinition(ctx context.Context, definitionID int64) (int64, error)

	// GetByUserForRun returns a user's tickets for one run
	GetByUserForRun(ctx context.Context, runID, userID int64) ([]*models.Ticket, error)
}

// WinnerRepository defines data access for denormalized winner records
type WinnerRepository interface {
	Create(ctx context.Context, winner *models.Winner) error
	ListByRun(ctx context.Context, runID int64) ([]*models.Winner, error)

	// CountByTier returns winner counts per prize tier for a run
	CountByTier(ctx context.Context, runID int64) (map[models.PrizeTier]int64, error)
}

// WithdrawalRepository defines data access for withdrawal requests
type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	GetByID(ctx context.Context, id int64) (*models.Withdrawal, error)

	// GetByIDForUpdate retrieves a withdrawal with a row lock
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error)

	// Decide atomically flips a pending withdrawal to the given status.
	// Returns false when the withdrawal was already decided.
	Decide(ctx context.Context, id int64, status models.WithdrawalStatus, actorID string, decidedAt time.Time) (bool, error)
}

// AuditLogRepository appends operator audit entries
type AuditLogRepository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByEntity(ctx context.Context, entity, entityID string, limit int) ([]*models.AuditEntry, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork represents one atomic multi-entity read-modify-write unit.
// Repositories obtained from it share a single database transaction;
// events published through its bus are flushed only after commit.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() UserRepository
	WalletTransactionRepository() WalletTransactionRepository
	DrawDefinitionRepository() DrawDefinitionRepository
	DrawRunRepository() DrawRunRepository
	TicketRepository() TicketRepository
	WinnerRepository() WinnerRepository
	WithdrawalRepository() WithdrawalRepository
	AuditLogRepository() AuditLogRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// Actor identifies the authenticated caller of a state-changing operation.
// The engine trusts the upstream auth layer; the id is opaque and used for
// audit attribution only.
type Actor struct {
	ID   string
	Type string
}

// Authorizer answers whether an actor may perform an action
type Authorizer interface {
	Authorize(ctx context.Context, actor Actor, action string) error
}

// Notification carries the payload handed to the external dispatcher
type Notification struct {
	Title       string
	Body        string
	Screen      string
	Action      string
	ReferenceID string
}

// Notifier delivers user notifications best-effort. Failures are logged
// and swallowed, never propagated into the financial path.
type Notifier interface {
	Notify(ctx context.Context, userID int64, n Notification) error
}
