package repository

import (
	"context"
	"fmt"
	"time"

	"drawhouse/database"
	"drawhouse/models"

	"github.com/jackc/pgx/v5"
)

// WithdrawalRepository implements the WithdrawalRepository interface
type WithdrawalRepository struct {
	q queryable
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *database.DB) *WithdrawalRepository {
	return &WithdrawalRepository{q: db.Pool}
}

// newWithdrawalRepositoryWithTx creates a withdrawal repository with a transaction
func newWithdrawalRepositoryWithTx(tx queryable) *WithdrawalRepository {
	return &WithdrawalRepository{q: tx}
}

const withdrawalColumns = `id, user_id, amount, reference, status, actor_id, created_at, decided_at`

// Create persists a new pending withdrawal
func (r *WithdrawalRepository) Create(ctx context.Context, w *models.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (user_id, amount, reference, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		w.UserID,
		w.Amount,
		w.Reference,
		w.Status,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal for user %d: %w", w.UserID, err)
	}

	return nil
}

// GetByID retrieves a withdrawal by its ID
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`

	w, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal by ID %d: %w", id, err)
	}

	return w, nil
}

// GetByIDForUpdate retrieves a withdrawal with a row lock
func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 FOR UPDATE`

	w, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal for update by ID %d: %w", id, err)
	}

	return w, nil
}

// Decide atomically flips a pending withdrawal to the given status
func (r *WithdrawalRepository) Decide(ctx context.Context, id int64, status models.WithdrawalStatus, actorID string, decidedAt time.Time) (bool, error) {
	query := `
		UPDATE withdrawals
		SET status = $2,
		    actor_id = $3,
		    decided_at = $4
		WHERE id = $1
		  AND status = $5
	`

	result, err := r.q.Exec(ctx, query, id, status, actorID, decidedAt, models.WithdrawalStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to decide withdrawal %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

func scanWithdrawal(row pgx.Row) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Amount,
		&w.Reference,
		&w.Status,
		&w.ActorID,
		&w.CreatedAt,
		&w.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
