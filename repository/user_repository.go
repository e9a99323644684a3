package repository

import (
	"context"
	"fmt"

	"drawhouse/database"
	"drawhouse/models"

	"github.com/jackc/pgx/v5"
)

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, wallet_balance, locked_balance, bonus_balance, created_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.WalletBalance,
		&user.LockedBalance,
		&user.BonusBalance,
		&user.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID %d: %w", id, err)
	}

	return &user, nil
}

// GetByIDForUpdate retrieves a user with a row lock held for the transaction
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, wallet_balance, locked_balance, bonus_balance, created_at
		FROM users
		WHERE id = $1
		FOR UPDATE
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.WalletBalance,
		&user.LockedBalance,
		&user.BonusBalance,
		&user.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user for update by ID %d: %w", id, err)
	}

	return &user, nil
}

// Create creates a new user with the given starting balance
func (r *UserRepository) Create(ctx context.Context, username string, initialBalance int64) (*models.User, error) {
	query := `
		INSERT INTO users (username, wallet_balance)
		VALUES ($1, $2)
		RETURNING id, username, wallet_balance, locked_balance, bonus_balance, created_at
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, username, initialBalance).Scan(
		&user.ID,
		&user.Username,
		&user.WalletBalance,
		&user.LockedBalance,
		&user.BonusBalance,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", username, err)
	}

	return &user, nil
}

// UpdateBalances writes all three balance fields atomically. The check
// constraint on the table rejects a locked balance above the wallet.
func (r *UserRepository) UpdateBalances(ctx context.Context, id, walletBalance, lockedBalance, bonusBalance int64) error {
	query := `
		UPDATE users
		SET wallet_balance = $2,
		    locked_balance = $3,
		    bonus_balance = $4
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, walletBalance, lockedBalance, bonusBalance)
	if err != nil {
		return fmt.Errorf("failed to update balances for user %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user with ID %d not found", id)
	}

	return nil
}
