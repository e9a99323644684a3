package repository

import (
	"context"
	"fmt"

	"drawhouse/database"
	"drawhouse/models"

	"github.com/jackc/pgx/v5"
)

// WalletTransactionRepository implements the append-only ledger. There is
// deliberately no update or delete method.
type WalletTransactionRepository struct {
	q queryable
}

// NewWalletTransactionRepository creates a new ledger repository
func NewWalletTransactionRepository(db *database.DB) *WalletTransactionRepository {
	return &WalletTransactionRepository{q: db.Pool}
}

// newWalletTransactionRepositoryWithTx creates a ledger repository with a transaction
func newWalletTransactionRepositoryWithTx(tx queryable) *WalletTransactionRepository {
	return &WalletTransactionRepository{q: tx}
}

// Append inserts a new ledger row
func (r *WalletTransactionRepository) Append(ctx context.Context, txn *models.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (user_id, amount, type, reason, reference_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		txn.UserID,
		txn.Amount,
		txn.Type,
		txn.Reason,
		txn.ReferenceID,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append wallet transaction for user %d: %w", txn.UserID, err)
	}

	return nil
}

// GetByUser returns the most recent ledger rows for a user
func (r *WalletTransactionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.WalletTransaction, error) {
	query := `
		SELECT id, user_id, amount, type, reason, reference_id, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	return scanWalletTransactions(rows)
}

// GetByReference returns all rows tied to an originating entity
func (r *WalletTransactionRepository) GetByReference(ctx context.Context, referenceID string) ([]*models.WalletTransaction, error) {
	query := `
		SELECT id, user_id, amount, type, reason, reference_id, created_at
		FROM wallet_transactions
		WHERE reference_id = $1
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query, referenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet transactions for reference %s: %w", referenceID, err)
	}
	defer rows.Close()

	return scanWalletTransactions(rows)
}

// SumCreditsByReferencePrefix sums credit amounts whose reference id starts
// with the given prefix
func (r *WalletTransactionRepository) SumCreditsByReferencePrefix(ctx context.Context, prefix string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE type = $1
		  AND reference_id LIKE $2 || '%'
	`

	var total int64
	err := r.q.QueryRow(ctx, query, models.TransactionTypeCredit, prefix).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum credits for reference prefix %s: %w", prefix, err)
	}

	return total, nil
}

func scanWalletTransactions(rows pgx.Rows) ([]*models.WalletTransaction, error) {
	var txns []*models.WalletTransaction
	for rows.Next() {
		var txn models.WalletTransaction
		err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.Amount,
			&txn.Type,
			&txn.Reason,
			&txn.ReferenceID,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		txns = append(txns, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wallet transactions: %w", err)
	}

	return txns, nil
}
