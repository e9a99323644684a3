package repository

import (
	"context"
	"fmt"

	"drawhouse/database"
	"drawhouse/models"
)

// WinnerRepository implements the WinnerRepository interface
type WinnerRepository struct {
	q queryable
}

// NewWinnerRepository creates a new winner repository
func NewWinnerRepository(db *database.DB) *WinnerRepository {
	return &WinnerRepository{q: db.Pool}
}

// newWinnerRepositoryWithTx creates a winner repository with a transaction
func newWinnerRepositoryWithTx(tx queryable) *WinnerRepository {
	return &WinnerRepository{q: tx}
}

// Create persists a winner record. The unique constraint on ticket_id
// rejects a second record for the same ticket.
func (r *WinnerRepository) Create(ctx context.Context, winner *models.Winner) error {
	query := `
		INSERT INTO winners (run_id, ticket_id, user_id, number, prize_tier, win_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		winner.RunID,
		winner.TicketID,
		winner.UserID,
		winner.Number,
		winner.PrizeTier,
		winner.WinAmount,
	).Scan(&winner.ID, &winner.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create winner for ticket %d: %w", winner.TicketID, err)
	}

	return nil
}

// ListByRun returns all winner records for a run
func (r *WinnerRepository) ListByRun(ctx context.Context, runID int64) ([]*models.Winner, error) {
	query := `
		SELECT id, run_id, ticket_id, user_id, number, prize_tier, win_amount, created_at
		FROM winners
		WHERE run_id = $1
		ORDER BY win_amount DESC, id ASC
	`

	rows, err := r.q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list winners for run %d: %w", runID, err)
	}
	defer rows.Close()

	var winners []*models.Winner
	for rows.Next() {
		var winner models.Winner
		err := rows.Scan(
			&winner.ID,
			&winner.RunID,
			&winner.TicketID,
			&winner.UserID,
			&winner.Number,
			&winner.PrizeTier,
			&winner.WinAmount,
			&winner.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, &winner)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate winners: %w", err)
	}

	return winners, nil
}

// CountByTier returns winner counts per prize tier for a run
func (r *WinnerRepository) CountByTier(ctx context.Context, runID int64) (map[models.PrizeTier]int64, error) {
	query := `
		SELECT prize_tier, COUNT(*)
		FROM winners
		WHERE run_id = $1
		GROUP BY prize_tier
	`

	rows, err := r.q.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count winners for run %d: %w", runID, err)
	}
	defer rows.Close()

	counts := make(map[models.PrizeTier]int64)
	for rows.Next() {
		var tier models.PrizeTier
		var count int64
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("failed to scan winner count: %w", err)
		}
		counts[tier] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate winner counts: %w", err)
	}

	return counts, nil
}
