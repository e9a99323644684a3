package repository

import (
	"context"
	"fmt"

	"drawhouse/database"
	"drawhouse/models"

	"github.com/jackc/pgx/v5"
)

// TicketRepository implements the TicketRepository interface. Terminal
// flips are guarded on the locked status so settlement can re-process a
// page without paying anything twice.
type TicketRepository struct {
	q queryable
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{q: db.Pool}
}

// newTicketRepositoryWithTx creates a ticket repository with a transaction
func newTicketRepositoryWithTx(tx queryable) *TicketRepository {
	return &TicketRepository{q: tx}
}

const ticketColumns = `id, run_id, user_id, type, number, amount, status, win_amount, prize_tier, created_at`

// Create persists a new ticket
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (run_id, user_id, type, number, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		ticket.RunID,
		ticket.UserID,
		ticket.Type,
		ticket.Number,
		ticket.Amount,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ticket for run %d: %w", ticket.RunID, err)
	}

	return nil
}

// GetByID retrieves a ticket by its ID
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket by ID %d: %w", id, err)
	}

	return ticket, nil
}

// LockAllOpenForRun flips every open ticket of the run to locked
func (r *TicketRepository) LockAllOpenForRun(ctx context.Context, runID int64) (int64, error) {
	query := `
		UPDATE tickets
		SET status = $3
		WHERE run_id = $1
		  AND status = $2
	`

	result, err := r.q.Exec(ctx, query, runID, models.TicketStatusOpen, models.TicketStatusLocked)
	if err != nil {
		return 0, fmt.Errorf("failed to lock tickets for run %d: %w", runID, err)
	}

	return result.RowsAffected(), nil
}

// ListPageForSettlement returns up to limit tickets of the run with id
// greater than afterID, ordered by id
func (r *TicketRepository) ListPageForSettlement(ctx context.Context, runID, afterID int64, limit int) ([]*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
		FROM tickets
		WHERE run_id = $1
		  AND id > $2
		ORDER BY id ASC
		LIMIT $3`

	rows, err := r.q.Query(ctx, query, runID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets for run %d: %w", runID, err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}

	return tickets, nil
}

// MarkWon flips a locked ticket to won with its payout
func (r *TicketRepository) MarkWon(ctx context.Context, ticketID int64, tier models.PrizeTier, winAmount int64) (bool, error) {
	query := `
		UPDATE tickets
		SET status = $4,
		    prize_tier = $2,
		    win_amount = $3
		WHERE id = $1
		  AND status = $5
	`

	result, err := r.q.Exec(ctx, query, ticketID, tier, winAmount,
		models.TicketStatusWon, models.TicketStatusLocked)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket %d won: %w", ticketID, err)
	}

	return result.RowsAffected() > 0, nil
}

// MarkLost flips a locked ticket to lost
func (r *TicketRepository) MarkLost(ctx context.Context, ticketID int64) (bool, error) {
	query := `
		UPDATE tickets
		SET status = $2
		WHERE id = $1
		  AND status = $3
	`

	result, err := r.q.Exec(ctx, query, ticketID, models.TicketStatusLost, models.TicketStatusLocked)
	if err != nil {
		return false, fmt.Errorf("failed to mark ticket %d lost: %w", ticketID, err)
	}

	return result.RowsAffected() > 0, nil
}

// SumWinAmountByRun totals win amounts across the run's tickets
func (r *TicketRepository) SumWinAmountByRun(ctx context.Context, runID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(win_amount), 0)
		FROM tickets
		WHERE run_id = $1
		  AND status = $2
	`

	var total int64
	err := r.q.QueryRow(ctx, query, runID, models.TicketStatusWon).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum win amounts for run %d: %w", runID, err)
	}

	return total, nil
}

// CountByDefinition counts tickets sold against any run of a definition
func (r *TicketRepository) CountByDefinition(ctx context.Context, definitionID int64) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM tickets t
		JOIN draw_runs dr ON dr.id = t.run_id
		WHERE dr.definition_id = $1
	`

	var count int64
	err := r.q.QueryRow(ctx, query, definitionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets for definition %d: %w", definitionID, err)
	}

	return count, nil
}

// GetByUserForRun returns a user's tickets for one run
func (r *TicketRepository) GetByUserForRun(ctx context.Context, runID, userID int64) ([]*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
		FROM tickets
		WHERE run_id = $1
		  AND user_id = $2
		ORDER BY id ASC`

	rows, err := r.q.Query(ctx, query, runID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets for user %d in run %d: %w", userID, runID, err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}

	return tickets, nil
}

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var ticket models.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.RunID,
		&ticket.UserID,
		&ticket.Type,
		&ticket.Number,
		&ticket.Amount,
		&ticket.Status,
		&ticket.WinAmount,
		&ticket.PrizeTier,
		&ticket.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}
