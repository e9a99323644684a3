package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"drawhouse/database"
	"drawhouse/models"

	"github.com/jackc/pgx/v5"
)

// DrawRunRepository implements the DrawRunRepository interface. Lifecycle
// flips are conditional updates guarded on the expected status, so two
// writers racing the same transition cannot both succeed.
type DrawRunRepository struct {
	q queryable
}

// NewDrawRunRepository creates a new draw run repository
func NewDrawRunRepository(db *database.DB) *DrawRunRepository {
	return &DrawRunRepository{q: db.Pool}
}

// newDrawRunRepositoryWithTx creates a run repository with a transaction
func newDrawRunRepositoryWithTx(tx queryable) *DrawRunRepository {
	return &DrawRunRepository{q: tx}
}

const drawRunColumns = `id, definition_id, family, run_date, status, config_snapshot,
	sales, open_at, close_at, result, total_payout, tier_counts, settled_at, created_at`

// CreateIfAbsent inserts a run unless one already exists for the same
// definition and date. The unique constraint makes concurrent scheduler
// instances converge on a single run.
func (r *DrawRunRepository) CreateIfAbsent(ctx context.Context, run *models.DrawRun) (*models.DrawRun, bool, error) {
	snapshotJSON, err := json.Marshal(run.ConfigSnapshot)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal config snapshot: %w", err)
	}

	query := `
		INSERT INTO draw_runs (definition_id, family, run_date, status, config_snapshot, open_at, close_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (definition_id, run_date) DO NOTHING
		RETURNING ` + drawRunColumns

	created, err := scanDrawRun(r.q.QueryRow(ctx, query,
		run.DefinitionID,
		run.Family,
		run.RunDate,
		run.Status,
		snapshotJSON,
		run.OpenAt,
		run.CloseAt,
	))
	if err == nil {
		return created, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, fmt.Errorf("failed to create draw run for definition %d: %w", run.DefinitionID, err)
	}

	// Conflict: another scheduler created it first.
	existing, err := r.getByDefinitionAndDate(ctx, run.DefinitionID, run.RunDate)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("draw run for definition %d on %s vanished after conflict",
			run.DefinitionID, run.RunDate.Format("2006-01-02"))
	}
	return existing, false, nil
}

func (r *DrawRunRepository) getByDefinitionAndDate(ctx context.Context, definitionID int64, runDate time.Time) (*models.DrawRun, error) {
	query := `SELECT ` + drawRunColumns + `
		FROM draw_runs
		WHERE definition_id = $1 AND run_date = $2`

	run, err := scanDrawRun(r.q.QueryRow(ctx, query, definitionID, runDate))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw run for definition %d: %w", definitionID, err)
	}
	return run, nil
}

// GetByID retrieves a run by its ID
func (r *DrawRunRepository) GetByID(ctx context.Context, id int64) (*models.DrawRun, error) {
	query := `SELECT ` + drawRunColumns + ` FROM draw_runs WHERE id = $1`

	run, err := scanDrawRun(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw run by ID %d: %w", id, err)
	}
	return run, nil
}

// GetByIDForUpdate retrieves a run by ID with row lock for update
func (r *DrawRunRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.DrawRun, error) {
	query := `SELECT ` + drawRunColumns + ` FROM draw_runs WHERE id = $1 FOR UPDATE`

	run, err := scanDrawRun(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw run for update by ID %d: %w", id, err)
	}
	return run, nil
}

// TransitionStatus atomically flips status from expected to next
func (r *DrawRunRepository) TransitionStatus(ctx context.Context, runID int64, expected, next models.RunStatus) (bool, error) {
	query := `
		UPDATE draw_runs
		SET status = $3
		WHERE id = $1
		  AND status = $2
	`

	result, err := r.q.Exec(ctx, query, runID, expected, next)
	if err != nil {
		return false, fmt.Errorf("failed to transition run %d from %s to %s: %w", runID, expected, next, err)
	}

	return result.RowsAffected() > 0, nil
}

// SetResult persists the drawn result while flipping running to drawn
func (r *DrawRunRepository) SetResult(ctx context.Context, runID int64, result *models.DrawResult) (bool, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal draw result: %w", err)
	}

	query := `
		UPDATE draw_runs
		SET status = $3,
		    result = $2
		WHERE id = $1
		  AND status = $4
	`

	tag, err := r.q.Exec(ctx, query, runID, resultJSON, models.RunStatusDrawn, models.RunStatusRunning)
	if err != nil {
		return false, fmt.Errorf("failed to set result for run %d: %w", runID, err)
	}

	return tag.RowsAffected() > 0, nil
}

// IncrementSales adds to the sales counter while the run is open
func (r *DrawRunRepository) IncrementSales(ctx context.Context, runID, amount int64) error {
	query := `
		UPDATE draw_runs
		SET sales = sales + $2
		WHERE id = $1
		  AND status = $3
	`

	result, err := r.q.Exec(ctx, query, runID, amount, models.RunStatusOpen)
	if err != nil {
		return fmt.Errorf("failed to increment sales for run %d: %w", runID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("draw run %d not found or not open", runID)
	}

	return nil
}

// FinalizeSettlement writes the summary and flips settling to settled
func (r *DrawRunRepository) FinalizeSettlement(ctx context.Context, runID, totalPayout int64, tierCounts map[models.PrizeTier]int64, settledAt time.Time) (bool, error) {
	tierCountsJSON, err := json.Marshal(tierCounts)
	if err != nil {
		return false, fmt.Errorf("failed to marshal tier counts: %w", err)
	}

	query := `
		UPDATE draw_runs
		SET status = $5,
		    total_payout = $2,
		    tier_counts = $3,
		    settled_at = $4
		WHERE id = $1
		  AND status = $6
	`

	result, err := r.q.Exec(ctx, query, runID, totalPayout, tierCountsJSON, settledAt,
		models.RunStatusSettled, models.RunStatusSettling)
	if err != nil {
		return false, fmt.Errorf("failed to finalize settlement for run %d: %w", runID, err)
	}

	return result.RowsAffected() > 0, nil
}

// CountNonTerminalByDefinition counts runs of a definition that have not settled
func (r *DrawRunRepository) CountNonTerminalByDefinition(ctx context.Context, definitionID int64) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM draw_runs
		WHERE definition_id = $1
		  AND status != $2
	`

	var count int64
	err := r.q.QueryRow(ctx, query, definitionID, models.RunStatusSettled).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs for definition %d: %w", definitionID, err)
	}

	return count, nil
}

// SumSalesByDefinition returns total sales across a definition's runs
func (r *DrawRunRepository) SumSalesByDefinition(ctx context.Context, definitionID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(sales), 0)
		FROM draw_runs
		WHERE definition_id = $1
	`

	var total int64
	err := r.q.QueryRow(ctx, query, definitionID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum sales for definition %d: %w", definitionID, err)
	}

	return total, nil
}

// ListOpenClosingBefore returns open runs whose close time is at or before
// the given instant
func (r *DrawRunRepository) ListOpenClosingBefore(ctx context.Context, t time.Time) ([]*models.DrawRun, error) {
	query := `SELECT ` + drawRunColumns + `
		FROM draw_runs
		WHERE status = $1
		  AND close_at IS NOT NULL
		  AND close_at <= $2
		ORDER BY close_at ASC`

	rows, err := r.q.Query(ctx, query, models.RunStatusOpen, t)
	if err != nil {
		return nil, fmt.Errorf("failed to list closing draw runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.DrawRun
	for rows.Next() {
		run, err := scanDrawRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draw runs: %w", err)
	}

	return runs, nil
}

func scanDrawRun(row pgx.Row) (*models.DrawRun, error) {
	var run models.DrawRun
	var snapshotJSON, resultJSON, tierCountsJSON []byte

	err := row.Scan(
		&run.ID,
		&run.DefinitionID,
		&run.Family,
		&run.RunDate,
		&run.Status,
		&snapshotJSON,
		&run.Sales,
		&run.OpenAt,
		&run.CloseAt,
		&resultJSON,
		&run.TotalPayout,
		&tierCountsJSON,
		&run.SettledAt,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(snapshotJSON, &run.ConfigSnapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config snapshot for run %d: %w", run.ID, err)
	}
	if resultJSON != nil {
		run.Result = &models.DrawResult{}
		if err := json.Unmarshal(resultJSON, run.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result for run %d: %w", run.ID, err)
		}
	}
	if tierCountsJSON != nil {
		if err := json.Unmarshal(tierCountsJSON, &run.TierCounts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tier counts for run %d: %w", run.ID, err)
		}
	}

	return &run, nil
}
