package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"drawhouse/database"
	"drawhouse/models"

	"github.com/jackc/pgx/v5"
)

// DrawDefinitionRepository implements the DrawDefinitionRepository interface
type DrawDefinitionRepository struct {
	q queryable
}

// NewDrawDefinitionRepository creates a new draw definition repository
func NewDrawDefinitionRepository(db *database.DB) *DrawDefinitionRepository {
	return &DrawDefinitionRepository{q: db.Pool}
}

// newDrawDefinitionRepositoryWithTx creates a definition repository with a transaction
func newDrawDefinitionRepositoryWithTx(tx queryable) *DrawDefinitionRepository {
	return &DrawDefinitionRepository{q: tx}
}

// Create persists a new draw definition
func (r *DrawDefinitionRepository) Create(ctx context.Context, def *models.DrawDefinition) error {
	configJSON, err := json.Marshal(def.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal draw config: %w", err)
	}

	query := `
		INSERT INTO draw_definitions (name, schedule, close_time, status, family, config)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err = r.q.QueryRow(ctx, query,
		def.Name,
		def.Schedule,
		def.CloseTime,
		def.Status,
		def.Config.Family,
		configJSON,
	).Scan(&def.ID, &def.CreatedAt, &def.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create draw definition %s: %w", def.Name, err)
	}

	return nil
}

// GetByID retrieves a definition by id
func (r *DrawDefinitionRepository) GetByID(ctx context.Context, id int64) (*models.DrawDefinition, error) {
	query := `
		SELECT id, name, schedule, close_time, status, config, created_at, updated_at
		FROM draw_definitions
		WHERE id = $1
	`

	def, err := scanDrawDefinition(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draw definition by ID %d: %w", id, err)
	}

	return def, nil
}

// Update replaces a definition's mutable fields
func (r *DrawDefinitionRepository) Update(ctx context.Context, def *models.DrawDefinition) error {
	configJSON, err := json.Marshal(def.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal draw config: %w", err)
	}

	query := `
		UPDATE draw_definitions
		SET name = $2,
		    schedule = $3,
		    close_time = $4,
		    status = $5,
		    family = $6,
		    config = $7,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		def.ID,
		def.Name,
		def.Schedule,
		def.CloseTime,
		def.Status,
		def.Config.Family,
		configJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update draw definition %d: %w", def.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("draw definition with ID %d not found", def.ID)
	}

	return nil
}

// Delete removes a definition
func (r *DrawDefinitionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM draw_definitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete draw definition %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("draw definition with ID %d not found", id)
	}

	return nil
}

// GetActive returns all definitions that should spawn runs
func (r *DrawDefinitionRepository) GetActive(ctx context.Context) ([]*models.DrawDefinition, error) {
	query := `
		SELECT id, name, schedule, close_time, status, config, created_at, updated_at
		FROM draw_definitions
		WHERE status = $1
		ORDER BY id ASC
	`

	rows, err := r.q.Query(ctx, query, models.DefinitionStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to get active draw definitions: %w", err)
	}
	defer rows.Close()

	var defs []*models.DrawDefinition
	for rows.Next() {
		def, err := scanDrawDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draw definition: %w", err)
		}
		defs = append(defs, def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draw definitions: %w", err)
	}

	return defs, nil
}

func scanDrawDefinition(row pgx.Row) (*models.DrawDefinition, error) {
	var def models.DrawDefinition
	var configJSON []byte

	err := row.Scan(
		&def.ID,
		&def.Name,
		&def.Schedule,
		&def.CloseTime,
		&def.Status,
		&configJSON,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(configJSON, &def.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draw config for definition %d: %w", def.ID, err)
	}

	return &def, nil
}
