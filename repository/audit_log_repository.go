package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"drawhouse/database"
	"drawhouse/models"
)

// AuditLogRepository implements the AuditLogRepository interface
type AuditLogRepository struct {
	q queryable
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{q: db.Pool}
}

// newAuditLogRepositoryWithTx creates an audit log repository with a transaction
func newAuditLogRepositoryWithTx(tx queryable) *AuditLogRepository {
	return &AuditLogRepository{q: tx}
}

// Append inserts a new audit entry
func (r *AuditLogRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	query := `
		INSERT INTO audit_log (actor_id, actor_type, action, entity, entity_id, trace_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.ActorID,
		entry.ActorType,
		entry.Action,
		entry.Entity,
		entry.EntityID,
		entry.TraceID,
		metadataJSON,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append audit entry %s: %w", entry.Action, err)
	}

	return nil
}

// ListByEntity returns the most recent audit entries for one entity
func (r *AuditLogRepository) ListByEntity(ctx context.Context, entity, entityID string, limit int) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, actor_id, actor_type, action, entity, entity_id, trace_id, metadata, created_at
		FROM audit_log
		WHERE entity = $1
		  AND entity_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, entity, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries for %s %s: %w", entity, entityID, err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		var metadataJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.ActorType,
			&entry.Action,
			&entry.Entity,
			&entry.EntityID,
			&entry.TraceID,
			&metadataJSON,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, nil
}
