package models

import (
	"time"
)

// Audit actions recorded for operator-facing operations
const (
	AuditActionDefinitionCreated  = "definition_created"
	AuditActionDefinitionUpdated  = "definition_updated"
	AuditActionDefinitionDeleted  = "definition_deleted"
	AuditActionRunLocked          = "run_locked"
	AuditActionRunDrawn           = "run_drawn"
	AuditActionRunSettled         = "run_settled"
	AuditActionWithdrawalApproved = "withdrawal_approved"
	AuditActionWithdrawalRejected = "withdrawal_rejected"
)

// AuditEntry is an append-only record of who did what to which entity.
// Entries are written after commit, never inside the transactional path.
type AuditEntry struct {
	ID        int64          `db:"id"`
	ActorID   string         `db:"actor_id"`
	ActorType string         `db:"actor_type"`
	Action    string         `db:"action"`
	Entity    string         `db:"entity"`
	EntityID  string         `db:"entity_id"`
	TraceID   string         `db:"trace_id"`
	Metadata  map[string]any `db:"metadata"`
	CreatedAt time.Time      `db:"created_at"`
}
