package service

import (
	"context"

	"drawhouse/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// recordAudit appends an audit entry in its own transaction. It runs only
// after the financial unit has committed and is best-effort: failures are
// logged, never propagated.
func recordAudit(ctx context.Context, factory UnitOfWorkFactory, entry *models.AuditEntry) {
	if entry.TraceID == "" {
		entry.TraceID = uuid.NewString()
	}

	uow := factory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).WithField("action", entry.Action).Warn("failed to begin audit transaction")
		return
	}

	if err := uow.AuditLogRepository().Append(ctx, entry); err != nil {
		log.WithError(err).WithField("action", entry.Action).Warn("failed to append audit entry")
		uow.Rollback()
		return
	}

	if err := uow.Commit(); err != nil {
		log.WithError(err).WithField("action", entry.Action).Warn("failed to commit audit entry")
	}
}
