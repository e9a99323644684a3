package models

import (
	"time"
)

// DefinitionStatus represents whether a definition spawns new runs
type DefinitionStatus string

const (
	DefinitionStatusOpen     DefinitionStatus = "open"
	DefinitionStatusDisabled DefinitionStatus = "disabled"
)

// DrawDefinition is a reusable template describing a recurring draw's
// schedule and prize rules. Runs copy the config at creation time, so
// editing a definition never retroactively changes an in-flight run.
type DrawDefinition struct {
	ID        int64            `db:"id"`
	Name      string           `db:"name"`
	Schedule  string           `db:"schedule"`   // cron expression for run creation
	CloseTime string           `db:"close_time"` // "HH:MM" UTC sales cutoff, empty = manual lock
	Status    DefinitionStatus `db:"status"`
	Config    DrawConfig       `db:"config"`
	CreatedAt time.Time        `db:"created_at"`
	UpdatedAt time.Time        `db:"updated_at"`
}

// CloseAtFor resolves the sales cutoff instant for a run on the given date,
// nil when the definition has no automatic cutoff.
func (d *DrawDefinition) CloseAtFor(runDate time.Time) *time.Time {
	if d.CloseTime == "" {
		return nil
	}
	t, err := time.Parse("15:04", d.CloseTime)
	if err != nil {
		return nil
	}
	closeAt := time.Date(runDate.Year(), runDate.Month(), runDate.Day(),
		t.Hour(), t.Minute(), 0, 0, time.UTC)
	return &closeAt
}

// IsActive returns true if the definition should spawn runs
func (d *DrawDefinition) IsActive() bool {
	return d.Status == DefinitionStatusOpen
}
