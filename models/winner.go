package models

import (
	"time"
)

// Winner is a denormalized, read-optimized record of one paid ticket.
// Derived data: rebuildable from tickets and wallet transactions, kept
// for reporting only.
type Winner struct {
	ID        int64     `db:"id"`
	RunID     int64     `db:"run_id"`
	TicketID  int64     `db:"ticket_id"`
	UserID    int64     `db:"user_id"`
	Number    string    `db:"number"`
	PrizeTier PrizeTier `db:"prize_tier"`
	WinAmount int64     `db:"win_amount"`
	CreatedAt time.Time `db:"created_at"`
}
