package models

import (
	"time"
)

// TicketStatus represents the lifecycle state of a ticket
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusLocked TicketStatus = "locked"
	TicketStatusWon    TicketStatus = "won"
	TicketStatusLost   TicketStatus = "lost"
)

// IsTerminal returns true once a ticket has been classified. Terminal
// tickets are never revisited by settlement.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusWon || s == TicketStatusLost
}

// Ticket records one purchased entry against a draw run. Tickets are
// created only while the run is open, flip to locked with the run, and
// reach exactly one terminal state during settlement.
type Ticket struct {
	ID        int64        `db:"id"`
	RunID     int64        `db:"run_id"`
	UserID    int64        `db:"user_id"`
	Type      TicketType   `db:"type"`
	Number    string       `db:"number"` // zero-padded
	Amount    int64        `db:"amount"` // stake
	Status    TicketStatus `db:"status"`
	WinAmount int64        `db:"win_amount"`
	PrizeTier *PrizeTier   `db:"prize_tier"`
	CreatedAt time.Time    `db:"created_at"`
}
