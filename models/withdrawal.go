package models

import (
	"time"
)

// WithdrawalStatus represents the state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// IsDecided returns true once the withdrawal has been approved or rejected
func (s WithdrawalStatus) IsDecided() bool {
	return s == WithdrawalStatusApproved || s == WithdrawalStatusRejected
}

// Withdrawal is a request to move locked wallet funds out of the platform.
// Requesting earmarks the amount as locked balance; approval debits both
// the wallet and the locked balance in one unit; rejection releases the
// earmark back to spendable funds.
type Withdrawal struct {
	ID        int64            `db:"id"`
	UserID    int64            `db:"user_id"`
	Amount    int64            `db:"amount"`
	Reference string           `db:"reference"` // opaque id used on ledger rows
	Status    WithdrawalStatus `db:"status"`
	ActorID   *string          `db:"actor_id"` // operator who decided
	CreatedAt time.Time        `db:"created_at"`
	DecidedAt *time.Time       `db:"decided_at"`
}
