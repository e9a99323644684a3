package models

import (
	"errors"
	"time"
)

// TransactionType represents the kind of ledger entry
type TransactionType string

const (
	// TransactionTypeCredit adds spendable funds (payouts, deposits).
	TransactionTypeCredit TransactionType = "credit"

	// TransactionTypeDebit removes funds (ticket stakes, approved withdrawals).
	TransactionTypeDebit TransactionType = "debit"

	// TransactionTypeBonus grants promotional balance.
	TransactionTypeBonus TransactionType = "bonus"

	// TransactionTypeUnlock releases earmarked withdrawal funds back to
	// spendable balance without changing the wallet total.
	TransactionTypeUnlock TransactionType = "unlock"
)

// Ledger reasons recorded on transaction rows
const (
	ReasonTicketPurchase     = "ticket_purchase"
	ReasonDrawWin            = "draw_win"
	ReasonDeposit            = "deposit"
	ReasonBonusGrant         = "bonus_grant"
	ReasonWithdrawalApproved = "withdrawal_approved"
	ReasonWithdrawalRejected = "withdrawal_rejected"
)

// WalletTransaction is an immutable ledger row. A wallet balance never
// changes without one of these being appended in the same atomic unit,
// together with the state change of the object that triggered it.
type WalletTransaction struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	Amount      int64           `db:"amount"` // signed
	Type        TransactionType `db:"type"`
	Reason      string          `db:"reason"`
	ReferenceID string          `db:"reference_id"` // originating ticket/withdrawal/topup
	CreatedAt   time.Time       `db:"created_at"`
}

// Validate performs basic consistency checks before the row is appended
func (t *WalletTransaction) Validate() error {
	if t.Amount == 0 {
		return errors.New("transaction amount cannot be zero")
	}
	if t.Type == TransactionTypeCredit || t.Type == TransactionTypeBonus {
		if t.Amount < 0 {
			return errors.New("credit amount must be positive")
		}
	}
	if t.Type == TransactionTypeDebit && t.Amount > 0 {
		return errors.New("debit amount must be negative")
	}
	if t.ReferenceID == "" {
		return errors.New("transaction reference is required")
	}
	return nil
}
