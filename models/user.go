package models

import (
	"time"
)

// User holds the wallet account fields embedded in the user record.
// WalletBalance is the full balance; LockedBalance is the portion earmarked
// for pending withdrawals; BonusBalance is non-withdrawable promotional
// credit tracked separately.
type User struct {
	ID            int64     `db:"id"`
	Username      string    `db:"username"`
	WalletBalance int64     `db:"wallet_balance"`
	LockedBalance int64     `db:"locked_balance"`
	BonusBalance  int64     `db:"bonus_balance"`
	CreatedAt     time.Time `db:"created_at"`
}

// SpendableBalance is the portion of the wallet not earmarked for withdrawal
func (u *User) SpendableBalance() int64 {
	return u.WalletBalance - u.LockedBalance
}
