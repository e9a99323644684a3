package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// RunStatus represents the lifecycle state of a draw run
type RunStatus string

const (
	// RunStatusOpen is the only state in which tickets may be created
	// and sales incremented.
	RunStatusOpen RunStatus = "open"

	// RunStatusLocked means sales are closed; no new stake can affect
	// the outcome.
	RunStatusLocked RunStatus = "locked"

	// RunStatusRunning is a transient guard held while the random result
	// is being generated, preventing a second concurrent trigger.
	RunStatusRunning RunStatus = "running"

	// RunStatusDrawn means a result exists but payouts are not yet applied.
	RunStatusDrawn RunStatus = "drawn"

	// RunStatusSettling is a transient guard held while payouts are being
	// applied, preventing a second concurrent settlement.
	RunStatusSettling RunStatus = "settling"

	// RunStatusSettled is terminal. Repeated settlement of a settled run
	// returns the stored summary without re-execution.
	RunStatusSettled RunStatus = "settled"
)

// IsTerminal returns true for the final lifecycle state
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSettled
}

// CanTransitionTo reports whether moving to next is a legal lifecycle step
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	switch s {
	case RunStatusOpen:
		return next == RunStatusLocked
	case RunStatusLocked:
		return next == RunStatusRunning
	case RunStatusRunning:
		return next == RunStatusDrawn
	case RunStatusDrawn:
		return next == RunStatusSettling
	case RunStatusSettling:
		return next == RunStatusSettled
	default:
		return false
	}
}

// DrawResult holds the randomly drawn outcome of a run.
// Fixed-number draws carry one winning number per enabled ticket type;
// digit-slot and jackpot draws carry a single zero-padded winning number.
type DrawResult struct {
	Numbers       map[TicketType]string `json:"numbers,omitempty"`
	WinningNumber string                `json:"winning_number,omitempty"`
}

// DrawRun is one concrete scheduled occurrence of a definition, with its
// own sales, result and settlement summary. The config snapshot is copied
// from the definition at creation time and never changes afterwards.
type DrawRun struct {
	ID             int64               `db:"id"`
	DefinitionID   int64               `db:"definition_id"`
	Family         DrawFamily          `db:"family"`
	RunDate        time.Time           `db:"run_date"`
	Status         RunStatus           `db:"status"`
	ConfigSnapshot DrawConfig          `db:"config_snapshot"`
	Sales          int64               `db:"sales"`
	OpenAt         *time.Time          `db:"open_at"`  // digit slots only
	CloseAt        *time.Time          `db:"close_at"` // digit slots only
	Result         *DrawResult         `db:"result"`
	TotalPayout    int64               `db:"total_payout"`
	TierCounts     map[PrizeTier]int64 `db:"tier_counts"`
	SettledAt      *time.Time          `db:"settled_at"`
	CreatedAt      time.Time           `db:"created_at"`
}

// IsSettled returns true once the run has reached its terminal state
func (r *DrawRun) IsSettled() bool {
	return r.Status == RunStatusSettled
}

// CanSellTickets returns true while the run accepts new tickets
func (r *DrawRun) CanSellTickets(now time.Time) bool {
	if r.Status != RunStatusOpen {
		return false
	}
	if r.OpenAt != nil && now.Before(*r.OpenAt) {
		return false
	}
	if r.CloseAt != nil && !now.Before(*r.CloseAt) {
		return false
	}
	return true
}

// GenerateResult produces a cryptographically random result for the run's
// family. Fixed-number runs get one number per enabled type; digit families
// get a single zero-padded number of the configured length.
func (r *DrawRun) GenerateResult() (*DrawResult, error) {
	switch r.Family {
	case FamilyFixedNumber:
		numbers := make(map[TicketType]string, len(r.ConfigSnapshot.FixedNumber.EnabledTypes))
		for _, t := range r.ConfigSnapshot.FixedNumber.EnabledTypes {
			num, err := randomPaddedNumber(t.NumberLength())
			if err != nil {
				return nil, err
			}
			numbers[t] = num
		}
		return &DrawResult{Numbers: numbers}, nil
	case FamilyDigitSlot, FamilyJackpot:
		num, err := randomPaddedNumber(r.ConfigSnapshot.Digits())
		if err != nil {
			return nil, err
		}
		return &DrawResult{WinningNumber: num}, nil
	default:
		return nil, fmt.Errorf("unknown draw family %q", r.Family)
	}
}

// randomPaddedNumber generates a zero-padded number of the given digit length
func randomPaddedNumber(digits int) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(pow10(digits)))
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

// SettlementSummary is the durable outcome of settling a run
type SettlementSummary struct {
	RunID       int64               `json:"run_id"`
	TotalPayout int64               `json:"total_payout"`
	TierCounts  map[PrizeTier]int64 `json:"tier_counts"`
	SettledAt   time.Time           `json:"settled_at"`
}
