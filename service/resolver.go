package service

import (
	"fmt"

	"drawhouse/models"
)

// TicketOutcome is the classification of one ticket against a drawn result
type TicketOutcome struct {
	Won    bool
	Tier   models.PrizeTier
	Payout int64
}

// ResolveTicket classifies a ticket against the run's result and config
// snapshot. It is a pure function: the orchestrator batches it over
// arbitrarily many tickets without resolver state across batches. For
// jackpot runs the caller owns the per-tier remaining winner budget and
// passes it in (nil for the other families).
func ResolveTicket(run *models.DrawRun, ticket *models.Ticket, tierBudget map[models.PrizeTier]int64) (TicketOutcome, error) {
	if run.Result == nil {
		return TicketOutcome{}, fmt.Errorf("run %d has no result", run.ID)
	}

	switch run.Family {
	case models.FamilyFixedNumber:
		return ResolveFixedNumber(run.ConfigSnapshot.FixedNumber, run.Result, ticket), nil
	case models.FamilyDigitSlot:
		return ResolveDigitSuffix(run.ConfigSnapshot.DigitSlot, run.Result.WinningNumber, ticket), nil
	case models.FamilyJackpot:
		return ResolveJackpot(run.ConfigSnapshot.Jackpot, run.Result.WinningNumber, ticket, tierBudget), nil
	default:
		return TicketOutcome{}, fmt.Errorf("unknown draw family %q", run.Family)
	}
}

// ResolveFixedNumber classifies a fixed-number (2D/3D/4D) ticket: it wins
// iff its number equals the drawn number for its type, paying
// stake x multiplier. No partial matches.
func ResolveFixedNumber(cfg *models.FixedNumberConfig, result *models.DrawResult, ticket *models.Ticket) TicketOutcome {
	winning, ok := result.Numbers[ticket.Type]
	if !ok || ticket.Number != winning {
		return TicketOutcome{}
	}
	return TicketOutcome{
		Won:    true,
		Tier:   models.TierExact,
		Payout: ticket.Amount * cfg.Multipliers[ticket.Type],
	}
}

// ResolveDigitSuffix classifies a digit-slot ticket. Tiers are evaluated
// strictly best-first and evaluation stops at the first match, so a ticket
// wins only the single highest tier it qualifies for. A zero-length suffix
// is never evaluated and never paid.
func ResolveDigitSuffix(cfg *models.DigitSlotConfig, winning string, ticket *models.Ticket) TicketOutcome {
	if ticket.Number == winning {
		return TicketOutcome{Won: true, Tier: models.TierExact, Payout: cfg.Prizes.Exact}
	}
	if cfg.Prizes.MinusOne > 0 && suffixMatches(winning, ticket.Number, cfg.Digits-1) {
		return TicketOutcome{Won: true, Tier: models.TierMinusOne, Payout: cfg.Prizes.MinusOne}
	}
	// Validation guarantees MinusTwo is zero when digits <= 2.
	if cfg.Prizes.MinusTwo > 0 && suffixMatches(winning, ticket.Number, cfg.Digits-2) {
		return TicketOutcome{Won: true, Tier: models.TierMinusTwo, Payout: cfg.Prizes.MinusTwo}
	}
	return TicketOutcome{}
}

// ResolveJackpot classifies a jackpot ticket against the tier list,
// best tier first, stopping at the first suffix match. tierBudget holds
// the remaining winner slots per tier; a ticket matching an exhausted
// tier loses. The caller decrements the budget when it accepts a win.
func ResolveJackpot(cfg *models.JackpotConfig, winning string, ticket *models.Ticket, tierBudget map[models.PrizeTier]int64) TicketOutcome {
	for _, tier := range cfg.TiersByMatchDesc() {
		if !suffixMatches(winning, ticket.Number, tier.MatchDigits) {
			continue
		}
		key := models.JackpotTierKey(tier.MatchDigits)
		if tierBudget != nil {
			if remaining, ok := tierBudget[key]; ok && remaining <= 0 {
				return TicketOutcome{}
			}
		}
		return TicketOutcome{Won: true, Tier: key, Payout: tier.PrizePerWinner}
	}
	return TicketOutcome{}
}

// NewJackpotTierBudget builds the initial per-tier winner budget for a
// settlement, subtracting winners already recorded by an earlier,
// interrupted attempt.
func NewJackpotTierBudget(cfg *models.JackpotConfig, alreadyPaid map[models.PrizeTier]int64) map[models.PrizeTier]int64 {
	budget := make(map[models.PrizeTier]int64, len(cfg.Tiers))
	for _, tier := range cfg.Tiers {
		key := models.JackpotTierKey(tier.MatchDigits)
		budget[key] = tier.WinnersCount - alreadyPaid[key]
	}
	return budget
}

// suffixMatches reports whether the last n digits of the two numbers are
// equal. n must be positive: a zero-digit match is permanently disallowed.
func suffixMatches(winning, number string, n int) bool {
	if n <= 0 {
		return false
	}
	if len(winning) < n || len(number) < n {
		return false
	}
	return winning[len(winning)-n:] == number[len(number)-n:]
}
