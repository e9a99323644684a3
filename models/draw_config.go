package models

import (
	"errors"
	"fmt"
	"sort"
)

// DrawFamily selects the winner-resolution strategy for a draw
type DrawFamily string

const (
	// FamilyFixedNumber is the classic 2D/3D/4D lottery: one winning number
	// per ticket type, whole-number match only, payout = stake x multiplier.
	FamilyFixedNumber DrawFamily = "fixed_number"

	// FamilyDigitSlot is a fixed-length numeric draw where prize tiers are
	// defined by how many trailing digits match.
	FamilyDigitSlot DrawFamily = "digit_slot"

	// FamilyJackpot generalizes suffix matching to an arbitrary tier list
	// with explicit winner caps and a funded jackpot guarantee.
	FamilyJackpot DrawFamily = "jackpot"
)

// TicketType identifies what a ticket's number means within its family
type TicketType string

const (
	TicketType2D TicketType = "2d"
	TicketType3D TicketType = "3d"
	TicketType4D TicketType = "4d"

	// TicketTypeDigit is the single ticket type of digit-slot and jackpot
	// draws; the number length comes from the config's Digits.
	TicketTypeDigit TicketType = "digit"
)

// NumberLength returns the required number length for a fixed-number type
func (t TicketType) NumberLength() int {
	switch t {
	case TicketType2D:
		return 2
	case TicketType3D:
		return 3
	case TicketType4D:
		return 4
	default:
		return 0
	}
}

// PrizeTier labels the tier a winning ticket was paid under
type PrizeTier string

const (
	TierExact    PrizeTier = "exact"
	TierMinusOne PrizeTier = "minus_one"
	TierMinusTwo PrizeTier = "minus_two"
)

// JackpotTierKey returns the tier label for a jackpot tier matching n digits
func JackpotTierKey(matchDigits int) PrizeTier {
	return PrizeTier(fmt.Sprintf("match_%d", matchDigits))
}

// Expected worst-case winner counts per suffix tier, fixed combinatorially:
// one number matches all digits, nine more match all but the first, ninety
// more match all but the first two.
const (
	ExactWinnerCount    = 1
	MinusOneWinnerCount = 9
	MinusTwoWinnerCount = 90
)

// FixedNumberConfig configures a fixed-number (2D/3D/4D) draw
type FixedNumberConfig struct {
	EnabledTypes []TicketType         `json:"enabled_types"`
	Multipliers  map[TicketType]int64 `json:"multipliers"`
	MaxBet       int64                `json:"max_bet"`
	MinSales     int64                `json:"min_sales"`
}

// TypeEnabled reports whether the given ticket type can be sold
func (c *FixedNumberConfig) TypeEnabled(t TicketType) bool {
	for _, et := range c.EnabledTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Validate checks the config before it may be saved
func (c *FixedNumberConfig) Validate() error {
	if len(c.EnabledTypes) == 0 {
		return errors.New("at least one ticket type must be enabled")
	}
	for _, t := range c.EnabledTypes {
		if t.NumberLength() == 0 {
			return fmt.Errorf("unknown ticket type %q", t)
		}
		m, ok := c.Multipliers[t]
		if !ok || m <= 0 {
			return fmt.Errorf("ticket type %q needs a positive multiplier", t)
		}
	}
	if c.MaxBet <= 0 {
		return errors.New("max bet must be positive")
	}
	if c.MinSales < 0 {
		return errors.New("min sales floor cannot be negative")
	}
	return nil
}

// DigitPrizes holds the per-ticket prize amount for each suffix tier.
// A zero value disables the tier. Zero-digit matches are not representable
// and must never be paid.
type DigitPrizes struct {
	Exact    int64 `json:"exact"`
	MinusOne int64 `json:"minus_one"`
	MinusTwo int64 `json:"minus_two"`
}

// DigitSlotConfig configures a digit-suffix draw slot
type DigitSlotConfig struct {
	Digits      int         `json:"digits"`
	TicketPrice int64       `json:"ticket_price"`
	Prizes      DigitPrizes `json:"prizes"`
}

// TotalCombinations returns 10^digits, the size of the number space
func (c *DigitSlotConfig) TotalCombinations() int64 {
	return pow10(c.Digits)
}

// WorstCaseLiability is the maximum total payout if every combination sold
// exactly once: one exact winner, nine minus-one winners, ninety minus-two.
func (c *DigitSlotConfig) WorstCaseLiability() int64 {
	return c.Prizes.Exact*ExactWinnerCount +
		c.Prizes.MinusOne*MinusOneWinnerCount +
		c.Prizes.MinusTwo*MinusTwoWinnerCount
}

// Validate checks the config before it may be saved. Tier misconfiguration
// is rejected here, never at settlement time.
func (c *DigitSlotConfig) Validate() error {
	if c.Digits < 2 || c.Digits > 10 {
		return fmt.Errorf("digits must be between 2 and 10, got %d", c.Digits)
	}
	if c.TicketPrice <= 0 {
		return errors.New("ticket price must be positive")
	}
	if c.Prizes.Exact <= 0 {
		return errors.New("exact-match prize must be positive")
	}
	if c.Prizes.MinusOne < 0 || c.Prizes.MinusTwo < 0 {
		return errors.New("prize amounts cannot be negative")
	}
	if c.Prizes.Exact < c.Prizes.MinusOne || c.Prizes.MinusOne < c.Prizes.MinusTwo {
		return errors.New("prize ordering violated: exact >= minusOne >= minusTwo required")
	}
	// With 2 digits there is no room for a suffix two digits shorter.
	if c.Digits <= 2 && c.Prizes.MinusTwo != 0 {
		return errors.New("minusTwo tier is disabled when digits <= 2")
	}
	maxRevenue := c.TotalCombinations() * c.TicketPrice
	if liability := c.WorstCaseLiability(); liability > maxRevenue {
		return fmt.Errorf("worst-case liability %d exceeds maximum revenue %d", liability, maxRevenue)
	}
	return nil
}

// JackpotTier is one prize tier of a jackpot draw
type JackpotTier struct {
	MatchDigits    int   `json:"match_digits"`
	WinnersCount   int64 `json:"winners_count"`
	PrizePerWinner int64 `json:"prize_per_winner"`
}

// JackpotConfig configures a jackpot-tiered draw
type JackpotConfig struct {
	Digits        int           `json:"digits"`
	TicketPrice   int64         `json:"ticket_price"`
	JackpotAmount int64         `json:"jackpot_amount"`
	Tiers         []JackpotTier `json:"tiers"`
}

// TotalCombinations returns 10^digits
func (c *JackpotConfig) TotalCombinations() int64 {
	return pow10(c.Digits)
}

// WorstCaseLiability computes the configured maximum payout across tiers
func (c *JackpotConfig) WorstCaseLiability() int64 {
	var total int64
	for _, tier := range c.Tiers {
		total += tier.WinnersCount * tier.PrizePerWinner * pow10(c.Digits-tier.MatchDigits)
	}
	return total
}

// GuaranteedSalesPct is the fraction of the full number space that must sell
// before the worst-case payout is covered by the jackpot amount.
func (c *JackpotConfig) GuaranteedSalesPct() float64 {
	maxRevenue := c.TotalCombinations() * c.TicketPrice
	if maxRevenue == 0 {
		return 0
	}
	return float64(c.WorstCaseLiability()) / float64(maxRevenue)
}

// TiersByMatchDesc returns the tiers ordered best-first (most digits matched)
func (c *JackpotConfig) TiersByMatchDesc() []JackpotTier {
	tiers := make([]JackpotTier, len(c.Tiers))
	copy(tiers, c.Tiers)
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MatchDigits > tiers[j].MatchDigits
	})
	return tiers
}

// Validate checks the config before it may be saved. The liability invariant
// sum(winnersCount * prizePerWinner * 10^(digits-matchDigits)) <= jackpotAmount
// must hold, otherwise a run could pay out more than its funding pool.
func (c *JackpotConfig) Validate() error {
	if c.Digits < 2 || c.Digits > 10 {
		return fmt.Errorf("digits must be between 2 and 10, got %d", c.Digits)
	}
	if c.TicketPrice <= 0 {
		return errors.New("ticket price must be positive")
	}
	if c.JackpotAmount <= 0 {
		return errors.New("jackpot amount must be positive")
	}
	if len(c.Tiers) == 0 {
		return errors.New("at least one prize tier is required")
	}
	seen := make(map[int]bool, len(c.Tiers))
	for _, tier := range c.Tiers {
		// A zero-digit match tier is permanently disallowed.
		if tier.MatchDigits < 1 || tier.MatchDigits > c.Digits {
			return fmt.Errorf("tier match digits %d out of range [1,%d]", tier.MatchDigits, c.Digits)
		}
		if seen[tier.MatchDigits] {
			return fmt.Errorf("duplicate tier for %d matched digits", tier.MatchDigits)
		}
		seen[tier.MatchDigits] = true
		if tier.WinnersCount <= 0 {
			return fmt.Errorf("tier %d winners count must be positive", tier.MatchDigits)
		}
		if tier.PrizePerWinner <= 0 {
			return fmt.Errorf("tier %d prize per winner must be positive", tier.MatchDigits)
		}
	}
	if liability := c.WorstCaseLiability(); liability > c.JackpotAmount {
		return fmt.Errorf("worst-case liability %d exceeds jackpot amount %d", liability, c.JackpotAmount)
	}
	return nil
}

// DrawConfig is the closed tagged union of per-family configurations.
// Exactly one member matching Family must be set; it is validated completely
// at write time so the settlement path never needs defensive parsing.
type DrawConfig struct {
	Family      DrawFamily         `json:"family"`
	FixedNumber *FixedNumberConfig `json:"fixed_number,omitempty"`
	DigitSlot   *DigitSlotConfig   `json:"digit_slot,omitempty"`
	Jackpot     *JackpotConfig     `json:"jackpot,omitempty"`
}

// Validate checks that exactly the member matching Family is present and valid
func (c *DrawConfig) Validate() error {
	switch c.Family {
	case FamilyFixedNumber:
		if c.FixedNumber == nil || c.DigitSlot != nil || c.Jackpot != nil {
			return errors.New("fixed-number draw requires exactly the fixed_number config")
		}
		return c.FixedNumber.Validate()
	case FamilyDigitSlot:
		if c.DigitSlot == nil || c.FixedNumber != nil || c.Jackpot != nil {
			return errors.New("digit-slot draw requires exactly the digit_slot config")
		}
		return c.DigitSlot.Validate()
	case FamilyJackpot:
		if c.Jackpot == nil || c.FixedNumber != nil || c.DigitSlot != nil {
			return errors.New("jackpot draw requires exactly the jackpot config")
		}
		return c.Jackpot.Validate()
	default:
		return fmt.Errorf("unknown draw family %q", c.Family)
	}
}

// Digits returns the number length for digit-based families, 0 otherwise
func (c *DrawConfig) Digits() int {
	switch c.Family {
	case FamilyDigitSlot:
		return c.DigitSlot.Digits
	case FamilyJackpot:
		return c.Jackpot.Digits
	default:
		return 0
	}
}

func pow10(n int) int64 {
	result := int64(1)
	for i := 0; i < n; i++ {
		result *= 10
	}
	return result
}
