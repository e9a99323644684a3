package service

import (
	"testing"

	"drawhouse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digitSlotRun(digits int, winning string, prizes models.DigitPrizes) *models.DrawRun {
	return &models.DrawRun{
		ID:     1,
		Family: models.FamilyDigitSlot,
		Status: models.RunStatusSettling,
		ConfigSnapshot: models.DrawConfig{
			Family: models.FamilyDigitSlot,
			DigitSlot: &models.DigitSlotConfig{
				Digits:      digits,
				TicketPrice: 1000,
				Prizes:      prizes,
			},
		},
		Result: &models.DrawResult{WinningNumber: winning},
	}
}

func digitTicket(number string) *models.Ticket {
	return &models.Ticket{
		ID:     10,
		RunID:  1,
		UserID: 100,
		Type:   models.TicketTypeDigit,
		Number: number,
		Amount: 1000,
		Status: models.TicketStatusLocked,
	}
}

func TestResolveDigitSuffix(t *testing.T) {
	prizes := models.DigitPrizes{Exact: 500000, MinusOne: 20000, MinusTwo: 2000}

	t.Run("exact match wins the top tier only", func(t *testing.T) {
		run := digitSlotRun(3, "042", prizes)
		outcome, err := ResolveTicket(run, digitTicket("042"), nil)
		require.NoError(t, err)
		assert.True(t, outcome.Won)
		assert.Equal(t, models.TierExact, outcome.Tier)
		assert.Equal(t, int64(500000), outcome.Payout)
	})

	t.Run("two trailing digits win minus one", func(t *testing.T) {
		run := digitSlotRun(3, "042", prizes)
		outcome, err := ResolveTicket(run, digitTicket("142"), nil)
		require.NoError(t, err)
		assert.True(t, outcome.Won)
		assert.Equal(t, models.TierMinusOne, outcome.Tier)
		assert.Equal(t, int64(20000), outcome.Payout)
	})

	t.Run("one trailing digit wins minus two", func(t *testing.T) {
		run := digitSlotRun(3, "042", prizes)
		outcome, err := ResolveTicket(run, digitTicket("012"), nil)
		require.NoError(t, err)
		assert.True(t, outcome.Won)
		assert.Equal(t, models.TierMinusTwo, outcome.Tier)
		assert.Equal(t, int64(2000), outcome.Payout)
	})

	t.Run("one trailing digit loses when minus two is disabled", func(t *testing.T) {
		run := digitSlotRun(3, "042", models.DigitPrizes{Exact: 500000, MinusOne: 20000})
		outcome, err := ResolveTicket(run, digitTicket("012"), nil)
		require.NoError(t, err)
		assert.False(t, outcome.Won)
		assert.Zero(t, outcome.Payout)
	})

	t.Run("no trailing match loses", func(t *testing.T) {
		run := digitSlotRun(3, "042", prizes)
		outcome, err := ResolveTicket(run, digitTicket("731"), nil)
		require.NoError(t, err)
		assert.False(t, outcome.Won)
	})

	t.Run("two digit slot never pays a minus two tier", func(t *testing.T) {
		run := digitSlotRun(2, "42", models.DigitPrizes{Exact: 50000, MinusOne: 2000})
		// Matching zero trailing digits must never pay anything.
		outcome, err := ResolveTicket(run, digitTicket("17"), nil)
		require.NoError(t, err)
		assert.False(t, outcome.Won)
	})
}

func TestResolveFixedNumber(t *testing.T) {
	run := &models.DrawRun{
		ID:     2,
		Family: models.FamilyFixedNumber,
		ConfigSnapshot: models.DrawConfig{
			Family: models.FamilyFixedNumber,
			FixedNumber: &models.FixedNumberConfig{
				EnabledTypes: []models.TicketType{models.TicketType2D, models.TicketType3D},
				Multipliers:  map[models.TicketType]int64{models.TicketType2D: 70, models.TicketType3D: 400},
				MaxBet:       100000,
			},
		},
		Result: &models.DrawResult{
			Numbers: map[models.TicketType]string{
				models.TicketType2D: "42",
				models.TicketType3D: "042",
			},
		},
	}

	t.Run("whole number match pays stake times multiplier", func(t *testing.T) {
		ticket := &models.Ticket{Type: models.TicketType2D, Number: "42", Amount: 500}
		outcome, err := ResolveTicket(run, ticket, nil)
		require.NoError(t, err)
		assert.True(t, outcome.Won)
		assert.Equal(t, int64(500*70), outcome.Payout)
	})

	t.Run("partial match pays nothing", func(t *testing.T) {
		// Last digit matches the 2D number, but fixed draws have no tiers.
		ticket := &models.Ticket{Type: models.TicketType2D, Number: "12", Amount: 500}
		outcome, err := ResolveTicket(run, ticket, nil)
		require.NoError(t, err)
		assert.False(t, outcome.Won)
	})

	t.Run("types are resolved independently", func(t *testing.T) {
		ticket := &models.Ticket{Type: models.TicketType3D, Number: "042", Amount: 100}
		outcome, err := ResolveTicket(run, ticket, nil)
		require.NoError(t, err)
		assert.True(t, outcome.Won)
		assert.Equal(t, int64(100*400), outcome.Payout)
	})
}

func jackpotRun(winning string) *models.DrawRun {
	return &models.DrawRun{
		ID:     3,
		Family: models.FamilyJackpot,
		ConfigSnapshot: models.DrawConfig{
			Family: models.FamilyJackpot,
			Jackpot: &models.JackpotConfig{
				Digits:        4,
				TicketPrice:   2000,
				JackpotAmount: 100000000,
				Tiers: []models.JackpotTier{
					{MatchDigits: 4, WinnersCount: 1, PrizePerWinner: 5000000},
					{MatchDigits: 3, WinnersCount: 5, PrizePerWinner: 100000},
					{MatchDigits: 2, WinnersCount: 50, PrizePerWinner: 5000},
				},
			},
		},
		Result: &models.DrawResult{WinningNumber: winning},
	}
}

func TestResolveJackpot(t *testing.T) {
	run := jackpotRun("8814")
	cfg := run.ConfigSnapshot.Jackpot

	t.Run("full match wins the top tier", func(t *testing.T) {
		budget := NewJackpotTierBudget(cfg, nil)
		outcome, err := ResolveTicket(run, digitTicket("8814"), budget)
		require.NoError(t, err)
		assert.True(t, outcome.Won)
		assert.Equal(t, models.JackpotTierKey(4), outcome.Tier)
		assert.Equal(t, int64(5000000), outcome.Payout)
	})

	t.Run("three trailing digits win the middle tier", func(t *testing.T) {
		budget := NewJackpotTierBudget(cfg, nil)
		outcome, err := ResolveTicket(run, digitTicket("0814"), budget)
		require.NoError(t, err)
		assert.True(t, outcome.Won)
		assert.Equal(t, models.JackpotTierKey(3), outcome.Tier)
		assert.Equal(t, int64(100000), outcome.Payout)
	})

	t.Run("only the highest matching tier pays", func(t *testing.T) {
		budget := NewJackpotTierBudget(cfg, nil)
		// A full match also matches the lower tiers but collects once.
		outcome, err := ResolveTicket(run, digitTicket("8814"), budget)
		require.NoError(t, err)
		assert.Equal(t, models.JackpotTierKey(4), outcome.Tier)
	})

	t.Run("exhausted tier turns further matches into losses", func(t *testing.T) {
		budget := NewJackpotTierBudget(cfg, nil)
		budget[models.JackpotTierKey(4)] = 0

		outcome, err := ResolveTicket(run, digitTicket("8814"), budget)
		require.NoError(t, err)
		assert.False(t, outcome.Won)
	})

	t.Run("budget reflects winners paid before a resume", func(t *testing.T) {
		alreadyPaid := map[models.PrizeTier]int64{
			models.JackpotTierKey(4): 1,
			models.JackpotTierKey(3): 2,
		}
		budget := NewJackpotTierBudget(cfg, alreadyPaid)
		assert.Equal(t, int64(0), budget[models.JackpotTierKey(4)])
		assert.Equal(t, int64(3), budget[models.JackpotTierKey(3)])
		assert.Equal(t, int64(50), budget[models.JackpotTierKey(2)])
	})

	t.Run("no tier match loses", func(t *testing.T) {
		budget := NewJackpotTierBudget(cfg, nil)
		outcome, err := ResolveTicket(run, digitTicket("9921"), budget)
		require.NoError(t, err)
		assert.False(t, outcome.Won)
	})
}

func TestResolveTicket_MissingResult(t *testing.T) {
	run := digitSlotRun(3, "042", models.DigitPrizes{Exact: 1000})
	run.Result = nil
	_, err := ResolveTicket(run, digitTicket("042"), nil)
	assert.Error(t, err)
}
