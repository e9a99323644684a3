package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDigitSlotConfig() *DigitSlotConfig {
	return &DigitSlotConfig{
		Digits:      3,
		TicketPrice: 1000,
		Prizes: DigitPrizes{
			Exact:    500000,
			MinusOne: 20000,
			MinusTwo: 2000,
		},
	}
}

func TestDigitSlotConfig_Validate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validDigitSlotConfig().Validate())
	})

	t.Run("prize ordering must be non-increasing", func(t *testing.T) {
		cfg := validDigitSlotConfig()
		cfg.Prizes.MinusOne = cfg.Prizes.Exact + 1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ordering")
	})

	t.Run("minusTwo forbidden with two digits", func(t *testing.T) {
		cfg := &DigitSlotConfig{
			Digits:      2,
			TicketPrice: 1000,
			Prizes: DigitPrizes{
				Exact:    50000,
				MinusOne: 2000,
				MinusTwo: 100,
			},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "minusTwo")
	})

	t.Run("two digits without minusTwo passes", func(t *testing.T) {
		cfg := &DigitSlotConfig{
			Digits:      2,
			TicketPrice: 1000,
			Prizes: DigitPrizes{
				Exact:    50000,
				MinusOne: 2000,
			},
		}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("liability above maximum revenue rejected", func(t *testing.T) {
		cfg := validDigitSlotConfig()
		cfg.Prizes.Exact = cfg.TotalCombinations() * cfg.TicketPrice
		cfg.Prizes.MinusOne = cfg.Prizes.Exact
		cfg.Prizes.MinusTwo = cfg.Prizes.Exact
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "liability")
	})

	t.Run("digit range enforced", func(t *testing.T) {
		cfg := validDigitSlotConfig()
		cfg.Digits = 1
		assert.Error(t, cfg.Validate())
		cfg.Digits = 11
		assert.Error(t, cfg.Validate())
	})
}

func TestDigitSlotConfig_WorstCaseLiability(t *testing.T) {
	cfg := validDigitSlotConfig()
	// 1 exact + 9 minus-one + 90 minus-two winners over a full number space.
	expected := int64(500000 + 9*20000 + 90*2000)
	assert.Equal(t, expected, cfg.WorstCaseLiability())
}

func validJackpotConfig() *JackpotConfig {
	return &JackpotConfig{
		Digits:        4,
		TicketPrice:   2000,
		JackpotAmount: 100000000,
		Tiers: []JackpotTier{
			{MatchDigits: 4, WinnersCount: 1, PrizePerWinner: 5000000},
			{MatchDigits: 3, WinnersCount: 5, PrizePerWinner: 100000},
			{MatchDigits: 2, WinnersCount: 50, PrizePerWinner: 5000},
		},
	}
}

func TestJackpotConfig_Validate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validJackpotConfig().Validate())
	})

	t.Run("liability above jackpot amount rejected", func(t *testing.T) {
		cfg := validJackpotConfig()
		cfg.JackpotAmount = cfg.WorstCaseLiability() - 1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "liability")
	})

	t.Run("zero-digit match tier rejected", func(t *testing.T) {
		cfg := validJackpotConfig()
		cfg.Tiers = append(cfg.Tiers, JackpotTier{MatchDigits: 0, WinnersCount: 1, PrizePerWinner: 100})
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate match digits rejected", func(t *testing.T) {
		cfg := validJackpotConfig()
		cfg.Tiers = append(cfg.Tiers, JackpotTier{MatchDigits: 3, WinnersCount: 1, PrizePerWinner: 100})
		assert.Error(t, cfg.Validate())
	})

	t.Run("tier beyond digit count rejected", func(t *testing.T) {
		cfg := validJackpotConfig()
		cfg.Tiers[0].MatchDigits = 5
		assert.Error(t, cfg.Validate())
	})
}

func TestJackpotConfig_WorstCaseLiability(t *testing.T) {
	cfg := validJackpotConfig()
	// Each tier scales by the number of suffixes mapping onto it:
	// 10^(digits-matchDigits) tickets can hit the tier per winner slot.
	expected := int64(1*5000000*1 + 5*100000*10 + 50*5000*100)
	assert.Equal(t, expected, cfg.WorstCaseLiability())
	assert.LessOrEqual(t, expected, cfg.JackpotAmount)
}

func TestJackpotConfig_TiersByMatchDesc(t *testing.T) {
	cfg := &JackpotConfig{
		Digits:        4,
		TicketPrice:   1000,
		JackpotAmount: 100000000,
		Tiers: []JackpotTier{
			{MatchDigits: 2, WinnersCount: 10, PrizePerWinner: 1000},
			{MatchDigits: 4, WinnersCount: 1, PrizePerWinner: 100000},
			{MatchDigits: 3, WinnersCount: 5, PrizePerWinner: 10000},
		},
	}

	tiers := cfg.TiersByMatchDesc()
	require.Len(t, tiers, 3)
	assert.Equal(t, 4, tiers[0].MatchDigits)
	assert.Equal(t, 3, tiers[1].MatchDigits)
	assert.Equal(t, 2, tiers[2].MatchDigits)
}

func TestFixedNumberConfig_Validate(t *testing.T) {
	valid := &FixedNumberConfig{
		EnabledTypes: []TicketType{TicketType2D, TicketType3D},
		Multipliers:  map[TicketType]int64{TicketType2D: 70, TicketType3D: 400},
		MaxBet:       100000,
	}
	assert.NoError(t, valid.Validate())

	t.Run("enabled type needs a multiplier", func(t *testing.T) {
		cfg := &FixedNumberConfig{
			EnabledTypes: []TicketType{TicketType2D, TicketType4D},
			Multipliers:  map[TicketType]int64{TicketType2D: 70},
			MaxBet:       100000,
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("max bet must be positive", func(t *testing.T) {
		cfg := &FixedNumberConfig{
			EnabledTypes: []TicketType{TicketType2D},
			Multipliers:  map[TicketType]int64{TicketType2D: 70},
		}
		assert.Error(t, cfg.Validate())
	})
}

func TestDrawConfig_Validate(t *testing.T) {
	t.Run("family member must match", func(t *testing.T) {
		cfg := &DrawConfig{
			Family:    FamilyDigitSlot,
			DigitSlot: validDigitSlotConfig(),
		}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing member rejected", func(t *testing.T) {
		cfg := &DrawConfig{Family: FamilyJackpot}
		assert.Error(t, cfg.Validate())
	})

	t.Run("extra member rejected", func(t *testing.T) {
		cfg := &DrawConfig{
			Family:    FamilyDigitSlot,
			DigitSlot: validDigitSlotConfig(),
			Jackpot:   validJackpotConfig(),
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown family rejected", func(t *testing.T) {
		cfg := &DrawConfig{Family: "roulette"}
		assert.Error(t, cfg.Validate())
	})
}
