package service

import (
	"context"
	"testing"
	"time"

	"drawhouse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type settlementFixture struct {
	svc          *SettlementService
	factory      *MockUnitOfWorkFactory
	uow          *MockUnitOfWork
	userRepo     *MockUserRepository
	walletTxRepo *MockWalletTransactionRepository
	runRepo      *MockDrawRunRepository
	ticketRepo   *MockTicketRepository
	winnerRepo   *MockWinnerRepository
	auditRepo    *MockAuditLogRepository
	publisher    *MockEventPublisher
}

func newSettlementFixture() *settlementFixture {
	f := &settlementFixture{
		factory:      new(MockUnitOfWorkFactory),
		uow:          new(MockUnitOfWork),
		userRepo:     new(MockUserRepository),
		walletTxRepo: new(MockWalletTransactionRepository),
		runRepo:      new(MockDrawRunRepository),
		ticketRepo:   new(MockTicketRepository),
		winnerRepo:   new(MockWinnerRepository),
		auditRepo:    new(MockAuditLogRepository),
		publisher:    new(MockEventPublisher),
	}
	f.uow.SetRepositories(f.userRepo, f.walletTxRepo, nil, f.runRepo, f.ticketRepo, f.winnerRepo, nil, f.auditRepo, f.publisher)
	f.factory.On("Create").Return(f.uow)
	// Settlement opens several short transactions; the shared mock serves
	// them all.
	f.uow.On("Begin", mock.Anything).Return(nil)
	f.uow.On("Commit").Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.svc = NewSettlementService(f.factory, NewOperatorAuthorizer([]string{"op-1"}))
	return f
}

func drawnDigitRun() *models.DrawRun {
	return &models.DrawRun{
		ID:           31,
		DefinitionID: 1,
		Family:       models.FamilyDigitSlot,
		Status:       models.RunStatusDrawn,
		ConfigSnapshot: models.DrawConfig{
			Family: models.FamilyDigitSlot,
			DigitSlot: &models.DigitSlotConfig{
				Digits:      3,
				TicketPrice: 1000,
				Prizes:      models.DigitPrizes{Exact: 500000, MinusOne: 20000},
			},
		},
		Result: &models.DrawResult{WinningNumber: "042"},
	}
}

func lockedTicket(id int64, userID int64, number string) *models.Ticket {
	return &models.Ticket{
		ID:     id,
		RunID:  31,
		UserID: userID,
		Type:   models.TicketTypeDigit,
		Number: number,
		Amount: 1000,
		Status: models.TicketStatusLocked,
	}
}

func TestSettlementService_Settle(t *testing.T) {
	ctx := context.Background()

	t.Run("pays winners and marks losers in one pass", func(t *testing.T) {
		f := newSettlementFixture()

		f.runRepo.On("GetByID", ctx, int64(31)).Return(drawnDigitRun(), nil)
		f.runRepo.On("TransitionStatus", ctx, int64(31), models.RunStatusDrawn, models.RunStatusSettling).Return(true, nil)

		tickets := []*models.Ticket{
			lockedTicket(901, 7, "042"),
			lockedTicket(902, 8, "731"),
		}
		f.ticketRepo.On("ListPageForSettlement", ctx, int64(31), int64(0), settlementPageSize).Return(tickets, nil)

		f.ticketRepo.On("MarkWon", ctx, int64(901), models.TierExact, int64(500000)).Return(true, nil)
		f.userRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(&models.User{ID: 7, WalletBalance: 100}, nil)
		f.userRepo.On("UpdateBalances", ctx, int64(7), int64(500100), int64(0), int64(0)).Return(nil)
		f.walletTxRepo.On("Append", ctx, mock.MatchedBy(func(txn *models.WalletTransaction) bool {
			return txn.Amount == 500000 &&
				txn.Reason == models.ReasonDrawWin &&
				txn.ReferenceID == "run:31:ticket:901"
		})).Return(nil)
		f.winnerRepo.On("Create", ctx, mock.MatchedBy(func(w *models.Winner) bool {
			return w.TicketID == 901 && w.PrizeTier == models.TierExact && w.WinAmount == 500000
		})).Return(nil)
		f.publisher.On("Publish", mock.AnythingOfType("events.WinnerPaidEvent")).Return()

		f.ticketRepo.On("MarkLost", ctx, int64(902)).Return(true, nil)

		f.ticketRepo.On("SumWinAmountByRun", ctx, int64(31)).Return(int64(500000), nil)
		f.winnerRepo.On("CountByTier", ctx, int64(31)).Return(map[models.PrizeTier]int64{models.TierExact: 1}, nil)
		f.runRepo.On("FinalizeSettlement", ctx, int64(31), int64(500000),
			map[models.PrizeTier]int64{models.TierExact: 1}, mock.AnythingOfType("time.Time")).Return(true, nil)
		f.publisher.On("Publish", mock.AnythingOfType("events.RunSettledEvent")).Return()

		f.auditRepo.On("Append", ctx, mock.MatchedBy(func(e *models.AuditEntry) bool {
			return e.Action == models.AuditActionRunSettled
		})).Return(nil)

		summary, err := f.svc.Settle(ctx, operator, 31)
		require.NoError(t, err)
		assert.Equal(t, int64(500000), summary.TotalPayout)
		assert.Equal(t, int64(1), summary.TierCounts[models.TierExact])

		f.ticketRepo.AssertExpectations(t)
		f.winnerRepo.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
	})

	t.Run("settled run returns the stored summary untouched", func(t *testing.T) {
		f := newSettlementFixture()

		settledAt := time.Date(2024, 3, 15, 18, 5, 0, 0, time.UTC)
		run := drawnDigitRun()
		run.Status = models.RunStatusSettled
		run.TotalPayout = 700000
		run.TierCounts = map[models.PrizeTier]int64{models.TierExact: 1, models.TierMinusOne: 10}
		run.SettledAt = &settledAt
		f.runRepo.On("GetByID", ctx, int64(31)).Return(run, nil)

		summary, err := f.svc.Settle(ctx, operator, 31)
		require.NoError(t, err)
		assert.Equal(t, int64(700000), summary.TotalPayout)
		assert.Equal(t, settledAt, summary.SettledAt)

		f.ticketRepo.AssertNotCalled(t, "ListPageForSettlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.runRepo.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("settling run without resume is refused", func(t *testing.T) {
		f := newSettlementFixture()

		run := drawnDigitRun()
		run.Status = models.RunStatusSettling
		f.runRepo.On("GetByID", ctx, int64(31)).Return(run, nil)

		_, err := f.svc.Settle(ctx, operator, 31)
		assert.ErrorIs(t, err, ErrSettlementInProgress)
	})

	t.Run("losing the claim flip means another settler holds the run", func(t *testing.T) {
		f := newSettlementFixture()

		f.runRepo.On("GetByID", ctx, int64(31)).Return(drawnDigitRun(), nil)
		f.runRepo.On("TransitionStatus", ctx, int64(31), models.RunStatusDrawn, models.RunStatusSettling).Return(false, nil)

		_, err := f.svc.Settle(ctx, operator, 31)
		assert.ErrorIs(t, err, ErrSettlementInProgress)
		f.ticketRepo.AssertNotCalled(t, "ListPageForSettlement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("settling a locked run fails", func(t *testing.T) {
		f := newSettlementFixture()

		run := drawnDigitRun()
		run.Status = models.RunStatusLocked
		f.runRepo.On("GetByID", ctx, int64(31)).Return(run, nil)

		_, err := f.svc.Settle(ctx, operator, 31)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("unknown actor is unauthorized", func(t *testing.T) {
		f := newSettlementFixture()
		_, err := f.svc.Settle(ctx, Actor{ID: "intruder", Type: "operator"}, 31)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestSettlementService_ResumeSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("resume skips tickets an earlier page already paid", func(t *testing.T) {
		f := newSettlementFixture()

		run := drawnDigitRun()
		run.Status = models.RunStatusSettling
		f.runRepo.On("GetByID", ctx, int64(31)).Return(run, nil)

		paid := lockedTicket(901, 7, "042")
		paid.Status = models.TicketStatusWon
		remaining := lockedTicket(902, 8, "731")
		f.ticketRepo.On("ListPageForSettlement", ctx, int64(31), int64(0), settlementPageSize).
			Return([]*models.Ticket{paid, remaining}, nil)

		// Only the still-locked ticket is touched.
		f.ticketRepo.On("MarkLost", ctx, int64(902)).Return(true, nil)

		f.ticketRepo.On("SumWinAmountByRun", ctx, int64(31)).Return(int64(500000), nil)
		f.winnerRepo.On("CountByTier", ctx, int64(31)).Return(map[models.PrizeTier]int64{models.TierExact: 1}, nil)
		f.runRepo.On("FinalizeSettlement", ctx, int64(31), int64(500000),
			map[models.PrizeTier]int64{models.TierExact: 1}, mock.AnythingOfType("time.Time")).Return(true, nil)
		f.publisher.On("Publish", mock.AnythingOfType("events.RunSettledEvent")).Return()
		f.auditRepo.On("Append", ctx, mock.Anything).Return(nil)

		summary, err := f.svc.ResumeSettlement(ctx, operator, 31)
		require.NoError(t, err)
		assert.Equal(t, int64(500000), summary.TotalPayout)

		f.ticketRepo.AssertNotCalled(t, "MarkWon", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.userRepo.AssertNotCalled(t, "UpdateBalances", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("jackpot resume rebuilds tier budget from committed winners", func(t *testing.T) {
		f := newSettlementFixture()

		run := jackpotRun("8814")
		run.ID = 31
		run.Status = models.RunStatusSettling
		f.runRepo.On("GetByID", ctx, int64(31)).Return(run, nil)

		// The single top-tier slot was already paid before the crash, so
		// this full match must lose.
		f.winnerRepo.On("CountByTier", ctx, int64(31)).
			Return(map[models.PrizeTier]int64{models.JackpotTierKey(4): 1}, nil).Once()

		f.ticketRepo.On("ListPageForSettlement", ctx, int64(31), int64(0), settlementPageSize).
			Return([]*models.Ticket{lockedTicket(903, 9, "8814")}, nil)
		f.ticketRepo.On("MarkLost", ctx, int64(903)).Return(true, nil)

		f.ticketRepo.On("SumWinAmountByRun", ctx, int64(31)).Return(int64(5000000), nil)
		f.winnerRepo.On("CountByTier", ctx, int64(31)).
			Return(map[models.PrizeTier]int64{models.JackpotTierKey(4): 1}, nil).Once()
		f.runRepo.On("FinalizeSettlement", ctx, int64(31), int64(5000000),
			map[models.PrizeTier]int64{models.JackpotTierKey(4): 1}, mock.AnythingOfType("time.Time")).Return(true, nil)
		f.publisher.On("Publish", mock.AnythingOfType("events.RunSettledEvent")).Return()
		f.auditRepo.On("Append", ctx, mock.Anything).Return(nil)

		_, err := f.svc.ResumeSettlement(ctx, operator, 31)
		require.NoError(t, err)
		f.ticketRepo.AssertExpectations(t)
	})

	t.Run("losing the finalize flip defers to the finished settler", func(t *testing.T) {
		f := newSettlementFixture()

		run := drawnDigitRun()
		run.Status = models.RunStatusSettling
		f.runRepo.On("GetByID", ctx, int64(31)).Return(run, nil).Once()

		f.ticketRepo.On("ListPageForSettlement", ctx, int64(31), int64(0), settlementPageSize).
			Return([]*models.Ticket{}, nil)
		f.ticketRepo.On("SumWinAmountByRun", ctx, int64(31)).Return(int64(0), nil)
		f.winnerRepo.On("CountByTier", ctx, int64(31)).Return(map[models.PrizeTier]int64{}, nil)
		f.runRepo.On("FinalizeSettlement", ctx, int64(31), int64(0),
			map[models.PrizeTier]int64{}, mock.AnythingOfType("time.Time")).Return(false, nil)

		settledAt := time.Now()
		winner := drawnDigitRun()
		winner.Status = models.RunStatusSettled
		winner.TotalPayout = 123456
		winner.SettledAt = &settledAt
		f.runRepo.On("GetByID", ctx, int64(31)).Return(winner, nil).Once()

		f.auditRepo.On("Append", ctx, mock.Anything).Return(nil)

		summary, err := f.svc.ResumeSettlement(ctx, operator, 31)
		require.NoError(t, err)
		assert.Equal(t, int64(123456), summary.TotalPayout)
		f.publisher.AssertNotCalled(t, "Publish", mock.AnythingOfType("events.RunSettledEvent"))
	})
}
