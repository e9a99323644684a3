package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"drawhouse/events"
	"drawhouse/models"

	log "github.com/sirupsen/logrus"
)

// SettlementService applies a drawn run's payouts. Tickets are processed in
// pages, each page its own transaction, so a crash mid-way loses at most
// one uncommitted page and a resume continues where the last commit left
// off. Per-ticket writes are guarded by the locked status, which makes
// re-processing a committed page a no-op.
type SettlementService struct {
	uowFactory UnitOfWorkFactory
	authorizer Authorizer
}

// NewSettlementService creates a settlement service
func NewSettlementService(uowFactory UnitOfWorkFactory, authorizer Authorizer) *SettlementService {
	return &SettlementService{
		uowFactory: uowFactory,
		authorizer: authorizer,
	}
}

// Settle settles a drawn run. A settled run returns its stored summary
// without touching any ticket; a run another settler currently holds
// returns ErrSettlementInProgress.
func (s *SettlementService) Settle(ctx context.Context, actor Actor, runID int64) (*models.SettlementSummary, error) {
	return s.settle(ctx, actor, runID, false)
}

// ResumeSettlement continues a settlement that crashed while holding the
// settling state. Safe to call on a healthy run: it only differs from
// Settle in accepting the settling state as a starting point.
func (s *SettlementService) ResumeSettlement(ctx context.Context, actor Actor, runID int64) (*models.SettlementSummary, error) {
	return s.settle(ctx, actor, runID, true)
}

func (s *SettlementService) settle(ctx context.Context, actor Actor, runID int64, resume bool) (*models.SettlementSummary, error) {
	if err := s.authorizer.Authorize(ctx, actor, ActionSettleRun); err != nil {
		return nil, err
	}

	run, err := s.claimRun(ctx, runID, resume)
	if err != nil {
		return nil, err
	}
	if run.IsSettled() {
		return summaryOf(run), nil
	}

	tierBudget, err := s.buildTierBudget(ctx, run)
	if err != nil {
		return nil, err
	}

	if err := s.settleAllPages(ctx, run, tierBudget); err != nil {
		return nil, err
	}

	summary, err := s.finalize(ctx, actor, run)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"runID":       runID,
		"totalPayout": summary.TotalPayout,
		"actorID":     actor.ID,
	}).Info("run settled")

	recordAudit(ctx, s.uowFactory, &models.AuditEntry{
		ActorID:   actor.ID,
		ActorType: actor.Type,
		Action:    models.AuditActionRunSettled,
		Entity:    "draw_run",
		EntityID:  strconv.FormatInt(runID, 10),
		Metadata:  map[string]any{"total_payout": summary.TotalPayout},
	})
	return summary, nil
}

// claimRun moves the run into the settling state, or returns it as-is when
// it is already settled. The drawn-to-settling flip is a conditional write:
// exactly one caller wins it.
func (s *SettlementService) claimRun(ctx context.Context, runID int64, resume bool) (*models.DrawRun, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	run, err := uow.DrawRunRepository().GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	if run == nil {
		return nil, fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}

	switch run.Status {
	case models.RunStatusSettled:
		return run, nil

	case models.RunStatusSettling:
		if !resume {
			return nil, fmt.Errorf("run %d: %w", runID, ErrSettlementInProgress)
		}
		return run, nil

	case models.RunStatusDrawn:
		flipped, err := uow.DrawRunRepository().TransitionStatus(ctx, runID, models.RunStatusDrawn, models.RunStatusSettling)
		if err != nil {
			return nil, fmt.Errorf("failed to claim run %d for settlement: %w", runID, err)
		}
		if !flipped {
			return nil, fmt.Errorf("run %d: %w", runID, ErrSettlementInProgress)
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
		run.Status = models.RunStatusSettling
		return run, nil

	default:
		return nil, fmt.Errorf("run %d is %s, not drawn: %w", runID, run.Status, ErrInvalidState)
	}
}

// buildTierBudget initializes the jackpot winner caps, subtracting winners
// an interrupted earlier attempt already paid. Nil for other families.
func (s *SettlementService) buildTierBudget(ctx context.Context, run *models.DrawRun) (map[models.PrizeTier]int64, error) {
	if run.Family != models.FamilyJackpot {
		return nil, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	alreadyPaid, err := uow.WinnerRepository().CountByTier(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count winners for run %d: %w", run.ID, err)
	}
	return NewJackpotTierBudget(run.ConfigSnapshot.Jackpot, alreadyPaid), nil
}

// settleAllPages walks the run's tickets in id order, one transaction per
// page. The cursor is the last seen ticket id, so resumed attempts skip
// already-terminal tickets cheaply.
func (s *SettlementService) settleAllPages(ctx context.Context, run *models.DrawRun, tierBudget map[models.PrizeTier]int64) error {
	afterID := int64(0)
	for {
		lastID, count, err := s.settlePage(ctx, run, afterID, tierBudget)
		if err != nil {
			return err
		}
		if count < settlementPageSize {
			return nil
		}
		afterID = lastID
	}
}

// settlePage classifies and pays one page of tickets in a single
// transaction. Returns the last ticket id seen and how many tickets the
// page held.
func (s *SettlementService) settlePage(ctx context.Context, run *models.DrawRun, afterID int64, tierBudget map[models.PrizeTier]int64) (int64, int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tickets, err := uow.TicketRepository().ListPageForSettlement(ctx, run.ID, afterID, settlementPageSize)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list tickets for run %d: %w", run.ID, err)
	}
	if len(tickets) == 0 {
		return afterID, 0, nil
	}

	wallet := NewWalletService(
		uow.UserRepository(),
		uow.WalletTransactionRepository(),
		uow.WithdrawalRepository(),
		uow.EventBus(),
	)

	lastID := afterID
	for _, ticket := range tickets {
		lastID = ticket.ID
		// Terminal tickets were paid by an earlier committed page.
		if ticket.Status != models.TicketStatusLocked {
			continue
		}

		outcome, err := ResolveTicket(run, ticket, tierBudget)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to resolve ticket %d: %w", ticket.ID, err)
		}

		if !outcome.Won {
			if _, err := uow.TicketRepository().MarkLost(ctx, ticket.ID); err != nil {
				return 0, 0, fmt.Errorf("failed to mark ticket %d lost: %w", ticket.ID, err)
			}
			continue
		}

		marked, err := uow.TicketRepository().MarkWon(ctx, ticket.ID, outcome.Tier, outcome.Payout)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to mark ticket %d won: %w", ticket.ID, err)
		}
		if !marked {
			continue
		}

		reference := fmt.Sprintf("run:%d:ticket:%d", run.ID, ticket.ID)
		if _, err := wallet.Credit(ctx, ticket.UserID, outcome.Payout, models.ReasonDrawWin, reference); err != nil {
			return 0, 0, fmt.Errorf("failed to credit win for ticket %d: %w", ticket.ID, err)
		}

		if err := uow.WinnerRepository().Create(ctx, &models.Winner{
			RunID:     run.ID,
			TicketID:  ticket.ID,
			UserID:    ticket.UserID,
			Number:    ticket.Number,
			PrizeTier: outcome.Tier,
			WinAmount: outcome.Payout,
		}); err != nil {
			return 0, 0, fmt.Errorf("failed to record winner for ticket %d: %w", ticket.ID, err)
		}

		if tierBudget != nil {
			tierBudget[outcome.Tier]--
		}

		uow.EventBus().Publish(events.WinnerPaidEvent{
			RunID:     run.ID,
			TicketID:  ticket.ID,
			UserID:    ticket.UserID,
			Number:    ticket.Number,
			PrizeTier: outcome.Tier,
			WinAmount: outcome.Payout,
		})
	}

	if err := uow.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit settlement page for run %d: %w", run.ID, err)
	}
	return lastID, len(tickets), nil
}

// finalize recomputes the run totals from the database and flips settling
// to settled. Totals come from committed rows, not in-memory accumulation,
// so a resumed settlement reports the complete picture.
func (s *SettlementService) finalize(ctx context.Context, actor Actor, run *models.DrawRun) (*models.SettlementSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	totalPayout, err := uow.TicketRepository().SumWinAmountByRun(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payouts for run %d: %w", run.ID, err)
	}
	tierCounts, err := uow.WinnerRepository().CountByTier(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count winners for run %d: %w", run.ID, err)
	}

	settledAt := time.Now()
	flipped, err := uow.DrawRunRepository().FinalizeSettlement(ctx, run.ID, totalPayout, tierCounts, settledAt)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize run %d: %w", run.ID, err)
	}
	if !flipped {
		// Another settler finished first; its summary is authoritative.
		settled, err := uow.DrawRunRepository().GetByID(ctx, run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get run %d: %w", run.ID, err)
		}
		if settled == nil || !settled.IsSettled() {
			return nil, fmt.Errorf("run %d left the settling state unexpectedly: %w", run.ID, ErrInvalidState)
		}
		return summaryOf(settled), nil
	}

	uow.EventBus().Publish(events.RunSettledEvent{
		RunID:       run.ID,
		ActorID:     actor.ID,
		TotalPayout: totalPayout,
		TierCounts:  tierCounts,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return &models.SettlementSummary{
		RunID:       run.ID,
		TotalPayout: totalPayout,
		TierCounts:  tierCounts,
		SettledAt:   settledAt,
	}, nil
}

func summaryOf(run *models.DrawRun) *models.SettlementSummary {
	summary := &models.SettlementSummary{
		RunID:       run.ID,
		TotalPayout: run.TotalPayout,
		TierCounts:  run.TierCounts,
	}
	if run.SettledAt != nil {
		summary.SettledAt = *run.SettledAt
	}
	return summary
}
