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

// settlementPageSize bounds how many tickets one settlement transaction
// touches. Small enough to keep row locks short, large enough to amortize
// the per-page commit.
const settlementPageSize = 500

// DrawRunService drives the run lifecycle: scheduled creation, ticket
// sales, locking and the random draw. Settlement lives in its own service.
type DrawRunService struct {
	uowFactory UnitOfWorkFactory
	authorizer Authorizer
}

// NewDrawRunService creates a draw run service
func NewDrawRunService(uowFactory UnitOfWorkFactory, authorizer Authorizer) *DrawRunService {
	return &DrawRunService{
		uowFactory: uowFactory,
		authorizer: authorizer,
	}
}

// EnsureRunsForDate creates the day's run for every active definition that
// does not have one yet. Idempotent: re-running for the same date creates
// nothing, so the scheduler can fire it as often as it likes.
func (s *DrawRunService) EnsureRunsForDate(ctx context.Context, date time.Time) (int, error) {
	runDate := date.UTC().Truncate(24 * time.Hour)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	defs, err := uow.DrawDefinitionRepository().GetActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active definitions: %w", err)
	}

	created := 0
	for _, def := range defs {
		openAt := runDate
		run := &models.DrawRun{
			DefinitionID:   def.ID,
			Family:         def.Config.Family,
			RunDate:        runDate,
			Status:         models.RunStatusOpen,
			ConfigSnapshot: def.Config,
			OpenAt:         &openAt,
			CloseAt:        def.CloseAtFor(runDate),
		}
		_, wasCreated, err := uow.DrawRunRepository().CreateIfAbsent(ctx, run)
		if err != nil {
			return 0, fmt.Errorf("failed to create run for definition %d: %w", def.ID, err)
		}
		if wasCreated {
			created++
		}
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	if created > 0 {
		log.WithFields(log.Fields{
			"runDate": runDate.Format("2006-01-02"),
			"created": created,
		}).Info("scheduled draw runs created")
	}
	return created, nil
}

// PurchaseTicket sells one ticket against an open run. The stake debit,
// the ticket row and the sales increment commit as one unit; a failed debit
// leaves no ticket behind.
func (s *DrawRunService) PurchaseTicket(ctx context.Context, userID, runID int64, ticketType models.TicketType, number string, amount int64) (*models.Ticket, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	run, err := uow.DrawRunRepository().GetByIDForUpdate(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", runID, err)
	}
	if run == nil {
		return nil, fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}
	if !run.CanSellTickets(time.Now()) {
		return nil, fmt.Errorf("run %d is %s and not selling: %w", runID, run.Status, ErrInvalidState)
	}

	stake, err := validateTicket(run, ticketType, number, amount)
	if err != nil {
		return nil, err
	}

	ticket := &models.Ticket{
		RunID:  runID,
		UserID: userID,
		Type:   ticketType,
		Number: number,
		Amount: stake,
		Status: models.TicketStatusOpen,
	}
	if err := uow.TicketRepository().Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	wallet := NewWalletService(
		uow.UserRepository(),
		uow.WalletTransactionRepository(),
		uow.WithdrawalRepository(),
		uow.EventBus(),
	)
	reference := fmt.Sprintf("ticket:%d", ticket.ID)
	if _, err := wallet.Debit(ctx, userID, stake, models.ReasonTicketPurchase, reference); err != nil {
		return nil, err
	}

	if err := uow.DrawRunRepository().IncrementSales(ctx, runID, stake); err != nil {
		return nil, fmt.Errorf("failed to increment sales for run %d: %w", runID, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	log.WithFields(log.Fields{
		"ticketID": ticket.ID,
		"runID":    runID,
		"userID":   userID,
		"type":     ticketType,
		"stake":    stake,
	}).Info("ticket purchased")
	return ticket, nil
}

// validateTicket checks number shape and stake against the run's family
// rules, returning the effective stake.
func validateTicket(run *models.DrawRun, ticketType models.TicketType, number string, amount int64) (int64, error) {
	if !isDigits(number) {
		return 0, NewValidationError("ticket number %q must be digits only", number)
	}

	switch run.Family {
	case models.FamilyFixedNumber:
		cfg := run.ConfigSnapshot.FixedNumber
		if !cfg.TypeEnabled(ticketType) {
			return 0, NewValidationError("ticket type %s is not enabled for this draw", ticketType)
		}
		if len(number) != ticketType.NumberLength() {
			return 0, NewValidationError("ticket type %s requires a %d-digit number, got %q",
				ticketType, ticketType.NumberLength(), number)
		}
		if amount <= 0 {
			return 0, NewValidationError("stake must be positive, got %d", amount)
		}
		if amount > cfg.MaxBet {
			return 0, NewValidationError("stake %d exceeds max bet %d", amount, cfg.MaxBet)
		}
		return amount, nil

	case models.FamilyDigitSlot, models.FamilyJackpot:
		if ticketType != models.TicketTypeDigit {
			return 0, NewValidationError("ticket type %s is not valid for a digit draw", ticketType)
		}
		digits := run.ConfigSnapshot.Digits()
		if len(number) != digits {
			return 0, NewValidationError("ticket requires a %d-digit number, got %q", digits, number)
		}
		var price int64
		if run.Family == models.FamilyDigitSlot {
			price = run.ConfigSnapshot.DigitSlot.TicketPrice
		} else {
			price = run.ConfigSnapshot.Jackpot.TicketPrice
		}
		if amount != price {
			return 0, NewValidationError("ticket price is %d, got %d", price, amount)
		}
		return price, nil

	default:
		return 0, NewValidationError("unknown draw family %q", run.Family)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// LockRun closes sales on an open run and flips all its open tickets to
// locked in the same unit. The status flip is a conditional write, so two
// concurrent locks cannot both succeed.
func (s *DrawRunService) LockRun(ctx context.Context, actor Actor, runID int64) (*models.DrawRun, error) {
	if err := s.authorizer.Authorize(ctx, actor, ActionLockRun); err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	flipped, err := uow.DrawRunRepository().TransitionStatus(ctx, runID, models.RunStatusOpen, models.RunStatusLocked)
	if err != nil {
		return nil, fmt.Errorf("failed to lock run %d: %w", runID, err)
	}
	if !flipped {
		run, err := uow.DrawRunRepository().GetByID(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to get run %d: %w", runID, err)
		}
		if run == nil {
			return nil, fmt.Errorf("run %d: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("run %d is %s, not open: %w", runID, run.Status, ErrInvalidState)
	}

	lockedTickets, err := uow.TicketRepository().LockAllOpenForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock tickets for run %d: %w", runID, err)
	}

	run, err := uow.DrawRunRepository().GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run %d: %w", runID, err)
	}

	uow.EventBus().Publish(events.RunLockedEvent{
		RunID:         runID,
		DefinitionID:  run.DefinitionID,
		TicketsLocked: lockedTickets,
		Sales:         run.Sales,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	log.WithFields(log.Fields{
		"runID":         runID,
		"ticketsLocked": lockedTickets,
		"sales":         run.Sales,
		"actorID":       actor.ID,
	}).Info("run locked")

	recordAudit(ctx, s.uowFactory, &models.AuditEntry{
		ActorID:   actor.ID,
		ActorType: actor.Type,
		Action:    models.AuditActionRunLocked,
		Entity:    "draw_run",
		EntityID:  strconv.FormatInt(runID, 10),
		Metadata:  map[string]any{"tickets_locked": lockedTickets, "sales": run.Sales},
	})
	return run, nil
}

// LockDueRuns locks every open run whose sales cutoff has passed. Each run
// locks in its own unit so one failure does not hold the rest open.
func (s *DrawRunService) LockDueRuns(ctx context.Context, now time.Time) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	due, err := uow.DrawRunRepository().ListOpenClosingBefore(ctx, now)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list due runs: %w", err)
	}

	locked := 0
	for _, run := range due {
		if _, err := s.LockRun(ctx, SystemActor, run.ID); err != nil {
			log.WithError(err).WithField("runID", run.ID).Error("failed to lock due run")
			continue
		}
		locked++
	}
	return locked, nil
}

// ListOpenRunsClosingBefore returns open runs whose sales cutoff falls at or
// before the given instant. Used by the scheduler's lock-reminder job.
func (s *DrawRunService) ListOpenRunsClosingBefore(ctx context.Context, t time.Time) ([]*models.DrawRun, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()
	return uow.DrawRunRepository().ListOpenClosingBefore(ctx, t)
}

// TriggerDraw generates and persists the random result of a locked run.
// The run passes through the running guard state so a second concurrent
// trigger fails instead of drawing twice.
func (s *DrawRunService) TriggerDraw(ctx context.Context, actor Actor, runID int64) (*models.DrawRun, error) {
	if err := s.authorizer.Authorize(ctx, actor, ActionTriggerDraw); err != nil {
		return nil, err
	}

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
	if run.Status != models.RunStatusLocked {
		return nil, fmt.Errorf("run %d is %s, not locked: %w", runID, run.Status, ErrInvalidState)
	}
	if err := checkDrawSafe(run); err != nil {
		return nil, err
	}

	flipped, err := uow.DrawRunRepository().TransitionStatus(ctx, runID, models.RunStatusLocked, models.RunStatusRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to start draw for run %d: %w", runID, err)
	}
	if !flipped {
		return nil, fmt.Errorf("run %d draw already in progress: %w", runID, ErrInvalidState)
	}

	result, err := run.GenerateResult()
	if err != nil {
		return nil, fmt.Errorf("failed to generate result for run %d: %w", runID, err)
	}

	stored, err := uow.DrawRunRepository().SetResult(ctx, runID, result)
	if err != nil {
		return nil, fmt.Errorf("failed to store result for run %d: %w", runID, err)
	}
	if !stored {
		return nil, fmt.Errorf("run %d left the running state unexpectedly: %w", runID, ErrInvalidState)
	}

	run.Status = models.RunStatusDrawn
	run.Result = result

	uow.EventBus().Publish(events.RunDrawnEvent{
		RunID:  runID,
		Result: *result,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	log.WithFields(log.Fields{
		"runID":   runID,
		"family":  run.Family,
		"actorID": actor.ID,
	}).Info("draw result generated")

	recordAudit(ctx, s.uowFactory, &models.AuditEntry{
		ActorID:   actor.ID,
		ActorType: actor.Type,
		Action:    models.AuditActionRunDrawn,
		Entity:    "draw_run",
		EntityID:  strconv.FormatInt(runID, 10),
	})
	return run, nil
}

// checkDrawSafe enforces per-family minimum-sales floors before a result
// may be drawn. Jackpot runs must have sold the guaranteed fraction of the
// number space; fixed-number runs must clear their configured floor.
func checkDrawSafe(run *models.DrawRun) error {
	switch run.Family {
	case models.FamilyFixedNumber:
		cfg := run.ConfigSnapshot.FixedNumber
		if run.Sales < cfg.MinSales {
			return fmt.Errorf("run %d sales %d below floor %d: %w",
				run.ID, run.Sales, cfg.MinSales, ErrInvalidState)
		}
	case models.FamilyJackpot:
		cfg := run.ConfigSnapshot.Jackpot
		sold := run.Sales / cfg.TicketPrice
		pct := float64(sold) / float64(cfg.TotalCombinations())
		if pct < cfg.GuaranteedSalesPct() {
			return fmt.Errorf("run %d sold %.4f of the number space, guarantee needs %.4f: %w",
				run.ID, pct, cfg.GuaranteedSalesPct(), ErrInvalidState)
		}
	}
	return nil
}

// GetRun returns a run by id
func (s *DrawRunService) GetRun(ctx context.Context, runID int64) (*models.DrawRun, error) {
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
	return run, nil
}

// GetUserTickets returns a user's tickets for one run
func (s *DrawRunService) GetUserTickets(ctx context.Context, runID, userID int64) ([]*models.Ticket, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()
	return uow.TicketRepository().GetByUserForRun(ctx, runID, userID)
}
