package worker

import (
	"context"
	"sync"
	"time"

	"drawhouse/events"
	"drawhouse/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// lockReminderLead is how far ahead of the sales cutoff the reminder fires
const lockReminderLead = 10 * time.Minute

// Scheduler runs the recurring draw jobs: daily run creation, automatic
// locking of runs past their cutoff and the approaching-lock reminder.
type Scheduler struct {
	cron       *cron.Cron
	runService *service.DrawRunService
	bus        *events.Bus

	mu       sync.Mutex
	reminded map[int64]bool
}

// NewScheduler creates a scheduler over the given run service and event bus
func NewScheduler(runService *service.DrawRunService, bus *events.Bus) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		runService: runService,
		bus:        bus,
		reminded:   make(map[int64]bool),
	}
}

// Start registers the jobs and starts the cron loop.
// runCreationSchedule is a cron expression for the daily run creation job;
// the lock jobs run every minute.
func (s *Scheduler) Start(runCreationSchedule string) error {
	if _, err := s.cron.AddFunc(runCreationSchedule, s.createRuns); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("* * * * *", s.lockDueRuns); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("* * * * *", s.remindUpcomingLocks); err != nil {
		return err
	}

	s.cron.Start()
	log.WithField("runCreationSchedule", runCreationSchedule).Info("scheduler started")
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("scheduler stopped")
}

func (s *Scheduler) createRuns() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	created, err := s.runService.EnsureRunsForDate(ctx, time.Now())
	if err != nil {
		log.WithError(err).Error("scheduled run creation failed")
		return
	}
	if created > 0 {
		log.WithField("created", created).Info("scheduled run creation completed")
	}
}

func (s *Scheduler) lockDueRuns() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	locked, err := s.runService.LockDueRuns(ctx, time.Now())
	if err != nil {
		log.WithError(err).Error("automatic run locking failed")
		return
	}
	if locked > 0 {
		log.WithField("locked", locked).Info("runs locked at sales cutoff")
	}
}

// remindUpcomingLocks emits one reminder event per run shortly before its
// sales cutoff. The reminded set keeps the minutely job from repeating
// itself; it is process-local, so a restart may remind once more.
func (s *Scheduler) remindUpcomingLocks() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now()
	closing, err := s.runService.ListOpenRunsClosingBefore(ctx, now.Add(lockReminderLead))
	if err != nil {
		log.WithError(err).Error("failed to list runs approaching lock")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, run := range closing {
		if s.reminded[run.ID] || run.CloseAt == nil || run.CloseAt.Before(now) {
			continue
		}
		s.reminded[run.ID] = true
		s.bus.Emit(ctx, events.RunLockApproachingEvent{
			RunID:   run.ID,
			CloseAt: run.CloseAt.Unix(),
		})
	}
}
