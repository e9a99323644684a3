package cmd

import (
	"context"
	"fmt"
	"time"

	"drawhouse/config"
	"drawhouse/database"
	"drawhouse/events"
	"drawhouse/repository"
	"drawhouse/service"
	"drawhouse/worker"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting drawhouse...")

	cfg := config.Get()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	authorizer := service.NewOperatorAuthorizer(cfg.OperatorIDs)

	runService := service.NewDrawRunService(uowFactory, authorizer)

	// Committed events fan out to notifications outside the transaction.
	notificationHandler := service.NewNotificationHandler(service.NewLogNotifier())
	notificationHandler.Register(eventBus)

	scheduler := worker.NewScheduler(runService, eventBus)
	if err := scheduler.Start(cfg.RunCreationSchedule); err != nil {
		db.Close()
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.WithField("environment", cfg.Environment).Info("drawhouse is running")
	<-ctx.Done()

	log.Info("Shutting down...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}
