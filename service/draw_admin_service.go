package service

import (
	"context"
	"fmt"
	"strconv"

	"drawhouse/models"

	log "github.com/sirupsen/logrus"
)

// DrawAdminService handles operator management of draw definitions.
// Definitions are edited only while no dependent run is in flight, so a
// config snapshot taken at run creation is always the one settlement sees.
type DrawAdminService struct {
	uowFactory UnitOfWorkFactory
	authorizer Authorizer
}

// NewDrawAdminService creates a draw admin service
func NewDrawAdminService(uowFactory UnitOfWorkFactory, authorizer Authorizer) *DrawAdminService {
	return &DrawAdminService{
		uowFactory: uowFactory,
		authorizer: authorizer,
	}
}

// CreateDefinition validates and persists a new draw definition
func (s *DrawAdminService) CreateDefinition(ctx context.Context, actor Actor, def *models.DrawDefinition) error {
	if err := s.authorizer.Authorize(ctx, actor, ActionManageDefinitions); err != nil {
		return err
	}
	if def.Name == "" {
		return NewValidationError("definition name is required")
	}
	if def.Schedule == "" {
		return NewValidationError("definition schedule is required")
	}
	if err := def.Config.Validate(); err != nil {
		return NewValidationError("invalid draw config: %v", err)
	}
	if def.Status == "" {
		def.Status = models.DefinitionStatusOpen
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.DrawDefinitionRepository().Create(ctx, def); err != nil {
		return fmt.Errorf("failed to create definition: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	log.WithFields(log.Fields{
		"definitionID": def.ID,
		"family":       def.Config.Family,
		"actorID":      actor.ID,
	}).Info("draw definition created")

	recordAudit(ctx, s.uowFactory, &models.AuditEntry{
		ActorID:   actor.ID,
		ActorType: actor.Type,
		Action:    models.AuditActionDefinitionCreated,
		Entity:    "draw_definition",
		EntityID:  strconv.FormatInt(def.ID, 10),
		Metadata:  map[string]any{"family": string(def.Config.Family), "name": def.Name},
	})
	return nil
}

// UpdateDefinition replaces a definition's schedule, status and config.
// Blocked while any of its runs is still in flight: in-flight runs hold a
// snapshot, and editing under them invites operator confusion about which
// rules apply.
func (s *DrawAdminService) UpdateDefinition(ctx context.Context, actor Actor, def *models.DrawDefinition) error {
	if err := s.authorizer.Authorize(ctx, actor, ActionManageDefinitions); err != nil {
		return err
	}
	if err := def.Config.Validate(); err != nil {
		return NewValidationError("invalid draw config: %v", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	existing, err := uow.DrawDefinitionRepository().GetByID(ctx, def.ID)
	if err != nil {
		return fmt.Errorf("failed to get definition %d: %w", def.ID, err)
	}
	if existing == nil {
		return fmt.Errorf("definition %d: %w", def.ID, ErrNotFound)
	}

	inFlight, err := uow.DrawRunRepository().CountNonTerminalByDefinition(ctx, def.ID)
	if err != nil {
		return fmt.Errorf("failed to count runs for definition %d: %w", def.ID, err)
	}
	if inFlight > 0 {
		return fmt.Errorf("definition %d has %d unsettled runs: %w", def.ID, inFlight, ErrInvalidState)
	}

	if err := uow.DrawDefinitionRepository().Update(ctx, def); err != nil {
		return fmt.Errorf("failed to update definition %d: %w", def.ID, err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	recordAudit(ctx, s.uowFactory, &models.AuditEntry{
		ActorID:   actor.ID,
		ActorType: actor.Type,
		Action:    models.AuditActionDefinitionUpdated,
		Entity:    "draw_definition",
		EntityID:  strconv.FormatInt(def.ID, 10),
		Metadata:  map[string]any{"family": string(def.Config.Family)},
	})
	return nil
}

// ConfigurePrizes replaces only the prize configuration of a definition,
// under the same in-flight guard as UpdateDefinition. Misconfigured tiers
// (ordering violations, liability above the jackpot fund) are rejected
// here so settlement never encounters them.
func (s *DrawAdminService) ConfigurePrizes(ctx context.Context, actor Actor, definitionID int64, config models.DrawConfig) (*models.DrawDefinition, error) {
	if err := s.authorizer.Authorize(ctx, actor, ActionManageDefinitions); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid draw config: %v", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	def, err := uow.DrawDefinitionRepository().GetByID(ctx, definitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get definition %d: %w", definitionID, err)
	}
	if def == nil {
		return nil, fmt.Errorf("definition %d: %w", definitionID, ErrNotFound)
	}
	if def.Config.Family != config.Family {
		return nil, NewValidationError("cannot change family of definition %d from %s to %s",
			definitionID, def.Config.Family, config.Family)
	}

	inFlight, err := uow.DrawRunRepository().CountNonTerminalByDefinition(ctx, definitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count runs for definition %d: %w", definitionID, err)
	}
	if inFlight > 0 {
		return nil, fmt.Errorf("definition %d has %d unsettled runs: %w", definitionID, inFlight, ErrInvalidState)
	}

	def.Config = config
	if err := uow.DrawDefinitionRepository().Update(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to update definition %d: %w", definitionID, err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	recordAudit(ctx, s.uowFactory, &models.AuditEntry{
		ActorID:   actor.ID,
		ActorType: actor.Type,
		Action:    models.AuditActionDefinitionUpdated,
		Entity:    "draw_definition",
		EntityID:  strconv.FormatInt(definitionID, 10),
		Metadata:  map[string]any{"change": "prizes"},
	})
	return def, nil
}

// DeleteDefinition removes a definition. Forbidden once any run of the
// definition has sold tickets, settled or not: the definition row is the
// anchor for historical reporting.
func (s *DrawAdminService) DeleteDefinition(ctx context.Context, actor Actor, definitionID int64) error {
	if err := s.authorizer.Authorize(ctx, actor, ActionManageDefinitions); err != nil {
		return err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	def, err := uow.DrawDefinitionRepository().GetByID(ctx, definitionID)
	if err != nil {
		return fmt.Errorf("failed to get definition %d: %w", definitionID, err)
	}
	if def == nil {
		return fmt.Errorf("definition %d: %w", definitionID, ErrNotFound)
	}

	inFlight, err := uow.DrawRunRepository().CountNonTerminalByDefinition(ctx, definitionID)
	if err != nil {
		return fmt.Errorf("failed to count runs for definition %d: %w", definitionID, err)
	}
	if inFlight > 0 {
		return fmt.Errorf("definition %d has %d unsettled runs: %w", definitionID, inFlight, ErrInvalidState)
	}

	sold, err := uow.TicketRepository().CountByDefinition(ctx, definitionID)
	if err != nil {
		return fmt.Errorf("failed to count tickets for definition %d: %w", definitionID, err)
	}
	if sold > 0 {
		return fmt.Errorf("definition %d has %d sold tickets: %w", definitionID, sold, ErrInvalidState)
	}

	if err := uow.DrawDefinitionRepository().Delete(ctx, definitionID); err != nil {
		return fmt.Errorf("failed to delete definition %d: %w", definitionID, err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	recordAudit(ctx, s.uowFactory, &models.AuditEntry{
		ActorID:   actor.ID,
		ActorType: actor.Type,
		Action:    models.AuditActionDefinitionDeleted,
		Entity:    "draw_definition",
		EntityID:  strconv.FormatInt(definitionID, 10),
		Metadata:  map[string]any{"name": def.Name},
	})
	return nil
}

// GetDefinition returns a definition by id
func (s *DrawAdminService) GetDefinition(ctx context.Context, definitionID int64) (*models.DrawDefinition, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	def, err := uow.DrawDefinitionRepository().GetByID(ctx, definitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get definition %d: %w", definitionID, err)
	}
	if def == nil {
		return nil, fmt.Errorf("definition %d: %w", definitionID, ErrNotFound)
	}
	return def, nil
}
