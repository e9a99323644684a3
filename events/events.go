package events

import (
	"context"
	"sync"

	"drawhouse/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeRunLocked           EventType = "run_locked"
	EventTypeRunDrawn            EventType = "run_drawn"
	EventTypeRunSettled          EventType = "run_settled"
	EventTypeWinnerPaid          EventType = "winner_paid"
	EventTypeWithdrawalDecided   EventType = "withdrawal_decided"
	EventTypeRunLockApproaching  EventType = "run_lock_approaching"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// RunLockedEvent fires when a run's sales close
type RunLockedEvent struct {
	RunID         int64
	DefinitionID  int64
	TicketsLocked int64
	Sales         int64
}

func (e RunLockedEvent) Type() EventType {
	return EventTypeRunLocked
}

// RunDrawnEvent fires when a run's random result is persisted
type RunDrawnEvent struct {
	RunID  int64
	Result models.DrawResult
}

func (e RunDrawnEvent) Type() EventType {
	return EventTypeRunDrawn
}

// RunSettledEvent fires once a run reaches its terminal state
type RunSettledEvent struct {
	RunID       int64
	ActorID     string
	TotalPayout int64
	TierCounts  map[models.PrizeTier]int64
}

func (e RunSettledEvent) Type() EventType {
	return EventTypeRunSettled
}

// WinnerPaidEvent fires per winning ticket after its payout page commits
type WinnerPaidEvent struct {
	RunID     int64
	TicketID  int64
	UserID    int64
	Number    string
	PrizeTier models.PrizeTier
	WinAmount int64
}

func (e WinnerPaidEvent) Type() EventType {
	return EventTypeWinnerPaid
}

// WithdrawalDecidedEvent fires when a withdrawal is approved or rejected
type WithdrawalDecidedEvent struct {
	WithdrawalID int64
	UserID       int64
	Amount       int64
	Status       models.WithdrawalStatus
	ActorID      string
}

func (e WithdrawalDecidedEvent) Type() EventType {
	return EventTypeWithdrawalDecided
}

// RunLockApproachingEvent fires when a run is close to its lock time
type RunLockApproachingEvent struct {
	RunID   int64
	CloseAt int64 // unix seconds
}

func (e RunLockApproachingEvent) Type() EventType {
	return EventTypeRunLockApproaching
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously; a panicking handler never affects the caller.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}

// TransactionalBus stashes events raised inside a unit of work and flushes
// them to the real bus only after the database transaction commits. This
// keeps notification and audit fan-out outside the transactional path.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional bus over the given real bus
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events. Called after successful commit.
// Uses a background context so event delivery outlives the transaction.
func (b *TransactionalBus) Flush(ctx context.Context) {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events. Called after rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
