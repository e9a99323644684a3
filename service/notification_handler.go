package service

import (
	"context"
	"fmt"

	"drawhouse/events"
	"drawhouse/models"

	log "github.com/sirupsen/logrus"
)

// NotificationHandler turns committed domain events into user
// notifications. It runs outside every transaction; a delivery failure is
// logged and dropped, never retried into the financial path.
type NotificationHandler struct {
	notifier Notifier
}

// NewNotificationHandler creates a notification handler
func NewNotificationHandler(notifier Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// Register subscribes the handler to the events it cares about
func (h *NotificationHandler) Register(bus *events.Bus) {
	bus.Subscribe(events.EventTypeWinnerPaid, h.handleWinnerPaid)
	bus.Subscribe(events.EventTypeWithdrawalDecided, h.handleWithdrawalDecided)
}

func (h *NotificationHandler) handleWinnerPaid(ctx context.Context, event events.Event) {
	e, ok := event.(events.WinnerPaidEvent)
	if !ok {
		return
	}

	err := h.notifier.Notify(ctx, e.UserID, Notification{
		Title:       "You won!",
		Body:        fmt.Sprintf("Your ticket %s won %d", e.Number, e.WinAmount),
		Screen:      "draw_result",
		Action:      "view_ticket",
		ReferenceID: fmt.Sprintf("run:%d:ticket:%d", e.RunID, e.TicketID),
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"userID":   e.UserID,
			"ticketID": e.TicketID,
		}).Warn("failed to deliver win notification")
	}
}

func (h *NotificationHandler) handleWithdrawalDecided(ctx context.Context, event events.Event) {
	e, ok := event.(events.WithdrawalDecidedEvent)
	if !ok {
		return
	}

	title := "Withdrawal approved"
	if e.Status != models.WithdrawalStatusApproved {
		title = "Withdrawal rejected"
	}

	err := h.notifier.Notify(ctx, e.UserID, Notification{
		Title:       title,
		Body:        fmt.Sprintf("Your withdrawal of %d was %s", e.Amount, e.Status),
		Screen:      "wallet",
		ReferenceID: fmt.Sprintf("withdrawal:%d", e.WithdrawalID),
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"userID":       e.UserID,
			"withdrawalID": e.WithdrawalID,
		}).Warn("failed to deliver withdrawal notification")
	}
}
