package service

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// logNotifier is the default Notifier: it records the notification in the
// log and reports success. Real delivery (push, Telegram) is an external
// collaborator wired in at startup.
type logNotifier struct{}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier() Notifier {
	return &logNotifier{}
}

func (n *logNotifier) Notify(ctx context.Context, userID int64, notification Notification) error {
	log.WithFields(log.Fields{
		"userID":      userID,
		"title":       notification.Title,
		"screen":      notification.Screen,
		"referenceID": notification.ReferenceID,
	}).Info("notification dispatched")
	return nil
}
