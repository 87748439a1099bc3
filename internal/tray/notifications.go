package tray

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// DesktopNotifier shows native notifications and logs each one
type DesktopNotifier struct {
	logger *zap.SugaredLogger
}

// NewDesktopNotifier creates a notifier backed by the OS notification center
func NewDesktopNotifier(logger *zap.SugaredLogger) *DesktopNotifier {
	return &DesktopNotifier{logger: logger}
}

// Notify implements Notifier
func (n *DesktopNotifier) Notify(title, message string) error {
	n.logger.Infow("Desktop notification", "title", title, "message", message)
	return beeep.Notify(title, message, "")
}

// LogNotifier only logs; used when notifications are disabled
type LogNotifier struct {
	logger *zap.SugaredLogger
}

// Notify implements Notifier
func (n LogNotifier) Notify(title, message string) error {
	n.logger.Infow("Notification", "title", title, "message", message)
	return nil
}
