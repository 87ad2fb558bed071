package notify

import (
	"context"

	"github.com/custodia-labs/policywatch/internal/core/domain"
	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/logger"
)

// Ensure LogNotifier implements the interface.
var _ driven.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the process log instead of sending them.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs the notification. It never fails.
func (n *LogNotifier) Notify(_ context.Context, note domain.Notification) error {
	attachments := make([]string, 0, len(note.Attachments))
	for _, a := range note.Attachments {
		attachments = append(attachments, a.Name)
	}

	zl := logger.Zerolog()
	zl.Info().
		Str("kind", string(note.Kind)).
		Str("subject", note.Subject).
		Str("body", note.Body).
		Strs("attachments", attachments).
		Msg("notification")
	return nil
}

// New returns an SMTP notifier when email is configured and a log notifier otherwise.
func New(settings domain.NotifySettings) driven.Notifier {
	if settings.IsConfigured() {
		return NewSMTPNotifier(settings)
	}
	logger.Info("notify: email not configured, notifications go to the log")
	return NewLogNotifier()
}
