package notify

import (
	"context"
	"log/slog"

	"github.com/alarmkit/alarmd/internal/metrics"
)

// LogNotifier is the fallback surface when no notification transport is
// available: it records the dispatch and succeeds, so the fire sequence
// degrades to audio/UI-only signaling.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	slog.Info("notification", "title", n.Title, "body", n.Body, "tag", n.Tag)
	metrics.Notifications.WithLabelValues("logged").Inc()
	return nil
}

var _ Notifier = LogNotifier{}
