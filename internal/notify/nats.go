package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	natsgo "github.com/nats-io/nats.go"

	alarmnats "github.com/alarmkit/alarmd/internal/nats"
	"github.com/alarmkit/alarmd/internal/metrics"
)

// NATSNotifier publishes notifications for an attached notification agent
// (desktop bridge, mobile push relay) and receives interactions back.
// Publishing to a per-tag subject gives replace-not-stack semantics: an
// agent keyed on the subject shows at most one notification per tag.
type NATSNotifier struct {
	nc *natsgo.Conn
}

// NewNATS returns a notifier publishing over nc.
func NewNATS(nc *natsgo.Conn) *NATSNotifier {
	return &NATSNotifier{nc: nc}
}

func (n *NATSNotifier) Notify(_ context.Context, notification Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.nc.Publish(alarmnats.NotifySubject(notification.Tag), data); err != nil {
		metrics.Notifications.WithLabelValues("error").Inc()
		return fmt.Errorf("publish notification: %w", err)
	}
	metrics.Notifications.WithLabelValues("ok").Inc()
	return nil
}

// OnInteraction subscribes to interaction echoes from notification agents.
func (n *NATSNotifier) OnInteraction(fn func(Interaction)) (func(), error) {
	sub, err := n.nc.Subscribe(alarmnats.SubjectNotifyInteract, func(msg *natsgo.Msg) {
		var in Interaction
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			slog.Error("dropping malformed notification interaction", "error", err)
			return
		}
		fn(in)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to interactions: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

var (
	_ Notifier          = (*NATSNotifier)(nil)
	_ InteractionSource = (*NATSNotifier)(nil)
)
