package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alarmkit/alarmd/internal/core"
)

const pingTimeout = 2 * time.Second

// Channel implements core.Channel over NATS core pub/sub. NATS gives the
// exact semantics the contract asks for: fire-and-forget, at-most-once,
// ordered per sender, no delivery guarantee when nobody is subscribed yet.
type Channel struct {
	nc   *nats.Conn
	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewChannel wraps an existing NATS connection.
func NewChannel(nc *nats.Conn) *Channel {
	return &Channel{nc: nc}
}

// Connect dials NATS with unbounded reconnects and returns a Channel plus
// the raw connection for auxiliary consumers (KV, notifier).
func Connect(url string) (*Channel, *nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return NewChannel(nc), nc, nil
}

func (c *Channel) PublishSync(_ context.Context, alarms []core.SlimAlarm) error {
	data, err := marshalSync(alarms)
	if err != nil {
		return err
	}
	return c.nc.Publish(SubjectSync, data)
}

func (c *Channel) PublishFired(_ context.Context, alarm core.SlimAlarm) error {
	data, err := marshalFired(alarm)
	if err != nil {
		return err
	}
	return c.nc.Publish(SubjectFired, data)
}

func (c *Channel) PublishAction(_ context.Context, action string, alarm core.SlimAlarm) error {
	data, err := marshalAction(action, alarm)
	if err != nil {
		return err
	}
	return c.nc.Publish(SubjectAction, data)
}

func (c *Channel) PublishReady(_ context.Context) error {
	return c.nc.Publish(SubjectReady, nil)
}

func (c *Channel) SubscribeSync(fn func([]core.SlimAlarm)) (func(), error) {
	return c.subscribe(SubjectSync, func(msg *nats.Msg) {
		env, err := unmarshalEnvelope(msg.Data, core.MsgSyncAlarms)
		if err != nil {
			slog.Error("dropping malformed sync message", "error", err)
			return
		}
		fn(env.Alarms)
	})
}

func (c *Channel) SubscribeFired(fn func(core.SlimAlarm)) (func(), error) {
	return c.subscribe(SubjectFired, func(msg *nats.Msg) {
		env, err := unmarshalEnvelope(msg.Data, core.MsgAlarmFired)
		if err != nil || env.Alarm == nil {
			slog.Error("dropping malformed fired message", "error", err)
			return
		}
		fn(*env.Alarm)
	})
}

func (c *Channel) SubscribeAction(fn func(string, core.SlimAlarm)) (func(), error) {
	return c.subscribe(SubjectAction, func(msg *nats.Msg) {
		env, err := unmarshalEnvelope(msg.Data, core.MsgAlarmAction)
		if err != nil || env.Alarm == nil {
			slog.Error("dropping malformed action message", "error", err)
			return
		}
		fn(env.Action, *env.Alarm)
	})
}

func (c *Channel) SubscribeReady(fn func()) (func(), error) {
	return c.subscribe(SubjectReady, func(*nats.Msg) { fn() })
}

// Ping issues the keepalive probe. The background context answers inline;
// no responder maps to ErrNotReady so callers can treat it as advisory.
func (c *Channel) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	_, err := c.nc.RequestWithContext(ctx, SubjectPing, nil)
	if errors.Is(err, nats.ErrNoResponders) {
		return core.ErrNotReady
	}
	return err
}

// RespondPings answers keepalive probes with a fixed trivial reply and no
// side effects beyond fn.
func (c *Channel) RespondPings(fn func()) (func(), error) {
	return c.subscribe(SubjectPing, func(msg *nats.Msg) {
		fn()
		_ = msg.Respond([]byte("pong"))
	})
}

func (c *Channel) subscribe(subject string, handler nats.MsgHandler) (func(), error) {
	sub, err := c.nc.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return func() { _ = sub.Unsubscribe() }, nil
}

// Close unsubscribes everything. The underlying connection is owned by the
// caller.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.subs = nil
	return nil
}

var _ core.Channel = (*Channel)(nil)
