package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/alarmkit/alarmd/internal/core"
	"github.com/alarmkit/alarmd/internal/metrics"
	"github.com/alarmkit/alarmd/internal/notify"
)

const (
	// BackgroundTickInterval is the coarse background evaluation period.
	BackgroundTickInterval = 30 * time.Second

	// presenceHorizon is how long after the last keepalive ping the
	// foreground context is still assumed reachable.
	presenceHorizon = 60 * time.Second

	// wakeGrace is how long an interaction handler waits for a freshly
	// started foreground context to come up before broadcasting anyway.
	wakeGrace = 3 * time.Second
)

// BackgroundConfig assembles a background scheduler.
type BackgroundConfig struct {
	Channel  core.Channel
	Notifier notify.Notifier

	// Clock defaults to time.Now; tests inject a fake.
	Clock func() time.Time
	// TickInterval defaults to BackgroundTickInterval.
	TickInterval time.Duration
}

// Background holds a slim replacement snapshot pushed by the foreground
// context and runs the coarse tick loop. It never rings audio and never
// mutates alarm records; a fire means a notification plus a broadcast so
// the foreground context can do the rest.
type Background struct {
	cfg BackgroundConfig

	mu       sync.Mutex
	alarms   []core.SlimAlarm
	fired    *core.FiredSet
	lastSeen time.Time

	reset    chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	unsubs   []func()
}

// NewBackground builds a background scheduler with an empty snapshot.
func NewBackground(cfg BackgroundConfig) *Background {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = BackgroundTickInterval
	}
	return &Background{
		cfg:   cfg,
		fired: core.NewFiredSet(),
		reset: make(chan struct{}, 1),
		stop:  make(chan struct{}),
	}
}

// Start wires channel subscriptions, announces readiness and launches the
// tick loop. Readiness prompts the foreground context to re-send the
// snapshot dropped while this context was down.
func (b *Background) Start(ctx context.Context) error {
	unsub, err := b.cfg.Channel.SubscribeSync(func(alarms []core.SlimAlarm) {
		b.Sync(alarms)
	})
	if err != nil {
		return err
	}
	b.unsubs = append(b.unsubs, unsub)

	unsub, err = b.cfg.Channel.RespondPings(func() {
		b.markSeen()
	})
	if err != nil {
		return err
	}
	b.unsubs = append(b.unsubs, unsub)

	if src, ok := b.cfg.Notifier.(notify.InteractionSource); ok {
		unsub, err = src.OnInteraction(func(in notify.Interaction) {
			b.HandleInteraction(ctx, in)
		})
		if err != nil {
			return err
		}
		b.unsubs = append(b.unsubs, unsub)
	}

	if err := b.cfg.Channel.PublishReady(ctx); err != nil {
		slog.Warn("readiness announce failed", "error", err)
	}

	slog.Info("background scheduler starting")
	go b.run(ctx)
	return nil
}

func (b *Background) run(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-b.reset:
			// A fresh snapshot realigns the coarse tick so the next
			// evaluation lands a full interval away, not mid-cycle.
			ticker.Reset(b.cfg.TickInterval)
		case <-ticker.C:
			b.Tick(ctx, b.cfg.Clock())
		}
	}
}

// Stop halts the tick loop and drops channel subscriptions. Idempotent.
func (b *Background) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
		for _, unsub := range b.unsubs {
			unsub()
		}
	})
}

// Sync atomically replaces the slim snapshot. The foreground context owns
// the records; the previous snapshot is discarded wholesale.
func (b *Background) Sync(alarms []core.SlimAlarm) {
	b.mu.Lock()
	b.alarms = alarms
	b.mu.Unlock()
	b.markSeen()

	select {
	case b.reset <- struct{}{}:
	default:
	}
	slog.Debug("snapshot replaced", "alarms", len(alarms))
}

// Tick runs one evaluation pass. A fire posts a notification and
// broadcasts the event; the snapshot itself is never touched, so a
// one-shot stays armed here until the foreground context disables it
// and pushes the updated snapshot.
func (b *Background) Tick(ctx context.Context, now time.Time) {
	b.mu.Lock()
	decision := core.Evaluate(now, b.alarms, b.fired, core.EvalOptions{
		WindowSeconds: core.BackgroundWindowSeconds,
	})
	b.mu.Unlock()
	if decision == nil {
		return
	}

	alarm := decision.Alarm
	metrics.Fires.WithLabelValues("background").Inc()
	slog.Info("alarm fired", "context", "background", "alarm_id", alarm.ID, "minute", decision.Minute)

	data, _ := json.Marshal(alarm)
	if err := b.cfg.Notifier.Notify(ctx, notify.Notification{
		Title:   alarm.Name,
		Body:    "Alarm at " + alarm.Time,
		Tag:     alarm.ID,
		Actions: []string{core.ActionDismiss},
		Data:    data,
	}); err != nil {
		slog.Warn("fire notification failed", "alarm_id", alarm.ID, "error", err)
	}

	if err := b.cfg.Channel.PublishFired(ctx, alarm); err != nil {
		slog.Warn("fire broadcast failed", "alarm_id", alarm.ID, "error", err)
		return
	}
	metrics.SyncMessages.WithLabelValues(core.MsgAlarmFired).Inc()
}

// HandleInteraction reacts to a notification click. Both the dismiss
// action button and a plain body click dismiss the alarm. When no
// foreground context has answered a ping recently, the broadcast is
// delayed briefly to give a newly opened one a chance to subscribe;
// delivery stays best-effort either way.
func (b *Background) HandleInteraction(ctx context.Context, in notify.Interaction) {
	if in.Action != "" && in.Action != core.ActionDismiss {
		return
	}

	alarm := b.resolveInteraction(in)

	b.mu.Lock()
	seen := b.lastSeen
	b.mu.Unlock()
	if b.cfg.Clock().Sub(seen) > presenceHorizon {
		slog.Info("no live foreground context, delaying dismiss", "alarm_id", alarm.ID)
		select {
		case <-time.After(wakeGrace):
		case <-ctx.Done():
			return
		}
	}

	if err := b.cfg.Channel.PublishAction(ctx, core.ActionDismiss, alarm); err != nil {
		slog.Warn("dismiss broadcast failed", "alarm_id", alarm.ID, "error", err)
		return
	}
	metrics.SyncMessages.WithLabelValues(core.MsgAlarmAction).Inc()
}

// resolveInteraction recovers the alarm behind a notification: the
// payload attached at fire time first, the snapshot by tag second, a
// bare id as last resort.
func (b *Background) resolveInteraction(in notify.Interaction) core.SlimAlarm {
	if len(in.Data) > 0 {
		var alarm core.SlimAlarm
		if err := json.Unmarshal(in.Data, &alarm); err == nil && alarm.ID != "" {
			return alarm
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.alarms {
		if a.ID == in.Tag {
			return a
		}
	}
	return core.SlimAlarm{ID: in.Tag}
}

func (b *Background) markSeen() {
	b.mu.Lock()
	b.lastSeen = b.cfg.Clock()
	b.mu.Unlock()
}
