// Package scheduler runs the two alarm-firing tick loops: the foreground
// loop that owns full records, ringing state and audio output, and the
// background loop that owns slim records and notifications. Both wrap the
// same shared evaluation (core.Evaluate) with context-specific side
// effects and communicate only over the channel.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alarmkit/alarmd/internal/core"
	"github.com/alarmkit/alarmd/internal/metrics"
	"github.com/alarmkit/alarmd/internal/notify"
)

// ForegroundTickInterval is the foreground evaluation period.
const ForegroundTickInterval = time.Second

// Persister is the alarm document store. *kv.AlarmStore satisfies it.
type Persister interface {
	Load(ctx context.Context) []*core.Alarm
	Save(ctx context.Context, alarms []*core.Alarm) error
}

// Ringer plays alarm audio. *ring.Ringer satisfies it.
type Ringer interface {
	Ring(ctx context.Context, alarm *core.Alarm, onEnd func())
	Stop()
}

// ForegroundConfig assembles a foreground scheduler.
type ForegroundConfig struct {
	Channel  core.Channel
	Store    Persister
	Ringer   Ringer
	Notifier notify.Notifier

	// Clock defaults to time.Now; tests inject a fake.
	Clock func() time.Time
	// TickInterval defaults to ForegroundTickInterval.
	TickInterval time.Duration

	// OnFire and OnDismiss feed the local event surface (WebSocket hub).
	OnFire    func(core.SlimAlarm)
	OnDismiss func(core.SlimAlarm)
}

// Foreground owns the canonical alarm records, the ringing state and the
// 1-second tick loop. All mutations go through it: they persist, then push
// a slim replacement snapshot to the background context.
type Foreground struct {
	cfg ForegroundConfig

	mu      sync.Mutex
	alarms  []*core.Alarm
	fired   *core.FiredSet
	ringing *core.Alarm

	stop     chan struct{}
	stopOnce sync.Once
	unsubs   []func()
}

// NewForeground builds a foreground scheduler with an empty snapshot.
func NewForeground(cfg ForegroundConfig) *Foreground {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = ForegroundTickInterval
	}
	return &Foreground{
		cfg:   cfg,
		fired: core.NewFiredSet(),
		stop:  make(chan struct{}),
	}
}

// Start loads persisted alarms, wires channel subscriptions, pushes the
// initial snapshot and launches the tick loop.
func (f *Foreground) Start(ctx context.Context) error {
	alarms := f.cfg.Store.Load(ctx)
	f.mu.Lock()
	f.alarms = alarms
	f.mu.Unlock()
	slog.Info("foreground scheduler starting", "alarms", len(alarms))

	unsub, err := f.cfg.Channel.SubscribeFired(func(alarm core.SlimAlarm) {
		f.handleRemoteFire(ctx, alarm)
	})
	if err != nil {
		return err
	}
	f.unsubs = append(f.unsubs, unsub)

	unsub, err = f.cfg.Channel.SubscribeAction(func(action string, alarm core.SlimAlarm) {
		if action == core.ActionDismiss {
			_ = f.Dismiss(ctx)
		}
	})
	if err != nil {
		return err
	}
	f.unsubs = append(f.unsubs, unsub)

	// The background context drops syncs sent before it initializes;
	// its readiness signal triggers the recovering re-send.
	unsub, err = f.cfg.Channel.SubscribeReady(func() {
		f.syncToBackground(ctx)
	})
	if err != nil {
		return err
	}
	f.unsubs = append(f.unsubs, unsub)

	f.syncToBackground(ctx)

	go f.run(ctx)
	return nil
}

func (f *Foreground) run(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.Tick(ctx, f.cfg.Clock())
		}
	}
}

// Stop halts the tick loop and drops channel subscriptions. Idempotent.
func (f *Foreground) Stop() {
	f.stopOnce.Do(func() {
		close(f.stop)
		for _, unsub := range f.unsubs {
			unsub()
		}
	})
}

// Tick runs one evaluation pass and, on a fire, the ringing sequence.
func (f *Foreground) Tick(ctx context.Context, now time.Time) {
	f.mu.Lock()
	decision := core.Evaluate(now, core.SlimAll(f.alarms), f.fired, core.EvalOptions{
		WindowSeconds: core.ForegroundWindowSeconds,
		Ringing:       f.ringing != nil,
	})
	if decision == nil {
		f.mu.Unlock()
		return
	}
	full := f.findLocked(decision.Alarm.ID)
	if full == nil {
		// Snapshot changed between projection and lookup; skip.
		f.mu.Unlock()
		return
	}
	oneShot := len(full.Days) == 0
	if oneShot {
		full.Enabled = false
		full.UpdatedAt = core.FormatTime(now)
	}
	// Ring a clone; Save may rewrite the stored record mid-ring.
	full = full.Clone()
	f.ringing = full
	f.mu.Unlock()

	metrics.Fires.WithLabelValues("foreground").Inc()
	slog.Info("alarm fired", "context", "foreground", "alarm_id", full.ID, "minute", decision.Minute)

	f.ring(ctx, full)

	if oneShot {
		f.persistAndSync(ctx)
	}
}

// ring is the ringing sequence: reveal the overlay, passive notification,
// then audio with fallback. A clip ending naturally dismisses.
func (f *Foreground) ring(ctx context.Context, alarm *core.Alarm) {
	if f.cfg.OnFire != nil {
		f.cfg.OnFire(alarm.Slim())
	}
	if f.cfg.Notifier != nil {
		if err := f.cfg.Notifier.Notify(ctx, notify.Notification{
			Title: alarm.Name,
			Body:  "Alarm at " + alarm.Time,
			Tag:   alarm.ID,
		}); err != nil {
			slog.Warn("passive notification failed", "alarm_id", alarm.ID, "error", err)
		}
	}
	f.cfg.Ringer.Ring(ctx, alarm, func() { _ = f.Dismiss(ctx) })
}

// handleRemoteFire mirrors a background-detected fire locally so the
// ringing overlay stays consistent across contexts. The local full record
// wins when present; otherwise audio resolves through the blob key carried
// by the slim copy, never inline data.
func (f *Foreground) handleRemoteFire(ctx context.Context, slim core.SlimAlarm) {
	f.mu.Lock()
	if f.ringing != nil {
		// One overlay at a time; the duplicate fire is resolved here.
		f.mu.Unlock()
		return
	}
	full := f.findLocked(slim.ID)
	if full != nil {
		full = full.Clone()
	} else {
		full = &core.Alarm{
			ID:       slim.ID,
			Name:     slim.Name,
			Time:     slim.Time,
			Days:     slim.Days,
			Enabled:  slim.Enabled,
			Category: slim.Category,
			AudioKey: slim.AudioKey,
		}
	}
	f.ringing = full
	f.mu.Unlock()

	slog.Info("mirroring background fire", "alarm_id", slim.ID)
	f.ring(ctx, full)
}

// Dismiss ends the ringing sequence: stops audio, hides the overlay and
// clears the reentrancy gate. Safe to call when nothing is ringing.
func (f *Foreground) Dismiss(ctx context.Context) error {
	f.mu.Lock()
	ringing := f.ringing
	f.ringing = nil
	f.mu.Unlock()
	if ringing == nil {
		return nil
	}

	f.cfg.Ringer.Stop()
	slim := ringing.Slim()
	if f.cfg.OnDismiss != nil {
		f.cfg.OnDismiss(slim)
	}
	// Cross-notify so other open clients drop their overlays too.
	if err := f.cfg.Channel.PublishAction(ctx, core.ActionDismiss, slim); err != nil {
		slog.Warn("dismiss broadcast failed", "error", err)
	}
	return nil
}

// Ringing returns the currently presented alarm, or nil.
func (f *Foreground) Ringing() *core.SlimAlarm {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ringing == nil {
		return nil
	}
	s := f.ringing.Slim()
	return &s
}

// List returns a copy of the alarm snapshot in stored order.
func (f *Foreground) List(ctx context.Context) []*core.Alarm {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*core.Alarm, len(f.alarms))
	for i, a := range f.alarms {
		out[i] = a.Clone()
	}
	return out
}

// Get returns one alarm by id.
func (f *Foreground) Get(ctx context.Context, id string) (*core.Alarm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a := f.findLocked(id); a != nil {
		return a.Clone(), nil
	}
	return nil, core.NewNotFoundError("Alarm", id)
}

// Save creates or updates an alarm, persists and re-syncs.
func (f *Foreground) Save(ctx context.Context, alarm *core.Alarm) (*core.Alarm, error) {
	alarm = alarm.Clone()
	alarm.Normalize()
	if err := alarm.Validate(); err != nil {
		return nil, err
	}
	now := core.FormatTime(f.cfg.Clock())
	alarm.UpdatedAt = now

	f.mu.Lock()
	if alarm.ID == "" {
		alarm.ID = core.NewID()
		alarm.CreatedAt = now
		f.alarms = append(f.alarms, alarm)
	} else {
		existing := f.findLocked(alarm.ID)
		if existing == nil {
			f.mu.Unlock()
			return nil, core.NewNotFoundError("Alarm", alarm.ID)
		}
		alarm.CreatedAt = existing.CreatedAt
		*existing = *alarm.Clone()
	}
	f.mu.Unlock()

	f.persistAndSync(ctx)
	return alarm.Clone(), nil
}

// Delete removes an alarm, persists and re-syncs.
func (f *Foreground) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	idx := -1
	for i, a := range f.alarms {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		f.mu.Unlock()
		return core.NewNotFoundError("Alarm", id)
	}
	f.alarms = append(f.alarms[:idx], f.alarms[idx+1:]...)
	f.mu.Unlock()

	f.persistAndSync(ctx)
	return nil
}

// Toggle flips an alarm's enabled flag, persists and re-syncs.
func (f *Foreground) Toggle(ctx context.Context, id string) (*core.Alarm, error) {
	f.mu.Lock()
	a := f.findLocked(id)
	if a == nil {
		f.mu.Unlock()
		return nil, core.NewNotFoundError("Alarm", id)
	}
	a.Enabled = !a.Enabled
	a.UpdatedAt = core.FormatTime(f.cfg.Clock())
	result := a.Clone()
	f.mu.Unlock()

	f.persistAndSync(ctx)
	return result, nil
}

func (f *Foreground) findLocked(id string) *core.Alarm {
	for _, a := range f.alarms {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (f *Foreground) persistAndSync(ctx context.Context) {
	f.mu.Lock()
	snapshot := make([]*core.Alarm, len(f.alarms))
	copy(snapshot, f.alarms)
	f.mu.Unlock()

	if err := f.cfg.Store.Save(ctx, snapshot); err != nil {
		slog.Error("persisting alarms failed", "error", err)
	}
	f.syncToBackground(ctx)
}

func (f *Foreground) syncToBackground(ctx context.Context) {
	f.mu.Lock()
	slim := core.SlimAll(f.alarms)
	f.mu.Unlock()

	if err := f.cfg.Channel.PublishSync(ctx, slim); err != nil {
		// Fire-and-forget: the readiness signal triggers the re-send.
		slog.Warn("snapshot sync failed", "error", err)
		return
	}
	metrics.SyncMessages.WithLabelValues(core.MsgSyncAlarms).Inc()
}

var _ core.Service = (*Foreground)(nil)
