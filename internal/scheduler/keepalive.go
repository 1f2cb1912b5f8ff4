package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alarmkit/alarmd/internal/core"
	"github.com/alarmkit/alarmd/internal/metrics"
)

// KeepaliveInterval is how often the foreground context pings the
// background one to keep it resident.
const KeepaliveInterval = 20 * time.Second

// Keepalive pings the background context on a fixed cadence. Failures are
// counted and logged but never interrupt the loop; the next ping may well
// succeed once the background context restarts.
type Keepalive struct {
	channel  core.Channel
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewKeepalive builds a keepalive loop. A non-positive interval falls
// back to KeepaliveInterval.
func NewKeepalive(channel core.Channel, interval time.Duration) *Keepalive {
	if interval <= 0 {
		interval = KeepaliveInterval
	}
	return &Keepalive{
		channel:  channel,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the ping loop.
func (k *Keepalive) Start(ctx context.Context) {
	go k.run(ctx)
}

func (k *Keepalive) run(ctx context.Context) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-k.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Ping(ctx)
		}
	}
}

// Ping sends one keepalive and records the outcome.
func (k *Keepalive) Ping(ctx context.Context) {
	if err := k.channel.Ping(ctx); err != nil {
		metrics.KeepaliveFailures.Inc()
		if errors.Is(err, core.ErrNotReady) {
			slog.Debug("keepalive: no background context listening")
		} else {
			slog.Debug("keepalive ping failed", "error", err)
		}
	}
}

// Stop halts the ping loop. Idempotent.
func (k *Keepalive) Stop() {
	k.stopOnce.Do(func() { close(k.stop) })
}
