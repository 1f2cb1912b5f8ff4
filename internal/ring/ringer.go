package ring

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alarmkit/alarmd/internal/blob"
	"github.com/alarmkit/alarmd/internal/core"
	"github.com/alarmkit/alarmd/internal/metrics"
)

// Ringer resolves an alarm's audio source and plays it. Resolution order:
// inline data URL, then blob store lookup by audio key, then the
// synthesized beep. Every stage's failure falls through synchronously to
// the next; if even the beep cannot start (no audio device) the ring
// degrades to silence rather than failing the fire sequence.
type Ringer struct {
	sink  Sink
	blobs blob.Store

	mu      sync.Mutex
	current Handle
}

// New returns a Ringer playing through sink and fetching keyed audio from
// blobs.
func New(sink Sink, blobs blob.Store) *Ringer {
	return &Ringer{sink: sink, blobs: blobs}
}

// Ring stops any current playback and starts the alarm's audio. onEnd is
// invoked if a clip finishes naturally (the beep never does). Ring never
// returns an error: the fallback chain terminates in silence.
func (r *Ringer) Ring(ctx context.Context, alarm *core.Alarm, onEnd func()) {
	r.Stop()

	handle := r.resolve(ctx, alarm, onEnd)
	r.mu.Lock()
	r.current = handle
	r.mu.Unlock()
}

func (r *Ringer) resolve(ctx context.Context, alarm *core.Alarm, onEnd func()) Handle {
	if alarm.AudioDataURL != "" {
		if data, err := decodeDataURL(alarm.AudioDataURL); err == nil {
			if h, err := r.sink.PlayWAV(data, onEnd); err == nil {
				return h
			} else {
				slog.Warn("inline audio playback failed", "alarm_id", alarm.ID, "error", err)
			}
		} else {
			slog.Warn("inline audio payload is malformed", "alarm_id", alarm.ID, "error", err)
		}
		metrics.RingFallbacks.WithLabelValues("inline").Inc()
	}

	if data, ok := blob.ReadAll(ctx, r.blobs, alarm.AudioKey); ok {
		if h, err := r.sink.PlayWAV(data, onEnd); err == nil {
			return h
		} else {
			slog.Warn("stored audio playback failed", "alarm_id", alarm.ID, "error", err)
		}
	}
	if alarm.AudioKey != "" {
		metrics.RingFallbacks.WithLabelValues("blob").Inc()
	}

	if h, err := r.sink.PlayBeep(); err == nil {
		return h
	} else {
		slog.Warn("beep fallback failed, ringing silently", "alarm_id", alarm.ID, "error", err)
	}
	metrics.RingFallbacks.WithLabelValues("beep").Inc()
	return noopHandle{}
}

// Stop halts the current playback, if any.
func (r *Ringer) Stop() {
	r.mu.Lock()
	handle := r.current
	r.current = nil
	r.mu.Unlock()
	if handle != nil {
		handle.Stop()
	}
}

// decodeDataURL extracts the payload from a "data:<mime>;base64,<data>" URL.
func decodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, fmt.Errorf("not a data URL")
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return nil, fmt.Errorf("data URL has no payload")
	}
	meta, payload := s[5:comma], s[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data URL encoding %q", meta)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URL payload: %w", err)
	}
	return data, nil
}
