package kv

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/alarmkit/alarmd/internal/core"
)

// AlarmsKey is the fixed document key the whole ordered alarm list is
// persisted under.
const AlarmsKey = "alarms"

// Bucket is the narrow KV surface AlarmStore needs. *Store satisfies it;
// tests use a fake.
type Bucket interface {
	Get(ctx context.Context, key string) ([]byte, uint64, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// AlarmStore persists the foreground-owned alarm list as a single JSON
// document. Absent or corrupt data loads as an empty list; an oversized
// write is retried once with inline audio payloads stripped. Persistence
// failures never propagate into the firing path.
type AlarmStore struct {
	bucket Bucket
}

// NewAlarmStore wraps a KV bucket.
func NewAlarmStore(bucket Bucket) *AlarmStore {
	return &AlarmStore{bucket: bucket}
}

// Load reads the persisted alarm list. Missing and malformed documents both
// yield an empty list.
func (s *AlarmStore) Load(ctx context.Context) []*core.Alarm {
	data, _, err := s.bucket.Get(ctx, AlarmsKey)
	if err != nil {
		if !IsNotFound(err) {
			slog.Warn("loading alarms failed, starting empty", "error", err)
		}
		return nil
	}
	var alarms []*core.Alarm
	if err := json.Unmarshal(data, &alarms); err != nil {
		slog.Warn("persisted alarms are malformed, starting empty", "error", err)
		return nil
	}
	return alarms
}

// Save writes the full replacement alarm list. On a write failure it strips
// the inline audio payloads and retries once; a second failure is logged
// and swallowed so a storage outage cannot block alarm firing.
func (s *AlarmStore) Save(ctx context.Context, alarms []*core.Alarm) error {
	data, err := json.Marshal(alarms)
	if err != nil {
		return err
	}
	if _, err := s.bucket.Put(ctx, AlarmsKey, data); err == nil {
		return nil
	} else {
		slog.Warn("persisting alarms failed, retrying without audio payloads", "error", err)
	}

	stripped := make([]*core.Alarm, len(alarms))
	for i, a := range alarms {
		c := a.Clone()
		c.AudioDataURL = ""
		c.AudioName = ""
		stripped[i] = c
	}
	data, err = json.Marshal(stripped)
	if err != nil {
		return err
	}
	if _, err := s.bucket.Put(ctx, AlarmsKey, data); err != nil {
		slog.Error("persisting alarms failed after stripping audio", "error", err)
	}
	return nil
}
