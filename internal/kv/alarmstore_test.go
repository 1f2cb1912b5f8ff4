package kv

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/alarmkit/alarmd/internal/core"
)

// fakeBucket implements Bucket in memory, optionally failing puts.
type fakeBucket struct {
	data     map[string][]byte
	putErrs  int // fail this many puts before succeeding
	putCalls int
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{data: make(map[string][]byte)}
}

func (b *fakeBucket) Get(_ context.Context, key string) ([]byte, uint64, error) {
	v, ok := b.data[key]
	if !ok {
		return nil, 0, jetstream.ErrKeyNotFound
	}
	return v, 1, nil
}

func (b *fakeBucket) Put(_ context.Context, key string, value []byte) (uint64, error) {
	b.putCalls++
	if b.putErrs > 0 {
		b.putErrs--
		return 0, errors.New("maximum value size exceeded")
	}
	b.data[key] = value
	return 1, nil
}

func TestAlarmStore_LoadMissingIsEmpty(t *testing.T) {
	store := NewAlarmStore(newFakeBucket())
	if got := store.Load(context.Background()); len(got) != 0 {
		t.Errorf("Load on empty bucket = %d alarms, want 0", len(got))
	}
}

func TestAlarmStore_LoadCorruptIsEmpty(t *testing.T) {
	b := newFakeBucket()
	b.data[AlarmsKey] = []byte("{not json")
	store := NewAlarmStore(b)
	if got := store.Load(context.Background()); len(got) != 0 {
		t.Errorf("Load on corrupt bucket = %d alarms, want 0", len(got))
	}
}

func TestAlarmStore_SaveLoadRoundTrip(t *testing.T) {
	b := newFakeBucket()
	store := NewAlarmStore(b)
	alarms := []*core.Alarm{
		{ID: "a1", Name: "Alarm", Time: "07:00", Enabled: true, Days: []int{1}},
		{ID: "a2", Name: "Tea", Time: "16:30", Enabled: false},
	}

	if err := store.Save(context.Background(), alarms); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got := store.Load(context.Background())
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a2" {
		t.Fatalf("round trip lost order or records: %+v", got)
	}
	if got[0].Time != "07:00" || !got[0].Enabled {
		t.Errorf("round trip mangled fields: %+v", got[0])
	}
}

func TestAlarmStore_QuotaFallbackStripsAudio(t *testing.T) {
	b := newFakeBucket()
	b.putErrs = 1
	store := NewAlarmStore(b)
	alarms := []*core.Alarm{{
		ID: "a1", Name: "Alarm", Time: "07:00", Enabled: true,
		AudioKey: "a1", AudioDataURL: "data:audio/wav;base64,AAAA", AudioName: "chime.wav",
	}}

	if err := store.Save(context.Background(), alarms); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if b.putCalls != 2 {
		t.Fatalf("putCalls = %d, want 2 (fail then stripped retry)", b.putCalls)
	}

	var persisted []*core.Alarm
	if err := json.Unmarshal(b.data[AlarmsKey], &persisted); err != nil {
		t.Fatalf("unmarshal persisted: %v", err)
	}
	if persisted[0].AudioDataURL != "" || persisted[0].AudioName != "" {
		t.Errorf("audio payload survived quota fallback: %+v", persisted[0])
	}
	if persisted[0].AudioKey != "a1" {
		t.Errorf("blob key should survive quota fallback, got %q", persisted[0].AudioKey)
	}
	// Caller's copy is untouched.
	if alarms[0].AudioDataURL == "" {
		t.Error("Save mutated the caller's alarm")
	}
}

func TestAlarmStore_RepeatedFailureIsSwallowed(t *testing.T) {
	b := newFakeBucket()
	b.putErrs = 2
	store := NewAlarmStore(b)

	err := store.Save(context.Background(), []*core.Alarm{{ID: "a1", Time: "07:00"}})
	if err != nil {
		t.Errorf("Save must not surface storage failures, got %v", err)
	}
}
