package janitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alarmkit/alarmd/internal/blob"
	"github.com/alarmkit/alarmd/internal/core"
)

type sweepService struct {
	alarms  []*core.Alarm
	deleted []string
}

func (s *sweepService) List(_ context.Context) []*core.Alarm { return s.alarms }

func (s *sweepService) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *sweepService) Get(context.Context, string) (*core.Alarm, error) { return nil, nil }
func (s *sweepService) Save(_ context.Context, a *core.Alarm) (*core.Alarm, error) {
	return a, nil
}
func (s *sweepService) Toggle(context.Context, string) (*core.Alarm, error) { return nil, nil }
func (s *sweepService) Ringing() *core.SlimAlarm                            { return nil }
func (s *sweepService) Dismiss(context.Context) error                       { return nil }

func seedBlob(t *testing.T, blobs blob.Store, key string) {
	t.Helper()
	if _, err := blobs.Put(context.Background(), key, strings.NewReader("x"), blob.Info{Key: key}); err != nil {
		t.Fatalf("seed blob %s: %v", key, err)
	}
}

func TestSweepRemovesOrphanBlobs(t *testing.T) {
	blobs := blob.NewMemory()
	seedBlob(t, blobs, "a1")
	seedBlob(t, blobs, "legacy-key")
	seedBlob(t, blobs, "orphan")

	svc := &sweepService{alarms: []*core.Alarm{
		{ID: "a1", Time: "07:30", Enabled: true},
		{ID: "a2", Time: "08:00", Enabled: true, AudioKey: "legacy-key"},
	}}
	j := New(svc, blobs)
	j.Sweep(context.Background())

	infos, err := blobs.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("remaining blobs = %d, want 2", len(infos))
	}
	for _, info := range infos {
		if info.Key == "orphan" {
			t.Error("orphan blob survived the sweep")
		}
	}
}

func TestSweepPrunesStaleOneShots(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	old := now.Add(-60 * 24 * time.Hour).Format(core.TimeFormat)
	recent := now.Add(-time.Hour).Format(core.TimeFormat)

	svc := &sweepService{alarms: []*core.Alarm{
		{ID: "stale", Time: "07:30", Enabled: false, UpdatedAt: old},
		{ID: "fresh", Time: "07:31", Enabled: false, UpdatedAt: recent},
		{ID: "repeating", Time: "07:32", Days: []int{1}, Enabled: false, UpdatedAt: old},
		{ID: "armed", Time: "07:33", Enabled: true, UpdatedAt: old},
	}}
	j := New(svc, blob.NewMemory())
	j.clock = func() time.Time { return now }

	j.Sweep(context.Background())

	if len(svc.deleted) != 1 || svc.deleted[0] != "stale" {
		t.Fatalf("deleted = %v, want [stale]", svc.deleted)
	}
}

func TestSweepSkipsAlarmsWithoutTimestamps(t *testing.T) {
	svc := &sweepService{alarms: []*core.Alarm{
		{ID: "no-ts", Time: "07:30", Enabled: false},
	}}
	j := New(svc, blob.NewMemory())
	j.Sweep(context.Background())

	if len(svc.deleted) != 0 {
		t.Fatalf("deleted = %v, want none", svc.deleted)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	j := New(&sweepService{}, blob.NewMemory())
	if err := j.Start("not a cron spec"); err == nil {
		t.Fatal("bad schedule accepted")
	}
	j.Stop()
}

func TestStartAndStop(t *testing.T) {
	j := New(&sweepService{}, blob.NewMemory())
	if err := j.Start("17 3 * * *"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	j.Stop()
}
