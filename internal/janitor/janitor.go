// Package janitor runs scheduled maintenance sweeps: audio blobs whose
// alarm is gone, and disabled one-shot alarms that nobody re-enabled.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alarmkit/alarmd/internal/blob"
	"github.com/alarmkit/alarmd/internal/core"
)

// staleOneShotAge is how long a fired-and-forgotten one-shot may stay
// disabled before the sweep removes it.
const staleOneShotAge = 30 * 24 * time.Hour

// Janitor owns the cron entry and the sweep logic.
type Janitor struct {
	service core.Service
	blobs   blob.Store
	clock   func() time.Time
	cron    *cron.Cron
}

// New builds a Janitor over the alarm service and blob store.
func New(service core.Service, blobs blob.Store) *Janitor {
	return &Janitor{
		service: service,
		blobs:   blobs,
		clock:   time.Now,
	}
}

// Start registers the sweep under the given cron schedule and launches
// the cron runner.
func (j *Janitor) Start(schedule string) error {
	j.cron = cron.New()
	_, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		j.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	slog.Info("janitor scheduled", "spec", schedule)
	return nil
}

// Stop halts the cron runner.
func (j *Janitor) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

// Sweep runs one maintenance pass. Failures are logged and skipped; a
// missed orphan is collected on the next run.
func (j *Janitor) Sweep(ctx context.Context) {
	alarms := j.service.List(ctx)
	orphans := j.sweepBlobs(ctx, alarms)
	stale := j.sweepStaleOneShots(ctx, alarms)
	slog.Info("janitor sweep complete", "orphan_blobs", orphans, "stale_one_shots", stale)
}

// sweepBlobs deletes audio blobs whose key matches no alarm, by id or by
// audio key reference.
func (j *Janitor) sweepBlobs(ctx context.Context, alarms []*core.Alarm) int {
	infos, err := j.blobs.List(ctx)
	if err != nil {
		slog.Warn("janitor: listing blobs failed", "error", err)
		return 0
	}
	referenced := make(map[string]struct{}, len(alarms)*2)
	for _, a := range alarms {
		referenced[a.ID] = struct{}{}
		if a.AudioKey != "" {
			referenced[a.AudioKey] = struct{}{}
		}
	}

	removed := 0
	for _, info := range infos {
		if _, ok := referenced[info.Key]; ok {
			continue
		}
		if err := j.blobs.Delete(ctx, info.Key); err != nil {
			slog.Warn("janitor: deleting orphan blob failed", "key", info.Key, "error", err)
			continue
		}
		removed++
	}
	return removed
}

// sweepStaleOneShots deletes one-shot alarms that fired, auto-disabled
// and then sat untouched past the retention age.
func (j *Janitor) sweepStaleOneShots(ctx context.Context, alarms []*core.Alarm) int {
	cutoff := j.clock().Add(-staleOneShotAge)
	removed := 0
	for _, a := range alarms {
		if a.Enabled || len(a.Days) > 0 {
			continue
		}
		updated, err := time.Parse(core.TimeFormat, a.UpdatedAt)
		if err != nil || !updated.Before(cutoff) {
			continue
		}
		if err := j.service.Delete(ctx, a.ID); err != nil {
			slog.Warn("janitor: deleting stale alarm failed", "alarm_id", a.ID, "error", err)
			continue
		}
		removed++
	}
	return removed
}
