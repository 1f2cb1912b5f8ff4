package core

import (
	"time"

	"github.com/google/uuid"
)

// Alarm categories. Categories only affect display grouping, never firing.
const (
	CategoryRegular = "regular"
	CategoryFasting = "fasting"
)

// DefaultName is used when an alarm is saved without a display label.
const DefaultName = "Alarm"

// Alarm is the canonical schedulable record. It is created and edited only
// by the foreground owner; the background context receives read-only
// SlimAlarm projections of it.
type Alarm struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Time     string `json:"time"` // "HH:MM", 24-hour local time
	Days     []int  `json:"days,omitempty"` // 0=Sunday..6=Saturday; empty means one-shot
	Enabled  bool   `json:"enabled"`
	Category string `json:"category,omitempty"`

	// At most one audio source is active. AudioDataURL is an inline payload
	// that never leaves the foreground copy; AudioKey references the blob store.
	AudioKey     string `json:"audio_key,omitempty"`
	AudioDataURL string `json:"audio_data_url,omitempty"`
	AudioName    string `json:"audio_name,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// SlimAlarm is the cross-context projection of an Alarm: the audio payload
// fields are stripped so snapshot messages stay small. AudioKey survives the
// projection because the foreground resolves audio by key when a
// background-detected fire is mirrored locally.
type SlimAlarm struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Time     string `json:"time"`
	Days     []int  `json:"days,omitempty"`
	Enabled  bool   `json:"enabled"`
	Category string `json:"category,omitempty"`
	AudioKey string `json:"audio_key,omitempty"`
}

// Slim returns the cross-context projection of a.
func (a *Alarm) Slim() SlimAlarm {
	s := SlimAlarm{
		ID:       a.ID,
		Name:     a.Name,
		Time:     a.Time,
		Enabled:  a.Enabled,
		Category: a.Category,
		AudioKey: a.AudioKey,
	}
	if len(a.Days) > 0 {
		s.Days = append([]int(nil), a.Days...)
	}
	return s
}

// SlimAll projects a whole snapshot, preserving stored order.
func SlimAll(alarms []*Alarm) []SlimAlarm {
	out := make([]SlimAlarm, 0, len(alarms))
	for _, a := range alarms {
		out = append(out, a.Slim())
	}
	return out
}

// OneShot reports whether the alarm fires once and then auto-disables.
func (s SlimAlarm) OneShot() bool { return len(s.Days) == 0 }

// Clone returns a deep copy of a.
func (a *Alarm) Clone() *Alarm {
	c := *a
	if len(a.Days) > 0 {
		c.Days = append([]int(nil), a.Days...)
	}
	return &c
}

// NewID returns a fresh opaque alarm identifier.
func NewID() string { return uuid.NewString() }

// TimeFormat is the wall-clock timestamp format used in persisted records.
const TimeFormat = time.RFC3339

// FormatTime renders t in the persisted timestamp format.
func FormatTime(t time.Time) string { return t.Format(TimeFormat) }

// NowFormatted returns the current time in the persisted timestamp format.
func NowFormatted() string { return FormatTime(time.Now()) }
