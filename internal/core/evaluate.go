package core

import "time"

// Scheduler-specific firing windows, in seconds past the start of a minute.
// The foreground loop ticks every second, so a narrow window caps duplicate
// risk; the background loop ticks every thirty seconds and needs the whole
// half-minute to have a chance of observing each minute at all.
const (
	ForegroundWindowSeconds = 4
	BackgroundWindowSeconds = 30
)

// MinuteLayout formats a wall-clock time as the "HH:MM" match key.
const MinuteLayout = "15:04"

// EvalOptions parameterizes one evaluation pass.
type EvalOptions struct {
	// WindowSeconds gates the tick: past this many seconds into the
	// minute nothing fires until the next minute begins.
	WindowSeconds int
	// Ringing suppresses evaluation entirely while an alarm is being
	// presented. Only the foreground scheduler sets it; the background
	// context owns no ringing state.
	Ringing bool
}

// Decision is the at-most-one fire produced by an evaluation pass.
type Decision struct {
	Alarm  SlimAlarm
	Minute string
}

// Evaluate runs one pass of the shared firing algorithm against a snapshot.
// It is pure apart from mutating fired: the dedup set is rolled over to the
// observed minute, and a returned decision has already been recorded in it.
//
// Alarms are scanned in stored order and the first one that is enabled,
// matches the current minute string exactly, is due on the current weekday
// (or has no weekday restriction), and has not already fired this minute
// wins. At most one alarm fires per tick; a second due alarm waits for a
// later minute.
func Evaluate(now time.Time, alarms []SlimAlarm, fired *FiredSet, opts EvalOptions) *Decision {
	minute := now.Format(MinuteLayout)
	weekday := int(now.Weekday())

	// Rollover before the window gate so stale keys never outlive their
	// minute, even on ticks that do nothing else.
	fired.Purge(minute)

	if now.Second() > opts.WindowSeconds {
		return nil
	}
	if opts.Ringing {
		return nil
	}

	for _, a := range alarms {
		if !a.Enabled || a.Time != minute {
			continue
		}
		if len(a.Days) > 0 && !containsDay(a.Days, weekday) {
			continue
		}
		if fired.Contains(a.ID, minute) {
			continue
		}
		fired.Record(a.ID, minute)
		return &Decision{Alarm: a, Minute: minute}
	}
	return nil
}

func containsDay(days []int, d int) bool {
	for _, v := range days {
		if v == d {
			return true
		}
	}
	return false
}
