package core

import "context"

// Service is the foreground-owned alarm surface the API layer talks to.
// All mutations persist and then push a fresh slim snapshot to the
// background context; the background never mutates alarm state.
type Service interface {
	List(ctx context.Context) []*Alarm
	Get(ctx context.Context, id string) (*Alarm, error)
	Save(ctx context.Context, alarm *Alarm) (*Alarm, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string) (*Alarm, error)

	// Ringing returns the currently presented alarm, or nil.
	Ringing() *SlimAlarm
	// Dismiss ends the current ringing sequence. It is the only way the
	// foreground reentrancy gate clears.
	Dismiss(ctx context.Context) error
}
