package core

import "strings"

// FiredSet remembers which alarms already fired for the currently observed
// wall-clock minute. Keys are "<id>@<HH:MM>". Eviction is lazy: nothing
// expires on a timer; the first tick that observes a different minute purges
// every key that does not belong to it. A key therefore only ever represents
// the single currently-active minute.
//
// Each scheduler instance owns its own FiredSet; the two contexts never
// share dedup state.
type FiredSet struct {
	lastMinute string
	keys       map[string]struct{}
}

// NewFiredSet returns an empty dedup set.
func NewFiredSet() *FiredSet {
	return &FiredSet{keys: make(map[string]struct{})}
}

func firedKey(id, minute string) string { return id + "@" + minute }

// Purge rolls the set over to minute. If minute differs from the last
// observed one, every key with a different minute suffix is dropped.
// Called once per tick, before matching.
func (s *FiredSet) Purge(minute string) {
	if minute == s.lastMinute {
		return
	}
	s.lastMinute = minute
	for k := range s.keys {
		if !strings.HasSuffix(k, "@"+minute) {
			delete(s.keys, k)
		}
	}
}

// Contains reports whether the alarm already fired for minute.
func (s *FiredSet) Contains(id, minute string) bool {
	_, ok := s.keys[firedKey(id, minute)]
	return ok
}

// Record marks the alarm as fired for minute.
func (s *FiredSet) Record(id, minute string) {
	s.keys[firedKey(id, minute)] = struct{}{}
}

// Len returns the number of recorded keys.
func (s *FiredSet) Len() int { return len(s.keys) }
