package core

import (
	"fmt"
	"regexp"
	"sort"
)

var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidTime reports whether s is a well-formed "HH:MM" 24-hour string.
// Exact string equality against the current minute is the match predicate,
// so the stored form must already be zero-padded.
func ValidTime(s string) bool { return timePattern.MatchString(s) }

// Normalize fills defaults in place: blank name, empty category, and
// deduplicated, sorted days.
func (a *Alarm) Normalize() {
	if a.Name == "" {
		a.Name = DefaultName
	}
	if a.Category == "" {
		a.Category = CategoryRegular
	}
	if len(a.Days) > 1 {
		seen := make(map[int]struct{}, len(a.Days))
		days := a.Days[:0]
		for _, d := range a.Days {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			days = append(days, d)
		}
		sort.Ints(days)
		a.Days = days
	}
}

// Validate checks the alarm's invariants. It does not mutate a; callers
// usually Normalize first.
func (a *Alarm) Validate() error {
	if !ValidTime(a.Time) {
		return NewValidationError(
			fmt.Sprintf("time %q is not a valid HH:MM 24-hour string.", a.Time),
			map[string]any{"time": a.Time},
		)
	}
	for _, d := range a.Days {
		if d < 0 || d > 6 {
			return NewValidationError(
				fmt.Sprintf("day %d is outside 0 (Sunday) .. 6 (Saturday).", d),
				map[string]any{"days": a.Days},
			)
		}
	}
	switch a.Category {
	case "", CategoryRegular, CategoryFasting:
	default:
		return NewValidationError(
			fmt.Sprintf("category %q is not one of %q, %q.", a.Category, CategoryRegular, CategoryFasting),
			map[string]any{"category": a.Category},
		)
	}
	return nil
}
