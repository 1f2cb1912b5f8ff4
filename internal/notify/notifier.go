// Package notify abstracts the OS-level notification surface.
package notify

import (
	"context"
	"encoding/json"
)

// Notification is one dispatch to the notification surface. Tag collisions
// replace the previous notification instead of stacking; Data is an opaque
// payload echoed back on interaction.
type Notification struct {
	Title   string          `json:"title"`
	Body    string          `json:"body"`
	Icon    string          `json:"icon,omitempty"`
	Tag     string          `json:"tag"`
	Actions []string        `json:"actions,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Interaction is a user response to a notification: a click on the body
// (empty Action) or on one of its actions.
type Interaction struct {
	Tag    string          `json:"tag"`
	Action string          `json:"action,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Notifier dispatches notifications. Failures are degradations, never
// fatal: the caller continues its fire sequence regardless.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// InteractionSource delivers user interactions back to a handler. The
// returned func unsubscribes.
type InteractionSource interface {
	OnInteraction(fn func(Interaction)) (func(), error)
}
