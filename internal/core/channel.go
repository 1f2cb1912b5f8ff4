package core

import (
	"context"
	"errors"
)

// Message types carried on the cross-context channel.
const (
	MsgSyncAlarms  = "SYNC_ALARMS"
	MsgAlarmFired  = "ALARM_FIRED"
	MsgAlarmAction = "ALARM_ACTION"
)

// ActionDismiss is the only alarm action currently defined.
const ActionDismiss = "dismiss"

// ErrNotReady indicates the peer context has not initialized yet. A sync
// sent before readiness is dropped; the sender re-sends once it observes
// the readiness signal.
var ErrNotReady = errors.New("peer context not ready")

// Channel is the cross-context message surface between the foreground and
// background schedulers. Delivery is fire-and-forget: at-most-once, no
// acknowledgment, no retry, ordered only per sender. Subscriptions return
// an unsubscribe func.
//
// Sync snapshots flow foreground→background; fired and action events flow
// background→foreground (actions also foreground→foreground between open
// clients). Ping is the keepalive probe, answered inline by the background
// context with no side effects.
type Channel interface {
	PublishSync(ctx context.Context, alarms []SlimAlarm) error
	PublishFired(ctx context.Context, alarm SlimAlarm) error
	PublishAction(ctx context.Context, action string, alarm SlimAlarm) error
	PublishReady(ctx context.Context) error

	SubscribeSync(fn func(alarms []SlimAlarm)) (func(), error)
	SubscribeFired(fn func(alarm SlimAlarm)) (func(), error)
	SubscribeAction(fn func(action string, alarm SlimAlarm)) (func(), error)
	SubscribeReady(fn func()) (func(), error)

	Ping(ctx context.Context) error
	RespondPings(fn func()) (func(), error)
}
