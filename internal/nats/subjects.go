package nats

// Subject hierarchy for the cross-context alarm channel.
//
//	alarm.sync            -- full slim snapshot pushes, foreground → background
//	alarm.events.fired    -- fire broadcasts, background → all foregrounds
//	alarm.events.action   -- dismiss/action forwards, any → all foregrounds
//	alarm.ready           -- background readiness signal
//	alarm.ping            -- keepalive request/reply, answered inline
//	alarm.notify.{tag}    -- notification dispatch, tag collisions replace
//	alarm.notify.interact -- notification interactions echoed back
const (
	SubjectPrefix = "alarm"

	SubjectSync           = SubjectPrefix + ".sync"
	SubjectFired          = SubjectPrefix + ".events.fired"
	SubjectAction         = SubjectPrefix + ".events.action"
	SubjectReady          = SubjectPrefix + ".ready"
	SubjectPing           = SubjectPrefix + ".ping"
	SubjectNotifyPrefix   = SubjectPrefix + ".notify."
	SubjectNotifyInteract = SubjectPrefix + ".notify.interact"
)

// BucketAlarms is the KV bucket holding the persisted alarm document.
const BucketAlarms = "alarm-records"

// NotifySubject returns the dispatch subject for a notification tag.
func NotifySubject(tag string) string {
	return SubjectNotifyPrefix + tag
}
