package nats

import (
	"encoding/json"
	"testing"

	"github.com/alarmkit/alarmd/internal/core"
)

func TestCodec_SyncRoundTrip(t *testing.T) {
	alarms := []core.SlimAlarm{
		{ID: "a1", Name: "Alarm", Time: "07:00", Days: []int{1, 5}, Enabled: true, AudioKey: "a1"},
		{ID: "a2", Name: "Tea", Time: "16:30", Enabled: false},
	}

	data, err := marshalSync(alarms)
	if err != nil {
		t.Fatalf("marshalSync: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	var typ string
	json.Unmarshal(raw["type"], &typ)
	if typ != core.MsgSyncAlarms {
		t.Errorf("type = %q, want %q", typ, core.MsgSyncAlarms)
	}

	env, err := unmarshalEnvelope(data, core.MsgSyncAlarms)
	if err != nil {
		t.Fatalf("unmarshalEnvelope: %v", err)
	}
	if len(env.Alarms) != 2 || env.Alarms[0].ID != "a1" || env.Alarms[1].ID != "a2" {
		t.Errorf("alarms lost in round trip: %+v", env.Alarms)
	}
	if env.Alarms[0].AudioKey != "a1" {
		t.Errorf("audio key lost: %+v", env.Alarms[0])
	}
}

func TestCodec_EmptySyncIsExplicitList(t *testing.T) {
	data, err := marshalSync(nil)
	if err != nil {
		t.Fatalf("marshalSync: %v", err)
	}
	var raw map[string]json.RawMessage
	json.Unmarshal(data, &raw)
	if string(raw["alarms"]) != "[]" {
		t.Errorf("alarms = %s, want explicit []", raw["alarms"])
	}
}

func TestCodec_FiredAndAction(t *testing.T) {
	a := core.SlimAlarm{ID: "a1", Name: "Alarm", Time: "07:00", Enabled: true}

	data, err := marshalFired(a)
	if err != nil {
		t.Fatalf("marshalFired: %v", err)
	}
	env, err := unmarshalEnvelope(data, core.MsgAlarmFired)
	if err != nil || env.Alarm == nil || env.Alarm.ID != "a1" {
		t.Fatalf("fired round trip failed: %+v, %v", env, err)
	}

	data, err = marshalAction(core.ActionDismiss, a)
	if err != nil {
		t.Fatalf("marshalAction: %v", err)
	}
	env, err = unmarshalEnvelope(data, core.MsgAlarmAction)
	if err != nil || env.Action != core.ActionDismiss || env.Alarm == nil {
		t.Fatalf("action round trip failed: %+v, %v", env, err)
	}
}

func TestCodec_TypeMismatchRejected(t *testing.T) {
	data, _ := marshalFired(core.SlimAlarm{ID: "a1"})
	if _, err := unmarshalEnvelope(data, core.MsgSyncAlarms); err == nil {
		t.Error("expected type mismatch error")
	}
	if _, err := unmarshalEnvelope([]byte("{bad"), core.MsgSyncAlarms); err == nil {
		t.Error("expected unmarshal error")
	}
}
