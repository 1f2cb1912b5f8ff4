package nats

import (
	"encoding/json"
	"fmt"

	"github.com/alarmkit/alarmd/internal/core"
)

// envelope is the wire shape shared by all channel messages.
//
//	{type: "SYNC_ALARMS",  alarms: [...]}
//	{type: "ALARM_FIRED",  alarm: {...}}
//	{type: "ALARM_ACTION", action: "dismiss", alarm: {...}}
type envelope struct {
	Type   string           `json:"type"`
	Alarms []core.SlimAlarm `json:"alarms,omitempty"`
	Alarm  *core.SlimAlarm  `json:"alarm,omitempty"`
	Action string           `json:"action,omitempty"`
}

func marshalSync(alarms []core.SlimAlarm) ([]byte, error) {
	if alarms == nil {
		alarms = []core.SlimAlarm{}
	}
	return json.Marshal(envelope{Type: core.MsgSyncAlarms, Alarms: alarms})
}

func marshalFired(alarm core.SlimAlarm) ([]byte, error) {
	return json.Marshal(envelope{Type: core.MsgAlarmFired, Alarm: &alarm})
}

func marshalAction(action string, alarm core.SlimAlarm) ([]byte, error) {
	return json.Marshal(envelope{Type: core.MsgAlarmAction, Action: action, Alarm: &alarm})
}

func unmarshalEnvelope(data []byte, wantType string) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal channel message: %w", err)
	}
	if env.Type != wantType {
		return nil, fmt.Errorf("unexpected message type %q, want %q", env.Type, wantType)
	}
	return &env, nil
}
