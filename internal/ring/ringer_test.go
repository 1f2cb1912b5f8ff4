package ring

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/alarmkit/alarmd/internal/blob"
	"github.com/alarmkit/alarmd/internal/core"
)

// fakeSink records which stage played and can fail selectively.
type fakeSink struct {
	failWAV  bool
	failBeep bool
	played   []string
	stopped  int
}

type fakeHandle struct{ sink *fakeSink }

func (h *fakeHandle) Stop() { h.sink.stopped++ }

func (s *fakeSink) PlayWAV(data []byte, onEnd func()) (Handle, error) {
	if s.failWAV {
		return nil, errors.New("decode failed")
	}
	s.played = append(s.played, "wav:"+string(data[:4]))
	return &fakeHandle{sink: s}, nil
}

func (s *fakeSink) PlayBeep() (Handle, error) {
	if s.failBeep {
		return nil, errors.New("no device")
	}
	s.played = append(s.played, "beep")
	return &fakeHandle{sink: s}, nil
}

func dataURL(payload string) string {
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString([]byte(payload))
}

func TestRinger_PrefersInlinePayload(t *testing.T) {
	sink := &fakeSink{}
	blobs := blob.NewMemory()
	blobs.Put(context.Background(), "a1", bytes.NewReader([]byte("blobdata")), blob.Info{})

	r := New(sink, blobs)
	r.Ring(context.Background(), &core.Alarm{
		ID: "a1", AudioKey: "a1", AudioDataURL: dataURL("inline-data"),
	}, nil)

	if len(sink.played) != 1 || sink.played[0] != "wav:inli" {
		t.Errorf("played = %v, want inline payload first", sink.played)
	}
}

func TestRinger_FallsBackToBlob(t *testing.T) {
	sink := &fakeSink{}
	blobs := blob.NewMemory()
	blobs.Put(context.Background(), "a1", bytes.NewReader([]byte("blobdata")), blob.Info{})

	r := New(sink, blobs)
	r.Ring(context.Background(), &core.Alarm{ID: "a1", AudioKey: "a1"}, nil)

	if len(sink.played) != 1 || sink.played[0] != "wav:blob" {
		t.Errorf("played = %v, want blob payload", sink.played)
	}
}

func TestRinger_FallsBackToBeep(t *testing.T) {
	tests := []struct {
		name  string
		alarm core.Alarm
		sink  fakeSink
	}{
		{"no sources", core.Alarm{ID: "a1"}, fakeSink{}},
		{"missing blob", core.Alarm{ID: "a1", AudioKey: "gone"}, fakeSink{}},
		{"malformed data url", core.Alarm{ID: "a1", AudioDataURL: "data:nope"}, fakeSink{}},
		{"wav playback fails", core.Alarm{ID: "a1", AudioDataURL: dataURL("xxxx")}, fakeSink{failWAV: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := tt.sink
			r := New(&sink, blob.NewMemory())
			r.Ring(context.Background(), &tt.alarm, nil)
			if len(sink.played) == 0 || sink.played[len(sink.played)-1] != "beep" {
				t.Errorf("played = %v, want terminal beep", sink.played)
			}
		})
	}
}

func TestRinger_SilentWhenEvenBeepFails(t *testing.T) {
	sink := &fakeSink{failWAV: true, failBeep: true}
	r := New(sink, blob.NewMemory())
	// Must not panic and must leave a stoppable handle.
	r.Ring(context.Background(), &core.Alarm{ID: "a1"}, nil)
	r.Stop()
}

func TestRinger_RingStopsPreviousPlayback(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink, blob.NewMemory())

	r.Ring(context.Background(), &core.Alarm{ID: "a1"}, nil)
	r.Ring(context.Background(), &core.Alarm{ID: "a2"}, nil)
	if sink.stopped != 1 {
		t.Errorf("stopped = %d, want previous playback stopped once", sink.stopped)
	}
	r.Stop()
	if sink.stopped != 2 {
		t.Errorf("stopped = %d after Stop, want 2", sink.stopped)
	}
	r.Stop() // idempotent
	if sink.stopped != 2 {
		t.Errorf("Stop is not idempotent: %d", sink.stopped)
	}
}

func TestDecodeDataURL(t *testing.T) {
	data, err := decodeDataURL(dataURL("hello"))
	if err != nil || string(data) != "hello" {
		t.Errorf("decodeDataURL = %q, %v", data, err)
	}
	for _, bad := range []string{"http://x", "data:audio/wav", "data:audio/wav;base64,!!!"} {
		if _, err := decodeDataURL(bad); err == nil {
			t.Errorf("decodeDataURL(%q) accepted malformed input", bad)
		}
	}
}

func TestParseWAV(t *testing.T) {
	wav := buildWAV(t, 8000, 1, []int16{0, 1000, -1000, 32767})
	format, pcm, err := parseWAV(wav)
	if err != nil {
		t.Fatalf("parseWAV: %v", err)
	}
	if format.SampleRate != 8000 || format.Channels != 1 || format.BitDepth != 16 {
		t.Errorf("format = %+v", format)
	}
	if len(pcm) != 8 {
		t.Errorf("pcm = %d bytes, want 8", len(pcm))
	}

	if _, _, err := parseWAV([]byte("not a wav")); err == nil {
		t.Error("parseWAV accepted garbage")
	}
	if _, _, err := parseWAV(wav[:20]); err == nil {
		t.Error("parseWAV accepted truncated payload")
	}
}

// buildWAV assembles a minimal PCM WAV file.
func buildWAV(t *testing.T, rate, channels int, samples []int16) []byte {
	t.Helper()
	var pcm bytes.Buffer
	for _, s := range samples {
		binary.Write(&pcm, binary.LittleEndian, s)
	}
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+pcm.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(pcm.Len()))
	buf.Write(pcm.Bytes())
	return buf.Bytes()
}
