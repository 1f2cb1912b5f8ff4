package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alarmkit/alarmd/internal/api"
	"github.com/alarmkit/alarmd/internal/blob"
	"github.com/alarmkit/alarmd/internal/core"
	"github.com/alarmkit/alarmd/internal/ring"
	"github.com/alarmkit/alarmd/internal/scheduler"
)

// memPersister keeps the persisted document in memory.
type memPersister struct {
	doc []*core.Alarm
}

func (p *memPersister) Load(_ context.Context) []*core.Alarm { return p.doc }

func (p *memPersister) Save(_ context.Context, alarms []*core.Alarm) error {
	p.doc = alarms
	return nil
}

// newIntegrationServer stands up the full stack in process: a real
// foreground scheduler over an in-memory channel, blob store and silent
// audio, behind the real router.
func newIntegrationServer(t *testing.T) (string, *scheduler.Foreground, blob.Store) {
	t.Helper()
	blobs := blob.NewMemory()
	fg := scheduler.NewForeground(scheduler.ForegroundConfig{
		Channel: core.NewMemChannel(),
		Store:   &memPersister{},
		Ringer:  ring.New(ring.Silent{}, blobs),
		Clock:   time.Now,
	})
	if err := fg.Start(context.Background()); err != nil {
		t.Fatalf("start foreground: %v", err)
	}
	t.Cleanup(fg.Stop)

	router := NewRouter(api.NewHandler(fg, blobs, api.NewHub()))
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts.URL, fg, blobs
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSONBody(t *testing.T, body io.ReadCloser) map[string]any {
	t.Helper()
	defer body.Close()
	var out map[string]any
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestRouterEndToEnd_AlarmLifecycle(t *testing.T) {
	tsURL, _, _ := newIntegrationServer(t)

	createResp := postJSON(t, tsURL+"/v1/alarms", map[string]any{
		"name":    "Morning",
		"time":    "07:30",
		"days":    []int{1, 2, 3, 4, 5},
		"enabled": true,
	})
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", createResp.StatusCode, http.StatusCreated)
	}
	created := decodeJSONBody(t, createResp.Body)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("create response missing id: %#v", created)
	}

	getResp, err := http.Get(tsURL + "/v1/alarms/" + id)
	if err != nil {
		t.Fatalf("GET alarm: %v", err)
	}
	got := decodeJSONBody(t, getResp.Body)
	if got["time"] != "07:30" || got["name"] != "Morning" {
		t.Fatalf("fetched alarm = %#v", got)
	}

	toggleResp := postJSON(t, tsURL+"/v1/alarms/"+id+"/toggle", nil)
	toggled := decodeJSONBody(t, toggleResp.Body)
	if toggled["enabled"] != false {
		t.Fatalf("toggle left alarm enabled: %#v", toggled)
	}

	req, _ := http.NewRequest(http.MethodDelete, tsURL+"/v1/alarms/"+id, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE alarm: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", delResp.StatusCode, http.StatusNoContent)
	}

	missingResp, err := http.Get(tsURL + "/v1/alarms/" + id)
	if err != nil {
		t.Fatalf("GET deleted alarm: %v", err)
	}
	missingResp.Body.Close()
	if missingResp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted status = %d, want %d", missingResp.StatusCode, http.StatusNotFound)
	}
}

func TestRouterEndToEnd_AudioUploadAndRing(t *testing.T) {
	tsURL, fg, blobs := newIntegrationServer(t)
	ctx := context.Background()

	createResp := postJSON(t, tsURL+"/v1/alarms", map[string]any{
		"time":    "07:30",
		"enabled": true,
	})
	created := decodeJSONBody(t, createResp.Body)
	id := created["id"].(string)

	req, _ := http.NewRequest(http.MethodPut, tsURL+"/v1/alarms/"+id+"/audio",
		strings.NewReader("RIFF-not-a-real-wav"))
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("X-Audio-Name", "chime.wav")
	upResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT audio: %v", err)
	}
	upResp.Body.Close()
	if upResp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d, want %d", upResp.StatusCode, http.StatusOK)
	}
	if _, ok := blob.ReadAll(ctx, blobs, id); !ok {
		t.Fatal("audio blob missing after upload")
	}

	alarm, err := fg.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if alarm.AudioKey != id {
		t.Fatalf("alarm.AudioKey = %q, want %q", alarm.AudioKey, id)
	}

	// Drive a fire through the scheduler and read it back over HTTP.
	fireAt, err := time.Parse("15:04:05", "07:30:01")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	fg.Tick(ctx, time.Date(now.Year(), now.Month(), now.Day(), fireAt.Hour(), fireAt.Minute(), fireAt.Second(), 0, time.UTC))

	statusResp, err := http.Get(tsURL + "/v1/ring")
	if err != nil {
		t.Fatalf("GET ring: %v", err)
	}
	status := decodeJSONBody(t, statusResp.Body)
	if status["ringing"] != true {
		t.Fatalf("ring status = %#v, want ringing", status)
	}

	dismissResp := postJSON(t, tsURL+"/v1/ring/dismiss", nil)
	dismissResp.Body.Close()
	after, err := http.Get(tsURL + "/v1/ring")
	if err != nil {
		t.Fatalf("GET ring: %v", err)
	}
	afterBody := decodeJSONBody(t, after.Body)
	if afterBody["ringing"] != false {
		t.Fatalf("ring status after dismiss = %#v", afterBody)
	}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	tsURL, _, _ := newIntegrationServer(t)

	healthResp, err := http.Get(tsURL + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	healthResp.Body.Close()
	if healthResp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", healthResp.StatusCode)
	}

	metricsResp, err := http.Get(tsURL + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	metricsResp.Body.Close()
	if metricsResp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", metricsResp.StatusCode)
	}
}
