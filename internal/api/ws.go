package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/alarmkit/alarmd/internal/core"
)

// Event types on the WebSocket feed.
const (
	EventFired     = "alarm_fired"
	EventDismissed = "alarm_dismissed"
)

const (
	eventBuffer  = 16
	writeTimeout = 5 * time.Second
)

// Event is one entry on the feed: an alarm started or stopped ringing.
type Event struct {
	Type  string         `json:"type"`
	Alarm core.SlimAlarm `json:"alarm"`
	At    string         `json:"at"`
}

// Hub fans ring events out to WebSocket subscribers. Slow subscribers
// drop events rather than stalling the firing path.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Broadcast delivers an event to every subscriber without blocking.
func (h *Hub) Broadcast(eventType string, alarm core.SlimAlarm) {
	event := Event{Type: eventType, Alarm: alarm, At: core.NowFormatted()}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			slog.Debug("dropping event for slow subscriber", "type", eventType)
		}
	}
}

func (h *Hub) subscribe() chan Event {
	ch := make(chan Event, eventBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	// Inbound frames are not part of the protocol; CloseRead surfaces
	// client disconnects through ctx.
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, event)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
