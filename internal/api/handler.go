// Package api exposes the alarm surface over HTTP: record CRUD, audio
// blob upload and streaming, ringing status and a WebSocket event feed.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/alarmkit/alarmd/internal/blob"
	"github.com/alarmkit/alarmd/internal/core"
)

// maxAudioSize caps uploaded audio clips (8 MB).
const maxAudioSize = 8 << 20

// Handler serves the alarm HTTP API.
type Handler struct {
	service core.Service
	blobs   blob.Store
	hub     *Hub
}

// NewHandler builds a Handler. hub may be nil when no event feed is wired.
func NewHandler(service core.Service, blobs blob.Store, hub *Hub) *Handler {
	return &Handler{service: service, blobs: blobs, hub: hub}
}

// Register mounts all API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/alarms", func(r chi.Router) {
		r.Get("/", h.listAlarms)
		r.Post("/", h.createAlarm)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getAlarm)
			r.Put("/", h.updateAlarm)
			r.Delete("/", h.deleteAlarm)
			r.Post("/toggle", h.toggleAlarm)
			r.Put("/audio", h.putAudio)
			r.Get("/audio", h.getAudio)
			r.Delete("/audio", h.deleteAudio)
		})
	})
	r.Get("/v1/ring", h.ringStatus)
	r.Post("/v1/ring/dismiss", h.dismiss)
	if h.hub != nil {
		r.Get("/v1/events", h.hub.ServeHTTP)
	}
}

func (h *Handler) listAlarms(w http.ResponseWriter, r *http.Request) {
	alarms := h.service.List(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{"alarms": alarms})
}

func (h *Handler) createAlarm(w http.ResponseWriter, r *http.Request) {
	alarm, err := decodeAlarm(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	alarm.ID = ""
	created, err := h.service.Save(r.Context(), alarm)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) getAlarm(w http.ResponseWriter, r *http.Request) {
	alarm, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, alarm)
}

func (h *Handler) updateAlarm(w http.ResponseWriter, r *http.Request) {
	alarm, err := decodeAlarm(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	alarm.ID = chi.URLParam(r, "id")
	updated, err := h.service.Save(r.Context(), alarm)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteAlarm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		WriteError(w, err)
		return
	}
	// The blob is keyed by alarm id; a leftover is swept by the janitor.
	_ = h.blobs.Delete(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggleAlarm(w http.ResponseWriter, r *http.Request) {
	alarm, err := h.service.Toggle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, alarm)
}

func (h *Handler) putAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	alarm, err := h.service.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxAudioSize)
	info, err := h.blobs.Put(r.Context(), id, body, blob.Info{
		Key:         id,
		ContentType: r.Header.Get("Content-Type"),
		Name:        r.Header.Get("X-Audio-Name"),
	})
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, core.NewValidationError("audio clip too large", map[string]any{
				"limit_bytes": maxErr.Limit,
			}))
			return
		}
		WriteError(w, core.NewInternalError("storing audio failed"))
		return
	}

	alarm.AudioKey = id
	alarm.AudioName = info.Name
	alarm.AudioDataURL = ""
	if _, err := h.service.Save(r.Context(), alarm); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, info)
}

func (h *Handler) getAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, rc, err := h.blobs.Get(r.Context(), id)
	if err != nil {
		WriteError(w, core.NewNotFoundError("Audio", id))
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	_, _ = io.Copy(w, rc)
}

func (h *Handler) deleteAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	alarm, err := h.service.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	_ = h.blobs.Delete(r.Context(), id)
	alarm.AudioKey = ""
	alarm.AudioName = ""
	alarm.AudioDataURL = ""
	if _, err := h.service.Save(r.Context(), alarm); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ringStatus reports whether an alarm is being presented right now.
func (h *Handler) ringStatus(w http.ResponseWriter, r *http.Request) {
	ringing := h.service.Ringing()
	WriteJSON(w, http.StatusOK, map[string]any{
		"ringing": ringing != nil,
		"alarm":   ringing,
	})
}

func (h *Handler) dismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Dismiss(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"dismissed": true})
}

func decodeAlarm(r *http.Request) (*core.Alarm, error) {
	var alarm core.Alarm
	if err := json.NewDecoder(r.Body).Decode(&alarm); err != nil {
		return nil, core.NewValidationError("invalid JSON body", nil)
	}
	return &alarm, nil
}
