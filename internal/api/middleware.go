package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alarmkit/alarmd/internal/core"
)

// maxRequestBodySize caps JSON request bodies (1 MB). Audio uploads have
// their own larger cap in putAudio.
const maxRequestBodySize = 1 << 20

// RequestID middleware assigns each request an id, echoed in the
// X-Request-Id response header and error envelopes.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = "req_" + uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// RequestLogger middleware logs HTTP requests with structured logging.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", w.Header().Get("X-Request-Id"),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// LimitBody middleware restricts JSON request body size. Audio routes are
// exempt; they carry binary payloads under their own cap.
func LimitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && !isAudioRoute(r.URL.Path) {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// ValidateContentType middleware requires application/json on mutating
// JSON requests. Audio uploads declare their own media type.
func ValidateContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodPost || r.Method == http.MethodPut) &&
			r.ContentLength != 0 && !isAudioRoute(r.URL.Path) {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				WriteJSON(w, http.StatusUnsupportedMediaType, ErrorResponse{Error: ErrorBody{
					Code:      core.ErrCodeValidation,
					Message:   "Content-Type must be application/json",
					RequestID: w.Header().Get("X-Request-Id"),
				}})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isAudioRoute(path string) bool {
	return strings.HasSuffix(path, "/audio")
}
