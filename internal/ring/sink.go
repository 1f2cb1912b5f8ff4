// Package ring implements the foreground ringing sequence: audio source
// resolution with fallback, playback, and dismissal.
package ring

import "log/slog"

// Handle controls one in-flight playback.
type Handle interface {
	Stop()
}

// Sink produces audible output. PlayWAV plays a decoded WAV payload once,
// invoking onEnd if it finishes naturally; PlayBeep loops a synthesized
// tone until stopped.
type Sink interface {
	PlayWAV(data []byte, onEnd func()) (Handle, error)
	PlayBeep() (Handle, error)
}

type noopHandle struct{}

func (noopHandle) Stop() {}

// Silent is the terminal sink for hosts without an audio device. It accepts
// every request and produces no sound, so a fire still surfaces through the
// ringing state and notifications. It never invokes onEnd: a silent ring
// stays up until dismissed.
type Silent struct{}

func (Silent) PlayWAV(_ []byte, _ func()) (Handle, error) {
	slog.Warn("no audio device, ringing silently")
	return noopHandle{}, nil
}

func (Silent) PlayBeep() (Handle, error) {
	slog.Warn("no audio device, ringing silently")
	return noopHandle{}, nil
}
