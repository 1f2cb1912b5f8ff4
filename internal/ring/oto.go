package ring

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays audio through the host device via oto. The device context
// is a process-wide singleton fixed to the first format it opens with;
// payloads in other formats still play, pitch-shifted, which matches how
// short alarm clips are handled upstream.
type OtoSink struct {
	mu     sync.Mutex
	ctx    *oto.Context
	format wavFormat
}

// NewOtoSink returns a sink that lazily opens the audio device on first use.
func NewOtoSink() *OtoSink { return &OtoSink{} }

const (
	beepSampleRate = 44100
	beepFrequency  = 880.0
	beepOnDuration = 500 * time.Millisecond
)

func (s *OtoSink) context(format wavFormat) (*oto.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return s.ctx, nil
	}
	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d, want 16", format.BitDepth)
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready
	s.ctx = ctx
	s.format = format
	return ctx, nil
}

func (s *OtoSink) PlayWAV(data []byte, onEnd func()) (Handle, error) {
	format, pcm, err := parseWAV(data)
	if err != nil {
		return nil, err
	}
	ctx, err := s.context(*format)
	if err != nil {
		return nil, err
	}

	h := &otoHandle{stop: make(chan struct{})}
	go func() {
		player := ctx.NewPlayer(bytes.NewReader(pcm))
		defer player.Close()
		player.Play()
		for player.IsPlaying() {
			select {
			case <-h.stop:
				player.Pause()
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
		select {
		case <-h.stop:
		default:
			if onEnd != nil {
				onEnd()
			}
		}
	}()
	return h, nil
}

// PlayBeep loops a synthesized tone (half a second on, half off) until
// stopped. It only fails if the audio device cannot be opened at all.
func (s *OtoSink) PlayBeep() (Handle, error) {
	ctx, err := s.context(wavFormat{SampleRate: beepSampleRate, Channels: 1, BitDepth: 16})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	tone := beepTone(s.format)
	s.mu.Unlock()

	h := &otoHandle{stop: make(chan struct{})}
	go func() {
		for {
			player := ctx.NewPlayer(bytes.NewReader(tone))
			player.Play()
			for player.IsPlaying() {
				select {
				case <-h.stop:
					player.Pause()
					player.Close()
					return
				case <-time.After(10 * time.Millisecond):
				}
			}
			player.Close()
			select {
			case <-h.stop:
				return
			case <-time.After(beepOnDuration):
			}
		}
	}()
	return h, nil
}

// beepTone synthesizes one on-pulse of 16-bit little-endian sine PCM in the
// device's native format.
func beepTone(format wavFormat) []byte {
	samples := int(float64(format.SampleRate) * beepOnDuration.Seconds())
	buf := make([]byte, 0, samples*2*format.Channels)
	for i := 0; i < samples; i++ {
		v := math.Sin(2 * math.Pi * beepFrequency * float64(i) / float64(format.SampleRate))
		// short attack/release ramps avoid clicks at pulse edges
		ramp := 1.0
		const edge = 200
		if i < edge {
			ramp = float64(i) / edge
		} else if samples-i < edge {
			ramp = float64(samples-i) / edge
		}
		sample := int16(v * ramp * 0.6 * math.MaxInt16)
		for ch := 0; ch < format.Channels; ch++ {
			buf = binary.LittleEndian.AppendUint16(buf, uint16(sample))
		}
	}
	return buf
}

type otoHandle struct {
	once sync.Once
	stop chan struct{}
}

func (h *otoHandle) Stop() {
	h.once.Do(func() { close(h.stop) })
}
