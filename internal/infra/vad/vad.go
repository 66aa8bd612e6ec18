// Package vad implements a detector that reports sound and silence using
// WebRTC voice activity detection. It never reports hotwords.
package vad

import (
	"errors"
	"fmt"
	"sync"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"hotword/internal/domain"
)

const (
	// FrameSamples is 30 ms at 16 kHz, the longest frame WebRTC VAD accepts.
	FrameSamples = domain.SampleRate * 30 / 1000
	FrameBytes   = FrameSamples * 2

	DefaultMode = 2
)

var ErrClosed = errors.New("vad detector closed")

type Detector struct {
	emit     func(domain.Event)
	classify func(frame []byte) (bool, error)

	mu      sync.Mutex
	pending []byte
	voiced  bool
	closed  bool
}

func New(cfg domain.DetectorConfig, emit func(domain.Event)) (*Detector, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("creating WebRTC VAD: %w", err)
	}

	mode := DefaultMode
	if cfg.VADMode != nil {
		mode = *cfg.VADMode
	}
	if err := v.SetMode(mode); err != nil {
		return nil, fmt.Errorf("setting VAD mode %d: %w", mode, err)
	}

	return &Detector{
		emit: emit,
		classify: func(frame []byte) (bool, error) {
			return v.Process(domain.SampleRate, frame)
		},
	}, nil
}

// Write classifies every complete frame. Voiced frames are reported as sound;
// the first unvoiced frame after sound is reported as silence.
func (d *Detector) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}

	d.pending = append(d.pending, p...)
	for len(d.pending) >= FrameBytes {
		frame := make([]byte, FrameBytes)
		copy(frame, d.pending[:FrameBytes])
		d.pending = d.pending[FrameBytes:]

		active, err := d.classify(frame)
		if err != nil {
			d.emit(domain.ErrorEvent{Message: domain.EngineFaultMessage, Err: err})
			continue
		}

		switch {
		case active:
			d.voiced = true
			d.emit(domain.SoundEvent{Buffer: frame})
		case d.voiced:
			d.voiced = false
			d.emit(domain.SilenceEvent{})
		}
	}
	return len(p), nil
}

func (d *Detector) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.pending = nil
	return nil
}
