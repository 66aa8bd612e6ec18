//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"errors"
	"log/slog"

	"hotword/internal/application"
	"hotword/internal/domain"
)

var errNoPortAudio = errors.New("microphone capture not available: rebuild with -tags portaudio")

// Microphone stub when portaudio is not available
type Microphone struct {
	stream *Stream
}

func NewMicrophone(_ domain.RecorderConfig, _ *slog.Logger) *Microphone {
	return &Microphone{stream: NewStream()}
}

func (m *Microphone) Name() string {
	return "microphone"
}

func (m *Microphone) Stream() application.AudioStream {
	return m.stream
}

func (m *Microphone) Start(_ context.Context) error {
	return errNoPortAudio
}

func (m *Microphone) Stop() error {
	return nil
}

func (m *Microphone) Pause() error {
	return ErrNotRunning
}

func (m *Microphone) Resume() error {
	return ErrNotRunning
}

type InputDevice struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

func ListInputDevices() ([]InputDevice, error) {
	return nil, errNoPortAudio
}
