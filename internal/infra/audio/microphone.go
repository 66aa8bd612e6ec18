//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"hotword/internal/application"
	"hotword/internal/domain"
)

const framesPerBuffer = 1024

// Microphone captures from the default PortAudio input device.
type Microphone struct {
	cfg    domain.RecorderConfig
	logger *slog.Logger
	stream *Stream

	mu      sync.Mutex
	pa      *portaudio.Stream
	cancel  context.CancelFunc
	done    chan struct{}
	paused  bool
	resumed chan struct{}
}

func NewMicrophone(cfg domain.RecorderConfig, logger *slog.Logger) *Microphone {
	return &Microphone{
		cfg:    cfg,
		logger: orDiscard(logger),
		stream: NewStream(),
	}
}

func (m *Microphone) Name() string {
	return "microphone"
}

func (m *Microphone) Stream() application.AudioStream {
	return m.stream
}

func (m *Microphone) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pa != nil {
		return ErrAlreadyRunning
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	buffer := make([]int16, framesPerBuffer*m.cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(
		m.cfg.Channels,
		0,
		float64(m.cfg.SampleRate),
		framesPerBuffer,
		buffer,
	)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	m.pa = stream
	m.cancel = cancel
	m.done = make(chan struct{})
	m.paused = false
	m.resumed = make(chan struct{})

	go m.readLoop(ctx, stream, buffer, m.done)

	m.logger.Info("microphone started", "sampleRate", m.cfg.SampleRate)
	return nil
}

func (m *Microphone) readLoop(ctx context.Context, stream *portaudio.Stream, buffer []int16, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		m.mu.Lock()
		paused, resumed := m.paused, m.resumed
		m.mu.Unlock()

		if paused {
			select {
			case <-ctx.Done():
				return
			case <-resumed:
			}
			continue
		}

		if err := stream.Read(); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Debug("reading from stream", "error", err)
			continue
		}

		chunk := make([]byte, len(buffer)*2)
		for i, sample := range buffer {
			binary.LittleEndian.PutUint16(chunk[i*2:], uint16(sample))
		}
		_, _ = m.stream.Write(chunk)
	}
}

func (m *Microphone) Stop() error {
	m.mu.Lock()
	stream, cancel, done := m.pa, m.cancel, m.done
	m.pa = nil
	m.cancel = nil
	m.done = nil
	m.paused = false
	m.mu.Unlock()

	if stream == nil {
		return nil
	}

	cancel()
	stream.Stop()
	<-done
	stream.Close()
	portaudio.Terminate()

	m.logger.Info("microphone stopped")
	return nil
}

func (m *Microphone) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pa == nil {
		return ErrNotRunning
	}
	if m.paused {
		return nil
	}
	m.paused = true
	if err := m.pa.Stop(); err != nil {
		return fmt.Errorf("stopping stream: %w", err)
	}
	return nil
}

func (m *Microphone) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pa == nil {
		return ErrNotRunning
	}
	if !m.paused {
		return nil
	}
	if err := m.pa.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	m.paused = false
	close(m.resumed)
	m.resumed = make(chan struct{})
	return nil
}

// InputDevice describes a PortAudio capture device.
type InputDevice struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

func ListInputDevices() ([]InputDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	var defaultName string
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultName = def.Name
	}

	var inputs []InputDevice
	for _, dev := range devices {
		if dev.MaxInputChannels == 0 {
			continue
		}
		inputs = append(inputs, InputDevice{
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			IsDefault:         dev.Name == defaultName,
		})
	}
	return inputs, nil
}
