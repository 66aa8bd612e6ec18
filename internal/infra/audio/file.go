package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/wav"

	"hotword/internal/application"
	"hotword/internal/domain"
)

// FileProgramPrefix selects a FileSource when used as capture program name,
// e.g. "file:testdata/snowboy.wav".
const FileProgramPrefix = "file:"

var ErrNoAudio = errors.New("file holds no audio")

// FileSource replays a 16-bit mono WAV file as if it were live capture.
type FileSource struct {
	path     string
	cfg      domain.RecorderConfig
	logger   *slog.Logger
	stream   *Stream
	loop     bool
	realtime bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	paused  bool
	resumed chan struct{}
}

type FileOption func(*FileSource)

// WithLoop restarts the replay from the beginning when the file ends.
func WithLoop(loop bool) FileOption {
	return func(f *FileSource) { f.loop = loop }
}

// WithRealtime paces chunks at the rate they would arrive from a microphone.
func WithRealtime(realtime bool) FileOption {
	return func(f *FileSource) { f.realtime = realtime }
}

func NewFileSource(path string, cfg domain.RecorderConfig, logger *slog.Logger, opts ...FileOption) *FileSource {
	f := &FileSource{
		path:     strings.TrimPrefix(path, FileProgramPrefix),
		cfg:      cfg,
		logger:   orDiscard(logger),
		stream:   NewStream(),
		realtime: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Stream() application.AudioStream {
	return f.stream
}

func (f *FileSource) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		return ErrAlreadyRunning
	}

	pcm, err := readPCM(f.path, f.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	f.paused = false
	f.resumed = make(chan struct{})

	go f.replay(ctx, pcm, f.done)

	f.logger.Info("file replay started", "path", f.path, "bytes", len(pcm))
	return nil
}

func (f *FileSource) replay(ctx context.Context, pcm []byte, done chan struct{}) {
	defer close(done)

	chunkDuration := time.Duration(DefaultChunkSize/2) * time.Second / time.Duration(f.cfg.SampleRate*f.cfg.Channels)

	for ctx.Err() == nil {
		for offset := 0; offset < len(pcm); offset += DefaultChunkSize {
			if !f.waitIfPaused(ctx) {
				return
			}

			end := min(offset+DefaultChunkSize, len(pcm))
			chunk := make([]byte, end-offset)
			copy(chunk, pcm[offset:end])
			_, _ = f.stream.Write(chunk)

			if f.realtime {
				select {
				case <-ctx.Done():
					return
				case <-time.After(chunkDuration):
				}
			}
		}
		if !f.loop {
			f.logger.Info("file replay finished", "path", f.path)
			return
		}
	}
}

// waitIfPaused blocks while the source is paused. It reports false once ctx
// is done.
func (f *FileSource) waitIfPaused(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		f.mu.Lock()
		paused, resumed := f.paused, f.resumed
		f.mu.Unlock()
		if !paused {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-resumed:
		}
	}
}

func (f *FileSource) Stop() error {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel = nil
	f.done = nil
	f.paused = false
	f.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (f *FileSource) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel == nil {
		return ErrNotRunning
	}
	f.paused = true
	return nil
}

func (f *FileSource) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel == nil {
		return ErrNotRunning
	}
	if !f.paused {
		return nil
	}
	f.paused = false
	close(f.resumed)
	f.resumed = make(chan struct{})
	return nil
}

// readPCM decodes a WAV file into little-endian 16-bit PCM matching cfg.
func readPCM(path string, cfg domain.RecorderConfig) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.New("input is not a valid WAV audio file")
	}

	if int(decoder.SampleRate) != cfg.SampleRate {
		return nil, fmt.Errorf("unsupported sample rate %d, want %d", decoder.SampleRate, cfg.SampleRate)
	}
	if int(decoder.NumChans) != cfg.Channels {
		return nil, fmt.Errorf("unsupported number of channels %d, want %d", decoder.NumChans, cfg.Channels)
	}
	if decoder.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d", decoder.BitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAudio, path)
	}

	pcm := make([]byte, len(buf.Data)*2)
	for i, sample := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(sample)))
	}
	return pcm, nil
}
