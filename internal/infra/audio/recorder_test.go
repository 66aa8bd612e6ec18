package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hotword/internal/domain"
)

func TestRecorderArgs(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.RecorderConfig
		want []string
	}{
		{
			name: "arecord",
			cfg:  domain.NewRecorderConfig("arecord", ""),
			want: []string{"-q", "-r", "16000", "-c", "1", "-t", "raw", "-f", "S16_LE", "-"},
		},
		{
			name: "arecord with device",
			cfg:  domain.NewRecorderConfig("/usr/bin/arecord", "plughw:1,0"),
			want: []string{"-q", "-r", "16000", "-c", "1", "-t", "raw", "-f", "S16_LE", "-D", "plughw:1,0", "-"},
		},
		{
			name: "rec",
			cfg:  domain.NewRecorderConfig("rec", ""),
			want: []string{"-q", "-r", "16000", "-c", "1", "-e", "signed-integer", "-b", "16", "--endian", "little", "-t", "raw", "-"},
		},
		{
			name: "sox",
			cfg:  domain.NewRecorderConfig("sox", ""),
			want: []string{"-d", "-q", "-r", "16000", "-c", "1", "-e", "signed-integer", "-b", "16", "--endian", "little", "-t", "raw", "-"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := recorderArgs(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecorderArgs_SilenceOnlyWithThreshold(t *testing.T) {
	cfg := domain.NewRecorderConfig("rec", "")
	args, err := recorderArgs(cfg)
	require.NoError(t, err)
	assert.NotContains(t, args, "silence")

	cfg.Threshold = 0.5
	args, err = recorderArgs(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"silence", "1", "0.1", "0.5%", "-1", "1.0", "0.5%"}, args[len(args)-7:])
}

func TestRecorderEnv(t *testing.T) {
	assert.Nil(t, recorderEnv(domain.NewRecorderConfig("rec", "")))
	assert.Equal(t, []string{"AUDIODEV=hw:2"}, recorderEnv(domain.NewRecorderConfig("sox", "hw:2")))
	assert.Nil(t, recorderEnv(domain.NewRecorderConfig("arecord", "hw:2")))
}

func TestNewRecorder_UnsupportedProgram(t *testing.T) {
	_, err := NewRecorder(domain.NewRecorderConfig("ffmpeg", ""), nil)
	assert.True(t, errors.Is(err, ErrUnsupportedProgram))
}

// TestHelperRecorder is not a real test. It stands in for arecord when run
// as a subprocess by the recorder tests.
func TestHelperRecorder(t *testing.T) {
	if os.Getenv("HOTWORD_HELPER_RECORDER") != "1" {
		return
	}
	chunk := bytes.Repeat([]byte{0x01, 0x00}, 160)
	for {
		if _, err := os.Stdout.Write(chunk); err != nil {
			os.Exit(0)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type signalingWriter struct {
	mu     sync.Mutex
	bytes  int
	notify chan struct{}
}

func (w *signalingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.bytes += len(p)
	w.mu.Unlock()
	select {
	case w.notify <- struct{}{}:
	default:
	}
	return len(p), nil
}

func helperRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := NewRecorder(domain.NewRecorderConfig("arecord", ""), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	r.command = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=^TestHelperRecorder$")
		cmd.Env = append(os.Environ(), "HOTWORD_HELPER_RECORDER=1")
		return cmd
	}
	return r
}

func TestRecorder_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := helperRecorder(t)
	sink := &signalingWriter{notify: make(chan struct{}, 1)}
	r.Stream().Pipe(sink)

	require.NoError(t, r.Start(context.Background()))
	assert.ErrorIs(t, r.Start(context.Background()), ErrAlreadyRunning)

	select {
	case <-sink.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for recorder output")
	}

	require.NoError(t, r.Pause())
	require.NoError(t, r.Pause())
	require.NoError(t, r.Resume())

	select {
	case <-sink.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for output after resume")
	}

	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Positive(t, sink.bytes)
}

func TestRecorder_StopWhilePaused(t *testing.T) {
	r := helperRecorder(t)

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Pause())
	require.NoError(t, r.Stop())

	assert.ErrorIs(t, r.Resume(), ErrNotRunning)
	assert.ErrorIs(t, r.Pause(), ErrNotRunning)
}
