package spotter_test

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"hotword/internal/domain"
	"hotword/internal/infra/spotter"
)

// TestHelperSpotter is not a real test. It stands in for the spotter program
// when run as a subprocess: the first byte of every chunk selects the answer.
func TestHelperSpotter(t *testing.T) {
	if os.Getenv("HOTWORD_HELPER_SPOTTER") != "1" {
		return
	}

	chunk := make([]byte, spotter.ChunkSize)
	for {
		if _, err := io.ReadFull(os.Stdin, chunk); err != nil {
			os.Exit(0)
		}
		switch chunk[0] {
		case 0x00:
			os.Stdout.WriteString("-2\n")
		case 0xEE:
			os.Stdout.WriteString("-1\n")
		case 0xDD:
			os.Exit(3)
		case 0xCC:
			os.Stdout.WriteString("garbage\n")
		case 0x01, 0x02, 0x07:
			os.Stdout.WriteString(strconv.Itoa(int(chunk[0])) + "\n")
		default:
			os.Stdout.WriteString("0\n")
		}
	}
}

func helperConfig(t *testing.T) domain.DetectorConfig {
	t.Helper()
	t.Setenv("HOTWORD_HELPER_SPOTTER", "1")

	cfg := domain.MergeDetectorConfig(domain.DetectorConfig{
		Command: os.Args[0],
		Args:    []string{"-test.run=^TestHelperSpotter$", "--"},
	}, []domain.ModelSpec{
		{File: "snowboy.umdl", Hotwords: []string{"snowboy"}},
		{File: "alexa.umdl", Hotwords: []string{"alexa"}},
	})
	return cfg
}

type collector chan domain.Event

func (c collector) emit(ev domain.Event) {
	select {
	case c <- ev:
	default:
	}
}

func (c collector) next(t *testing.T) domain.Event {
	t.Helper()
	select {
	case ev := <-c:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func chunkOf(b byte) []byte {
	return bytes.Repeat([]byte{b}, spotter.ChunkSize)
}

func TestArgs(t *testing.T) {
	gain := 2.0
	frontend := true
	cfg := domain.MergeDetectorConfig(domain.DetectorConfig{
		AudioGain:     &gain,
		ApplyFrontend: &frontend,
		Args:          []string{"--verbose"},
	}, []domain.ModelSpec{{File: "a.pmdl", Hotwords: []string{"one", "two"}}})

	assert.Equal(t, []string{
		"--verbose",
		"--resource", domain.DefaultResource,
		"--audio-gain", "2",
		"--apply-frontend",
		"--model", "a.pmdl", "--hotwords", "one,two", "--sensitivity", "0.5",
	}, spotter.Args(cfg))
}

func TestEngine_MapsResults(t *testing.T) {
	defer goleak.VerifyNone(t)

	events := make(collector, 16)
	engine, err := spotter.New(helperConfig(t), events.emit, nil)
	require.NoError(t, err)

	sound := chunkOf(0x10)
	first := chunkOf(0x01)
	second := chunkOf(0x02)

	for _, chunk := range [][]byte{chunkOf(0x00), sound, first, second, chunkOf(0xEE), chunkOf(0x07), chunkOf(0xCC)} {
		_, err := engine.Write(chunk)
		require.NoError(t, err)
	}

	assert.Equal(t, domain.SilenceEvent{}, events.next(t))
	assert.Equal(t, domain.SoundEvent{Buffer: sound}, events.next(t))
	assert.Equal(t, domain.HotwordEvent{Index: 0, Hotword: "snowboy", Buffer: first}, events.next(t))
	assert.Equal(t, domain.HotwordEvent{Index: 1, Hotword: "alexa", Buffer: second}, events.next(t))
	for i := 0; i < 3; i++ {
		ev := events.next(t)
		require.Equal(t, domain.EventError, ev.Kind())
		assert.Equal(t, domain.EngineFaultMessage, ev.(domain.ErrorEvent).Message)
	}

	require.NoError(t, engine.Reset())
}

func TestEngine_BuffersPartialChunks(t *testing.T) {
	events := make(collector, 4)
	engine, err := spotter.New(helperConfig(t), events.emit, nil)
	require.NoError(t, err)
	defer engine.Reset()

	hotword := chunkOf(0x01)
	_, _ = engine.Write(hotword[:1000])
	_, _ = engine.Write(hotword[1000:])

	ev := events.next(t)
	require.Equal(t, domain.EventHotword, ev.Kind())
	assert.Equal(t, hotword, ev.(domain.HotwordEvent).Buffer)
}

func TestEngine_ReportsUnexpectedExit(t *testing.T) {
	events := make(collector, 4)
	engine, err := spotter.New(helperConfig(t), events.emit, nil)
	require.NoError(t, err)
	defer engine.Reset()

	_, _ = engine.Write(chunkOf(0xDD))

	ev := events.next(t)
	require.Equal(t, domain.EventError, ev.Kind())
	assert.ErrorIs(t, ev.(domain.ErrorEvent), io.ErrUnexpectedEOF)
}

func TestEngine_ResetIsFinal(t *testing.T) {
	defer goleak.VerifyNone(t)

	events := make(collector, 4)
	engine, err := spotter.New(helperConfig(t), events.emit, nil)
	require.NoError(t, err)

	require.NoError(t, engine.Reset())
	require.NoError(t, engine.Reset())

	_, err = engine.Write(chunkOf(0x01))
	assert.ErrorIs(t, err, spotter.ErrClosed)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event after reset: %#v", ev)
	default:
	}
}

func TestNew_MissingCommand(t *testing.T) {
	cfg := domain.MergeDetectorConfig(domain.DetectorConfig{Command: "/nonexistent/snowboy-detect"}, nil)
	_, err := spotter.New(cfg, func(domain.Event) {}, nil)
	assert.Error(t, err)
}
