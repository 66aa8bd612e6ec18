// Package spotter drives an external keyword-spotting program. PCM is fed to
// the program's stdin in fixed 100 ms chunks; the program answers every chunk
// with one integer line:
//
//	-2  silence
//	-1  engine error
//	 0  sound, no hotword
//	 n  the n-th hotword (1-based, across all models in order)
package spotter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"hotword/internal/domain"
	"hotword/internal/infra/process"
)

const ChunkSize = 3200

const (
	resultSilence = -2
	resultError   = -1
	resultSound   = 0
)

var ErrClosed = errors.New("spotter closed")

// Engine is a single-use detector backed by one spotter process.
type Engine struct {
	hotwords []string
	emit     func(domain.Event)
	logger   *slog.Logger

	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan struct{}

	closed atomic.Bool

	mu      sync.Mutex
	pending []byte
	inbox   chan []byte
}

// New starts the spotter process configured by cfg. Events are reported
// through emit, only ever from the engine's reader goroutine, and emit must
// not block.
func New(cfg domain.DetectorConfig, emit func(domain.Event), logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cmd := exec.Command(cfg.Command, Args(cfg)...)
	process.SetupGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cfg.Command, err)
	}

	e := &Engine{
		hotwords: cfg.Hotwords(),
		emit:     emit,
		logger:   logger,
		cmd:      cmd,
		stdin:    stdin,
		done:     make(chan struct{}),
		inbox:    make(chan []byte, 64),
	}

	go e.read(stdout)

	logger.Debug("spotter started", "command", cfg.Command, "pid", cmd.Process.Pid, "hotwords", e.hotwords)
	return e, nil
}

// Args builds the spotter command line from cfg.
func Args(cfg domain.DetectorConfig) []string {
	args := append([]string(nil), cfg.Args...)
	if cfg.Resource != "" {
		args = append(args, "--resource", cfg.Resource)
	}
	if cfg.AudioGain != nil {
		args = append(args, "--audio-gain", strconv.FormatFloat(*cfg.AudioGain, 'f', -1, 64))
	}
	if cfg.ApplyFrontend != nil && *cfg.ApplyFrontend {
		args = append(args, "--apply-frontend")
	}
	for _, m := range cfg.Models {
		args = append(args, "--model", m.File, "--hotwords", strings.Join(m.Hotwords, ","))
		if m.Sensitivity != nil {
			args = append(args, "--sensitivity", strconv.FormatFloat(*m.Sensitivity, 'f', -1, 64))
		}
	}
	return args
}

// Write buffers p and forwards every complete chunk to the spotter. A dead
// spotter is reported by the reader once its output ends.
func (e *Engine) Write(p []byte) (int, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = append(e.pending, p...)
	for len(e.pending) >= ChunkSize {
		chunk := make([]byte, ChunkSize)
		copy(chunk, e.pending[:ChunkSize])
		e.pending = e.pending[ChunkSize:]

		select {
		case e.inbox <- chunk:
		default:
			e.logger.Warn("spotter is not keeping up, dropping audio", "bytes", len(chunk))
			continue
		}
		if _, err := e.stdin.Write(chunk); err != nil {
			e.logger.Debug("writing to spotter", "error", err)
			return len(p), nil
		}
	}
	return len(p), nil
}

func (e *Engine) read(stdout io.Reader) {
	defer close(e.done)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk []byte
		select {
		case chunk = <-e.inbox:
		default:
		}

		result, err := strconv.Atoi(line)
		if err != nil {
			e.fault(fmt.Errorf("unexpected spotter output %q", line))
			continue
		}
		e.dispatch(result, chunk)
	}

	if !e.closed.Load() {
		e.fault(fmt.Errorf("spotter exited: %w", errors.Join(scanner.Err(), io.ErrUnexpectedEOF)))
	}
}

func (e *Engine) dispatch(result int, chunk []byte) {
	switch {
	case result == resultSilence:
		e.emit(domain.SilenceEvent{})
	case result == resultError:
		e.fault(errors.New("spotter reported an error"))
	case result == resultSound:
		e.emit(domain.SoundEvent{Buffer: chunk})
	case result > 0 && result <= len(e.hotwords):
		e.emit(domain.HotwordEvent{Index: result - 1, Hotword: e.hotwords[result-1], Buffer: chunk})
	default:
		e.fault(fmt.Errorf("hotword index %d out of range", result))
	}
}

func (e *Engine) fault(err error) {
	e.logger.Debug("spotter fault", "error", err)
	e.emit(domain.ErrorEvent{Message: domain.EngineFaultMessage, Err: err})
}

// Reset terminates the spotter process and waits for its output to drain.
// The engine cannot be used afterwards.
func (e *Engine) Reset() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	_ = e.stdin.Close()
	if err := process.KillGroup(e.cmd); err != nil {
		return fmt.Errorf("killing spotter: %w", err)
	}
	<-e.done
	_ = e.cmd.Wait()
	return nil
}
