package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"hotword/internal/application"
	"hotword/internal/domain"
	"hotword/internal/infra/process"
)

var (
	ErrUnsupportedProgram = errors.New("unsupported capture program")
	ErrNotRunning         = errors.New("capture not running")
	ErrAlreadyRunning     = errors.New("capture already running")
)

// Recorder captures PCM by spawning a recording program (arecord, rec or
// sox) and pumping its stdout into a Stream.
type Recorder struct {
	cfg     domain.RecorderConfig
	logger  *slog.Logger
	stream  *Stream
	command func(ctx context.Context, name string, args ...string) *exec.Cmd

	mu     sync.Mutex
	cmd    *exec.Cmd
	done   chan struct{}
	paused bool
}

func NewRecorder(cfg domain.RecorderConfig, logger *slog.Logger) (*Recorder, error) {
	if _, err := recorderArgs(cfg); err != nil {
		return nil, err
	}
	return &Recorder{
		cfg:     cfg,
		logger:  orDiscard(logger),
		stream:  NewStream(),
		command: exec.CommandContext,
	}, nil
}

func (r *Recorder) Name() string {
	return r.cfg.Program
}

func (r *Recorder) Stream() application.AudioStream {
	return r.stream
}

func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return ErrAlreadyRunning
	}

	args, err := recorderArgs(r.cfg)
	if err != nil {
		return err
	}

	cmd := r.command(ctx, r.cfg.Program, args...)
	if env := recorderEnv(r.cfg); len(env) > 0 {
		cmd.Env = append(cmd.Environ(), env...)
	}
	process.SetupGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", r.cfg.Program, err)
	}

	r.cmd = cmd
	r.done = make(chan struct{})
	r.paused = false

	go r.wait(cmd, stdout, stderr, r.done)

	r.logger.Info("recorder started",
		"program", r.cfg.Program,
		"pid", cmd.Process.Pid,
		"sampleRate", r.cfg.SampleRate,
	)
	return nil
}

func (r *Recorder) wait(cmd *exec.Cmd, stdout, stderr io.Reader, done chan struct{}) {
	defer close(done)

	var g errgroup.Group
	g.Go(func() error {
		_, err := r.stream.ReadFrom(stdout)
		return err
	})
	g.Go(func() error {
		r.logStderr(stderr)
		return nil
	})
	pumpErr := g.Wait()
	waitErr := cmd.Wait()

	r.mu.Lock()
	unexpected := r.cmd == cmd
	if unexpected {
		r.cmd = nil
		r.done = nil
		r.paused = false
	}
	r.mu.Unlock()

	if unexpected {
		r.logger.Warn("recorder exited unexpectedly",
			"program", r.cfg.Program,
			"error", errors.Join(pumpErr, waitErr),
		)
		return
	}
	r.logger.Debug("recorder exited", "program", r.cfg.Program)
}

func (r *Recorder) logStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.logger.Debug("recorder output", "program", r.cfg.Program, "line", line)
	}
}

// Stop kills the recorder and waits until its output has been drained.
// Stopping a recorder that is not running is a no-op.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	cmd, done := r.cmd, r.done
	r.cmd = nil
	r.done = nil
	r.paused = false
	r.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if err := process.KillGroup(cmd); err != nil {
		return fmt.Errorf("killing %s: %w", r.cfg.Program, err)
	}
	<-done

	r.logger.Info("recorder stopped", "program", r.cfg.Program)
	return nil
}

// Pause suspends the recorder process without tearing it down.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return ErrNotRunning
	}
	if r.paused {
		return nil
	}
	if err := process.Suspend(r.cmd); err != nil {
		return fmt.Errorf("suspending %s: %w", r.cfg.Program, err)
	}
	r.paused = true
	return nil
}

func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil {
		return ErrNotRunning
	}
	if !r.paused {
		return nil
	}
	if err := process.Continue(r.cmd); err != nil {
		return fmt.Errorf("resuming %s: %w", r.cfg.Program, err)
	}
	r.paused = false
	return nil
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}

func recorderArgs(cfg domain.RecorderConfig) ([]string, error) {
	rate := strconv.Itoa(cfg.SampleRate)
	channels := strconv.Itoa(cfg.Channels)

	switch filepath.Base(cfg.Program) {
	case "arecord":
		args := []string{"-q", "-r", rate, "-c", channels, "-t", "raw", "-f", "S16_LE"}
		if cfg.Device != "" {
			args = append(args, "-D", cfg.Device)
		}
		return append(args, "-"), nil

	case "rec", "sox":
		var args []string
		if filepath.Base(cfg.Program) == "sox" {
			args = append(args, "-d")
		}
		args = append(args,
			"-q",
			"-r", rate,
			"-c", channels,
			"-e", "signed-integer",
			"-b", "16",
			"--endian", "little",
			"-t", "raw",
			"-",
		)
		if cfg.Threshold > 0 {
			threshold := strconv.FormatFloat(cfg.Threshold, 'f', -1, 64) + "%"
			args = append(args, "silence", "1", "0.1", threshold, "-1", "1.0", threshold)
		}
		return args, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProgram, cfg.Program)
	}
}

// recorderEnv selects the input device for sox-based recorders, which take
// it from the environment rather than a flag.
func recorderEnv(cfg domain.RecorderConfig) []string {
	if cfg.Device == "" {
		return nil
	}
	switch filepath.Base(cfg.Program) {
	case "rec", "sox":
		return []string{"AUDIODEV=" + cfg.Device}
	}
	return nil
}
