package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"hotword/internal/domain"
)

var (
	errInvalidTransition = errors.New("invalid lifecycle transition")
	errListenerClosed    = errors.New("listener closed")
)

const eventQueueSize = 256

type ListenerConfig struct {
	Models         []domain.ModelSpec
	Detector       domain.DetectorConfig
	CaptureProgram string
	CaptureDevice  string
}

// Listener connects a capture source to a freshly built detector on every
// Start/Resume and re-emits the detector's events to its subscribers.
// Lifecycle calls from a state they do not apply to are ignored with a
// warning.
//
// Events are delivered in order on the listener's own goroutine, never on a
// collaborator's, so handlers may call Start, Stop, Pause and Resume.
type Listener struct {
	id          string
	detectorCfg domain.DetectorConfig
	capture     CaptureSource
	newDetector DetectorFactory
	logger      *slog.Logger

	mu       sync.RWMutex
	state    domain.ListenerState
	detector Detector
	err      error
	closed   bool

	// generation identifies the connected detector. Events tagged with an
	// older generation are dropped.
	generation atomic.Uint64

	subMu       sync.RWMutex
	subscribers []subscriber
	nextSub     uint64

	events    chan envelope
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type subscriber struct {
	id      uint64
	handler Handler
}

// envelope carries an event to the dispatcher. Generation zero marks events
// raised by the listener itself.
type envelope struct {
	generation uint64
	event      domain.Event
}

func NewListener(
	cfg ListenerConfig,
	newCapture CaptureFactory,
	newDetector DetectorFactory,
	logger *slog.Logger,
) (*Listener, error) {
	detectorCfg := domain.MergeDetectorConfig(cfg.Detector, cfg.Models)

	capture, err := newCapture(domain.NewRecorderConfig(cfg.CaptureProgram, cfg.CaptureDevice))
	if err != nil {
		return nil, fmt.Errorf("creating capture source: %w", err)
	}

	id := uuid.NewString()
	if logger != nil {
		logger = logger.With("listener", id)
	}

	l := &Listener{
		id:          id,
		detectorCfg: detectorCfg,
		capture:     capture,
		newDetector: newDetector,
		logger:      logger,
		state:       domain.StateIdle,
		events:      make(chan envelope, eventQueueSize),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go l.dispatch()

	l.log(slog.LevelInfo, "hotword listener initialized",
		"capture", capture.Name(),
		"engine", detectorCfg.Engine,
		"hotwords", detectorCfg.Hotwords(),
	)

	return l, nil
}

func (l *Listener) ID() string {
	return l.id
}

func (l *Listener) State() domain.ListenerState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Err returns the error of the last failed transition, or nil if the last
// transition succeeded.
func (l *Listener) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

func (l *Listener) Models() []domain.ModelSpec {
	return l.detectorCfg.Clone().Models
}

func (l *Listener) DetectorConfig() domain.DetectorConfig {
	return l.detectorCfg.Clone()
}

// Subscribe registers h for all re-emitted events.
func (l *Listener) Subscribe(h Handler) (unsubscribe func()) {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	l.nextSub++
	id := l.nextSub
	l.subscribers = append(l.subscribers, subscriber{id: id, handler: h})

	return func() {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		for i, s := range l.subscribers {
			if s.id == id {
				l.subscribers = append(l.subscribers[:i:i], l.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (l *Listener) Start(ctx context.Context) *Listener {
	l.transition("start", func() error {
		if l.state != domain.StateIdle && l.state != domain.StateStopped {
			return errInvalidTransition
		}
		if err := l.connect(func() error { return l.capture.Start(ctx) }); err != nil {
			return err
		}
		l.state = domain.StateListening
		return nil
	})
	return l
}

func (l *Listener) Stop() *Listener {
	l.transition("stop", func() error {
		if l.state != domain.StateListening && l.state != domain.StatePaused {
			return errInvalidTransition
		}
		return l.halt()
	})
	return l
}

// halt disposes the detector and stops capture. Callers hold l.mu.
func (l *Listener) halt() error {
	l.disconnect()
	l.state = domain.StateStopped
	if err := l.capture.Stop(); err != nil {
		return fmt.Errorf("stopping capture: %w", err)
	}
	return nil
}

func (l *Listener) Pause() *Listener {
	l.transition("pause", func() error {
		if l.state != domain.StateListening {
			return errInvalidTransition
		}
		l.disconnect()
		l.state = domain.StatePaused
		if err := l.capture.Pause(); err != nil {
			return fmt.Errorf("pausing capture: %w", err)
		}
		return nil
	})
	return l
}

func (l *Listener) Resume() *Listener {
	l.transition("resume", func() error {
		if l.state != domain.StatePaused {
			return errInvalidTransition
		}
		if err := l.connect(l.capture.Resume); err != nil {
			return err
		}
		l.state = domain.StateListening
		return nil
	})
	return l
}

func (l *Listener) transition(op string, fn func() error) {
	l.mu.Lock()
	from := l.state
	err := errListenerClosed
	if !l.closed {
		err = fn()
	}
	to := l.state
	ignored := errors.Is(err, errInvalidTransition) || errors.Is(err, errListenerClosed)
	if !ignored {
		l.err = err
	}
	l.mu.Unlock()

	switch {
	case errors.Is(err, errListenerClosed):
		l.log(slog.LevelWarn, "ignoring lifecycle call on closed listener", "op", op)
	case ignored:
		l.log(slog.LevelWarn, "ignoring lifecycle call", "op", op, "state", from.String())
	case err != nil:
		l.log(slog.LevelError, "lifecycle transition failed", "op", op, "state", to.String(), "error", err)
		l.enqueue(envelope{event: domain.ErrorEvent{Message: op + " failed", Err: err}})
	default:
		l.log(slog.LevelInfo, "listener "+to.String(), "op", op, "from", from.String())
	}
}

// connect builds a new detector, runs begin to bring the capture source up,
// and pipes the stream into the detector. Callers hold l.mu.
func (l *Listener) connect(begin func() error) error {
	l.disconnect()

	generation := l.generation.Add(1)
	det, err := l.newDetector(l.detectorCfg.Clone(), l.forwarder(generation))
	if err != nil {
		l.generation.Add(1)
		return fmt.Errorf("creating detector: %w", err)
	}

	if err := begin(); err != nil {
		l.generation.Add(1)
		if resetErr := det.Reset(); resetErr != nil {
			l.log(slog.LevelWarn, "resetting detector", "error", resetErr)
		}
		return fmt.Errorf("starting capture: %w", err)
	}

	l.capture.Stream().Pipe(det)
	l.detector = det
	return nil
}

// disconnect unpipes and disposes the current detector. Callers hold l.mu.
func (l *Listener) disconnect() {
	if l.detector == nil {
		return
	}

	l.capture.Stream().Unpipe(l.detector)
	l.generation.Add(1)
	if err := l.detector.Reset(); err != nil {
		l.log(slog.LevelWarn, "resetting detector", "error", err)
	}
	l.detector = nil
}

// forwarder never blocks, so a detector goroutine cannot stall on a busy
// subscriber.
func (l *Listener) forwarder(generation uint64) func(domain.Event) {
	return func(ev domain.Event) {
		if ev == nil || generation != l.generation.Load() {
			return
		}
		l.enqueue(envelope{generation: generation, event: ev})
	}
}

func (l *Listener) enqueue(env envelope) {
	select {
	case l.events <- env:
	default:
		l.log(slog.LevelWarn, "event queue full, dropping event", "kind", env.event.Kind())
	}
}

func (l *Listener) dispatch() {
	defer close(l.done)
	for {
		select {
		case env := <-l.events:
			l.deliver(env)
		case <-l.quit:
			for {
				select {
				case env := <-l.events:
					l.deliver(env)
				default:
					return
				}
			}
		}
	}
}

func (l *Listener) deliver(env envelope) {
	if env.generation != 0 {
		if env.generation != l.generation.Load() {
			return
		}
		l.logEvent(env.event)
	}

	l.subMu.RLock()
	subs := make([]subscriber, len(l.subscribers))
	copy(subs, l.subscribers)
	l.subMu.RUnlock()

	for _, s := range subs {
		// A Stop or Pause may land while an earlier handler runs.
		if env.generation != 0 && env.generation != l.generation.Load() {
			return
		}
		s.handler(env.event)
	}
}

// Close stops the listener if needed, delivers queued events and ends the
// dispatcher. Lifecycle calls after Close are ignored. It must not be called
// from a Handler.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.transition("close", func() error {
			l.closed = true
			if l.state != domain.StateListening && l.state != domain.StatePaused {
				return nil
			}
			return l.halt()
		})
		close(l.quit)
	})
	<-l.done
	return l.Err()
}

func (l *Listener) logEvent(ev domain.Event) {
	switch e := ev.(type) {
	case domain.HotwordEvent:
		l.log(slog.LevelInfo, "hotword detected", "index", e.Index, "hotword", e.Hotword, "bytes", len(e.Buffer))
	case domain.SoundEvent:
		l.log(slog.LevelDebug, "sound", "bytes", len(e.Buffer))
	case domain.SilenceEvent:
		l.log(slog.LevelDebug, "silence")
	case domain.ErrorEvent:
		l.log(slog.LevelWarn, "detector error", "message", e.Message, "error", e.Err)
	}
}

func (l *Listener) log(level slog.Level, msg string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Log(context.Background(), level, msg, args...)
}
