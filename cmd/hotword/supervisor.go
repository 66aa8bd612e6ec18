package main

import (
	"context"
	"fmt"
	"log/slog"

	"hotword/internal/infra"
)

// supervisor keeps a listener running until ctx is done, restarting it with
// backoff whenever its detector engine fails.
type supervisor struct {
	logger  *slog.Logger
	backoff infra.Backoff
	start   func() error
	stop    func()
	close   func() error

	faults chan struct{}
}

func newSupervisor(logger *slog.Logger, backoff infra.Backoff, start func() error, stop func(), closeFn func() error) *supervisor {
	return &supervisor{
		logger:  logger,
		backoff: backoff,
		start:   start,
		stop:    stop,
		close:   closeFn,
		faults:  make(chan struct{}, 1),
	}
}

// fault records an engine failure. It never blocks, so it is safe to call
// from a listener handler.
func (s *supervisor) fault() {
	select {
	case s.faults <- struct{}{}:
	default:
	}
}

func (s *supervisor) run(ctx context.Context) error {
	if err := infra.Retry(ctx, s.backoff, s.start); err != nil {
		s.shutdown()
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("starting listener: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down")
			if err := s.close(); err != nil {
				return fmt.Errorf("closing listener: %w", err)
			}
			return nil

		case <-s.faults:
			s.logger.Warn("detector engine failed, restarting")
			s.stop()
			// Faults queued before Stop came from the engine just disposed.
			s.drainFaults()
			if err := infra.Retry(ctx, s.backoff, s.start); err != nil {
				s.shutdown()
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("restarting listener: %w", err)
			}
		}
	}
}

func (s *supervisor) drainFaults() {
	select {
	case <-s.faults:
	default:
	}
}

func (s *supervisor) shutdown() {
	if err := s.close(); err != nil {
		s.logger.Warn("closing listener", "error", err)
	}
}
