package application

import (
	"context"
	"io"

	"hotword/internal/domain"
)

// AudioStream fans captured PCM out to piped writers.
type AudioStream interface {
	Pipe(w io.Writer)
	Unpipe(w io.Writer)
}

type CaptureSource interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Pause() error
	Resume() error
	Stream() AudioStream
}

type CaptureFactory func(cfg domain.RecorderConfig) (CaptureSource, error)
