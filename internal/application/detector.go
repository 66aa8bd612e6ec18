package application

import (
	"io"

	"hotword/internal/domain"
)

// Detector consumes PCM written to it and reports through the emit callback
// it was built with. A detector is single-use: once unpiped it must be Reset
// and dropped.
type Detector interface {
	io.Writer
	Reset() error
}

type DetectorFactory func(cfg domain.DetectorConfig, emit func(domain.Event)) (Detector, error)

// Handler receives events re-emitted by a Listener.
type Handler func(domain.Event)
