package audio

import (
	"errors"
	"io"
	"sync"
)

// DefaultChunkSize is 100 ms of 16 kHz mono 16-bit PCM.
const DefaultChunkSize = 3200

// Stream fans PCM chunks out to every piped writer. Writes go to a snapshot
// of the sinks, so a sink may Pipe or Unpipe from inside its Write.
type Stream struct {
	mu    sync.RWMutex
	sinks []io.Writer
}

func NewStream() *Stream {
	return &Stream{}
}

func (s *Stream) Pipe(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sink := range s.sinks {
		if sink == w {
			return
		}
	}
	s.sinks = append(s.sinks, w)
}

func (s *Stream) Unpipe(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sink := range s.sinks {
		if sink == w {
			s.sinks = append(s.sinks[:i:i], s.sinks[i+1:]...)
			return
		}
	}
}

func (s *Stream) Piped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sinks)
}

// Write hands p to every sink. A failing sink does not stop delivery to the
// others; their errors are joined.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.RLock()
	sinks := make([]io.Writer, len(s.sinks))
	copy(sinks, s.sinks)
	s.mu.RUnlock()

	var errs []error
	for _, w := range sinks {
		if _, err := w.Write(p); err != nil {
			errs = append(errs, err)
		}
	}
	return len(p), errors.Join(errs...)
}

// ReadFrom pumps r into the stream until EOF. Each chunk is a fresh slice so
// sinks may retain it.
func (s *Stream) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	buf := make([]byte, DefaultChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			_, _ = s.Write(chunk)
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
