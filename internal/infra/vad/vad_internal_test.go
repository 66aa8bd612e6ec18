package vad

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotword/internal/domain"
)

func scripted(results ...bool) func([]byte) (bool, error) {
	return func([]byte) (bool, error) {
		if len(results) == 0 {
			return false, nil
		}
		r := results[0]
		results = results[1:]
		return r, nil
	}
}

func TestDetector_Transitions(t *testing.T) {
	var events []domain.Event
	d := &Detector{
		emit:     func(ev domain.Event) { events = append(events, ev) },
		classify: scripted(false, true, true, false, false, true),
	}

	_, err := d.Write(make([]byte, FrameBytes*6))
	require.NoError(t, err)

	kinds := make([]domain.EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind()
	}
	assert.Equal(t, []domain.EventKind{
		domain.EventSound,
		domain.EventSound,
		domain.EventSilence,
		domain.EventSound,
	}, kinds)
}

func TestDetector_BuffersPartialFrames(t *testing.T) {
	var events []domain.Event
	d := &Detector{
		emit:     func(ev domain.Event) { events = append(events, ev) },
		classify: func([]byte) (bool, error) { return true, nil },
	}

	frame := bytes.Repeat([]byte{7}, FrameBytes)
	_, _ = d.Write(frame[:100])
	assert.Empty(t, events)

	_, _ = d.Write(frame[100:])
	require.Len(t, events, 1)
	assert.Equal(t, domain.SoundEvent{Buffer: frame}, events[0])
}

func TestDetector_ClassifierErrorIsFault(t *testing.T) {
	var events []domain.Event
	d := &Detector{
		emit:     func(ev domain.Event) { events = append(events, ev) },
		classify: func([]byte) (bool, error) { return false, errors.New("bad frame") },
	}

	_, _ = d.Write(make([]byte, FrameBytes))

	require.Len(t, events, 1)
	assert.Equal(t, domain.EngineFaultMessage, events[0].(domain.ErrorEvent).Message)
}
