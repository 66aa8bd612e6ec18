package vad_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotword/internal/domain"
	"hotword/internal/infra/vad"
)

func TestNew_SilentInputRaisesNothing(t *testing.T) {
	var events []domain.Event
	d, err := vad.New(domain.DetectorConfig{}, func(ev domain.Event) { events = append(events, ev) })
	require.NoError(t, err)

	_, err = d.Write(make([]byte, vad.FrameBytes*10))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestNew_InvalidMode(t *testing.T) {
	mode := 7
	_, err := vad.New(domain.DetectorConfig{VADMode: &mode}, func(domain.Event) {})
	assert.Error(t, err)
}

func TestDetector_WriteAfterReset(t *testing.T) {
	d, err := vad.New(domain.DetectorConfig{}, func(domain.Event) {})
	require.NoError(t, err)

	require.NoError(t, d.Reset())
	_, err = d.Write(make([]byte, vad.FrameBytes))
	assert.ErrorIs(t, err, vad.ErrClosed)
}
