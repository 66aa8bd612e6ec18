package domain

import "runtime"

const (
	SampleRate       = 16000
	Channels         = 1
	SilenceThreshold = 0
)

// RecorderConfig holds capture parameters. Silence detection is left to the
// detector, so Threshold is always zero for listeners.
type RecorderConfig struct {
	Program    string
	Device     string
	SampleRate int
	Channels   int
	Threshold  float64
}

func NewRecorderConfig(program, device string) RecorderConfig {
	if program == "" {
		program = DefaultRecorderProgram()
	}
	return RecorderConfig{
		Program:    program,
		Device:     device,
		SampleRate: SampleRate,
		Channels:   Channels,
		Threshold:  SilenceThreshold,
	}
}

// DefaultRecorderProgram returns the recorder usually present on this platform.
func DefaultRecorderProgram() string {
	if runtime.GOOS == "linux" {
		return "arecord"
	}
	return "rec"
}
