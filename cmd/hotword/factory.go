package main

import (
	"fmt"
	"log/slog"
	"strings"

	"hotword/config"
	"hotword/internal/application"
	"hotword/internal/domain"
	"hotword/internal/infra/audio"
	"hotword/internal/infra/spotter"
	"hotword/internal/infra/vad"
)

const programPortAudio = "portaudio"

func captureFactory(cfg config.CaptureConfig, logger *slog.Logger) application.CaptureFactory {
	return func(rc domain.RecorderConfig) (application.CaptureSource, error) {
		switch {
		case strings.HasPrefix(rc.Program, audio.FileProgramPrefix):
			return audio.NewFileSource(rc.Program, rc, logger, audio.WithLoop(cfg.Loop)), nil
		case rc.Program == programPortAudio:
			return audio.NewMicrophone(rc, logger), nil
		default:
			rec, err := audio.NewRecorder(rc, logger)
			if err != nil {
				return nil, err
			}
			return rec, nil
		}
	}
}

func detectorFactory(logger *slog.Logger) application.DetectorFactory {
	return func(cfg domain.DetectorConfig, emit func(domain.Event)) (application.Detector, error) {
		switch cfg.Engine {
		case domain.EngineSpotter:
			engine, err := spotter.New(cfg, emit, logger)
			if err != nil {
				return nil, err
			}
			return engine, nil
		case domain.EngineVAD:
			detector, err := vad.New(cfg, emit)
			if err != nil {
				return nil, err
			}
			return detector, nil
		default:
			return nil, fmt.Errorf("unknown detector engine %q", cfg.Engine)
		}
	}
}
