package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hotword/config"
	"hotword/internal/application"
	"hotword/internal/domain"
	"hotword/internal/infra"
)

func newListenCmd(configPath *string) *cobra.Command {
	var cooldown time.Duration

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Start listening and print a line per detected hot word",
		Long: `Start capture and feed it to the configured detector. Every hot word is
printed to stdout as "<time>\t<index>\t<hotword>". With a cooldown the
listener pauses after a detection and resumes once the cooldown expires.
A detector engine that dies is restarted with backoff.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("cooldown") {
				cooldown, err = time.ParseDuration(cfg.Listen.Cooldown)
				if err != nil {
					return fmt.Errorf("parsing cooldown %q: %w", cfg.Listen.Cooldown, err)
				}
			}
			backoff, err := restartBackoff(cfg.Listen.Restart)
			if err != nil {
				return err
			}
			return runListen(cmd, cfg, cooldown, backoff)
		},
	}
	cmd.Flags().DurationVar(&cooldown, "cooldown", 0, "pause after a detection for this long (overrides config)")
	return cmd
}

func restartBackoff(cfg config.RestartConfig) (infra.Backoff, error) {
	b := infra.DefaultBackoff()
	b.Attempts = cfg.Attempts

	var err error
	if b.Delay, err = time.ParseDuration(cfg.Delay); err != nil {
		return b, fmt.Errorf("parsing restart delay %q: %w", cfg.Delay, err)
	}
	if b.MaxDelay, err = time.ParseDuration(cfg.MaxDelay); err != nil {
		return b, fmt.Errorf("parsing restart max delay %q: %w", cfg.MaxDelay, err)
	}
	return b, nil
}

func runListen(cmd *cobra.Command, cfg *config.Config, cooldown time.Duration, backoff infra.Backoff) error {
	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := application.NewListener(
		application.ListenerConfig{
			Models:         cfg.Models,
			Detector:       cfg.Detector,
			CaptureProgram: cfg.Capture.Program,
			CaptureDevice:  cfg.Capture.Device,
		},
		captureFactory(cfg.Capture, logger),
		detectorFactory(logger),
		logger,
	)
	if err != nil {
		return fmt.Errorf("creating listener: %w", err)
	}

	// Capture outlives the signal context so shutdown goes through Close.
	captureCtx := cmd.Context()
	sup := newSupervisor(logger, backoff,
		func() error { return listener.Start(captureCtx).Err() },
		func() { listener.Stop() },
		listener.Close,
	)

	out := cmd.OutOrStdout()
	listener.Subscribe(func(ev domain.Event) {
		switch e := ev.(type) {
		case domain.HotwordEvent:
			fmt.Fprintf(out, "%s\t%d\t%s\n", time.Now().Format(time.RFC3339), e.Index, e.Hotword)
			if cooldown > 0 {
				listener.Pause()
				time.AfterFunc(cooldown, func() { listener.Resume() })
			}
		case domain.ErrorEvent:
			if e.Message == domain.EngineFaultMessage {
				sup.fault()
			}
		}
	})

	logger.Info("starting hotword listener",
		"capture", cfg.Capture.Program,
		"engine", cfg.Detector.Engine,
	)

	return sup.run(ctx)
}
