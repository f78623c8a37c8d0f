package session

import (
	"github.com/rs/zerolog"

	"github.com/leonardotrapani/whspr/internal/bus"
	"github.com/leonardotrapani/whspr/internal/config"
	"github.com/leonardotrapani/whspr/internal/feedback"
	"github.com/leonardotrapani/whspr/internal/injection"
	"github.com/leonardotrapani/whspr/internal/overlay"
	"github.com/leonardotrapani/whspr/internal/pipeline"
	"github.com/leonardotrapani/whspr/internal/recording"
	"github.com/leonardotrapani/whspr/internal/transcriber"
)

// FromConfig wires the real lock, signals and collaborators.
func FromConfig(cfg *config.Config) *Session {
	opts := Options{
		Lock:     bus.NewLock(bus.LockPath()),
		Build:    BuildPipeline(cfg),
		Notifier: cfg.NewNotifier(),
	}
	if cfg.Metrics.Enabled {
		opts.MetricsFile = cfg.Metrics.Textfile
	}
	return New(opts)
}

// WithoutConfig is used when the config cannot be loaded. It still toggles
// a running session; starting a new one fails with cfgErr.
func WithoutConfig(cfgErr error) *Session {
	return New(Options{
		Lock: bus.NewLock(bus.LockPath()),
		Build: func(pipeline.Observer, zerolog.Logger) (Runner, error) {
			return nil, cfgErr
		},
	})
}

// BuildPipeline returns a BuildFunc backed by pw-record, the configured
// transcription provider and the injection chain.
func BuildPipeline(cfg *config.Config) BuildFunc {
	return func(obs pipeline.Observer, logger zerolog.Logger) (Runner, error) {
		loader, err := transcriber.NewLoader(cfg.ToTranscriberConfig())
		if err != nil {
			return nil, err
		}
		injector, err := injection.NewInjector(cfg.ToInjectionConfig())
		if err != nil {
			return nil, err
		}

		deps := pipeline.Deps{
			Capture:   recording.NewRecorder(cfg.ToRecordingConfig()),
			Loader:    loader,
			Deliverer: injector,
			Cues:      feedback.NewPlayer(cfg.ToFeedbackConfig()),
			Overlay:   overlay.NewLauncher(cfg.ToOverlayConfig()),
			Observer:  obs,
		}
		p := pipeline.New(pipeline.Config{MaxDuration: cfg.Audio.MaxDuration}, deps)
		return p.WithLogger(logger), nil
	}
}
