package injection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Backend delivers text to the focused window.
type Backend interface {
	Name() string
	Available() error
	Inject(ctx context.Context, text string, timeout time.Duration) error
}

// Config for text injection
type Config struct {
	Backends         []string      // tried in order until one succeeds
	YdotoolTimeout   time.Duration // Timeout for ydotool commands
	WtypeTimeout     time.Duration // Timeout for wtype commands
	ClipboardTimeout time.Duration // Timeout for clipboard operations
	PasteDelay       time.Duration // wait between clipboard write and paste keystroke
}

// DefaultConfig returns sensible defaults for injection
func DefaultConfig() Config {
	return Config{
		Backends:         []string{"ydotool", "wtype", "clipboard"},
		YdotoolTimeout:   5 * time.Second,
		WtypeTimeout:     5 * time.Second,
		ClipboardTimeout: 3 * time.Second,
		PasteDelay:       180 * time.Millisecond,
	}
}

// Injector tries each configured backend in order.
type Injector struct {
	config   Config
	backends []Backend
	log      zerolog.Logger
}

// NewInjector builds the backend chain named in config.
func NewInjector(config Config) (*Injector, error) {
	if len(config.Backends) == 0 {
		return nil, fmt.Errorf("no injection backends configured")
	}
	backends := make([]Backend, 0, len(config.Backends))
	for _, name := range config.Backends {
		b, err := newBackend(name, config)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return NewInjectorWithBackends(config, backends...), nil
}

// NewInjectorWithBackends uses the given backends as-is.
func NewInjectorWithBackends(config Config, backends ...Backend) *Injector {
	return &Injector{
		config:   config,
		backends: backends,
		log:      log.With().Str("component", "injection").Logger(),
	}
}

func newBackend(name string, config Config) (Backend, error) {
	switch name {
	case "ydotool":
		return NewYdotoolBackend(), nil
	case "wtype":
		return NewWtypeBackend(), nil
	case "clipboard":
		return NewClipboardBackend(), nil
	case "paste":
		return NewPasteBackend(config.PasteDelay), nil
	default:
		return nil, fmt.Errorf("unknown injection backend %q (must be ydotool, wtype, clipboard, or paste)", name)
	}
}

// Backends returns the configured chain.
func (i *Injector) Backends() []Backend {
	return i.backends
}

// Inject delivers text with the first backend that succeeds.
func (i *Injector) Inject(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("cannot inject empty text")
	}

	var errs []error
	for _, b := range i.backends {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.Available(); err != nil {
			i.log.Debug().Str("backend", b.Name()).Err(err).Msg("backend unavailable")
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}

		start := time.Now()
		if err := b.Inject(ctx, text, i.timeoutFor(b.Name())); err != nil {
			i.log.Warn().Str("backend", b.Name()).Err(err).Msg("injection failed, trying next backend")
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}

		i.log.Info().Str("backend", b.Name()).Int("chars", len(text)).Dur("took", time.Since(start)).Msg("text injected")
		return nil
	}

	return fmt.Errorf("all injection backends failed: %w", errors.Join(errs...))
}

func (i *Injector) timeoutFor(name string) time.Duration {
	var d time.Duration
	switch name {
	case "ydotool":
		d = i.config.YdotoolTimeout
	case "wtype":
		d = i.config.WtypeTimeout
	default:
		d = i.config.ClipboardTimeout
	}
	if d <= 0 {
		d = 5 * time.Second
	}
	return d
}
