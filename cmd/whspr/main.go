package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/leonardotrapani/whspr/internal/config"
	"github.com/leonardotrapani/whspr/internal/logging"
	"github.com/leonardotrapani/whspr/internal/session"
	"github.com/leonardotrapani/whspr/internal/tui"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	verbosity  int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, tui.StyleError.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "whspr",
		Short: "Push-button dictation for Wayland",
		Long: `Run whspr from a compositor keybinding. The first press starts recording,
the second press stops it, transcribes the audio and types the text into the
focused window.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToggle(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/whspr/config.toml)")
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v, -vv)")

	root.AddCommand(
		setupCmd(),
		transcribeCmd(),
		modelCmd(),
		doctorCmd(),
		statusCmd(),
		waitCmd(),
		versionCmd(),
	)
	return root
}

// loadConfig reads and validates the config, then configures logging from it.
func loadConfig() (*config.Config, error) {
	logging.Configure(os.Stderr, logLevel("info"), true)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Configure(os.Stderr, logLevel(cfg.Log.Level), cfg.Log.Pretty)
	return cfg, nil
}

func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// logLevel lets -v and -vv override the configured level.
func logLevel(configured string) string {
	switch {
	case verbosity >= 2:
		return "trace"
	case verbosity == 1:
		return "debug"
	default:
		return configured
	}
}

// interruptible cancels on Ctrl-C. The session itself handles signals
// through its own listener and must not use this.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func runToggle(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var s *session.Session
	cfg, err := loadConfig()
	if err != nil {
		log.Warn().Err(err).Str("component", "cli").Msg("config unusable, only toggling a running session")
		s = session.WithoutConfig(err)
	} else {
		s = session.FromConfig(cfg)
	}

	report, err := s.Run(ctx)
	if err != nil {
		return err
	}
	log.Debug().
		Str("component", "cli").
		Stringer("lock", report.Lock).
		Str("outcome", string(report.Result.Outcome)).
		Msg("invocation done")
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the whspr version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "whspr %s\n", version)
		},
	}
}
