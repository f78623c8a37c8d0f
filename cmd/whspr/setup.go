package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/whspr/internal/config"
	"github.com/leonardotrapani/whspr/internal/models/whisper"
	"github.com/leonardotrapani/whspr/internal/tui"
)

func setupCmd() *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-time setup",
		Long: `Pick a whisper model and a language, download the model if needed
and write the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolvedConfigPath()
			if err != nil {
				return err
			}
			if defaults {
				written, err := config.WriteDefault(path)
				if err != nil {
					return err
				}
				if !written {
					fmt.Fprintf(cmd.OutOrStdout(), "%s already exists, left unchanged\n", path)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Default config written to %s\n", path)
				return nil
			}

			cfg, err := config.LoadFile(path)
			if err != nil {
				return err
			}

			result, err := tui.RunSetup(cfg)
			if err != nil {
				return fmt.Errorf("setup wizard error: %w", err)
			}
			if result.Cancelled {
				fmt.Fprintln(cmd.OutOrStdout(), "Setup cancelled.")
				return nil
			}
			for _, w := range result.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), tui.StyleWarning.Render(w))
			}

			model := result.Config.Transcription.Model
			if result.Download {
				ctx, cancel := interruptible(cmd.Context())
				defer cancel()
				if _, err := whisper.Download(ctx, model, tui.Progress(cmd.ErrOrStderr(), model)); err != nil {
					return fmt.Errorf("download failed: %w", err)
				}
			}

			if err := result.Config.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			if err := result.Config.Save(path); err != nil {
				return err
			}

			showNextSteps(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "write the default config without prompting")
	return cmd
}

func showNextSteps(w io.Writer, path string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.StyleSuccess.Render("Setup complete!"))
	fmt.Fprintf(w, "Config written to %s\n\n", path)
	fmt.Fprintln(w, "Bind whspr to a key in your compositor, e.g. for Hyprland:")
	fmt.Fprintln(w, tui.StyleHighlight.Render("  bind = SUPER ALT, D, exec, whspr"))
	fmt.Fprintln(w, tui.StyleSubtle.Render("Press once to start recording, again to transcribe and type."))
}
