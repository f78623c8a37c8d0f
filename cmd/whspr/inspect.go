package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/whspr/internal/bus"
	"github.com/leonardotrapani/whspr/internal/deps"
	"github.com/leonardotrapani/whspr/internal/models/whisper"
	"github.com/leonardotrapani/whspr/internal/recording"
	"github.com/leonardotrapani/whspr/internal/transcriber"
	"github.com/leonardotrapani/whspr/internal/tui"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external programs and the configured model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			results := deps.CheckAll(deps.Tools(cfg.Transcription.Provider, cfg.Injection.Backends))
			out, ok := tui.RenderDoctor(results)
			fmt.Fprint(cmd.OutOrStdout(), out)

			ctx, cancel := interruptible(cmd.Context())
			defer cancel()
			if err := recording.CheckPipeWireAvailable(ctx); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s %v\n", tui.StyleError.Render("miss"), err)
				ok = false
			}

			provider := cfg.Transcription.Provider
			if provider == "" || provider == transcriber.ProviderWhisperCpp {
				model := cfg.Transcription.Model
				path := cfg.Transcription.ModelPath
				if path == "" {
					path, err = whisper.GetInstalledPath(model)
				}
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s model %s not installed, run: whspr model download %s\n",
						tui.StyleError.Render("miss"), model, model)
					ok = false
					if installed := whisper.ListInstalled(); len(installed) > 0 {
						fmt.Fprintf(cmd.OutOrStdout(), "     installed: %s (whspr model select <name>)\n", strings.Join(installed, ", "))
					}
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s model %s\n", tui.StyleSuccess.Render("ok  "), path)
				}
			}

			if !ok {
				return errors.New("some required dependencies are missing")
			}
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a session is active",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			lock := bus.NewLock(bus.LockPath())
			if pid, ok := lock.Holder(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "session active (pid %d)\n", pid)
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), "idle")
		},
	}
}

func waitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wait",
		Short: "Block until the active session ends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()
			return bus.NewLock(bus.LockPath()).WaitReleased(ctx)
		},
	}
}
