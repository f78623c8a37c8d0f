package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/whspr/internal/config"
	"github.com/leonardotrapani/whspr/internal/models/whisper"
	"github.com/leonardotrapani/whspr/internal/tui"
)

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage whisper models",
	}

	cmd.AddCommand(modelListCmd())
	cmd.AddCommand(modelDownloadCmd())
	cmd.AddCommand(modelRemoveCmd())
	cmd.AddCommand(modelSelectCmd())

	return cmd
}

func modelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available models and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolvedConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderModels(whisper.ListModels(), whisper.IsInstalled, cfg.Transcription.Model))
			return nil
		},
	}
}

func modelDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model-name>",
		Short: "Download a whisper model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			info := whisper.GetModel(name)
			if info == nil {
				return fmt.Errorf("unknown model: %s", name)
			}
			if whisper.IsInstalled(name) {
				fmt.Fprintf(cmd.OutOrStdout(), "model '%s' is already installed at %s\n", name, whisper.GetModelPath(name))
				return nil
			}

			ctx, cancel := interruptible(cmd.Context())
			defer cancel()

			fmt.Fprintf(cmd.ErrOrStderr(), "downloading %s (%s)...\n", name, info.Size)
			path, err := whisper.Download(ctx, name, tui.Progress(cmd.ErrOrStderr(), name))
			if err != nil {
				return fmt.Errorf("download failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "download complete: %s\n", path)
			return nil
		},
	}
}

func modelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model-name>",
		Short: "Remove a downloaded model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := whisper.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "model '%s' removed\n", args[0])
			return nil
		},
	}
}

func modelSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <model-name>",
		Short: "Use a downloaded model for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if whisper.GetModel(name) == nil {
				return fmt.Errorf("unknown model: %s", name)
			}
			if !whisper.IsInstalled(name) {
				return fmt.Errorf("model '%s' is not downloaded yet, run: whspr model download %s", name, name)
			}

			path, err := resolvedConfigPath()
			if err != nil {
				return err
			}
			if err := config.SetModel(path, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "selected model '%s'\nconfig updated: %s\n", name, path)
			return nil
		},
	}
}
