package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/leonardotrapani/whspr/internal/transcriber"
)

func transcribeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe an audio file",
		Long: `Transcribe an audio file with the configured engine. WAV is read
directly; mp3, flac, ogg, m4a and other formats are converted with ffmpeg.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := log.With().Str("component", "cli").Str("file", args[0]).Logger()

			ctx, cancel := interruptible(cmd.Context())
			defer cancel()

			samples, err := transcriber.NewConverter("").Load(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to read audio: %w", err)
			}

			loader, err := transcriber.NewLoader(cfg.ToTranscriberConfig())
			if err != nil {
				return err
			}
			engine, err := loader.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load model: %w", err)
			}

			start := time.Now()
			text, err := engine.Transcribe(ctx, samples, transcriber.TargetRate)
			if err != nil {
				return fmt.Errorf("transcription failed: %w", err)
			}
			text = strings.TrimSpace(text)
			logger.Info().
				Dur("audio", time.Duration(len(samples))*time.Second/transcriber.TargetRate).
				Dur("elapsed", time.Since(start)).
				Msg("transcribed")

			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			if err := os.WriteFile(output, []byte(text+"\n"), 0o644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			logger.Info().Str("output", output).Msg("transcript written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the transcript to a file instead of stdout")
	return cmd
}
