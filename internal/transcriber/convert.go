package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"
)

// commandRunner runs one external program and returns its stderr.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return strings.TrimSpace(stderr.String()), err
}

// Converter decodes audio files for transcription. WAV is read directly;
// anything else (mp3, flac, ogg, m4a, video containers) goes through ffmpeg.
type Converter struct {
	ffmpeg string
	runner commandRunner
}

func NewConverter(ffmpeg string) *Converter {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Converter{ffmpeg: ffmpeg, runner: execRunner{}}
}

// Load returns the file as 16 kHz mono samples.
func (c *Converter) Load(ctx context.Context, path string) ([]float32, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if isWAV(path) {
		return LoadAudioFile(path)
	}

	dir, err := os.MkdirTemp("", "whspr-convert-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "audio.wav")
	if err := c.toWAV(ctx, path, out); err != nil {
		return nil, err
	}
	return LoadAudioFile(out)
}

func (c *Converter) toWAV(ctx context.Context, in, out string) error {
	if _, err := exec.LookPath(c.ffmpeg); err != nil {
		return fmt.Errorf("%s is not a WAV file and %s is not installed: %w", filepath.Base(in), c.ffmpeg, err)
	}

	log.Debug().Str("component", "transcriber").Str("input", in).Msg("converting with ffmpeg")
	stderr, err := c.runner.Run(ctx, c.ffmpeg, buildFFmpegArgs(in, out)...)
	if err != nil {
		if stderr != "" {
			return fmt.Errorf("ffmpeg conversion failed: %w: %s", err, lastLine(stderr))
		}
		return fmt.Errorf("ffmpeg conversion failed: %w", err)
	}
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("ffmpeg completed but output is missing: %w", err)
	}
	return nil
}

// buildFFmpegArgs converts any input to 16-bit mono WAV at TargetRate.
func buildFFmpegArgs(in, out string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprint(TargetRate),
		"-c:a", "pcm_s16le",
		out,
	}
}

func isWAV(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	return wav.NewDecoder(f).IsValidFile()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
