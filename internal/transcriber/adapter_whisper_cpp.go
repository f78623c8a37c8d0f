package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// markers whisper.cpp prints instead of text for silent input
var nonSpeechMarkers = []string{"[BLANK_AUDIO]", "[ Silence ]", "[silence]", "(silence)"}

// WhisperCppLoader validates a local whisper.cpp setup and warms the model.
type WhisperCppLoader struct {
	binary    string
	modelPath string
	language  string
	threads   int
	noGPU     bool
	flashAttn bool
}

// NewWhisperCppLoader creates a loader for local whisper-cpp transcription
// binary: whisper-cli unless set
// modelPath: full path to the model file (e.g., ~/.local/share/whspr/models/ggml-base.en.bin)
// lang: whisper-cpp language code, empty for auto
// threads: number of CPU threads (0 for auto)
func NewWhisperCppLoader(binary, modelPath, lang string, threads int) *WhisperCppLoader {
	if binary == "" {
		binary = "whisper-cli"
	}
	return &WhisperCppLoader{
		binary:    binary,
		modelPath: modelPath,
		language:  lang,
		threads:   threads,
	}
}

// WithAcceleration sets whisper-cli's GPU offload and flash attention.
// The GPU is used unless disabled here.
func (l *WhisperCppLoader) WithAcceleration(useGPU, flashAttn bool) *WhisperCppLoader {
	l.noGPU = !useGPU
	l.flashAttn = flashAttn
	return l
}

func (l *WhisperCppLoader) Load(ctx context.Context) (Engine, error) {
	start := time.Now()

	whisperPath, err := exec.LookPath(l.binary)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", ErrBinaryNotFound, l.binary)
	}

	info, err := os.Stat(l.modelPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, l.modelPath)
		}
		return nil, fmt.Errorf("stat model: %w", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty or not a file", ErrModelNotFound, l.modelPath)
	}

	// read the model once so whisper-cli's mmap hits the page cache
	if err := warm(ctx, l.modelPath); err != nil {
		return nil, err
	}

	log.Debug().
		Str("component", "transcriber").
		Str("model", l.modelPath).
		Int64("bytes", info.Size()).
		Dur("elapsed", time.Since(start)).
		Msg("whisper model ready")

	return &WhisperCppEngine{
		binary:    whisperPath,
		modelPath: l.modelPath,
		language:  l.language,
		threads:   l.threads,
		noGPU:     l.noGPU,
		flashAttn: l.flashAttn,
	}, nil
}

func warm(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(io.Discard, &ctxReader{ctx: ctx, r: f}); err != nil {
		return fmt.Errorf("read model: %w", err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// WhisperCppEngine runs whisper-cli on a temp WAV file per call.
type WhisperCppEngine struct {
	binary    string
	modelPath string
	language  string
	threads   int
	noGPU     bool
	flashAttn bool
}

func (e *WhisperCppEngine) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	samples = Resample(samples, sampleRate, TargetRate)
	tmpFile, err := writeTempWAV(samples, TargetRate)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpFile)

	// use whisper-cpp auto if unspecified
	lang := e.language
	if lang == "" {
		lang = "auto"
	}

	args := []string{
		"-m", e.modelPath,
		"-l", lang,
		"-nt", // no timestamps
		"-np", // no progress
		"-f", tmpFile,
	}
	if e.threads > 0 {
		args = append(args, "-t", strconv.Itoa(e.threads))
	}
	if e.noGPU {
		args = append(args, "-ng")
	}
	if e.flashAttn {
		args = append(args, "-fa")
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	logger := log.With().Str("component", "transcriber").Logger()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Error().Err(err).Dur("elapsed", duration).Str("stderr", strings.TrimSpace(stderr.String())).Msg("whisper-cli failed")
		return "", fmt.Errorf("whisper-cli failed: %w", err)
	}

	text := cleanOutput(stdout.String())
	logger.Debug().Int("samples", len(samples)).Dur("elapsed", duration).Str("text", text).Msg("transcribed")
	return text, nil
}

// cleanOutput joins whisper-cli's segment lines and drops silence markers.
func cleanOutput(out string) string {
	for _, m := range nonSpeechMarkers {
		out = strings.ReplaceAll(out, m, "")
	}
	return strings.Join(strings.Fields(out), " ")
}
