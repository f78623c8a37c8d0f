package transcriber

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = "whisper-1"

// OpenAILoader builds a client for the OpenAI transcription API or any
// compatible server (BaseURL).
type OpenAILoader struct {
	config Config
}

func NewOpenAILoader(config Config) *OpenAILoader {
	if config.Model == "" {
		config.Model = DefaultOpenAIModel
	}
	return &OpenAILoader{config: config}
}

func (l *OpenAILoader) Load(ctx context.Context) (Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := openai.DefaultConfig(l.config.APIKey)
	if l.config.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(l.config.BaseURL, "/")
	}
	return &OpenAIEngine{
		client:   openai.NewClientWithConfig(cfg),
		model:    l.config.Model,
		language: l.config.Language,
	}, nil
}

// OpenAIEngine uploads the capture as a WAV file.
type OpenAIEngine struct {
	client   *openai.Client
	model    string
	language string
}

// Model is the API model name sent with each request.
func (e *OpenAIEngine) Model() string { return e.model }

func (e *OpenAIEngine) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	tmpFile, err := writeTempWAV(samples, sampleRate)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpFile)

	req := openai.AudioRequest{
		Model:    e.model,
		FilePath: tmpFile,
		Language: e.language,
	}

	start := time.Now()
	resp, err := e.client.CreateTranscription(ctx, req)
	duration := time.Since(start)

	logger := log.With().Str("component", "transcriber").Logger()
	if err != nil {
		logger.Error().Err(err).Dur("elapsed", duration).Msg("openai transcription failed")
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	logger.Debug().Int("samples", len(samples)).Dur("elapsed", duration).Str("text", text).Msg("transcribed")
	return text, nil
}
