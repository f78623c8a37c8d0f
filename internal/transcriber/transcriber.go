package transcriber

import (
	"context"
	"fmt"
	"os"

	"github.com/leonardotrapani/whspr/internal/models/whisper"
)

const (
	ProviderWhisperCpp = "whisper-cpp"
	ProviderOpenAI     = "openai"
)

// Engine turns mono float samples into text. An empty string means no
// speech was recognized.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error)
}

// Loader prepares an Engine. Load may be slow (model warm-up) and is run
// concurrently with recording.
type Loader interface {
	Load(ctx context.Context) (Engine, error)
}

// Configuration for the transcriber
type Config struct {
	Provider string
	// Model is a whisper catalog ID for whisper-cpp or an API model name for openai.
	Model string
	// ModelPath overrides the catalog location of the whisper-cpp model.
	ModelPath string
	Language  string
	Threads   int
	APIKey    string
	BaseURL   string
	// Binary is the whisper.cpp CLI, whisper-cli unless set.
	Binary string
	// UseGPU and FlashAttn tune whisper-cpp inference.
	UseGPU    bool
	FlashAttn bool
}

func DefaultConfig() Config {
	return Config{
		Provider: ProviderWhisperCpp,
		Model:    whisper.DefaultModel,
		Binary:   "whisper-cli",
		UseGPU:   true,
	}
}

// NewLoader returns the loader for the configured provider.
func NewLoader(config Config) (Loader, error) {
	switch config.Provider {
	case ProviderWhisperCpp, "":
		modelPath := config.ModelPath
		if modelPath == "" {
			modelPath = whisper.GetModelPath(config.Model)
			if modelPath == "" {
				return nil, fmt.Errorf("unknown whisper model: %q", config.Model)
			}
		}
		loader := NewWhisperCppLoader(config.Binary, modelPath, config.Language, config.Threads)
		return loader.WithAcceleration(config.UseGPU, config.FlashAttn), nil

	case ProviderOpenAI:
		if config.APIKey == "" {
			config.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAILoader(config), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", config.Provider)
	}
}
