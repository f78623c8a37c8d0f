package config

import (
	"os"

	"github.com/leonardotrapani/whspr/internal/feedback"
	"github.com/leonardotrapani/whspr/internal/injection"
	"github.com/leonardotrapani/whspr/internal/language"
	"github.com/leonardotrapani/whspr/internal/models/whisper"
	"github.com/leonardotrapani/whspr/internal/notify"
	"github.com/leonardotrapani/whspr/internal/overlay"
	"github.com/leonardotrapani/whspr/internal/recording"
	"github.com/leonardotrapani/whspr/internal/transcriber"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:   c.Audio.SampleRate,
		Channels:     c.Audio.Channels,
		Format:       c.Audio.Format,
		BufferSize:   c.Audio.BufferSize,
		Device:       c.Audio.Device,
		StopTimeout:  c.Audio.StopTimeout,
		StartTimeout: c.Audio.StartTimeout,
	}
}

func (c *Config) ToTranscriberConfig() transcriber.Config {
	return transcriber.Config{
		Provider:  c.Transcription.Provider,
		Model:     c.providerModel(),
		ModelPath: c.Transcription.ModelPath,
		Language:  language.Normalize(c.Transcription.Language),
		Threads:   c.Transcription.Threads,
		APIKey:    c.APIKey(),
		BaseURL:   c.Transcription.BaseURL,
		Binary:    c.Transcription.Binary,
		UseGPU:    c.Transcription.UseGPU,
		FlashAttn: c.Transcription.FlashAttn,
	}
}

// providerModel drops a whisper.cpp catalog name when the provider is an
// API, so the engine falls back to its own default model.
func (c *Config) providerModel() string {
	model := c.Transcription.Model
	if c.Transcription.Provider == transcriber.ProviderOpenAI && whisper.GetModel(model) != nil {
		return ""
	}
	return model
}

// APIKey returns the transcription API key from the config, falling back
// to OPENAI_API_KEY.
func (c *Config) APIKey() string {
	if c.Transcription.APIKey != "" {
		return c.Transcription.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

func (c *Config) ToInjectionConfig() injection.Config {
	return injection.Config{
		Backends:         c.Injection.Backends,
		YdotoolTimeout:   c.Injection.YdotoolTimeout,
		WtypeTimeout:     c.Injection.WtypeTimeout,
		ClipboardTimeout: c.Injection.ClipboardTimeout,
		PasteDelay:       c.Injection.PasteDelay,
	}
}

func (c *Config) ToFeedbackConfig() feedback.Config {
	return feedback.Config{
		Enabled:    c.Feedback.Enabled,
		StartSound: c.Feedback.StartSound,
		StopSound:  c.Feedback.StopSound,
		Player:     c.Feedback.Player,
		Timeout:    c.Feedback.Timeout,
	}
}

func (c *Config) ToOverlayConfig() overlay.Config {
	return overlay.Config{
		Enabled:     c.Overlay.Enabled,
		Binary:      c.Overlay.Binary,
		StopTimeout: c.Overlay.StopTimeout,
	}
}

func (c *Config) NewNotifier() notify.Notifier {
	return notify.New(c.Notifications.Type, c.Notifications.Enabled)
}
