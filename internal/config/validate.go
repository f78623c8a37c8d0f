package config

import (
	"fmt"

	"github.com/leonardotrapani/whspr/internal/language"
	"github.com/leonardotrapani/whspr/internal/logging"
	"github.com/leonardotrapani/whspr/internal/models/whisper"
)

func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid audio.sample_rate: %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("invalid audio.channels: %d", c.Audio.Channels)
	}
	if c.Audio.BufferSize <= 0 {
		return fmt.Errorf("invalid audio.buffer_size: %d", c.Audio.BufferSize)
	}
	if c.Audio.Format != "s16" {
		return fmt.Errorf("invalid audio.format: %q (only s16 is supported)", c.Audio.Format)
	}
	if c.Audio.MaxDuration < 0 {
		return fmt.Errorf("invalid audio.max_duration: %v", c.Audio.MaxDuration)
	}
	if c.Audio.StopTimeout <= 0 {
		return fmt.Errorf("invalid audio.stop_timeout: %v", c.Audio.StopTimeout)
	}
	if c.Audio.StartTimeout <= 0 {
		return fmt.Errorf("invalid audio.start_timeout: %v", c.Audio.StartTimeout)
	}

	if !language.IsValidCode(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string or \"auto\" for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", c.Transcription.Language)
	}
	if c.Transcription.Threads < 0 {
		return fmt.Errorf("invalid transcription.threads: %d", c.Transcription.Threads)
	}

	switch c.Transcription.Provider {
	case "whisper-cpp":
		// whisper-cpp is local, no API key required
		if c.Transcription.ModelPath == "" && whisper.GetModel(c.Transcription.Model) == nil {
			return fmt.Errorf("invalid model for whisper-cpp: %q (run `whspr model list`, or set transcription.model_path)", c.Transcription.Model)
		}

	case "openai":
		if c.APIKey() == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (transcription.api_key) or environment variable (OPENAI_API_KEY, %s_TRANSCRIPTION_API_KEY)", EnvPrefix)
		}

	case "":
		return fmt.Errorf("invalid transcription.provider: empty")

	default:
		return fmt.Errorf("unsupported transcription.provider: %s (must be whisper-cpp or openai)", c.Transcription.Provider)
	}

	if len(c.Injection.Backends) == 0 {
		return fmt.Errorf("invalid injection.backends: empty (must have at least one backend)")
	}
	validBackends := map[string]bool{"ydotool": true, "wtype": true, "clipboard": true, "paste": true}
	for _, backend := range c.Injection.Backends {
		if !validBackends[backend] {
			return fmt.Errorf("invalid injection.backends: unknown backend %q (must be ydotool, wtype, clipboard, or paste)", backend)
		}
	}
	if c.Injection.YdotoolTimeout <= 0 {
		return fmt.Errorf("invalid injection.ydotool_timeout: %v", c.Injection.YdotoolTimeout)
	}
	if c.Injection.WtypeTimeout <= 0 {
		return fmt.Errorf("invalid injection.wtype_timeout: %v", c.Injection.WtypeTimeout)
	}
	if c.Injection.ClipboardTimeout <= 0 {
		return fmt.Errorf("invalid injection.clipboard_timeout: %v", c.Injection.ClipboardTimeout)
	}
	if c.Injection.PasteDelay < 0 {
		return fmt.Errorf("invalid injection.paste_delay: %v", c.Injection.PasteDelay)
	}

	if c.Feedback.Timeout <= 0 {
		return fmt.Errorf("invalid feedback.timeout: %v", c.Feedback.Timeout)
	}
	if c.Overlay.StopTimeout <= 0 {
		return fmt.Errorf("invalid overlay.stop_timeout: %v", c.Overlay.StopTimeout)
	}

	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("invalid log.level: %s (must be trace, debug, info, warn, error, or disabled)", c.Log.Level)
	}

	if c.Metrics.Enabled && c.Metrics.Textfile == "" {
		return fmt.Errorf("metrics.textfile required when metrics.enabled = true")
	}

	return nil
}
