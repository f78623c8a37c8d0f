package config

import (
	"time"

	"github.com/leonardotrapani/whspr/internal/models/whisper"
	"github.com/leonardotrapani/whspr/internal/overlay"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:   16000,
			Channels:     1,
			Format:       "s16",
			BufferSize:   8192,
			Device:       "",
			MaxDuration:  5 * time.Minute,
			StopTimeout:  2 * time.Second,
			StartTimeout: 500 * time.Millisecond,
		},
		Transcription: TranscriptionConfig{
			Provider: "whisper-cpp",
			Model:    whisper.DefaultModel,
			Language: "",
			Threads:  0,
			Binary:   "whisper-cli",
			UseGPU:   true,
		},
		Injection: InjectionConfig{
			Backends:         []string{"ydotool", "wtype", "clipboard"},
			YdotoolTimeout:   5 * time.Second,
			WtypeTimeout:     5 * time.Second,
			ClipboardTimeout: 3 * time.Second,
			PasteDelay:       180 * time.Millisecond,
		},
		Feedback: FeedbackConfig{
			Enabled: true,
			Timeout: 2 * time.Second,
		},
		Overlay: OverlayConfig{
			Enabled:     true,
			Binary:      overlay.DefaultBinary,
			StopTimeout: 500 * time.Millisecond,
		},
		Notifications: NotificationsConfig{
			Enabled: false,
			Type:    "desktop",
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}
