package config

import "time"

// Config is the whole config.toml. Every field can also be set from the
// environment as WHSPR_<SECTION>_<FIELD>, e.g. WHSPR_TRANSCRIPTION_MODEL.
type Config struct {
	Audio         AudioConfig         `toml:"audio"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Injection     InjectionConfig     `toml:"injection"`
	Feedback      FeedbackConfig      `toml:"feedback"`
	Overlay       OverlayConfig       `toml:"overlay"`
	Notifications NotificationsConfig `toml:"notifications"`
	Log           LogConfig           `toml:"log"`
	Metrics       MetricsConfig       `toml:"metrics"`
}

type AudioConfig struct {
	SampleRate int    `toml:"sample_rate" split_words:"true"`
	Channels   int    `toml:"channels"`
	Format     string `toml:"format"`
	BufferSize int    `toml:"buffer_size" split_words:"true"`
	Device     string `toml:"device"`
	// MaxDuration stops recording as if toggled; 0 disables the limit.
	MaxDuration time.Duration `toml:"max_duration" split_words:"true"`
	StopTimeout time.Duration `toml:"stop_timeout" split_words:"true"`
	// StartTimeout is how long to wait for the first audio before the
	// capture counts as started.
	StartTimeout time.Duration `toml:"start_timeout" split_words:"true"`
}

type TranscriptionConfig struct {
	Provider  string `toml:"provider"` // "whisper-cpp", "openai"
	Model     string `toml:"model"`
	ModelPath string `toml:"model_path,omitempty" split_words:"true"`
	Language  string `toml:"language"`
	Threads   int    `toml:"threads"` // CPU threads for local transcription (0 = auto: NumCPU-1)
	APIKey    string `toml:"api_key,omitempty" split_words:"true"`
	BaseURL   string `toml:"base_url,omitempty" split_words:"true"`
	Binary    string `toml:"binary"`
	// whisper-cpp only
	UseGPU    bool `toml:"use_gpu" envconfig:"USE_GPU"`
	FlashAttn bool `toml:"flash_attn" split_words:"true"`
}

type InjectionConfig struct {
	Backends         []string      `toml:"backends"`
	YdotoolTimeout   time.Duration `toml:"ydotool_timeout" split_words:"true"`
	WtypeTimeout     time.Duration `toml:"wtype_timeout" split_words:"true"`
	ClipboardTimeout time.Duration `toml:"clipboard_timeout" split_words:"true"`
	PasteDelay       time.Duration `toml:"paste_delay" split_words:"true"`
}

type FeedbackConfig struct {
	Enabled    bool          `toml:"enabled"`
	StartSound string        `toml:"start_sound,omitempty" split_words:"true"`
	StopSound  string        `toml:"stop_sound,omitempty" split_words:"true"`
	Player     string        `toml:"player,omitempty"`
	Timeout    time.Duration `toml:"timeout"`
}

type OverlayConfig struct {
	Enabled     bool          `toml:"enabled"`
	Binary      string        `toml:"binary"`
	StopTimeout time.Duration `toml:"stop_timeout" split_words:"true"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
	// Textfile is a node-exporter textfile collector path.
	Textfile string `toml:"textfile"`
}
