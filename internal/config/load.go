package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "WHSPR"

// GetConfigDir returns $XDG_CONFIG_HOME/whspr (or the platform equivalent).
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "whspr"), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file at path (the default location when empty),
// then applies the env file next to it and WHSPR_* variables. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	config, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	envFile := filepath.Join(filepath.Dir(path), "env")
	if err := godotenv.Load(envFile); err == nil {
		log.Debug().Str("component", "config").Str("path", envFile).Msg("loaded env file")
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	config.applyThreadsDefault()
	return config, nil
}

// LoadFile merges the TOML file over the defaults without any environment
// overlay, so saving it back never persists secrets from the environment.
func LoadFile(path string) (*Config, error) {
	config := DefaultConfig()
	logger := log.With().Str("component", "config").Str("path", path).Logger()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Debug().Msg("no config file, using defaults")
		return config, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	for _, key := range meta.Undecoded() {
		logger.Warn().Str("key", key.String()).Msg("unknown config key ignored")
	}

	logger.Debug().Msg("configuration loaded")
	return config, nil
}

// applyThreadsDefault sets default threads for local transcription if not explicitly set
func (c *Config) applyThreadsDefault() {
	if c.Transcription.Threads == 0 {
		threads := runtime.NumCPU() - 1
		if threads < 1 {
			threads = 1
		}
		c.Transcription.Threads = threads
	}
}

// Save writes the config as TOML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# whspr configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// WriteDefault writes the default config unless a file already exists.
// It reports whether a file was written.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	return true, DefaultConfig().Save(path)
}

// SetModel stores transcription.model in the file at path, keeping the
// rest of its settings.
func SetModel(path, model string) error {
	config, err := LoadFile(path)
	if err != nil {
		return err
	}
	config.Transcription.Model = model
	config.Transcription.ModelPath = ""
	return config.Save(path)
}
