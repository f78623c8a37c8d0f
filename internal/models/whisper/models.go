package whisper

import (
	"os"
	"path/filepath"
)

// ModelInfo holds metadata for a whisper model
type ModelInfo struct {
	ID           string // model identifier (e.g., "base.en")
	Description  string // one-line summary shown in listings
	Filename     string // file name (e.g., "ggml-base.en.bin")
	Size         string // human readable size
	SizeBytes    int64  // size in bytes for progress tracking
	Multilingual bool   // true if supports multiple languages
}

// DefaultModel is suggested by setup and used when no model is configured.
const DefaultModel = "large-v3-turbo"

// available whisper models from huggingface.co/ggerganov/whisper.cpp
var models = []ModelInfo{
	{ID: "large-v3-turbo", Description: "Best balance of speed and accuracy (recommended)", Filename: "ggml-large-v3-turbo.bin", Size: "1.6GB", SizeBytes: 1_620_000_000, Multilingual: true},
	{ID: "large-v3-turbo-q5_0", Description: "Quantized turbo, smaller and slightly less accurate", Filename: "ggml-large-v3-turbo-q5_0.bin", Size: "574MB", SizeBytes: 574_000_000, Multilingual: true},
	{ID: "large-v3", Description: "Most accurate, significantly slower", Filename: "ggml-large-v3.bin", Size: "3.1GB", SizeBytes: 3_100_000_000, Multilingual: true},
	{ID: "large-v3-q5_0", Description: "Quantized large, good accuracy/size tradeoff", Filename: "ggml-large-v3-q5_0.bin", Size: "1.1GB", SizeBytes: 1_080_000_000, Multilingual: true},
	{ID: "medium", Description: "Medium model", Filename: "ggml-medium.bin", Size: "1.5GB", SizeBytes: 1_530_000_000, Multilingual: true},
	{ID: "medium.en", Description: "Medium model, English only", Filename: "ggml-medium.en.bin", Size: "1.5GB", SizeBytes: 1_530_000_000, Multilingual: false},
	{ID: "small", Description: "Small model, fast", Filename: "ggml-small.bin", Size: "488MB", SizeBytes: 488_000_000, Multilingual: true},
	{ID: "small.en", Description: "Small model, English only", Filename: "ggml-small.en.bin", Size: "488MB", SizeBytes: 488_000_000, Multilingual: false},
	{ID: "base", Description: "Base model, very fast", Filename: "ggml-base.bin", Size: "148MB", SizeBytes: 148_000_000, Multilingual: true},
	{ID: "base.en", Description: "Base model, English only", Filename: "ggml-base.en.bin", Size: "148MB", SizeBytes: 148_000_000, Multilingual: false},
	{ID: "tiny", Description: "Tiny model, fastest, least accurate", Filename: "ggml-tiny.bin", Size: "78MB", SizeBytes: 78_000_000, Multilingual: true},
	{ID: "tiny.en", Description: "Tiny model, English only", Filename: "ggml-tiny.en.bin", Size: "78MB", SizeBytes: 78_000_000, Multilingual: false},
}

// modelByID maps model ID to ModelInfo for quick lookup
var modelByID = func() map[string]ModelInfo {
	m := make(map[string]ModelInfo, len(models))
	for _, model := range models {
		m[model.ID] = model
	}
	return m
}()

// base URL for downloading models from huggingface; replaced in tests
var baseDownloadURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// GetModelsDir returns the directory where whisper models are stored,
// $XDG_DATA_HOME/whspr/models or ~/.local/share/whspr/models.
func GetModelsDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "whspr", "models"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "whspr", "models"), nil
}

// GetModelPath returns the full path to a model file.
// Returns empty string if model ID is unknown.
func GetModelPath(modelID string) string {
	info, ok := modelByID[modelID]
	if !ok {
		return ""
	}
	dir, err := GetModelsDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, info.Filename)
}

// GetDownloadURL returns the full download URL for a model.
// Returns empty string if model ID is unknown.
func GetDownloadURL(modelID string) string {
	info, ok := modelByID[modelID]
	if !ok {
		return ""
	}
	return baseDownloadURL + "/" + info.Filename
}

// GetModel returns info for a model by ID.
// Returns nil if model ID is unknown.
func GetModel(modelID string) *ModelInfo {
	info, ok := modelByID[modelID]
	if !ok {
		return nil
	}
	return &info
}

// IDs returns every known model ID in catalog order.
func IDs() []string {
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids
}

// ListModels returns all available whisper models
func ListModels() []ModelInfo {
	result := make([]ModelInfo, len(models))
	copy(result, models)
	return result
}
