package transcriber

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestNewLoader(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")

	tests := []struct {
		name     string
		config   Config
		wantErr  string
		wantPath string
	}{
		{
			name:     "whisper-cpp from catalog",
			config:   Config{Provider: ProviderWhisperCpp, Model: "base.en"},
			wantPath: "/data/whspr/models/ggml-base.en.bin",
		},
		{
			name:     "whisper-cpp explicit path",
			config:   Config{Provider: ProviderWhisperCpp, Model: "ignored", ModelPath: "/models/custom.bin"},
			wantPath: "/models/custom.bin",
		},
		{
			name:     "empty provider defaults to whisper-cpp",
			config:   Config{Model: "tiny"},
			wantPath: "/data/whspr/models/ggml-tiny.bin",
		},
		{
			name:    "unknown whisper model",
			config:  Config{Provider: ProviderWhisperCpp, Model: "huge"},
			wantErr: "unknown whisper model",
		},
		{
			name:   "openai",
			config: Config{Provider: ProviderOpenAI, APIKey: "sk-test"},
		},
		{
			name:    "unsupported provider",
			config:  Config{Provider: "deepgram"},
			wantErr: "unsupported provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, err := NewLoader(tt.config)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("NewLoader() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLoader() error = %v", err)
			}
			if tt.wantPath != "" {
				wl, ok := loader.(*WhisperCppLoader)
				if !ok {
					t.Fatalf("expected *WhisperCppLoader, got %T", loader)
				}
				if wl.modelPath != tt.wantPath {
					t.Errorf("modelPath = %s, want %s", wl.modelPath, tt.wantPath)
				}
				if wl.binary != "whisper-cli" {
					t.Errorf("binary = %s", wl.binary)
				}
			}
		})
	}
}

func TestNewLoaderOpenAIKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	loader, err := NewLoader(Config{Provider: ProviderOpenAI})
	if err != nil {
		t.Fatal(err)
	}
	ol := loader.(*OpenAILoader)
	if ol.config.APIKey != "sk-env" {
		t.Errorf("APIKey = %q", ol.config.APIKey)
	}
	if ol.config.Model != DefaultOpenAIModel {
		t.Errorf("Model = %q", ol.config.Model)
	}
}

func TestResample(t *testing.T) {
	t.Run("same rate is identity", func(t *testing.T) {
		in := []float32{0.1, 0.2}
		if out := Resample(in, 16000, 16000); &out[0] != &in[0] {
			t.Error("expected the input slice back")
		}
	})

	t.Run("downsample halves length", func(t *testing.T) {
		in := make([]float32, 3200)
		if out := Resample(in, 32000, 16000); len(out) != 1600 {
			t.Errorf("len = %d, want 1600", len(out))
		}
	})

	t.Run("upsample interpolates", func(t *testing.T) {
		out := Resample([]float32{0, 1}, 8000, 16000)
		want := []float32{0, 0.5, 1, 1}
		if len(out) != len(want) {
			t.Fatalf("len = %d, want %d", len(out), len(want))
		}
		for i := range want {
			if math.Abs(float64(out[i]-want[i])) > 1e-6 {
				t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		if out := Resample(nil, 48000, 16000); len(out) != 0 {
			t.Errorf("expected empty output, got %d", len(out))
		}
	})
}

func TestWriteTempWAVDecodes(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 2, -2}
	path, err := writeTempWAV(samples, 16000)
	if err != nil {
		t.Fatalf("writeTempWAV failed: %v", err)
	}
	defer os.Remove(path)

	got, rate, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if rate != 16000 {
		t.Errorf("rate = %d", rate)
	}
	// out-of-range input is clipped
	want := []float32{0, 0.5, -0.5, 1, -1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-3 {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func writeStereoWAV(t *testing.T, rate int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		SourceBitDepth: 16,
		Data:           data,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

func TestDecodeFileDownmixes(t *testing.T) {
	path := writeStereoWAV(t, 16000, []int{16384, 0, -16384, -16384})

	got, _, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	want := []float32{0.25, -0.5}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-4 {
			t.Errorf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLoadAudioFile(t *testing.T) {
	data := make([]int, 2*8000) // half a second of stereo at 16k
	path := writeStereoWAV(t, 16000, data)

	samples, err := LoadAudioFile(path)
	if err != nil {
		t.Fatalf("LoadAudioFile failed: %v", err)
	}
	if len(samples) != 8000 {
		t.Errorf("len = %d, want 8000", len(samples))
	}

	t.Run("resamples to 16k", func(t *testing.T) {
		path := writeStereoWAV(t, 48000, make([]int, 2*4800))
		samples, err := LoadAudioFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(samples) != 1600 {
			t.Errorf("len = %d, want 1600", len(samples))
		}
	})

	t.Run("not a wav", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		os.WriteFile(path, []byte("hello there, definitely not RIFF data"), 0o644)
		if _, err := LoadAudioFile(path); err == nil {
			t.Error("expected error for non-WAV input")
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := LoadAudioFile(filepath.Join(t.TempDir(), "missing.wav"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected not-exist error, got %v", err)
		}
	})
}
