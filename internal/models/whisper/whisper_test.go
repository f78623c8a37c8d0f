package whisper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// useTempData points the models directory at a fresh temp dir.
func useTempData(t *testing.T) string {
	t.Helper()
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	return filepath.Join(data, "whspr", "models")
}

// modelServer serves payload for every model file and honors Range requests.
func modelServer(t *testing.T, payload []byte, ignoreRange bool) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var ranges []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ranges = append(ranges, r.Header.Get("Range"))
		mu.Unlock()

		rng := r.Header.Get("Range")
		if rng == "" || ignoreRange {
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			w.WriteHeader(http.StatusOK)
			w.Write(payload)
			return
		}

		var start int
		fmt.Sscanf(rng, "bytes=%d-", &start)
		if start >= len(payload) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)-start))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(payload[start:])
	}))
	t.Cleanup(srv.Close)

	prev := baseDownloadURL
	baseDownloadURL = srv.URL
	t.Cleanup(func() { baseDownloadURL = prev })
	return srv, &ranges
}

func TestGetModelsDir(t *testing.T) {
	t.Run("xdg data home", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/data")
		dir, err := GetModelsDir()
		if err != nil {
			t.Fatalf("GetModelsDir() error = %v", err)
		}
		if dir != "/data/whspr/models" {
			t.Errorf("GetModelsDir() = %s", dir)
		}
	})

	t.Run("home fallback", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "")
		dir, err := GetModelsDir()
		if err != nil {
			t.Fatalf("GetModelsDir() error = %v", err)
		}
		if strings.Contains(dir, "~") {
			t.Errorf("GetModelsDir() contains ~, got %s", dir)
		}
		if !strings.HasSuffix(dir, filepath.Join(".local", "share", "whspr", "models")) {
			t.Errorf("GetModelsDir() = %s, want path ending with .local/share/whspr/models", dir)
		}
	})
}

func TestGetModelPath(t *testing.T) {
	useTempData(t)

	tests := []struct {
		modelID string
		wantEnd string
	}{
		{"base.en", "ggml-base.en.bin"},
		{"large-v3-turbo", "ggml-large-v3-turbo.bin"},
		{"large-v3-turbo-q5_0", "ggml-large-v3-turbo-q5_0.bin"},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.modelID, func(t *testing.T) {
			got := GetModelPath(tt.modelID)
			if tt.wantEnd == "" {
				if got != "" {
					t.Errorf("GetModelPath(%q) = %s, want empty", tt.modelID, got)
				}
				return
			}
			if !strings.HasSuffix(got, tt.wantEnd) {
				t.Errorf("GetModelPath(%q) = %s, want ending with %s", tt.modelID, got, tt.wantEnd)
			}
		})
	}
}

func TestGetDownloadURL(t *testing.T) {
	want := "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-large-v3-turbo.bin"
	if got := GetDownloadURL("large-v3-turbo"); got != want {
		t.Errorf("GetDownloadURL() = %s, want %s", got, want)
	}
	if got := GetDownloadURL("unknown"); got != "" {
		t.Errorf("GetDownloadURL(unknown) = %s, want empty", got)
	}
}

func TestCatalog(t *testing.T) {
	all := ListModels()
	if len(all) != 12 {
		t.Errorf("expected 12 models, got %d", len(all))
	}
	if all[0].ID != DefaultModel {
		t.Errorf("first model should be the default, got %s", all[0].ID)
	}
	if GetModel(DefaultModel) == nil {
		t.Fatal("default model missing from catalog")
	}

	seen := map[string]bool{}
	for _, m := range all {
		if m.ID == "" || m.Filename == "" || m.Size == "" || m.Description == "" || m.SizeBytes <= 0 {
			t.Errorf("model %+v has empty fields", m)
		}
		if seen[m.ID] {
			t.Errorf("duplicate model id %s", m.ID)
		}
		seen[m.ID] = true
		if strings.HasSuffix(m.ID, ".en") == m.Multilingual {
			t.Errorf("model %s multilingual flag inconsistent with name", m.ID)
		}
	}

	if ids := IDs(); len(ids) != len(all) || ids[0] != all[0].ID {
		t.Errorf("IDs() = %v", ids)
	}

	t.Run("list is a copy", func(t *testing.T) {
		all[0].ID = "mutated"
		if ListModels()[0].ID == "mutated" {
			t.Error("ListModels must not expose the catalog")
		}
	})
}

func TestDownload(t *testing.T) {
	dir := useTempData(t)
	payload := []byte(strings.Repeat("ggml", 1000))
	_, ranges := modelServer(t, payload, false)

	var last int64
	path, err := Download(context.Background(), "tiny.en", func(done, total int64) {
		last = done
		if total != int64(len(payload)) {
			t.Errorf("total = %d, want %d", total, len(payload))
		}
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if path != filepath.Join(dir, "ggml-tiny.en.bin") {
		t.Errorf("path = %s", path)
	}
	if last != int64(len(payload)) {
		t.Errorf("progress ended at %d", last)
	}
	data, _ := os.ReadFile(path)
	if string(data) != string(payload) {
		t.Error("downloaded content mismatch")
	}
	if _, err := os.Stat(partialPath(path)); !os.IsNotExist(err) {
		t.Error("partial file should be gone after finishing")
	}
	if !IsInstalled("tiny.en") {
		t.Error("model should be installed")
	}
	if got := ListInstalled(); len(got) != 1 || got[0] != "tiny.en" {
		t.Errorf("ListInstalled() = %v", got)
	}

	t.Run("already installed skips network", func(t *testing.T) {
		before := len(*ranges)
		if _, err := Download(context.Background(), "tiny.en", nil); err != nil {
			t.Fatalf("Download failed: %v", err)
		}
		if len(*ranges) != before {
			t.Error("installed model should not be fetched again")
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := Remove("tiny.en"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if IsInstalled("tiny.en") {
			t.Error("model should be gone")
		}
		if err := Remove("tiny.en"); err == nil {
			t.Error("removing a missing model should fail")
		}
	})
}

func TestDownloadResume(t *testing.T) {
	dir := useTempData(t)
	payload := []byte(strings.Repeat("0123456789", 500))
	_, ranges := modelServer(t, payload, false)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(dir, "ggml-base.bin")
	if err := os.WriteFile(partialPath(dest), payload[:1234], 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := Download(context.Background(), "base", nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if (*ranges)[0] != "bytes=1234-" {
		t.Errorf("expected range request, got %q", (*ranges)[0])
	}
	data, _ := os.ReadFile(path)
	if string(data) != string(payload) {
		t.Error("resumed content mismatch")
	}
}

func TestDownloadServerIgnoresRange(t *testing.T) {
	dir := useTempData(t)
	payload := []byte(strings.Repeat("abc", 300))
	modelServer(t, payload, true)

	os.MkdirAll(dir, 0o755)
	dest := filepath.Join(dir, "ggml-small.bin")
	os.WriteFile(partialPath(dest), []byte("garbage-prefix"), 0o644)

	path, err := Download(context.Background(), "small", nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != string(payload) {
		t.Error("full response should replace the stale partial file")
	}
}

func TestDownloadOversizedPartialRestarts(t *testing.T) {
	dir := useTempData(t)
	payload := []byte("short")
	_, ranges := modelServer(t, payload, false)

	os.MkdirAll(dir, 0o755)
	dest := filepath.Join(dir, "ggml-tiny.bin")
	os.WriteFile(partialPath(dest), []byte("much longer than the payload"), 0o644)

	path, err := Download(context.Background(), "tiny", nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if len(*ranges) != 2 || (*ranges)[1] != "" {
		t.Errorf("expected a ranged attempt then a fresh one, got %q", *ranges)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "short" {
		t.Errorf("content = %q", data)
	}
}

func TestDownloadHTTPError(t *testing.T) {
	useTempData(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	prev := baseDownloadURL
	baseDownloadURL = srv.URL
	defer func() { baseDownloadURL = prev }()

	if _, err := Download(context.Background(), "tiny", nil); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}
	if IsInstalled("tiny") {
		t.Error("failed download must not install the model")
	}
}

func TestDownload_UnknownModel(t *testing.T) {
	_, err := Download(context.Background(), "nonexistent", nil)
	if err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Errorf("expected unknown model error, got %v", err)
	}
}

func TestDownload_Cancelled(t *testing.T) {
	useTempData(t)
	modelServer(t, []byte("data"), false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Download(ctx, "tiny", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRemove_UnknownModel(t *testing.T) {
	if err := Remove("nonexistent"); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestGetInstalledPath_NotInstalled(t *testing.T) {
	useTempData(t)
	if _, err := GetInstalledPath("tiny"); err == nil {
		t.Error("expected error for missing model")
	}
}
