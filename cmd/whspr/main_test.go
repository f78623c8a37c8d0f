package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leonardotrapani/whspr/internal/config"
	"github.com/leonardotrapani/whspr/internal/models/whisper"
)

// isolate points every XDG directory at a temp dir and returns the config path.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "data"))
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(root, "run"))
	if err := os.MkdirAll(filepath.Join(root, "run"), 0o700); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(root, "config", "whspr", "config.toml")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func installModel(t *testing.T, id string) {
	t.Helper()
	path := whisper.GetModelPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("ggml"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "whspr dev\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestModelList(t *testing.T) {
	isolate(t)
	installModel(t, "tiny")

	out, err := execute(t, "model", "list")
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"large-v3-turbo", "tiny.en", "base"} {
		if !strings.Contains(out, id) {
			t.Errorf("listing missing %s", id)
		}
	}
	if !strings.Contains(out, "installed") {
		t.Error("installed model should be marked")
	}
}

func TestModelSelect(t *testing.T) {
	path := isolate(t)

	if _, err := execute(t, "model", "select", "nope"); err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Errorf("unknown model: %v", err)
	}
	if _, err := execute(t, "model", "select", "tiny"); err == nil || !strings.Contains(err.Error(), "not downloaded") {
		t.Errorf("missing model: %v", err)
	}

	installModel(t, "tiny")
	out, err := execute(t, "model", "select", "tiny")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "selected model 'tiny'") {
		t.Errorf("output = %q", out)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Transcription.Model != "tiny" {
		t.Errorf("model = %q, want tiny", cfg.Transcription.Model)
	}
}

func TestModelSelectHonorsConfigFlag(t *testing.T) {
	isolate(t)
	installModel(t, "base")
	custom := filepath.Join(t.TempDir(), "custom.toml")

	if _, err := execute(t, "--config", custom, "model", "select", "base"); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFile(custom)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Transcription.Model != "base" {
		t.Errorf("model = %q", cfg.Transcription.Model)
	}
}

func TestModelRemove(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "model", "remove", "tiny"); err == nil {
		t.Error("removing a model that is not installed should fail")
	}

	installModel(t, "tiny")
	if _, err := execute(t, "model", "remove", "tiny"); err != nil {
		t.Fatal(err)
	}
	if whisper.IsInstalled("tiny") {
		t.Error("model still installed")
	}
}

func TestModelDownloadAlreadyInstalled(t *testing.T) {
	isolate(t)
	installModel(t, "tiny")

	out, err := execute(t, "model", "download", "tiny")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "already installed") {
		t.Errorf("output = %q", out)
	}
	if _, err := execute(t, "model", "download", "nope"); err == nil {
		t.Error("unknown model should fail")
	}
}

func TestStatusIdle(t *testing.T) {
	isolate(t)
	out, err := execute(t, "status")
	if err != nil {
		t.Fatal(err)
	}
	if out != "idle\n" {
		t.Errorf("status = %q", out)
	}
}

func TestWaitWithoutSession(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "wait"); err != nil {
		t.Errorf("wait with no session should return at once: %v", err)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	isolate(t)
	_, err := execute(t, "transcribe", filepath.Join(t.TempDir(), "missing.wav"))
	if err == nil || !strings.Contains(err.Error(), "failed to read audio") {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestTranscribeOtherFormatNeedsFFmpeg(t *testing.T) {
	isolate(t)
	t.Setenv("PATH", t.TempDir())
	input := filepath.Join(t.TempDir(), "memo.mp3")
	if err := os.WriteFile(input, []byte("ID3 not really audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "transcribe", input)
	if err == nil || !strings.Contains(err.Error(), "ffmpeg") {
		t.Errorf("expected an ffmpeg error, got %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	path := isolate(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[transcription]\nprovider = \"nope\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "doctor"); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestToggleWithInvalidConfig(t *testing.T) {
	path := isolate(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[transcription]\nprovider = \"nope\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "--config", path)
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("expected config error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(os.Getenv("XDG_RUNTIME_DIR"), "whspr.pid")); !os.IsNotExist(err) {
		t.Error("no lock may be left behind")
	}
}

func TestDoctorMissingTools(t *testing.T) {
	isolate(t)
	t.Setenv("PATH", t.TempDir())

	out, err := execute(t, "doctor")
	if err == nil {
		t.Error("missing pw-record and whisper-cli should fail")
	}
	if !strings.Contains(out, "pw-record") || !strings.Contains(out, "not installed") {
		t.Errorf("output = %q", out)
	}
}

func TestLogLevel(t *testing.T) {
	defer func() { verbosity = 0 }()

	tests := []struct {
		verbosity int
		want      string
	}{
		{0, "warn"},
		{1, "debug"},
		{2, "trace"},
		{3, "trace"},
	}
	for _, tt := range tests {
		verbosity = tt.verbosity
		if got := logLevel("warn"); got != tt.want {
			t.Errorf("verbosity %d: got %s, want %s", tt.verbosity, got, tt.want)
		}
	}
}

func TestSetupDefaults(t *testing.T) {
	path := isolate(t)

	out, err := execute(t, "setup", "--defaults")
	if err != nil {
		t.Fatalf("setup --defaults: %v", err)
	}
	if !strings.Contains(out, "Default config written") {
		t.Errorf("output = %q", out)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Transcription.Model != config.DefaultConfig().Transcription.Model {
		t.Errorf("model = %q", cfg.Transcription.Model)
	}

	out, err = execute(t, "setup", "--defaults")
	if err != nil || !strings.Contains(out, "left unchanged") {
		t.Errorf("second run: %q, %v", out, err)
	}
}
