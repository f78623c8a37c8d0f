package deps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakePath replaces $PATH with a dir holding the given scripts.
func fakePath(t *testing.T, scripts map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range scripts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir)
	return dir
}

func TestCheck(t *testing.T) {
	dir := fakePath(t, map[string]string{
		"whisper-cli": `echo "whisper.cpp 1.7.4"; echo "extra line"`,
		"pw-record":   `echo "pw-record 1.2.7" >&2`,
		"broken":      `exit 1`,
	})

	tests := []struct {
		name        string
		args        []string
		wantInst    bool
		wantVersion string
	}{
		{"whisper-cli", []string{"--version"}, true, "whisper.cpp 1.7.4"},
		{"pw-record", []string{"--version"}, true, "pw-record 1.2.7"},
		{"broken", []string{"--version"}, true, ""},
		{"wtype", nil, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := Check(tt.name, tt.args...)
			if status.Installed != tt.wantInst {
				t.Fatalf("Installed = %v, want %v", status.Installed, tt.wantInst)
			}
			if status.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", status.Version, tt.wantVersion)
			}
			if tt.wantInst && status.Path != filepath.Join(dir, tt.name) {
				t.Errorf("Path = %q", status.Path)
			}
			if !tt.wantInst && status.Path != "" {
				t.Error("not installed but path non-empty")
			}
		})
	}
}

func TestCheckAll(t *testing.T) {
	fakePath(t, map[string]string{"pw-play": "exit 0"})

	results := CheckAll([]Tool{
		{Name: "pw-play", Purpose: "feedback cues"},
		{Name: "ydotool", Purpose: "typing", Optional: true},
		{Name: "whisper-cli", Purpose: "local transcription"},
	})

	want := []bool{true, true, false}
	for i, r := range results {
		if r.OK() != want[i] {
			t.Errorf("%s OK() = %v, want %v", r.Name, r.OK(), want[i])
		}
	}
	if results[1].Installed {
		t.Error("optional missing tool should still report not installed")
	}
}

func TestTools(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		backends []string
		want     []string
		required []string
	}{
		{
			name:     "local with fallback chain",
			provider: "whisper-cpp",
			backends: []string{"ydotool", "wtype", "clipboard"},
			want:     []string{"pw-record", "pw-play", "whisper-cli", "ydotool", "wtype", "wl-copy", "whspr-osd", "ffmpeg"},
			required: []string{"pw-record", "whisper-cli"},
		},
		{
			name:     "openai single backend",
			provider: "openai",
			backends: []string{"wtype"},
			want:     []string{"pw-record", "pw-play", "wtype", "whspr-osd", "ffmpeg"},
			required: []string{"pw-record", "wtype"},
		},
		{
			name:     "clipboard and paste share wl-copy",
			provider: "openai",
			backends: []string{"clipboard", "paste"},
			want:     []string{"pw-record", "pw-play", "wl-copy", "whspr-osd", "ffmpeg"},
			required: []string{"pw-record"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tools := Tools(tt.provider, tt.backends)
			var names, required []string
			for _, tool := range tools {
				names = append(names, tool.Name)
				if !tool.Optional {
					required = append(required, tool.Name)
				}
			}
			if strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("tools = %v, want %v", names, tt.want)
			}
			if strings.Join(required, ",") != strings.Join(tt.required, ",") {
				t.Errorf("required = %v, want %v", required, tt.required)
			}
		})
	}
}
