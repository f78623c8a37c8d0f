package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Tool is an external program whspr shells out to.
type Tool struct {
	Name    string
	Purpose string
	// VersionArgs prints a version on the first output line; nil skips the version check.
	VersionArgs []string
	Optional    bool
}

type Result struct {
	Tool
	Status
}

// OK reports whether the tool is installed or not needed.
func (r Result) OK() bool {
	return r.Installed || r.Optional
}

const versionTimeout = 2 * time.Second

// Check looks up name on $PATH and queries its version.
func Check(name string, versionArgs ...string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}
	if len(versionArgs) == 0 {
		return status
	}

	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()

	// some tools print their version on stderr
	output, err := exec.CommandContext(ctx, path, versionArgs...).CombinedOutput()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}
	return status
}

// CheckAll checks every tool in order.
func CheckAll(tools []Tool) []Result {
	results := make([]Result, len(tools))
	for i, t := range tools {
		results[i] = Result{Tool: t, Status: Check(t.Name, t.VersionArgs...)}
	}
	return results
}

// Tools lists the programs a session needs for the given provider and
// injection backends. Feedback players, the overlay and ffmpeg are optional.
func Tools(provider string, backends []string) []Tool {
	tools := []Tool{
		{Name: "pw-record", Purpose: "audio capture", VersionArgs: []string{"--version"}},
		{Name: "pw-play", Purpose: "feedback cues", VersionArgs: []string{"--version"}, Optional: true},
	}
	if provider == "" || provider == "whisper-cpp" {
		tools = append(tools, Tool{Name: "whisper-cli", Purpose: "local transcription", VersionArgs: []string{"--version"}})
	}
	for _, b := range backends {
		switch b {
		case "ydotool":
			tools = append(tools, Tool{Name: "ydotool", Purpose: "typing (ydotool)", Optional: len(backends) > 1})
		case "wtype":
			tools = append(tools, Tool{Name: "wtype", Purpose: "typing (wtype)", Optional: len(backends) > 1})
		case "clipboard", "paste":
			tools = append(tools, Tool{Name: "wl-copy", Purpose: "clipboard", Optional: true})
		}
	}
	tools = append(tools,
		Tool{Name: "whspr-osd", Purpose: "recording overlay", Optional: true},
		Tool{Name: "ffmpeg", Purpose: "transcribe non-WAV files", VersionArgs: []string{"-version"}, Optional: true},
	)
	return dedupe(tools)
}

func dedupe(tools []Tool) []Tool {
	seen := make(map[string]bool, len(tools))
	out := tools[:0]
	for _, t := range tools {
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		out = append(out, t)
	}
	return out
}
