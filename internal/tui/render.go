package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/leonardotrapani/whspr/internal/deps"
	"github.com/leonardotrapani/whspr/internal/models/whisper"
)

// RenderModels formats the model catalog for `whspr model list`.
func RenderModels(models []whisper.ModelInfo, installed func(string) bool, active string) string {
	var b strings.Builder
	b.WriteString(StyleHeader.Render("Whisper models"))
	b.WriteString("\n")

	for _, m := range models {
		marker := "  "
		if m.ID == active {
			marker = StyleHighlight.Render("* ")
		}
		name := fmt.Sprintf("%-20s", m.ID)
		if m.ID == active {
			name = StyleHighlight.Render(name)
		}

		state := StyleMuted.Render(fmt.Sprintf("%-13s", "not installed"))
		if installed(m.ID) {
			state = StyleSuccess.Render(fmt.Sprintf("%-13s", "installed"))
		}

		fmt.Fprintf(&b, "%s%s %7s  %s  %s\n", marker, name, m.Size, state, StyleSubtle.Render(m.Description))
	}
	return b.String()
}

// RenderDoctor formats dependency check results. The bool reports whether
// every required tool was found.
func RenderDoctor(results []deps.Result) (string, bool) {
	var b strings.Builder
	b.WriteString(StyleHeader.Render("Dependencies"))
	b.WriteString("\n")

	ok := true
	for _, r := range results {
		var mark string
		switch {
		case r.Installed:
			mark = StyleSuccess.Render("ok  ")
		case r.Optional:
			mark = StyleWarning.Render("skip")
		default:
			mark = StyleError.Render("miss")
			ok = false
		}

		detail := r.Purpose
		if r.Version != "" {
			detail += ", " + r.Version
		}
		if !r.Installed && r.Optional {
			detail += " (optional)"
		}
		fmt.Fprintf(&b, "  %s %-12s %s\n", mark, r.Name, StyleMuted.Render(detail))
	}
	return b.String(), ok
}

// Progress returns a download callback that redraws one status line on w.
func Progress(w io.Writer, label string) whisper.ProgressFunc {
	last := -1
	return func(downloaded, total int64) {
		if total <= 0 {
			fmt.Fprintf(w, "\r%s %s", label, formatMB(downloaded))
			return
		}
		pct := int(downloaded * 100 / total)
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\r%s %3d%% (%s / %s)", label, pct, formatMB(downloaded), formatMB(total))
		if downloaded >= total {
			fmt.Fprintln(w)
		}
	}
}

func formatMB(n int64) string {
	return fmt.Sprintf("%.1f MB", float64(n)/1_000_000)
}
