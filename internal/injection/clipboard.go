package injection

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

// clipboardBackend leaves the text on the clipboard for the user to paste.
type clipboardBackend struct {
	write func(string) error
}

func NewClipboardBackend() Backend {
	return &clipboardBackend{write: clipboard.WriteAll}
}

func (c *clipboardBackend) Name() string {
	return "clipboard"
}

func (c *clipboardBackend) Available() error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found (install wl-clipboard)")
	}
	return nil
}

func (c *clipboardBackend) Inject(ctx context.Context, text string, timeout time.Duration) error {
	return writeClipboard(ctx, c.write, text, timeout)
}

// pasteBackend copies the text and then sends Ctrl+Shift+V through ydotool,
// which pastes in terminals as well as regular text fields.
type pasteBackend struct {
	write func(string) error
	delay time.Duration
	keys  func(ctx context.Context) error
}

func NewPasteBackend(delay time.Duration) Backend {
	return &pasteBackend{
		write: clipboard.WriteAll,
		delay: delay,
		keys:  sendPasteKeys,
	}
}

func (p *pasteBackend) Name() string {
	return "paste"
}

func (p *pasteBackend) Available() error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found (install wl-clipboard)")
	}
	if _, err := exec.LookPath("ydotool"); err != nil {
		return fmt.Errorf("ydotool not found: %w (install ydotool package)", err)
	}
	return nil
}

func (p *pasteBackend) Inject(ctx context.Context, text string, timeout time.Duration) error {
	if err := writeClipboard(ctx, p.write, text, timeout); err != nil {
		return err
	}

	// give the compositor time to pick up the new clipboard offer
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	keyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.keys(keyCtx)
}

func sendPasteKeys(ctx context.Context) error {
	// KEY_LEFTCTRL=29 KEY_LEFTSHIFT=42 KEY_V=47
	cmd := exec.CommandContext(ctx, "ydotool", "key", "29:1", "42:1", "47:1", "47:0", "42:0", "29:0")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ydotool key failed: %w: %s", err, trimOutput(out))
	}
	return nil
}

func writeClipboard(ctx context.Context, write func(string) error, text string, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- write(text) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("clipboard write failed: %w", err)
		}
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("clipboard write timed out after %v", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func trimOutput(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
