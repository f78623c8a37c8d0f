package injection

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// typer injects text by running a virtual-keyboard program.
type typer struct {
	name     string
	args     func(text string) []string
	precheck func() error
}

func (t *typer) Name() string { return t.name }

func (t *typer) Available() error {
	if _, err := exec.LookPath(t.name); err != nil {
		return fmt.Errorf("%s not found: %w (install the %s package)", t.name, err, t.name)
	}
	if t.precheck != nil {
		return t.precheck()
	}
	return nil
}

func (t *typer) Inject(ctx context.Context, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, t.name, t.args(text)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", t.name, err, trimOutput(out))
	}
	return nil
}

// NewWtypeBackend types through the Wayland virtual keyboard protocol.
func NewWtypeBackend() Backend {
	return &typer{
		name: "wtype",
		args: func(text string) []string { return []string{"--", text} },
	}
}

// NewYdotoolBackend types through uinput; it needs a running ydotoold.
func NewYdotoolBackend() Backend {
	return &typer{
		name: "ydotool",
		// a small key delay keeps some clients from dropping characters
		args:     func(text string) []string { return []string{"type", "--key-delay", "2", "--", text} },
		precheck: checkYdotoold,
	}
}

// checkYdotoold checks the daemon socket when ydotoold is installed locally.
func checkYdotoold() error {
	if _, err := exec.LookPath("ydotoold"); err != nil {
		return nil
	}
	socket := ydotoolSocket()
	if socket == "" {
		return fmt.Errorf("ydotoold socket not found, is ydotoold running?")
	}

	// ydotoold >= 1.0.4 listens on a datagram socket, older releases on a stream
	conn, err := net.Dial("unixgram", socket)
	if err != nil {
		conn, err = net.DialTimeout("unix", socket, 500*time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("ydotoold not responding at %s: %w", socket, err)
	}
	return conn.Close()
}

// ydotoolSocket returns $YDOTOOL_SOCKET or the first existing default location.
func ydotoolSocket() string {
	var candidates []string
	if sock := os.Getenv("YDOTOOL_SOCKET"); sock != "" {
		candidates = append(candidates, sock)
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		candidates = append(candidates, filepath.Join(dir, ".ydotool_socket"))
	}
	candidates = append(candidates,
		filepath.Join("/run/user", strconv.Itoa(os.Getuid()), ".ydotool_socket"),
		"/tmp/.ydotool_socket",
	)

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
