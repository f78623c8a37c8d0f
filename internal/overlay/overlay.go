package overlay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultBinary = "whspr-osd"

type Config struct {
	Enabled     bool
	Binary      string
	Args        []string
	StopTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Binary:      DefaultBinary,
		StopTimeout: 500 * time.Millisecond,
	}
}

// Launcher starts the recording indicator as a separate process.
type Launcher struct {
	config Config
	log    zerolog.Logger
}

func NewLauncher(config Config) *Launcher {
	if config.Binary == "" {
		config.Binary = DefaultBinary
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = 500 * time.Millisecond
	}
	return &Launcher{
		config: config,
		log:    log.With().Str("component", "overlay").Logger(),
	}
}

// Spawn starts the overlay. Failure is logged and yields a nil handle; the
// session continues without an indicator.
func (l *Launcher) Spawn(ctx context.Context) *Handle {
	if !l.config.Enabled || ctx.Err() != nil {
		return nil
	}

	bin, err := l.resolve()
	if err != nil {
		l.log.Debug().Err(err).Msg("overlay not available")
		return nil
	}

	// not bound to ctx: the handle owns the process lifetime
	cmd := exec.Command(bin, l.config.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		l.log.Warn().Err(err).Str("binary", bin).Msg("failed to start overlay")
		return nil
	}

	h := &Handle{
		cmd:     cmd,
		timeout: l.config.StopTimeout,
		exited:  make(chan struct{}),
		log:     l.log,
	}
	go func() {
		h.waitErr = cmd.Wait()
		close(h.exited)
	}()

	l.log.Debug().Int("pid", cmd.Process.Pid).Str("binary", bin).Msg("overlay started")
	return h
}

// resolve looks next to our own executable first, then on $PATH.
func (l *Launcher) resolve() (string, error) {
	if filepath.IsAbs(l.config.Binary) {
		if err := executable(l.config.Binary); err != nil {
			return "", err
		}
		return l.config.Binary, nil
	}

	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), l.config.Binary)
		if executable(sibling) == nil {
			return sibling, nil
		}
	}
	return exec.LookPath(l.config.Binary)
}

func executable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() || info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}

// Handle is a running overlay process.
type Handle struct {
	cmd     *exec.Cmd
	timeout time.Duration
	exited  chan struct{}
	waitErr error
	log     zerolog.Logger

	once sync.Once
}

// pid of the overlay process, 0 for a nil handle.
func (h *Handle) pid() int {
	if h == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Terminate sends SIGTERM, waits up to the stop timeout, then kills.
// Nil-safe and idempotent.
func (h *Handle) Terminate() {
	if h == nil {
		return
	}
	h.once.Do(h.terminate)
}

func (h *Handle) terminate() {
	select {
	case <-h.exited:
		h.log.Debug().Err(h.waitErr).Msg("overlay already exited")
		return
	default:
	}

	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		h.log.Debug().Err(err).Msg("overlay SIGTERM failed")
	}

	select {
	case <-h.exited:
		h.log.Debug().Msg("overlay stopped")
		return
	case <-time.After(h.timeout):
	}

	h.log.Warn().Int("pid", h.pid()).Dur("timeout", h.timeout).Msg("overlay ignored SIGTERM, killing")
	// negative pid kills the whole process group
	_ = syscall.Kill(-h.cmd.Process.Pid, syscall.SIGKILL)
	<-h.exited
}

// Show spawns the overlay and returns its terminate func, or nil when
// nothing was started.
func (l *Launcher) Show(ctx context.Context) func() {
	h := l.Spawn(ctx)
	if h == nil {
		return nil
	}
	return h.Terminate
}
