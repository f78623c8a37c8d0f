package bus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Outcome is the result of a successful Acquire.
type Outcome int

const (
	// Owned means this process created the lock and now runs the session.
	Owned Outcome = iota + 1
	// SignalSent means a live session owner was sent a toggle.
	SignalSent
)

func (o Outcome) String() string {
	switch o {
	case Owned:
		return "owned"
	case SignalSent:
		return "signal_sent"
	default:
		return "unknown"
	}
}

// owner exiting between validation and signaling restarts acquisition at most this often
const maxRaceRetries = 3

var errStillStale = errors.New("lock still stale after recovery")

// Lock is the single-instance lock file. At most one file exists at the
// canonical path; it is created with its pid already written.
type Lock struct {
	path    string
	pid     int
	checker ProcessChecker
	signal  func(pid int) error
	log     zerolog.Logger

	mu   sync.Mutex
	held bool
}

type Option func(*Lock)

// WithChecker replaces the /proc based process validation.
func WithChecker(c ProcessChecker) Option {
	return func(l *Lock) { l.checker = c }
}

// WithSignaler replaces the toggle delivery, SendToggle by default.
func WithSignaler(fn func(pid int) error) Option {
	return func(l *Lock) { l.signal = fn }
}

// WithPID sets the pid written into the lock, os.Getpid by default.
func WithPID(pid int) Option {
	return func(l *Lock) { l.pid = pid }
}

func NewLock(path string, opts ...Option) *Lock {
	l := &Lock{
		path:   path,
		pid:    os.Getpid(),
		signal: SendToggle,
		log:    log.With().Str("component", "lock").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.checker == nil {
		l.checker = NewProcessChecker()
	}
	return l
}

func (l *Lock) Path() string { return l.path }

// Acquire either takes ownership of the lock or toggles the live owner.
// A stale lock is discarded and creation retried exactly once.
func (l *Lock) Acquire(ctx context.Context) (Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return Owned, nil
	}

	races := 0
	recovered := false
	for {
		if err := ctx.Err(); err != nil {
			return 0, &AcquireError{Path: l.path, Err: err}
		}

		err := l.create()
		if err == nil {
			l.held = true
			l.log.Debug().Str("path", l.path).Int("pid", l.pid).Msg("lock acquired")
			return Owned, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return 0, &AcquireError{Path: l.path, Err: err}
		}

		raw, pid, state, err := l.inspect()
		if errors.Is(err, fs.ErrNotExist) {
			// removed between our create and read
			races++
			if races > maxRaceRetries {
				return 0, &AcquireError{Path: l.path, Err: fmt.Errorf("lock contended %d times", races)}
			}
			continue
		}
		if err != nil {
			return 0, &AcquireError{Path: l.path, Err: err}
		}

		if state != ProcessValid {
			if recovered {
				return 0, &AcquireError{Path: l.path, Err: fmt.Errorf("%w (pid %d, %s)", errStillStale, pid, state)}
			}
			l.log.Warn().Int("pid", pid).Stringer("state", state).Msg("discarding stale lock")
			if err := l.removeIfUnchanged(raw); err != nil {
				return 0, &AcquireError{Path: l.path, Err: fmt.Errorf("remove stale lock: %w", err)}
			}
			recovered = true
			continue
		}

		err = l.signal(pid)
		switch {
		case err == nil:
			l.log.Info().Int("pid", pid).Msg("sent toggle to running session")
			return SignalSent, nil
		case errors.Is(err, unix.ESRCH), errors.Is(err, os.ErrProcessDone):
			races++
			if races > maxRaceRetries {
				return 0, &AcquireError{Path: l.path, Err: fmt.Errorf("owner kept exiting during toggle: %w", err)}
			}
			l.log.Debug().Int("pid", pid).Msg("owner exited before toggle, retrying")
			recovered = false
		default:
			return 0, &SignalError{PID: pid, Err: err}
		}
	}
}

// Release removes the lock file. Safe to call repeatedly and on a Lock
// that never became the owner.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	l.held = false

	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove lock %s: %w", l.path, err)
	}
	l.log.Debug().Str("path", l.path).Msg("lock released")
	return nil
}

// Holder returns the pid recorded in the lock file when it names a live
// instance of this program.
func (l *Lock) Holder() (int, bool) {
	_, pid, state, err := l.inspect()
	if err != nil || state != ProcessValid {
		return 0, false
	}
	return pid, true
}

// create writes the pid to a temp file and hard-links it into place, so the
// canonical path never exists without its content.
func (l *Lock) create() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(strconv.Itoa(l.pid)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	err = os.Link(tmpPath, l.path)
	if err == nil || errors.Is(err, fs.ErrExist) {
		return err
	}
	// filesystems without hard links fall back to exclusive create
	l.log.Debug().Err(err).Msg("hard link unavailable, using exclusive create")
	return l.createExclusive()
}

func (l *Lock) createExclusive() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(strconv.Itoa(l.pid)); err != nil {
		f.Close()
		os.Remove(l.path)
		return err
	}
	return f.Close()
}

func (l *Lock) inspect() ([]byte, int, ProcessState, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, 0, ProcessGone, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 {
		return raw, 0, ProcessGone, nil
	}
	return raw, pid, l.checker.Check(pid), nil
}

// removeIfUnchanged deletes the lock only if it still holds the stale
// content we inspected; a fresh lock written meanwhile is left alone.
func (l *Lock) removeIfUnchanged(stale []byte) error {
	current, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !bytes.Equal(current, stale) {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
