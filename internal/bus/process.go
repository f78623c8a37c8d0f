package bus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// ProcessState classifies the pid recorded in a lock file.
type ProcessState int

const (
	ProcessGone    ProcessState = iota // not running, zombie, or unreadable pid
	ProcessForeign                     // running, but not an instance of this program
	ProcessValid                       // running instance of this program
)

func (s ProcessState) String() string {
	switch s {
	case ProcessGone:
		return "gone"
	case ProcessForeign:
		return "foreign"
	case ProcessValid:
		return "valid"
	default:
		return "unknown"
	}
}

// ProcessChecker decides whether a recorded pid is an authoritative lock holder.
type ProcessChecker interface {
	Check(pid int) ProcessState
}

type procChecker struct {
	fs     procfs.FS
	hasFS  bool
	self   string
	selfID int
}

// NewProcessChecker compares /proc/<pid>/exe (then argv[0]) against our own executable.
func NewProcessChecker() ProcessChecker {
	c := procChecker{selfID: os.Getpid()}
	if exe, err := os.Executable(); err == nil {
		c.self = exe
	} else if len(os.Args) > 0 {
		c.self = os.Args[0]
	}
	if fs, err := procfs.NewDefaultFS(); err == nil {
		c.fs = fs
		c.hasFS = true
	}
	return c
}

func (c procChecker) Check(pid int) ProcessState {
	if pid <= 0 {
		return ProcessGone
	}
	// a lock naming our own pid was left by an earlier process whose pid got recycled
	if pid == c.selfID {
		return ProcessForeign
	}

	if err := unix.Kill(pid, 0); err != nil {
		if errors.Is(err, unix.EPERM) {
			// alive, but owned by another user
			return ProcessForeign
		}
		return ProcessGone
	}

	if !c.hasFS {
		return ProcessValid
	}

	proc, err := c.fs.Proc(pid)
	if err != nil {
		return ProcessGone
	}
	if stat, err := proc.Stat(); err == nil && stat.State == "Z" {
		return ProcessGone
	}

	if exe, err := proc.Executable(); err == nil && sameProgram(exe, c.self) {
		return ProcessValid
	}
	if args, err := proc.CmdLine(); err == nil && len(args) > 0 && sameProgram(args[0], c.self) {
		return ProcessValid
	}
	return ProcessForeign
}

func sameProgram(candidate, self string) bool {
	if candidate == "" || self == "" {
		return false
	}
	candidate = strings.TrimSuffix(candidate, " (deleted)")
	self = strings.TrimSuffix(self, " (deleted)")
	return filepath.Base(candidate) == filepath.Base(self)
}
