package bus

import (
	"os"
	"path/filepath"
)

const LockName = "whspr.pid"

// RuntimeDir is $XDG_RUNTIME_DIR, or the OS temp dir when unset.
func RuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// $XDG_RUNTIME_DIR/whspr.pid
func LockPath() string {
	return filepath.Join(RuntimeDir(), LockName)
}
