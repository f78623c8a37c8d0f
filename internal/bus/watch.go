package bus

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WaitReleased blocks until the lock file no longer exists.
func (l *Lock) WaitReleased(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		return err
	}

	// checked after the watch is in place so a removal cannot slip between
	if !l.exists() {
		return nil
	}

	target := filepath.Clean(l.path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("lock watcher closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if !l.exists() {
					return nil
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("lock watcher closed")
			}
			l.log.Warn().Err(err).Msg("lock watcher error")

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Lock) exists() bool {
	_, err := os.Stat(l.path)
	return !errors.Is(err, fs.ErrNotExist)
}
