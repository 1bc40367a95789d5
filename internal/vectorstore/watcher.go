package vectorstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the snapshot whenever its file is rewritten, until ctx is
// cancelled. Publishing a new snapshot is an atomic whole-set replacement;
// a reload that fails to parse keeps the current set serving. Watch blocks
// and is meant to run in its own goroutine.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and ingest runs typically replace the
	// file via rename, which drops a watch on the file itself.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	targets := map[string]struct{}{}
	targets[filepath.Clean(s.path)] = struct{}{}
	targets[filepath.Clean(siblingPath(s.path))] = struct{}{}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, watched := targets[filepath.Clean(ev.Name)]; !watched {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Reload(ctx); err != nil {
				s.log.Warn("snapshot reload failed, keeping current set",
					zap.String("file", ev.Name), zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("snapshot watcher error", zap.Error(err))
		}
	}
}
