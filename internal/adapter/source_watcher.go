package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

// DefaultWatchDebounce coalesces the burst of events editors emit for one save.
const DefaultWatchDebounce = 500 * time.Millisecond

// SourceWatcher reports writes to a fixed set of source files.
type SourceWatcher interface {
	// Watch blocks until ctx is done, calling onChange once per settled write.
	// onChange runs on the watcher goroutine, so changes are handled one at a time.
	Watch(ctx context.Context, paths []m.Path, onChange func(context.Context, m.Path)) error
}

// FSNotifySourceWatcher watches the parent directories of the sources so that
// editors replacing files via rename are still observed.
type FSNotifySourceWatcher struct {
	debounce time.Duration
}

// NewFSNotifySourceWatcher creates a watcher. A non-positive debounce selects
// DefaultWatchDebounce.
func NewFSNotifySourceWatcher(debounce time.Duration) *FSNotifySourceWatcher {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	return &FSNotifySourceWatcher{debounce: debounce}
}

// Watch implements SourceWatcher.
func (w *FSNotifySourceWatcher) Watch(ctx context.Context, paths []m.Path, onChange func(context.Context, m.Path)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	targets := make(map[string]m.Path, len(paths))
	dirs := make(map[string]struct{})

	for _, p := range paths {
		abs, err := filepath.Abs(string(p))
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}

		targets[abs] = p
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	ticker := time.NewTicker(max(w.debounce/5, 10*time.Millisecond))
	defer ticker.Stop()

	pending := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			if _, ok := targets[abs]; ok {
				pending[abs] = time.Now()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			slog.Warn("Source watcher error", "error", err)

		case now := <-ticker.C:
			var settled []string

			for abs, at := range pending {
				if now.Sub(at) >= w.debounce {
					settled = append(settled, abs)
				}
			}

			sort.Strings(settled)

			for _, abs := range settled {
				delete(pending, abs)

				if ctx.Err() != nil {
					return nil
				}

				onChange(ctx, targets[abs])
			}
		}
	}
}
