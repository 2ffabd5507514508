package shield

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileSource reads the policy document from a local file.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed policy source.
func NewFileSource(path string) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve policy path: %w", err)
	}
	return &FileSource{path: abs}, nil
}

// Path returns the absolute path of the policy file.
func (f *FileSource) Path() string { return f.path }

// Fetch reads the policy file.
func (f *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// #nosec G304 -- path is configured at startup
	return os.ReadFile(f.path)
}

// WatchFile reloads the store whenever its FileSource's file changes.
// Events are debounced: editors often produce several writes per save.
// A reload that fails keeps the previous snapshot and reports through the
// policy reload signals; watching continues.
//
// The watcher stops when ctx is cancelled. The store's source must be a
// *FileSource.
func WatchFile(ctx context.Context, store *Store, debounce time.Duration) error {
	src, ok := store.source.(*FileSource)
	if !ok {
		return fmt.Errorf("store source is %T, not a *FileSource", store.source)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors that replace the file via rename would
	// otherwise detach a direct file watch.
	if err := watcher.Add(filepath.Dir(src.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go watchLoop(ctx, store, src.path, watcher, debounce)
	return nil
}

func watchLoop(ctx context.Context, store *Store, path string, watcher *fsnotify.Watcher, debounce time.Duration) {
	defer watcher.Close() //nolint:errcheck

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				// Reload reports failures via signals and keeps the
				// previous snapshot; nothing more to do here.
				_ = store.Reload(ctx)
			})

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
