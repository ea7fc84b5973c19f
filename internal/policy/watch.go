package policy

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is how long to wait after the last write before reloading.
const reloadDebounce = 500 * time.Millisecond

// Watcher watches a policy file for changes and triggers hot-reload.
// A reloaded policy is validated before it is handed to onSwap; an invalid
// update is reported through onError and the running policy stays intact.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	onSwap  func(cfg *Config, hash string)
	onError func(err error)
}

// NewWatcher creates a file watcher for the given policy path.
// An empty or missing path returns a nil Watcher: nothing to watch.
func NewWatcher(path string, onSwap func(*Config, string), onError func(error)) (*Watcher, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	return &Watcher{
		watcher: w,
		path:    path,
		onSwap:  onSwap,
		onError: onError,
	}, nil
}

// Run watches for file changes and reloads the policy. Blocks until ctx is
// cancelled. A nil Watcher blocks until cancellation without doing anything.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil {
		<-ctx.Done()
		return nil
	}
	defer w.watcher.Close()

	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, hash, err := LoadWithHash(w.path)
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.onSwap(cfg, hash)
}
