package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherSwapsOnValidUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("security:\n  max_input_length: 500\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	swapped := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config, hash string) {
		swapped <- cfg
	}, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if w == nil {
		t.Fatal("expected a watcher for an existing file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("security:\n  max_input_length: 900\n"), 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-swapped:
		if cfg.Security.MaxInputLength != 900 {
			t.Errorf("expected reloaded max_input_length 900, got %d", cfg.Security.MaxInputLength)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherKeepsRunningConfigOnInvalidUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("security:\n  max_input_length: 500\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	swapped := make(chan *Config, 1)
	failed := make(chan error, 1)
	w, err := NewWatcher(path, func(cfg *Config, hash string) {
		swapped <- cfg
	}, func(err error) {
		failed <- err
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("rate_limiting:\n  max_calls_per_minute: -1\n"), 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-swapped:
		t.Fatal("invalid policy must not be swapped in")
	case <-failed:
		// expected
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
}

func TestWatcherNilForMissingPath(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "nope.yaml"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher for missing file")
	}
}
