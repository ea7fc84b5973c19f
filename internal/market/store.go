package market

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// safeName restricts stored file names to a flat, traversal-free namespace.
var safeName = regexp.MustCompile(`^[A-Za-z0-9._\-^]+\.json$`)

// Store persists fetched market data as flat JSON files under one directory.
type Store struct {
	dir string
}

// NewStore creates the data directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("market store: create directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes v as indented JSON under name and returns the file path.
func (s *Store) Save(name string, v any) (string, error) {
	if !safeName.MatchString(name) {
		return "", fmt.Errorf("market store: unsafe file name %q", name)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("market store: marshal: %w", err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("market store: write: %w", err)
	}
	return path, nil
}

// List returns the saved file names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("market store: list: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the raw JSON for one saved file.
func (s *Store) Read(name string) ([]byte, error) {
	if !safeName.MatchString(name) {
		return nil, fmt.Errorf("market store: unsafe file name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("market store: read: %w", err)
	}
	return data, nil
}
