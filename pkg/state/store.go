package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Cursor holds resume fields for one resource type, typically {"offset": n}.
// The store is schema-agnostic; downloaders own their cursor fields.
type Cursor map[string]interface{}

// Int reads an integer cursor field, tolerating the float64 that JSON
// decoding produces. Missing or non-numeric fields read as zero.
func (c Cursor) Int(key string) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}

// Store persists per-resource-type resume cursors in a single JSON file,
// e.g. {"wall": {"offset": 300}, "album_12": {"offset": 100}}.
//
// Updates shallow-merge into one key and rewrite the whole file atomically
// (temp file + fsync + rename), so a crash loses at most the in-flight page.
type Store struct {
	path  string
	mu    sync.Mutex
	state map[string]Cursor
}

// Open loads the cursor file. Loading is best-effort: a missing or malformed
// file means no prior state.
func Open(path string) *Store {
	s := &Store{
		path:  path,
		state: make(map[string]Cursor),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var loaded map[string]Cursor
	if err := json.Unmarshal(data, &loaded); err != nil || loaded == nil {
		return s
	}
	s.state = loaded
	return s
}

// Get returns a copy of the cursor for key, empty if unseen.
func (s *Store) Get(key string) Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Cursor)
	for k, v := range s.state[key] {
		out[k] = v
	}
	return out
}

// Update shallow-merges partial into the cursor for key and persists the
// entire store atomically. Cursors for other keys are never dropped.
func (s *Store) Update(key string, partial Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.state[key]
	if current == nil {
		current = make(Cursor, len(partial))
	}
	for k, v := range partial {
		current[k] = v
	}
	s.state[key] = current

	return s.persist()
}

// persist writes the store with temp-file-then-rename semantics. Caller
// holds s.mu.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode resume state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write resume state: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync resume state: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close resume state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace resume state: %w", err)
	}
	return nil
}

// Delete drops the whole cursor for key and persists. Unlike Update, which
// shallow-merges, this removes every field. Deleting an unseen key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state[key]; !ok {
		return nil
	}
	delete(s.state, key)
	return s.persist()
}

// Keys lists every resource type with a persisted cursor.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.state))
	for k := range s.state {
		keys = append(keys, k)
	}
	return keys
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}
