package consistency

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"vkarchiver/pkg/logger"
)

// record is the on-disk schema. Unknown extra keys in existing files are
// tolerated by the decoder.
type record struct {
	DownloadedFiles []string `json:"downloaded_files"`
	LastUpdated     string   `json:"last_updated"`
	TotalFiles      int      `json:"total_files"`
}

// Store is a durable, cross-process set of already-downloaded media
// identifiers (convention: "{owner_id}_{item_id}").
//
// A sibling .lock file serializes access across OS processes; the mutex
// serializes concurrent download workers within this process. Every mutation
// persists the full set eagerly, so a crash loses at most the in-flight
// mutation.
type Store struct {
	path   string
	mu     sync.Mutex
	ids    map[string]struct{}
	flk    *flock.Flock
	logger logger.Logger
}

// Open loads the store backing file. A missing or corrupt file yields an
// empty set: availability is preferred over strictness on the read side.
func Open(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create consistency directory: %w", err)
	}
	s := &Store{
		path:   path,
		ids:    make(map[string]struct{}),
		flk:    flock.New(path + ".lock"),
		logger: log,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	if err := s.flk.RLock(); err != nil {
		return fmt.Errorf("failed to acquire shared lock on %s: %w", s.path, err)
	}
	defer s.flk.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.InfoWithFields("no consistency record yet, starting empty", map[string]interface{}{
				"path": s.path,
			})
			return nil
		}
		s.logger.WarnWithFields("could not read consistency record, starting empty", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return nil
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.WarnWithFields("corrupt consistency record, starting empty", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return nil
	}
	for _, id := range rec.DownloadedFiles {
		s.ids[id] = struct{}{}
	}
	s.logger.InfoWithFields("loaded consistency record", map[string]interface{}{
		"count":        len(s.ids),
		"last_updated": rec.LastUpdated,
	})
	return nil
}

// save persists the full set under an exclusive lock with an fsync before
// the lock is released. Caller holds s.mu.
func (s *Store) save() error {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rec := record{
		DownloadedFiles: ids,
		LastUpdated:     time.Now().Format(time.RFC3339),
		TotalFiles:      len(ids),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode consistency record: %w", err)
	}

	if err := s.flk.Lock(); err != nil {
		return fmt.Errorf("failed to acquire exclusive lock on %s: %w", s.path, err)
	}
	defer s.flk.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open consistency record for writing: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("failed to write consistency record: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync consistency record: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close consistency record: %w", err)
	}
	return nil
}

// IsDownloaded reports whether id was already recorded by any instance.
func (s *Store) IsDownloaded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// MarkDownloaded records id and persists immediately. Marking an already
// present id is a no-op.
func (s *Store) MarkDownloaded(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return nil
	}
	s.ids[id] = struct{}{}
	if err := s.save(); err != nil {
		// roll back so memory matches disk
		delete(s.ids, id)
		return err
	}
	s.logger.DebugWithFields("marked as downloaded", map[string]interface{}{"id": id})
	return nil
}

// Remove drops id from the record. Returns true if it was present.
func (s *Store) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; !ok {
		return false, nil
	}
	delete(s.ids, id)
	if err := s.save(); err != nil {
		s.ids[id] = struct{}{}
		return false, err
	}
	return true, nil
}

// Clear empties the record. Administrative operation.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
	if err := s.save(); err != nil {
		return err
	}
	s.logger.Info("cleared consistency record")
	return nil
}

// Count returns the number of recorded identifiers.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// All returns a copy of the recorded identifiers.
func (s *Store) All() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.ids))
	for id := range s.ids {
		out[id] = struct{}{}
	}
	return out
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Close performs a final save if any state is held. Mutations already persist
// eagerly; this is a safety net for scoped use.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ids) == 0 {
		return nil
	}
	return s.save()
}
