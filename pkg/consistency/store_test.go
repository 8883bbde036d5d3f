package consistency

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"vkarchiver/pkg/logger"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "downloaded.json")
	s, err := Open(path, logger.Nop())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return s
}

func TestMarkAndQuery(t *testing.T) {
	s := openTemp(t)

	if s.IsDownloaded("123_456") {
		t.Error("fresh store should not contain anything")
	}
	if err := s.MarkDownloaded("123_456"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if !s.IsDownloaded("123_456") {
		t.Error("id should be recorded after mark")
	}

	// Marking again must not duplicate.
	if err := s.MarkDownloaded("123_456"); err != nil {
		t.Fatalf("repeated mark failed: %v", err)
	}
	if got := s.Count(); got != 1 {
		t.Errorf("expected count 1, got %d", got)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloaded.json")
	s, err := Open(path, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"1_10", "1_11", "-99_5"} {
		if err := s.MarkDownloaded(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if got := reopened.Count(); got != 3 {
		t.Errorf("expected 3 ids after reopen, got %d", got)
	}
	if !reopened.IsDownloaded("-99_5") {
		t.Error("negative-owner id lost across reopen")
	}
}

func TestLoadsExistingRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloaded.json")
	payload := `{"downloaded_files":["1_2","3_4"],"last_updated":"2026-08-01T12:00:00Z","total_files":2}`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Count(); got != 2 {
		t.Fatalf("expected 2 ids, got %d", got)
	}
	if !s.IsDownloaded("1_2") || !s.IsDownloaded("3_4") {
		t.Error("preloaded ids missing")
	}
}

func TestCorruptRecordStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downloaded.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path, logger.Nop())
	if err != nil {
		t.Fatalf("corrupt record must not fail open: %v", err)
	}
	if got := s.Count(); got != 0 {
		t.Errorf("expected empty store, got %d ids", got)
	}

	// The next mark must overwrite the corrupt file with a valid record.
	if err := s.MarkDownloaded("5_6"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("rewritten record is not valid json: %v", err)
	}
	if rec.TotalFiles != 1 || len(rec.DownloadedFiles) != 1 {
		t.Errorf("unexpected rewritten record: %+v", rec)
	}
}

func TestRemove(t *testing.T) {
	s := openTemp(t)
	if err := s.MarkDownloaded("7_8"); err != nil {
		t.Fatal(err)
	}

	present, err := s.Remove("7_8")
	if err != nil {
		t.Fatal(err)
	}
	if !present {
		t.Error("expected Remove to report the id was present")
	}
	if s.IsDownloaded("7_8") {
		t.Error("id still present after remove")
	}

	present, err = s.Remove("7_8")
	if err != nil {
		t.Fatal(err)
	}
	if present {
		t.Error("expected Remove of absent id to report false")
	}
}

func TestClear(t *testing.T) {
	s := openTemp(t)
	for _, id := range []string{"a", "b", "c"} {
		if err := s.MarkDownloaded(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := s.Count(); got != 0 {
		t.Errorf("expected empty store after clear, got %d", got)
	}
}

func TestConcurrentMarks(t *testing.T) {
	s := openTemp(t)

	var wg sync.WaitGroup
	ids := []string{"1_1", "1_2", "1_3", "1_4", "1_5", "1_6", "1_7", "1_8"}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.MarkDownloaded(id); err != nil {
				t.Errorf("mark %s failed: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	if got := s.Count(); got != len(ids) {
		t.Errorf("expected %d ids, got %d", len(ids), got)
	}
}
