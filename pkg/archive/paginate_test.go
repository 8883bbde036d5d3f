package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"vkarchiver/pkg/state"
)

// fakePages serves a fixed list in pages and records the offsets requested.
type fakePages struct {
	items   []int
	offsets []int
}

func (f *fakePages) fetch(ctx context.Context, offset, count int) ([]int, error) {
	f.offsets = append(f.offsets, offset)
	if offset >= len(f.items) {
		return nil, nil
	}
	end := offset + count
	if end > len(f.items) {
		end = len(f.items)
	}
	return f.items[offset:end], nil
}

func makeItems(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func TestCollectPagedWalksToShortPage(t *testing.T) {
	st := state.Open(filepath.Join(t.TempDir(), "state.json"))
	src := &fakePages{items: makeItems(250)}

	got, err := collectPaged(context.Background(), st, "wall", 100, 0, src.fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 250 {
		t.Errorf("expected 250 items, got %d", len(got))
	}
	if len(src.offsets) != 3 || src.offsets[0] != 0 || src.offsets[1] != 100 || src.offsets[2] != 200 {
		t.Errorf("unexpected offsets: %v", src.offsets)
	}
}

func TestCollectPagedResumesFromCursor(t *testing.T) {
	st := state.Open(filepath.Join(t.TempDir(), "state.json"))
	if err := st.Update("wall", state.Cursor{"offset": 200}); err != nil {
		t.Fatal(err)
	}

	src := &fakePages{items: makeItems(250)}
	got, err := collectPaged(context.Background(), st, "wall", 100, 0, src.fetch)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 50 {
		t.Errorf("expected only the unfetched tail, got %d items", len(got))
	}
	if src.offsets[0] != 200 {
		t.Errorf("walk did not start from the persisted cursor: %v", src.offsets)
	}
}

func TestCollectPagedPersistsCursorPerPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st := state.Open(path)
	src := &fakePages{items: makeItems(250)}

	if _, err := collectPaged(context.Background(), st, "documents", 100, 0, src.fetch); err != nil {
		t.Fatal(err)
	}

	// A rerun against the persisted file only refetches the short tail page.
	reopened := state.Open(path)
	if got := reopened.Get("documents").Int("offset"); got != 200 {
		t.Errorf("expected cursor at the last full page boundary, got %d", got)
	}
}

func TestCollectPagedCapsAtMaxItems(t *testing.T) {
	st := state.Open(filepath.Join(t.TempDir(), "state.json"))
	src := &fakePages{items: makeItems(1000)}

	got, err := collectPaged(context.Background(), st, "wall", 100, 150, src.fetch)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 150 {
		t.Errorf("expected cap at 150 items, got %d", len(got))
	}
	if len(src.offsets) != 2 {
		t.Errorf("cap should stop paging, got offsets %v", src.offsets)
	}
}

func TestCollectPagedCapAppliesToShortFinalPage(t *testing.T) {
	st := state.Open(filepath.Join(t.TempDir(), "state.json"))
	src := &fakePages{items: makeItems(130)}

	got, err := collectPaged(context.Background(), st, "wall", 100, 120, src.fetch)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 120 {
		t.Errorf("short final page must still respect the cap, got %d", len(got))
	}
}

func TestCollectPagedReturnsPartialOnError(t *testing.T) {
	st := state.Open(filepath.Join(t.TempDir(), "state.json"))
	boom := errors.New("boom")
	calls := 0
	fetch := func(ctx context.Context, offset, count int) ([]int, error) {
		calls++
		if calls == 2 {
			return nil, boom
		}
		return makeItems(count), nil
	}

	got, err := collectPaged(context.Background(), st, "wall", 100, 0, fetch)
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error surfaced, got %v", err)
	}
	if len(got) != 100 {
		t.Errorf("expected the successful first page returned, got %d items", len(got))
	}
	// The first page's cursor survived, so a retry skips it.
	if off := st.Get("wall").Int("offset"); off != 100 {
		t.Errorf("expected cursor 100 after failed second page, got %d", off)
	}
}

func TestCollectPagedHonorsContext(t *testing.T) {
	st := state.Open(filepath.Join(t.TempDir(), "state.json"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collectPaged(ctx, st, "wall", 100, 0, (&fakePages{items: makeItems(10)}).fetch)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context error, got %v", err)
	}
}
