package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vkarchiver/internal/downloader"
	"vkarchiver/pkg/logger"
	"vkarchiver/pkg/vkapi"
)

// chatInvoker serves messages.getHistoryAttachments pages keyed by the
// start_from cursor and records the cursors it saw.
type chatInvoker struct {
	pages   map[string]string
	cursors []string
}

func (c *chatInvoker) Call(ctx context.Context, method string, params vkapi.Params) (json.RawMessage, error) {
	return c.CallWithTimeout(ctx, method, params, 0)
}

func (c *chatInvoker) CallWithTimeout(ctx context.Context, method string, params vkapi.Params, _ time.Duration) (json.RawMessage, error) {
	if method != "messages.getHistoryAttachments" {
		return nil, fmt.Errorf("unexpected method %s", method)
	}
	cursor, _ := params["start_from"].(string)
	c.cursors = append(c.cursors, cursor)
	page, ok := c.pages[params["media_type"].(string)+"/"+cursor]
	if !ok {
		return json.RawMessage(`{"items":[]}`), nil
	}
	return json.RawMessage(page), nil
}

func TestDownloadChatFollowsCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("chat-media"))
	}))
	defer server.Close()

	photo := func(id int64) string {
		return fmt.Sprintf(
			`{"message_id":%d,"attachment":{"type":"photo","photo":{"id":%d,"owner_id":6,"sizes":[{"url":"%s/p%d.jpg","width":10,"height":10}]}}}`,
			id, id, server.URL, id)
	}
	api := &chatInvoker{pages: map[string]string{
		"photo/":       fmt.Sprintf(`{"items":[%s,%s],"next_from":"10/20"}`, photo(1), photo(2)),
		"photo/10/20":  fmt.Sprintf(`{"items":[%s],"next_from":""}`, photo(3)),
		"doc/":         fmt.Sprintf(`{"items":[{"message_id":4,"attachment":{"type":"doc","doc":{"id":4,"owner_id":6,"title":"log","ext":"txt","url":"%s/d4.txt"}}}]}`, server.URL),
	}}

	dir := t.TempDir()
	pool := downloader.NewPool(2, downloader.NewHTTPFetcher(5*time.Second), nil, logger.Nop())
	a := New(api, nil, pool, dir, Options{PageSize: 2}, logger.Nop())

	summary, err := a.DownloadChat(context.Background(), 2000000001)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Downloaded != 4 {
		t.Fatalf("expected 3 photos and 1 doc, got %+v", summary)
	}

	chatDir := filepath.Join(dir, "chat_2000000001")
	for _, name := range []string{"6_1.jpg", "6_2.jpg", "6_3.jpg", "4_log.txt"} {
		if _, err := os.Stat(filepath.Join(chatDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	// The second photo page must have been requested with the chained cursor,
	// and the intermediate cursor must have been persisted for resume.
	if len(api.cursors) < 2 || api.cursors[1] != "10/20" {
		t.Errorf("unexpected cursor chain: %v", api.cursors)
	}
	saved, _ := a.State().Get("chat_2000000001_photo")["start_from"].(string)
	if saved != "10/20" {
		t.Errorf("cursor not persisted, got %q", saved)
	}
}

func TestDownloadChatHonorsMaxItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer server.Close()

	photo := func(id int64) string {
		return fmt.Sprintf(
			`{"message_id":%d,"attachment":{"type":"photo","photo":{"id":%d,"owner_id":6,"sizes":[{"url":"%s/p%d.jpg","width":10,"height":10}]}}}`,
			id, id, server.URL, id)
	}
	api := &chatInvoker{pages: map[string]string{
		"photo/": fmt.Sprintf(`{"items":[%s,%s,%s],"next_from":"x"}`, photo(1), photo(2), photo(3)),
	}}

	pool := downloader.NewPool(1, downloader.NewHTTPFetcher(5*time.Second), nil, logger.Nop())
	a := New(api, nil, pool, t.TempDir(), Options{PageSize: 3, MaxItems: 2}, logger.Nop())

	summary, err := a.DownloadChat(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Attempted != 2 {
		t.Errorf("expected the cap to stop collection at 2 jobs, got %+v", summary)
	}
}
