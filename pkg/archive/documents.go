package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"vkarchiver/internal/downloader"
	"vkarchiver/pkg/vkapi"
)

// docFilename names a document as {id}_{sanitized-title}.{ext}.
func docFilename(doc vkapi.Document) string {
	title := sanitizeTitle(doc.Title)
	if title == "" {
		title = "document"
	}
	ext := doc.Ext
	if ext == "" {
		ext = extFromURL(doc.URL)
	}
	return fmt.Sprintf("%d_%s.%s", doc.ID, title, ext)
}

// DownloadDocuments fetches the target's documents, dumps their metadata to
// documents/docs.yaml and downloads the files into documents/files/.
func (a *Archiver) DownloadDocuments(ctx context.Context, target Target) (downloader.Summary, error) {
	docsDir := a.typeDir("documents")
	filesDir := filepath.Join(docsDir, "files")
	if err := ensureDir(filesDir); err != nil {
		return downloader.Summary{}, err
	}

	docs, err := collectPaged(ctx, a.state, "documents", a.opts.PageSize, a.opts.MaxItems,
		func(ctx context.Context, offset, count int) ([]vkapi.Document, error) {
			raw, err := a.api.CallWithTimeout(ctx, "docs.get", vkapi.Params{
				"owner_id": target.OwnerID(),
				"count":    count,
				"offset":   offset,
			}, 25*time.Second)
			if err != nil {
				return nil, err
			}
			var page vkapi.Paged[vkapi.Document]
			if err := json.Unmarshal(raw, &page); err != nil {
				return nil, fmt.Errorf("decode docs.get page: %w", err)
			}
			return page.Items, nil
		})
	if err != nil {
		return downloader.Summary{}, err
	}

	if err := writeYAML(filepath.Join(docsDir, "docs.yaml"), docs); err != nil {
		return downloader.Summary{}, err
	}

	jobs := make([]downloader.Job, 0, len(docs))
	for _, doc := range docs {
		if doc.URL == "" {
			continue
		}
		jobs = append(jobs, downloader.Job{
			ID:     itemID(doc.OwnerID, doc.ID),
			URL:    doc.URL,
			Target: filepath.Join(filesDir, docFilename(doc)),
		})
	}

	return a.pool.Run(ctx, jobs), nil
}
