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

// DownloadPhotos fetches the target's photo albums and downloads the best
// rendition of every photo into photos/<album-id>-<title>/.
func (a *Archiver) DownloadPhotos(ctx context.Context, target Target) (downloader.Summary, error) {
	photosRoot := a.typeDir("photos")
	if err := ensureDir(photosRoot); err != nil {
		return downloader.Summary{}, err
	}

	albums, err := a.fetchAlbums(ctx, target)
	if err != nil {
		return downloader.Summary{}, err
	}
	a.logger.InfoWithFields("albums found", map[string]interface{}{
		"target": target.Name,
		"count":  len(albums),
	})

	var total downloader.Summary
	remaining := a.opts.MaxItems

	for _, album := range albums {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		if a.opts.MaxItems > 0 && remaining <= 0 {
			break
		}

		albumDir := filepath.Join(photosRoot, fmt.Sprintf("%d-%s", album.ID, sanitizeTitle(album.Title)))
		if err := ensureDir(albumDir); err != nil {
			return total, err
		}
		if err := writeYAML(filepath.Join(albumDir, "info.yaml"), album); err != nil {
			return total, err
		}

		stateKey := fmt.Sprintf("album_%d", album.ID)
		photos, err := collectPaged(ctx, a.state, stateKey, a.opts.PageSize, remaining,
			func(ctx context.Context, offset, count int) ([]vkapi.Photo, error) {
				raw, err := a.api.CallWithTimeout(ctx, "photos.get", vkapi.Params{
					"owner_id":    target.OwnerID(),
					"album_id":    album.ID,
					"count":       count,
					"offset":      offset,
					"photo_sizes": true,
				}, 25*time.Second)
				if err != nil {
					return nil, err
				}
				var page vkapi.Paged[vkapi.Photo]
				if err := json.Unmarshal(raw, &page); err != nil {
					return nil, fmt.Errorf("decode photos.get page: %w", err)
				}
				return page.Items, nil
			})
		if err != nil {
			return total, err
		}

		jobs := make([]downloader.Job, 0, len(photos))
		for _, p := range photos {
			url := p.BestSizeURL()
			if url == "" {
				continue
			}
			jobs = append(jobs, downloader.Job{
				ID:     itemID(p.OwnerID, p.ID),
				URL:    url,
				Target: filepath.Join(albumDir, mediaFilename(p.OwnerID, p.ID, extFromURL(url))),
			})
		}

		summary := a.pool.Run(ctx, jobs)
		total.Attempted += summary.Attempted
		total.Downloaded += summary.Downloaded
		total.Skipped += summary.Skipped
		total.Failed += summary.Failed

		if a.opts.MaxItems > 0 {
			remaining -= len(photos)
		}
	}

	return total, nil
}

func (a *Archiver) fetchAlbums(ctx context.Context, target Target) ([]vkapi.Album, error) {
	return collectPaged(ctx, a.state, "photos", a.opts.PageSize, 0,
		func(ctx context.Context, offset, count int) ([]vkapi.Album, error) {
			raw, err := a.api.CallWithTimeout(ctx, "photos.getAlbums", vkapi.Params{
				"owner_id":    target.OwnerID(),
				"count":       count,
				"offset":      offset,
				"need_system": true,
			}, 20*time.Second)
			if err != nil {
				return nil, err
			}
			var page vkapi.Paged[vkapi.Album]
			if err := json.Unmarshal(raw, &page); err != nil {
				return nil, fmt.Errorf("decode photos.getAlbums page: %w", err)
			}
			return page.Items, nil
		})
}

// ResetResume drops every persisted cursor so the next run re-scans from the
// beginning. Cursors are deleted, not zeroed: offset and cursor-string fields
// alike must not survive a reset. Already-downloaded files are still skipped
// by the pool.
func (a *Archiver) ResetResume() error {
	for _, key := range a.state.Keys() {
		if err := a.state.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
