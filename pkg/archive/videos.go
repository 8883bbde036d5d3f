package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"vkarchiver/internal/downloader"
	"vkarchiver/pkg/vkapi"
)

// DownloadVideos fetches the target's video metadata and dumps it to
// videos/videos.yaml. VK serves video binaries through the player page, not
// direct URLs, so the archive records metadata and player links only.
func (a *Archiver) DownloadVideos(ctx context.Context, target Target) (downloader.Summary, error) {
	videosDir := a.typeDir("videos")
	if err := ensureDir(videosDir); err != nil {
		return downloader.Summary{}, err
	}

	videos, err := collectPaged(ctx, a.state, "videos", a.opts.PageSize, a.opts.MaxItems,
		func(ctx context.Context, offset, count int) ([]vkapi.Video, error) {
			raw, err := a.api.Call(ctx, "video.get", vkapi.Params{
				"owner_id": target.OwnerID(),
				"count":    count,
				"offset":   offset,
			})
			if err != nil {
				return nil, err
			}
			var page vkapi.Paged[vkapi.Video]
			if err := json.Unmarshal(raw, &page); err != nil {
				return nil, fmt.Errorf("decode video.get page: %w", err)
			}
			return page.Items, nil
		})
	if err != nil {
		return downloader.Summary{}, err
	}

	a.logger.InfoWithFields("videos fetched", map[string]interface{}{
		"target": target.Name,
		"count":  len(videos),
	})

	if err := writeYAML(filepath.Join(videosDir, "videos.yaml"), videos); err != nil {
		return downloader.Summary{}, err
	}
	return downloader.Summary{}, nil
}
