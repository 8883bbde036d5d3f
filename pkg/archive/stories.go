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

// DownloadStories fetches the target's currently visible stories and
// downloads photo stories. Stories are not paginated by offset; the whole
// feed arrives in one call.
func (a *Archiver) DownloadStories(ctx context.Context, target Target) (downloader.Summary, error) {
	storiesDir := a.typeDir("stories")
	if err := ensureDir(storiesDir); err != nil {
		return downloader.Summary{}, err
	}

	raw, err := a.api.CallWithTimeout(ctx, "stories.get", vkapi.Params{
		"owner_id": target.OwnerID(),
	}, 20*time.Second)
	if err != nil {
		return downloader.Summary{}, err
	}

	var feed vkapi.Paged[vkapi.StoryFeed]
	if err := json.Unmarshal(raw, &feed); err != nil {
		return downloader.Summary{}, fmt.Errorf("decode stories.get response: %w", err)
	}

	var jobs []downloader.Job
	for _, group := range feed.Items {
		for _, story := range group.Stories {
			if story.Type != "photo" || story.Photo == nil {
				continue
			}
			url := story.Photo.BestSizeURL()
			if url == "" {
				continue
			}
			jobs = append(jobs, downloader.Job{
				ID:     itemID(story.OwnerID, story.ID),
				URL:    url,
				Target: filepath.Join(storiesDir, mediaFilename(story.OwnerID, story.ID, extFromURL(url))),
			})
		}
	}

	a.logger.InfoWithFields("stories found", map[string]interface{}{
		"target": target.Name,
		"count":  len(jobs),
	})

	return a.pool.Run(ctx, jobs), nil
}
