package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"vkarchiver/internal/downloader"
	"vkarchiver/pkg/vkapi"
)

// DownloadWall pages through the target's wall, dumps the posts to
// wall/posts.yaml and downloads photo and document attachments, including
// those buried in reposts.
func (a *Archiver) DownloadWall(ctx context.Context, target Target) (downloader.Summary, error) {
	wallDir := a.typeDir("wall")
	if err := ensureDir(wallDir); err != nil {
		return downloader.Summary{}, err
	}

	posts, err := collectPaged(ctx, a.state, "wall", a.opts.PageSize, a.opts.MaxItems,
		func(ctx context.Context, offset, count int) ([]vkapi.WallPost, error) {
			raw, err := a.api.Call(ctx, "wall.get", vkapi.Params{
				"owner_id": target.OwnerID(),
				"count":    count,
				"offset":   offset,
			})
			if err != nil {
				return nil, err
			}
			var page vkapi.Paged[vkapi.WallPost]
			if err := json.Unmarshal(raw, &page); err != nil {
				return nil, fmt.Errorf("decode wall.get page: %w", err)
			}
			return page.Items, nil
		})
	if err != nil {
		return downloader.Summary{}, err
	}

	a.logger.InfoWithFields("wall posts fetched", map[string]interface{}{
		"target": target.Name,
		"count":  len(posts),
	})

	if len(posts) > 0 {
		if err := writeYAML(filepath.Join(wallDir, "posts.yaml"), posts); err != nil {
			return downloader.Summary{}, err
		}
	}

	var jobs []downloader.Job
	seen := make(map[string]struct{})
	for _, post := range posts {
		collectWallJobs(post, wallDir, seen, &jobs)
	}

	return a.pool.Run(ctx, jobs), nil
}

// collectWallJobs walks a post and its repost chain, appending one job per
// downloadable attachment. seen dedups items shared between reposts.
func collectWallJobs(post vkapi.WallPost, dir string, seen map[string]struct{}, jobs *[]downloader.Job) {
	for _, att := range post.Attachments {
		var (
			id  string
			url string
		)
		switch {
		case att.Type == "photo" && att.Photo != nil:
			url = att.Photo.BestSizeURL()
			id = itemID(att.Photo.OwnerID, att.Photo.ID)
		case att.Type == "doc" && att.Doc != nil:
			url = att.Doc.URL
			id = itemID(att.Doc.OwnerID, att.Doc.ID)
		default:
			continue
		}
		if url == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		var target string
		if att.Type == "doc" {
			target = filepath.Join(dir, docFilename(*att.Doc))
		} else {
			target = filepath.Join(dir, mediaFilename(att.Photo.OwnerID, att.Photo.ID, extFromURL(url)))
		}
		*jobs = append(*jobs, downloader.Job{ID: id, URL: url, Target: target})
	}
	for _, repost := range post.CopyHistory {
		collectWallJobs(repost, dir, seen, jobs)
	}
}
