package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"vkarchiver/internal/downloader"
	"vkarchiver/pkg/state"
	"vkarchiver/pkg/vkapi"
)

// DownloadChat archives photo and document attachments from one conversation.
// peerID follows VK addressing: a user id for a dialog, 2000000000+chat_id for
// a group chat.
//
// messages.getHistoryAttachments pages through an opaque next_from cursor
// rather than an offset, so the resume cursor stores the string directly.
func (a *Archiver) DownloadChat(ctx context.Context, peerID int64) (downloader.Summary, error) {
	chatDir := a.typeDir(fmt.Sprintf("chat_%d", peerID))
	if err := ensureDir(chatDir); err != nil {
		return downloader.Summary{}, err
	}

	var total downloader.Summary
	for _, mediaType := range []string{"photo", "doc"} {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		jobs, err := a.collectChatJobs(ctx, peerID, mediaType, chatDir)
		if err != nil {
			return total, err
		}
		summary := a.pool.Run(ctx, jobs)
		total.Attempted += summary.Attempted
		total.Downloaded += summary.Downloaded
		total.Skipped += summary.Skipped
		total.Failed += summary.Failed
	}

	a.logger.InfoWithFields("chat archived", map[string]interface{}{
		"peer_id":    peerID,
		"attempted":  total.Attempted,
		"downloaded": total.Downloaded,
		"skipped":    total.Skipped,
		"failed":     total.Failed,
	})
	return total, nil
}

func (a *Archiver) collectChatJobs(ctx context.Context, peerID int64, mediaType, dir string) ([]downloader.Job, error) {
	key := fmt.Sprintf("chat_%d_%s", peerID, mediaType)
	cursor, _ := a.state.Get(key)["start_from"].(string)

	var jobs []downloader.Job
	seen := make(map[string]struct{})
	for {
		if err := ctx.Err(); err != nil {
			return jobs, err
		}

		params := vkapi.Params{
			"peer_id":    peerID,
			"media_type": mediaType,
			"count":      a.opts.PageSize,
		}
		if cursor != "" {
			params["start_from"] = cursor
		}
		raw, err := a.api.CallWithTimeout(ctx, "messages.getHistoryAttachments", params, 25*time.Second)
		if err != nil {
			return jobs, err
		}
		var page vkapi.AttachmentHistory
		if err := json.Unmarshal(raw, &page); err != nil {
			return jobs, fmt.Errorf("decode messages.getHistoryAttachments page: %w", err)
		}

		for _, item := range page.Items {
			att := item.Attachment
			var (
				id     string
				url    string
				target string
			)
			switch {
			case att.Type == "photo" && att.Photo != nil:
				url = att.Photo.BestSizeURL()
				id = itemID(att.Photo.OwnerID, att.Photo.ID)
				target = filepath.Join(dir, mediaFilename(att.Photo.OwnerID, att.Photo.ID, extFromURL(url)))
			case att.Type == "doc" && att.Doc != nil:
				url = att.Doc.URL
				id = itemID(att.Doc.OwnerID, att.Doc.ID)
				target = filepath.Join(dir, docFilename(*att.Doc))
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
			jobs = append(jobs, downloader.Job{ID: id, URL: url, Target: target})

			if a.opts.MaxItems > 0 && len(jobs) >= a.opts.MaxItems {
				return jobs, nil
			}
		}

		if page.NextFrom == "" || len(page.Items) == 0 {
			return jobs, nil
		}
		cursor = page.NextFrom
		if err := a.state.Update(key, state.Cursor{"start_from": cursor}); err != nil {
			return jobs, err
		}
	}
}
