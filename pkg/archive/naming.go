package archive

import (
	"fmt"
	"strings"
)

// itemID builds the consistency-store identifier for a media item.
func itemID(ownerID, id int64) string {
	return fmt.Sprintf("%d_%d", ownerID, id)
}

// mediaFilename builds the deterministic on-disk name for a media item, so
// re-runs are idempotent at the filesystem level.
func mediaFilename(ownerID, id int64, ext string) string {
	return fmt.Sprintf("%d_%d.%s", ownerID, id, ext)
}

// extFromURL sniffs a file extension from the URL path, defaulting to jpg.
func extFromURL(url string) string {
	path := url
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		ext := strings.ToLower(path[i+1:])
		if len(ext) >= 1 && len(ext) <= 5 && isAlnum(ext) {
			return ext
		}
	}
	return "jpg"
}

func isAlnum(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// sanitizeTitle strips filesystem-hostile characters from album and document
// titles.
func sanitizeTitle(title string) string {
	replacer := strings.NewReplacer(
		"/", " ", "\\", " ", "|", " ", ":", " ", "*", " ",
		"?", " ", "\"", " ", "<", " ", ">", " ", ".", " ",
	)
	return strings.TrimSpace(replacer.Replace(title))
}
