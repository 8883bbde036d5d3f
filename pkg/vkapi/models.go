package vkapi

// Paged is the VK list envelope shared by wall.get, photos.get, video.get
// and docs.get.
type Paged[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

// User is the subset of users.get the archiver consumes.
type User struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	ScreenName string `json:"screen_name"`
	IsClosed   bool   `json:"is_closed"`
}

// Group is the subset of groups.getById the archiver consumes.
type Group struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
	IsClosed   int    `json:"is_closed"`
}

// PhotoSize is one rendition of a photo; VK orders sizes ascending.
type PhotoSize struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Photo is an item from photos.get / photos.getAll.
type Photo struct {
	ID      int64       `json:"id"`
	AlbumID int64       `json:"album_id"`
	OwnerID int64       `json:"owner_id"`
	Date    int64       `json:"date"`
	Text    string      `json:"text"`
	Sizes   []PhotoSize `json:"sizes"`
}

// BestSizeURL returns the URL of the largest available rendition, preferring
// the maximum pixel area and falling back to VK's size ordering.
func (p Photo) BestSizeURL() string {
	if len(p.Sizes) == 0 {
		return ""
	}
	best := p.Sizes[len(p.Sizes)-1]
	bestArea := best.Width * best.Height
	for _, s := range p.Sizes {
		if area := s.Width * s.Height; area > bestArea {
			best, bestArea = s, area
		}
	}
	return best.URL
}

// Album is an item from photos.getAlbums.
type Album struct {
	ID          int64  `json:"id"`
	OwnerID     int64  `json:"owner_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Size        int    `json:"size"`
}

// Video is an item from video.get. Binary download goes through the player
// URL, which the archiver records as metadata only.
type Video struct {
	ID       int64  `json:"id"`
	OwnerID  int64  `json:"owner_id"`
	Title    string `json:"title"`
	Duration int    `json:"duration"`
	Player   string `json:"player"`
	Platform string `json:"platform"`
}

// Document is an item from docs.get.
type Document struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Title   string `json:"title"`
	Size    int64  `json:"size"`
	Ext     string `json:"ext"`
	URL     string `json:"url"`
}

// Story is an item from stories.get; photo stories carry a Photo, video
// stories a Video.
type Story struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Type    string `json:"type"`
	Photo   *Photo `json:"photo,omitempty"`
	Video   *Video `json:"video,omitempty"`
}

// StoryFeed is one grouping in the stories.get response.
type StoryFeed struct {
	Type    string  `json:"type"`
	Stories []Story `json:"stories"`
}

// Attachment is a wall post attachment; exactly one payload field matches
// Type.
type Attachment struct {
	Type  string    `json:"type"`
	Photo *Photo    `json:"photo,omitempty"`
	Video *Video    `json:"video,omitempty"`
	Doc   *Document `json:"doc,omitempty"`
}

// WallPost is an item from wall.get, including reposted content.
type WallPost struct {
	ID          int64        `json:"id"`
	OwnerID     int64        `json:"owner_id"`
	FromID      int64        `json:"from_id"`
	Date        int64        `json:"date"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments"`
	CopyHistory []WallPost   `json:"copy_history"`
}

// HistoryAttachment is one item from messages.getHistoryAttachments.
type HistoryAttachment struct {
	MessageID  int64      `json:"message_id"`
	Attachment Attachment `json:"attachment"`
}

// AttachmentHistory is the messages.getHistoryAttachments page. Unlike the
// offset-paged lists, history pages chain through an opaque NextFrom cursor.
type AttachmentHistory struct {
	Items    []HistoryAttachment `json:"items"`
	NextFrom string              `json:"next_from"`
}

// ResolvedScreenName is the utils.resolveScreenName response.
type ResolvedScreenName struct {
	Type     string `json:"type"`
	ObjectID int64  `json:"object_id"`
}
