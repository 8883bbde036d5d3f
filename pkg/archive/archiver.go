package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"vkarchiver/internal/downloader"
	"vkarchiver/pkg/consistency"
	"vkarchiver/pkg/logger"
	"vkarchiver/pkg/state"
	"vkarchiver/pkg/vkapi"
)

const defaultPageSize = 100

// Invoker is the slice of the API executor the downloaders use.
type Invoker interface {
	Call(ctx context.Context, method string, params vkapi.Params) (json.RawMessage, error)
	CallWithTimeout(ctx context.Context, method string, params vkapi.Params, timeout time.Duration) (json.RawMessage, error)
}

// Options controls one archiving run.
type Options struct {
	// MaxItems caps the number of items per content type. Zero means all.
	MaxItems int
	// PageSize for paginated API calls.
	PageSize int
}

// Target is a resolved archiving subject.
type Target struct {
	// Kind is "user" or "group".
	Kind string
	// ID is the positive VK identifier.
	ID int64
	// Name is a human-readable label used for the directory name.
	Name string
}

// OwnerID returns the wall/photos owner id: groups are addressed negatively.
func (t Target) OwnerID() int64 {
	if t.Kind == "group" {
		return -t.ID
	}
	return t.ID
}

// Archiver coordinates the per-content-type downloaders for one target.
// All collaborators are injected; the archiver holds no global state.
type Archiver struct {
	api     Invoker
	store   *consistency.Store
	state   *state.Store
	pool    *downloader.Pool
	baseDir string
	opts    Options
	logger  logger.Logger
}

// New creates an Archiver writing under baseDir, with resume state at
// baseDir/state.json.
func New(api Invoker, store *consistency.Store, pool *downloader.Pool, baseDir string, opts Options, log logger.Logger) *Archiver {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	return &Archiver{
		api:     api,
		store:   store,
		state:   state.Open(filepath.Join(baseDir, "state.json")),
		pool:    pool,
		baseDir: baseDir,
		opts:    opts,
		logger:  log,
	}
}

// State exposes the resume store, mainly for inspection commands.
func (a *Archiver) State() *state.Store {
	return a.state
}

// Resolve turns a user input (numeric id, screen name, or vk.com URL tail)
// into a Target.
func (a *Archiver) Resolve(ctx context.Context, input string) (Target, error) {
	if id, err := strconv.ParseInt(input, 10, 64); err == nil {
		if id < 0 {
			return a.resolveGroup(ctx, -id)
		}
		return a.resolveUser(ctx, id)
	}

	raw, err := a.api.Call(ctx, "utils.resolveScreenName", vkapi.Params{"screen_name": input})
	if err != nil {
		return Target{}, fmt.Errorf("resolve %q: %w", input, err)
	}
	var resolved vkapi.ResolvedScreenName
	if err := json.Unmarshal(raw, &resolved); err != nil {
		return Target{}, fmt.Errorf("decode resolveScreenName response: %w", err)
	}
	switch resolved.Type {
	case "user":
		return a.resolveUser(ctx, resolved.ObjectID)
	case "group", "page", "public":
		return a.resolveGroup(ctx, resolved.ObjectID)
	default:
		return Target{}, fmt.Errorf("cannot archive %q: unsupported entity type %q", input, resolved.Type)
	}
}

func (a *Archiver) resolveUser(ctx context.Context, id int64) (Target, error) {
	raw, err := a.api.Call(ctx, "users.get", vkapi.Params{"user_ids": id, "fields": "screen_name"})
	if err != nil {
		return Target{}, fmt.Errorf("users.get %d: %w", id, err)
	}
	var users []vkapi.User
	if err := json.Unmarshal(raw, &users); err != nil || len(users) == 0 {
		return Target{}, fmt.Errorf("user %d not found", id)
	}
	u := users[0]
	name := sanitizeTitle(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
	if name == "" {
		name = strconv.FormatInt(u.ID, 10)
	}
	return Target{Kind: "user", ID: u.ID, Name: name}, nil
}

func (a *Archiver) resolveGroup(ctx context.Context, id int64) (Target, error) {
	raw, err := a.api.Call(ctx, "groups.getById", vkapi.Params{"group_id": id})
	if err != nil {
		return Target{}, fmt.Errorf("groups.getById %d: %w", id, err)
	}
	// 5.199 wraps the list in {"groups": [...]}; older versions return a
	// bare list. Accept both.
	var wrapped struct {
		Groups []vkapi.Group `json:"groups"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped.Groups) == 0 {
		var groups []vkapi.Group
		if err := json.Unmarshal(raw, &groups); err != nil || len(groups) == 0 {
			return Target{}, fmt.Errorf("group %d not found", id)
		}
		wrapped.Groups = groups
	}
	g := wrapped.Groups[0]
	name := sanitizeTitle(g.Name)
	if name == "" {
		name = strconv.FormatInt(g.ID, 10)
	}
	return Target{Kind: "group", ID: g.ID, Name: name}, nil
}

// Run archives every supported content type for the target. Per-type
// failures are logged and do not stop the remaining types.
func (a *Archiver) Run(ctx context.Context, target Target) downloader.Summary {
	var total downloader.Summary

	steps := []struct {
		name string
		run  func(context.Context, Target) (downloader.Summary, error)
	}{
		{"photos", a.DownloadPhotos},
		{"wall", a.DownloadWall},
		{"documents", a.DownloadDocuments},
		{"videos", a.DownloadVideos},
		{"stories", a.DownloadStories},
	}

	for _, step := range steps {
		if ctx.Err() != nil {
			break
		}
		summary, err := step.run(ctx, target)
		if err != nil {
			a.logger.ErrorWithFields("content type failed", map[string]interface{}{
				"type":  step.name,
				"error": err.Error(),
			})
		}
		total.Attempted += summary.Attempted
		total.Downloaded += summary.Downloaded
		total.Skipped += summary.Skipped
		total.Failed += summary.Failed
	}

	a.logger.InfoWithFields("archive run finished", map[string]interface{}{
		"target":     target.Name,
		"attempted":  total.Attempted,
		"downloaded": total.Downloaded,
		"skipped":    total.Skipped,
		"failed":     total.Failed,
	})
	return total
}

func (a *Archiver) typeDir(name string) string {
	return filepath.Join(a.baseDir, name)
}
