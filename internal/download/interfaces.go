package download

import (
	"context"

	"github.com/ytget/vod-downloader/internal/engine"
	"github.com/ytget/vod-downloader/internal/model"
	"github.com/ytget/vod-downloader/internal/report"
)

// Controller is the surface presentation layers drive the service through.
type Controller interface {
	Submit(source, template string) (model.Task, error)
	SubmitMany(ctx context.Context, sources []string, template string) ([]model.Task, error)
	Pause(id string) error
	Resume(id string) error
	Stop(id string) error
	StopAll()
	Get(id string) (model.Task, bool)
	List() []model.Task
	Summary() model.Summary
	Capabilities() engine.Capabilities
}

// Reporter receives status events. Report must not block.
type Reporter interface {
	Report(report.Event)
}

// Expander turns a playlist source into its entries
type Expander interface {
	IsPlaylist(source string) bool
	Expand(ctx context.Context, source string) ([]model.PlaylistEntry, error)
}

// ArtifactFunc reports whether a complete artifact exists at path and
// whether a partial sibling is present
type ArtifactFunc func(path string) (complete, partial bool)

var _ Controller = (*Service)(nil)
