package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/vod-downloader/internal/model"
	"github.com/ytget/ytdlp/types"
	"github.com/ytget/ytdlp/v2"
)

// Timeout constants
const (
	DefaultPlaylistTimeout = 60 * time.Second
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// itemsFunc lists the entries of a playlist by ID
type itemsFunc func(ctx context.Context, playlistID string) ([]model.PlaylistEntry, error)

// PlaylistExpander turns playlist URLs into one entry per video
type PlaylistExpander struct {
	timeout time.Duration
	items   itemsFunc
}

// NewPlaylistExpander creates an expander backed by the ytdlp library
func NewPlaylistExpander() *PlaylistExpander {
	return &PlaylistExpander{
		timeout: DefaultPlaylistTimeout,
		items:   libraryItems,
	}
}

// SetTimeout sets the timeout for a single expansion
func (p *PlaylistExpander) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// IsPlaylist reports whether source carries a playlist parameter
func (p *PlaylistExpander) IsPlaylist(source string) bool {
	return strings.Contains(source, PlaylistParam)
}

// Expand lists the videos of the playlist referenced by source
func (p *PlaylistExpander) Expand(ctx context.Context, source string) ([]model.PlaylistEntry, error) {
	playlistID := ExtractPlaylistID(source)
	if playlistID == "" {
		return nil, fmt.Errorf("could not extract playlist ID from URL: %s", source)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	entries, err := p.items(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("playlist %s has no items", playlistID)
	}
	return entries, nil
}

// ExtractPlaylistID extracts the playlist ID from watch and playlist URLs
func ExtractPlaylistID(url string) string {
	parts := strings.SplitN(url, PlaylistParam, 2)
	if len(parts) < 2 {
		return ""
	}
	id, _, _ := strings.Cut(parts[1], ParamSeparator)
	return id
}

func libraryItems(ctx context.Context, playlistID string) ([]model.PlaylistEntry, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}
	return entriesFromItems(items), nil
}

// entriesFromItems converts library items to entries, dropping items without a video ID
func entriesFromItems(items []types.PlaylistItem) []model.PlaylistEntry {
	entries := make([]model.PlaylistEntry, 0, len(items))
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		entries = append(entries, model.PlaylistEntry{
			ID:     it.VideoID,
			Source: fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
			Title:  it.Title,
		})
	}
	return entries
}
