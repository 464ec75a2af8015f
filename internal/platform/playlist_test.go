package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ytget/vod-downloader/internal/model"
	"github.com/ytget/ytdlp/types"
)

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"playlist page", "https://www.youtube.com/playlist?list=PL123", "PL123"},
		{"watch with list", "https://www.youtube.com/watch?v=abc&list=PL456", "PL456"},
		{"trailing params", "https://www.youtube.com/watch?v=abc&list=PL789&start_radio=1", "PL789"},
		{"no list", "https://www.youtube.com/watch?v=abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPlaylistID(tt.url); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPlaylistExpander_IsPlaylist(t *testing.T) {
	p := NewPlaylistExpander()
	if !p.IsPlaylist("https://www.youtube.com/playlist?list=PL1") {
		t.Error("playlist URL should be recognized")
	}
	if p.IsPlaylist("https://www.youtube.com/watch?v=abc") {
		t.Error("single video URL should not be a playlist")
	}
}

func TestPlaylistExpander_Expand(t *testing.T) {
	var gotID string
	p := &PlaylistExpander{
		timeout: time.Second,
		items: func(ctx context.Context, playlistID string) ([]model.PlaylistEntry, error) {
			gotID = playlistID
			if _, ok := ctx.Deadline(); !ok {
				t.Error("expansion context should carry a deadline")
			}
			return []model.PlaylistEntry{{ID: "a", Source: "https://www.youtube.com/watch?v=a", Title: "A"}}, nil
		},
	}

	entries, err := p.Expand(context.Background(), "https://www.youtube.com/watch?v=x&list=PLx&index=2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != "PLx" {
		t.Errorf("expected playlist ID PLx, got %q", gotID)
	}
	if len(entries) != 1 || entries[0].ID != "a" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestPlaylistExpander_ExpandErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		source string
		items  itemsFunc
	}{
		{"missing id", "https://www.youtube.com/watch?v=abc", nil},
		{"library error", "https://www.youtube.com/playlist?list=PL1", func(context.Context, string) ([]model.PlaylistEntry, error) {
			return nil, boom
		}},
		{"empty playlist", "https://www.youtube.com/playlist?list=PL1", func(context.Context, string) ([]model.PlaylistEntry, error) {
			return nil, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &PlaylistExpander{items: tt.items}
			if _, err := p.Expand(context.Background(), tt.source); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestEntriesFromItems(t *testing.T) {
	entries := entriesFromItems([]types.PlaylistItem{
		{VideoID: "abc", Title: "First", Index: 1},
		{VideoID: "", Title: "Deleted video", Index: 2},
		{VideoID: "def", Title: "Third", Index: 3},
	})

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Source != "https://www.youtube.com/watch?v=abc" || entries[0].Title != "First" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].ID != "def" {
		t.Errorf("expected def, got %s", entries[1].ID)
	}
}
