package engine

import (
	"path/filepath"
	"testing"

	"github.com/lrstanley/go-ytdlp"
)

func TestYTDLP_Capabilities(t *testing.T) {
	y := NewYTDLP(0)
	if !y.Capabilities().Pause {
		t.Error("yt-dlp engine should support pause")
	}
	if y.interval != DefaultProgressInterval {
		t.Errorf("expected default interval, got %v", y.interval)
	}
}

func TestOutputTemplate(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		expected string
	}{
		{"explicit destination", Request{Destination: "/out/x.mp4", Dir: "/ignored"}, "/out/x.mp4"},
		{"converted template", Request{Dir: "/out", Template: "{title}"}, filepath.Join("/out", "%(title)s.%(ext)s")},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := outputTemplate(test.req); got != test.expected {
				t.Errorf("outputTemplate() = %s, expected %s", got, test.expected)
			}
		})
	}
}

func TestProgressFromUpdate(t *testing.T) {
	title := "Replay"
	p := progressFromUpdate(ytdlp.ProgressUpdate{
		TotalBytes:      200,
		DownloadedBytes: 50,
		Info:            &ytdlp.ExtractedInfo{Title: &title},
	})

	if p.Fraction != 0.25 {
		t.Errorf("expected fraction 0.25, got %v", p.Fraction)
	}
	if p.Downloaded != 50 || p.Total != 200 {
		t.Errorf("unexpected byte counts: %d/%d", p.Downloaded, p.Total)
	}
	if p.Title != "Replay" {
		t.Errorf("expected title Replay, got %s", p.Title)
	}

	empty := progressFromUpdate(ytdlp.ProgressUpdate{})
	if empty.Fraction != 0 || empty.Title != "" || empty.Speed != "" {
		t.Errorf("expected empty progress, got %+v", empty)
	}
}

func TestFormatSpeed(t *testing.T) {
	if got := FormatSpeed(1.5 * 1024 * 1024); got != "1.5MB/s" {
		t.Errorf("FormatSpeed = %s, expected 1.5MB/s", got)
	}
}
