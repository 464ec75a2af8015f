package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// countingMonitor records progress and stops after a number of check points
type countingMonitor struct {
	progress  atomic.Int32
	checks    atomic.Int32
	stopAfter int32 // 0 never stops
}

func (m *countingMonitor) Progress(Progress) { m.progress.Add(1) }

func (m *countingMonitor) Continue() bool {
	n := m.checks.Add(1)
	return m.stopAfter == 0 || n < m.stopAfter
}

func TestHTTP_FetchWritesAndRenames(t *testing.T) {
	body := strings.Repeat("x", 3*httpChunkSize+10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "clip.mp4")
	mon := &countingMonitor{}

	res, err := NewHTTP(nil).Fetch(context.Background(), Request{
		Source:      srv.URL + "/media/clip.mp4",
		Destination: dest,
		Headers:     map[string]string{"X-Token": "secret"},
	}, mon)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if res.Path != dest {
		t.Errorf("expected path %s, got %s", dest, res.Path)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("destination missing: %v", err)
	}
	if len(data) != len(body) {
		t.Errorf("expected %d bytes, got %d", len(body), len(data))
	}
	if _, err := os.Stat(dest + partialSuffix); !os.IsNotExist(err) {
		t.Error("partial file should be renamed away")
	}
	if mon.progress.Load() == 0 {
		t.Error("expected progress callbacks")
	}
}

func TestHTTP_FetchInterrupted(t *testing.T) {
	body := strings.Repeat("y", 8*httpChunkSize)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	req := Request{Source: srv.URL + "/v.mp4", Destination: filepath.Join(dir, "v.mp4")}
	h := NewHTTP(nil)

	_, err := h.Fetch(context.Background(), req, &countingMonitor{stopAfter: 2})
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if _, err := os.Stat(req.Destination); !os.IsNotExist(err) {
		t.Error("destination must not exist after interruption")
	}
	if _, err := os.Stat(req.Destination + partialSuffix); err != nil {
		t.Error("partial file should be kept until discarded")
	}

	if err := h.Discard(req); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if _, err := os.Stat(req.Destination + partialSuffix); !os.IsNotExist(err) {
		t.Error("partial file should be removed by Discard")
	}
	if err := h.Discard(req); err != nil {
		t.Errorf("second Discard should be a no-op, got %v", err)
	}
}

func TestHTTP_FetchStatusCategories(t *testing.T) {
	tests := []struct {
		status   int
		category string
	}{
		{http.StatusUnauthorized, CategoryAuth},
		{http.StatusNotFound, CategoryNotFound},
		{http.StatusBadGateway, CategoryNetwork},
	}

	for _, test := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(test.status)
		}))

		_, err := NewHTTP(srv.Client()).Fetch(context.Background(), Request{
			Source:      srv.URL + "/a.mp4",
			Destination: filepath.Join(t.TempDir(), "a.mp4"),
		}, &countingMonitor{})
		srv.Close()

		var te *TransferError
		if !errors.As(err, &te) {
			t.Fatalf("status %d: expected TransferError, got %v", test.status, err)
		}
		if te.Category != test.category {
			t.Errorf("status %d: category = %s, expected %s", test.status, te.Category, test.category)
		}
	}
}

func TestHTTP_Resolve(t *testing.T) {
	md, err := NewHTTP(nil).Resolve(context.Background(), Request{
		Source:   "https://cdn.example.com/vod/replay-01.mkv?token=abc",
		Dir:      "/downloads",
		Template: "{artist} {title}",
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if md.Title != "replay-01" {
		t.Errorf("expected title replay-01, got %s", md.Title)
	}
	expected := filepath.Join("/downloads", "cdn.example.com replay-01.mkv")
	if md.Path != expected {
		t.Errorf("expected path %s, got %s", expected, md.Path)
	}
}

func TestMetadataFromURL(t *testing.T) {
	tests := []struct {
		url   string
		title string
		ext   string
	}{
		{"https://example.com/files/report.pdf", "report", "pdf"},
		{"https://example.com/", defaultFileName, ""},
		{"https://example.com/noext", "noext", ""},
	}

	for _, test := range tests {
		md := metadataFromURL(test.url)
		if md.Title != test.title || md.Ext != test.ext {
			t.Errorf("metadataFromURL(%s) = (%s, %s), expected (%s, %s)", test.url, md.Title, md.Ext, test.title, test.ext)
		}
	}
}
