package config

import (
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
)

func TestFromApp(t *testing.T) {
	app := test.NewApp()
	settings := FromApp(app)

	settings.SetFilenameTemplate("{title}.mp4")
	if got := app.Preferences().String(KeyFilenameTemplate); got != "{title}.mp4" {
		t.Errorf("Settings should write through to app preferences, got %q", got)
	}
}

func TestDownloadDirectory(t *testing.T) {
	settings := FromApp(test.NewApp())

	// Test default value
	if dir := settings.GetDownloadDirectory(); dir == "" {
		t.Error("Download directory should not be empty")
	}

	customDir := "/custom/downloads"
	settings.SetDownloadDirectory(customDir)

	if got := settings.GetDownloadDirectory(); got != customDir {
		t.Errorf("Expected download directory %s, got %s", customDir, got)
	}
}

func TestMaxParallelDownloads(t *testing.T) {
	settings := FromApp(test.NewApp())

	if got := settings.GetMaxParallelDownloads(); got != DefaultMaxParallel {
		t.Errorf("Expected default max parallel %d, got %d", DefaultMaxParallel, got)
	}

	settings.SetMaxParallelDownloads(5)
	if got := settings.GetMaxParallelDownloads(); got != 5 {
		t.Errorf("Expected max parallel 5, got %d", got)
	}

	settings.SetMaxParallelDownloads(0) // Should be clamped to 1
	if settings.GetMaxParallelDownloads() != 1 {
		t.Error("Max parallel should be clamped to minimum 1")
	}

	settings.SetMaxParallelDownloads(15) // Should be clamped to 10
	if settings.GetMaxParallelDownloads() != 10 {
		t.Error("Max parallel should be clamped to maximum 10")
	}
}

func TestFilenameTemplate(t *testing.T) {
	settings := FromApp(test.NewApp())

	if got := settings.GetFilenameTemplate(); got != DefaultFilenameTemplate {
		t.Errorf("Expected default template %s, got %s", DefaultFilenameTemplate, got)
	}

	customTemplate := "{artist} - {title}"
	settings.SetFilenameTemplate(customTemplate)
	if got := settings.GetFilenameTemplate(); got != customTemplate {
		t.Errorf("Expected template %s, got %s", customTemplate, got)
	}

	// Empty template defaults back
	settings.SetFilenameTemplate("")
	if got := settings.GetFilenameTemplate(); got != DefaultFilenameTemplate {
		t.Errorf("Empty template should default to %s, got %s", DefaultFilenameTemplate, got)
	}
}

func TestEngine(t *testing.T) {
	settings := NewSettings(NewMemoryStore())

	if got := settings.GetEngine(); got != DefaultEngine {
		t.Errorf("Expected default engine %s, got %s", DefaultEngine, got)
	}

	settings.SetEngine(EngineProcess)
	if got := settings.GetEngine(); got != EngineProcess {
		t.Errorf("Expected engine %s, got %s", EngineProcess, got)
	}

	settings.SetEngine("torrent")
	if got := settings.GetEngine(); got != EngineProcess {
		t.Errorf("Unknown engine should be ignored, got %s", got)
	}

	if len(settings.GetEngineOptions()) != 3 {
		t.Errorf("Expected 3 engine options, got %v", settings.GetEngineOptions())
	}
}

func TestDefaults(t *testing.T) {
	settings := NewSettings(NewMemoryStore())

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"format selector", settings.GetFormatSelector(), DefaultFormatSelector},
		{"process command", settings.GetProcessCommand(), DefaultProcessCommand},
		{"listen addr", settings.GetListenAddr(), DefaultListenAddr},
		{"redis stream", settings.GetRedisStream(), DefaultRedisStream},
		{"log level", settings.GetLogLevel(), DefaultLogLevel},
		{"redis address", settings.GetRedisAddress(), ""},
		{"cookies file", settings.GetCookiesFile(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.got)
			}
		})
	}

	if got := settings.GetPollInterval(); got != 100*time.Millisecond {
		t.Errorf("Expected default poll interval 100ms, got %v", got)
	}
	if settings.GetExpandPlaylists() {
		t.Error("Playlist expansion should default to off")
	}
	if len(settings.GetHeaders()) != 0 {
		t.Errorf("Expected no headers, got %v", settings.GetHeaders())
	}
}

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders("Referer: https://example.com/a, X-Token:abc , broken,  : empty")

	if len(headers) != 2 {
		t.Fatalf("Expected 2 headers, got %v", headers)
	}
	if headers["Referer"] != "https://example.com/a" {
		t.Errorf("Unexpected Referer %q", headers["Referer"])
	}
	if headers["X-Token"] != "abc" {
		t.Errorf("Unexpected X-Token %q", headers["X-Token"])
	}
}
