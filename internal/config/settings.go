package config

import (
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"github.com/ytget/vod-downloader/internal/naming"
	"github.com/ytget/vod-downloader/internal/platform"
)

// Engine names
const (
	EngineYTDLP   = "ytdlp"
	EngineHTTP    = "http"
	EngineProcess = "process"
)

// Settings keys shared by every preference store
const (
	KeyDownloadDir      = "download_directory"
	KeyMaxParallel      = "max_parallel_downloads"
	KeyFilenameTemplate = "filename_template"
	KeyEngine           = "engine"
	KeyFormatSelector   = "format_selector"
	KeyProcessCommand   = "process_command"
	KeyPollInterval     = "poll_interval_ms"
	KeyCookiesFile      = "cookies_file"
	KeyHeaders          = "headers"
	KeyExpandPlaylists  = "expand_playlists"
	KeyListenAddr       = "listen_addr"
	KeyRedisAddress     = "redis_address"
	KeyRedisStream      = "redis_stream"
	KeyLogLevel         = "log_level"
)

// Default values
const (
	DefaultMaxParallel      = 4
	MinParallel             = 1
	MaxParallel             = 10
	DefaultFilenameTemplate = naming.DefaultTemplate
	DefaultEngine           = EngineYTDLP
	DefaultFormatSelector   = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	DefaultProcessCommand   = "yt-dlp"
	DefaultPollIntervalMs   = 100
	DefaultListenAddr       = ":8080"
	DefaultRedisStream      = "vod:events"
	DefaultLogLevel         = "info"
	fallbackDownloadDir     = "/tmp/downloads"
)

// Preferences is the subset of fyne.Preferences the settings use
type Preferences interface {
	String(key string) string
	SetString(key string, value string)
	Int(key string) int
	SetInt(key string, value int)
	BoolWithFallback(key string, fallback bool) bool
	SetBool(key string, value bool)
}

var _ Preferences = (fyne.Preferences)(nil)

// Settings manages application configuration
type Settings struct {
	prefs Preferences
}

// NewSettings creates a settings manager over prefs
func NewSettings(prefs Preferences) *Settings {
	return &Settings{prefs: prefs}
}

// FromApp creates a settings manager over the fyne application preferences
func FromApp(app fyne.App) *Settings {
	return NewSettings(app.Preferences())
}

// GetDownloadDirectory returns the configured download directory
func (s *Settings) GetDownloadDirectory() string {
	dir := s.prefs.String(KeyDownloadDir)
	if dir == "" {
		defaultDir, err := platform.GetHomeDownloadsDir()
		if err != nil {
			defaultDir = fallbackDownloadDir
		}
		return defaultDir
	}
	return dir
}

// SetDownloadDirectory sets the download directory
func (s *Settings) SetDownloadDirectory(dir string) {
	s.prefs.SetString(KeyDownloadDir, dir)
}

// GetMaxParallelDownloads returns the slot limit
func (s *Settings) GetMaxParallelDownloads() int {
	value := s.prefs.Int(KeyMaxParallel)
	if value <= 0 {
		return DefaultMaxParallel
	}
	return ClampParallel(value)
}

// SetMaxParallelDownloads sets the slot limit, clamped to [1,10]
func (s *Settings) SetMaxParallelDownloads(count int) {
	s.prefs.SetInt(KeyMaxParallel, ClampParallel(count))
}

// ClampParallel bounds a slot limit to the supported range
func ClampParallel(count int) int {
	if count < MinParallel {
		return MinParallel
	}
	if count > MaxParallel {
		return MaxParallel
	}
	return count
}

// GetFilenameTemplate returns the destination template
func (s *Settings) GetFilenameTemplate() string {
	return s.stringOr(KeyFilenameTemplate, DefaultFilenameTemplate)
}

// SetFilenameTemplate sets the destination template
func (s *Settings) SetFilenameTemplate(template string) {
	if template == "" {
		template = DefaultFilenameTemplate
	}
	s.prefs.SetString(KeyFilenameTemplate, template)
}

// GetEngine returns the configured engine name, falling back to the default
// for unknown values
func (s *Settings) GetEngine() string {
	name := s.prefs.String(KeyEngine)
	if !ValidEngine(name) {
		return DefaultEngine
	}
	return name
}

// SetEngine sets the engine name; unknown names are ignored
func (s *Settings) SetEngine(name string) {
	if ValidEngine(name) {
		s.prefs.SetString(KeyEngine, name)
	}
}

// ValidEngine reports whether name is a known engine
func ValidEngine(name string) bool {
	switch name {
	case EngineYTDLP, EngineHTTP, EngineProcess:
		return true
	}
	return false
}

// GetEngineOptions returns available engine names
func (s *Settings) GetEngineOptions() []string {
	return []string{EngineYTDLP, EngineHTTP, EngineProcess}
}

// GetFormatSelector returns the yt-dlp format selector
func (s *Settings) GetFormatSelector() string {
	return s.stringOr(KeyFormatSelector, DefaultFormatSelector)
}

// GetProcessCommand returns the executable used by the process engine
func (s *Settings) GetProcessCommand() string {
	return s.stringOr(KeyProcessCommand, DefaultProcessCommand)
}

// GetPollInterval returns how often the process engine samples the control flag
func (s *Settings) GetPollInterval() time.Duration {
	ms := s.prefs.Int(KeyPollInterval)
	if ms <= 0 {
		ms = DefaultPollIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

// GetCookiesFile returns the cookies file path, if any
func (s *Settings) GetCookiesFile() string {
	return s.prefs.String(KeyCookiesFile)
}

// GetHeaders returns the extra request headers
func (s *Settings) GetHeaders() map[string]string {
	return ParseHeaders(s.prefs.String(KeyHeaders))
}

// GetExpandPlaylists returns whether playlist URLs are expanded into entries
func (s *Settings) GetExpandPlaylists() bool {
	return s.prefs.BoolWithFallback(KeyExpandPlaylists, false)
}

// SetExpandPlaylists sets playlist expansion
func (s *Settings) SetExpandPlaylists(expand bool) {
	s.prefs.SetBool(KeyExpandPlaylists, expand)
}

// GetListenAddr returns the control API listen address
func (s *Settings) GetListenAddr() string {
	return s.stringOr(KeyListenAddr, DefaultListenAddr)
}

// GetRedisAddress returns the Redis address; empty disables the stream sink
func (s *Settings) GetRedisAddress() string {
	return s.prefs.String(KeyRedisAddress)
}

// GetRedisStream returns the stream status events are published to
func (s *Settings) GetRedisStream() string {
	return s.stringOr(KeyRedisStream, DefaultRedisStream)
}

// GetLogLevel returns the log level name
func (s *Settings) GetLogLevel() string {
	return s.stringOr(KeyLogLevel, DefaultLogLevel)
}

func (s *Settings) stringOr(key, fallback string) string {
	if v := s.prefs.String(key); v != "" {
		return v
	}
	return fallback
}

// ParseHeaders parses "Key: Value" pairs separated by commas. Malformed
// pairs are skipped.
func ParseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers
}
