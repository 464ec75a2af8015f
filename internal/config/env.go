package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "VOD_"

// DefaultDotEnvFile is loaded before the environment is parsed, if present
const DefaultDotEnvFile = ".env"

// Env holds environment overrides. Unset variables leave the field at its
// zero value, or nil for pointers, and produce no override.
type Env struct {
	DownloadDir     string `env:"DOWNLOAD_DIRECTORY"`
	MaxParallel     *int   `env:"MAX_PARALLEL_DOWNLOADS"`
	Template        string `env:"FILENAME_TEMPLATE"`
	Engine          string `env:"ENGINE"`
	FormatSelector  string `env:"FORMAT_SELECTOR"`
	ProcessCommand  string `env:"PROCESS_COMMAND"`
	PollIntervalMs  *int   `env:"POLL_INTERVAL_MS"`
	CookiesFile     string `env:"COOKIES_FILE"`
	Headers         string `env:"HEADERS"`
	ExpandPlaylists *bool  `env:"EXPAND_PLAYLISTS"`
	ListenAddr      string `env:"LISTEN_ADDR"`
	RedisAddress    string `env:"REDIS_ADDRESS"`
	RedisStream     string `env:"REDIS_STREAM"`
	LogLevel        string `env:"LOG_LEVEL"`
}

// LoadEnv loads dotenvFile when it exists, then parses VOD_* variables.
// Variables already set in the process environment win over the file.
func LoadEnv(dotenvFile string) (Env, error) {
	if dotenvFile != "" {
		if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, fmt.Errorf("failed to load %s: %w", dotenvFile, err)
		}
	}

	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Prefix: EnvPrefix}); err != nil {
		return Env{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return e, nil
}

// Values returns the overrides keyed by settings key
func (e Env) Values() map[string]any {
	values := make(map[string]any)
	strs := map[string]string{
		KeyDownloadDir:      e.DownloadDir,
		KeyFilenameTemplate: e.Template,
		KeyEngine:           e.Engine,
		KeyFormatSelector:   e.FormatSelector,
		KeyProcessCommand:   e.ProcessCommand,
		KeyCookiesFile:      e.CookiesFile,
		KeyHeaders:          e.Headers,
		KeyListenAddr:       e.ListenAddr,
		KeyRedisAddress:     e.RedisAddress,
		KeyRedisStream:      e.RedisStream,
		KeyLogLevel:         e.LogLevel,
	}
	for k, v := range strs {
		if v != "" {
			values[k] = v
		}
	}
	if e.MaxParallel != nil {
		values[KeyMaxParallel] = *e.MaxParallel
	}
	if e.PollIntervalMs != nil {
		values[KeyPollInterval] = *e.PollIntervalMs
	}
	if e.ExpandPlaylists != nil {
		values[KeyExpandPlaylists] = *e.ExpandPlaylists
	}
	return values
}
