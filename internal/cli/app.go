package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ytget/vod-downloader/internal/config"
	"github.com/ytget/vod-downloader/internal/download"
	"github.com/ytget/vod-downloader/internal/engine"
	"github.com/ytget/vod-downloader/internal/platform"
	"github.com/ytget/vod-downloader/internal/report"
)

// Timeouts for startup and teardown
const (
	RedisConnectTimeout = 5 * time.Second
	ShutdownTimeout     = 10 * time.Second
)

// stack is a wired controller with its reporter
type stack struct {
	svc      *download.Service
	reporter *report.Reporter
	closers  []func()
}

// newEngine selects the engine named in settings
func newEngine(s *config.Settings) (engine.Engine, engine.Resolver) {
	switch s.GetEngine() {
	case config.EngineHTTP:
		e := engine.NewHTTP(nil)
		return e, e
	case config.EngineProcess:
		// The child process cannot resolve names; the library client can.
		return engine.NewProcess(s.GetProcessCommand(), s.GetPollInterval()), engine.NewYTDLP(0)
	default:
		e := engine.NewYTDLP(0)
		return e, e
	}
}

// newStack builds the reporter, optional Redis sink and service. Extra
// sinks receive every status event alongside the log sink.
func newStack(ctx context.Context, s *config.Settings, sinks ...report.Sink) (*stack, error) {
	dir := s.GetDownloadDirectory()
	if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	rt := &stack{}
	rt.reporter = report.NewReporter(report.DefaultProgressInterval, append([]report.Sink{report.NewLogSink()}, sinks...)...)
	rt.closers = append(rt.closers, rt.reporter.Close)

	if addr := s.GetRedisAddress(); addr != "" {
		connectCtx, cancel := context.WithTimeout(ctx, RedisConnectTimeout)
		client, err := report.NewRedisClient(connectCtx, addr, "", 0)
		cancel()
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		rt.reporter.Attach(report.NewRedisSink(client, s.GetRedisStream()))
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		log.Info().Str("addr", addr).Str("stream", s.GetRedisStream()).Msg("publishing status events")
	}

	eng, resolver := newEngine(s)
	opts := download.Options{
		MaxParallel: s.GetMaxParallelDownloads(),
		Dir:         dir,
		Template:    s.GetFilenameTemplate(),
		Format:      s.GetFormatSelector(),
		Headers:     s.GetHeaders(),
		CookiesFile: s.GetCookiesFile(),
		Engine:      eng,
		Resolver:    resolver,
		Reporter:    rt.reporter,
	}
	if s.GetExpandPlaylists() {
		opts.Expander = platform.NewPlaylistExpander()
	}
	rt.svc = download.NewService(opts)

	log.Info().
		Str("engine", s.GetEngine()).
		Int("parallel", s.GetMaxParallelDownloads()).
		Str("dir", dir).
		Bool("pause", eng.Capabilities().Pause).
		Msg("download service ready")

	return rt, nil
}

// shutdown stops every task, waits for runs to unwind, then flushes sinks
func (rt *stack) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := rt.svc.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown timed out; running transfers were cancelled")
	}
	rt.close()
}

func (rt *stack) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}
