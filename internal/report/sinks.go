package report

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ytget/vod-downloader/internal/model"
)

// LogSink writes events as structured log lines
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink on the global logger
func NewLogSink() *LogSink {
	return &LogSink{logger: log.Logger}
}

// NewLogSinkWith creates a sink on logger
func NewLogSinkWith(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Handle(ev Event) error {
	var e *zerolog.Event
	switch {
	case ev.IsProgress():
		e = s.logger.Debug()
	case ev.State == model.StateFailed:
		e = s.logger.Warn()
	default:
		e = s.logger.Info()
	}

	e = e.Str("task", ev.TaskID)
	if ev.Title != "" {
		e = e.Str("title", ev.Title)
	}
	if ev.State != "" {
		e = e.Str("state", ev.State.String())
	}
	if ev.Reason != model.ReasonNone {
		e = e.Str("reason", string(ev.Reason))
	}
	if ev.Path != "" {
		e = e.Str("path", ev.Path)
	}
	e.Int("percent", ev.Percent).Msg(ev.Text)
	return nil
}

// Redis stream defaults
const (
	DefaultStreamMaxLen = 10000
	DefaultRedisTimeout = 2 * time.Second
)

// streamAdder is the part of the redis client the sink needs
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisSink publishes events to a Redis stream
type RedisSink struct {
	client  streamAdder
	stream  string
	maxLen  int64
	timeout time.Duration
}

// NewRedisSink creates a sink appending to stream. The stream is trimmed
// approximately to DefaultStreamMaxLen entries.
func NewRedisSink(client streamAdder, stream string) *RedisSink {
	return &RedisSink{
		client:  client,
		stream:  stream,
		maxLen:  DefaultStreamMaxLen,
		timeout: DefaultRedisTimeout,
	}
}

// NewRedisClient connects to addr
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	log.Info().Msgf("connecting to redis at %s", addr)
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return c, nil
}

func (s *RedisSink) Handle(ev Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	values := map[string]interface{}{
		"task":    ev.TaskID,
		"state":   ev.State.String(),
		"text":    ev.Text,
		"title":   ev.Title,
		"percent": ev.Percent,
		"reason":  string(ev.Reason),
		"path":    ev.Path,
		"at_ms":   ev.At.UnixMilli(),
	}

	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
