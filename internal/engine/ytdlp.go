package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/ytget/vod-downloader/internal/naming"
)

const (
	// DefaultProgressInterval is how often yt-dlp progress callbacks fire
	DefaultProgressInterval = 500 * time.Millisecond

	alreadyDownloadedMarker = "has already been downloaded"
)

// YTDLP is the cooperative engine built on github.com/lrstanley/go-ytdlp.
// Every progress callback is a check point.
type YTDLP struct {
	interval time.Duration
}

// NewYTDLP creates a yt-dlp engine reporting progress every interval
func NewYTDLP(interval time.Duration) *YTDLP {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &YTDLP{interval: interval}
}

// Capabilities reports that pause is supported
func (y *YTDLP) Capabilities() Capabilities {
	return Capabilities{Pause: true}
}

// command builds the yt-dlp invocation shared by Fetch and Resolve
func (y *YTDLP) command(req Request) *ytdlp.Command {
	dl := ytdlp.New().NoPlaylist()

	if req.Format != "" {
		dl = dl.Format(req.Format)
	}
	if req.CookiesFile != "" {
		dl = dl.Cookies(req.CookiesFile)
	}
	for k, v := range req.Headers {
		dl = dl.AddHeaders(k + ":" + v)
	}
	return dl
}

// outputTemplate returns the -o argument for req
func outputTemplate(req Request) string {
	if req.Destination != "" {
		return req.Destination
	}
	return filepath.Join(req.Dir, naming.ToYTDLP(req.Template))
}

// Fetch runs one yt-dlp download. Resumed fetches restart from zero.
func (y *YTDLP) Fetch(ctx context.Context, req Request, m Monitor) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		interrupted atomic.Bool
		mu          sync.Mutex
		title       string
	)

	dl := y.command(req).
		NoContinue().
		Output(outputTemplate(req))

	dl.ProgressFunc(y.interval, func(update ytdlp.ProgressUpdate) {
		p := progressFromUpdate(update)
		if p.Title != "" {
			mu.Lock()
			title = p.Title
			mu.Unlock()
		}

		m.Progress(p)
		if !m.Continue() {
			interrupted.Store(true)
			cancel()
		}
	})

	result, err := dl.Run(ctx, req.Source)
	if interrupted.Load() || ctx.Err() != nil {
		return Result{}, ErrInterrupted
	}
	if err != nil {
		return Result{}, Classify(err)
	}

	if result != nil && strings.Contains(result.Stdout, alreadyDownloadedMarker) {
		return Result{}, ErrAlreadyDownloaded
	}

	mu.Lock()
	res := Result{Path: req.Destination, Title: title}
	mu.Unlock()

	if result != nil {
		info, err := result.GetExtractedInfo()
		if err == nil && len(info) > 0 {
			if info[0].Filename != nil {
				res.Path = *info[0].Filename
			}
			if res.Title == "" && info[0].Title != nil {
				res.Title = *info[0].Title
			}
		}
	}
	return res, nil
}

// Resolve asks yt-dlp for the source's metadata without downloading it
func (y *YTDLP) Resolve(ctx context.Context, req Request) (Metadata, error) {
	result, err := y.command(req).
		SkipDownload().
		DumpJSON().
		Output(outputTemplate(req)).
		Run(ctx, req.Source)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to resolve metadata: %w", err)
	}

	info, err := result.GetExtractedInfo()
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if len(info) == 0 {
		return Metadata{}, fmt.Errorf("no metadata for %s", req.Source)
	}

	first := info[0]
	md := Metadata{
		Metadata: naming.Metadata{
			Title:      deref(first.Title),
			Uploader:   deref(first.Uploader),
			UploadDate: deref(first.UploadDate),
		},
	}
	if name := deref(first.Filename); name != "" {
		md.Ext = strings.TrimPrefix(filepath.Ext(name), ".")
	}

	if req.Destination != "" {
		md.Path = req.Destination
	} else {
		md.Path = filepath.Join(req.Dir, naming.Render(req.Template, md.Metadata))
	}
	return md, nil
}

// progressFromUpdate converts a go-ytdlp progress update
func progressFromUpdate(update ytdlp.ProgressUpdate) Progress {
	p := Progress{
		Downloaded: int64(update.DownloadedBytes),
		Total:      int64(update.TotalBytes),
	}

	if update.TotalBytes > 0 {
		p.Fraction = float64(update.DownloadedBytes) / float64(update.TotalBytes)
	}

	if !update.Started.IsZero() {
		elapsed := time.Since(update.Started)
		if elapsed.Seconds() > 0 {
			p.Speed = FormatSpeed(float64(update.DownloadedBytes) / elapsed.Seconds())
		}
	}

	if eta := update.ETA(); eta > 0 {
		p.ETA = eta
	}

	if update.Info != nil && update.Info.Title != nil {
		p.Title = *update.Info.Title
	}
	return p
}

// FormatSpeed renders bytes per second the way progress lines show it
func FormatSpeed(bytesPerSecond float64) string {
	return fmt.Sprintf("%.1fMB/s", bytesPerSecond/1024/1024)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
