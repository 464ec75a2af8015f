// Package engine wraps the external fetch-and-write operations behind one
// contract. Cooperative engines sample a Monitor at their natural progress
// points; the process engine samples it on a fixed ticker and kills the child.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ytget/vod-downloader/internal/naming"
)

var (
	// ErrInterrupted is returned when a fetch stopped because Monitor.Continue reported false
	ErrInterrupted = errors.New("fetch interrupted")

	// ErrAlreadyDownloaded is returned when the engine found a complete artifact in place
	ErrAlreadyDownloaded = errors.New("artifact already downloaded")
)

// Capabilities describes what the controller surface may offer for an engine
type Capabilities struct {
	Pause bool
}

// Request describes one fetch
type Request struct {
	Source      string
	Dir         string            // output directory
	Template    string            // user destination template
	Destination string            // concrete output path, empty if not yet resolved
	Format      string            // yt-dlp format selector
	Headers     map[string]string // extra request headers
	CookiesFile string
}

// Progress is one progress observation
type Progress struct {
	Fraction   float64 // 0.0 to 1.0, 0 when unknown
	Downloaded int64
	Total      int64
	Speed      string
	ETA        time.Duration
	Title      string
	Path       string // output path if the engine learnt it
}

// Monitor receives progress and answers check points
type Monitor interface {
	Progress(Progress)
	// Continue is a check point; false means the fetch must be interrupted now
	Continue() bool
}

// Result describes a finished fetch
type Result struct {
	Path  string
	Title string
}

// Metadata is what name resolution learns about a source
type Metadata struct {
	naming.Metadata
	Path string // rendered destination, if known
}

// Engine performs fetches
type Engine interface {
	Capabilities() Capabilities
	Fetch(ctx context.Context, req Request, m Monitor) (Result, error)
}

// Resolver looks up metadata without fetching
type Resolver interface {
	Resolve(ctx context.Context, req Request) (Metadata, error)
}

// Planner is implemented by engines that know their output path before
// fetching
type Planner interface {
	Plan(req Request) string
}

// MonitorFuncs adapts two functions to a Monitor
type MonitorFuncs struct {
	OnProgress func(Progress)
	OnContinue func() bool
}

func (m MonitorFuncs) Progress(p Progress) {
	if m.OnProgress != nil {
		m.OnProgress(p)
	}
}

func (m MonitorFuncs) Continue() bool {
	if m.OnContinue == nil {
		return true
	}
	return m.OnContinue()
}

// Discarder is implemented by engines that leave partial output behind
// when a fetch is interrupted
type Discarder interface {
	Discard(req Request) error
}
