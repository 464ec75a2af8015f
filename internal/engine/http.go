package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ytget/vod-downloader/internal/naming"
)

const (
	httpChunkSize   = 32 * 1024
	partialSuffix   = ".part"
	defaultFileName = "download"
)

// HTTP is a cooperative engine for direct file URLs. Every chunk read is a
// check point.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates an HTTP engine. A nil client means one without a fixed
// timeout; cancellation comes from the context.
func NewHTTP(client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 0}
	}
	return &HTTP{client: client}
}

// Capabilities reports that pause is supported
func (h *HTTP) Capabilities() Capabilities {
	return Capabilities{Pause: true}
}

// Fetch downloads req.Source into a .part file and renames it on success.
// The partial file is removed on stop and kept on pause; a resumed fetch
// overwrites it from the beginning.
func (h *HTTP) Fetch(ctx context.Context, req Request, m Monitor) (Result, error) {
	dest := destinationFor(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.Source, nil)
	if err != nil {
		return Result{}, &TransferError{Category: CategoryFormat, Err: err}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ErrInterrupted
		}
		return Result{}, Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &TransferError{
			Category: statusCategory(resp.StatusCode),
			Err:      fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := dest + partialSuffix
	tmpFile, err := os.Create(tmp)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create partial file: %w", err)
	}
	defer tmpFile.Close()

	total := resp.ContentLength
	started := time.Now()
	var written int64
	buf := make([]byte, httpChunkSize)

	for {
		if !m.Continue() {
			return Result{}, ErrInterrupted
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := tmpFile.Write(buf[:n]); err != nil {
				return Result{}, fmt.Errorf("failed to write partial file: %w", err)
			}
			written += int64(n)
			m.Progress(chunkProgress(written, total, started, dest))
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return Result{}, ErrInterrupted
			}
			return Result{}, Classify(readErr)
		}
	}

	if total > 0 && written < total {
		return Result{}, &TransferError{
			Category: CategoryFragment,
			Err:      fmt.Errorf("short body: got %d of %d bytes", written, total),
		}
	}

	if err := tmpFile.Sync(); err != nil {
		return Result{}, fmt.Errorf("failed to sync partial file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to close partial file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return Result{}, fmt.Errorf("failed to finalize file: %w", err)
	}

	return Result{Path: dest, Title: strings.TrimSuffix(filepath.Base(dest), filepath.Ext(dest))}, nil
}

// Resolve derives the destination from the URL path; no request is made
func (h *HTTP) Resolve(_ context.Context, req Request) (Metadata, error) {
	return Metadata{Metadata: metadataFromURL(req.Source), Path: destinationFor(req)}, nil
}

// Plan returns the path Fetch will write to
func (h *HTTP) Plan(req Request) string {
	return destinationFor(req)
}

// destinationFor returns req.Destination or the name rendered from the URL
func destinationFor(req Request) string {
	if req.Destination != "" {
		return req.Destination
	}
	return filepath.Join(req.Dir, naming.Render(req.Template, metadataFromURL(req.Source)))
}

// Discard removes the partial file left by an interrupted fetch
func (h *HTTP) Discard(req Request) error {
	err := os.Remove(destinationFor(req) + partialSuffix)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// metadataFromURL uses the last path segment as the title and its extension
// as the file extension
func metadataFromURL(rawURL string) naming.Metadata {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return naming.Metadata{Title: defaultFileName}
	}

	name := path.Base(u.Path)
	ext := path.Ext(name)
	title := strings.TrimSuffix(name, ext)
	if title == "" {
		title = defaultFileName
	}
	return naming.Metadata{
		Title:    title,
		Uploader: u.Hostname(),
		Ext:      strings.TrimPrefix(ext, "."),
	}
}

func chunkProgress(written, total int64, started time.Time, dest string) Progress {
	p := Progress{Downloaded: written, Total: total, Path: dest}
	if total > 0 {
		p.Fraction = float64(written) / float64(total)
	}

	elapsed := time.Since(started).Seconds()
	if elapsed > 0 {
		rate := float64(written) / elapsed
		p.Speed = FormatSpeed(rate)
		if total > 0 && rate > 0 {
			p.ETA = time.Duration(float64(total-written)/rate) * time.Second
		}
	}
	return p
}
