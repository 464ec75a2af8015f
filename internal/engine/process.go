package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Process engine constants
const (
	DefaultProcessCommand = "yt-dlp"
	DefaultPollInterval   = 100 * time.Millisecond
	processWaitDelay      = 2 * time.Second

	destinationPrefix = "[download] Destination: "
	mergerPrefix      = "[Merger] Merging formats into "
	stderrTailLines   = 20
)

// progressLine matches "[download]  42.3% of ~123.45MiB at 1.20MiB/s ETA 00:42"
var progressLine = regexp.MustCompile(`^\[download\]\s+([\d.]+)% of\s+~?\s*(\S+)(?:\s+at\s+(\S+))?(?:\s+ETA\s+(\S+))?`)

// Process runs yt-dlp as a detached child process. It never calls back into
// the controller, so pause is not offered and stop is a kill polled on a
// fixed interval.
type Process struct {
	command      string
	pollInterval time.Duration
}

// NewProcess creates a process engine running command
func NewProcess(command string, pollInterval time.Duration) *Process {
	if command == "" {
		command = DefaultProcessCommand
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Process{command: command, pollInterval: pollInterval}
}

// Capabilities reports that pause is not supported
func (p *Process) Capabilities() Capabilities {
	return Capabilities{Pause: false}
}

// BuildArgs builds the command line for req
func (p *Process) BuildArgs(req Request) []string {
	args := []string{
		"--newline",     // one progress line per update
		"--no-playlist", // single asset only
		"--no-continue", // always restart from zero
	}
	if req.Format != "" {
		args = append(args, "-f", req.Format)
	}
	args = append(args, "-o", outputTemplate(req))
	if req.CookiesFile != "" {
		args = append(args, "--cookies", req.CookiesFile)
	}
	for k, v := range req.Headers {
		args = append(args, "--add-header", k+":"+v)
	}
	return append(args, req.Source)
}

// Fetch starts the child and waits for it. A ticker samples m.Continue and
// kills the child when it reports false.
func (p *Process) Fetch(ctx context.Context, req Request, m Monitor) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.command, p.BuildArgs(req)...)
	// pipes inherited by grandchildren are force-closed after a kill
	cmd.WaitDelay = processWaitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("failed to start %s: %w", p.command, err)
	}

	var (
		wg          sync.WaitGroup
		out         outputState
		interrupted = make(chan struct{})
		done        = make(chan struct{})
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		out.scanStdout(stdout, m)
	}()
	go func() {
		defer wg.Done()
		out.scanStderr(stderr)
	}()

	// Poll for stop
	go func() {
		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !m.Continue() {
					close(interrupted)
					cancel()
					return
				}
			}
		}
	}()

	readersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(readersDone)
	}()

	// Readers must drain before Wait closes the pipes, unless the child was
	// killed; then Wait is what unblocks them
	select {
	case <-readersDone:
	case <-ctx.Done():
	}
	err = cmd.Wait()
	<-readersDone
	close(done)

	select {
	case <-interrupted:
		return Result{}, ErrInterrupted
	default:
	}
	if ctx.Err() != nil {
		return Result{}, ErrInterrupted
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Debug().Str("command", p.command).Int("exit_code", exitErr.ExitCode()).Msg("child exited with error")
		}
		return Result{}, Classify(out.failure(err))
	}

	if out.alreadyDownloaded() {
		return Result{}, ErrAlreadyDownloaded
	}

	path := out.path()
	if path == "" {
		path = req.Destination
	}
	return Result{Path: path, Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}, nil
}

// outputState collects what the child printed
type outputState struct {
	mu         sync.Mutex
	dest       string
	merged     string
	already    bool
	stderrTail []string
}

func (o *outputState) scanStdout(r io.Reader, m Monitor) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		o.mu.Lock()
		switch {
		case strings.HasPrefix(line, destinationPrefix):
			o.dest = strings.TrimPrefix(line, destinationPrefix)
		case strings.HasPrefix(line, mergerPrefix):
			o.merged = strings.Trim(strings.TrimPrefix(line, mergerPrefix), `"`)
		case strings.Contains(line, alreadyDownloadedMarker):
			o.already = true
		}
		dest := o.dest
		o.mu.Unlock()

		if prog, ok := ParseProgressLine(line); ok {
			prog.Path = dest
			m.Progress(prog)
		}
	}
}

func (o *outputState) scanStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		o.mu.Lock()
		o.stderrTail = append(o.stderrTail, line)
		if len(o.stderrTail) > stderrTailLines {
			o.stderrTail = o.stderrTail[1:]
		}
		o.mu.Unlock()
	}
}

func (o *outputState) path() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.merged != "" {
		return o.merged
	}
	return o.dest
}

func (o *outputState) alreadyDownloaded() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.already
}

// failure prefers the last ERROR line the child printed over the exit status
func (o *outputState) failure(exitErr error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.stderrTail) - 1; i >= 0; i-- {
		if strings.HasPrefix(o.stderrTail[i], "ERROR:") {
			return fmt.Errorf("%s: %w", o.stderrTail[i], exitErr)
		}
	}
	return exitErr
}

// ParseProgressLine parses one yt-dlp --newline progress line
func ParseProgressLine(line string) (Progress, bool) {
	match := progressLine.FindStringSubmatch(line)
	if match == nil {
		return Progress{}, false
	}

	percent, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Progress{}, false
	}

	p := Progress{Fraction: percent / 100}
	if p.Fraction > 1 {
		p.Fraction = 1
	}
	if match[3] != "" && !strings.HasPrefix(match[3], "Unknown") {
		p.Speed = match[3]
	}
	if match[4] != "" {
		p.ETA = parseClock(match[4])
	}
	return p, true
}

// parseClock parses "ss", "mm:ss" or "hh:mm:ss"
func parseClock(s string) time.Duration {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0
	}
	var total int
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}
