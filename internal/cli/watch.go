package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// batchWatcher submits lines appended to a batch file. Lines already seen
// are identified by position, so edits above the tail are not resubmitted.
type batchWatcher struct {
	path   string
	seen   int
	submit func(lines []string)
}

func newBatchWatcher(path string, seen int, submit func(lines []string)) *batchWatcher {
	return &batchWatcher{path: path, seen: seen, submit: submit}
}

// run blocks until ctx is done. The parent directory is watched so editors
// that replace the file by rename keep being followed.
func (w *batchWatcher) run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	log.Info().Str("file", w.path).Msg("watching batch file for new sources")

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || (!ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create)) {
				continue
			}
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("batch file watcher error")
		}
	}
}

// reload submits lines past the last seen position
func (w *batchWatcher) reload() {
	lines, err := readLines(w.path)
	if err != nil {
		log.Warn().Err(err).Msg("failed to re-read batch file")
		return
	}
	if len(lines) < w.seen {
		// Truncated or replaced; treat the new content as a fresh tail
		w.seen = 0
	}
	if len(lines) == w.seen {
		return
	}

	fresh := lines[w.seen:]
	w.seen = len(lines)
	w.submit(fresh)
}
