package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ytget/vod-downloader/internal/config"
	"github.com/ytget/vod-downloader/internal/download"
	"github.com/ytget/vod-downloader/internal/model"
)

type getOptions struct {
	file     string
	watch    bool
	parallel int
	dir      string
	template string
	engine   string
}

func getCmd(g *globals) *cobra.Command {
	var opts getOptions

	var command = &cobra.Command{
		Use:   CmdGet + " [urls...]",
		Short: "Download sources headlessly until every task is terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.engine != "" && !config.ValidEngine(opts.engine) {
				return fmt.Errorf("unknown engine %q", opts.engine)
			}
			if opts.watch && opts.file == "" {
				return errors.New("--watch requires --file")
			}
			g.override(cmd, "parallel", config.KeyMaxParallel, opts.parallel)
			g.override(cmd, "dir", config.KeyDownloadDir, opts.dir)
			g.override(cmd, "template", config.KeyFilenameTemplate, opts.template)
			g.override(cmd, "engine", config.KeyEngine, opts.engine)
			return runGet(cmd.Context(), g.settings, args, opts)
		},
	}

	command.Flags().StringVarP(&opts.file, "file", "f", "", "file with one URL per line")
	command.Flags().BoolVarP(&opts.watch, "watch", "w", false, "keep running and submit lines appended to --file")
	command.Flags().IntVarP(&opts.parallel, "parallel", "p", config.DefaultMaxParallel, "maximum concurrent downloads (1-10)")
	command.Flags().StringVarP(&opts.dir, "dir", "d", "", "download directory")
	command.Flags().StringVarP(&opts.template, "template", "t", "", "file name template")
	command.Flags().StringVarP(&opts.engine, "engine", "e", "", "engine: ytdlp, http or process")

	return command
}

func runGet(parent context.Context, s *config.Settings, args []string, opts getOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newStack(ctx, s)
	if err != nil {
		return err
	}
	defer rt.shutdown()

	sources := append([]string(nil), args...)
	fileLines := 0
	if opts.file != "" {
		lines, err := readLines(opts.file)
		if err != nil {
			return err
		}
		fileLines = len(lines)
		sources = append(sources, lines...)
	}
	if len(sources) == 0 && !opts.watch {
		return errors.New("no sources given")
	}

	template := s.GetFilenameTemplate()
	if _, err := rt.svc.SubmitMany(ctx, sources, template); err != nil {
		log.Warn().Err(err).Msg("some sources were rejected")
	}

	// Signals stop every task; Wait then observes them turning terminal.
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			log.Info().Msg("interrupt received, stopping all tasks")
			rt.svc.StopAll()
		case <-finished:
		}
	}()

	if opts.watch {
		w := newBatchWatcher(opts.file, fileLines, func(lines []string) {
			if _, err := rt.svc.SubmitMany(ctx, lines, template); err != nil {
				log.Warn().Err(err).Msg("some appended sources were rejected")
			}
		})
		if err := w.run(ctx); err != nil {
			return err
		}
		return waitTerminal(rt.svc)
	}

	if err := rt.svc.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return waitTerminal(rt.svc)
}

// waitTerminal waits for stopped tasks to settle, then reports failures
func waitTerminal(svc *download.Service) error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := svc.Wait(ctx); err != nil {
		return fmt.Errorf("tasks did not settle: %w", err)
	}

	sum := svc.Summary()
	log.Info().
		Int("completed", sum.Completed).
		Int("failed", sum.Failed).
		Int("stopped", sum.Stopped).
		Msg("all tasks finished")

	for _, t := range failedTasks(svc.List()) {
		log.Warn().Str("task", t.ID).Str("source", t.Source).Str("reason", string(t.Reason)).Msg(t.StatusText())
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", sum.Failed, sum.Total)
	}
	return nil
}

// readLines returns the trimmed lines of path; blank lines are kept so
// SubmitMany can skip them and line counts stay aligned for watch mode
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return lines, nil
}

// failedTasks lists failed tasks for the final report
func failedTasks(tasks []model.Task) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.State == model.StateFailed {
			out = append(out, t)
		}
	}
	return out
}
