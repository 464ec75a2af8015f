package download

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ytget/vod-downloader/internal/engine"
	"github.com/ytget/vod-downloader/internal/model"
	"github.com/ytget/vod-downloader/internal/platform"
	"github.com/ytget/vod-downloader/internal/report"
)

// Defaults
const (
	DefaultMaxParallel = 4
	TaskIDPrefix       = "task-"
	resolveTimeout     = 60 * time.Second
)

// Options configures a Service
type Options struct {
	MaxParallel int
	Dir         string
	Template    string // default destination template
	Format      string
	Headers     map[string]string
	CookiesFile string

	Engine   engine.Engine   // required
	Resolver engine.Resolver // optional asynchronous name resolution
	Expander Expander        // optional playlist expansion
	Reporter Reporter        // optional; events are discarded when nil
	Artifact ArtifactFunc    // defaults to platform.ArtifactState
}

// record is the store entry for one task
type record struct {
	task    model.Task
	control model.Control
}

// Service is the task admission and lifecycle controller. All shared state
// is guarded by mu; the control flag is the only field read without it.
type Service struct {
	mu      sync.Mutex
	records map[string]*record
	order   []string
	queue   admissionQueue
	active  int // tasks holding a slot
	limit   int
	changed chan struct{} // closed and replaced whenever a task turns terminal

	dir         string
	template    string
	format      string
	headers     map[string]string
	cookiesFile string

	engine   engine.Engine
	resolver engine.Resolver
	expander Expander
	reporter Reporter
	artifact ArtifactFunc

	ctx           context.Context
	cancel        context.CancelFunc
	resolveCtx    context.Context
	cancelResolve context.CancelFunc
	wg            sync.WaitGroup
}

// NewService creates a controller around opts.Engine
func NewService(opts Options) *Service {
	if opts.MaxParallel < 1 {
		opts.MaxParallel = DefaultMaxParallel
	}
	if opts.Artifact == nil {
		opts.Artifact = platform.ArtifactState
	}
	if opts.Reporter == nil {
		opts.Reporter = discardReporter{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	resolveCtx, cancelResolve := context.WithCancel(ctx)
	return &Service{
		records:       make(map[string]*record),
		limit:         opts.MaxParallel,
		changed:       make(chan struct{}),
		dir:           opts.Dir,
		template:      opts.Template,
		format:        opts.Format,
		headers:       opts.Headers,
		cookiesFile:   opts.CookiesFile,
		engine:        opts.Engine,
		resolver:      opts.Resolver,
		expander:      opts.Expander,
		reporter:      opts.Reporter,
		artifact:      opts.Artifact,
		ctx:           ctx,
		cancel:        cancel,
		resolveCtx:    resolveCtx,
		cancelResolve: cancelResolve,
	}
}

type discardReporter struct{}

func (discardReporter) Report(report.Event) {}

// Capabilities reports what the current engine supports
func (s *Service) Capabilities() engine.Capabilities {
	return s.engine.Capabilities()
}

// Submit creates a Waiting task for source and admits it if a slot is free.
// An empty template uses the configured default.
func (s *Service) Submit(source, template string) (model.Task, error) {
	return s.submit(source, template, "")
}

func (s *Service) submit(source, template, title string) (model.Task, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return model.Task{}, ErrEmptySource
	}
	if template == "" {
		template = s.template
	}

	s.mu.Lock()
	for _, id := range s.order {
		rec := s.records[id]
		if rec.task.Source == source && !rec.task.State.IsTerminal() {
			s.mu.Unlock()
			return model.Task{}, fmt.Errorf("%w: %s", ErrDuplicateTask, source)
		}
	}

	rec := &record{task: model.Task{
		ID:                  generateTaskID(),
		Source:              source,
		DestinationTemplate: template,
		ResolvedName:        title,
		State:               model.StateWaiting,
		ETASec:              -1,
		CreatedAt:           time.Now(),
	}}
	rec.control.Store(model.FlagRun)

	s.records[rec.task.ID] = rec
	s.order = append(s.order, rec.task.ID)
	s.queue.push(rec.task.ID)

	log.Info().Str("task", rec.task.ID).Str("source", source).Msg("task submitted")
	s.reportLocked(rec)
	s.admitLocked()

	snapshot := s.snapshotLocked(rec)
	req := s.requestLocked(rec)
	s.mu.Unlock()

	// admitted tasks resolve in their run, before the artifact check
	if snapshot.State == model.StateWaiting {
		s.resolveAsync(rec, req)
	}
	return snapshot, nil
}

// SubmitMany submits sources in order, skipping blank lines and expanding
// playlists when an Expander is configured. Per-source failures are joined
// into the returned error; successfully submitted tasks are still returned.
func (s *Service) SubmitMany(ctx context.Context, sources []string, template string) ([]model.Task, error) {
	var (
		tasks []model.Task
		errs  []error
	)

	for _, source := range sources {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}

		if s.expander != nil && s.expander.IsPlaylist(source) {
			entries, err := s.expander.Expand(ctx, source)
			if err != nil {
				errs = append(errs, fmt.Errorf("expand %s: %w", source, err))
				continue
			}
			for _, entry := range entries {
				task, err := s.submit(entry.Source, template, entry.Title)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				tasks = append(tasks, task)
			}
			continue
		}

		task, err := s.Submit(source, template)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks, errors.Join(errs...)
}

// Pause asks an Active task to pause at its next check point. The slot stays
// reserved for the task.
func (s *Service) Pause(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if !s.engine.Capabilities().Pause {
		return ErrPauseUnsupported
	}
	if rec.task.State != model.StateActive {
		return fmt.Errorf("%w: cannot pause %s task", ErrInvalidTransition, rec.task.State)
	}

	switch rec.control.Load() {
	case model.FlagPauseRequested:
		return nil
	case model.FlagStopRequested:
		return fmt.Errorf("%w: stop already requested", ErrInvalidTransition)
	}

	rec.control.Store(model.FlagPauseRequested)
	log.Info().Str("task", id).Msg("pause requested")
	return nil
}

// Resume restarts a Paused task in its reserved slot without going through
// the queue. On an Active task with a pending pause it cancels the pause.
func (s *Service) Resume(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	switch {
	case rec.task.State == model.StatePaused:
		s.startRunLocked(rec)
		return nil
	case rec.task.State == model.StateActive && rec.control.Load() == model.FlagPauseRequested:
		rec.control.Store(model.FlagRun)
		log.Info().Str("task", id).Msg("pending pause cancelled")
		return nil
	default:
		return fmt.Errorf("%w: cannot resume %s task", ErrInvalidTransition, rec.task.State)
	}
}

// Stop ends a task. Waiting and Paused tasks stop immediately; Active tasks
// stop at their next check point. Stopping a terminal task is a no-op.
func (s *Service) Stop(id string) error {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	discard := s.stopLocked(rec)
	s.mu.Unlock()

	s.discard(discard)
	return nil
}

// StopAll stops every Waiting, Paused, and Active task. Waiting tasks are
// stopped first so freed slots admit nothing.
func (s *Service) StopAll() {
	var discards []*engine.Request

	s.mu.Lock()
	for _, pass := range []func(model.TaskState) bool{
		func(st model.TaskState) bool { return st == model.StateWaiting },
		func(st model.TaskState) bool { return st.OccupiesSlot() },
	} {
		for _, id := range s.order {
			rec := s.records[id]
			if pass(rec.task.State) {
				discards = append(discards, s.stopLocked(rec))
			}
		}
	}
	s.mu.Unlock()

	for _, req := range discards {
		s.discard(req)
	}
}

// stopLocked applies a stop request and returns the request whose partial
// output should be discarded, if any
func (s *Service) stopLocked(rec *record) *engine.Request {
	switch rec.task.State {
	case model.StateWaiting:
		s.queue.remove(rec.task.ID)
		s.transitionLocked(rec, model.StateStopped, model.Stopped())
	case model.StateActive:
		if rec.control.Load() != model.FlagStopRequested {
			rec.control.Store(model.FlagStopRequested)
			log.Info().Str("task", rec.task.ID).Msg("stop requested")
		}
	case model.StatePaused:
		req := s.requestLocked(rec)
		rec.control.Store(model.FlagStopRequested)
		s.transitionLocked(rec, model.StateStopped, model.Stopped())
		s.admitLocked()
		return &req
	}
	return nil
}

// SetMaxParallel changes the slot limit. Raising it admits waiting tasks;
// lowering it never interrupts running ones.
func (s *Service) SetMaxParallel(n int) {
	if n < 1 {
		n = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = n
	s.admitLocked()
}

// Get returns a copy of a task
func (s *Service) Get(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return model.Task{}, false
	}
	return s.snapshotLocked(rec), true
}

// List returns copies of all tasks in submission order
func (s *Service) List() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]model.Task, 0, len(s.order))
	for _, id := range s.order {
		tasks = append(tasks, s.snapshotLocked(s.records[id]))
	}
	return tasks
}

// Summary returns task counts per state
func (s *Service) Summary() model.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := model.Summary{Slots: s.active, Limit: s.limit}
	for _, id := range s.order {
		sum.Add(s.records[id].task.State)
	}
	return sum
}

// ActiveCount returns the number of tasks holding a slot
func (s *Service) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Wait blocks until every task is terminal or ctx is done
func (s *Service) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		pending := false
		for _, id := range s.order {
			if !s.records[id].task.State.IsTerminal() {
				pending = true
				break
			}
		}
		changed := s.changed
		s.mu.Unlock()

		if !pending {
			return nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Shutdown stops all tasks and waits for their goroutines. Pending metadata
// lookups are abandoned once stop flags are set. When ctx expires first, running fetches are
// cancelled outright.
func (s *Service) Shutdown(ctx context.Context) error {
	s.StopAll()
	s.cancelResolve()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// admitLocked moves queued tasks to Active while slots are free
func (s *Service) admitLocked() {
	for s.active < s.limit {
		id, ok := s.queue.pop()
		if !ok {
			return
		}

		rec, exists := s.records[id]
		if !exists || rec.task.State != model.StateWaiting {
			// stopped while queued
			continue
		}
		s.startRunLocked(rec)
	}
}

// startRunLocked moves a Waiting or Paused task to Active and dispatches a
// fresh executor run. Each run restarts the fetch from zero.
func (s *Service) startRunLocked(rec *record) {
	rec.control.Store(model.FlagRun)
	if !s.transitionLocked(rec, model.StateActive, model.Outcome{}) {
		return
	}

	t := &rec.task
	t.Runs++
	if t.StartedAt.IsZero() {
		t.StartedAt = time.Now()
	}
	t.Progress, t.Percent, t.Speed, t.ETASec = 0, 0, "", -1

	req := s.requestLocked(rec)
	s.wg.Add(1)
	go s.execute(rec, req)
}

// transitionLocked applies one state machine edge, keeps the slot count in
// step with it, and reports it
func (s *Service) transitionLocked(rec *record, next model.TaskState, out model.Outcome) bool {
	t := &rec.task
	prev := t.State
	if !prev.CanTransition(next) {
		log.Error().Str("task", t.ID).Str("from", prev.String()).Str("to", next.String()).Msg("rejected state transition")
		return false
	}

	switch {
	case !prev.OccupiesSlot() && next.OccupiesSlot():
		s.active++
	case prev.OccupiesSlot() && !next.OccupiesSlot():
		s.active--
	}

	t.State = next
	t.OccupiesSlot = next.OccupiesSlot()

	switch next {
	case model.StateCompleted:
		t.Progress, t.Percent, t.ETASec = 1.0, 100, -1
		if out.Path != "" {
			t.Destination = out.Path
		}
	case model.StateFailed:
		t.Reason = out.Reason
		if out.Err != nil {
			t.LastError = out.Err.Error()
		}
	}

	if next.IsTerminal() {
		t.FinishedAt = time.Now()
		close(s.changed)
		s.changed = make(chan struct{})
	}

	ev := log.Info()
	if next == model.StateFailed {
		ev = log.Warn()
	}
	ev.Str("task", t.ID).Str("state", next.String()).Str("reason", string(t.Reason)).Int("slots", s.active).Msg("task state changed")

	s.reportLocked(rec)
	return true
}

// execute runs one executor invocation and applies its outcome
func (s *Service) execute(rec *record, req engine.Request) {
	defer s.wg.Done()

	out := s.run(rec, req)
	discard := s.finish(rec, out, req)
	s.discard(discard)
}

// finish applies a run's outcome under the lock and returns the request to
// discard partial output for, if any
func (s *Service) finish(rec *record, out model.Outcome, req engine.Request) *engine.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	flag := rec.control.Load()
	if out.Kind == model.OutcomePaused && flag == model.FlagStopRequested {
		out = model.Stopped()
	}

	if !s.transitionLocked(rec, out.State(), out) {
		return nil
	}

	if !out.ReleasesSlot() {
		if flag == model.FlagRun {
			// resume arrived after the check point saw the pause
			s.startRunLocked(rec)
		}
		return nil
	}

	s.admitLocked()
	if out.Kind == model.OutcomeStopped {
		return &req
	}
	return nil
}

// discard removes partial output of a stopped fetch
func (s *Service) discard(req *engine.Request) {
	if req == nil {
		return
	}
	d, ok := s.engine.(engine.Discarder)
	if !ok {
		return
	}
	if err := d.Discard(*req); err != nil {
		log.Warn().Err(err).Str("source", req.Source).Msg("failed to remove partial output")
	}
}

// progress records a progress observation from a running fetch
func (s *Service) progress(rec *record, p engine.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &rec.task
	if t.State != model.StateActive {
		return
	}

	if p.Fraction > 0 {
		t.Progress = p.Fraction
		t.Percent = int(p.Fraction * 100)
	}
	if p.Speed != "" {
		t.Speed = p.Speed
	}
	if p.ETA > 0 {
		t.ETASec = int(p.ETA.Seconds())
	}
	if p.Title != "" && t.ResolvedName == "" {
		t.ResolvedName = p.Title
	}
	if p.Path != "" && t.Destination == "" {
		t.Destination = p.Path
	}

	s.reporter.Report(report.Event{
		TaskID:  t.ID,
		Text:    t.StatusText(),
		Title:   t.GetDisplayTitle(),
		Percent: t.Percent,
	})
}

// resolveAsync looks up the display name and destination of a queued task
// in the background
func (s *Service) resolveAsync(rec *record, req engine.Request) {
	if s.resolver == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.resolve(rec, req)
	}()
}

// resolve runs the resolver for rec and records what it learnt. Failures are
// logged and leave the task untouched. It returns the destination, if known.
func (s *Service) resolve(rec *record, req engine.Request) string {
	ctx, cancel := context.WithTimeout(s.resolveCtx, resolveTimeout)
	defer cancel()

	md, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		log.Warn().Err(&MetadataError{TaskID: rec.task.ID, Err: err}).Str("source", req.Source).Msg("metadata resolution failed")
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &rec.task
	if md.Title != "" {
		t.ResolvedName = md.Title
	}
	if t.Destination == "" && md.Path != "" {
		t.Destination = md.Path
	}
	s.reporter.Report(report.Event{
		TaskID:   t.ID,
		Title:    t.GetDisplayTitle(),
		Path:     t.Destination,
		Percent:  t.Percent,
		Metadata: true,
	})
	return t.Destination
}

func (s *Service) reportLocked(rec *record) {
	t := &rec.task
	s.reporter.Report(report.Event{
		TaskID:  t.ID,
		State:   t.State,
		Text:    t.StatusText(),
		Title:   t.GetDisplayTitle(),
		Percent: t.Percent,
		Reason:  t.Reason,
		Path:    t.Destination,
	})
}

func (s *Service) snapshotLocked(rec *record) model.Task {
	t := rec.task
	t.Control = rec.control.Load()
	return t
}

func (s *Service) requestLocked(rec *record) engine.Request {
	return engine.Request{
		Source:      rec.task.Source,
		Dir:         s.dir,
		Template:    rec.task.DestinationTemplate,
		Destination: rec.task.Destination,
		Format:      s.format,
		Headers:     s.headers,
		CookiesFile: s.cookiesFile,
	}
}

// generateTaskID generates a unique, time-ordered task ID
func generateTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf(TaskIDPrefix+"%d", time.Now().UnixNano())
	}
	return TaskIDPrefix + id.String()
}
