// Package report delivers task state and progress changes to presentation
// layers. Reporting never blocks the caller: events are queued and fanned
// out to sinks from a dispatcher goroutine.
package report

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ytget/vod-downloader/internal/model"
)

// ErrUnknownTask is returned by a sink that no longer tracks a task. Such
// events are dropped silently.
var ErrUnknownTask = errors.New("unknown task")

// DefaultProgressInterval limits progress-only events per task
const DefaultProgressInterval = 250 * time.Millisecond

// Event is one observable change of a task
type Event struct {
	TaskID  string          `json:"task_id"`
	State   model.TaskState `json:"state,omitempty"` // empty for progress-only events
	Text    string          `json:"text,omitempty"`  // human readable progress or failure text
	Title   string          `json:"title,omitempty"`
	Percent int             `json:"percent"`
	Reason  model.Reason    `json:"reason,omitempty"`
	Path    string          `json:"path,omitempty"`
	// Metadata marks an event carrying newly resolved name or destination
	Metadata bool      `json:"metadata,omitempty"`
	At       time.Time `json:"at"`
}

// IsProgress reports whether the event is a throttleable progress update
func (e Event) IsProgress() bool {
	return e.State == "" && !e.Metadata
}

// Sink consumes events
type Sink interface {
	Handle(Event) error
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(Event) error

func (f SinkFunc) Handle(ev Event) error { return f(ev) }

// Reporter queues events and dispatches them to sinks in order. State events
// are never dropped; progress-only events are throttled per task.
type Reporter struct {
	mu       sync.Mutex
	pending  []Event
	sinks    []Sink
	limiters map[string]*rate.Limiter
	every    time.Duration
	closed   bool

	signal chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewReporter creates a reporter and starts its dispatcher. A zero interval
// disables progress throttling.
func NewReporter(progressEvery time.Duration, sinks ...Sink) *Reporter {
	r := &Reporter{
		sinks:    sinks,
		limiters: make(map[string]*rate.Limiter),
		every:    progressEvery,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Attach adds a sink; it receives events reported from now on
func (r *Reporter) Attach(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Report queues ev for delivery and returns immediately
func (r *Reporter) Report(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if ev.IsProgress() {
		if !r.allowLocked(ev.TaskID) {
			r.mu.Unlock()
			return
		}
	} else if ev.State.IsTerminal() {
		delete(r.limiters, ev.TaskID)
	}
	r.pending = append(r.pending, ev)
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *Reporter) allowLocked(taskID string) bool {
	if r.every <= 0 {
		return true
	}
	lim, ok := r.limiters[taskID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(r.every), 1)
		r.limiters[taskID] = lim
	}
	return lim.Allow()
}

// Close delivers what is queued and stops the dispatcher
func (r *Reporter) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	close(r.done)
	r.wg.Wait()
}

func (r *Reporter) run() {
	defer r.wg.Done()
	for {
		select {
		case <-r.signal:
			r.flush()
		case <-r.done:
			r.flush()
			return
		}
	}
}

func (r *Reporter) flush() {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	sinks := append([]Sink(nil), r.sinks...)
	r.mu.Unlock()

	for _, ev := range batch {
		for _, s := range sinks {
			deliver(s, ev)
		}
	}
}

// deliver hands ev to one sink; sink failures never reach the reporter
func deliver(s Sink, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("task", ev.TaskID).Msg("status sink panicked")
		}
	}()

	if err := s.Handle(ev); err != nil && !errors.Is(err, ErrUnknownTask) {
		log.Debug().Err(err).Str("task", ev.TaskID).Msg("status sink failed")
	}
}
