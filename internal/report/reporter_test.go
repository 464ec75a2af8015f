package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/vod-downloader/internal/model"
)

// recordingSink keeps every event it receives
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Handle(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestReporter_DeliversStateEventsInOrder(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(time.Hour, sink)

	states := []model.TaskState{model.StateWaiting, model.StateActive, model.StatePaused, model.StateActive, model.StateCompleted}
	for _, st := range states {
		r.Report(Event{TaskID: "task-1", State: st})
	}
	r.Close()

	got := sink.snapshot()
	require.Len(t, got, len(states))
	for i, st := range states {
		assert.Equal(t, st, got[i].State)
		assert.False(t, got[i].At.IsZero())
	}
}

func TestReporter_ThrottlesProgressPerTask(t *testing.T) {
	sink := &recordingSink{}
	r := NewReporter(time.Hour, sink)

	for i := 0; i < 10; i++ {
		r.Report(Event{TaskID: "a", Percent: i})
		r.Report(Event{TaskID: "b", Percent: i})
	}
	r.Report(Event{TaskID: "a", State: model.StateCompleted})
	r.Close()

	var a, b, states int
	for _, ev := range sink.snapshot() {
		switch {
		case !ev.IsProgress():
			states++
		case ev.TaskID == "a":
			a++
		case ev.TaskID == "b":
			b++
		}
	}
	assert.Equal(t, 1, a, "one progress event per interval for a")
	assert.Equal(t, 1, b, "one progress event per interval for b")
	assert.Equal(t, 1, states, "state events are never throttled")
}

func TestReporter_DropsUnknownTaskAndSurvivesPanics(t *testing.T) {
	sink := &recordingSink{}
	unknown := SinkFunc(func(Event) error { return ErrUnknownTask })
	broken := SinkFunc(func(Event) error { panic("boom") })
	r := NewReporter(0, unknown, broken, sink)

	r.Report(Event{TaskID: "gone", State: model.StateStopped})
	r.Report(Event{TaskID: "gone", State: model.StateStopped})
	r.Close()

	assert.Len(t, sink.snapshot(), 2)
}

func TestReporter_ReportDoesNotBlockOnSlowSink(t *testing.T) {
	release := make(chan struct{})
	slow := SinkFunc(func(Event) error {
		<-release
		return nil
	})
	r := NewReporter(0, slow)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			r.Report(Event{TaskID: "t", State: model.StateActive})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Report blocked on a slow sink")
	}

	close(release)
	r.Close()
}

func TestReporter_AttachAndClose(t *testing.T) {
	r := NewReporter(0)
	sink := &recordingSink{}
	r.Attach(sink)

	r.Report(Event{TaskID: "x", State: model.StateActive})
	r.Close()
	r.Close()
	r.Report(Event{TaskID: "x", State: model.StateCompleted})

	assert.Len(t, sink.snapshot(), 1, "events after Close are ignored")
}

func TestLogSink_Handle(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSinkWith(zerolog.New(&buf))

	require.NoError(t, sink.Handle(Event{
		TaskID: "task-9",
		State:  model.StateFailed,
		Reason: model.TransferReason("auth"),
		Text:   "failed (auth): HTTP Error 403",
	}))

	line := buf.String()
	assert.Contains(t, line, `"level":"warn"`)
	assert.Contains(t, line, `"task":"task-9"`)
	assert.Contains(t, line, `"reason":"transfer:auth"`)
	assert.True(t, strings.Contains(line, "HTTP Error 403"))
}

// fakeStream captures XADD calls
type fakeStream struct {
	args *redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = a
	return redis.NewStringResult("1-0", f.err)
}

func TestRedisSink_Handle(t *testing.T) {
	stream := &fakeStream{}
	sink := NewRedisSink(stream, "vod:events")

	ev := Event{TaskID: "task-1", State: model.StateCompleted, Path: "/out/a.mp4", Percent: 100, At: time.UnixMilli(1700000000000)}
	require.NoError(t, sink.Handle(ev))

	require.NotNil(t, stream.args)
	assert.Equal(t, "vod:events", stream.args.Stream)
	assert.True(t, stream.args.Approx)
	assert.Equal(t, int64(DefaultStreamMaxLen), stream.args.MaxLen)

	values, ok := stream.args.Values.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Completed", values["state"])
	assert.Equal(t, "/out/a.mp4", values["path"])
	assert.Equal(t, int64(1700000000000), values["at_ms"])

	stream.err = errors.New("connection refused")
	assert.Error(t, sink.Handle(ev))
}
