package download

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/ytget/vod-downloader/internal/engine"
	"github.com/ytget/vod-downloader/internal/model"
)

// checkpointMonitor connects one run to its task: progress flows into the
// record and every Continue call samples the control flag
type checkpointMonitor struct {
	s        *Service
	rec      *record
	observed atomic.Int32 // flag seen by the check point that interrupted the run
}

func (m *checkpointMonitor) Progress(p engine.Progress) {
	m.s.progress(m.rec, p)
}

func (m *checkpointMonitor) Continue() bool {
	flag := m.rec.control.Load()
	if flag == model.FlagRun {
		return true
	}
	m.observed.Store(int32(flag))
	return false
}

// run performs one executor invocation and normalizes every result,
// including panics, into an Outcome. Apart from destination lookup it only
// touches shared state through the monitor.
func (s *Service) run(rec *record, req engine.Request) (out model.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("task", rec.task.ID).Msg("fetch panicked")
			out = model.Failed(model.ReasonInternal, fmt.Errorf("internal error: %v", p))
		}
	}()

	if dest := s.destination(rec, req); dest != "" {
		req.Destination = dest
		if complete, partial := s.artifact(dest); complete && !partial {
			return model.Failed(model.ReasonDuplicate, fmt.Errorf("already downloaded: %s", dest))
		}
	}

	// a request may have landed between admission and start
	if flag := rec.control.Load(); flag != model.FlagRun {
		return interruptedOutcome(flag)
	}

	mon := &checkpointMonitor{s: s, rec: rec}
	res, err := s.engine.Fetch(s.ctx, req, mon)

	switch {
	case err == nil:
		return model.Completed(res.Path)
	case errors.Is(err, engine.ErrInterrupted):
		flag := model.ControlFlag(mon.observed.Load())
		if flag == model.FlagRun {
			flag = rec.control.Load()
		}
		return interruptedOutcome(flag)
	case errors.Is(err, engine.ErrAlreadyDownloaded):
		return model.Failed(model.ReasonDuplicate, err)
	default:
		te := engine.Classify(err)
		return model.Failed(model.TransferReason(te.Category), te.Err)
	}
}

// destination returns the path a run will write to, or "" when neither the
// resolver nor the engine can tell before fetching
func (s *Service) destination(rec *record, req engine.Request) string {
	if req.Destination != "" {
		return req.Destination
	}

	s.mu.Lock()
	dest := rec.task.Destination
	s.mu.Unlock()
	if dest != "" {
		return dest
	}

	if s.resolver != nil {
		if dest = s.resolve(rec, req); dest != "" {
			return dest
		}
	}
	if p, ok := s.engine.(engine.Planner); ok {
		return p.Plan(req)
	}
	return ""
}

// interruptedOutcome maps the flag that interrupted a run to its outcome.
// Anything but a pause request counts as a stop.
func interruptedOutcome(flag model.ControlFlag) model.Outcome {
	if flag == model.FlagPauseRequested {
		return model.Paused()
	}
	return model.Stopped()
}
