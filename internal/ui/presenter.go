package ui

import (
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/vod-downloader/internal/model"
	"github.com/ytget/vod-downloader/internal/report"
)

// Presenter is a report sink that keeps one TaskRow per tracked task.
// Widget updates are marshalled onto the Fyne thread with fyne.Do.
type Presenter struct {
	mu       sync.Mutex
	rows     map[string]*TaskRow
	canPause bool

	list    *fyne.Container
	summary *widget.Label

	summaryFn func() model.Summary

	onPauseResume func(taskID string)
	onStop        func(taskID string)
	onReveal      func(taskID string)
}

var _ report.Sink = (*Presenter)(nil)

// NewPresenter creates an empty presenter. summaryFn, when set, refreshes the
// summary line after every state change.
func NewPresenter(canPause bool, summaryFn func() model.Summary) *Presenter {
	return &Presenter{
		rows:      make(map[string]*TaskRow),
		canPause:  canPause,
		list:      container.NewVBox(),
		summary:   widget.NewLabel(""),
		summaryFn: summaryFn,
	}
}

// SetCallbacks sets the row action callbacks used for rows added afterwards
func (p *Presenter) SetCallbacks(onPauseResume, onStop, onReveal func(taskID string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onPauseResume = onPauseResume
	p.onStop = onStop
	p.onReveal = onReveal
}

// List returns the container holding the task rows
func (p *Presenter) List() *fyne.Container {
	return p.list
}

// SummaryLabel returns the label showing per-state counts
func (p *Presenter) SummaryLabel() *widget.Label {
	return p.summary
}

// Row returns the row for id, if tracked
func (p *Presenter) Row(id string) (*TaskRow, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	row, ok := p.rows[id]
	return row, ok
}

// Add starts tracking task. Adding a tracked task refreshes its row.
func (p *Presenter) Add(task model.Task) {
	p.mu.Lock()
	row, ok := p.rows[task.ID]
	if !ok {
		row = NewTaskRow(task, p.canPause)
		row.SetCallbacks(p.onPauseResume, p.onStop, p.onReveal)
		p.rows[task.ID] = row
	}
	p.mu.Unlock()

	fyne.Do(func() {
		if ok {
			row.UpdateTask(task)
		} else {
			p.list.Add(row)
		}
		p.refreshSummary()
	})
}

// Handle applies ev to its row. Events for untracked tasks return
// report.ErrUnknownTask and are otherwise ignored.
func (p *Presenter) Handle(ev report.Event) error {
	row, ok := p.Row(ev.TaskID)
	if !ok {
		return fmt.Errorf("%w: %s", report.ErrUnknownTask, ev.TaskID)
	}

	fyne.Do(func() {
		row.Apply(ev)
		if ev.State != "" {
			p.refreshSummary()
		}
	})
	return nil
}

func (p *Presenter) refreshSummary() {
	if p.summaryFn == nil {
		return
	}
	s := p.summaryFn()
	p.summary.SetText(fmt.Sprintf("%d active / %d slots%s%d waiting%s%d paused%s%d done%s%d failed%s%d stopped",
		s.Active, s.Limit, MiddleDotSeparator,
		s.Waiting, MiddleDotSeparator,
		s.Paused, MiddleDotSeparator,
		s.Completed, MiddleDotSeparator,
		s.Failed, MiddleDotSeparator,
		s.Stopped))
}
