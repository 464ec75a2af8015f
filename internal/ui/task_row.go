package ui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/vod-downloader/internal/model"
	"github.com/ytget/vod-downloader/internal/report"
)

// TaskRow renders one task: title, status text, progress and controls
type TaskRow struct {
	widget.BaseWidget

	task     model.Task
	canPause bool

	titleLabel  *widget.Label
	statusLabel *widget.Label
	progressBar *widget.ProgressBar

	pauseBtn *widget.Button
	stopBtn  *widget.Button
	showBtn  *widget.Button

	onPauseResume func(taskID string)
	onStop        func(taskID string)
	onReveal      func(taskID string)
}

// NewTaskRow creates a row for task. canPause hides the pause control when
// the engine cannot pause.
func NewTaskRow(task model.Task, canPause bool) *TaskRow {
	tr := &TaskRow{task: task, canPause: canPause}
	tr.ExtendBaseWidget(tr)
	tr.createUI()
	tr.render()
	return tr
}

// SetCallbacks sets the action callbacks
func (tr *TaskRow) SetCallbacks(onPauseResume, onStop, onReveal func(taskID string)) {
	tr.onPauseResume = onPauseResume
	tr.onStop = onStop
	tr.onReveal = onReveal
}

// Task returns the row's current view of the task
func (tr *TaskRow) Task() model.Task {
	return tr.task
}

// UpdateTask replaces the row's task with a fresh snapshot
func (tr *TaskRow) UpdateTask(task model.Task) {
	tr.task = task
	tr.render()
}

// Apply folds a status event into the row. Progress events only move the
// bar and text; state events also change the controls.
func (tr *TaskRow) Apply(ev report.Event) {
	if ev.State != "" {
		tr.task.State = ev.State
		tr.task.OccupiesSlot = ev.State.OccupiesSlot()
		tr.task.Reason = ev.Reason
	}
	if ev.Title != "" {
		tr.task.ResolvedName = ev.Title
	}
	if ev.Path != "" {
		tr.task.Destination = ev.Path
	}
	if !ev.Metadata {
		tr.task.Percent = ev.Percent
		tr.task.Progress = float64(ev.Percent) / 100
	}

	tr.render()
	if ev.Text != "" {
		tr.statusLabel.SetText(stateIcon(tr.task.State) + " " + ev.Text)
	}
}

func (tr *TaskRow) createUI() {
	tr.titleLabel = widget.NewLabel("")
	tr.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	tr.titleLabel.Truncation = fyne.TextTruncateEllipsis

	tr.statusLabel = widget.NewLabel("")
	tr.statusLabel.Alignment = fyne.TextAlignTrailing

	tr.progressBar = widget.NewProgressBar()

	tr.pauseBtn = widget.NewButton(LabelPause, func() {
		if tr.onPauseResume != nil {
			tr.onPauseResume(tr.task.ID)
		}
	})
	tr.stopBtn = widget.NewButton(LabelStop, func() {
		if tr.onStop != nil {
			tr.onStop(tr.task.ID)
		}
	})
	tr.showBtn = widget.NewButton(LabelShow, func() {
		if tr.onReveal != nil {
			tr.onReveal(tr.task.ID)
		}
	})
}

func (tr *TaskRow) render() {
	tr.titleLabel.SetText(cleanTitle(tr.task.GetDisplayTitle()))
	tr.statusLabel.SetText(stateIcon(tr.task.State) + " " + tr.task.StatusText())

	switch tr.task.State {
	case model.StateFailed:
		tr.statusLabel.Importance = widget.DangerImportance
	case model.StateCompleted:
		tr.statusLabel.Importance = widget.SuccessImportance
	case model.StateActive:
		tr.statusLabel.Importance = widget.HighImportance
	default:
		tr.statusLabel.Importance = widget.MediumImportance
	}
	tr.statusLabel.Refresh()

	if tr.task.State == model.StateCompleted {
		tr.progressBar.SetValue(1)
	} else {
		tr.progressBar.SetValue(tr.task.Progress)
	}

	tr.updateButtons()
}

func (tr *TaskRow) updateButtons() {
	switch tr.task.State {
	case model.StateActive:
		tr.pauseBtn.SetText(LabelPause)
		setEnabled(tr.pauseBtn, tr.canPause)
	case model.StatePaused:
		tr.pauseBtn.SetText(LabelResume)
		tr.pauseBtn.Enable()
	default:
		tr.pauseBtn.SetText(LabelPause)
		tr.pauseBtn.Disable()
	}
	if !tr.canPause {
		tr.pauseBtn.Hide()
	}

	setEnabled(tr.stopBtn, !tr.task.State.IsTerminal())
	setEnabled(tr.showBtn, tr.task.State == model.StateCompleted && tr.task.Destination != "")
}

// CreateRenderer lays out the title and progress over a line of controls
func (tr *TaskRow) CreateRenderer() fyne.WidgetRenderer {
	controls := container.NewHBox(tr.pauseBtn, tr.stopBtn, tr.showBtn)
	top := container.NewBorder(nil, nil, nil, tr.statusLabel, tr.titleLabel)
	bottom := container.NewBorder(nil, nil, nil, controls, tr.progressBar)
	return widget.NewSimpleRenderer(container.NewVBox(top, bottom))
}

func setEnabled(btn *widget.Button, enabled bool) {
	if enabled {
		btn.Enable()
	} else {
		btn.Disable()
	}
}

func stateIcon(state model.TaskState) string {
	switch state {
	case model.StateWaiting:
		return IconWaiting
	case model.StateActive:
		return IconActive
	case model.StatePaused:
		return IconPaused
	case model.StateStopped:
		return IconStopped
	case model.StateFailed:
		return IconError
	case model.StateCompleted:
		return IconDone
	}
	return ""
}

// cleanTitle flattens control whitespace that breaks single-line labels
func cleanTitle(title string) string {
	r := strings.NewReplacer("\n", " ", "\r", " ", "\t", " ")
	return strings.TrimSpace(r.Replace(title))
}
