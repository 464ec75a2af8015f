package ui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog/log"

	"github.com/ytget/vod-downloader/internal/config"
	"github.com/ytget/vod-downloader/internal/download"
	"github.com/ytget/vod-downloader/internal/model"
	"github.com/ytget/vod-downloader/internal/platform"
)

// limitSetter is implemented by controllers whose slot limit can change at
// runtime
type limitSetter interface {
	SetMaxParallel(n int)
}

// RootUI represents the main window
type RootUI struct {
	window    fyne.Window
	ctl       download.Controller
	settings  *config.Settings
	presenter *Presenter

	sourceEntry *widget.Entry
	downloadBtn *widget.Button
	stopAllBtn  *widget.Button
}

// NewRootUI builds the main window around ctl. presenter must be attached to
// the reporter feeding ctl's events.
func NewRootUI(window fyne.Window, ctl download.Controller, settings *config.Settings, presenter *Presenter) *RootUI {
	if err := platform.CreateDirectoryIfNotExists(settings.GetDownloadDirectory()); err != nil {
		log.Warn().Err(err).Msg("failed to create download directory")
	}

	ui := &RootUI{
		window:    window,
		ctl:       ctl,
		settings:  settings,
		presenter: presenter,
	}
	presenter.SetCallbacks(ui.onPauseResume, ui.onStop, ui.onReveal)

	window.SetTitle("VOD Downloader")
	ui.setupUI()
	return ui
}

func (ui *RootUI) setupUI() {
	ui.sourceEntry = widget.NewMultiLineEntry()
	ui.sourceEntry.SetPlaceHolder(SourcePlaceholder)
	ui.sourceEntry.SetMinRowsVisible(SourceRows)
	ui.sourceEntry.Validator = validateSources

	ui.downloadBtn = widget.NewButton(LabelDownload, ui.onDownloadClick)
	ui.downloadBtn.Importance = widget.HighImportance

	ui.stopAllBtn = widget.NewButton(LabelStopAll, ui.ctl.StopAll)

	settingsBtn := widget.NewButton(IconSettings, ui.onShowSettings)
	settingsBtn.Importance = widget.LowImportance

	top := container.NewBorder(nil, nil, settingsBtn, container.NewVBox(ui.downloadBtn, ui.stopAllBtn), ui.sourceEntry)
	rows := container.NewVScroll(ui.presenter.List())

	ui.window.SetContent(container.NewBorder(top, ui.presenter.SummaryLabel(), nil, nil, rows))
	ui.window.Resize(fyne.NewSize(WindowWidth, WindowHeight))
}

// validateSources accepts blank input and http(s) URLs, one per line
func validateSources(input string) error {
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parsed, err := url.Parse(line)
		if err != nil {
			return err
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("URL must start with http:// or https://: %s", line)
		}
	}
	return nil
}

// onDownloadClick submits every line of the entry in order
func (ui *RootUI) onDownloadClick() {
	if err := validateSources(ui.sourceEntry.Text); err != nil {
		dialog.ShowError(err, ui.window)
		return
	}

	sources := strings.Split(ui.sourceEntry.Text, "\n")
	tasks, err := ui.ctl.SubmitMany(context.Background(), sources, ui.settings.GetFilenameTemplate())
	ui.track(tasks)

	if err != nil {
		log.Warn().Err(err).Int("accepted", len(tasks)).Msg("submission rejected")
		if errors.Is(err, download.ErrDuplicateTask) {
			dialog.ShowInformation("Already queued", err.Error(), ui.window)
		} else if len(tasks) == 0 {
			dialog.ShowError(err, ui.window)
		}
	}
	if len(tasks) > 0 {
		ui.sourceEntry.SetText("")
	}
}

// track adds rows for tasks, then syncs each with the controller so events
// delivered before the row existed are not lost
func (ui *RootUI) track(tasks []model.Task) {
	for _, t := range tasks {
		ui.presenter.Add(t)
		if cur, ok := ui.ctl.Get(t.ID); ok {
			ui.presenter.Add(cur)
		}
	}
}

func (ui *RootUI) onPauseResume(taskID string) {
	t, ok := ui.ctl.Get(taskID)
	if !ok {
		return
	}

	var err error
	if t.State == model.StatePaused {
		err = ui.ctl.Resume(taskID)
	} else {
		err = ui.ctl.Pause(taskID)
	}
	ui.showControlError(err)
}

func (ui *RootUI) onStop(taskID string) {
	ui.showControlError(ui.ctl.Stop(taskID))
}

func (ui *RootUI) onReveal(taskID string) {
	t, ok := ui.ctl.Get(taskID)
	if !ok || t.Destination == "" {
		return
	}
	if err := platform.RevealInFileManager(t.Destination); err != nil {
		dialog.ShowError(err, ui.window)
	}
}

// showControlError surfaces rejected control requests without treating them
// as failures
func (ui *RootUI) showControlError(err error) {
	if err == nil {
		return
	}
	log.Debug().Err(err).Msg("control request rejected")
	widget.ShowPopUp(widget.NewLabel(err.Error()), ui.window.Canvas())
}

func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.settings, ui.window, ui.onSettingsSaved).Show()
}

func (ui *RootUI) onSettingsSaved() {
	if ls, ok := ui.ctl.(limitSetter); ok {
		ls.SetMaxParallel(ui.settings.GetMaxParallelDownloads())
	}
	if err := platform.CreateDirectoryIfNotExists(ui.settings.GetDownloadDirectory()); err != nil {
		dialog.ShowError(err, ui.window)
	}
}
