package ui

import (
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/ytget/vod-downloader/internal/config"
)

// SettingsDialog edits the persisted settings
type SettingsDialog struct {
	settings *config.Settings
	window   fyne.Window
	dialog   *dialog.ConfirmDialog
	onSaved  func()

	downloadDirEntry *widget.Entry
	maxParallelEntry *widget.Entry
	templateEntry    *widget.Entry
	engineSelect     *widget.Select
	playlistCheck    *widget.Check
}

// NewSettingsDialog creates a settings dialog; onSaved runs after a save
func NewSettingsDialog(settings *config.Settings, window fyne.Window, onSaved func()) *SettingsDialog {
	sd := &SettingsDialog{
		settings: settings,
		window:   window,
		onSaved:  onSaved,
	}

	sd.createUI()
	return sd
}

// Show displays the dialog with current values
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

func (sd *SettingsDialog) createUI() {
	sd.downloadDirEntry = widget.NewEntry()
	browseDirBtn := widget.NewButton("Browse", sd.onBrowseDirectory)
	downloadDirRow := container.NewBorder(nil, nil, nil, browseDirBtn, sd.downloadDirEntry)

	sd.maxParallelEntry = widget.NewEntry()
	sd.maxParallelEntry.SetPlaceHolder("1-10")

	sd.templateEntry = widget.NewEntry()
	sd.templateEntry.SetPlaceHolder(config.DefaultFilenameTemplate)

	sd.engineSelect = widget.NewSelect(sd.settings.GetEngineOptions(), nil)
	sd.playlistCheck = widget.NewCheck("Expand playlists", nil)

	form := widget.NewForm(
		widget.NewFormItem("Download directory", downloadDirRow),
		widget.NewFormItem("Parallel downloads", sd.maxParallelEntry),
		widget.NewFormItem("File name template", sd.templateEntry),
		widget.NewFormItem("Engine", sd.engineSelect),
		widget.NewFormItem("", sd.playlistCheck),
	)

	sd.dialog = dialog.NewCustomConfirm("Settings", "Save", "Cancel", form, sd.onSave, sd.window)
	sd.dialog.Resize(fyne.NewSize(520, 320))
}

func (sd *SettingsDialog) loadCurrentSettings() {
	sd.downloadDirEntry.SetText(sd.settings.GetDownloadDirectory())
	sd.maxParallelEntry.SetText(strconv.Itoa(sd.settings.GetMaxParallelDownloads()))
	sd.templateEntry.SetText(sd.settings.GetFilenameTemplate())
	sd.engineSelect.SetSelected(sd.settings.GetEngine())
	sd.playlistCheck.SetChecked(sd.settings.GetExpandPlaylists())
}

func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.downloadDirEntry.SetText(uri.Path())
	}, sd.window)
}

// onSave stores the edited values. The engine choice applies on next start.
func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}

	if sd.downloadDirEntry.Text != "" {
		sd.settings.SetDownloadDirectory(sd.downloadDirEntry.Text)
	}
	if n, err := strconv.Atoi(sd.maxParallelEntry.Text); err == nil {
		sd.settings.SetMaxParallelDownloads(n)
	}
	sd.settings.SetFilenameTemplate(sd.templateEntry.Text)
	if sd.engineSelect.Selected != "" {
		sd.settings.SetEngine(sd.engineSelect.Selected)
	}
	sd.settings.SetExpandPlaylists(sd.playlistCheck.Checked)

	if sd.onSaved != nil {
		sd.onSaved()
	}
}
