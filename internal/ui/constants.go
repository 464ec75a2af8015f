package ui

// State icons
const (
	IconSettings = "⚙"
	IconWaiting  = "⏳"
	IconActive   = "▶"
	IconPaused   = "⏸"
	IconStopped  = "⏹"
	IconError    = "❌"
	IconDone     = "✔"
)

// Button labels
const (
	LabelDownload = "Download"
	LabelPause    = "Pause"
	LabelResume   = "Resume"
	LabelStop     = "Stop"
	LabelStopAll  = "Stop all"
	LabelShow     = "Show"
)

// Text fragments
const (
	MiddleDotSeparator = " · "
	SourcePlaceholder  = "One URL per line"
)

// Layout sizing
const (
	StatusLabelWidth float32 = 140
	RowMinWidth      float32 = 400
	WindowWidth      float32 = 720
	WindowHeight     float32 = 520
	SourceRows               = 3
)
