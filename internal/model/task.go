package model

import (
	"fmt"
	"strings"
	"time"
)

// Reason is the categorized cause attached to a failed task
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonDuplicate Reason = "duplicate"
	ReasonInternal  Reason = "internal"
)

// TransferReason builds the reason for a failed transfer of the given category
func TransferReason(category string) Reason {
	return Reason("transfer:" + category)
}

// Task is a snapshot of one fetch-and-write job
type Task struct {
	ID                  string
	Source              string      // remote asset identifier
	DestinationTemplate string      // user naming template
	ResolvedName        string      // display name once metadata is known
	Destination         string      // concrete output path once known
	State               TaskState   // lifecycle state
	Control             ControlFlag // user intent at snapshot time
	OccupiesSlot        bool        // true while Active or Paused
	Reason              Reason      // set when Failed
	Progress            float64     // 0.0 to 1.0
	Percent             int         // 0 to 100
	Speed               string      // human readable speed (e.g., "1.2MB/s")
	ETASec              int         // ETA in seconds, -1 if unknown
	LastError           string      // last error message if any
	Runs                int         // executor invocations; resume starts a new run
	CreatedAt           time.Time
	StartedAt           time.Time // when the first run started
	FinishedAt          time.Time // when a terminal state was reached
}

// GetETAString returns ETA formatted as hh:mm:ss, or "—" if unknown
func (t *Task) GetETAString() string {
	if t.ETASec <= 0 {
		return "—"
	}

	hours := t.ETASec / 3600
	minutes := (t.ETASec % 3600) / 60
	seconds := t.ETASec % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// GetDisplayTitle returns resolved name, filename, or source in order of preference
func (t *Task) GetDisplayTitle() string {
	if t.ResolvedName != "" && !strings.HasPrefix(t.ResolvedName, "http") {
		return t.ResolvedName
	}

	if t.Destination != "" {
		parts := strings.FieldsFunc(t.Destination, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			filename := parts[len(parts)-1]
			if idx := strings.LastIndex(filename, "."); idx > 0 {
				filename = filename[:idx]
			}
			return filename
		}
	}

	return t.Source
}

// StatusText renders the human readable progress line shown next to a task
func (t *Task) StatusText() string {
	switch t.State {
	case StateActive:
		if t.Percent <= 0 && t.Speed == "" {
			return "starting"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%d%%", t.Percent)
		if t.Speed != "" {
			b.WriteString(" · ")
			b.WriteString(t.Speed)
		}
		if t.ETASec > 0 {
			b.WriteString(" · ETA ")
			b.WriteString(t.GetETAString())
		}
		return b.String()
	case StatePaused:
		return fmt.Sprintf("paused at %d%%", t.Percent)
	case StateFailed:
		category := strings.TrimPrefix(string(t.Reason), "transfer:")
		if category == "" {
			category = "unknown"
		}
		if t.LastError == "" {
			return fmt.Sprintf("failed (%s)", category)
		}
		return fmt.Sprintf("failed (%s): %s", category, t.LastError)
	default:
		return strings.ToLower(t.State.String())
	}
}

// OutcomeKind enumerates the normalized results of one executor run
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomePaused
	OutcomeStopped
	OutcomeFailed
)

// Outcome is the structured result of one executor run. Exactly one state
// transition and one slot decision follow from it.
type Outcome struct {
	Kind   OutcomeKind
	Reason Reason
	Err    error
	Path   string // written artifact on completion
}

// Completed returns a successful outcome that wrote path
func Completed(path string) Outcome { return Outcome{Kind: OutcomeCompleted, Path: path} }

// Paused returns the outcome of a run interrupted by a pause request
func Paused() Outcome { return Outcome{Kind: OutcomePaused} }

// Stopped returns the outcome of a run interrupted by a stop request
func Stopped() Outcome { return Outcome{Kind: OutcomeStopped} }

// Failed returns a failed outcome with a categorized reason
func Failed(reason Reason, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason, Err: err}
}

// State maps the outcome to the state the task moves to
func (o Outcome) State() TaskState {
	switch o.Kind {
	case OutcomeCompleted:
		return StateCompleted
	case OutcomePaused:
		return StatePaused
	case OutcomeStopped:
		return StateStopped
	default:
		return StateFailed
	}
}

// ReleasesSlot reports whether the task gives its slot back after this outcome
func (o Outcome) ReleasesSlot() bool {
	return o.Kind != OutcomePaused
}

// Summary aggregates task counts per state
type Summary struct {
	Total     int `json:"total"`
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Paused    int `json:"paused"`
	Stopped   int `json:"stopped"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Slots     int `json:"slots"` // tasks currently holding a slot
	Limit     int `json:"limit"` // configured concurrency limit
}

// Add counts one task in the summary
func (s *Summary) Add(state TaskState) {
	s.Total++
	switch state {
	case StateWaiting:
		s.Waiting++
	case StateActive:
		s.Active++
	case StatePaused:
		s.Paused++
	case StateStopped:
		s.Stopped++
	case StateCompleted:
		s.Completed++
	case StateFailed:
		s.Failed++
	}
}
