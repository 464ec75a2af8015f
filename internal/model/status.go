package model

import "sync/atomic"

// TaskState represents the lifecycle state of a fetch task
type TaskState string

const (
	// StateWaiting means the task is queued for a free slot
	StateWaiting TaskState = "Waiting"

	// StateActive means the task holds a slot and its fetch is running
	StateActive TaskState = "Active"

	// StatePaused means the fetch was interrupted by the user; the slot is kept
	StatePaused TaskState = "Paused"

	// StateStopped means the task was stopped by user
	StateStopped TaskState = "Stopped"

	// StateCompleted means the task finished successfully
	StateCompleted TaskState = "Completed"

	// StateFailed means the task failed with an error
	StateFailed TaskState = "Failed"
)

// transitions lists every allowed (from -> to) edge of the task state machine.
var transitions = map[TaskState][]TaskState{
	StateWaiting: {StateActive, StateStopped},
	StateActive:  {StateCompleted, StatePaused, StateStopped, StateFailed},
	StatePaused:  {StateActive, StateStopped},
}

// String returns the string representation of TaskState
func (ts TaskState) String() string {
	return string(ts)
}

// IsTerminal returns true if the task can no longer change state
func (ts TaskState) IsTerminal() bool {
	return ts == StateStopped || ts == StateCompleted || ts == StateFailed
}

// OccupiesSlot returns true for states that hold a concurrency slot
func (ts TaskState) OccupiesSlot() bool {
	return ts == StateActive || ts == StatePaused
}

// CanTransition reports whether the state machine allows moving to next
func (ts TaskState) CanTransition(next TaskState) bool {
	for _, allowed := range transitions[ts] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ControlFlag carries the user's intent to a running fetch. It is sampled by
// the executor at check points.
type ControlFlag int32

const (
	FlagRun ControlFlag = iota
	FlagPauseRequested
	FlagStopRequested
)

// String returns the string representation of ControlFlag
func (f ControlFlag) String() string {
	switch f {
	case FlagRun:
		return "Run"
	case FlagPauseRequested:
		return "PauseRequested"
	case FlagStopRequested:
		return "StopRequested"
	default:
		return "Unknown"
	}
}

// Control is the per-task flag cell shared between the controller and the
// goroutine running the fetch. Reads need no lock.
type Control struct {
	v atomic.Int32
}

// Load returns the current flag
func (c *Control) Load() ControlFlag {
	return ControlFlag(c.v.Load())
}

// Store replaces the current flag
func (c *Control) Store(f ControlFlag) {
	c.v.Store(int32(f))
}
