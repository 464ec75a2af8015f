package model

import (
	"errors"
	"testing"
	"time"
)

func TestTask_GetETAString(t *testing.T) {
	tests := []struct {
		etaSec   int
		expected string
	}{
		{-1, "—"},
		{0, "—"},
		{30, "00:30"},
		{90, "01:30"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{7323, "02:02:03"},
	}

	for _, test := range tests {
		task := &Task{ETASec: test.etaSec}
		result := task.GetETAString()
		if result != test.expected {
			t.Errorf("GetETAString() with ETASec=%d = %s, expected %s", test.etaSec, result, test.expected)
		}
	}
}

func TestTask_GetDisplayTitle(t *testing.T) {
	tests := []struct {
		name        string
		resolved    string
		destination string
		source      string
		expected    string
	}{
		{"resolved name wins", "Stream Replay", "/d/file.mp4", "https://chzzk.naver.com/video/1", "Stream Replay"},
		{"url-like name is skipped", "https://x", "/d/Replay 2024.mp4", "https://chzzk.naver.com/video/2", "Replay 2024"},
		{"windows path", "", `C:\videos\clip.mkv`, "https://chzzk.naver.com/video/3", "clip"},
		{"falls back to source", "", "", "https://chzzk.naver.com/video/4", "https://chzzk.naver.com/video/4"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			task := &Task{ResolvedName: test.resolved, Destination: test.destination, Source: test.source}
			if got := task.GetDisplayTitle(); got != test.expected {
				t.Errorf("GetDisplayTitle() = '%s', expected '%s'", got, test.expected)
			}
		})
	}
}

func TestTask_StatusText(t *testing.T) {
	tests := []struct {
		task     Task
		expected string
	}{
		{Task{State: StateWaiting}, "waiting"},
		{Task{State: StateActive}, "starting"},
		{Task{State: StateActive, Percent: 42, Speed: "1.2MB/s", ETASec: 90}, "42% · 1.2MB/s · ETA 01:30"},
		{Task{State: StateActive, Percent: 10}, "10%"},
		{Task{State: StatePaused, Percent: 55}, "paused at 55%"},
		{Task{State: StateFailed, Reason: TransferReason("auth"), LastError: "HTTP Error 403"}, "failed (auth): HTTP Error 403"},
		{Task{State: StateFailed, Reason: ReasonDuplicate}, "failed (duplicate)"},
		{Task{State: StateCompleted}, "completed"},
	}

	for _, test := range tests {
		if got := test.task.StatusText(); got != test.expected {
			t.Errorf("StatusText() for %s = %q, expected %q", test.task.State, got, test.expected)
		}
	}
}

func TestOutcome_StateAndSlot(t *testing.T) {
	tests := []struct {
		outcome  Outcome
		state    TaskState
		releases bool
	}{
		{Completed("/tmp/a.mp4"), StateCompleted, true},
		{Paused(), StatePaused, false},
		{Stopped(), StateStopped, true},
		{Failed(ReasonDuplicate, errors.New("exists")), StateFailed, true},
	}

	for _, test := range tests {
		if got := test.outcome.State(); got != test.state {
			t.Errorf("Outcome(%d).State() = %s, expected %s", test.outcome.Kind, got, test.state)
		}
		if got := test.outcome.ReleasesSlot(); got != test.releases {
			t.Errorf("Outcome(%d).ReleasesSlot() = %v, expected %v", test.outcome.Kind, got, test.releases)
		}
	}
}

func TestSummary_Add(t *testing.T) {
	var s Summary
	for _, st := range []TaskState{StateWaiting, StateWaiting, StateActive, StatePaused, StateFailed} {
		s.Add(st)
	}

	if s.Total != 5 || s.Waiting != 2 || s.Active != 1 || s.Paused != 1 || s.Failed != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestTask_Creation(t *testing.T) {
	now := time.Now()
	task := &Task{
		ID:        "task-123",
		Source:    "https://chzzk.naver.com/video/123",
		State:     StateWaiting,
		ETASec:    -1,
		CreatedAt: now,
	}

	if task.State != StateWaiting {
		t.Errorf("Expected state to be Waiting, got %s", task.State)
	}

	if task.OccupiesSlot {
		t.Error("A new task must not occupy a slot")
	}

	if !task.CreatedAt.Equal(now) {
		t.Errorf("Expected CreatedAt to be %v, got %v", now, task.CreatedAt)
	}
}
