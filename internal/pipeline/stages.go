package pipeline

import (
	"fmt"
	"time"
)

// Stage identifies one phase of a pipeline run.
type Stage int

// Stages in execution order, followed by the terminal states. A run moves
// forward through the working stages and ends in exactly one of Done,
// Failed or Cancelled.
const (
	StageIdle Stage = iota
	StageCleaning
	StagePartitioning
	StageDecimating
	StageUnwrapping
	StageBaking
	StageDone
	StageFailed
	StageCancelled
)

var stageNames = [...]string{
	"idle",
	"cleaning",
	"partitioning",
	"decimating",
	"unwrapping",
	"baking",
	"done",
	"failed",
	"cancelled",
}

// String returns the stage's lowercase name.
func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Terminal reports whether the stage ends a run.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed || s == StageCancelled
}

// StageStatus is the outcome of one working stage within a run.
type StageStatus int

// Stage outcomes.
const (
	StatusOK StageStatus = iota
	StatusSkipped
	StatusFailed
	StatusCancelled
)

var statusNames = [...]string{"ok", "skipped", "failed", "cancelled"}

// String returns the status's lowercase name.
func (s StageStatus) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// StageReport records one stage's outcome and how long it took.
type StageReport struct {
	Stage    Stage
	Status   StageStatus
	Duration time.Duration
}
