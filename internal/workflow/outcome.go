package workflow

import (
	"fmt"
	"time"
)

const taskFailureTemplateConstant = "%s: task %q failed: %v"

// TaskStatus classifies the result of one executed task.
type TaskStatus string

const (
	// TaskStatusCompleted marks a task whose action finished without error.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusSkipped marks a task whose skip predicate fired.
	TaskStatusSkipped TaskStatus = "skipped"
	// TaskStatusFailed marks the task that aborted the flow.
	TaskStatusFailed TaskStatus = "failed"
)

// TaskOutcome records the result of a single task.
type TaskOutcome struct {
	Name     string
	Status   TaskStatus
	Duration time.Duration
	Error    error
}

// FlowOutcome summarizes one flow run.
type FlowOutcome struct {
	FlowName     string
	StartTime    time.Time
	EndTime      time.Time
	TaskOutcomes []TaskOutcome
}

// Duration reports the wall-clock time of the run.
func (outcome FlowOutcome) Duration() time.Duration {
	return outcome.EndTime.Sub(outcome.StartTime)
}

// TaskFailureError identifies the task that aborted a flow.
type TaskFailureError struct {
	FlowName string
	TaskName string
	Cause    error
}

// Error names the flow and task together with the underlying failure.
func (failure TaskFailureError) Error() string {
	return fmt.Sprintf(taskFailureTemplateConstant, failure.FlowName, failure.TaskName, failure.Cause)
}

// Unwrap exposes the underlying failure for errors.Is and errors.As checks.
func (failure TaskFailureError) Unwrap() error {
	return failure.Cause
}
