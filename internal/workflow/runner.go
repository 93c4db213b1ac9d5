package workflow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	flowStartedMessageConstant   = "Flow started"
	flowCompletedMessageConstant = "Flow completed"
	flowFailedMessageConstant    = "Flow failed"
	taskStartedMessageConstant   = "Task started"
	taskCompletedMessageConstant = "Task completed"
	taskSkippedMessageConstant   = "Task skipped"
	taskFailedMessageConstant    = "Task failed"
	flowLogFieldNameConstant     = "flow"
	taskLogFieldNameConstant     = "task"
	durationLogFieldNameConstant = "duration"
	dryRunLogFieldNameConstant   = "dry_run"
)

var (
	// ErrFlowContextNotConfigured indicates Execute was called without a Context.
	ErrFlowContextNotConfigured = errors.New("flow context not configured")
	// ErrTaskActionNotConfigured indicates a task was declared without an action.
	ErrTaskActionNotConfigured = errors.New("task action not configured")
	// ErrPrompterNotConfigured indicates a task prompt ran without a prompter.
	ErrPrompterNotConfigured = errors.New("prompter not configured")
)

// Runner executes flows task by task.
type Runner struct {
	logger   *zap.Logger
	prompter Prompter
}

// NewRunner constructs a Runner. The prompter may be nil for flows without prompts.
func NewRunner(logger *zap.Logger, prompter Prompter) *Runner {
	resolvedLogger := logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}

	return &Runner{logger: resolvedLogger, prompter: prompter}
}

// Execute runs every task of the flow in declared order against the provided
// state. The first failing task aborts the run; tasks after it never start.
// The returned error is a TaskFailureError naming the aborting task.
func (runner *Runner) Execute(executionContext context.Context, flow Flow, state *Context) (FlowOutcome, error) {
	outcome := FlowOutcome{FlowName: flow.Name, StartTime: time.Now()}

	if state == nil {
		outcome.EndTime = outcome.StartTime
		return outcome, ErrFlowContextNotConfigured
	}

	runner.logger.Info(flowStartedMessageConstant,
		zap.String(flowLogFieldNameConstant, flow.Name),
		zap.Bool(dryRunLogFieldNameConstant, state.IsDryRun()),
	)

	for taskIndex := range flow.Tasks {
		taskOutcome, taskError := runner.executeTask(executionContext, flow, flow.Tasks[taskIndex], state)
		outcome.TaskOutcomes = append(outcome.TaskOutcomes, taskOutcome)

		if taskError != nil {
			outcome.EndTime = time.Now()
			runner.logger.Error(flowFailedMessageConstant,
				zap.String(flowLogFieldNameConstant, flow.Name),
				zap.Error(taskError),
			)
			return outcome, taskError
		}
	}

	outcome.EndTime = time.Now()
	runner.logger.Info(flowCompletedMessageConstant,
		zap.String(flowLogFieldNameConstant, flow.Name),
		zap.Duration(durationLogFieldNameConstant, outcome.Duration()),
	)

	return outcome, nil
}

func (runner *Runner) executeTask(executionContext context.Context, flow Flow, task Task, state *Context) (TaskOutcome, error) {
	if task.Skip != nil && task.Skip(state) {
		runner.logger.Info(taskSkippedMessageConstant,
			zap.String(flowLogFieldNameConstant, flow.Name),
			zap.String(taskLogFieldNameConstant, task.Name),
		)
		return TaskOutcome{Name: task.Name, Status: TaskStatusSkipped}, nil
	}

	runner.logger.Debug(taskStartedMessageConstant,
		zap.String(flowLogFieldNameConstant, flow.Name),
		zap.String(taskLogFieldNameConstant, task.Name),
	)

	taskStart := time.Now()
	taskError := runner.runTaskPhases(executionContext, task, state)
	taskDuration := time.Since(taskStart)

	if taskError != nil {
		runner.logger.Error(taskFailedMessageConstant,
			zap.String(flowLogFieldNameConstant, flow.Name),
			zap.String(taskLogFieldNameConstant, task.Name),
			zap.Error(taskError),
		)
		failure := TaskFailureError{FlowName: flow.Name, TaskName: task.Name, Cause: taskError}
		return TaskOutcome{Name: task.Name, Status: TaskStatusFailed, Duration: taskDuration, Error: taskError}, failure
	}

	runner.logger.Info(taskCompletedMessageConstant,
		zap.String(flowLogFieldNameConstant, flow.Name),
		zap.String(taskLogFieldNameConstant, task.Name),
		zap.Duration(durationLogFieldNameConstant, taskDuration),
	)

	return TaskOutcome{Name: task.Name, Status: TaskStatusCompleted, Duration: taskDuration}, nil
}

func (runner *Runner) runTaskPhases(executionContext context.Context, task Task, state *Context) error {
	if task.Action == nil {
		return ErrTaskActionNotConfigured
	}

	if task.Prompt != nil {
		if runner.prompter == nil {
			return ErrPrompterNotConfigured
		}
		if promptError := task.Prompt(executionContext, runner.prompter, state); promptError != nil {
			return promptError
		}
	}

	return task.Action(executionContext, state)
}
