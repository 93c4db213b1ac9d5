package workflow

import "context"

// TaskAction performs the work of a single task against the flow state.
type TaskAction func(executionContext context.Context, state *Context) error

// TaskSkipPredicate reports whether a task should be skipped for the current run.
type TaskSkipPredicate func(state *Context) bool

// TaskPrompt collects an interactive decision and records it on the flow state
// before the task action runs.
type TaskPrompt func(executionContext context.Context, prompter Prompter, state *Context) error

// Task describes one named step of a flow.
type Task struct {
	Name   string
	Skip   TaskSkipPredicate
	Prompt TaskPrompt
	Action TaskAction
}

// Flow is an ordered task list executed once against a fresh Context.
type Flow struct {
	Name  string
	Tasks []Task
}
