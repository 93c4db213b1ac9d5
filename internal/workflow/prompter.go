package workflow

import (
	"context"
	"errors"
)

// ErrPromptAborted reports that interactive input ended before an answer was given.
var ErrPromptAborted = errors.New("prompt aborted")

// Prompter collects interactive answers during flow execution.
type Prompter interface {
	Confirm(executionContext context.Context, question string, defaultAnswer bool) (bool, error)
	Select(executionContext context.Context, question string, options []string, defaultIndex int) (int, error)
	Input(executionContext context.Context, question string) (string, error)
}
