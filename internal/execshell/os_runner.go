package execshell

import (
	"context"

	"github.com/tyemirov/relix/internal/utils"
)

// OSCommandRunner executes shell commands through the operating system process runner.
type OSCommandRunner struct {
	commandExecutor *utils.CommandExecutor
}

// NewOSCommandRunner constructs an OSCommandRunner backed by the default process runner.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{commandExecutor: utils.NewCommandExecutor(utils.NewOSExternalProcessRunner())}
}

// Run executes the shell command and maps the observable results.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandResult, executionError := runner.commandExecutor.Execute(executionContext, utils.ExecutableCommand{
		ToolName:             utils.ExternalToolName(command.Name),
		Arguments:            command.Details.Arguments,
		WorkingDirectory:     command.Details.WorkingDirectory,
		EnvironmentVariables: command.Details.EnvironmentVariables,
		StandardInput:        command.Details.StandardInput,
	})
	if executionError != nil {
		return ExecutionResult{}, executionError
	}

	return ExecutionResult{
		StandardOutput: commandResult.StandardOutput,
		StandardError:  commandResult.StandardError,
		ExitCode:       commandResult.ExitCode,
	}, nil
}
