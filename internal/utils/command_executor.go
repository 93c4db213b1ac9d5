package utils

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const (
	gitExternalToolNameConstant               = "git"
	processRunnerNotConfiguredMessageConstant = "command executor process runner not configured"
)

// ExternalToolName identifies an external executable invoked by the command executor.
type ExternalToolName string

// Supported external tools.
const (
	ExternalToolGit ExternalToolName = ExternalToolName(gitExternalToolNameConstant)
)

// ErrProcessRunnerNotConfigured indicates the executor was constructed without a process runner.
var ErrProcessRunnerNotConfigured = errors.New(processRunnerNotConfiguredMessageConstant)

// CommandOptions captures per-invocation command parameters.
type CommandOptions struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ExecutableCommand represents a fully qualified external process invocation.
type ExecutableCommand struct {
	ToolName             ExternalToolName
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// CommandResult captures observable process outputs.
type CommandResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// ExternalProcessRunner executes external processes.
type ExternalProcessRunner interface {
	Run(executionContext context.Context, command ExecutableCommand) (CommandResult, error)
}

// CommandExecutor dispatches tool invocations through an injected process runner.
type CommandExecutor struct {
	processRunner ExternalProcessRunner
}

// NewCommandExecutor constructs a CommandExecutor around the provided process runner.
func NewCommandExecutor(processRunner ExternalProcessRunner) *CommandExecutor {
	return &CommandExecutor{processRunner: processRunner}
}

// Execute runs the provided command through the configured process runner.
func (executor *CommandExecutor) Execute(executionContext context.Context, command ExecutableCommand) (CommandResult, error) {
	if executor.processRunner == nil {
		return CommandResult{}, ErrProcessRunnerNotConfigured
	}
	return executor.processRunner.Run(executionContext, command)
}

// ExecuteGitCommand runs the git executable with the provided options.
func (executor *CommandExecutor) ExecuteGitCommand(executionContext context.Context, options CommandOptions) (CommandResult, error) {
	return executor.Execute(executionContext, ExecutableCommand{
		ToolName:             ExternalToolGit,
		Arguments:            options.Arguments,
		WorkingDirectory:     options.WorkingDirectory,
		EnvironmentVariables: options.EnvironmentVariables,
		StandardInput:        options.StandardInput,
	})
}

// OSExternalProcessRunner executes processes on the host operating system.
type OSExternalProcessRunner struct{}

// NewOSExternalProcessRunner constructs an operating-system process runner.
func NewOSExternalProcessRunner() OSExternalProcessRunner {
	return OSExternalProcessRunner{}
}

// Run executes the command and captures its outputs and exit code.
func (OSExternalProcessRunner) Run(executionContext context.Context, command ExecutableCommand) (CommandResult, error) {
	process := exec.CommandContext(executionContext, string(command.ToolName), command.Arguments...)
	process.Dir = command.WorkingDirectory
	process.Env = mergeEnvironment(command.EnvironmentVariables)
	if len(command.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.StandardInput)
	}

	standardOutputBuffer := bytes.Buffer{}
	standardErrorBuffer := bytes.Buffer{}
	process.Stdout = &standardOutputBuffer
	process.Stderr = &standardErrorBuffer

	runError := process.Run()
	result := CommandResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}

	if runError != nil {
		exitError := &exec.ExitError{}
		if errors.As(runError, &exitError) {
			result.ExitCode = exitError.ExitCode()
			return result, nil
		}
		return result, runError
	}

	result.ExitCode = 0
	return result, nil
}

func mergeEnvironment(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return os.Environ()
	}

	merged := make(map[string]string, len(overrides))
	for _, assignment := range os.Environ() {
		separatorIndex := strings.Index(assignment, "=")
		if separatorIndex < 0 {
			continue
		}
		merged[assignment[:separatorIndex]] = assignment[separatorIndex+1:]
	}
	for key, value := range overrides {
		merged[key] = value
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	environment := make([]string, 0, len(keys))
	for _, key := range keys {
		environment = append(environment, key+"="+merged[key])
	}
	return environment
}
