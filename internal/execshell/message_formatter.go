package execshell

import (
	"fmt"
	"strings"
)

const (
	commandStartedMessageTemplateConstant          = "Running %s"
	commandSucceededMessageTemplateConstant        = "Completed %s"
	commandFailedMessageTemplateConstant           = "%s failed with exit code %d"
	commandFailedDetailMessageTemplateConstant     = "%s: %s"
	commandExecutionFailureMessageTemplateConstant = "%s failed: %v"
	commandWorkingDirectoryTemplateConstant        = "%s (in %s)"
	commandDisplaySeparatorConstant                = " "
	failureDetailLineSeparatorConstant             = " | "
	failureDetailLineLimitConstant                 = 3
)

// quietGitSubcommands lists read-only git subcommands whose start messages add console noise.
var quietGitSubcommands = map[string]struct{}{
	"status":    {},
	"rev-parse": {},
	"describe":  {},
	"log":       {},
	"branch":    {},
	"config":    {},
	"show-ref":  {},
}

// CommandMessageFormatter renders human readable command lifecycle messages.
type CommandMessageFormatter struct{}

// BuildStartedMessage describes a command that is about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return fmt.Sprintf(commandStartedMessageTemplateConstant, formatter.describeCommand(command))
}

// BuildSuccessMessage describes a command that completed successfully.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return fmt.Sprintf(commandSucceededMessageTemplateConstant, formatter.describeCommand(command))
}

// BuildFailureMessage describes a command that exited with a non-zero code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	failureMessage := fmt.Sprintf(commandFailedMessageTemplateConstant, formatter.describeCommand(command), result.ExitCode)
	failureDetail := formatter.summarizeOutput(result)
	if len(failureDetail) == 0 {
		return failureMessage
	}
	return fmt.Sprintf(commandFailedDetailMessageTemplateConstant, failureMessage, failureDetail)
}

// BuildExecutionFailureMessage describes a command the runner could not execute.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, executionError error) string {
	return fmt.Sprintf(commandExecutionFailureMessageTemplateConstant, formatter.describeCommand(command), executionError)
}

func (formatter CommandMessageFormatter) shouldLogStartMessage(command ShellCommand) bool {
	if command.Name != CommandGit {
		return true
	}
	if len(command.Details.Arguments) == 0 {
		return true
	}
	_, quiet := quietGitSubcommands[command.Details.Arguments[0]]
	return !quiet
}

func (formatter CommandMessageFormatter) describeCommand(command ShellCommand) string {
	displayParts := append([]string{string(command.Name)}, command.Details.Arguments...)
	commandDisplay := strings.Join(displayParts, commandDisplaySeparatorConstant)
	if len(strings.TrimSpace(command.Details.WorkingDirectory)) == 0 {
		return commandDisplay
	}
	return fmt.Sprintf(commandWorkingDirectoryTemplateConstant, commandDisplay, command.Details.WorkingDirectory)
}

func (formatter CommandMessageFormatter) summarizeOutput(result ExecutionResult) string {
	detail := strings.TrimSpace(result.StandardError)
	if len(detail) == 0 {
		detail = strings.TrimSpace(result.StandardOutput)
	}
	if len(detail) == 0 {
		return ""
	}

	lines := strings.Split(detail, "\n")
	normalized := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmedLine := strings.TrimSpace(line)
		if len(trimmedLine) == 0 {
			continue
		}
		normalized = append(normalized, trimmedLine)
		if len(normalized) == failureDetailLineLimitConstant {
			break
		}
	}
	return strings.Join(normalized, failureDetailLineSeparatorConstant)
}
