package gitrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/tyemirov/relix/internal/execshell"
)

const (
	gitDescribeSubcommandConstant         = "describe"
	gitDescribeTagsFlagConstant           = "--tags"
	gitDescribeAbbrevFlagConstant         = "--abbrev=0"
	gitLogSubcommandConstant              = "log"
	gitLogFormatFlagConstant              = "--pretty=format:%s%x1f%b%x1e"
	commitRecordSeparatorConstant         = "\x1e"
	commitFieldSeparatorConstant          = "\x1f"
	noTagsIndicatorConstant               = "no names found"
	noTagsDescribeIndicatorConstant       = "no tags can describe"
	latestTagOperationNameConstant        = RepositoryOperationName("LatestTag")
	commitMessagesOperationNameConstant   = RepositoryOperationName("CommitMessagesSince")
	commitRangeReferenceSeparatorConstant = ".."
)

// CommitMessage carries the subject and body of a single commit.
type CommitMessage struct {
	Subject string
	Body    string
}

// LatestTag returns the most recent tag reachable from HEAD. The boolean reports
// whether any tag exists; a tagless repository is a success outcome.
func (manager *RepositoryManager) LatestTag(executionContext context.Context, repositoryPath string) (string, bool, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return "", false, InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitDescribeSubcommandConstant, gitDescribeTagsFlagConstant, gitDescribeAbbrevFlagConstant},
		WorkingDirectory: trimmedPath,
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		if isTagAbsenceFailure(executionError) {
			return "", false, nil
		}
		return "", false, RepositoryOperationError{Operation: latestTagOperationNameConstant, Cause: executionError}
	}

	latestTag := strings.TrimSpace(executionResult.StandardOutput)
	if len(latestTag) == 0 {
		return "", false, nil
	}
	return latestTag, true, nil
}

// CommitMessagesSince returns the commit subjects and bodies after the given reference.
// An empty reference returns the full history.
func (manager *RepositoryManager) CommitMessagesSince(executionContext context.Context, repositoryPath string, sinceReference string) ([]CommitMessage, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return nil, InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{gitLogSubcommandConstant, gitLogFormatFlagConstant}
	trimmedReference := strings.TrimSpace(sinceReference)
	if len(trimmedReference) > 0 {
		commandArguments = append(commandArguments, trimmedReference+commitRangeReferenceSeparatorConstant+gitHeadReferenceConstant)
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        commandArguments,
		WorkingDirectory: trimmedPath,
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return nil, RepositoryOperationError{Operation: commitMessagesOperationNameConstant, Cause: executionError}
	}

	return parseCommitRecords(executionResult.StandardOutput), nil
}

func parseCommitRecords(commandOutput string) []CommitMessage {
	records := strings.Split(commandOutput, commitRecordSeparatorConstant)
	commitMessages := make([]CommitMessage, 0, len(records))
	for _, record := range records {
		trimmedRecord := strings.TrimSpace(record)
		if len(trimmedRecord) == 0 {
			continue
		}

		subject := trimmedRecord
		body := ""
		if separatorIndex := strings.Index(trimmedRecord, commitFieldSeparatorConstant); separatorIndex >= 0 {
			subject = strings.TrimSpace(trimmedRecord[:separatorIndex])
			body = strings.TrimSpace(trimmedRecord[separatorIndex+len(commitFieldSeparatorConstant):])
		}
		if len(subject) == 0 && len(body) == 0 {
			continue
		}
		commitMessages = append(commitMessages, CommitMessage{Subject: subject, Body: body})
	}
	return commitMessages
}

func isTagAbsenceFailure(executionError error) bool {
	var failedError execshell.CommandFailedError
	if !errors.As(executionError, &failedError) {
		return false
	}
	loweredOutput := strings.ToLower(failedError.Result.StandardError + "\n" + failedError.Result.StandardOutput)
	return strings.Contains(loweredOutput, noTagsIndicatorConstant) || strings.Contains(loweredOutput, noTagsDescribeIndicatorConstant)
}
