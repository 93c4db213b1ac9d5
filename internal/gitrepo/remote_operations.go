package gitrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/tyemirov/relix/internal/execshell"
)

const (
	gitFetchSubcommandConstant           = "fetch"
	gitFetchPruneFlagConstant            = "--prune"
	gitFetchTagsFlagConstant             = "--tags"
	gitLsRemoteSubcommandConstant        = "ls-remote"
	gitLsRemoteHeadsFlagConstant         = "--heads"
	gitLsRemoteTagsFlagConstant          = "--tags"
	gitPushSubcommandConstant            = "push"
	gitPushOptionFlagTemplateConstant    = "--push-option="
	gitTagSubcommandConstant             = "tag"
	gitTagAnnotateFlagConstant           = "-a"
	gitTagMessageFlagConstant            = "-m"
	gitTagForceFlagConstant              = "--force"
	tagReferencePrefixConstant           = "refs/tags/"
	branchReferencePrefixConstant        = "refs/heads/"
	remoteRefMissingIndicatorConstant    = "remote ref does not exist"
	remoteNameFieldNameConstant          = "remote_name"
	tagNameFieldNameConstant             = "tag_name"
	tagMessageFieldNameConstant          = "tag_message"
	fetchRemoteOperationNameConstant     = RepositoryOperationName("FetchRemote")
	fetchTagsOperationNameConstant       = RepositoryOperationName("FetchRemoteTags")
	listRemoteBranchesOperationConstant  = RepositoryOperationName("ListRemoteBranches")
	remoteTagExistsOperationNameConstant = RepositoryOperationName("RemoteTagExists")
	createTagOperationNameConstant       = RepositoryOperationName("CreateAnnotatedTag")
	pushBranchOperationNameConstant      = RepositoryOperationName("PushBranch")
	pushTagOperationNameConstant         = RepositoryOperationName("PushTag")
	deleteRemoteBranchOperationConstant  = RepositoryOperationName("DeleteRemoteBranch")
)

// RemoteBranchDeletionOutcome reports how a remote branch deletion concluded.
type RemoteBranchDeletionOutcome string

// Remote branch deletion outcomes.
const (
	RemoteBranchDeleted  RemoteBranchDeletionOutcome = "deleted"
	RemoteBranchNotFound RemoteBranchDeletionOutcome = "not_found"
)

// TagDetails describes an annotated tag to create.
type TagDetails struct {
	Name    string
	Message string
	Force   bool
}

// FetchRemote updates remote tracking branches, pruning removed references.
func (manager *RepositoryManager) FetchRemote(executionContext context.Context, repositoryPath string, remoteName string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitFetchSubcommandConstant, gitFetchPruneFlagConstant, trimmedRemote},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: fetchRemoteOperationNameConstant, Cause: executionError}
	}
	return nil
}

// FetchRemoteTags fetches tags from the remote.
func (manager *RepositoryManager) FetchRemoteTags(executionContext context.Context, repositoryPath string, remoteName string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitFetchSubcommandConstant, trimmedRemote, gitFetchTagsFlagConstant},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: fetchTagsOperationNameConstant, Cause: executionError}
	}
	return nil
}

// ListRemoteBranches returns the branch names advertised by the remote.
func (manager *RepositoryManager) ListRemoteBranches(executionContext context.Context, repositoryPath string, remoteName string) ([]string, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return nil, InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return nil, InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitLsRemoteSubcommandConstant, gitLsRemoteHeadsFlagConstant, trimmedRemote},
		WorkingDirectory: trimmedPath,
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return nil, RepositoryOperationError{Operation: listRemoteBranchesOperationConstant, Cause: executionError}
	}

	branchNames := make([]string, 0)
	for _, line := range splitOutputLines(executionResult.StandardOutput) {
		referenceIndex := strings.Index(line, branchReferencePrefixConstant)
		if referenceIndex < 0 {
			continue
		}
		branchName := strings.TrimSpace(line[referenceIndex+len(branchReferencePrefixConstant):])
		if len(branchName) > 0 {
			branchNames = append(branchNames, branchName)
		}
	}
	return branchNames, nil
}

// RemoteTagExists reports whether the remote advertises the given tag. Absence is a success outcome.
func (manager *RepositoryManager) RemoteTagExists(executionContext context.Context, repositoryPath string, remoteName string, tagName string) (bool, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return false, InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return false, InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedTag := strings.TrimSpace(tagName)
	if len(trimmedTag) == 0 {
		return false, InvalidRepositoryInputError{FieldName: tagNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitLsRemoteSubcommandConstant, gitLsRemoteTagsFlagConstant, trimmedRemote, tagReferencePrefixConstant + trimmedTag},
		WorkingDirectory: trimmedPath,
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return false, RepositoryOperationError{Operation: remoteTagExistsOperationNameConstant, Cause: executionError}
	}

	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// CreateAnnotatedTag creates an annotated tag, optionally forcing reassignment.
func (manager *RepositoryManager) CreateAnnotatedTag(executionContext context.Context, repositoryPath string, details TagDetails) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedTag := strings.TrimSpace(details.Name)
	if len(trimmedTag) == 0 {
		return InvalidRepositoryInputError{FieldName: tagNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedMessage := strings.TrimSpace(details.Message)
	if len(trimmedMessage) == 0 {
		return InvalidRepositoryInputError{FieldName: tagMessageFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{gitTagSubcommandConstant, gitTagAnnotateFlagConstant}
	if details.Force {
		commandArguments = append(commandArguments, gitTagForceFlagConstant)
	}
	commandArguments = append(commandArguments, trimmedTag, gitTagMessageFlagConstant, trimmedMessage)

	commandDetails := execshell.CommandDetails{
		Arguments:        commandArguments,
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: createTagOperationNameConstant, Cause: executionError}
	}
	return nil
}

// PushBranch pushes a branch to the remote, forwarding any push options.
func (manager *RepositoryManager) PushBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string, pushOptions []string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{gitPushSubcommandConstant}
	for _, pushOption := range pushOptions {
		trimmedOption := strings.TrimSpace(pushOption)
		if len(trimmedOption) > 0 {
			commandArguments = append(commandArguments, gitPushOptionFlagTemplateConstant+trimmedOption)
		}
	}
	commandArguments = append(commandArguments, trimmedRemote, trimmedBranch)

	commandDetails := execshell.CommandDetails{
		Arguments:        commandArguments,
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: pushBranchOperationNameConstant, Cause: executionError}
	}
	return nil
}

// PushTag pushes a tag reference to the remote, optionally forcing reassignment.
func (manager *RepositoryManager) PushTag(executionContext context.Context, repositoryPath string, remoteName string, tagName string, force bool) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedTag := strings.TrimSpace(tagName)
	if len(trimmedTag) == 0 {
		return InvalidRepositoryInputError{FieldName: tagNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{gitPushSubcommandConstant}
	if force {
		commandArguments = append(commandArguments, gitForceFlagConstant)
	}
	commandArguments = append(commandArguments, trimmedRemote, tagReferencePrefixConstant+trimmedTag)

	commandDetails := execshell.CommandDetails{
		Arguments:        commandArguments,
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: pushTagOperationNameConstant, Cause: executionError}
	}
	return nil
}

// DeleteRemoteBranch removes a branch on the remote. A missing remote branch is reported
// as RemoteBranchNotFound with a nil error.
func (manager *RepositoryManager) DeleteRemoteBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) (RemoteBranchDeletionOutcome, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return "", InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedRemote := strings.TrimSpace(remoteName)
	if len(trimmedRemote) == 0 {
		return "", InvalidRepositoryInputError{FieldName: remoteNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return "", InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitPushSubcommandConstant, trimmedRemote, gitDeleteFlagConstant, trimmedBranch},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		if isRemoteRefMissing(executionError) {
			return RemoteBranchNotFound, nil
		}
		return "", RepositoryOperationError{Operation: deleteRemoteBranchOperationConstant, Cause: executionError}
	}
	return RemoteBranchDeleted, nil
}

func isRemoteRefMissing(executionError error) bool {
	var failedError execshell.CommandFailedError
	if !errors.As(executionError, &failedError) {
		return false
	}
	combinedOutput := strings.ToLower(failedError.Result.StandardError + "\n" + failedError.Result.StandardOutput)
	return strings.Contains(combinedOutput, remoteRefMissingIndicatorConstant)
}
