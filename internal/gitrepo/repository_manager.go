// Package gitrepo coordinates git operations for the release flows through execshell.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tyemirov/relix/internal/execshell"
)

const (
	gitStatusSubcommandConstant              = "status"
	gitStatusPorcelainFlagConstant           = "--porcelain"
	gitRevParseSubcommandConstant            = "rev-parse"
	gitAbbrevRefFlagConstant                 = "--abbrev-ref"
	gitHeadReferenceConstant                 = "HEAD"
	gitCheckoutSubcommandConstant            = "checkout"
	gitCheckoutNewBranchFlagConstant         = "-b"
	gitBranchSubcommandConstant              = "branch"
	gitBranchListFlagConstant                = "--list"
	gitBranchFormatFlagConstant              = "--format=%(refname:short)"
	gitDeleteFlagConstant                    = "--delete"
	gitForceFlagConstant                     = "--force"
	gitMergeSubcommandConstant               = "merge"
	gitMergeNoEditFlagConstant               = "--no-edit"
	repositoryPathFieldNameConstant          = "repository_path"
	branchNameFieldNameConstant              = "branch_name"
	startPointFieldNameConstant              = "start_point"
	sourceBranchFieldNameConstant            = "source_branch"
	requiredValueMessageConstant             = "value required"
	executorNotConfiguredMessageConstant     = "git executor not configured"
	repositoryOperationErrorTemplateConstant = "%s operation failed"
	repositoryOperationWithCauseConstant     = "%s operation failed: %s"
	invalidRepositoryInputTemplateConstant   = "%s: %s"

	cleanWorktreeOperationNameConstant     = RepositoryOperationName("CheckCleanWorktree")
	currentBranchOperationNameConstant     = RepositoryOperationName("GetCurrentBranch")
	checkoutBranchOperationNameConstant    = RepositoryOperationName("CheckoutBranch")
	createAndCheckoutOperationNameConstant = RepositoryOperationName("CreateAndCheckoutBranch")
	mergeBranchOperationNameConstant       = RepositoryOperationName("MergeBranch")
	deleteLocalBranchOperationNameConstant = RepositoryOperationName("DeleteLocalBranch")
	listLocalBranchesOperationNameConstant = RepositoryOperationName("ListLocalBranches")
)

// GitCommandExecutor exposes the subset of execshell functionality required by RepositoryManager.
type GitCommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// RepositoryManager coordinates Git operations through execshell.
type RepositoryManager struct {
	executor GitCommandExecutor
}

var (
	// ErrGitExecutorNotConfigured indicates the RepositoryManager was constructed without a git executor.
	ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidRepositoryInputError indicates validation failures for repository operations.
type InvalidRepositoryInputError struct {
	FieldName string
	Message   string
}

// Error describes the validation failure.
func (inputError InvalidRepositoryInputError) Error() string {
	return fmt.Sprintf(invalidRepositoryInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// RepositoryOperationName captures descriptive names for repository operations.
type RepositoryOperationName string

// RepositoryOperationError wraps execution failures for git operations.
type RepositoryOperationError struct {
	Operation RepositoryOperationName
	Cause     error
}

// Error describes the repository operation failure.
func (operationError RepositoryOperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(repositoryOperationErrorTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(repositoryOperationWithCauseConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying error.
func (operationError RepositoryOperationError) Unwrap() error {
	return operationError.Cause
}

// NewRepositoryManager constructs a RepositoryManager for the provided executor.
func NewRepositoryManager(executor GitCommandExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// CheckCleanWorktree returns true when the repository has no staged or unstaged changes.
func (manager *RepositoryManager) CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error) {
	status, statusError := manager.WorktreeStatus(executionContext, repositoryPath)
	if statusError != nil {
		return false, statusError
	}
	return len(status) == 0, nil
}

// WorktreeStatus returns the porcelain status entries for the repository.
func (manager *RepositoryManager) WorktreeStatus(executionContext context.Context, repositoryPath string) ([]string, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return nil, InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant},
		WorkingDirectory: trimmedPath,
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return nil, RepositoryOperationError{Operation: cleanWorktreeOperationNameConstant, Cause: executionError}
	}

	return splitOutputLines(executionResult.StandardOutput), nil
}

// GetCurrentBranch resolves the current branch name.
func (manager *RepositoryManager) GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return "", InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant},
		WorkingDirectory: trimmedPath,
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return "", RepositoryOperationError{Operation: currentBranchOperationNameConstant, Cause: executionError}
	}

	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// CheckoutBranch checks out an existing branch.
func (manager *RepositoryManager) CheckoutBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitCheckoutSubcommandConstant, trimmedBranch},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: checkoutBranchOperationNameConstant, Cause: executionError}
	}
	return nil
}

// CreateAndCheckoutBranch creates a new branch from the optional start point and checks it out.
func (manager *RepositoryManager) CreateAndCheckoutBranch(executionContext context.Context, repositoryPath string, branchName string, startPoint string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{gitCheckoutSubcommandConstant, gitCheckoutNewBranchFlagConstant, trimmedBranch}
	trimmedStartPoint := strings.TrimSpace(startPoint)
	if len(trimmedStartPoint) > 0 {
		commandArguments = append(commandArguments, trimmedStartPoint)
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        commandArguments,
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: createAndCheckoutOperationNameConstant, Cause: executionError}
	}
	return nil
}

// MergeBranch merges the source branch into the currently checked out branch.
func (manager *RepositoryManager) MergeBranch(executionContext context.Context, repositoryPath string, sourceBranch string) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedSource := strings.TrimSpace(sourceBranch)
	if len(trimmedSource) == 0 {
		return InvalidRepositoryInputError{FieldName: sourceBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitMergeSubcommandConstant, gitMergeNoEditFlagConstant, trimmedSource},
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: mergeBranchOperationNameConstant, Cause: executionError}
	}
	return nil
}

// DeleteLocalBranch removes a local branch. When forceDelete is true the deletion is forced.
func (manager *RepositoryManager) DeleteLocalBranch(executionContext context.Context, repositoryPath string, branchName string, forceDelete bool) error {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedBranch := strings.TrimSpace(branchName)
	if len(trimmedBranch) == 0 {
		return InvalidRepositoryInputError{FieldName: branchNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandArguments := []string{gitBranchSubcommandConstant, gitDeleteFlagConstant}
	if forceDelete {
		commandArguments = append(commandArguments, gitForceFlagConstant)
	}
	commandArguments = append(commandArguments, trimmedBranch)

	commandDetails := execshell.CommandDetails{
		Arguments:        commandArguments,
		WorkingDirectory: trimmedPath,
	}

	_, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryOperationError{Operation: deleteLocalBranchOperationNameConstant, Cause: executionError}
	}
	return nil
}

// ListLocalBranches returns the short names of all local branches.
func (manager *RepositoryManager) ListLocalBranches(executionContext context.Context, repositoryPath string) ([]string, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return nil, InvalidRepositoryInputError{FieldName: repositoryPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitBranchSubcommandConstant, gitBranchListFlagConstant, gitBranchFormatFlagConstant},
		WorkingDirectory: trimmedPath,
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return nil, RepositoryOperationError{Operation: listLocalBranchesOperationNameConstant, Cause: executionError}
	}

	return splitOutputLines(executionResult.StandardOutput), nil
}

func splitOutputLines(commandOutput string) []string {
	trimmedOutput := strings.TrimSpace(commandOutput)
	if len(trimmedOutput) == 0 {
		return nil
	}

	lines := strings.Split(trimmedOutput, "\n")
	entries := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmedLine := strings.TrimSpace(line); len(trimmedLine) > 0 {
			entries = append(entries, trimmedLine)
		}
	}
	return entries
}
