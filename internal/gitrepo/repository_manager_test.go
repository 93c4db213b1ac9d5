package gitrepo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/relix/internal/execshell"
	"github.com/tyemirov/relix/internal/gitrepo"
)

const (
	testRepositoryPathConstant                = "/tmp/repo"
	testBranchNameConstant                    = "release/1.2.3"
	testStartPointConstant                    = "origin/develop"
	testSourceBranchConstant                  = "release/1.2.3"
	testCleanWorktreeCaseNameConstant         = "clean"
	testDirtyWorktreeCaseNameConstant         = "dirty"
	testWorktreeErrorCaseNameConstant         = "error"
	testValidationCaseNameConstant            = "validation"
	testCheckoutSuccessCaseNameConstant       = "checkout_success"
	testCheckoutErrorCaseNameConstant         = "checkout_error"
	testCreateBranchSuccessCaseNameConstant   = "create_branch_success"
	testCreateBranchWithStartCaseNameConstant = "create_branch_start"
	testCreateBranchErrorCaseNameConstant     = "create_branch_error"
	testMergeSuccessCaseNameConstant          = "merge_success"
	testMergeErrorCaseNameConstant            = "merge_error"
	testDeleteBranchForcedCaseNameConstant    = "delete_branch_forced"
	testDeleteBranchStandardCaseNameConstant  = "delete_branch_standard"
	testDeleteBranchErrorCaseNameConstant     = "delete_branch_error"
	testCurrentBranchSuccessCaseNameConstant  = "current_branch_success"
	testCurrentBranchErrorCaseNameConstant    = "current_branch_error"
)

type stubGitExecutor struct {
	executeFunc     func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error)
	recordedDetails []execshell.CommandDetails
}

func (executor *stubGitExecutor) ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	if executor.executeFunc != nil {
		return executor.executeFunc(executionContext, details)
	}
	return execshell.ExecutionResult{}, nil
}

func failingGitExecutor() *stubGitExecutor {
	return &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
		return execshell.ExecutionResult{}, execshell.CommandExecutionError{Command: execshell.ShellCommand{Name: execshell.CommandGit}, Cause: errors.New("failed")}
	}}
}

func TestNewRepositoryManagerValidation(testInstance *testing.T) {
	testInstance.Run(testValidationCaseNameConstant, func(testInstance *testing.T) {
		manager, creationError := gitrepo.NewRepositoryManager(nil)
		require.Error(testInstance, creationError)
		require.ErrorIs(testInstance, creationError, gitrepo.ErrGitExecutorNotConfigured)
		require.Nil(testInstance, manager)
	})
}

func TestCheckCleanWorktree(testInstance *testing.T) {
	testCases := []struct {
		name        string
		executor    *stubGitExecutor
		expected    bool
		expectError bool
		errorType   any
	}{
		{
			name: testCleanWorktreeCaseNameConstant,
			executor: &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{StandardOutput: ""}, nil
			}},
			expected: true,
		},
		{
			name: testDirtyWorktreeCaseNameConstant,
			executor: &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{StandardOutput: " M file.txt"}, nil
			}},
			expected: false,
		},
		{
			name:        testWorktreeErrorCaseNameConstant,
			executor:    failingGitExecutor(),
			expectError: true,
			errorType:   gitrepo.RepositoryOperationError{},
		},
		{
			name:        testValidationCaseNameConstant,
			executor:    &stubGitExecutor{},
			expectError: true,
			errorType:   gitrepo.InvalidRepositoryInputError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			manager, creationError := gitrepo.NewRepositoryManager(testCase.executor)
			require.NoError(testInstance, creationError)

			clean, checkError := manager.CheckCleanWorktree(context.Background(), func() string {
				if testCase.name == testValidationCaseNameConstant {
					return ""
				}
				return testRepositoryPathConstant
			}())

			if testCase.expectError {
				require.Error(testInstance, checkError)
				require.IsType(testInstance, testCase.errorType, checkError)
			} else {
				require.NoError(testInstance, checkError)
				require.Equal(testInstance, testCase.expected, clean)
				require.Len(testInstance, testCase.executor.recordedDetails, 1)
			}
		})
	}
}

func TestCheckoutBranch(testInstance *testing.T) {
	testCases := []struct {
		name        string
		executor    *stubGitExecutor
		expectError bool
		errorType   any
	}{
		{
			name:     testCheckoutSuccessCaseNameConstant,
			executor: &stubGitExecutor{},
		},
		{
			name:        testCheckoutErrorCaseNameConstant,
			executor:    failingGitExecutor(),
			expectError: true,
			errorType:   gitrepo.RepositoryOperationError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			manager, creationError := gitrepo.NewRepositoryManager(testCase.executor)
			require.NoError(testInstance, creationError)

			executionError := manager.CheckoutBranch(context.Background(), testRepositoryPathConstant, testBranchNameConstant)
			if testCase.expectError {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.errorType, executionError)
			} else {
				require.NoError(testInstance, executionError)
				require.Len(testInstance, testCase.executor.recordedDetails, 1)
				require.Contains(testInstance, testCase.executor.recordedDetails[0].Arguments, testBranchNameConstant)
			}
		})
	}
}

func TestCreateAndCheckoutBranch(testInstance *testing.T) {
	testCases := []struct {
		name        string
		branchName  string
		startPoint  string
		executor    *stubGitExecutor
		expectError bool
		errorType   any
		verify      func(testInstance *testing.T, executor *stubGitExecutor)
	}{
		{
			name:       testCreateBranchSuccessCaseNameConstant,
			branchName: testBranchNameConstant,
			executor:   &stubGitExecutor{},
			verify: func(testInstance *testing.T, executor *stubGitExecutor) {
				require.Len(testInstance, executor.recordedDetails, 1)
				require.Equal(testInstance, []string{"checkout", "-b", testBranchNameConstant}, executor.recordedDetails[0].Arguments)
			},
		},
		{
			name:       testCreateBranchWithStartCaseNameConstant,
			branchName: testBranchNameConstant,
			startPoint: testStartPointConstant,
			executor:   &stubGitExecutor{},
			verify: func(testInstance *testing.T, executor *stubGitExecutor) {
				require.Len(testInstance, executor.recordedDetails, 1)
				require.Equal(testInstance, []string{"checkout", "-b", testBranchNameConstant, testStartPointConstant}, executor.recordedDetails[0].Arguments)
			},
		},
		{
			name:        testCreateBranchErrorCaseNameConstant,
			branchName:  testBranchNameConstant,
			executor:    failingGitExecutor(),
			expectError: true,
			errorType:   gitrepo.RepositoryOperationError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			manager, creationError := gitrepo.NewRepositoryManager(testCase.executor)
			require.NoError(testInstance, creationError)

			executionError := manager.CreateAndCheckoutBranch(context.Background(), testRepositoryPathConstant, testCase.branchName, testCase.startPoint)
			if testCase.expectError {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.errorType, executionError)
			} else {
				require.NoError(testInstance, executionError)
				require.NotNil(testInstance, testCase.verify)
				testCase.verify(testInstance, testCase.executor)
			}
		})
	}
}

func TestMergeBranch(testInstance *testing.T) {
	testCases := []struct {
		name        string
		executor    *stubGitExecutor
		expectError bool
		errorType   any
	}{
		{
			name:     testMergeSuccessCaseNameConstant,
			executor: &stubGitExecutor{},
		},
		{
			name:        testMergeErrorCaseNameConstant,
			executor:    failingGitExecutor(),
			expectError: true,
			errorType:   gitrepo.RepositoryOperationError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			manager, creationError := gitrepo.NewRepositoryManager(testCase.executor)
			require.NoError(testInstance, creationError)

			executionError := manager.MergeBranch(context.Background(), testRepositoryPathConstant, testSourceBranchConstant)
			if testCase.expectError {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.errorType, executionError)
			} else {
				require.NoError(testInstance, executionError)
				require.Len(testInstance, testCase.executor.recordedDetails, 1)
				require.Equal(testInstance, []string{"merge", "--no-edit", testSourceBranchConstant}, testCase.executor.recordedDetails[0].Arguments)
			}
		})
	}
}

func TestDeleteLocalBranch(testInstance *testing.T) {
	testCases := []struct {
		name        string
		forceDelete bool
		executor    *stubGitExecutor
		expectError bool
		errorType   any
	}{
		{
			name:        testDeleteBranchForcedCaseNameConstant,
			forceDelete: true,
			executor:    &stubGitExecutor{},
		},
		{
			name:     testDeleteBranchStandardCaseNameConstant,
			executor: &stubGitExecutor{},
		},
		{
			name:        testDeleteBranchErrorCaseNameConstant,
			executor:    failingGitExecutor(),
			expectError: true,
			errorType:   gitrepo.RepositoryOperationError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			manager, creationError := gitrepo.NewRepositoryManager(testCase.executor)
			require.NoError(testInstance, creationError)

			executionError := manager.DeleteLocalBranch(context.Background(), testRepositoryPathConstant, testBranchNameConstant, testCase.forceDelete)
			if testCase.expectError {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.errorType, executionError)
			} else {
				require.NoError(testInstance, executionError)
				require.Len(testInstance, testCase.executor.recordedDetails, 1)
				if testCase.forceDelete {
					require.Contains(testInstance, testCase.executor.recordedDetails[0].Arguments, "--force")
				}
			}
		})
	}
}

func TestGetCurrentBranch(testInstance *testing.T) {
	testCases := []struct {
		name        string
		executor    *stubGitExecutor
		expectError bool
		errorType   any
		expected    string
	}{
		{
			name: testCurrentBranchSuccessCaseNameConstant,
			executor: &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{StandardOutput: "develop\n"}, nil
			}},
			expected: "develop",
		},
		{
			name:        testCurrentBranchErrorCaseNameConstant,
			executor:    failingGitExecutor(),
			expectError: true,
			errorType:   gitrepo.RepositoryOperationError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			manager, creationError := gitrepo.NewRepositoryManager(testCase.executor)
			require.NoError(testInstance, creationError)

			branchName, executionError := manager.GetCurrentBranch(context.Background(), testRepositoryPathConstant)
			if testCase.expectError {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.errorType, executionError)
			} else {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.expected, branchName)
			}
		})
	}
}

func TestListLocalBranches(testInstance *testing.T) {
	executor := &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
		return execshell.ExecutionResult{StandardOutput: "develop\nmain\nrelease/1.2.3\n"}, nil
	}}

	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	branches, listError := manager.ListLocalBranches(context.Background(), testRepositoryPathConstant)
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []string{"develop", "main", "release/1.2.3"}, branches)
}
