package gitrepo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/relix/internal/execshell"
	"github.com/tyemirov/relix/internal/gitrepo"
)

const (
	testNoTagsStderrConstant            = "fatal: No names found, cannot describe anything."
	testLatestTagFoundCaseNameConstant  = "latest_tag_found"
	testLatestTagAbsentCaseNameConstant = "latest_tag_absent"
	testLatestTagErrorCaseNameConstant  = "latest_tag_error"
	testCommitSinceTagCaseNameConstant  = "commits_since_tag"
	testCommitFullHistoryCaseConstant   = "commits_full_history"
)

func taglessRepositoryExecutor() *stubGitExecutor {
	return &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
		return execshell.ExecutionResult{}, execshell.CommandFailedError{
			Command: execshell.ShellCommand{Name: execshell.CommandGit},
			Result:  execshell.ExecutionResult{StandardError: testNoTagsStderrConstant, ExitCode: 128},
		}
	}}
}

func TestLatestTag(testInstance *testing.T) {
	testCases := []struct {
		name          string
		executor      *stubGitExecutor
		expectedTag   string
		expectedFound bool
		expectError   bool
	}{
		{
			name: testLatestTagFoundCaseNameConstant,
			executor: &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{StandardOutput: "v1.2.3\n"}, nil
			}},
			expectedTag:   "v1.2.3",
			expectedFound: true,
		},
		{
			name:     testLatestTagAbsentCaseNameConstant,
			executor: taglessRepositoryExecutor(),
		},
		{
			name:        testLatestTagErrorCaseNameConstant,
			executor:    failingGitExecutor(),
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			manager, creationError := gitrepo.NewRepositoryManager(testCase.executor)
			require.NoError(testInstance, creationError)

			latestTag, found, lookupError := manager.LatestTag(context.Background(), testRepositoryPathConstant)
			if testCase.expectError {
				require.Error(testInstance, lookupError)
				require.IsType(testInstance, gitrepo.RepositoryOperationError{}, lookupError)
				return
			}
			require.NoError(testInstance, lookupError)
			require.Equal(testInstance, testCase.expectedFound, found)
			require.Equal(testInstance, testCase.expectedTag, latestTag)
			require.Len(testInstance, testCase.executor.recordedDetails, 1)
			require.Equal(testInstance, []string{"describe", "--tags", "--abbrev=0"}, testCase.executor.recordedDetails[0].Arguments)
		})
	}
}

func TestCommitMessagesSince(testInstance *testing.T) {
	commitLogOutput := "feat: add release command\x1fIntroduces the start flow.\x1e" +
		"fix: handle missing remote\x1f\x1e" +
		"chore: tidy configuration\x1fBody line one.\nBody line two.\x1e"

	testCases := []struct {
		name              string
		sinceReference    string
		expectedArguments []string
	}{
		{
			name:              testCommitSinceTagCaseNameConstant,
			sinceReference:    "v1.2.3",
			expectedArguments: []string{"log", "--pretty=format:%s%x1f%b%x1e", "v1.2.3..HEAD"},
		},
		{
			name:              testCommitFullHistoryCaseConstant,
			expectedArguments: []string{"log", "--pretty=format:%s%x1f%b%x1e"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{StandardOutput: commitLogOutput}, nil
			}}

			manager, creationError := gitrepo.NewRepositoryManager(executor)
			require.NoError(testInstance, creationError)

			commitMessages, historyError := manager.CommitMessagesSince(context.Background(), testRepositoryPathConstant, testCase.sinceReference)
			require.NoError(testInstance, historyError)
			require.Len(testInstance, executor.recordedDetails, 1)
			require.Equal(testInstance, testCase.expectedArguments, executor.recordedDetails[0].Arguments)

			require.Equal(testInstance, []gitrepo.CommitMessage{
				{Subject: "feat: add release command", Body: "Introduces the start flow."},
				{Subject: "fix: handle missing remote", Body: ""},
				{Subject: "chore: tidy configuration", Body: "Body line one.\nBody line two."},
			}, commitMessages)
		})
	}
}

func TestCommitMessagesSinceEmptyHistory(testInstance *testing.T) {
	executor := &stubGitExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
		return execshell.ExecutionResult{StandardOutput: ""}, nil
	}}

	manager, creationError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, creationError)

	commitMessages, historyError := manager.CommitMessagesSince(context.Background(), testRepositoryPathConstant, "")
	require.NoError(testInstance, historyError)
	require.Empty(testInstance, commitMessages)
}
