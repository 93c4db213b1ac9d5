package releases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/relix/internal/gitrepo"
	"github.com/tyemirov/relix/internal/releases"
	"github.com/tyemirov/relix/internal/workflow"
)

const (
	testSelectVersionQuestionConstant = "Select the release version"
	testCustomVersionQuestionConstant = "Enter the release version"
	testMinorCandidateOptionConstant  = "minor (1.3.0)"
	testCustomCandidateOptionConstant = "custom"
	testCustomVersionValueConstant    = "2.0.0-rc.1"
	expectedManifestAfterStart        = "{\n  \"name\": \"demo-service\",\n  \"version\": \"1.3.0\"\n}\n"
	expectedLockAfterStart            = "{\n  \"name\": \"demo-service\",\n  \"version\": \"1.3.0\",\n  \"packages\": {\n    \"\": {\n      \"version\": \"1.3.0\"\n    }\n  }\n}\n"
)

var startTaskNamesInOrder = []string{
	"check working tree",
	"ensure branch is not a release branch",
	"resolve release version",
	"fetch remote",
	"collect branch refs",
	"ensure release branch is absent",
	"create release branch",
	"update manifest version",
	"update lock file version",
	"write changelog",
}

func newStartGateway() *fakeGitGateway {
	return &fakeGitGateway{
		worktreeClean:  true,
		currentBranch:  testDevelopmentBranchConstant,
		latestTag:      "v1.2.3",
		latestTagFound: true,
		commitMessages: []gitrepo.CommitMessage{
			{Subject: "feat: add concurrent export pipeline"},
			{Subject: "fix: close response bodies"},
		},
		localBranches:  []string{testDevelopmentBranchConstant, testProductionBranchConstant},
		remoteBranches: []string{testDevelopmentBranchConstant, testProductionBranchConstant},
	}
}

func TestStartRunsTasksInDeclaredOrder(testingInstance *testing.T) {
	repositoryPath := writeRepositoryFixture(testingInstance, testChangelogContentConstant)
	gateway := newStartGateway()
	prompter := &scriptedPrompter{}
	service := newTestReleaseService(testingInstance, gateway, prompter, nil)

	outcome, startError := service.Start(context.Background(), releases.StartOptions{RepositoryPath: repositoryPath})
	require.NoError(testingInstance, startError)
	require.Equal(testingInstance, startTaskNamesInOrder, executedTaskNames(outcome))
	for _, taskOutcome := range outcome.TaskOutcomes {
		require.Equal(testingInstance, workflow.TaskStatusCompleted, taskOutcome.Status)
	}

	expectedCalls := []string{
		checkCleanWorktreeCallConstant,
		getCurrentBranchCallConstant,
		latestTagCallConstant,
		commitMessagesSinceCallConstant,
		fetchRemoteCallConstant,
		listLocalBranchesCallConstant,
		listRemoteBranchesCallConstant,
		createBranchCallConstant,
		latestTagCallConstant,
		commitMessagesSinceCallConstant,
	}
	require.Equal(testingInstance, expectedCalls, gateway.calls)
	require.Equal(testingInstance, []string{testReleaseBranchConstant}, gateway.createdBranches)

	require.Equal(testingInstance, expectedManifestAfterStart, readRepositoryFile(testingInstance, repositoryPath, testManifestFileNameConstant))
	require.Equal(testingInstance, expectedLockAfterStart, readRepositoryFile(testingInstance, repositoryPath, testLockFileNameConstant))

	changelogContent := readRepositoryFile(testingInstance, repositoryPath, testChangelogFileNameConstant)
	require.Contains(testingInstance, changelogContent, "## 1.3.0 - 2026-08-01")
	require.Contains(testingInstance, changelogContent, "add concurrent export pipeline")
	require.Contains(testingInstance, changelogContent, "## 1.2.3 - 2026-07-01")
}

func TestStartOffersCandidatesWithRecommendationAsDefault(testingInstance *testing.T) {
	repositoryPath := writeRepositoryFixture(testingInstance, testChangelogContentConstant)
	gateway := newStartGateway()
	prompter := &scriptedPrompter{}
	service := newTestReleaseService(testingInstance, gateway, prompter, nil)

	_, startError := service.Start(context.Background(), releases.StartOptions{RepositoryPath: repositoryPath})
	require.NoError(testingInstance, startError)

	require.Equal(testingInstance, testSelectVersionQuestionConstant, prompter.recordedQuestions[0])
	require.Len(testingInstance, prompter.recordedOptions, 1)

	presentedOptions := prompter.recordedOptions[0]
	require.Len(testingInstance, presentedOptions, 8)
	require.Equal(testingInstance, "patch (1.2.4)", presentedOptions[0])
	require.Equal(testingInstance, testMinorCandidateOptionConstant, presentedOptions[1])
	require.Equal(testingInstance, "major (2.0.0)", presentedOptions[2])
	require.Equal(testingInstance, testCustomCandidateOptionConstant, presentedOptions[7])
	require.Equal(testingInstance, 1, prompter.defaultIndices[0])
}

func TestStartAcceptsCustomVersionEntry(testingInstance *testing.T) {
	repositoryPath := writeRepositoryFixture(testingInstance, testChangelogContentConstant)
	gateway := newStartGateway()
	prompter := &scriptedPrompter{selectAnswers: []int{7}, inputAnswers: []string{testCustomVersionValueConstant}}
	service := newTestReleaseService(testingInstance, gateway, prompter, nil)

	_, startError := service.Start(context.Background(), releases.StartOptions{RepositoryPath: repositoryPath})
	require.NoError(testingInstance, startError)

	require.Contains(testingInstance, prompter.recordedQuestions, testCustomVersionQuestionConstant)
	require.Equal(testingInstance, []string{"release/" + testCustomVersionValueConstant}, gateway.createdBranches)
	require.Contains(testingInstance, readRepositoryFile(testingInstance, repositoryPath, testManifestFileNameConstant), testCustomVersionValueConstant)
}

func TestStartRejectsInvalidCustomVersion(testingInstance *testing.T) {
	repositoryPath := writeRepositoryFixture(testingInstance, testChangelogContentConstant)
	gateway := newStartGateway()
	prompter := &scriptedPrompter{selectAnswers: []int{7}, inputAnswers: []string{"not-a-version"}}
	service := newTestReleaseService(testingInstance, gateway, prompter, nil)

	_, startError := service.Start(context.Background(), releases.StartOptions{RepositoryPath: repositoryPath})
	require.Error(testingInstance, startError)

	var failure workflow.TaskFailureError
	require.ErrorAs(testingInstance, startError, &failure)
	require.Equal(testingInstance, "resolve release version", failure.TaskName)
	require.NotContains(testingInstance, gateway.calls, fetchRemoteCallConstant)
}

func TestStartDryRunLeavesRepositoryUntouched(testingInstance *testing.T) {
	repositoryPath := writeRepositoryFixture(testingInstance, testChangelogContentConstant)
	gateway := newStartGateway()
	prompter := &scriptedPrompter{}
	service := newTestReleaseService(testingInstance, gateway, prompter, nil)

	outcome, startError := service.Start(context.Background(), releases.StartOptions{RepositoryPath: repositoryPath, DryRun: true})
	require.NoError(testingInstance, startError)
	for _, taskOutcome := range outcome.TaskOutcomes {
		require.Equal(testingInstance, workflow.TaskStatusCompleted, taskOutcome.Status)
	}

	require.NotContains(testingInstance, gateway.calls, createBranchCallConstant)
	require.Contains(testingInstance, gateway.calls, fetchRemoteCallConstant)
	require.Contains(testingInstance, gateway.calls, listRemoteBranchesCallConstant)

	require.Equal(testingInstance, testManifestContentConstant, readRepositoryFile(testingInstance, repositoryPath, testManifestFileNameConstant))
	require.Equal(testingInstance, testLockContentConstant, readRepositoryFile(testingInstance, repositoryPath, testLockFileNameConstant))
	require.Equal(testingInstance, testChangelogContentConstant, readRepositoryFile(testingInstance, repositoryPath, testChangelogFileNameConstant))
}

func TestStartAbortsOnDirtyWorktree(testingInstance *testing.T) {
	repositoryPath := writeRepositoryFixture(testingInstance, testChangelogContentConstant)
	gateway := newStartGateway()
	gateway.worktreeClean = false
	service := newTestReleaseService(testingInstance, gateway, &scriptedPrompter{}, nil)

	_, startError := service.Start(context.Background(), releases.StartOptions{RepositoryPath: repositoryPath})
	require.Error(testingInstance, startError)

	var failure workflow.TaskFailureError
	require.ErrorAs(testingInstance, startError, &failure)
	require.Equal(testingInstance, "release start", failure.FlowName)
	require.Equal(testingInstance, "check working tree", failure.TaskName)

	var precondition releases.PreconditionError
	require.ErrorAs(testingInstance, startError, &precondition)
	require.Equal(testingInstance, []string{checkCleanWorktreeCallConstant}, gateway.calls)
}

func TestStartAllowDirtySkipsWorktreeCheck(testingInstance *testing.T) {
	repositoryPath := writeRepositoryFixture(testingInstance, testChangelogContentConstant)
	gateway := newStartGateway()
	gateway.worktreeClean = false
	service := newTestReleaseService(testingInstance, gateway, &scriptedPrompter{}, nil)

	outcome, startError := service.Start(context.Background(), releases.StartOptions{RepositoryPath: repositoryPath, AllowDirty: true})
	require.NoError(testingInstance, startError)

	statuses := taskStatusesByName(outcome)
	require.Equal(testingInstance, workflow.TaskStatusSkipped, statuses["check working tree"])
	require.NotContains(testingInstance, gateway.calls, checkCleanWorktreeCallConstant)
	require.Equal(testingInstance, getCurrentBranchCallConstant, gateway.calls[0])
}

func TestStartRefusesReleaseBranches(testingInstance *testing.T) {
	testCases := []struct {
		name          string
		currentBranch string
	}{
		{name: "prefixed_release_branch", currentBranch: "release/9.9.9"},
		{name: "branch_containing_release", currentBranch: "feature/release-notes"},
	}

	for _, testCase := range testCases {
		testingInstance.Run(testCase.name, func(subTestInstance *testing.T) {
			repositoryPath := writeRepositoryFixture(subTestInstance, testChangelogContentConstant)
			gateway := newStartGateway()
			gateway.currentBranch = testCase.currentBranch
			service := newTestReleaseService(subTestInstance, gateway, &scriptedPrompter{}, nil)

			_, startError := service.Start(context.Background(), releases.StartOptions{RepositoryPath: repositoryPath})
			require.Error(subTestInstance, startError)

			var failure workflow.TaskFailureError
			require.ErrorAs(subTestInstance, startError, &failure)
			require.Equal(subTestInstance, "ensure branch is not a release branch", failure.TaskName)

			var precondition releases.PreconditionError
			require.ErrorAs(subTestInstance, startError, &precondition)
			require.Contains(subTestInstance, precondition.Message, testCase.currentBranch)
			require.NotContains(subTestInstance, gateway.calls, createBranchCallConstant)
		})
	}
}

func TestStartRefusesExistingReleaseBranch(testingInstance *testing.T) {
	testCases := []struct {
		name           string
		localBranches  []string
		remoteBranches []string
	}{
		{
			name:           "local_branch_exists",
			localBranches:  []string{testDevelopmentBranchConstant, testReleaseBranchConstant},
			remoteBranches: []string{testDevelopmentBranchConstant},
		},
		{
			name:           "remote_branch_exists",
			localBranches:  []string{testDevelopmentBranchConstant},
			remoteBranches: []string{testDevelopmentBranchConstant, testReleaseBranchConstant},
		},
	}

	for _, testCase := range testCases {
		testingInstance.Run(testCase.name, func(subTestInstance *testing.T) {
			repositoryPath := writeRepositoryFixture(subTestInstance, testChangelogContentConstant)
			gateway := newStartGateway()
			gateway.localBranches = testCase.localBranches
			gateway.remoteBranches = testCase.remoteBranches
			service := newTestReleaseService(subTestInstance, gateway, &scriptedPrompter{}, nil)

			_, startError := service.Start(context.Background(), releases.StartOptions{RepositoryPath: repositoryPath})
			require.Error(subTestInstance, startError)

			var failure workflow.TaskFailureError
			require.ErrorAs(subTestInstance, startError, &failure)
			require.Equal(subTestInstance, "ensure release branch is absent", failure.TaskName)

			var precondition releases.PreconditionError
			require.ErrorAs(subTestInstance, startError, &precondition)
			require.Contains(subTestInstance, precondition.Message, testReleaseBranchConstant)
			require.NotContains(subTestInstance, gateway.calls, createBranchCallConstant)
		})
	}
}

func TestStartSurfacesPromptAbort(testingInstance *testing.T) {
	repositoryPath := writeRepositoryFixture(testingInstance, testChangelogContentConstant)
	gateway := newStartGateway()
	prompter := &scriptedPrompter{promptError: workflow.ErrPromptAborted}
	service := newTestReleaseService(testingInstance, gateway, prompter, nil)

	_, startError := service.Start(context.Background(), releases.StartOptions{RepositoryPath: repositoryPath})
	require.ErrorIs(testingInstance, startError, workflow.ErrPromptAborted)

	var failure workflow.TaskFailureError
	require.ErrorAs(testingInstance, startError, &failure)
	require.Equal(testingInstance, "resolve release version", failure.TaskName)
	require.NotContains(testingInstance, gateway.calls, fetchRemoteCallConstant)
	require.Equal(testingInstance, testManifestContentConstant, readRepositoryFile(testingInstance, repositoryPath, testManifestFileNameConstant))
}

func TestStartSkipsLockFileTaskWithoutLockFiles(testingInstance *testing.T) {
	repositoryPath := writeRepositoryFixture(testingInstance, testChangelogContentConstant)
	gateway := newStartGateway()

	manifestlessConfiguration := releases.DefaultConfiguration()
	manifestlessConfiguration.LockFiles = nil
	service := newConfiguredReleaseService(testingInstance, manifestlessConfiguration, gateway, &scriptedPrompter{}, nil)

	outcome, startError := service.Start(context.Background(), releases.StartOptions{RepositoryPath: repositoryPath})
	require.NoError(testingInstance, startError)

	statuses := taskStatusesByName(outcome)
	require.Equal(testingInstance, workflow.TaskStatusSkipped, statuses["update lock file version"])
	require.Equal(testingInstance, testLockContentConstant, readRepositoryFile(testingInstance, repositoryPath, testLockFileNameConstant))
}
