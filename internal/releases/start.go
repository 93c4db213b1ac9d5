package releases

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/relix/internal/changelog"
	"github.com/tyemirov/relix/internal/semver"
	"github.com/tyemirov/relix/internal/workflow"
)

const (
	checkWorktreeTaskNameConstant        = "check working tree"
	ensureNotReleaseBranchTaskConstant   = "ensure branch is not a release branch"
	resolveVersionTaskNameConstant       = "resolve release version"
	fetchRemoteTaskNameConstant          = "fetch remote"
	collectBranchRefsTaskNameConstant    = "collect branch refs"
	ensureBranchAbsentTaskNameConstant   = "ensure release branch is absent"
	createReleaseBranchTaskNameConstant  = "create release branch"
	updateManifestTaskNameConstant       = "update manifest version"
	updateLockFilesTaskNameConstant      = "update lock file version"
	writeChangelogTaskNameConstant       = "write changelog"
	dirtyWorktreeMessageConstant         = "working tree has uncommitted changes, commit or stash them first"
	onReleaseBranchTemplateConstant      = "current branch %q already looks like a release branch"
	releaseBranchExistsTemplateConstant  = "release branch %q already exists"
	releaseWordConstant                  = "release"
	versionQuestionConstant              = "Select the release version"
	customVersionQuestionConstant        = "Enter the release version"
	candidateOptionTemplateConstant      = "%s (%s)"
	versionResolvedMessageConstant       = "Release version resolved"
	historyUnavailableMessageConstant    = "Commit history unavailable for bump classification"
	releaseBranchCreatedMessageConstant  = "Release branch created"
	manifestUpdatedMessageConstant       = "Manifest version updated"
	lockFileUpdatedMessageConstant       = "Lock file version updated"
	changelogGeneratedMessageConstant    = "Changelog section generated"
	reasonLogFieldNameConstant           = "reason"
	baselineLogFieldNameConstant         = "baseline"
	lockFileLogFieldNameConstant         = "lock_file"
)

func (service *Service) buildStartFlow(repositoryPath string) workflow.Flow {
	return workflow.Flow{
		Name: startFlowNameConstant,
		Tasks: []workflow.Task{
			{
				Name: checkWorktreeTaskNameConstant,
				Skip: func(state *workflow.Context) bool {
					return state.AllowsDirtyWorktree()
				},
				Action: func(executionContext context.Context, state *workflow.Context) error {
					return service.requireCleanWorktree(executionContext, repositoryPath)
				},
			},
			{
				Name: ensureNotReleaseBranchTaskConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					currentBranch, branchError := service.gitGateway.GetCurrentBranch(executionContext, repositoryPath)
					if branchError != nil {
						return branchError
					}
					if service.isReleaseBranch(currentBranch) {
						return PreconditionError{Message: fmt.Sprintf(onReleaseBranchTemplateConstant, currentBranch)}
					}
					return nil
				},
			},
			{
				Name:   resolveVersionTaskNameConstant,
				Prompt: service.promptForReleaseVersion(repositoryPath),
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}
					service.logger.Info(versionResolvedMessageConstant, zap.String(versionLogFieldNameConstant, resolvedVersion))
					return nil
				},
			},
			{
				Name: fetchRemoteTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					return service.gitGateway.FetchRemote(executionContext, repositoryPath, service.configuration.RemoteName)
				},
			},
			{
				Name: collectBranchRefsTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					localBranches, localError := service.gitGateway.ListLocalBranches(executionContext, repositoryPath)
					if localError != nil {
						return localError
					}
					remoteBranches, remoteError := service.gitGateway.ListRemoteBranches(executionContext, repositoryPath, service.configuration.RemoteName)
					if remoteError != nil {
						return remoteError
					}
					return state.RecordBranchRefs(localBranches, remoteBranches)
				},
			},
			{
				Name: ensureBranchAbsentTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}

					releaseBranch := service.releaseBranchName(resolvedVersion)
					localBranches, _ := state.LocalBranches()
					remoteBranches, _ := state.RemoteBranches()
					if containsBranch(localBranches, releaseBranch) || containsBranch(remoteBranches, releaseBranch) {
						return PreconditionError{Message: fmt.Sprintf(releaseBranchExistsTemplateConstant, releaseBranch)}
					}
					return nil
				},
			},
			{
				Name: createReleaseBranchTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}

					releaseBranch := service.releaseBranchName(resolvedVersion)
					if service.skipForDryRun(state, createReleaseBranchTaskNameConstant) {
						return nil
					}

					creationError := service.gitGateway.CreateAndCheckoutBranch(executionContext, repositoryPath, releaseBranch, "")
					if creationError != nil {
						return creationError
					}
					service.logger.Info(releaseBranchCreatedMessageConstant, zap.String(branchLogFieldNameConstant, releaseBranch))
					return nil
				},
			},
			{
				Name: updateManifestTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}
					if service.skipForDryRun(state, updateManifestTaskNameConstant) {
						return nil
					}

					writeError := service.manifestUpdater.WriteVersion(service.manifestPath(repositoryPath), resolvedVersion)
					if writeError != nil {
						return writeError
					}
					service.logger.Info(manifestUpdatedMessageConstant, zap.String(versionLogFieldNameConstant, resolvedVersion))
					return nil
				},
			},
			{
				Name: updateLockFilesTaskNameConstant,
				Skip: func(state *workflow.Context) bool {
					return len(service.configuration.LockFiles) == 0
				},
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}
					if service.skipForDryRun(state, updateLockFilesTaskNameConstant) {
						return nil
					}

					for _, lockFile := range service.configuration.LockFiles {
						lockPath := filepath.Join(repositoryPath, lockFile)
						lockCurrentVersion, readError := service.manifestUpdater.ReadVersion(lockPath)
						if readError != nil {
							return readError
						}
						updateError := service.manifestUpdater.UpdateLockVersion(lockPath, lockCurrentVersion, resolvedVersion)
						if updateError != nil {
							return updateError
						}
						service.logger.Info(lockFileUpdatedMessageConstant,
							zap.String(lockFileLogFieldNameConstant, lockFile),
							zap.String(versionLogFieldNameConstant, resolvedVersion))
					}
					return nil
				},
			},
			{
				Name: writeChangelogTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}

					generationResult, generationError := service.changelog.Generate(executionContext, changelog.Options{
						RepositoryPath: repositoryPath,
						Version:        resolvedVersion,
					})
					if generationError != nil {
						return generationError
					}
					service.logger.Info(changelogGeneratedMessageConstant,
						zap.String(versionLogFieldNameConstant, resolvedVersion),
						zap.String(baselineLogFieldNameConstant, generationResult.Baseline))

					if service.skipForDryRun(state, writeChangelogTaskNameConstant) {
						return nil
					}
					return service.changelog.PrependToFile(service.changelogPath(repositoryPath), generationResult.Section)
				},
			},
		},
	}
}

// promptForReleaseVersion offers the computed bump candidates and records the
// chosen version. Picking the custom candidate asks for a version and validates
// it before recording.
func (service *Service) promptForReleaseVersion(repositoryPath string) workflow.TaskPrompt {
	return func(executionContext context.Context, prompter workflow.Prompter, state *workflow.Context) error {
		currentVersion, readError := service.manifestUpdater.ReadVersion(service.manifestPath(repositoryPath))
		if readError != nil {
			return readError
		}

		commitRecords := service.collectCommitRecords(executionContext, repositoryPath)
		releaseCandidates, candidatesError := service.versionResolver.Candidates(currentVersion, commitRecords)
		if candidatesError != nil {
			return candidatesError
		}

		selectionOptions := make([]string, 0, len(releaseCandidates))
		defaultOptionIndex := 0
		for candidateIndex, releaseCandidate := range releaseCandidates {
			if releaseCandidate.ReleaseType == semver.ReleaseTypeCustom {
				selectionOptions = append(selectionOptions, string(semver.ReleaseTypeCustom))
				continue
			}
			selectionOptions = append(selectionOptions, fmt.Sprintf(candidateOptionTemplateConstant, releaseCandidate.ReleaseType, releaseCandidate.Version))
			if releaseCandidate.Recommended {
				defaultOptionIndex = candidateIndex
			}
		}

		selectedIndex, selectionError := prompter.Select(executionContext, versionQuestionConstant, selectionOptions, defaultOptionIndex)
		if selectionError != nil {
			return selectionError
		}

		selectedCandidate := releaseCandidates[selectedIndex]
		if selectedCandidate.ReleaseType != semver.ReleaseTypeCustom {
			return state.RecordReleaseVersion(selectedCandidate.Version.String())
		}

		customValue, inputError := prompter.Input(executionContext, customVersionQuestionConstant)
		if inputError != nil {
			return inputError
		}
		customVersion, parseError := semver.Parse(customValue)
		if parseError != nil {
			return parseError
		}
		return state.RecordReleaseVersion(customVersion.String())
	}
}

func (service *Service) requireCleanWorktree(executionContext context.Context, repositoryPath string) error {
	worktreeClean, worktreeError := service.gitGateway.CheckCleanWorktree(executionContext, repositoryPath)
	if worktreeError != nil {
		return worktreeError
	}
	if !worktreeClean {
		return PreconditionError{Message: dirtyWorktreeMessageConstant}
	}
	return nil
}

func (service *Service) isReleaseBranch(branchName string) bool {
	if len(service.configuration.ReleaseBranchPrefix) > 0 && strings.HasPrefix(branchName, service.configuration.ReleaseBranchPrefix) {
		return true
	}
	return strings.Contains(strings.ToLower(branchName), releaseWordConstant)
}

func (service *Service) collectCommitRecords(executionContext context.Context, repositoryPath string) []semver.CommitRecord {
	latestTag, tagFound, tagError := service.gitGateway.LatestTag(executionContext, repositoryPath)
	if tagError != nil {
		service.logger.Warn(historyUnavailableMessageConstant,
			zap.String(reasonLogFieldNameConstant, semver.ResolutionReasonHistoryUnavailable),
			zap.Error(tagError))
		return nil
	}

	sinceReference := ""
	if tagFound {
		sinceReference = latestTag
	}

	commitMessages, historyError := service.gitGateway.CommitMessagesSince(executionContext, repositoryPath, sinceReference)
	if historyError != nil {
		service.logger.Warn(historyUnavailableMessageConstant,
			zap.String(reasonLogFieldNameConstant, semver.ResolutionReasonHistoryUnavailable),
			zap.Error(historyError))
		return nil
	}

	commitRecords := make([]semver.CommitRecord, 0, len(commitMessages))
	for _, commitMessage := range commitMessages {
		commitRecords = append(commitRecords, semver.CommitRecord{Subject: commitMessage.Subject, Body: commitMessage.Body})
	}
	return commitRecords
}

func containsBranch(branchNames []string, branchName string) bool {
	for _, candidateName := range branchNames {
		if candidateName == branchName {
			return true
		}
	}
	return false
}
