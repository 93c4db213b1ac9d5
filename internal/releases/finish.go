package releases

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/relix/internal/gitlab"
	"github.com/tyemirov/relix/internal/gitrepo"
	"github.com/tyemirov/relix/internal/semver"
	"github.com/tyemirov/relix/internal/workflow"
)

const (
	validateProjectTaskNameConstant     = "validate project"
	ensureReleaseBranchTaskNameConstant = "ensure release branch"
	fetchTagsTaskNameConstant           = "fetch tags"
	checkRemoteTagTaskNameConstant      = "check remote tag"
	checkoutDevelopmentTaskNameConstant = "checkout development branch"
	mergeReleaseBranchTaskNameConstant  = "merge release branch"
	createTagTaskNameConstant           = "create tag"
	pushDevelopmentTaskNameConstant     = "push development branch"
	pushTagTaskNameConstant             = "push tag"
	deleteLocalBranchTaskNameConstant   = "delete local release branch"
	deleteRemoteBranchTaskNameConstant  = "delete remote release branch"
	publishMergeRequestTaskNameConstant = "publish merge request"
	notReleaseBranchTemplateConstant    = "current branch %q is not a release branch"
	reassignTagQuestionTemplateConstant = "Tag %s already exists on %s, reassign it to the current commit?"
	projectValidatedMessageConstant     = "Remote project validated"
	forceTagDecisionMessageConstant     = "Force tag decision recorded"
	tagCreatedMessageConstant           = "Annotated tag created"
	branchPushedMessageConstant         = "Branch pushed"
	tagPushedMessageConstant            = "Tag pushed"
	localBranchDeletedMessageConstant   = "Local release branch deleted"
	remoteBranchDeletedMessageConstant  = "Remote release branch deletion finished"
	mergeRequestCreatedMessageConstant  = "Merge request created"
	projectLogFieldNameConstant         = "project"
	outcomeLogFieldNameConstant         = "outcome"
	mergeRequestURLLogFieldNameConstant = "merge_request_url"
)

func (service *Service) buildFinishFlow(repositoryPath string, finishOptions FinishOptions) workflow.Flow {
	return workflow.Flow{
		Name: finishFlowNameConstant,
		Tasks: []workflow.Task{
			{
				Name: validateProjectTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					projectIdentifier := state.ProjectIdentifier()
					projectFound, validationError := service.remoteService.ValidateProject(executionContext, projectIdentifier)
					if validationError != nil {
						return validationError
					}
					if !projectFound {
						return ProjectNotFoundError{ProjectIdentifier: projectIdentifier}
					}
					service.logger.Info(projectValidatedMessageConstant, zap.String(projectLogFieldNameConstant, projectIdentifier))
					return nil
				},
			},
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
				Name: ensureReleaseBranchTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					currentBranch, branchError := service.gitGateway.GetCurrentBranch(executionContext, repositoryPath)
					if branchError != nil {
						return branchError
					}
					if !strings.HasPrefix(currentBranch, service.configuration.ReleaseBranchPrefix) {
						return PreconditionError{Message: fmt.Sprintf(notReleaseBranchTemplateConstant, currentBranch)}
					}

					versionValue := strings.TrimPrefix(currentBranch, service.configuration.ReleaseBranchPrefix)
					parsedVersion, parseError := semver.Parse(versionValue)
					if parseError != nil {
						return parseError
					}
					return state.RecordReleaseVersion(parsedVersion.String())
				},
			},
			{
				Name: fetchTagsTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					return service.gitGateway.FetchRemoteTags(executionContext, repositoryPath, service.configuration.RemoteName)
				},
			},
			{
				Name:   checkRemoteTagTaskNameConstant,
				Prompt: service.promptForTagReassignment(repositoryPath),
				Action: func(executionContext context.Context, state *workflow.Context) error {
					service.logger.Info(forceTagDecisionMessageConstant,
						zap.String(decisionLogFieldNameConstant, string(state.ForceTagDecision())))
					return nil
				},
			},
			{
				Name: checkoutDevelopmentTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					if service.skipForDryRun(state, checkoutDevelopmentTaskNameConstant) {
						return nil
					}
					return service.gitGateway.CheckoutBranch(executionContext, repositoryPath, service.configuration.DevelopmentBranch)
				},
			},
			{
				Name: mergeReleaseBranchTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}
					if service.skipForDryRun(state, mergeReleaseBranchTaskNameConstant) {
						return nil
					}
					return service.gitGateway.MergeBranch(executionContext, repositoryPath, service.releaseBranchName(resolvedVersion))
				},
			},
			{
				Name: createTagTaskNameConstant,
				Skip: func(state *workflow.Context) bool {
					return state.ForceTagDecision() == workflow.ForceTagDeclined
				},
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}

					releaseTag := service.tagName(resolvedVersion)
					if service.skipForDryRun(state, createTagTaskNameConstant) {
						return nil
					}

					creationError := service.gitGateway.CreateAnnotatedTag(executionContext, repositoryPath, gitrepo.TagDetails{
						Name:    releaseTag,
						Message: fmt.Sprintf(releaseTagMessageTemplate, resolvedVersion),
						Force:   state.ForceTagDecision() == workflow.ForceTagApproved,
					})
					if creationError != nil {
						return creationError
					}
					service.logger.Info(tagCreatedMessageConstant, zap.String(tagLogFieldNameConstant, releaseTag))
					return nil
				},
			},
			{
				Name: pushDevelopmentTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					if service.skipForDryRun(state, pushDevelopmentTaskNameConstant) {
						return nil
					}

					var pushOptions []string
					if len(service.configuration.CISkipPushOption) > 0 {
						pushOptions = []string{service.configuration.CISkipPushOption}
					}
					pushError := service.gitGateway.PushBranch(executionContext, repositoryPath, service.configuration.RemoteName, service.configuration.DevelopmentBranch, pushOptions)
					if pushError != nil {
						return pushError
					}
					service.logger.Info(branchPushedMessageConstant, zap.String(branchLogFieldNameConstant, service.configuration.DevelopmentBranch))
					return nil
				},
			},
			{
				Name: pushTagTaskNameConstant,
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}

					releaseTag := service.tagName(resolvedVersion)
					if service.skipForDryRun(state, pushTagTaskNameConstant) {
						return nil
					}

					pushError := service.gitGateway.PushTag(executionContext, repositoryPath, service.configuration.RemoteName, releaseTag, state.ForceTagDecision() == workflow.ForceTagApproved)
					if pushError != nil {
						return pushError
					}
					service.logger.Info(tagPushedMessageConstant, zap.String(tagLogFieldNameConstant, releaseTag))
					return nil
				},
			},
			{
				Name: deleteLocalBranchTaskNameConstant,
				Skip: func(state *workflow.Context) bool {
					return state.SkipsBranchDeletion()
				},
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}

					releaseBranch := service.releaseBranchName(resolvedVersion)
					if service.skipForDryRun(state, deleteLocalBranchTaskNameConstant) {
						return nil
					}

					deletionError := service.gitGateway.DeleteLocalBranch(executionContext, repositoryPath, releaseBranch, false)
					if deletionError != nil {
						return deletionError
					}
					service.logger.Info(localBranchDeletedMessageConstant, zap.String(branchLogFieldNameConstant, releaseBranch))
					return nil
				},
			},
			{
				Name: deleteRemoteBranchTaskNameConstant,
				Skip: func(state *workflow.Context) bool {
					return state.SkipsBranchDeletion()
				},
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}

					releaseBranch := service.releaseBranchName(resolvedVersion)
					if service.skipForDryRun(state, deleteRemoteBranchTaskNameConstant) {
						return nil
					}

					deletionOutcome, deletionError := service.gitGateway.DeleteRemoteBranch(executionContext, repositoryPath, service.configuration.RemoteName, releaseBranch)
					if deletionError != nil {
						return deletionError
					}
					service.logger.Info(remoteBranchDeletedMessageConstant,
						zap.String(branchLogFieldNameConstant, releaseBranch),
						zap.String(outcomeLogFieldNameConstant, string(deletionOutcome)))
					return nil
				},
			},
			{
				Name: publishMergeRequestTaskNameConstant,
				Skip: func(state *workflow.Context) bool {
					return !finishOptions.Publish
				},
				Action: func(executionContext context.Context, state *workflow.Context) error {
					resolvedVersion, versionError := requireReleaseVersion(state)
					if versionError != nil {
						return versionError
					}

					description, descriptionError := service.changelog.LatestFromFile(service.changelogPath(repositoryPath), false)
					if descriptionError != nil {
						return descriptionError
					}

					if service.skipForDryRun(state, publishMergeRequestTaskNameConstant) {
						return nil
					}

					mergeRequest, creationError := service.remoteService.CreateMergeRequest(executionContext, state.ProjectIdentifier(), gitlab.MergeRequestOptions{
						SourceBranch: service.configuration.DevelopmentBranch,
						TargetBranch: service.configuration.ProductionBranch,
						Title:        fmt.Sprintf(mergeRequestTitleTemplate, resolvedVersion),
						Description:  description,
						Labels:       service.configuration.GitLab.Labels,
					})
					if creationError != nil {
						return creationError
					}
					service.logger.Info(mergeRequestCreatedMessageConstant,
						zap.String(mergeRequestURLLogFieldNameConstant, mergeRequest.WebURL))
					return nil
				},
			},
		},
	}
}

// promptForTagReassignment records whether an already-published tag may be
// moved to the current commit. A missing remote tag asks nothing and leaves
// the decision undecided.
func (service *Service) promptForTagReassignment(repositoryPath string) workflow.TaskPrompt {
	return func(executionContext context.Context, prompter workflow.Prompter, state *workflow.Context) error {
		resolvedVersion, versionError := requireReleaseVersion(state)
		if versionError != nil {
			return versionError
		}

		releaseTag := service.tagName(resolvedVersion)
		tagExists, lookupError := service.gitGateway.RemoteTagExists(executionContext, repositoryPath, service.configuration.RemoteName, releaseTag)
		if lookupError != nil {
			return lookupError
		}
		if !tagExists {
			return nil
		}

		reassignQuestion := fmt.Sprintf(reassignTagQuestionTemplateConstant, releaseTag, service.configuration.RemoteName)
		reassignApproved, confirmationError := prompter.Confirm(executionContext, reassignQuestion, false)
		if confirmationError != nil {
			return confirmationError
		}

		if reassignApproved {
			state.RecordForceTagDecision(workflow.ForceTagApproved)
			return nil
		}
		state.RecordForceTagDecision(workflow.ForceTagDeclined)
		return nil
	}
}
