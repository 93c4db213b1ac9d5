package releases

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tyemirov/relix/internal/changelog"
	"github.com/tyemirov/relix/internal/gitlab"
	"github.com/tyemirov/relix/internal/gitrepo"
	"github.com/tyemirov/relix/internal/manifest"
	"github.com/tyemirov/relix/internal/semver"
	"github.com/tyemirov/relix/internal/shared"
	"github.com/tyemirov/relix/internal/workflow"
)

const (
	dryRunSkipMessageConstant    = "Dry run, skipping mutation"
	taskLogFieldNameConstant     = "task"
	versionLogFieldNameConstant  = "version"
	branchLogFieldNameConstant   = "branch"
	tagLogFieldNameConstant      = "tag"
	decisionLogFieldNameConstant = "decision"
	releaseTagMessageTemplate    = "Release %s"
	mergeRequestTitleTemplate    = "Release %s"
	startFlowNameConstant        = "release start"
	finishFlowNameConstant       = "release finish"
)

// GitGateway describes the git operations the release flows depend on.
type GitGateway interface {
	CheckCleanWorktree(executionContext context.Context, repositoryPath string) (bool, error)
	GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	CheckoutBranch(executionContext context.Context, repositoryPath string, branchName string) error
	CreateAndCheckoutBranch(executionContext context.Context, repositoryPath string, branchName string, startPoint string) error
	MergeBranch(executionContext context.Context, repositoryPath string, sourceBranch string) error
	DeleteLocalBranch(executionContext context.Context, repositoryPath string, branchName string, forceDelete bool) error
	ListLocalBranches(executionContext context.Context, repositoryPath string) ([]string, error)
	FetchRemote(executionContext context.Context, repositoryPath string, remoteName string) error
	FetchRemoteTags(executionContext context.Context, repositoryPath string, remoteName string) error
	ListRemoteBranches(executionContext context.Context, repositoryPath string, remoteName string) ([]string, error)
	RemoteTagExists(executionContext context.Context, repositoryPath string, remoteName string, tagName string) (bool, error)
	CreateAnnotatedTag(executionContext context.Context, repositoryPath string, details gitrepo.TagDetails) error
	PushBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string, pushOptions []string) error
	PushTag(executionContext context.Context, repositoryPath string, remoteName string, tagName string, force bool) error
	DeleteRemoteBranch(executionContext context.Context, repositoryPath string, remoteName string, branchName string) (gitrepo.RemoteBranchDeletionOutcome, error)
	LatestTag(executionContext context.Context, repositoryPath string) (string, bool, error)
	CommitMessagesSince(executionContext context.Context, repositoryPath string, sinceReference string) ([]gitrepo.CommitMessage, error)
}

var _ GitGateway = (*gitrepo.RepositoryManager)(nil)

// RemoteServiceClient describes the remote service operations the finish flow uses.
type RemoteServiceClient interface {
	ValidateProject(executionContext context.Context, projectIdentifier string) (bool, error)
	CreateMergeRequest(executionContext context.Context, projectIdentifier string, options gitlab.MergeRequestOptions) (gitlab.MergeRequest, error)
}

var _ RemoteServiceClient = (*gitlab.Client)(nil)

// ServiceDependencies enumerates collaborators required by the release service.
type ServiceDependencies struct {
	Logger             *zap.Logger
	GitGateway         GitGateway
	ManifestUpdater    *manifest.Updater
	ChangelogGenerator *changelog.Generator
	VersionResolver    *semver.Resolver
	RemoteService      RemoteServiceClient
	Runner             *workflow.Runner
}

// Service orchestrates the release start and finish flows.
type Service struct {
	logger          *zap.Logger
	configuration   Configuration
	gitGateway      GitGateway
	manifestUpdater *manifest.Updater
	changelog       *changelog.Generator
	versionResolver *semver.Resolver
	remoteService   RemoteServiceClient
	runner          *workflow.Runner
}

// NewService constructs a Service from dependencies. The remote service client
// is only required once the finish flow runs.
func NewService(configuration Configuration, dependencies ServiceDependencies) (*Service, error) {
	if dependencies.GitGateway == nil {
		return nil, ErrGitGatewayNotConfigured
	}
	if dependencies.ManifestUpdater == nil {
		return nil, ErrManifestUpdaterNotConfigured
	}
	if dependencies.ChangelogGenerator == nil {
		return nil, ErrChangelogGeneratorNotConfigured
	}
	if dependencies.VersionResolver == nil {
		return nil, ErrVersionResolverNotConfigured
	}
	if dependencies.Runner == nil {
		return nil, ErrFlowRunnerNotConfigured
	}

	resolvedLogger := dependencies.Logger
	if resolvedLogger == nil {
		resolvedLogger = zap.NewNop()
	}

	return &Service{
		logger:          resolvedLogger,
		configuration:   configuration.MergeDefaults(),
		gitGateway:      dependencies.GitGateway,
		manifestUpdater: dependencies.ManifestUpdater,
		changelog:       dependencies.ChangelogGenerator,
		versionResolver: dependencies.VersionResolver,
		remoteService:   dependencies.RemoteService,
		runner:          dependencies.Runner,
	}, nil
}

// StartOptions configure a release start flow run.
type StartOptions struct {
	RepositoryPath string
	DryRun         bool
	AllowDirty     bool
}

// FinishOptions configure a release finish flow run.
type FinishOptions struct {
	RepositoryPath     string
	ProjectIdentifier  string
	DryRun             bool
	AllowDirty         bool
	SkipBranchDeletion bool
	Publish            bool
}

// Start runs the release start flow against a fresh flow context.
func (service *Service) Start(executionContext context.Context, options StartOptions) (workflow.FlowOutcome, error) {
	repositoryPath, pathError := shared.NewRepositoryPath(options.RepositoryPath)
	if pathError != nil {
		return workflow.FlowOutcome{}, pathError
	}

	state := workflow.NewContext(workflow.ContextOptions{
		DryRun:     options.DryRun,
		AllowDirty: options.AllowDirty,
	})

	flow := service.buildStartFlow(repositoryPath.String())
	return service.runner.Execute(executionContext, flow, state)
}

// Finish runs the release finish flow against a fresh flow context.
func (service *Service) Finish(executionContext context.Context, options FinishOptions) (workflow.FlowOutcome, error) {
	repositoryPath, pathError := shared.NewRepositoryPath(options.RepositoryPath)
	if pathError != nil {
		return workflow.FlowOutcome{}, pathError
	}

	projectIdentifier, projectError := shared.NewProjectIdentifier(options.ProjectIdentifier)
	if projectError != nil {
		return workflow.FlowOutcome{}, projectError
	}

	if service.remoteService == nil {
		return workflow.FlowOutcome{}, ErrRemoteServiceNotConfigured
	}

	state := workflow.NewContext(workflow.ContextOptions{
		DryRun:             options.DryRun,
		AllowDirty:         options.AllowDirty,
		SkipBranchDeletion: options.SkipBranchDeletion,
		ProjectIdentifier:  projectIdentifier.String(),
	})

	flow := service.buildFinishFlow(repositoryPath.String(), options)
	return service.runner.Execute(executionContext, flow, state)
}

func (service *Service) releaseBranchName(version string) string {
	return service.configuration.ReleaseBranchPrefix + version
}

func (service *Service) tagName(version string) string {
	return service.configuration.TagPrefix + version
}

func (service *Service) manifestPath(repositoryPath string) string {
	return filepath.Join(repositoryPath, service.configuration.ManifestFile)
}

func (service *Service) changelogPath(repositoryPath string) string {
	return filepath.Join(repositoryPath, service.configuration.ChangelogFile)
}

func (service *Service) skipForDryRun(state *workflow.Context, taskName string) bool {
	if !state.IsDryRun() {
		return false
	}

	service.logger.Info(dryRunSkipMessageConstant, zap.String(taskLogFieldNameConstant, taskName))
	return true
}

func requireReleaseVersion(state *workflow.Context) (string, error) {
	version, versionRecorded := state.ReleaseVersion()
	if !versionRecorded || len(version) == 0 {
		return "", ErrReleaseVersionNotResolved
	}
	return version, nil
}
