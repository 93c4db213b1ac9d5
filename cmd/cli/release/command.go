// Package release assembles the CLI command running the release flows.
package release

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/relix/internal/changelog"
	"github.com/tyemirov/relix/internal/execshell"
	"github.com/tyemirov/relix/internal/gitlab"
	"github.com/tyemirov/relix/internal/gitrepo"
	"github.com/tyemirov/relix/internal/manifest"
	"github.com/tyemirov/relix/internal/prompt"
	"github.com/tyemirov/relix/internal/releases"
	"github.com/tyemirov/relix/internal/semver"
	"github.com/tyemirov/relix/internal/shared"
	flagutils "github.com/tyemirov/relix/internal/utils/flags"
	"github.com/tyemirov/relix/internal/workflow"
)

const (
	commandUseName          = "release"
	commandShortDescription = "Run the release workflow in the current repository"
	commandLongDescription  = "release starts a release from the development branch: it resolves the next version, creates the release branch, updates the manifest and lock files, and writes the changelog section. With --finish it merges the current release branch back into the development branch, tags the release, pushes, and cleans up branches."
	commandExampleText      = "relix release --dry-run\nrelix release --finish --publish"

	finishFlagName      = "finish"
	finishFlagUsage     = "Finish the release on the current release branch instead of starting one"
	publishFlagName     = "publish"
	publishFlagUsage    = "Open a merge request from the development branch to the production branch after finishing"
	projectFlagName     = "project"
	projectFlagUsage    = "Remote project identifier used to validate and publish the release"
	allowDirtyFlagName  = "allow-dirty"
	allowDirtyFlagUsage = "Skip the clean worktree check"
	deleteFlagName      = "delete"
	deleteFlagUsage     = "Delete the local and remote release branches after finishing"
	verboseFlagName     = "verbose"
	verboseFlagUsage    = "Log task progress at debug level"

	defaultTokenEnvironmentName   = "GITLAB_TOKEN"
	missingTokenTemplateConstant  = "environment variable %s must be set with a GitLab token"
	currentDirectoryPathConstant  = "."
	currentDirectoryErrorTemplate = "unable to determine working directory: %w"
)

// RemoteServiceFactory builds remote service clients for the finish flow.
type RemoteServiceFactory func(logger *zap.Logger, configuration releases.Configuration, token string) (releases.RemoteServiceClient, error)

// CommandBuilder assembles the release command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() releases.Configuration
	GitGateway                   releases.GitGateway
	RemoteServiceFactory         RemoteServiceFactory
	PrompterFactory              func(command *cobra.Command) workflow.Prompter
	WorkingDirectory             string
}

// Build constructs the release command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUseName,
		Short:   commandShortDescription,
		Long:    commandLongDescription,
		Example: commandExampleText,
		Args:    cobra.NoArgs,
		RunE:    builder.run,
	}

	flagutils.AddToggleFlag(command.Flags(), nil, finishFlagName, "", false, finishFlagUsage)
	flagutils.AddToggleFlag(command.Flags(), nil, publishFlagName, "", false, publishFlagUsage)
	flagutils.AddToggleFlag(command.Flags(), nil, allowDirtyFlagName, "", false, allowDirtyFlagUsage)
	flagutils.AddToggleFlag(command.Flags(), nil, deleteFlagName, "", true, deleteFlagUsage)
	flagutils.AddToggleFlag(command.Flags(), nil, verboseFlagName, "", false, verboseFlagUsage)
	command.Flags().String(projectFlagName, "", projectFlagUsage)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()

	executionFlags, _ := flagutils.ResolveExecutionFlags(command)
	if executionFlags.RemoteSet && len(executionFlags.Remote) > 0 {
		configuration.RemoteName = executionFlags.Remote
	}

	finishRequested := toggleFlagValue(command, finishFlagName, false)
	allowDirty := toggleFlagValue(command, allowDirtyFlagName, false)
	deleteBranches := toggleFlagValue(command, deleteFlagName, true)
	publish := toggleFlagValue(command, publishFlagName, configuration.Publish)

	projectIdentifier := configuration.GitLab.Project
	if command != nil {
		if flagValue, flagError := command.Flags().GetString(projectFlagName); flagError == nil && command.Flags().Changed(projectFlagName) {
			projectIdentifier = strings.TrimSpace(flagValue)
		}
	}

	repositoryPath, pathError := builder.resolveRepositoryPath()
	if pathError != nil {
		return pathError
	}

	logger := builder.resolveLogger()

	gateway, gatewayError := builder.resolveGitGateway(logger)
	if gatewayError != nil {
		return gatewayError
	}

	manifestUpdater, updaterError := manifest.NewUpdater(shared.OSFileSystem{})
	if updaterError != nil {
		return updaterError
	}

	dependencies := releases.ServiceDependencies{
		Logger:          logger,
		GitGateway:      gateway,
		ManifestUpdater: manifestUpdater,
		ChangelogGenerator: &changelog.Generator{
			History:    changelog.HistoryReader(gateway),
			FileSystem: shared.OSFileSystem{},
			Clock:      shared.SystemClock{},
		},
		VersionResolver: semver.NewResolver(configuration.PrereleaseLabel),
		Runner:          workflow.NewRunner(logger, builder.resolvePrompter(command)),
	}

	if finishRequested {
		remoteService, remoteServiceError := builder.resolveRemoteService(logger, configuration)
		if remoteServiceError != nil {
			return remoteServiceError
		}
		dependencies.RemoteService = remoteService
	}

	service, serviceError := releases.NewService(configuration, dependencies)
	if serviceError != nil {
		return serviceError
	}

	if finishRequested {
		_, finishError := service.Finish(command.Context(), releases.FinishOptions{
			RepositoryPath:     repositoryPath,
			ProjectIdentifier:  projectIdentifier,
			DryRun:             executionFlags.DryRun,
			AllowDirty:         allowDirty,
			SkipBranchDeletion: !deleteBranches,
			Publish:            publish,
		})
		return finishError
	}

	_, startError := service.Start(command.Context(), releases.StartOptions{
		RepositoryPath: repositoryPath,
		DryRun:         executionFlags.DryRun,
		AllowDirty:     allowDirty,
	})
	return startError
}

func (builder *CommandBuilder) resolveConfiguration() releases.Configuration {
	if builder.ConfigurationProvider == nil {
		return releases.DefaultConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveRepositoryPath() (string, error) {
	configuredDirectory := strings.TrimSpace(builder.WorkingDirectory)
	if len(configuredDirectory) > 0 {
		return configuredDirectory, nil
	}

	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return "", fmt.Errorf(currentDirectoryErrorTemplate, workingDirectoryError)
	}
	trimmedDirectory := strings.TrimSpace(workingDirectory)
	if len(trimmedDirectory) == 0 {
		return currentDirectoryPathConstant, nil
	}
	return trimmedDirectory, nil
}

func (builder *CommandBuilder) resolveGitGateway(logger *zap.Logger) (releases.GitGateway, error) {
	if builder.GitGateway != nil {
		return builder.GitGateway, nil
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), builder.humanReadableLogging())
	if executorError != nil {
		return nil, executorError
	}
	return gitrepo.NewRepositoryManager(shellExecutor)
}

func (builder *CommandBuilder) resolvePrompter(command *cobra.Command) workflow.Prompter {
	if builder.PrompterFactory != nil {
		return builder.PrompterFactory(command)
	}
	if command == nil {
		return prompt.NewIOPrompter(os.Stdin, os.Stdout)
	}
	return prompt.NewIOPrompter(command.InOrStdin(), command.OutOrStdout())
}

func (builder *CommandBuilder) resolveRemoteService(logger *zap.Logger, configuration releases.Configuration) (releases.RemoteServiceClient, error) {
	tokenEnvironmentName := configuration.GitLab.TokenEnvironment
	if len(tokenEnvironmentName) == 0 {
		tokenEnvironmentName = defaultTokenEnvironmentName
	}
	token, _ := lookupEnvironmentValue(tokenEnvironmentName)

	if builder.RemoteServiceFactory != nil {
		return builder.RemoteServiceFactory(logger, configuration, token)
	}

	if len(token) == 0 {
		return nil, fmt.Errorf(missingTokenTemplateConstant, tokenEnvironmentName)
	}

	return gitlab.NewClient(logger, nil, gitlab.Configuration{
		BaseURL: configuration.GitLab.BaseURL,
		Token:   token,
	})
}

func (builder *CommandBuilder) humanReadableLogging() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}

func toggleFlagValue(command *cobra.Command, flagName string, fallbackValue bool) bool {
	if command == nil {
		return fallbackValue
	}
	flagValue, flagChanged, flagError := flagutils.BoolFlag(command, flagName)
	if flagError != nil || !flagChanged {
		return fallbackValue
	}
	return flagValue
}
