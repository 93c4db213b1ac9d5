// Package version resolves the version string reported by the binary.
package version

import (
	"context"
	"errors"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/relix/internal/execshell"
	"github.com/tyemirov/relix/internal/shared"
)

const (
	unknownVersionConstant            = "unknown"
	develBuildVersionConstant         = "devel"
	gitRevParseSubcommandConstant     = "rev-parse"
	gitShowTopLevelFlagConstant       = "--show-toplevel"
	gitDescribeSubcommandConstant     = "describe"
	gitTagsFlagConstant               = "--tags"
	gitExactMatchFlagConstant         = "--exact-match"
	gitLongFlagConstant               = "--long"
	gitDirtyFlagConstant              = "--dirty"
	gitTerminalPromptVariableConstant = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant = "0"
	gitExecutorMissingMessageConstant = "git executor not configured"
)

// BuildInfoProvider exposes runtime build metadata.
type BuildInfoProvider interface {
	Read() (*debug.BuildInfo, bool)
}

// Dependencies describes the collaborators required for version detection.
type Dependencies struct {
	BuildInfoProvider BuildInfoProvider
	GitExecutor       shared.GitExecutor
	WorkingDirectory  string
}

// Detector resolves the version string from build metadata or git history.
type Detector struct {
	buildInfoProvider BuildInfoProvider
	gitExecutor       shared.GitExecutor
	workingDirectory  string
}

// NewDetector constructs a Detector, filling missing dependencies with defaults.
func NewDetector(dependencies Dependencies) (*Detector, error) {
	buildInfoProvider := dependencies.BuildInfoProvider
	if buildInfoProvider == nil {
		buildInfoProvider = runtimeBuildInfoProvider{}
	}

	gitExecutor := dependencies.GitExecutor
	if gitExecutor == nil {
		shellExecutor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner(), false)
		if executorError != nil {
			return nil, executorError
		}
		gitExecutor = shellExecutor
	}

	workingDirectory := strings.TrimSpace(dependencies.WorkingDirectory)
	if len(workingDirectory) == 0 {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError == nil {
			workingDirectory = currentDirectory
		}
	}

	return &Detector{
		buildInfoProvider: buildInfoProvider,
		gitExecutor:       gitExecutor,
		workingDirectory:  workingDirectory,
	}, nil
}

// Detect resolves the version string with a throwaway Detector.
func Detect(executionContext context.Context, dependencies Dependencies) string {
	detector, detectorError := NewDetector(dependencies)
	if detectorError != nil {
		return unknownVersionConstant
	}
	return detector.Version(executionContext)
}

// Version reports the module version embedded at build time when present and
// otherwise falls back to git describe output for source checkouts.
func (detector *Detector) Version(executionContext context.Context) string {
	if detector == nil {
		return unknownVersionConstant
	}

	if buildVersion := detector.versionFromBuildInfo(); len(buildVersion) > 0 {
		return buildVersion
	}

	repositoryRoot := detector.resolveRepositoryRoot(executionContext)
	describeArgumentSets := [][]string{
		{gitDescribeSubcommandConstant, gitTagsFlagConstant, gitExactMatchFlagConstant},
		{gitDescribeSubcommandConstant, gitTagsFlagConstant, gitLongFlagConstant, gitDirtyFlagConstant},
	}
	for _, describeArguments := range describeArgumentSets {
		if describedVersion := detector.describeVersion(executionContext, repositoryRoot, describeArguments); len(describedVersion) > 0 {
			return describedVersion
		}
	}

	return unknownVersionConstant
}

func (detector *Detector) versionFromBuildInfo() string {
	if detector.buildInfoProvider == nil {
		return ""
	}

	buildInfo, available := detector.buildInfoProvider.Read()
	if !available || buildInfo == nil {
		return ""
	}

	buildVersion := strings.TrimSpace(buildInfo.Main.Version)
	if len(buildVersion) == 0 || strings.EqualFold(buildVersion, develBuildVersionConstant) {
		return ""
	}

	return buildVersion
}

func (detector *Detector) resolveRepositoryRoot(executionContext context.Context) string {
	if len(detector.workingDirectory) == 0 {
		return ""
	}

	executionResult, executionError := detector.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitShowTopLevelFlagConstant},
		WorkingDirectory: detector.workingDirectory,
	})
	if executionError != nil {
		return detector.workingDirectory
	}

	repositoryRoot := strings.TrimSpace(executionResult.StandardOutput)
	if len(repositoryRoot) == 0 {
		return detector.workingDirectory
	}
	return repositoryRoot
}

func (detector *Detector) describeVersion(executionContext context.Context, repositoryRoot string, describeArguments []string) string {
	executionResult, executionError := detector.executeGit(executionContext, execshell.CommandDetails{
		Arguments:        describeArguments,
		WorkingDirectory: repositoryRoot,
	})
	if executionError != nil {
		return ""
	}
	return strings.TrimSpace(executionResult.StandardOutput)
}

func (detector *Detector) executeGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	if detector.gitExecutor == nil {
		return execshell.ExecutionResult{}, errors.New(gitExecutorMissingMessageConstant)
	}

	environmentVariables := details.EnvironmentVariables
	if environmentVariables == nil {
		environmentVariables = map[string]string{}
	}
	environmentVariables[gitTerminalPromptVariableConstant] = gitTerminalPromptDisabledConstant
	details.EnvironmentVariables = environmentVariables

	return detector.gitExecutor.ExecuteGit(executionContext, details)
}

type runtimeBuildInfoProvider struct{}

func (runtimeBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}
