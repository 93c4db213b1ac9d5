package releases

import (
	"errors"
	"fmt"
)

const (
	projectNotFoundTemplateConstant = "project %q not found on the remote service"
)

var (
	// ErrGitGatewayNotConfigured indicates the service was built without git operations.
	ErrGitGatewayNotConfigured = errors.New("git gateway not configured")
	// ErrManifestUpdaterNotConfigured indicates the service was built without a manifest updater.
	ErrManifestUpdaterNotConfigured = errors.New("manifest updater not configured")
	// ErrChangelogGeneratorNotConfigured indicates the service was built without a changelog generator.
	ErrChangelogGeneratorNotConfigured = errors.New("changelog generator not configured")
	// ErrVersionResolverNotConfigured indicates the service was built without a version resolver.
	ErrVersionResolverNotConfigured = errors.New("version resolver not configured")
	// ErrFlowRunnerNotConfigured indicates the service was built without a flow runner.
	ErrFlowRunnerNotConfigured = errors.New("flow runner not configured")
	// ErrRemoteServiceNotConfigured indicates the finish flow ran without a remote service client.
	ErrRemoteServiceNotConfigured = errors.New("remote service client not configured")
	// ErrReleaseVersionNotResolved indicates a task needed the release version before it was recorded.
	ErrReleaseVersionNotResolved = errors.New("release version not resolved")
)

// PreconditionError reports a repository state that blocks a release flow.
type PreconditionError struct {
	Message string
}

// Error describes the violated precondition.
func (preconditionError PreconditionError) Error() string {
	return preconditionError.Message
}

// ProjectNotFoundError reports a project identifier the remote service does not know.
type ProjectNotFoundError struct {
	ProjectIdentifier string
}

// Error names the unknown project identifier.
func (notFoundError ProjectNotFoundError) Error() string {
	return fmt.Sprintf(projectNotFoundTemplateConstant, notFoundError.ProjectIdentifier)
}
