// Package shared provides value objects and capability contracts reused across release services.
package shared

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tyemirov/relix/internal/execshell"
)

const (
	// OriginRemoteNameConstant identifies the default upstream remote.
	OriginRemoteNameConstant = "origin"
)

var (
	ErrRepositoryPathInvalid    = errors.New("repository path invalid")
	ErrRemoteNameInvalid        = errors.New("remote name invalid")
	ErrBranchNameInvalid        = errors.New("branch name invalid")
	ErrTagNameInvalid           = errors.New("tag name invalid")
	ErrProjectIdentifierInvalid = errors.New("project identifier invalid")
	remoteNamePattern           = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	refWhitespaceCharacters     = " \t\n\r"
)

// RepositoryPath represents a filesystem location for a Git repository.
type RepositoryPath struct {
	value string
}

// NewRepositoryPath validates and normalizes repository paths.
func NewRepositoryPath(rawValue string) (RepositoryPath, error) {
	if strings.ContainsAny(rawValue, "\r\n") {
		return RepositoryPath{}, fmt.Errorf("%w: contains newline", ErrRepositoryPathInvalid)
	}
	trimmed := strings.TrimSpace(rawValue)
	if len(trimmed) == 0 {
		return RepositoryPath{}, fmt.Errorf("%w: empty", ErrRepositoryPathInvalid)
	}
	cleaned := filepath.Clean(trimmed)
	return RepositoryPath{value: cleaned}, nil
}

// String exposes the normalized path string.
func (path RepositoryPath) String() string {
	if len(path.value) == 0 {
		panic("shared.RepositoryPath: zero value")
	}
	return path.value
}

// RemoteName models named git remotes (origin, upstream, etc).
type RemoteName struct {
	value string
}

// NewRemoteName validates remote names.
func NewRemoteName(rawValue string) (RemoteName, error) {
	trimmed := strings.TrimSpace(rawValue)
	if len(trimmed) == 0 {
		return RemoteName{}, fmt.Errorf("%w: empty", ErrRemoteNameInvalid)
	}
	if !remoteNamePattern.MatchString(trimmed) {
		return RemoteName{}, fmt.Errorf("%w: %s", ErrRemoteNameInvalid, trimmed)
	}
	return RemoteName{value: trimmed}, nil
}

// String exposes the remote name value.
func (remoteName RemoteName) String() string {
	if len(remoteName.value) == 0 {
		panic("shared.RemoteName: zero value")
	}
	return remoteName.value
}

// BranchName captures validated branch identifiers.
type BranchName struct {
	value string
}

// NewBranchName validates branch names for whitespace and emptiness.
func NewBranchName(rawValue string) (BranchName, error) {
	trimmed := strings.TrimSpace(rawValue)
	if len(trimmed) == 0 {
		return BranchName{}, fmt.Errorf("%w: empty", ErrBranchNameInvalid)
	}
	if strings.ContainsAny(trimmed, refWhitespaceCharacters) {
		return BranchName{}, fmt.Errorf("%w: contains whitespace", ErrBranchNameInvalid)
	}
	return BranchName{value: trimmed}, nil
}

// String returns the branch name.
func (branch BranchName) String() string {
	if len(branch.value) == 0 {
		panic("shared.BranchName: zero value")
	}
	return branch.value
}

// TagName captures validated tag identifiers.
type TagName struct {
	value string
}

// NewTagName validates tag names for whitespace and emptiness.
func NewTagName(rawValue string) (TagName, error) {
	trimmed := strings.TrimSpace(rawValue)
	if len(trimmed) == 0 {
		return TagName{}, fmt.Errorf("%w: empty", ErrTagNameInvalid)
	}
	if strings.ContainsAny(trimmed, refWhitespaceCharacters) {
		return TagName{}, fmt.Errorf("%w: contains whitespace", ErrTagNameInvalid)
	}
	return TagName{value: trimmed}, nil
}

// String returns the tag name.
func (tag TagName) String() string {
	if len(tag.value) == 0 {
		panic("shared.TagName: zero value")
	}
	return tag.value
}

// ProjectIdentifier models a hosting-service project reference (numeric id or group/name path).
type ProjectIdentifier struct {
	value string
}

// NewProjectIdentifier validates project identifiers.
func NewProjectIdentifier(rawValue string) (ProjectIdentifier, error) {
	trimmed := strings.TrimSpace(rawValue)
	if len(trimmed) == 0 {
		return ProjectIdentifier{}, fmt.Errorf("%w: empty", ErrProjectIdentifierInvalid)
	}
	if strings.ContainsAny(trimmed, refWhitespaceCharacters) {
		return ProjectIdentifier{}, fmt.Errorf("%w: contains whitespace", ErrProjectIdentifierInvalid)
	}
	return ProjectIdentifier{value: trimmed}, nil
}

// String returns the project identifier.
func (identifier ProjectIdentifier) String() string {
	if len(identifier.value) == 0 {
		panic("shared.ProjectIdentifier: zero value")
	}
	return identifier.value
}

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FileSystem exposes filesystem operations required by release services.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Abs(path string) (string, error)
	MkdirAll(path string, permissions fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// OSFileSystem implements FileSystem against the host operating system.
type OSFileSystem struct{}

// Stat reports file metadata.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Abs resolves the absolute representation of the provided path.
func (OSFileSystem) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

// MkdirAll creates the directory hierarchy.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// ReadFile loads file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile persists file contents.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, data, permissions)
}

// GitExecutor exposes the subset of shell execution used by repository services.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}
