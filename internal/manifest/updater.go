// Package manifest updates version fields in project manifest and lock files in place.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tyemirov/relix/internal/shared"
)

const (
	jsonManifestExtensionConstant            = ".json"
	yamlManifestExtensionConstant            = ".yaml"
	yamlShortManifestExtensionConstant       = ".yml"
	tomlManifestExtensionConstant            = ".toml"
	manifestFilePermissionsConstant          = fs.FileMode(0o644)
	lockVersionReplacementLimitConstant      = 2
	manifestPathFieldNameConstant            = "manifest_path"
	versionValueFieldNameConstant            = "version"
	requiredValueMessageConstant             = "value required"
	fileSystemNotConfiguredMessageConstant   = "file system not configured"
	versionFieldNotFoundTemplateConstant     = "no version field found in %s"
	manifestOperationErrorTemplateConstant   = "%s failed for %s"
	manifestOperationWithCauseConstant       = "%s failed for %s: %s"
	invalidManifestInputTemplateConstant     = "%s: %s"
	readVersionOperationNameConstant         = ManifestOperationName("ReadVersion")
	writeVersionOperationNameConstant        = ManifestOperationName("WriteVersion")
	updateLockVersionOperationNameConstant   = ManifestOperationName("UpdateLockVersion")
	jsonVersionFieldExpressionConstant       = `"version"\s*:\s*"([^"\n]*)"`
	yamlVersionFieldExpressionConstant       = `(?m)^version\s*:\s*["']?([0-9A-Za-z.+-]+)["']?[ \t]*$`
	tomlVersionFieldExpressionConstant       = `(?m)^version\s*=\s*"([^"\n]*)"`
	versionValueSubmatchLowerIndexConstant   = 2
	versionValueSubmatchUpperIndexConstant   = 3
	versionValueSubmatchIndexLengthConstant  = 4
)

var (
	jsonVersionFieldPattern = regexp.MustCompile(jsonVersionFieldExpressionConstant)
	yamlVersionFieldPattern = regexp.MustCompile(yamlVersionFieldExpressionConstant)
	tomlVersionFieldPattern = regexp.MustCompile(tomlVersionFieldExpressionConstant)

	// ErrFileSystemNotConfigured indicates the Updater was constructed without a file system.
	ErrFileSystemNotConfigured = errors.New(fileSystemNotConfiguredMessageConstant)
)

// InvalidManifestInputError indicates validation failures for manifest operations.
type InvalidManifestInputError struct {
	FieldName string
	Message   string
}

// Error describes the validation failure.
func (inputError InvalidManifestInputError) Error() string {
	return fmt.Sprintf(invalidManifestInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// VersionFieldNotFoundError indicates the manifest carries no recognizable version field.
type VersionFieldNotFoundError struct {
	Path string
}

// Error names the manifest missing the version field.
func (notFoundError VersionFieldNotFoundError) Error() string {
	return fmt.Sprintf(versionFieldNotFoundTemplateConstant, notFoundError.Path)
}

// ManifestOperationName captures descriptive names for manifest operations.
type ManifestOperationName string

// ManifestOperationError wraps filesystem failures for manifest operations.
type ManifestOperationError struct {
	Operation ManifestOperationName
	Path      string
	Cause     error
}

// Error describes the manifest operation failure.
func (operationError ManifestOperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(manifestOperationErrorTemplateConstant, operationError.Operation, operationError.Path)
	}
	return fmt.Sprintf(manifestOperationWithCauseConstant, operationError.Operation, operationError.Path, operationError.Cause)
}

// Unwrap exposes the underlying error.
func (operationError ManifestOperationError) Unwrap() error {
	return operationError.Cause
}

// Updater reads and rewrites version fields while preserving surrounding content.
type Updater struct {
	fileSystem shared.FileSystem
}

// NewUpdater constructs an Updater for the provided file system.
func NewUpdater(fileSystem shared.FileSystem) (*Updater, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &Updater{fileSystem: fileSystem}, nil
}

// ReadVersion returns the first version field value found in the manifest.
func (updater *Updater) ReadVersion(manifestPath string) (string, error) {
	trimmedPath := strings.TrimSpace(manifestPath)
	if len(trimmedPath) == 0 {
		return "", InvalidManifestInputError{FieldName: manifestPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	manifestContent, readError := updater.fileSystem.ReadFile(trimmedPath)
	if readError != nil {
		return "", ManifestOperationError{Operation: readVersionOperationNameConstant, Path: trimmedPath, Cause: readError}
	}

	versionMatchIndexes := locateVersionField(manifestContent, trimmedPath)
	if versionMatchIndexes == nil {
		return "", VersionFieldNotFoundError{Path: trimmedPath}
	}
	return string(manifestContent[versionMatchIndexes[versionValueSubmatchLowerIndexConstant]:versionMatchIndexes[versionValueSubmatchUpperIndexConstant]]), nil
}

// WriteVersion replaces the first version field value in the manifest, leaving
// every other byte untouched.
func (updater *Updater) WriteVersion(manifestPath string, newVersion string) error {
	trimmedPath := strings.TrimSpace(manifestPath)
	if len(trimmedPath) == 0 {
		return InvalidManifestInputError{FieldName: manifestPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedVersion := strings.TrimSpace(newVersion)
	if len(trimmedVersion) == 0 {
		return InvalidManifestInputError{FieldName: versionValueFieldNameConstant, Message: requiredValueMessageConstant}
	}

	manifestContent, readError := updater.fileSystem.ReadFile(trimmedPath)
	if readError != nil {
		return ManifestOperationError{Operation: writeVersionOperationNameConstant, Path: trimmedPath, Cause: readError}
	}

	versionMatchIndexes := locateVersionField(manifestContent, trimmedPath)
	if versionMatchIndexes == nil {
		return VersionFieldNotFoundError{Path: trimmedPath}
	}

	updatedContent := spliceVersionValue(manifestContent, versionMatchIndexes, trimmedVersion)
	if writeError := updater.fileSystem.WriteFile(trimmedPath, updatedContent, manifestFilePermissionsConstant); writeError != nil {
		return ManifestOperationError{Operation: writeVersionOperationNameConstant, Path: trimmedPath, Cause: writeError}
	}
	return nil
}

// UpdateLockVersion replaces version field values equal to the current version
// in a lock or companion file. Lock files repeat the project version near the
// top of the record, so at most two occurrences are rewritten.
func (updater *Updater) UpdateLockVersion(lockPath string, currentVersion string, newVersion string) error {
	trimmedPath := strings.TrimSpace(lockPath)
	if len(trimmedPath) == 0 {
		return InvalidManifestInputError{FieldName: manifestPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedCurrent := strings.TrimSpace(currentVersion)
	if len(trimmedCurrent) == 0 {
		return InvalidManifestInputError{FieldName: versionValueFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedVersion := strings.TrimSpace(newVersion)
	if len(trimmedVersion) == 0 {
		return InvalidManifestInputError{FieldName: versionValueFieldNameConstant, Message: requiredValueMessageConstant}
	}

	lockContent, readError := updater.fileSystem.ReadFile(trimmedPath)
	if readError != nil {
		return ManifestOperationError{Operation: updateLockVersionOperationNameConstant, Path: trimmedPath, Cause: readError}
	}

	updatedContent := lockContent
	replacements := 0
	searchOffset := 0
	for replacements < lockVersionReplacementLimitConstant {
		versionMatchIndexes := locateVersionFieldFrom(updatedContent, trimmedPath, searchOffset)
		if versionMatchIndexes == nil {
			break
		}

		matchedValue := string(updatedContent[versionMatchIndexes[versionValueSubmatchLowerIndexConstant]:versionMatchIndexes[versionValueSubmatchUpperIndexConstant]])
		if matchedValue == trimmedCurrent {
			updatedContent = spliceVersionValue(updatedContent, versionMatchIndexes, trimmedVersion)
			searchOffset = versionMatchIndexes[versionValueSubmatchLowerIndexConstant] + len(trimmedVersion)
			replacements++
			continue
		}
		searchOffset = versionMatchIndexes[1]
	}

	if replacements == 0 {
		return VersionFieldNotFoundError{Path: trimmedPath}
	}

	if writeError := updater.fileSystem.WriteFile(trimmedPath, updatedContent, manifestFilePermissionsConstant); writeError != nil {
		return ManifestOperationError{Operation: updateLockVersionOperationNameConstant, Path: trimmedPath, Cause: writeError}
	}
	return nil
}

func locateVersionField(manifestContent []byte, manifestPath string) []int {
	return locateVersionFieldFrom(manifestContent, manifestPath, 0)
}

func locateVersionFieldFrom(manifestContent []byte, manifestPath string, searchOffset int) []int {
	if searchOffset < 0 || searchOffset > len(manifestContent) {
		return nil
	}

	for _, versionFieldPattern := range versionFieldPatternsForPath(manifestPath) {
		matchIndexes := versionFieldPattern.FindSubmatchIndex(manifestContent[searchOffset:])
		if len(matchIndexes) < versionValueSubmatchIndexLengthConstant {
			continue
		}
		adjustedIndexes := make([]int, len(matchIndexes))
		for indexPosition, matchIndex := range matchIndexes {
			if matchIndex < 0 {
				adjustedIndexes[indexPosition] = matchIndex
				continue
			}
			adjustedIndexes[indexPosition] = matchIndex + searchOffset
		}
		return adjustedIndexes
	}
	return nil
}

func spliceVersionValue(manifestContent []byte, matchIndexes []int, newVersion string) []byte {
	valueStart := matchIndexes[versionValueSubmatchLowerIndexConstant]
	valueEnd := matchIndexes[versionValueSubmatchUpperIndexConstant]

	updatedContent := make([]byte, 0, len(manifestContent)-(valueEnd-valueStart)+len(newVersion))
	updatedContent = append(updatedContent, manifestContent[:valueStart]...)
	updatedContent = append(updatedContent, newVersion...)
	updatedContent = append(updatedContent, manifestContent[valueEnd:]...)
	return updatedContent
}

func versionFieldPatternsForPath(manifestPath string) []*regexp.Regexp {
	switch strings.ToLower(filepath.Ext(manifestPath)) {
	case jsonManifestExtensionConstant:
		return []*regexp.Regexp{jsonVersionFieldPattern}
	case yamlManifestExtensionConstant, yamlShortManifestExtensionConstant:
		return []*regexp.Regexp{yamlVersionFieldPattern}
	case tomlManifestExtensionConstant:
		return []*regexp.Regexp{tomlVersionFieldPattern}
	default:
		return []*regexp.Regexp{jsonVersionFieldPattern, yamlVersionFieldPattern, tomlVersionFieldPattern}
	}
}
