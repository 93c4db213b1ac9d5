// Package semver parses semantic versions and computes release version candidates.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	xsemver "golang.org/x/mod/semver"
)

const (
	canonicalVersionPrefixConstant     = "v"
	versionCoreTemplateConstant        = "%d.%d.%d"
	prereleaseSeparatorConstant        = "-"
	invalidVersionMessageTemplateConst = "invalid semantic version: %q"
)

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z.-]+))?$`)

// Version represents a parsed semantic version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
}

// InvalidVersionError indicates a version string that does not follow semantic versioning.
type InvalidVersionError struct {
	Value string
}

// Error describes the invalid version value.
func (versionError InvalidVersionError) Error() string {
	return fmt.Sprintf(invalidVersionMessageTemplateConst, versionError.Value)
}

// Parse converts a version string into a Version. A leading "v" is tolerated.
func Parse(rawVersion string) (Version, error) {
	trimmedVersion := strings.TrimSpace(rawVersion)
	trimmedVersion = strings.TrimPrefix(trimmedVersion, canonicalVersionPrefixConstant)
	if len(trimmedVersion) == 0 {
		return Version{}, InvalidVersionError{Value: rawVersion}
	}

	patternMatches := versionPattern.FindStringSubmatch(trimmedVersion)
	if patternMatches == nil {
		return Version{}, InvalidVersionError{Value: rawVersion}
	}
	if !xsemver.IsValid(canonicalVersionPrefixConstant + trimmedVersion) {
		return Version{}, InvalidVersionError{Value: rawVersion}
	}

	majorNumber, majorError := strconv.Atoi(patternMatches[1])
	if majorError != nil {
		return Version{}, InvalidVersionError{Value: rawVersion}
	}
	minorNumber, minorError := strconv.Atoi(patternMatches[2])
	if minorError != nil {
		return Version{}, InvalidVersionError{Value: rawVersion}
	}
	patchNumber, patchError := strconv.Atoi(patternMatches[3])
	if patchError != nil {
		return Version{}, InvalidVersionError{Value: rawVersion}
	}

	return Version{
		Major:      majorNumber,
		Minor:      minorNumber,
		Patch:      patchNumber,
		Prerelease: patternMatches[4],
	}, nil
}

// String renders the version without a leading "v".
func (version Version) String() string {
	renderedVersion := fmt.Sprintf(versionCoreTemplateConstant, version.Major, version.Minor, version.Patch)
	if len(version.Prerelease) > 0 {
		renderedVersion = renderedVersion + prereleaseSeparatorConstant + version.Prerelease
	}
	return renderedVersion
}

// IsPrerelease reports whether the version carries a prerelease identifier.
func (version Version) IsPrerelease() bool {
	return len(version.Prerelease) > 0
}

// Compare orders two versions following semantic versioning precedence.
func (version Version) Compare(otherVersion Version) int {
	return xsemver.Compare(
		canonicalVersionPrefixConstant+version.String(),
		canonicalVersionPrefixConstant+otherVersion.String(),
	)
}
