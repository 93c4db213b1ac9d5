package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ReleaseType identifies a semantic version increment strategy.
type ReleaseType string

// Supported release types.
const (
	ReleaseTypePatch      ReleaseType = "patch"
	ReleaseTypeMinor      ReleaseType = "minor"
	ReleaseTypeMajor      ReleaseType = "major"
	ReleaseTypePrepatch   ReleaseType = "prepatch"
	ReleaseTypePreminor   ReleaseType = "preminor"
	ReleaseTypePremajor   ReleaseType = "premajor"
	ReleaseTypePrerelease ReleaseType = "prerelease"
	ReleaseTypeCustom     ReleaseType = "custom"
)

const (
	// DefaultPrereleaseLabel names prerelease identifiers when no label is configured.
	DefaultPrereleaseLabel = "rc"

	// Resolution failure reasons.
	ResolutionReasonHistoryUnavailable = "commit history unavailable"
	ResolutionReasonVersionUnparsable  = "current version unparsable"

	prereleaseIdentifierSeparatorConstant    = "."
	initialPrereleaseNumberConstant          = "0"
	breakingChangeTokenConstant              = "BREAKING CHANGE"
	breakingChangeHyphenTokenConstant        = "BREAKING-CHANGE"
	featureCommitTypeConstant                = "feat"
	breakingMarkerConstant                   = "!"
	resolutionErrorMessageTemplateConstant   = "version resolution failed: %s"
	resolutionErrorWithCauseTemplateConstant = "version resolution failed: %s: %v"
	unsupportedReleaseTypeTemplateConstant   = "release type %q cannot be incremented"
)

var conventionalCommitSubjectPattern = regexp.MustCompile(`^([A-Za-z]+)(\([^)]*\))?(!)?:`)

var candidateReleaseTypes = []ReleaseType{
	ReleaseTypePatch,
	ReleaseTypeMinor,
	ReleaseTypeMajor,
	ReleaseTypePrepatch,
	ReleaseTypePreminor,
	ReleaseTypePremajor,
	ReleaseTypePrerelease,
	ReleaseTypeCustom,
}

// CommitRecord carries one commit message for bump classification.
type CommitRecord struct {
	Subject string
	Body    string
}

// Candidate pairs a release type with the version it would produce. The custom
// candidate carries no version; the operator supplies one.
type Candidate struct {
	ReleaseType ReleaseType
	Version     Version
	Recommended bool
}

// ResolutionError indicates version resolution could not complete.
type ResolutionError struct {
	Reason string
	Cause  error
}

// Error describes the resolution failure.
func (resolutionError ResolutionError) Error() string {
	if resolutionError.Cause == nil {
		return fmt.Sprintf(resolutionErrorMessageTemplateConstant, resolutionError.Reason)
	}
	return fmt.Sprintf(resolutionErrorWithCauseTemplateConstant, resolutionError.Reason, resolutionError.Cause)
}

// Unwrap exposes the underlying error.
func (resolutionError ResolutionError) Unwrap() error {
	return resolutionError.Cause
}

// UnsupportedReleaseTypeError indicates a release type Increment cannot compute.
type UnsupportedReleaseTypeError struct {
	ReleaseType ReleaseType
}

// Error describes the unsupported release type.
func (releaseTypeError UnsupportedReleaseTypeError) Error() string {
	return fmt.Sprintf(unsupportedReleaseTypeTemplateConstant, string(releaseTypeError.ReleaseType))
}

// Increment applies the release type to the base version. Prerelease identifiers
// use the provided label, falling back to DefaultPrereleaseLabel when blank.
func Increment(baseVersion Version, releaseType ReleaseType, prereleaseLabel string) (Version, error) {
	trimmedLabel := strings.TrimSpace(prereleaseLabel)
	if len(trimmedLabel) == 0 {
		trimmedLabel = DefaultPrereleaseLabel
	}

	nextVersion := baseVersion
	switch releaseType {
	case ReleaseTypeMajor:
		if nextVersion.Minor != 0 || nextVersion.Patch != 0 || !nextVersion.IsPrerelease() {
			nextVersion.Major++
		}
		nextVersion.Minor = 0
		nextVersion.Patch = 0
		nextVersion.Prerelease = ""
	case ReleaseTypeMinor:
		if nextVersion.Patch != 0 || !nextVersion.IsPrerelease() {
			nextVersion.Minor++
		}
		nextVersion.Patch = 0
		nextVersion.Prerelease = ""
	case ReleaseTypePatch:
		if !nextVersion.IsPrerelease() {
			nextVersion.Patch++
		}
		nextVersion.Prerelease = ""
	case ReleaseTypePremajor:
		nextVersion.Major++
		nextVersion.Minor = 0
		nextVersion.Patch = 0
		nextVersion.Prerelease = initialPrereleaseIdentifier(trimmedLabel)
	case ReleaseTypePreminor:
		nextVersion.Minor++
		nextVersion.Patch = 0
		nextVersion.Prerelease = initialPrereleaseIdentifier(trimmedLabel)
	case ReleaseTypePrepatch:
		nextVersion.Patch++
		nextVersion.Prerelease = initialPrereleaseIdentifier(trimmedLabel)
	case ReleaseTypePrerelease:
		if !nextVersion.IsPrerelease() {
			nextVersion.Patch++
			nextVersion.Prerelease = initialPrereleaseIdentifier(trimmedLabel)
		} else {
			nextVersion.Prerelease = bumpPrereleaseIdentifier(nextVersion.Prerelease, trimmedLabel)
		}
	default:
		return Version{}, UnsupportedReleaseTypeError{ReleaseType: releaseType}
	}
	return nextVersion, nil
}

func initialPrereleaseIdentifier(prereleaseLabel string) string {
	return prereleaseLabel + prereleaseIdentifierSeparatorConstant + initialPrereleaseNumberConstant
}

func bumpPrereleaseIdentifier(existingPrerelease string, prereleaseLabel string) string {
	identifierSegments := strings.Split(existingPrerelease, prereleaseIdentifierSeparatorConstant)
	if identifierSegments[0] != prereleaseLabel {
		return initialPrereleaseIdentifier(prereleaseLabel)
	}

	for segmentIndex := len(identifierSegments) - 1; segmentIndex >= 0; segmentIndex-- {
		segmentNumber, conversionError := strconv.Atoi(identifierSegments[segmentIndex])
		if conversionError != nil {
			continue
		}
		identifierSegments[segmentIndex] = strconv.Itoa(segmentNumber + 1)
		return strings.Join(identifierSegments, prereleaseIdentifierSeparatorConstant)
	}

	return existingPrerelease + prereleaseIdentifierSeparatorConstant + initialPrereleaseNumberConstant
}

// Resolver computes the recommended bump and the candidate next versions.
type Resolver struct {
	prereleaseLabel string
}

// NewResolver constructs a Resolver with the given prerelease label.
func NewResolver(prereleaseLabel string) *Resolver {
	trimmedLabel := strings.TrimSpace(prereleaseLabel)
	if len(trimmedLabel) == 0 {
		trimmedLabel = DefaultPrereleaseLabel
	}
	return &Resolver{prereleaseLabel: trimmedLabel}
}

// Classify picks the recommended bump for the commit history. Breaking changes
// recommend a major bump, features a minor bump, anything else a patch bump.
func (resolver *Resolver) Classify(commitRecords []CommitRecord) ReleaseType {
	recommendation := ReleaseTypePatch
	for _, commitRecord := range commitRecords {
		if isBreakingChange(commitRecord) {
			return ReleaseTypeMajor
		}
		if isFeatureCommit(commitRecord.Subject) {
			recommendation = ReleaseTypeMinor
		}
	}
	return recommendation
}

// Candidates computes every next version choice for the current version string,
// marking the recommendation derived from the commit history.
func (resolver *Resolver) Candidates(currentVersionValue string, commitRecords []CommitRecord) ([]Candidate, error) {
	currentVersion, parseError := Parse(currentVersionValue)
	if parseError != nil {
		return nil, ResolutionError{Reason: ResolutionReasonVersionUnparsable, Cause: parseError}
	}

	recommendedReleaseType := resolver.Classify(commitRecords)
	releaseCandidates := make([]Candidate, 0, len(candidateReleaseTypes))
	for _, releaseType := range candidateReleaseTypes {
		if releaseType == ReleaseTypeCustom {
			releaseCandidates = append(releaseCandidates, Candidate{ReleaseType: ReleaseTypeCustom})
			continue
		}

		nextVersion, incrementError := Increment(currentVersion, releaseType, resolver.prereleaseLabel)
		if incrementError != nil {
			return nil, incrementError
		}
		releaseCandidates = append(releaseCandidates, Candidate{
			ReleaseType: releaseType,
			Version:     nextVersion,
			Recommended: releaseType == recommendedReleaseType,
		})
	}
	return releaseCandidates, nil
}

func isBreakingChange(commitRecord CommitRecord) bool {
	subjectMatches := conventionalCommitSubjectPattern.FindStringSubmatch(commitRecord.Subject)
	if subjectMatches != nil && subjectMatches[3] == breakingMarkerConstant {
		return true
	}
	if strings.Contains(commitRecord.Body, breakingChangeTokenConstant) || strings.Contains(commitRecord.Body, breakingChangeHyphenTokenConstant) {
		return true
	}
	return strings.Contains(commitRecord.Subject, breakingChangeTokenConstant)
}

func isFeatureCommit(commitSubject string) bool {
	subjectMatches := conventionalCommitSubjectPattern.FindStringSubmatch(commitSubject)
	if subjectMatches == nil {
		return false
	}
	return strings.EqualFold(subjectMatches[1], featureCommitTypeConstant)
}
