// Package changelog renders release changelog sections from conventional
// commit history and maintains the changelog file.
package changelog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/tyemirov/relix/internal/gitrepo"
	"github.com/tyemirov/relix/internal/shared"
)

const (
	changelogTitle       = "# Changelog"
	sectionHeadingPrefix = "## "
	subHeadingPrefix     = "### "
	featuresHeading      = "### Features ✨"
	improvementsHeading  = "### Improvements ⚙️"
	bugFixesHeading      = "### Bug Fixes 🐛"
	testingHeading       = "### Testing 🧪"
	docsHeading          = "### Docs 📚"
	noChangesPlaceholder = "- _No changes._"
	headingDateLayout    = "2006-01-02"
	changelogFileMode    = fs.FileMode(0o644)
)

var conventionalSubjectPattern = regexp.MustCompile(`^([A-Za-z]+)(\([^)]*\))?(!)?:\s*(.+)$`)

// Options configure changelog generation.
type Options struct {
	RepositoryPath string
	Version        string
	ReleaseDate    string
	SinceReference string
}

// Result contains the generated changelog section and its baseline description.
type Result struct {
	Section  string
	Baseline string
}

// HistoryReader supplies tag and commit history for changelog generation.
type HistoryReader interface {
	LatestTag(ctx context.Context, repositoryPath string) (string, bool, error)
	CommitMessagesSince(ctx context.Context, repositoryPath string, sinceReference string) ([]gitrepo.CommitMessage, error)
}

// Generator produces changelog sections by classifying commits since the last tag.
type Generator struct {
	History    HistoryReader
	FileSystem shared.FileSystem
	Clock      shared.Clock
}

// ErrNoReleaseSections indicates changelog content without any release section.
var ErrNoReleaseSections = errors.New("no release sections found in changelog")

// Generate classifies the commits since the baseline and renders the section
// for the release version.
func (generator Generator) Generate(ctx context.Context, options Options) (Result, error) {
	if generator.History == nil {
		return Result{}, errors.New("history reader is not configured")
	}
	repositoryPath := strings.TrimSpace(options.RepositoryPath)
	if repositoryPath == "" {
		return Result{}, errors.New("repository path is required")
	}
	releaseVersion := strings.TrimSpace(options.Version)
	if releaseVersion == "" {
		return Result{}, errors.New("release version is required")
	}

	baseline, baselineError := generator.resolveBaseline(ctx, repositoryPath, options)
	if baselineError != nil {
		return Result{}, baselineError
	}

	commits, historyError := generator.History.CommitMessagesSince(ctx, repositoryPath, baseline.sinceReference)
	if historyError != nil {
		return Result{}, fmt.Errorf("changelog generation.history: %w", historyError)
	}

	releaseDate := strings.TrimSpace(options.ReleaseDate)
	if releaseDate == "" {
		clock := generator.Clock
		if clock == nil {
			clock = shared.SystemClock{}
		}
		releaseDate = clock.Now().Format(headingDateLayout)
	}

	return Result{
		Section:  renderSection(releaseVersion, releaseDate, commits),
		Baseline: baseline.description,
	}, nil
}

// Latest returns the newest release section of the changelog content. With
// includeHeader false the section heading line is dropped.
func (generator Generator) Latest(content string, includeHeader bool) (string, error) {
	lines := strings.Split(content, "\n")

	sectionStart := -1
	for lineIndex, line := range lines {
		if isSectionHeading(line) {
			sectionStart = lineIndex
			break
		}
	}
	if sectionStart < 0 {
		return "", ErrNoReleaseSections
	}

	sectionEnd := len(lines)
	for lineIndex := sectionStart + 1; lineIndex < len(lines); lineIndex++ {
		if isSectionHeading(lines[lineIndex]) {
			sectionEnd = lineIndex
			break
		}
	}

	sectionLines := lines[sectionStart:sectionEnd]
	if !includeHeader {
		sectionLines = sectionLines[1:]
	}
	return strings.TrimSpace(strings.Join(sectionLines, "\n")), nil
}

// LatestFromFile returns the newest release section of the changelog file.
func (generator Generator) LatestFromFile(changelogPath string, includeHeader bool) (string, error) {
	if generator.FileSystem == nil {
		return "", errors.New("file system is not configured")
	}
	trimmedPath := strings.TrimSpace(changelogPath)
	if trimmedPath == "" {
		return "", errors.New("changelog path is required")
	}

	content, readError := generator.FileSystem.ReadFile(trimmedPath)
	if readError != nil {
		return "", fmt.Errorf("changelog file read: %w", readError)
	}
	return generator.Latest(string(content), includeHeader)
}

// Prepend inserts the section after a leading changelog title, preserving all
// existing content. Content without a title receives one.
func (generator Generator) Prepend(content string, section string) (string, error) {
	trimmedSection := strings.TrimSpace(section)
	if trimmedSection == "" {
		return "", errors.New("changelog section is required")
	}

	if strings.TrimSpace(content) == "" {
		return changelogTitle + "\n\n" + trimmedSection + "\n", nil
	}

	lines := strings.Split(content, "\n")
	if strings.HasPrefix(strings.TrimSpace(lines[0]), changelogTitle) {
		insertionIndex := 1
		for insertionIndex < len(lines) && strings.TrimSpace(lines[insertionIndex]) == "" {
			insertionIndex++
		}

		updated := make([]string, 0, len(lines)+3)
		updated = append(updated, lines[0], "", trimmedSection, "")
		updated = append(updated, lines[insertionIndex:]...)
		return strings.Join(updated, "\n"), nil
	}

	return trimmedSection + "\n\n" + content, nil
}

// PrependToFile writes the section into the changelog file, creating the file
// with a title when it does not exist yet.
func (generator Generator) PrependToFile(changelogPath string, section string) error {
	if generator.FileSystem == nil {
		return errors.New("file system is not configured")
	}
	trimmedPath := strings.TrimSpace(changelogPath)
	if trimmedPath == "" {
		return errors.New("changelog path is required")
	}

	existingContent := ""
	content, readError := generator.FileSystem.ReadFile(trimmedPath)
	switch {
	case readError == nil:
		existingContent = string(content)
	case errors.Is(readError, fs.ErrNotExist):
	default:
		return fmt.Errorf("changelog file read: %w", readError)
	}

	updatedContent, prependError := generator.Prepend(existingContent, section)
	if prependError != nil {
		return prependError
	}

	if writeError := generator.FileSystem.WriteFile(trimmedPath, []byte(updatedContent), changelogFileMode); writeError != nil {
		return fmt.Errorf("changelog file write: %w", writeError)
	}
	return nil
}

type baselineInfo struct {
	sinceReference string
	description    string
}

func (generator Generator) resolveBaseline(ctx context.Context, repositoryPath string, options Options) (baselineInfo, error) {
	sinceReference := strings.TrimSpace(options.SinceReference)
	if sinceReference != "" {
		return baselineInfo{
			sinceReference: sinceReference,
			description:    fmt.Sprintf("changes since %s", sinceReference),
		}, nil
	}

	tagName, tagFound, tagError := generator.History.LatestTag(ctx, repositoryPath)
	if tagError != nil {
		return baselineInfo{}, fmt.Errorf("changelog generation.baseline: %w", tagError)
	}
	if tagFound {
		return baselineInfo{
			sinceReference: tagName,
			description:    fmt.Sprintf("changes since tag %s", tagName),
		}, nil
	}

	return baselineInfo{description: "full history (no prior tags)"}, nil
}

func renderSection(releaseVersion string, releaseDate string, commits []gitrepo.CommitMessage) string {
	features := make([]string, 0)
	improvements := make([]string, 0)
	bugFixes := make([]string, 0)
	testing := make([]string, 0)
	docs := make([]string, 0)

	for _, commit := range commits {
		subject := strings.TrimSpace(commit.Subject)
		if subject == "" {
			continue
		}
		switch classifySubject(subject) {
		case "feat":
			features = append(features, subject)
		case "fix":
			bugFixes = append(bugFixes, subject)
		case "test":
			testing = append(testing, subject)
		case "docs":
			docs = append(docs, subject)
		default:
			improvements = append(improvements, subject)
		}
	}

	sectionBuilder := strings.Builder{}
	fmt.Fprintf(&sectionBuilder, "## [%s] - %s\n", releaseVersion, releaseDate)
	writeSubsection(&sectionBuilder, featuresHeading, features)
	writeSubsection(&sectionBuilder, improvementsHeading, improvements)
	writeSubsection(&sectionBuilder, bugFixesHeading, bugFixes)
	writeSubsection(&sectionBuilder, testingHeading, testing)
	writeSubsection(&sectionBuilder, docsHeading, docs)
	return strings.TrimSpace(sectionBuilder.String())
}

func writeSubsection(sectionBuilder *strings.Builder, heading string, entries []string) {
	sectionBuilder.WriteString("\n" + heading + "\n\n")
	if len(entries) == 0 {
		sectionBuilder.WriteString(noChangesPlaceholder + "\n")
		return
	}
	for _, entry := range entries {
		sectionBuilder.WriteString("- " + entry + "\n")
	}
}

func classifySubject(subject string) string {
	matches := conventionalSubjectPattern.FindStringSubmatch(subject)
	if matches == nil {
		return ""
	}
	return strings.ToLower(matches[1])
}

func isSectionHeading(line string) bool {
	return strings.HasPrefix(line, sectionHeadingPrefix) && !strings.HasPrefix(line, subHeadingPrefix)
}
