package changelog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/relix/internal/gitrepo"
	"github.com/tyemirov/relix/internal/shared"
)

type stubHistory struct {
	tagName    string
	tagFound   bool
	tagErr     error
	commits    []gitrepo.CommitMessage
	commitErr  error
	sinceRefs  []string
	tagQueries int
}

func (history *stubHistory) LatestTag(ctx context.Context, repositoryPath string) (string, bool, error) {
	history.tagQueries++
	return history.tagName, history.tagFound, history.tagErr
}

func (history *stubHistory) CommitMessagesSince(ctx context.Context, repositoryPath string, sinceReference string) ([]gitrepo.CommitMessage, error) {
	history.sinceRefs = append(history.sinceRefs, sinceReference)
	if history.commitErr != nil {
		return nil, history.commitErr
	}
	return history.commits, nil
}

type fixedClock struct {
	instant time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.instant
}

func testClock() fixedClock {
	return fixedClock{instant: time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC)}
}

func TestGenerateClassifiesCommits(t *testing.T) {
	history := &stubHistory{
		tagName:  "v1.2.3",
		tagFound: true,
		commits: []gitrepo.CommitMessage{
			{Subject: "feat: add finish flow"},
			{Subject: "refactor(core): simplify runner"},
			{Subject: "fix: tolerate missing tag"},
			{Subject: "test: cover prompt aborts"},
			{Subject: "docs: document configuration"},
			{Subject: "freeform maintenance note"},
		},
	}
	generator := Generator{History: history, Clock: testClock()}

	result, err := generator.Generate(context.Background(), Options{
		RepositoryPath: "/tmp/repo",
		Version:        "1.3.0",
	})
	require.NoError(t, err)
	require.Equal(t, "changes since tag v1.2.3", result.Baseline)
	require.Equal(t, []string{"v1.2.3"}, history.sinceRefs)

	expectedSection := "## [1.3.0] - 2026-08-22\n" +
		"\n### Features ✨\n\n" +
		"- feat: add finish flow\n" +
		"\n### Improvements ⚙️\n\n" +
		"- refactor(core): simplify runner\n" +
		"- freeform maintenance note\n" +
		"\n### Bug Fixes 🐛\n\n" +
		"- fix: tolerate missing tag\n" +
		"\n### Testing 🧪\n\n" +
		"- test: cover prompt aborts\n" +
		"\n### Docs 📚\n\n" +
		"- docs: document configuration"
	require.Equal(t, expectedSection, result.Section)
}

func TestGenerateWithoutTagsUsesFullHistory(t *testing.T) {
	history := &stubHistory{}
	generator := Generator{History: history, Clock: testClock()}

	result, err := generator.Generate(context.Background(), Options{
		RepositoryPath: "/tmp/repo",
		Version:        "0.1.0",
	})
	require.NoError(t, err)
	require.Equal(t, "full history (no prior tags)", result.Baseline)
	require.Equal(t, []string{""}, history.sinceRefs)
	require.Contains(t, result.Section, "## [0.1.0] - 2026-08-22")
	require.Contains(t, result.Section, noChangesPlaceholder)
}

func TestGenerateUsesProvidedReference(t *testing.T) {
	history := &stubHistory{commits: []gitrepo.CommitMessage{{Subject: "fix: trailing newline"}}}
	generator := Generator{History: history, Clock: testClock()}

	result, err := generator.Generate(context.Background(), Options{
		RepositoryPath: "/tmp/repo",
		Version:        "1.2.4",
		SinceReference: "v1.2.2",
	})
	require.NoError(t, err)
	require.Equal(t, "changes since v1.2.2", result.Baseline)
	require.Zero(t, history.tagQueries)
	require.Equal(t, []string{"v1.2.2"}, history.sinceRefs)
}

func TestGenerateSurfacesHistoryErrors(t *testing.T) {
	history := &stubHistory{tagFound: true, tagName: "v1.0.0", commitErr: errors.New("log unavailable")}
	generator := Generator{History: history, Clock: testClock()}

	_, err := generator.Generate(context.Background(), Options{
		RepositoryPath: "/tmp/repo",
		Version:        "1.1.0",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "log unavailable")
}

func TestGenerateValidatesInputs(t *testing.T) {
	generator := Generator{History: &stubHistory{}, Clock: testClock()}

	_, missingPathErr := generator.Generate(context.Background(), Options{Version: "1.0.0"})
	require.Error(t, missingPathErr)

	_, missingVersionErr := generator.Generate(context.Background(), Options{RepositoryPath: "/tmp/repo"})
	require.Error(t, missingVersionErr)
}

func TestLatestReturnsNewestSection(t *testing.T) {
	content := "# Changelog\n\n" +
		"## [1.3.0] - 2026-08-22\n\n### Features ✨\n\n- feat: add finish flow\n\n" +
		"## [1.2.3] - 2026-08-01\n\n### Features ✨\n\n- feat: older entry\n"
	generator := Generator{}

	withHeader, err := generator.Latest(content, true)
	require.NoError(t, err)
	require.Contains(t, withHeader, "## [1.3.0] - 2026-08-22")
	require.Contains(t, withHeader, "- feat: add finish flow")
	require.NotContains(t, withHeader, "1.2.3")

	withoutHeader, err := generator.Latest(content, false)
	require.NoError(t, err)
	require.NotContains(t, withoutHeader, "## [1.3.0]")
	require.Contains(t, withoutHeader, "- feat: add finish flow")
}

func TestLatestRequiresReleaseSection(t *testing.T) {
	generator := Generator{}

	_, err := generator.Latest("# Changelog\n\nnothing released yet\n", true)
	require.ErrorIs(t, err, ErrNoReleaseSections)
}

func TestPrependKeepsExistingContent(t *testing.T) {
	existing := "# Changelog\n\n## [1.2.3] - 2026-08-01\n\n- feat: older entry\n"
	section := "## [1.3.0] - 2026-08-22\n\n- feat: add finish flow"
	generator := Generator{}

	updated, err := generator.Prepend(existing, section)
	require.NoError(t, err)
	require.Equal(t,
		"# Changelog\n\n"+section+"\n\n## [1.2.3] - 2026-08-01\n\n- feat: older entry\n",
		updated)
}

func TestPrependWithoutTitleCreatesOne(t *testing.T) {
	generator := Generator{}

	updated, err := generator.Prepend("", "## [0.1.0] - 2026-08-22\n\n- feat: first release")
	require.NoError(t, err)
	require.Equal(t, "# Changelog\n\n## [0.1.0] - 2026-08-22\n\n- feat: first release\n", updated)
}

func TestPrependToFileCreatesAndUpdates(t *testing.T) {
	changelogPath := filepath.Join(t.TempDir(), "CHANGELOG.md")
	generator := Generator{FileSystem: shared.OSFileSystem{}}

	require.NoError(t, generator.PrependToFile(changelogPath, "## [0.1.0] - 2026-08-22\n\n- feat: first release"))

	created, readErr := os.ReadFile(changelogPath)
	require.NoError(t, readErr)
	require.Equal(t, "# Changelog\n\n## [0.1.0] - 2026-08-22\n\n- feat: first release\n", string(created))

	require.NoError(t, generator.PrependToFile(changelogPath, "## [0.2.0] - 2026-09-01\n\n- feat: second release"))

	updated, readErr := os.ReadFile(changelogPath)
	require.NoError(t, readErr)
	require.Equal(t,
		"# Changelog\n\n## [0.2.0] - 2026-09-01\n\n- feat: second release\n\n## [0.1.0] - 2026-08-22\n\n- feat: first release\n",
		string(updated))

	latest, latestErr := generator.LatestFromFile(changelogPath, true)
	require.NoError(t, latestErr)
	require.Contains(t, latest, "## [0.2.0] - 2026-09-01")
	require.NotContains(t, latest, "0.1.0")
}
