package releases

import (
	"strings"

	"github.com/tyemirov/relix/internal/shared"
)

const (
	defaultDevelopmentBranchName = "develop"
	defaultProductionBranchName  = "main"
	defaultReleaseBranchPrefix   = "release/"
	defaultTagPrefix             = "v"
	defaultManifestFileName      = "package.json"
	defaultLockFileName          = "package-lock.json"
	defaultChangelogFileName     = "CHANGELOG.md"
	defaultCISkipPushOption      = "ci.skip"
	defaultMergeRequestLabel     = "release"
)

// GitLabConfiguration captures remote service settings for the finish flow.
type GitLabConfiguration struct {
	BaseURL          string   `mapstructure:"base_url"`
	TokenEnvironment string   `mapstructure:"token_env"`
	Project          string   `mapstructure:"project"`
	Labels           []string `mapstructure:"labels"`
}

// Configuration captures configuration values for the release flows.
type Configuration struct {
	RemoteName          string              `mapstructure:"remote"`
	DevelopmentBranch   string              `mapstructure:"development_branch"`
	ProductionBranch    string              `mapstructure:"production_branch"`
	ReleaseBranchPrefix string              `mapstructure:"branch_prefix"`
	TagPrefix           string              `mapstructure:"tag_prefix"`
	ManifestFile        string              `mapstructure:"manifest_file"`
	LockFiles           []string            `mapstructure:"lock_files"`
	ChangelogFile       string              `mapstructure:"changelog_file"`
	CISkipPushOption    string              `mapstructure:"ci_skip_push_option"`
	PrereleaseLabel     string              `mapstructure:"prerelease_label"`
	Publish             bool                `mapstructure:"publish"`
	GitLab              GitLabConfiguration `mapstructure:"gitlab"`
}

// DefaultConfiguration returns baseline configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		RemoteName:          shared.OriginRemoteNameConstant,
		DevelopmentBranch:   defaultDevelopmentBranchName,
		ProductionBranch:    defaultProductionBranchName,
		ReleaseBranchPrefix: defaultReleaseBranchPrefix,
		TagPrefix:           defaultTagPrefix,
		ManifestFile:        defaultManifestFileName,
		LockFiles:           []string{defaultLockFileName},
		ChangelogFile:       defaultChangelogFileName,
		CISkipPushOption:    defaultCISkipPushOption,
		GitLab: GitLabConfiguration{
			Labels: []string{defaultMergeRequestLabel},
		},
	}
}

// Sanitize trims textual configuration values and drops empty lock file entries.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	sanitized.DevelopmentBranch = strings.TrimSpace(configuration.DevelopmentBranch)
	sanitized.ProductionBranch = strings.TrimSpace(configuration.ProductionBranch)
	sanitized.ReleaseBranchPrefix = strings.TrimSpace(configuration.ReleaseBranchPrefix)
	sanitized.TagPrefix = strings.TrimSpace(configuration.TagPrefix)
	sanitized.ManifestFile = strings.TrimSpace(configuration.ManifestFile)
	sanitized.ChangelogFile = strings.TrimSpace(configuration.ChangelogFile)
	sanitized.CISkipPushOption = strings.TrimSpace(configuration.CISkipPushOption)
	sanitized.PrereleaseLabel = strings.TrimSpace(configuration.PrereleaseLabel)
	sanitized.GitLab.BaseURL = strings.TrimSpace(configuration.GitLab.BaseURL)
	sanitized.GitLab.TokenEnvironment = strings.TrimSpace(configuration.GitLab.TokenEnvironment)
	sanitized.GitLab.Project = strings.TrimSpace(configuration.GitLab.Project)

	sanitized.LockFiles = nil
	for _, lockFile := range configuration.LockFiles {
		trimmedLockFile := strings.TrimSpace(lockFile)
		if len(trimmedLockFile) > 0 {
			sanitized.LockFiles = append(sanitized.LockFiles, trimmedLockFile)
		}
	}

	sanitized.GitLab.Labels = nil
	for _, label := range configuration.GitLab.Labels {
		trimmedLabel := strings.TrimSpace(label)
		if len(trimmedLabel) > 0 {
			sanitized.GitLab.Labels = append(sanitized.GitLab.Labels, trimmedLabel)
		}
	}

	return sanitized
}

// MergeDefaults fills unset values from the baseline configuration.
func (configuration Configuration) MergeDefaults() Configuration {
	merged := configuration.Sanitize()
	defaults := DefaultConfiguration()

	if len(merged.RemoteName) == 0 {
		merged.RemoteName = defaults.RemoteName
	}
	if len(merged.DevelopmentBranch) == 0 {
		merged.DevelopmentBranch = defaults.DevelopmentBranch
	}
	if len(merged.ProductionBranch) == 0 {
		merged.ProductionBranch = defaults.ProductionBranch
	}
	if len(merged.ReleaseBranchPrefix) == 0 {
		merged.ReleaseBranchPrefix = defaults.ReleaseBranchPrefix
	}
	if len(merged.TagPrefix) == 0 {
		merged.TagPrefix = defaults.TagPrefix
	}
	if len(merged.ManifestFile) == 0 {
		merged.ManifestFile = defaults.ManifestFile
	}
	if len(merged.ChangelogFile) == 0 {
		merged.ChangelogFile = defaults.ChangelogFile
	}

	return merged
}
