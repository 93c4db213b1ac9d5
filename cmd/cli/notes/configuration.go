package notes

import "strings"

const (
	defaultAPIKeyEnvironment   = "OPENAI_API_KEY"
	defaultModel               = "gpt-4.1-mini"
	defaultChangelogFileName   = "CHANGELOG.md"
	defaultManifestFileName    = "package.json"
	defaultTimeoutSecondsValue = 60
)

// CommandConfiguration captures configuration values for release notes drafting.
type CommandConfiguration struct {
	ChangelogFile  string  `mapstructure:"changelog_file"`
	ManifestFile   string  `mapstructure:"manifest_file"`
	ProjectName    string  `mapstructure:"project_name"`
	APIKeyEnv      string  `mapstructure:"api_key_env"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	MaxTokens      int     `mapstructure:"max_completion_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// DefaultCommandConfiguration provides baseline configuration.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		ChangelogFile:  defaultChangelogFileName,
		ManifestFile:   defaultManifestFileName,
		APIKeyEnv:      defaultAPIKeyEnvironment,
		Model:          defaultModel,
		TimeoutSeconds: defaultTimeoutSecondsValue,
	}
}

// Sanitize normalizes configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration

	changelogFile := strings.TrimSpace(configuration.ChangelogFile)
	if changelogFile == "" {
		changelogFile = defaultChangelogFileName
	}
	sanitized.ChangelogFile = changelogFile

	sanitized.ManifestFile = strings.TrimSpace(configuration.ManifestFile)
	sanitized.ProjectName = strings.TrimSpace(configuration.ProjectName)

	apiKeyEnv := strings.TrimSpace(configuration.APIKeyEnv)
	if apiKeyEnv == "" {
		apiKeyEnv = defaultAPIKeyEnvironment
	}
	sanitized.APIKeyEnv = apiKeyEnv

	sanitized.BaseURL = strings.TrimSpace(configuration.BaseURL)

	model := strings.TrimSpace(configuration.Model)
	if model == "" {
		model = defaultModel
	}
	sanitized.Model = model

	if configuration.MaxTokens < 0 {
		sanitized.MaxTokens = 0
	}

	if configuration.TimeoutSeconds <= 0 {
		sanitized.TimeoutSeconds = defaultTimeoutSecondsValue
	}

	return sanitized
}
