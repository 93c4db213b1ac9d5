// Package notes assembles the CLI command drafting release announcements.
package notes

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/relix/internal/changelog"
	"github.com/tyemirov/relix/internal/manifest"
	releasenotes "github.com/tyemirov/relix/internal/notes"
	"github.com/tyemirov/relix/internal/shared"
	"github.com/tyemirov/utils/llm"
)

const (
	commandUseName          = "notes"
	commandShortDescription = "Draft release notes from the newest changelog section"
	commandLongDescription  = "notes reads the most recent changelog section and asks the configured language model to draft a release announcement. The repository is never modified."

	modelFlagName        = "model"
	modelFlagUsage       = "Override the model identifier"
	maxTokensFlagName    = "max-tokens"
	maxTokensFlagUsage   = "Override the maximum completion tokens"
	temperatureFlagName  = "temperature"
	temperatureFlagUsage = "Override the sampling temperature (0-2)"
	baseURLFlagName      = "base-url"
	baseURLFlagUsage     = "Override the LLM base URL"
	apiKeyEnvFlagName    = "api-key-env"
	apiKeyEnvFlagUsage   = "Environment variable providing the LLM API key"
	timeoutFlagName      = "timeout-seconds"
	timeoutFlagUsage     = "Override the LLM request timeout in seconds"

	missingModelErrorMessage     = "model identifier must be provided via configuration or --model"
	missingAPIKeyTemplate        = "environment variable %s must be set with an API key"
	negativeMaxTokensErrorText   = "max-tokens must be zero or positive"
	negativeTemperatureErrorText = "temperature cannot be negative"
	nonPositiveTimeoutErrorText  = "timeout-seconds must be positive"
	manifestVersionWarnMessage   = "manifest version unavailable for release notes"
	manifestLogFieldName         = "manifest_file"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ClientFactory builds chat clients from configuration.
type ClientFactory func(config llm.Config) (llm.ChatClient, error)

// CommandBuilder assembles the notes command.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	ClientFactory                ClientFactory
}

// Build constructs the notes command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(modelFlagName, "", modelFlagUsage)
	command.Flags().Int(maxTokensFlagName, 0, maxTokensFlagUsage)
	command.Flags().Float64(temperatureFlagName, 0, temperatureFlagUsage)
	command.Flags().String(baseURLFlagName, "", baseURLFlagUsage)
	command.Flags().String(apiKeyEnvFlagName, "", apiKeyEnvFlagUsage)
	command.Flags().Int(timeoutFlagName, 0, timeoutFlagUsage)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()

	modelIdentifier := configuration.Model
	if command != nil {
		if flagValue, flagError := command.Flags().GetString(modelFlagName); flagError == nil && command.Flags().Changed(modelFlagName) {
			modelIdentifier = strings.TrimSpace(flagValue)
		}
	}
	if modelIdentifier == "" {
		return errors.New(missingModelErrorMessage)
	}

	baseURL := configuration.BaseURL
	if command != nil {
		if flagValue, flagError := command.Flags().GetString(baseURLFlagName); flagError == nil && command.Flags().Changed(baseURLFlagName) {
			baseURL = strings.TrimSpace(flagValue)
		}
	}

	apiKeyEnv := configuration.APIKeyEnv
	if command != nil {
		if flagValue, flagError := command.Flags().GetString(apiKeyEnvFlagName); flagError == nil && command.Flags().Changed(apiKeyEnvFlagName) {
			apiKeyEnv = strings.TrimSpace(flagValue)
		}
	}
	if apiKeyEnv == "" {
		apiKeyEnv = defaultAPIKeyEnvironment
	}
	apiKey, apiKeyPresent := lookupEnvironmentValue(apiKeyEnv)
	if !apiKeyPresent || apiKey == "" {
		return fmt.Errorf(missingAPIKeyTemplate, apiKeyEnv)
	}

	maxTokens, maxTokensError := resolveMaxTokens(command, configuration)
	if maxTokensError != nil {
		return maxTokensError
	}

	temperaturePointer, temperatureError := resolveTemperature(command, configuration)
	if temperatureError != nil {
		return temperatureError
	}

	timeout := time.Duration(configuration.TimeoutSeconds) * time.Second
	if command != nil {
		if flagValue, flagError := command.Flags().GetInt(timeoutFlagName); flagError == nil && command.Flags().Changed(timeoutFlagName) {
			if flagValue <= 0 {
				return errors.New(nonPositiveTimeoutErrorText)
			}
			timeout = time.Duration(flagValue) * time.Second
		}
	}

	logger := builder.resolveLogger()

	clientFactory := builder.ClientFactory
	if clientFactory == nil {
		clientFactory = func(config llm.Config) (llm.ChatClient, error) {
			return llm.NewFactory(config)
		}
	}

	client, clientError := clientFactory(llm.Config{
		BaseURL:             baseURL,
		APIKey:              apiKey,
		Model:               modelIdentifier,
		MaxCompletionTokens: configuration.MaxTokens,
		Temperature:         configuration.Temperature,
		RequestTimeout:      timeout,
	})
	if clientError != nil {
		return clientError
	}

	drafter := releasenotes.Drafter{
		Changelog: &changelog.Generator{FileSystem: shared.OSFileSystem{}},
		Client:    client,
		Logger:    logger,
	}

	result, draftError := drafter.Draft(command.Context(), releasenotes.Options{
		ChangelogPath: configuration.ChangelogFile,
		Version:       builder.readManifestVersion(logger, configuration),
		ProjectName:   configuration.ProjectName,
		MaxTokens:     maxTokens,
		Temperature:   temperaturePointer,
	})
	if draftError != nil {
		return draftError
	}

	fmt.Fprintln(command.OutOrStdout(), result.Notes)
	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// readManifestVersion surfaces the manifest version for the prompt when one is
// readable and otherwise leaves the drafter to its fallback wording.
func (builder *CommandBuilder) readManifestVersion(logger *zap.Logger, configuration CommandConfiguration) string {
	if len(configuration.ManifestFile) == 0 {
		return ""
	}

	manifestUpdater, updaterError := manifest.NewUpdater(shared.OSFileSystem{})
	if updaterError != nil {
		return ""
	}

	manifestVersion, readError := manifestUpdater.ReadVersion(configuration.ManifestFile)
	if readError != nil {
		logger.Warn(
			manifestVersionWarnMessage,
			zap.String(manifestLogFieldName, configuration.ManifestFile),
			zap.Error(readError),
		)
		return ""
	}
	return manifestVersion
}

func resolveMaxTokens(command *cobra.Command, configuration CommandConfiguration) (int, error) {
	maxTokens := configuration.MaxTokens
	if command != nil {
		if flagValue, flagError := command.Flags().GetInt(maxTokensFlagName); flagError == nil && command.Flags().Changed(maxTokensFlagName) {
			if flagValue < 0 {
				return 0, errors.New(negativeMaxTokensErrorText)
			}
			maxTokens = flagValue
		}
	}
	return maxTokens, nil
}

func resolveTemperature(command *cobra.Command, configuration CommandConfiguration) (*float64, error) {
	if command != nil {
		if flagValue, flagError := command.Flags().GetFloat64(temperatureFlagName); flagError == nil && command.Flags().Changed(temperatureFlagName) {
			if flagValue < 0 {
				return nil, errors.New(negativeTemperatureErrorText)
			}
			return &flagValue, nil
		}
	}
	if configuration.Temperature != 0 {
		value := configuration.Temperature
		if value < 0 {
			return nil, errors.New(negativeTemperatureErrorText)
		}
		return &value, nil
	}
	return nil, nil
}

func lookupEnvironmentValue(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	return strings.TrimSpace(value), ok
}
