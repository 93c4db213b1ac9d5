package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	notescmd "github.com/tyemirov/relix/cmd/cli/notes"
	releasecmd "github.com/tyemirov/relix/cmd/cli/release"
	"github.com/tyemirov/relix/internal/releases"
)

const (
	releaseCommandAliasConstant = "rel"
	notesCommandAliasConstant   = "n"
)

func (application *Application) registerCommands(cobraCommand *cobra.Command) {
	releaseBuilder := releasecmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider:        application.releaseCommandConfiguration,
	}
	if releaseCommand, releaseBuildError := releaseBuilder.Build(); releaseBuildError == nil {
		releaseCommand.Aliases = appendUnique(releaseCommand.Aliases, releaseCommandAliasConstant)
		cobraCommand.AddCommand(releaseCommand)
	}

	notesBuilder := notescmd.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider:        application.notesCommandConfiguration,
	}
	if notesCommand, notesBuildError := notesBuilder.Build(); notesBuildError == nil {
		notesCommand.Aliases = appendUnique(notesCommand.Aliases, notesCommandAliasConstant)
		cobraCommand.AddCommand(notesCommand)
	}
}

func (application *Application) releaseCommandConfiguration() releases.Configuration {
	configuration := releases.DefaultConfiguration()
	application.decodeOperationConfiguration(releaseOperationNameConstant, &configuration)
	return configuration
}

func (application *Application) notesCommandConfiguration() notescmd.CommandConfiguration {
	configuration := notescmd.DefaultCommandConfiguration()
	application.decodeOperationConfiguration(notesOperationNameConstant, &configuration)
	return configuration
}

func appendUnique(values []string, candidates ...string) []string {
	result := values
	for _, candidate := range candidates {
		trimmedCandidate := strings.TrimSpace(candidate)
		if len(trimmedCandidate) == 0 {
			continue
		}
		duplicate := false
		for _, existing := range result {
			if existing == trimmedCandidate {
				duplicate = true
				break
			}
		}
		if !duplicate {
			result = append(result, trimmedCandidate)
		}
	}
	return result
}
