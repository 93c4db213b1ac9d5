package flags

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

const (
	toggleEnabledTypeNameConstant    = "<YES|no>"
	toggleDisabledTypeNameConstant   = "<yes|NO>"
	toggleEnabledLiteralConstant     = "yes"
	toggleDisabledLiteralConstant    = "no"
	toggleTrueLiteralConstant        = "true"
	toggleFalseLiteralConstant       = "false"
	toggleOnLiteralConstant          = "on"
	toggleOffLiteralConstant         = "off"
	toggleParseErrorTemplateConstant = "invalid toggle value %q (expected yes or no)"
	choiceUsageTemplateConstant      = "%s `<%s>`"
	choiceSeparatorConstant          = "|"
	flagPrefixConstant               = "--"
	flagAssignmentSeparatorConstant  = "="
)

var (
	registeredToggleNamesMutex sync.RWMutex
	registeredToggleNames      = map[string]struct{}{}
)

type toggleFlagValue struct {
	target         *bool
	value          bool
	defaultEnabled bool
}

func newToggleFlagValue(target *bool, defaultValue bool) *toggleFlagValue {
	toggleValue := &toggleFlagValue{target: target, value: defaultValue, defaultEnabled: defaultValue}
	if target != nil {
		*target = defaultValue
	}
	return toggleValue
}

func (toggle *toggleFlagValue) String() string {
	if toggle.value {
		return toggleEnabledLiteralConstant
	}
	return toggleDisabledLiteralConstant
}

func (toggle *toggleFlagValue) Set(rawValue string) error {
	parsedValue, parseError := parseToggleValue(rawValue)
	if parseError != nil {
		return parseError
	}
	toggle.value = parsedValue
	if toggle.target != nil {
		*toggle.target = parsedValue
	}
	return nil
}

func (toggle *toggleFlagValue) Type() string {
	if toggle.defaultEnabled {
		return toggleEnabledTypeNameConstant
	}
	return toggleDisabledTypeNameConstant
}

func parseToggleValue(rawValue string) (bool, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	switch normalizedValue {
	case toggleEnabledLiteralConstant, toggleTrueLiteralConstant, toggleOnLiteralConstant, "1":
		return true, nil
	case toggleDisabledLiteralConstant, toggleFalseLiteralConstant, toggleOffLiteralConstant, "0":
		return false, nil
	}
	return false, fmt.Errorf(toggleParseErrorTemplateConstant, rawValue)
}

// AddToggleFlag registers a yes/no flag that may be supplied with or without a value.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil {
		return
	}
	if len(name) == 0 {
		return
	}
	if flagSet.Lookup(name) != nil {
		return
	}

	toggleValue := newToggleFlagValue(target, defaultValue)
	registeredFlag := flagSet.VarPF(toggleValue, name, shorthand, usage)
	registeredFlag.NoOptDefVal = toggleEnabledLiteralConstant

	registeredToggleNamesMutex.Lock()
	registeredToggleNames[name] = struct{}{}
	registeredToggleNamesMutex.Unlock()
}

// NormalizeToggleArguments merges detached toggle values into flag assignments pflag can parse.
func NormalizeToggleArguments(arguments []string) []string {
	normalizedArguments := make([]string, 0, len(arguments))
	for argumentIndex := 0; argumentIndex < len(arguments); argumentIndex++ {
		currentArgument := arguments[argumentIndex]
		if !isRegisteredToggleFlag(currentArgument) {
			normalizedArguments = append(normalizedArguments, currentArgument)
			continue
		}

		if argumentIndex+1 < len(arguments) {
			candidateValue := arguments[argumentIndex+1]
			if _, parseError := parseToggleValue(candidateValue); parseError == nil {
				normalizedArguments = append(normalizedArguments, currentArgument+flagAssignmentSeparatorConstant+candidateValue)
				argumentIndex++
				continue
			}
		}

		normalizedArguments = append(normalizedArguments, currentArgument)
	}
	return normalizedArguments
}

func isRegisteredToggleFlag(argument string) bool {
	if !strings.HasPrefix(argument, flagPrefixConstant) {
		return false
	}
	if strings.Contains(argument, flagAssignmentSeparatorConstant) {
		return false
	}

	flagName := strings.TrimPrefix(argument, flagPrefixConstant)
	registeredToggleNamesMutex.RLock()
	defer registeredToggleNamesMutex.RUnlock()
	_, registered := registeredToggleNames[flagName]
	return registered
}

// FormatChoiceUsage appends the accepted values to the usage string, capitalizing the default choice.
func FormatChoiceUsage(defaultValue string, choices []string, usage string) string {
	decoratedChoices := make([]string, 0, len(choices))
	for _, choice := range choices {
		if strings.EqualFold(choice, defaultValue) {
			decoratedChoices = append(decoratedChoices, strings.ToUpper(choice))
			continue
		}
		decoratedChoices = append(decoratedChoices, strings.ToLower(choice))
	}
	return fmt.Sprintf(choiceUsageTemplateConstant, usage, strings.Join(decoratedChoices, choiceSeparatorConstant))
}
