package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tyemirov/relix/internal/workflow"
)

const (
	affirmativeShortResponseConstant = "y"
	affirmativeLongResponseConstant  = "yes"
	negativeShortResponseConstant    = "n"
	negativeLongResponseConstant     = "no"
	confirmDefaultYesSuffixConstant  = " [Y/n]: "
	confirmDefaultNoSuffixConstant   = " [y/N]: "
	inputSuffixConstant              = ": "
	questionLineSuffixConstant       = "\n"
	selectOptionTemplateConstant     = "  %d) %s\n"
	selectPromptTemplateConstant     = "Select an option [1-%d] (default %d): "
	invalidSelectionTemplateConstant = "selection %q is not a number between 1 and %d"
)

// ErrNoSelectionOptions reports a selection prompt without any options.
var ErrNoSelectionOptions = errors.New("no selection options provided")

// InvalidSelectionError reports a selection answer outside the offered range.
type InvalidSelectionError struct {
	Response    string
	OptionCount int
}

// Error describes the rejected selection answer.
func (selectionError InvalidSelectionError) Error() string {
	return fmt.Sprintf(invalidSelectionTemplateConstant, selectionError.Response, selectionError.OptionCount)
}

// IOPrompter collects interactive answers from an io.Reader, echoing questions
// to an io.Writer. A closed input stream surfaces workflow.ErrPromptAborted.
type IOPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOPrompter constructs a prompter from the provided reader and writer.
func NewIOPrompter(input io.Reader, output io.Writer) *IOPrompter {
	return &IOPrompter{reader: bufio.NewReader(input), writer: output}
}

// Confirm writes the question and interprets yes/no answers, falling back to
// the default answer on an empty or unrecognized response.
func (prompter *IOPrompter) Confirm(executionContext context.Context, question string, defaultAnswer bool) (bool, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return false, contextError
	}

	suffix := confirmDefaultNoSuffixConstant
	if defaultAnswer {
		suffix = confirmDefaultYesSuffixConstant
	}
	if writeError := prompter.writeText(question + suffix); writeError != nil {
		return false, writeError
	}

	response, readError := prompter.readLine()
	if readError != nil {
		return false, readError
	}

	switch strings.ToLower(response) {
	case affirmativeShortResponseConstant, affirmativeLongResponseConstant:
		return true, nil
	case negativeShortResponseConstant, negativeLongResponseConstant:
		return false, nil
	default:
		return defaultAnswer, nil
	}
}

// Select writes the question with a numbered option list and returns the
// chosen index. An empty response selects the default option.
func (prompter *IOPrompter) Select(executionContext context.Context, question string, options []string, defaultIndex int) (int, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return 0, contextError
	}
	if len(options) == 0 {
		return 0, ErrNoSelectionOptions
	}

	resolvedDefaultIndex := defaultIndex
	if resolvedDefaultIndex < 0 || resolvedDefaultIndex >= len(options) {
		resolvedDefaultIndex = 0
	}

	var questionBuilder strings.Builder
	questionBuilder.WriteString(question + questionLineSuffixConstant)
	for optionIndex, optionLabel := range options {
		fmt.Fprintf(&questionBuilder, selectOptionTemplateConstant, optionIndex+1, optionLabel)
	}
	fmt.Fprintf(&questionBuilder, selectPromptTemplateConstant, len(options), resolvedDefaultIndex+1)

	if writeError := prompter.writeText(questionBuilder.String()); writeError != nil {
		return 0, writeError
	}

	response, readError := prompter.readLine()
	if readError != nil {
		return 0, readError
	}
	if len(response) == 0 {
		return resolvedDefaultIndex, nil
	}

	selectedNumber, parseError := strconv.Atoi(response)
	if parseError != nil || selectedNumber < 1 || selectedNumber > len(options) {
		return 0, InvalidSelectionError{Response: response, OptionCount: len(options)}
	}

	return selectedNumber - 1, nil
}

// Input writes the question and returns the trimmed free-form answer.
func (prompter *IOPrompter) Input(executionContext context.Context, question string) (string, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return "", contextError
	}

	if writeError := prompter.writeText(question + inputSuffixConstant); writeError != nil {
		return "", writeError
	}

	return prompter.readLine()
}

func (prompter *IOPrompter) writeText(text string) error {
	if prompter.writer == nil {
		return nil
	}

	_, writeError := io.WriteString(prompter.writer, text)
	return writeError
}

func (prompter *IOPrompter) readLine() (string, error) {
	response, readError := prompter.reader.ReadString('\n')
	trimmedResponse := strings.TrimSpace(response)

	if readError != nil && readError != io.EOF {
		return "", readError
	}
	if readError == io.EOF && len(trimmedResponse) == 0 {
		return "", workflow.ErrPromptAborted
	}

	return trimmedResponse, nil
}
