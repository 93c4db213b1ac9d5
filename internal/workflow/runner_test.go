package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/relix/internal/workflow"
)

const (
	testFlowNameConstant       = "release start"
	testFirstTaskNameConstant  = "check working tree"
	testSecondTaskNameConstant = "resolve release version"
	testThirdTaskNameConstant  = "create release branch"
)

type scriptedPrompter struct {
	confirmAnswers    []bool
	selectAnswers     []int
	inputAnswers      []string
	recordedQuestions []string
	promptError       error
}

func (prompter *scriptedPrompter) Confirm(_ context.Context, question string, defaultAnswer bool) (bool, error) {
	prompter.recordedQuestions = append(prompter.recordedQuestions, question)
	if prompter.promptError != nil {
		return false, prompter.promptError
	}
	if len(prompter.confirmAnswers) == 0 {
		return defaultAnswer, nil
	}

	answer := prompter.confirmAnswers[0]
	prompter.confirmAnswers = prompter.confirmAnswers[1:]
	return answer, nil
}

func (prompter *scriptedPrompter) Select(_ context.Context, question string, _ []string, defaultIndex int) (int, error) {
	prompter.recordedQuestions = append(prompter.recordedQuestions, question)
	if prompter.promptError != nil {
		return 0, prompter.promptError
	}
	if len(prompter.selectAnswers) == 0 {
		return defaultIndex, nil
	}

	answer := prompter.selectAnswers[0]
	prompter.selectAnswers = prompter.selectAnswers[1:]
	return answer, nil
}

func (prompter *scriptedPrompter) Input(_ context.Context, question string) (string, error) {
	prompter.recordedQuestions = append(prompter.recordedQuestions, question)
	if prompter.promptError != nil {
		return "", prompter.promptError
	}
	if len(prompter.inputAnswers) == 0 {
		return "", nil
	}

	answer := prompter.inputAnswers[0]
	prompter.inputAnswers = prompter.inputAnswers[1:]
	return answer, nil
}

func recordingTask(taskName string, executionOrder *[]string) workflow.Task {
	return workflow.Task{
		Name: taskName,
		Action: func(context.Context, *workflow.Context) error {
			*executionOrder = append(*executionOrder, taskName)
			return nil
		},
	}
}

func taskStatuses(outcome workflow.FlowOutcome) []workflow.TaskStatus {
	statuses := make([]workflow.TaskStatus, 0, len(outcome.TaskOutcomes))
	for _, taskOutcome := range outcome.TaskOutcomes {
		statuses = append(statuses, taskOutcome.Status)
	}
	return statuses
}

func TestRunnerExecutesTasksInDeclaredOrder(testingInstance *testing.T) {
	testingInstance.Parallel()

	executionOrder := []string{}
	flow := workflow.Flow{
		Name: testFlowNameConstant,
		Tasks: []workflow.Task{
			recordingTask(testFirstTaskNameConstant, &executionOrder),
			recordingTask(testSecondTaskNameConstant, &executionOrder),
			recordingTask(testThirdTaskNameConstant, &executionOrder),
		},
	}

	runner := workflow.NewRunner(nil, nil)
	outcome, executionError := runner.Execute(context.Background(), flow, workflow.NewContext(workflow.ContextOptions{}))

	require.NoError(testingInstance, executionError)
	require.Equal(testingInstance, testFlowNameConstant, outcome.FlowName)
	require.Equal(testingInstance,
		[]string{testFirstTaskNameConstant, testSecondTaskNameConstant, testThirdTaskNameConstant},
		executionOrder,
	)
	require.Equal(testingInstance,
		[]workflow.TaskStatus{workflow.TaskStatusCompleted, workflow.TaskStatusCompleted, workflow.TaskStatusCompleted},
		taskStatuses(outcome),
	)
	require.False(testingInstance, outcome.EndTime.Before(outcome.StartTime))
}

func TestRunnerSkipsTasksWithoutRunningPhases(testingInstance *testing.T) {
	testingInstance.Parallel()

	executionOrder := []string{}
	flow := workflow.Flow{
		Name: testFlowNameConstant,
		Tasks: []workflow.Task{
			{
				Name: testFirstTaskNameConstant,
				Skip: func(state *workflow.Context) bool { return state.AllowsDirtyWorktree() },
				Prompt: func(context.Context, workflow.Prompter, *workflow.Context) error {
					executionOrder = append(executionOrder, "prompt")
					return nil
				},
				Action: func(_ context.Context, state *workflow.Context) error {
					executionOrder = append(executionOrder, "action")
					return state.RecordReleaseVersion(testRecordedVersionConstant)
				},
			},
			recordingTask(testSecondTaskNameConstant, &executionOrder),
		},
	}

	runner := workflow.NewRunner(nil, &scriptedPrompter{})
	state := workflow.NewContext(workflow.ContextOptions{AllowDirty: true})
	outcome, executionError := runner.Execute(context.Background(), flow, state)

	require.NoError(testingInstance, executionError)
	require.Equal(testingInstance, []string{testSecondTaskNameConstant}, executionOrder)
	require.Equal(testingInstance,
		[]workflow.TaskStatus{workflow.TaskStatusSkipped, workflow.TaskStatusCompleted},
		taskStatuses(outcome),
	)

	_, versionRecorded := state.ReleaseVersion()
	require.False(testingInstance, versionRecorded)
}

func TestRunnerAbortsOnFirstFailure(testingInstance *testing.T) {
	testingInstance.Parallel()

	executionOrder := []string{}
	actionFailure := errors.New("worktree contains uncommitted changes")
	flow := workflow.Flow{
		Name: testFlowNameConstant,
		Tasks: []workflow.Task{
			recordingTask(testFirstTaskNameConstant, &executionOrder),
			{
				Name: testSecondTaskNameConstant,
				Action: func(context.Context, *workflow.Context) error {
					return actionFailure
				},
			},
			recordingTask(testThirdTaskNameConstant, &executionOrder),
		},
	}

	runner := workflow.NewRunner(nil, nil)
	outcome, executionError := runner.Execute(context.Background(), flow, workflow.NewContext(workflow.ContextOptions{}))

	require.Error(testingInstance, executionError)
	require.ErrorIs(testingInstance, executionError, actionFailure)

	var failure workflow.TaskFailureError
	require.ErrorAs(testingInstance, executionError, &failure)
	require.Equal(testingInstance, testFlowNameConstant, failure.FlowName)
	require.Equal(testingInstance, testSecondTaskNameConstant, failure.TaskName)
	require.Contains(testingInstance, executionError.Error(), testSecondTaskNameConstant)

	require.Equal(testingInstance, []string{testFirstTaskNameConstant}, executionOrder)
	require.Equal(testingInstance,
		[]workflow.TaskStatus{workflow.TaskStatusCompleted, workflow.TaskStatusFailed},
		taskStatuses(outcome),
	)
}

func TestRunnerRunsPromptBeforeAction(testingInstance *testing.T) {
	testingInstance.Parallel()

	executionOrder := []string{}
	flow := workflow.Flow{
		Name: testFlowNameConstant,
		Tasks: []workflow.Task{
			{
				Name: testSecondTaskNameConstant,
				Prompt: func(executionContext context.Context, prompter workflow.Prompter, state *workflow.Context) error {
					executionOrder = append(executionOrder, "prompt")
					confirmed, promptError := prompter.Confirm(executionContext, "Reassign existing tag?", false)
					if promptError != nil {
						return promptError
					}
					if confirmed {
						state.RecordForceTagDecision(workflow.ForceTagApproved)
					} else {
						state.RecordForceTagDecision(workflow.ForceTagDeclined)
					}
					return nil
				},
				Action: func(_ context.Context, state *workflow.Context) error {
					executionOrder = append(executionOrder, "action")
					require.Equal(testingInstance, workflow.ForceTagApproved, state.ForceTagDecision())
					return nil
				},
			},
		},
	}

	prompter := &scriptedPrompter{confirmAnswers: []bool{true}}
	runner := workflow.NewRunner(nil, prompter)
	state := workflow.NewContext(workflow.ContextOptions{})
	_, executionError := runner.Execute(context.Background(), flow, state)

	require.NoError(testingInstance, executionError)
	require.Equal(testingInstance, []string{"prompt", "action"}, executionOrder)
	require.Equal(testingInstance, []string{"Reassign existing tag?"}, prompter.recordedQuestions)
	require.Equal(testingInstance, workflow.ForceTagApproved, state.ForceTagDecision())
}

func TestRunnerSurfacesPromptAbort(testingInstance *testing.T) {
	testingInstance.Parallel()

	actionExecuted := false
	flow := workflow.Flow{
		Name: testFlowNameConstant,
		Tasks: []workflow.Task{
			{
				Name: testSecondTaskNameConstant,
				Prompt: func(executionContext context.Context, prompter workflow.Prompter, _ *workflow.Context) error {
					_, promptError := prompter.Input(executionContext, "Enter version")
					return promptError
				},
				Action: func(context.Context, *workflow.Context) error {
					actionExecuted = true
					return nil
				},
			},
		},
	}

	prompter := &scriptedPrompter{promptError: workflow.ErrPromptAborted}
	runner := workflow.NewRunner(nil, prompter)
	_, executionError := runner.Execute(context.Background(), flow, workflow.NewContext(workflow.ContextOptions{}))

	require.Error(testingInstance, executionError)
	require.ErrorIs(testingInstance, executionError, workflow.ErrPromptAborted)

	var failure workflow.TaskFailureError
	require.ErrorAs(testingInstance, executionError, &failure)
	require.Equal(testingInstance, testSecondTaskNameConstant, failure.TaskName)
	require.False(testingInstance, actionExecuted)
}

func TestRunnerValidation(testingInstance *testing.T) {
	testingInstance.Parallel()

	testCases := []struct {
		name          string
		flow          workflow.Flow
		state         *workflow.Context
		prompter      workflow.Prompter
		expectedError error
	}{
		{
			name:          "missing_context",
			flow:          workflow.Flow{Name: testFlowNameConstant},
			state:         nil,
			expectedError: workflow.ErrFlowContextNotConfigured,
		},
		{
			name: "missing_action",
			flow: workflow.Flow{
				Name:  testFlowNameConstant,
				Tasks: []workflow.Task{{Name: testFirstTaskNameConstant}},
			},
			state:         workflow.NewContext(workflow.ContextOptions{}),
			expectedError: workflow.ErrTaskActionNotConfigured,
		},
		{
			name: "missing_prompter",
			flow: workflow.Flow{
				Name: testFlowNameConstant,
				Tasks: []workflow.Task{
					{
						Name: testFirstTaskNameConstant,
						Prompt: func(context.Context, workflow.Prompter, *workflow.Context) error {
							return nil
						},
						Action: func(context.Context, *workflow.Context) error { return nil },
					},
				},
			},
			state:         workflow.NewContext(workflow.ContextOptions{}),
			expectedError: workflow.ErrPrompterNotConfigured,
		},
	}

	for index := range testCases {
		testCase := testCases[index]

		testingInstance.Run(testCase.name, func(testingSubInstance *testing.T) {
			testingSubInstance.Parallel()

			runner := workflow.NewRunner(nil, testCase.prompter)
			_, executionError := runner.Execute(context.Background(), testCase.flow, testCase.state)
			require.Error(testingSubInstance, executionError)
			require.ErrorIs(testingSubInstance, executionError, testCase.expectedError)
		})
	}
}

func TestRunnerEmptyFlowSucceeds(testingInstance *testing.T) {
	testingInstance.Parallel()

	runner := workflow.NewRunner(nil, nil)
	outcome, executionError := runner.Execute(context.Background(), workflow.Flow{Name: testFlowNameConstant}, workflow.NewContext(workflow.ContextOptions{}))

	require.NoError(testingInstance, executionError)
	require.Empty(testingInstance, outcome.TaskOutcomes)
}
