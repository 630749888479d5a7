package component_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loomwork/loom/component"
	"github.com/loomwork/loom/config"
	"github.com/loomwork/loom/llm"
	"github.com/loomwork/loom/subworkflow"
	"github.com/loomwork/loom/task"
	"github.com/loomwork/loom/workflow"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

const reactYAML = `
name: sum-team
agents:
  adder:
    kind: react
    llm:
      provider: fake
tasks:
  - id: t1
    agent: adder
    description: "add"
`

func TestBuildTeamReActOnly(t *testing.T) {
	cfg, err := config.LoadConfigFromString(reactYAML)
	require.NoError(t, err)

	provider := llm.NewFakeProvider()
	provider.ScriptResponse(`{"final_answer":"3"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})

	mgr := component.NewManager(map[string]llm.Provider{"fake": provider}, nil, nil)
	tm, _, tasksByRef, err := mgr.BuildTeam(cfg)
	require.NoError(t, err)
	defer tm.Close()

	require.NoError(t, tm.Start(nil))
	waitFor(t, func() bool { return tasksByRef["t1"].Result() == "3" })
}

func TestBuildTeamMissingProviderErrors(t *testing.T) {
	cfg, err := config.LoadConfigFromString(reactYAML)
	require.NoError(t, err)

	mgr := component.NewManager(nil, nil, nil)
	_, _, _, err = mgr.BuildTeam(cfg)
	require.Error(t, err)
}

const workflowDrivenYAML = `
name: wf-team
agents:
  driver:
    kind: workflow_driven
tasks:
  - id: t1
    agent: driver
    description: "drive"
`

func TestBuildTeamMissingWorkflowFactoryErrors(t *testing.T) {
	cfg, err := config.LoadConfigFromString(workflowDrivenYAML)
	require.NoError(t, err)

	mgr := component.NewManager(nil, nil, nil)
	_, _, _, err = mgr.BuildTeam(cfg)
	require.Error(t, err)
}

func TestBuildTeamWorkflowDrivenRuns(t *testing.T) {
	cfg, err := config.LoadConfigFromString(workflowDrivenYAML)
	require.NoError(t, err)

	graph := subworkflow.NewStepGraph(subworkflow.Step{
		ID: "only", Fn: func(_ context.Context, data any) (any, error) { return "finished", nil },
	})

	mgr := component.NewManager(nil, nil, map[string]workflow.WorkflowFactory{
		"driver": component.StubWorkflowFactory(graph),
	})
	tm, _, tasksByRef, err := mgr.BuildTeam(cfg)
	require.NoError(t, err)
	defer tm.Close()

	require.NoError(t, tm.Start(nil))
	waitFor(t, func() bool { return tasksByRef["t1"].Status() == task.StatusDone })
}
