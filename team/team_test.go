package team_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loomwork/loom/agent"
	"github.com/loomwork/loom/llm"
	"github.com/loomwork/loom/logstream"
	"github.com/loomwork/loom/reasoning"
	"github.com/loomwork/loom/statestore"
	"github.com/loomwork/loom/task"
	"github.com/loomwork/loom/team"
	"github.com/loomwork/loom/tool"
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
	t.Fatal("condition not met in time")
}

// TestTeamEndToEndSequentialRun drives a two-task sequential workflow
// entirely through the Public Surface, mirroring spec scenario S1.
func TestTeamEndToEndSequentialRun(t *testing.T) {
	log := logstream.New(nil)
	store := statestore.New(log)

	ag1 := agent.New(agent.Config{Name: "first", Kind: agent.KindReAct, MaxIterations: 5})
	ag2 := agent.New(agent.Config{Name: "second", Kind: agent.KindReAct, MaxIterations: 5})
	p1 := llm.NewFakeProvider()
	p2 := llm.NewFakeProvider()
	p1.ScriptResponse(`{"final_answer":"{x} plus one"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	p2.ScriptResponse(`{"final_answer":"done"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})

	store.AddAgent(ag1)
	store.AddAgent(ag2)
	t1 := task.New(task.Config{Description: "compute {x}", AgentID: ag1.ID()})
	t2 := task.New(task.Config{Description: "finalize", AgentID: ag2.ID(), Dependencies: []string{t1.ID()}})
	store.AddTask(t1)
	store.AddTask(t2)

	runners := map[string]workflow.Runner{
		ag1.ID(): workflow.NewReActRunner(reasoning.New(p1, tool.NewRegistry(), store)),
		ag2.ID(): workflow.NewReActRunner(reasoning.New(p2, tool.NewRegistry(), store)),
	}
	tm := team.New(store, log, runners)
	defer tm.Close()

	var sawRunning bool
	unsub := tm.Subscribe(
		func(entries []logstream.Entry) any {
			for _, e := range entries {
				if e.Type == logstream.TypeWorkflowStatusUpdate && e.WorkflowStatus == logstream.WorkflowRunning {
					sawRunning = true
				}
			}
			return sawRunning
		},
		func(value any) {},
	)
	defer unsub()

	require.NoError(t, tm.Start(map[string]string{"x": "one"}))
	waitFor(t, func() bool { return tm.GetCleanedState().TeamStatus == logstream.WorkflowFinished })

	state := tm.GetCleanedState()
	require.Len(t, state.Tasks, 2)
	require.Equal(t, task.StatusDone, state.Tasks[0].Status)
	require.Equal(t, task.StatusDone, state.Tasks[1].Status)
	require.Equal(t, "{x} plus one", state.Tasks[0].Result)
	require.True(t, sawRunning)
}

// TestTeamSetEnvPropagates exercises SetEnv through the public surface.
func TestTeamSetEnvPropagates(t *testing.T) {
	log := logstream.New(nil)
	store := statestore.New(log)
	ag := agent.New(agent.Config{Name: "solo", Kind: agent.KindReAct, MaxIterations: 5})
	store.AddAgent(ag)

	tm := team.New(store, log, map[string]workflow.Runner{})
	defer tm.Close()

	require.NoError(t, tm.SetEnv(map[string]string{"API_KEY": "patched"}))
	require.Equal(t, "patched", ag.Env()["API_KEY"])
}
