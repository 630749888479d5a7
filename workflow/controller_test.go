package workflow_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loomwork/loom/agent"
	"github.com/loomwork/loom/agent/workflowagent"
	"github.com/loomwork/loom/llm"
	"github.com/loomwork/loom/logstream"
	"github.com/loomwork/loom/queue"
	"github.com/loomwork/loom/reasoning"
	"github.com/loomwork/loom/statestore"
	"github.com/loomwork/loom/subworkflow"
	"github.com/loomwork/loom/task"
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

// reactAgent builds a fresh ReAct agent, its FakeProvider, and the
// Runner that drives it, all wired to the same store.
func reactAgent(store *statestore.Store, name string, maxIter int) (*agent.Agent, *llm.FakeProvider, workflow.Runner) {
	ag := agent.New(agent.Config{Name: name, Kind: agent.KindReAct, MaxIterations: maxIter})
	provider := llm.NewFakeProvider()
	rt := reasoning.New(provider, tool.NewRegistry(tool.Calculator{}), store)
	return ag, provider, workflow.NewReActRunner(rt)
}

// S1 — sequential sum: T2 depends on T1; only one task DOING at a time.
func TestControllerSequentialSum(t *testing.T) {
	log := logstream.New(nil)
	store := statestore.New(log)

	ag1, p1, runner1 := reactAgent(store, "first", 5)
	ag2, p2, runner2 := reactAgent(store, "second", 5)
	p1.ScriptResponse(`{"final_answer":"one"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	p2.ScriptResponse(`{"final_answer":"two"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})

	store.AddAgent(ag1)
	store.AddAgent(ag2)
	t1 := task.New(task.Config{Description: "first", AgentID: ag1.ID()})
	t2 := task.New(task.Config{Description: "second", AgentID: ag2.ID(), Dependencies: []string{t1.ID()}})
	store.AddTask(t1)
	store.AddTask(t2)

	q := queue.New(store)
	runners := map[string]workflow.Runner{ag1.ID(): runner1, ag2.ID(): runner2}
	c := workflow.New(store, q, runners, nil)
	defer c.Close()

	require.NoError(t, c.Start(nil))
	waitFor(t, func() bool { return store.TeamStatus() == logstream.WorkflowFinished })

	require.Equal(t, task.StatusDone, t1.Status())
	require.Equal(t, task.StatusDone, t2.Status())
	require.Equal(t, "one", t1.Result())
	require.Equal(t, "two", t2.Result())
	require.Equal(t, "two", store.WorkflowResult())
}

// S2 — parallel branches: B and C both depend on A and allow parallel
// execution; both should run concurrently once A finishes.
func TestControllerParallelBranches(t *testing.T) {
	store := statestore.New(logstream.New(nil))

	agA, pA, runnerA := reactAgent(store, "a", 5)
	agB, pB, runnerB := reactAgent(store, "b", 5)
	agC, pC, runnerC := reactAgent(store, "c", 5)
	pA.ScriptResponse(`{"final_answer":"seeded"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	pB.ScriptResponse(`{"final_answer":"b-done"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	pC.ScriptResponse(`{"final_answer":"c-done"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})

	store.AddAgent(agA)
	store.AddAgent(agB)
	store.AddAgent(agC)
	a := task.New(task.Config{Description: "seed", AgentID: agA.ID()})
	b := task.New(task.Config{Description: "b", AgentID: agB.ID(), Dependencies: []string{a.ID()}, AllowParallelExecution: true})
	c2 := task.New(task.Config{Description: "c", AgentID: agC.ID(), Dependencies: []string{a.ID()}, AllowParallelExecution: true})
	store.AddTask(a)
	store.AddTask(b)
	store.AddTask(c2)

	q := queue.New(store)
	runners := map[string]workflow.Runner{agA.ID(): runnerA, agB.ID(): runnerB, agC.ID(): runnerC}
	ctrl := workflow.New(store, q, runners, nil)
	defer ctrl.Close()

	require.NoError(t, ctrl.Start(nil))
	waitFor(t, func() bool { return store.TeamStatus() == logstream.WorkflowFinished })

	require.Equal(t, task.StatusDone, a.Status())
	require.Equal(t, task.StatusDone, b.Status())
	require.Equal(t, task.StatusDone, c2.Status())
}

// S6 — security block: a single task's agent invokes block_task; the
// task ends BLOCKED and the team status becomes BLOCKED.
func TestControllerBlockTaskHaltsTeam(t *testing.T) {
	store := statestore.New(logstream.New(nil))
	ag, p, runner := reactAgent(store, "gatekeeper", 5)
	p.ScriptResponse(`{"thought":"unsafe","action":"block_task","action_input":{"reason":"policy violation"}}`,
		llm.Usage{PromptTokens: 1, CompletionTokens: 1})

	store.AddAgent(ag)
	tk := task.New(task.Config{Description: "risky", AgentID: ag.ID()})
	store.AddTask(tk)

	q := queue.New(store)
	ctrl := workflow.New(store, q, map[string]workflow.Runner{ag.ID(): runner}, nil)
	defer ctrl.Close()

	require.NoError(t, ctrl.Start(nil))
	waitFor(t, func() bool { return tk.Status() == task.StatusBlocked })
	require.Equal(t, logstream.WorkflowBlocked, store.TeamStatus())
	require.Equal(t, "policy violation", tk.BlockReason())
}

// A sibling branch (B, running in parallel with the blocked task A)
// finishing after the team is already BLOCKED must not let the
// controller admit C (which only depends on B): BLOCKED halts the
// whole team, not just the branch that blocked.
func TestControllerBlockedHaltsSiblingAdmission(t *testing.T) {
	store := statestore.New(logstream.New(nil))
	agA, pA, runnerA := reactAgent(store, "gatekeeper", 5)
	agB, pB, runnerB := reactAgent(store, "sibling", 5)
	agC, _, runnerC := reactAgent(store, "downstream", 5)
	pA.ScriptResponse(`{"thought":"unsafe","action":"block_task","action_input":{"reason":"policy violation"}}`,
		llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	pB.ScriptResponse(`{"final_answer":"b-done"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})

	store.AddAgent(agA)
	store.AddAgent(agB)
	store.AddAgent(agC)
	a := task.New(task.Config{Description: "a", AgentID: agA.ID(), AllowParallelExecution: true})
	b := task.New(task.Config{Description: "b", AgentID: agB.ID(), AllowParallelExecution: true})
	c := task.New(task.Config{Description: "c", AgentID: agC.ID(), Dependencies: []string{b.ID()}})
	store.AddTask(a)
	store.AddTask(b)
	store.AddTask(c)

	q := queue.New(store)
	runners := map[string]workflow.Runner{agA.ID(): runnerA, agB.ID(): runnerB, agC.ID(): runnerC}
	ctrl := workflow.New(store, q, runners, nil)
	defer ctrl.Close()

	// Hold B in flight until A has already blocked the team.
	notify, release := pB.Gate()

	require.NoError(t, ctrl.Start(nil))
	<-notify
	waitFor(t, func() bool { return store.TeamStatus() == logstream.WorkflowBlocked })

	close(release)
	waitFor(t, func() bool { return b.Status() == task.StatusDone })

	// Give the controller a moment to (wrongly) admit C if the fix
	// weren't in place; it never should.
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, task.StatusTodo, c.Status())
	require.Equal(t, logstream.WorkflowBlocked, store.TeamStatus())
}

// S5 — stop resets every non-DONE task to TODO and ends STOPPED.
func TestControllerStopResetsTasksToTodo(t *testing.T) {
	store := statestore.New(logstream.New(nil))
	ag, p, runner := reactAgent(store, "slow", 5)

	store.AddAgent(ag)
	tk := task.New(task.Config{Description: "never finishes", AgentID: ag.ID()})
	store.AddTask(tk)

	q := queue.New(store)
	ctrl := workflow.New(store, q, map[string]workflow.Runner{ag.ID(): runner}, nil)
	defer ctrl.Close()

	// Gate the worker's ChatCompletion call so it's guaranteed still
	// in-flight when Stop runs, instead of racing its (fake) failure
	// against the assertions below.
	notify, release := p.Gate()

	require.NoError(t, ctrl.Start(nil))
	<-notify
	require.Equal(t, logstream.WorkflowRunning, store.TeamStatus())

	require.NoError(t, ctrl.Stop())
	require.Equal(t, logstream.WorkflowStopped, store.TeamStatus())
	require.Equal(t, task.StatusTodo, tk.Status())

	close(release)
}

// S3 — mixed parallelism: D is sequential off A, E and F are parallel
// off D; only one of {A,D} may be DOING at a time, but E and F may
// overlap.
func TestControllerMixedParallelism(t *testing.T) {
	store := statestore.New(logstream.New(nil))

	agA, pA, runnerA := reactAgent(store, "a", 5)
	agD, pD, runnerD := reactAgent(store, "d", 5)
	agE, pE, runnerE := reactAgent(store, "e", 5)
	agF, pF, runnerF := reactAgent(store, "f", 5)
	pA.ScriptResponse(`{"final_answer":"a-done"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	pD.ScriptResponse(`{"final_answer":"d-done"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	pE.ScriptResponse(`{"final_answer":"e-done"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	pF.ScriptResponse(`{"final_answer":"f-done"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})

	store.AddAgent(agA)
	store.AddAgent(agD)
	store.AddAgent(agE)
	store.AddAgent(agF)
	a := task.New(task.Config{Description: "a", AgentID: agA.ID()})
	d := task.New(task.Config{Description: "d", AgentID: agD.ID(), Dependencies: []string{a.ID()}})
	e := task.New(task.Config{Description: "e", AgentID: agE.ID(), Dependencies: []string{d.ID()}, AllowParallelExecution: true})
	f := task.New(task.Config{Description: "f", AgentID: agF.ID(), Dependencies: []string{d.ID()}, AllowParallelExecution: true})
	store.AddTask(a)
	store.AddTask(d)
	store.AddTask(e)
	store.AddTask(f)

	q := queue.New(store)
	runners := map[string]workflow.Runner{
		agA.ID(): runnerA, agD.ID(): runnerD, agE.ID(): runnerE, agF.ID(): runnerF,
	}
	ctrl := workflow.New(store, q, runners, nil)
	defer ctrl.Close()

	require.NoError(t, ctrl.Start(nil))
	waitFor(t, func() bool { return store.TeamStatus() == logstream.WorkflowFinished })

	require.Equal(t, task.StatusDone, a.Status())
	require.Equal(t, task.StatusDone, d.Status())
	require.Equal(t, task.StatusDone, e.Status())
	require.Equal(t, task.StatusDone, f.Status())
}

// S4 — pause mid-loop and resume: the agent's continuation (iteration
// count, message history) survives the pause and the task completes
// after Resume.
func TestControllerPauseAndResumeDuringReAct(t *testing.T) {
	store := statestore.New(logstream.New(nil))
	ag, p, runner := reactAgent(store, "thinker", 5)
	p.ScriptResponse(`{"thought":"need a moment","action":"self_question","action_input":{}}`,
		llm.Usage{PromptTokens: 1, CompletionTokens: 1})
	p.ScriptResponse(`{"final_answer":"done after resume"}`, llm.Usage{PromptTokens: 1, CompletionTokens: 1})

	store.AddAgent(ag)
	tk := task.New(task.Config{Description: "ponder", AgentID: ag.ID()})
	store.AddTask(tk)

	q := queue.New(store)
	ctrl := workflow.New(store, q, map[string]workflow.Runner{ag.ID(): runner}, nil)
	defer ctrl.Close()

	notify, release := p.Gate()

	require.NoError(t, ctrl.Start(nil))
	<-notify // first ChatCompletion call is in flight

	require.NoError(t, ctrl.Pause())
	require.Equal(t, logstream.WorkflowPaused, store.TeamStatus())
	require.Equal(t, task.StatusPaused, tk.Status())

	close(release) // let the in-flight call return; the loop sees paused() as soon as it returns

	waitFor(t, func() bool { return tk.Status() == task.StatusPaused })

	require.NoError(t, ctrl.Resume())
	waitFor(t, func() bool { return store.TeamStatus() == logstream.WorkflowFinished })

	require.Equal(t, task.StatusDone, tk.Status())
	require.Equal(t, "done after resume", tk.Result())
}

// A Controller-initiated Pause of a Workflow-Driven agent must suspend
// its sub-workflow at the next step boundary rather than let it run to
// completion underneath a task the store already marked PAUSED.
func TestControllerPauseAndResumeWorkflowDriven(t *testing.T) {
	store := statestore.New(logstream.New(nil))
	ag := agent.New(agent.Config{Name: "operator", Kind: agent.KindWorkflowDriven})
	store.AddAgent(ag)
	tk := task.New(task.Config{Description: "rollout", AgentID: ag.ID()})
	store.AddTask(tk)

	notify := make(chan struct{})
	release := make(chan struct{})
	var stage2Ran atomic.Bool
	factory := func(_ *task.Task) subworkflow.Workflow {
		return subworkflow.NewStepGraph(
			subworkflow.Step{ID: "stage-1", Fn: func(_ context.Context, data any) (any, error) {
				close(notify)
				<-release
				return "stage-1-done", nil
			}},
			subworkflow.Step{ID: "stage-2", Fn: func(_ context.Context, data any) (any, error) {
				stage2Ran.Store(true)
				return "stage-2-done", nil
			}},
		)
	}
	runner := workflow.NewWorkflowDrivenRunner(workflowagent.New(store), factory)

	q := queue.New(store)
	ctrl := workflow.New(store, q, map[string]workflow.Runner{ag.ID(): runner}, nil)
	defer ctrl.Close()

	require.NoError(t, ctrl.Start(nil))
	<-notify // stage-1 is in flight

	require.NoError(t, ctrl.Pause())
	require.Equal(t, logstream.WorkflowPaused, store.TeamStatus())
	require.Equal(t, task.StatusPaused, tk.Status())

	close(release) // let stage-1 return; the graph sees paused() before stage-2 and suspends

	waitFor(t, func() bool { return tk.Status() == task.StatusPaused })
	require.False(t, stage2Ran.Load(), "stage-2 must not run while the task is paused")

	require.NoError(t, ctrl.Resume())
	waitFor(t, func() bool { return store.TeamStatus() == logstream.WorkflowFinished })

	require.Equal(t, task.StatusDone, tk.Status())
	require.Equal(t, "stage-2-done", tk.Result())
}

// S7 — SetEnv patches every agent's env atomically and idempotently.
func TestControllerSetEnvPatchesAllAgents(t *testing.T) {
	store := statestore.New(logstream.New(nil))
	ag1, _, runner1 := reactAgent(store, "one", 5)
	ag2, _, runner2 := reactAgent(store, "two", 5)
	store.AddAgent(ag1)
	store.AddAgent(ag2)

	q := queue.New(store)
	ctrl := workflow.New(store, q, map[string]workflow.Runner{ag1.ID(): runner1, ag2.ID(): runner2}, nil)
	defer ctrl.Close()

	require.NoError(t, ctrl.SetEnv(map[string]string{"API_KEY": "k2"}))
	require.Equal(t, "k2", ag1.Env()["API_KEY"])
	require.Equal(t, "k2", ag2.Env()["API_KEY"])
}
