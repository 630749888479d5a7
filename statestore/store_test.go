package statestore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomwork/loom/agent"
	"github.com/loomwork/loom/logstream"
	"github.com/loomwork/loom/statestore"
	"github.com/loomwork/loom/task"
)

func newTestStore() *statestore.Store {
	return statestore.New(logstream.New(nil))
}

func TestAddTaskAndAddAgentPreserveDeclarationOrder(t *testing.T) {
	store := newTestStore()
	t1 := task.New(task.Config{ReferenceID: "t1", Description: "first"})
	t2 := task.New(task.Config{ReferenceID: "t2", Description: "second"})
	store.AddTask(t1)
	store.AddTask(t2)

	got, ok := store.Task(t1.ID())
	require.True(t, ok)
	require.Equal(t, t1, got)

	tasks := store.Tasks()
	require.Len(t, tasks, 2)
	require.Equal(t, t1.ID(), tasks[0].ID())
	require.Equal(t, t2.ID(), tasks[1].ID())

	a1 := agent.New(agent.Config{Name: "a1"})
	store.AddAgent(a1)
	agents := store.Agents()
	require.Len(t, agents, 1)
	require.Equal(t, a1.ID(), agents[0].ID())
}

func TestTaskTransitionLifecycle(t *testing.T) {
	store := newTestStore()
	tk := task.New(task.Config{ReferenceID: "t1", Description: "do it"})
	store.AddTask(tk)

	require.NoError(t, store.AdmitTask(tk.ID()))
	require.Equal(t, task.StatusDoing, tk.Status())
	require.NotContains(t, store.PendingTaskIDs(), tk.ID())
	require.Contains(t, store.ExecutingTaskIDs(), tk.ID())

	require.NoError(t, store.FinishTask(tk.ID(), "done result"))
	require.Equal(t, task.StatusDone, tk.Status())
	require.NotContains(t, store.ExecutingTaskIDs(), tk.ID())
	require.Contains(t, store.WorkflowContext(), "done result")
}

func TestErrorTaskAndBlockTask(t *testing.T) {
	store := newTestStore()
	errored := task.New(task.Config{ReferenceID: "e1", Description: "fails"})
	blocked := task.New(task.Config{ReferenceID: "b1", Description: "blocks"})
	store.AddTask(errored)
	store.AddTask(blocked)

	require.NoError(t, store.AdmitTask(errored.ID()))
	require.NoError(t, store.ErrorTask(errored.ID(), "boom"))
	require.Equal(t, task.StatusErrored, errored.Status())

	require.NoError(t, store.AdmitTask(blocked.ID()))
	require.NoError(t, store.BlockTask(blocked.ID(), "waiting on human"))
	require.Equal(t, task.StatusBlocked, blocked.Status())
	require.Equal(t, "waiting on human", blocked.BlockReason())
}

func TestPauseResumeTask(t *testing.T) {
	store := newTestStore()
	tk := task.New(task.Config{ReferenceID: "t1", Description: "do it"})
	store.AddTask(tk)
	require.NoError(t, store.AdmitTask(tk.ID()))

	require.NoError(t, store.PauseTask(tk.ID()))
	require.Equal(t, task.StatusPaused, tk.Status())

	require.NoError(t, store.ResumeTask(tk.ID()))
	require.Equal(t, task.StatusDoing, tk.Status())
}

func TestResetNonDoneTasksLeavesDoneAlone(t *testing.T) {
	store := newTestStore()
	done := task.New(task.Config{ReferenceID: "d1", Description: "done"})
	doing := task.New(task.Config{ReferenceID: "g1", Description: "in progress"})
	store.AddTask(done)
	store.AddTask(doing)

	require.NoError(t, store.AdmitTask(done.ID()))
	require.NoError(t, store.FinishTask(done.ID(), "ok"))
	require.NoError(t, store.AdmitTask(doing.ID()))

	store.ResetNonDoneTasks()

	require.Equal(t, task.StatusDone, done.Status())
	require.Equal(t, task.StatusTodo, doing.Status())
	require.Contains(t, store.PendingTaskIDs(), doing.ID())
	require.NotContains(t, store.ExecutingTaskIDs(), doing.ID())
}

func TestCycleCheckDetectsCycle(t *testing.T) {
	store := newTestStore()
	a := task.New(task.Config{ReferenceID: "a", Description: "a"})
	b := task.New(task.Config{ReferenceID: "b", Description: "b"})
	store.AddTask(a)
	store.AddTask(b)
	a.AddDependency(b.ID())
	b.AddDependency(a.ID())

	require.Error(t, store.CycleCheck())
}

func TestCycleCheckAcceptsDAG(t *testing.T) {
	store := newTestStore()
	a := task.New(task.Config{ReferenceID: "a", Description: "a"})
	b := task.New(task.Config{ReferenceID: "b", Description: "b"})
	c := task.New(task.Config{ReferenceID: "c", Description: "c"})
	store.AddTask(a)
	store.AddTask(b)
	store.AddTask(c)
	b.AddDependency(a.ID())
	c.AddDependency(b.ID())

	require.NoError(t, store.CycleCheck())
}

func TestGetCleanedStateProjection(t *testing.T) {
	store := newTestStore()
	tk := task.New(task.Config{ReferenceID: "t1", Description: "do it"})
	store.AddTask(tk)
	ag := agent.New(agent.Config{Name: "worker"})
	store.AddAgent(ag)

	store.SetInputs(map[string]string{"name": "loom"})
	store.SetTeamStatus(logstream.WorkflowRunning)
	store.SetLogLevel("debug")
	require.NoError(t, store.AdmitTask(tk.ID()))
	require.NoError(t, store.FinishTask(tk.ID(), "result"))
	store.SetWorkflowResult("result")

	state := store.GetCleanedState()
	require.Len(t, state.Tasks, 1)
	require.Equal(t, task.StatusDone, state.Tasks[0].Status)
	require.Len(t, state.Agents, 1)
	require.Equal(t, "worker", state.Agents[0].Name)
	require.Equal(t, logstream.WorkflowRunning, state.TeamStatus)
	require.Equal(t, "loom", state.Inputs["name"])
	require.NotEmpty(t, state.WorkflowLogs)
	require.Contains(t, state.WorkflowContext, "result")
	require.Equal(t, "result", state.WorkflowResult)
	require.Equal(t, "debug", state.LogLevel)
}

func TestWorkflowResultAndLogLevelDefaults(t *testing.T) {
	store := newTestStore()
	require.Empty(t, store.WorkflowResult())
	require.Equal(t, "info", store.LogLevel())

	store.SetWorkflowResult("final answer")
	store.SetLogLevel("warn")
	require.Equal(t, "final answer", store.WorkflowResult())
	require.Equal(t, "warn", store.LogLevel())
}

func TestIsPausedAndSetPaused(t *testing.T) {
	store := newTestStore()
	require.False(t, store.IsPaused())
	store.SetPaused(true)
	require.True(t, store.IsPaused())
}
