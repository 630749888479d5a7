package task_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomwork/loom/task"
)

func TestNewTaskStartsInTodo(t *testing.T) {
	tk := task.New(task.Config{Description: "do a thing"})
	require.Equal(t, task.StatusTodo, tk.Status())
	require.Empty(t, tk.Result())
}

func TestHappyPathTransitions(t *testing.T) {
	tk := task.New(task.Config{Description: "sum"})
	require.NoError(t, tk.Transition(task.StatusDoing, ""))
	require.NoError(t, tk.Transition(task.StatusDone, "42"))
	require.Equal(t, task.StatusDone, tk.Status())
	require.Equal(t, "42", tk.Result())
}

func TestDoneRequiresNonEmptyResult(t *testing.T) {
	tk := task.New(task.Config{Description: "sum"})
	require.NoError(t, tk.Transition(task.StatusDoing, ""))
	require.Error(t, tk.Transition(task.StatusDone, ""))
}

func TestIllegalTransitionRejected(t *testing.T) {
	tk := task.New(task.Config{Description: "sum"})
	require.Error(t, tk.Transition(task.StatusDone, "result"))
}

func TestPauseResumeCycle(t *testing.T) {
	tk := task.New(task.Config{Description: "sum"})
	require.NoError(t, tk.Transition(task.StatusDoing, ""))
	require.NoError(t, tk.Transition(task.StatusPaused, ""))
	require.NoError(t, tk.Transition(task.StatusResumed, ""))
	require.NoError(t, tk.Transition(task.StatusDoing, ""))
	require.NoError(t, tk.Transition(task.StatusDone, "ok"))
}

func TestBlockIsTerminal(t *testing.T) {
	tk := task.New(task.Config{Description: "risky"})
	require.NoError(t, tk.Transition(task.StatusDoing, ""))
	require.NoError(t, tk.Block("policy violation"))
	require.Equal(t, task.StatusBlocked, tk.Status())
	require.Equal(t, "policy violation", tk.BlockReason())
	require.Error(t, tk.Transition(task.StatusDoing, ""))
}

func TestResetLeavesDoneTasksAlone(t *testing.T) {
	done := task.New(task.Config{Description: "finished"})
	require.NoError(t, done.Transition(task.StatusDoing, ""))
	require.NoError(t, done.Transition(task.StatusDone, "result"))
	done.Reset()
	require.Equal(t, task.StatusDone, done.Status())

	inFlight := task.New(task.Config{Description: "pending"})
	require.NoError(t, inFlight.Transition(task.StatusDoing, ""))
	inFlight.Reset()
	require.Equal(t, task.StatusTodo, inFlight.Status())
}

func TestAddDependencyAfterConstruction(t *testing.T) {
	a := task.New(task.Config{Description: "a"})
	b := task.New(task.Config{Description: "b"})
	b.AddDependency(a.ID())
	require.Contains(t, b.Dependencies(), a.ID())
}

func TestRecordIterationAccumulates(t *testing.T) {
	tk := task.New(task.Config{Description: "loop"})
	tk.RecordIteration(10, 20)
	tk.RecordIteration(5, 5)
	tk.RecordToolCall()
	stats := tk.Stats()
	require.Equal(t, 2, stats.Iterations)
	require.Equal(t, 15, stats.PromptTokens)
	require.Equal(t, 25, stats.CompletionTokens)
	require.Equal(t, 1, stats.ToolCalls)
}
