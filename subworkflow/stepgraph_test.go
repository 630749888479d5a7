package subworkflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomwork/loom/subworkflow"
)

func TestStepGraphSequentialRunToCompletion(t *testing.T) {
	g := subworkflow.NewStepGraph(
		subworkflow.Step{ID: "double", Fn: func(_ context.Context, data any) (any, error) {
			return data.(int) * 2, nil
		}},
		subworkflow.Step{ID: "increment", Fn: func(_ context.Context, data any) (any, error) {
			return data.(int) + 1, nil
		}},
	)

	var events []subworkflow.StepEvent
	out, err := g.Run(context.Background(), 3, func(e subworkflow.StepEvent) {
		events = append(events, e)
	}, nil)
	require.NoError(t, err)
	require.Equal(t, subworkflow.StepCompleted, out.Status)
	require.Equal(t, 7, out.Output)
	require.Len(t, events, 4) // started+completed per step
}

func TestStepGraphSuspendAndResume(t *testing.T) {
	resumed := false
	g := subworkflow.NewStepGraph(
		subworkflow.Step{ID: "wait-for-human", Fn: func(_ context.Context, data any) (any, error) {
			if !resumed {
				return nil, subworkflow.SuspendWith("awaiting approval")
			}
			return data, nil
		}},
		subworkflow.Step{ID: "finish", Fn: func(_ context.Context, data any) (any, error) {
			return data, nil
		}},
	)

	out, err := g.Run(context.Background(), "seed", nil, nil)
	require.NoError(t, err)
	require.Equal(t, subworkflow.StepSuspended, out.Status)
	require.Equal(t, "awaiting approval", out.Payload)

	resumed = true
	out, err = g.Resume(context.Background(), "resumed-data", nil, nil)
	require.NoError(t, err)
	require.Equal(t, subworkflow.StepCompleted, out.Status)
	require.Equal(t, "resumed-data", out.Output)
}

func TestStepGraphExternalPauseSuspendsBeforeNextStep(t *testing.T) {
	var calls []string
	g := subworkflow.NewStepGraph(
		subworkflow.Step{ID: "first", Fn: func(_ context.Context, data any) (any, error) {
			calls = append(calls, "first")
			return "first-done", nil
		}},
		subworkflow.Step{ID: "second", Fn: func(_ context.Context, data any) (any, error) {
			calls = append(calls, "second")
			return "second-done", nil
		}},
	)

	paused := func() bool { return len(calls) >= 1 }
	out, err := g.Run(context.Background(), "seed", nil, paused)
	require.NoError(t, err)
	require.Equal(t, subworkflow.StepSuspended, out.Status)
	require.Equal(t, "first-done", out.Payload)
	require.Equal(t, []string{"first"}, calls)

	out, err = g.Resume(context.Background(), out.Payload, nil, nil)
	require.NoError(t, err)
	require.Equal(t, subworkflow.StepCompleted, out.Status)
	require.Equal(t, "second-done", out.Output)
	require.Equal(t, []string{"first", "second"}, calls)
}

func TestStepGraphBlockTaskSurfacesAsFailure(t *testing.T) {
	g := subworkflow.NewStepGraph(
		subworkflow.Step{ID: "gate", Fn: func(_ context.Context, data any) (any, error) {
			return nil, subworkflow.BlockWith("unsafe input")
		}},
	)

	out, err := g.Run(context.Background(), nil, nil, nil)
	require.Error(t, err)
	require.Equal(t, subworkflow.StepFailed, out.Status)
	require.True(t, errors.Is(out.Err, subworkflow.ErrBlockTask))
}

func TestParallelStepReturnsOutputsInDeclarationOrder(t *testing.T) {
	s := subworkflow.Parallel("fanout",
		subworkflow.Step{ID: "a", Fn: func(_ context.Context, data any) (any, error) { return 1, nil }},
		subworkflow.Step{ID: "b", Fn: func(_ context.Context, data any) (any, error) { return 2, nil }},
	)
	out, err := s.Fn(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []any{1, 2}, out)
}
