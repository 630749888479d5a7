package subworkflow

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// StepFunc executes one step of a StepGraph against the data carried
// forward from the previous step (or the initial/resume data for the
// first step). Returning the error built by SuspendWith pauses the
// graph (a bare ErrSuspend is treated as a step failure); returning
// ErrBlockTask surfaces as a block signal the owning runtime maps to
// task BLOCKED.
type StepFunc func(ctx context.Context, data any) (any, error)

// ErrSuspend, when wrapped with SuspendWith, pauses a StepGraph at the
// step that returned it; Resume restarts at that same step.
var ErrSuspend = errors.New("subworkflow: suspended")

// ErrBlockTask signals the workflow-driven agent's block_task
// capability from inside a step.
var ErrBlockTask = errors.New("subworkflow: blocked")

// suspension carries the payload alongside ErrSuspend.
type suspension struct {
	payload any
}

func (s *suspension) Error() string { return ErrSuspend.Error() }
func (s *suspension) Unwrap() error { return ErrSuspend }

// SuspendWith builds the error a step returns to suspend the graph,
// carrying payload forward to the next Resume call.
func SuspendWith(payload any) error {
	return &suspension{payload: payload}
}

// blocked carries the reason alongside ErrBlockTask.
type blocked struct {
	reason string
}

func (b *blocked) Error() string { return fmt.Sprintf("%s: %s", ErrBlockTask.Error(), b.reason) }
func (b *blocked) Unwrap() error { return ErrBlockTask }

// BlockWith builds the error a step returns to block the owning task.
func BlockWith(reason string) error {
	return &blocked{reason: reason}
}

// Step is one named unit of a StepGraph. Sequential, Parallel, and Loop
// build composite steps out of simpler ones, mirroring the
// sequential/parallel/loop primitives a declarative sub-workflow
// engine exposes.
type Step struct {
	ID string
	Fn StepFunc
}

// Sequential composes steps to run one after another, threading each
// step's output into the next step's input.
func Sequential(id string, steps ...Step) Step {
	return Step{ID: id, Fn: func(ctx context.Context, data any) (any, error) {
		cur := data
		for _, s := range steps {
			out, err := s.Fn(ctx, cur)
			if err != nil {
				return nil, err
			}
			cur = out
		}
		return cur, nil
	}}
}

// Parallel composes steps to run concurrently against the same input,
// returning their outputs in declaration order. The first error (of
// any kind, including suspend/block) cancels the remaining steps.
func Parallel(id string, steps ...Step) Step {
	return Step{ID: id, Fn: func(ctx context.Context, data any) (any, error) {
		out := make([]any, len(steps))
		g, gctx := errgroup.WithContext(ctx)
		for i, s := range steps {
			i, s := i, s
			g.Go(func() error {
				v, err := s.Fn(gctx, data)
				if err != nil {
					return err
				}
				out[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}}
}

// Loop repeats step while cond(data) holds, feeding each iteration's
// output to the next invocation of cond and to the following
// iteration.
func Loop(id string, step Step, cond func(data any) bool) Step {
	return Step{ID: id, Fn: func(ctx context.Context, data any) (any, error) {
		cur := data
		for cond(cur) {
			out, err := step.Fn(ctx, cur)
			if err != nil {
				return nil, err
			}
			cur = out
		}
		return cur, nil
	}}
}

// StepGraph is a small in-memory reference implementation of Workflow,
// shipped only so the Workflow-Driven agent runtime has something
// concrete to drive in tests. It is not part of the orchestration
// core's contract surface and may be swapped for any conforming
// implementation.
type StepGraph struct {
	steps []Step
	pos   int
}

// NewStepGraph builds a graph that runs steps in order on Run, stopping
// and remembering its position if a step suspends.
func NewStepGraph(steps ...Step) *StepGraph {
	return &StepGraph{steps: steps}
}

// Run implements Workflow.
func (g *StepGraph) Run(ctx context.Context, initialData any, events func(StepEvent), paused PauseCheck) (Outcome, error) {
	g.pos = 0
	return g.drive(ctx, initialData, events, paused)
}

// Resume implements Workflow, restarting at the step that last
// suspended.
func (g *StepGraph) Resume(ctx context.Context, resumeData any, events func(StepEvent), paused PauseCheck) (Outcome, error) {
	return g.drive(ctx, resumeData, events, paused)
}

func (g *StepGraph) drive(ctx context.Context, data any, events func(StepEvent), paused PauseCheck) (Outcome, error) {
	cur := data
	for g.pos < len(g.steps) {
		if paused != nil && paused() {
			return Outcome{Status: StepSuspended, Payload: cur}, nil
		}

		s := g.steps[g.pos]
		if events != nil {
			events(StepEvent{StepID: s.ID, Status: StepStarted})
		}

		out, err := s.Fn(ctx, cur)
		if err == nil {
			if events != nil {
				events(StepEvent{StepID: s.ID, Status: StepCompleted})
			}
			cur = out
			g.pos++
			continue
		}

		var susp *suspension
		if errors.As(err, &susp) {
			if events != nil {
				events(StepEvent{StepID: s.ID, Status: StepSuspended})
			}
			return Outcome{Status: StepSuspended, Payload: susp.payload}, nil
		}

		if events != nil {
			events(StepEvent{StepID: s.ID, Status: StepFailed})
		}
		return Outcome{Status: StepFailed, Err: err}, err
	}
	return Outcome{Status: StepCompleted, Output: cur}, nil
}
