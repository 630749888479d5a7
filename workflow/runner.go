package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/loomwork/loom/agent"
	"github.com/loomwork/loom/agent/workflowagent"
	"github.com/loomwork/loom/reasoning"
	"github.com/loomwork/loom/subworkflow"
	"github.com/loomwork/loom/task"
)

// Status is the tri-state (plus paused) result every agent runtime
// reduces to, so the Controller can treat ReAct and Workflow-Driven
// agents uniformly.
type Status string

const (
	StatusDone    Status = "DONE"
	StatusPaused  Status = "PAUSED"
	StatusBlocked Status = "BLOCKED"
	StatusErrored Status = "ERRORED"
)

// Outcome is what a Runner reports back to the Controller after one
// Start or Resume call returns (either to completion or at a
// suspension point).
type Outcome struct {
	Status Status
	Result string
	Reason string
	Err    error
}

// Runner adapts one concrete agent runtime (ReAct or Workflow-Driven)
// to a uniform Start/Resume contract the Controller drives without
// knowing which kind of agent it is dispatching to.
type Runner interface {
	Start(ctx context.Context, ag *agent.Agent, t *task.Task, workflowContext string, paused func() bool) Outcome
	Resume(ctx context.Context, ag *agent.Agent, t *task.Task, paused func() bool) Outcome
}

// ReActRunner adapts *reasoning.Runtime, remembering each paused task's
// continuation so a later Resume picks the loop back up mid-iteration.
type ReActRunner struct {
	rt *reasoning.Runtime

	mu            sync.Mutex
	continuations map[string]*reasoning.State
}

// NewReActRunner builds a Runner backed by rt.
func NewReActRunner(rt *reasoning.Runtime) *ReActRunner {
	return &ReActRunner{rt: rt, continuations: make(map[string]*reasoning.State)}
}

func (r *ReActRunner) Start(ctx context.Context, ag *agent.Agent, t *task.Task, workflowContext string, paused func() bool) Outcome {
	return r.reduce(t.ID(), r.rt.Run(ctx, ag, t, workflowContext, paused))
}

func (r *ReActRunner) Resume(ctx context.Context, ag *agent.Agent, t *task.Task, paused func() bool) Outcome {
	r.mu.Lock()
	state := r.continuations[t.ID()]
	delete(r.continuations, t.ID())
	r.mu.Unlock()

	if state == nil {
		// No saved continuation (e.g. a restart after Stop): behave like
		// a fresh Start with no workflow context carried forward.
		return r.reduce(t.ID(), r.rt.Run(ctx, ag, t, "", paused))
	}
	return r.reduce(t.ID(), r.rt.Resume(ctx, ag, t, state, paused))
}

func (r *ReActRunner) reduce(taskID string, res reasoning.Result) Outcome {
	switch res.Outcome {
	case reasoning.OutcomeDone:
		return Outcome{Status: StatusDone, Result: res.FinalAnswer}
	case reasoning.OutcomePaused:
		r.mu.Lock()
		r.continuations[taskID] = res.State
		r.mu.Unlock()
		return Outcome{Status: StatusPaused}
	case reasoning.OutcomeBlocked:
		return Outcome{Status: StatusBlocked, Reason: res.BlockReason, Err: res.Err}
	default:
		return Outcome{Status: StatusErrored, Err: res.Err}
	}
}

// WorkflowFactory builds a fresh sub-workflow collaborator for one
// task's first Start call; the same instance is reused across any
// later Resume calls for that task.
type WorkflowFactory func(t *task.Task) subworkflow.Workflow

// WorkflowDrivenRunner adapts *workflowagent.Runtime, keeping the live
// subworkflow.Workflow instance per task so Resume continues the same
// step graph rather than rebuilding it.
type WorkflowDrivenRunner struct {
	rt      *workflowagent.Runtime
	factory WorkflowFactory

	mu        sync.Mutex
	instances map[string]subworkflow.Workflow
	resumeIn  map[string]any
}

// NewWorkflowDrivenRunner builds a Runner backed by rt, constructing a
// new sub-workflow instance per task via factory.
func NewWorkflowDrivenRunner(rt *workflowagent.Runtime, factory WorkflowFactory) *WorkflowDrivenRunner {
	return &WorkflowDrivenRunner{
		rt:        rt,
		factory:   factory,
		instances: make(map[string]subworkflow.Workflow),
		resumeIn:  make(map[string]any),
	}
}

func (r *WorkflowDrivenRunner) Start(ctx context.Context, ag *agent.Agent, t *task.Task, workflowContext string, paused func() bool) Outcome {
	wf := r.factory(t)
	r.mu.Lock()
	r.instances[t.ID()] = wf
	r.mu.Unlock()
	return r.reduce(t.ID(), r.rt.Run(ctx, ag, t, wf, workflowContext, subworkflow.PauseCheck(paused)))
}

func (r *WorkflowDrivenRunner) Resume(ctx context.Context, ag *agent.Agent, t *task.Task, paused func() bool) Outcome {
	r.mu.Lock()
	wf, ok := r.instances[t.ID()]
	resumeData := r.resumeIn[t.ID()]
	r.mu.Unlock()
	if !ok {
		wf = r.factory(t)
		r.mu.Lock()
		r.instances[t.ID()] = wf
		r.mu.Unlock()
	}
	return r.reduce(t.ID(), r.rt.Resume(ctx, ag, t, wf, resumeData, subworkflow.PauseCheck(paused)))
}

func (r *WorkflowDrivenRunner) reduce(taskID string, res workflowagent.Result) Outcome {
	switch res.Outcome {
	case workflowagent.OutcomeDone:
		r.mu.Lock()
		delete(r.instances, taskID)
		delete(r.resumeIn, taskID)
		r.mu.Unlock()
		out, ok := res.Output.(string)
		if !ok {
			out = fmt.Sprintf("%v", res.Output)
		}
		return Outcome{Status: StatusDone, Result: out}
	case workflowagent.OutcomePaused:
		r.mu.Lock()
		r.resumeIn[taskID] = res.ResumePayload
		r.mu.Unlock()
		return Outcome{Status: StatusPaused}
	case workflowagent.OutcomeBlocked:
		return Outcome{Status: StatusBlocked, Reason: res.BlockReason, Err: res.Err}
	default:
		return Outcome{Status: StatusErrored, Err: res.Err}
	}
}
