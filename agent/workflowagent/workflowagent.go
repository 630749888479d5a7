// Package workflowagent implements the Agent Runtime — Workflow-Driven
// described in spec §4.5: it delegates task execution to a declarative
// sub-workflow (package subworkflow), translating that collaborator's
// step boundary events and terminal outcome into AgentStatusUpdate
// entries. It never transitions task status itself — that remains the
// state store's job, driven by the caller via the returned Result.
package workflowagent

import (
	"context"
	stderrors "errors"

	"github.com/loomwork/loom/agent"
	loomerrors "github.com/loomwork/loom/errors"
	"github.com/loomwork/loom/statestore"
	"github.com/loomwork/loom/subworkflow"
	"github.com/loomwork/loom/task"
)

// Outcome mirrors reasoning.Outcome so workflow.Controller can treat
// both agent runtimes uniformly.
type Outcome string

const (
	OutcomeDone    Outcome = "DONE"
	OutcomeBlocked Outcome = "BLOCKED"
	OutcomeErrored Outcome = "ERRORED"
	OutcomePaused  Outcome = "PAUSED"
)

// Result reports what a Run/Resume call produced.
type Result struct {
	Outcome     Outcome
	Output      any
	BlockReason string
	Err         error
	// ResumePayload is set when Outcome == OutcomePaused; feed verbatim
	// to Resume's resumeData parameter once the suspension is lifted.
	ResumePayload any
}

// Runtime drives one subworkflow.Workflow collaborator per task.
type Runtime struct {
	store *statestore.Store
}

// New builds a Runtime bound to store, for emitting AgentStatusUpdate
// entries at each step boundary.
func New(store *statestore.Store) *Runtime {
	return &Runtime{store: store}
}

// Run starts wf against initialData, owned by ag executing t. paused,
// if non-nil, is forwarded to wf so a Controller-initiated pause
// suspends the sub-workflow at its next honored boundary instead of
// running it to completion underneath the paused task.
func (r *Runtime) Run(ctx context.Context, ag *agent.Agent, t *task.Task, wf subworkflow.Workflow, initialData any, paused subworkflow.PauseCheck) Result {
	out, err := wf.Run(ctx, initialData, r.events(ag), paused)
	return r.translate(out, err)
}

// Resume continues wf, previously suspended, with resumeData.
func (r *Runtime) Resume(ctx context.Context, ag *agent.Agent, t *task.Task, wf subworkflow.Workflow, resumeData any, paused subworkflow.PauseCheck) Result {
	out, err := wf.Resume(ctx, resumeData, r.events(ag), paused)
	return r.translate(out, err)
}

func (r *Runtime) events(ag *agent.Agent) func(subworkflow.StepEvent) {
	return func(e subworkflow.StepEvent) {
		var status agent.Status
		switch e.Status {
		case subworkflow.StepStarted:
			status = agent.StatusWorkflowStepStarted
		case subworkflow.StepCompleted:
			status = agent.StatusWorkflowStepCompleted
		case subworkflow.StepFailed:
			status = agent.StatusWorkflowStepFailed
		default:
			return
		}
		r.store.AppendAgentStatus(ag, status, map[string]any{"step_id": e.StepID})
	}
}

func (r *Runtime) translate(out subworkflow.Outcome, err error) Result {
	switch out.Status {
	case subworkflow.StepCompleted:
		return Result{Outcome: OutcomeDone, Output: out.Output}

	case subworkflow.StepSuspended:
		return Result{Outcome: OutcomePaused, ResumePayload: out.Payload}

	case subworkflow.StepFailed:
		if stderrors.Is(out.Err, subworkflow.ErrBlockTask) {
			return Result{Outcome: OutcomeBlocked, BlockReason: out.Err.Error()}
		}
		oe := loomerrors.SubWorkflowFailureError("workflowagent", "Run", "sub-workflow step failed", err)
		return Result{Outcome: OutcomeErrored, Err: oe}

	default:
		oe := loomerrors.SubWorkflowFailureError("workflowagent", "Run", "unrecognized sub-workflow outcome", err)
		return Result{Outcome: OutcomeErrored, Err: oe}
	}
}
