// Package reasoning implements the Agent Runtime (ReAct) described in
// spec §4.4: a bounded think/act/observe loop that calls an LLM
// collaborator, parses its tagged-variant output, dispatches bound
// tools, and emits AgentStatusUpdate entries at every decision
// boundary. It is the largest single component of the orchestration
// core.
package reasoning

import (
	"context"
	"fmt"
	"time"

	"github.com/loomwork/loom/agent"
	loomerrors "github.com/loomwork/loom/errors"
	"github.com/loomwork/loom/llm"
	"github.com/loomwork/loom/statestore"
	"github.com/loomwork/loom/task"
	"github.com/loomwork/loom/tool"
)

// Outcome is the terminal (or suspended) result of one Run/Resume call.
type Outcome string

const (
	OutcomeDone    Outcome = "DONE"
	OutcomeBlocked Outcome = "BLOCKED"
	OutcomeErrored Outcome = "ERRORED"
	OutcomePaused  Outcome = "PAUSED"
)

// State is the full resumable continuation of an in-flight ReAct loop:
// message history, iteration counter, and the metadata of the last
// THINKING entry emitted. Preserving this across a pause, by value, is
// what guarantees "thinking metadata consistency across pause"
// (invariant 4).
type State struct {
	Messages              []llm.Message
	Iteration             int
	LastThinkingMetadata  map[string]any
	forcedFinalAnswerTurn bool
}

// Result reports what a Run/Resume call produced.
type Result struct {
	Outcome     Outcome
	FinalAnswer string
	BlockReason string
	Err         error
	State       *State // set when Outcome == OutcomePaused; feed back to Resume
}

// Recorder receives per-iteration and per-LLM-call metrics as a
// Runtime drives its loop. Satisfied by *observability.Metrics; nil by
// default (no-op).
type Recorder interface {
	RecordIteration(agentName string)
	RecordIterationError(agentName, errorType string)
	RecordLLMCall(model, provider string, duration time.Duration)
	RecordLLMTokens(model, provider string, inputTokens, outputTokens int)
	RecordLLMError(model, provider, errorType string)
}

// Runtime drives the ReAct loop for one task at a time. It is safe for
// concurrent use across different tasks; component.Manager builds one
// Runtime per ReAct-kind agent.
type Runtime struct {
	provider llm.Provider
	tools    *tool.Registry
	store    *statestore.Store
	tokens   *tokenCounter
	rec      Recorder
}

// New builds a Runtime bound to a single LLM provider, tool registry,
// and state store. The tool registry is typically agent-specific;
// callers construct one Runtime per agent or share one across agents
// with identical toolsets.
func New(provider llm.Provider, tools *tool.Registry, store *statestore.Store) *Runtime {
	return &Runtime{provider: provider, tools: tools, store: store, tokens: sharedTokenCounter}
}

// SetRecorder installs a metrics Recorder.
func (r *Runtime) SetRecorder(rec Recorder) { r.rec = rec }

// PauseCheck is polled before each ReAct iteration and again when each
// LLM call returns. A true return pauses the loop and returns its
// continuation in Result.State; a pause seen after a call discards that
// call's response, so Resume reruns the interrupted iteration.
type PauseCheck func() bool

// Run starts a fresh ReAct loop for t, owned by ag, seeded with the
// accumulated workflowContext narrative (spec §4.3's "findings and
// insights from previous tasks" slot).
func (r *Runtime) Run(ctx context.Context, ag *agent.Agent, t *task.Task, workflowContext string, paused PauseCheck) Result {
	state := &State{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt(ag, r.tools)},
			{Role: llm.RoleUser, Content: userPrompt(t, workflowContext)},
		},
	}
	return r.drive(ctx, ag, t, state, paused)
}

// Resume continues a previously paused loop from its saved state.
func (r *Runtime) Resume(ctx context.Context, ag *agent.Agent, t *task.Task, state *State, paused PauseCheck) Result {
	return r.drive(ctx, ag, t, state, paused)
}

func (r *Runtime) drive(ctx context.Context, ag *agent.Agent, t *task.Task, state *State, paused PauseCheck) Result {
	maxIter := ag.MaxIterations()

	for state.Iteration < maxIter {
		if paused != nil && paused() {
			return Result{Outcome: OutcomePaused, State: state}
		}

		state.Iteration++
		i := state.Iteration

		if state.forcedFinalAnswerTurn {
			state.Messages = append(state.Messages, llm.Message{
				Role:    llm.RoleUser,
				Content: "FORCE_FINAL_ANSWER_FEEDBACK: you are on your last iteration — respond with a final_answer now.",
			})
			state.forcedFinalAnswerTurn = false
		}

		metadata := map[string]any{"iteration": i, "messages": cloneMessages(state.Messages)}
		r.store.AppendAgentStatus(ag, agent.StatusThinking, metadata)
		state.LastThinkingMetadata = metadata

		model := ag.LLMConfig().Model
		provider := ag.LLMConfig().Provider
		callStart := time.Now()
		resp, err := r.provider.ChatCompletion(ctx, llm.Request{
			Config: llm.Config{
				Model:            model,
				Temperature:      ag.LLMConfig().Temperature,
				TopP:             ag.LLMConfig().TopP,
				FrequencyPenalty: ag.LLMConfig().FrequencyPenalty,
				PresencePenalty:  ag.LLMConfig().PresencePenalty,
			},
			Messages: state.Messages,
		})
		if r.rec != nil {
			r.rec.RecordLLMCall(model, provider, time.Since(callStart))
		}
		if paused != nil && paused() {
			// A pause that arrived while the call was in flight discards
			// its response and rolls the iteration back, so Resume reruns
			// it from the same messages and emits the same THINKING
			// metadata again.
			state.Iteration--
			return Result{Outcome: OutcomePaused, State: state}
		}
		if err != nil {
			if r.rec != nil {
				r.rec.RecordLLMError(model, provider, "provider_error")
				r.rec.RecordIterationError(ag.Name(), "llm_provider_error")
			}
			oe := loomerrors.LLMProviderError("reasoning", "ChatCompletion", "LLM call failed", err)
			return Result{Outcome: OutcomeErrored, Err: oe}
		}
		if r.rec != nil {
			r.rec.RecordIteration(ag.Name())
		}

		promptTokens, completionTokens := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
		if promptTokens == 0 && completionTokens == 0 {
			for _, m := range state.Messages {
				promptTokens += r.tokens.count(m.Content)
			}
			completionTokens = r.tokens.count(resp.Content)
		}
		t.RecordIteration(promptTokens, completionTokens)
		if r.rec != nil {
			r.rec.RecordLLMTokens(model, provider, promptTokens, completionTokens)
		}

		r.store.AppendAgentStatus(ag, agent.StatusThinkingEnd, nil)
		state.Messages = append(state.Messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content})

		out, variant, perr := parseOutput(resp.Content)
		if perr != nil {
			r.store.AppendAgentStatus(ag, agent.StatusWeirdLLMOutput, map[string]any{"iteration": i, "raw": resp.Content})
			state.Messages = append(state.Messages, llm.Message{
				Role:    llm.RoleUser,
				Content: "INVALID_JSON_FEEDBACK: your previous response was not valid JSON matching thought/observation/final_answer — " + perr.Error(),
			})
			continue
		}

		switch variant {
		case VariantFinalAnswer:
			r.store.AppendAgentStatus(ag, agent.StatusTaskCompleted, map[string]any{"final_answer": out.FinalAnswer})
			return Result{Outcome: OutcomeDone, FinalAnswer: out.FinalAnswer}

		case VariantObservation:
			r.store.AppendAgentStatus(ag, agent.StatusObserving, map[string]any{"observation": out.Observation})
			if out.IsFinalAnswerReady {
				r.store.AppendAgentStatus(ag, agent.StatusThinkingEnd, nil)
				state.forcedFinalAnswerTurn = true
			}

		case VariantThoughtAction:
			if res, done := r.handleAction(ctx, ag, t, state, out); done {
				return res
			}
		}

		if i == maxIter-1 {
			state.forcedFinalAnswerTurn = true
		}
	}

	oe := loomerrors.IterationLimitExceededError("reasoning", "drive",
		fmt.Sprintf("exhausted %d iterations without a final answer", maxIter))
	return Result{Outcome: OutcomeErrored, Err: oe}
}

// handleAction dispatches the Action|Self-Question branch of a
// Thought+Action turn. It returns done=true only when the loop must
// terminate (block_task); every other case appends a coaching or
// feedback message and lets the caller continue iterating.
func (r *Runtime) handleAction(ctx context.Context, ag *agent.Agent, t *task.Task, state *State, out output) (Result, bool) {
	switch out.Action {
	case selfQuestionAction:
		r.store.AppendAgentStatus(ag, agent.StatusSelfQuestion, map[string]any{"thought": out.Thought})
		state.Messages = append(state.Messages, llm.Message{
			Role:    llm.RoleUser,
			Content: "please answer yourself the question: " + out.Thought,
		})
		return Result{}, false

	case blockTaskAction:
		reason, _ := out.ActionInput["reason"].(string)
		if reason == "" {
			reason = out.Thought
		}
		// Transitioning the task to BLOCKED is the state store's job (it
		// also removes the task from the executing set and appends the
		// TaskStatusUpdate entry); the runtime only reports the signal.
		oe := loomerrors.TaskBlockedError("reasoning", "block_task", reason)
		return Result{Outcome: OutcomeBlocked, BlockReason: reason, Err: oe}, true
	}

	r.store.AppendAgentStatus(ag, agent.StatusUsingTool, map[string]any{"name": out.Action, "input": out.ActionInput})
	tl, ok := r.tools.Lookup(out.Action)
	if !ok {
		state.Messages = append(state.Messages, llm.Message{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("TOOL_NOT_EXIST: no tool named %q is bound to this agent.", out.Action),
		})
		return Result{}, false
	}

	result, err := tl.Invoke(ctx, out.ActionInput)
	if err != nil {
		prefix := "TOOL_ERROR_FEEDBACK"
		if loomerrors.Is(err, loomerrors.KindToolInvocation) {
			prefix = "INVALID_TOOL_INPUT"
		}
		state.Messages = append(state.Messages, llm.Message{
			Role:    llm.RoleUser,
			Content: prefix + ": " + err.Error(),
		})
		return Result{}, false
	}

	t.RecordToolCall()
	r.store.AppendAgentStatus(ag, agent.StatusUsingToolEnd, map[string]any{"name": out.Action, "output": result})
	state.Messages = append(state.Messages, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("tool %s returned: %v", out.Action, result),
	})
	return Result{}, false
}

func cloneMessages(msgs []llm.Message) []llm.Message {
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	return out
}

func systemPrompt(ag *agent.Agent, tools *tool.Registry) string {
	infos := tools.Infos()
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return fmt.Sprintf(
		"You are %s. Role: %s. Goal: %s. Background: %s. Bound tools: %v. "+
			"Respond with exactly one JSON object per turn: "+
			`{"thought":"...","action":"...","action_input":{...}} or `+
			`{"observation":"...","is_final_answer_ready":bool} or `+
			`{"final_answer":"..."}.`,
		ag.Name(), ag.Role(), ag.Goal(), ag.Background(), names,
	)
}

func userPrompt(t *task.Task, workflowContext string) string {
	if workflowContext == "" {
		return t.Description()
	}
	return fmt.Sprintf("%s\n\nFindings and insights from previous tasks:\n%s", t.Description(), workflowContext)
}
