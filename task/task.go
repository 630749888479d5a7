// Package task defines the Task type and its state machine. Tasks are
// created once at team construction and mutated only by the workflow
// controller and the owning agent runtime, through the state store.
package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a task's position in the state machine.
//
//	TODO -> DOING -> DONE                          (happy path)
//	DOING -> PAUSED -> RESUMED -> DOING -> DONE     (pause/resume)
//	DOING -> BLOCKED                                 (terminal by default)
//	DOING -> ERRORED                                 (terminal)
//	* -> TODO                                        (Stop, non-DONE only)
type Status string

const (
	StatusTodo    Status = "TODO"
	StatusDoing   Status = "DOING"
	StatusPaused  Status = "PAUSED"
	StatusResumed Status = "RESUMED"
	StatusBlocked Status = "BLOCKED"
	StatusDone    Status = "DONE"
	StatusErrored Status = "ERRORED"
)

// IsTerminal reports whether no further transition is expected by
// default (BLOCKED and ERRORED are terminal-by-default; DONE always is).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusErrored, StatusBlocked:
		return true
	}
	return false
}

// validTransitions enumerates the edges of the state machine owned by
// the workflow controller. Stop is handled separately since it forces
// every non-DONE task back to TODO regardless of its current status.
var validTransitions = map[Status][]Status{
	StatusTodo:    {StatusDoing},
	StatusDoing:   {StatusPaused, StatusBlocked, StatusErrored, StatusDone},
	StatusPaused:  {StatusResumed, StatusDoing},
	StatusResumed: {StatusDoing},
	StatusBlocked: {},
	StatusDone:    {},
	StatusErrored: {},
}

// CanTransition reports whether from -> to is a legal edge, or a forced
// reset back to TODO (used by Stop).
func CanTransition(from, to Status) bool {
	if to == StatusTodo {
		return from != StatusDone
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Stats accumulates execution statistics for a single task run.
type Stats struct {
	StartedAt          time.Time     `json:"started_at,omitempty"`
	FinishedAt         time.Time     `json:"finished_at,omitempty"`
	Iterations         int           `json:"iterations"`
	PromptTokens       int           `json:"prompt_tokens"`
	CompletionTokens   int           `json:"completion_tokens"`
	ToolCalls          int           `json:"tool_calls"`
	Duration           time.Duration `json:"duration"`
}

// Task is a unit of work bound to one agent, possibly depending on
// other tasks.
type Task struct {
	mu sync.RWMutex

	id             string
	referenceID    string
	description    string
	expectedOutput string

	agentID                string
	dependencies           map[string]struct{}
	allowParallelExecution bool

	status Status
	result string
	stats  Stats

	blockReason string
}

// Config describes a task at team-construction time.
type Config struct {
	ReferenceID            string
	Description            string
	ExpectedOutput         string
	AgentID                string
	Dependencies           []string
	AllowParallelExecution bool
}

// New creates a task in StatusTodo with a fresh opaque id.
func New(cfg Config) *Task {
	deps := make(map[string]struct{}, len(cfg.Dependencies))
	for _, d := range cfg.Dependencies {
		deps[d] = struct{}{}
	}
	return &Task{
		id:                     uuid.NewString(),
		referenceID:            cfg.ReferenceID,
		description:            cfg.Description,
		expectedOutput:         cfg.ExpectedOutput,
		agentID:                cfg.AgentID,
		dependencies:           deps,
		allowParallelExecution: cfg.AllowParallelExecution,
		status:                 StatusTodo,
	}
}

func (t *Task) ID() string          { return t.id }
func (t *Task) ReferenceID() string { return t.referenceID }
func (t *Task) AgentID() string     { return t.agentID }
func (t *Task) AllowParallelExecution() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowParallelExecution
}

// Description returns the task description with interpolation already
// applied by the workflow controller at Start.
func (t *Task) Description() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.description
}

// SetDescription is used by the workflow controller to apply input
// interpolation at Start; it never changes after that point.
func (t *Task) SetDescription(d string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.description = d
}

// AddDependency adds id to the dependency set after construction. Used
// by config loaders that must wire tasks together by reference id
// before every task has a resolved opaque id.
func (t *Task) AddDependency(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dependencies[id] = struct{}{}
}

// Dependencies returns a copy of the dependency id set.
func (t *Task) Dependencies() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.dependencies))
	for d := range t.dependencies {
		out = append(out, d)
	}
	return out
}

func (t *Task) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Task) Result() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

func (t *Task) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

func (t *Task) BlockReason() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.blockReason
}

// Transition moves the task to a new status, enforcing the state
// machine. DONE requires a non-empty result (invariant from the data
// model). Callers hold no lock of their own; Transition is the single
// mutator entry point so state-store callers never race each other.
func (t *Task) Transition(to Status, result string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !CanTransition(t.status, to) {
		return fmt.Errorf("task %s: illegal transition %s -> %s", t.id, t.status, to)
	}
	if to == StatusDone && result == "" {
		return fmt.Errorf("task %s: DONE requires a non-empty result", t.id)
	}

	switch to {
	case StatusDoing:
		if t.stats.StartedAt.IsZero() {
			t.stats.StartedAt = time.Now()
		}
	case StatusDone, StatusErrored, StatusBlocked:
		t.stats.FinishedAt = time.Now()
		if !t.stats.StartedAt.IsZero() {
			t.stats.Duration = t.stats.FinishedAt.Sub(t.stats.StartedAt)
		}
	}

	t.status = to
	if result != "" {
		t.result = result
	}
	return nil
}

// Reset forces the task back to TODO (used by Stop); a DONE task is
// never reset.
func (t *Task) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusDone {
		return
	}
	t.status = StatusTodo
	t.stats = Stats{}
}

// Block marks the task BLOCKED with the given reason.
func (t *Task) Block(reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !CanTransition(t.status, StatusBlocked) {
		return fmt.Errorf("task %s: cannot block from %s", t.id, t.status)
	}
	t.status = StatusBlocked
	t.blockReason = reason
	t.stats.FinishedAt = time.Now()
	return nil
}

// RecordIteration adds token/iteration usage observed during one ReAct
// iteration.
func (t *Task) RecordIteration(promptTokens, completionTokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Iterations++
	t.stats.PromptTokens += promptTokens
	t.stats.CompletionTokens += completionTokens
}

// RecordToolCall increments the tool-call counter.
func (t *Task) RecordToolCall() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.ToolCalls++
}

// Snapshot is the immutable, value-typed view of a Task used by the log
// stream and the cleaned-state projection.
type Snapshot struct {
	ID                     string   `json:"id"`
	ReferenceID            string   `json:"reference_id,omitempty"`
	Description            string   `json:"description"`
	ExpectedOutput         string   `json:"expected_output,omitempty"`
	AgentID                string   `json:"agent_id"`
	Dependencies           []string `json:"dependencies,omitempty"`
	AllowParallelExecution bool     `json:"allow_parallel_execution"`
	Status                 Status   `json:"status"`
	Result                 string   `json:"result,omitempty"`
	Stats                  Stats    `json:"stats"`
	BlockReason            string   `json:"block_reason,omitempty"`
}

// Snapshot takes a consistent point-in-time copy of the task.
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	deps := make([]string, 0, len(t.dependencies))
	for d := range t.dependencies {
		deps = append(deps, d)
	}
	return Snapshot{
		ID:                     t.id,
		ReferenceID:            t.referenceID,
		Description:            t.description,
		ExpectedOutput:         t.expectedOutput,
		AgentID:                t.agentID,
		Dependencies:           deps,
		AllowParallelExecution: t.allowParallelExecution,
		Status:                 t.status,
		Result:                 t.result,
		Stats:                  t.stats,
		BlockReason:            t.blockReason,
	}
}
