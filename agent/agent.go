// Package agent defines the Agent type: identity, configuration and the
// runtime-observed status reported in AgentStatusUpdate log entries. It
// deliberately carries no execution logic — the ReAct loop lives in
// package reasoning, the workflow-driven loop in agent/workflowagent.
package agent

import (
	"sync"

	"github.com/google/uuid"
)

// Kind distinguishes the two agent runtimes the spec defines.
type Kind string

const (
	KindReAct          Kind = "react"
	KindWorkflowDriven Kind = "workflow_driven"
)

// Status is the last observed runtime status of an agent, carried on
// AgentStatusUpdate log entries.
type Status string

const (
	StatusIdle           Status = "IDLE"
	StatusThinking       Status = "THINKING"
	StatusThinkingEnd    Status = "THINKING_END"
	StatusUsingTool      Status = "USING_TOOL"
	StatusUsingToolEnd   Status = "USING_TOOL_END"
	StatusObserving      Status = "OBSERVING"
	StatusSelfQuestion   Status = "SELF_QUESTION"
	StatusTaskCompleted  Status = "TASK_COMPLETED"
	StatusPaused         Status = "PAUSED"
	StatusWeirdLLMOutput Status = "WEIRD_LLM_OUTPUT"

	// Workflow-driven runtime statuses.
	StatusWorkflowStepStarted   Status = "WORKFLOW_STEP_STARTED"
	StatusWorkflowStepCompleted Status = "WORKFLOW_STEP_COMPLETED"
	StatusWorkflowStepFailed    Status = "WORKFLOW_STEP_FAILED"
)

// LLMConfig names the provider/model an agent's ReAct loop calls, and
// the sampling parameters forwarded on every ChatCompletion request.
type LLMConfig struct {
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	Temperature      float64 `yaml:"temperature"`
	TopP             float64 `yaml:"top_p"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
	PresencePenalty  float64 `yaml:"presence_penalty"`
}

// Env carries provider credentials and proxy URLs. It may be replaced
// atomically at any time via Agent.SetEnv; every later Env() read sees
// the replacement. The ReAct runtime does not pass Env to its
// llm.Provider: llm.Request has no field for it.
type Env map[string]string

// Clone returns a defensive copy.
func (e Env) Clone() Env {
	out := make(Env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Agent is a policy + capabilities bundle that executes tasks.
type Agent struct {
	mu sync.RWMutex

	id         string
	name       string
	role       string
	goal       string
	background string

	kind          Kind
	maxIterations int
	tools         []string // bound tool names as configured; the ReAct runtime offers every tool in its own registry and does not read this list

	llmConfig LLMConfig
	env       Env

	status Status
}

// Config describes an agent at team-construction time.
type Config struct {
	Name          string
	Role          string
	Goal          string
	Background    string
	Kind          Kind
	MaxIterations int
	Tools         []string
	LLMConfig     LLMConfig
	Env           Env
}

const defaultMaxIterations = 10

// New creates an agent with a fresh opaque id.
func New(cfg Config) *Agent {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	env := cfg.Env
	if env == nil {
		env = Env{}
	}
	return &Agent{
		id:            uuid.NewString(),
		name:          cfg.Name,
		role:          cfg.Role,
		goal:          cfg.Goal,
		background:    cfg.Background,
		kind:          cfg.Kind,
		maxIterations: maxIter,
		tools:         append([]string(nil), cfg.Tools...),
		llmConfig:     cfg.LLMConfig,
		env:           env.Clone(),
		status:        StatusIdle,
	}
}

func (a *Agent) ID() string         { return a.id }
func (a *Agent) Name() string       { return a.name }
func (a *Agent) Role() string       { return a.role }
func (a *Agent) Goal() string       { return a.goal }
func (a *Agent) Background() string { return a.background }
func (a *Agent) Kind() Kind         { return a.kind }

func (a *Agent) MaxIterations() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.maxIterations
}

func (a *Agent) Tools() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.tools...)
}

// LLMConfig returns the current provider/model configuration.
func (a *Agent) LLMConfig() LLMConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.llmConfig
}

// SetLLMConfig atomically replaces the provider/model configuration.
func (a *Agent) SetLLMConfig(cfg LLMConfig) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.llmConfig = cfg
}

// Env returns a defensive copy of the current environment.
func (a *Agent) Env() Env {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.env.Clone()
}

// SetEnv atomically patches the environment with kv, leaving unrelated
// keys untouched. The result is visible to the next read by any
// in-flight runtime.
func (a *Agent) SetEnv(kv map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range kv {
		a.env[k] = v
	}
}

func (a *Agent) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// SetStatus records the last observed runtime status.
func (a *Agent) SetStatus(s Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

// Snapshot is the immutable, value-typed view of an Agent exposed
// through the log stream and the cleaned-state projection. It never
// carries env secrets.
type Snapshot struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       string `json:"role,omitempty"`
	Goal       string `json:"goal,omitempty"`
	Background string `json:"background,omitempty"`
	Kind       Kind   `json:"kind"`
	Status     Status `json:"status"`
}

func (a *Agent) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{
		ID:         a.id,
		Name:       a.name,
		Role:       a.role,
		Goal:       a.goal,
		Background: a.background,
		Kind:       a.kind,
		Status:     a.status,
	}
}
