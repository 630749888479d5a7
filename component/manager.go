// Package component wires a loaded config.TeamConfig, a set of named
// LLM providers, a shared tool registry, and any workflow-driven
// sub-workflow factories into a ready-to-run *team.Team. It is the
// dependency-injection seam between the declarative YAML layer and the
// orchestration core, adapted from the teacher's component manager.
package component

import (
	"github.com/loomwork/loom/agent"
	"github.com/loomwork/loom/agent/workflowagent"
	"github.com/loomwork/loom/config"
	loomerrors "github.com/loomwork/loom/errors"
	"github.com/loomwork/loom/llm"
	"github.com/loomwork/loom/observability"
	"github.com/loomwork/loom/reasoning"
	"github.com/loomwork/loom/subworkflow"
	"github.com/loomwork/loom/task"
	"github.com/loomwork/loom/team"
	"github.com/loomwork/loom/tool"
	"github.com/loomwork/loom/workflow"
)

// Manager owns the registries a team's agents are built from: named
// LLM providers (keyed by the provider name an agent's llm.provider
// field references), the shared tool registry, and per-agent
// sub-workflow factories for workflow-driven agents.
type Manager struct {
	providers         map[string]llm.Provider
	tools             *tool.Registry
	workflowFactories map[string]workflow.WorkflowFactory
	metrics           *observability.Metrics
}

// NewManager builds a Manager around its three registries. Any of them
// may be nil/empty if the team doesn't need that concern.
func NewManager(providers map[string]llm.Provider, tools *tool.Registry, workflowFactories map[string]workflow.WorkflowFactory) *Manager {
	if providers == nil {
		providers = map[string]llm.Provider{}
	}
	if tools == nil {
		tools = tool.NewRegistry()
	}
	if workflowFactories == nil {
		workflowFactories = map[string]workflow.WorkflowFactory{}
	}
	return &Manager{providers: providers, tools: tools, workflowFactories: workflowFactories}
}

// WithMetrics installs a Prometheus metrics recorder; every built
// team's controller and ReAct runtimes report through it. Returns m
// for chaining at construction time.
func (m *Manager) WithMetrics(metrics *observability.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// BuildTeam constructs every agent and task declared in cfg, binds a
// Runner to each agent according to its kind, and returns the
// resulting Team along with lookup maps by the config's human names.
func (m *Manager) BuildTeam(cfg *config.TeamConfig) (*team.Team, map[string]*agent.Agent, map[string]*task.Task, error) {
	store, log, agentsByName, tasksByRef, err := config.Build(cfg)
	if err != nil {
		return nil, nil, nil, loomerrors.ConfigurationError("component", "BuildTeam", "failed to construct store from config", err)
	}

	runners := make(map[string]workflow.Runner, len(agentsByName))
	for name, ag := range agentsByName {
		ac := cfg.Agents[name]
		switch ag.Kind() {
		case agent.KindWorkflowDriven:
			factory, ok := m.workflowFactories[name]
			if !ok {
				return nil, nil, nil, loomerrors.ConfigurationError("component", "BuildTeam",
					"no sub-workflow factory bound for workflow-driven agent "+name, nil)
			}
			runners[ag.ID()] = workflow.NewWorkflowDrivenRunner(workflowagent.New(store), factory)

		default: // agent.KindReAct
			provider, ok := m.providers[ac.LLM.Provider]
			if !ok {
				return nil, nil, nil, loomerrors.ConfigurationError("component", "BuildTeam",
					"no LLM provider named "+ac.LLM.Provider+" bound for agent "+name, nil)
			}
			rt := reasoning.New(provider, m.tools, store)
			if m.metrics != nil {
				rt.SetRecorder(m.metrics)
			}
			runners[ag.ID()] = workflow.NewReActRunner(rt)
		}
	}

	tm := team.New(store, log, runners)
	if m.metrics != nil {
		tm.SetRecorder(m.metrics)
	}
	return tm, agentsByName, tasksByRef, nil
}

// StubWorkflowFactory returns a WorkflowFactory that always drives the
// same pre-built subworkflow.Workflow regardless of which task it is
// dispatched for. Useful for tests and for CLI users who don't need
// per-task sub-workflow construction.
func StubWorkflowFactory(wf subworkflow.Workflow) workflow.WorkflowFactory {
	return func(_ *task.Task) subworkflow.Workflow { return wf }
}
