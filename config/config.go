package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loomwork/loom/agent"
	"github.com/loomwork/loom/logstream"
	"github.com/loomwork/loom/statestore"
	"github.com/loomwork/loom/task"
)

// LoadConfig loads and validates a team definition from a YAML file.
func LoadConfig(path string) (*TeamConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return LoadConfigFromString(string(data))
}

// LoadConfigFromString loads and validates a team definition from a
// YAML document already in memory.
func LoadConfigFromString(yamlContent string) (*TeamConfig, error) {
	var cfg TeamConfig
	if err := yaml.Unmarshal([]byte(yamlContent), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Build constructs a state store (and backing log stream) from cfg:
// every declared agent and task is registered, and DependsOn reference
// ids are resolved into the tasks' opaque dependency ids after every
// task has been created. agentsByName and tasksByRef let callers bind
// Runners and inspect the result by the config's human-chosen names.
func Build(cfg *TeamConfig) (store *statestore.Store, log *logstream.Stream, agentsByName map[string]*agent.Agent, tasksByRef map[string]*task.Task, err error) {
	log = logstream.New(nil)
	store = statestore.New(log)

	agentsByName = make(map[string]*agent.Agent, len(cfg.Agents))
	for name, ac := range cfg.Agents {
		ag := agent.New(agent.Config{
			Name:          name,
			Role:          ac.Role,
			Goal:          ac.Goal,
			Background:    ac.Background,
			Kind:          agent.Kind(ac.Kind),
			MaxIterations: ac.MaxIterations,
			Tools:         ac.Tools,
			LLMConfig: agent.LLMConfig{
				Provider:         ac.LLM.Provider,
				Model:            ac.LLM.Model,
				Temperature:      ac.LLM.Temperature,
				TopP:             ac.LLM.TopP,
				FrequencyPenalty: ac.LLM.FrequencyPenalty,
				PresencePenalty:  ac.LLM.PresencePenalty,
			},
			Env: ac.Env,
		})
		store.AddAgent(ag)
		agentsByName[name] = ag
	}

	tasksByRef = make(map[string]*task.Task, len(cfg.Tasks))
	for _, tc := range cfg.Tasks {
		ag, ok := agentsByName[tc.Agent]
		if !ok {
			return nil, nil, nil, nil, fmt.Errorf("task %q: unknown agent %q", tc.ID, tc.Agent)
		}
		tk := task.New(task.Config{
			ReferenceID:            tc.ID,
			Description:            tc.Description,
			ExpectedOutput:         tc.ExpectedOutput,
			AgentID:                ag.ID(),
			AllowParallelExecution: tc.AllowParallelExecution,
		})
		store.AddTask(tk)
		tasksByRef[tc.ID] = tk
	}

	// DependsOn names reference ids; resolve them only after every task
	// exists so declaration order in YAML doesn't matter.
	for _, tc := range cfg.Tasks {
		tk := tasksByRef[tc.ID]
		for _, dep := range tc.DependsOn {
			depTask, ok := tasksByRef[dep]
			if !ok {
				return nil, nil, nil, nil, fmt.Errorf("task %q depends on unknown task %q", tc.ID, dep)
			}
			tk.AddDependency(depTask.ID())
		}
	}

	return store, log, agentsByName, tasksByRef, nil
}
