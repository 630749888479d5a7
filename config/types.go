// Package config loads a team's agents and tasks from a YAML
// definition, mirroring the teacher's Validate()/SetDefaults()
// configuration pattern.
package config

import "fmt"

// LLMConfig mirrors agent.LLMConfig as YAML-decodable fields.
type LLMConfig struct {
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	Temperature      float64 `yaml:"temperature"`
	TopP             float64 `yaml:"top_p"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
	PresencePenalty  float64 `yaml:"presence_penalty"`
}

// SetDefaults fills in the sampling parameters a team author usually
// leaves unset.
func (c *LLMConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.TopP == 0 {
		c.TopP = 1
	}
}

// AgentConfig declares one agent at team-definition time.
type AgentConfig struct {
	Role          string            `yaml:"role"`
	Goal          string            `yaml:"goal"`
	Background    string            `yaml:"background"`
	Kind          string            `yaml:"kind"` // "react" or "workflow_driven"
	MaxIterations int               `yaml:"max_iterations"`
	Tools         []string          `yaml:"tools"`
	LLM           LLMConfig         `yaml:"llm"`
	Env           map[string]string `yaml:"env"`
}

// Validate checks that kind is one of the two the runtime understands.
func (c *AgentConfig) Validate(name string) error {
	switch c.Kind {
	case "", "react", "workflow_driven":
	default:
		return fmt.Errorf("agent %q: unknown kind %q", name, c.Kind)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("agent %q: max_iterations cannot be negative", name)
	}
	return nil
}

// SetDefaults fills unset fields with the runtime's own defaults.
func (c *AgentConfig) SetDefaults() {
	if c.Kind == "" {
		c.Kind = "react"
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 10
	}
	c.LLM.SetDefaults()
}

// TaskConfig declares one task at team-definition time. ID is a
// human-chosen reference id used only to wire DependsOn edges before
// tasks are assigned their opaque runtime ids.
type TaskConfig struct {
	ID                     string   `yaml:"id"`
	Description            string   `yaml:"description"`
	ExpectedOutput         string   `yaml:"expected_output"`
	Agent                  string   `yaml:"agent"`
	DependsOn              []string `yaml:"depends_on"`
	AllowParallelExecution bool     `yaml:"allow_parallel_execution"`
}

// Validate checks that a task names an agent and carries a non-empty
// id; id uniqueness across tasks is not checked here.
func (c *TaskConfig) Validate(agents map[string]AgentConfig) error {
	if c.ID == "" {
		return fmt.Errorf("task has no id")
	}
	if c.Agent == "" {
		return fmt.Errorf("task %q: no agent bound", c.ID)
	}
	if _, ok := agents[c.Agent]; !ok {
		return fmt.Errorf("task %q: unknown agent %q", c.ID, c.Agent)
	}
	return nil
}

// TeamConfig is the root YAML document: a named set of agents and the
// tasks they execute.
type TeamConfig struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Agents      map[string]AgentConfig `yaml:"agents"`
	Tasks       []TaskConfig           `yaml:"tasks"`
}

// Validate checks referential integrity: every task names a declared
// agent, every DependsOn names a declared task, and no two tasks share
// an id.
func (c *TeamConfig) Validate() error {
	for name, a := range c.Agents {
		ac := a
		if err := ac.Validate(name); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(c.Tasks))
	for _, t := range c.Tasks {
		tc := t
		if err := tc.Validate(c.Agents); err != nil {
			return err
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate task id %q", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	for _, t := range c.Tasks {
		for _, dep := range t.DependsOn {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("task %q depends on unknown task %q", t.ID, dep)
			}
		}
	}
	return nil
}

// SetDefaults fills in every agent's unset fields.
func (c *TeamConfig) SetDefaults() {
	for name, a := range c.Agents {
		ac := a
		ac.SetDefaults()
		c.Agents[name] = ac
	}
}
