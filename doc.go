// Package loom provides a multi-agent workflow orchestrator: a task
// queue with dependency resolution, a parallel-execution controller
// with pause/resume/stop semantics, an append-only subscribable log,
// and a ReAct agent loop alongside a declarative Workflow-Driven
// sub-agent runtime.
//
// # Quick Start
//
// Define a team in YAML:
//
//	name: sum-team
//	agents:
//	  adder:
//	    kind: react
//	    llm:
//	      provider: openai
//	tasks:
//	  - id: t1
//	    agent: adder
//	    description: "add 1 and 1"
//
// Load it, bind an LLM provider, and run it:
//
//	cfg, _ := config.LoadConfig("team.yaml")
//	mgr := component.NewManager(map[string]llm.Provider{"openai": provider}, nil, nil)
//	tm, _, _, _ := mgr.BuildTeam(cfg)
//	tm.Start(nil)
//
// Or drive it over HTTP:
//
//	loom serve --config team.yaml
//
// # Architecture
//
// A Team wires a State Store, a Log Stream, a Task Queue, and a
// Workflow Controller together behind a small Public Surface
// (Start/Pause/Resume/Stop/SetEnv/Subscribe/GetState). The Controller
// runs as a single orchestrator goroutine driven by a command channel,
// dispatching admitted tasks to bounded worker goroutines that each
// drive either a ReAct loop or a Workflow-Driven sub-agent to
// completion, suspension, or failure.
//
// # Scope
//
// loom is an in-process orchestration engine. It has no durable
// persistence, no distributed execution, no authentication, and makes
// no prompt-correctness guarantees — LLM clients, tools, and
// sub-workflow implementations are supplied by the caller.
package loom
