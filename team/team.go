// Package team is the Public Surface (spec §4.6): the single façade an
// external caller drives a workflow through. It wires together the
// Workflow Controller, the Task Queue, the State Store and the Log
// Stream without exposing any of their internals, and is the only
// package most callers (the CLI, the HTTP server) ever import.
package team

import (
	"github.com/loomwork/loom/logstream"
	"github.com/loomwork/loom/queue"
	"github.com/loomwork/loom/statestore"
	"github.com/loomwork/loom/workflow"
)

// Team is a constructed, ready-to-run workflow: its tasks and agents
// are already registered with the state store, and its runners are
// already bound to the workflow controller.
type Team struct {
	store *statestore.Store
	log   *logstream.Stream
	queue *queue.Queue
	ctrl  *workflow.Controller
}

// New builds a Team around an already-populated store (tasks and
// agents registered) and a runner bound per agent. Call Close when the
// team is no longer needed to stop its orchestrator goroutine.
func New(store *statestore.Store, log *logstream.Stream, runners map[string]workflow.Runner) *Team {
	q := queue.New(store)
	ctrl := workflow.New(store, q, runners, nil)
	return &Team{store: store, log: log, queue: q, ctrl: ctrl}
}

// SetRecorder installs a queue/controller metrics Recorder on the
// underlying workflow Controller.
func (t *Team) SetRecorder(r workflow.Recorder) {
	t.ctrl.SetRecorder(r)
}

// Start begins a fresh run, interpolating {placeholder} tokens in task
// descriptions from inputs.
func (t *Team) Start(inputs map[string]string) error {
	return t.ctrl.Start(inputs)
}

// Pause signals every in-flight agent runtime to suspend at its next
// boundary.
func (t *Team) Pause() error {
	return t.ctrl.Pause()
}

// Resume continues a paused team, replaying every PAUSED task's saved
// continuation.
func (t *Team) Resume() error {
	return t.ctrl.Resume()
}

// Stop cancels every in-flight runtime and resets every non-DONE task
// back to TODO.
func (t *Team) Stop() error {
	return t.ctrl.Stop()
}

// SetEnv patches every agent's env atomically; the next Agent.Env read
// sees the patch. LLM requests do not carry env values.
func (t *Team) SetEnv(kv map[string]string) error {
	return t.ctrl.SetEnv(kv)
}

// SetLogLevel records the log level surfaced through GetCleanedState.
// Purely informational: callers configure the real process logger
// separately (see logging.Init) and report that choice here.
func (t *Team) SetLogLevel(level string) {
	t.store.SetLogLevel(level)
}

// Subscribe registers listener to be invoked whenever selector's
// projection of the workflow log changes by value. Returns an
// unsubscribe handle.
func (t *Team) Subscribe(selector logstream.Selector, listener logstream.Listener) logstream.Unsubscribe {
	return t.log.Subscribe(selector, listener)
}

// GetState returns every log entry appended so far, in order — the raw
// (uncleaned) state.
func (t *Team) GetState() []logstream.Entry {
	return t.log.Snapshot()
}

// GetCleanedState returns the stable snapshot projection exposed to
// observers: tasks, agents, logs, team status, workflow context and
// inputs, with the executing/pending id-sets and any runtime-only
// handles stripped out.
func (t *Team) GetCleanedState() statestore.CleanedState {
	return t.store.GetCleanedState()
}

// Close stops the team's orchestrator goroutine. It does not cancel
// in-flight work; call Stop first if that is required.
func (t *Team) Close() {
	t.ctrl.Close()
}
