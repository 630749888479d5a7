// Package workflow implements the Workflow Controller (spec §4.3): the
// top-level Start/Pause/Resume/Stop/SetEnv lifecycle, input
// interpolation, and the team status state machine. It owns the single
// logical orchestrator thread described in §5 — a goroutine draining a
// command channel — so every State Store mutation and Log Stream
// append happens from one place, giving linearizability without a
// global lock.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"

	loomerrors "github.com/loomwork/loom/errors"
	"github.com/loomwork/loom/logstream"
	"github.com/loomwork/loom/queue"
	"github.com/loomwork/loom/statestore"
	"github.com/loomwork/loom/task"
	"golang.org/x/sync/semaphore"
)

const defaultMaxConcurrentWorkers = 32

var placeholderPattern = regexp.MustCompile(`\{[a-zA-Z0-9_]+\}`)

// Recorder receives queue/controller metrics as the Controller runs.
// Satisfied by *observability.Metrics; nil by default (no-op).
type Recorder interface {
	SetQueueDepth(n int)
	SetTasksDoing(n int)
	RecordTaskTransition(from, to string)
}

// Controller is the top-level lifecycle owner for one team. It is safe
// for concurrent use: every public method serializes through the
// orchestrator goroutine.
type Controller struct {
	store   *statestore.Store
	queue   *queue.Queue
	runners map[string]Runner // by agent id
	logger  *slog.Logger

	cmd  chan func()
	quit chan struct{}
	wg   sync.WaitGroup // in-flight worker goroutines

	sem *semaphore.Weighted
	rec Recorder

	// Orchestrator-goroutine-only state: touched exclusively from
	// inside commands run on cmd, never from a worker goroutine.
	epoch   int
	cancels map[string]context.CancelFunc

	stopping atomic.Bool
}

// SetRecorder installs a metrics Recorder. Safe to call once before
// Start; not safe to change concurrently with a running workflow.
func (c *Controller) SetRecorder(r Recorder) { c.rec = r }

func (c *Controller) recordTasksDoing() {
	if c.rec == nil {
		return
	}
	c.rec.SetTasksDoing(len(c.cancels))
}

func (c *Controller) recordQueueDepth() {
	if c.rec == nil {
		return
	}
	depth := 0
	for _, t := range c.store.Tasks() {
		if t.Status() == task.StatusTodo {
			depth++
		}
	}
	c.rec.SetQueueDepth(depth)
}

// New builds a Controller. runners maps agent id to the Runner that
// drives that agent's tasks (a *ReActRunner or *WorkflowDrivenRunner).
func New(store *statestore.Store, q *queue.Queue, runners map[string]Runner, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		store:   store,
		queue:   q,
		runners: runners,
		logger:  logger,
		cmd:     make(chan func()),
		quit:    make(chan struct{}),
		sem:     semaphore.NewWeighted(defaultMaxConcurrentWorkers),
		cancels: make(map[string]context.CancelFunc),
	}
	go c.orchestrate()
	return c
}

func (c *Controller) orchestrate() {
	for {
		select {
		case fn := <-c.cmd:
			fn()
		case <-c.quit:
			return
		}
	}
}

// run submits fn to the orchestrator goroutine and blocks until it
// completes, returning whatever error fn reports.
func (c *Controller) run(fn func() error) error {
	done := make(chan error, 1)
	c.cmd <- func() { done <- fn() }
	return <-done
}

// Close stops the orchestrator goroutine. It does not cancel in-flight
// workers; call Stop first if that is required.
func (c *Controller) Close() {
	close(c.quit)
}

// Start begins a fresh run (spec §4.3: precondition status ∈ {INITIAL,
// STOPPED, FINISHED}). Task descriptions are interpolated against
// inputs; unresolved {placeholder} tokens are left literal.
func (c *Controller) Start(inputs map[string]string) error {
	return c.run(func() error {
		status := c.store.TeamStatus()
		if status != logstream.WorkflowInitial && status != logstream.WorkflowStopped && status != logstream.WorkflowFinished {
			return loomerrors.ConfigurationError("workflow", "Start",
				fmt.Sprintf("cannot Start from status %s", status), nil)
		}
		if err := c.queue.CheckCycles(); err != nil {
			return loomerrors.ConfigurationError("workflow", "Start", "dependency graph is invalid", err)
		}

		c.store.SetInputs(inputs)
		for _, t := range c.store.Tasks() {
			t.SetDescription(interpolate(t.Description(), inputs))
		}

		c.epoch++
		c.stopping.Store(false)
		c.store.SetPaused(false)
		c.store.SetTeamStatus(logstream.WorkflowRunning)
		c.admitAndDispatch()
		return nil
	})
}

// Pause implements spec §4.3's Pause op.
func (c *Controller) Pause() error {
	return c.run(func() error {
		if c.store.TeamStatus() != logstream.WorkflowRunning {
			return loomerrors.ConfigurationError("workflow", "Pause", "team is not RUNNING", nil)
		}
		c.store.SetPaused(true)
		c.store.SetTeamStatus(logstream.WorkflowPaused)
		for id := range c.store.ExecutingTaskIDs() {
			t, ok := c.store.Task(id)
			if !ok || t.Status() != task.StatusDoing {
				continue
			}
			if err := c.store.PauseTask(id); err != nil {
				c.logger.Error("pause task", "task", id, "error", err)
			}
		}
		return nil
	})
}

// Resume implements spec §4.3's Resume op.
func (c *Controller) Resume() error {
	return c.run(func() error {
		if c.store.TeamStatus() != logstream.WorkflowPaused {
			return loomerrors.ConfigurationError("workflow", "Resume", "team is not PAUSED", nil)
		}
		c.store.SetPaused(false)
		c.store.SetTeamStatus(logstream.WorkflowRunning)

		for _, t := range c.store.Tasks() {
			if t.Status() != task.StatusPaused {
				continue
			}
			if err := c.store.ResumeTask(t.ID()); err != nil {
				c.logger.Error("resume task", "task", t.ID(), "error", err)
				continue
			}
			c.dispatchResume(t.ID())
		}
		c.admitAndDispatch()
		return nil
	})
}

// Stop implements spec §4.3's Stop op: every in-flight runtime is
// cancelled, every non-DONE task resets to TODO, and team status walks
// RUNNING|PAUSED -> STOPPING -> STOPPED.
func (c *Controller) Stop() error {
	return c.run(func() error {
		status := c.store.TeamStatus()
		if status != logstream.WorkflowRunning && status != logstream.WorkflowPaused {
			return loomerrors.ConfigurationError("workflow", "Stop", "team is not RUNNING or PAUSED", nil)
		}
		c.store.SetTeamStatus(logstream.WorkflowStopping)
		c.stopping.Store(true)
		c.epoch++ // any outcome posted by a worker from the old epoch is now discarded
		for id, cancel := range c.cancels {
			cancel()
			delete(c.cancels, id)
		}
		c.store.SetPaused(false)
		c.store.ResetNonDoneTasks()
		c.store.SetTeamStatus(logstream.WorkflowStopped)
		c.stopping.Store(false)
		return nil
	})
}

// SetEnv implements spec §4.3's SetEnv op: patches every agent's env
// atomically, visible to the next Agent.Env read. The ReAct runtime
// does not forward env values to its LLM provider.
func (c *Controller) SetEnv(kv map[string]string) error {
	return c.run(func() error {
		for _, a := range c.store.Agents() {
			a.SetEnv(kv)
		}
		return nil
	})
}

// admitAndDispatch runs one admission pass and dispatches every newly
// admitted task. Must only be called from the orchestrator goroutine.
func (c *Controller) admitAndDispatch() {
	for _, id := range c.queue.Admit() {
		c.dispatchStart(id)
	}
	c.recordQueueDepth()
}

func (c *Controller) dispatchStart(taskID string) {
	c.dispatchWith(taskID, false)
}

func (c *Controller) dispatchResume(taskID string) {
	c.dispatchWith(taskID, true)
}

// dispatchWith spawns a worker goroutine for taskID. Must only be
// called from the orchestrator goroutine (it touches c.cancels and
// reads c.epoch).
func (c *Controller) dispatchWith(taskID string, resume bool) {
	t, ok := c.store.Task(taskID)
	if !ok {
		return
	}
	ag, ok := c.store.Agent(t.AgentID())
	if !ok {
		c.failTask(taskID, loomerrors.ConfigurationError("workflow", "dispatch", "unknown agent for task "+taskID, nil))
		return
	}
	runner, ok := c.runners[ag.ID()]
	if !ok {
		c.failTask(taskID, loomerrors.ConfigurationError("workflow", "dispatch", "no runner bound for agent "+ag.ID(), nil))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancels[taskID] = cancel
	epoch := c.epoch
	workflowContext := c.store.WorkflowContext()
	c.recordTasksDoing()
	c.recordQueueDepth()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return // context cancelled (Stop) before a worker slot freed up
		}
		defer c.sem.Release(1)

		paused := func() bool { return c.store.IsPaused() || c.stopping.Load() }

		var outcome Outcome
		if resume {
			outcome = runner.Resume(ctx, ag, t, paused)
		} else {
			outcome = runner.Start(ctx, ag, t, workflowContext, paused)
		}

		c.cmd <- func() { c.onOutcome(epoch, taskID, outcome) }
	}()
}

// onOutcome applies a worker's result to the state store. Runs on the
// orchestrator goroutine. Outcomes from a stale epoch (a Stop or a new
// Start happened since dispatch) are discarded — this is what makes
// Stop-triggered cancellation silent (error kind Cancelled).
func (c *Controller) onOutcome(epoch int, taskID string, outcome Outcome) {
	delete(c.cancels, taskID)
	c.recordTasksDoing()
	if epoch != c.epoch {
		return
	}

	switch outcome.Status {
	case StatusDone:
		if err := c.store.FinishTask(taskID, outcome.Result); err != nil {
			c.logger.Error("finish task", "task", taskID, "error", err)
			return
		}
		if c.rec != nil {
			c.rec.RecordTaskTransition("DOING", "DONE")
		}
		c.maybeFinishTeam()
		c.admitAndDispatch()

	case StatusPaused:
		// The task was already marked PAUSED synchronously by Pause();
		// nothing further to do here — its continuation lives inside
		// the Runner, ready for the next dispatchResume.

	case StatusBlocked:
		if err := c.store.BlockTask(taskID, outcome.Reason); err != nil {
			c.logger.Error("block task", "task", taskID, "error", err)
			return
		}
		if c.rec != nil {
			c.rec.RecordTaskTransition("DOING", "BLOCKED")
		}
		c.store.SetTeamStatus(logstream.WorkflowBlocked)

	default: // StatusErrored
		if c.rec != nil {
			c.rec.RecordTaskTransition("DOING", "ERRORED")
		}
		c.failTask(taskID, outcome.Err)
	}
	c.recordQueueDepth()
}

func (c *Controller) failTask(taskID string, err error) {
	msg := "task failed"
	if err != nil {
		msg = err.Error()
	}
	if serr := c.store.ErrorTask(taskID, msg); serr != nil {
		c.logger.Error("error task", "task", taskID, "error", serr)
		return
	}
	c.store.SetTeamStatus(logstream.WorkflowErrored)
}

// maybeFinishTeam marks the team FINISHED once every task is DONE,
// recording the last task's result (in declaration order) as the
// team-level workflowResult.
func (c *Controller) maybeFinishTeam() {
	tasks := c.store.Tasks()
	for _, t := range tasks {
		if t.Status() != task.StatusDone {
			return
		}
	}
	if len(tasks) > 0 {
		c.store.SetWorkflowResult(tasks[len(tasks)-1].Result())
	}
	c.store.SetTeamStatus(logstream.WorkflowFinished)
}

func interpolate(description string, inputs map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(description, func(token string) string {
		key := token[1 : len(token)-1]
		if v, ok := inputs[key]; ok {
			return v
		}
		return token
	})
}

