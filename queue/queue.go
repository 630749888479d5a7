// Package queue implements the dependency-aware admission controller
// described in spec §4.2: given the live task set and the
// executing/pending id-sets, it decides which TODO tasks may become
// DOING, honoring per-task allowParallelExecution opt-in, pause and
// stop interception, and declaration-order tie-breaking.
package queue

import (
	"fmt"

	"github.com/loomwork/loom/logstream"
	"github.com/loomwork/loom/statestore"
	"github.com/loomwork/loom/task"
)

// Queue evaluates the admission algorithm against a state store. It
// holds no state of its own beyond the store reference: re-running
// Admit is always safe and idempotent with respect to the store's
// current contents.
type Queue struct {
	store *statestore.Store
}

// New creates a queue bound to store.
func New(store *statestore.Store) *Queue {
	return &Queue{store: store}
}

// CheckCycles rejects a task set with a cyclic dependency graph. The
// workflow controller calls it at every Start.
func (q *Queue) CheckCycles() error {
	if err := q.store.CycleCheck(); err != nil {
		return fmt.Errorf("dependency graph validation: %w", err)
	}
	return nil
}

// candidates returns every TODO task whose dependencies are all DONE,
// in declaration order.
func (q *Queue) candidates() []*task.Task {
	var out []*task.Task
	for _, t := range q.store.Tasks() {
		if t.Status() != task.StatusTodo {
			continue
		}
		ready := true
		for _, depID := range t.Dependencies() {
			dep, ok := q.store.Task(depID)
			if !ok || dep.Status() != task.StatusDone {
				ready = false
				break
			}
		}
		if ready {
			out = append(out, t)
		}
	}
	return out
}

// Admit runs one pass of the admission algorithm and returns the ids of
// tasks newly moved from TODO to DOING, in the order they were
// admitted. It is a no-op (returns nil) while the queue is paused or
// the team is stopping.
func (q *Queue) Admit() []string {
	if q.store.IsPaused() {
		return nil
	}
	if status := q.store.TeamStatus(); status == logstream.WorkflowStopping || status == logstream.WorkflowStopped || status == logstream.WorkflowBlocked {
		return nil
	}

	candidates := q.candidates()
	if len(candidates) == 0 {
		return nil
	}

	executing := q.store.ExecutingTaskIDs()

	var toAdmit []*task.Task
	if len(executing) == 0 {
		first := candidates[0]
		if first.AllowParallelExecution() {
			for _, c := range candidates {
				if c.AllowParallelExecution() {
					toAdmit = append(toAdmit, c)
				}
			}
		} else {
			toAdmit = []*task.Task{first}
		}
	} else {
		for _, c := range candidates {
			if c.AllowParallelExecution() {
				toAdmit = append(toAdmit, c)
			}
		}
	}

	var admitted []string
	for _, t := range toAdmit {
		if err := q.store.AdmitTask(t.ID()); err != nil {
			continue
		}
		admitted = append(admitted, t.ID())
	}
	return admitted
}
