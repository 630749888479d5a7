// Package logstream implements the append-only, order-preserving
// workflow log and its selector-based subscription mechanism (spec
// §4.1). Every entry is assigned the next sequence index under a single
// mutex, so the stream is linearizable; per-subscription dispatch is
// serialized in its own goroutine so a slow listener never backpressures
// another subscriber or the appender itself.
package logstream

import (
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/loomwork/loom/agent"
	"github.com/loomwork/loom/task"
)

// Type identifies which of the three log entry shapes an Entry carries.
type Type string

const (
	TypeWorkflowStatusUpdate Type = "WorkflowStatusUpdate"
	TypeTaskStatusUpdate     Type = "TaskStatusUpdate"
	TypeAgentStatusUpdate    Type = "AgentStatusUpdate"
)

// WorkflowStatus is the team-level lifecycle status carried by
// WorkflowStatusUpdate entries.
type WorkflowStatus string

const (
	WorkflowInitial  WorkflowStatus = "INITIAL"
	WorkflowRunning  WorkflowStatus = "RUNNING"
	WorkflowPaused   WorkflowStatus = "PAUSED"
	WorkflowStopping WorkflowStatus = "STOPPING"
	WorkflowStopped  WorkflowStatus = "STOPPED"
	WorkflowErrored  WorkflowStatus = "ERRORED"
	WorkflowFinished WorkflowStatus = "FINISHED"
	WorkflowBlocked  WorkflowStatus = "BLOCKED"
)

// Entry is a single append-only log record. Once appended it is never
// mutated or reordered.
type Entry struct {
	Seq       uint64    `json:"seq"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"log_type"`

	// Populated according to Type.
	Task           *task.Snapshot    `json:"task,omitempty"`
	TaskStatus     task.Status       `json:"task_status,omitempty"`
	Agent          *agent.Snapshot   `json:"agent,omitempty"`
	AgentStatus    agent.Status      `json:"agent_status,omitempty"`
	AgentMetadata  map[string]any    `json:"agent_metadata,omitempty"`
	WorkflowStatus WorkflowStatus    `json:"workflow_status,omitempty"`
}

// Selector projects a slice of entries down to whatever value a
// subscriber cares about. Two projections that compare deeply equal are
// treated as "unchanged" and do not trigger the listener.
type Selector func(entries []Entry) any

// Listener is invoked with a projection whenever it changes by value.
type Listener func(value any)

// Unsubscribe detaches a listener from the stream.
type Unsubscribe func()

// cmpTimeOpt lets cmp.Equal compare time.Time by wall-clock equality
// instead of panicking on its unexported monotonic-reading fields.
var cmpTimeOpt = cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })

type subscription struct {
	selector Selector
	listener Listener
	queue    chan struct{}
	lastSet  bool
	last     any
	mu       sync.Mutex
	stopped  bool
}

// Stream is the append-only workflow log.
type Stream struct {
	mu      sync.Mutex
	entries []Entry
	nextSeq uint64
	subs    map[*subscription]struct{}
	logger  *slog.Logger
}

// New creates an empty log stream.
func New(logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		subs:   make(map[*subscription]struct{}),
		logger: logger,
	}
}

// Append adds entry with the next sequence index and wakes subscribers.
// Dispatch to each subscription is asynchronous and serialized per
// subscription; Append itself never blocks on a listener.
func (s *Stream) Append(entry Entry) Entry {
	s.mu.Lock()
	entry.Seq = s.nextSeq
	s.nextSeq++
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	s.entries = append(s.entries, entry)
	subs := make([]*subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		s.wake(sub)
	}
	return entry
}

// Snapshot returns every entry appended so far, in order.
func (s *Stream) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries appended so far.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Subscribe registers listener to be called whenever selector's
// projection of the entry history changes by value. The listener
// receives the current projection immediately if it differs from the
// zero value, then on every subsequent change.
func (s *Stream) Subscribe(selector Selector, listener Listener) Unsubscribe {
	sub := &subscription{
		selector: selector,
		listener: listener,
		queue:    make(chan struct{}, 1),
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go s.drain(sub)
	s.wake(sub)

	return func() {
		s.detach(sub)
	}
}

// wake enqueues a notification for sub without blocking; if one is
// already pending, the new wake is coalesced into it since only the
// latest projection value matters.
func (s *Stream) wake(sub *subscription) {
	select {
	case sub.queue <- struct{}{}:
	default:
	}
}

func (s *Stream) drain(sub *subscription) {
	for range sub.queue {
		s.dispatch(sub)
	}
}

func (s *Stream) dispatch(sub *subscription) {
	value := sub.selector(s.Snapshot())

	sub.mu.Lock()
	if sub.stopped {
		sub.mu.Unlock()
		return
	}
	first := !sub.lastSet
	changed := first || !cmp.Equal(sub.last, value, cmpTimeOpt)
	if changed {
		sub.last = value
		sub.lastSet = true
	}
	sub.mu.Unlock()

	if !changed {
		return
	}
	if first && (value == nil || reflect.ValueOf(value).IsZero()) {
		return
	}

	s.safeInvoke(sub, value)
}

func (s *Stream) safeInvoke(sub *subscription, value any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("log stream listener panicked; unsubscribing", "panic", r)
			s.detach(sub)
		}
	}()
	sub.listener(value)
}

// detach removes sub from dispatch and stops its drain goroutine. Safe
// to call more than once (e.g. from both a panic and an explicit
// Unsubscribe).
func (s *Stream) detach(sub *subscription) {
	s.mu.Lock()
	_, present := s.subs[sub]
	delete(s.subs, sub)
	s.mu.Unlock()
	if !present {
		return
	}
	sub.mu.Lock()
	already := sub.stopped
	sub.stopped = true
	sub.mu.Unlock()
	if !already {
		close(sub.queue)
	}
}
