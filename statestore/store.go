// Package statestore is the in-memory authoritative state of a team:
// tasks, agents, inputs, the running workflow context, and the
// executing/pending id-sets the task queue uses for admission. It is
// the sole owner of tasks, agents and the log; every mutation goes
// through one of its typed methods. Task and team status transitions
// are mirrored onto the log stream, except ResetNonDoneTasks, which
// appends nothing; SetInputs and SetPaused are not logged either.
package statestore

import (
	"fmt"
	"strings"
	"sync"

	"github.com/loomwork/loom/agent"
	"github.com/loomwork/loom/logstream"
	"github.com/loomwork/loom/task"
)

// Store holds every task and agent in a team plus the bookkeeping the
// task queue and workflow controller need.
type Store struct {
	mu sync.RWMutex

	log *logstream.Stream

	taskOrder []string
	tasks     map[string]*task.Task

	agentOrder []string
	agents     map[string]*agent.Agent

	inputs          map[string]string
	workflowContext strings.Builder
	workflowResult  string
	logLevel        string

	teamStatus logstream.WorkflowStatus

	executingTasks map[string]struct{}
	pendingTasks   map[string]struct{}

	isPaused bool
}

// New creates an empty store backed by log.
func New(log *logstream.Stream) *Store {
	return &Store{
		log:            log,
		tasks:          make(map[string]*task.Task),
		agents:         make(map[string]*agent.Agent),
		inputs:         make(map[string]string),
		logLevel:       "info",
		teamStatus:     logstream.WorkflowInitial,
		executingTasks: make(map[string]struct{}),
		pendingTasks:   make(map[string]struct{}),
	}
}

// AddTask registers t at construction time, in declaration order.
func (s *Store) AddTask(t *task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID()] = t
	s.taskOrder = append(s.taskOrder, t.ID())
	s.pendingTasks[t.ID()] = struct{}{}
}

// AddAgent registers a at construction time.
func (s *Store) AddAgent(a *agent.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID()] = a
	s.agentOrder = append(s.agentOrder, a.ID())
}

// Task looks up a task by id.
func (s *Store) Task(id string) (*task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// Agent looks up an agent by id.
func (s *Store) Agent(id string) (*agent.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	return a, ok
}

// Tasks returns every task in declaration order.
func (s *Store) Tasks() []*task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*task.Task, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		out = append(out, s.tasks[id])
	}
	return out
}

// Agents returns every agent in declaration order.
func (s *Store) Agents() []*agent.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*agent.Agent, 0, len(s.agentOrder))
	for _, id := range s.agentOrder {
		out = append(out, s.agents[id])
	}
	return out
}

// CycleCheck reports whether the declared dependency graph is a DAG.
func (s *Store) CycleCheck() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(s.taskOrder))

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("cyclic dependency involving task %s", id)
		}
		color[id] = gray
		t, ok := s.tasks[id]
		if !ok {
			return fmt.Errorf("task %s depends on unknown task", id)
		}
		for _, dep := range t.Dependencies() {
			if _, ok := s.tasks[dep]; !ok {
				return fmt.Errorf("task %s depends on unknown task %s", id, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}

	for _, id := range s.taskOrder {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// Inputs returns a copy of the user-supplied key/value map.
func (s *Store) Inputs() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.inputs))
	for k, v := range s.inputs {
		out[k] = v
	}
	return out
}

// SetInputs replaces the inputs map wholesale (called once at Start).
func (s *Store) SetInputs(inputs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = make(map[string]string, len(inputs))
	for k, v := range inputs {
		s.inputs[k] = v
	}
}

// WorkflowContext returns the accumulated narrative of completed task
// results.
func (s *Store) WorkflowContext() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workflowContext.String()
}

func (s *Store) appendWorkflowContext(description, result string) {
	if s.workflowContext.Len() > 0 {
		s.workflowContext.WriteString("\n")
	}
	fmt.Fprintf(&s.workflowContext, "Task: %s / Result: %s", description, result)
}

// WorkflowResult returns the team-level result: the final task's result
// once the team has reached FINISHED, empty otherwise.
func (s *Store) WorkflowResult() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workflowResult
}

// SetWorkflowResult records the team-level result. Called once by the
// workflow controller when every task reaches DONE.
func (s *Store) SetWorkflowResult(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflowResult = result
}

// LogLevel returns the configured log level, surfaced to observers
// through CleanedState.
func (s *Store) LogLevel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logLevel
}

// SetLogLevel records the log level an observer should see in
// CleanedState. Purely informational — it does not itself change what
// the process logs; callers configure the real logger separately
// (see logging.Init) and mirror the choice here.
func (s *Store) SetLogLevel(level string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLevel = level
}

// TeamStatus returns the current team-level workflow status.
func (s *Store) TeamStatus() logstream.WorkflowStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.teamStatus
}

// SetTeamStatus transitions the team status and appends a
// WorkflowStatusUpdate entry.
func (s *Store) SetTeamStatus(status logstream.WorkflowStatus) {
	s.mu.Lock()
	s.teamStatus = status
	s.mu.Unlock()

	s.log.Append(logstream.Entry{
		Type:           logstream.TypeWorkflowStatusUpdate,
		WorkflowStatus: status,
	})
}

// IsPaused reports the task queue's paused flag.
func (s *Store) IsPaused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isPaused
}

// SetPaused sets the task queue's paused flag.
func (s *Store) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isPaused = paused
}

// ExecutingTaskIDs returns the current executing id set.
func (s *Store) ExecutingTaskIDs() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSet(s.executingTasks)
}

// PendingTaskIDs returns the current pending id set.
func (s *Store) PendingTaskIDs() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSet(s.pendingTasks)
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// AdmitTask moves a TODO task to DOING: pendingTasks -> executingTasks,
// appends the TaskStatusUpdate entry. It is the only way the task queue
// is allowed to start a task.
func (s *Store) AdmitTask(id string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("admit: unknown task %s", id)
	}
	if err := t.Transition(task.StatusDoing, ""); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.pendingTasks, id)
	s.executingTasks[id] = struct{}{}
	s.mu.Unlock()

	s.appendTaskStatus(t, task.StatusDoing)
	return nil
}

// FinishTask transitions a DOING task to DONE with result, appends the
// workflow-context narrative entry and the TaskStatusUpdate entry.
func (s *Store) FinishTask(id, result string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("finish: unknown task %s", id)
	}
	if err := t.Transition(task.StatusDone, result); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.executingTasks, id)
	s.appendWorkflowContext(t.Description(), result)
	s.mu.Unlock()

	s.appendTaskStatus(t, task.StatusDone)
	return nil
}

// ErrorTask transitions a DOING task to ERRORED.
func (s *Store) ErrorTask(id, message string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("error: unknown task %s", id)
	}
	if err := t.Transition(task.StatusErrored, message); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.executingTasks, id)
	s.mu.Unlock()

	s.appendTaskStatus(t, task.StatusErrored)
	return nil
}

// BlockTask transitions a DOING task to BLOCKED with reason.
func (s *Store) BlockTask(id, reason string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("block: unknown task %s", id)
	}
	if err := t.Block(reason); err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.executingTasks, id)
	s.mu.Unlock()

	s.appendTaskStatus(t, task.StatusBlocked)
	return nil
}

// PauseTask transitions a DOING task to PAUSED.
func (s *Store) PauseTask(id string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("pause: unknown task %s", id)
	}
	if err := t.Transition(task.StatusPaused, ""); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.appendTaskStatus(t, task.StatusPaused)
	return nil
}

// ResumeTask transitions a PAUSED task through RESUMED back to DOING,
// appending both TaskStatusUpdate entries in order.
func (s *Store) ResumeTask(id string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("resume: unknown task %s", id)
	}
	if err := t.Transition(task.StatusResumed, ""); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.appendTaskStatus(t, task.StatusResumed)

	s.mu.Lock()
	if err := t.Transition(task.StatusDoing, ""); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	s.appendTaskStatus(t, task.StatusDoing)
	return nil
}

// ResetNonDoneTasks forces every task not in DONE back to TODO (Stop),
// repopulating pendingTasks and clearing executingTasks.
func (s *Store) ResetNonDoneTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.taskOrder {
		t := s.tasks[id]
		if t.Status() == task.StatusDone {
			continue
		}
		t.Reset()
		delete(s.executingTasks, id)
		s.pendingTasks[id] = struct{}{}
	}
}

func (s *Store) appendTaskStatus(t *task.Task, status task.Status) {
	snap := t.Snapshot()
	s.log.Append(logstream.Entry{
		Type:       logstream.TypeTaskStatusUpdate,
		Task:       &snap,
		TaskStatus: status,
	})
}

// AppendAgentStatus records an agent's current status and appends the
// corresponding AgentStatusUpdate entry.
func (s *Store) AppendAgentStatus(a *agent.Agent, status agent.Status, metadata map[string]any) {
	a.SetStatus(status)
	snap := a.Snapshot()
	s.log.Append(logstream.Entry{
		Type:          logstream.TypeAgentStatusUpdate,
		Agent:         &snap,
		AgentStatus:   status,
		AgentMetadata: metadata,
	})
}

// CleanedState is the stable snapshot projection exposed to observers.
// It strips the executing/pending id-sets and any transient runtime
// handles.
type CleanedState struct {
	Tasks           []task.Snapshot          `json:"tasks"`
	Agents          []agent.Snapshot         `json:"agents"`
	WorkflowLogs    []logstream.Entry        `json:"workflow_logs"`
	TeamStatus      logstream.WorkflowStatus `json:"team_workflow_status"`
	WorkflowResult  string                   `json:"workflow_result"`
	WorkflowContext string                   `json:"workflow_context"`
	Inputs          map[string]string        `json:"inputs"`
	LogLevel        string                   `json:"log_level"`
}

// GetCleanedState produces the pure-function projection of the store.
func (s *Store) GetCleanedState() CleanedState {
	s.mu.RLock()
	taskSnaps := make([]task.Snapshot, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		taskSnaps = append(taskSnaps, s.tasks[id].Snapshot())
	}
	agentSnaps := make([]agent.Snapshot, 0, len(s.agentOrder))
	for _, id := range s.agentOrder {
		agentSnaps = append(agentSnaps, s.agents[id].Snapshot())
	}
	inputs := make(map[string]string, len(s.inputs))
	for k, v := range s.inputs {
		inputs[k] = v
	}
	wfCtx := s.workflowContext.String()
	wfResult := s.workflowResult
	status := s.teamStatus
	logLevel := s.logLevel
	s.mu.RUnlock()

	return CleanedState{
		Tasks:           taskSnaps,
		Agents:          agentSnaps,
		WorkflowLogs:    s.log.Snapshot(),
		TeamStatus:      status,
		WorkflowResult:  wfResult,
		WorkflowContext: wfCtx,
		LogLevel:        logLevel,
		Inputs:          inputs,
	}
}
