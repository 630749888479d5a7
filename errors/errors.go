// Package errors defines the closed error taxonomy that the orchestration
// core uses to decide task and team status transitions. Components type
// switch on these via errors.As rather than matching on error strings.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Kind identifies which row of the error taxonomy an error belongs to.
type Kind string

const (
	KindConfiguration       Kind = "ConfigurationError"
	KindLLMProvider         Kind = "LLMProviderError"
	KindToolInvocation      Kind = "ToolInvocationError"
	KindMalformedLLMOutput  Kind = "MalformedLLMOutput"
	KindIterationLimit      Kind = "IterationLimitExceeded"
	KindTaskBlocked         Kind = "TaskBlocked"
	KindSubWorkflowFailure  Kind = "SubWorkflowFailure"
	KindCancelled           Kind = "Cancelled"
)

// OrchestratorError is the common shape every taxonomy row satisfies.
type OrchestratorError struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Err       error
	Timestamp time.Time
}

func (e *OrchestratorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s:%s] %s: %v", e.Kind, e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s:%s] %s", e.Kind, e.Component, e.Operation, e.Message)
}

func (e *OrchestratorError) Unwrap() error { return e.Err }

func newErr(kind Kind, component, operation, message string, err error) *OrchestratorError {
	return &OrchestratorError{
		Kind:      kind,
		Component: component,
		Operation: operation,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// ConfigurationError reports cyclic dependencies, unknown agents, or
// missing credentials. It fails Start synchronously.
func ConfigurationError(component, operation, message string, err error) *OrchestratorError {
	return newErr(KindConfiguration, component, operation, message, err)
}

// LLMProviderError reports HTTP, auth, or timeout failures from a
// ChatCompletion call. The ReAct runtime does not retry: the first such
// error ends the owning task as ERRORED.
func LLMProviderError(component, operation, message string, err error) *OrchestratorError {
	return newErr(KindLLMProvider, component, operation, message, err)
}

// ToolInvocationError reports a schema mismatch or tool exception. Fed
// back to the agent as coaching feedback; not fatal unless it recurs
// beyond the iteration budget.
func ToolInvocationError(component, operation, message string, err error) *OrchestratorError {
	return newErr(KindToolInvocation, component, operation, message, err)
}

// MalformedLLMOutputError reports unparseable LLM output after a
// jsonrepair attempt has already failed. Non-fatal unless recurrent.
func MalformedLLMOutputError(component, operation, message string, err error) *OrchestratorError {
	return newErr(KindMalformedLLMOutput, component, operation, message, err)
}

// IterationLimitExceededError reports a ReAct budget exhausted without a
// final answer. Fatal to the owning task.
func IterationLimitExceededError(component, operation, message string) *OrchestratorError {
	return newErr(KindIterationLimit, component, operation, message, nil)
}

// TaskBlockedError reports an agent invoking block_task. Terminal for the
// blocked task; the default policy also halts the team.
func TaskBlockedError(component, operation, message string) *OrchestratorError {
	return newErr(KindTaskBlocked, component, operation, message, nil)
}

// SubWorkflowFailureError reports a workflow-driven sub-workflow Failed
// result. Fatal to the owning task.
func SubWorkflowFailureError(component, operation, message string, err error) *OrchestratorError {
	return newErr(KindSubWorkflowFailure, component, operation, message, err)
}

// CancelledError reports a Stop delivered mid-execution. Silent: no
// status update beyond the global STOPPED transition.
func CancelledError(component, operation string) *OrchestratorError {
	return newErr(KindCancelled, component, operation, "cancelled by Stop", nil)
}

// Is reports whether err carries the given Kind, unwrapping through any
// wrapper chain via errors.As.
func Is(err error, kind Kind) bool {
	var oe *OrchestratorError
	if !stderrors.As(err, &oe) {
		return false
	}
	return oe.Kind == kind
}
