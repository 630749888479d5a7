package observability

import "time"

// NoopMetrics records nothing. *Metrics is already nil-safe on every
// method (a nil *Metrics behaves identically), so most callers just
// pass a nil *Metrics instead of constructing this type; NoopMetrics
// exists for call sites that need a non-nil, concretely-typed recorder
// (e.g. a default value before configuration is loaded).
type NoopMetrics struct{}

func (NoopMetrics) SetQueueDepth(int)                           {}
func (NoopMetrics) SetTasksDoing(int)                           {}
func (NoopMetrics) SetTaskStatusCount(string, int)              {}
func (NoopMetrics) RecordTaskTransition(string, string)         {}
func (NoopMetrics) RecordTaskDuration(string, time.Duration)    {}
func (NoopMetrics) RecordIteration(string)                      {}
func (NoopMetrics) RecordIterationError(string, string)         {}
func (NoopMetrics) RecordLLMCall(string, string, time.Duration) {}
func (NoopMetrics) RecordLLMTokens(string, string, int, int)    {}
func (NoopMetrics) RecordLLMError(string, string, string)       {}
func (NoopMetrics) RecordToolCall(string, time.Duration)        {}
func (NoopMetrics) RecordToolError(string, string)              {}
