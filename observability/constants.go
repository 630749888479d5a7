package observability

const (
	AttrServiceName    = "service.name"
	AttrServiceVersion = "service.version"
	AttrAgentName      = "agent.name"
	AttrAgentKind      = "agent.kind"
	AttrTaskID         = "task.id"
	AttrToolName       = "tool.name"
	AttrLLMModel       = "llm.model"
	AttrLLMProvider    = "llm.provider"
	AttrLLMTokensInput = "llm.tokens.input"
	AttrLLMTokensOutput = "llm.tokens.output"
	AttrErrorType      = "error.type"
	AttrStatusCode     = "http.status_code"

	SpanTaskExecution = "task.execution"
	SpanReActIteration = "task.react_iteration"
	SpanLLMRequest     = "task.llm_request"
	SpanToolExecution  = "task.tool_execution"
	SpanSubWorkflowStep = "task.subworkflow_step"

	DefaultServiceName  = "loom"
	DefaultSamplingRate = 1.0
	DefaultMetricsPath  = "/metrics"
)
