// Package llm defines the abstract language-model provider collaborator
// consumed by the ReAct agent runtime. The core never talks HTTP
// itself; it calls Provider.ChatCompletion and interprets the first
// choice's message content as the agent's raw output.
package llm

import (
	"context"
	"fmt"
)

// Role mirrors the chat-completion role values used by OpenAI-compatible
// APIs.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is shaped after sashabaranov/go-openai's ChatCompletionMessage
// so a real OpenAI-compatible client can satisfy Provider with no
// translation layer.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage mirrors go-openai's Usage type.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Config carries the per-call sampling parameters from Agent.LLMConfig.
type Config struct {
	Model            string
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// Request is the abstract chat-completion request (spec §6): n is fixed
// at 1 and stream is always false — the core has no use for either.
type Request struct {
	Config   Config
	Messages []Message
}

// Response is the abstract chat-completion response. Content is the
// agent's raw output to parse; Usage feeds Task.RecordIteration.
type Response struct {
	Content string
	Usage   Usage
}

// Provider is the external collaborator the ReAct runtime calls at
// suspension point (iii). Implementations own authentication, retries,
// and timeout handling; any error they return is wrapped by the runtime
// into an *errors.OrchestratorError with KindLLMProvider.
type Provider interface {
	ChatCompletion(ctx context.Context, req Request) (Response, error)
}

// ProviderError wraps a transport-level failure (HTTP non-2xx, auth,
// rate-limit, timeout, malformed body) so callers can inspect the
// underlying cause without string matching.
type ProviderError struct {
	Provider string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider %s: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }
