package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomwork/loom/llm"
)

func TestFakeProviderPlaysBackScriptInOrder(t *testing.T) {
	p := llm.NewFakeProvider().
		ScriptResponse("first", llm.Usage{PromptTokens: 10, CompletionTokens: 2}).
		ScriptResponse("second", llm.Usage{PromptTokens: 12, CompletionTokens: 4})

	resp1, err := p.ChatCompletion(context.Background(), llm.Request{})
	require.NoError(t, err)
	require.Equal(t, "first", resp1.Content)

	resp2, err := p.ChatCompletion(context.Background(), llm.Request{})
	require.NoError(t, err)
	require.Equal(t, "second", resp2.Content)

	require.Len(t, p.Calls(), 2)
}

func TestFakeProviderExhaustedScriptErrors(t *testing.T) {
	p := llm.NewFakeProvider()
	_, err := p.ChatCompletion(context.Background(), llm.Request{})
	require.Error(t, err)
}
