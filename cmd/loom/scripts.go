package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loomwork/loom/llm"
)

// scriptedResponse is one line of a provider's scripted playback:
// either a canned answer or a canned failure.
type scriptedResponse struct {
	Content string `yaml:"content"`
	Error   string `yaml:"error"`
	Tokens  int    `yaml:"tokens"`
}

// llmScript maps provider name (the name an agent's llm.provider field
// references) to its scripted response sequence.
type llmScript map[string][]scriptedResponse

func loadLLMScript(path string) (llmScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read llm script: %w", err)
	}
	var script llmScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse llm script: %w", err)
	}
	return script, nil
}

// defaultResponse is what an unscripted provider answers with, so
// `loom serve` runs out of the box on simple single-task teams without
// requiring a --llm-script file.
const defaultResponse = `{"final_answer":"ok"}`

// buildProviders constructs one llm.FakeProvider per distinct name in
// providerNames, scripted from script (nil is fine:
// every provider then falls back to a repeating default response).
func buildProviders(providerNames []string, script llmScript) map[string]llm.Provider {
	providers := make(map[string]llm.Provider, len(providerNames))
	for _, name := range providerNames {
		p := llm.NewFakeProvider()
		lines := script[name]
		if len(lines) == 0 {
			// Scripted responses are consumed in order and the fake
			// provider errors once exhausted, so an unscripted
			// provider gets a generous run of identical canned
			// answers rather than a single one.
			for i := 0; i < 64; i++ {
				p.ScriptResponse(defaultResponse, llm.Usage{})
			}
			providers[name] = p
			continue
		}
		for _, line := range lines {
			if line.Error != "" {
				p.ScriptError(fmt.Errorf("%s", line.Error))
				continue
			}
			p.ScriptResponse(line.Content, llm.Usage{PromptTokens: line.Tokens, CompletionTokens: line.Tokens})
		}
		providers[name] = p
	}
	return providers
}
