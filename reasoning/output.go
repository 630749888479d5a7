package reasoning

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// Variant identifies which of the three closed output shapes a parsed
// LLM turn took (spec §4.4, design note: "a closed tagged-variant
// representation of the three output shapes").
type Variant int

const (
	VariantThoughtAction Variant = iota
	VariantObservation
	VariantFinalAnswer
)

// output is the wire shape the ReAct prompt asks the model to emit.
// Only one variant's fields are populated per turn.
type output struct {
	Thought            string         `json:"thought,omitempty"`
	Action             string         `json:"action,omitempty"`
	ActionInput        map[string]any `json:"action_input,omitempty"`
	Observation        string         `json:"observation,omitempty"`
	IsFinalAnswerReady bool           `json:"is_final_answer_ready,omitempty"`
	FinalAnswer        string         `json:"final_answer,omitempty"`
}

const selfQuestionAction = "self_question"
const blockTaskAction = "block_task"

// parseOutput classifies a raw LLM turn into one of the three closed
// variants. It first attempts a direct JSON decode; on failure it
// attempts a jsonrepair pass (the model frequently emits near-miss
// JSON — trailing commas, unescaped quotes) before giving up and
// reporting the turn unparseable.
func parseOutput(raw string) (output, Variant, error) {
	out, err := decodeOutput(raw)
	if err != nil {
		repaired, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return output{}, 0, fmt.Errorf("unparseable LLM output: %w", err)
		}
		out, err = decodeOutput(repaired)
		if err != nil {
			return output{}, 0, fmt.Errorf("unparseable LLM output after repair: %w", err)
		}
	}

	switch {
	case out.FinalAnswer != "":
		return out, VariantFinalAnswer, nil
	case out.Observation != "":
		return out, VariantObservation, nil
	case out.Thought != "" && out.Action != "":
		return out, VariantThoughtAction, nil
	default:
		return output{}, 0, fmt.Errorf("output matches no known shape")
	}
}

func decodeOutput(raw string) (output, error) {
	var out output
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return output{}, err
	}
	return out, nil
}
