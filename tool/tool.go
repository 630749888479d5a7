// Package tool defines the abstract Tool collaborator invoked by the
// ReAct agent runtime (spec §6): input is a JSON object matching the
// tool's declared schema, output is stringifiable JSON, and exceptions
// propagate back as recoverable feedback rather than fatal errors.
package tool

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"

	loomerrors "github.com/loomwork/loom/errors"
)

// Info describes a bound tool to the ReAct prompt builder.
type Info struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}

// Tool is the external collaborator a ReAct agent may invoke.
// Implementations validate their own input beyond what the schema
// captures; Invoke should return an error only for genuine tool
// exceptions, never for application-level "no results" outcomes.
type Tool interface {
	Info() Info
	Invoke(ctx context.Context, input map[string]any) (any, error)
}

// Registry is a name-keyed set of bound tools available to one agent.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry from a list of tools, keyed by name.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Info().Name] = t
	}
	return r
}

// Lookup returns the tool bound to name, or false if unknown — the
// runtime turns a miss into a TOOL_NOT_EXIST coaching message.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Infos returns every bound tool's Info, for prompt construction.
func (r *Registry) Infos() []Info {
	out := make([]Info, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Info())
	}
	return out
}

// DecodeInput decodes a raw actionInput map into dst using mapstructure,
// surfacing a schema mismatch as an error the runtime turns into an
// INVALID_TOOL_INPUT coaching message rather than a fatal one.
func DecodeInput(raw map[string]any, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return fmt.Errorf("tool input decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return loomerrors.ToolInvocationError("tool", "DecodeInput", "input does not match the tool's schema", err)
	}
	return nil
}

// SchemaFor reflects a Go struct into a JSON Schema describing a tool's
// expected input, using invopop/jsonschema — the same mechanism the
// teacher's OpenAI function-calling tools used for Parameters.
func SchemaFor(v any) *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	return reflector.Reflect(v)
}
