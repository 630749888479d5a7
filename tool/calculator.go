package tool

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Calculator is a minimal built-in arithmetic tool, useful mostly as a
// worked example of the Tool contract and in reasoning package tests.
type Calculator struct{}

type calculatorInput struct {
	Op string  `json:"op" jsonschema:"enum=add,enum=sub,enum=mul,enum=div,description=arithmetic operation"`
	A  float64 `json:"a"`
	B  float64 `json:"b"`
}

// Info implements Tool.
func (Calculator) Info() Info {
	return Info{
		Name:        "calculator",
		Description: "performs one arithmetic operation on two numbers",
		Schema:      (&jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}).Reflect(&calculatorInput{}),
	}
}

// Invoke implements Tool.
func (Calculator) Invoke(_ context.Context, input map[string]any) (any, error) {
	var in calculatorInput
	if err := DecodeInput(input, &in); err != nil {
		return nil, err
	}
	switch in.Op {
	case "add":
		return in.A + in.B, nil
	case "sub":
		return in.A - in.B, nil
	case "mul":
		return in.A * in.B, nil
	case "div":
		if in.B == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return in.A / in.B, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", in.Op)
	}
}
