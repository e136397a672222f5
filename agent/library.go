package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Library answers the function calls of a model.
type Library func(context.Context, *genai.FunctionCall) *genai.FunctionResponse

// Function is a tool a model can call.
type Function interface {
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse
}

// NewLibrary dispatches calls to the function of the same name.
func NewLibrary[T Function](functions []T) Library {
	return func(ctx context.Context, call *genai.FunctionCall) *genai.FunctionResponse {
		for _, f := range functions {
			if f.Declaration().Name == call.Name {
				return f.Call(ctx, call.ID, call.Args)
			}
		}
		return failed(call.ID, call.Name, fmt.Errorf("unknown function %s", call.Name))
	}
}

// NewDeclaration returns the declarations of functions, to be given to a
// model as a tool.
func NewDeclaration[T Function](functions []T) []*genai.FunctionDeclaration {
	result := make([]*genai.FunctionDeclaration, 0, len(functions))
	for _, f := range functions {
		result = append(result, f.Declaration())
	}
	return result
}

// Func is a Function made of a declaration and a plain Go function returning
// markdown.
type Func struct {
	Decl *genai.FunctionDeclaration
	Func func(ctx context.Context, args map[string]any) (string, error)
}

func (f *Func) Declaration() *genai.FunctionDeclaration { return f.Decl }

func (f *Func) Call(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
	out, err := f.Func(ctx, args)
	if err != nil {
		return failed(id, f.Decl.Name, err)
	}
	return &genai.FunctionResponse{
		ID:       id,
		Name:     f.Decl.Name,
		Response: map[string]any{"output": out},
	}
}

// failed reports err to the model. Errors are sent as text, the model reads
// them and may retry.
func failed(id, name string, err error) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		ID:       id,
		Name:     name,
		Response: map[string]any{"error": err.Error()},
	}
}

// stringArg returns a required string argument.
func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing argument %q", name)
	}
	switch v := v.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("argument %q is empty", name)
		}
		return v, nil
	case float64:
		// ids are sometimes sent as numbers
		return fmt.Sprintf("%.0f", v), nil
	default:
		return "", fmt.Errorf("argument %q is not a string as expected but %T", name, v)
	}
}

// stringsArg returns a required list of strings argument.
func stringsArg(args map[string]any, name string) ([]string, error) {
	v, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("missing argument %q", name)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("argument %q is not a list as expected but %T", name, v)
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("argument %q[%d] is not a string but %T", name, i, item)
		}
		out = append(out, s)
	}
	return out, nil
}
