package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/effective-security/mcpchat/pkg/schema"
	"github.com/effective-security/x/values"
)

//go:generate mockgen -source=tools.go -destination=../mocks/mocktools/tools_mock.gen.go -package mocktools

// ErrFailedUnmarshalInput is returned when the tool input is not a valid JSON object
var ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")

// ITool is a tool served to the model by the tool service.
type ITool interface {
	// Name returns the name of the Tool.
	Name() string
	// Description returns the description of the tool, to be used in the prompt.
	// Should not exceed LLM model limit.
	Description() string
	// Parameters returns the JSON schema of the tool input, to be used in the prompt.
	Parameters() map[string]any

	// Call executes the tool with the given JSON input and returns the result.
	// If the tool fails to parse the input, it should return ErrFailedUnmarshalInput error.
	Call(context.Context, string) (string, error)
}

// Tool is a typed tool
type Tool[I any, O any] interface {
	ITool
	Run(context.Context, *I) (*O, error)
}

// RunFunc is the implementation of a typed tool
type RunFunc[I any, O any] func(context.Context, *I) (*O, error)

type funcTool[I any, O any] struct {
	name        string
	description string
	params      map[string]any
	run         RunFunc[I, O]
}

// New returns a typed tool, the input schema is built from I.
func New[I any, O any](name, description string, run RunFunc[I, O]) (Tool[I, O], error) {
	if name == "" {
		return nil, errors.New("tool name is required")
	}
	sc, err := schema.For[I]()
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create schema for %s", name)
	}
	return &funcTool[I, O]{
		name:        name,
		description: description,
		params:      sc.Map(),
		run:         run,
	}, nil
}

// MustNew returns a typed tool, or panics on error
func MustNew[I any, O any](name, description string, run RunFunc[I, O]) Tool[I, O] {
	t, err := New(name, description, run)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *funcTool[I, O]) Name() string {
	return t.name
}

func (t *funcTool[I, O]) Description() string {
	return values.StringsCoalesce(t.description, "useful tool")
}

func (t *funcTool[I, O]) Parameters() map[string]any {
	return t.params
}

func (t *funcTool[I, O]) Run(ctx context.Context, req *I) (*O, error) {
	return t.run(ctx, req)
}

func (t *funcTool[I, O]) Call(ctx context.Context, input string) (string, error) {
	req := new(I)
	if err := DecodeInput([]byte(input), req); err != nil {
		return "", err
	}
	out, err := t.run(ctx, req)
	if err != nil {
		return "", err
	}
	return Stringify(out), nil
}

// DecodeInput decodes strict JSON object into v.
// Empty input is treated as an empty object.
func DecodeInput(input []byte, v any) error {
	input = bytes.TrimSpace(input)
	if len(input) == 0 || bytes.Equal(input, []byte("null")) {
		return nil
	}
	if input[0] != '{' {
		return errors.WithStack(ErrFailedUnmarshalInput)
	}
	dec := json.NewDecoder(bytes.NewReader(input))
	if err := dec.Decode(v); err != nil {
		return errors.Wrapf(ErrFailedUnmarshalInput, "%s", err.Error())
	}
	// the object must be the whole input
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.Wrap(ErrFailedUnmarshalInput, "unexpected data after the object")
	}
	return nil
}

// Stringify returns the text form of the tool output
func Stringify(out any) string {
	switch v := out.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case fmt.Stringer:
		return v.String()
	case *int:
		if v == nil {
			return ""
		}
		return fmt.Sprint(*v)
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	}
	return llmutils.ToJSON(out)
}

type toolDescription struct {
	Name        string   `json:"Name" yaml:"Name"`
	Description string   `json:"Description" yaml:"Description"`
	Parameters  []string `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
}

type toolsDescription struct {
	Tools []toolDescription `json:"Tools" yaml:"Tools"`
}

// GetDescriptions returns YAML description of the tools
func GetDescriptions(list ...ITool) string {
	var d toolsDescription
	for _, tool := range list {
		td := toolDescription{
			Name:        tool.Name(),
			Description: firstLine(tool.Description()),
		}
		if props, ok := tool.Parameters()["properties"].(map[string]any); ok {
			for name := range props {
				td.Parameters = append(td.Parameters, name)
			}
			sort.Strings(td.Parameters)
		}
		d.Tools = append(d.Tools, td)
	}
	return llmutils.ToYAML(d)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
