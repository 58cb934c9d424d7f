package assistants

import "github.com/cockroachdb/errors"

// Errors of a query, matched with errors.Is
var (
	// ErrModelCall is returned when the model call fails
	ErrModelCall = errors.New("model call failed")
	// ErrToolExecution is returned when the tool service fails or returns no results
	ErrToolExecution = errors.New("tool execution failed")
	// ErrMalformedToolArguments is returned when tool arguments are not a JSON object
	ErrMalformedToolArguments = errors.New("malformed tool arguments")
	// ErrUnknownToolRequested is returned when the model requests a tool not in the catalog
	ErrUnknownToolRequested = errors.New("unknown tool requested")
	// ErrIterationLimit is returned when the model keeps requesting tools
	ErrIterationLimit = errors.New("iteration limit exceeded")
)

// reason returns the metric tag of the error
func reason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownToolRequested):
		return "unknown_tool"
	case errors.Is(err, ErrMalformedToolArguments):
		return "malformed_arguments"
	case errors.Is(err, ErrToolExecution):
		return "tool_execution"
	case errors.Is(err, ErrIterationLimit):
		return "iteration_limit"
	case errors.Is(err, ErrModelCall):
		return "model_call"
	}
	return "other"
}

// kindError tags the cause with one of the query errors,
// the message is the message of the cause.
type kindError struct {
	cause error
	kind  error
}

func withKind(cause, kind error) error {
	return &kindError{cause: cause, kind: kind}
}

func (e *kindError) Error() string { return e.cause.Error() }

func (e *kindError) Unwrap() error { return e.cause }

// Is reports whether target is the kind of the error
func (e *kindError) Is(target error) bool { return target == e.kind }
