// Package basic provides the arithmetic and echo tools.
package basic

import (
	"context"

	"github.com/effective-security/mcpchat/tools"
)

const (
	// AddToolName is the name of the add tool
	AddToolName = "add"
	// EchoToolName is the name of the echo tool
	EchoToolName = "echo_tool"
)

// AddRequest is the input of the add tool
type AddRequest struct {
	A int `json:"a" yaml:"a" jsonschema:"title=A"`
	B int `json:"b" yaml:"b" jsonschema:"title=B"`
}

// EchoRequest is the input of the echo tool
type EchoRequest struct {
	Message string `json:"message" yaml:"message" jsonschema:"title=Message"`
}

// NewAdd returns the tool that adds two numbers
func NewAdd() tools.Tool[AddRequest, int] {
	return tools.MustNew(AddToolName, "Add two numbers", func(_ context.Context, req *AddRequest) (*int, error) {
		sum := req.A + req.B
		return &sum, nil
	})
}

// NewEcho returns the tool that echoes the message
func NewEcho() tools.Tool[EchoRequest, string] {
	return tools.MustNew(EchoToolName, "Echo a message as a tool", func(_ context.Context, req *EchoRequest) (*string, error) {
		res := "Tool echo: " + req.Message
		return &res, nil
	})
}
