package basic_test

import (
	"context"
	"testing"

	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/mcpchat/tools/basic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tool := basic.NewAdd()
	assert.Equal(t, "add", tool.Name())
	assert.Equal(t, "Add two numbers", tool.Description())

	params := tool.Parameters()
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []any{"a", "b"}, params["required"])
	props := params["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "integer", "title": "A"}, props["a"])

	res, err := tool.Call(ctx, `{"a": 1, "b": 2}`)
	require.NoError(t, err)
	assert.Equal(t, "3", res)

	sum, err := tool.Run(ctx, &basic.AddRequest{A: -5, B: 3})
	require.NoError(t, err)
	assert.Equal(t, -2, *sum)

	_, err = tool.Call(ctx, `{"a": "x"}`)
	assert.ErrorIs(t, err, tools.ErrFailedUnmarshalInput)

	_, err = tool.Call(ctx, `__import__('os')`)
	assert.ErrorIs(t, err, tools.ErrFailedUnmarshalInput)
}

func TestEcho(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tool := basic.NewEcho()
	assert.Equal(t, "echo_tool", tool.Name())

	res, err := tool.Call(ctx, `{"message": "Hello, Tool!"}`)
	require.NoError(t, err)
	assert.Equal(t, "Tool echo: Hello, Tool!", res)

	res, err = tool.Call(ctx, ``)
	require.NoError(t, err)
	assert.Equal(t, "Tool echo: ", res)

	desc := tools.GetDescriptions(basic.NewAdd(), tool)
	assert.Contains(t, desc, "Name: add")
	assert.Contains(t, desc, "Description: Echo a message as a tool")
	assert.Contains(t, desc, "- message")
}
