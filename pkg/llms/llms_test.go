package llms_test

import (
	"testing"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestProviderSupports(t *testing.T) {
	assert.True(t, llms.ProviderOpenAI.Supports(llms.CapabilityFunctionCalling))
	assert.True(t, llms.ProviderAzure.Supports(llms.CapabilityEmbeddings))
	assert.True(t, llms.ProviderAnthropic.Supports(llms.CapabilityFunctionCalling|llms.CapabilitySystemPrompt))
	assert.False(t, llms.ProviderAnthropic.Supports(llms.CapabilityEmbeddings))
	assert.False(t, llms.ProviderType("UNKNOWN").Supports(llms.CapabilityText))
}

func TestCallOptions(t *testing.T) {
	tools := []llms.Tool{{Type: "function", Function: &llms.FunctionDefinition{Name: "add"}}}
	o := llms.NewCallOptions(
		llms.WithModel("gpt-4o"),
		llms.WithMaxTokens(1000),
		llms.WithTemperature(0.7),
		llms.WithTools(tools),
		llms.WithToolChoice(llms.ToolChoiceAuto),
		llms.WithUser("u1"),
	)
	assert.Equal(t, "gpt-4o", o.Model)
	assert.Equal(t, 1000, o.MaxTokens)
	assert.Equal(t, 0.7, o.Temperature)
	assert.Equal(t, tools, o.Tools)
	assert.Equal(t, "auto", o.ToolChoice)
	assert.Equal(t, "u1", o.User)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, llms.Message{Role: llms.RoleSystem, Content: "s"}, llms.SystemMessage("s"))
	assert.Equal(t, llms.Message{Role: llms.RoleUser, Content: "u"}, llms.UserMessage("u"))
	assert.Equal(t, llms.Message{Role: llms.RoleAssistant, Content: "a"}, llms.AssistantMessage("a"))
	assert.Equal(t, "user: hi", llms.UserMessage("hi").String())

	tcases := []struct {
		in  string
		exp llms.Role
		ok  bool
	}{
		{"system", llms.RoleSystem, true},
		{"Tool", llms.RoleSystem, true},
		{"human", llms.RoleUser, true},
		{" user ", llms.RoleUser, true},
		{"AI", llms.RoleAssistant, true},
		{"assistant", llms.RoleAssistant, true},
		{"bot", "", false},
	}
	for _, tc := range tcases {
		r, ok := llms.ParseRole(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.exp, r, tc.in)
	}
}

func TestFirstChoice(t *testing.T) {
	var resp *llms.ContentResponse
	assert.Nil(t, resp.FirstChoice())
	assert.Nil(t, (&llms.ContentResponse{}).FirstChoice())

	c := &llms.ContentChoice{Content: "x", StopReason: llms.StopReasonStop}
	resp = &llms.ContentResponse{Choices: []*llms.ContentChoice{c, {Content: "y"}}}
	assert.Same(t, c, resp.FirstChoice())
}
