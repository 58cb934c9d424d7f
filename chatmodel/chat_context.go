package chatmodel

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// ChatContext identifies the chat and the current query run.
// The chat ID keys the persisted Conversation,
// the run ID changes on every query of the chat.
type ChatContext interface {
	GetChatID() string
	// RunID returns the ID of the current query
	RunID() string
	// NewRun assigns a new run ID and returns it
	NewRun() string
}

type chatContext struct {
	chatID string
	runID  atomic.Value
}

// NewChatContext returns ChatContext for the chat,
// a new chat ID is generated if chatID is empty.
func NewChatContext(chatID string) ChatContext {
	c := &chatContext{
		chatID: values.StringsCoalesce(chatID, NewChatID()),
	}
	c.runID.Store(NewChatID())
	return c
}

func (c *chatContext) GetChatID() string {
	return c.chatID
}

func (c *chatContext) RunID() string {
	return c.runID.Load().(string)
}

func (c *chatContext) NewRun() string {
	id := NewChatID()
	c.runID.Store(id)
	return id
}

type contextKey struct{}

// WithChatContext returns a copy of ctx with the chat context
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, contextKey{}, chatCtx)
}

// GetChatContext returns the chat context of ctx, or nil
func GetChatContext(ctx context.Context) ChatContext {
	v, _ := ctx.Value(contextKey{}).(ChatContext)
	return v
}

// GetChatID returns the chat ID of ctx,
// or empty string if ctx has no chat context.
func GetChatID(ctx context.Context) string {
	if c := GetChatContext(ctx); c != nil {
		return c.GetChatID()
	}
	return ""
}

// NewChatID returns a new unique ID from the flake generator
func NewChatID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
