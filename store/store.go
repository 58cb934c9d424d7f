// Package store provides persistence of chat conversations.
package store

import (
	"context"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "store")

// DefaultWindow is the number of messages retained per chat
const DefaultWindow = 50

// MessageStore persists the messages of a chat
type MessageStore interface {
	// Messages returns the stored messages of the chat,
	// or empty list if the chat does not exist.
	Messages(ctx context.Context, chatID string) ([]llms.Message, error)
	// Save replaces the stored messages of the chat.
	// Only the last messages within the store window are retained.
	Save(ctx context.Context, chatID string, msgs []llms.Message) error
	// Reset deletes the chat
	Reset(ctx context.Context, chatID string) error
}

func window(msgs []llms.Message, size int) []llms.Message {
	if size > 0 && len(msgs) > size {
		return msgs[len(msgs)-size:]
	}
	return msgs
}
