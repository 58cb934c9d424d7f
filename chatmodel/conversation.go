package chatmodel

import (
	"encoding/json"
	"strings"

	"github.com/effective-security/mcpchat/pkg/llms"
)

// DefaultMaxHistory is the default number of messages retained by a Conversation.
const DefaultMaxHistory = 10

// Conversation is an ordered list of role-tagged messages,
// capped to MaxLen on Trim.
//
// A Conversation is not safe for concurrent use,
// it is owned by the session that created it.
type Conversation struct {
	maxLen   int
	messages []llms.Message
}

// NewConversation returns a Conversation with the provided
// retention limit and initial messages.
// If maxLen is not positive, DefaultMaxHistory is used.
func NewConversation(maxLen int, msgs ...llms.Message) *Conversation {
	if maxLen <= 0 {
		maxLen = DefaultMaxHistory
	}
	c := &Conversation{
		maxLen: maxLen,
	}
	c.Append(msgs...)
	return c
}

// MaxLen returns the retention limit
func (c *Conversation) MaxLen() int {
	return c.maxLen
}

// Len returns the number of messages
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Append adds messages to the end of the Conversation.
func (c *Conversation) Append(msgs ...llms.Message) {
	c.messages = append(c.messages, msgs...)
}

// Trim drops the oldest messages so that at most MaxLen are retained,
// the remaining messages keep their order.
// It returns the number of dropped messages.
func (c *Conversation) Trim() int {
	drop := len(c.messages) - c.maxLen
	if drop <= 0 {
		return 0
	}
	kept := make([]llms.Message, c.maxLen)
	copy(kept, c.messages[drop:])
	c.messages = kept
	return drop
}

// Messages returns a copy of the messages
func (c *Conversation) Messages() []llms.Message {
	if len(c.messages) == 0 {
		return nil
	}
	res := make([]llms.Message, len(c.messages))
	copy(res, c.messages)
	return res
}

// Last returns the last message, or false if the Conversation is empty.
func (c *Conversation) Last() (llms.Message, bool) {
	if len(c.messages) == 0 {
		return llms.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Clone returns an independent copy of the Conversation.
func (c *Conversation) Clone() *Conversation {
	return &Conversation{
		maxLen:   c.maxLen,
		messages: c.Messages(),
	}
}

// Commit replaces the messages with the ones from the working copy.
func (c *Conversation) Commit(work *Conversation) {
	c.messages = work.Messages()
}

// Reset removes all messages
func (c *Conversation) Reset() {
	c.messages = nil
}

// String returns the messages, one per line
func (c *Conversation) String() string {
	var sb strings.Builder
	for i, m := range c.messages {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.String())
	}
	return sb.String()
}

// MarshalJSON encodes the messages as a JSON list
func (c *Conversation) MarshalJSON() ([]byte, error) {
	msgs := c.messages
	if msgs == nil {
		msgs = []llms.Message{}
	}
	return json.Marshal(msgs)
}

// UnmarshalJSON decodes the messages from a JSON list,
// the retention limit is kept.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var msgs []llms.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	if c.maxLen <= 0 {
		c.maxLen = DefaultMaxHistory
	}
	c.messages = msgs
	return nil
}
