package store

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store implements the MessageStore interface using Redis as the backend.
// The keys namespace is organized as follows:
// - `<prefix>/chatstore/messages/<chatID>` list of JSON encoded messages
// - `<prefix>/chatstore/info/<chatID>` chat metadata, updated on every Save

type redisStore struct {
	client *redis.Client
	prefix string
	window int
}

// ChatInfo describes the stored chat
type ChatInfo struct {
	ChatID    string    `json:"chat_id"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRedisStore returns MessageStore backed by Redis,
// if window is not positive, DefaultWindow is used.
func NewRedisStore(client *redis.Client, prefix string, window int) MessageStore {
	return &redisStore{
		client: client,
		prefix: prefix,
		window: values.NumbersCoalesce(window, DefaultWindow),
	}
}

func (m *redisStore) getRedisMessagesKey(chatID string) string {
	return path.Join(m.prefix, "chatstore", "messages", chatID)
}

func (m *redisStore) getRedisChatInfoKey(chatID string) string {
	return path.Join(m.prefix, "chatstore", "info", chatID)
}

func (m *redisStore) Messages(ctx context.Context, chatID string) ([]llms.Message, error) {
	if chatID == "" {
		return nil, errors.New("chat ID is required")
	}

	key := m.getRedisMessagesKey(chatID)
	data, err := m.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get messages from Redis")
	}

	var messages []llms.Message
	for _, item := range data {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal message", "chat_id", chatID, "err", err.Error())
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (m *redisStore) Save(ctx context.Context, chatID string, msgs []llms.Message) error {
	if chatID == "" {
		return errors.New("chat ID is required")
	}

	msgs = window(msgs, m.window)
	list := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal message")
		}
		list = append(list, data)
	}

	info, err := json.Marshal(&ChatInfo{
		ChatID:    chatID,
		Count:     len(list),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal chat info")
	}

	key := m.getRedisMessagesKey(chatID)
	// replace the list atomically
	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(list) > 0 {
			pipe.RPush(ctx, key, list...)
			pipe.LTrim(ctx, key, int64(-m.window), -1)
		}
		pipe.Set(ctx, m.getRedisChatInfoKey(chatID), info, 0)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "failed to store messages in Redis")
	}

	logger.ContextKV(ctx, xlog.DEBUG, "status", "saved", "chat_id", chatID, "count", len(list))
	return nil
}

func (m *redisStore) Reset(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.New("chat ID is required")
	}

	pipe := m.client.Pipeline()
	pipe.Del(ctx, m.getRedisMessagesKey(chatID))
	pipe.Del(ctx, m.getRedisChatInfoKey(chatID))
	_, err := pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}
	return nil
}

// GetChatInfo returns the chat info, or nil if the chat does not exist
func GetChatInfo(ctx context.Context, s MessageStore, chatID string) (*ChatInfo, error) {
	rs, ok := s.(*redisStore)
	if !ok {
		msgs, err := s.Messages(ctx, chatID)
		if err != nil || len(msgs) == 0 {
			return nil, err
		}
		return &ChatInfo{ChatID: chatID, Count: len(msgs)}, nil
	}

	data, err := rs.client.Get(ctx, rs.getRedisChatInfoKey(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get chat info from Redis")
	}

	info := new(ChatInfo)
	if err = json.Unmarshal([]byte(data), info); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal chat info")
	}
	return info, nil
}
