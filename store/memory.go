package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/x/values"
)

type inMemory struct {
	mu      sync.RWMutex
	window  int
	storage map[string][]llms.Message
}

// NewMemoryStore returns in-memory MessageStore,
// if window is not positive, DefaultWindow is used.
func NewMemoryStore(window int) MessageStore {
	return &inMemory{
		window: values.NumbersCoalesce(window, DefaultWindow),
	}
}

func (m *inMemory) Messages(_ context.Context, chatID string) ([]llms.Message, error) {
	if chatID == "" {
		return nil, errors.New("chat ID is required")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.storage[chatID]
	if len(list) == 0 {
		return nil, nil
	}
	res := make([]llms.Message, len(list))
	copy(res, list)
	return res, nil
}

func (m *inMemory) Save(_ context.Context, chatID string, msgs []llms.Message) error {
	if chatID == "" {
		return errors.New("chat ID is required")
	}

	msgs = window(msgs, m.window)
	list := make([]llms.Message, len(msgs))
	copy(list, msgs)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]llms.Message)
	}
	m.storage[chatID] = list
	return nil
}

func (m *inMemory) Reset(_ context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, chatID)
	return nil
}
