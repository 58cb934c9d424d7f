package chatmodel

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatContext(t *testing.T) {
	t.Parallel()

	c := NewChatContext("cid")
	assert.Equal(t, "cid", c.GetChatID())
	first := c.RunID()
	assert.NotEmpty(t, first)

	next := c.NewRun()
	assert.NotEqual(t, first, next)
	assert.Equal(t, next, c.RunID())
	assert.Equal(t, "cid", c.GetChatID())

	gen := NewChatContext("")
	assert.NotEmpty(t, gen.GetChatID())
	assert.NotEqual(t, gen.GetChatID(), gen.RunID())
}

func TestChatContext_NewRunConcurrent(t *testing.T) {
	t.Parallel()

	c := NewChatContext("cid")
	ids := make(chan string, 20)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- c.NewRun()
			_ = c.RunID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		require.False(t, seen[id], "duplicate run ID %s", id)
		seen[id] = true
	}
}

func TestWithChatContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Nil(t, GetChatContext(ctx))
	assert.Empty(t, GetChatID(ctx))

	c := NewChatContext("y")
	ctx = WithChatContext(ctx, c)
	assert.Same(t, c, GetChatContext(ctx))
	assert.Equal(t, "y", GetChatID(ctx))
}
