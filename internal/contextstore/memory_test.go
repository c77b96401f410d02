package contextstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbchat/internal/model"
)

func TestMemoryStoreEmpty(t *testing.T) {
	store := NewMemoryStore(5)

	got, err := store.Context(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestMemoryStoreWindow(t *testing.T) {
	store := NewMemoryStore(5)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		require.NoError(t, store.AppendTurn(ctx, "u1", model.RoleUser, fmt.Sprintf("turn %d", i)))
	}

	got, err := store.Context(ctx, "u1")
	require.NoError(t, err)

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "User: turn 8", lines[0])
	assert.Equal(t, "User: turn 12", lines[4])
}

func TestMemoryStoreOldestFirst(t *testing.T) {
	store := NewMemoryStore(5)
	ctx := context.Background()

	require.NoError(t, store.AppendTurn(ctx, "u1", model.RoleUser, "hello"))
	require.NoError(t, store.AppendTurn(ctx, "u1", model.RoleAssistant, "hi there"))

	got, err := store.Context(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "User: hello\nAssistant: hi there", got)
}

func TestMemoryStoreIsolatesUsers(t *testing.T) {
	store := NewMemoryStore(5)
	ctx := context.Background()

	require.NoError(t, store.AppendTurn(ctx, "u1", model.RoleUser, "from u1"))
	require.NoError(t, store.AppendTurn(ctx, "u2", model.RoleUser, "from u2"))

	got, err := store.Context(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "User: from u1", got)
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	store := NewMemoryStore(5)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", n%4)
			_ = store.AppendTurn(ctx, user, model.RoleUser, fmt.Sprintf("msg %d", n))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		got, err := store.Context(ctx, fmt.Sprintf("u%d", i))
		require.NoError(t, err)
		lines := strings.Split(got, "\n")
		assert.LessOrEqual(t, len(lines), 5)
	}
}

func TestFormatTurn(t *testing.T) {
	assert.Equal(t, "User: hello", FormatTurn(model.RoleUser, " hello "))
	assert.Equal(t, "Assistant: hi", FormatTurn(model.RoleAssistant, "hi"))
}
