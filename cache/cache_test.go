package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRU(2)
	require.NoError(t, err)

	c.Add(ctx, "a", Entry{Label: 1, Confidence: 0.9})
	c.Add(ctx, "b", Entry{Label: 0, Confidence: 0.5})
	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, Entry{Label: 1, Confidence: 0.9}, got)

	c.Add(ctx, "c", Entry{Label: -1, Confidence: 0.7})
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok, "least recently used entry is evicted")
	assert.Equal(t, 2, c.Len())

	c.Close()
	assert.Equal(t, 0, c.Len())
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, Config{Backend: BackendNone}, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(ctx, Config{Backend: BackendLRU, Size: 8}, nil)
	require.NoError(t, err)
	assert.IsType(t, &LRU{}, c)

	_, err = New(ctx, Config{Backend: "memcached"}, nil)
	assert.Error(t, err)

	_, err = New(ctx, Config{Backend: BackendValkey}, nil)
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "abc:hello", Key("abc", "hello"))
	assert.NotEqual(t, Key("vocab-model1", "hello"), Key("vocab-model2", "hello"))
}
