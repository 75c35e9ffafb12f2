package cachedmap

import (
	"fmt"
	"testing"

	"github.com/cyberinferno/syncutils/hashtable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNewCachedMap(t *testing.T) {
	c := NewCachedMap[string, int]()
	require.NotNil(t, c)
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("x")
	assert.False(t, ok)
}

func TestCachedMap_PutGet(t *testing.T) {
	c := NewCachedMap[string, int]()

	t.Run("new key", func(t *testing.T) {
		assert.Equal(t, hashtable.PutNew, c.Put("a", 1))
		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
	})

	t.Run("overwrite refreshes cached value", func(t *testing.T) {
		assert.Equal(t, hashtable.PutOverwrite, c.Put("a", 2))
		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 2, v)
	})

	t.Run("cached absence is replaced by a later put", func(t *testing.T) {
		_, ok := c.Get("b")
		assert.False(t, ok)
		c.Put("b", 3)
		v, ok := c.Get("b")
		assert.True(t, ok)
		assert.Equal(t, 3, v)
	})
}

func TestCachedMap_TryPut(t *testing.T) {
	c := NewCachedMap[string, int]()
	_, _ = c.Get("a")

	assert.Equal(t, hashtable.PutNew, c.TryPut("a", 1))
	assert.Equal(t, hashtable.PutSkipped, c.TryPut("a", 2))

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestCachedMap_Remove(t *testing.T) {
	c := NewCachedMap[string, int]()
	c.Put("a", 1)
	_, _ = c.Get("a")

	v, ok := c.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("a")
	assert.False(t, ok)

	v, ok = c.Remove("a")
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestCachedMap_Clear(t *testing.T) {
	c := NewCachedMap[string, int]()
	c.Put("a", 1)
	c.Put("b", 2)
	_, _ = c.Get("a")

	assert.Equal(t, map[string]int{"a": 1, "b": 2}, c.Clear())
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCachedMap_ConcurrentReadersSeeLastWrite(t *testing.T) {
	c := NewCachedMap[string, int]()
	const keys = 32

	var g errgroup.Group
	for w := range 4 {
		g.Go(func() error {
			for i := range 500 {
				c.Put(fmt.Sprintf("k%d", (w+i)%keys), i)
			}
			return nil
		})
	}
	for range 8 {
		g.Go(func() error {
			for i := range 2000 {
				c.Get(fmt.Sprintf("k%d", i%keys))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := range keys {
		k := fmt.Sprintf("k%d", i)
		want, ok := c.write.Get(k)
		require.True(t, ok)
		got, ok := c.Get(k)
		assert.True(t, ok)
		assert.Equal(t, *want, got, "cache for %s is stale", k)
	}
}
