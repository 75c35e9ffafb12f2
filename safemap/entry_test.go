package safemap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_Load(t *testing.T) {
	t.Run("present entry returns value", func(t *testing.T) {
		e := newEntry(7)
		v, ok := e.load()
		assert.True(t, ok)
		assert.Equal(t, 7, v)
		assert.Equal(t, statePresent, e.state())
	})

	t.Run("null entry returns not found", func(t *testing.T) {
		e := &entry[int]{}
		v, ok := e.load()
		assert.False(t, ok)
		assert.Zero(t, v)
		assert.Equal(t, stateNull, e.state())
	})

	t.Run("expunged entry returns not found", func(t *testing.T) {
		e := &entry[int]{}
		require.True(t, e.tryExpungeLocked())
		_, ok := e.load()
		assert.False(t, ok)
		assert.Equal(t, stateExpunged, e.state())
	})
}

func TestEntry_TryStore(t *testing.T) {
	t.Run("overwrites present value", func(t *testing.T) {
		e := newEntry("a")
		assert.True(t, e.tryStore("b"))
		v, _ := e.load()
		assert.Equal(t, "b", v)
	})

	t.Run("revives null entry", func(t *testing.T) {
		e := &entry[string]{}
		assert.True(t, e.tryStore("b"))
		assert.Equal(t, statePresent, e.state())
	})

	t.Run("fails on expunged entry", func(t *testing.T) {
		e := &entry[string]{}
		e.tryExpungeLocked()
		assert.False(t, e.tryStore("b"))
		assert.Equal(t, stateExpunged, e.state())
	})
}

func TestEntry_TryLoadOrStore(t *testing.T) {
	t.Run("null stores value", func(t *testing.T) {
		e := &entry[int]{}
		actual, loaded, ok := e.tryLoadOrStore(5)
		assert.True(t, ok)
		assert.False(t, loaded)
		assert.Equal(t, 5, actual)
		v, _ := e.load()
		assert.Equal(t, 5, v)
	})

	t.Run("present returns existing value", func(t *testing.T) {
		e := newEntry(1)
		actual, loaded, ok := e.tryLoadOrStore(5)
		assert.True(t, ok)
		assert.True(t, loaded)
		assert.Equal(t, 1, actual)
	})

	t.Run("expunged is not ok", func(t *testing.T) {
		e := &entry[int]{}
		e.tryExpungeLocked()
		_, loaded, ok := e.tryLoadOrStore(5)
		assert.False(t, ok)
		assert.False(t, loaded)
		assert.Equal(t, stateExpunged, e.state())
	})

	t.Run("concurrent callers agree on one value", func(t *testing.T) {
		e := &entry[int]{}
		const n = 64
		results := make([]int, n)
		stored := make([]bool, n)

		var wg sync.WaitGroup
		wg.Add(n)
		for i := range n {
			go func(i int) {
				defer wg.Done()
				actual, loaded, ok := e.tryLoadOrStore(i)
				assert.True(t, ok)
				results[i] = actual
				stored[i] = !loaded
			}(i)
		}
		wg.Wait()

		winners := 0
		for i := range n {
			if stored[i] {
				winners++
			}
			assert.Equal(t, results[0], results[i])
		}
		assert.Equal(t, 1, winners)
	})
}

func TestEntry_Delete(t *testing.T) {
	t.Run("present entry moves to null", func(t *testing.T) {
		e := newEntry(3)
		v, ok := e.delete()
		assert.True(t, ok)
		assert.Equal(t, 3, v)
		assert.Equal(t, stateNull, e.state())
	})

	t.Run("null entry is not deleted twice", func(t *testing.T) {
		e := newEntry(3)
		e.delete()
		_, ok := e.delete()
		assert.False(t, ok)
	})

	t.Run("expunged entry stays expunged", func(t *testing.T) {
		e := &entry[int]{}
		e.tryExpungeLocked()
		_, ok := e.delete()
		assert.False(t, ok)
		assert.Equal(t, stateExpunged, e.state())
	})
}

func TestEntry_ExpungeCycle(t *testing.T) {
	t.Run("present entry is not expunged", func(t *testing.T) {
		e := newEntry(1)
		assert.False(t, e.tryExpungeLocked())
		assert.Equal(t, statePresent, e.state())
	})

	t.Run("expunge is idempotent", func(t *testing.T) {
		e := &entry[int]{}
		assert.True(t, e.tryExpungeLocked())
		assert.True(t, e.tryExpungeLocked())
	})

	t.Run("unexpunge reports only real transitions", func(t *testing.T) {
		e := &entry[int]{}
		assert.False(t, e.unexpungeLocked())

		e.tryExpungeLocked()
		assert.True(t, e.unexpungeLocked())
		assert.Equal(t, stateNull, e.state())
		assert.False(t, e.unexpungeLocked())

		e.storeLocked(4)
		v, ok := e.load()
		assert.True(t, ok)
		assert.Equal(t, 4, v)
	})

	t.Run("zero sized values never look expunged", func(t *testing.T) {
		e := newEntry(struct{}{})
		assert.Equal(t, statePresent, e.state())
		assert.False(t, e.tryExpungeLocked())
	})
}

func TestEntryState_String(t *testing.T) {
	assert.Equal(t, "Null", stateNull.String())
	assert.Equal(t, "Present", statePresent.String())
	assert.Equal(t, "Expunged", stateExpunged.String())
	assert.Equal(t, "Unknown", entryState(9).String())
}
