package singlecall

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall(t *testing.T) {
	t.Run("runs when idle and resets flag", func(t *testing.T) {
		var flag atomic.Bool
		ran := false
		assert.True(t, Call(&flag, func() { ran = true }))
		assert.True(t, ran)
		assert.False(t, flag.Load())
	})

	t.Run("skips when busy", func(t *testing.T) {
		var flag atomic.Bool
		flag.Store(true)
		ran := false
		assert.False(t, Call(&flag, func() { ran = true }))
		assert.False(t, ran)
		assert.True(t, flag.Load())
	})

	t.Run("resets flag after panic", func(t *testing.T) {
		var flag atomic.Bool
		assert.Panics(t, func() {
			Call(&flag, func() { panic("boom") })
		})
		assert.False(t, flag.Load())
	})
}

func TestGuard_Concurrent(t *testing.T) {
	var g Guard
	release := make(chan struct{})
	entered := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ran := g.Call(func() {
			close(entered)
			<-release
		})
		assert.True(t, ran)
	}()

	<-entered
	assert.True(t, g.Busy())

	var skipped atomic.Int32
	var others sync.WaitGroup
	others.Add(10)
	for range 10 {
		go func() {
			defer others.Done()
			if !g.Call(func() { t.Error("second call must not run") }) {
				skipped.Add(1)
			}
		}()
	}
	others.Wait()
	assert.Equal(t, int32(10), skipped.Load())

	close(release)
	wg.Wait()
	assert.False(t, g.Busy())
	assert.True(t, g.Call(func() {}))
}

func TestKeyedGuard(t *testing.T) {
	k := NewKeyedGuard[string]()
	require.NotNil(t, k)

	release := make(chan struct{})
	entered := make(chan struct{})
	done := make(chan bool)

	go func() {
		done <- k.Call("a", func() {
			close(entered)
			<-release
		})
	}()
	<-entered

	t.Run("same key is skipped", func(t *testing.T) {
		assert.True(t, k.Busy("a"))
		assert.False(t, k.Call("a", func() {}))
	})

	t.Run("other key runs", func(t *testing.T) {
		ran := false
		assert.True(t, k.Call("b", func() { ran = true }))
		assert.True(t, ran)
		assert.False(t, k.Busy("b"))
	})

	t.Run("unknown key is not busy", func(t *testing.T) {
		assert.False(t, k.Busy("never-used"))
	})

	close(release)
	assert.True(t, <-done)
	assert.False(t, k.Busy("a"))
}
