package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	bytes.Buffer
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return nil
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, "svc", zerolog.InfoLevel)

	l.Debug("hidden")
	l.Info("hello", Field{Key: "k", Value: 1})
	l.Warn("careful")
	l.Error("broken", Field{Key: "error", Value: "boom"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "hello", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "svc", lines[0]["service"])
	assert.EqualValues(t, 1, lines[0]["k"])
	assert.Contains(t, lines[0], "time")
	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "boom", lines[2]["error"])
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriterLogger(&buf, "svc", zerolog.DebugLevel)
	child := base.With(Field{Key: "component", Value: "cacher"})

	child.Debug("from child")
	base.Debug("from base")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "cacher", lines[0]["component"])
	assert.NotContains(t, lines[1], "component")
}

func TestLogger_Close(t *testing.T) {
	t.Run("closes owned writer once", func(t *testing.T) {
		w := &closeRecorder{}
		l := NewWriterLogger(w, "svc", zerolog.InfoLevel)
		require.NoError(t, l.Close())
		require.NoError(t, l.Close())
		assert.Equal(t, 1, w.closed)
	})

	t.Run("derived logger does not close writer", func(t *testing.T) {
		w := &closeRecorder{}
		l := NewWriterLogger(w, "svc", zerolog.InfoLevel)
		require.NoError(t, l.With().Close())
		assert.Equal(t, 0, w.closed)
	})

	t.Run("wrapped zerolog logger has nothing to close", func(t *testing.T) {
		l := NewZerologLogger(zerolog.Nop(), "svc", zerolog.InfoLevel)
		assert.NoError(t, l.Close())
	})
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Info("ignored", Field{Key: "k", Value: "v"})
		l.With(Field{Key: "a", Value: 1}).Error("ignored")
	})
	_, ok := l.GetLoggerInstance().(zerolog.Logger)
	assert.True(t, ok)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))

	l := NewNopLogger()
	assert.Same(t, l, OrNop(l))
}

func TestToMap(t *testing.T) {
	assert.Nil(t, toMap(nil))
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, toMap([]Field{{Key: "a", Value: 1}, {Key: "b", Value: "x"}}))
}
