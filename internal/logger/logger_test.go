package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := GetLevel()
	SetOutput(buf)
	SetColour(false)
	SetLevel(level)
	t.Cleanup(func() {
		SetLevel(prev)
		SetColour(true)
		_ = SetLogOutput('c')
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t, WARN)

	Info("hidden")
	Warn("shown", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] logger_test.go:")
	assert.Contains(t, out, "shown 3")
}

func TestStructArgumentsRenderAsJSON(t *testing.T) {
	buf := captureLogs(t, DEBUG)

	Debug("form", struct {
		Team string `json:"team"`
	}{Team: "Leeds"})

	out := buf.String()
	assert.Contains(t, out, "[Object of type struct")
	assert.Contains(t, out, `"team": "Leeds"`)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"":        INFO,
		"Warning": WARN,
		"ERROR":   ERROR,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestSetLogOutputRejectsUnknownMode(t *testing.T) {
	assert.Error(t, SetLogOutput('x'))
}
