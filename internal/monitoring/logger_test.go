package monitoring

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	assert.True(t, called, "custom logger was not called")

	called = false
	SetLogger(nil)
	Logf("test message")
	assert.False(t, called, "no-op logger should not reach the previous callback")
}

func TestLogf_Default(t *testing.T) {
	assert.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}

func TestConfigure_WritesThroughZerolog(t *testing.T) {
	origLogger, origLogf := Logger, Logf
	defer func() { Logger, Logf = origLogger, origLogf }()

	var buf bytes.Buffer
	Configure(&buf, "debug", false)
	Logf("surface %s accepted", "plane-1")

	assert.Contains(t, buf.String(), "surface plane-1 accepted")
	assert.Contains(t, buf.String(), `"level":"info"`)
}

func TestConfigure_LevelFilters(t *testing.T) {
	origLogger, origLogf := Logger, Logf
	defer func() { Logger, Logf = origLogger, origLogf }()

	var buf bytes.Buffer
	Configure(&buf, "error", false)
	Logf("dropped")
	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}
