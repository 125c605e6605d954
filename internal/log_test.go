package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"ERROR", LogLevelError},
		{"warn", LogLevelWarn},
		{" debug ", LogLevelDebug},
		{"TRACE", LogLevelTrace},
		{"", LogLevelInfo},
		{"verbose", LogLevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLogLevel(tt.in), tt.in)
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := NewNopLogger().With("import_id", "abc")
	l.Error("failed %d rows", 3)
	l.Info("ignored")
	assert.Equal(t, LogLevelError, l.GetLevel())
}
