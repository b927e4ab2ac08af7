package gardenlog

import (
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestTraceLevel_RelativeToDebug(t *testing.T) {
	assert.Equal(t, charmlog.DebugLevel-1, TraceLevel)
	assert.Less(t, int(TraceLevel), int(charmlog.DebugLevel))
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    LogLevel
		expectError bool
	}{
		{"empty string returns Info", "", LogLevelInfo, false},
		{"valid Trace level", "Trace", LogLevelTrace, false},
		{"valid Debug level", "Debug", LogLevelDebug, false},
		{"valid Off level", "Off", LogLevelOff, false},
		{"invalid lowercase level", "trace", "", true},
		{"invalid level", "InvalidLevel", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseLogLevel(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}
