package gardenlog

import (
	"bytes"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestInitializeLogger(t *testing.T) {
	logger, err := InitializeLogger(LogLevelDebug, "/dev/stdout")
	assert.NoError(t, err)
	assert.NotNil(t, logger)
	assert.Equal(t, LogLevelDebug, logger.LogLevel)
	assert.NotNil(t, logger.charm)
}

func TestLogger_WritesToBuffer(t *testing.T) {
	var buf bytes.Buffer
	charm := charmlog.NewWithOptions(&buf, charmlog.Options{})
	charm.SetLevel(charmlog.DebugLevel)
	logger := &Logger{LogLevel: LogLevelDebug, charm: charm}

	logger.Info("hello world")
	assert.Contains(t, buf.String(), "hello world")

	buf.Reset()
	logger.Debug("debug message", "key", "value")
	assert.Contains(t, buf.String(), "debug message")
	assert.Contains(t, buf.String(), "key=value")
}

func TestLogger_With_ScopesFields(t *testing.T) {
	var buf bytes.Buffer
	charm := charmlog.NewWithOptions(&buf, charmlog.Options{})
	charm.SetLevel(charmlog.InfoLevel)
	logger := &Logger{charm: charm}

	scoped := logger.With("action", "build.api")
	scoped.Info("started")

	assert.Contains(t, buf.String(), "action=build.api")
}
