package clog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)

	// 默认配置下不应 panic
	logger.Info("hello", String("key", "value"))
	logger.Debug("below default level")
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	assert.Error(t, err)

	_, err = New(&Config{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"Warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", InfoLevel, true},
		{"", InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
		} else {
			assert.NoError(t, err, "input %q", tt.in)
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestWithNamespace(t *testing.T) {
	logger, err := New(&Config{Level: "debug"})
	require.NoError(t, err)

	child := logger.WithNamespace("breaker").WithNamespace("window")
	impl, ok := child.(*loggerImpl)
	require.True(t, ok)
	assert.Equal(t, "breaker.window", impl.namespace)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Info("silent")
	assert.Same(t, logger, logger.With(String("k", "v")))
	assert.Same(t, logger, logger.WithNamespace("x"))
	assert.NoError(t, logger.SetLevel(DebugLevel))
}

func TestSetLevel(t *testing.T) {
	logger, err := New(&Config{Level: "error"})
	require.NoError(t, err)
	require.NoError(t, logger.SetLevel(DebugLevel))
}
