package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_ParsesLevel(t *testing.T) {
	l, err := New("debug", "masapp")
	require.NoError(t, err)

	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := New("chatty", "masapp")
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}
