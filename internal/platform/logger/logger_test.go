package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_LevelByEnvironment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		level       string
		want        zapcore.Level
	}{
		{"development defaults to debug", "development", "", zapcore.DebugLevel},
		{"production defaults to info", "production", "", zapcore.InfoLevel},
		{"explicit level wins", "development", "warn", zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.environment, tt.level)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.want))
			assert.False(t, l.Core().Enabled(tt.want-1))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("production", "loud")
	assert.ErrorContains(t, err, `invalid level "loud"`)
}
