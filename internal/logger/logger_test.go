package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		env, level string
		want       zapcore.Level
	}{
		{"dev", "debug", zapcore.DebugLevel},
		{"prod", "warn", zapcore.WarnLevel},
		{"prod", "bogus", zapcore.InfoLevel},
		{"staging", "", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l := New(tt.env, tt.level)
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}
