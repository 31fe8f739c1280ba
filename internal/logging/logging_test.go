package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			logger, err := New(tt.in)
			if err != nil {
				t.Fatalf("New(%q) error: %v", tt.in, err)
			}
			if !logger.Core().Enabled(tt.want) {
				t.Fatalf("level %s should be enabled for %q", tt.want, tt.in)
			}
			if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
				t.Fatalf("level %s should be disabled for %q", tt.want-1, tt.in)
			}
		})
	}
}
