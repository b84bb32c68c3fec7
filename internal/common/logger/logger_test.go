package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"info", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestZapAdapter_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"taskType": "translate-query"})

	log.Info("translated", map[string]interface{}{"intent": "top_n", "cause": errors.New("boom")})
	log.WithError(errors.New("bad")).Warn("retrying", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "translate-query", first["taskType"])
	assert.Equal(t, "top_n", first["intent"])
	assert.Equal(t, "boom", first["cause"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "bad", entries[1].ContextMap()["error"])
}

func TestConstructors(t *testing.T) {
	NewTestLogger(t).With(map[string]interface{}{"k": 1}).Debug("test logger", nil)
	NewNoOpLogger().Error("dropped", map[string]interface{}{"k": 2})

	structured := NewStructured("warn", "json")
	structured.Info("below level", nil)
	assert.NotNil(t, structured)
}
