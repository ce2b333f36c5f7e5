// internal/common/logger/logger_test.go
package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapWrapper_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"taskType": "compute-loan-quote"})

	log.Info("quote computed", map[string]interface{}{"amount": 1500.0})
	log.WithError(errors.New("redis down")).Warn("cache miss", nil)
	log.With(map[string]interface{}{"jobKey": int64(7)}).Error("job failed", map[string]interface{}{
		"error": errors.New("boom"),
	})

	entries := logs.All()
	assert.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "compute-loan-quote", entries[0].ContextMap()["taskType"])
	assert.Equal(t, 1500.0, entries[0].ContextMap()["amount"])

	assert.Equal(t, "redis down", entries[1].ContextMap()["error"])

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, int64(7), entries[2].ContextMap()["jobKey"])
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("anything"))
}

func TestConstructors(t *testing.T) {
	assert.NotNil(t, New("debug", "console"))
	assert.NotNil(t, NewStructured("info", "json"))
	assert.NotNil(t, NewWithOutput("info", "json", "stderr"))

	NewNoOpLogger().Info("dropped", nil)
	NewTestLogger(t).Debug("visible in -v", map[string]interface{}{"k": "v"})
}
