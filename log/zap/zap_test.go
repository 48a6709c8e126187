package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/throughcache"
)

func TestLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("d", nil)
	l.Info("i", throughcache.Fields{"key": "Ping::1"})
	l.Warn("w", throughcache.Fields{"err": errors.New("boom"), "attempt": 2})
	l.Error("e", nil)

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("entries=%d want 4", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Fatalf("entry %d level=%v want %v", i, e.Level, wantLevels[i])
		}
		if e.LoggerName != "throughcache" {
			t.Fatalf("logger name=%q", e.LoggerName)
		}
	}
	ctx := entries[2].ContextMap()
	if ctx["err"] != "boom" || ctx["attempt"] != int64(2) {
		t.Fatalf("warn fields: %v", ctx)
	}
	if entries[1].ContextMap()["key"] != "Ping::1" {
		t.Fatalf("info fields: %v", entries[1].ContextMap())
	}
}
