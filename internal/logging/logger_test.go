package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNamedDefaultsToNop(t *testing.T) {
	SetLogger(nil)
	// Must not panic and must swallow output.
	Named("store").Info("ignored")
	Sync()
}

func TestSetLoggerRoutesOutput(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Named("provider").Debug("request sent", zap.String("model", "gemini"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "provider" {
		t.Errorf("expected logger name 'provider', got %q", entries[0].LoggerName)
	}
}
