//go:build events_debug

package events

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	SetLogger(l)

	Info("Test Log Message")

	assert.Contains(t, buf.String(), "Test Log Message")
}

func TestDebugLog(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	SetLogger(l)

	Debug("Debug Message")

	assert.Contains(t, buf.String(), "Debug Message")
}
