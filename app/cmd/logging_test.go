package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexcodex/codeagent/agents"
	"github.com/lexcodex/codeagent/framework"
)

func openFDs(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("no /proc/self/fd")
	}
	return len(entries)
}

func TestBuildLoggingWritesBothSinks(t *testing.T) {
	ws := t.TempDir()
	cfg := agents.LoggingConfig{Level: "info", File: "codeagent.log", TelemetryFile: "events.jsonl"}
	logger, telemetry, cleanup, err := buildLogging(cfg, ws, false, io.Discard)
	require.NoError(t, err)
	logger.Info("hello sinks")
	telemetry.Emit(framework.Event{Type: framework.EventActionStart, RequestID: "r1"})
	cleanup()

	data, err := os.ReadFile(filepath.Join(agents.ConfigDir(ws), "codeagent.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "hello sinks")
	data, err = os.ReadFile(filepath.Join(agents.ConfigDir(ws), "events.jsonl"))
	require.NoError(t, err)
	require.Contains(t, string(data), `"request_id":"r1"`)
}

func TestBuildLoggingClosesLogFileWhenTelemetryFails(t *testing.T) {
	ws := t.TempDir()
	dir := agents.ConfigDir(ws)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	// A regular file where the telemetry directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocked"), nil, 0o644))
	cfg := agents.LoggingConfig{File: "codeagent.log", TelemetryFile: "blocked/events.jsonl"}

	before := openFDs(t)
	_, _, _, err := buildLogging(cfg, ws, false, io.Discard)
	require.Error(t, err)
	require.Equal(t, before, openFDs(t))

	_, _, _, err = buildLogging(agents.LoggingConfig{Level: "loud"}, ws, false, io.Discard)
	require.Error(t, err)
}
