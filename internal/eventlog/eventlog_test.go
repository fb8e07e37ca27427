package eventlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fzserpent/internal/core"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestEmitWritesOneJSONLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := New(path)
	require.NoError(t, err)

	require.NoError(t, log.Emit(core.Event{InvocationID: "calc-1", Level: "info", EventType: "input_resolved"}))
	require.NoError(t, log.Emit(core.Event{InvocationID: "calc-1", Level: "error", EventType: "backend_finished", Payload: map[string]int{"exit_code": 3}}))
	require.NoError(t, log.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)

	var first struct {
		TS           string `json:"ts"`
		InvocationID string `json:"invocation_id"`
		EventType    string `json:"event_type"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NotEmpty(t, first.TS)
	require.Equal(t, "calc-1", first.InvocationID)
	require.Equal(t, "input_resolved", first.EventType)
}

func TestReopenAppendsInsteadOfTruncating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	log, err := New(path)
	require.NoError(t, err)
	require.NoError(t, log.Emit(core.Event{InvocationID: "calc-1", Level: "info", EventType: "invocation_finished"}))
	require.NoError(t, log.Close())

	log, err = New(path)
	require.NoError(t, err)
	require.NoError(t, log.Emit(core.Event{InvocationID: "calc-2", Level: "info", EventType: "invocation_finished"}))
	require.NoError(t, log.Close())

	require.Len(t, readLines(t, path), 2)
}

func TestNewCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "events.jsonl")
	log, err := New(path)
	require.NoError(t, err)
	require.NoError(t, log.Close())
	require.FileExists(t, path)
}

func TestCloseOnNilIsSafe(t *testing.T) {
	var log *EventLog
	require.NoError(t, log.Close())
}
