package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("acsf-test", "0.0.1", WarnLevel)
	logger.SetOutput(&buf)

	ctx := context.Background()
	logger.Info(ctx, "[IGNORED] below threshold", Fields{})
	logger.Warn(ctx, "[TARGETS] fallback", Fields{"requested": []string{"volts"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "acsf-test", entry.Service)
	assert.Equal(t, "[TARGETS] fallback", entry.Message)
}

func TestStructuredLoggerContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("acsf-test", "0.0.1", DebugLevel)
	logger.SetOutput(&buf)

	ctx := WithRequestID(WithRunID(context.Background(), "run-42"), "req-7")
	logger.Error(ctx, "[INGEST_ERROR] failed", Fields{"file": "a.xml"}, errors.New("boom"))

	var entry LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "run-42", entry.RunID)
	assert.Equal(t, "req-7", entry.RequestID)
	assert.Equal(t, "boom", entry.Error)
	assert.NotEmpty(t, entry.File)
	assert.Equal(t, "a.xml", entry.Fields["file"])
}

func TestContextLoggerMergesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("acsf-test", "0.0.1", DebugLevel)
	logger.SetOutput(&buf)

	child := logger.WithFields(Fields{"component": "extractor", "file": "old"})
	child.Debug(context.Background(), "[EXTRACT] parsed", Fields{"file": "new.xml"})

	var entry LogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "extractor", entry.Fields["component"])
	assert.Equal(t, "new.xml", entry.Fields["file"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		" error ": ErrorLevel,
		"fatal":   FatalLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}
