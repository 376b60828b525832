package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

//
// SetupLoggerWithWriters
//

// TestSetupLoggerWithWriters verifies the fanout: human-readable text on the
// stderr writer, one JSON object per record on the file writer.
func TestSetupLoggerWithWriters(t *testing.T) {
	t.Parallel()

	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("job started", "job_id", "j-42")

	if !strings.Contains(stderr.String(), "job started") {
		t.Fatalf("stderr output missing message: %q", stderr.String())
	}

	var record map[string]any
	if err := json.Unmarshal(file.Bytes(), &record); err != nil {
		t.Fatalf("file output is not JSON: %v", err)
	}
	if record["msg"] != "job started" {
		t.Fatalf("file record msg = %v, want %q", record["msg"], "job started")
	}
	if record["job_id"] != "j-42" {
		t.Fatalf("file record job_id = %v, want %q", record["job_id"], "j-42")
	}
}

// TestSetupLoggerWithWritersLevel verifies records below the configured
// level are dropped on both outputs.
func TestSetupLoggerWithWritersLevel(t *testing.T) {
	t.Parallel()

	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Info("too quiet")

	if stderr.Len() != 0 || file.Len() != 0 {
		t.Fatalf("info record leaked through warn level: stderr=%q file=%q", stderr.String(), file.String())
	}
}

//
// SetupLogger
//

// TestSetupLoggerFile verifies the file handler appends JSON records and the
// cleanup function closes the file.
func TestSetupLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "csvclean.log")

	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	logger.Info("hello")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("log file is not JSON: %v (%q)", err, data)
	}
	if record["msg"] != "hello" {
		t.Fatalf("record msg = %v, want hello", record["msg"])
	}
}

// TestSetupLoggerNoFile verifies an empty path yields a stderr-only logger
// with a no-op cleanup.
func TestSetupLoggerNoFile(t *testing.T) {
	t.Parallel()

	logger, cleanup := SetupLogger("", slog.LevelInfo)
	if logger == nil {
		t.Fatal("logger is nil")
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup error: %v", err)
	}
}

// TestSetupLoggerOpenFailure verifies falling back to stderr when the log
// file cannot be opened.
func TestSetupLoggerOpenFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "csvclean.log")

	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	if logger == nil {
		t.Fatal("logger is nil")
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup error: %v", err)
	}
}
