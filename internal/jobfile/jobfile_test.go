package jobfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeJob(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write job file: %v", err)
	}
	return path
}

func readJob(t *testing.T, path string) map[string]any {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read job file: %v", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("decode job file: %v", err)
	}
	return data
}

//
// Load
//

// TestLoadErrors verifies missing files and malformed JSON surface as
// wrapped errors rather than panics.
func TestLoadErrors(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("Load(absent) expected error")
	}

	path := writeJob(t, "{not json")
	if _, err := Load(path); err == nil {
		t.Fatal("Load(malformed) expected error")
	}
}

//
// BeginAttempt
//

// TestBeginAttempt verifies the attempt counter increments, the status
// flips to processing, and any prior error clears, all persisted to disk.
//
// Progress must stay untouched so a retry keeps the previous run's
// checkpoint value until the new run overwrites it.
func TestBeginAttempt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		content      string
		wantAttempts float64
	}{
		{"first attempt", `{"status": "queued"}`, 1},
		{"retry", `{"attempts": 2, "status": "failed", "error": {"message": "boom"}, "progress": 0.4}`, 3},
		{"malformed counter", `{"attempts": "three"}`, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeJob(t, tt.content)
			d, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if err := d.BeginAttempt(); err != nil {
				t.Fatalf("BeginAttempt: %v", err)
			}

			got := readJob(t, path)
			if got["attempts"] != tt.wantAttempts {
				t.Fatalf("attempts = %v, want %v", got["attempts"], tt.wantAttempts)
			}
			if got["status"] != "processing" {
				t.Fatalf("status = %v, want processing", got["status"])
			}
			if got["error"] != nil {
				t.Fatalf("error = %v, want null", got["error"])
			}
		})
	}
}

// TestBeginAttemptKeepsProgress verifies a retry does not reset progress.
func TestBeginAttemptKeepsProgress(t *testing.T) {
	t.Parallel()

	path := writeJob(t, `{"progress": 0.7}`)
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := d.BeginAttempt(); err != nil {
		t.Fatalf("BeginAttempt: %v", err)
	}

	if got := readJob(t, path)["progress"]; got != 0.7 {
		t.Fatalf("progress = %v, want 0.7", got)
	}
}

//
// SetProgress
//

// TestSetProgress verifies checkpoint fractions round to two decimals on
// their way to disk.
func TestSetProgress(t *testing.T) {
	t.Parallel()

	path := writeJob(t, `{}`)
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := d.SetProgress(0.123456); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}

	if got := readJob(t, path)["progress"]; got != 0.12 {
		t.Fatalf("progress = %v, want 0.12", got)
	}
	if got := d.Progress(); got != 0.12 {
		t.Fatalf("Progress() = %v, want 0.12", got)
	}
}

//
// MarkCompleted / MarkFailed
//

// TestMarkCompleted verifies the terminal success state.
func TestMarkCompleted(t *testing.T) {
	t.Parallel()

	path := writeJob(t, `{"status": "processing", "progress": 0.9}`)
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := d.MarkCompleted(); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	got := readJob(t, path)
	if got["status"] != "completed" {
		t.Fatalf("status = %v, want completed", got["status"])
	}
	if got["progress"] != 1.0 {
		t.Fatalf("progress = %v, want 1", got["progress"])
	}
	if got["error"] != nil {
		t.Fatalf("error = %v, want null", got["error"])
	}
}

// TestMarkFailed verifies the terminal failure state carries the error
// object with message, kind, and step.
func TestMarkFailed(t *testing.T) {
	t.Parallel()

	path := writeJob(t, `{"status": "processing"}`)
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := d.MarkFailed("no such file", "IOFailure", "load"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got := readJob(t, path)
	if got["status"] != "failed" {
		t.Fatalf("status = %v, want failed", got["status"])
	}
	errObj, ok := got["error"].(map[string]any)
	if !ok {
		t.Fatalf("error = %v, want object", got["error"])
	}
	if errObj["message"] != "no such file" || errObj["kind"] != "IOFailure" || errObj["step"] != "load" {
		t.Fatalf("error object = %v", errObj)
	}
}

//
// Save
//

// TestSavePreservesUnknownFields verifies fields the engine does not
// interpret survive a rewrite.
func TestSavePreservesUnknownFields(t *testing.T) {
	t.Parallel()

	path := writeJob(t, `{"createdBy": "scheduler", "priority": 5, "tags": ["a", "b"]}`)
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := d.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := readJob(t, path)
	if got["createdBy"] != "scheduler" {
		t.Fatalf("createdBy = %v, want scheduler", got["createdBy"])
	}
	if got["priority"] != 5.0 {
		t.Fatalf("priority = %v, want 5", got["priority"])
	}
	if tags, ok := got["tags"].([]any); !ok || len(tags) != 2 {
		t.Fatalf("tags = %v, want [a b]", got["tags"])
	}
}

// TestSaveStampsUpdatedAt verifies every rewrite stamps a UTC millisecond
// timestamp. The clock is stubbed for an exact comparison.
func TestSaveStampsUpdatedAt(t *testing.T) {
	restore := now
	now = func() time.Time {
		return time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	}
	defer func() { now = restore }()

	path := writeJob(t, `{}`)
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := d.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if got := readJob(t, path)["updatedAt"]; got != "2025-03-14T09:26:53.589Z" {
		t.Fatalf("updatedAt = %v, want 2025-03-14T09:26:53.589Z", got)
	}
}

//
// ID
//

// TestID verifies identifier selection: jobId wins over id, and null,
// empty, zero, and false values read as "no identifier".
func TestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"jobId string", `{"jobId": "j-7", "id": "x"}`, "j-7"},
		{"id fallback", `{"id": "x-1"}`, "x-1"},
		{"numeric id", `{"id": 42}`, "42"},
		{"empty jobId falls through", `{"jobId": "", "id": "x-2"}`, "x-2"},
		{"null jobId falls through", `{"jobId": null, "id": "x-3"}`, "x-3"},
		{"zero id", `{"id": 0}`, ""},
		{"none", `{}`, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, err := Load(writeJob(t, tt.content))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := d.ID(); got != tt.want {
				t.Fatalf("ID() = %q, want %q", got, tt.want)
			}
		})
	}
}
