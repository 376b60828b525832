// Package jobfile reads and rewrites the job descriptor files that drive
// cleaning runs. A descriptor is mutated in place on disk: every checkpoint
// rewrites the full JSON with a fresh updatedAt stamp, and fields the engine
// does not understand are carried across rewrites untouched.
package jobfile

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"
)

// now is stubbed in tests.
var now = time.Now

// timeFormat renders UTC timestamps with millisecond precision.
const timeFormat = "2006-01-02T15:04:05.000Z"

// Descriptor is one decoded job file plus the path it came from.
type Descriptor struct {
	path string
	data map[string]any
}

// Load reads and decodes the job descriptor at path.
func Load(path string) (*Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode job file: %w", err)
	}
	return &Descriptor{path: path, data: data}, nil
}

// Path returns the descriptor's on-disk location.
func (d *Descriptor) Path() string { return d.path }

// Field returns the raw value stored under key.
func (d *Descriptor) Field(key string) (any, bool) {
	v, ok := d.data[key]
	return v, ok
}

// ID returns the job identifier, preferring jobId over id. Missing, null,
// empty, zero, and false values all read as "no identifier".
func (d *Descriptor) ID() string {
	for _, key := range []string{"jobId", "id"} {
		if v, ok := d.data[key]; ok && truthy(v) {
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

// Attempts returns the attempt counter, tolerating missing or malformed
// values.
func (d *Descriptor) Attempts() int {
	switch v := d.data["attempts"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Progress returns the last written progress fraction.
func (d *Descriptor) Progress() float64 {
	if v, ok := d.data["progress"].(float64); ok {
		return v
	}
	return 0
}

// Status returns the current status string.
func (d *Descriptor) Status() string {
	s, _ := d.data["status"].(string)
	return s
}

// BeginAttempt increments the attempt counter, moves the job to processing,
// clears any previous error, and persists. Progress is left untouched so a
// retry keeps the prior run's last checkpoint value until the new run
// overwrites it.
func (d *Descriptor) BeginAttempt() error {
	d.data["attempts"] = d.Attempts() + 1
	d.data["status"] = "processing"
	d.data["error"] = nil
	return d.Save()
}

// SetProgress records a checkpoint fraction, rounded to two decimals, and
// persists.
func (d *Descriptor) SetProgress(p float64) error {
	d.data["progress"] = math.Round(p*100) / 100
	return d.Save()
}

// MarkCompleted moves the job to its terminal success state and persists.
func (d *Descriptor) MarkCompleted() error {
	d.data["status"] = "completed"
	d.data["progress"] = 1.0
	d.data["error"] = nil
	return d.Save()
}

// MarkFailed moves the job to its terminal failure state, recording what
// went wrong and during which step, and persists.
func (d *Descriptor) MarkFailed(message, kind, step string) error {
	d.data["status"] = "failed"
	d.data["error"] = map[string]any{
		"message": message,
		"kind":    kind,
		"step":    step,
	}
	return d.Save()
}

// Save stamps updatedAt and rewrites the descriptor file.
func (d *Descriptor) Save() error {
	d.data["updatedAt"] = now().UTC().Format(timeFormat)
	out, err := json.MarshalIndent(d.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode job file: %w", err)
	}
	if err := os.WriteFile(d.path, out, 0644); err != nil {
		return fmt.Errorf("write job file: %w", err)
	}
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	}
	return true
}
