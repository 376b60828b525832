// Package metrics decouples the cleaning pipeline from any concrete
// metrics system.
//
// The pipeline emits counters and histogram samples through the
// package-level functions. A process wires a real backend (Pushgateway,
// Datadog) at startup via SetBackend; until then every emission is a
// cheap no-op, so library code never has to ask whether metrics are
// enabled.
package metrics

import "sync"

// Labels carries metric label key/value pairs.
type Labels map[string]string

// Backend is the sink a metrics implementation provides. Implementations
// must be safe for concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

type nop struct{}

func (nop) IncCounter(string, float64, Labels)       {}
func (nop) ObserveHistogram(string, float64, Labels) {}
func (nop) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nop{}
)

// SetBackend installs the process-wide backend. Passing nil restores the
// no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nop{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a named counter on the active backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample of a named histogram on the active
// backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush pushes buffered metrics out through the active backend.
func Flush() error {
	return current().Flush()
}
