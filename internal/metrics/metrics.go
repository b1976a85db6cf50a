// Package metrics is a minimal counter seam for the ETL job.
//
// Core code depends only on the Backend interface and the package-level
// helpers; the default backend is a nop, so metrics cost nothing unless a
// real backend (see the datadog subpackage) is installed at startup.
package metrics

import "sync"

// Labels tag a metric sample (e.g. table, status).
type Labels map[string]string

// Backend receives metric samples. Implementations buffer internally and
// submit on Flush.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels) {}
func (nopBackend) Flush() error                       { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Call once at startup.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// IncCounter adds delta to the named counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	mu.RLock()
	b := backend
	mu.RUnlock()
	b.IncCounter(name, delta, labels)
}

// Flush submits buffered metrics on the installed backend.
func Flush() error {
	mu.RLock()
	b := backend
	mu.RUnlock()
	return b.Flush()
}
