// Package metrics decouples the sync engine from any concrete metrics
// vendor. The engine calls the package-level helpers; a main package may
// install a real backend with SetBackend, otherwise everything is a no-op.
package metrics

import "sync"

// Backend receives metric observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	// IncCounter adds 1 to a named counter.
	IncCounter(name string, tags ...string)

	// AddCounter adds an arbitrary delta to a named counter.
	AddCounter(name string, delta float64, tags ...string)

	// ObserveDuration records one duration sample in seconds.
	ObserveDuration(name string, seconds float64, tags ...string)

	// Flush submits buffered observations.
	Flush() error

	// Close flushes one final time and releases resources.
	Close() error
}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs the process-wide backend. Passing nil restores the
// no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

func IncCounter(name string, tags ...string) { current().IncCounter(name, tags...) }

func AddCounter(name string, delta float64, tags ...string) {
	current().AddCounter(name, delta, tags...)
}

func ObserveDuration(name string, seconds float64, tags ...string) {
	current().ObserveDuration(name, seconds, tags...)
}

func Flush() error { return current().Flush() }

func Close() error { return current().Close() }

type nopBackend struct{}

func (nopBackend) IncCounter(string, ...string)               {}
func (nopBackend) AddCounter(string, float64, ...string)      {}
func (nopBackend) ObserveDuration(string, float64, ...string) {}
func (nopBackend) Flush() error                               { return nil }
func (nopBackend) Close() error                               { return nil }
