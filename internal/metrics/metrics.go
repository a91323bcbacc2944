// Package metrics is the backend-agnostic instrumentation surface used by the
// converter. The default backend discards everything; the command installs a
// real one (see metrics/datadog) when asked to.
package metrics

import (
	"sync"
	"time"
)

// Metric names. Backends match on these.
const (
	StepTotal           = "fbe2json_step_total"
	StepDurationSeconds = "fbe2json_step_duration_seconds"
	RecordsTotal        = "fbe2json_records_total"
)

// Step statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Labels are metric dimensions.
type Labels map[string]string

// Backend receives metric observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Flusher is implemented by backends that buffer.
type Flusher interface {
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the process-wide backend. A nil b restores the
// no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush flushes the current backend if it buffers.
func Flush() error {
	if f, ok := current().(Flusher); ok {
		return f.Flush()
	}
	return nil
}

// RecordStep counts one execution of step and observes its duration.
func RecordStep(step, status string, d time.Duration) {
	b := current()
	l := Labels{"step": step, "status": status}
	b.IncCounter(StepTotal, 1, l)
	b.ObserveHistogram(StepDurationSeconds, d.Seconds(), l)
}

// RecordRecords counts n extracted entities of kind (threads, posts, ...).
func RecordRecords(kind string, n int) {
	if n <= 0 {
		return
	}
	current().IncCounter(RecordsTotal, float64(n), Labels{"kind": kind})
}

// Time runs fn as step and records its outcome and duration.
func Time(step string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	RecordStep(step, status, time.Since(start))
	return err
}
