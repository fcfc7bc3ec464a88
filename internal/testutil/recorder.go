package testutil

import (
	"sync"
	"testing"
	"time"
)

// Recorder is a stream subscriber that records every signal it receives.
// It satisfies stream.Subscriber[T] for any T.
type Recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	err       error
	completed bool
	signals   int
	terminal  chan struct{}
}

// NewRecorder creates an empty Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{terminal: make(chan struct{})}
}

func (r *Recorder[T]) OnValue(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
	r.signals++
}

func (r *Recorder[T]) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	r.signals++
	close(r.terminal)
}

func (r *Recorder[T]) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = true
	r.signals++
	close(r.terminal)
}

// Values returns a copy of the recorded values.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

// Err returns the terminal error, if any.
func (r *Recorder[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Completed reports whether OnComplete was received.
func (r *Recorder[T]) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// Terminated reports whether a terminal signal was received.
func (r *Recorder[T]) Terminated() bool {
	select {
	case <-r.terminal:
		return true
	default:
		return false
	}
}

// Signals returns the number of signals received.
func (r *Recorder[T]) Signals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signals
}

// Wait blocks until a terminal signal arrives, failing the test after timeout.
func (r *Recorder[T]) Wait(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.terminal:
	case <-time.After(timeout):
		t.Fatalf("no terminal signal within %v", timeout)
	}
}
