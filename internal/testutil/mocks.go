package testutil

import (
	"bytes"
	"errors"
	"strings"
	"sync"
)

// LogBuffer is a concurrency-safe writer for capturing log output, with
// optional failure injection.
type LogBuffer struct {
	mu          sync.Mutex
	buf         bytes.Buffer
	writeCount  int
	shouldError bool
}

// NewLogBuffer creates an empty LogBuffer.
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{}
}

// Write implements io.Writer.
func (lb *LogBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.writeCount++
	if lb.shouldError {
		return 0, errors.New("simulated error")
	}
	return lb.buf.Write(p)
}

// String returns the captured output.
func (lb *LogBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.String()
}

// Lines returns the captured output split into non-empty lines.
func (lb *LogBuffer) Lines() []string {
	var lines []string
	for _, l := range strings.Split(lb.String(), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// WriteCount returns the number of Write calls.
func (lb *LogBuffer) WriteCount() int {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.writeCount
}

// SetAlwaysError makes every subsequent Write fail.
func (lb *LogBuffer) SetAlwaysError() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.shouldError = true
}
