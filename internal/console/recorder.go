package console

import (
	"strings"
	"sync"
	"time"
)

// Recorder is a display sink that keeps every line, for tests and probes.
type Recorder struct {
	mu      sync.Mutex
	lines   []string
	changed chan struct{}
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{})}
}

// Display stores line.
func (r *Recorder) Display(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	close(r.changed)
	r.changed = make(chan struct{})
}

// Lines returns a copy of everything displayed so far.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// WaitFor blocks until a line containing substr is displayed or timeout passes.
func (r *Recorder) WaitFor(substr string, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		r.mu.Lock()
		for _, line := range r.lines {
			if strings.Contains(line, substr) {
				r.mu.Unlock()
				return true
			}
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-deadline.C:
			return false
		}
	}
}

// Count returns how many lines contain substr.
func (r *Recorder) Count(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, line := range r.lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}
