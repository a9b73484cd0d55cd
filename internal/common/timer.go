// Package common holds small helpers shared by the processing packages.
package common

import (
	"fmt"
	"time"
)

// Timer measures a single named span.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer starts a timer labelled name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records and returns the elapsed time.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration { return t.duration }

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string { return t.name }

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}

// Stopwatch accumulates durations per name and remembers first-seen order.
// It is not safe for concurrent use.
type Stopwatch struct {
	order  []string
	totals map[string]time.Duration
}

// NewStopwatch returns an empty stopwatch.
func NewStopwatch() *Stopwatch {
	return &Stopwatch{totals: make(map[string]time.Duration)}
}

// Add records d under name.
func (s *Stopwatch) Add(name string, d time.Duration) {
	if _, ok := s.totals[name]; !ok {
		s.order = append(s.order, name)
	}
	s.totals[name] += d
}

// Time runs fn and records its duration under name.
func (s *Stopwatch) Time(name string, fn func()) {
	t := NewNamedTimer(name)
	fn()
	s.Add(name, t.Stop())
}

// Get returns the accumulated duration for name.
func (s *Stopwatch) Get(name string) time.Duration { return s.totals[name] }

// Names returns recorded names in first-seen order.
func (s *Stopwatch) Names() []string { return append([]string(nil), s.order...) }

// Total returns the sum of all recorded durations.
func (s *Stopwatch) Total() time.Duration {
	var sum time.Duration
	for _, d := range s.totals {
		sum += d
	}
	return sum
}

// Milliseconds returns the totals as float milliseconds keyed by name.
func (s *Stopwatch) Milliseconds() map[string]float64 {
	out := make(map[string]float64, len(s.totals))
	for name, d := range s.totals {
		out[name] = float64(d.Microseconds()) / 1000
	}
	return out
}
