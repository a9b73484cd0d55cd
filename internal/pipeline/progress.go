package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives progress events during batch processing.
type ProgressCallback interface {
	// OnStart is called once with the number of frames.
	OnStart(total int)

	// OnProgress is called after every finished frame.
	OnProgress(current, total int)

	// OnComplete is called when processing is finished.
	OnComplete()

	// OnError is called with the input index of a failed frame.
	OnError(index int, err error)
}

// NoOpProgressCallback implements ProgressCallback but does nothing.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()         {}
func (NoOpProgressCallback) OnError(int, error)  {}

// ConsoleProgressCallback draws a progress bar on a terminal.
type ConsoleProgressCallback struct {
	writer         io.Writer
	prefix         string
	width          int
	updateInterval time.Duration

	mu         sync.Mutex
	lastUpdate time.Time
	startTime  time.Time
	failed     int
}

// NewConsoleProgressCallback creates a console reporter writing to writer
// (stderr when nil).
func NewConsoleProgressCallback(writer io.Writer, prefix string) *ConsoleProgressCallback {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgressCallback{
		writer:         writer,
		prefix:         prefix,
		width:          40,
		updateInterval: 100 * time.Millisecond,
	}
}

// WithWidth sets the progress bar width.
func (c *ConsoleProgressCallback) WithWidth(width int) *ConsoleProgressCallback {
	if width > 0 {
		c.width = width
	}
	return c
}

// WithUpdateInterval sets how frequently the progress bar redraws.
func (c *ConsoleProgressCallback) WithUpdateInterval(interval time.Duration) *ConsoleProgressCallback {
	c.updateInterval = interval
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.lastUpdate = time.Time{}
	c.failed = 0
	_, _ = fmt.Fprintf(c.writer, "%s0/%d (0.0%%)\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastUpdate) < c.updateInterval && current < total {
		return
	}
	c.lastUpdate = now
	if total <= 0 {
		return
	}

	filled := min(c.width, c.width*current/total)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)
	status := fmt.Sprintf("\r%s[%s] %d/%d (%.1f%%)", c.prefix, bar, current, total,
		float64(current)/float64(total)*100)
	if c.failed > 0 {
		status += fmt.Sprintf(" failed: %d", c.failed)
	}
	if elapsed := now.Sub(c.startTime); elapsed > 0 && current > 0 {
		status += fmt.Sprintf(" %.1f/s", float64(current)/elapsed.Seconds())
	}
	_, _ = fmt.Fprint(c.writer, status)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, _ = fmt.Fprintf(c.writer, "\n%sCompleted in %v\n", c.prefix, time.Since(c.startTime).Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(index int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failed++
	_, _ = fmt.Fprintf(c.writer, "\n%sError at item %d: %v\n", c.prefix, index, err)
}

// LogProgressCallback logs progress through slog.
type LogProgressCallback struct {
	logger   *slog.Logger
	level    slog.Level
	interval int

	mu        sync.Mutex
	lastLog   int
	startTime time.Time
}

// NewLogProgressCallback creates a log-based reporter. A nil logger uses
// slog.Default.
func NewLogProgressCallback(logger *slog.Logger, level slog.Level) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, level: level, interval: 10}
}

// WithInterval logs every n frames.
func (l *LogProgressCallback) WithInterval(n int) *LogProgressCallback {
	if n > 0 {
		l.interval = n
	}
	return l
}

func (l *LogProgressCallback) OnStart(total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.startTime = time.Now()
	l.lastLog = 0
	l.logger.Log(context.Background(), l.level, "Batch started", "total", total)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current-l.lastLog < l.interval && current != total {
		return
	}
	l.lastLog = current
	l.logger.Log(context.Background(), l.level, "Batch progress",
		"current", current,
		"total", total,
		"elapsed", time.Since(l.startTime).Round(time.Millisecond),
	)
}

func (l *LogProgressCallback) OnComplete() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Log(context.Background(), l.level, "Batch completed",
		"elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgressCallback) OnError(index int, err error) {
	l.logger.Error("Batch item failed", "index", index, "error", err)
}

// MultiProgressCallback fans events out to several callbacks.
type MultiProgressCallback struct {
	callbacks []ProgressCallback
}

// NewMultiProgressCallback reports to every non-nil callback.
func NewMultiProgressCallback(callbacks ...ProgressCallback) *MultiProgressCallback {
	m := &MultiProgressCallback{}
	for _, cb := range callbacks {
		m.Add(cb)
	}
	return m
}

// Add adds another callback.
func (m *MultiProgressCallback) Add(cb ProgressCallback) {
	if cb != nil {
		m.callbacks = append(m.callbacks, cb)
	}
}

func (m *MultiProgressCallback) OnStart(total int) {
	for _, cb := range m.callbacks {
		cb.OnStart(total)
	}
}

func (m *MultiProgressCallback) OnProgress(current, total int) {
	for _, cb := range m.callbacks {
		cb.OnProgress(current, total)
	}
}

func (m *MultiProgressCallback) OnComplete() {
	for _, cb := range m.callbacks {
		cb.OnComplete()
	}
}

func (m *MultiProgressCallback) OnError(index int, err error) {
	for _, cb := range m.callbacks {
		cb.OnError(index, err)
	}
}
