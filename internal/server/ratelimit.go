package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter counts requests and uploaded bytes per client in fixed
// minute, hour and day windows.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64 // bytes

	clients map[string]*ClientUsage
	now     func() time.Time
}

// ClientUsage is the usage of one client within the current windows.
type ClientUsage struct {
	Minute      Window    `json:"minute"`
	Hour        Window    `json:"hour"`
	Day         Window    `json:"day"`
	DataToday   int64     `json:"data_today"`
	LastRequest time.Time `json:"last_request"`
}

// Window is a fixed counting window.
type Window struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// roll restarts w when now is past its length.
func (w *Window) roll(now time.Time, length time.Duration) bool {
	if w.Start.IsZero() || now.Sub(w.Start) >= length {
		w.Start = now
		w.Count = 0
		return true
	}
	return false
}

// NewRateLimiter creates a new rate limiter with the given limits. Zero
// disables the corresponding limit.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*ClientUsage),
		now:               time.Now,
	}
}

// CheckRateLimit admits or rejects one request of dataSize bytes from
// clientID. Rejected requests are not counted.
func (rl *RateLimiter) CheckRateLimit(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	usage, ok := rl.clients[clientID]
	if !ok {
		usage = &ClientUsage{}
		rl.clients[clientID] = usage
	}

	usage.Minute.roll(now, time.Minute)
	usage.Hour.roll(now, time.Hour)
	if usage.Day.roll(now, 24*time.Hour) {
		usage.DataToday = 0
	}

	if rl.requestsPerMinute > 0 && usage.Minute.Count >= rl.requestsPerMinute {
		return &RateLimitError{Type: "minute", Limit: rl.requestsPerMinute, RetryAfter: usage.Minute.Start.Add(time.Minute).Sub(now)}
	}
	if rl.requestsPerHour > 0 && usage.Hour.Count >= rl.requestsPerHour {
		return &RateLimitError{Type: "hour", Limit: rl.requestsPerHour, RetryAfter: usage.Hour.Start.Add(time.Hour).Sub(now)}
	}

	resets := usage.Day.Start.Add(24 * time.Hour)
	if rl.maxRequestsPerDay > 0 && usage.Day.Count >= rl.maxRequestsPerDay {
		return &QuotaExceededError{Type: "requests", Limit: int64(rl.maxRequestsPerDay), Used: int64(usage.Day.Count), Resets: resets}
	}
	if rl.maxDataPerDay > 0 && usage.DataToday+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{Type: "data", Limit: rl.maxDataPerDay, Used: usage.DataToday, Resets: resets}
	}

	usage.Minute.Count++
	usage.Hour.Count++
	usage.Day.Count++
	usage.DataToday += dataSize
	usage.LastRequest = now
	return nil
}

// GetUsage returns a copy of the usage of clientID.
func (rl *RateLimiter) GetUsage(clientID string) ClientUsage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if usage, ok := rl.clients[clientID]; ok {
		return *usage
	}
	return ClientUsage{}
}

// Prune forgets clients idle for longer than idle and returns how many.
func (rl *RateLimiter) Prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for id, usage := range rl.clients {
		if now.Sub(usage.LastRequest) > idle {
			delete(rl.clients, id)
			removed++
		}
	}
	return removed
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "data"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
