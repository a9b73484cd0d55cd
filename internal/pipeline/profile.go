package pipeline

import (
	"runtime"
	"sync/atomic"

	"github.com/MeKo-Tech/platefinder/internal/common"
)

// Profiler aggregates counters and timers across processed frames.
type Profiler struct {
	ImagesProcessed atomic.Int64
	PlatesFound     atomic.Int64
	PlatesRead      atomic.Int64
	LookupHits      atomic.Int64
	LookupMisses    atomic.Int64

	LocalizeTimeNs  atomic.Int64
	RecognizeTimeNs atomic.Int64
	LookupTimeNs    atomic.Int64
}

// Record adds one processed frame.
func (p *Profiler) Record(res *PlateResult, sw *common.Stopwatch) {
	p.ImagesProcessed.Add(1)
	if res.Found {
		p.PlatesFound.Add(1)
	}
	if res.Plate != "" {
		p.PlatesRead.Add(1)
	}
	switch res.LookupStatus {
	case LookupFound:
		p.LookupHits.Add(1)
	case LookupNotFound:
		p.LookupMisses.Add(1)
	}
	if sw != nil {
		p.LocalizeTimeNs.Add(sw.Get(stageLocalize).Nanoseconds())
		p.RecognizeTimeNs.Add(sw.Get(stageRecognize).Nanoseconds())
		p.LookupTimeNs.Add(sw.Get(stageLookup).Nanoseconds())
	}
}

// Snapshot returns cumulative metrics in milliseconds for readability.
func (p *Profiler) Snapshot() map[string]any {
	imgs := p.ImagesProcessed.Load()
	loc := p.LocalizeTimeNs.Load()
	rec := p.RecognizeTimeNs.Load()
	out := map[string]any{
		"images":             imgs,
		"plates_found":       p.PlatesFound.Load(),
		"plates_read":        p.PlatesRead.Load(),
		"lookup_hits":        p.LookupHits.Load(),
		"lookup_misses":      p.LookupMisses.Load(),
		"localize_ms_total":  loc / 1_000_000,
		"recognize_ms_total": rec / 1_000_000,
		"lookup_ms_total":    p.LookupTimeNs.Load() / 1_000_000,
	}
	if imgs > 0 {
		out["localize_ms_per_image"] = float64(loc) / 1_000_000.0 / float64(imgs)
		out["recognize_ms_per_image"] = float64(rec) / 1_000_000.0 / float64(imgs)
	}
	return out
}

// MemStats summarizes memory usage information.
type MemStats struct {
	AllocBytes uint64 `json:"alloc_bytes"`
	SysBytes   uint64 `json:"sys_bytes"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
}

// GetMemStats captures current memory statistics.
func GetMemStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemStats{
		AllocBytes: m.Alloc,
		SysBytes:   m.Sys,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}
