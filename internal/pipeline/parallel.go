package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int                     // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback        // Optional progress reporting
	ErrorHandler     func(int, Input, error) // Optional per-image error handler
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

type imageJob struct {
	index int
	input Input
}

type imageResult struct {
	index  int
	result *PlateResult
	err    error
}

// ProcessImagesParallel processes inputs with a worker pool. Every worker
// owns the buffers of the frame it is working on; only the debug sink and
// lookup store are shared. Results come back in input order. A failed frame
// leaves a nil entry and the first error is returned alongside the results.
func (p *Pipeline) ProcessImagesParallel(ctx context.Context, inputs []Input, config ParallelConfig) ([]*PlateResult, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no images provided")
	}
	if p == nil || p.localizer == nil {
		return nil, errors.New("pipeline not initialized")
	}

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = runtime.NumCPU()
	}
	workers := min(config.MaxWorkers, len(inputs))

	if config.ProgressCallback != nil {
		config.ProgressCallback.OnStart(len(inputs))
		defer config.ProgressCallback.OnComplete()
	}

	jobs := make(chan imageJob, len(inputs))
	results := make(chan imageResult, len(inputs))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go p.worker(ctx, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for i, in := range inputs {
			select {
			case jobs <- imageJob{index: i, input: in}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*PlateResult, len(inputs))
	errs := make(map[int]error)
	processed := 0
	for r := range results {
		processed++
		if r.err != nil {
			errs[r.index] = r.err
			if config.ProgressCallback != nil {
				config.ProgressCallback.OnError(r.index, r.err)
			}
		} else {
			ordered[r.index] = r.result
		}
		if config.ProgressCallback != nil {
			config.ProgressCallback.OnProgress(processed, len(inputs))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var firstErr error
	for i := range inputs {
		err, ok := errs[i]
		if !ok {
			continue
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("image %d (%s): %w", i, inputs[i].ID, err)
		}
		if config.ErrorHandler != nil {
			config.ErrorHandler(i, inputs[i], err)
		}
	}
	return ordered, firstErr
}

func (p *Pipeline) worker(ctx context.Context, jobs <-chan imageJob, results chan<- imageResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case job, ok := <-jobs:
			if !ok {
				return
			}
			res, err := p.ProcessImage(ctx, job.input.Image, job.input.ID)
			if res != nil {
				res.Source = job.input.ID
			}
			select {
			case results <- imageResult{index: job.index, result: res, err: err}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// ParallelStats holds statistics about parallel processing performance.
type ParallelStats struct {
	TotalImages      int           `json:"total_images"`
	ProcessedImages  int           `json:"processed_images"`
	FailedImages     int           `json:"failed_images"`
	PlatesFound      int           `json:"plates_found"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats calculates performance statistics for a run.
func CalculateParallelStats(results []*PlateResult, duration time.Duration, workerCount int) ParallelStats {
	stats := ParallelStats{
		TotalImages:   len(results),
		WorkerCount:   workerCount,
		TotalDuration: duration,
	}
	for _, r := range results {
		if r == nil {
			stats.FailedImages++
			continue
		}
		stats.ProcessedImages++
		if r.Found {
			stats.PlatesFound++
		}
	}
	if stats.ProcessedImages > 0 && duration > 0 {
		stats.AveragePerImage = duration / time.Duration(stats.ProcessedImages)
		stats.ThroughputPerSec = float64(stats.ProcessedImages) / duration.Seconds()
	}
	return stats
}
