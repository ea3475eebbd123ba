// Package repack rebuilds an archive with selected images transformed.
//
// Entries the selector rejects are copied unchanged. Selected entries are
// decoded, passed through a TransformFunc and re-encoded at the same path.
// Targets are independent, so they are fanned out to a worker pool and the
// results are put back in input order. Any failure aborts the whole run: no
// partially converted archive is ever returned.
package repack

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"retint/internal/archive"
)

// Targets returns the indices of entries sel picks, in stored order.
// Directory entries are never targets.
func Targets(in *archive.Archive, sel Selector) []int {
	var idx []int
	for i := 0; i < in.Len(); i++ {
		e := in.Entry(i)
		if !e.Dir && sel(e.Path) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Repackage produces a new archive from in. updates may be nil.
func Repackage(ctx context.Context, in *archive.Archive, sel Selector, fn TransformFunc, opts Options, updates chan<- ProgressUpdate) (*archive.Archive, Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := in.Entries()
	out := make([]archive.Entry, len(entries))
	summary := Summary{Entries: len(entries)}

	targets := Targets(in, sel)
	isTarget := make(map[int]bool, len(targets))
	for _, i := range targets {
		isTarget[i] = true
	}
	for i, e := range entries {
		if isTarget[i] {
			continue
		}
		out[i] = e
		summary.Passed++
	}
	summary.Targets = len(targets)
	logger.Debug("classified entries", "entries", len(entries), "targets", len(targets))

	if updates != nil && len(targets) > 0 {
		updates <- ProgressUpdate{TotalDelta: len(targets)}
	}

	jobs := make(chan Job)
	results := make(chan Result)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(targets) {
		workers = len(targets)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			worker(ctx, jobs, results, fn, opts.JPEGQuality, logger)
		}()
	}

	var firstErr error
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range results {
			if res.Err != nil {
				if firstErr == nil {
					firstErr = res.Err
					cancel()
				}
				if updates != nil {
					updates <- ProgressUpdate{ErrorDelta: 1, Path: res.Entry.Path}
				}
				continue
			}
			before := int64(len(entries[res.Index].Data))
			after := int64(len(res.Entry.Data))
			out[res.Index] = res.Entry
			summary.Converted++
			summary.BytesIn += before
			summary.BytesOut += after
			if updates != nil {
				updates <- ProgressUpdate{ProcessedDelta: 1, BytesDelta: after - before, Path: res.Entry.Path}
			}
		}
	}()

	go func() {
		defer close(jobs)
		for _, i := range targets {
			select {
			case jobs <- Job{Index: i, Entry: entries[i]}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)
	<-collectorDone

	if firstErr != nil {
		logger.Error("repackage aborted", "err", firstErr)
		return nil, summary, firstErr
	}
	if err := ctx.Err(); err != nil && summary.Converted < len(targets) {
		return nil, summary, err
	}

	result, err := archive.New(out)
	if err != nil {
		return nil, summary, err
	}
	logger.Info("repackaged archive", "entries", summary.Entries, "converted", summary.Converted, "passed", summary.Passed)
	return result, summary, nil
}

func worker(ctx context.Context, jobs <-chan Job, results chan<- Result, fn TransformFunc, quality int, logger *slog.Logger) {
	for job := range jobs {
		if err := ctx.Err(); err != nil {
			return
		}

		converted, err := Convert(job.Entry, fn, quality)
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				logger.Debug("decode failed", "path", job.Entry.Path, "err", de.Err)
			}
			results <- Result{Index: job.Index, Entry: job.Entry, Err: err}
			continue
		}
		logger.Debug("converted", "path", job.Entry.Path, "bytes", len(converted.Data))
		results <- Result{Index: job.Index, Entry: converted}
	}
}
