// Package batch splits a run of N items into fixed-size batches that are
// processed one per call.
//
// A Scheduler is an explicit cursor. It never advances by itself: the caller
// decides when the next batch runs, typically in response to a user action,
// so no single call does more than one batch of work.
package batch

import (
	"context"
)

// DefaultSize is the batch size used when none is given.
const DefaultSize = 100

// Range is the half-open index interval [Start, End) of one batch.
type Range struct {
	Index int
	Start int
	End   int
}

func (r Range) Len() int { return r.End - r.Start }

// Scheduler is not safe for concurrent use.
type Scheduler struct {
	total int
	size  int
	index int
}

func New(total, size int) *Scheduler {
	if size <= 0 {
		size = DefaultSize
	}
	if total < 0 {
		total = 0
	}
	return &Scheduler{total: total, size: size}
}

func (s *Scheduler) Total() int { return s.total }
func (s *Scheduler) Size() int  { return s.size }

// Index is the number of batches already handed out.
func (s *Scheduler) Index() int { return s.index }

// Done reports whether every item has been handed out.
func (s *Scheduler) Done() bool { return s.index*s.size >= s.total }

// Remaining is the number of items not yet handed out.
func (s *Scheduler) Remaining() int {
	if s.Done() {
		return 0
	}
	return s.total - s.index*s.size
}

// Batches is the total number of batches for this run.
func (s *Scheduler) Batches() int {
	return (s.total + s.size - 1) / s.size
}

// Next hands out the next batch and moves the cursor. Once every item has
// been handed out it returns false and leaves the cursor alone.
func (s *Scheduler) Next() (Range, bool) {
	if s.Done() {
		return Range{}, false
	}
	start := s.index * s.size
	end := start + s.size
	if end > s.total {
		end = s.total
	}
	r := Range{Index: s.index, Start: start, End: end}
	s.index++
	return r, true
}

// Run advances one batch and calls process for each index in it, in order.
// It stops at the first error; the batch still counts as consumed. The bool
// is false when the run was already complete and nothing happened.
func (s *Scheduler) Run(ctx context.Context, process func(ctx context.Context, i int) error) (Range, bool, error) {
	r, ok := s.Next()
	if !ok {
		return r, false, nil
	}
	for i := r.Start; i < r.End; i++ {
		if err := ctx.Err(); err != nil {
			return r, true, err
		}
		if err := process(ctx, i); err != nil {
			return r, true, err
		}
	}
	return r, true, nil
}
