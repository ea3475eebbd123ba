package batch

import (
	"context"
	"errors"
	"testing"
)

func TestCoverage250By100(t *testing.T) {
	s := New(250, 100)
	want := []Range{
		{Index: 0, Start: 0, End: 100},
		{Index: 1, Start: 100, End: 200},
		{Index: 2, Start: 200, End: 250},
	}

	seen := make([]int, 250)
	for i, w := range want {
		r, ok, err := s.Run(context.Background(), func(_ context.Context, idx int) error {
			seen[idx]++
			return nil
		})
		if err != nil || !ok {
			t.Fatalf("advance %d: ok=%v err=%v", i, ok, err)
		}
		if r != w {
			t.Fatalf("advance %d: got %+v, want %+v", i, r, w)
		}
	}

	for idx, n := range seen {
		if n != 1 {
			t.Fatalf("index %d processed %d times", idx, n)
		}
	}

	if !s.Done() || s.Remaining() != 0 {
		t.Fatalf("scheduler should be done, remaining=%d", s.Remaining())
	}

	calls := 0
	_, ok, err := s.Run(context.Background(), func(context.Context, int) error {
		calls++
		return nil
	})
	if ok || err != nil || calls != 0 {
		t.Fatalf("fourth advance should be a no-op: ok=%v err=%v calls=%d", ok, err, calls)
	}
	if s.Index() != 3 {
		t.Fatalf("index moved past completion: %d", s.Index())
	}
}

func TestDefaults(t *testing.T) {
	s := New(5, 0)
	if s.Size() != DefaultSize {
		t.Fatalf("size = %d", s.Size())
	}
	if s.Batches() != 1 {
		t.Fatalf("batches = %d", s.Batches())
	}
	r, ok := s.Next()
	if !ok || r.Len() != 5 {
		t.Fatalf("got %+v %v", r, ok)
	}
}

func TestEmpty(t *testing.T) {
	s := New(0, 10)
	if !s.Done() || s.Batches() != 0 {
		t.Fatal("empty run should be done with zero batches")
	}
	if _, ok := s.Next(); ok {
		t.Fatal("Next on empty run should be a no-op")
	}
}

func TestExactMultiple(t *testing.T) {
	s := New(200, 100)
	if s.Batches() != 2 {
		t.Fatalf("batches = %d", s.Batches())
	}
	s.Next()
	if s.Remaining() != 100 {
		t.Fatalf("remaining = %d", s.Remaining())
	}
	s.Next()
	if !s.Done() {
		t.Fatal("should be done")
	}
}

func TestRunStopsOnError(t *testing.T) {
	s := New(10, 4)
	boom := errors.New("boom")
	var got []int
	r, ok, err := s.Run(context.Background(), func(_ context.Context, i int) error {
		got = append(got, i)
		if i == 1 {
			return boom
		}
		return nil
	})
	if !ok || !errors.Is(err, boom) {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || r.End != 4 {
		t.Fatalf("processed %v in %+v", got, r)
	}
	if s.Index() != 1 {
		t.Fatalf("failed batch should still be consumed, index=%d", s.Index())
	}
}

func TestRunCanceled(t *testing.T) {
	s := New(3, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := s.Run(ctx, func(context.Context, int) error { return nil })
	if !ok || !errors.Is(err, context.Canceled) {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}
