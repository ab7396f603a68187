package progress

import (
	"math"
	"sync"
	"testing"
)

func TestAccumulatorComputesRMSE(t *testing.T) {
	a := NewAccumulator(3)
	a.Add(2, 0.5) // squared errors summing to 0.5 across 2 samples
	a.Add(2, 1.5) // running total: sqErr=2.0, processed=4 -> rmse=sqrt(0.5)

	r := a.Snapshot()
	if r.Epoch != 3 || r.Processed != 4 {
		t.Fatalf("unexpected report: %+v", r)
	}
	want := math.Sqrt(0.5)
	if math.Abs(r.RMSE-want) > 1e-9 {
		t.Fatalf("expected rmse %.6f, got %.6f", want, r.RMSE)
	}
}

func TestAccumulatorZeroProcessedGivesZeroRMSE(t *testing.T) {
	a := NewAccumulator(0)
	r := a.Snapshot()
	if r.RMSE != 0 {
		t.Fatalf("expected rmse 0 for no processed samples, got %f", r.RMSE)
	}
}

func TestAccumulatorConcurrentAddsSumExactly(t *testing.T) {
	a := NewAccumulator(1)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Add(1, 1.0)
		}()
	}
	wg.Wait()

	r := a.Snapshot()
	if r.Processed != 50 {
		t.Fatalf("expected 50 processed, got %d", r.Processed)
	}
}

type recordingSink struct {
	mu sync.Mutex
	got []Report
}

func (s *recordingSink) Publish(r Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, r)
}

func TestPublishIfBoundaryCrossedFiresOncePerBatchSize(t *testing.T) {
	a := NewAccumulator(0)
	sink := &recordingSink{}

	a.Add(3, 0.1)
	a.PublishIfBoundaryCrossed(sink, 5) // processed=3, no boundary yet
	if len(sink.got) != 0 {
		t.Fatalf("expected no publish before crossing the batch boundary, got %d", len(sink.got))
	}

	a.Add(3, 0.1)
	a.PublishIfBoundaryCrossed(sink, 5) // processed=6, crossed 5
	if len(sink.got) != 1 {
		t.Fatalf("expected exactly one publish on crossing, got %d", len(sink.got))
	}

	a.PublishIfBoundaryCrossed(sink, 5) // processed still 6, no new crossing
	if len(sink.got) != 1 {
		t.Fatalf("expected no duplicate publish without a new crossing, got %d", len(sink.got))
	}
}

func TestPublishIfBoundaryCrossedIgnoresNilSinkAndBatchSize(t *testing.T) {
	a := NewAccumulator(0)
	a.Add(10, 1.0)
	a.PublishIfBoundaryCrossed(nil, 1)               // must not panic
	a.PublishIfBoundaryCrossed(&recordingSink{}, 0) // must not panic or publish
}

func TestMultiSinkFansOutToEverySink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := MultiSink{a, b}
	m.Publish(Report{Epoch: 1, Processed: 10, RMSE: 0.2})

	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("expected both sinks to receive the report, got a=%d b=%d", len(a.got), len(b.got))
	}
}
