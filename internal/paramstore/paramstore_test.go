package paramstore

import (
	"math"
	"os"
	"sync"
	"testing"
)

func newTestStore(t *testing.T, userNum, itemNum uint32, dim int, groupSize uint32) *Store {
	t.Helper()
	s := &Store{}
	if err := s.Initialize(0.1, 0.01, userNum, itemNum, dim, groupSize); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return s
}

func TestInitializeMagnitudeIsBounded(t *testing.T) {
	s := newTestStore(t, 4, 4, 8, 1)
	dst := make([]float64, s.FeatNum()*uint32(s.Dim()))
	s.FetchParam(dst)
	bound := math.Sqrt(1.0 / 8.0)
	for _, v := range dst {
		if v < 0 || v > bound {
			t.Fatalf("cell %v out of expected [0, sqrt(1/D)] range %v", v, bound)
		}
	}
}

func TestPushZeroesDelta(t *testing.T) {
	s := newTestStore(t, 2, 2, 3, 1)
	n := int(s.FeatNum()) * s.Dim()
	delta := make([]float64, n)
	for i := range delta {
		delta[i] = float64(i + 1)
	}
	if !s.PushParamGroup(delta, 0) {
		t.Fatal("PushParamGroup reported failure on an initialized store")
	}
	start, end := s.groupBounds(0)
	for r := start; r < end; r++ {
		o := int(r) * s.Dim()
		for d := 0; d < s.Dim(); d++ {
			if delta[o+d] != 0 {
				t.Fatalf("delta cell [%d][%d] not zeroed after push: %v", r, d, delta[o+d])
			}
		}
	}
}

func TestSequentialPushesSumExactly(t *testing.T) {
	s := newTestStore(t, 1, 1, 1, 1)
	before := make([]float64, 2)
	s.FetchParam(before)

	deltas := []float64{0.1, -0.3, 0.25, 0.05}
	var sum float64
	for _, d := range deltas {
		buf := make([]float64, 2)
		buf[0] = d // only touch row 0 (the single group under test)
		s.PushParamGroup(buf, 0)
		sum += d
	}

	after := make([]float64, 2)
	s.FetchParam(after)
	if math.Abs(after[0]-(before[0]+sum)) > 1e-12 {
		t.Fatalf("expected %v, got %v", before[0]+sum, after[0])
	}
}

func TestConcurrentPushesToDifferentGroupsSumCorrectly(t *testing.T) {
	s := newTestStore(t, 8, 8, 2, 1) // 16 single-row groups
	before := make([]float64, int(s.FeatNum())*s.Dim())
	s.FetchParam(before)

	const pushesPerGroup = 100
	var wg sync.WaitGroup
	for g := uint32(0); g < s.GroupCount(); g++ {
		wg.Add(1)
		go func(g uint32) {
			defer wg.Done()
			for i := 0; i < pushesPerGroup; i++ {
				delta := make([]float64, int(s.FeatNum())*s.Dim())
				start, end := s.groupBounds(g)
				for r := start; r < end; r++ {
					for d := 0; d < s.Dim(); d++ {
						delta[int(r)*s.Dim()+d] = 1.0
					}
				}
				s.PushParamGroup(delta, g)
			}
		}(g)
	}
	wg.Wait()

	after := make([]float64, int(s.FeatNum())*s.Dim())
	s.FetchParam(after)
	for i := range after {
		want := before[i] + pushesPerGroup
		if math.Abs(after[i]-want) > 1e-9 {
			t.Fatalf("cell %d: want %v, got %v", i, want, after[i])
		}
	}
}

func TestFetchThenZeroPushIsNoOp(t *testing.T) {
	s := newTestStore(t, 2, 2, 4, 1)
	n := int(s.FeatNum()) * s.Dim()
	before := make([]float64, n)
	s.FetchParam(before)

	dst := make([]float64, n)
	s.FetchParamGroup(dst, 0)
	zeroDelta := make([]float64, n)
	s.PushParamGroup(zeroDelta, 0)

	after := make([]float64, n)
	s.FetchParam(after)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("expected no-op, cell %d changed from %v to %v", i, before[i], after[i])
		}
	}
}

func TestGroupSizeGreaterThanOnePartitionsCorrectly(t *testing.T) {
	s := newTestStore(t, 6, 6, 2, 3) // 12 rows / group size 3 -> 4 groups
	if s.GroupCount() != 4 {
		t.Fatalf("expected 4 groups, got %d", s.GroupCount())
	}
	start, end := s.groupBounds(3)
	if start != 9 || end != 12 {
		t.Fatalf("expected last group to cover [9,12), got [%d,%d)", start, end)
	}
}

func TestZeroFeatNumIsNoOp(t *testing.T) {
	s := &Store{}
	if err := s.Initialize(0.1, 0.0, 0, 0, 4, 1); err != nil {
		t.Fatalf("Initialize with F=0 should succeed, got %v", err)
	}
	if s.GroupCount() != 0 {
		t.Fatalf("expected 0 groups for F=0, got %d", s.GroupCount())
	}
	if !s.FetchParam(nil) {
		t.Fatal("FetchParam on an initialized, empty store should report success")
	}
}

func TestUninitializedOperationsFail(t *testing.T) {
	s := &Store{}
	if s.FetchParam(make([]float64, 4)) {
		t.Fatal("expected FetchParam to fail before Initialize")
	}
	if s.FetchParamGroup(make([]float64, 4), 0) {
		t.Fatal("expected FetchParamGroup to fail before Initialize")
	}
	if s.PushParamGroup(make([]float64, 4), 0) {
		t.Fatal("expected PushParamGroup to fail before Initialize")
	}
	if s.SaveModel(os.DevNull) {
		t.Fatal("expected SaveModel to fail before Initialize")
	}
}

func TestSaveModelRoundTrip(t *testing.T) {
	s := newTestStore(t, 2, 3, 4, 1)
	path := t.TempDir() + "/model.txt"
	if !s.SaveModel(path) {
		t.Fatal("SaveModel reported failure")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("could not read saved model: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("saved model file is empty")
	}
}
