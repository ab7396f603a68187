package trainer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/launix-de/asyncmf/internal/paramstore"
	"github.com/launix-de/asyncmf/internal/progress"
)

func writeShard(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shard.txt")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunProducesALoadableModel(t *testing.T) {
	shard := writeShard(t, "1.0 0 0\n0.5 0 1\n1.0 1 0\n")

	var ps paramstore.Store
	if err := ps.Initialize(0.1, 0.0, 2, 2, 2, 1); err != nil {
		t.Fatal(err)
	}

	tr := New(&ps, Config{Epoch: 2, Threads: 2, BatchSize: 10, PushStep: 1, FetchStep: 1})
	modelPath := filepath.Join(t.TempDir(), "model.txt")
	out, err := tr.Run([]string{shard}, modelPath)
	if err != nil {
		t.Fatal(err)
	}
	if out != modelPath {
		t.Fatalf("expected Run to return %q, got %q", modelPath, out)
	}

	var loaded paramstore.Store
	if err := loaded.LoadModel(modelPath); err != nil {
		t.Fatalf("expected a loadable model file: %v", err)
	}
	if loaded.UserNum() != 2 || loaded.ItemNum() != 2 || loaded.Dim() != 2 {
		t.Fatalf("unexpected loaded dimensions: users=%d items=%d dim=%d",
			loaded.UserNum(), loaded.ItemNum(), loaded.Dim())
	}
}

// stubDrainer hands back a fixed slice of newly observed shards on each
// Drain() call, in sequence, so the epoch loop's hot-reload path can be
// tested deterministically instead of waiting on real filesystem events.
type stubDrainer struct {
	calls int
	toAdd [][]string
}

func (s *stubDrainer) Drain() []string {
	var out []string
	if s.calls < len(s.toAdd) {
		out = s.toAdd[s.calls]
	}
	s.calls++
	return out
}

type reportSink struct {
	reports []progress.Report
}

func (r *reportSink) Publish(rep progress.Report) {
	r.reports = append(r.reports, rep)
}

func TestRunPicksUpShardsAddedBetweenEpochsViaWatcher(t *testing.T) {
	shard1 := writeShard(t, "1.0 0 0\n")
	shard2 := writeShard(t, "1.0 1 1\n0.5 1 0\n")

	var ps paramstore.Store
	if err := ps.Initialize(0.1, 0.0, 2, 2, 2, 1); err != nil {
		t.Fatal(err)
	}

	sink := &reportSink{}
	drainer := &stubDrainer{toAdd: [][]string{{shard2}}}
	tr := New(&ps, Config{
		Epoch: 2, Threads: 1, BatchSize: 10, PushStep: 1, FetchStep: 1,
		Watcher: drainer, Sink: sink,
	})

	modelPath := filepath.Join(t.TempDir(), "model.txt")
	if _, err := tr.Run([]string{shard1}, modelPath); err != nil {
		t.Fatal(err)
	}

	if len(sink.reports) != 2 {
		t.Fatalf("expected one report per epoch, got %d", len(sink.reports))
	}
	if sink.reports[0].Processed != 1 {
		t.Fatalf("expected epoch 0 to process only shard1's 1 sample, got %d", sink.reports[0].Processed)
	}
	if sink.reports[1].Processed != 3 {
		t.Fatalf("expected epoch 1 to process shard1+shard2's 3 samples after the watcher added shard2, got %d", sink.reports[1].Processed)
	}
}

func TestRunFailsWithNoShards(t *testing.T) {
	var ps paramstore.Store
	if err := ps.Initialize(0.1, 0.0, 1, 1, 2, 1); err != nil {
		t.Fatal(err)
	}
	tr := New(&ps, Config{Epoch: 1, Threads: 1})
	if _, err := tr.Run(nil, filepath.Join(t.TempDir(), "model.txt")); err == nil {
		t.Fatal("expected an error when no shards are given")
	}
}
