/*
Copyright (C) 2024  AsyncMF Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package trainer drives the epoch loop: it owns the single authoritative
// paramstore.Store, partitions shard files across worker goroutines,
// resets every worker at the start of each epoch, dispatches one
// goroutine per shard partition via gls.Go, and flushes + reports
// progress as shards complete.
package trainer

import (
	"fmt"
	"sync"

	"github.com/jtolds/gls"

	"github.com/launix-de/asyncmf/internal/checkpoint"
	"github.com/launix-de/asyncmf/internal/paramstore"
	"github.com/launix-de/asyncmf/internal/progress"
	"github.com/launix-de/asyncmf/internal/sample"
	"github.com/launix-de/asyncmf/internal/worker"
)

// DefaultBatchSize matches the original trainer's fixed batch size.
const DefaultBatchSize = 100000

// glsMgr tags every worker goroutine with its partition index, so a
// panic/recover handler or the progress dashboard can report which
// worker produced a given line without threading an extra parameter
// through every call in the hot loop.
var glsMgr = gls.NewContextManager()

// WorkerIndex returns the calling goroutine's partition index, if it was
// started by Trainer.runEpoch, and whether one was set.
func WorkerIndex() (int, bool) {
	v, ok := glsMgr.GetValue("worker")
	if !ok {
		return 0, false
	}
	return v.(int), true
}

// shardDrainer is the subset of sample.ShardWatcher that the epoch loop
// needs. Declaring it locally, rather than taking a *sample.ShardWatcher
// directly, lets tests drive the hot-reload path with a canned drainer
// instead of waiting on real filesystem events.
type shardDrainer interface {
	Drain() []string
}

// Config holds everything a Trainer needs beyond the hyperparameters
// already baked into the paramstore.Store it is given.
type Config struct {
	Epoch     int
	Threads   int
	BatchSize int
	PushStep  uint64
	FetchStep uint64

	// OpenSource opens the sample.Source for one shard path. Nil defaults
	// to sample.OpenFileSource, letting callers substitute a
	// dictionary-mapping or SQL-backed source without touching the epoch
	// loop below.
	OpenSource func(path string) (sample.Source, error)

	// Watcher, if set, is drained before every epoch after the first so
	// shards landing mid-run are picked up on the next pass instead of
	// requiring a restart.
	Watcher shardDrainer

	Checkpoint checkpoint.Store // may be nil: SaveModel-only, no upload
	Sink       progress.Sink    // may be nil: no reporting
}

// Trainer runs the full multi-epoch training procedure against one
// paramstore.Store and one list of shard file paths.
type Trainer struct {
	cfg Config
	ps  *paramstore.Store
}

// New returns a Trainer ready to run against an already-initialized
// paramstore.Store.
func New(ps *paramstore.Store, cfg Config) *Trainer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PushStep == 0 {
		cfg.PushStep = 3
	}
	if cfg.FetchStep == 0 {
		cfg.FetchStep = 3
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	if cfg.OpenSource == nil {
		cfg.OpenSource = func(path string) (sample.Source, error) {
			return sample.OpenFileSource(path)
		}
	}
	if cfg.Sink == nil {
		cfg.Sink = progress.Printer{}
	}
	return &Trainer{cfg: cfg, ps: ps}
}

// Run trains for cfg.Epoch epochs over shards, then writes modelPath via
// Store.SaveModel and, if configured, uploads it through a
// checkpoint.Store. It returns the final path on success.
func (tr *Trainer) Run(shards []string, modelPath string) (string, error) {
	shards = append([]string(nil), shards...)
	parts := sample.Partition(shards, tr.cfg.Threads)
	if len(parts) == 0 {
		return "", fmt.Errorf("trainer: no shards to train on")
	}

	workers := make([]worker.Worker, len(parts))
	for i := range workers {
		workers[i].Initialize(tr.ps, tr.cfg.PushStep, tr.cfg.FetchStep)
	}

	fmt.Printf("params={alpha:%.4f, l2:%.4f, epoch:%d}\n", tr.ps.Alpha(), tr.ps.L2(), tr.cfg.Epoch)

	for epoch := 0; epoch < tr.cfg.Epoch; epoch++ {
		if epoch > 0 && tr.cfg.Watcher != nil {
			if added := tr.cfg.Watcher.Drain(); len(added) > 0 {
				shards = append(shards, added...)
				parts = sample.Partition(shards, tr.cfg.Threads)
				for len(workers) < len(parts) {
					var w worker.Worker
					w.Initialize(tr.ps, tr.cfg.PushStep, tr.cfg.FetchStep)
					workers = append(workers, w)
				}
			}
		}
		for i := range parts {
			workers[i].Reset(tr.ps)
		}
		tr.runEpoch(epoch, parts, workers[:len(parts)])
	}

	if !tr.ps.SaveModel(modelPath) {
		return "", fmt.Errorf("trainer: SaveModel(%q) failed", modelPath)
	}

	if tr.cfg.Checkpoint != nil {
		if _, err := tr.cfg.Checkpoint.Save(modelPath); err != nil {
			return "", fmt.Errorf("trainer: checkpoint upload failed: %w", err)
		}
	}

	return modelPath, nil
}

// runEpoch dispatches one goroutine per shard partition and blocks until
// every partition's shards are exhausted and its worker's accumulator is
// flushed.
func (tr *Trainer) runEpoch(epoch int, parts [][]string, workers []worker.Worker) {
	acc := progress.NewAccumulator(epoch)

	var wg sync.WaitGroup
	wg.Add(len(parts))
	for i := range parts {
		i := i
		gls.Go(func() {
			glsMgr.SetValues(gls.Values{"worker": i}, func() {
				defer wg.Done()
				tr.runPartition(i, parts[i], &workers[i], acc)
			})
		})
	}
	wg.Wait()

	tr.cfg.Sink.Publish(acc.Snapshot())
}

// runPartition streams every shard assigned to one worker, batching reads
// at cfg.BatchSize the same way the original per-thread loop does, and
// flushes the worker's accumulator into the param store once its shards
// are exhausted.
func (tr *Trainer) runPartition(idx int, shards []string, w *worker.Worker, acc *progress.Accumulator) {
	for _, path := range shards {
		src, err := tr.cfg.OpenSource(path)
		if err != nil {
			// a shard that can't be opened is an I/O failure for this
			// partition only; skip it and keep training on the rest.
			continue
		}
		tr.drainShard(src, w, acc)
		src.Close()
	}
	w.PushParam(tr.ps)
}

func (tr *Trainer) drainShard(src sample.Source, w *worker.Worker, acc *progress.Accumulator) {
	var scores []float64
	var samples [][]int32
	for {
		var ok bool
		scores, samples, ok = sample.ReadBatch(src, tr.cfg.BatchSize, scores, samples)
		if !ok {
			return
		}
		var mse float64
		for j := range samples {
			mse += w.Update(scores[j], samples[j], tr.ps)
		}
		acc.Add(len(samples), mse)
		acc.PublishIfBoundaryCrossed(tr.cfg.Sink, tr.cfg.BatchSize)
	}
}
