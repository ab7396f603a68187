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

// Package progress reports epoch-level training progress to stdout and,
// optionally, to any number of connected websocket clients watching a
// live dashboard.
package progress

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
)

// Report is a snapshot of one epoch's aggregated training progress so far,
// matching the fields the original trainer prints (processed sample count
// and running RMSE).
type Report struct {
	Epoch     int     `json:"epoch"`
	Processed int64   `json:"processed"`
	RMSE      float64 `json:"rmse"`
}

// Accumulator collects per-batch squared error under a single lock and
// turns it into a Report on demand: at batch-size boundaries and once the
// epoch completes. A shared result
// protected by one mutex across many worker goroutines scales better
// than one lock per field once the goroutine count grows.
type Accumulator struct {
	mu             sync.Mutex
	epoch          int
	processed      int64
	sqErrSum       float64
	lastReportedAt int64
}

// NewAccumulator starts an accumulator for the given epoch number.
func NewAccumulator(epoch int) *Accumulator {
	return &Accumulator{epoch: epoch}
}

// Add folds in the result of one batch: n samples processed whose
// per-sample squared errors sum to sqErr.
func (a *Accumulator) Add(n int, sqErr float64) {
	a.mu.Lock()
	a.processed += int64(n)
	a.sqErrSum += sqErr
	a.mu.Unlock()
}

// Snapshot returns the current Report without resetting the accumulator.
func (a *Accumulator) Snapshot() Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// PublishIfBoundaryCrossed publishes the current snapshot to sink if
// processed has crossed at least one multiple of batchSize since the last
// publish. One call publishes at most once, however many multiples were
// crossed. This matches the original trainer's "if (count % batch_size == 0)
// fprintf(...)" progress cadence instead of reporting only at epoch end.
func (a *Accumulator) PublishIfBoundaryCrossed(sink Sink, batchSize int) {
	if sink == nil || batchSize <= 0 {
		return
	}
	a.mu.Lock()
	crossed := a.processed/int64(batchSize) > a.lastReportedAt/int64(batchSize)
	var snap Report
	if crossed {
		a.lastReportedAt = a.processed
		snap = a.snapshotLocked()
	}
	a.mu.Unlock()
	if crossed {
		sink.Publish(snap)
	}
}

func (a *Accumulator) snapshotLocked() Report {
	rmse := 0.0
	if a.processed > 0 {
		rmse = math.Sqrt(a.sqErrSum / float64(a.processed))
	}
	return Report{Epoch: a.epoch, Processed: a.processed, RMSE: rmse}
}

// Sink receives each epoch's batch-boundary reports and its final report.
// Printer and the websocket Hub both implement it.
type Sink interface {
	Publish(r Report)
}

// Printer writes one line per report to stdout, matching the original
// trainer's "epoch=%d processed=[%d],avg rmse is [%f]" line.
type Printer struct{}

func (Printer) Publish(r Report) {
	fmt.Printf("epoch=%d processed=[%d],avg rmse is [%f]\n", r.Epoch, r.Processed, r.RMSE)
}

// MultiSink fans a single report out to several sinks, so a run can
// print to stdout and feed a dashboard at the same time.
type MultiSink []Sink

func (m MultiSink) Publish(r Report) {
	for _, s := range m {
		s.Publish(r)
	}
}

// marshalReport is shared by Hub's broadcast path and tests.
func marshalReport(r Report) []byte {
	b, err := json.Marshal(r)
	if err != nil {
		// Report only contains JSON-safe primitive fields; Marshal cannot fail.
		panic(err)
	}
	return b
}
