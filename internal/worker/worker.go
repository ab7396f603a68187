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

// Package worker implements the per-goroutine half of the asynchronous
// parameter-server training loop: a local mirror of the shared matrix, an
// accumulator of not-yet-pushed gradient updates, and the bounded-staleness
// fetch/push discipline that ties the two to the authoritative
// paramstore.Store. Each Worker is owned exclusively by one goroutine --
// only ever one writer touches its delta buffer at a time.
package worker

import (
	"math/rand"
	"time"

	"github.com/launix-de/asyncmf/internal/paramstore"
)

// Worker holds a full-size local mirror of U, a full-size accumulator of
// unflushed updates, and one fetch/push step counter per parameter group.
type Worker struct {
	alpha, l2 float64
	userNum   uint32
	featNum   uint32
	dim       int
	groupSize uint32

	local []float64 // local mirror, featNum*dim
	delta []float64 // ΔU accumulator, featNum*dim
	step  []uint64  // per-group step counter

	pushStep, fetchStep uint64

	initialized bool
}

// Initialize reads the run's hyperparameters from ps, builds a local
// mirror seeded with small random values (overwritten immediately by the
// authoritative fetch below, so the seeding itself never affects training)
// and an all-zero accumulator, then pulls the current matrix from ps.
func (w *Worker) Initialize(ps *paramstore.Store, pushStep, fetchStep uint64) bool {
	w.alpha = ps.Alpha()
	w.l2 = ps.L2()
	w.userNum = ps.UserNum()
	w.featNum = ps.FeatNum()
	w.dim = ps.Dim()
	w.groupSize = ps.GroupSize()
	w.pushStep = pushStep
	w.fetchStep = fetchStep

	n := int(w.featNum) * w.dim
	w.local = make([]float64, n)
	seedLocalMirror(w.local, w.dim)
	w.delta = make([]float64, n)
	w.step = make([]uint64, ps.GroupCount())

	ps.FetchParam(w.local)
	w.initialized = true
	return true
}

func seedLocalMirror(local []float64, dim int) {
	if dim <= 0 || len(local) == 0 {
		return
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	scale := 1.0 / float64(dim) // deliberately not sqrt-scaled: overwritten before use
	for i := range local {
		local[i] = rng.Float64() * scale
	}
}

// Reset re-fetches the local mirror from ps and zeroes the step counters,
// ready for a new epoch. ΔU is intentionally left untouched: it is expected
// to already be zero from the prior epoch's terminal PushParam flush.
func (w *Worker) Reset(ps *paramstore.Store) bool {
	if !w.initialized {
		return false
	}
	ps.FetchParam(w.local)
	for i := range w.step {
		w.step[i] = 0
	}
	return true
}

func (w *Worker) groupOf(row uint32) uint32 {
	gs := w.groupSize
	if gs == 0 {
		gs = 1
	}
	return row / gs
}

func (w *Worker) rowSlice(buf []float64, row uint32) []float64 {
	o := int(row) * w.dim
	return buf[o : o+w.dim]
}

// Update performs the coupled SGD step for one sample (score, x), where
// x[0] is the user row and x[1:] are item rows (relative to item-space,
// i.e. absolute row = x[j] + UserNum). It returns the per-sample mean
// squared error across the sample's items; the caller averages across
// samples to get RMSE.
//
// Both the user-side and item-side gradient terms are computed from
// pre-update mirror values before either row of ΔU is written -- updating
// U_local[u] before computing the item-side gradient would change the
// result, since the item-side term reads U_local[u].
func (w *Worker) Update(score float64, x []int32, ps *paramstore.Store) float64 {
	if len(x) < 2 {
		return 0
	}
	u := x[0]
	if u < 0 || uint32(u) >= w.userNum {
		return 0
	}
	userRow := uint32(u)
	gUser := w.groupOf(userRow)

	var mse float64
	for j := 1; j < len(x); j++ {
		if x[j] < 0 {
			break
		}
		itemRow := uint32(x[j]) + w.userNum
		if itemRow >= w.featNum {
			break
		}
		gItem := w.groupOf(itemRow)

		// bounded-staleness fetch: both rows are refreshed independently,
		// each against its own group's step counter.
		if w.step[gItem]%w.fetchStep == 0 {
			ps.FetchParamGroup(w.local, gItem)
		}
		if w.step[gUser]%w.fetchStep == 0 {
			ps.FetchParamGroup(w.local, gUser)
		}

		uRow := w.rowSlice(w.local, userRow)
		iRow := w.rowSlice(w.local, itemRow)

		var p float64
		for d := 0; d < w.dim; d++ {
			p += uRow[d] * iRow[d]
		}
		e := p - score
		mse += e * e

		uDelta := w.rowSlice(w.delta, userRow)
		iDelta := w.rowSlice(w.delta, itemRow)
		for d := 0; d < w.dim; d++ {
			uGrad := w.alpha * (e*iRow[d] + w.l2*uRow[d])
			iGrad := w.alpha * (e*uRow[d] + w.l2*iRow[d])
			uDelta[d] -= uGrad
			iDelta[d] -= iGrad
		}

		if w.step[gUser]%w.pushStep == 0 {
			ps.PushParamGroup(w.delta, gUser)
		}
		if w.step[gItem]%w.pushStep == 0 {
			ps.PushParamGroup(w.delta, gItem)
		}

		w.step[gUser]++
		w.step[gItem]++
	}

	return mse / float64(len(x)-1)
}

// PushParam flushes every group of ΔU into ps, so no accumulated update is
// dropped at epoch end. Called once per worker after its shard is
// exhausted.
func (w *Worker) PushParam(ps *paramstore.Store) bool {
	if !w.initialized {
		return false
	}
	n := ps.GroupCount()
	for g := uint32(0); g < n; g++ {
		ps.PushParamGroup(w.delta, g)
	}
	return true
}
