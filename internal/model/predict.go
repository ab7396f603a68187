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

// Package model is the read-only half of a matrix-factorization run: it
// loads a saved paramstore.Store and scores samples, without ever
// mutating U or touching the training-side staleness bookkeeping that
// package worker owns.
package model

import (
	"math"

	"github.com/launix-de/asyncmf/internal/paramstore"
)

// Predictor scores samples against a fixed, already-trained matrix.
type Predictor struct {
	ps *paramstore.Store
}

// Load reads a model file written by paramstore.Store.SaveModel and
// returns a ready-to-use Predictor.
func Load(path string) (*Predictor, error) {
	ps := &paramstore.Store{}
	if err := ps.LoadModel(path); err != nil {
		return nil, err
	}
	return &Predictor{ps: ps}, nil
}

// Predict scores one sample against every item, unlike the trainer's
// Worker.Update: an item whose row falls outside the matrix is simply
// skipped rather than ending the sample early, since a batch predictor
// must still score every later item a trainer would have treated as part
// of a different, better-formed sample.
func (p *Predictor) Predict(score float64, x []int32) (mse float64, scored int) {
	if len(x) < 2 {
		return 0, 0
	}
	u := x[0]
	if u < 0 || uint32(u) >= p.ps.UserNum() {
		return 0, 0
	}
	userRow := p.ps.Row(uint32(u))

	for _, item := range x[1:] {
		if item < 0 {
			continue
		}
		itemRow := uint32(item) + p.ps.UserNum()
		if itemRow >= p.ps.FeatNum() {
			continue
		}
		iRow := p.ps.Row(itemRow)

		var dot float64
		for d := 0; d < p.ps.Dim(); d++ {
			dot += userRow[d] * iRow[d]
		}
		e := dot - score
		mse += e * e
		scored++
	}
	if scored == 0 {
		return 0, 0
	}
	return mse / float64(scored), scored
}

// Evaluate scores every sample src yields and returns the aggregate RMSE
// across all scored items, matching the predictor contract's
// sqrt(total_sse/total_samples) definition.
func Evaluate(p *Predictor, src Source) (rmse float64, totalScored int64, err error) {
	var sse float64
	for {
		score, x, ok := src.Next()
		if !ok {
			break
		}
		m, n := p.Predict(score, x)
		sse += m * float64(n)
		totalScored += int64(n)
	}
	if totalScored == 0 {
		return 0, 0, nil
	}
	return math.Sqrt(sse / float64(totalScored)), totalScored, nil
}

// Source is the minimal pull interface Evaluate needs; package sample's
// Source satisfies it without this package importing sample directly,
// keeping the dependency edge one-directional (cmd/mf-predict wires the
// two together).
type Source interface {
	Next() (score float64, x []int32, ok bool)
}
