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

// Package config reads the small fixed-format descriptor file that tells
// a run its matrix dimensions, and holds the CLI option structs shared
// between cmd/mf-train and cmd/mf-predict.
package config

import (
	"bufio"
	"fmt"
	"os"
)

// Descriptor is the shape of a training run's latent matrix: UserNum and
// ItemNum rows, Dim columns each.
type Descriptor struct {
	UserNum uint32
	ItemNum uint32
	Dim     int
}

// ReadDescriptor reads UserNum, ItemNum and Dim from path, as three
// whitespace- or newline-separated non-negative integers.
func ReadDescriptor(path string) (Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("config: opening descriptor %q: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var d Descriptor
	if _, err := fmt.Fscan(r, &d.UserNum); err != nil {
		return Descriptor{}, fmt.Errorf("config: reading user count from %q: %w", path, err)
	}
	if _, err := fmt.Fscan(r, &d.ItemNum); err != nil {
		return Descriptor{}, fmt.Errorf("config: reading item count from %q: %w", path, err)
	}
	if _, err := fmt.Fscan(r, &d.Dim); err != nil {
		return Descriptor{}, fmt.Errorf("config: reading latent dimension from %q: %w", path, err)
	}
	if d.Dim <= 0 {
		return Descriptor{}, fmt.Errorf("config: latent dimension in %q must be positive, got %d", path, d.Dim)
	}
	return d, nil
}

// FeatNum returns UserNum+ItemNum, the total row count of U.
func (d Descriptor) FeatNum() uint32 {
	return d.UserNum + d.ItemNum
}
