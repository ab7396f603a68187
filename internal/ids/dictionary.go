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

// Package ids maps sparse external identifiers (arbitrary strings, as real
// event logs key users and items by) to the dense 0..N row indices the core
// trainer's matrix requires. It sits strictly ahead of the trainer: once a
// key has a row index, the rest of the pipeline never sees the original
// string again. Uses github.com/google/btree for fast, ordered key lookup.
package ids

import "github.com/google/btree"

type entry struct {
	key string
	idx uint32
}

func (e entry) Less(than btree.Item) bool {
	return e.key < than.(entry).key
}

// Dictionary assigns each distinct key the next unused dense index in
// first-seen order. It is not safe for concurrent use; callers needing a
// dictionary shared across goroutines should build it up-front in a single
// pass before training starts.
type Dictionary struct {
	tree *btree.BTree
	next uint32
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{tree: btree.New(32)}
}

// IndexOf returns the dense index for key, assigning a new one if key
// hasn't been seen before.
func (d *Dictionary) IndexOf(key string) uint32 {
	if found := d.tree.Get(entry{key: key}); found != nil {
		return found.(entry).idx
	}
	idx := d.next
	d.next++
	d.tree.ReplaceOrInsert(entry{key: key, idx: idx})
	return idx
}

// Lookup returns the dense index for key without assigning a new one.
func (d *Dictionary) Lookup(key string) (uint32, bool) {
	found := d.tree.Get(entry{key: key})
	if found == nil {
		return 0, false
	}
	return found.(entry).idx, true
}

// Len returns the number of distinct keys assigned so far.
func (d *Dictionary) Len() int {
	return d.tree.Len()
}
