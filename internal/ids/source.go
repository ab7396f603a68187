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
package ids

// RawSource produces samples keyed by sparse string identifiers -- the
// shape a sample.RawFileSource (or any other string-keyed source)
// produces ahead of dictionary lookup. Declaring the interface here
// rather than depending on package sample keeps the edge one-directional:
// sample.RawFileSource satisfies RawSource structurally without sample
// ever importing ids.
type RawSource interface {
	Next() (score float64, keys []string, ok bool)
	Close() error
}

// MappingSource wraps a RawSource, translating each sample's string keys
// into the dense row indices the core trainer requires, via one user
// Dictionary and one item Dictionary built ahead of time. The result
// satisfies package sample's Source interface structurally, so the
// trainer never has to know a sample started out string-keyed.
type MappingSource struct {
	raw   RawSource
	users *Dictionary
	items *Dictionary
}

// NewMappingSource returns a MappingSource translating raw's keys through
// users and items. Both dictionaries must already be fully populated --
// MappingSource only ever calls Lookup, never IndexOf, so training can run
// many of these concurrently against the same pair of dictionaries without
// the unsynchronized Dictionary ever being mutated after training starts.
func NewMappingSource(raw RawSource, users, items *Dictionary) *MappingSource {
	return &MappingSource{raw: raw, users: users, items: items}
}

func (m *MappingSource) Next() (float64, []int32, bool) {
	score, keys, ok := m.raw.Next()
	if !ok {
		return 0, nil, false
	}
	x := make([]int32, len(keys))
	for i, key := range keys {
		dict := m.items
		if i == 0 {
			dict = m.users
		}
		x[i] = m.lookupOrSentinel(dict, key)
	}
	return score, x, true
}

// lookupOrSentinel returns -1 for a key never seen during the dictionary
// prepass, a value worker.Worker.Update treats as out of range: a -1 user
// rejects the whole sample, and a -1 item ends the sample at that item, so
// the items after it are not processed.
func (m *MappingSource) lookupOrSentinel(dict *Dictionary, key string) int32 {
	idx, ok := dict.Lookup(key)
	if !ok {
		return -1
	}
	return int32(idx)
}

func (m *MappingSource) Close() error {
	return m.raw.Close()
}
