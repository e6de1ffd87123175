// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tinymap

import "github.com/cockroachdb/errors"

// Iterator walks every entry of a Map exactly once, in slot order and then
// chain order:
//
//	it := m.Iter()
//	for it.Next() {
//		fmt.Println(it.Key(), it.Data())
//	}
//
// An Iterator makes a single pass and cannot be restarted. Inserting or
// nuking keys while an Iterator is live invalidates it and the next call to
// Next panics. Updating the value of an existing key in place is allowed.
type Iterator struct {
	m *Map
	// slot is the index of the slot holding cur, -1 before the first call to
	// Next and Capacity once the iterator is exhausted.
	slot    int
	cur     *Bucket
	version uint64
}

// Iter returns an Iterator positioned before the first entry of m.
func (m *Map) Iter() Iterator {
	it := Iterator{m: m, slot: -1}
	if m != nil {
		it.version = m.version
	}
	return it
}

// Next advances the iterator to the next entry, returning false once every
// entry has been visited.
func (it *Iterator) Next() bool {
	if it.m == nil || it.slot >= Capacity {
		it.cur = nil
		return false
	}
	if it.m.version != it.version {
		panic(errors.AssertionFailedf("tinymap: map modified during iteration"))
	}

	if it.cur != nil {
		it.cur = it.cur.next
	}
	for it.cur == nil {
		it.slot++
		if it.slot >= Capacity {
			return false
		}
		it.cur = it.m.slots[it.slot]
	}
	return true
}

// Bucket returns the current entry, or nil if Next has not been called or
// returned false.
func (it *Iterator) Bucket() *Bucket {
	return it.cur
}

// Key returns the key of the current entry.
func (it *Iterator) Key() Key {
	return it.cur.key
}

// Data returns the value of the current entry.
func (it *Iterator) Data() []byte {
	return it.cur.data
}
