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

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// GetInt interprets the leading bytes of the value stored for key as an
// integer of type T in native byte order. It returns 0 if the key is not
// present. A value shorter than T is zero-extended.
func GetInt[T constraints.Integer](m *Map, key Key) T {
	b := m.Find(key)
	if b == nil {
		return 0
	}
	var v T
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v)), b.data)
	return v
}

// GetI16 returns the value stored for key as an int16, or 0 if absent.
func (m *Map) GetI16(key Key) int16 { return GetInt[int16](m, key) }

// GetU16 returns the value stored for key as a uint16, or 0 if absent.
func (m *Map) GetU16(key Key) uint16 { return GetInt[uint16](m, key) }

// GetI32 returns the value stored for key as an int32, or 0 if absent.
func (m *Map) GetI32(key Key) int32 { return GetInt[int32](m, key) }

// GetU32 returns the value stored for key as a uint32, or 0 if absent.
func (m *Map) GetU32(key Key) uint32 { return GetInt[uint32](m, key) }

// GetI64 returns the value stored for key as an int64, or 0 if absent.
func (m *Map) GetI64(key Key) int64 { return GetInt[int64](m, key) }

// GetU64 returns the value stored for key as a uint64, or 0 if absent.
func (m *Map) GetU64(key Key) uint64 { return GetInt[uint64](m, key) }
