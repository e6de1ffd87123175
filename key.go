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
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

const (
	fnvOffset64 = 0xcbf29ce484222325
	fnvPrime64  = 0x00000100000001b3

	// keyPad fills the unused bytes of a key derived from a short string.
	keyPad = 0xff
)

// StrKey maps up to the first 8 bytes of s to a Key. Strings shorter than 8
// bytes are padded with 0xff, so two short strings derive the same key only if
// they are equal up to a trailing run of 0xff bytes ("abc" and "abc\xff"
// collide). Bytes past the eighth are ignored: long strings sharing an
// 8-byte prefix derive the same key. Use HashStr for those.
func StrKey(s string) Key {
	var buf [8]byte
	n := copy(buf[:], s)
	for i := n; i < len(buf); i++ {
		buf[i] = keyPad
	}
	return Key(binary.LittleEndian.Uint64(buf[:]))
}

// BytesKey is like StrKey but for a byte slice. A nil slice maps to key 0.
func BytesKey(b []byte) Key {
	if b == nil {
		return 0
	}
	return StrKey(string(b))
}

// HashStr returns the 64-bit FNV-1a hash of s as a Key. The empty string
// hashes to the FNV offset basis.
func HashStr(s string) Key {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return Key(h)
}

// HashBytes returns the 64-bit FNV-1a hash of b as a Key.
func HashBytes(b []byte) Key {
	h := uint64(fnvOffset64)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return Key(h)
}

// Sum64Key returns the xxHash64 of b as a Key. It is considerably faster than
// HashBytes on long inputs, but the two produce unrelated keys and must not be
// mixed within a Map.
func Sum64Key(b []byte) Key {
	return Key(xxhash.Sum64(b))
}

// Sum64StrKey returns the xxHash64 of s as a Key.
func Sum64StrKey(s string) Key {
	return Key(xxhash.Sum64String(s))
}
