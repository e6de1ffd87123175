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

// package tinymap is a small, fixed-footprint map from 64-bit keys to owned
// byte blobs.
//
// # Layout
//
// A Map is a directory of exactly 256 slots. There is no resizing: a key is
// assigned to slot fold(key)%256 where
//
//	fold(key) = key ^ (key >> 32)
//
// and keys that fold to the same slot are kept in a singly linked chain of
// Buckets. Chains preserve insertion order and hold at most one Bucket per
// key. Lookups are a linear walk of one chain, so the map performs well
// while the number of entries is a small multiple of 256 and degrades
// linearly beyond that.
//
// # Ownership
//
// Put copies the caller's bytes into a blob obtained from the Map's
// Allocator; the Bucket owns that blob and the Map owns every Bucket. A
// Bucket may carry a finalizer which is invoked on the blob exactly once,
// immediately before the blob is returned to the Allocator, either when the
// key is nuked or when the Map is closed. The blob must not be retained by
// the finalizer.
//
// Updating an existing key never reallocates: the new bytes are copied over
// the old blob, keeping the Bucket, its position in the chain and its
// finalizer. An update whose length differs from the stored length is
// refused and leaves the entry untouched.
//
// # Keys
//
// Keys are opaque 64-bit values. StrKey packs up to 8 bytes of a string
// directly into a key, HashStr computes the 64-bit FNV-1a hash of a string
// and Sum64Key computes its xxHash64.
//
// # Failure handling
//
// Allocation failures are fatal by default: the failure is logged and the
// configured fatal function (os.Exit(1) unless replaced by WithFatal) is
// invoked. WithAllocFailurePolicy(ReturnAllocFailure) turns them into
// ErrOutOfMemory results instead. All other failures are returned as errors
// and logged through the configured zap logger.
//
// A Map is NOT goroutine-safe.
package tinymap

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const (
	debug = false

	// Capacity is the fixed number of slots in a Map.
	Capacity = 256
)

var (
	// ErrInvalidSize is returned by Put when asked to store an empty value.
	ErrInvalidSize = errors.New("tinymap: value must be at least 1 byte")
	// ErrSizeMismatch is returned by Put when updating an existing key with a
	// value whose length differs from the stored one. The stored value is
	// left unchanged.
	ErrSizeMismatch = errors.New("tinymap: value size does not match stored size")
	// ErrOutOfMemory is returned by Put when the Allocator fails and the Map
	// was configured with ReturnAllocFailure.
	ErrOutOfMemory = errors.New("tinymap: out of memory")
)

// Key identifies an entry in a Map. Keys compare bitwise.
type Key uint64

// Bucket holds a single entry of a Map: its key, the blob holding its value
// and an optional finalizer. Buckets are owned by the Map and are only valid
// until their key is nuked or the Map is closed.
type Bucket struct {
	key       Key
	data      []byte
	finalizer func(data []byte)
	next      *Bucket
}

// Key returns the key of the entry.
func (b *Bucket) Key() Key {
	return b.key
}

// Data returns the blob holding the entry's value. The blob is owned by the
// Map; it may be modified in place but must not be retained past the
// removal of the entry.
func (b *Bucket) Data() []byte {
	return b.data
}

// Len returns the length of the entry's value in bytes.
func (b *Bucket) Len() int {
	return len(b.data)
}

// SetFinalizer attaches fn to the entry, replacing any previous finalizer.
// fn is called with the entry's blob right before the blob is released by
// Map.Nuke or Map.Close. A nil fn removes the finalizer.
func (b *Bucket) SetFinalizer(fn func(data []byte)) {
	b.finalizer = fn
}

// Map is a fixed-capacity map from Keys to byte blobs with Put, Find, Nuke
// and iteration operations. See the package documentation for details.
//
// A Map is NOT goroutine-safe.
type Map struct {
	// slots holds the head of the chain for each slot.
	slots [Capacity]*Bucket
	// The allocator to use for buckets and blobs.
	allocator Allocator
	logger    *zap.Logger
	fatal     func()
	policy    AllocFailurePolicy
	// The number of entries in the map.
	used int
	// version is bumped on every structural change (insertion, removal or
	// close) and lets an Iterator detect that the map changed under it.
	version uint64
}

// New constructs a new, empty Map. A Map must be closed with Close in order
// for the finalizers of its remaining entries to run and for memory to be
// returned to a custom Allocator.
func New(options ...option) *Map {
	m := &Map{
		allocator: defaultAllocator{},
		logger:    zap.L(),
		fatal:     defaultFatal,
		policy:    AbortOnAllocFailure,
	}

	for _, op := range options {
		op.apply(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.Named("tinymap")

	m.checkInvariants()
	return m
}

// Close closes the map, running the finalizer of every remaining entry and
// releasing its memory back to the configured allocator. It is invalid to
// use a Map after it has been closed, though Close itself is idempotent.
func (m *Map) Close() {
	for i := range m.slots {
		// The chain is released front to back with a loop; the length of a
		// chain is unbounded.
		for b := m.slots[i]; b != nil; b = m.slots[i] {
			// Unlink before releasing so that a finalizer only observes live
			// entries.
			m.slots[i] = b.next
			m.used--
			m.release(b)
		}
	}
	m.used = 0
	m.version++
	m.allocator = nil
}

// Put stores a copy of data under key and returns the Bucket holding it.
//
// If the key is already present and its value has the same length as data,
// the value is overwritten in place and the existing Bucket (with its
// finalizer) is returned. If the lengths differ, the stored value is left
// unchanged and the existing Bucket is returned together with an error
// matching ErrSizeMismatch.
//
// An empty data is rejected with an error matching ErrInvalidSize and no
// Bucket.
func (m *Map) Put(key Key, data []byte) (*Bucket, error) {
	if len(data) < 1 {
		m.logger.Warn("refusing to store an empty value",
			zap.Uint64("key", uint64(key)))
		return nil, errors.Wrapf(ErrInvalidSize, "key %d", key)
	}

	i := slotIndex(key)
	if debug {
		fmt.Printf("put(%d): slot=%d size=%d\n", key, i, len(data))
	}

	var tail *Bucket
	for b := m.slots[i]; b != nil; b = b.next {
		if b.key == key {
			if len(b.data) != len(data) {
				m.logger.Warn("value size does not match stored size",
					zap.Uint64("key", uint64(key)),
					zap.Int("stored", len(b.data)),
					zap.Int("size", len(data)))
				return b, errors.Wrapf(ErrSizeMismatch,
					"key %d: stored %d bytes, got %d", key, len(b.data), len(data))
			}
			if debug {
				fmt.Printf("put(updating): slot=%d key=%d\n", i, key)
			}
			copy(b.data, data)
			return b, nil
		}
		tail = b
	}

	b, err := m.newBucket(key, data)
	if err != nil {
		return nil, err
	}
	if tail == nil {
		m.slots[i] = b
	} else {
		tail.next = b
	}
	m.used++
	m.version++
	m.checkInvariants()
	return b, nil
}

// Find returns the Bucket for key, or nil if the key is not present.
func (m *Map) Find(key Key) *Bucket {
	for b := m.slots[slotIndex(key)]; b != nil; b = b.next {
		if b.key == key {
			return b
		}
	}
	return nil
}

// Get retrieves the blob stored for key, returning ok=false if the key is not
// present. The returned slice is owned by the map.
func (m *Map) Get(key Key) (data []byte, ok bool) {
	if b := m.Find(key); b != nil {
		return b.data, true
	}
	return nil, false
}

// Nuke removes the entry for key, running its finalizer and releasing its
// memory. It is a noop to nuke a non-existent key.
func (m *Map) Nuke(key Key) {
	link := &m.slots[slotIndex(key)]
	for b := *link; b != nil; link, b = &b.next, b.next {
		if b.key == key {
			if debug {
				fmt.Printf("nuke(%d): slot=%d\n", key, slotIndex(key))
			}
			*link = b.next
			m.release(b)
			m.used--
			m.version++
			m.checkInvariants()
			return
		}
	}
}

// Len returns the number of entries in the map.
func (m *Map) Len() int {
	return m.used
}

// All calls yield sequentially for each key and value present in the map,
// in slot order and then chain order. If yield returns false, iteration
// stops. The map must not be structurally modified during iteration.
func (m *Map) All(yield func(key Key, data []byte) bool) {
	it := m.Iter()
	for it.Next() {
		b := it.Bucket()
		if !yield(b.key, b.data) {
			return
		}
	}
}

// slotIndex returns the slot that key is stored in.
func slotIndex(key Key) int {
	return int((key ^ key>>32) & (Capacity - 1))
}

// newBucket allocates a bucket holding a copy of data.
func (m *Map) newBucket(key Key, data []byte) (*Bucket, error) {
	b := m.allocator.AllocBucket()
	if b == nil {
		return nil, m.outOfMemory(key, int(unsafe.Sizeof(Bucket{})))
	}
	blob := m.allocator.AllocBlob(len(data))
	if blob == nil {
		m.allocator.FreeBucket(b)
		return nil, m.outOfMemory(key, len(data))
	}
	copy(blob, data)
	*b = Bucket{key: key, data: blob}
	return b, nil
}

// release runs the finalizer of b and returns its blob and b itself to the
// allocator.
func (m *Map) release(b *Bucket) {
	if b.data != nil {
		if b.finalizer != nil {
			b.finalizer(b.data)
		}
		m.allocator.FreeBlob(b.data)
	}
	*b = Bucket{}
	m.allocator.FreeBucket(b)
}

func (m *Map) outOfMemory(key Key, size int) error {
	m.logger.Error("out of memory",
		zap.Uint64("key", uint64(key)),
		zap.Int("size", size),
		zap.Stringer("policy", m.policy))
	if m.policy == AbortOnAllocFailure {
		m.fatal()
	}
	return errors.Wrapf(ErrOutOfMemory, "key %d: allocating %d bytes", key, size)
}

func (m *Map) checkInvariants() {
	if invariants {
		var used int
		for i := range m.slots {
			seen := make(map[Key]struct{})
			for b := m.slots[i]; b != nil; b = b.next {
				if j := slotIndex(b.key); j != i {
					panic(fmt.Sprintf("invariant failed: key %d found in slot %d, expected %d\n%s",
						b.key, i, j, m.debugString()))
				}
				if _, ok := seen[b.key]; ok {
					panic(fmt.Sprintf("invariant failed: key %d duplicated in slot %d\n%s",
						b.key, i, m.debugString()))
				}
				if len(b.data) < 1 {
					panic(fmt.Sprintf("invariant failed: key %d has an empty value\n%s",
						b.key, m.debugString()))
				}
				seen[b.key] = struct{}{}
				used++
			}
		}
		if used != m.used {
			panic(fmt.Sprintf("invariant failed: found %d entries, but used count is %d\n%s",
				used, m.used, m.debugString()))
		}
	}
}

func (m *Map) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "used=%d  version=%d\n", m.used, m.version)
	for i := range m.slots {
		if m.slots[i] == nil {
			continue
		}
		fmt.Fprintf(&buf, "  %3d:", i)
		for b := m.slots[i]; b != nil; b = b.next {
			fmt.Fprintf(&buf, " %016x[%d]", uint64(b.key), len(b.data))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
