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
	"os"

	"go.uber.org/zap"
)

// option provide an interface to do work on Map while it is being created.
type option interface {
	apply(m *Map)
}

// Allocator specifies an interface for allocating and releasing the memory
// used by a Map. The default allocator utilizes Go's builtin new() and make()
// and allows the GC to reclaim memory.
//
// Returning nil from AllocBucket, or nil from AllocBlob for n > 0, reports an
// allocation failure which is handled according to the Map's
// AllocFailurePolicy.
//
// Every bucket and blob handed out by an Allocator is returned to it exactly
// once, either by Map.Nuke or by Map.Close.
type Allocator interface {
	// AllocBucket should return a pointer equivalent to new(Bucket).
	AllocBucket() *Bucket

	// AllocBlob should return a slice equivalent to make([]byte, n).
	AllocBlob(n int) []byte

	// FreeBucket can optionally release the memory associated with a bucket
	// that is guaranteed to have been allocated by AllocBucket.
	FreeBucket(b *Bucket)

	// FreeBlob can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by AllocBlob.
	FreeBlob(v []byte)
}

type defaultAllocator struct{}

func (defaultAllocator) AllocBucket() *Bucket {
	return new(Bucket)
}

func (defaultAllocator) AllocBlob(n int) []byte {
	return make([]byte, n)
}

func (defaultAllocator) FreeBucket(b *Bucket) {
}

func (defaultAllocator) FreeBlob(v []byte) {
}

type allocatorOption struct {
	allocator Allocator
}

func (op allocatorOption) apply(m *Map) {
	m.allocator = op.allocator
}

// WithAllocator is an option to specify the Allocator to use for a Map.
func WithAllocator(allocator Allocator) option {
	return allocatorOption{allocator}
}

type loggerOption struct {
	logger *zap.Logger
}

func (op loggerOption) apply(m *Map) {
	m.logger = op.logger
}

// WithLogger is an option to specify the sink for a Map's diagnostics. By
// default the process-wide zap.L() logger is used.
func WithLogger(logger *zap.Logger) option {
	return loggerOption{logger}
}

type fatalOption struct {
	fatal func()
}

func (op fatalOption) apply(m *Map) {
	m.fatal = op.fatal
}

// WithFatal is an option to replace the function invoked when an allocation
// fails under AbortOnAllocFailure. The default exits the process. If fatal
// returns, the failing Put returns ErrOutOfMemory.
func WithFatal(fatal func()) option {
	return fatalOption{fatal}
}

// AllocFailurePolicy determines what a Map does when its Allocator fails.
type AllocFailurePolicy int

const (
	// AbortOnAllocFailure logs the failure and invokes the fatal function.
	AbortOnAllocFailure AllocFailurePolicy = iota
	// ReturnAllocFailure logs the failure and returns ErrOutOfMemory from
	// the operation that attempted the allocation.
	ReturnAllocFailure
)

func (p AllocFailurePolicy) String() string {
	switch p {
	case AbortOnAllocFailure:
		return "abort"
	case ReturnAllocFailure:
		return "return"
	default:
		return "unknown"
	}
}

type allocFailurePolicyOption struct {
	policy AllocFailurePolicy
}

func (op allocFailurePolicyOption) apply(m *Map) {
	m.policy = op.policy
}

// WithAllocFailurePolicy is an option to specify how allocation failures are
// handled.
func WithAllocFailurePolicy(policy AllocFailurePolicy) option {
	return allocFailurePolicyOption{policy}
}

func defaultFatal() {
	os.Exit(1)
}
