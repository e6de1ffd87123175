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
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaults(t *testing.T) {
	m := New()
	defer m.Close()

	require.Equal(t, defaultAllocator{}, m.allocator)
	require.Equal(t, AbortOnAllocFailure, m.policy)
	require.NotNil(t, m.fatal)
	require.NotNil(t, m.logger)
	require.EqualValues(t, 0, m.Len())
}

func TestOptions(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	a := &countingAllocator{}
	m := New(
		WithAllocator(a),
		WithLogger(zap.New(core)),
		WithAllocFailurePolicy(ReturnAllocFailure),
	)
	defer m.Close()

	require.Same(t, a, m.allocator)
	require.Equal(t, ReturnAllocFailure, m.policy)

	_, err := m.Put(1, nil)
	require.Error(t, err)
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "tinymap", logs.All()[0].LoggerName)
}

func TestAllocFailurePolicyString(t *testing.T) {
	require.Equal(t, "abort", AbortOnAllocFailure.String())
	require.Equal(t, "return", ReturnAllocFailure.String())
	require.Equal(t, "unknown", AllocFailurePolicy(7).String())
}
