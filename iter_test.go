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
)

func TestIterEmpty(t *testing.T) {
	m := New()
	defer m.Close()

	it := m.Iter()
	require.Nil(t, it.Bucket())
	require.False(t, it.Next())
	require.Nil(t, it.Bucket())
	require.False(t, it.Next())

	var nilMap *Map
	it = nilMap.Iter()
	require.False(t, it.Next())
}

func TestIterExhausted(t *testing.T) {
	m := New()
	defer m.Close()

	for _, k := range []Key{255, 0, sameSlotKey(1)} {
		_, err := m.Put(k, []byte{byte(k)})
		require.NoError(t, err)
	}

	it := m.Iter()
	var keys []Key
	for it.Next() {
		require.Equal(t, it.Key(), it.Bucket().Key())
		require.Equal(t, []byte{byte(it.Key())}, it.Data())
		keys = append(keys, it.Key())
	}
	require.Equal(t, []Key{0, sameSlotKey(1), 255}, keys)

	// An exhausted iterator stays exhausted, even if the map changes.
	_, err := m.Put(7, []byte{7})
	require.NoError(t, err)
	require.False(t, it.Next())
	require.Nil(t, it.Bucket())

	// A fresh iterator sees the new entry.
	n := 0
	for it := m.Iter(); it.Next(); {
		n++
	}
	require.Equal(t, 4, n)
}

func TestIterateMutate(t *testing.T) {
	m := New()
	defer m.Close()

	for i := 0; i < 100; i++ {
		_, err := m.Put(Key(i), asBytes(int64(i)))
		require.NoError(t, err)
	}

	// Updating values in place is allowed while iterating.
	for it := m.Iter(); it.Next(); {
		_, err := m.Put(it.Key(), asBytes(int64(it.Key())*2))
		require.NoError(t, err)
	}
	for i := 0; i < 100; i++ {
		require.EqualValues(t, i*2, m.GetI64(Key(i)))
	}

	// Inserting or nuking is detected by the next call to Next.
	it := m.Iter()
	require.True(t, it.Next())
	m.Nuke(it.Key())
	require.Panics(t, func() { it.Next() })

	it = m.Iter()
	require.True(t, it.Next())
	_, err := m.Put(1000, []byte{1})
	require.NoError(t, err)
	require.Panics(t, func() { it.Next() })

	// A refused insert is not a modification.
	it = m.Iter()
	require.True(t, it.Next())
	_, err = m.Put(2000, nil)
	require.Error(t, err)
	require.True(t, it.Next())
}

func TestAllStop(t *testing.T) {
	m := New()
	defer m.Close()

	for i := 0; i < 10; i++ {
		_, err := m.Put(Key(i), []byte{byte(i)})
		require.NoError(t, err)
	}
	var n int
	m.All(func(k Key, v []byte) bool {
		n++
		return n < 3
	})
	require.Equal(t, 3, n)
}
