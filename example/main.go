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

package main

import (
	"fmt"
	"log"

	"github.com/cockroachdb/tinymap"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	m := tinymap.New(tinymap.WithLogger(logger))
	defer m.Close()

	for _, kv := range []struct{ key, value string }{
		{"greeting", "hello"},
		{"name", "Bob!"},
	} {
		b, err := m.Put(tinymap.HashStr(kv.key), []byte(kv.value))
		if err != nil {
			log.Fatalf("failed to store %q: %v", kv.key, err)
		}
		key := kv.key
		b.SetFinalizer(func(data []byte) {
			logger.Info("released", zap.String("key", key), zap.ByteString("value", data))
		})
	}

	// Updating with a value of a different size is refused.
	if _, err := m.Put(tinymap.HashStr("name"), []byte("Alice")); err != nil {
		fmt.Printf("update refused: %v\n", err)
	}

	for it := m.Iter(); it.Next(); {
		fmt.Printf("%016x: %s\n", uint64(it.Key()), it.Data())
	}

	m.Nuke(tinymap.HashStr("greeting"))
	fmt.Printf("entries after nuke: %d\n", m.Len())
}
