// Copyright 2025 Poiesic Systems
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

package badger

import (
	"context"

	"github.com/poiesic/graphstore/storage"
)

type namedModel string

func (m namedModel) Name() string { return string(m) }

// NewMemoryBackend creates an opened, writable in-memory backend for testing.
// Caller must close the backend when done.
func NewMemoryBackend(ctx context.Context, contexts bool) (*Backend, error) {
	opts := storage.Options{Contexts: contexts, Write: true}
	opts = opts.Set(optionHashType, hashTypeMemory)

	b, err := New(ctx, opts)
	if err != nil {
		return nil, err
	}
	backend := b.(*Backend)
	if err := backend.Open(ctx, namedModel("memory-backend")); err != nil {
		return nil, err
	}
	return backend, nil
}
