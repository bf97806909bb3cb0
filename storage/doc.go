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

// Package storage provides the storage abstraction layer for graphstore.
//
// This package defines the Backend contract that decouples triple storage
// engines from the graph model, the Registry that selects a backend by name,
// and the Storage handle that validates calls and forwards them to exactly
// one backend instance.
//
// # Architecture
//
//   - Backend: the contract every engine implements (memory, hashes, sqlite, ...)
//   - BulkAdder, NodeFinder: optional upgrades detected by type assertion
//   - Registry: name to constructor table owned by one session value
//   - Storage: lifecycle (constructed, opened, closed), validation and dispatch
//   - Stream, Iterator: lazy single-pass cursors over statements and nodes
//
// # Usage
//
// Register backends, then construct and open a storage:
//
//	reg := storage.NewRegistry()
//	if err := reg.Register("memory", "in-memory store", memory.New); err != nil {
//	    log.Fatal(err)
//	}
//	st, err := storage.New(ctx, reg, "memory", storage.Options{Contexts: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := st.Open(ctx, model); err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
// # Cursors
//
// A Stream or Iterator starts Fresh, fetches its first item lazily and ends
// in a sticky End state. It holds backend traversal resources until it
// reaches End or is closed, whichever comes first. Streams and Iterators
// must not outlive their Storage; closing a Storage force-releases any that
// are still open.
//
// # Thread Safety
//
// A Storage and its backend are used by one goroutine at a time. The
// registry and dispatch layer take no locks.
//
// # Errors
//
// Errors are sentinels comparable with errors.Is. Backend failures outside
// the taxonomy are wrapped as ErrIO. Empty query results are never errors.
package storage
