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

package ingestion

import (
	"context"
	"io"

	"github.com/poiesic/graphstore/nquads"
	"github.com/poiesic/graphstore/storage"
)

// Source is one unit of input decoded by a pipeline worker.
type Source struct {
	// Name identifies the source in logs and errors.
	Name string

	// Open returns a cursor over the decoded statements. The worker closes it.
	Open func(ctx context.Context) (storage.StatementCursor, error)
}

// FileSource decodes an N-Triples or N-Quads file. The format is chosen from
// the file extension.
func FileSource(path string) Source {
	return Source{
		Name: path,
		Open: func(context.Context) (storage.StatementCursor, error) {
			return nquads.Open(path, nquads.FormatForPath(path))
		},
	}
}

// ReaderSource decodes r in the given format. The caller keeps ownership of r.
func ReaderSource(name string, r io.Reader, format nquads.Format) Source {
	return Source{
		Name: name,
		Open: func(context.Context) (storage.StatementCursor, error) {
			return nquads.NewReader(r, format), nil
		},
	}
}
