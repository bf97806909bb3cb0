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

// Package nquads reads and writes the line-based N-Triples and N-Quads
// syntaxes on top of github.com/cayleygraph/quad/nquads.
//
// A Reader is a storage.StatementCursor, so parsed input can be handed to
// Storage.AddStatements through storage.NewStream:
//
//	r, err := nquads.Open("data.nq", nquads.FormatNQuads)
//	if err != nil {
//	    return err
//	}
//	n, err := st.AddStatements(ctx, storage.NewStream(r))
package nquads

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cayleynq "github.com/cayleygraph/quad/nquads"
	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/storage"
)

// Format selects between the triple and quad syntaxes.
type Format int

const (
	// FormatNTriples accepts and produces statements without a graph term.
	FormatNTriples Format = iota
	// FormatNQuads accepts and produces an optional fourth graph term.
	FormatNQuads
)

func (f Format) String() string {
	if f == FormatNQuads {
		return "nquads"
	}
	return "ntriples"
}

// ParseFormat maps a syntax name to a Format. The empty name selects N-Quads,
// which also accepts every N-Triples document.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "nquads", "n-quads", "nq":
		return FormatNQuads, nil
	case "ntriples", "n-triples", "nt":
		return FormatNTriples, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatForPath guesses the format from a file extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".nt") {
		return FormatNTriples
	}
	return FormatNQuads
}

var (
	// ErrSyntax is the parent of every parse error.
	ErrSyntax = errors.New("syntax error")

	// ErrUnknownFormat indicates an unsupported syntax name.
	ErrUnknownFormat = errors.New("unknown format")

	errGraphInTriples = errors.New("graph term not allowed in N-Triples")
)

// ParseError reports a malformed line. It matches ErrSyntax and the
// underlying parser error.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrSyntax, e.Err} }

// Reader decodes statements one line at a time.
type Reader struct {
	scanner *bufio.Scanner
	format  Format
	line    int
	closer  io.Closer
	err     error
}

var _ storage.StatementCursor = (*Reader)(nil)

const maxLineSize = 16 * 1024 * 1024

// NewReader creates a Reader over r. The caller keeps ownership of r.
func NewReader(r io.Reader, format Format) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner, format: format}
}

// Open creates a Reader over a file. Closing the Reader closes the file.
func Open(path string, format Format) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewReader(f, format)
	r.closer = f
	return r, nil
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next statement, or io.EOF at the end of input. A parse
// error ends the reader.
func (r *Reader) Next() (core.Quad, error) {
	if r.err != nil {
		return core.Quad{}, r.err
	}
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		q, err := parseLine(line, r.format)
		if err != nil {
			r.err = &ParseError{Line: r.line, Err: err}
			return core.Quad{}, r.err
		}
		return q, nil
	}
	if err := r.scanner.Err(); err != nil {
		r.err = err
		return core.Quad{}, err
	}
	r.err = io.EOF
	return core.Quad{}, io.EOF
}

// Close releases the underlying file when the Reader was created by Open.
func (r *Reader) Close() error {
	if r.err == nil {
		r.err = io.EOF
	}
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil
	return c.Close()
}

// ParseStatement parses a single statement line.
func ParseStatement(line string, format Format) (core.Quad, error) {
	return parseLine(strings.TrimSpace(line), format)
}

func parseLine(line string, format Format) (core.Quad, error) {
	pq, err := cayleynq.Parse(line)
	if err != nil {
		return core.Quad{}, err
	}
	if pq.Label != nil && format != FormatNQuads {
		return core.Quad{}, errGraphInTriples
	}
	return fromQuad(pq)
}
