package nquads

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cayleygraph/quad"
	cayleynq "github.com/cayleygraph/quad/nquads"
	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/storage"
)

// Writer encodes statements one per line. In FormatNTriples contexts are
// dropped.
type Writer struct {
	buf    *bufio.Writer
	enc    *cayleynq.Writer
	format Format
	err    error
}

// NewWriter creates a Writer over w. Call Flush when done.
func NewWriter(w io.Writer, format Format) *Writer {
	buf := bufio.NewWriter(w)
	return &Writer{buf: buf, enc: cayleynq.NewWriter(buf), format: format}
}

// Write encodes one ground statement with its context.
func (w *Writer) Write(q core.Quad) error {
	if w.err != nil {
		return w.err
	}
	if !q.IsGround() {
		return fmt.Errorf("%w: cannot write pattern %s", core.ErrInvalidPattern, q.Statement)
	}

	s, _ := q.Subject.Node()
	p, _ := q.Predicate.Node()
	o, _ := q.Object.Node()
	pq := quad.Quad{Subject: toValue(s), Predicate: toValue(p), Object: toValue(o)}
	if c, ok := q.Context.Node(); ok && w.format == FormatNQuads {
		pq.Label = toValue(c)
	}
	w.err = w.enc.WriteQuad(pq)
	return w.err
}

// WriteStream writes every statement of a stream and releases it. It
// returns the number of statements written.
func (w *Writer) WriteStream(stream *storage.Stream) (int, error) {
	n := 0
	for q, err := range stream.All() {
		if err != nil {
			return n, err
		}
		if err := w.Write(q); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Flush writes buffered output to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.buf.Flush()
	return w.err
}

// FormatNode renders a node in N-Triples syntax. The empty node renders as "".
func FormatNode(n core.Node) string {
	v := toValue(n)
	if v == nil {
		return ""
	}
	return v.String()
}
