package storage

import (
	"io"
	"iter"

	"github.com/poiesic/graphstore/core"
)

// Stream is a lazy, single-pass sequence of statements, each tagged with its
// context. A Stream must be released with Close, or drained through All or
// Collect, on every path.
//
//	stream, err := st.FindStatements(ctx, pattern)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for !stream.End() {
//	    stmt, _ := stream.Statement()
//	    ...
//	    stream.Advance()
//	}
//	return stream.Err()
type Stream struct {
	c cursor[core.Quad]
}

// NewStream creates a Stream over any statement cursor. Parsers use it to
// feed AddStatements. Failures of src are reported as ErrInput unless they
// already carry a taxonomy error.
func NewStream(src StatementCursor) *Stream {
	return &Stream{c: cursor[core.Quad]{src: src, wrap: wrapInput}}
}

// StreamOf creates a Stream over a fixed list of quads.
func StreamOf(quads ...core.Quad) *Stream {
	return NewStream(&sliceSource[core.Quad]{items: quads})
}

// End reports whether the stream is exhausted.
func (s *Stream) End() bool {
	return s.c.end()
}

// Quad returns the current statement and its context.
func (s *Stream) Quad() (core.Quad, error) {
	return s.c.current()
}

// Statement returns the current statement.
func (s *Stream) Statement() (core.Statement, error) {
	q, err := s.c.current()
	return q.Statement, err
}

// Context returns the context of the current statement. It is a wildcard
// when the statement has no context.
func (s *Stream) Context() (core.Term, error) {
	q, err := s.c.current()
	return q.Context, err
}

// Advance moves to the next statement. It is a no-op at the end.
func (s *Stream) Advance() {
	s.c.advance()
}

// Err returns the error that ended the stream early, if any.
func (s *Stream) Err() error {
	return s.c.err
}

// Close releases the stream. Further calls are no-ops.
func (s *Stream) Close() error {
	return s.c.close()
}

// All returns the remaining statements as a sequence. The stream is released
// when the loop completes or breaks; ranging again yields nothing.
// A traversal error is yielded once as the final element.
func (s *Stream) All() iter.Seq2[core.Quad, error] {
	return s.c.all
}

// Collect drains and releases the stream.
func (s *Stream) Collect() ([]core.Quad, error) {
	return s.c.collect()
}

func (s *Stream) forceClose() {
	s.c.close()
}

// streamSource reads another Stream as a backend cursor.
type streamSource struct {
	s *Stream
}

func (a streamSource) Next() (core.Quad, error) {
	if a.s.c.end() {
		if err := a.s.c.takeErr(); err != nil {
			return core.Quad{}, err
		}
		return core.Quad{}, io.EOF
	}
	q := a.s.c.item
	a.s.c.advance()
	return q, nil
}

func (a streamSource) Close() error {
	return a.s.Close()
}
