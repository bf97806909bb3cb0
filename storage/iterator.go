package storage

import (
	"iter"

	"github.com/poiesic/graphstore/core"
)

// Iterator is a lazy, single-pass sequence of nodes, each tagged with the
// context of the statement it came from. It follows the same protocol as Stream.
type Iterator struct {
	c cursor[core.NodeMatch]
}

// NewIterator creates an Iterator over any node cursor. Failures of src are
// classified as for NewStream.
func NewIterator(src NodeCursor) *Iterator {
	return &Iterator{c: cursor[core.NodeMatch]{src: src, wrap: wrapInput}}
}

// End reports whether the iterator is exhausted.
func (it *Iterator) End() bool {
	return it.c.end()
}

// Match returns the current node and its context.
func (it *Iterator) Match() (core.NodeMatch, error) {
	return it.c.current()
}

// Node returns the current node.
func (it *Iterator) Node() (core.Node, error) {
	m, err := it.c.current()
	return m.Node, err
}

// Context returns the context of the current node.
func (it *Iterator) Context() (core.Term, error) {
	m, err := it.c.current()
	return m.Context, err
}

// Advance moves to the next node. It is a no-op at the end.
func (it *Iterator) Advance() {
	it.c.advance()
}

// Err returns the error that ended the iterator early, if any.
func (it *Iterator) Err() error {
	return it.c.err
}

// Close releases the iterator. Further calls are no-ops.
func (it *Iterator) Close() error {
	return it.c.close()
}

// All returns the remaining nodes as a sequence, releasing the iterator when
// the loop completes or breaks.
func (it *Iterator) All() iter.Seq2[core.NodeMatch, error] {
	return it.c.all
}

// Collect drains and releases the iterator.
func (it *Iterator) Collect() ([]core.NodeMatch, error) {
	return it.c.collect()
}

func (it *Iterator) forceClose() {
	it.c.close()
}
