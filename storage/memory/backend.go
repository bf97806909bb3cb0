// Package memory provides an in-memory storage backend.
//
// The store is a set of quads kept in insertion order. Cursors iterate over
// a snapshot taken when they are created, so mutations made while a cursor
// is open are not visible to it. The backend is always writable and ignores
// the write and new options.
package memory

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/storage"
)

// Name is the factory name of the memory backend.
const Name = "memory"

// Description is the factory description of the memory backend.
const Description = "In-memory storage with snapshot cursors"

// Backend stores quads in memory.
type Backend struct {
	items   []core.Quad
	index   map[core.Quad]int
	triples map[core.Statement]int
	logger  *slog.Logger
}

var _ storage.Backend = (*Backend)(nil)

// New creates a memory backend. It implements storage.Constructor.
func New(context.Context, storage.Options) (storage.Backend, error) {
	return &Backend{
		index:   make(map[core.Quad]int),
		triples: make(map[core.Statement]int),
		logger:  slog.Default().With("component", "memory-backend"),
	}, nil
}

func (b *Backend) Open(_ context.Context, model storage.Model) error {
	b.logger.Debug("opened", "model", model.Name())
	return nil
}

func (b *Backend) Close() error {
	b.items = nil
	b.index = nil
	b.triples = nil
	return nil
}

func (b *Backend) Size(context.Context) (int, error) {
	return len(b.items), nil
}

func (b *Backend) Add(_ context.Context, q core.Quad) error {
	if _, ok := b.index[q]; ok {
		return nil
	}
	b.index[q] = len(b.items)
	b.items = append(b.items, q)
	b.triples[q.Statement]++
	return nil
}

func (b *Backend) Remove(_ context.Context, q core.Quad) error {
	i, ok := b.index[q]
	if !ok {
		return nil
	}
	last := len(b.items) - 1
	if i != last {
		moved := b.items[last]
		b.items[i] = moved
		b.index[moved] = i
	}
	b.items[last] = core.Quad{}
	b.items = b.items[:last]
	delete(b.index, q)

	if b.triples[q.Statement] <= 1 {
		delete(b.triples, q.Statement)
	} else {
		b.triples[q.Statement]--
	}
	return nil
}

func (b *Backend) Contains(_ context.Context, q core.Quad) (bool, error) {
	if q.Context.IsBound() {
		_, ok := b.index[q]
		return ok, nil
	}
	return b.triples[q.Statement] > 0, nil
}

func (b *Backend) Serialise(context.Context) (storage.StatementCursor, error) {
	snapshot := make([]core.Quad, len(b.items))
	copy(snapshot, b.items)
	return &quadCursor{items: snapshot}, nil
}

func (b *Backend) Find(_ context.Context, pattern core.Quad) (storage.StatementCursor, error) {
	if pattern.IsGround() {
		// exact lookups avoid the scan
		if pattern.Context.IsBound() {
			if _, ok := b.index[pattern]; ok {
				return &quadCursor{items: []core.Quad{pattern}}, nil
			}
			return &quadCursor{}, nil
		}
		if b.triples[pattern.Statement] == 0 {
			return &quadCursor{}, nil
		}
	}

	var snapshot []core.Quad
	for _, q := range b.items {
		if pattern.Matches(q) {
			snapshot = append(snapshot, q)
		}
	}
	return &quadCursor{items: snapshot}, nil
}

type quadCursor struct {
	items []core.Quad
	pos   int
}

func (c *quadCursor) Next() (core.Quad, error) {
	if c.pos >= len(c.items) {
		return core.Quad{}, io.EOF
	}
	q := c.items[c.pos]
	c.pos++
	return q, nil
}

func (c *quadCursor) Close() error {
	c.items = nil
	return nil
}
