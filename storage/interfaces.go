package storage

import (
	"context"

	"github.com/poiesic/graphstore/core"
)

// SizeUnknown is returned by Size when a backend cannot count cheaply.
const SizeUnknown = -1

// Model is the graph a storage is opened against. Storage only keeps a
// non-owning reference to it.
type Model interface {
	Name() string
}

// StatementCursor is a backend traversal over stored quads.
// Next returns io.EOF once the traversal is exhausted.
// Close releases backend resources and may be called after io.EOF.
type StatementCursor interface {
	Next() (core.Quad, error)
	Close() error
}

// NodeCursor is a backend traversal over nodes.
// Next returns io.EOF once the traversal is exhausted.
type NodeCursor interface {
	Next() (core.NodeMatch, error)
	Close() error
}

// Backend is the contract every storage engine implements.
// Backends are used from one goroutine at a time.
//
// Quads passed to Add and Remove are ground and validated; an unbound Context
// means "no context". Quads passed to Contains and Find are patterns; an
// unbound Context means "any context". Cursors returned by Find and Serialise
// must tag every quad with its stored context and must not be affected by
// mutations made while they are open.
type Backend interface {
	// Open binds the backend to a model and acquires its resources.
	Open(ctx context.Context, model Model) error

	// Close releases backend resources.
	Close() error

	// Size returns the number of stored quads or SizeUnknown.
	Size(ctx context.Context) (int, error)

	// Add stores a quad. Adding a stored quad is a no-op.
	Add(ctx context.Context, q core.Quad) error

	// Remove deletes a quad. Removing an absent quad is a no-op.
	Remove(ctx context.Context, q core.Quad) error

	// Contains reports whether any stored quad matches the ground statement
	// of q, constrained to q.Context when it is bound.
	Contains(ctx context.Context, q core.Quad) (bool, error)

	// Serialise returns a cursor over the whole store.
	Serialise(ctx context.Context) (StatementCursor, error)

	// Find returns a cursor over the quads matching the pattern q.
	Find(ctx context.Context, q core.Quad) (StatementCursor, error)
}

// BulkAdder is implemented by backends with a faster path for bulk inserts.
// AddStatements consumes the stream until it ends and returns the number of
// quads added. When the stream ends with Err() set the backend must stop and
// return that error. Partial inserts are not rolled back.
type BulkAdder interface {
	AddStatements(ctx context.Context, stream *Stream) (int, error)
}

// NodeFinder is implemented by backends that can answer node queries directly.
// q binds exactly two statement slots; role names the unbound one.
// Duplicate nodes are removed by the Storage.
type NodeFinder interface {
	FindNodes(ctx context.Context, role core.Role, q core.Quad) (NodeCursor, error)
}

// Constructor creates a backend from options. It performs the backend's
// initialisation; resources acquired here are released by Backend.Close.
type Constructor func(ctx context.Context, opts Options) (Backend, error)
