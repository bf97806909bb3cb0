// Package storagetest provides a conformance suite run by every storage
// backend's tests.
//
//	func TestConformance(t *testing.T) {
//	    storagetest.Run(t, memory.New, func(t *testing.T) storage.Options {
//	        return storage.Options{}
//	    })
//	}
package storagetest

import (
	"context"
	"testing"

	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const factoryName = "under-test"

// BaseOptions returns backend-specific options for one test. It is called once
// per constructed storage so disk backends can use t.TempDir.
type BaseOptions func(t *testing.T) storage.Options

// Model is a minimal storage.Model for tests.
type Model string

func (m Model) Name() string { return string(m) }

// Common test nodes.
var (
	A  = core.NewURI("http://example.org/a")
	B  = core.NewURI("http://example.org/b")
	P  = core.NewURI("http://example.org/p")
	Q  = core.NewURI("http://example.org/q")
	V  = core.NewLiteral("v", "")
	W  = core.NewLiteral("w", "en")
	N  = core.NewTypedLiteral("42", "http://www.w3.org/2001/XMLSchema#integer")
	X  = core.NewBlank("x")
	C1 = core.NewURI("http://example.org/c1")
	C2 = core.NewURI("http://example.org/c2")
)

// Open constructs and opens a storage with the given flags merged over the
// backend's base options. The storage is closed on test cleanup.
func Open(t *testing.T, ctor storage.Constructor, base BaseOptions, contexts bool) *storage.Storage {
	t.Helper()
	st := construct(t, ctor, base, contexts)
	require.NoError(t, st.Open(context.Background(), Model("test")))
	return st
}

func construct(t *testing.T, ctor storage.Constructor, base BaseOptions, contexts bool) *storage.Storage {
	t.Helper()
	reg := storage.NewRegistry()
	require.NoError(t, reg.Register(factoryName, "backend under test", ctor))
	t.Cleanup(reg.Close)

	opts := base(t)
	opts.Contexts = contexts
	opts.Write = true
	opts.New = true

	st, err := storage.New(context.Background(), reg, factoryName, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// Dataset is a fixture covering every node kind, shared subjects and
// objects, and the same statement under several contexts.
func Dataset() []core.Quad {
	return []core.Quad{
		core.NewQuad(core.NewStatement(A, P, V), core.Any),
		core.NewQuad(core.NewStatement(A, P, V), core.Bind(C1)),
		core.NewQuad(core.NewStatement(A, P, V), core.Bind(C2)),
		core.NewQuad(core.NewStatement(A, P, W), core.Bind(C1)),
		core.NewQuad(core.NewStatement(A, Q, B), core.Any),
		core.NewQuad(core.NewStatement(B, P, V), core.Bind(C2)),
		core.NewQuad(core.NewStatement(B, Q, N), core.Any),
		core.NewQuad(core.NewStatement(X, P, A), core.Bind(C1)),
		core.NewQuad(core.NewStatement(X, Q, X), core.Any),
	}
}

// TripleDataset is Dataset without contexts, deduplicated.
func TripleDataset() []core.Quad {
	seen := make(map[core.Statement]bool)
	var out []core.Quad
	for _, q := range Dataset() {
		if seen[q.Statement] {
			continue
		}
		seen[q.Statement] = true
		out = append(out, core.NewQuad(q.Statement, core.Any))
	}
	return out
}

// Load adds quads one at a time.
func Load(t *testing.T, st *storage.Storage, quads []core.Quad) {
	t.Helper()
	ctx := context.Background()
	for _, q := range quads {
		if c, ok := q.Context.Node(); ok {
			require.NoError(t, st.AddStatementInContext(ctx, q.Statement, c))
		} else {
			require.NoError(t, st.AddStatement(ctx, q.Statement))
		}
	}
}

// Run executes the conformance suite against ctor.
func Run(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	t.Run("NewStoreIsEmpty", func(t *testing.T) { testNewStoreIsEmpty(t, ctor, base) })
	t.Run("Lifecycle", func(t *testing.T) { testLifecycle(t, ctor, base) })
	t.Run("Validation", func(t *testing.T) { testValidation(t, ctor, base) })
	t.Run("AddIsIdempotent", func(t *testing.T) { testAddIsIdempotent(t, ctor, base) })
	t.Run("AddRemoveRoundTrip", func(t *testing.T) { testAddRemoveRoundTrip(t, ctor, base) })
	t.Run("Scenario", func(t *testing.T) { testScenario(t, ctor, base) })
	t.Run("ContextRoundTrip", func(t *testing.T) { testContextRoundTrip(t, ctor, base) })
	t.Run("ContextsDisabled", func(t *testing.T) { testContextsDisabled(t, ctor, base) })
	t.Run("FindAllEqualsSerialise", func(t *testing.T) { testFindAllEqualsSerialise(t, ctor, base) })
	t.Run("PatternMatching", func(t *testing.T) { testPatternMatching(t, ctor, base) })
	t.Run("NodeQueries", func(t *testing.T) { testNodeQueries(t, ctor, base) })
	t.Run("EmptyMatch", func(t *testing.T) { testEmptyMatch(t, ctor, base) })
	t.Run("ExhaustionDeterminism", func(t *testing.T) { testExhaustionDeterminism(t, ctor, base) })
	t.Run("SnapshotDuringMutation", func(t *testing.T) { testSnapshotDuringMutation(t, ctor, base) })
	t.Run("AddStatements", func(t *testing.T) { testAddStatements(t, ctor, base) })
	t.Run("AddStatementsStopsAtFirstFailure", func(t *testing.T) { testAddStatementsStops(t, ctor, base) })
	t.Run("CloseReleasesCursors", func(t *testing.T) { testCloseReleasesCursors(t, ctor, base) })
}

func size(t *testing.T, st *storage.Storage) int {
	t.Helper()
	n, err := st.Size(context.Background())
	require.NoError(t, err)
	return n
}

func testNewStoreIsEmpty(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	st := Open(t, ctor, base, true)
	assert.Equal(t, 0, size(t, st))
}

func testLifecycle(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := construct(t, ctor, base, true)
	stmt := core.NewStatement(A, P, V)

	assert.ErrorIs(t, st.AddStatement(ctx, stmt), storage.ErrNotOpen)
	_, err := st.FindStatements(ctx, stmt)
	assert.ErrorIs(t, err, storage.ErrNotOpen)
	_, err = st.Size(ctx)
	assert.ErrorIs(t, err, storage.ErrNotOpen)

	require.NoError(t, st.Open(ctx, Model("test")))
	assert.ErrorIs(t, st.Open(ctx, Model("test")), storage.ErrAlreadyOpen)
	require.NoError(t, st.AddStatement(ctx, stmt))

	require.NoError(t, st.Close())
	assert.ErrorIs(t, st.Close(), storage.ErrClosed)
	assert.ErrorIs(t, st.AddStatement(ctx, stmt), storage.ErrClosed)
	assert.ErrorIs(t, st.Open(ctx, Model("test")), storage.ErrClosed)
}

func testValidation(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)

	wild := core.NewPattern(core.Bind(A), core.Any, core.Bind(V))
	assert.ErrorIs(t, st.AddStatement(ctx, wild), core.ErrInvalidPattern)
	assert.ErrorIs(t, st.RemoveStatement(ctx, wild), core.ErrInvalidPattern)
	_, err := st.ContainsStatement(ctx, wild)
	assert.ErrorIs(t, err, core.ErrInvalidPattern)

	empty := core.NewPattern(core.Bind(core.Node{}), core.Bind(P), core.Bind(V))
	assert.ErrorIs(t, st.AddStatement(ctx, empty), core.ErrInvalidArgument)
	assert.ErrorIs(t, st.AddStatementInContext(ctx, core.NewStatement(A, P, V), core.Node{}), core.ErrInvalidArgument)
	_, err = st.FindSources(ctx, core.Node{}, V)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	// nothing reached the backend
	assert.Equal(t, 0, size(t, st))
}

func testAddIsIdempotent(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)
	stmt := core.NewStatement(A, P, V)

	require.NoError(t, st.AddStatement(ctx, stmt))
	assert.Equal(t, 1, size(t, st))
	require.NoError(t, st.AddStatement(ctx, stmt))
	assert.Equal(t, 1, size(t, st))

	require.NoError(t, st.AddStatementInContext(ctx, stmt, C1))
	require.NoError(t, st.AddStatementInContext(ctx, stmt, C1))
	assert.Equal(t, 2, size(t, st))
}

func testAddRemoveRoundTrip(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)

	for _, q := range Dataset() {
		c, hasContext := q.Context.Node()
		if hasContext {
			require.NoError(t, st.AddStatementInContext(ctx, q.Statement, c))
			require.NoError(t, st.RemoveStatementInContext(ctx, q.Statement, c))
			ok, err := st.ContainsStatementInContext(ctx, q.Statement, c)
			require.NoError(t, err)
			assert.False(t, ok, "%s", q)
		} else {
			require.NoError(t, st.AddStatement(ctx, q.Statement))
			require.NoError(t, st.RemoveStatement(ctx, q.Statement))
		}
		ok, err := st.ContainsStatement(ctx, q.Statement)
		require.NoError(t, err)
		assert.False(t, ok, "%s", q)
	}

	// removing an absent statement is a no-op
	require.NoError(t, st.RemoveStatement(ctx, core.NewStatement(B, Q, W)))
	assert.Equal(t, 0, size(t, st))
}

func testScenario(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)
	stmt := core.NewStatement(A, P, V)

	require.NoError(t, st.AddStatement(ctx, stmt))
	ok, err := st.ContainsStatement(ctx, stmt)
	require.NoError(t, err)
	assert.True(t, ok)

	it, err := st.FindSources(ctx, P, V)
	require.NoError(t, err)
	matches, err := it.Collect()
	require.NoError(t, err)
	assert.Equal(t, []core.NodeMatch{{Node: A}}, matches)

	require.NoError(t, st.RemoveStatement(ctx, stmt))
	assert.Equal(t, 0, size(t, st))
}

func testContextRoundTrip(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)
	stmt := core.NewStatement(A, P, V)

	require.NoError(t, st.AddStatementInContext(ctx, stmt, C1))

	stream, err := st.FindStatements(ctx, core.NewPattern(core.Any, core.Any, core.Any))
	require.NoError(t, err)
	quads, err := stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, []core.Quad{core.NewQuad(stmt, core.Bind(C1))}, quads)

	require.NoError(t, st.RemoveStatementInContext(ctx, stmt, C2))
	ok, err := st.ContainsStatementInContext(ctx, stmt, C1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.ContainsStatementInContext(ctx, stmt, C2)
	require.NoError(t, err)
	assert.False(t, ok)

	// a context-free remove does not touch the c1 copy
	require.NoError(t, st.RemoveStatement(ctx, stmt))
	ok, err = st.ContainsStatement(ctx, stmt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func testContextsDisabled(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, false)
	stmt := core.NewStatement(A, P, V)

	err := st.AddStatementInContext(ctx, stmt, C1)
	assert.ErrorIs(t, err, storage.ErrContextsDisabled)
	assert.ErrorIs(t, err, storage.ErrConfiguration)
	_, err = st.FindStatementsInContext(ctx, stmt, C1)
	assert.ErrorIs(t, err, storage.ErrContextsDisabled)

	require.NoError(t, st.AddStatement(ctx, stmt))
	assert.Equal(t, 1, size(t, st))
}

func testFindAllEqualsSerialise(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)
	Load(t, st, Dataset())

	stream, err := st.Serialise(ctx)
	require.NoError(t, err)
	serialised, err := stream.Collect()
	require.NoError(t, err)

	stream, err = st.FindStatements(ctx, core.NewPattern(core.Any, core.Any, core.Any))
	require.NoError(t, err)
	found, err := stream.Collect()
	require.NoError(t, err)

	assert.ElementsMatch(t, Dataset(), serialised)
	assert.ElementsMatch(t, serialised, found)
	assert.Equal(t, len(Dataset()), size(t, st))
}

// patterns returns every combination of bound and wildcard slots over the
// statements of the dataset, plus some that match nothing.
func patterns() []core.Statement {
	var out []core.Statement
	stmts := []core.Statement{
		core.NewStatement(A, P, V),
		core.NewStatement(X, Q, X),
		core.NewStatement(B, P, N),
	}
	for _, s := range stmts {
		for mask := 0; mask < 8; mask++ {
			p := s
			if mask&1 != 0 {
				p.Subject = core.Any
			}
			if mask&2 != 0 {
				p.Predicate = core.Any
			}
			if mask&4 != 0 {
				p.Object = core.Any
			}
			out = append(out, p)
		}
	}
	return out
}

func expected(data []core.Quad, pattern core.Quad) []core.Quad {
	var out []core.Quad
	for _, q := range data {
		if pattern.Matches(q) {
			out = append(out, q)
		}
	}
	return out
}

func testPatternMatching(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)
	data := Dataset()
	Load(t, st, data)

	for _, p := range patterns() {
		for _, c := range []core.Term{core.Any, core.Bind(C1), core.Bind(C2)} {
			pattern := core.NewQuad(p, c)
			var (
				stream *storage.Stream
				err    error
			)
			if n, ok := c.Node(); ok {
				stream, err = st.FindStatementsInContext(ctx, p, n)
			} else {
				stream, err = st.FindStatements(ctx, p)
			}
			require.NoError(t, err)
			got, err := stream.Collect()
			require.NoError(t, err)
			assert.ElementsMatch(t, expected(data, pattern), got, "pattern %s", pattern)
		}
	}
}

func testNodeQueries(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()

	t.Run("quads", func(t *testing.T) {
		st := Open(t, ctor, base, true)
		Load(t, st, Dataset())

		it, err := st.FindSources(ctx, P, V)
		require.NoError(t, err)
		got, err := it.Collect()
		require.NoError(t, err)
		// one result per distinct (node, context)
		assert.ElementsMatch(t, []core.NodeMatch{
			{Node: A},
			{Node: A, Context: core.Bind(C1)},
			{Node: A, Context: core.Bind(C2)},
			{Node: B, Context: core.Bind(C2)},
		}, got)

		it, err = st.FindArcs(ctx, A, V)
		require.NoError(t, err)
		got, err = it.Collect()
		require.NoError(t, err)
		assert.ElementsMatch(t, []core.NodeMatch{
			{Node: P},
			{Node: P, Context: core.Bind(C1)},
			{Node: P, Context: core.Bind(C2)},
		}, got)

		it, err = st.FindTargets(ctx, A, P)
		require.NoError(t, err)
		got, err = it.Collect()
		require.NoError(t, err)
		assert.ElementsMatch(t, []core.NodeMatch{
			{Node: V},
			{Node: V, Context: core.Bind(C1)},
			{Node: V, Context: core.Bind(C2)},
			{Node: W, Context: core.Bind(C1)},
		}, got)
	})

	t.Run("triples", func(t *testing.T) {
		st := Open(t, ctor, base, false)
		Load(t, st, TripleDataset())

		it, err := st.FindTargets(ctx, A, P)
		require.NoError(t, err)
		got, err := it.Collect()
		require.NoError(t, err)
		assert.ElementsMatch(t, []core.NodeMatch{{Node: V}, {Node: W}}, got)

		it, err = st.FindSources(ctx, Q, X)
		require.NoError(t, err)
		got, err = it.Collect()
		require.NoError(t, err)
		assert.Equal(t, []core.NodeMatch{{Node: X}}, got)

		it, err = st.FindArcs(ctx, B, V)
		require.NoError(t, err)
		got, err = it.Collect()
		require.NoError(t, err)
		assert.Equal(t, []core.NodeMatch{{Node: P}}, got)
	})
}

func testEmptyMatch(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)
	Load(t, st, Dataset())

	stream, err := st.FindStatements(ctx, core.NewPattern(core.Bind(B), core.Bind(Q), core.Bind(V)))
	require.NoError(t, err)
	assert.True(t, stream.End())
	stream.Advance()
	assert.True(t, stream.End())
	_, err = stream.Statement()
	assert.ErrorIs(t, err, storage.ErrCursorEnd)
	_, err = stream.Context()
	assert.ErrorIs(t, err, storage.ErrCursorEnd)
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	it, err := st.FindTargets(ctx, V, P)
	require.NoError(t, err)
	assert.True(t, it.End())
	it.Advance()
	_, err = it.Node()
	assert.ErrorIs(t, err, storage.ErrCursorEnd)
	require.NoError(t, it.Close())
}

func testExhaustionDeterminism(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)
	Load(t, st, Dataset())

	stream, err := st.Serialise(ctx)
	require.NoError(t, err)
	seen := make(map[core.Quad]bool)
	for q, err := range stream.All() {
		require.NoError(t, err)
		assert.False(t, seen[q], "duplicate %s", q)
		seen[q] = true

		var ok bool
		if c, bound := q.Context.Node(); bound {
			ok, err = st.ContainsStatementInContext(ctx, q.Statement, c)
		} else {
			ok, err = st.ContainsStatement(ctx, q.Statement)
		}
		require.NoError(t, err)
		assert.True(t, ok, "%s", q)
	}
	assert.Len(t, seen, len(Dataset()))

	// a drained stream stays ended and ranges over nothing
	assert.True(t, stream.End())
	for range stream.All() {
		t.Fatal("second range must yield nothing")
	}
}

func testSnapshotDuringMutation(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)
	data := Dataset()
	Load(t, st, data)

	stream, err := st.FindStatements(ctx, core.NewPattern(core.Bind(A), core.Any, core.Any))
	require.NoError(t, err)
	defer stream.Close()

	// materialise the first item, then mutate
	require.False(t, stream.End())
	first, err := stream.Quad()
	require.NoError(t, err)

	require.NoError(t, st.AddStatement(ctx, core.NewStatement(A, Q, N)))
	require.NoError(t, st.RemoveStatementInContext(ctx, core.NewStatement(A, P, W), C1))

	got := []core.Quad{first}
	stream.Advance()
	for !stream.End() {
		q, err := stream.Quad()
		require.NoError(t, err)
		got = append(got, q)
		stream.Advance()
	}
	require.NoError(t, stream.Err())

	want := expected(data, core.NewQuad(core.NewPattern(core.Bind(A), core.Any, core.Any), core.Any))
	assert.ElementsMatch(t, want, got)
}

func testAddStatements(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)
	data := Dataset()

	n, err := st.AddStatements(ctx, storage.StreamOf(data...))
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, len(data), size(t, st))

	// copying a store into itself changes nothing
	stream, err := st.Serialise(ctx)
	require.NoError(t, err)
	_, err = st.AddStatements(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, len(data), size(t, st))
}

func testAddStatementsStops(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)

	first := core.NewQuad(core.NewStatement(A, P, V), core.Any)
	bad := core.NewQuad(core.NewPattern(core.Any, core.Bind(P), core.Bind(V)), core.Any)
	last := core.NewQuad(core.NewStatement(B, P, V), core.Any)

	n, err := st.AddStatements(ctx, storage.StreamOf(first, bad, last))
	assert.ErrorIs(t, err, core.ErrInvalidPattern)
	assert.Equal(t, 1, n)

	ok, err := st.ContainsStatement(ctx, first.Statement)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.ContainsStatement(ctx, last.Statement)
	require.NoError(t, err)
	assert.False(t, ok)
}

func testCloseReleasesCursors(t *testing.T, ctor storage.Constructor, base BaseOptions) {
	ctx := context.Background()
	st := Open(t, ctor, base, true)
	Load(t, st, Dataset())

	stream, err := st.Serialise(ctx)
	require.NoError(t, err)
	require.False(t, stream.End())

	it, err := st.FindTargets(ctx, A, P)
	require.NoError(t, err)

	require.NoError(t, st.Close())

	assert.True(t, stream.End())
	assert.True(t, it.End())
	assert.NoError(t, stream.Close())
	assert.NoError(t, it.Close())
}
