package graphstore

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/ingestion"
	"github.com/poiesic/graphstore/nquads"
	"github.com/poiesic/graphstore/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice   = core.NewURI("http://example.org/alice")
	bob     = core.NewURI("http://example.org/bob")
	carol   = core.NewURI("http://example.org/carol")
	knows   = core.NewURI("http://xmlns.com/foaf/0.1/knows")
	likes   = core.NewURI("http://example.org/likes")
	name    = core.NewURI("http://xmlns.com/foaf/0.1/name")
	graph1  = core.NewURI("http://example.org/g1")
	graph2  = core.NewURI("http://example.org/g2")
	xsdDate = "http://www.w3.org/2001/XMLSchema#date"
)

func newModel(t *testing.T, backend string, opts storage.Options) *Model {
	t.Helper()
	ctx := context.Background()

	w, err := NewWorld()
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	st, err := w.NewStorage(ctx, backend, opts)
	require.NoError(t, err)
	m, err := w.NewModel(ctx, "test", st)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// nodes returns a collector taking an iterator query result directly, as in
// nodes(t)(m.Sources(ctx, arc, target)).
func nodes(t *testing.T) func(*storage.Iterator, error) []core.Node {
	return func(it *storage.Iterator, err error) []core.Node {
		t.Helper()
		require.NoError(t, err)
		matches, err := it.Collect()
		require.NoError(t, err)
		out := make([]core.Node, 0, len(matches))
		for _, m := range matches {
			out = append(out, m.Node)
		}
		return out
	}
}

// social loads a small graph; contexts are used only when supported.
func social(t *testing.T, m *Model) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.Add(ctx, alice, knows, bob))
	require.NoError(t, m.Add(ctx, alice, likes, bob))
	require.NoError(t, m.Add(ctx, carol, knows, bob))
	require.NoError(t, m.Add(ctx, bob, knows, carol))
	require.NoError(t, m.AddTypedLiteral(ctx, alice, name, "Alice", "EN", ""))
	if m.SupportsContexts() {
		require.NoError(t, m.AddStatementInContext(ctx, core.NewStatement(alice, knows, bob), graph1))
		require.NoError(t, m.AddStatementInContext(ctx, core.NewStatement(alice, knows, bob), graph2))
	}
}

func TestModel_Queries(t *testing.T) {
	backends := []struct {
		name string
		opts storage.Options
	}{
		{"memory", storage.Options{}},
		{"hashes", storage.Options{Write: true}.Set("hash-type", "memory")},
		{"sqlite", storage.Options{Write: true}.Set("file", ":memory:")},
	}

	for _, be := range backends {
		t.Run(be.name, func(t *testing.T) {
			ctx := context.Background()
			m := newModel(t, be.name, be.opts)
			social(t, m)

			n, err := m.Size(ctx)
			require.NoError(t, err)
			assert.Equal(t, 5, n)

			assert.ElementsMatch(t, []core.Node{alice, carol}, nodes(t)(m.Sources(ctx, knows, bob)))
			assert.ElementsMatch(t, []core.Node{knows, likes}, nodes(t)(m.Arcs(ctx, alice, bob)))
			assert.ElementsMatch(t, []core.Node{bob}, nodes(t)(m.Targets(ctx, alice, knows)))
			assert.ElementsMatch(t, []core.Node{knows, likes}, nodes(t)(m.ArcsIn(ctx, bob)))
			assert.ElementsMatch(t, []core.Node{knows, likes, name}, nodes(t)(m.ArcsOut(ctx, alice)))

			target, ok, err := m.Target(ctx, bob, knows)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, carol, target)

			_, ok, err = m.Source(ctx, knows, alice)
			require.NoError(t, err)
			assert.False(t, ok)

			arc, ok, err := m.Arc(ctx, carol, bob)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, knows, arc)

			has, err := m.HasArcIn(ctx, bob, likes)
			require.NoError(t, err)
			assert.True(t, has)
			has, err = m.HasArcOut(ctx, bob, likes)
			require.NoError(t, err)
			assert.False(t, has)

			ok, err = m.ContainsStatement(ctx, core.NewStatement(alice, name, core.NewLiteral("Alice", "en")))
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, m.RemoveStatement(ctx, core.NewStatement(alice, likes, bob)))
			assert.ElementsMatch(t, []core.Node{knows}, nodes(t)(m.ArcsIn(ctx, bob)))
		})
	}
}

func TestModel_Contexts(t *testing.T) {
	ctx := context.Background()
	m := newModel(t, "memory", storage.Options{Contexts: true})
	social(t, m)

	n, err := m.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	ok, err := m.ContainsStatementInContext(ctx, core.NewStatement(alice, knows, bob), graph1)
	require.NoError(t, err)
	assert.True(t, ok)

	stream, err := m.FindStatementsInContext(ctx, core.NewPattern(core.Any, core.Any, core.Any), graph2)
	require.NoError(t, err)
	got, err := stream.Collect()
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// arcs are distinct per (arc, context) with contexts enabled
	it, err := m.ArcsIn(ctx, bob)
	require.NoError(t, err)
	matches, err := it.Collect()
	require.NoError(t, err)
	assert.Len(t, matches, 4)

	require.NoError(t, m.RemoveStatementInContext(ctx, core.NewStatement(alice, knows, bob), graph1))
	ok, err = m.ContainsStatementInContext(ctx, core.NewStatement(alice, knows, bob), graph1)
	require.NoError(t, err)
	assert.False(t, ok)

	stream, err = m.FindStatements(ctx, core.NewPattern(core.Bind(alice), core.Bind(knows), core.Bind(bob)))
	require.NoError(t, err)
	got, err = stream.Collect()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestModel_AddTypedLiteral(t *testing.T) {
	ctx := context.Background()
	m := newModel(t, "memory", storage.Options{})

	require.NoError(t, m.AddTypedLiteral(ctx, alice, name, "2024-01-02", "", xsdDate))
	ok, err := m.ContainsStatement(ctx, core.NewStatement(alice, name, core.NewTypedLiteral("2024-01-02", xsdDate)))
	require.NoError(t, err)
	assert.True(t, ok)

	err = m.AddTypedLiteral(ctx, alice, name, "x", "en", xsdDate)
	assert.ErrorIs(t, err, core.ErrLanguageAndDatatype)
}

func TestModel_SerializeParse(t *testing.T) {
	ctx := context.Background()
	src := newModel(t, "memory", storage.Options{Contexts: true})
	social(t, src)

	var buf bytes.Buffer
	n, err := src.Serialize(ctx, &buf, nquads.FormatNQuads)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	dst := newModel(t, "sqlite", storage.Options{Contexts: true, Write: true}.Set("file", ":memory:"))
	n, err = dst.Parse(ctx, &buf, nquads.FormatNQuads)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	size, err := dst.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, size)

	_, err = dst.Parse(ctx, strings.NewReader("garbage\n"), nquads.FormatNQuads)
	assert.ErrorIs(t, err, nquads.ErrSyntax)
	assert.NotErrorIs(t, err, storage.ErrIO)
	assert.Equal(t, storage.CodeInput, storage.Code(err))
}

func TestModel_AddStatements(t *testing.T) {
	ctx := context.Background()
	m := newModel(t, "hashes", storage.Options{Write: true}.Set("hash-type", "memory"))

	n, err := m.AddStatements(ctx, storage.StreamOf(
		core.NewQuad(core.NewStatement(alice, knows, bob), core.Any),
		core.NewQuad(core.NewStatement(bob, knows, carol), core.Any),
	))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stream, err := m.Serialise(ctx)
	require.NoError(t, err)
	got, err := stream.Collect()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestModel_NewIngestionPipeline(t *testing.T) {
	ctx := context.Background()
	m := newModel(t, "memory", storage.Options{})

	p, err := m.NewIngestionPipeline(ingestion.WithPoolSize(2))
	require.NoError(t, err)
	defer p.Release()

	doc := "<http://example.org/alice> <http://xmlns.com/foaf/0.1/knows> <http://example.org/bob> .\n"
	n, err := p.Ingest(ctx, ingestion.ReaderSource("doc", strings.NewReader(doc), nquads.FormatNTriples))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	has, err := m.HasArcOut(ctx, alice, knows)
	require.NoError(t, err)
	assert.True(t, has)
}
