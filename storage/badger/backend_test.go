package badger

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/storage"
	"github.com/poiesic/graphstore/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance_InMemory(t *testing.T) {
	storagetest.Run(t, New, func(*testing.T) storage.Options {
		return storage.Options{}.Set(optionHashType, hashTypeMemory)
	})
}

func TestConformance_Disk(t *testing.T) {
	storagetest.Run(t, New, func(t *testing.T) storage.Options {
		return storage.Options{Identifier: "test"}.Set(optionDir, t.TempDir())
	})
}

func TestNew_Options(t *testing.T) {
	ctx := context.Background()

	b, err := New(ctx, storage.Options{Identifier: "graph"}.Set(optionDir, "/data"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", "graph"), b.(*Backend).Path())

	b, err = New(ctx, storage.Options{})
	require.NoError(t, err)
	assert.Equal(t, defaultIdentifier, b.(*Backend).Path())

	_, err = New(ctx, storage.Options{}.Set(optionHashType, "gdbm"))
	assert.ErrorIs(t, err, storage.ErrInvalidOption)
}

func TestOpen_FileSystem(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := New(ctx, storage.Options{Identifier: "db", Write: true}.Set(optionDir, dir))
	require.NoError(t, err)
	backend := b.(*Backend)
	require.NoError(t, backend.Open(ctx, namedModel("test")))
	assert.False(t, backend.IsClosed())

	info, err := os.Stat(filepath.Join(dir, "db"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
	require.NoError(t, backend.Close())
}

func TestOpen_InvalidPath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0644))

	b, err := New(ctx, storage.Options{Identifier: "file.txt"}.Set(optionDir, dir))
	require.NoError(t, err)
	err = b.Open(ctx, namedModel("test"))
	assert.Error(t, err)
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	base := func(*testing.T) storage.Options {
		return storage.Options{Identifier: "persist"}.Set(optionDir, dir)
	}
	stmt := core.NewStatement(storagetest.A, storagetest.P, storagetest.V)

	st := storagetest.Open(t, New, base, true)
	require.NoError(t, st.AddStatementInContext(ctx, stmt, storagetest.C1))
	require.NoError(t, st.Close())

	// reopen read-only without new: content survives, mutations are refused
	reg := storage.NewRegistry()
	defer reg.Close()
	require.NoError(t, reg.Register(Name, Description, New))
	opts := base(t)
	opts.Contexts = true
	st, err := storage.New(ctx, reg, Name, opts)
	require.NoError(t, err)
	require.NoError(t, st.Open(ctx, namedModel("test")))
	defer st.Close()

	ok, err := st.ContainsStatementInContext(ctx, stmt, storagetest.C1)
	require.NoError(t, err)
	assert.True(t, ok)

	err = st.AddStatement(ctx, stmt)
	assert.ErrorIs(t, err, storage.ErrReadOnly)
	assert.Equal(t, storage.CodeReadOnly, storage.Code(err))
	_, err = st.AddStatements(ctx, storage.StreamOf(core.NewQuad(stmt, core.Any)))
	assert.ErrorIs(t, err, storage.ErrReadOnly)
}

func TestNewTruncates(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	base := func(*testing.T) storage.Options {
		return storage.Options{Identifier: "fresh"}.Set(optionDir, dir)
	}

	st := storagetest.Open(t, New, base, false)
	storagetest.Load(t, st, storagetest.TripleDataset())
	require.NoError(t, st.Close())

	// storagetest.Open always sets new
	st = storagetest.Open(t, New, base, false)
	n, err := st.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestBulkAddAcrossTransactions(t *testing.T) {
	ctx := context.Background()
	backend, err := NewMemoryBackend(ctx, false)
	require.NoError(t, err)
	defer backend.Close()

	var quads []core.Quad
	p := core.NewURI("http://example.org/p")
	for i := 0; i < 5000; i++ {
		s := core.NewBlank("s" + strconv.Itoa(i))
		quads = append(quads, core.NewQuad(core.NewStatement(s, p, core.NewLiteral(strconv.Itoa(i), "")), core.Any))
	}

	n, err := backend.AddStatements(ctx, storage.StreamOf(quads...))
	require.NoError(t, err)
	assert.Equal(t, len(quads), n)

	size, err := backend.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(quads), size)
}

func TestChooseIndex(t *testing.T) {
	a, p, v := storagetest.A, storagetest.P, storagetest.V
	tests := []struct {
		name    string
		pattern core.Statement
		want    index
	}{
		{"all wildcards", core.NewPattern(core.Any, core.Any, core.Any), spoc},
		{"subject", core.NewPattern(core.Bind(a), core.Any, core.Any), spoc},
		{"subject predicate", core.NewPattern(core.Bind(a), core.Bind(p), core.Any), spoc},
		{"predicate", core.NewPattern(core.Any, core.Bind(p), core.Any), posc},
		{"predicate object", core.NewPattern(core.Any, core.Bind(p), core.Bind(v)), posc},
		{"object", core.NewPattern(core.Any, core.Any, core.Bind(v)), ospc},
		{"subject object", core.NewPattern(core.Bind(a), core.Any, core.Bind(v)), ospc},
		{"ground", core.NewStatement(a, p, v), spoc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chooseIndex(core.NewQuad(tt.pattern, core.Any))
			assert.Equal(t, tt.want.prefix, got.prefix)
		})
	}
}

func TestKeys(t *testing.T) {
	q := core.NewQuad(core.NewStatement(storagetest.A, storagetest.P, storagetest.V), core.Bind(storagetest.C1))
	ids := idsOf(q)

	key := spoc.makeKey(ids)
	assert.Len(t, key, len(spocPrefix)+4*idSize)

	// a partial key is a prefix of the full key in the same index
	partial := posc.makePartialKey(core.NewQuad(core.NewPattern(core.Any, core.Bind(storagetest.P), core.Bind(storagetest.V)), core.Any))
	assert.Equal(t, posc.makeKey(ids)[:len(partial)], partial)

	// no context encodes as zero
	noCtx := idsOf(core.NewQuad(q.Statement, core.Any))
	assert.Equal(t, core.ID(0), noCtx.context)
	assert.NotEqual(t, spoc.makeKey(ids), spoc.makeKey(noCtx))
}
