package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/storage"
	"github.com/poiesic/graphstore/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance_InMemory(t *testing.T) {
	storagetest.Run(t, New, func(*testing.T) storage.Options {
		return storage.Options{}.Set(optionFile, memoryFile)
	})
}

func TestConformance_File(t *testing.T) {
	storagetest.Run(t, New, func(t *testing.T) storage.Options {
		return storage.Options{Identifier: "test"}.Set(optionDir, t.TempDir())
	})
}

func TestNew_Path(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		opts storage.Options
		want string
	}{
		{"defaults", storage.Options{}, filepath.Join(".", "graphstore.db")},
		{"identifier and dir", storage.Options{Identifier: "g"}.Set(optionDir, "/srv"), "/srv/g.db"},
		{"explicit file", storage.Options{}.Set(optionFile, "x.sqlite").Set(optionDir, "/srv"), "/srv/x.sqlite"},
		{"absolute file", storage.Options{}.Set(optionFile, "/tmp/y.db").Set(optionDir, "/srv"), "/tmp/y.db"},
		{"memory", storage.Options{}.Set(optionFile, memoryFile), memoryFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(ctx, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.(*Backend).Path())
		})
	}
}

func TestPersistenceAndReadOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	base := func(*testing.T) storage.Options {
		return storage.Options{Identifier: "persist"}.Set(optionDir, dir)
	}

	st := storagetest.Open(t, New, base, true)
	storagetest.Load(t, st, storagetest.Dataset())
	require.NoError(t, st.Close())

	reg := storage.NewRegistry()
	defer reg.Close()
	require.NoError(t, reg.Register(Name, Description, New))
	opts := base(t)
	opts.Contexts = true
	st, err := storage.New(ctx, reg, Name, opts)
	require.NoError(t, err)
	require.NoError(t, st.Open(ctx, storagetest.Model("test")))
	defer st.Close()

	n, err := st.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(storagetest.Dataset()), n)

	stmt := core.NewStatement(storagetest.B, storagetest.Q, storagetest.W)
	assert.ErrorIs(t, st.AddStatement(ctx, stmt), storage.ErrReadOnly)
	assert.ErrorIs(t, st.RemoveStatement(ctx, stmt), storage.ErrReadOnly)
}

func TestFindNodesUsesDistinct(t *testing.T) {
	ctx := context.Background()
	b, err := New(ctx, storage.Options{Contexts: true, Write: true}.Set(optionFile, memoryFile))
	require.NoError(t, err)
	backend := b.(*Backend)
	require.NoError(t, backend.Open(ctx, storagetest.Model("test")))
	defer backend.Close()

	for _, q := range storagetest.Dataset() {
		require.NoError(t, backend.Add(ctx, q))
	}

	pattern := core.NewQuad(core.NewPattern(core.Bind(storagetest.A), core.Bind(storagetest.P), core.Any), core.Any)
	cur, err := backend.FindNodes(ctx, core.RoleObject, pattern)
	require.NoError(t, err)
	it := storage.NewIterator(cur)
	got, err := it.Collect()
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestEmptyContextIsNotNull(t *testing.T) {
	ctx := context.Background()
	b, err := New(ctx, storage.Options{Write: true}.Set(optionFile, memoryFile))
	require.NoError(t, err)
	backend := b.(*Backend)
	require.NoError(t, backend.Open(ctx, storagetest.Model("test")))
	defer backend.Close()

	q := core.NewQuad(core.NewStatement(storagetest.A, storagetest.P, storagetest.V), core.Any)
	require.NoError(t, backend.Add(ctx, q))
	require.NoError(t, backend.Add(ctx, q))

	var nulls int
	require.NoError(t, backend.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM statements WHERE context IS NULL").Scan(&nulls))
	assert.Equal(t, 0, nulls)

	n, err := backend.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
