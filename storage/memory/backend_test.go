package memory

import (
	"context"
	"testing"

	"github.com/poiesic/graphstore/core"
	"github.com/poiesic/graphstore/storage"
	"github.com/poiesic/graphstore/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseOptions(*testing.T) storage.Options {
	return storage.Options{}
}

func TestConformance(t *testing.T) {
	storagetest.Run(t, New, baseOptions)
}

func TestRemoveKeepsIndexConsistent(t *testing.T) {
	ctx := context.Background()
	b, err := New(ctx, storage.Options{Contexts: true})
	require.NoError(t, err)
	require.NoError(t, b.Open(ctx, storagetest.Model("test")))
	defer b.Close()

	data := storagetest.Dataset()
	for _, q := range data {
		require.NoError(t, b.Add(ctx, q))
	}

	mb := b.(*Backend)

	// remove from the middle, then the tail, then the head
	for _, i := range []int{3, len(data) - 1, 0} {
		require.NoError(t, b.Remove(ctx, data[i]))
		_, stored := mb.index[data[i]]
		assert.False(t, stored)
	}

	// (A,P,W) and (X,Q,X) were only stored once
	for _, i := range []int{3, len(data) - 1} {
		ok, err := b.Contains(ctx, data[i])
		require.NoError(t, err)
		assert.False(t, ok)
	}

	n, err := b.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(data)-3, n)

	for i, q := range mb.items {
		assert.Equal(t, i, mb.index[q])
	}

	// (A,P,V) is still stored under c1 and c2
	apv := core.NewStatement(storagetest.A, storagetest.P, storagetest.V)
	ok, err := b.Contains(ctx, core.NewQuad(apv, core.Any))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.Contains(ctx, core.NewQuad(apv, core.Bind(storagetest.C1)))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, mb.triples[apv])
}

func TestSerialiseIsInsertionOrdered(t *testing.T) {
	ctx := context.Background()
	st := storagetest.Open(t, New, baseOptions, true)
	data := storagetest.Dataset()
	storagetest.Load(t, st, data)

	stream, err := st.Serialise(ctx)
	require.NoError(t, err)
	got, err := stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
