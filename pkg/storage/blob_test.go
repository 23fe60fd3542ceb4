package storage

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	ref, err := store.Put(ctx, "Equipment.CSV", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "datasets/"))
	assert.True(t, strings.HasSuffix(ref, ".csv"))

	r, err := store.Open(ctx, ref)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "a,b\n1,2\n", string(data))

	require.NoError(t, store.Delete(ctx, ref))
	path, err := store.Path(ref)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = store.Open(ctx, ref)
	assert.ErrorIs(t, err, ErrBlobNotFound)

	assert.NoError(t, store.Delete(ctx, ref), "deleting twice is fine")
}

func TestLocalBlobStoreRejectsEscapingRefs(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{"", "../secret", "/etc/passwd", "datasets/../../x"} {
		_, err := store.Open(context.Background(), ref)
		assert.ErrorIs(t, err, ErrInvalidRef, "ref %q", ref)
	}
}
