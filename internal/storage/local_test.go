package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLocalStore_WriteOpenDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ref, err := store.Write(ctx, 1, "plot.jpg", []byte("image-bytes"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(store.BaseDir(), filepath.FromSlash(ref)))
	require.NoError(t, err)

	exists, err := store.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Open(ctx, ref)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "image-bytes", string(data))

	require.NoError(t, store.Delete(ctx, ref))

	exists, err = store.Exists(ctx, ref)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Open(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_DeleteMissingIsNoop(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete(context.Background(), "farm-9/missing.jpg"))
}

func TestLocalStore_RejectsEmptyContent(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Write(context.Background(), 1, "plot.jpg", nil)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestLocalStore_TraversalNameStaysInNamespace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ref, err := store.Write(ctx, 2, "../../../outside.jpg", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "farm-2", filepath.Dir(filepath.FromSlash(ref)))

	_, err = os.Stat(filepath.Join(filepath.Dir(store.BaseDir()), "outside.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_RejectsEscapingRefs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Open(ctx, "../secret")
	assert.ErrorIs(t, err, ErrInvalidRef)
	assert.ErrorIs(t, store.Delete(ctx, "/etc/passwd"), ErrInvalidRef)
}

func TestLocalStore_CanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Write(ctx, 1, "plot.jpg", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalStore_ConcurrentSameName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const writers = 16
	refs := make([]string, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref, err := store.Write(ctx, 5, "same.jpg", []byte{byte(i + 1)})
			assert.NoError(t, err)
			refs[i] = ref
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, ref := range refs {
		assert.False(t, seen[ref])
		seen[ref] = true
	}

	entries, err := os.ReadDir(filepath.Join(store.BaseDir(), "farm-5"))
	require.NoError(t, err)
	assert.Len(t, entries, writers)
}
