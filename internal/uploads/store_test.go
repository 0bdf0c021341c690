package uploads

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/prismhq/prism/internal/shared"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	id := uuid.New()
	content := "quarterly figures attached"
	size, checksum, err := store.Save(context.Background(), id, strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), size)

	sum := blake2b.Sum256([]byte(content))
	assert.Equal(t, len(sum)*2, len(checksum))

	rc, err := store.Open(context.Background(), id)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestDiskStoreChecksumIsDeterministic(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, first, err := store.Save(context.Background(), uuid.New(), strings.NewReader("same bytes"))
	require.NoError(t, err)
	_, second, err := store.Save(context.Background(), uuid.New(), strings.NewReader("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, third, err := store.Save(context.Background(), uuid.New(), strings.NewReader("other bytes"))
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestDiskStoreOpenMissing(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDiskStoreRemove(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	id := uuid.New()
	_, _, err = store.Save(context.Background(), id, strings.NewReader("bytes"))
	require.NoError(t, err)

	require.NoError(t, store.Remove(context.Background(), id))
	assert.ErrorIs(t, store.Remove(context.Background(), id), shared.ErrNotFound)
}
