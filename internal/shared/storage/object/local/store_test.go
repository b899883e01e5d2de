package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreport-backend/internal/shared/storage/object"
)

func TestSaveWithKeyRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	n, err := store.SaveWithKey(ctx, "reports/order-1.md", "text/markdown", strings.NewReader("# Report"))
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)

	// overwrite replaces the prior body
	_, err = store.SaveWithKey(ctx, "reports/order-1.md", "text/markdown", strings.NewReader("# Revised"))
	require.NoError(t, err)

	rc, err := store.Open(ctx, "reports/order-1.md")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "# Revised", string(body))
}

func TestSaveNamespacesByOwner(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	key, size, mimeType, err := store.Save(ctx, "reader@example.com", "sample essay.txt", strings.NewReader("I liked the book."))
	require.NoError(t, err)
	assert.EqualValues(t, 17, size)
	assert.True(t, strings.HasPrefix(mimeType, "text/plain"))
	assert.NotContains(t, key, "reader@example.com")
	assert.True(t, strings.HasSuffix(key, "_sample_essay.txt"), key)

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "I liked the book.", string(body))
}

func TestOpenRejectsTraversalAndMissing(t *testing.T) {
	ctx := context.Background()
	store := New(t.TempDir())

	_, err := store.Open(ctx, "../etc/passwd")
	require.Error(t, err)

	_, err = store.Open(ctx, "reports/missing.md")
	assert.True(t, errors.Is(err, object.ErrNotFound))
}
