package memory

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/resource-hub/pkg/hub"
)

func TestMemoryBackend_PutOpenDelete(t *testing.T) {
	b := New()
	ctx := context.Background()

	url, err := b.Put(ctx, hub.PutParams{Key: "u1/1.pdf", Reader: strings.NewReader("hello"), MimeType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "memory://u1/1.pdf", url)
	assert.True(t, b.Exists("u1/1.pdf"))

	rc, mimeType, err := b.Open(ctx, "u1/1.pdf")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "application/pdf", mimeType)

	require.NoError(t, b.Delete(ctx, "u1/1.pdf"))
	assert.False(t, b.Exists("u1/1.pdf"))
	assert.ErrorIs(t, b.Delete(ctx, "u1/1.pdf"), ErrObjectNotFound)
}

func TestMemoryBackend_List(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	b := New(WithClock(func() time.Time { return at }), WithURLPrefix("/files/"))
	ctx := context.Background()

	for _, key := range []string{"b/2.pdf", "a/1.pdf", "b/1.pdf"} {
		url, err := b.Put(ctx, hub.PutParams{Key: key, Reader: strings.NewReader("x")})
		require.NoError(t, err)
		assert.Equal(t, "/files/"+key, url)
	}

	infos, err := b.List(ctx, "b/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "b/1.pdf", infos[0].Key)
	assert.Equal(t, "b/2.pdf", infos[1].Key)
	assert.Equal(t, int64(1), infos[0].Size)
	assert.Equal(t, at, infos[0].ModifiedAt)

	all, err := b.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
