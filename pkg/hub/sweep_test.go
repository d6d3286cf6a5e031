package hub_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/resource-hub/pkg/hub"
	memorystorage "github.com/tendant/resource-hub/pkg/hub/storage/memory"
)

func setupSweep(t *testing.T) (*fakeRepo, *fakeBlobs, *countingMetrics, *hub.Hub) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	storeNow := t0
	repo := newFakeRepo()
	blobs := newFakeBlobs(memorystorage.WithClock(func() time.Time { return storeNow }))

	put := func(key string) {
		_, err := blobs.Backend.Put(context.Background(), hub.PutParams{Key: key, Reader: strings.NewReader("x")})
		require.NoError(t, err)
	}
	put("u1/referenced.pdf")
	put("u1/orphan.pdf")
	put("u2/orphan.docx")
	storeNow = t0.Add(90 * time.Minute)
	put("u1/in-flight.pdf")

	seedMaterial(t, repo, &hub.Material{Title: "Kept", Branch: "Computer Science", Semester: "1", FilePath: "u1/referenced.pdf"})

	metrics := newCountingMetrics()
	h := newTestHub(t, repo,
		hub.WithBlobStore(blobs),
		hub.WithMetrics(metrics),
		hub.WithClock(func() time.Time { return t0.Add(2 * time.Hour) }),
	)
	return repo, blobs, metrics, h
}

func TestSweeper_Sweep(t *testing.T) {
	_, blobs, metrics, h := setupSweep(t)
	sweeper, err := h.Sweeper(time.Hour)
	require.NoError(t, err)

	report, err := sweeper.Sweep(context.Background(), "", false)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 1, report.Referenced)
	assert.Equal(t, 1, report.TooRecent)
	assert.ElementsMatch(t, []string{"u1/orphan.pdf", "u2/orphan.docx"}, report.Deleted)
	assert.Empty(t, report.Failed)
	assert.True(t, blobs.Exists("u1/referenced.pdf"))
	assert.True(t, blobs.Exists("u1/in-flight.pdf"))
	assert.False(t, blobs.Exists("u1/orphan.pdf"))
	assert.Equal(t, 2, metrics.swept)
}

func TestSweeper_Sweep_DryRunAndPrefix(t *testing.T) {
	_, blobs, metrics, h := setupSweep(t)
	sweeper, err := h.Sweeper(time.Hour)
	require.NoError(t, err)

	report, err := sweeper.Sweep(context.Background(), "u1/", true)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, []string{"u1/orphan.pdf"}, report.Deleted)
	assert.True(t, blobs.Exists("u1/orphan.pdf"))
	assert.Empty(t, blobs.deletes)
	assert.Equal(t, 0, metrics.swept)
}

func TestSweeper_Sweep_Failures(t *testing.T) {
	_, blobs, _, h := setupSweep(t)
	blobs.deleteErr = assert.AnError
	sweeper, err := h.Sweeper(time.Hour)
	require.NoError(t, err)

	report, err := sweeper.Sweep(context.Background(), "", false)
	require.NoError(t, err)
	assert.Empty(t, report.Deleted)
	assert.Len(t, report.Failed, 2)

	h2 := newTestHub(t, failingPaths{fakeRepo: newFakeRepo()}, hub.WithBlobStore(blobs))
	sweeper, err = h2.Sweeper(time.Hour)
	require.NoError(t, err)
	_, err = sweeper.Sweep(context.Background(), "", false)
	assert.ErrorIs(t, err, hub.ErrCatalogUnavailable)
}

type failingPaths struct {
	*fakeRepo
}

func (failingPaths) ListFilePaths(ctx context.Context) (map[string]struct{}, error) {
	return nil, assert.AnError
}
