package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/resource-hub/pkg/hub"
	"github.com/tendant/resource-hub/pkg/hub/repo/memory"
)

func TestMemoryRepository_MaterialOperations(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := memory.New()
	ctx := context.Background()
	uploader := uuid.New()

	older := &hub.Material{
		Title:      "Database Systems Notes",
		Subject:    "Database Management",
		Branch:     "Computer Science",
		Semester:   "3",
		Year:       "2024",
		FilePath:   uploader.String() + "/1.pdf",
		UploaderID: uploader,
		CreatedAt:  base,
	}
	newer := &hub.Material{
		Title:       "Graph Algorithms",
		Description: "Shortest paths and flows",
		Subject:     "Algorithms",
		Branch:      "Computer Science",
		Semester:    "4",
		Year:        "2023",
		FilePath:    uploader.String() + "/2.pdf",
		UploaderID:  uploader,
		CreatedAt:   base.Add(time.Hour),
	}

	t.Run("CreateMaterial", func(t *testing.T) {
		require.NoError(t, repo.CreateMaterial(ctx, older))
		require.NoError(t, repo.CreateMaterial(ctx, newer))
		assert.NotEqual(t, uuid.Nil, older.ID)
		assert.NotEqual(t, older.ID, newer.ID)
		assert.Equal(t, older.CreatedAt, older.UpdatedAt)
	})

	t.Run("QueryNewestFirst", func(t *testing.T) {
		ms, err := repo.QueryMaterials(ctx, hub.MaterialQuery{})
		require.NoError(t, err)
		require.Len(t, ms, 2)
		assert.Equal(t, newer.ID, ms[0].ID)
		assert.Equal(t, older.ID, ms[1].ID)
	})

	t.Run("QueryFiltersAndSearch", func(t *testing.T) {
		ms, err := repo.QueryMaterials(ctx, hub.MaterialQuery{Filters: hub.FilterSet{Semester: "3"}})
		require.NoError(t, err)
		require.Len(t, ms, 1)
		assert.Equal(t, older.ID, ms[0].ID)

		ms, err = repo.QueryMaterials(ctx, hub.MaterialQuery{Search: "  SHORTEST  "})
		require.NoError(t, err)
		require.Len(t, ms, 1)
		assert.Equal(t, newer.ID, ms[0].ID)
	})

	t.Run("UploaderNameJoined", func(t *testing.T) {
		require.NoError(t, repo.UpsertProfile(ctx, &hub.Profile{UserID: uploader, FullName: "Asha Rao"}))

		m, err := repo.GetMaterial(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, "Asha Rao", m.UploaderName)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.GetMaterial(ctx, uuid.New())
		assert.ErrorIs(t, err, hub.ErrMaterialNotFound)
	})

	t.Run("ReturnedCopiesAreDetached", func(t *testing.T) {
		m, err := repo.GetMaterial(ctx, older.ID)
		require.NoError(t, err)
		m.Title = "changed"

		again, err := repo.GetMaterial(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, "Database Systems Notes", again.Title)
	})

	t.Run("ListFilePaths", func(t *testing.T) {
		paths, err := repo.ListFilePaths(ctx)
		require.NoError(t, err)
		assert.Len(t, paths, 2)
		assert.Contains(t, paths, older.FilePath)
	})
}

func TestMemoryRepository_RecordDownload(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	m := &hub.Material{Title: "Networks", Branch: "Computer Science", Semester: "5"}
	require.NoError(t, repo.CreateMaterial(ctx, m))

	user := uuid.New()
	ev := &hub.DownloadEvent{UserID: user, MaterialID: m.ID, CreatedAt: time.Now()}

	outcome, err := repo.RecordDownload(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, hub.RecordInserted, outcome)

	outcome, err = repo.RecordDownload(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, hub.RecordAlreadyExists, outcome)

	outcome, err = repo.RecordDownload(ctx, &hub.DownloadEvent{UserID: uuid.New(), MaterialID: m.ID})
	require.NoError(t, err)
	assert.Equal(t, hub.RecordInserted, outcome)

	got, err := repo.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Downloads)
	assert.Len(t, repo.Downloads(m.ID), 2)

	_, err = repo.RecordDownload(ctx, &hub.DownloadEvent{UserID: user, MaterialID: uuid.New()})
	assert.ErrorIs(t, err, hub.ErrMaterialNotFound)
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	repo := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.QueryMaterials(ctx, hub.MaterialQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}
