package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/htmlmgr/internal/domain/model"
)

func makeRun(id string, startedAt time.Time, status model.BuildStatus) model.BuildRun {
	return model.BuildRun{
		ID:        id,
		Tasks:     []model.BuildTask{model.TaskStyles, model.TaskPages},
		Status:    status,
		StartedAt: startedAt,
	}
}

func TestBuildRepo_RecordAndLatest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBuildRepo(db)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	run := makeRun("run-1", started, model.BuildStatusRunning)
	require.NoError(t, repo.Record(ctx, run))

	got, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, model.BuildStatusRunning, got.Status)
	assert.Equal(t, []model.BuildTask{model.TaskStyles, model.TaskPages}, got.Tasks)
	assert.True(t, started.Equal(got.StartedAt))
	assert.True(t, got.FinishedAt.IsZero())
}

func TestBuildRepo_RecordUpdatesExistingRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBuildRepo(db)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	run := makeRun("run-1", started, model.BuildStatusRunning)
	require.NoError(t, repo.Record(ctx, run))

	run.Status = model.BuildStatusFailed
	run.Error = "styles: compile main.scss: exit status 65"
	run.OutputCount = 3
	run.FinishedAt = started.Add(1500 * time.Millisecond)
	require.NoError(t, repo.Record(ctx, run))

	runs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.BuildStatusFailed, runs[0].Status)
	assert.Equal(t, 3, runs[0].OutputCount)
	assert.Equal(t, "styles: compile main.scss: exit status 65", runs[0].Error)
	assert.Equal(t, 1500*time.Millisecond, runs[0].Duration())
	assert.True(t, runs[0].Failed())
}

func TestBuildRepo_ListRecent_OrderedAndLimited(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBuildRepo(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Record(ctx, makeRun("old", base, model.BuildStatusSucceeded)))
	require.NoError(t, repo.Record(ctx, makeRun("newest", base.Add(2*time.Minute), model.BuildStatusSucceeded)))
	require.NoError(t, repo.Record(ctx, makeRun("middle", base.Add(time.Minute), model.BuildStatusSucceeded)))

	runs, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newest", runs[0].ID)
	assert.Equal(t, "middle", runs[1].ID)
}

func TestBuildRepo_Latest_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBuildRepo(db)

	got, err := repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)

	runs, err := repo.ListRecent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNewDB_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "htmlmgr.db")

	db, err := NewDB(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(db.Writer))
	// Second run is a no-op.
	require.NoError(t, RunMigrations(db.Writer))
	assert.Equal(t, path, db.Path())
}
