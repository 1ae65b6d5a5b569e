package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/antigravity/internal/domain/model"
)

func makeJob(id string, createdAt time.Time, status model.JobStatus) model.Job {
	return model.Job{
		ID:           id,
		SourceURL:    "https://youtube.com/watch?v=" + id,
		Mode:         model.GenerationModeAvatar,
		VoiceModel:   model.VoiceModelGemini,
		StylePrompt:  "keep it **energetic**",
		CredentialID: "cred-1",
		Status:       status,
		Message:      "Queued",
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestJobRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepo(db)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	job := makeJob("job-1", created, model.JobStatusQueued)
	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.Get(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, job, *got)
}

func TestJobRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepo(db)

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestJobRepo_CreateDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepo(db)
	ctx := context.Background()

	job := makeJob("job-1", time.Now().UTC(), model.JobStatusQueued)
	require.NoError(t, repo.Create(ctx, job))
	assert.Error(t, repo.Create(ctx, job))
}

func TestJobRepo_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepo(db)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := makeJob("job-1", created, model.JobStatusQueued)
	require.NoError(t, repo.Create(ctx, job))

	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.Message = "Done"
	job.ResultURL = "https://example.com/out.mp4"
	job.SourceTitle = "A video"
	job.UpdatedAt = created.Add(3 * time.Second)
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.Get(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "Done", got.Message)
	assert.Equal(t, "https://example.com/out.mp4", got.ResultURL)
	assert.Equal(t, "A video", got.SourceTitle)
	assert.Equal(t, created.Add(3*time.Second), got.UpdatedAt)
	assert.Equal(t, created, got.CreatedAt)
}

func TestJobRepo_UpdateMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepo(db)

	err := repo.Update(context.Background(), makeJob("ghost", time.Now(), model.JobStatusRunning))
	assert.ErrorContains(t, err, "not found")
}

func TestJobRepo_ListNewestFirstWithLimit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, makeJob(id, base.Add(time.Duration(i)*time.Minute), model.JobStatusQueued)))
	}

	jobs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "c", jobs[0].ID)
	assert.Equal(t, "b", jobs[1].ID)
}

func TestJobRepo_ListEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepo(db)

	jobs, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestJobRepo_ListByStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, makeJob("q", base, model.JobStatusQueued)))
	require.NoError(t, repo.Create(ctx, makeJob("r", base.Add(time.Minute), model.JobStatusRunning)))
	require.NoError(t, repo.Create(ctx, makeJob("d", base.Add(2*time.Minute), model.JobStatusCompleted)))

	jobs, err := repo.ListByStatus(ctx, model.JobStatusQueued, model.JobStatusRunning)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "q", jobs[0].ID)
	assert.Equal(t, "r", jobs[1].ID)

	none, err := repo.ListByStatus(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}
