package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriptor/pkg/models"
)

func TestJobLifecycle(t *testing.T) {
	store := NewJobStore()
	job := models.NewJob("/tmp/a.mp3", "whisper-1")

	require.NoError(t, store.StoreJob(job))

	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	require.NoError(t, store.UpdateJobStatus(job.ID, models.StatusEncoding))
	got, _ = store.GetJob(job.ID)
	assert.Equal(t, models.StatusEncoding, got.Status)

	result := &models.TranscriptionResult{Text: "hola"}
	require.NoError(t, store.CompleteJob(job.ID, result, 0.05))
	got, _ = store.GetJob(job.ID)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "hola", got.Result.Text)
	assert.Equal(t, 0.05, got.CostUSD)
}

func TestJobFailure(t *testing.T) {
	store := NewJobStore()
	job := models.NewJob("/tmp/a.mp3", "whisper-1")
	require.NoError(t, store.StoreJob(job))

	require.NoError(t, store.FailJob(job.ID, "boom"))

	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestJobNotFound(t *testing.T) {
	store := NewJobStore()

	_, err := store.GetJob("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, store.UpdateJobStatus("missing", models.StatusEncoding), ErrJobNotFound)
	assert.ErrorIs(t, store.FailJob("missing", "x"), ErrJobNotFound)
}

func TestGetJobReturnsCopy(t *testing.T) {
	store := NewJobStore()
	job := models.NewJob("/tmp/a.mp3", "whisper-1")
	require.NoError(t, store.StoreJob(job))

	got, _ := store.GetJob(job.ID)
	got.Status = models.StatusFailed

	again, _ := store.GetJob(job.ID)
	assert.Equal(t, models.StatusPending, again.Status, "callers cannot mutate stored jobs")
}
