package archive

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchboard/internal/domain"
)

func newTestArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	a, err := NewSQLiteArchive(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func sampleRun(id string) domain.Run {
	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	finished := created.Add(90 * time.Second)
	return domain.Run{
		ID:         id,
		Status:     domain.RunCompleted,
		Request:    "summarize the incident report",
		Output:     []string{"first chunk", "second chunk"},
		CreatedAt:  created,
		UpdatedAt:  finished,
		FinishedAt: &finished,
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	a := newTestArchive(t)
	want := sampleRun("run_01")
	require.NoError(t, a.Archive(want))

	got, err := a.Get("run_01")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Request, got.Request)
	assert.Equal(t, want.Output, got.Output)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.FinishedAt)
	assert.True(t, want.FinishedAt.Equal(*got.FinishedAt))
}

func TestArchiveFailedRunKeepsError(t *testing.T) {
	a := newTestArchive(t)
	run := sampleRun("run_02")
	run.Status = domain.RunFailed
	run.Error = "worker exited with code 1"
	require.NoError(t, a.Archive(run))

	got, err := a.Get("run_02")
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, got.Status)
	assert.Equal(t, "worker exited with code 1", got.Error)
}

func TestArchiveUpsert(t *testing.T) {
	a := newTestArchive(t)
	run := sampleRun("run_03")
	require.NoError(t, a.Archive(run))

	run.Status = domain.RunFailed
	run.Error = "retried and failed"
	require.NoError(t, a.Archive(run))

	n, err := a.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := a.Get("run_03")
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, got.Status)
	assert.Equal(t, "retried and failed", got.Error)
}

func TestArchiveCount(t *testing.T) {
	a := newTestArchive(t)
	n, err := a.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, a.Archive(sampleRun("run_a")))
	require.NoError(t, a.Archive(sampleRun("run_b")))

	n, err = a.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestArchiveGetMissing(t *testing.T) {
	a := newTestArchive(t)
	_, err := a.Get("run_none")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestArchiveNilFinishedAt(t *testing.T) {
	a := newTestArchive(t)
	run := sampleRun("run_04")
	run.FinishedAt = nil
	require.NoError(t, a.Archive(run))

	got, err := a.Get("run_04")
	require.NoError(t, err)
	assert.Nil(t, got.FinishedAt)
}
