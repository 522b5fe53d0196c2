package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/readlater/internal/model"
)

type fakeJobs struct {
	jobs    []model.ImportJob
	cutoff  int64
	deleted []string
}

func (f *fakeJobs) ListBefore(ctx context.Context, cutoff int64) ([]model.ImportJob, error) {
	f.cutoff = cutoff
	result := make([]model.ImportJob, 0)
	for _, job := range f.jobs {
		if job.Ctime < cutoff {
			result = append(result, job)
		}
	}
	return result, nil
}

func (f *fakeJobs) ListStale(ctx context.Context, cutoff int64) ([]model.ImportJob, error) {
	result := make([]model.ImportJob, 0)
	for _, job := range f.jobs {
		active := job.Status == model.ImportJobStatusPending || job.Status == model.ImportJobStatusRunning
		if active && job.Mtime < cutoff {
			result = append(result, job)
		}
	}
	return result, nil
}

func (f *fakeJobs) Finish(ctx context.Context, userID, jobID, status string, imported, failed int, errMsg string, mtime int64) error {
	for i := range f.jobs {
		if f.jobs[i].ID == jobID && f.jobs[i].UserID == userID {
			f.jobs[i].Status = status
			f.jobs[i].Imported = imported
			f.jobs[i].Failed = failed
			f.jobs[i].Error = errMsg
			f.jobs[i].Mtime = mtime
			return nil
		}
	}
	return errors.New("job not found")
}

func (f *fakeJobs) Delete(ctx context.Context, userID, jobID string) error {
	f.deleted = append(f.deleted, jobID)
	return nil
}

func (f *fakeJobs) find(id string) model.ImportJob {
	for _, job := range f.jobs {
		if job.ID == id {
			return job
		}
	}
	return model.ImportJob{}
}

type fakeFiles struct {
	deleted []string
	failOn  string
}

func (f *fakeFiles) Delete(ctx context.Context, key string) error {
	if key == f.failOn {
		return errors.New("delete failed")
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func TestImportCleanupJobRemovesExpired(t *testing.T) {
	now := time.Unix(1700000000, 0)
	jobs := &fakeJobs{jobs: []model.ImportJob{
		{ID: "old", UserID: "u1", Status: model.ImportJobStatusDone, FileKey: "import-old.csv", Ctime: now.Add(-48 * time.Hour).Unix()},
		{ID: "busy", UserID: "u1", Status: model.ImportJobStatusRunning, FileKey: "import-busy.csv", Ctime: now.Add(-48 * time.Hour).Unix(), Mtime: now.Add(-time.Minute).Unix()},
		{ID: "fresh", UserID: "u1", Status: model.ImportJobStatusDone, FileKey: "import-fresh.csv", Ctime: now.Unix()},
	}}
	files := &fakeFiles{}
	job := NewImportCleanupJob(jobs, files, 24*time.Hour, 2*time.Hour)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, now.Add(-24*time.Hour).Unix(), jobs.cutoff)
	require.Equal(t, []string{"old"}, jobs.deleted)
	require.Equal(t, []string{"import-old.csv"}, files.deleted)
	require.Equal(t, model.ImportJobStatusRunning, jobs.find("busy").Status)
	require.Equal(t, "import_cleanup", job.Name())
}

func TestImportCleanupJobFailsAbandonedJobs(t *testing.T) {
	now := time.Unix(1700000000, 0)
	jobs := &fakeJobs{jobs: []model.ImportJob{
		{ID: "crashed", UserID: "u1", Status: model.ImportJobStatusRunning, FileKey: "import-crashed.csv", Imported: 7, Failed: 1,
			Ctime: now.Add(-48 * time.Hour).Unix(), Mtime: now.Add(-47 * time.Hour).Unix()},
		{ID: "queued", UserID: "u1", Status: model.ImportJobStatusPending, FileKey: "import-queued.csv",
			Ctime: now.Add(-3 * time.Hour).Unix(), Mtime: now.Add(-3 * time.Hour).Unix()},
	}}
	files := &fakeFiles{}
	job := NewImportCleanupJob(jobs, files, 24*time.Hour, 2*time.Hour)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	crashed := jobs.find("crashed")
	require.Equal(t, model.ImportJobStatusFailed, crashed.Status)
	require.Equal(t, 7, crashed.Imported)
	require.Equal(t, 1, crashed.Failed)
	require.Equal(t, abandonedJobError, crashed.Error)
	require.Equal(t, []string{"crashed"}, jobs.deleted)
	require.Equal(t, []string{"import-crashed.csv"}, files.deleted)

	queued := jobs.find("queued")
	require.Equal(t, model.ImportJobStatusFailed, queued.Status)
	require.Equal(t, now.Unix(), queued.Mtime)
}

func TestImportCleanupJobKeepsRowWhenFileDeleteFails(t *testing.T) {
	now := time.Unix(1700000000, 0)
	jobs := &fakeJobs{jobs: []model.ImportJob{
		{ID: "a", UserID: "u1", Status: model.ImportJobStatusFailed, FileKey: "import-a.csv", Ctime: 1},
		{ID: "b", UserID: "u1", Status: model.ImportJobStatusDone, FileKey: "import-b.csv", Ctime: 1},
	}}
	files := &fakeFiles{failOn: "import-a.csv"}
	job := NewImportCleanupJob(jobs, files, time.Hour, 2*time.Hour)
	job.now = func() time.Time { return now }

	require.Error(t, job.Run(context.Background()))
	require.Equal(t, []string{"b"}, jobs.deleted)
}
