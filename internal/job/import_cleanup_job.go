package job

import (
	"context"
	"errors"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readlater/internal/model"
)

type ImportJobStore interface {
	ListBefore(ctx context.Context, cutoff int64) ([]model.ImportJob, error)
	ListStale(ctx context.Context, cutoff int64) ([]model.ImportJob, error)
	Finish(ctx context.Context, userID, jobID, status string, imported, failed int, errMsg string, mtime int64) error
	Delete(ctx context.Context, userID, jobID string) error
}

const abandonedJobError = "import abandoned: no progress before timeout"

type FileRemover interface {
	Delete(ctx context.Context, key string) error
}

// ImportCleanupJob fails pending or running jobs idle for longer than
// staleAfter, then drops finished jobs older than maxAge along with their
// uploaded files.
type ImportCleanupJob struct {
	jobs       ImportJobStore
	files      FileRemover
	maxAge     time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func NewImportCleanupJob(jobs ImportJobStore, files FileRemover, maxAge, staleAfter time.Duration) *ImportCleanupJob {
	return &ImportCleanupJob{jobs: jobs, files: files, maxAge: maxAge, staleAfter: staleAfter, now: time.Now}
}

func (j *ImportCleanupJob) Name() string {
	return "import_cleanup"
}

func (j *ImportCleanupJob) Run(ctx context.Context) error {
	if j.jobs == nil {
		return nil
	}
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	logger := logutil.GetLogger(ctx)
	var errs []error
	if err := j.failAbandoned(ctx); err != nil {
		errs = append(errs, err)
	}
	cutoff := j.now().Add(-maxAge).Unix()
	expired, err := j.jobs.ListBefore(ctx, cutoff)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	removed := 0
	for _, item := range expired {
		if item.Status == model.ImportJobStatusPending || item.Status == model.ImportJobStatusRunning {
			continue
		}
		if j.files != nil && item.FileKey != "" {
			if err := j.files.Delete(ctx, item.FileKey); err != nil {
				logger.Warn("remove import file failed", zap.String("job_id", item.ID), zap.String("key", item.FileKey), zap.Error(err))
				errs = append(errs, err)
				continue
			}
		}
		if err := j.jobs.Delete(ctx, item.UserID, item.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("import jobs cleaned", zap.Int("count", removed))
	}
	return errors.Join(errs...)
}

func (j *ImportCleanupJob) failAbandoned(ctx context.Context) error {
	if j.staleAfter <= 0 {
		return nil
	}
	now := j.now()
	stale, err := j.jobs.ListStale(ctx, now.Add(-j.staleAfter).Unix())
	if err != nil {
		return err
	}
	var errs []error
	for _, item := range stale {
		if err := j.jobs.Finish(ctx, item.UserID, item.ID, model.ImportJobStatusFailed, item.Imported, item.Failed, abandonedJobError, now.Unix()); err != nil {
			errs = append(errs, err)
			continue
		}
		logutil.GetLogger(ctx).Warn("import job abandoned", zap.String("job_id", item.ID), zap.String("status", item.Status))
	}
	return errors.Join(errs...)
}
