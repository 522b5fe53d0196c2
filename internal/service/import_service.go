package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readlater/internal/filestore"
	"github.com/xxxsen/readlater/internal/importer"
	"github.com/xxxsen/readlater/internal/model"
	appErr "github.com/xxxsen/readlater/internal/pkg/errors"
	"github.com/xxxsen/readlater/internal/pkg/timeutil"
	"github.com/xxxsen/readlater/internal/usercache"
)

const (
	progressFlushRows = 10
	maxJobErrorLen    = 512
)

// ImportRunTimeout bounds one import run. A pending or running job untouched
// for longer than this has no live worker.
const ImportRunTimeout = 2 * time.Hour

type ImportJobStore interface {
	Create(ctx context.Context, job *model.ImportJob) error
	Get(ctx context.Context, userID, jobID string) (*model.ImportJob, error)
	UpdateProgress(ctx context.Context, userID, jobID, status string, imported, failed int, mtime int64) error
	Finish(ctx context.Context, userID, jobID, status string, imported, failed int, errMsg string, mtime int64) error
}

type ImportService struct {
	saves *SaveService
	users usercache.UserGetter
	jobs  ImportJobStore
	files filestore.Store
	spawn func(func())
}

func NewImportService(saves *SaveService, users usercache.UserGetter, jobs ImportJobStore, files filestore.Store) *ImportService {
	return &ImportService{
		saves: saves,
		users: users,
		jobs:  jobs,
		files: files,
		spawn: func(fn func()) { go fn() },
	}
}

func importFileKey(jobID string) string {
	return "import-" + jobID + ".csv"
}

// CreateCSVJob stores the upload and schedules its import. The returned job
// is still pending.
func (s *ImportService) CreateCSVJob(ctx context.Context, userID string, r io.Reader, size int64) (*model.ImportJob, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	if r == nil {
		return nil, appErr.ErrImportFile
	}
	now := timeutil.NowUnix()
	job := &model.ImportJob{
		ID:     newID(),
		UserID: userID,
		Source: SourceCSV,
		Status: model.ImportJobStatusPending,
		Ctime:  now,
		Mtime:  now,
	}
	job.FileKey = importFileKey(job.ID)
	if err := s.files.Save(ctx, job.FileKey, r, size); err != nil {
		return nil, fmt.Errorf("store import file: %w", err)
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		_ = s.files.Delete(context.Background(), job.FileKey)
		return nil, err
	}
	queued := *job
	s.spawn(func() {
		runCtx, cancel := context.WithTimeout(context.Background(), ImportRunTimeout)
		defer cancel()
		s.Run(runCtx, &queued)
	})
	return job, nil
}

// Run imports the stored file of job and records the final counters on it.
func (s *ImportService) Run(ctx context.Context, job *model.ImportJob) {
	logger := logutil.GetLogger(ctx).With(zap.String("job_id", job.ID), zap.String("user_id", job.UserID))
	ic, err := s.run(ctx, job)
	imported, failed := 0, 0
	if ic != nil {
		imported, failed = ic.CountImported, ic.CountFailed
	}
	status := model.ImportJobStatusDone
	errMsg := ""
	if err != nil {
		status = model.ImportJobStatusFailed
		errMsg = truncate(err.Error(), maxJobErrorLen)
		logger.Error("import job failed", zap.Int("imported", imported), zap.Int("failed", failed), zap.Error(err))
	} else {
		logger.Info("import job finished", zap.Int("imported", imported), zap.Int("failed", failed))
	}
	if ferr := s.jobs.Finish(context.Background(), job.UserID, job.ID, status, imported, failed, errMsg, timeutil.NowUnix()); ferr != nil {
		logger.Error("save import job result failed", zap.Error(ferr))
		return
	}
	job.Status = status
	job.Imported = imported
	job.Failed = failed
	job.Error = errMsg
}

func (s *ImportService) run(ctx context.Context, job *model.ImportJob) (*importer.Context, error) {
	user, err := s.users.GetByID(ctx, job.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	file, err := s.files.Open(ctx, job.FileKey)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer file.Close()
	if err := s.jobs.UpdateProgress(ctx, job.UserID, job.ID, model.ImportJobStatusRunning, 0, 0, timeutil.NowUnix()); err != nil {
		return nil, err
	}
	ic := s.newContext(ctx, user)
	ic.OnOutcome = func(outcome importer.Outcome) {
		if ic.Processed()%progressFlushRows != 0 {
			return
		}
		if err := s.jobs.UpdateProgress(ctx, job.UserID, job.ID, model.ImportJobStatusRunning, ic.CountImported, ic.CountFailed, timeutil.NowUnix()); err != nil {
			logutil.GetLogger(ctx).Warn("flush import progress failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	return ic, importer.ImportCSV(ctx, ic, file)
}

// ImportFile runs a csv import inline and returns its counters.
func (s *ImportService) ImportFile(ctx context.Context, userID string, r io.Reader) (*importer.Context, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ic := s.newContext(ctx, user)
	ic.OnOutcome = func(outcome importer.Outcome) {
		if !outcome.OK() {
			logutil.GetLogger(ctx).Debug("import row failed", zap.Int("line", outcome.Line), zap.Error(outcome.Err))
		}
	}
	return ic, importer.ImportCSV(ctx, ic, r)
}

func (s *ImportService) Status(ctx context.Context, userID, jobID string) (*model.ImportJob, error) {
	return s.jobs.Get(ctx, userID, jobID)
}

func (s *ImportService) newContext(ctx context.Context, user *model.User) *importer.Context {
	return &importer.Context{
		UserID:  user.ID,
		Handler: importer.RowHandlerFunc(s.saveRow(user)),
	}
}

func (s *ImportService) saveRow(user *model.User) func(ctx context.Context, ic *importer.Context, row importer.Row) error {
	return func(ctx context.Context, ic *importer.Context, row importer.Row) error {
		if row.URL == nil {
			return importer.ErrMissingURL
		}
		result := s.saves.SaveURL(ctx, user, SaveURLInput{
			URL:    row.URL.String(),
			State:  row.State,
			Labels: row.Labels,
			Source: SourceCSV,
		})
		if !result.OK() {
			return &SaveError{Codes: result.ErrorCodes}
		}
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
