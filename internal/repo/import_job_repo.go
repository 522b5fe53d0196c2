package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/readlater/internal/model"
	"github.com/xxxsen/readlater/internal/pkg/dbutil"
	appErr "github.com/xxxsen/readlater/internal/pkg/errors"
)

var importJobFields = []string{"id", "user_id", "source", "status", "file_key", "imported", "failed", "error", "ctime", "mtime"}

type ImportJobRepo struct {
	db *sql.DB
}

func NewImportJobRepo(db *sql.DB) *ImportJobRepo {
	return &ImportJobRepo{db: db}
}

func (r *ImportJobRepo) Create(ctx context.Context, job *model.ImportJob) error {
	data := map[string]interface{}{
		"id":       job.ID,
		"user_id":  job.UserID,
		"source":   job.Source,
		"status":   job.Status,
		"file_key": job.FileKey,
		"imported": job.Imported,
		"failed":   job.Failed,
		"error":    job.Error,
		"ctime":    job.Ctime,
		"mtime":    job.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("import_jobs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ImportJobRepo) Get(ctx context.Context, userID, jobID string) (*model.ImportJob, error) {
	sqlStr, args, err := builder.BuildSelect("import_jobs", map[string]interface{}{"id": jobID, "user_id": userID}, importJobFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	jobs, err := r.query(ctx, sqlStr, args)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &jobs[0], nil
}

func (r *ImportJobRepo) UpdateProgress(ctx context.Context, userID, jobID, status string, imported, failed int, mtime int64) error {
	where := map[string]interface{}{"id": jobID, "user_id": userID}
	update := map[string]interface{}{
		"status":   status,
		"imported": imported,
		"failed":   failed,
		"mtime":    mtime,
	}
	return r.update(ctx, where, update)
}

func (r *ImportJobRepo) Finish(ctx context.Context, userID, jobID, status string, imported, failed int, errMsg string, mtime int64) error {
	where := map[string]interface{}{"id": jobID, "user_id": userID}
	update := map[string]interface{}{
		"status":   status,
		"imported": imported,
		"failed":   failed,
		"error":    errMsg,
		"mtime":    mtime,
	}
	return r.update(ctx, where, update)
}

func (r *ImportJobRepo) ListBefore(ctx context.Context, cutoff int64) ([]model.ImportJob, error) {
	where := map[string]interface{}{"ctime <": cutoff}
	sqlStr, args, err := builder.BuildSelect("import_jobs", where, importJobFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.query(ctx, sqlStr, args)
}

// ListStale returns pending or running jobs not touched since cutoff.
func (r *ImportJobRepo) ListStale(ctx context.Context, cutoff int64) ([]model.ImportJob, error) {
	where := map[string]interface{}{
		"status in": []interface{}{model.ImportJobStatusPending, model.ImportJobStatusRunning},
		"mtime <":   cutoff,
	}
	sqlStr, args, err := builder.BuildSelect("import_jobs", where, importJobFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.query(ctx, sqlStr, args)
}

func (r *ImportJobRepo) Delete(ctx context.Context, userID, jobID string) error {
	sqlStr, args, err := builder.BuildDelete("import_jobs", map[string]interface{}{"id": jobID, "user_id": userID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ImportJobRepo) update(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("import_jobs", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ImportJobRepo) query(ctx context.Context, sqlStr string, args []interface{}) ([]model.ImportJob, error) {
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	jobs := make([]model.ImportJob, 0)
	for rows.Next() {
		var job model.ImportJob
		if err := rows.Scan(
			&job.ID,
			&job.UserID,
			&job.Source,
			&job.Status,
			&job.FileKey,
			&job.Imported,
			&job.Failed,
			&job.Error,
			&job.Ctime,
			&job.Mtime,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
