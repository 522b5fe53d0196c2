package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/readlater/internal/model"
	"github.com/xxxsen/readlater/internal/pkg/dbutil"
	appErr "github.com/xxxsen/readlater/internal/pkg/errors"
)

var saveRequestFields = []string{"id", "user_id", "client_request_id", "url", "status", "labels_json", "source", "archived_at", "ctime", "mtime"}

type SaveRequestRepo struct {
	db *sql.DB
}

func NewSaveRequestRepo(db *sql.DB) *SaveRequestRepo {
	return &SaveRequestRepo{db: db}
}

// Create stores req unless the owner already has a request with the same
// client request id. The stored row is returned either way, together with
// whether this call created it.
func (r *SaveRequestRepo) Create(ctx context.Context, req *model.SaveRequest) (*model.SaveRequest, bool, error) {
	labels := req.Labels
	if labels == nil {
		labels = []string{}
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return nil, false, err
	}
	data := map[string]interface{}{
		"id":                req.ID,
		"user_id":           req.UserID,
		"client_request_id": req.ClientRequestID,
		"url":               req.URL,
		"status":            string(req.Status),
		"labels_json":       string(labelsJSON),
		"source":            req.Source,
		"ctime":             req.Ctime,
		"mtime":             req.Mtime,
	}
	if req.ArchivedAt != nil {
		data["archived_at"] = *req.ArchivedAt
	}
	sqlStr, args, err := builder.BuildInsert("save_requests", []map[string]interface{}{data})
	if err != nil {
		return nil, false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" ON CONFLICT (user_id, client_request_id) DO NOTHING", args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if affected > 0 {
		return req, true, nil
	}
	existing, err := r.GetByClientRequestID(ctx, req.UserID, req.ClientRequestID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *SaveRequestRepo) GetByID(ctx context.Context, userID, id string) (*model.SaveRequest, error) {
	return r.getOne(ctx, map[string]interface{}{"user_id": userID, "id": id})
}

func (r *SaveRequestRepo) GetByClientRequestID(ctx context.Context, userID, clientRequestID string) (*model.SaveRequest, error) {
	return r.getOne(ctx, map[string]interface{}{"user_id": userID, "client_request_id": clientRequestID})
}

func (r *SaveRequestRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.SaveRequest, error) {
	sqlStr, args, err := builder.BuildSelect("save_requests", where, saveRequestFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var (
		req        model.SaveRequest
		status     string
		labelsJSON string
		archivedAt sql.NullInt64
	)
	if err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.ClientRequestID,
		&req.URL,
		&status,
		&labelsJSON,
		&req.Source,
		&archivedAt,
		&req.Ctime,
		&req.Mtime,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	req.Status = model.SavingRequestStatus(status)
	req.Labels = []string{}
	if labelsJSON != "" {
		if err := json.Unmarshal([]byte(labelsJSON), &req.Labels); err != nil {
			return nil, fmt.Errorf("decode labels of save request %s: %w", req.ID, err)
		}
	}
	if archivedAt.Valid {
		value := archivedAt.Int64
		req.ArchivedAt = &value
	}
	return &req, nil
}
