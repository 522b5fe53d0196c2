package repo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/readlater/internal/model"
	"github.com/xxxsen/readlater/internal/pkg/dbutil"
)

var labelFields = []string{"id", "user_id", "name", "color", "ctime", "mtime"}

type LabelRepo struct {
	db *sql.DB
}

func NewLabelRepo(db *sql.DB) *LabelRepo {
	return &LabelRepo{db: db}
}

// CreateBatch inserts labels, silently keeping the existing row when the
// owner already has a label with the same (case insensitive) name.
func (r *LabelRepo) CreateBatch(ctx context.Context, labels []model.Label) error {
	if len(labels) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, map[string]interface{}{
			"id":      label.ID,
			"user_id": label.UserID,
			"name":    label.Name,
			"color":   label.Color,
			"ctime":   label.Ctime,
			"mtime":   label.Mtime,
		})
	}
	sqlStr, args, err := builder.BuildInsert("labels", rows)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" ON CONFLICT DO NOTHING", args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *LabelRepo) List(ctx context.Context, userID string) ([]model.Label, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "name asc"}
	sqlStr, args, err := builder.BuildSelect("labels", where, labelFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.query(ctx, sqlStr, args)
}

// ListByNames matches names case insensitively.
func (r *LabelRepo) ListByNames(ctx context.Context, userID string, names []string) ([]model.Label, error) {
	if len(names) == 0 {
		return []model.Label{}, nil
	}
	args := make([]interface{}, 0, len(names)+1)
	args = append(args, userID)
	marks := make([]string, 0, len(names))
	for _, name := range names {
		args = append(args, strings.ToLower(name))
		marks = append(marks, "?")
	}
	sqlStr := "SELECT " + strings.Join(labelFields, ", ") + " FROM labels WHERE user_id = ? AND LOWER(name) IN (" + strings.Join(marks, ", ") + ")"
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.query(ctx, sqlStr, args)
}

func (r *LabelRepo) query(ctx context.Context, sqlStr string, args []interface{}) ([]model.Label, error) {
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	labels := make([]model.Label, 0)
	for rows.Next() {
		var label model.Label
		if err := rows.Scan(&label.ID, &label.UserID, &label.Name, &label.Color, &label.Ctime, &label.Mtime); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}
