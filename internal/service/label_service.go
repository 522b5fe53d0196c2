package service

import (
	"context"
	"strings"

	"github.com/xxxsen/readlater/internal/model"
	"github.com/xxxsen/readlater/internal/pkg/timeutil"
)

type LabelStore interface {
	List(ctx context.Context, userID string) ([]model.Label, error)
	ListByNames(ctx context.Context, userID string, names []string) ([]model.Label, error)
	CreateBatch(ctx context.Context, labels []model.Label) error
}

type LabelService struct {
	labels LabelStore
}

func NewLabelService(labels LabelStore) *LabelService {
	return &LabelService{labels: labels}
}

func (s *LabelService) List(ctx context.Context, userID string) ([]model.Label, error) {
	return s.labels.List(ctx, userID)
}

// CreateLabels returns the owner's labels for names, creating the missing
// ones. The result follows the order of names with duplicates removed.
func (s *LabelService) CreateLabels(ctx context.Context, userID string, names []string) ([]model.Label, error) {
	cleaned := normalizeLabels(names)
	if len(cleaned) == 0 {
		return []model.Label{}, nil
	}
	byName, err := s.lookup(ctx, userID, cleaned)
	if err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	missing := make([]model.Label, 0)
	for _, name := range cleaned {
		if _, ok := byName[strings.ToLower(name)]; ok {
			continue
		}
		missing = append(missing, model.Label{
			ID:     newID(),
			UserID: userID,
			Name:   name,
			Ctime:  now,
			Mtime:  now,
		})
	}
	if len(missing) > 0 {
		if err := s.labels.CreateBatch(ctx, missing); err != nil {
			return nil, err
		}
		// a concurrent save may have won the insert, read back what is stored
		byName, err = s.lookup(ctx, userID, cleaned)
		if err != nil {
			return nil, err
		}
	}
	result := make([]model.Label, 0, len(cleaned))
	for _, name := range cleaned {
		if label, ok := byName[strings.ToLower(name)]; ok {
			result = append(result, label)
		}
	}
	return result, nil
}

func (s *LabelService) lookup(ctx context.Context, userID string, names []string) (map[string]model.Label, error) {
	existing, err := s.labels.ListByNames(ctx, userID, names)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]model.Label, len(existing))
	for _, label := range existing {
		byName[strings.ToLower(label.Name)] = label
	}
	return byName, nil
}

func normalizeLabels(names []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(names))
	for _, name := range names {
		normalized := strings.TrimSpace(name)
		if normalized == "" {
			continue
		}
		key := strings.ToLower(normalized)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, normalized)
	}
	return result
}
