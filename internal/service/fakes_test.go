package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/xxxsen/readlater/internal/model"
	appErr "github.com/xxxsen/readlater/internal/pkg/errors"
)

type fakeSaveStore struct {
	mu      sync.Mutex
	rows    map[string]*model.SaveRequest
	err     error
	panicOn string
	creates int
}

func newFakeSaveStore() *fakeSaveStore {
	return &fakeSaveStore{rows: map[string]*model.SaveRequest{}}
}

func (f *fakeSaveStore) Create(ctx context.Context, req *model.SaveRequest) (*model.SaveRequest, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.panicOn != "" && req.URL == f.panicOn {
		panic("boom")
	}
	if f.err != nil {
		return nil, false, f.err
	}
	key := req.UserID + "|" + req.ClientRequestID
	if existing, ok := f.rows[key]; ok {
		clone := *existing
		return &clone, false, nil
	}
	stored := *req
	f.rows[key] = &stored
	clone := stored
	return &clone, true, nil
}

func (f *fakeSaveStore) GetByID(ctx context.Context, userID, id string) (*model.SaveRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.UserID == userID && row.ID == id {
			clone := *row
			return &clone, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (f *fakeSaveStore) setStatus(userID, clientRequestID string, status model.SavingRequestStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[userID+"|"+clientRequestID].Status = status
}

type fakeLabelStore struct {
	mu        sync.Mutex
	labels    []model.Label
	createErr error
	listErr   error
	creates   int
}

func (f *fakeLabelStore) List(ctx context.Context, userID string) ([]model.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]model.Label, 0)
	for _, label := range f.labels {
		if label.UserID == userID {
			result = append(result, label)
		}
	}
	return result, nil
}

func (f *fakeLabelStore) ListByNames(ctx context.Context, userID string, names []string) ([]model.Label, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[strings.ToLower(name)] = true
	}
	result := make([]model.Label, 0)
	for _, label := range f.labels {
		if label.UserID == userID && wanted[strings.ToLower(label.Name)] {
			result = append(result, label)
		}
	}
	return result, nil
}

func (f *fakeLabelStore) CreateBatch(ctx context.Context, labels []model.Label) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates += len(labels)
	f.labels = append(f.labels, labels...)
	return nil
}

type fakeUsers struct {
	users map[string]*model.User
}

func (f *fakeUsers) GetByID(ctx context.Context, userID string) (*model.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.SaveRequestedEvent
	err    error
}

func (f *fakePublisher) PublishSaveRequested(ctx context.Context, event model.SaveRequestedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Close() error {
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type progress struct {
	Status   string
	Imported int
	Failed   int
}

type fakeJobStore struct {
	mu       sync.Mutex
	jobs     map[string]*model.ImportJob
	progress []progress
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: map[string]*model.ImportJob{}}
}

func (f *fakeJobStore) Create(ctx context.Context, job *model.ImportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *job
	f.jobs[job.ID] = &clone
	return nil
}

func (f *fakeJobStore) Get(ctx context.Context, userID, jobID string) (*model.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (f *fakeJobStore) UpdateProgress(ctx context.Context, userID, jobID, status string, imported, failed int, mtime int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return appErr.ErrNotFound
	}
	job.Status, job.Imported, job.Failed, job.Mtime = status, imported, failed, mtime
	f.progress = append(f.progress, progress{Status: status, Imported: imported, Failed: failed})
	return nil
}

func (f *fakeJobStore) Finish(ctx context.Context, userID, jobID, status string, imported, failed int, errMsg string, mtime int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return appErr.ErrNotFound
	}
	job.Status, job.Imported, job.Failed, job.Error, job.Mtime = status, imported, failed, errMsg, mtime
	return nil
}

func (f *fakeJobStore) Delete(ctx context.Context, userID, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, jobID)
	return nil
}

type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFiles() *memFiles {
	return &memFiles{files: map[string][]byte{}}
}

func (m *memFiles) Type() string { return "mem" }

func (m *memFiles) Save(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = data
	return nil
}

func (m *memFiles) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, errors.New("file not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memFiles) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	return nil
}
