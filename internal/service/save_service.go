package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readlater/internal/importer"
	"github.com/xxxsen/readlater/internal/model"
	"github.com/xxxsen/readlater/internal/pubsub"
	"github.com/xxxsen/readlater/internal/usercache"
)

const (
	SourceAPI   = "api"
	SourceEmail = "email"
	SourceCSV   = "csv-importer"
)

type SaveErrorCode string

const (
	SaveErrorCodeUnknown      SaveErrorCode = "UNKNOWN"
	SaveErrorCodeUnauthorized SaveErrorCode = "UNAUTHORIZED"
	SaveErrorCodeBadRequest   SaveErrorCode = "BAD_REQUEST"
)

type SaveURLInput struct {
	URL             string
	ClientRequestID string
	State           *model.SavingRequestStatus
	Labels          []string
	Source          string
}

// SaveResult is either a success (ClientRequestID and URL set) or an error
// carrying ErrorCodes.
type SaveResult struct {
	ClientRequestID string          `json:"client_request_id,omitempty"`
	URL             string          `json:"url,omitempty"`
	ErrorCodes      []SaveErrorCode `json:"error_codes,omitempty"`
}

func (r *SaveResult) OK() bool {
	return r != nil && len(r.ErrorCodes) == 0
}

type SaveError struct {
	Codes []SaveErrorCode
}

func (e *SaveError) Error() string {
	codes := make([]string, 0, len(e.Codes))
	for _, code := range e.Codes {
		codes = append(codes, string(code))
	}
	return "save failed: " + strings.Join(codes, ",")
}

type SaveRequestStore interface {
	Create(ctx context.Context, req *model.SaveRequest) (*model.SaveRequest, bool, error)
	GetByID(ctx context.Context, userID, id string) (*model.SaveRequest, error)
}

type SaveService struct {
	requests    SaveRequestStore
	labels      *LabelService
	users       usercache.UserGetter
	publisher   pubsub.Publisher
	homePageURL string
	now         func() time.Time
}

func NewSaveService(requests SaveRequestStore, labels *LabelService, users usercache.UserGetter, publisher pubsub.Publisher, homePageURL string) *SaveService {
	return &SaveService{
		requests:    requests,
		labels:      labels,
		users:       users,
		publisher:   publisher,
		homePageURL: strings.TrimSuffix(homePageURL, "/"),
		now:         time.Now,
	}
}

// SaveURL persists a save request for user and announces it on the bus.
// Failures are logged and reported through the result, never returned.
func (s *SaveService) SaveURL(ctx context.Context, user *model.User, input SaveURLInput) (result *SaveResult) {
	logger := logutil.GetLogger(ctx).With(zap.String("url", input.URL), zap.String("source", input.Source))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("save url panic", zap.Any("panic", r))
			result = saveFailure(SaveErrorCodeUnknown)
		}
	}()
	if user == nil || user.ID == "" {
		return saveFailure(SaveErrorCodeUnauthorized)
	}
	logger = logger.With(zap.String("user_id", user.ID))
	parsed, err := importer.ParseURL(strings.TrimSpace(input.URL))
	if err != nil {
		logger.Info("reject save url", zap.Error(err))
		return saveFailure(SaveErrorCodeBadRequest)
	}
	req, err := s.createRequest(ctx, user, parsed.String(), input)
	if err != nil {
		logger.Error("error enqueuing save request", zap.Error(err))
		return saveFailure(SaveErrorCodeUnknown)
	}
	return &SaveResult{
		ClientRequestID: req.ID,
		URL:             fmt.Sprintf("%s/%s/links/%s", s.homePageURL, user.Username, req.ID),
	}
}

func (s *SaveService) createRequest(ctx context.Context, user *model.User, url string, input SaveURLInput) (*model.SaveRequest, error) {
	now := s.now().Unix()
	var archivedAt *int64
	if input.State != nil && *input.State == model.SavingRequestStatusArchived {
		archivedAt = &now
	}
	var labelNames []string
	if input.Labels != nil {
		labels, err := s.labels.CreateLabels(ctx, user.ID, input.Labels)
		if err != nil {
			return nil, fmt.Errorf("create labels: %w", err)
		}
		labelNames = make([]string, 0, len(labels))
		for _, label := range labels {
			labelNames = append(labelNames, label.Name)
		}
	}
	id := newID()
	clientRequestID := strings.TrimSpace(input.ClientRequestID)
	if clientRequestID == "" {
		clientRequestID = id
	}
	req, created, err := s.requests.Create(ctx, &model.SaveRequest{
		ID:              id,
		UserID:          user.ID,
		ClientRequestID: clientRequestID,
		URL:             url,
		Status:          model.SavingRequestStatusProcessing,
		Labels:          labelNames,
		Source:          input.Source,
		ArchivedAt:      archivedAt,
		Ctime:           now,
		Mtime:           now,
	})
	if err != nil {
		return nil, fmt.Errorf("create save request: %w", err)
	}
	// a retried request whose first attempt never reached the bus is still
	// PROCESSING, so it is published again
	if !created && req.Status != model.SavingRequestStatusProcessing {
		return req, nil
	}
	err = s.publisher.PublishSaveRequested(ctx, model.SaveRequestedEvent{
		RequestID:  req.ID,
		UserID:     req.UserID,
		URL:        req.URL,
		Labels:     req.Labels,
		State:      req.Status,
		ArchivedAt: req.ArchivedAt,
		Source:     req.Source,
		Ctime:      req.Ctime,
	})
	if err != nil {
		return nil, fmt.Errorf("publish save request: %w", err)
	}
	return req, nil
}

func (s *SaveService) Get(ctx context.Context, userID, id string) (*model.SaveRequest, error) {
	return s.requests.GetByID(ctx, userID, id)
}

// SaveURLFromEmail saves url on behalf of the owner of an inbound email.
func (s *SaveService) SaveURLFromEmail(ctx context.Context, userID, url, clientRequestID string) bool {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logutil.GetLogger(ctx).Warn("email save: lookup user failed", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	result := s.SaveURL(ctx, user, SaveURLInput{
		URL:             url,
		ClientRequestID: clientRequestID,
		Source:          SourceEmail,
	})
	return result.OK()
}

func saveFailure(codes ...SaveErrorCode) *SaveResult {
	return &SaveResult{ErrorCodes: codes}
}
