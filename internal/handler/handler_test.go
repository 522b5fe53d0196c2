package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/readlater/internal/middleware"
	"github.com/xxxsen/readlater/internal/model"
	"github.com/xxxsen/readlater/internal/pkg/errcode"
	appErr "github.com/xxxsen/readlater/internal/pkg/errors"
	"github.com/xxxsen/readlater/internal/pkg/jwt"
	"github.com/xxxsen/readlater/internal/service"
)

var testSecret = []byte("test-secret")

type stubSaver struct {
	inputs      []service.SaveURLInput
	users       []*model.User
	result      *service.SaveResult
	emailCalls  []string
	emailResult bool
}

func (s *stubSaver) SaveURL(ctx context.Context, user *model.User, input service.SaveURLInput) *service.SaveResult {
	s.inputs = append(s.inputs, input)
	s.users = append(s.users, user)
	return s.result
}

func (s *stubSaver) SaveURLFromEmail(ctx context.Context, userID, url, clientRequestID string) bool {
	s.emailCalls = append(s.emailCalls, userID+"|"+url+"|"+clientRequestID)
	return s.emailResult
}

func (s *stubSaver) Get(ctx context.Context, userID, id string) (*model.SaveRequest, error) {
	if userID == "u1" && id == "r1" {
		return &model.SaveRequest{ID: "r1", UserID: "u1", URL: "https://example.com", Status: model.SavingRequestStatusProcessing}, nil
	}
	return nil, appErr.ErrNotFound
}

type stubUsers struct{}

func (stubUsers) GetByID(ctx context.Context, userID string) (*model.User, error) {
	if userID == "u1" {
		return &model.User{ID: "u1", Username: "alice"}, nil
	}
	return nil, appErr.ErrNotFound
}

type stubImporter struct {
	body []byte
	size int64
}

func (s *stubImporter) CreateCSVJob(ctx context.Context, userID string, r io.Reader, size int64) (*model.ImportJob, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.body = data
	s.size = size
	return &model.ImportJob{ID: "job-1", UserID: userID, Status: model.ImportJobStatusPending}, nil
}

func (s *stubImporter) Status(ctx context.Context, userID, jobID string) (*model.ImportJob, error) {
	if jobID != "job-1" {
		return nil, appErr.ErrNotFound
	}
	return &model.ImportJob{ID: jobID, UserID: userID, Status: model.ImportJobStatusDone, Imported: 3, Failed: 1}, nil
}

type stubLabels struct{}

func (stubLabels) List(ctx context.Context, userID string) ([]model.Label, error) {
	return []model.Label{{ID: "l1", UserID: userID, Name: "news"}}, nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T, saver *stubSaver, imports *stubImporter) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(middleware.RequestID())
	RegisterRoutes(engine.Group("/api/v1"), RouterDeps{
		Saves:        NewSaveHandler(saver, stubUsers{}),
		Imports:      NewImportHandler(imports, 1024),
		Labels:       NewLabelHandler(stubLabels{}),
		JWTSecret:    testSecret,
		InboundToken: "relay",
	})
	return engine
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID, "alice", testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func do(t *testing.T, router http.Handler, req *http.Request) envelope {
	t.Helper()
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}

func jsonRequest(method, path, body, token string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestSaveHandlerSuccess(t *testing.T) {
	saver := &stubSaver{result: &service.SaveResult{ClientRequestID: "r1", URL: "https://read.example.com/alice/links/r1"}}
	router := setupRouter(t, saver, &stubImporter{})

	env := do(t, router, jsonRequest(http.MethodPost, "/api/v1/saves",
		`{"url":"https://example.com","client_request_id":"c1","state":"ARCHIVED","labels":["a"]}`, tokenFor(t, "u1")))
	require.Equal(t, 0, env.Code)
	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, "r1", data["client_request_id"])
	require.Equal(t, "https://read.example.com/alice/links/r1", data["url"])

	require.Len(t, saver.inputs, 1)
	input := saver.inputs[0]
	require.Equal(t, "c1", input.ClientRequestID)
	require.Equal(t, service.SourceAPI, input.Source)
	require.NotNil(t, input.State)
	require.Equal(t, model.SavingRequestStatusArchived, *input.State)
	require.Equal(t, []string{"a"}, input.Labels)
	require.Equal(t, "alice", saver.users[0].Username)
}

func TestSaveHandlerFailureCodes(t *testing.T) {
	saver := &stubSaver{result: &service.SaveResult{ErrorCodes: []service.SaveErrorCode{service.SaveErrorCodeUnknown}}}
	router := setupRouter(t, saver, &stubImporter{})

	env := do(t, router, jsonRequest(http.MethodPost, "/api/v1/saves", `{"url":"https://example.com"}`, tokenFor(t, "u1")))
	require.Equal(t, errcode.ErrSaveFailed, env.Code)
	require.Equal(t, "UNKNOWN", env.Msg)
}

func TestSaveHandlerUnknownUserPassesNil(t *testing.T) {
	saver := &stubSaver{result: &service.SaveResult{ErrorCodes: []service.SaveErrorCode{service.SaveErrorCodeUnauthorized}}}
	router := setupRouter(t, saver, &stubImporter{})

	env := do(t, router, jsonRequest(http.MethodPost, "/api/v1/saves", `{"url":"https://example.com"}`, tokenFor(t, "ghost")))
	require.Equal(t, errcode.ErrSaveFailed, env.Code)
	require.Equal(t, "UNAUTHORIZED", env.Msg)
	require.Nil(t, saver.users[0])
}

func TestSaveHandlerValidation(t *testing.T) {
	saver := &stubSaver{}
	router := setupRouter(t, saver, &stubImporter{})
	token := tokenFor(t, "u1")

	env := do(t, router, jsonRequest(http.MethodPost, "/api/v1/saves", `{"url":""}`, token))
	require.Equal(t, errcode.ErrInvalid, env.Code)
	env = do(t, router, jsonRequest(http.MethodPost, "/api/v1/saves", `{"url":"https://example.com","state":"archived"}`, token))
	require.Equal(t, errcode.ErrInvalid, env.Code)
	env = do(t, router, jsonRequest(http.MethodPost, "/api/v1/saves", `not json`, token))
	require.Equal(t, errcode.ErrInvalid, env.Code)
	env = do(t, router, jsonRequest(http.MethodPost, "/api/v1/saves", `{"url":"https://example.com"}`, ""))
	require.Equal(t, errcode.ErrUnauthorized, env.Code)
	require.Empty(t, saver.inputs)
}

func TestSaveHandlerGet(t *testing.T) {
	router := setupRouter(t, &stubSaver{}, &stubImporter{})
	env := do(t, router, jsonRequest(http.MethodGet, "/api/v1/saves/r1", "", tokenFor(t, "u1")))
	require.Equal(t, 0, env.Code)
	var req model.SaveRequest
	require.NoError(t, json.Unmarshal(env.Data, &req))
	require.Equal(t, model.SavingRequestStatusProcessing, req.Status)

	env = do(t, router, jsonRequest(http.MethodGet, "/api/v1/saves/other", "", tokenFor(t, "u1")))
	require.Equal(t, errcode.ErrNotFound, env.Code)
}

func TestInboundEmail(t *testing.T) {
	saver := &stubSaver{emailResult: true}
	router := setupRouter(t, saver, &stubImporter{})

	req := jsonRequest(http.MethodPost, "/api/v1/inbound/email", `{"user_id":"u1","url":"https://example.com","client_request_id":"m1"}`, "")
	req.Header.Set(middleware.HeaderInboundToken, "relay")
	env := do(t, router, req)
	require.Equal(t, 0, env.Code)
	require.JSONEq(t, `{"ok":true}`, string(env.Data))
	require.Equal(t, []string{"u1|https://example.com|m1"}, saver.emailCalls)

	req = jsonRequest(http.MethodPost, "/api/v1/inbound/email", `{"user_id":"u1","url":"https://example.com"}`, "")
	env = do(t, router, req)
	require.Equal(t, errcode.ErrUnauthorized, env.Code)

	req = jsonRequest(http.MethodPost, "/api/v1/inbound/email", `{"user_id":"u1"}`, "")
	req.Header.Set(middleware.HeaderInboundToken, "relay")
	env = do(t, router, req)
	require.Equal(t, errcode.ErrInvalid, env.Code)
	require.Len(t, saver.emailCalls, 1)
}

func multipartRequest(t *testing.T, filename, content, token string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/csv", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestImportCSVUpload(t *testing.T) {
	imports := &stubImporter{}
	router := setupRouter(t, &stubSaver{}, imports)
	token := tokenFor(t, "u1")

	env := do(t, router, multipartRequest(t, "links.CSV", "https://example.com\n", token))
	require.Equal(t, 0, env.Code)
	require.JSONEq(t, `{"job_id":"job-1"}`, string(env.Data))
	require.Equal(t, "https://example.com\n", string(imports.body))
	require.Equal(t, int64(len("https://example.com\n")), imports.size)

	env = do(t, router, multipartRequest(t, "links.zip", "x", token))
	require.Equal(t, errcode.ErrInvalidFile, env.Code)

	env = do(t, router, multipartRequest(t, "big.csv", string(bytes.Repeat([]byte("a"), 2048)), token))
	require.Equal(t, errcode.ErrInvalidFile, env.Code)
	require.Contains(t, env.Msg, "file too large")
}

func TestImportStatus(t *testing.T) {
	router := setupRouter(t, &stubSaver{}, &stubImporter{})
	env := do(t, router, jsonRequest(http.MethodGet, "/api/v1/imports/job-1", "", tokenFor(t, "u1")))
	require.Equal(t, 0, env.Code)
	var job model.ImportJob
	require.NoError(t, json.Unmarshal(env.Data, &job))
	require.Equal(t, model.ImportJobStatusDone, job.Status)
	require.Equal(t, 3, job.Imported)
	require.Equal(t, 1, job.Failed)

	env = do(t, router, jsonRequest(http.MethodGet, "/api/v1/imports/nope", "", tokenFor(t, "u1")))
	require.Equal(t, errcode.ErrNotFound, env.Code)
}

func TestLabelList(t *testing.T) {
	router := setupRouter(t, &stubSaver{}, &stubImporter{})
	env := do(t, router, jsonRequest(http.MethodGet, "/api/v1/labels", "", tokenFor(t, "u1")))
	require.Equal(t, 0, env.Code)
	var labels []model.Label
	require.NoError(t, json.Unmarshal(env.Data, &labels))
	require.Len(t, labels, 1)
	require.Equal(t, "news", labels[0].Name)
}

func TestFormatUploadLimit(t *testing.T) {
	require.Equal(t, "0MB", formatUploadLimit(0))
	require.Equal(t, "1MB", formatUploadLimit(100))
	require.Equal(t, "20MB", formatUploadLimit(20*1024*1024))
}

func TestHandleErrorMapsSentinels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		code int
	}{
		{appErr.ErrUnauthorized, errcode.ErrUnauthorized},
		{fmt.Errorf("lookup: %w", appErr.ErrNotFound), errcode.ErrNotFound},
		{appErr.ErrImportFile, errcode.ErrInvalidFile},
		{appErr.ErrInvalid, errcode.ErrInvalid},
		{appErr.ErrConflict, errcode.ErrConflict},
		{errors.New("boom"), errcode.ErrInternal},
	}
	for _, tc := range cases {
		resp := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(resp)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/saves/x", nil)
		handleError(c, tc.err)
		var env envelope
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
		require.Equal(t, tc.code, env.Code, tc.err.Error())
	}
}
