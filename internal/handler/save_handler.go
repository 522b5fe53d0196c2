package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/readlater/internal/model"
	"github.com/xxxsen/readlater/internal/pkg/errcode"
	appErr "github.com/xxxsen/readlater/internal/pkg/errors"
	"github.com/xxxsen/readlater/internal/pkg/response"
	"github.com/xxxsen/readlater/internal/service"
	"github.com/xxxsen/readlater/internal/usercache"
)

type Saver interface {
	SaveURL(ctx context.Context, user *model.User, input service.SaveURLInput) *service.SaveResult
	SaveURLFromEmail(ctx context.Context, userID, url, clientRequestID string) bool
	Get(ctx context.Context, userID, id string) (*model.SaveRequest, error)
}

type SaveHandler struct {
	saves Saver
	users usercache.UserGetter
}

func NewSaveHandler(saves Saver, users usercache.UserGetter) *SaveHandler {
	return &SaveHandler{saves: saves, users: users}
}

type saveRequest struct {
	URL             string   `json:"url"`
	ClientRequestID string   `json:"client_request_id"`
	State           string   `json:"state"`
	Labels          []string `json:"labels"`
	Source          string   `json:"source"`
}

func (h *SaveHandler) Save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		response.Error(c, errcode.ErrInvalid, "url required")
		return
	}
	var state *model.SavingRequestStatus
	if req.State != "" {
		parsed, ok := model.ParseSavingRequestStatus(req.State)
		if !ok {
			response.Error(c, errcode.ErrInvalid, "invalid state")
			return
		}
		state = &parsed
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = service.SourceAPI
	}
	ctx := c.Request.Context()
	user, err := h.users.GetByID(ctx, getUserID(c))
	if err != nil && !errors.Is(err, appErr.ErrNotFound) {
		handleError(c, err)
		return
	}
	result := h.saves.SaveURL(ctx, user, service.SaveURLInput{
		URL:             req.URL,
		ClientRequestID: req.ClientRequestID,
		State:           state,
		Labels:          req.Labels,
		Source:          source,
	})
	if !result.OK() {
		codes := make([]string, 0, len(result.ErrorCodes))
		for _, code := range result.ErrorCodes {
			codes = append(codes, string(code))
		}
		response.Error(c, errcode.ErrSaveFailed, strings.Join(codes, ","))
		return
	}
	response.Success(c, result)
}

func (h *SaveHandler) Get(c *gin.Context) {
	req, err := h.saves.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, req)
}

type inboundEmailRequest struct {
	UserID          string `json:"user_id"`
	URL             string `json:"url"`
	ClientRequestID string `json:"client_request_id"`
}

func (h *SaveHandler) InboundEmail(c *gin.Context) {
	var req inboundEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.URL) == "" {
		response.Error(c, errcode.ErrInvalid, "user_id and url required")
		return
	}
	ok := h.saves.SaveURLFromEmail(c.Request.Context(), req.UserID, req.URL, req.ClientRequestID)
	response.Success(c, gin.H{"ok": ok})
}
