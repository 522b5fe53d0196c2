package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/readlater/internal/model"
	"github.com/xxxsen/readlater/internal/pkg/response"
)

type LabelLister interface {
	List(ctx context.Context, userID string) ([]model.Label, error)
}

type LabelHandler struct {
	labels LabelLister
}

func NewLabelHandler(labels LabelLister) *LabelHandler {
	return &LabelHandler{labels: labels}
}

func (h *LabelHandler) List(c *gin.Context) {
	labels, err := h.labels.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, labels)
}
