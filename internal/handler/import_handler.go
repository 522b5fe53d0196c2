package handler

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/readlater/internal/model"
	"github.com/xxxsen/readlater/internal/pkg/errcode"
	"github.com/xxxsen/readlater/internal/pkg/response"
)

type Importer interface {
	CreateCSVJob(ctx context.Context, userID string, r io.Reader, size int64) (*model.ImportJob, error)
	Status(ctx context.Context, userID, jobID string) (*model.ImportJob, error)
}

type ImportHandler struct {
	imports       Importer
	maxUploadSize int64
}

func NewImportHandler(imports Importer, maxUploadSize int64) *ImportHandler {
	return &ImportHandler{imports: imports, maxUploadSize: maxUploadSize}
}

func (h *ImportHandler) CSVUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		response.Error(c, errcode.ErrInvalidFile, "file too large (max "+formatUploadLimit(h.maxUploadSize)+")")
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".csv" {
		response.Error(c, errcode.ErrInvalidFile, "csv file required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()

	job, err := h.imports.CreateCSVJob(c.Request.Context(), getUserID(c), opened, file.Size)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"job_id": job.ID})
}

func (h *ImportHandler) Status(c *gin.Context) {
	job, err := h.imports.Status(c.Request.Context(), getUserID(c), c.Param("job_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, job)
}
