package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	attachment "greenhouse.org/growersplatform/internal/modules/attachment/service"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/response"
)

// multipart headers and boundaries on top of the file itself
const formOverhead = 1 << 20

type AttachmentHandler struct {
	service  attachment.AttachmentService
	maxBytes int64
}

func NewAttachmentHandler(service attachment.AttachmentService, maxBytes int64) *AttachmentHandler {
	return &AttachmentHandler{service: service, maxBytes: maxBytes}
}

func (h *AttachmentHandler) Upload(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+formOverhead)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.ResponseError(c, apperror.New(http.StatusRequestEntityTooLarge, "file is too large", apperror.ErrInvalidInput))
			return
		}
		response.ResponseError(c, fmt.Errorf("file is required: %w", apperror.ErrInvalidInput))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ResponseError(c, fmt.Errorf("read file: %w", apperror.ErrInvalidInput))
		return
	}
	defer file.Close()

	res, err := h.service.Upload(c.Request.Context(), userID, file, fileHeader.Size)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
