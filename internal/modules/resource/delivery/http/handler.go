package handler

import (
	"fmt"
	"net/http"

	"greenhouse.org/growersplatform/internal/modules/resource/dto"
	resource "greenhouse.org/growersplatform/internal/modules/resource/service"
	"greenhouse.org/growersplatform/pkg/apperror"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
	"greenhouse.org/growersplatform/pkg/response"
	"greenhouse.org/growersplatform/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxImportBytes = 5 << 20

type ResourceHandler struct {
	service resource.ResourceService
}

func NewResourceHandler(service resource.ResourceService) *ResourceHandler {
	return &ResourceHandler{service: service}
}

func (h *ResourceHandler) ListResources(c *gin.Context) {
	var req dto.ListResourcesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	page, err := h.service.List(c.Request.Context(), req, response.OptionalUserID(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ResourceHandler) GetResource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.service.Get(c.Request.Context(), id, response.OptionalUserID(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ResourceHandler) ToggleFavorite(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	res, err := h.service.ToggleFavorite(c.Request.Context(), userID, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ResourceHandler) ListFavorites(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	var pq commonDto.PageQuery
	if err := c.ShouldBindQuery(&pq); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.ListFavorites(c.Request.Context(), userID, pq)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ResourceHandler) CreateResource(c *gin.Context) {
	var input dto.ResourceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ResourceHandler) UpdateResource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input dto.ResourceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.service.Update(c.Request.Context(), id, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ResourceHandler) DeleteResource(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ResourceHandler) ImportResources(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.ResponseError(c, fmt.Errorf("file is required: %w", apperror.ErrInvalidInput))
		return
	}
	if file.Size > maxImportBytes {
		response.ResponseError(c, fmt.Errorf("import files are limited to 5MB: %w", apperror.ErrInvalidInput))
		return
	}

	f, err := file.Open()
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer f.Close()

	res, err := h.service.Import(c.Request.Context(), file.Filename, f)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("invalid id: %w", apperror.ErrInvalidInput))
		return uuid.Nil, false
	}
	return id, true
}
