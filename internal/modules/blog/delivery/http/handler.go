package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	blogDto "greenhouse.org/growersplatform/internal/modules/blog/dto"
	blog "greenhouse.org/growersplatform/internal/modules/blog/service"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/response"
	"greenhouse.org/growersplatform/pkg/validator"
)

type BlogHandler struct {
	blogService blog.BlogService
}

func NewBlogHandler(blogService blog.BlogService) *BlogHandler {
	return &BlogHandler{blogService: blogService}
}

func (h *BlogHandler) List(c *gin.Context) {
	var query blogDto.ListBlogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.blogService.ListPublished(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *BlogHandler) GetBySlug(c *gin.Context) {
	res, err := h.blogService.GetPublished(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *BlogHandler) AdminList(c *gin.Context) {
	var query blogDto.AdminListBlogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.blogService.AdminList(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *BlogHandler) AdminGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	res, err := h.blogService.AdminGet(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *BlogHandler) Create(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input blogDto.CreateBlogPostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.blogService.Create(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *BlogHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var input blogDto.UpdateBlogPostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.blogService.Update(c.Request.Context(), id, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *BlogHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.blogService.Delete(c.Request.Context(), id); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("invalid id %q: %w", c.Param("id"), apperror.ErrInvalidInput))
		return uuid.Nil, false
	}
	return id, true
}
