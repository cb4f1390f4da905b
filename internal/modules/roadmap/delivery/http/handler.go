package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	roadmapDto "greenhouse.org/growersplatform/internal/modules/roadmap/dto"
	roadmap "greenhouse.org/growersplatform/internal/modules/roadmap/service"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/response"
	"greenhouse.org/growersplatform/pkg/validator"
)

type RoadmapHandler struct {
	roadmapService roadmap.RoadmapService
}

func NewRoadmapHandler(roadmapService roadmap.RoadmapService) *RoadmapHandler {
	return &RoadmapHandler{roadmapService: roadmapService}
}

func (h *RoadmapHandler) Questions(c *gin.Context) {
	c.JSON(http.StatusOK, h.roadmapService.Questions())
}

func (h *RoadmapHandler) Submit(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input roadmapDto.SubmitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.roadmapService.Submit(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *RoadmapHandler) Latest(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.roadmapService.Latest(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *RoadmapHandler) Get(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}

	res, err := h.roadmapService.Get(c.Request.Context(), userID, response.GetRole(c) == entity.RoleAdmin, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *RoadmapHandler) Recompute(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}

	res, err := h.roadmapService.Recompute(c.Request.Context(), userID, response.GetRole(c) == entity.RoleAdmin, id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *RoadmapHandler) target(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("assessment id %q: %w", c.Param("id"), apperror.ErrInvalidInput))
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
