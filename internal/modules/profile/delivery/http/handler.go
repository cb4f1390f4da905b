package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	profileDto "greenhouse.org/growersplatform/internal/modules/profile/dto"
	profile "greenhouse.org/growersplatform/internal/modules/profile/service"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/response"
	"greenhouse.org/growersplatform/pkg/validator"
)

type ProfileHandler struct {
	profileService profile.ProfileService
}

func NewProfileHandler(profileService profile.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) GetCurrentProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateProfile accepts JSON or multipart form data; the multipart form may carry an "avatar" file.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input profileDto.UpdateProfileInput
	if err := c.ShouldBind(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	var avatar *profileDto.AvatarFile
	if fileHeader, err := c.FormFile("avatar"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			response.ResponseError(c, fmt.Errorf("read avatar: %w", apperror.ErrInvalidInput))
			return
		}
		defer file.Close()

		avatar = &profileDto.AvatarFile{
			Reader:   file,
			FileName: fileHeader.Filename,
			Size:     fileHeader.Size,
		}
	}

	res, err := h.profileService.UpdateProfile(c.Request.Context(), userID, input, avatar)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) AdminUpdateProfile(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("invalid user id: %w", apperror.ErrInvalidInput))
		return
	}

	var input profileDto.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.profileService.UpdateProfile(c.Request.Context(), userID, input, nil)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) ListMembers(c *gin.Context) {
	var query profileDto.DirectoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.profileService.ListMembers(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) SearchMembers(c *gin.Context) {
	var query profileDto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.profileService.SearchMembers(c.Request.Context(), query.Q, query.Limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
