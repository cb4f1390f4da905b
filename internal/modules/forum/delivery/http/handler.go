package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"greenhouse.org/growersplatform/internal/entity"
	forumDto "greenhouse.org/growersplatform/internal/modules/forum/dto"
	forum "greenhouse.org/growersplatform/internal/modules/forum/service"
	"greenhouse.org/growersplatform/pkg/apperror"
	commonDto "greenhouse.org/growersplatform/pkg/dto"
	"greenhouse.org/growersplatform/pkg/response"
	"greenhouse.org/growersplatform/pkg/validator"
)

type ForumHandler struct {
	forumService forum.ForumService
}

func NewForumHandler(forumService forum.ForumService) *ForumHandler {
	return &ForumHandler{forumService: forumService}
}

func (h *ForumHandler) ListPosts(c *gin.Context) {
	var query forumDto.ListPostsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.forumService.ListPosts(c.Request.Context(), response.OptionalUserID(c), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ForumHandler) CreatePost(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input forumDto.CreatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.forumService.CreatePost(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ForumHandler) GetPost(c *gin.Context) {
	postID, ok := pathID(c)
	if !ok {
		return
	}

	res, err := h.forumService.GetPost(c.Request.Context(), response.OptionalUserID(c), postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ForumHandler) UpdatePost(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, ok := pathID(c)
	if !ok {
		return
	}

	var input forumDto.UpdatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.forumService.UpdatePost(c.Request.Context(), userID, postID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ForumHandler) DeletePost(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.forumService.DeletePost(c.Request.Context(), userID, postID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ForumHandler) CreateComment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, ok := pathID(c)
	if !ok {
		return
	}

	var input forumDto.CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.forumService.CreateComment(c.Request.Context(), userID, postID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ForumHandler) UpdateComment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	commentID, ok := pathID(c)
	if !ok {
		return
	}

	var input forumDto.UpdateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.forumService.UpdateComment(c.Request.Context(), userID, commentID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ForumHandler) DeleteComment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	commentID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.forumService.DeleteComment(c.Request.Context(), userID, commentID); err != nil {
		response.ResponseError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ForumHandler) VotePost(c *gin.Context)      { h.vote(c, entity.VotePost) }
func (h *ForumHandler) VoteComment(c *gin.Context)   { h.vote(c, entity.VoteComment) }
func (h *ForumHandler) UnvotePost(c *gin.Context)    { h.unvote(c, entity.VotePost) }
func (h *ForumHandler) UnvoteComment(c *gin.Context) { h.unvote(c, entity.VoteComment) }

func (h *ForumHandler) vote(c *gin.Context, entityType entity.VoteEntity) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	entityID, ok := pathID(c)
	if !ok {
		return
	}

	var input forumDto.VoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.forumService.Vote(c.Request.Context(), userID, entityType, entityID, input.Value)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ForumHandler) unvote(c *gin.Context, entityType entity.VoteEntity) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	entityID, ok := pathID(c)
	if !ok {
		return
	}

	res, err := h.forumService.RemoveVote(c.Request.Context(), userID, entityType, entityID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ForumHandler) ToggleFavorite(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	postID, ok := pathID(c)
	if !ok {
		return
	}

	res, err := h.forumService.ToggleFavorite(c.Request.Context(), userID, postID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ForumHandler) ListFavorites(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query commonDto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.forumService.ListFavorites(c.Request.Context(), userID, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("invalid id: %w", apperror.ErrInvalidInput))
		return uuid.Nil, false
	}
	return id, true
}
