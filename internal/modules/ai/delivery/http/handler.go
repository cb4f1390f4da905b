package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"greenhouse.org/growersplatform/internal/entity"
	aiDto "greenhouse.org/growersplatform/internal/modules/ai/dto"
	ai "greenhouse.org/growersplatform/internal/modules/ai/service"
	"greenhouse.org/growersplatform/pkg/response"
	"greenhouse.org/growersplatform/pkg/validator"
)

const interruptedNotice = "\n\n[The assistant was interrupted. The answer above may be incomplete; please try again in a moment.]"

type AIHandler struct {
	aiService ai.AIService
}

func NewAIHandler(aiService ai.AIService) *AIHandler {
	return &AIHandler{aiService: aiService}
}

func (h *AIHandler) FindGrower(c *gin.Context) {
	var input aiDto.FindGrowerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.aiService.FindGrower(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Assessment streams the reply as chunked text/plain. Headers are committed on the first
// chunk so failures before any output still get a JSON error status.
func (h *AIHandler) Assessment(c *gin.Context) {
	var input aiDto.AssessmentChatInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	caller := ai.Caller{UserID: response.OptionalUserID(c), IsAdmin: response.GetRole(c) == entity.RoleAdmin}
	started := false
	err := h.aiService.StreamAssessment(c.Request.Context(), caller, input, func(chunk string) error {
		if !started {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
			started = true
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err == nil {
		return
	}
	if !started {
		response.ResponseError(c, err)
		return
	}
	_, _ = c.Writer.WriteString(interruptedNotice)
	c.Writer.Flush()
}
