package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	challengeDto "greenhouse.org/growersplatform/internal/modules/challenge/dto"
	challenge "greenhouse.org/growersplatform/internal/modules/challenge/service"
	"greenhouse.org/growersplatform/pkg/apperror"
	"greenhouse.org/growersplatform/pkg/logger"
	"greenhouse.org/growersplatform/pkg/response"
	"greenhouse.org/growersplatform/pkg/spreadsheet"
	"greenhouse.org/growersplatform/pkg/validator"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

type ChallengeHandler struct {
	challengeService challenge.ChallengeService
	upgrader         websocket.Upgrader
	log              *logger.Logger
}

// NewChallengeHandler accepts websocket upgrades only from allowedOrigins ("*" allows any).
func NewChallengeHandler(challengeService challenge.ChallengeService, allowedOrigins []string, log *logger.Logger) *ChallengeHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &ChallengeHandler{
		challengeService: challengeService,
		log:              log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

func (h *ChallengeHandler) Create(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input challengeDto.CreateChallengeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.challengeService.Submit(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ChallengeHandler) List(c *gin.Context) {
	var query challengeDto.ListChallengesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.challengeService.List(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ChallengeHandler) SetFlag(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, fmt.Errorf("invalid challenge id: %w", apperror.ErrInvalidInput))
		return
	}

	var input challengeDto.UpdateFlagInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.challengeService.SetFlag(c.Request.Context(), id, input.Flag)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ChallengeHandler) Export(c *gin.Context) {
	var query challengeDto.ListChallengesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	filename := fmt.Sprintf("grower-challenges-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Type", spreadsheet.ContentType)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := h.challengeService.Export(c.Request.Context(), c.Writer, query); err != nil {
		if !c.Writer.Written() {
			c.Header("Content-Disposition", "")
			response.ResponseError(c, err)
			return
		}
		h.log.Error("challenge export aborted mid-stream", "error", err)
	}
}

// Stream pushes each new submission to the admin dashboard as a JSON text frame.
func (h *ChallengeHandler) Stream(c *gin.Context) {
	f := h.challengeService.Feed()
	if f == nil {
		response.ResponseError(c, fmt.Errorf("live feed disabled: %w", apperror.ErrExternalService))
		return
	}

	ctx := c.Request.Context()
	messages, cancel, err := f.Subscribe(ctx)
	if err != nil {
		response.ResponseError(c, fmt.Errorf("%v: %w", err, apperror.ErrExternalService))
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		}
	}
}
