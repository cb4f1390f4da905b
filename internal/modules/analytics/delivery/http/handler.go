package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	analyticsDto "greenhouse.org/growersplatform/internal/modules/analytics/dto"
	analytics "greenhouse.org/growersplatform/internal/modules/analytics/service"
	"greenhouse.org/growersplatform/pkg/response"
	"greenhouse.org/growersplatform/pkg/spreadsheet"
	"greenhouse.org/growersplatform/pkg/validator"
)

type AnalyticsHandler struct {
	analyticsService analytics.AnalyticsService
}

func NewAnalyticsHandler(analyticsService analytics.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) Ingest(c *gin.Context) {
	var input analyticsDto.BatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.analyticsService.Ingest(c.Request.Context(), response.OptionalUserID(c), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

func (h *AnalyticsHandler) Summary(c *gin.Context) {
	var query analyticsDto.SummaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	res, err := h.analyticsService.Summary(c.Request.Context(), query.Since)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AnalyticsHandler) Export(c *gin.Context) {
	var query analyticsDto.SummaryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, validator.FormatValidationError(err))
		return
	}

	var buf bytes.Buffer
	if err := h.analyticsService.Export(c.Request.Context(), &buf, query.Since); err != nil {
		response.ResponseError(c, err)
		return
	}
	filename := "analytics-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, spreadsheet.ContentType, buf.Bytes())
}
