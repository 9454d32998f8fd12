package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openclass/quiz-service/internal/services"
)

type AnalyticsHandler struct {
	BaseHandler
	analytics services.AnalyticsService
}

func NewAnalyticsHandler(analytics services.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{BaseHandler: NewBaseHandler(logger), analytics: analytics}
}

func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	dashboard, err := h.analytics.Dashboard(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: dashboard})
}

func (h *AnalyticsHandler) StudentPerformance(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	studentID := h.parseIDParam(c, "id")
	if studentID == 0 {
		return
	}
	perf, err := h.analytics.StudentPerformance(c.Request.Context(), actor, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: perf})
}

func (h *AnalyticsHandler) QuizStats(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	stats, err := h.analytics.QuizStats(c.Request.Context(), actor, quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: stats})
}

// ExportQuizResults streams the attempt sheet as an xlsx download.
func (h *AnalyticsHandler) ExportQuizResults(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	data, err := h.analytics.ExportQuizResults(c.Request.Context(), actor, quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("quiz-%d-results.xlsx", quizID)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		data)
}
