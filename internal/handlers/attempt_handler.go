package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/services"
)

type AttemptHandler struct {
	BaseHandler
	attempts services.AttemptService
}

func NewAttemptHandler(attempts services.AttemptService, logger *slog.Logger) *AttemptHandler {
	return &AttemptHandler{BaseHandler: NewBaseHandler(logger), attempts: attempts}
}

// Submit grades a completed answer sheet for the quiz in the path.
func (h *AttemptHandler) Submit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	var req models.SubmitAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.attempts.Submit(c.Request.Context(), actor, quizID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse{Data: result})
}

func (h *AttemptHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	attempt, err := h.attempts.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: attempt})
}

// ListMine returns the caller's own attempt history.
func (h *AttemptHandler) ListMine(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	attempts, err := h.attempts.ListForStudent(c.Request.Context(), actor, actor.ID, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: attempts})
}

// ListForQuiz returns every attempt on a quiz for its manager.
func (h *AttemptHandler) ListForQuiz(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	quizID := h.parseIDParam(c, "id")
	if quizID == 0 {
		return
	}
	attempts, err := h.attempts.ListForQuiz(c.Request.Context(), actor, quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: attempts})
}
