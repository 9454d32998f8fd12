package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories"
	"github.com/openclass/quiz-service/internal/services"
)

type QuestionHandler struct {
	BaseHandler
	questions services.QuestionService
}

func NewQuestionHandler(questions services.QuestionService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{BaseHandler: NewBaseHandler(logger), questions: questions}
}

func (h *QuestionHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req models.CreateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	question, err := h.questions.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse{Data: question})
}

func (h *QuestionHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	question, err := h.questions.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: question})
}

func (h *QuestionHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req models.UpdateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	question, err := h.questions.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: question})
}

func (h *QuestionHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	if err := h.questions.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QuestionHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	pageNum, pageSize := pageParams(c)
	filter := repositories.QuestionFilter{
		Subject:  c.Query("subject"),
		Search:   c.Query("search"),
		Page:     pageNum,
		PageSize: pageSize,
	}
	if qt := c.Query("type"); qt != "" {
		v := models.QuestionType(qt)
		filter.Type = &v
	}
	if d := c.Query("difficulty"); d != "" {
		v := models.DifficultyLevel(d)
		filter.Difficulty = &v
	}
	if c.Query("mine") == "true" {
		filter.CreatedBy = &actor.ID
	}

	questions, total, err := h.questions.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: questions, Total: total, Page: pageNum})
}
