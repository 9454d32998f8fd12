package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories"
	"github.com/openclass/quiz-service/internal/services"
)

type QuizHandler struct {
	BaseHandler
	quizzes services.QuizService
}

func NewQuizHandler(quizzes services.QuizService, logger *slog.Logger) *QuizHandler {
	return &QuizHandler{BaseHandler: NewBaseHandler(logger), quizzes: quizzes}
}

func (h *QuizHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req models.CreateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}
	quiz, err := h.quizzes.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse{Data: quiz})
}

// Get routes students to the sanitized view and managers to the full
// quiz.
func (h *QuizHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if actor.Role == models.RoleStudent {
		view, err := h.quizzes.GetForStudent(c.Request.Context(), actor, id)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, SuccessResponse{Data: view})
		return
	}

	quiz, err := h.quizzes.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: quiz})
}

func (h *QuizHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req models.UpdateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}
	quiz, err := h.quizzes.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: quiz})
}

func (h *QuizHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	if err := h.quizzes.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *QuizHandler) Publish(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	quiz, err := h.quizzes.Publish(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: quiz})
}

func (h *QuizHandler) Unpublish(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	quiz, err := h.quizzes.Unpublish(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: quiz})
}

func (h *QuizHandler) SetQuestions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req struct {
		QuestionIDs []uint `json:"question_ids" binding:"required"`
	}
	if !h.bindJSON(c, &req) {
		return
	}
	quiz, err := h.quizzes.SetQuestions(c.Request.Context(), actor, id, req.QuestionIDs)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: quiz})
}

func (h *QuizHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	pageNum, pageSize := pageParams(c)
	filter := repositories.QuizFilter{
		Search:   c.Query("search"),
		Page:     pageNum,
		PageSize: pageSize,
	}
	if p := c.Query("published"); p != "" {
		v := p == "true"
		filter.IsPublished = &v
	}

	quizzes, total, err := h.quizzes.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: quizzes, Total: total, Page: pageNum})
}
