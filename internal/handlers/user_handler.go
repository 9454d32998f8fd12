package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/repositories"
	"github.com/openclass/quiz-service/internal/services"
)

// UserHandler serves the admin account-management routes.
type UserHandler struct {
	BaseHandler
	users services.UserService
}

func NewUserHandler(users services.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{BaseHandler: NewBaseHandler(logger), users: users}
}

func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req models.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.users.CreateUser(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse{Data: user})
}

func (h *UserHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	pageNum, pageSize := pageParams(c)
	filter := repositories.UserFilter{
		Search:   c.Query("search"),
		Page:     pageNum,
		PageSize: pageSize,
	}
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}
	if active := c.Query("active"); active != "" {
		v := active == "true"
		filter.IsActive = &v
	}

	users, total, err := h.users.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: users, Total: total, Page: pageNum})
}

func (h *UserHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	user, err := h.users.GetProfile(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: user})
}

func (h *UserHandler) SetActive(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.users.SetActive(c.Request.Context(), actor, id, req.Active); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: gin.H{"id": id, "active": req.Active}})
}
