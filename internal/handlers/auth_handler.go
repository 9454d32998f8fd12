package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openclass/quiz-service/internal/models"
	"github.com/openclass/quiz-service/internal/services"
)

// AuthHandler serves the public credential endpoints and the
// authenticated self-service profile routes.
type AuthHandler struct {
	BaseHandler
	users services.UserService
}

func NewAuthHandler(users services.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{BaseHandler: NewBaseHandler(logger), users: users}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse{Data: user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	token, user, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: gin.H{"token": token, "user": user}})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.users.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.handleServiceError(c, err)
		return
	}
	// Always accepted, whether or not the address exists.
	c.JSON(http.StatusAccepted, SuccessResponse{Data: gin.H{"status": "reset requested"}})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: gin.H{"status": "password reset"}})
}

func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	user, err := h.users.GetProfile(c.Request.Context(), actor, actor.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: user})
}

func (h *AuthHandler) UpdateMe(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), actor, actor.ID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: user})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req models.ChangePasswordRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), actor, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Data: gin.H{"status": "password changed"}})
}
