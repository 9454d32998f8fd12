package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/openclass/quiz-service/internal/services"
)

type SuccessResponse struct {
	Data interface{} `json:"data"`
}

type ListResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// parseIDParam reads a positive integer path parameter, responding 400
// and returning 0 on failure.
func (h *BaseHandler) parseIDParam(c *gin.Context, name string) uint {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name + " parameter"})
		return 0
	}
	return uint(id)
}

// actor extracts the authenticated caller placed by the auth
// middleware. A missing actor means a route escaped the middleware.
func (h *BaseHandler) actor(c *gin.Context) (services.Actor, bool) {
	v, ok := c.Get(ContextActorKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "not authenticated"})
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "not authenticated"})
		return services.Actor{}, false
	}
	return actor, true
}

// handleServiceError translates service error kinds into HTTP status
// codes. Unknown errors become opaque 500s; the detail goes to the log,
// not the client.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var se *services.Error
	if !errors.As(err, &se) {
		h.logger.ErrorContext(c.Request.Context(), "unhandled service error", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch se.Kind {
	case services.KindValidation:
		status = http.StatusBadRequest
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindPermissionDenied:
		status = http.StatusForbidden
	case services.KindAlreadyExists, services.KindAttemptLimitExceeded:
		status = http.StatusConflict
	case services.KindInvalidAnswer:
		status = http.StatusUnprocessableEntity
	case services.KindInvalidCredential:
		status = http.StatusUnauthorized
	case services.KindStoreUnavailable:
		status = http.StatusServiceUnavailable
		h.logger.ErrorContext(c.Request.Context(), "store failure", "error", se.Err, "path", c.FullPath())
	}

	c.JSON(status, ErrorResponse{Error: string(se.Kind), Details: se.Message})
}

func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Details: err.Error()})
		return false
	}
	return true
}

func pageParams(c *gin.Context) (int, int) {
	pageNum, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return pageNum, pageSize
}
