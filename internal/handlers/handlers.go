package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"returnremind/internal/services"
	"returnremind/internal/store"

	"github.com/gin-gonic/gin"
)

// Handler serves the HTTP API on top of the user and purchase services
type Handler struct {
	users     *services.UserService
	purchases *services.PurchaseService
	logger    *slog.Logger
}

func New(users *services.UserService, purchases *services.PurchaseService, logger *slog.Logger) *Handler {
	return &Handler{users: users, purchases: purchases, logger: logger}
}

// handleError provides a consistent way to handle and log errors
func (h *Handler) handleError(c *gin.Context, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), message, "path", c.FullPath(), "error", err)
	} else {
		h.logger.DebugContext(c.Request.Context(), message, "path", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": message})
}

// handleServiceError maps service and store errors to a status code
func (h *Handler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		h.handleError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, store.ErrNotFound):
		h.handleError(c, http.StatusNotFound, "Not found", err)
	default:
		h.handleError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// HomeHandler handles requests to the root path "/"
func (h *Handler) HomeHandler(c *gin.Context) {
	c.String(http.StatusOK, "Welcome to ReturnRemind!")
}

// HealthHandler is a simple health check endpoint
func (h *Handler) HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
