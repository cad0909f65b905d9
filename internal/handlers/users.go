package handlers

import (
	"net/http"

	"returnremind/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateUser registers a purchase owner
func (h *Handler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
