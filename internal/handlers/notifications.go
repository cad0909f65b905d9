package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetUpcomingNotifications lists pending reminders that are not yet due
func (h *Handler) GetUpcomingNotifications(c *gin.Context) {
	reminders, err := h.purchases.ListUpcomingReminders(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminders)
}

func (h *Handler) GetAllNotifications(c *gin.Context) {
	reminders, err := h.purchases.ListAllReminders(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminders)
}
