package handlers

import (
	"net/http"
	"time"

	"returnremind/internal/models"
	"returnremind/internal/services"

	"github.com/gin-gonic/gin"
)

// CreatePurchase records a purchase and schedules its reminders
func (h *Handler) CreatePurchase(c *gin.Context) {
	var req models.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	purchaseDate, err := time.Parse("2006-01-02", req.PurchaseDate)
	if err != nil {
		h.handleError(c, http.StatusBadRequest, "purchaseDate must be YYYY-MM-DD", err)
		return
	}

	purchase, err := h.purchases.CreatePurchase(c.Request.Context(), services.CreatePurchaseInput{
		OwnerID:          c.Param("userId"),
		MerchantName:     req.MerchantName,
		ItemName:         req.ItemName,
		PurchaseDate:     purchaseDate,
		ReturnWindowDays: *req.ReturnWindowDays,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, purchase)
}

// GetActivePurchases lists purchases that are still within or awaiting archival
func (h *Handler) GetActivePurchases(c *gin.Context) {
	purchases, err := h.purchases.ListActivePurchases(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchases)
}

// GetPurchaseHistory lists archived purchases
func (h *Handler) GetPurchaseHistory(c *gin.Context) {
	purchases, err := h.purchases.ListArchivedPurchases(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchases)
}
