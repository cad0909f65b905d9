package handlers

import (
	"log/slog"
	"time"

	"returnremind/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig holds the HTTP settings that come from configuration
type RouterConfig struct {
	AllowedOrigins []string
	TrustedProxies []string
}

// NewRouter wires the API routes, CORS and request logging
func NewRouter(h *Handler, cfg RouterConfig, logger *slog.Logger) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	if len(cfg.TrustedProxies) == 0 {
		cfg.TrustedProxies = []string{"127.0.0.1"}
	}
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", utils.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{utils.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// Basic routes
	router.GET("/", h.HomeHandler)
	router.GET("/health", h.HealthHandler)

	// User routes
	router.POST("/users", h.CreateUser)
	users := router.Group("/users/:userId")
	{
		users.GET("", h.GetUser)

		users.POST("/purchases", h.CreatePurchase)
		users.GET("/purchases", h.GetActivePurchases)
		users.GET("/purchases/history", h.GetPurchaseHistory)

		users.GET("/notifications", h.GetUpcomingNotifications)
		users.GET("/notifications/all", h.GetAllNotifications)
	}

	return router, nil
}
